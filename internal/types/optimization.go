package types

import (
	"fmt"
	"strings"
)

// Caps on the optimizer's auxiliary arrays.
const (
	MaxChanges      = 10
	MaxPlaceholders = 5
)

// Section is a named part of a rewritten document.
type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Change describes a single edit made by the optimizer.
type Change struct {
	Before string `json:"before"`
	After  string `json:"after"`
	Reason string `json:"reason"`
}

// Placeholder marks a spot where the user should add information the optimizer could not infer.
type Placeholder struct {
	Location        string `json:"location"`
	PlaceholderText string `json:"placeholder_text"`
	Suggestion      string `json:"suggestion"`
}

// OptimizationResult is the rewritten document returned by the optimizing oracle.
type OptimizationResult struct {
	Language       string        `json:"language"`
	Sections       []Section     `json:"sections"`
	ChangesSummary []Change      `json:"changes_summary"`
	Placeholders   []Placeholder `json:"placeholders"`
}

// Validate checks that the result is structurally usable.
func (r *OptimizationResult) Validate() error {
	if len(r.Sections) == 0 {
		return fmt.Errorf("no sections")
	}
	for i, s := range r.Sections {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("sections[%d]: empty name", i)
		}
		if strings.TrimSpace(s.Content) == "" {
			return fmt.Errorf("sections[%d] (%s): empty content", i, s.Name)
		}
	}
	return nil
}

// Cap truncates the change log and placeholder list to their maximum lengths.
func (r *OptimizationResult) Cap() {
	if len(r.ChangesSummary) > MaxChanges {
		r.ChangesSummary = r.ChangesSummary[:MaxChanges]
	}
	if len(r.Placeholders) > MaxPlaceholders {
		r.Placeholders = r.Placeholders[:MaxPlaceholders]
	}
}

// Stage is the terminal state reached by score reconciliation.
type Stage string

// Reconciliation stages.
const (
	StageAccepted     Stage = "accepted"
	StageRetried      Stage = "retried"
	StageFloorApplied Stage = "floor_applied"
	StageUnscored     Stage = "unscored"
)

// ReconciledScore is the user-facing score after optimization.
// ATS and Content are nil when no fresh score could be obtained.
type ReconciledScore struct {
	ATS     *int  `json:"ats"`
	Content *int  `json:"content"`
	Stage   Stage `json:"stage"`
}

// Scored reports whether both axes carry a value.
func (s ReconciledScore) Scored() bool {
	return s.ATS != nil && s.Content != nil
}

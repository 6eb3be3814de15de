package types

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Score bounds accepted from callers and produced by the scoring oracle.
const (
	MinScore = 0
	MaxScore = 100
	// TipCount is the number of improvement tips an analysis carries.
	TipCount = 3
)

// CategoryScore is the score of a single rubric category.
type CategoryScore struct {
	Score     int    `json:"score" validate:"gte=0"`
	Max       int    `json:"max" validate:"gt=0"`
	Reasoning string `json:"reasoning"`
}

// DimensionScore is one scoring axis broken down into categories.
// Total always equals the sum of the category scores.
type DimensionScore struct {
	Total      int                      `json:"total" validate:"gte=0,lte=100"`
	Categories map[string]CategoryScore `json:"categories" validate:"required,min=1,dive"`
}

// Tip is a single improvement suggestion.
type Tip struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// AnalysisResult is the outcome of scoring a document.
type AnalysisResult struct {
	Language     string         `json:"language" validate:"required"`
	ATSScore     DimensionScore `json:"ats_score"`
	ContentScore DimensionScore `json:"content_score"`
	Tips         []Tip          `json:"tips" validate:"len=3,dive"`
}

// Sum returns the sum of all category scores.
func (d DimensionScore) Sum() int {
	total := 0
	for _, c := range d.Categories {
		total += c.Score
	}
	return total
}

// Recompute sets Total from the category scores.
func (d *DimensionScore) Recompute() {
	d.Total = d.Sum()
}

// Validate checks the category bounds and the total invariant.
func (d DimensionScore) Validate() error {
	if len(d.Categories) == 0 {
		return fmt.Errorf("no categories")
	}
	names := make([]string, 0, len(d.Categories))
	for name := range d.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := d.Categories[name]
		if c.Max <= 0 {
			return fmt.Errorf("category %q: max must be positive, got %d", name, c.Max)
		}
		if c.Score < 0 || c.Score > c.Max {
			return fmt.Errorf("category %q: score %d out of range [0,%d]", name, c.Score, c.Max)
		}
	}
	if sum := d.Sum(); sum != d.Total {
		return fmt.Errorf("total %d does not match category sum %d", d.Total, sum)
	}
	if d.Total < MinScore || d.Total > MaxScore {
		return fmt.Errorf("total %d out of range [%d,%d]", d.Total, MinScore, MaxScore)
	}
	return nil
}

// Validate validates the AnalysisResult using the validator and the score invariants.
func (r *AnalysisResult) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if err := r.ATSScore.Validate(); err != nil {
		return fmt.Errorf("ats_score: %w", err)
	}
	if err := r.ContentScore.Validate(); err != nil {
		return fmt.Errorf("content_score: %w", err)
	}
	return nil
}

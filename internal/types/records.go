package types

import "time"

// AnalysisRecord is the persisted summary of one analysis. It holds scores
// and counts only, never document text or contact values.
type AnalysisRecord struct {
	Language     string    `json:"language"`
	ATSScore     int       `json:"ats_score"`
	ContentScore int       `json:"content_score"`
	TipCount     int       `json:"tip_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// OptimizationRecord is the persisted summary of one optimization.
type OptimizationRecord struct {
	Language             string    `json:"language"`
	SectionCount         int       `json:"section_count"`
	ChangeCount          int       `json:"change_count"`
	PlaceholderCount     int       `json:"placeholder_count"`
	OriginalATSScore     int       `json:"original_ats_score"`
	OriginalContentScore int       `json:"original_content_score"`
	ATSScore             *int      `json:"ats_score,omitempty"`
	ContentScore         *int      `json:"content_score,omitempty"`
	Stage                Stage     `json:"stage"`
	Attempts             int       `json:"attempts"`
	CreatedAt            time.Time `json:"created_at"`
}

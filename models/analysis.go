package models

import "time"

// Classification is the output label of the classification cascade (§4.K).
type Classification string

const (
	ClassArticle Classification = "article"
	ClassHub     Classification = "hub"
	ClassNav     Classification = "nav"
	ClassOther   Classification = "other"
	ClassUnknown Classification = "unknown"
)

// ContentAnalysis is a classification result for a stored content body.
// May be re-computed; latest-wins keyed on ContentID.
type ContentAnalysis struct {
	ID             int64          `db:"id" json:"id"`
	ContentID      int64          `db:"content_id" json:"content_id"`
	Classification Classification `db:"classification" json:"classification"`
	Confidence     float64        `db:"confidence" json:"confidence"`
	SignalsJSON    string         `db:"signals_json" json:"signals_json"`
	AnalyzedAt     time.Time      `db:"analyzed_at" json:"analyzed_at"`
}

// StageResult is the uniform output shape produced by each classification
// stage before aggregation (§4.K).
type StageResult struct {
	Stage          string                 `json:"stage"` // "url", "content", "rendered"
	Classification Classification         `json:"classification"`
	Confidence     float64                `json:"confidence"`
	Reason         string                 `json:"reason"`
	Signals        map[string]interface{} `json:"signals,omitempty"`
}

// Provenance records which stages contributed to an aggregated result and
// which override rule decided it.
type Provenance struct {
	URL      *StageResult `json:"url,omitempty"`
	Content  *StageResult `json:"content,omitempty"`
	Rendered *StageResult `json:"rendered,omitempty"`
	Rule     string       `json:"rule"`
}

// AggregatedResult is the aggregator's final output (§4.K).
type AggregatedResult struct {
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Provenance     Provenance     `json:"provenance"`
}

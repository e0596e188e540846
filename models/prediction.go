package models

import "time"

// PredictionSource enumerates where a URLClassification prediction came
// from (§3, §4.L).
type PredictionSource string

const (
	SourceLearnedPattern PredictionSource = "learned_pattern"
	SourceSimilarURL     PredictionSource = "similar_url"
	SourceDomainProfile  PredictionSource = "domain_profile"
	SourceURLSignals     PredictionSource = "url_signals"
)

// URLClassification is a pre-fetch prediction, upserted per
// (url_id, prediction_source) (§3, invariant 6).
type URLClassification struct {
	ID                     int64            `db:"id" json:"id"`
	URLID                  int64            `db:"url_id" json:"url_id"`
	PredictedClass         Classification   `db:"predicted_classification" json:"predicted_classification"`
	Confidence             float64          `db:"confidence" json:"confidence"`
	PredictionSource       PredictionSource `db:"prediction_source" json:"prediction_source"`
	PatternMatched         string           `db:"pattern_matched" json:"pattern_matched,omitempty"`
	SimilarURLID           *int64           `db:"similar_url_id" json:"similar_url_id,omitempty"`
	CreatedAt              time.Time        `db:"created_at" json:"created_at"`
	VerifiedAt             *time.Time       `db:"verified_at" json:"verified_at,omitempty"`
	VerifiedClassification Classification   `db:"verified_classification" json:"verified_classification,omitempty"`
	VerificationMatch      *bool            `db:"verification_match" json:"verification_match,omitempty"`
}

package store

import (
	"context"
	"fmt"

	"github.com/metabench/hubcrawl/models"
)

// UpsertURLClassification stores a prediction, enforcing invariant 6
// (one row per (url_id, prediction_source)) via the unique constraint.
func (s *Store) UpsertURLClassification(ctx context.Context, c models.URLClassification) (models.URLClassification, error) {
	const q = `
		INSERT INTO url_classifications
			(url_id, predicted_classification, confidence, prediction_source, pattern_matched, similar_url_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url_id, prediction_source) DO UPDATE SET
			predicted_classification = EXCLUDED.predicted_classification,
			confidence = EXCLUDED.confidence,
			pattern_matched = EXCLUDED.pattern_matched,
			similar_url_id = EXCLUDED.similar_url_id
		RETURNING id, url_id, predicted_classification, confidence, prediction_source,
			pattern_matched, similar_url_id, created_at, verified_at,
			verified_classification, verification_match`
	var out models.URLClassification
	if err := s.db.GetContext(ctx, &out, q, c.URLID, c.PredictedClass, c.Confidence, c.PredictionSource, c.PatternMatched, c.SimilarURLID); err != nil {
		return models.URLClassification{}, fmt.Errorf("store: upsert url_classification: %w", err)
	}
	return out, nil
}

// RecordVerification fills in verified_at / verified_classification /
// verification_match once a prediction's URL has actually been fetched
// and classified — the round-trip invariant 10 / testable property 10.
func (s *Store) RecordVerification(ctx context.Context, id int64, verifiedClass models.Classification, match bool) error {
	const q = `
		UPDATE url_classifications SET
			verified_at = now(), verified_classification = $2, verification_match = $3
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id, verifiedClass, match); err != nil {
		return fmt.Errorf("store: record verification: %w", err)
	}
	return nil
}

// PredictionsForURL returns all prediction-source rows for a URL, used
// when propagating accuracy updates back to the matched pattern.
func (s *Store) PredictionsForURL(ctx context.Context, urlID int64) ([]models.URLClassification, error) {
	const q = `
		SELECT id, url_id, predicted_classification, confidence, prediction_source,
			pattern_matched, similar_url_id, created_at, verified_at,
			verified_classification, verification_match
		FROM url_classifications WHERE url_id = $1`
	var out []models.URLClassification
	if err := s.db.SelectContext(ctx, &out, q, urlID); err != nil {
		return nil, fmt.Errorf("store: predictions for url: %w", err)
	}
	return out, nil
}

// VerifiedClassifiedURLsForHost returns (url, classification) pairs with
// enough history to feed the pattern learner's per-host grouping.
type VerifiedClassifiedURL struct {
	URLID          int64                 `db:"url_id"`
	Path           string                `db:"path"`
	Classification models.Classification `db:"classification"`
}

func (s *Store) VerifiedClassifiedURLsForHost(ctx context.Context, host string) ([]VerifiedClassifiedURL, error) {
	const q = `
		SELECT u.id AS url_id, u.path AS path, uc.verified_classification AS classification
		FROM url_classifications uc
		JOIN urls u ON u.id = uc.url_id
		WHERE u.host = $1 AND uc.verified_at IS NOT NULL`
	var out []VerifiedClassifiedURL
	if err := s.db.SelectContext(ctx, &out, q, host); err != nil {
		return nil, fmt.Errorf("store: verified classified urls for host: %w", err)
	}
	return out, nil
}

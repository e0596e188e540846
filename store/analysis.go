package store

import (
	"context"
	"fmt"

	"github.com/metabench/hubcrawl/models"
)

// InsertContentAnalysis records a new classification result. Re-computation
// appends a new row; LatestContentAnalysis resolves latest-wins.
func (s *Store) InsertContentAnalysis(ctx context.Context, a models.ContentAnalysis) (models.ContentAnalysis, error) {
	const q = `
		INSERT INTO content_analysis (content_id, classification, confidence, signals_json, analyzed_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, content_id, classification, confidence, signals_json, analyzed_at`
	var out models.ContentAnalysis
	if err := s.db.GetContext(ctx, &out, q, a.ContentID, a.Classification, a.Confidence, a.SignalsJSON); err != nil {
		return models.ContentAnalysis{}, fmt.Errorf("store: insert content_analysis: %w", err)
	}
	return out, nil
}

// LatestContentAnalysis returns the most recent analysis for a content id.
func (s *Store) LatestContentAnalysis(ctx context.Context, contentID int64) (models.ContentAnalysis, bool, error) {
	const q = `
		SELECT id, content_id, classification, confidence, signals_json, analyzed_at
		FROM content_analysis WHERE content_id = $1
		ORDER BY analyzed_at DESC LIMIT 1`
	var out models.ContentAnalysis
	if err := s.db.GetContext(ctx, &out, q, contentID); err != nil {
		if isNoRows(err) {
			return models.ContentAnalysis{}, false, nil
		}
		return models.ContentAnalysis{}, false, fmt.Errorf("store: latest content_analysis: %w", err)
	}
	return out, true, nil
}

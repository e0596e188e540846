package store

import (
	"context"
	"fmt"

	"github.com/metabench/hubcrawl/models"
)

// InsertURL creates the URL row if absent and returns the row either way,
// enforcing uniqueness on normalized (invariant: URL is immutable after
// creation — this never updates an existing row).
func (s *Store) InsertURL(ctx context.Context, normalized, host, path string) (models.URL, error) {
	var u models.URL
	const q = `
		INSERT INTO urls (normalized, host, path)
		VALUES ($1, $2, $3)
		ON CONFLICT (normalized) DO UPDATE SET normalized = EXCLUDED.normalized
		RETURNING id, normalized, host, path, first_seen_at`
	if err := s.db.GetContext(ctx, &u, q, normalized, host, path); err != nil {
		return models.URL{}, fmt.Errorf("store: insert url: %w", err)
	}
	return u, nil
}

// GetURLByNormalized looks up a URL by its normalized form. Returns
// (models.URL{}, false, nil) on miss, not an error.
func (s *Store) GetURLByNormalized(ctx context.Context, normalized string) (models.URL, bool, error) {
	var u models.URL
	const q = `SELECT id, normalized, host, path, first_seen_at FROM urls WHERE normalized = $1`
	if err := s.db.GetContext(ctx, &u, q, normalized); err != nil {
		if isNoRows(err) {
			return models.URL{}, false, nil
		}
		return models.URL{}, false, fmt.Errorf("store: get url: %w", err)
	}
	return u, true, nil
}

// GetURL fetches a URL row by id.
func (s *Store) GetURL(ctx context.Context, id int64) (models.URL, error) {
	var u models.URL
	const q = `SELECT id, normalized, host, path, first_seen_at FROM urls WHERE id = $1`
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		return models.URL{}, fmt.Errorf("store: get url %d: %w", id, err)
	}
	return u, nil
}

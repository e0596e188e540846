package store

import (
	"context"
	"fmt"

	"github.com/metabench/hubcrawl/models"
)

// InsertCandidateMapping creates a PlacePageMapping in the candidate
// state, the hub seeder's output shape (§4.I).
func (s *Store) InsertCandidateMapping(ctx context.Context, m models.PlacePageMapping) (models.PlacePageMapping, error) {
	const q = `
		INSERT INTO place_page_mappings (place_id, host, url, page_kind, status, presence, pattern_id, confidence)
		VALUES ($1, $2, $3, $4, 'candidate', '', $5, $6)
		ON CONFLICT (host, url) DO NOTHING
		RETURNING id, place_id, host, url, page_kind, status, presence, pattern_id, confidence,
			max_page_depth, oldest_content_date, last_depth_check_at, depth_check_error, verified_at`
	var out models.PlacePageMapping
	if err := s.db.GetContext(ctx, &out, q, m.PlaceID, m.Host, m.URL, m.PageKind, m.PatternID, m.Confidence); err != nil {
		if isNoRows(err) {
			return s.GetMappingByURL(ctx, m.Host, m.URL)
		}
		return models.PlacePageMapping{}, fmt.Errorf("store: insert candidate mapping: %w", err)
	}
	return out, nil
}

// GetMappingByURL fetches a mapping by its (host, url) unique key.
func (s *Store) GetMappingByURL(ctx context.Context, host, url string) (models.PlacePageMapping, error) {
	const q = `
		SELECT id, place_id, host, url, page_kind, status, presence, pattern_id, confidence,
			max_page_depth, oldest_content_date, last_depth_check_at, depth_check_error, verified_at
		FROM place_page_mappings WHERE host = $1 AND url = $2`
	var out models.PlacePageMapping
	if err := s.db.GetContext(ctx, &out, q, host, url); err != nil {
		return models.PlacePageMapping{}, fmt.Errorf("store: get mapping: %w", err)
	}
	return out, nil
}

// ListVerifiedHubs backs GET /api/hub-archive/hubs.
func (s *Store) ListVerifiedHubs(ctx context.Context) ([]models.PlacePageMapping, error) {
	const q = `
		SELECT id, place_id, host, url, page_kind, status, presence, pattern_id, confidence,
			max_page_depth, oldest_content_date, last_depth_check_at, depth_check_error, verified_at
		FROM place_page_mappings WHERE status = 'verified' ORDER BY host, url`
	var out []models.PlacePageMapping
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		if legacyColumnAbsent(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: list verified hubs: %w", err)
	}
	return out, nil
}

// ListMappingsNeedingDepthProbe returns up to limit verified mappings,
// restricted to host when it is non-empty (§4.J CLI surface:
// probe-hub-depth --host), never-checked mappings first and then the
// least recently checked.
func (s *Store) ListMappingsNeedingDepthProbe(ctx context.Context, host string, limit int) ([]models.PlacePageMapping, error) {
	q := `
		SELECT id, place_id, host, url, page_kind, status, presence, pattern_id, confidence,
			max_page_depth, oldest_content_date, last_depth_check_at, depth_check_error, verified_at
		FROM place_page_mappings
		WHERE status = 'verified' AND ($1 = '' OR host = $1)
		ORDER BY last_depth_check_at NULLS FIRST
		LIMIT $2`
	var out []models.PlacePageMapping
	if err := s.db.SelectContext(ctx, &out, q, host, limit); err != nil {
		return nil, fmt.Errorf("store: list mappings needing depth probe: %w", err)
	}
	return out, nil
}

// UpdateDepthProbeResult records the hub depth prober's outcome (§4.J
// step 5). presence/status transition to verified(present) on success.
func (s *Store) UpdateDepthProbeResult(ctx context.Context, id int64, maxDepth int, oldestContentDate interface{}, probeErr string) error {
	const q = `
		UPDATE place_page_mappings SET
			max_page_depth = $2,
			oldest_content_date = $3,
			last_depth_check_at = now(),
			depth_check_error = $4,
			status = CASE WHEN $4 = '' THEN 'verified' ELSE status END,
			presence = CASE WHEN $4 = '' THEN 'present' ELSE presence END,
			verified_at = CASE WHEN $4 = '' THEN now() ELSE verified_at END
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id, maxDepth, oldestContentDate, probeErr); err != nil {
		return fmt.Errorf("store: update depth probe result: %w", err)
	}
	return nil
}

// UpsertSiteURLPattern inserts or accumulates a learned pattern (§4.L
// pattern learner), keyed on (host, template).
func (s *Store) UpsertSiteURLPattern(ctx context.Context, p models.SiteURLPattern) (models.SiteURLPattern, error) {
	const q = `
		INSERT INTO site_url_patterns (host, template, sample_count, verified_count, accuracy)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (host, template) DO UPDATE SET
			sample_count = EXCLUDED.sample_count,
			verified_count = EXCLUDED.verified_count,
			accuracy = EXCLUDED.accuracy
		RETURNING id, host, template, sample_count, verified_count, accuracy`
	var out models.SiteURLPattern
	if err := s.db.GetContext(ctx, &out, q, p.Host, p.Template, p.SampleCount, p.VerifiedCount, p.Accuracy); err != nil {
		return models.SiteURLPattern{}, fmt.Errorf("store: upsert site_url_pattern: %w", err)
	}
	return out, nil
}

// ListPlaces returns the gazetteer places of the given kind (every kind
// when kind is empty), most populous first, for the hub seeder (§4.I).
// Ingestion of places is out of scope; this is a read-only view.
func (s *Store) ListPlaces(ctx context.Context, kind string) ([]models.Place, error) {
	const q = `
		SELECT id, name, kind, population, slug FROM places
		WHERE ($1 = '' OR kind = $1) ORDER BY population DESC`
	var out []models.Place
	if err := s.db.SelectContext(ctx, &out, q, kind); err != nil {
		return nil, fmt.Errorf("store: list places: %w", err)
	}
	return out, nil
}

// PatternsForHost returns a host's learned patterns ordered by accuracy
// descending, for the predictor's "pick highest-accuracy match" step.
func (s *Store) PatternsForHost(ctx context.Context, host string) ([]models.SiteURLPattern, error) {
	const q = `
		SELECT id, host, template, sample_count, verified_count, accuracy
		FROM site_url_patterns WHERE host = $1 ORDER BY accuracy DESC`
	var out []models.SiteURLPattern
	if err := s.db.SelectContext(ctx, &out, q, host); err != nil {
		return nil, fmt.Errorf("store: patterns for host: %w", err)
	}
	return out, nil
}

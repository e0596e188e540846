package store

import (
	"context"
	"fmt"
	"time"

	"github.com/metabench/hubcrawl/models"
)

// RecordFailedAttempt inserts the single HttpResponse row for a failed or
// non-downloading network attempt (invariant 2: one row per attempt,
// never for cache hits or intentional skips). No ContentStorage is
// created.
func (s *Store) RecordFailedAttempt(ctx context.Context, urlID int64, status int, contentType string, ttfbMs, downloadMs int64) (models.HTTPResponse, error) {
	var r models.HTTPResponse
	const q = `
		INSERT INTO http_responses (url_id, http_status, bytes_downloaded, content_type, ttfb_ms, download_ms, fetched_at)
		VALUES ($1, $2, 0, $3, $4, $5, now())
		RETURNING id, url_id, http_status, bytes_downloaded, content_type, ttfb_ms, download_ms, fetched_at`
	if err := s.db.GetContext(ctx, &r, q, urlID, status, contentType, ttfbMs, downloadMs); err != nil {
		return models.HTTPResponse{}, fmt.Errorf("store: record failed attempt: %w", err)
	}
	return r, nil
}

// RecordSuccessfulDownload persists the HttpResponse + ContentStorage
// atomic pair (invariant 3) in a single transaction. Callers must ensure
// len(body) > 0; this is what ContentStorage's existence is conditioned
// on.
func (s *Store) RecordSuccessfulDownload(ctx context.Context, urlID int64, status int, contentType string, ttfbMs, downloadMs int64, body []byte, compressionKind string) (models.HTTPResponse, models.ContentStorage, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.HTTPResponse{}, models.ContentStorage{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	var resp models.HTTPResponse
	const insertResp = `
		INSERT INTO http_responses (url_id, http_status, bytes_downloaded, content_type, ttfb_ms, download_ms, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, url_id, http_status, bytes_downloaded, content_type, ttfb_ms, download_ms, fetched_at`
	if err := tx.GetContext(ctx, &resp, insertResp, urlID, status, int64(len(body)), contentType, ttfbMs, downloadMs); err != nil {
		return models.HTTPResponse{}, models.ContentStorage{}, fmt.Errorf("store: insert http_response: %w", err)
	}

	var cs models.ContentStorage
	const insertContent = `
		INSERT INTO content_storage (http_response_id, body_bytes, compression_kind)
		VALUES ($1, $2, $3)
		RETURNING id, http_response_id, body_bytes, compression_kind`
	if err := tx.GetContext(ctx, &cs, insertContent, resp.ID, body, compressionKind); err != nil {
		return models.HTTPResponse{}, models.ContentStorage{}, fmt.Errorf("store: insert content_storage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.HTTPResponse{}, models.ContentStorage{}, fmt.Errorf("store: commit: %w", err)
	}
	return resp, cs, nil
}

// VerifiedDownloadCount implements invariant 1/4/testable-property 5:
// the only source of truth for "downloaded N pages" is this count.
func (s *Store) VerifiedDownloadCount(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	const q = `
		SELECT count(*) FROM http_responses
		WHERE http_status = 200 AND bytes_downloaded > 0
		  AND fetched_at >= $1 AND fetched_at < $2`
	if err := s.db.GetContext(ctx, &count, q, start, end); err != nil {
		return 0, fmt.Errorf("store: verified download count: %w", err)
	}
	return count, nil
}

// RangeStats reports verified/failed counts and total bytes in a window,
// backing the /api/downloads/range endpoint.
type RangeStats struct {
	Verified        int64 `db:"verified" json:"verified"`
	Failed          int64 `db:"failed" json:"failed"`
	BytesDownloaded int64 `db:"bytes" json:"bytes"`
}

func (s *Store) RangeStats(ctx context.Context, start, end time.Time) (RangeStats, error) {
	var stats RangeStats
	const q = `
		SELECT
			count(*) FILTER (WHERE http_status = 200 AND bytes_downloaded > 0) AS verified,
			count(*) FILTER (WHERE http_status != 200 OR bytes_downloaded = 0) AS failed,
			coalesce(sum(bytes_downloaded), 0) AS bytes
		FROM http_responses
		WHERE fetched_at >= $1 AND fetched_at < $2`
	if err := s.db.GetContext(ctx, &stats, q, start, end); err != nil {
		if legacyColumnAbsent(err) {
			return RangeStats{}, nil
		}
		return RangeStats{}, fmt.Errorf("store: range stats: %w", err)
	}
	return stats, nil
}

// GlobalDownloadStats backs GET /api/downloads/stats.
type GlobalDownloadStats struct {
	VerifiedDownloads int64 `db:"verified_downloads" json:"verified_downloads"`
	BytesDownloaded   int64 `db:"bytes_downloaded" json:"bytes_downloaded"`
}

func (s *Store) GlobalDownloadStats(ctx context.Context) (GlobalDownloadStats, error) {
	var stats GlobalDownloadStats
	const q = `
		SELECT
			count(*) FILTER (WHERE http_status = 200 AND bytes_downloaded > 0) AS verified_downloads,
			coalesce(sum(bytes_downloaded), 0) AS bytes_downloaded
		FROM http_responses`
	if err := s.db.GetContext(ctx, &stats, q); err != nil {
		return GlobalDownloadStats{}, fmt.Errorf("store: global download stats: %w", err)
	}
	return stats, nil
}

// HostDocCount is one host's verified-download tally, backing the
// count-doc-counts CLI command.
type HostDocCount struct {
	Host     string `db:"host" json:"host"`
	Verified int64  `db:"verified" json:"verified"`
}

// DocCountsByHost groups verified downloads by host, returning only
// hosts at or above threshold, ordered highest first.
func (s *Store) DocCountsByHost(ctx context.Context, threshold int64) ([]HostDocCount, error) {
	const q = `
		SELECT u.host AS host, count(*) AS verified
		FROM http_responses r
		JOIN urls u ON u.id = r.url_id
		WHERE r.http_status = 200 AND r.bytes_downloaded > 0
		GROUP BY u.host
		HAVING count(*) >= $1
		ORDER BY verified DESC`
	var out []HostDocCount
	if err := s.db.SelectContext(ctx, &out, q, threshold); err != nil {
		return nil, fmt.Errorf("store: doc counts by host: %w", err)
	}
	return out, nil
}

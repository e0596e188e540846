package models

import "time"

// HTTPResponse is one network-attempt record (§3). Append-only; never
// created for cache hits or intentionally skipped URLs (invariant 2).
type HTTPResponse struct {
	ID              int64     `db:"id" json:"id"`
	URLID           int64     `db:"url_id" json:"url_id"`
	HTTPStatus      int       `db:"http_status" json:"http_status"`
	BytesDownloaded int64     `db:"bytes_downloaded" json:"bytes_downloaded"`
	ContentType     string    `db:"content_type" json:"content_type"`
	TTFBMs          int64     `db:"ttfb_ms" json:"ttfb_ms"`
	DownloadMs      int64     `db:"download_ms" json:"download_ms"`
	FetchedAt       time.Time `db:"fetched_at" json:"fetched_at"`
}

// VerifiedDownloaded implements invariant 1: "verified downloaded" is
// never inferred from in-memory counters, only from this predicate over
// a persisted row.
func (r HTTPResponse) VerifiedDownloaded() bool {
	return r.HTTPStatus == 200 && r.BytesDownloaded > 0 && !r.FetchedAt.IsZero()
}

// ContentStorage is the byte payload for a successful HttpResponse.
// Append-only, 1-1 with a successful HttpResponse (invariant 3).
type ContentStorage struct {
	ID               int64  `db:"id" json:"id"`
	HTTPResponseID   int64  `db:"http_response_id" json:"http_response_id"`
	BodyBytes        []byte `db:"body_bytes" json:"-"`
	CompressionKind  string `db:"compression_kind" json:"compression_kind"`
}

// FetchSource distinguishes where a PAGE event's bytes came from.
type FetchSource string

const (
	SourceNetwork  FetchSource = "network"
	SourceHeadless FetchSource = "headless"
	SourceCache    FetchSource = "cache"
)

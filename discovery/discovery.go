// Package discovery implements the discovery strategies of §4.I: an
// archive/sitemap probe, a pagination-shape predictor, and a hub seeder
// that turns gazetteer places plus learned URL patterns into candidate
// PlacePageMapping rows.
package discovery

import (
	"context"

	"github.com/metabench/hubcrawl/models"
)

// EventSink reports discovery activity, the same function-type pattern
// used across the other leaf packages.
type EventSink func(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{})

func noopSink(models.EventType, models.Severity, string, map[string]interface{}) {}

// Fetcher is discovery's view of the fetch pipeline: enough to retrieve a
// body for probing without importing package fetch (which itself sits
// above discovery in the dependency graph via the queue it feeds).
type Fetcher interface {
	FetchBody(ctx context.Context, rawURL string) (status int, body []byte, err error)
}

// Admitter is discovery's view of the queue orchestrator (§4.H): enough
// to hand off a discovered URL for dedupe, priority scoring, and
// enqueueing.
type Admitter interface {
	Admit(ctx context.Context, rawURL string, pageNumber int, population int64) (admitted bool, reason string, err error)
}

// Package models holds the data-model entities shared across the crawl
// engine (see spec §3). Entities are plain structs; persistence lives in
// package store, which maps them to Postgres rows.
package models

import "time"

// URL is a discovered/admitted page identity. Unique on Normalized.
// Immutable after creation — the persistence layer never updates a URL
// row once inserted.
type URL struct {
	ID          int64     `db:"id" json:"id"`
	Normalized  string    `db:"normalized" json:"normalized"`
	Host        string    `db:"host" json:"host"`
	Path        string    `db:"path" json:"path"`
	FirstSeenAt time.Time `db:"first_seen_at" json:"first_seen_at"`
}

// URLKind is a coarse classification used for cache tie-break decisions
// (§4.E) and priority scoring (§4.H), distinct from the classification
// cascade's output which is richer (§4.K).
type URLKind string

const (
	URLKindHub     URLKind = "hub"
	URLKindArticle URLKind = "article"
	URLKindOther   URLKind = "other"
)

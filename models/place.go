package models

import "time"

// PageKind enumerates the recognized PlacePageMapping page kinds (§3).
type PageKind string

const (
	PageKindCountryHub PageKind = "country-hub"
	PageKindPlaceHub   PageKind = "place-hub"
	PageKindTopicHub   PageKind = "topic-hub"
)

// MappingStatus is the PlacePageMapping lifecycle state.
type MappingStatus string

const (
	StatusCandidate MappingStatus = "candidate"
	StatusPending   MappingStatus = "pending"
	StatusVerified  MappingStatus = "verified"
)

// Presence records whether a verified mapping's hub actually exists.
type Presence string

const (
	PresencePresent Presence = "present"
	PresenceAbsent  Presence = "absent"
	PresenceNull    Presence = ""
)

// Place is the read-only gazetteer entry this module consumes. Ingestion
// from Wikidata/OSM is out of scope (spec §1) — this is the interface
// boundary only.
type Place struct {
	ID         int64   `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Kind       string  `db:"kind" json:"kind"` // "country", "adm1", "city", ...
	Population int64   `db:"population" json:"population"`
	Slug       string  `db:"slug" json:"slug"`
}

// PlacePageMapping associates a Place with a hub URL on a host (§3).
type PlacePageMapping struct {
	ID                int64         `db:"id" json:"id"`
	PlaceID           int64         `db:"place_id" json:"place_id"`
	Host              string        `db:"host" json:"host"`
	URL               string        `db:"url" json:"url"`
	PageKind          PageKind      `db:"page_kind" json:"page_kind"`
	Status            MappingStatus `db:"status" json:"status"`
	Presence          Presence      `db:"presence" json:"presence"`
	PatternID         *int64        `db:"pattern_id" json:"pattern_id,omitempty"`
	Confidence        float64       `db:"confidence" json:"confidence"`
	MaxPageDepth      int           `db:"max_page_depth" json:"max_page_depth"`
	OldestContentDate *time.Time    `db:"oldest_content_date" json:"oldest_content_date,omitempty"`
	LastDepthCheckAt  *time.Time    `db:"last_depth_check_at" json:"last_depth_check_at,omitempty"`
	DepthCheckError   string        `db:"depth_check_error" json:"depth_check_error,omitempty"`
	VerifiedAt        *time.Time    `db:"verified_at" json:"verified_at,omitempty"`
}

// IsValid enforces invariant 5: presence=present implies status=verified.
func (m PlacePageMapping) IsValid() bool {
	if m.Presence == PresencePresent && m.Status != StatusVerified {
		return false
	}
	return true
}

// SiteURLPattern is a learned template for a host (§3, §4.L).
type SiteURLPattern struct {
	ID            int64   `db:"id" json:"id"`
	Host          string  `db:"host" json:"host"`
	Template      string  `db:"template" json:"template"`
	SampleCount   int     `db:"sample_count" json:"sample_count"`
	VerifiedCount int     `db:"verified_count" json:"verified_count"`
	Accuracy      float64 `db:"accuracy" json:"accuracy"`
}

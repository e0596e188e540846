package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/metabench/hubcrawl/models"
)

// PlaceLookup is discovery's read-only gazetteer view (§4.I hub seeder),
// backed in production by store.ListPlaces.
type PlaceLookup interface {
	ListPlaces(ctx context.Context, kind string) ([]models.Place, error)
}

// PatternSource is discovery's view of learned URL templates (§4.L),
// backed in production by store.PatternsForHost.
type PatternSource interface {
	PatternsForHost(ctx context.Context, host string) ([]models.SiteURLPattern, error)
}

// MappingSink receives the seeder's candidate output, backed in
// production by store.InsertCandidateMapping.
type MappingSink interface {
	InsertCandidateMapping(ctx context.Context, m models.PlacePageMapping) (models.PlacePageMapping, error)
}

// pageKindForTemplate maps a learned template's declared kind token to
// the models.PageKind it should produce. Templates name their kind as
// their first path segment convention, e.g. "place-hub:/{slug}/".
func pageKindForTemplate(template string) models.PageKind {
	switch {
	case strings.HasPrefix(template, "country-hub:"):
		return models.PageKindCountryHub
	case strings.HasPrefix(template, "topic-hub:"):
		return models.PageKindTopicHub
	default:
		return models.PageKindPlaceHub
	}
}

// HubSeeder implements §4.I's hub seeder: it expands gazetteer places
// through a host's learned SiteUrlPatterns into candidate
// PlacePageMapping rows.
type HubSeeder struct {
	places   PlaceLookup
	patterns PatternSource
	mappings MappingSink
	sink     EventSink
}

// NewHubSeeder builds a HubSeeder.
func NewHubSeeder(places PlaceLookup, patterns PatternSource, mappings MappingSink, sink EventSink) *HubSeeder {
	if sink == nil {
		sink = noopSink
	}
	return &HubSeeder{places: places, patterns: patterns, mappings: mappings, sink: sink}
}

// Seed expands every place of kind (empty = all kinds) against host's
// learned patterns, inserting a candidate mapping for each combination.
// It returns the number of candidates created.
func (h *HubSeeder) Seed(ctx context.Context, host, kind string) (int, error) {
	places, err := h.places.ListPlaces(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("discovery: list places: %w", err)
	}
	patterns, err := h.patterns.PatternsForHost(ctx, host)
	if err != nil {
		return 0, fmt.Errorf("discovery: patterns for host %s: %w", host, err)
	}
	if len(patterns) == 0 {
		return 0, nil
	}

	created := 0
	for _, place := range places {
		for _, pattern := range patterns {
			candidateURL := expandTemplate(pattern.Template, host, place.Slug)
			if candidateURL == "" {
				continue
			}
			patternID := pattern.ID
			m := models.PlacePageMapping{
				PlaceID:    place.ID,
				Host:       host,
				URL:        candidateURL,
				PageKind:   pageKindForTemplate(pattern.Template),
				Status:     models.StatusCandidate,
				PatternID:  &patternID,
				Confidence: pattern.Accuracy,
			}
			if _, err := h.mappings.InsertCandidateMapping(ctx, m); err != nil {
				return created, fmt.Errorf("discovery: insert candidate mapping: %w", err)
			}
			created++
		}
	}
	h.sink(models.EventDiscovered, models.SeverityInfo, host, map[string]interface{}{
		"kind":    "hub_seeded",
		"created": created,
	})
	return created, nil
}

// expandTemplate substitutes {slug} in a learned template, e.g.
// "place-hub:/places/{slug}/news" -> "https://host/places/denver/news".
func expandTemplate(template, host, slug string) string {
	idx := strings.Index(template, ":")
	path := template
	if idx >= 0 {
		path = template[idx+1:]
	}
	if !strings.Contains(path, "{slug}") || slug == "" {
		return ""
	}
	path = strings.ReplaceAll(path, "{slug}", slug)
	return "https://" + host + path
}

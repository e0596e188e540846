package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/models"
)

type fakePlaceLookup struct{ places []models.Place }

func (f *fakePlaceLookup) ListPlaces(ctx context.Context, kind string) ([]models.Place, error) {
	return f.places, nil
}

type fakePatternSource struct{ patterns []models.SiteURLPattern }

func (f *fakePatternSource) PatternsForHost(ctx context.Context, host string) ([]models.SiteURLPattern, error) {
	return f.patterns, nil
}

type fakeMappingSink struct{ inserted []models.PlacePageMapping }

func (f *fakeMappingSink) InsertCandidateMapping(ctx context.Context, m models.PlacePageMapping) (models.PlacePageMapping, error) {
	f.inserted = append(f.inserted, m)
	return m, nil
}

func TestSeedExpandsPlacesAcrossPatterns(t *testing.T) {
	places := &fakePlaceLookup{places: []models.Place{
		{ID: 1, Name: "Denver", Slug: "denver", Kind: "city"},
		{ID: 2, Name: "Austin", Slug: "austin", Kind: "city"},
	}}
	patterns := &fakePatternSource{patterns: []models.SiteURLPattern{
		{ID: 10, Host: "example.com", Template: "place-hub:/places/{slug}/news", Accuracy: 0.9},
	}}
	mappings := &fakeMappingSink{}

	seeder := NewHubSeeder(places, patterns, mappings, nil)
	n, err := seeder.Seed(context.Background(), "example.com", "city")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, mappings.inserted, 2)
	assert.Equal(t, "https://example.com/places/denver/news", mappings.inserted[0].URL)
	assert.Equal(t, models.PageKindPlaceHub, mappings.inserted[0].PageKind)
	assert.Equal(t, models.StatusCandidate, mappings.inserted[0].Status)
}

func TestSeedSkipsWhenNoPatternsLearned(t *testing.T) {
	places := &fakePlaceLookup{places: []models.Place{{ID: 1, Slug: "denver"}}}
	patterns := &fakePatternSource{}
	mappings := &fakeMappingSink{}

	seeder := NewHubSeeder(places, patterns, mappings, nil)
	n, err := seeder.Seed(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, mappings.inserted)
}

func TestPageKindForTemplate(t *testing.T) {
	assert.Equal(t, models.PageKindCountryHub, pageKindForTemplate("country-hub:/{slug}"))
	assert.Equal(t, models.PageKindTopicHub, pageKindForTemplate("topic-hub:/{slug}"))
	assert.Equal(t, models.PageKindPlaceHub, pageKindForTemplate("place-hub:/{slug}"))
}

func TestExpandTemplateRequiresSlugPlaceholder(t *testing.T) {
	assert.Equal(t, "", expandTemplate("place-hub:/static-page", "example.com", "denver"))
	assert.Equal(t, "", expandTemplate("place-hub:/{slug}", "example.com", ""))
	assert.Equal(t, "https://example.com/denver", expandTemplate("place-hub:/{slug}", "example.com", "denver"))
}

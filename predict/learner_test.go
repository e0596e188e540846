package predict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/models"
)

type fakePatternStore struct {
	upserted []models.SiteURLPattern
	err      error
}

func (f *fakePatternStore) UpsertSiteURLPattern(ctx context.Context, p models.SiteURLPattern) (models.SiteURLPattern, error) {
	if f.err != nil {
		return models.SiteURLPattern{}, f.err
	}
	p.ID = int64(len(f.upserted) + 1)
	f.upserted = append(f.upserted, p)
	return p, nil
}

func TestLearnHostUpsertsGroupsMeetingSampleThreshold(t *testing.T) {
	store := &fakePatternStore{}
	l := NewLearner(store, 3)

	urls := []VerifiedURL{
		{URLID: 1, Path: "/2026/01/first-long-article-slug-here", Classification: models.ClassArticle},
		{URLID: 2, Path: "/2026/02/second-long-article-slug-here", Classification: models.ClassArticle},
		{URLID: 3, Path: "/2026/03/third-long-article-slug-here", Classification: models.ClassArticle},
		{URLID: 4, Path: "/category/news", Classification: models.ClassHub},
	}

	patterns, err := l.LearnHost(context.Background(), "example.com", urls)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "example.com", patterns[0].Host)
	assert.Equal(t, 3, patterns[0].SampleCount)
	assert.Equal(t, 3, patterns[0].VerifiedCount)
	assert.Equal(t, 1.0, patterns[0].Accuracy)
	assert.Equal(t, `article:^/\d{4}/\d{1,2}/[a-z0-9-]+$`, patterns[0].Template)
}

func TestLearnHostSkipsGroupsBelowMinSamples(t *testing.T) {
	store := &fakePatternStore{}
	l := NewLearner(store, 3)

	urls := []VerifiedURL{
		{URLID: 1, Path: "/category/news", Classification: models.ClassHub},
		{URLID: 2, Path: "/category/sport", Classification: models.ClassHub},
	}

	patterns, err := l.LearnHost(context.Background(), "example.com", urls)
	require.NoError(t, err)
	assert.Empty(t, patterns)
	assert.Empty(t, store.upserted)
}

func TestLearnHostComputesAccuracyFromDominantClass(t *testing.T) {
	store := &fakePatternStore{}
	l := NewLearner(store, 3)

	urls := []VerifiedURL{
		{URLID: 1, Path: "/category/first-really-long-slug-segment-one", Classification: models.ClassHub},
		{URLID: 2, Path: "/category/first-really-long-slug-segment-two", Classification: models.ClassHub},
		{URLID: 3, Path: "/category/first-really-long-slug-segment-three", Classification: models.ClassHub},
		{URLID: 4, Path: "/category/first-really-long-slug-segment-four", Classification: models.ClassArticle},
	}

	patterns, err := l.LearnHost(context.Background(), "example.com", urls)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 4, patterns[0].SampleCount)
	assert.InDelta(t, 0.75, patterns[0].Accuracy, 0.001)
	assert.Equal(t, "hub:^/category/[a-z0-9-]+$", patterns[0].Template)
}

func TestNewLearnerDefaultsMinSamplesWhenNonPositive(t *testing.T) {
	l := NewLearner(&fakePatternStore{}, 0)
	assert.Equal(t, 3, l.minSamples)

	l2 := NewLearner(&fakePatternStore{}, -5)
	assert.Equal(t, 3, l2.minSamples)
}

func TestLearnHostPropagatesStoreError(t *testing.T) {
	store := &fakePatternStore{err: assert.AnError}
	l := NewLearner(store, 1)

	urls := []VerifiedURL{
		{URLID: 1, Path: "/category/news", Classification: models.ClassHub},
	}

	_, err := l.LearnHost(context.Background(), "example.com", urls)
	assert.Error(t, err)
}

package predict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/models"
)

type fakePatternSource struct {
	patterns []models.SiteURLPattern
	err      error
}

func (f *fakePatternSource) PatternsForHost(ctx context.Context, host string) ([]models.SiteURLPattern, error) {
	return f.patterns, f.err
}

type fakeVerifiedSource struct {
	urls []VerifiedURL
	err  error
}

func (f *fakeVerifiedSource) VerifiedClassifiedURLsForHost(ctx context.Context, host string) ([]VerifiedURL, error) {
	return f.urls, f.err
}

type fakeDomainProfile struct {
	strength float64
	ok       bool
}

func (f *fakeDomainProfile) ProfileStrength(host string) (float64, bool) {
	return f.strength, f.ok
}

func TestPredictUsesLearnedPatternFirst(t *testing.T) {
	patterns := &fakePatternSource{patterns: []models.SiteURLPattern{
		{Host: "example.com", Template: `article:^/\d{4}/\d{1,2}/[a-z0-9-]+$`, Accuracy: 0.92},
	}}
	p := New(patterns, nil, nil)

	pred, err := p.Predict(context.Background(), "example.com", "/2026/07/some-long-article-slug-text")
	require.NoError(t, err)
	assert.Equal(t, models.ClassArticle, pred.Class)
	assert.Equal(t, 0.92, pred.Confidence)
	assert.Equal(t, models.SourceLearnedPattern, pred.Source)
}

func TestPredictFallsBackToSimilarURLWhenNoPatternMatches(t *testing.T) {
	patterns := &fakePatternSource{}
	verified := &fakeVerifiedSource{urls: []VerifiedURL{
		{URLID: 7, Path: "/2025/01/another-long-article-slug-text", Classification: models.ClassArticle},
	}}
	p := New(patterns, verified, nil)

	pred, err := p.Predict(context.Background(), "example.com", "/2026/07/some-long-article-slug-text")
	require.NoError(t, err)
	assert.Equal(t, models.ClassArticle, pred.Class)
	assert.Equal(t, models.SourceSimilarURL, pred.Source)
	assert.InDelta(t, 0.7, pred.Confidence, 0.01)
	require.NotNil(t, pred.SimilarURLID)
	assert.Equal(t, int64(7), *pred.SimilarURLID)
}

func TestPredictFallsBackToDomainProfileWhenNoSimilarURL(t *testing.T) {
	patterns := &fakePatternSource{}
	verified := &fakeVerifiedSource{}
	profile := &fakeDomainProfile{strength: 0.5, ok: true}
	p := New(patterns, verified, profile)

	pred, err := p.Predict(context.Background(), "example.com", "/about")
	require.NoError(t, err)
	assert.Equal(t, models.SourceDomainProfile, pred.Source)
	assert.Equal(t, 0.5, pred.Confidence)
}

func TestPredictFallsBackToURLSignalsAsLastResort(t *testing.T) {
	p := New(&fakePatternSource{}, &fakeVerifiedSource{}, nil)

	pred, err := p.Predict(context.Background(), "example.com", "/category/local-news")
	require.NoError(t, err)
	assert.Equal(t, models.SourceURLSignals, pred.Source)
	assert.Equal(t, models.ClassHub, pred.Class)
	assert.LessOrEqual(t, pred.Confidence, 0.45)
}

func TestPredictPropagatesPatternSourceError(t *testing.T) {
	patterns := &fakePatternSource{err: assert.AnError}
	p := New(patterns, nil, nil)

	_, err := p.Predict(context.Background(), "example.com", "/x")
	assert.Error(t, err)
}

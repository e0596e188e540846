package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/config"
)

type fakeAdmitter struct {
	admitted []string
	err      error
}

func (f *fakeAdmitter) Admit(ctx context.Context, rawURL string, pageNumber int, population int64) (bool, string, error) {
	if f.err != nil {
		return false, "", f.err
	}
	f.admitted = append(f.admitted, rawURL)
	return true, "", nil
}

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		MaxSpeculativePages:  3,
		PaginationPatternTTL: 0, // Observe falls back to a one-hour TTL
	}
}

func TestMatchShapeRecognizesQueryPage(t *testing.T) {
	shape, n, ok := matchShape("https://example.com/news?page=5")
	require.True(t, ok)
	assert.Equal(t, "query_page", shape.name)
	assert.Equal(t, 5, n)
}

func TestMatchShapeRecognizesPathPage(t *testing.T) {
	shape, n, ok := matchShape("https://example.com/news/page/3/")
	require.True(t, ok)
	assert.Equal(t, "path_page", shape.name)
	assert.Equal(t, 3, n)
}

func TestMatchShapeNoMatch(t *testing.T) {
	_, _, ok := matchShape("https://example.com/news/article-title")
	assert.False(t, ok)
}

func TestObserveSpeculativelyEnqueuesNextPages(t *testing.T) {
	admitter := &fakeAdmitter{}
	pp := NewPaginationPredictor(testDiscoveryConfig(), admitter, nil)

	err := pp.Observe(context.Background(), "example.com", "https://example.com/news?page=2")
	require.NoError(t, err)

	assert.Len(t, admitter.admitted, 3)
	assert.Equal(t, "https://example.com/news?page=3", admitter.admitted[0])
	assert.Equal(t, "https://example.com/news?page=4", admitter.admitted[1])
	assert.Equal(t, "https://example.com/news?page=5", admitter.admitted[2])
}

func TestObserveTracksMaxObservedAcrossCalls(t *testing.T) {
	admitter := &fakeAdmitter{}
	pp := NewPaginationPredictor(testDiscoveryConfig(), admitter, nil)

	require.NoError(t, pp.Observe(context.Background(), "example.com", "https://example.com/news?page=2"))
	admitter.admitted = nil
	require.NoError(t, pp.Observe(context.Background(), "example.com", "https://example.com/news?page=1"))

	// page=1 observed after page=2: max stays 2, speculation still from 2.
	assert.Equal(t, "https://example.com/news?page=3", admitter.admitted[0])
}

func TestMarkExhaustedStopsFurtherSpeculation(t *testing.T) {
	admitter := &fakeAdmitter{}
	pp := NewPaginationPredictor(testDiscoveryConfig(), admitter, nil)

	require.NoError(t, pp.Observe(context.Background(), "example.com", "https://example.com/news?page=2"))
	pp.MarkExhausted("example.com", "https://example.com/news?page=5")

	admitter.admitted = nil
	require.NoError(t, pp.Observe(context.Background(), "example.com", "https://example.com/news?page=2"))
	assert.Empty(t, admitter.admitted)
}

func TestAppendQueryReplacesExistingParam(t *testing.T) {
	got := appendQuery("https://example.com/news?page=2&x=1", "page", 9)
	assert.Equal(t, "https://example.com/news?page=9&x=1", got)
}

func TestAppendQueryAddsParamWhenAbsent(t *testing.T) {
	got := appendQuery("https://example.com/news", "offset", 20)
	assert.Equal(t, "https://example.com/news?offset=20", got)
}

func TestReplacePathNumSubstitutesSegment(t *testing.T) {
	got := replacePathNum("https://example.com/news/page/2/", "/page/", 7)
	assert.Equal(t, "https://example.com/news/page/7/", got)
}

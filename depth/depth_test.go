package depth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/config"
)

type fakePageFetcher struct {
	pages map[int]fakePage
	max   int
}

type fakePage struct {
	status int
	body   string
}

func (f *fakePageFetcher) FetchPage(ctx context.Context, rawURL string) (int, string, []byte, error) {
	var n int
	fmt.Sscanf(rawURL, "https://example.com/news?page=%d", &n)
	p, ok := f.pages[n]
	if !ok {
		if n > f.max {
			return 404, rawURL, nil, nil
		}
		p = f.pages[f.max]
	}
	return p.status, rawURL, []byte(p.body), nil
}

func articlePage(dateISO string, n int) string {
	return fmt.Sprintf(`<html><body>
		<time datetime="%s"></time>
		<a href="/articles/%d-a">a</a>
		<a href="/articles/%d-b">b</a>
	</body></html>`, dateISO, n, n)
}

func buildFetcher(maxGoodPage int) *fakePageFetcher {
	pages := make(map[int]fakePage)
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for n := 1; n <= maxGoodPage; n++ {
		date := base.AddDate(0, 0, -n) // each page one day older than the last
		pages[n] = fakePage{status: 200, body: articlePage(date.Format(time.RFC3339), n)}
	}
	return &fakePageFetcher{pages: pages, max: maxGoodPage}
}

func testPageURL(n int) string {
	return fmt.Sprintf("https://example.com/news?page=%d", n)
}

func TestProbeFindsExactMaxDepthViaExponentialAndBinarySearch(t *testing.T) {
	fetcher := buildFetcher(13)
	cfg := config.DepthConfig{MaxPagesPerHub: 200, SimhashDistance: 3, TimeTravelWindow: 168 * time.Hour}
	p := New(cfg, fetcher, nil)
	p.sleep = func(time.Duration) {}

	result := p.Probe(context.Background(), "example.com", testPageURL)
	require.Empty(t, result.Err)
	assert.Equal(t, 13, result.MaxPageDepth)
}

func TestProbeDetects404AsBad(t *testing.T) {
	fetcher := buildFetcher(3)
	cfg := config.DepthConfig{MaxPagesPerHub: 200, SimhashDistance: 3, TimeTravelWindow: 168 * time.Hour}
	p := New(cfg, fetcher, nil)
	p.sleep = func(time.Duration) {}

	result := p.Probe(context.Background(), "example.com", testPageURL)
	require.Empty(t, result.Err)
	assert.Equal(t, 3, result.MaxPageDepth)
}

func TestProbeErrorsWhenPage1HasNoArticles(t *testing.T) {
	fetcher := &fakePageFetcher{pages: map[int]fakePage{1: {status: 200, body: "<html><body>empty</body></html>"}}, max: 1}
	p := New(config.DepthConfig{}, fetcher, nil)
	p.sleep = func(time.Duration) {}

	result := p.Probe(context.Background(), "example.com", testPageURL)
	assert.NotEmpty(t, result.Err)
}

func TestIsBadDetectsLoopbackByFinalURL(t *testing.T) {
	p := New(config.DepthConfig{}, nil, nil)
	page1 := PageSample{FinalURL: "https://example.com/news", HasArticles: true}
	sample := PageSample{FinalURL: "https://example.com/news", HasArticles: true, Status: 200}
	assert.True(t, p.isBad(sample, page1, page1))
}

func TestIsBadDetectsTimeTravelWraparound(t *testing.T) {
	cfg := config.DepthConfig{TimeTravelWindow: 7 * 24 * time.Hour}
	p := New(cfg, nil, nil)
	previousGood := PageSample{OldestDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), HasArticles: true}
	sample := PageSample{
		OldestDate:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		HasArticles: true,
		Status:      200,
		Fingerprint: 12345,
	}
	page1 := PageSample{Fingerprint: 99999}
	assert.True(t, p.isBad(sample, page1, previousGood))
}

func TestIsBadAcceptsGoodPage(t *testing.T) {
	cfg := config.DepthConfig{TimeTravelWindow: 7 * 24 * time.Hour}
	p := New(cfg, nil, nil)
	previousGood := PageSample{OldestDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), HasArticles: true, Fingerprint: 111}
	sample := PageSample{
		OldestDate:  time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
		HasArticles: true,
		Status:      200,
		Fingerprint: 222,
	}
	page1 := PageSample{Fingerprint: 999}
	assert.False(t, p.isBad(sample, page1, previousGood))
}

func TestProbeWithAllFallbackRetriesOnEmptyFirstPage(t *testing.T) {
	emptyFetcher := &fakePageFetcher{pages: map[int]fakePage{1: {status: 200, body: "<html></html>"}}, max: 1}
	p := New(config.DepthConfig{}, emptyFetcher, nil)
	p.sleep = func(time.Duration) {}

	allPageURL := func(n int) string { return fmt.Sprintf("https://example.com/news/all?page=%d", n) }
	result := p.ProbeWithAllFallback(context.Background(), "example.com", testPageURL, allPageURL)
	assert.NotEmpty(t, result.Err)
}

// loopbackPageFetcher serves the same body regardless of the requested
// page number, simulating a "section" page that ignores ?page=N.
type loopbackPageFetcher struct{ body string }

func (f *loopbackPageFetcher) FetchPage(ctx context.Context, rawURL string) (int, string, []byte, error) {
	return 200, rawURL, []byte(f.body), nil
}

func TestProbeDetectsPageTwoLoopbackDistinctFromEmptyPageOne(t *testing.T) {
	fetcher := &loopbackPageFetcher{body: articlePage("2026-07-01T00:00:00Z", 1)}
	p := New(config.DepthConfig{SimhashDistance: 3}, fetcher, nil)
	p.sleep = func(time.Duration) {}

	result := p.Probe(context.Background(), "example.com", testPageURL)
	assert.NotEmpty(t, result.Err)
	assert.Contains(t, result.Err, "page 2 identical to page 1")
}

func TestProbeWithAllFallbackRetriesOnPageTwoLoopback(t *testing.T) {
	fetcher := &loopbackPageFetcher{body: articlePage("2026-07-01T00:00:00Z", 1)}
	p := New(config.DepthConfig{SimhashDistance: 3}, fetcher, nil)
	p.sleep = func(time.Duration) {}

	allPageURL := func(n int) string { return fmt.Sprintf("https://example.com/news/all?page=%d", n) }
	result := p.ProbeWithAllFallback(context.Background(), "example.com", testPageURL, allPageURL)
	assert.NotEmpty(t, result.Err)
}

func TestIsLoopbackDetectsSimhashCollision(t *testing.T) {
	p := New(config.DepthConfig{SimhashDistance: 3}, nil, nil)
	page1 := PageSample{FinalURL: "https://example.com/news?page=1", Fingerprint: 12345}
	page2 := PageSample{FinalURL: "https://example.com/news?page=2", Fingerprint: 12345}
	assert.True(t, p.isLoopback(page2, page1))
}

func TestIsLoopbackAcceptsDistinctPages(t *testing.T) {
	p := New(config.DepthConfig{SimhashDistance: 3}, nil, nil)
	page1 := PageSample{FinalURL: "https://example.com/news?page=1", Fingerprint: 0}
	page2 := PageSample{FinalURL: "https://example.com/news?page=2", Fingerprint: 0xFFFFFFFFFFFFFFFF}
	assert.False(t, p.isLoopback(page2, page1))
}

func TestEffectiveMaxPagesDefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, 200, effectiveMaxPages(config.DepthConfig{}))
	assert.Equal(t, 50, effectiveMaxPages(config.DepthConfig{MaxPagesPerHub: 50}))
}

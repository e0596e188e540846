package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/config"
)

type fakeFetcher struct {
	responses map[string]struct {
		status int
		body   []byte
	}
}

func (f *fakeFetcher) FetchBody(ctx context.Context, rawURL string) (int, []byte, error) {
	r, ok := f.responses[rawURL]
	if !ok {
		return 404, nil, nil
	}
	return r.status, r.body, nil
}

func TestShouldProbeRespectsCooldown(t *testing.T) {
	cfg := config.DiscoveryConfig{ArchiveProbeCooldown: time.Hour, ArchiveProbeQueueThreshold: 10}
	depthOf := func(ctx context.Context, host string) (int64, error) { return 0, nil }
	p := NewArchiveProbe(cfg, &fakeFetcher{}, &fakeAdmitter{}, depthOf, nil)

	ok, err := p.ShouldProbe(context.Background(), "example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Probe(context.Background(), "https", "example.com", time.Now()))

	ok, err = p.ShouldProbe(context.Background(), "example.com")
	require.NoError(t, err)
	assert.False(t, ok, "probe just ran, cooldown should block a second one")
}

func TestShouldProbeRespectsQueueDepthThreshold(t *testing.T) {
	cfg := config.DiscoveryConfig{ArchiveProbeCooldown: time.Hour, ArchiveProbeQueueThreshold: 10}
	depthOf := func(ctx context.Context, host string) (int64, error) { return 50, nil }
	p := NewArchiveProbe(cfg, &fakeFetcher{}, &fakeAdmitter{}, depthOf, nil)

	ok, err := p.ShouldProbe(context.Background(), "example.com")
	require.NoError(t, err)
	assert.False(t, ok, "queue depth above threshold should block a probe")
}

func TestCandidatePathsIncludesFixedAndDatePatternedPaths(t *testing.T) {
	cfg := config.DiscoveryConfig{MaxYearsBack: 1}
	p := NewArchiveProbe(cfg, &fakeFetcher{}, &fakeAdmitter{}, nil, nil)

	paths := p.candidatePaths(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, paths, "/archive")
	assert.Contains(t, paths, "/sitemap.xml")
	assert.Contains(t, paths, "/2026/")
	assert.Contains(t, paths, "/2026/07/")
	assert.Contains(t, paths, "/2025/")
}

func TestIngestSitemapAdmitsURLsAndRecursesIntoNestedSitemaps(t *testing.T) {
	admitter := &fakeAdmitter{}
	nested := []byte(`<?xml version="1.0"?><urlset><url><loc>https://example.com/a</loc></url></urlset>`)
	fetcher := &fakeFetcher{responses: map[string]struct {
		status int
		body   []byte
	}{
		"https://example.com/sitemap-nested.xml": {200, nested},
	}}
	p := NewArchiveProbe(config.DiscoveryConfig{}, fetcher, admitter, nil, nil)

	index := []byte(`<?xml version="1.0"?><sitemapindex><sitemap><loc>https://example.com/sitemap-nested.xml</loc></sitemap></sitemapindex>`)
	n, err := p.ingestSitemap(context.Background(), "https://example.com/sitemap.xml", index, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"https://example.com/a"}, admitter.admitted)
}

func TestIngestHTMLAdmitsOnlySameHostLinks(t *testing.T) {
	admitter := &fakeAdmitter{}
	p := NewArchiveProbe(config.DiscoveryConfig{}, &fakeFetcher{}, admitter, nil, nil)

	body := []byte(`<html><body>
		<a href="/news/1">one</a>
		<a href="https://other.com/x">external</a>
	</body></html>`)
	n, err := p.ingestHTML(context.Background(), "https://example.com/archive", body)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"https://example.com/news/1"}, admitter.admitted)
}

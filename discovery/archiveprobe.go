package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/models"
)

// ArchiveProbe implements §4.I's archive/sitemap probe: cooldown- and
// queue-depth-gated discovery of a host's archive, sitemap, and
// date-patterned paths.
type ArchiveProbe struct {
	cfg      config.DiscoveryConfig
	fetcher  Fetcher
	admitter Admitter
	depthOf  func(ctx context.Context, host string) (int64, error)
	sink     EventSink

	mu          sync.Mutex
	lastProbeAt map[string]time.Time
}

// NewArchiveProbe builds an ArchiveProbe. depthOf reports a host's
// current queue depth (normally store.QueueDepth).
func NewArchiveProbe(cfg config.DiscoveryConfig, fetcher Fetcher, admitter Admitter, depthOf func(ctx context.Context, host string) (int64, error), sink EventSink) *ArchiveProbe {
	if sink == nil {
		sink = noopSink
	}
	return &ArchiveProbe{
		cfg:         cfg,
		fetcher:     fetcher,
		admitter:    admitter,
		depthOf:     depthOf,
		sink:        sink,
		lastProbeAt: make(map[string]time.Time),
	}
}

// ShouldProbe reports whether host is due for an archive probe: its
// cooldown has elapsed and its queue depth has fallen below threshold.
func (p *ArchiveProbe) ShouldProbe(ctx context.Context, host string) (bool, error) {
	p.mu.Lock()
	last, seen := p.lastProbeAt[host]
	p.mu.Unlock()
	if seen && time.Since(last) < p.cfg.ArchiveProbeCooldown {
		return false, nil
	}
	depth, err := p.depthOf(ctx, host)
	if err != nil {
		return false, fmt.Errorf("discovery: queue depth for %s: %w", host, err)
	}
	return depth < p.cfg.ArchiveProbeQueueThreshold, nil
}

// candidatePaths returns the fixed archive/sitemap paths plus
// date-patterned archive paths for up to MaxYearsBack years, per §4.I.
func (p *ArchiveProbe) candidatePaths(now time.Time) []string {
	paths := []string{
		"/archive",
		"/sitemap.xml",
		"/sitemap-news.xml",
		"/robots.txt",
		"/archive/archive",
		"/blog/archive",
	}
	maxYears := p.cfg.MaxYearsBack
	if maxYears <= 0 {
		maxYears = 2
	}
	for y := 0; y <= maxYears; y++ {
		year := now.AddDate(-y, 0, 0).Year()
		paths = append(paths, fmt.Sprintf("/%d/", year))
		for m := 1; m <= 12; m++ {
			paths = append(paths, fmt.Sprintf("/%d/%02d/", year, m))
		}
	}
	return paths
}

// Probe fetches every candidate path for host, admitting every
// discovered link and recursing into nested sitemaps.
func (p *ArchiveProbe) Probe(ctx context.Context, scheme, host string, now time.Time) error {
	p.mu.Lock()
	p.lastProbeAt[host] = now
	p.mu.Unlock()

	base := scheme + "://" + host
	admitted := 0
	for _, path := range p.candidatePaths(now) {
		target := base + path
		status, body, err := p.fetcher.FetchBody(ctx, target)
		if err != nil || status == 404 || len(body) == 0 {
			continue
		}
		n, perr := p.ingest(ctx, target, body)
		if perr != nil {
			continue
		}
		admitted += n
	}
	p.sink(models.EventDiscovered, models.SeverityInfo, host, map[string]interface{}{
		"kind":     "archive_probe",
		"admitted": admitted,
	})
	return nil
}

// ingest dispatches body to the sitemap or HTML link extractor based on
// its content, admitting every link it finds.
func (p *ArchiveProbe) ingest(ctx context.Context, sourceURL string, body []byte) (int, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "<?xml") || strings.Contains(trimmed, "<urlset") || strings.Contains(trimmed, "<sitemapindex") {
		return p.ingestSitemap(ctx, sourceURL, body, 0)
	}
	return p.ingestHTML(ctx, sourceURL, body)
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// ingestSitemap recursively parses nested sitemap indexes (§4.I "parses
// nested sitemaps recursively"), bounded to a shallow depth to avoid
// pathological recursion on a malicious or misconfigured sitemap chain.
func (p *ArchiveProbe) ingestSitemap(ctx context.Context, sourceURL string, body []byte, depth int) (int, error) {
	if depth > 3 {
		return 0, nil
	}
	var parsed sitemapURLSet
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("discovery: parse sitemap %s: %w", sourceURL, err)
	}
	admitted := 0
	for _, u := range parsed.URLs {
		if u.Loc == "" {
			continue
		}
		ok, _, err := p.admitter.Admit(ctx, u.Loc, 0, 0)
		if err == nil && ok {
			admitted++
		}
	}
	for _, s := range parsed.Sitemaps {
		if s.Loc == "" {
			continue
		}
		status, nested, err := p.fetcher.FetchBody(ctx, s.Loc)
		if err != nil || status == 404 || len(nested) == 0 {
			continue
		}
		n, _ := p.ingestSitemap(ctx, s.Loc, nested, depth+1)
		admitted += n
	}
	return admitted, nil
}

// ingestHTML extracts <a href> links from an archive index page and
// admits the ones that resolve to the same host.
func (p *ArchiveProbe) ingestHTML(ctx context.Context, sourceURL string, body []byte) (int, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return 0, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return 0, fmt.Errorf("discovery: parse html %s: %w", sourceURL, err)
	}
	admitted := 0
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil || resolved.Host != base.Host {
			return
		}
		ok2, _, err := p.admitter.Admit(ctx, resolved.String(), 0, 0)
		if err == nil && ok2 {
			admitted++
		}
	})
	return admitted, nil
}

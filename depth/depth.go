// Package depth implements the hub depth prober (§4.J): given a verified
// hub URL, it determines the maximum valid paginated page via
// exponential-then-binary search, guarding against loopback and
// time-travel wraparound, and records the result on the mapping.
package depth

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/models"
	"github.com/metabench/hubcrawl/simhash"
)

// EventSink reports probe activity, the same function-type pattern used
// across the other leaf packages.
type EventSink func(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{})

func noopSink(models.EventType, models.Severity, string, map[string]interface{}) {}

// Fetcher is depth's view of the fetch pipeline: a single synchronous
// GET with the raw status, final URL (for loopback-by-redirect
// detection), and body.
type Fetcher interface {
	FetchPage(ctx context.Context, rawURL string) (status int, finalURL string, body []byte, err error)
}

// PageSample is one fetched candidate page's parsed signal.
type PageSample struct {
	Status      int
	FinalURL    string
	Body        []byte
	ArticleURLs []string
	OldestDate  time.Time
	NewestDate  time.Time
	Fingerprint uint64
	HasArticles bool
}

// Prober implements the exponential+binary search hub depth algorithm.
type Prober struct {
	cfg     config.DepthConfig
	fetcher Fetcher
	sleep   func(time.Duration)
	sink    EventSink
}

// New builds a Prober.
func New(cfg config.DepthConfig, fetcher Fetcher, sink EventSink) *Prober {
	if sink == nil {
		sink = noopSink
	}
	return &Prober{cfg: cfg, fetcher: fetcher, sleep: time.Sleep, sink: sink}
}

// Result is the depth prober's outcome for one hub (§4.J step 5).
type Result struct {
	MaxPageDepth      int
	OldestContentDate time.Time
	Err               string
}

// ProbeWithAllFallback runs Probe with pageURL and retries once with an
// /all-prefixed variant of the shape (§4.J note) whenever that first Probe
// returns an error. The cases this targets are (a) page 1 itself has no
// articles, or (b) page 2's fetch comes back with content identical to
// page 1's — both signal a "section" page that ignores ?page=N until the
// alternate shape is used; a failed page-1 or page-2 fetch also triggers
// the retry.
func (p *Prober) ProbeWithAllFallback(ctx context.Context, host string, pageURL, allPageURL func(n int) string) Result {
	result := p.Probe(ctx, host, pageURL)
	if result.Err == "" || allPageURL == nil {
		return result
	}
	return p.Probe(ctx, host, allPageURL)
}

// Probe runs the full algorithm for a hub URL whose pagination shape is
// built by pageURL(n). pageURL(1) must equal the hub's own first page.
func (p *Prober) Probe(ctx context.Context, host string, pageURL func(n int) string) Result {
	page1, err := p.fetch(ctx, pageURL(1))
	if err != nil {
		return Result{Err: err.Error()}
	}
	if !page1.HasArticles {
		return Result{Err: "depth: page 1 has no articles"}
	}

	p.wait()
	page2, err := p.fetch(ctx, pageURL(2))
	if err != nil {
		return Result{Err: err.Error()}
	}
	if p.isLoopback(page2, page1) {
		// ?page=2 served page 1's content verbatim: this pagination shape
		// is ignored by the site, detected by comparing page 2's final
		// URL/fingerprint against page 1's (§4.J note), not by page 1's
		// own article count.
		return Result{Err: "depth: page 2 identical to page 1, pagination ignored"}
	}

	lastGood := 1
	lastGoodSample := page1
	bad := 0
	found := false

	if p.isBad(page2, page1, lastGoodSample) {
		bad = 2
		found = true
	} else {
		lastGood = 2
		lastGoodSample = page2
	}

	for step := 4; !found && step <= effectiveMaxPages(p.cfg); step *= 2 {
		p.wait()
		sample, err := p.fetch(ctx, pageURL(step))
		if err != nil {
			bad = step
			found = true
			break
		}
		if p.isBad(sample, page1, lastGoodSample) {
			bad = step
			found = true
			break
		}
		lastGood = step
		lastGoodSample = sample
	}

	if !found {
		// Never hit a bad page within MaxPagesPerHub: treat the ceiling
		// itself as the boundary.
		bad = effectiveMaxPages(p.cfg) + 1
	}

	maxGood, goodSample, err := p.binarySearch(ctx, pageURL, page1, lastGood, lastGoodSample, bad)
	if err != nil {
		return Result{Err: err.Error()}
	}

	p.sink(models.EventHubDepthProbed, models.SeverityInfo, host, map[string]interface{}{
		"max_page_depth": maxGood,
	})
	return Result{MaxPageDepth: maxGood, OldestContentDate: goodSample.OldestDate}
}

// isLoopback implements the /all-fallback trigger itself: a page-2 fetch
// whose final URL or simhash fingerprint matches page 1's means the site
// served the same page back, independent of whether that page happens to
// have articles on it.
func (p *Prober) isLoopback(page2, page1 PageSample) bool {
	if page2.FinalURL != "" && page2.FinalURL == page1.FinalURL {
		return true
	}
	distance := p.cfg.SimhashDistance
	if distance <= 0 {
		distance = 3
	}
	return simhash.Similar(page2.Fingerprint, page1.Fingerprint, distance)
}

// binarySearch collapses [lastGood, bad) to the highest still-good page.
func (p *Prober) binarySearch(ctx context.Context, pageURL func(n int) string, page1Sample PageSample, lastGood int, lastGoodSample PageSample, bad int) (int, PageSample, error) {
	lo, hi := lastGood, bad
	best := lastGood
	bestSample := lastGoodSample
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		p.wait()
		sample, err := p.fetch(ctx, pageURL(mid))
		if err != nil || p.isBad(sample, page1Sample, bestSample) {
			hi = mid
			continue
		}
		lo = mid
		best = mid
		bestSample = sample
	}
	return best, bestSample, nil
}

// isBad implements §4.J step 3: 404, no articles, loopback by URL or
// simhash, or a time-travel wraparound relative to the previous good
// page.
func (p *Prober) isBad(sample, page1Sample, previousGood PageSample) bool {
	if sample.Status == 404 {
		return true
	}
	if !sample.HasArticles {
		return true
	}
	if sample.FinalURL != "" && sample.FinalURL == page1Sample.FinalURL {
		return true
	}
	distance := p.cfg.SimhashDistance
	if distance <= 0 {
		distance = 3
	}
	if simhash.Similar(sample.Fingerprint, page1Sample.Fingerprint, distance) {
		return true
	}
	if !previousGood.OldestDate.IsZero() && !sample.OldestDate.IsZero() {
		window := p.cfg.TimeTravelWindow
		if window <= 0 {
			window = 168 * time.Hour
		}
		if sample.OldestDate.Sub(previousGood.OldestDate) > window {
			return true
		}
	}
	return false
}

func (p *Prober) wait() {
	delay := p.cfg.ProbeDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	p.sleep(delay)
}

func effectiveMaxPages(cfg config.DepthConfig) int {
	if cfg.MaxPagesPerHub <= 0 {
		return 200
	}
	return cfg.MaxPagesPerHub
}

func (p *Prober) fetch(ctx context.Context, rawURL string) (PageSample, error) {
	status, finalURL, body, err := p.fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		return PageSample{}, err
	}
	sample := parseSample(status, finalURL, body)
	return sample, nil
}

func parseSample(status int, finalURL string, body []byte) PageSample {
	sample := PageSample{Status: status, FinalURL: finalURL, Body: body}
	if len(body) == 0 {
		return sample
	}
	sample.Fingerprint = simhash.FingerprintDOM(string(body))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return sample
	}
	var dates []time.Time
	doc.Find("time[datetime]").Each(func(_ int, s *goquery.Selection) {
		v, ok := s.Attr("datetime")
		if !ok {
			return
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			dates = append(dates, t)
		}
	})
	doc.Find(`meta[property="article:published_time"]`).Each(func(_ int, s *goquery.Selection) {
		v, ok := s.Attr("content")
		if !ok {
			return
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			dates = append(dates, t)
		}
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if ok && href != "" {
			sample.ArticleURLs = append(sample.ArticleURLs, href)
		}
	})
	sample.HasArticles = len(sample.ArticleURLs) > 0
	// Fingerprint the page's link set rather than its tag structure: every
	// page of one hub shares the same markup, while a loopback serves
	// page 1's links again.
	sample.Fingerprint = simhash.Fingerprint(strings.Join(sample.ArticleURLs, " "))
	if len(dates) > 0 {
		oldest, newest := dates[0], dates[0]
		for _, d := range dates[1:] {
			if d.Before(oldest) {
				oldest = d
			}
			if d.After(newest) {
				newest = d
			}
		}
		sample.OldestDate = oldest
		sample.NewestDate = newest
	}
	return sample
}

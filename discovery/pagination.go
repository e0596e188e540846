package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/models"
)

// paginationShape is one recognized pagination URL shape (§4.I).
type paginationShape struct {
	name    string
	pattern *regexp.Regexp
	build   func(base string, n int) string
}

var paginationShapes = []paginationShape{
	{"query_page", regexp.MustCompile(`[?&]page=(\d+)`), func(base string, n int) string { return appendQuery(base, "page", n) }},
	{"path_page", regexp.MustCompile(`/page/(\d+)(?:/|$)`), func(base string, n int) string { return replacePathNum(base, "/page/", n) }},
	{"query_offset", regexp.MustCompile(`[?&]offset=(\d+)`), func(base string, n int) string { return appendQuery(base, "offset", n) }},
	{"query_paged", regexp.MustCompile(`[?&]paged=(\d+)`), func(base string, n int) string { return appendQuery(base, "paged", n) }},
	{"path_p", regexp.MustCompile(`/p/(\d+)(?:/|$)`), func(base string, n int) string { return replacePathNum(base, "/p/", n) }},
	{"path_pg", regexp.MustCompile(`/pg/(\d+)(?:/|$)`), func(base string, n int) string { return replacePathNum(base, "/pg/", n) }},
}

func appendQuery(base, key string, n int) string {
	sep := "?"
	if regexp.MustCompile(`\?`).MatchString(base) {
		sep = "&"
	}
	re := regexp.MustCompile(`([?&])` + key + `=\d+`)
	if re.MatchString(base) {
		return re.ReplaceAllString(base, "${1}"+key+"="+strconv.Itoa(n))
	}
	return base + sep + key + "=" + strconv.Itoa(n)
}

func replacePathNum(base, prefix string, n int) string {
	re := regexp.MustCompile(regexp.QuoteMeta(prefix) + `\d+`)
	if re.MatchString(base) {
		return re.ReplaceAllString(base, prefix+strconv.Itoa(n))
	}
	return base
}

type patternState struct {
	maxObservedN int
	exhausted    bool
	updatedAt    time.Time
}

// PaginationPredictor implements §4.I's pagination predictor: it watches
// observed pagination URLs, remembers the highest page number seen per
// (host, shape), and speculatively enqueues ahead of it.
type PaginationPredictor struct {
	cfg      config.DiscoveryConfig
	admitter Admitter
	sink     EventSink

	mu    sync.Mutex
	state map[string]*patternState // key: host + "|" + shape name
}

// NewPaginationPredictor builds a PaginationPredictor.
func NewPaginationPredictor(cfg config.DiscoveryConfig, admitter Admitter, sink EventSink) *PaginationPredictor {
	if sink == nil {
		sink = noopSink
	}
	return &PaginationPredictor{cfg: cfg, admitter: admitter, sink: sink, state: make(map[string]*patternState)}
}

// Observe inspects rawURL for a known pagination shape and, if found,
// records the observed page number and speculatively enqueues the next
// pages up to MaxSpeculativePages.
func (pp *PaginationPredictor) Observe(ctx context.Context, host, rawURL string) error {
	shape, n, ok := matchShape(rawURL)
	if !ok {
		return nil
	}

	key := host + "|" + shape.name
	pp.mu.Lock()
	st, exists := pp.state[key]
	if !exists {
		st = &patternState{}
		pp.state[key] = st
	}
	ttl := pp.cfg.PaginationPatternTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if !st.updatedAt.IsZero() && time.Since(st.updatedAt) > ttl {
		st.maxObservedN = 0
		st.exhausted = false
	}
	if n > st.maxObservedN {
		st.maxObservedN = n
	}
	st.updatedAt = time.Now()
	exhausted := st.exhausted
	maxN := st.maxObservedN
	pp.mu.Unlock()

	if exhausted {
		return nil
	}

	maxSpec := pp.cfg.MaxSpeculativePages
	if maxSpec <= 0 {
		maxSpec = 3
	}
	for i := 1; i <= maxSpec; i++ {
		candidate := shape.build(rawURL, maxN+i)
		if _, _, err := pp.admitter.Admit(ctx, candidate, maxN+i, 0); err != nil {
			return fmt.Errorf("discovery: speculative enqueue %s: %w", candidate, err)
		}
	}
	return nil
}

// MarkExhausted records that the speculative boundary for (host, shape)
// hit a 404 or empty body (§4.I "marks a pattern exhausted").
func (pp *PaginationPredictor) MarkExhausted(host, rawURL string) {
	shape, _, ok := matchShape(rawURL)
	if !ok {
		return
	}
	key := host + "|" + shape.name
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if st, ok := pp.state[key]; ok {
		st.exhausted = true
		pp.sink(models.EventDiscovered, models.SeverityInfo, host, map[string]interface{}{
			"kind":  "pagination_exhausted",
			"shape": shape.name,
		})
	}
}

func matchShape(rawURL string) (paginationShape, int, bool) {
	for _, shape := range paginationShapes {
		m := shape.pattern.FindStringSubmatch(rawURL)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return shape, n, true
	}
	return paginationShape{}, 0, false
}

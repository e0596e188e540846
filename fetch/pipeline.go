// Package fetch implements the fetch pipeline (§4.E): the single
// operation every crawl worker calls to turn a queued URL into a
// persisted HttpResponse. It orchestrates, in order, the circuit
// breaker (resilience), the politeness scheduler, the domain-mode
// manager, the plain-HTTP engine, the headless-browser pool, the
// content validator, the store, and the telemetry sink.
//
// Reuses the teacher's engine.HTTPEngine for the plain-HTTP step,
// generalized (see engine/http_engine.go) from "error on non-HTML or
// bad status" to "return whatever came back and let validate judge it".
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metabench/hubcrawl/cache"
	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/crawlerr"
	"github.com/metabench/hubcrawl/domainmode"
	"github.com/metabench/hubcrawl/engine"
	"github.com/metabench/hubcrawl/headless"
	"github.com/metabench/hubcrawl/models"
	"github.com/metabench/hubcrawl/politeness"
	"github.com/metabench/hubcrawl/resilience"
	"github.com/metabench/hubcrawl/store"
	"github.com/metabench/hubcrawl/validate"
)

// EventSink receives PAGE telemetry events, the same function-type
// pattern used across the other leaf packages.
type EventSink func(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{})

func noopSink(models.EventType, models.Severity, string, map[string]interface{}) {}

// ErrDeferred signals the breaker was open: the caller should requeue
// the URL rather than count this as a failed attempt.
var ErrDeferred = errors.New("fetch: deferred, circuit open")

// Outcome is the pipeline's result for one URL.
type Outcome struct {
	HTTPResponseID   int64
	ContentStorageID int64 // 0 for cache hits and failures; set only on a fresh RecordSuccessfulDownload
	Source           models.FetchSource
	Accepted         bool
	FailureClass     validate.FailureClass
	BytesLen         int
}

// Pipeline wires every §4.E collaborator together.
type Pipeline struct {
	store       *store.Store
	politeness  *politeness.Scheduler
	resilience  *resilience.Service
	domainMode  *domainmode.Manager
	headless    *headless.Pool
	httpEngine  *engine.HTTPEngine
	dispatcher  *engine.Dispatcher
	cache       *cache.Cache
	validateCfg validate.Config
	cfg         config.FetchConfig
	cacheCfg    config.CacheConfig
	sink        EventSink
}

// New builds a Pipeline. Any dependency may be required by the caller;
// headlessPool may be nil only if every domain stays in HTTP-only mode
// forever, which is not the expected deployment shape.
//
// When engineCfg.EnableMultiEngine is set, the sequential HTTP-then-
// headless escalation below is replaced by the teacher's racing
// Dispatcher (http vs. rod, staged by engineCfg.EscalationDelays) for
// every domain not already pinned to headless-only by domain mode.
func New(
	st *store.Store,
	pol *politeness.Scheduler,
	res *resilience.Service,
	dm *domainmode.Manager,
	hp *headless.Pool,
	c *cache.Cache,
	cfg config.FetchConfig,
	cacheCfg config.CacheConfig,
	engineCfg config.EngineConfig,
	sink EventSink,
) *Pipeline {
	if sink == nil {
		sink = noopSink
	}
	p := &Pipeline{
		store:       st,
		politeness:  pol,
		resilience:  res,
		domainMode:  dm,
		headless:    hp,
		httpEngine:  engine.NewHTTPEngine(),
		cache:       c,
		validateCfg: validate.DefaultConfig(),
		cfg:         cfg,
		cacheCfg:    cacheCfg,
		sink:        sink,
	}
	if engineCfg.EnableMultiEngine {
		p.dispatcher = buildDispatcher(engineCfg, p.httpEngine, p.rodFetch)
	}
	return p
}

// buildDispatcher assembles the racing Dispatcher from the HTTP engine and
// a rod-backed Engine wrapping rodFetch. Split out from New so it can be
// exercised without standing up a full Pipeline.
func buildDispatcher(engineCfg config.EngineConfig, httpEngine engine.Engine, rodFetch engine.RodFetchFunc) *engine.Dispatcher {
	delays := engineCfg.EscalationDelays
	if len(delays) == 0 {
		delays = []time.Duration{0, 2 * time.Second}
	}
	engines := []engine.Engine{httpEngine, engine.NewRodEngine(rodFetch, false)}
	return engine.NewDispatcher(engines, delays, engine.NewDomainMemory(30*time.Minute))
}

// Fetch runs the full §4.E operation for u, classified as kind for the
// cache tie-break rule.
func (p *Pipeline) Fetch(ctx context.Context, u models.URL, kind models.URLKind) (Outcome, error) {
	maxAge := p.cacheMaxAge(kind)
	if entry, ok := p.cache.Get(u.Normalized, maxAge); ok {
		p.sink(models.EventFetchCompleted, models.SeverityInfo, u.Normalized, map[string]interface{}{
			"source": string(models.SourceCache),
			"bytes":  len(entry.Body),
			"status": entry.Response.HTTPStatus,
		})
		return Outcome{
			HTTPResponseID: entry.Response.ID,
			Source:         models.SourceCache,
			Accepted:       true,
			BytesLen:       len(entry.Body),
		}, nil
	}

	if !p.resilience.ShouldAttempt(u.Host) {
		return Outcome{}, ErrDeferred
	}

	var outcome Outcome
	execErr := p.resilience.Execute(u.Host, func() error {
		o, err := p.attempt(ctx, u)
		outcome = o
		return err
	})
	if errors.Is(execErr, resilience.ErrBreakerOpen) {
		return Outcome{}, ErrDeferred
	}
	if execErr != nil {
		return Outcome{}, execErr
	}
	return outcome, nil
}

// attempt runs steps 2-8 of §4.E under the breaker's accounting: its
// return error is what the breaker counts as success/failure.
func (p *Pipeline) attempt(ctx context.Context, u models.URL) (Outcome, error) {
	lease, err := p.politeness.Acquire(ctx, u.Host)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch: acquire politeness token: %w", err)
	}
	defer lease.Release()

	var (
		body        []byte
		status      int
		contentType string
		ttfbMs      int64
		downloadMs  int64
		source      models.FetchSource
		usedHTTP    bool
	)

	if p.domainMode.ShouldUseHeadless(u.Host) {
		body, status, contentType, ttfbMs, downloadMs, err = p.fetchHeadless(ctx, u)
		if err != nil {
			p.recordFailedAttempt(ctx, u, status, contentType, ttfbMs, downloadMs)
			return Outcome{}, err
		}
		source = models.SourceHeadless
	} else if p.dispatcher != nil {
		usedHTTP = true
		dispatchCtx, cancel := context.WithTimeout(ctx, p.httpTimeout())
		result, derr := p.dispatcher.Dispatch(dispatchCtx, &engine.FetchRequest{URL: u.Normalized, Timeout: p.httpTimeout()})
		cancel()
		if derr != nil {
			p.domainMode.RecordFailure(u.Host)
			p.recordFailedAttempt(ctx, u, 0, "", 0, 0)
			return Outcome{}, fmt.Errorf("fetch: dispatcher attempt: %w", derr)
		}
		body = []byte(result.HTML)
		status = result.StatusCode
		contentType = result.ContentType
		ttfbMs = result.TTFBMs
		downloadMs = result.DownloadMs
		if result.EngineName == "http" {
			source = models.SourceNetwork
		} else {
			source = models.SourceHeadless
		}
	} else {
		usedHTTP = true
		httpCtx, cancel := context.WithTimeout(ctx, p.httpTimeout())
		result, herr := p.httpEngine.Fetch(httpCtx, &engine.FetchRequest{URL: u.Normalized, Timeout: p.httpTimeout()})
		cancel()
		p.politeness.RecordStatus(u.Host, statusOrZero(result))

		if herr != nil {
			p.domainMode.RecordFailure(u.Host)
			if !p.domainMode.ShouldUseHeadless(u.Host) {
				p.recordFailedAttempt(ctx, u, statusOrZero(result), "", 0, 0)
				return Outcome{}, fmt.Errorf("fetch: http attempt: %w", herr)
			}
			body, status, contentType, ttfbMs, downloadMs, err = p.fetchHeadless(ctx, u)
			if err != nil {
				p.recordFailedAttempt(ctx, u, status, contentType, ttfbMs, downloadMs)
				return Outcome{}, err
			}
			source = models.SourceHeadless
		} else {
			body = []byte(result.HTML)
			status = result.StatusCode
			contentType = result.ContentType
			ttfbMs = result.TTFBMs
			downloadMs = result.DownloadMs
			source = models.SourceNetwork
		}
	}

	result := validate.Validate(p.validateCfg, status, body, contentType)
	if !result.Accepted {
		if result.FailureClass == validate.FailureHard {
			p.recordFailedAttempt(ctx, u, status, contentType, ttfbMs, downloadMs)
			return Outcome{FailureClass: result.FailureClass}, fmt.Errorf("fetch: %w", crawlerr.HardFailure(result.Reason, nil))
		}
		// Soft failure: escalate once if this was the HTTP path. The HTTP
		// attempt still gets its own row before the headless retry runs —
		// each engine's try is a distinct attempt under invariant 2.
		if usedHTTP && source == models.SourceNetwork {
			p.recordFailedAttempt(ctx, u, status, contentType, ttfbMs, downloadMs)
			body, status, contentType, ttfbMs, downloadMs, err = p.fetchHeadless(ctx, u)
			if err != nil {
				p.recordFailedAttempt(ctx, u, status, contentType, ttfbMs, downloadMs)
				return Outcome{}, err
			}
			source = models.SourceHeadless
			result = validate.Validate(p.validateCfg, status, body, contentType)
			if !result.Accepted {
				class := result.FailureClass
				p.recordFailedAttempt(ctx, u, status, contentType, ttfbMs, downloadMs)
				if class == validate.FailureHard {
					return Outcome{FailureClass: class}, fmt.Errorf("fetch: %w", crawlerr.HardFailure(result.Reason, nil))
				}
				return Outcome{FailureClass: class}, fmt.Errorf("fetch: %w", crawlerr.SoftFailure(result.Reason, nil))
			}
		} else {
			p.recordFailedAttempt(ctx, u, status, contentType, ttfbMs, downloadMs)
			return Outcome{FailureClass: result.FailureClass}, fmt.Errorf("fetch: %w", crawlerr.SoftFailure(result.Reason, nil))
		}
	}

	resp, cs, err := p.store.RecordSuccessfulDownload(ctx, u.ID, status, contentType, ttfbMs, downloadMs, body, "none")
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch: %w", crawlerr.Persistence("record successful download", err))
	}

	p.cache.Set(u.Normalized, cache.Entry{Response: resp, Body: body, Source: source})
	p.resilience.RecordHeartbeat()

	p.sink(models.EventFetchCompleted, models.SeverityInfo, u.Normalized, map[string]interface{}{
		"source":      string(source),
		"bytes":       len(cs.BodyBytes),
		"download_ms": downloadMs,
		"status":      status,
	})

	return Outcome{
		HTTPResponseID:   resp.ID,
		ContentStorageID: cs.ID,
		Source:           source,
		Accepted:         true,
		BytesLen:         len(body),
	}, nil
}

// fetchHeadless renders u in a pooled browser session, grounded on the
// teacher's scraper.page.go navigate→WaitDOMStable→HTML flow: status is
// recovered from performance.getEntriesByType("navigation") via Eval
// since rod has no direct accessor for the navigation response code.
func (p *Pipeline) fetchHeadless(ctx context.Context, u models.URL) (body []byte, status int, contentType string, ttfbMs, downloadMs int64, err error) {
	hctx, cancel := context.WithTimeout(ctx, p.headlessTimeout())
	defer cancel()

	start := time.Now()
	page, sess, aerr := p.headless.Acquire(hctx)
	if aerr != nil {
		return nil, 0, "", 0, 0, fmt.Errorf("fetch: acquire headless session: %w", aerr)
	}
	defer p.headless.Release(sess)

	pg := page.Context(hctx)
	if nerr := pg.Navigate(u.Normalized); nerr != nil {
		return nil, 0, "", 0, 0, fmt.Errorf("fetch: headless navigate: %w", nerr)
	}
	ttfbMs = time.Since(start).Milliseconds()

	if serr := pg.WaitDOMStable(300*time.Millisecond, 0.1); serr != nil {
		// Not fatal: proceed with whatever DOM state is there, matching the
		// teacher's best-effort stability wait.
	}

	statusCode := 200
	if res, everr := pg.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`); everr == nil {
		if code := res.Value.Int(); code > 0 {
			statusCode = code
		}
	}

	html, herr := pg.HTML()
	if herr != nil {
		return nil, 0, "", 0, 0, fmt.Errorf("fetch: headless read html: %w", herr)
	}
	downloadMs = time.Since(start).Milliseconds()

	return []byte(html), statusCode, "text/html; charset=utf-8", ttfbMs, downloadMs, nil
}

// rodFetch adapts fetchHeadless's navigate→WaitDOMStable→HTML flow to the
// engine.RodFetchFunc shape the Dispatcher's rod Engine calls, so the
// racing path and the sequential escalation path share one headless
// implementation.
func (p *Pipeline) rodFetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	body, status, contentType, ttfbMs, downloadMs, err := p.fetchHeadless(ctx, models.URL{Normalized: req.URL})
	if err != nil {
		return nil, err
	}
	return &engine.FetchResult{
		HTML:        string(body),
		StatusCode:  status,
		FinalURL:    req.URL,
		ContentType: contentType,
		TTFBMs:      ttfbMs,
		DownloadMs:  downloadMs,
	}, nil
}

func (p *Pipeline) httpTimeout() time.Duration {
	if p.cfg.HTTPTimeout <= 0 {
		return 30 * time.Second
	}
	return p.cfg.HTTPTimeout
}

func (p *Pipeline) headlessTimeout() time.Duration {
	if p.cfg.HeadlessTimeout <= 0 {
		return 20 * time.Second
	}
	return p.cfg.HeadlessTimeout
}

func (p *Pipeline) cacheMaxAge(kind models.URLKind) time.Duration {
	if kind == models.URLKindHub {
		if p.cacheCfg.MaxAgeHub <= 0 {
			return 10 * time.Minute
		}
		return p.cacheCfg.MaxAgeHub
	}
	return cache.Unbounded
}

// recordFailedAttempt persists the single HttpResponse row for a failed
// network attempt (invariant 2: one row per attempt, success or failure),
// using whatever status/timing the attempt produced before failing. A
// write failure here is logged, not propagated — losing the audit row
// must never mask the real fetch error already being returned.
func (p *Pipeline) recordFailedAttempt(ctx context.Context, u models.URL, status int, contentType string, ttfbMs, downloadMs int64) {
	if _, rerr := p.store.RecordFailedAttempt(ctx, u.ID, status, contentType, ttfbMs, downloadMs); rerr != nil {
		p.sink(models.EventFetchFailed, models.SeverityWarning, u.Normalized, map[string]interface{}{
			"error": "record failed attempt: " + rerr.Error(),
		})
	}
}

func statusOrZero(r *engine.FetchResult) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}

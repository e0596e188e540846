package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/metabench/hubcrawl/cache"
	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/depth"
	"github.com/metabench/hubcrawl/discovery"
	"github.com/metabench/hubcrawl/domainmode"
	"github.com/metabench/hubcrawl/fetch"
	"github.com/metabench/hubcrawl/headless"
	"github.com/metabench/hubcrawl/models"
	"github.com/metabench/hubcrawl/politeness"
	"github.com/metabench/hubcrawl/predict"
	"github.com/metabench/hubcrawl/proxy"
	"github.com/metabench/hubcrawl/queue"
	"github.com/metabench/hubcrawl/resilience"
	"github.com/metabench/hubcrawl/store"
	"github.com/metabench/hubcrawl/telemetry"
	"github.com/metabench/hubcrawl/webhook"
)

// Crawler is the composition root: every leaf package constructed once,
// wired to a single telemetry sink, and driven by the worker loop in
// worker.go. Exported fields are what the API and cmd layers reach
// through (e.g. api needs Store and Queue; cmd/probe-hub-depth needs
// Depth); the worker loop itself only needs the unexported ones.
type Crawler struct {
	Store      *store.Store
	Politeness *politeness.Scheduler
	Resilience *resilience.Service
	DomainMode *domainmode.Manager
	Headless   *headless.Pool
	Cache      *cache.Cache
	Fetch      *fetch.Pipeline
	Queue      *queue.Orchestrator
	Predictor  *predict.Predictor
	Learner    *predict.Learner
	Stall      *resilience.StallDetector
	Depth      *depth.Prober
	HubSeeder  *discovery.HubSeeder
	Archive    *discovery.ArchiveProbe
	Pagination *discovery.PaginationPredictor
	Telemetry     *telemetry.Writer
	Metrics       *telemetry.Metrics
	MetricsServer *telemetry.MetricsServer
	Stream        *telemetry.Stream
	Proxy         *proxy.Manager

	cfg *config.Config
	log *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds every collaborator from cfg and wires them to a single
// telemetry sink, matching §5's "every component reports through one
// event stream" requirement. st must already be open (migrations
// applied) and is not closed by Crawler.
func New(cfg *config.Config, st *store.Store, log *slog.Logger) (*Crawler, error) {
	if log == nil {
		log = slog.Default()
	}

	c := &Crawler{
		Store:  st,
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = telemetry.NewMetrics(reg)
		c.MetricsServer = telemetry.NewMetricsServer(cfg.Telemetry.MetricsAddr, reg)
	}
	c.Metrics = metrics
	c.Telemetry = telemetry.NewWriter(st, cfg.Telemetry.EventBufferSize, 2*time.Second, metrics)
	c.Stream = telemetry.NewStream()
	c.Stream.Subscribe(c.Telemetry)

	c.Politeness = politeness.New(cfg.Fetch.BaseCrawlDelay, cfg.Fetch.MaxConcurrentPerHost, cfg.Fetch.JitterFraction)
	c.Politeness.SetEventSink(politeness.EventSink(c.sink))

	c.Resilience = resilience.New(cfg.Resilience, resilience.EventSink(c.sink))
	c.Stall = resilience.NewStallDetector(c.Resilience, cfg.Resilience.StallTimeout, c.queueDepthAllHosts)

	c.DomainMode = domainmode.New(cfg.DomainMode.AutoLearnWindow, cfg.DomainMode.AutoLearnThreshold, cfg.DomainMode.AutoApprove, domainmode.EventSink(c.sink))
	if err := c.restoreDomainModeState(); err != nil {
		log.Warn("runner: could not restore domain-mode state", "error", err)
	}

	c.Headless = headless.NewPool(cfg.Browser, headless.WithEventSink(headless.EventSink(c.sink)))
	c.Cache = cache.New(cfg.Cache.MaxEntries)

	c.Fetch = fetch.New(st, c.Politeness, c.Resilience, c.DomainMode, c.Headless, c.Cache, cfg.Fetch, cfg.Cache, cfg.Engine, fetch.EventSink(c.sink))

	c.Learner = predict.NewLearner(st, 5)
	c.Predictor = predict.New(st, verifiedSourceAdapter{st: st}, nil)

	c.Queue = queue.New(st, cfg.Queue, admissionPredictorAdapter{predictor: c.Predictor}, queue.EventSink(c.sink))

	control := newControlFetcher()
	c.Depth = depth.New(cfg.Depth, control, depth.EventSink(c.sink))
	c.HubSeeder = discovery.NewHubSeeder(st, st, st, discovery.EventSink(c.sink))
	c.Archive = discovery.NewArchiveProbe(cfg.Discovery, control, queueAdmitterAdapter{orch: c.Queue}, st.QueueDepth, discovery.EventSink(c.sink))
	c.Pagination = discovery.NewPaginationPredictor(cfg.Discovery, queueAdmitterAdapter{orch: c.Queue}, discovery.EventSink(c.sink))

	if cfg.Proxy.Enabled {
		p, err := proxy.New(cfg.Proxy)
		if err != nil {
			log.Warn("runner: proxy manager disabled", "error", err)
		} else {
			c.Proxy = p
		}
	}

	if cfg.Webhook.URL != "" {
		c.startWebhookDispatch(cfg.Webhook.URL, cfg.Webhook.Secret)
	}

	return c, nil
}

// startWebhookDispatch subscribes to the event stream and forwards every
// notable lifecycle event (breaker transitions, domain-mode changes, crawl
// stalled/completed) to the configured webhook endpoint, generalizing the
// teacher's "scrape completed" callback to the full TaskEvent stream.
func (c *Crawler) startWebhookDispatch(url, secret string) {
	id, events := c.Stream.Register()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.Stream.Unregister(id)
		for {
			select {
			case <-c.stopCh:
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if event, notable := webhook.FromTaskEvent(e); notable {
					webhook.DeliverAsync(url, secret, &event)
				}
			}
		}
	}()
}

// sink is the single function every leaf package's EventSink type is
// defined identically to (function types with the same underlying
// signature convert implicitly at the call site, so one implementation
// serves them all without an adapter per package).
func (c *Crawler) sink(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{}) {
	if c.Telemetry != nil {
		c.Telemetry.Emit(eventType, severity, target, fields)
	}
}

func (c *Crawler) queueDepthAllHosts() int64 {
	// The stall detector wants a single coarse "is anything still
	// moving" number; QueueDepth is per-host, so sum across the hosts
	// currently tracked by domain-mode (the set of hosts the crawl has
	// touched at least once).
	var total int64
	for _, dm := range c.DomainMode.Snapshot() {
		n, err := c.Store.QueueDepth(context.Background(), dm.Host)
		if err != nil {
			continue
		}
		total += n
	}
	return total
}

func (c *Crawler) restoreDomainModeState() error {
	entries, err := domainmode.Load(c.cfg.DomainMode.StatePath)
	if err != nil {
		return err
	}
	c.DomainMode.Restore(entries)
	return nil
}

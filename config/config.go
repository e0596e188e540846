package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Browser        BrowserConfig
	Scraper        ScraperConfig
	Auth           AuthConfig
	RateLimit      RateLimitConfig
	Cache          CacheConfig
	Log            LogConfig
	Engine         EngineConfig
	Postgres       PostgresConfig
	Fetch          FetchConfig
	Resilience     ResilienceConfig
	Queue          QueueConfig
	Discovery      DiscoveryConfig
	Depth          DepthConfig
	DomainMode     DomainModeConfig
	Classification ClassificationConfig
	Telemetry      TelemetryConfig
	Proxy          ProxyConfig
	Webhook        WebhookConfig
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EnableMultiEngine toggles racing the HTTP/rod/rod-stealth engines via
	// the dispatcher instead of the fetch pipeline's default sequential
	// HTTP-then-headless escalation (§4.E). Off by default: most hosts are
	// well served by the deterministic sequential path, and racing costs a
	// spare headless session per fetch.
	EnableMultiEngine bool // default: false

	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 2s, 5s]

	// HTTPTimeout is the deadline for the pure HTTP engine.
	HTTPTimeout time.Duration // default: 5s
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000

	// MaxAgeHub is how long a cached hub page may be served from the cache
	// instead of being refetched (§4.E cache tie-break).
	MaxAgeHub time.Duration // default: 10m
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 15s

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys (for MVP; replace with DB later).
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting on the control API,
// distinct from the per-host crawl politeness limiter in Fetch/Resilience.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// PostgresConfig controls the persistence layer (§4.A).
type PostgresConfig struct {
	DSN             string        // default: "postgres://localhost:5432/crawler?sslmode=disable"
	MaxOpenConns    int           // default: 20
	MaxIdleConns    int           // default: 5
	ConnMaxLifetime time.Duration // default: 30m
	MigrationsDir   string        // default: "store/migrations"
}

// FetchConfig controls the fetch pipeline's politeness and escalation
// knobs (§4.B, §4.E).
type FetchConfig struct {
	// BaseCrawlDelay is the floor delay between requests to the same host
	// absent any robots.txt Crawl-delay directive.
	BaseCrawlDelay time.Duration // default: 1s

	// MaxConcurrentPerHost bounds in-flight requests to one host.
	MaxConcurrentPerHost int // default: 2

	// JitterFraction is the fraction of the resolved delay randomized.
	JitterFraction float64 // default: 0.2

	// HeadlessTimeout bounds a single headless render attempt.
	HeadlessTimeout time.Duration // default: 20s

	// HTTPTimeout bounds a single plain-HTTP fetch attempt (§4.E step 4).
	HTTPTimeout time.Duration // default: 30s
}

// ResilienceConfig controls the per-host circuit breaker (§4.C).
type ResilienceConfig struct {
	// FailureThreshold is the consecutive-failure count that trips OPEN.
	FailureThreshold uint32 // default: 5

	// OpenTimeout is how long a breaker stays OPEN before HALF_OPEN.
	OpenTimeout time.Duration // default: 60s

	// HalfOpenMaxRequests bounds trial requests while HALF_OPEN.
	HalfOpenMaxRequests uint32 // default: 1

	// StallTimeout is how long the crawl may go without a successful fetch
	// before the stall detector emits a stalled event with a diagnostic
	// dump; no fetch is aborted.
	StallTimeout time.Duration // default: 45s
}

// QueueConfig controls the queue/orchestrator (§4.H).
type QueueConfig struct {
	// LeaseDuration bounds how long a leased QueueEntry may stay LEASED
	// before it is reclaimed as abandoned.
	LeaseDuration time.Duration // default: 5m

	// MaxInFlight bounds total concurrently leased entries across hosts.
	MaxInFlight int // default: 50

	// PollInterval is how often idle workers re-poll for ready entries.
	PollInterval time.Duration // default: 500ms

	// BasePriority is every QueueEntry's starting score before boosts.
	BasePriority float64 // default: 1.0

	// RecencyBoostMax is the priority boost given to page 1 of a
	// paginated archive; later pages decay linearly toward 0 by
	// RecencyBoostDecayPages.
	RecencyBoostMax float64 // default: 5.0

	// RecencyBoostDecayPages is how many archive pages deep the recency
	// boost fades to zero.
	RecencyBoostDecayPages int // default: 20

	// PopulationWeight (k) scales log10(population+1) into a priority
	// boost for place-hub URLs.
	PopulationWeight float64 // default: 0.5

	// LowValueClassBoost is added (typically negative) for predicted
	// classes the admission predictor flags as low-value.
	LowValueClassBoost float64 // default: -3.0

	// LowValueConfidenceFloor is the minimum predictor confidence before
	// a low-value prediction is trusted enough to downgrade or reject.
	LowValueConfidenceFloor float64 // default: 0.6

	// RejectLowValue, if true, skips admission entirely (no queue entry is
	// created; the URL row itself is still recorded) for
	// confidently-predicted low-value URLs instead of merely downgrading
	// their priority.
	RejectLowValue bool // default: false
}

// DiscoveryConfig controls link discovery and admission (§4.I).
type DiscoveryConfig struct {
	// MaxDepth bounds BFS depth from a seed.
	MaxDepth int // default: 6

	// AllowedSchemes restricts discovered links.
	AllowedSchemes []string // default: ["http", "https"]

	// ArchiveProbeCooldown is the minimum time between archive probes for
	// the same host.
	ArchiveProbeCooldown time.Duration // default: 1h

	// ArchiveProbeQueueThreshold triggers a probe once a host's queue
	// depth falls below this value.
	ArchiveProbeQueueThreshold int64 // default: 10

	// MaxYearsBack bounds date-patterned archive path probing.
	MaxYearsBack int // default: 2

	// MaxSpeculativePages bounds how many next pages the pagination
	// predictor enqueues ahead of the observed maximum.
	MaxSpeculativePages int // default: 3

	// PaginationPatternTTL is how long a learned (host, pattern) entry
	// stays usable before it must be re-observed.
	PaginationPatternTTL time.Duration // default: 1h
}

// DepthConfig controls the hub depth prober (§4.J).
type DepthConfig struct {
	// MaxPagesPerHub bounds pagination following before giving up.
	MaxPagesPerHub int // default: 200

	// SimhashDistance is the max Hamming distance still considered a
	// loopback/identical page for termination purposes.
	SimhashDistance int // default: 3

	// TimeTravelWindow is how far newer a page's oldest-article date may
	// be than the previous known-good page before it is considered a
	// silent wraparound back to page 1.
	TimeTravelWindow time.Duration // default: 168h (7 days)

	// ProbeDelay is the pause the depth prober sleeps before each probe
	// fetch; probe fetches do not go through the politeness scheduler.
	ProbeDelay time.Duration // default: 500ms
}

// DomainModeConfig controls the domain-mode manager (§4.G).
type DomainModeConfig struct {
	// AutoLearnWindow is the length of the fixed failure-counting window:
	// it opens at a host's first failure and restarts at the first failure
	// recorded after it has elapsed.
	AutoLearnWindow time.Duration // default: 5m

	// AutoLearnThreshold is the failure count within one AutoLearnWindow
	// that triggers promotion (S2: 3). Successes between failures do not
	// reset the count.
	AutoLearnThreshold int // default: 3

	// AutoApprove, if true, promotes straight to "learned"; otherwise the
	// host is parked as "pending" awaiting ApprovePending.
	AutoApprove bool // default: true

	// StatePath is the JSON snapshot file path (write-then-rename).
	StatePath string // default: "./domainmode.json"
}

// ClassificationConfig controls the classification cascade (§4.K).
type ClassificationConfig struct {
	// MinConfidence is loaded from defaults, the config file and the
	// environment, but the cascade does not read it: an aggregated result
	// is persisted with the class Aggregate chose whatever its confidence.
	MinConfidence float64 // default: 0.55

	// RenderStageEnabled toggles stage 3 (headless DOM classification).
	RenderStageEnabled bool // default: true

	// ArchiveSelectors maps a host to a CSS selector that narrows the raw
	// HTML to its main-content region before readability extraction, for
	// the handful of hosts whose markup defeats the generic heuristics.
	// Empty/absent hosts skip this step entirely.
	ArchiveSelectors map[string]string
}

// TelemetryConfig controls the event log and metrics exporter (§4.M).
type TelemetryConfig struct {
	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint. Empty disables it.
	MetricsAddr string // default: ":9090"

	// EventBufferSize is the telemetry writer's batch size: buffered
	// events are flushed to the store once this many are pending.
	EventBufferSize int // default: 256
}

// ProxyConfig controls the (unintegrated, see Open Questions) proxy
// rotation manager (§6 persisted state layout).
type ProxyConfig struct {
	Enabled bool     // default: false
	Pool    []string // SOCKS5 proxy URLs, used as unnamed round-robin providers when Providers is empty

	Providers             []ProxyProviderConfig
	Strategy              string // round-robin | priority | random | least-used
	BanThresholdFailures  int    // consecutive failures before a provider is banned
	BanDurationMs         int64
}

// WebhookConfig controls outbound delivery of notable lifecycle events
// (breaker open/close, domain mode changes, crawl stalled/completed) to an
// external subscriber. Empty URL disables delivery entirely.
type WebhookConfig struct {
	URL    string // destination endpoint; empty disables webhook delivery
	Secret string // HMAC-SHA256 signing secret, empty disables the signature header
}

// ProxyProviderConfig describes one upstream proxy (§6 persisted state
// layout: `providers[{name,type,host,port,auth,priority,enabled,tags}]`).
type ProxyProviderConfig struct {
	Name     string
	Type     string // socks5 | http | https
	Host     string
	Port     int
	Auth     string // user:pass, empty if unauthenticated
	Priority int
	Enabled  bool
	Tags     []string
}

// Load reads configuration from a YAML file (if present) overlaid with
// environment variables, matching §6's resolution order: CLI flags take
// final precedence and are applied by callers after Load returns.
func Load() *Config {
	return LoadFrom(envOr("PURIFY_CONFIG", "./crawler.yaml"))
}

// LoadFrom is Load with an explicit YAML path, letting callers honor a
// --config flag that should take precedence over PURIFY_CONFIG/the
// conventional path (a caller passing an explicit path has already
// resolved that order).
func LoadFrom(path string) *Config {
	cfg := defaults()
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var fileCfg Config
			if yaml.Unmarshal(data, &fileCfg) == nil {
				mergeNonZero(cfg, &fileCfg)
			}
		}
	}
	applyEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Browser: BrowserConfig{
			Headless: true,
			MaxPages: 10,
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    30 * time.Second,
			MaxTimeout:        120 * time.Second,
			NavigationTimeout: 15 * time.Second,
			BlockedResourceTypes: []string{
				"Image", "Stylesheet", "Font", "Media",
			},
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5.0,
			Burst:             10,
		},
		Cache: CacheConfig{
			MaxEntries: 1000,
			MaxAgeHub:  10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			EnableMultiEngine: false,
			EscalationDelays:  []time.Duration{0, 2 * time.Second, 5 * time.Second},
			HTTPTimeout:       5 * time.Second,
		},
		Postgres: PostgresConfig{
			DSN:             "postgres://localhost:5432/crawler?sslmode=disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			MigrationsDir:   "store/migrations",
		},
		Fetch: FetchConfig{
			BaseCrawlDelay:       1 * time.Second,
			MaxConcurrentPerHost: 2,
			JitterFraction:       0.2,
			HeadlessTimeout:      20 * time.Second,
			HTTPTimeout:          30 * time.Second,
		},
		Resilience: ResilienceConfig{
			FailureThreshold:    5,
			OpenTimeout:         60 * time.Second,
			HalfOpenMaxRequests: 1,
			StallTimeout:        45 * time.Second,
		},
		Queue: QueueConfig{
			LeaseDuration:           5 * time.Minute,
			MaxInFlight:             50,
			PollInterval:            500 * time.Millisecond,
			BasePriority:            1.0,
			RecencyBoostMax:         5.0,
			RecencyBoostDecayPages:  20,
			PopulationWeight:        0.5,
			LowValueClassBoost:      -3.0,
			LowValueConfidenceFloor: 0.6,
			RejectLowValue:          false,
		},
		Discovery: DiscoveryConfig{
			MaxDepth:                   6,
			AllowedSchemes:             []string{"http", "https"},
			ArchiveProbeCooldown:       1 * time.Hour,
			ArchiveProbeQueueThreshold: 10,
			MaxYearsBack:               2,
			MaxSpeculativePages:        3,
			PaginationPatternTTL:       1 * time.Hour,
		},
		Depth: DepthConfig{
			MaxPagesPerHub:   200,
			SimhashDistance:  3,
			TimeTravelWindow: 168 * time.Hour,
			ProbeDelay:       500 * time.Millisecond,
		},
		DomainMode: DomainModeConfig{
			AutoLearnWindow:    5 * time.Minute,
			AutoLearnThreshold: 3,
			AutoApprove:        true,
			StatePath:          "./domainmode.json",
		},
		Classification: ClassificationConfig{
			MinConfidence:      0.55,
			RenderStageEnabled: true,
		},
		Telemetry: TelemetryConfig{
			MetricsAddr:     ":9090",
			EventBufferSize: 256,
		},
		Proxy: ProxyConfig{
			Enabled:              false,
			Strategy:             "round-robin",
			BanThresholdFailures: 3,
			BanDurationMs:        5 * 60 * 1000,
		},
	}
}

// mergeNonZero shallow-copies sections of src onto dst. A YAML file
// typically sets only a handful of sections; the rest keep their
// compiled-in defaults. Postgres, Fetch, Resilience and Queue are copied
// whole when non-zero; Discovery, Depth, DomainMode, Classification,
// Telemetry, Proxy, Webhook, Server and Log are copied whole only when
// the key field checked below is set. Browser, Scraper, Auth, RateLimit,
// Cache and Engine are never taken from the file.
func mergeNonZero(dst, src *Config) {
	if (src.Postgres != PostgresConfig{}) {
		dst.Postgres = src.Postgres
	}
	if (src.Fetch != FetchConfig{}) {
		dst.Fetch = src.Fetch
	}
	if (src.Resilience != ResilienceConfig{}) {
		dst.Resilience = src.Resilience
	}
	if (src.Queue != QueueConfig{}) {
		dst.Queue = src.Queue
	}
	if src.Discovery.MaxDepth != 0 {
		dst.Discovery = src.Discovery
	}
	if src.Depth.MaxPagesPerHub != 0 {
		dst.Depth = src.Depth
	}
	if src.DomainMode.AutoLearnThreshold != 0 {
		dst.DomainMode = src.DomainMode
	}
	if src.Classification.MinConfidence != 0 {
		dst.Classification = src.Classification
	}
	if src.Telemetry.MetricsAddr != "" {
		dst.Telemetry = src.Telemetry
	}
	if src.Proxy.Enabled || len(src.Proxy.Pool) > 0 {
		dst.Proxy = src.Proxy
	}
	if src.Webhook.URL != "" {
		dst.Webhook = src.Webhook
	}
	if src.Server.Port != 0 {
		dst.Server = src.Server
	}
	if src.Log.Level != "" {
		dst.Log = src.Log
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = envOr("PURIFY_HOST", cfg.Server.Host)
	cfg.Server.Port = envIntOr("PURIFY_PORT", cfg.Server.Port)
	cfg.Server.Mode = envOr("PURIFY_MODE", cfg.Server.Mode)

	cfg.Browser.Headless = envBoolOr("PURIFY_HEADLESS", cfg.Browser.Headless)
	cfg.Browser.MaxPages = envIntOr("PURIFY_MAX_PAGES", cfg.Browser.MaxPages)
	cfg.Browser.DefaultProxy = envOr("PURIFY_PROXY", cfg.Browser.DefaultProxy)
	cfg.Browser.NoSandbox = envBoolOr("PURIFY_NO_SANDBOX", cfg.Browser.NoSandbox)
	cfg.Browser.BrowserBin = envOr("PURIFY_BROWSER_BIN", cfg.Browser.BrowserBin)

	cfg.Scraper.DefaultTimeout = envDurationOr("PURIFY_DEFAULT_TIMEOUT", cfg.Scraper.DefaultTimeout)
	cfg.Scraper.MaxTimeout = envDurationOr("PURIFY_MAX_TIMEOUT", cfg.Scraper.MaxTimeout)
	cfg.Scraper.NavigationTimeout = envDurationOr("PURIFY_NAV_TIMEOUT", cfg.Scraper.NavigationTimeout)
	cfg.Scraper.BlockedResourceTypes = envSliceOr("PURIFY_BLOCKED_RESOURCES", cfg.Scraper.BlockedResourceTypes)

	cfg.Auth.Enabled = envBoolOr("PURIFY_AUTH_ENABLED", cfg.Auth.Enabled)
	cfg.Auth.APIKeys = envSliceOr("PURIFY_API_KEYS", cfg.Auth.APIKeys)

	cfg.RateLimit.RequestsPerSecond = envFloatOr("PURIFY_RATE_RPS", cfg.RateLimit.RequestsPerSecond)
	cfg.RateLimit.Burst = envIntOr("PURIFY_RATE_BURST", cfg.RateLimit.Burst)

	cfg.Cache.MaxEntries = envIntOr("CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)
	cfg.Cache.MaxAgeHub = envDurationOr("CACHE_MAX_AGE_HUB", cfg.Cache.MaxAgeHub)

	cfg.Log.Level = envOr("PURIFY_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("PURIFY_LOG_FORMAT", cfg.Log.Format)

	cfg.Engine.EnableMultiEngine = envBoolOr("PURIFY_MULTI_ENGINE", cfg.Engine.EnableMultiEngine)
	cfg.Engine.EscalationDelays = envDurationSliceOr("PURIFY_ESCALATION_DELAYS", cfg.Engine.EscalationDelays)
	cfg.Engine.HTTPTimeout = envDurationOr("PURIFY_HTTP_TIMEOUT", cfg.Engine.HTTPTimeout)


	cfg.Postgres.DSN = envOr("CRAWLER_POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.Postgres.MaxOpenConns = envIntOr("CRAWLER_POSTGRES_MAX_OPEN", cfg.Postgres.MaxOpenConns)
	cfg.Postgres.MaxIdleConns = envIntOr("CRAWLER_POSTGRES_MAX_IDLE", cfg.Postgres.MaxIdleConns)
	cfg.Postgres.ConnMaxLifetime = envDurationOr("CRAWLER_POSTGRES_CONN_MAX_LIFETIME", cfg.Postgres.ConnMaxLifetime)
	cfg.Postgres.MigrationsDir = envOr("CRAWLER_MIGRATIONS_DIR", cfg.Postgres.MigrationsDir)

	cfg.Fetch.BaseCrawlDelay = envDurationOr("CRAWLER_BASE_CRAWL_DELAY", cfg.Fetch.BaseCrawlDelay)
	cfg.Fetch.MaxConcurrentPerHost = envIntOr("CRAWLER_MAX_CONCURRENT_PER_HOST", cfg.Fetch.MaxConcurrentPerHost)
	cfg.Fetch.JitterFraction = envFloatOr("CRAWLER_JITTER_FRACTION", cfg.Fetch.JitterFraction)
	cfg.Fetch.HeadlessTimeout = envDurationOr("CRAWLER_HEADLESS_TIMEOUT", cfg.Fetch.HeadlessTimeout)

	cfg.Resilience.FailureThreshold = uint32(envIntOr("CRAWLER_BREAKER_FAILURE_THRESHOLD", int(cfg.Resilience.FailureThreshold)))
	cfg.Resilience.OpenTimeout = envDurationOr("CRAWLER_BREAKER_OPEN_TIMEOUT", cfg.Resilience.OpenTimeout)
	cfg.Resilience.HalfOpenMaxRequests = uint32(envIntOr("CRAWLER_BREAKER_HALF_OPEN_MAX", int(cfg.Resilience.HalfOpenMaxRequests)))
	cfg.Resilience.StallTimeout = envDurationOr("CRAWLER_STALL_TIMEOUT", cfg.Resilience.StallTimeout)

	cfg.Queue.LeaseDuration = envDurationOr("CRAWLER_QUEUE_LEASE_DURATION", cfg.Queue.LeaseDuration)
	cfg.Queue.MaxInFlight = envIntOr("CRAWLER_QUEUE_MAX_IN_FLIGHT", cfg.Queue.MaxInFlight)
	cfg.Queue.PollInterval = envDurationOr("CRAWLER_QUEUE_POLL_INTERVAL", cfg.Queue.PollInterval)

	cfg.Discovery.MaxDepth = envIntOr("CRAWLER_DISCOVERY_MAX_DEPTH", cfg.Discovery.MaxDepth)
	cfg.Discovery.AllowedSchemes = envSliceOr("CRAWLER_ALLOWED_SCHEMES", cfg.Discovery.AllowedSchemes)

	cfg.Depth.MaxPagesPerHub = envIntOr("CRAWLER_DEPTH_MAX_PAGES_PER_HUB", cfg.Depth.MaxPagesPerHub)
	cfg.Depth.SimhashDistance = envIntOr("CRAWLER_DEPTH_SIMHASH_DISTANCE", cfg.Depth.SimhashDistance)

	cfg.DomainMode.AutoLearnWindow = envDurationOr("CRAWLER_DOMAINMODE_AUTO_LEARN_WINDOW", cfg.DomainMode.AutoLearnWindow)
	cfg.DomainMode.AutoLearnThreshold = envIntOr("CRAWLER_DOMAINMODE_AUTO_LEARN_THRESHOLD", cfg.DomainMode.AutoLearnThreshold)
	cfg.DomainMode.AutoApprove = envBoolOr("CRAWLER_DOMAINMODE_AUTO_APPROVE", cfg.DomainMode.AutoApprove)
	cfg.DomainMode.StatePath = envOr("CRAWLER_DOMAINMODE_STATE_PATH", cfg.DomainMode.StatePath)

	cfg.Classification.MinConfidence = envFloatOr("CRAWLER_CLASSIFICATION_MIN_CONFIDENCE", cfg.Classification.MinConfidence)
	cfg.Classification.RenderStageEnabled = envBoolOr("CRAWLER_RENDER_STAGE_ENABLED", cfg.Classification.RenderStageEnabled)

	cfg.Telemetry.MetricsAddr = envOr("CRAWLER_METRICS_ADDR", cfg.Telemetry.MetricsAddr)
	cfg.Telemetry.EventBufferSize = envIntOr("CRAWLER_EVENT_BUFFER_SIZE", cfg.Telemetry.EventBufferSize)

	cfg.Proxy.Enabled = envBoolOr("CRAWLER_PROXY_ENABLED", cfg.Proxy.Enabled)
	cfg.Proxy.Pool = envSliceOr("CRAWLER_PROXY_POOL", cfg.Proxy.Pool)
	cfg.Proxy.Strategy = envOr("CRAWLER_PROXY_STRATEGY", cfg.Proxy.Strategy)
	cfg.Proxy.BanThresholdFailures = envIntOr("CRAWLER_PROXY_BAN_THRESHOLD", cfg.Proxy.BanThresholdFailures)

	cfg.Webhook.URL = envOr("CRAWLER_WEBHOOK_URL", cfg.Webhook.URL)
	cfg.Webhook.Secret = envOr("CRAWLER_WEBHOOK_SECRET", cfg.Webhook.Secret)
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

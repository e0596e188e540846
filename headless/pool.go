package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"

	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/models"
)

// EventSink reports pool lifecycle events, the same function-type pattern
// used by politeness, resilience, and domainmode so headless can report
// into telemetry without importing it.
type EventSink func(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{})

func noopSink(models.EventType, models.Severity, string, map[string]interface{}) {}

// Defaults for the §4.F retirement and health-check rules.
const (
	DefaultMaxBrowsers        = 3
	DefaultMaxPagesPerSession = 50
	DefaultMaxSessionAge      = 10 * time.Minute
	DefaultHealthCheckPeriod  = 30 * time.Second
	DefaultAcquireTimeout     = 30 * time.Second
)

// ErrAcquireTimeout is returned when acquire() could not obtain a session
// before its deadline — the caller should fail that fetch rather than
// block indefinitely.
var ErrAcquireTimeout = errors.New("headless: acquire timed out waiting for a free session")

// Pool manages a bounded set of browser sessions (§4.F), generalizing the
// teacher's engine.AdaptivePool from per-page handles to whole
// *rod.Browser instances: acquire()/release() with LRU selection of
// healthy sessions, retirement by page count or age, and a periodic
// health check that replaces crashed sessions.
type Pool struct {
	browserCfg config.BrowserConfig

	maxBrowsers        int
	maxPagesPerSession int32
	maxSessionAge      time.Duration
	healthCheckPeriod  time.Duration
	acquireTimeout     time.Duration
	stealth            bool

	mu       sync.Mutex
	sessions map[int64]*Session
	idle     []int64 // session IDs, ordered oldest-used-first (front = LRU)
	waiters  chan struct{}
	nextID   atomic.Int64

	sink     EventSink
	stopped  chan struct{}
	stopOnce sync.Once
}

// Option configures a Pool at construction.
type Option func(*Pool)

func WithMaxBrowsers(n int) Option                 { return func(p *Pool) { p.maxBrowsers = n } }
func WithMaxPagesPerSession(n int32) Option        { return func(p *Pool) { p.maxPagesPerSession = n } }
func WithMaxSessionAge(d time.Duration) Option     { return func(p *Pool) { p.maxSessionAge = d } }
func WithHealthCheckPeriod(d time.Duration) Option { return func(p *Pool) { p.healthCheckPeriod = d } }
func WithAcquireTimeout(d time.Duration) Option    { return func(p *Pool) { p.acquireTimeout = d } }
func WithStealth(on bool) Option                  { return func(p *Pool) { p.stealth = on } }
func WithEventSink(sink EventSink) Option         { return func(p *Pool) { p.sink = sink } }

// NewPool constructs a headless session pool. It does not eagerly launch
// any browser — the first acquire() launches lazily, mirroring the
// teacher's pre-create-then-scale approach but deferred since launching
// Chromium is expensive relative to a page handle.
func NewPool(browserCfg config.BrowserConfig, opts ...Option) *Pool {
	p := &Pool{
		browserCfg:         browserCfg,
		maxBrowsers:        DefaultMaxBrowsers,
		maxPagesPerSession: DefaultMaxPagesPerSession,
		maxSessionAge:      DefaultMaxSessionAge,
		healthCheckPeriod:  DefaultHealthCheckPeriod,
		acquireTimeout:     DefaultAcquireTimeout,
		stealth:            true,
		sessions:           make(map[int64]*Session),
		waiters:            make(chan struct{}, 1),
		sink:               noopSink,
		stopped:            make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	if p.maxBrowsers < 1 {
		p.maxBrowsers = 1
	}

	go p.healthCheckLoop()
	return p
}

// Acquire hands back a page on the least-recently-used idle session when
// one exists, otherwise launches a new session if under maxBrowsers,
// otherwise blocks (bounded by acquireTimeout, and by ctx) until one frees
// up. Idle sessions are not pinged here: Release retires an unhealthy
// session instead of returning it to the idle list, and the periodic
// health check retires idle sessions that fail a ping.
func (p *Pool) Acquire(ctx context.Context) (*rod.Page, *Session, error) {
	deadline := time.Now().Add(p.acquireTimeout)

	for {
		if s, ok := p.tryTake(); ok {
			page, err := s.Page(p.stealth)
			if err != nil {
				p.retire(s, "page open failed")
				continue
			}
			p.sink(models.EventSessionAcquired, models.SeverityInfo, "", map[string]interface{}{
				"session_id": s.ID,
				"page_count": s.PageCount(),
			})
			return page, s, nil
		}

		p.mu.Lock()
		canLaunch := len(p.sessions) < p.maxBrowsers
		p.mu.Unlock()
		if canLaunch {
			s, err := p.launch()
			if err != nil {
				return nil, nil, fmt.Errorf("headless: launch session: %w", err)
			}
			page, err := s.Page(p.stealth)
			if err != nil {
				p.retire(s, "page open failed on fresh session")
				return nil, nil, fmt.Errorf("headless: open page on new session: %w", err)
			}
			p.sink(models.EventSessionAcquired, models.SeverityInfo, "", map[string]interface{}{
				"session_id": s.ID,
				"page_count": s.PageCount(),
			})
			return page, s, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil, ErrAcquireTimeout
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil, ctx.Err()
		case <-timer.C:
			return nil, nil, ErrAcquireTimeout
		case <-p.waiters:
			timer.Stop()
			// loop and retry
		}
	}
}

// Release returns a session to the idle pool, or retires it first if it
// has exceeded its page or age budget, replacing it is left to the next
// Acquire (lazy, matching the pool's lazy-launch policy).
func (p *Pool) Release(s *Session) {
	if s.PageCount() >= p.maxPagesPerSession || s.Age() >= p.maxSessionAge {
		p.retire(s, "exceeded page or age budget")
		return
	}
	if !s.Healthy() {
		p.retire(s, "unhealthy on release")
		return
	}

	p.mu.Lock()
	p.idle = append(p.idle, s.ID)
	p.mu.Unlock()

	p.sink(models.EventSessionReleased, models.SeverityInfo, "", map[string]interface{}{
		"session_id": s.ID,
	})
	p.notifyWaiter()
}

// Close shuts down the pool and all live sessions.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.stopped) })

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, s := range p.sessions {
		s.close()
		delete(p.sessions, id)
	}
	p.idle = nil
}

// Size reports the number of live sessions.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *Pool) tryTake() (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.idle) > 0 {
		id := p.idle[0]
		p.idle = p.idle[1:]
		s, ok := p.sessions[id]
		if !ok {
			continue // retired while idle
		}
		return s, true
	}
	return nil, false
}

func (p *Pool) launch() (*Session, error) {
	browser, err := launchBrowser(p.browserCfg)
	if err != nil {
		return nil, err
	}
	id := p.nextID.Add(1)
	s := newSession(id, browser)

	p.mu.Lock()
	p.sessions[id] = s
	p.mu.Unlock()

	p.sink(models.EventSessionLaunched, models.SeverityInfo, "", map[string]interface{}{
		"session_id": id,
	})
	return s, nil
}

func (p *Pool) retire(s *Session, reason string) {
	p.mu.Lock()
	delete(p.sessions, s.ID)
	p.mu.Unlock()

	s.close()
	p.sink(models.EventSessionRetired, models.SeverityWarning, "", map[string]interface{}{
		"session_id": s.ID,
		"reason":     reason,
		"page_count": s.PageCount(),
		"age_ms":     s.Age().Milliseconds(),
	})
	p.notifyWaiter()
}

func (p *Pool) notifyWaiter() {
	select {
	case p.waiters <- struct{}{}:
	default:
	}
}

// healthCheckLoop periodically pings idle sessions and retires any that
// fail, replacing crashed browsers before they are handed to a fetch.
func (p *Pool) healthCheckLoop() {
	ticker := time.NewTicker(p.healthCheckPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopped:
			return
		case <-ticker.C:
			p.checkIdleHealth()
		}
	}
}

func (p *Pool) checkIdleHealth() {
	p.mu.Lock()
	idIDs := make([]int64, len(p.idle))
	copy(idIDs, p.idle)
	p.mu.Unlock()

	for _, id := range idIDs {
		p.mu.Lock()
		s, ok := p.sessions[id]
		p.mu.Unlock()
		if !ok {
			continue
		}
		if !s.Healthy() || s.Age() >= p.maxSessionAge {
			p.mu.Lock()
			for i, v := range p.idle {
				if v == id {
					p.idle = append(p.idle[:i], p.idle[i+1:]...)
					break
				}
			}
			p.mu.Unlock()
			p.retire(s, "failed periodic health check")
		}
	}
}

// Package politeness implements the per-host rate limiter and politeness
// scheduler (§4.B): a token-bucket-like inter-request delay that adapts to
// 429/503 responses and honours robots.txt Crawl-delay.
package politeness

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/metabench/hubcrawl/models"
)

// EventSink receives politeness-originated events (rate.backoff). Plain
// function type so this package never imports telemetry.
type EventSink func(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{})

const (
	backoffMultiplier  = 2.0
	backoffCap         = 5 * time.Minute
	successesToRecover = 5
)

// hostState tracks the scheduling state for one host. Guarded by
// Scheduler.mu; never accessed without it held.
type hostState struct {
	floor              time.Duration // learned/base minimum delay
	crawlDelay         time.Duration // robots.txt override, 0 if unset
	current            time.Duration // currently enforced delay
	lastRequestAt      time.Time
	consecutiveSuccess int
	sem                chan struct{} // concurrency cap for this host
}

// Scheduler is the sole authority over when a fetch worker may issue its
// next request to a given host. Every fetch goes through Acquire.
type Scheduler struct {
	mu             sync.Mutex
	hosts          map[string]*hostState
	baseDelay      time.Duration
	jitterFraction float64
	maxConcurrent  int
	rng            *rand.Rand
	rngMu          sync.Mutex
	sink           EventSink
}

// New builds a Scheduler with the given base delay, per-host concurrency
// cap, and jitter fraction (0.2 adds a random 0-20% of the resolved delay).
func New(baseDelay time.Duration, maxConcurrentPerHost int, jitterFraction float64) *Scheduler {
	return &Scheduler{
		hosts:          make(map[string]*hostState),
		baseDelay:      baseDelay,
		jitterFraction: jitterFraction,
		maxConcurrent:  maxConcurrentPerHost,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		sink:           func(models.EventType, models.Severity, string, map[string]interface{}) {},
	}
}

// SetEventSink wires an emitter for rate.backoff events. Optional; events
// are dropped if never set.
func (s *Scheduler) SetEventSink(sink EventSink) {
	if sink != nil {
		s.sink = sink
	}
}

// Lease is a single-use permit to issue one request to a host. Release
// must be called exactly once, typically via defer immediately after
// Acquire succeeds.
type Lease struct {
	sched *Scheduler
	host  string
	once  sync.Once
}

// Release returns the host's concurrency slot. Safe to call multiple
// times; only the first call has effect.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.sched.mu.Lock()
		st := l.sched.hosts[l.host]
		l.sched.mu.Unlock()
		if st != nil {
			<-st.sem
		}
	})
}

func (s *Scheduler) stateFor(host string) *hostState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.hosts[host]
	if !ok {
		st = &hostState{
			floor: s.baseDelay,
			sem:   make(chan struct{}, s.maxConcurrent),
		}
		s.hosts[host] = st
	}
	return st
}

// SetCrawlDelay records a robots.txt Crawl-delay for host, which acts as
// a floor alongside the configured base delay and any learned backoff.
func (s *Scheduler) SetCrawlDelay(host string, delay time.Duration) {
	st := s.stateFor(host)
	s.mu.Lock()
	st.crawlDelay = delay
	s.mu.Unlock()
}

// Acquire blocks until a concurrency slot and a politeness token for host
// are both available, or ctx is cancelled. The returned Lease must be
// released exactly once.
func (s *Scheduler) Acquire(ctx context.Context, host string) (*Lease, error) {
	st := s.stateFor(host)

	select {
	case st.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	wait := s.waitDuration(st)
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			<-st.sem
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	st.lastRequestAt = time.Now()
	s.mu.Unlock()

	return &Lease{sched: s, host: host}, nil
}

// waitDuration computes how long the caller must still wait, per the
// resolved-delay rule: max(floor, crawlDelay, current) + jitter - elapsed.
func (s *Scheduler) waitDuration(st *hostState) time.Duration {
	s.mu.Lock()
	floor, crawlDelay, current, lastRequestAt := st.floor, st.crawlDelay, st.current, st.lastRequestAt
	s.mu.Unlock()

	resolved := floor
	if crawlDelay > resolved {
		resolved = crawlDelay
	}
	if current > resolved {
		resolved = current
	}
	resolved += s.jitter(resolved)

	if lastRequestAt.IsZero() {
		return 0
	}
	elapsed := time.Since(lastRequestAt)
	if elapsed >= resolved {
		return 0
	}
	return resolved - elapsed
}

func (s *Scheduler) jitter(base time.Duration) time.Duration {
	if s.jitterFraction <= 0 || base <= 0 {
		return 0
	}
	max := time.Duration(float64(base) * s.jitterFraction)
	if max <= 0 {
		return 0
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return time.Duration(s.rng.Int63n(int64(max)))
}

// RecordStatus adapts the host's delay to an observed response: 429/503
// double the delay (capped), any other status increments the
// consecutive-success counter and halves the delay back toward the floor
// every successesToRecover successes.
func (s *Scheduler) RecordStatus(host string, status int) {
	st := s.stateFor(host)
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == 429 || status == 503 {
		st.consecutiveSuccess = 0
		next := time.Duration(float64(maxDuration(st.current, st.floor)) * backoffMultiplier)
		if next > backoffCap {
			next = backoffCap
		}
		st.current = next
		s.sink(models.EventRateBackoff, models.SeverityWarning, host, map[string]interface{}{
			"status":        status,
			"next_delay_ms": next.Milliseconds(),
		})
		return
	}

	st.consecutiveSuccess++
	if st.consecutiveSuccess >= successesToRecover && st.current > st.floor {
		st.current /= 2
		if st.current < st.floor {
			st.current = st.floor
		}
		st.consecutiveSuccess = 0
	}
}

// CurrentDelay reports the delay presently enforced for host, for
// telemetry and the S5 rate-limiter-backoff testable property.
func (s *Scheduler) CurrentDelay(host string) time.Duration {
	st := s.stateFor(host)
	s.mu.Lock()
	defer s.mu.Unlock()
	return maxDuration(st.current, maxDuration(st.floor, st.crawlDelay))
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

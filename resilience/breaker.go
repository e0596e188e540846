// Package resilience implements the per-host resilience service (§4.C):
// circuit breakers backed by github.com/sony/gobreaker, a stall detector,
// and the crawl-wide cancellation signal.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/models"
)

// EventSink receives resilience-originated events (breaker.open,
// breaker.closed, stalled) for the telemetry layer to persist. Kept as a
// plain function type so this package never imports telemetry.
type EventSink func(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{})

// Service owns one gobreaker.CircuitBreaker per host.
type Service struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	cfg      config.ResilienceConfig
	sink     EventSink

	lastErrMu sync.Mutex
	lastErr   map[string]string

	heartbeatMu   sync.Mutex
	lastHeartbeat time.Time
}

// New builds a resilience Service. sink may be nil, in which case events
// are dropped.
func New(cfg config.ResilienceConfig, sink EventSink) *Service {
	if sink == nil {
		sink = func(models.EventType, models.Severity, string, map[string]interface{}) {}
	}
	return &Service{
		breakers:      make(map[string]*gobreaker.CircuitBreaker),
		cfg:           cfg,
		sink:          sink,
		lastErr:       make(map[string]string),
		lastHeartbeat: time.Now(),
	}
}

func (s *Service) breakerFor(host string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[host]
	if ok {
		return cb
	}
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: s.cfg.HalfOpenMaxRequests,
		Timeout:     s.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.onStateChange(name, from, to)
		},
	})
	s.breakers[host] = cb
	return cb
}

func (s *Service) onStateChange(host string, from, to gobreaker.State) {
	switch to {
	case gobreaker.StateOpen:
		s.sink(models.EventBreakerOpened, models.SeverityWarning, host, map[string]interface{}{
			"from": from.String(),
		})
	case gobreaker.StateClosed:
		s.sink(models.EventBreakerClosed, models.SeverityInfo, host, map[string]interface{}{
			"from": from.String(),
		})
	}
}

// ShouldAttempt reports whether host's breaker currently permits a fetch
// attempt. Used by the fetch pipeline's first step ("ask circuit
// breaker") before any work is done, so a deferred URL is never counted
// as an attempt.
func (s *Service) ShouldAttempt(host string) bool {
	return s.breakerFor(host).State() != gobreaker.StateOpen
}

// Snapshot returns the current breaker state for a host in the persisted
// shape (§3), for optional shutdown snapshotting.
func (s *Service) Snapshot(host string) models.CircuitBreakerState {
	cb := s.breakerFor(host)
	counts := cb.Counts()
	st := models.CircuitBreakerState{
		Host:                host,
		State:               mapState(cb.State()),
		FailureCount:        int(counts.TotalFailures),
		ConsecutiveFailures: int(counts.ConsecutiveFailures),
	}
	return st
}

func mapState(s gobreaker.State) models.BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return models.BreakerOpen
	case gobreaker.StateHalfOpen:
		return models.BreakerHalfOpen
	default:
		return models.BreakerClosed
	}
}

// ErrBreakerOpen is returned by Execute when the call was rejected by an
// open breaker, without fn ever running.
var ErrBreakerOpen = errors.New("resilience: breaker open")

// Execute runs fn under host's breaker. If the breaker is open, fn is
// never called and ErrBreakerOpen is returned; the caller must treat this
// as "deferred", not as a failed fetch attempt. Any error returned by fn
// counts as a breaker failure; a nil error counts as a success.
func (s *Service) Execute(host string, fn func() error) error {
	_, err := s.breakerFor(host).Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrBreakerOpen
	}
	if err != nil {
		s.recordLastErr(host, err)
	}
	return err
}

func (s *Service) recordLastErr(host string, err error) {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	s.lastErr[host] = err.Error()
}

// LastError returns the most recent failure message recorded for host,
// for the stall detector's diagnostic dump.
func (s *Service) LastError(host string) string {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr[host]
}

// OpenHosts lists every host whose breaker is currently OPEN, for the
// stall detector's diagnostic dump.
func (s *Service) OpenHosts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hosts []string
	for host, cb := range s.breakers {
		if cb.State() == gobreaker.StateOpen {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// RecordHeartbeat marks that a successful fetch occurred, for the stall
// detector's "no successful fetch across any host for T seconds" rule.
func (s *Service) RecordHeartbeat() {
	s.heartbeatMu.Lock()
	s.lastHeartbeat = time.Now()
	s.heartbeatMu.Unlock()
}

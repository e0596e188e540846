// Package domainmode implements the domain-mode manager (§4.G): it counts
// connection-reset failures per host within a fixed time window and
// auto-promotes a host to headless-only fetching once the count crosses a
// threshold.
//
// Generalizes the teacher's engine.DomainMemory ("best engine per
// domain", TTL map) from a single remembered string into a tiered state
// machine, persisted to a JSON-shaped store surviving restarts.
package domainmode

import (
	"sync"
	"time"

	"github.com/metabench/hubcrawl/models"
)

// EventSink receives domain-mode events (failure_recorded, and
// mode_escalated carrying the new tier).
type EventSink func(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{})

// Manager owns the in-memory DomainMode table. Call Load at startup and
// Save on a timer or at shutdown to persist it.
type Manager struct {
	mu    sync.RWMutex
	modes map[string]*models.DomainMode

	autoLearnWindow    time.Duration
	autoLearnThreshold int
	autoApprove        bool

	sink EventSink
}

// New builds a Manager. autoLearnWindow/autoLearnThreshold/autoApprove
// mirror §4.G's defaults (5 min / 3 / operator-configured).
func New(autoLearnWindow time.Duration, autoLearnThreshold int, autoApprove bool, sink EventSink) *Manager {
	if sink == nil {
		sink = func(models.EventType, models.Severity, string, map[string]interface{}) {}
	}
	return &Manager{
		modes:              make(map[string]*models.DomainMode),
		autoLearnWindow:    autoLearnWindow,
		autoLearnThreshold: autoLearnThreshold,
		autoApprove:        autoApprove,
		sink:               sink,
	}
}

func (m *Manager) stateFor(host string) *models.DomainMode {
	if dm, ok := m.modes[host]; ok {
		return dm
	}
	// Tier stays empty until the host is promoted or set manually.
	dm := &models.DomainMode{
		Host:        host,
		Mode:        models.ModeHTTPOnly,
		WindowStart: time.Now(),
	}
	m.modes[host] = dm
	return dm
}

// ShouldUseHeadless reports whether host's current mode routes fetches
// through the headless pool.
func (m *Manager) ShouldUseHeadless(host string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dm, ok := m.modes[host]
	if !ok {
		return false
	}
	return dm.Mode == models.ModeHeadless || dm.Mode == models.ModeAutoEscalate
}

// ManualPromote sets a host to manual tier with the given mode. Manual
// entries are never auto-demoted or overwritten by RecordFailure.
func (m *Manager) ManualPromote(host string, mode models.FetchMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dm := m.stateFor(host)
	dm.Mode = mode
	dm.Tier = models.TierManual
}

// RecordFailure records a connection-reset-class failure for host.
// Failures are counted in a fixed window that opens at the host's first
// failure and restarts at the first failure recorded more than
// autoLearnWindow after it opened; every failure in the window counts. If
// the count reaches autoLearnThreshold, the host is promoted to learned
// (if autoApprove) or pending otherwise. Manual-tier hosts are left
// untouched.
func (m *Manager) RecordFailure(host string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dm := m.stateFor(host)
	if dm.Tier == models.TierManual {
		return
	}

	now := time.Now()
	if now.Sub(dm.WindowStart) > m.autoLearnWindow {
		dm.WindowStart = now
		dm.FailureCount = 0
	}
	dm.FailureCount++
	dm.LastFailureAt = &now

	m.sink(models.EventFailureRecorded, models.SeverityInfo, host, map[string]interface{}{
		"failure_count": dm.FailureCount,
	})

	if dm.FailureCount < m.autoLearnThreshold {
		return
	}
	if dm.Tier == models.TierLearned || dm.Tier == models.TierPending {
		return
	}

	if m.autoApprove {
		dm.Tier = models.TierLearned
		dm.Mode = models.ModeHeadless
		m.sink(models.EventModeEscalated, models.SeverityWarning, host, map[string]interface{}{
			"tier": string(models.TierLearned),
		})
	} else {
		dm.Tier = models.TierPending
		m.sink(models.EventModeEscalated, models.SeverityInfo, host, map[string]interface{}{
			"tier": string(models.TierPending),
		})
	}
}

// ApprovePending promotes a pending host to learned, the manual-approval
// path for when autoApprove is false.
func (m *Manager) ApprovePending(host string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	dm, ok := m.modes[host]
	if !ok || dm.Tier != models.TierPending {
		return false
	}
	dm.Tier = models.TierLearned
	dm.Mode = models.ModeHeadless
	m.sink(models.EventModeEscalated, models.SeverityInfo, host, map[string]interface{}{
		"tier": string(models.TierLearned),
	})
	return true
}

// Snapshot returns a copy of every tracked DomainMode, for persistence.
func (m *Manager) Snapshot() []models.DomainMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DomainMode, 0, len(m.modes))
	for _, dm := range m.modes {
		out = append(out, *dm)
	}
	return out
}

// Restore seeds the manager from previously persisted state (Load).
func (m *Manager) Restore(entries []models.DomainMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range entries {
		e := entries[i]
		m.modes[e.Host] = &e
	}
}

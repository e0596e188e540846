// Package proxy implements the proxy-rotation manager named in spec.md
// §6's persisted state layout: providers, a selection strategy, and
// ban-on-failure-threshold bookkeeping. It is intentionally NOT wired
// into the fetch pipeline's transport yet (spec.md's Open Question:
// "its integration with the fetch path awaits a proxy-transport
// dependency — defer until added") — Manager is a complete, real
// component for configuration and status reporting, just not yet
// consulted by fetch.EventSink's caller.
package proxy

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/metabench/hubcrawl/config"
)

// Strategy selects which provider to hand out next.
type Strategy string

const (
	StrategyRoundRobin Strategy = "round-robin"
	StrategyPriority   Strategy = "priority"
	StrategyRandom     Strategy = "random"
	StrategyLeastUsed  Strategy = "least-used"
)

// Provider is one upstream proxy entry, mirroring
// config.ProxyProviderConfig plus runtime ban/usage state.
type Provider struct {
	Name     string
	Type     string
	Host     string
	Port     int
	Auth     string
	Priority int
	Enabled  bool
	Tags     []string

	useCount        int64
	consecutiveFail int
	bannedUntil     time.Time
}

// Addr returns the dial address ("host:port") for this provider.
func (p Provider) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

func (p *Provider) banned(now time.Time) bool {
	return !p.bannedUntil.IsZero() && now.Before(p.bannedUntil)
}

// ErrNoAvailableProvider is returned by Next when every enabled
// provider is currently banned (or none are configured/enabled).
var ErrNoAvailableProvider = errors.New("proxy: no available provider")

// Manager rotates through a pool of providers per the configured
// Strategy, banning a provider for BanDuration after BanThreshold
// consecutive failures.
type Manager struct {
	mu   sync.Mutex
	strategy Strategy
	banThreshold int
	banDuration  time.Duration

	providers []*Provider
	rrCursor  int

	now func() time.Time
}

// New builds a Manager from config.ProxyConfig. Providers is the
// primary source; Pool (a flat SOCKS5 URL list) is accepted as a
// backward-compatible shorthand and turned into unnamed, equal-priority
// providers when Providers is empty.
func New(cfg config.ProxyConfig) (*Manager, error) {
	strategy := Strategy(cfg.Strategy)
	switch strategy {
	case StrategyRoundRobin, StrategyPriority, StrategyRandom, StrategyLeastUsed:
	case "":
		strategy = StrategyRoundRobin
	default:
		return nil, fmt.Errorf("proxy: unknown strategy %q", cfg.Strategy)
	}

	banThreshold := cfg.BanThresholdFailures
	if banThreshold <= 0 {
		banThreshold = 3
	}
	banDuration := time.Duration(cfg.BanDurationMs) * time.Millisecond
	if banDuration <= 0 {
		banDuration = 5 * time.Minute
	}

	m := &Manager{
		strategy:     strategy,
		banThreshold: banThreshold,
		banDuration:  banDuration,
		now:          time.Now,
	}

	for _, pc := range cfg.Providers {
		m.providers = append(m.providers, &Provider{
			Name: pc.Name, Type: pc.Type, Host: pc.Host, Port: pc.Port,
			Auth: pc.Auth, Priority: pc.Priority, Enabled: pc.Enabled, Tags: pc.Tags,
		})
	}
	if len(cfg.Providers) == 0 {
		for i, raw := range cfg.Pool {
			m.providers = append(m.providers, &Provider{
				Name: fmt.Sprintf("pool-%d", i), Type: "socks5", Host: raw, Enabled: true,
			})
		}
	}
	return m, nil
}

// Next selects the next provider to use per the configured strategy,
// skipping disabled and currently-banned providers.
func (m *Manager) Next() (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	available := m.availableLocked()
	if len(available) == 0 {
		return Provider{}, ErrNoAvailableProvider
	}

	var chosen *Provider
	switch m.strategy {
	case StrategyPriority:
		sort.SliceStable(available, func(i, j int) bool { return available[i].Priority > available[j].Priority })
		chosen = available[0]
	case StrategyRandom:
		chosen = available[rand.Intn(len(available))]
	case StrategyLeastUsed:
		sort.SliceStable(available, func(i, j int) bool { return available[i].useCount < available[j].useCount })
		chosen = available[0]
	default: // StrategyRoundRobin
		chosen = available[m.rrCursor%len(available)]
		m.rrCursor++
	}
	chosen.useCount++
	return *chosen, nil
}

func (m *Manager) availableLocked() []*Provider {
	now := m.now()
	var out []*Provider
	for _, p := range m.providers {
		if p.Enabled && !p.banned(now) {
			out = append(out, p)
		}
	}
	return out
}

// RecordFailure increments a provider's consecutive-failure count and
// bans it for BanDuration once it reaches BanThresholdFailures.
func (m *Manager) RecordFailure(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findLocked(name)
	if p == nil {
		return
	}
	p.consecutiveFail++
	if p.consecutiveFail >= m.banThreshold {
		p.bannedUntil = m.now().Add(m.banDuration)
	}
}

// RecordSuccess resets a provider's consecutive-failure count.
func (m *Manager) RecordSuccess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findLocked(name)
	if p == nil {
		return
	}
	p.consecutiveFail = 0
}

func (m *Manager) findLocked(name string) *Provider {
	for _, p := range m.providers {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Status is a snapshot of one provider's rotation state, for the status-
// reporting surface (§6 Open Question: integration deferred, reporting
// is not).
type Status struct {
	Provider   string
	Enabled    bool
	Banned     bool
	UseCount   int64
	FailStreak int
}

// StatusAll returns a status snapshot for every configured provider.
func (m *Manager) StatusAll() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make([]Status, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, Status{
			Provider:   p.Name,
			Enabled:    p.Enabled,
			Banned:     p.banned(now),
			UseCount:   p.useCount,
			FailStreak: p.consecutiveFail,
		})
	}
	return out
}

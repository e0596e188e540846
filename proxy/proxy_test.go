package proxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/config"
)

func threeProviderConfig(strategy string) config.ProxyConfig {
	return config.ProxyConfig{
		Strategy:             strategy,
		BanThresholdFailures: 2,
		BanDurationMs:        60_000,
		Providers: []config.ProxyProviderConfig{
			{Name: "a", Host: "proxy-a.example.com", Port: 1080, Priority: 1, Enabled: true},
			{Name: "b", Host: "proxy-b.example.com", Port: 1080, Priority: 3, Enabled: true},
			{Name: "c", Host: "proxy-c.example.com", Port: 1080, Priority: 2, Enabled: true},
		},
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New(config.ProxyConfig{Strategy: "bogus"})
	assert.Error(t, err)
}

func TestNewBuildsUnnamedProvidersFromPoolWhenProvidersEmpty(t *testing.T) {
	m, err := New(config.ProxyConfig{Pool: []string{"10.0.0.1:1080", "10.0.0.2:1080"}})
	require.NoError(t, err)
	statuses := m.StatusAll()
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Enabled)
}

func TestNextRoundRobinCyclesThroughProviders(t *testing.T) {
	m, err := New(threeProviderConfig("round-robin"))
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		p, err := m.Next()
		require.NoError(t, err)
		seen[p.Name] = true
	}
	assert.Len(t, seen, 3)

	p, err := m.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name) // cursor wraps back to the first provider
}

func TestNextPriorityAlwaysPicksHighestPriority(t *testing.T) {
	m, err := New(threeProviderConfig("priority"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		p, err := m.Next()
		require.NoError(t, err)
		assert.Equal(t, "b", p.Name)
	}
}

func TestNextLeastUsedPrefersLowerUseCount(t *testing.T) {
	m, err := New(threeProviderConfig("least-used"))
	require.NoError(t, err)

	first, err := m.Next()
	require.NoError(t, err)
	second, err := m.Next()
	require.NoError(t, err)
	assert.NotEqual(t, first.Name, second.Name)
}

func TestRecordFailureBansAfterThreshold(t *testing.T) {
	cfg := threeProviderConfig("priority")
	m, err := New(cfg)
	require.NoError(t, err)

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.RecordFailure("b")
	m.RecordFailure("b")

	p, err := m.Next()
	require.NoError(t, err)
	assert.Equal(t, "c", p.Name) // "b" is banned, "c" is next highest priority
}

func TestRecordSuccessResetsFailureStreak(t *testing.T) {
	m, err := New(threeProviderConfig("priority"))
	require.NoError(t, err)

	m.RecordFailure("b")
	m.RecordSuccess("b")

	statuses := m.StatusAll()
	for _, s := range statuses {
		if s.Provider == "b" {
			assert.Equal(t, 0, s.FailStreak)
		}
	}
}

func TestNextReturnsErrWhenAllProvidersBanned(t *testing.T) {
	cfg := config.ProxyConfig{
		Strategy:             "round-robin",
		BanThresholdFailures: 1,
		BanDurationMs:        60_000,
		Providers: []config.ProxyProviderConfig{
			{Name: "solo", Host: "proxy.example.com", Port: 1080, Enabled: true},
		},
	}
	m, err := New(cfg)
	require.NoError(t, err)

	m.RecordFailure("solo")

	_, err = m.Next()
	assert.ErrorIs(t, err, ErrNoAvailableProvider)
}

func TestNextReturnsErrWhenNoProvidersConfigured(t *testing.T) {
	m, err := New(config.ProxyConfig{})
	require.NoError(t, err)

	_, err = m.Next()
	assert.ErrorIs(t, err, ErrNoAvailableProvider)
}

func TestAddrFormatsHostPort(t *testing.T) {
	p := Provider{Host: "proxy.example.com", Port: 1080}
	assert.Equal(t, "proxy.example.com:1080", p.Addr())
}

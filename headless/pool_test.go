package headless

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/metabench/hubcrawl/config"
)

// Session retirement rules are pure functions of Session state and don't
// require a live browser connection to exercise, so these tests construct
// Sessions directly without launching Chromium.

func TestSessionPageCountIncrementsWithoutLaunch(t *testing.T) {
	s := &Session{ID: 1}
	assert.Equal(t, int32(0), s.PageCount())
	s.pages.Add(1)
	assert.Equal(t, int32(1), s.PageCount())
}

func TestSessionAgeGrowsMonotonically(t *testing.T) {
	s := newSessionForTest(1, time.Now().Add(-time.Hour))
	assert.GreaterOrEqual(t, s.Age(), time.Hour)
}

func TestPoolDefaultsAppliedWhenUnset(t *testing.T) {
	// NewPool launches no browser, so it is safe to construct here.
	p := NewPool(config.BrowserConfig{}, WithMaxBrowsers(0))
	defer p.Close()
	assert.Equal(t, 1, p.maxBrowsers)
}

func TestPoolOptionsOverrideDefaults(t *testing.T) {
	// Each Option is applied to a zero-value Pool directly, confirming the
	// field it sets.
	p := &Pool{}
	WithMaxBrowsers(5)(p)
	WithMaxPagesPerSession(10)(p)
	WithMaxSessionAge(2 * time.Minute)(p)
	WithHealthCheckPeriod(5 * time.Second)(p)
	WithAcquireTimeout(1 * time.Second)(p)
	WithStealth(false)(p)

	assert.Equal(t, 5, p.maxBrowsers)
	assert.Equal(t, int32(10), p.maxPagesPerSession)
	assert.Equal(t, 2*time.Minute, p.maxSessionAge)
	assert.Equal(t, 5*time.Second, p.healthCheckPeriod)
	assert.Equal(t, 1*time.Second, p.acquireTimeout)
	assert.False(t, p.stealth)
}

func newSessionForTest(id int64, created time.Time) *Session {
	s := &Session{ID: id, created: created}
	s.lastUsed.Store(created.UnixNano())
	return s
}

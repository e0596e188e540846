package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/models"
)

func testConfig() config.ResilienceConfig {
	return config.ResilienceConfig{
		FailureThreshold:    3,
		OpenTimeout:         20 * time.Millisecond,
		HalfOpenMaxRequests: 1,
		StallTimeout:        time.Second,
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	svc := New(testConfig(), nil)
	host := "flaky.example.com"

	boom := errors.New("connection reset")
	for i := 0; i < 3; i++ {
		err := svc.Execute(host, func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.False(t, svc.ShouldAttempt(host))
	err := svc.Execute(host, func() error { return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	svc := New(testConfig(), nil)
	host := "recovering.example.com"

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		_ = svc.Execute(host, func() error { return boom })
	}
	require.False(t, svc.ShouldAttempt(host))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, svc.ShouldAttempt(host))

	err := svc.Execute(host, func() error { return nil })
	assert.NoError(t, err)
	assert.True(t, svc.ShouldAttempt(host))
}

func TestSnapshotReflectsState(t *testing.T) {
	svc := New(testConfig(), nil)
	snap := svc.Snapshot("fresh.example.com")
	assert.Equal(t, models.BreakerClosed, snap.State)
}

func TestCancelSignalTripsOnce(t *testing.T) {
	sig := NewCancelSignal(context.Background())
	sig.Trip("operator requested shutdown")
	sig.Trip("second call is a no-op")
	assert.True(t, sig.Tripped())
	assert.Equal(t, "operator requested shutdown", sig.Reason())
}

package politeness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireEnforcesDelay(t *testing.T) {
	s := New(50*time.Millisecond, 1, 0)
	ctx := context.Background()

	start := time.Now()
	l1, err := s.Acquire(ctx, "example.com")
	require.NoError(t, err)
	l1.Release()

	l2, err := s.Acquire(ctx, "example.com")
	require.NoError(t, err)
	elapsed := time.Since(start)
	l2.Release()

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestRecordStatusBacksOffOn429(t *testing.T) {
	s := New(10*time.Millisecond, 1, 0)
	s.stateFor("example.com")

	s.RecordStatus("example.com", 429)
	delay := s.CurrentDelay("example.com")
	assert.GreaterOrEqual(t, delay, 20*time.Millisecond)
}

func TestRecordStatusRecoversAfterSuccesses(t *testing.T) {
	s := New(10*time.Millisecond, 1, 0)
	s.RecordStatus("example.com", 429)
	before := s.CurrentDelay("example.com")

	for i := 0; i < successesToRecover; i++ {
		s.RecordStatus("example.com", 200)
	}
	after := s.CurrentDelay("example.com")
	assert.Less(t, after, before)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	s := New(time.Hour, 1, 0)
	ctx := context.Background()
	l, err := s.Acquire(ctx, "slow.example.com")
	require.NoError(t, err)
	defer l.Release()

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Acquire(cctx, "slow.example.com")
	assert.Error(t, err)
}

func TestParseCrawlDelay(t *testing.T) {
	body := "User-agent: *\nCrawl-delay: 5\n\nUser-agent: Googlebot\nCrawl-delay: 1\n"
	d, ok := ParseCrawlDelay(body, "Googlebot/2.1")
	require.True(t, ok)
	assert.Equal(t, time.Second, d)

	d, ok = ParseCrawlDelay(body, "SomeOtherBot/1.0")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	_, ok = ParseCrawlDelay("User-agent: *\nDisallow: /\n", "bot")
	assert.False(t, ok)
}

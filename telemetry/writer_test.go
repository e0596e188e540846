package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/models"
)

type fakeEventStore struct {
	mu       sync.Mutex
	inserted [][]models.TaskEvent
	err      error
}

func (f *fakeEventStore) InsertEvents(ctx context.Context, events []models.TaskEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	batch := make([]models.TaskEvent, len(events))
	copy(batch, events)
	f.inserted = append(f.inserted, batch)
	return nil
}

func (f *fakeEventStore) totalInserted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.inserted {
		n += len(b)
	}
	return n
}

func TestWriterFlushesOnSizeThreshold(t *testing.T) {
	store := &fakeEventStore{}
	w := NewWriter(store, 3, time.Hour, nil)
	defer w.Close()

	w.Emit(models.EventFetchStarted, models.SeverityInfo, "example.com/a", nil)
	w.Emit(models.EventFetchStarted, models.SeverityInfo, "example.com/b", nil)
	assert.Eventually(t, func() bool { return store.totalInserted() == 0 }, 200*time.Millisecond, 10*time.Millisecond)

	w.Emit(models.EventFetchStarted, models.SeverityInfo, "example.com/c", nil)
	require.Eventually(t, func() bool { return store.totalInserted() == 3 }, time.Second, 10*time.Millisecond)
}

func TestWriterFlushesOnTimer(t *testing.T) {
	store := &fakeEventStore{}
	w := NewWriter(store, 100, 20*time.Millisecond, nil)
	defer w.Close()

	w.Emit(models.EventFetchStarted, models.SeverityInfo, "example.com", nil)
	require.Eventually(t, func() bool { return store.totalInserted() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWriterCloseFlushesRemainingEvents(t *testing.T) {
	store := &fakeEventStore{}
	w := NewWriter(store, 100, time.Hour, nil)

	w.Emit(models.EventFetchStarted, models.SeverityInfo, "example.com", nil)
	w.Close()

	assert.Equal(t, 1, store.totalInserted())
}

func TestWriterRetainsEventsAfterFlushFailure(t *testing.T) {
	store := &fakeEventStore{err: assert.AnError}
	w := NewWriter(store, 1, time.Hour, nil)
	defer w.Close()

	w.Emit(models.EventFetchStarted, models.SeverityInfo, "example.com", nil)
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.buf) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWriterNotifiesSubscribers(t *testing.T) {
	store := &fakeEventStore{}
	w := NewWriter(store, 100, time.Hour, nil)
	defer w.Close()

	var got models.TaskEvent
	var mu sync.Mutex
	w.Subscribe(func(e models.TaskEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = e
	})

	w.Emit(models.EventClassified, models.SeverityInfo, "example.com/x", map[string]interface{}{"scope": "article"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got.EventType == models.EventClassified
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, "article", got.Scope)
	assert.Equal(t, "example.com/x", got.Target)
	mu.Unlock()
}

func TestWriterEmitRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := &fakeEventStore{}
	w := NewWriter(store, 100, time.Hour, m)
	defer w.Close()

	w.Emit(models.EventFetchCompleted, models.SeverityInfo, "example.com", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues(string(models.EventFetchCompleted), string(models.SeverityInfo))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("completed")))
}

// Package telemetry implements the append-only event log and metrics
// exporter (§4.M): writers batch TaskEvents and flush on a timer or size
// threshold, readers stream by task id or event type, and a parallel set
// of Prometheus counters/gauges is updated alongside every event so
// operators have both a replayable log and a dashboard-friendly surface.
// Events are never the source of truth for evidence — HttpResponse rows
// remain that; events are for observability only.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/metabench/hubcrawl/models"
)

// EventStore is the writer's persistence dependency, backed in
// production by store.Store.InsertEvents.
type EventStore interface {
	InsertEvents(ctx context.Context, events []models.TaskEvent) error
}

// Subscriber receives every event as the Writer buffers it, in addition
// to the batched store write. Used to feed the streaming event channel
// (§6) and webhook.FromTaskEvent without a second read round trip.
type Subscriber func(models.TaskEvent)

// Writer batches TaskEvents and flushes on a size threshold or a timer,
// matching §4.M's "writers batch events and flush on a timer or size
// threshold" requirement.
type Writer struct {
	store EventStore

	flushSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	buf     []models.TaskEvent
	closeCh chan struct{}
	doneCh  chan struct{}

	subsMu sync.RWMutex
	subs   []Subscriber

	metrics *Metrics
}

// NewWriter builds a Writer. flushSize <= 0 defaults to 256 (the
// config.TelemetryConfig.EventBufferSize default); flushInterval <= 0
// defaults to 2s.
func NewWriter(store EventStore, flushSize int, flushInterval time.Duration, metrics *Metrics) *Writer {
	if flushSize <= 0 {
		flushSize = 256
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	w := &Writer{
		store:         store,
		flushSize:     flushSize,
		flushInterval: flushInterval,
		closeCh:       make(chan struct{}),
		doneCh:        make(chan struct{}),
		metrics:       metrics,
	}
	go w.run()
	return w
}

// Subscribe registers a callback invoked for every event as it is
// buffered (before the batch flush completes), so a streaming consumer
// sees events with low latency rather than waiting on the flush timer.
func (w *Writer) Subscribe(sub Subscriber) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	w.subs = append(w.subs, sub)
}

// Emit matches the EventSink function type every fetch/queue/discovery/
// depth/headless package defines locally — Writer.Emit is the concrete
// implementation wired in at the composition root.
func (w *Writer) Emit(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{}) {
	payload := ""
	if len(fields) > 0 {
		if b, err := json.Marshal(fields); err == nil {
			payload = string(b)
		}
	}
	event := models.TaskEvent{
		TaskID:      taskIDFromFields(fields),
		EventType:   eventType,
		Severity:    severity,
		Scope:       scopeFromFields(fields),
		Target:      target,
		PayloadJSON: payload,
		EmittedAt:   time.Now().UTC(),
	}
	if d, ok := fields["duration_ms"].(int64); ok {
		event.DurationMs = &d
	}
	if s, ok := fields["http_status"].(int); ok {
		event.HTTPStatus = &s
	}
	if n, ok := fields["item_count"].(int64); ok {
		event.ItemCount = &n
	}
	w.append(event)
}

func taskIDFromFields(fields map[string]interface{}) string {
	if v, ok := fields["task_id"].(string); ok {
		return v
	}
	return ""
}

func scopeFromFields(fields map[string]interface{}) string {
	if v, ok := fields["scope"].(string); ok {
		return v
	}
	return "system"
}

func (w *Writer) append(event models.TaskEvent) {
	w.mu.Lock()
	w.buf = append(w.buf, event)
	shouldFlush := len(w.buf) >= w.flushSize
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.RecordEvent(event)
	}

	w.subsMu.RLock()
	for _, sub := range w.subs {
		sub(event)
	}
	w.subsMu.RUnlock()

	if shouldFlush {
		w.Flush(context.Background())
	}
}

// Flush writes the buffered batch to the store immediately. Safe to
// call concurrently with Emit; a failed flush logs and keeps the events
// buffered for the next attempt rather than dropping them, except that
// the buffer is bounded by 4x flushSize to avoid unbounded growth if the
// store is down for an extended period.
func (w *Writer) Flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.buf) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.buf
	w.buf = nil
	w.mu.Unlock()

	if err := w.store.InsertEvents(ctx, batch); err != nil {
		slog.Error("telemetry: flush failed", "count", len(batch), "error", err)
		w.mu.Lock()
		w.buf = append(batch, w.buf...)
		if len(w.buf) > w.flushSize*4 {
			dropped := len(w.buf) - w.flushSize*4
			w.buf = w.buf[dropped:]
			slog.Warn("telemetry: dropping oldest buffered events after repeated flush failures", "dropped", dropped)
		}
		w.mu.Unlock()
	}
}

func (w *Writer) run() {
	defer close(w.doneCh)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.Flush(context.Background())
		case <-w.closeCh:
			w.Flush(context.Background())
			return
		}
	}
}

// Close stops the flush timer and flushes any remaining buffered
// events, waiting for that final flush with no timeout of its own.
func (w *Writer) Close() {
	close(w.closeCh)
	<-w.doneCh
}

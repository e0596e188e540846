package telemetry

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/metabench/hubcrawl/models"
)

// Metrics holds the Prometheus counters/gauges maintained alongside the
// append-only event log (§4.M: "telemetry counters/gauges alongside the
// append-only event log"). A fresh Metrics (backed by its own registry)
// is cheap enough to build per test; runner.New builds one on its own
// prometheus.NewRegistry() and wires it into a Writer.
type Metrics struct {
	eventsTotal     *prometheus.CounterVec
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	queueDepth      prometheus.Gauge
	classifications *prometheus.CounterVec
}

// NewMetrics registers the telemetry metric families against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry. A nil reg registers the metrics nowhere (promauto.With
// then creates unregistered collectors).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawl_events_total",
			Help: "Total TaskEvents emitted, by event_type and severity.",
		}, []string{"event_type", "severity"}),
		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawl_fetches_total",
			Help: "Total fetch attempts, by outcome.",
		}, []string{"outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hubcrawl_fetch_duration_seconds",
			Help:    "Fetch pipeline duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hubcrawl_breaker_state",
			Help: "Circuit breaker state per host: 0=closed, 1=half-open, 2=open.",
		}, []string{"host"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hubcrawl_queue_depth",
			Help: "Current number of pending queue entries.",
		}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawl_classifications_total",
			Help: "Total classification aggregator decisions, by class.",
		}, []string{"class"}),
	}
}

// RecordEvent updates the coarse event-type counter and, for a handful
// of event types with an obvious metric mapping, a more specific metric.
func (m *Metrics) RecordEvent(e models.TaskEvent) {
	m.eventsTotal.WithLabelValues(string(e.EventType), string(e.Severity)).Inc()

	switch e.EventType {
	case models.EventFetchCompleted:
		m.fetchesTotal.WithLabelValues("completed").Inc()
		if e.DurationMs != nil {
			m.fetchDuration.WithLabelValues(e.Target).Observe(float64(*e.DurationMs) / 1000.0)
		}
	case models.EventFetchFailed:
		m.fetchesTotal.WithLabelValues("failed").Inc()
	case models.EventBreakerOpened:
		m.breakerState.WithLabelValues(e.Target).Set(2)
	case models.EventBreakerClosed:
		m.breakerState.WithLabelValues(e.Target).Set(0)
	case models.EventClassified:
		m.classifications.WithLabelValues(classFromPayload(e)).Inc()
	}
}

// SetQueueDepth updates the queue-depth gauge. Nothing in the module
// calls it, so the gauge reads 0 unless a caller sets it.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// classFromPayload reads the "classification" field the runner puts in a
// classified event's payload; events without one count as "unknown".
func classFromPayload(e models.TaskEvent) string {
	var p struct {
		Classification string `json:"classification"`
	}
	if err := json.Unmarshal([]byte(e.PayloadJSON), &p); err != nil || p.Classification == "" {
		return "unknown"
	}
	return p.Classification
}

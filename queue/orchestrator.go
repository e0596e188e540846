// Package queue implements the queue manager & URL decision orchestrator
// (§4.H): the single place that decides whether a discovered URL is
// admitted, at what priority, and when it becomes eligible for a lease.
package queue

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/models"
	"github.com/metabench/hubcrawl/store"
)

// EventSink reports admission decisions, the same function-type pattern
// used by the other leaf packages.
type EventSink func(eventType models.EventType, severity models.Severity, target string, fields map[string]interface{})

func noopSink(models.EventType, models.Severity, string, map[string]interface{}) {}

// AdmissionPredictor is the queue orchestrator's view of the URL-
// classification predictor (§4.L), kept as a local interface so this
// package never imports predict; runner/adapters.go adapts
// predict.Predictor to it.
type AdmissionPredictor interface {
	PredictForAdmission(ctx context.Context, host, path string) (class string, confidence float64, ok bool)
}

// Orchestrator is the queue manager & URL decision orchestrator (§4.H).
type Orchestrator struct {
	store     *store.Store
	cfg       config.QueueConfig
	predictor AdmissionPredictor
	sink      EventSink
}

// New builds an Orchestrator. predictor may be nil (admission then never
// downgrades/rejects on predicted class).
func New(st *store.Store, cfg config.QueueConfig, predictor AdmissionPredictor, sink EventSink) *Orchestrator {
	if sink == nil {
		sink = noopSink
	}
	return &Orchestrator{store: st, cfg: cfg, predictor: predictor, sink: sink}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Admitted bool
	URLID    int64
	Priority float64
	Reason   string
}

// Admit dedupes rawURL by its normalized form, runs the admission
// predictor check, and either enqueues it or marks it rejected.
// pageNumber and population feed the priority formula (§4.H); pass 0 for
// either when not applicable.
func (o *Orchestrator) Admit(ctx context.Context, rawURL string, pageNumber int, population int64) (Decision, error) {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return Decision{}, fmt.Errorf("queue: normalize %q: %w", rawURL, err)
	}
	host := Host(normalized)

	u, existed, err := o.store.GetURLByNormalized(ctx, normalized)
	if err != nil {
		return Decision{}, fmt.Errorf("queue: lookup url: %w", err)
	}
	if !existed {
		u, err = o.store.InsertURL(ctx, normalized, host, pathOf(normalized))
		if err != nil {
			return Decision{}, fmt.Errorf("queue: insert url: %w", err)
		}
	}

	in := PriorityInputs{PageNumber: pageNumber, Population: population}
	if o.predictor != nil {
		class, confidence, ok := o.predictor.PredictForAdmission(ctx, host, u.Path)
		if ok {
			in.PredictedClass = class
			in.PredictedConfidence = confidence
			in.HasPrediction = true
		}
	}

	if o.cfg.RejectLowValue && in.HasPrediction &&
		isLowValueClass(in.PredictedClass) && in.PredictedConfidence >= o.cfg.LowValueConfidenceFloor {
		o.sink(models.EventClassified, models.SeverityInfo, normalized, map[string]interface{}{
			"admitted": false,
			"class":    in.PredictedClass,
		})
		return Decision{Admitted: false, URLID: u.ID, Reason: "rejected: confidently predicted low-value"}, nil
	}

	priority := Score(o.cfg, in)
	if err := o.store.Enqueue(ctx, u.ID, priority, time.Now()); err != nil {
		return Decision{}, fmt.Errorf("queue: enqueue: %w", err)
	}

	return Decision{Admitted: true, URLID: u.ID, Priority: priority}, nil
}

// SeedEntry is a previously-fetched hub replayed without touching the
// network (§4.H seed-from-cache mode).
type SeedEntry struct {
	URL models.PlacePageMapping
}

// SeedFromCache returns every verified hub as a virtual entry for
// downstream classification/discovery to consume directly — these never
// pass through LeaseNext, so they never count as a new fetch attempt.
func (o *Orchestrator) SeedFromCache(ctx context.Context) ([]SeedEntry, error) {
	hubs, err := o.store.ListVerifiedHubs(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: seed from cache: %w", err)
	}
	seeds := make([]SeedEntry, 0, len(hubs))
	for _, h := range hubs {
		seeds = append(seeds, SeedEntry{URL: h})
	}
	return seeds, nil
}

func pathOf(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

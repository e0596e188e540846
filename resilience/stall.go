package resilience

import (
	"context"
	"time"

	"github.com/metabench/hubcrawl/models"
)

// QueueDepthFunc reports the total number of ready-or-leased queue
// entries, for the stall detector's diagnostic dump. runner supplies it
// (Crawler.queueDepthAllHosts); injected here to avoid an import cycle.
type QueueDepthFunc func() int64

// StallDetector watches Service's heartbeat and emits a "stalled" event
// plus a diagnostic dump when no successful fetch has landed, across any
// host, for StallTimeout.
type StallDetector struct {
	svc        *Service
	timeout    time.Duration
	queueDepth QueueDepthFunc
}

// NewStallDetector wires a detector to svc. queueDepth may be nil.
func NewStallDetector(svc *Service, timeout time.Duration, queueDepth QueueDepthFunc) *StallDetector {
	if queueDepth == nil {
		queueDepth = func() int64 { return -1 }
	}
	return &StallDetector{svc: svc, timeout: timeout, queueDepth: queueDepth}
}

// Run polls every timeout/4 (bounded below at 1s) until ctx is cancelled.
func (d *StallDetector) Run(ctx context.Context) {
	interval := d.timeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkOnce()
		}
	}
}

func (d *StallDetector) checkOnce() {
	d.svc.heartbeatMu.Lock()
	since := time.Since(d.svc.lastHeartbeat)
	d.svc.heartbeatMu.Unlock()

	if since < d.timeout {
		return
	}

	openHosts := d.svc.OpenHosts()
	lastErrors := make(map[string]interface{}, len(openHosts))
	for _, h := range openHosts {
		lastErrors[h] = d.svc.LastError(h)
	}

	d.svc.sink(models.EventStalled, models.SeverityError, "", map[string]interface{}{
		"stalled_for_seconds": since.Seconds(),
		"queue_depth":         d.queueDepth(),
		"open_breakers":       openHosts,
		"last_errors":         lastErrors,
	})
}

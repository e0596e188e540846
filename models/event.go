package models

import "time"

// EventType enumerates the TaskEvent kinds the telemetry stream emits
// (§4.M). Consumers (webhook, SSE, Prometheus) switch on this.
type EventType string

const (
	EventFetchStarted    EventType = "fetch_started"
	EventFetchCompleted  EventType = "fetch_completed"
	EventFetchFailed     EventType = "fetch_failed"
	EventBreakerOpened   EventType = "breaker_opened"
	EventBreakerClosed   EventType = "breaker_closed"
	EventModeEscalated   EventType = "mode_escalated"
	EventModeDemoted     EventType = "mode_demoted"
	EventClassified      EventType = "classified"
	EventHubDepthProbed  EventType = "hub_depth_probed"
	EventQueueDrained    EventType = "queue_drained"
	EventStalled         EventType = "stalled"
	EventRateBackoff     EventType = "rate_backoff"
	EventFailureRecorded EventType = "failure_recorded"

	EventSessionLaunched EventType = "session_launched"
	EventSessionAcquired EventType = "session_acquired"
	EventSessionReleased EventType = "session_released"
	EventSessionRetired  EventType = "session_retired"

	EventDiscovered EventType = "discovered"
)

// Severity is a coarse level attached to a TaskEvent for log-routing.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// TaskEvent is one row of the append-only telemetry log (§3, §4.M). It is
// never updated after insert — corrections are new events, not edits.
type TaskEvent struct {
	ID         int64     `db:"id" json:"id"`
	TaskID     string    `db:"task_id" json:"task_id"`
	EventType  EventType `db:"event_type" json:"event_type"`
	Severity   Severity  `db:"severity" json:"severity"`
	Scope      string    `db:"scope" json:"scope"` // "host", "url", "queue", "system"
	Target     string    `db:"target" json:"target,omitempty"`
	PayloadJSON string   `db:"payload_json" json:"payload_json,omitempty"`
	DurationMs *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	HTTPStatus *int      `db:"http_status" json:"http_status,omitempty"`
	ItemCount  *int64    `db:"item_count" json:"item_count,omitempty"`
	EmittedAt  time.Time `db:"emitted_at" json:"emitted_at"`
}

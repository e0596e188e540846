package models

import "time"

// BreakerState mirrors the three states a per-host circuit breaker can be
// in (§3 invariant 7, §4.C). Transition logic lives in the resilience
// package; this is the persisted snapshot shape.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// CircuitBreakerState is the durable snapshot of a host's breaker, so a
// restart resumes OPEN hosts instead of re-probing them cold.
type CircuitBreakerState struct {
	Host                string       `db:"host" json:"host"`
	State               BreakerState `db:"state" json:"state"`
	FailureCount        int          `db:"failure_count" json:"failure_count"`
	ConsecutiveFailures int          `db:"consecutive_failures" json:"consecutive_failures"`
	OpenedAt            *time.Time   `db:"opened_at" json:"opened_at,omitempty"`
	NextRetryAt         *time.Time   `db:"next_retry_at" json:"next_retry_at,omitempty"`
}

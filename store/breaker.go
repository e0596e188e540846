package store

import (
	"context"
	"fmt"

	"github.com/metabench/hubcrawl/models"
)

// SnapshotBreakerState persists a host's breaker state so a restart can
// resume an OPEN host instead of re-probing it cold (§3: "persisted on
// shutdown optional"). gobreaker itself holds the authoritative in-memory
// state; this is a best-effort mirror. The resilience service does not
// call it.
func (s *Store) SnapshotBreakerState(ctx context.Context, st models.CircuitBreakerState) error {
	const q = `
		INSERT INTO circuit_breaker_states (host, state, failure_count, consecutive_failures, opened_at, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (host) DO UPDATE SET
			state = EXCLUDED.state,
			failure_count = EXCLUDED.failure_count,
			consecutive_failures = EXCLUDED.consecutive_failures,
			opened_at = EXCLUDED.opened_at,
			next_retry_at = EXCLUDED.next_retry_at`
	if _, err := s.db.ExecContext(ctx, q, st.Host, st.State, st.FailureCount, st.ConsecutiveFailures, st.OpenedAt, st.NextRetryAt); err != nil {
		return fmt.Errorf("store: snapshot breaker state: %w", err)
	}
	return nil
}

// LoadBreakerStates returns every persisted breaker snapshot. The
// resilience service does not load it at startup; its breakers start
// CLOSED.
func (s *Store) LoadBreakerStates(ctx context.Context) ([]models.CircuitBreakerState, error) {
	const q = `SELECT host, state, failure_count, consecutive_failures, opened_at, next_retry_at FROM circuit_breaker_states`
	var out []models.CircuitBreakerState
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		if legacyColumnAbsent(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load breaker states: %w", err)
	}
	return out, nil
}

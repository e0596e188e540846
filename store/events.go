package store

import (
	"context"
	"fmt"

	"github.com/metabench/hubcrawl/models"
)

// InsertEvents flushes a batch of TaskEvents in one round trip. Callers
// (the telemetry package's writer) batch on a timer or size threshold;
// this function never updates a previously-inserted row.
func (s *Store) InsertEvents(ctx context.Context, events []models.TaskEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert events: begin tx: %w", err)
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO task_events (task_id, event_type, severity, scope, target, payload_json, duration_ms, http_status, item_count, emitted_at)
		VALUES (:task_id, :event_type, :severity, :scope, :target, :payload_json, :duration_ms, :http_status, :item_count, now())`
	for _, e := range events {
		if _, err := tx.NamedExecContext(ctx, q, e); err != nil {
			return fmt.Errorf("store: insert events: %w", err)
		}
	}
	return tx.Commit()
}

// EventsByTask returns up to limit of a task's events in emission order.
// The streaming event channel does not replay a backlog from it.
func (s *Store) EventsByTask(ctx context.Context, taskID string, limit int) ([]models.TaskEvent, error) {
	const q = `
		SELECT id, task_id, event_type, severity, scope, target, payload_json, duration_ms, http_status, item_count, emitted_at
		FROM task_events WHERE task_id = $1 ORDER BY emitted_at ASC, id ASC LIMIT $2`
	var out []models.TaskEvent
	if err := s.db.SelectContext(ctx, &out, q, taskID, limit); err != nil {
		return nil, fmt.Errorf("store: events by task: %w", err)
	}
	return out, nil
}

// EventsByType returns the most recent events of a given type across all
// tasks. The streaming channel filters live events in memory and does not
// use it.
func (s *Store) EventsByType(ctx context.Context, eventType models.EventType, limit int) ([]models.TaskEvent, error) {
	const q = `
		SELECT id, task_id, event_type, severity, scope, target, payload_json, duration_ms, http_status, item_count, emitted_at
		FROM task_events WHERE event_type = $1 ORDER BY emitted_at DESC LIMIT $2`
	var out []models.TaskEvent
	if err := s.db.SelectContext(ctx, &out, q, eventType, limit); err != nil {
		return nil, fmt.Errorf("store: events by type: %w", err)
	}
	return out, nil
}

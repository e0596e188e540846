package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/metabench/hubcrawl/models"
)

// Enqueue inserts or re-prioritizes a QueueEntry. Dedupe is by url_id
// (the primary key), so a second enqueue of an already-queued URL only
// ever raises its priority, never duplicates the row.
func (s *Store) Enqueue(ctx context.Context, urlID int64, priority float64, readyAfter time.Time) error {
	const q = `
		INSERT INTO queue_entries (url_id, priority, enqueued_at, ready_after, state)
		VALUES ($1, $2, now(), $3, 'QUEUED')
		ON CONFLICT (url_id) DO UPDATE SET
			priority = GREATEST(queue_entries.priority, EXCLUDED.priority),
			ready_after = LEAST(queue_entries.ready_after, EXCLUDED.ready_after)
		WHERE queue_entries.state = 'QUEUED'`
	if _, err := s.db.ExecContext(ctx, q, urlID, priority, readyAfter); err != nil {
		return fmt.Errorf("store: enqueue: %w", err)
	}
	return nil
}

// LeaseNext atomically leases the highest-priority ready entry, using
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers never contend
// for, or double-lease, the same row.
func (s *Store) LeaseNext(ctx context.Context) (models.QueueEntry, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.QueueEntry{}, false, fmt.Errorf("store: lease next: begin tx: %w", err)
	}
	defer tx.Rollback()

	var entry models.QueueEntry
	const selectQ = `
		SELECT url_id, priority, enqueued_at, ready_after, state, lease_token
		FROM queue_entries
		WHERE state = 'QUEUED' AND ready_after <= now()
		ORDER BY priority DESC, enqueued_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`
	if err := tx.GetContext(ctx, &entry, selectQ); err != nil {
		if isNoRows(err) {
			return models.QueueEntry{}, false, nil
		}
		return models.QueueEntry{}, false, fmt.Errorf("store: lease next: select: %w", err)
	}

	token := uuid.NewString()
	const updateQ = `UPDATE queue_entries SET state = 'LEASED', lease_token = $1, leased_at = now() WHERE url_id = $2`
	if _, err := tx.ExecContext(ctx, updateQ, token, entry.URLID); err != nil {
		return models.QueueEntry{}, false, fmt.Errorf("store: lease next: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.QueueEntry{}, false, fmt.Errorf("store: lease next: commit: %w", err)
	}

	entry.State = models.QueueLeased
	entry.LeaseToken = token
	return entry, true, nil
}

// MarkDone transitions a leased entry to DONE. leaseToken must match the
// token returned by LeaseNext, preventing a stale worker from completing
// an entry that was reclaimed after its lease expired.
func (s *Store) MarkDone(ctx context.Context, urlID int64, leaseToken string) error {
	return s.transitionLeased(ctx, urlID, leaseToken, models.QueueDone)
}

// MarkSkipped transitions a leased entry to SKIPPED; the worker calls it
// when a fetch fails. Breaker-open deferrals stay LEASED until reclaimed,
// and low-value admission rejections never get a queue entry.
func (s *Store) MarkSkipped(ctx context.Context, urlID int64, leaseToken string) error {
	return s.transitionLeased(ctx, urlID, leaseToken, models.QueueSkipped)
}

func (s *Store) transitionLeased(ctx context.Context, urlID int64, leaseToken string, to models.QueueState) error {
	const q = `UPDATE queue_entries SET state = $1 WHERE url_id = $2 AND lease_token = $3`
	res, err := s.db.ExecContext(ctx, q, to, urlID, leaseToken)
	if err != nil {
		return fmt.Errorf("store: transition queue entry %d: %w", urlID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: transition queue entry %d: lease mismatch or not leased", urlID)
	}
	return nil
}

// ReclaimAbandoned re-queues entries leased longer than maxAge ago,
// covering a worker that crashed mid-fetch without releasing its lease.
func (s *Store) ReclaimAbandoned(ctx context.Context, maxAge time.Duration) (int64, error) {
	const q = `
		UPDATE queue_entries SET state = 'QUEUED', lease_token = '', leased_at = NULL
		WHERE state = 'LEASED' AND leased_at < now() - $1::interval`
	res, err := s.db.ExecContext(ctx, q, maxAge.String())
	if err != nil {
		return 0, fmt.Errorf("store: reclaim abandoned: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// QueueDepth reports how many entries for a host are QUEUED (ready or
// not) or LEASED, used by the discovery strategies' cooldown/threshold
// check.
func (s *Store) QueueDepth(ctx context.Context, host string) (int64, error) {
	var depth int64
	const q = `
		SELECT count(*) FROM queue_entries q
		JOIN urls u ON u.id = q.url_id
		WHERE u.host = $1 AND q.state IN ('QUEUED', 'LEASED')`
	if err := s.db.GetContext(ctx, &depth, q, host); err != nil {
		return 0, fmt.Errorf("store: queue depth: %w", err)
	}
	return depth, nil
}

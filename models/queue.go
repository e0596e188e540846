package models

import "time"

// QueueState is the lifecycle state of a QueueEntry (§3).
type QueueState string

const (
	QueueQueued  QueueState = "QUEUED"
	QueueLeased  QueueState = "LEASED"
	QueueDone    QueueState = "DONE"
	QueueSkipped QueueState = "SKIPPED"
)

// QueueEntry is a single admitted URL awaiting or undergoing a fetch.
type QueueEntry struct {
	URLID      int64      `db:"url_id" json:"url_id"`
	Priority   float64    `db:"priority" json:"priority"`
	EnqueuedAt time.Time  `db:"enqueued_at" json:"enqueued_at"`
	ReadyAfter time.Time  `db:"ready_after" json:"ready_after"`
	State      QueueState `db:"state" json:"state"`
	LeaseToken string     `db:"lease_token" json:"-"`
}

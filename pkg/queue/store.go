package queue

import (
	"context"
	"time"
)

// Store is the durable queue's persistence contract. Implementations must
// make Claim atomic: two concurrent callers must never receive the same
// entry.
type Store interface {
	// Enqueue inserts a new pending entry and returns its assigned ID.
	Enqueue(ctx context.Context, e *Entry) (int64, error)

	// Claim atomically selects up to limit pending entries whose
	// NextAttempt has elapsed, marks them in_flight, increments their
	// Attempts, and returns them ordered by priority then ID.
	Claim(ctx context.Context, limit int) ([]*Entry, error)

	// MarkSuccess removes a successfully delivered entry from the live
	// table.
	MarkSuccess(ctx context.Context, id int64) error

	// MarkFailure records a delivery failure for id. If the entry's
	// Attempts has reached cfg.MaxAttempts it is moved to the dead-letter
	// table and deadLettered is true; otherwise it is rescheduled per
	// cfg.NextDelay and returned to pending.
	MarkFailure(ctx context.Context, id int64, errText string, cfg BackoffConfig) (deadLettered bool, err error)

	// ReapStale resets in_flight entries last updated before cutoff back
	// to pending, recovering entries whose worker crashed mid-delivery.
	// It returns the number of entries reset.
	ReapStale(ctx context.Context, cutoff time.Time) (int, error)

	// RequeueFromDLQ moves a dead entry back to the live table as
	// pending with Attempts reset to 0.
	RequeueFromDLQ(ctx context.Context, id int64) error

	// Drop permanently deletes a dead-letter entry.
	Drop(ctx context.Context, id int64) error

	// Get returns a single live or dead entry by ID, or nil if absent.
	Get(ctx context.Context, id int64) (*Entry, error)

	// Depth returns the number of pending+in_flight live entries.
	Depth(ctx context.Context) (int, error)

	// ListDead returns all dead-letter entries.
	ListDead(ctx context.Context) ([]*Entry, error)

	Close() error
}

// Package queue implements the durable outbound message queue: at-least-
// once delivery with exponential backoff, a dead-letter table, and
// crash-recovery of abandoned in-flight rows.
package queue

import "time"

// Status is a queue entry's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInFlight Status = "in_flight"
	StatusDead     Status = "dead"
)

// Entry is one durable queue row. Priority is caller-set; lower values are
// delivered first, then FIFO (by ID) within equal priority.
type Entry struct {
	ID          int64
	Destination string
	Payload     []byte
	Priority    int
	Status      Status
	Attempts    int
	LastError   string
	NextAttempt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Correlation string
	TraceParent string
}

// BackoffConfig parameterizes the retry schedule: delay before the n-th
// attempt is base*multiplier^(n-1), capped at Cap, plus jitter drawn from
// [0, JitterMax).
type BackoffConfig struct {
	Base        time.Duration
	Multiplier  float64
	Cap         time.Duration
	JitterMax   time.Duration
	MaxAttempts int
}

// DefaultBackoffConfig returns base=100ms, mu=2, cap=30s, jitter<100ms,
// k_max=5.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Base:        100 * time.Millisecond,
		Multiplier:  2,
		Cap:         30 * time.Second,
		JitterMax:   100 * time.Millisecond,
		MaxAttempts: 5,
	}
}

package mpps

import "context"

// Store is the pluggable MPPS persistence contract.
type Store interface {
	// Insert adds a new record. Returns a storage-error if the SOP
	// Instance UID already exists.
	Insert(ctx context.Context, r *Record) error

	// Get returns the record for uid, or nil if absent.
	Get(ctx context.Context, uid string) (*Record, error)

	// Update persists the already-mutated record (the caller is
	// responsible for transition validation before calling this).
	Update(ctx context.Context, r *Record) error

	// Query returns records matching filter.
	Query(ctx context.Context, filter Filter) ([]*Record, error)

	Close() error
}

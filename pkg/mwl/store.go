package mwl

import (
	"context"
	"sort"
)

// Store is the pluggable MWL persistence contract, with both an
// in-memory implementation (see MemStore) and a SQL-backed one (see
// sqlite.go) behind this one interface.
type Store interface {
	// Add inserts a new entry. Returns a storage-error if the accession
	// already exists.
	Add(ctx context.Context, entry *Entry) error

	// UpdateByAccession applies mutate to the entry for accession under a
	// write lock/transaction, persisting the result. Returns a
	// storage-error (not-found) if no such entry exists.
	UpdateByAccession(ctx context.Context, accession string, mutate func(*Entry)) error

	// CancelByAccession marks accession discontinued (retention policy
	// decides whether rows are later purged); it is not itself a delete.
	CancelByAccession(ctx context.Context, accession string) error

	// RemoveByAccession deletes the entry outright (ORM-CA/SIU-S15 with
	// no-retention policy, or administrative cleanup).
	RemoveByAccession(ctx context.Context, accession string) error

	// Get returns the entry for accession, or nil if absent.
	Get(ctx context.Context, accession string) (*Entry, error)

	// Query returns entries matching filter, ordered by ScheduledStart
	// ascending.
	Query(ctx context.Context, filter Filter) ([]*Entry, error)

	// RewritePatientID rewrites the patient ID on every entry currently
	// keyed to oldPatientID, for ADT^A40 merges.
	RewritePatientID(ctx context.Context, oldPatientID, newPatientID string) (int, error)

	Close() error
}

func sortByScheduledStart(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ScheduledStart.Before(entries[j].ScheduledStart)
	})
}

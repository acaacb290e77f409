package mwl

import (
	"context"
	"sync"
	"time"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

// MemStore is an in-memory, mutex-guarded Store. Intended for tests and for
// single-process deployments that don't need cross-restart durability (the
// MWL itself is refreshed continuously from upstream ADT/ORM traffic, so
// durability matters far less here than it does for pkg/queue).
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*Entry)}
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) Add(_ context.Context, entry *Entry) error {
	const op = "mwl.MemStore.Add"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Accession]; exists {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).
			WithContext("accession", entry.Accession).
			WithContext("reason", "duplicate accession")
	}
	cp := *entry
	now := entry.CreatedAt
	if now.IsZero() {
		now = entry.UpdatedAt
	}
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.entries[entry.Accession] = &cp
	return nil
}

func (s *MemStore) UpdateByAccession(_ context.Context, accession string, mutate func(*Entry)) error {
	const op = "mwl.MemStore.UpdateByAccession"

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[accession]
	if !ok {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).
			WithContext("accession", accession).
			WithContext("reason", "not found")
	}
	mutate(entry)
	entry.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) CancelByAccession(ctx context.Context, accession string) error {
	return s.UpdateByAccession(ctx, accession, func(e *Entry) {
		e.Status = StatusDiscontinued
	})
}

func (s *MemStore) RemoveByAccession(_ context.Context, accession string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, accession)
	return nil
}

func (s *MemStore) Get(_ context.Context, accession string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[accession]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (s *MemStore) Query(_ context.Context, filter Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entry
	for _, entry := range s.entries {
		if filter.matches(entry) {
			cp := *entry
			out = append(out, &cp)
		}
	}
	sortByScheduledStart(out)
	return out, nil
}

func (s *MemStore) RewritePatientID(_ context.Context, oldPatientID, newPatientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, entry := range s.entries {
		if entry.PatientID == oldPatientID {
			entry.PatientID = newPatientID
			entry.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (s *MemStore) Close() error { return nil }

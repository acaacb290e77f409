package mpps

import (
	"context"
	"sync"
	"time"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

// MemStore is an in-memory, mutex-guarded Store.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*Record)}
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) Insert(_ context.Context, r *Record) error {
	const op = "mpps.MemStore.Insert"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.SOPInstanceUID]; exists {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).
			WithContext("sop_instance_uid", r.SOPInstanceUID).
			WithContext("reason", "duplicate uid")
	}
	cp := *r
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.records[r.SOPInstanceUID] = &cp
	return nil
}

func (s *MemStore) Get(_ context.Context, uid string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[uid]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemStore) Update(_ context.Context, r *Record) error {
	const op = "mpps.MemStore.Update"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.SOPInstanceUID]; !exists {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).
			WithContext("sop_instance_uid", r.SOPInstanceUID).
			WithContext("reason", "not found")
	}
	cp := *r
	cp.UpdatedAt = time.Now()
	s.records[r.SOPInstanceUID] = &cp
	return nil
}

func (s *MemStore) Query(_ context.Context, filter Filter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, r := range s.records {
		if filter.Accession != "" && filter.Accession != r.Accession {
			continue
		}
		if filter.NonTerminalOnly && r.Status != StatusInProgress {
			continue
		}
		if filter.Status != "" && filter.Status != r.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemStore) Close() error { return nil }

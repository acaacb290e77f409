package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

// MemStore is an in-memory Store, primarily for tests and for running the
// bridge without durability.
type MemStore struct {
	mu     sync.Mutex
	live   map[int64]*Entry
	dead   map[int64]*Entry
	nextID int64
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		live: make(map[int64]*Entry),
		dead: make(map[int64]*Entry),
	}
}

func (s *MemStore) Enqueue(ctx context.Context, e *Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	now := time.Now()

	cp := *e
	cp.ID = id
	cp.Status = StatusPending
	if cp.NextAttempt.IsZero() {
		cp.NextAttempt = now
	}
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.live[id] = &cp

	return id, nil
}

func (s *MemStore) Claim(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var candidates []*Entry
	for _, e := range s.live {
		if e.Status == StatusPending && !e.NextAttempt.After(now) {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].ID < candidates[j].ID
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	claimed := make([]*Entry, 0, len(candidates))
	for _, e := range candidates {
		e.Status = StatusInFlight
		e.Attempts++
		e.UpdatedAt = now
		cp := *e
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (s *MemStore) MarkSuccess(ctx context.Context, id int64) error {
	const op = "queue.MemStore.MarkSuccess"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[id]; !ok {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).WithContext("id", id).WithContext("reason", "not found")
	}
	delete(s.live, id)
	return nil
}

func (s *MemStore) MarkFailure(ctx context.Context, id int64, errText string, cfg BackoffConfig) (bool, error) {
	const op = "queue.MemStore.MarkFailure"
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live[id]
	if !ok {
		return false, bridgeerr.New(bridgeerr.KindStorage, op, nil).WithContext("id", id).WithContext("reason", "not found")
	}

	now := time.Now()
	e.LastError = errText
	e.UpdatedAt = now

	if cfg.Exhausted(e.Attempts) {
		e.Status = StatusDead
		delete(s.live, id)
		s.dead[id] = e
		return true, nil
	}

	e.Status = StatusPending
	e.NextAttempt = now.Add(cfg.NextDelay(e.Attempts))
	return false, nil
}

func (s *MemStore) ReapStale(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	now := time.Now()
	for _, e := range s.live {
		if e.Status == StatusInFlight && e.UpdatedAt.Before(cutoff) {
			e.Status = StatusPending
			e.NextAttempt = now
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *MemStore) RequeueFromDLQ(ctx context.Context, id int64) error {
	const op = "queue.MemStore.RequeueFromDLQ"
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dead[id]
	if !ok {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).WithContext("id", id).WithContext("reason", "not found")
	}
	delete(s.dead, id)

	now := time.Now()
	e.Status = StatusPending
	e.Attempts = 0
	e.LastError = ""
	e.NextAttempt = now
	e.UpdatedAt = now
	s.live[id] = e
	return nil
}

func (s *MemStore) Drop(ctx context.Context, id int64) error {
	const op = "queue.MemStore.Drop"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dead[id]; !ok {
		return bridgeerr.New(bridgeerr.KindStorage, op, nil).WithContext("id", id).WithContext("reason", "not found")
	}
	delete(s.dead, id)
	return nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.live[id]; ok {
		cp := *e
		return &cp, nil
	}
	if e, ok := s.dead[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (s *MemStore) Depth(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live), nil
}

func (s *MemStore) ListDead(ctx context.Context) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, len(s.dead))
	for _, e := range s.dead {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Close() error { return nil }

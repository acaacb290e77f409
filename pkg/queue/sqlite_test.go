package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "queue.db")
	store, err := NewSQLiteStore(SQLiteConfig{
		Path:        dbPath,
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_EnqueueClaimMarkSuccess(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, &Entry{Destination: "RIS", Payload: []byte("MSH|...")})
	if err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	claimed, err := s.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != id || claimed[0].Attempts != 1 {
		t.Fatalf("Claim() = %+v, want single in_flight entry with 1 attempt", claimed)
	}

	if err := s.MarkSuccess(ctx, id); err != nil {
		t.Fatalf("MarkSuccess() error: %v", err)
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if e != nil {
		t.Fatalf("Get() = %+v, want nil after success", e)
	}
}

func TestSQLiteStore_ClaimDoesNotDoubleClaim(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.Enqueue(ctx, &Entry{Destination: "RIS"})

	first, err := s.Claim(ctx, 10)
	if err != nil || len(first) != 1 {
		t.Fatalf("first Claim() = %+v, %v", first, err)
	}
	second, err := s.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("second Claim() error: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second Claim() = %+v, want empty", second)
	}
}

func TestSQLiteStore_MarkFailureReschedulesThenDeadLetters(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	cfg := BackoffConfig{Base: time.Millisecond, Multiplier: 2, Cap: time.Second, MaxAttempts: 2}

	id, _ := s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Claim(ctx, 10)

	deadLettered, err := s.MarkFailure(ctx, id, "timeout", cfg)
	if err != nil {
		t.Fatalf("MarkFailure() error: %v", err)
	}
	if deadLettered {
		t.Fatal("dead-lettered on first failure, want rescheduled")
	}

	time.Sleep(5 * time.Millisecond)
	claimed, err := s.Claim(ctx, 10)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("Claim() after reschedule = %+v, %v", claimed, err)
	}

	deadLettered, err = s.MarkFailure(ctx, id, "timeout again", cfg)
	if err != nil {
		t.Fatalf("MarkFailure() error: %v", err)
	}
	if !deadLettered {
		t.Fatal("expected dead-letter after reaching MaxAttempts")
	}

	dead, err := s.ListDead(ctx)
	if err != nil || len(dead) != 1 || dead[0].ID != id {
		t.Fatalf("ListDead() = %+v, %v, want one entry with id %d", dead, err, id)
	}
}

func TestSQLiteStore_ReapStaleResetsInFlight(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id, _ := s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Claim(ctx, 10)

	n, err := s.ReapStale(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReapStale() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("ReapStale() = %d, want 1", n)
	}
	e, err := s.Get(ctx, id)
	if err != nil || e.Status != StatusPending {
		t.Fatalf("Get() = %+v, %v, want status pending", e, err)
	}
}

func TestSQLiteStore_RequeueFromDLQAndDrop(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	cfg := BackoffConfig{Base: time.Millisecond, MaxAttempts: 1}

	id, _ := s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Claim(ctx, 10)
	if _, err := s.MarkFailure(ctx, id, "boom", cfg); err != nil {
		t.Fatalf("MarkFailure() error: %v", err)
	}

	if err := s.RequeueFromDLQ(ctx, id); err != nil {
		t.Fatalf("RequeueFromDLQ() error: %v", err)
	}
	e, err := s.Get(ctx, id)
	if err != nil || e.Status != StatusPending || e.Attempts != 0 {
		t.Fatalf("Get() after requeue = %+v, %v, want pending with 0 attempts", e, err)
	}

	s.Claim(ctx, 10)
	if _, err := s.MarkFailure(ctx, id, "boom again", cfg); err != nil {
		t.Fatalf("MarkFailure() error: %v", err)
	}
	if err := s.Drop(ctx, id); err != nil {
		t.Fatalf("Drop() error: %v", err)
	}
	e, err = s.Get(ctx, id)
	if err != nil || e != nil {
		t.Fatalf("Get() after drop = %+v, %v, want nil", e, err)
	}
}

func TestSQLiteStore_Depth(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Enqueue(ctx, &Entry{Destination: "RIS"})

	depth, err := s.Depth(ctx)
	if err != nil || depth != 2 {
		t.Fatalf("Depth() = %d, %v, want 2", depth, err)
	}
}

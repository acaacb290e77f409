package queue

import (
	"context"
	"testing"
	"time"
)

func TestMemStore_EnqueueAndClaim(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	id, err := s.Enqueue(ctx, &Entry{Destination: "RIS", Payload: []byte("MSH|...")})
	if err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	claimed, err := s.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != id {
		t.Fatalf("Claim() = %+v, want single entry with ID %d", claimed, id)
	}
	if claimed[0].Status != StatusInFlight || claimed[0].Attempts != 1 {
		t.Fatalf("claimed entry = %+v, want in_flight with 1 attempt", claimed[0])
	}

	again, err := s.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second Claim() = %+v, want empty (already in_flight)", again)
	}
}

func TestMemStore_ClaimOrdersByPriorityThenID(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	idLow, _ := s.Enqueue(ctx, &Entry{Destination: "A", Priority: 100})
	idHigh, _ := s.Enqueue(ctx, &Entry{Destination: "B", Priority: 10})

	claimed, err := s.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if len(claimed) != 2 || claimed[0].ID != idHigh || claimed[1].ID != idLow {
		t.Fatalf("Claim() order = %+v, want priority 10 entry (id %d) before priority 100 (id %d)", claimed, idHigh, idLow)
	}
}

func TestMemStore_ClaimSkipsFutureNextAttempt(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, err := s.Enqueue(ctx, &Entry{Destination: "RIS", NextAttempt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	claimed, err := s.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("Claim() = %+v, want empty (next_attempt in future)", claimed)
	}
}

func TestMemStore_MarkSuccessRemovesEntry(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	id, _ := s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Claim(ctx, 10)

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

func TestMemStore_MarkFailureReschedulesThenDeadLetters(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	cfg := BackoffConfig{Base: time.Millisecond, Multiplier: 2, Cap: time.Second, JitterMax: 0, MaxAttempts: 2}

	id, _ := s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Claim(ctx, 10) // attempts=1

	deadLettered, err := s.MarkFailure(ctx, id, "timeout", cfg)
	if err != nil {
		t.Fatalf("MarkFailure() error: %v", err)
	}
	if deadLettered {
		t.Fatal("MarkFailure() dead-lettered after first failure, want rescheduled")
	}
	e, _ := s.Get(ctx, id)
	if e.Status != StatusPending {
		t.Fatalf("status = %s, want pending after reschedule", e.Status)
	}

	time.Sleep(5 * time.Millisecond)
	claimed, _ := s.Claim(ctx, 10) // attempts=2
	if len(claimed) != 1 {
		t.Fatalf("Claim() = %+v, want rescheduled entry ready", claimed)
	}

	deadLettered, err = s.MarkFailure(ctx, id, "timeout again", cfg)
	if err != nil {
		t.Fatalf("MarkFailure() error: %v", err)
	}
	if !deadLettered {
		t.Fatal("MarkFailure() = not dead-lettered after reaching MaxAttempts")
	}
	live, _ := s.Get(ctx, id)
	if live.Status != StatusDead {
		t.Fatalf("status = %s, want dead", live.Status)
	}
	dead, err := s.ListDead(ctx)
	if err != nil || len(dead) != 1 {
		t.Fatalf("ListDead() = %+v, %v, want one entry", dead, err)
	}
}

func TestMemStore_ReapStaleResetsInFlight(t *testing.T) {
	s := NewMemStore()
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
	e, _ := s.Get(ctx, id)
	if e.Status != StatusPending {
		t.Fatalf("status = %s, want pending after reap", e.Status)
	}
}

func TestMemStore_RequeueFromDLQResetsAttempts(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	cfg := BackoffConfig{Base: time.Millisecond, Multiplier: 2, Cap: time.Second, MaxAttempts: 1}

	id, _ := s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Claim(ctx, 10)
	s.MarkFailure(ctx, id, "boom", cfg)

	if err := s.RequeueFromDLQ(ctx, id); err != nil {
		t.Fatalf("RequeueFromDLQ() error: %v", err)
	}
	e, _ := s.Get(ctx, id)
	if e.Status != StatusPending || e.Attempts != 0 {
		t.Fatalf("entry after requeue = %+v, want pending with 0 attempts", e)
	}
}

func TestMemStore_DropRemovesDeadEntry(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	cfg := BackoffConfig{Base: time.Millisecond, MaxAttempts: 1}

	id, _ := s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Claim(ctx, 10)
	s.MarkFailure(ctx, id, "boom", cfg)

	if err := s.Drop(ctx, id); err != nil {
		t.Fatalf("Drop() error: %v", err)
	}
	e, _ := s.Get(ctx, id)
	if e != nil {
		t.Fatalf("Get() = %+v, want nil after drop", e)
	}
}

func TestMemStore_Depth(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	s.Enqueue(ctx, &Entry{Destination: "RIS"})
	s.Enqueue(ctx, &Entry{Destination: "RIS"})

	depth, err := s.Depth(ctx)
	if err != nil || depth != 2 {
		t.Fatalf("Depth() = %d, %v, want 2", depth, err)
	}
}

package mpps

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

func TestHandler_CreateThenSetCompleted(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(NewMemStore())

	var published []*Record
	h.Subscribe(func(r *Record) { published = append(published, r) })

	start := time.Date(2026, 1, 1, 13, 5, 0, 0, time.UTC)
	r, err := h.Create(ctx, CreateInput{SOPInstanceUID: "UID1", Accession: "FILL-1", StartTime: start})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if r.Status != StatusInProgress {
		t.Fatalf("Status = %v, want in-progress", r.Status)
	}

	end := time.Date(2026, 1, 1, 13, 20, 0, 0, time.UTC)
	r, err = h.Set(ctx, SetInput{SOPInstanceUID: "UID1", Status: StatusCompleted, EndTime: end})
	if err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if r.Status != StatusCompleted {
		t.Fatalf("Status = %v, want completed", r.Status)
	}
	if len(published) != 2 {
		t.Fatalf("len(published) = %d, want 2", len(published))
	}
}

func TestHandler_CreateDuplicateUIDRejected(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(NewMemStore())

	if _, err := h.Create(ctx, CreateInput{SOPInstanceUID: "UID1", Accession: "FILL-1"}); err != nil {
		t.Fatalf("first Create() error: %v", err)
	}
	_, err := h.Create(ctx, CreateInput{SOPInstanceUID: "UID1", Accession: "FILL-1"})
	var be *bridgeerr.Error
	if !errors.As(err, &be) || be.Kind != bridgeerr.KindStateTransition {
		t.Fatalf("expected KindStateTransition error, got %v", err)
	}
}

func TestHandler_SetWithoutCreateIsNotFound(t *testing.T) {
	h := NewHandler(NewMemStore())
	_, err := h.Set(context.Background(), SetInput{SOPInstanceUID: "MISSING", Status: StatusCompleted})
	var be *bridgeerr.Error
	if !errors.As(err, &be) || be.Kind != bridgeerr.KindStorage {
		t.Fatalf("expected KindStorage error, got %v", err)
	}
}

func TestHandler_InvalidTransitionRejectedAndLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(NewMemStore())

	h.Create(ctx, CreateInput{SOPInstanceUID: "UID1", Accession: "FILL-1"})
	h.Set(ctx, SetInput{SOPInstanceUID: "UID1", Status: StatusCompleted})

	// completed -> discontinued is not a legal transition.
	_, err := h.Set(ctx, SetInput{SOPInstanceUID: "UID1", Status: StatusDiscontinued})
	var be *bridgeerr.Error
	if !errors.As(err, &be) || be.Kind != bridgeerr.KindStateTransition {
		t.Fatalf("expected KindStateTransition error, got %v", err)
	}

	r, _ := h.ByUID(ctx, "UID1")
	if r.Status != StatusCompleted {
		t.Fatalf("Status = %v, want completed (unchanged)", r.Status)
	}
}

func TestHandler_NonTerminalEnumeratesInProgressOnly(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(NewMemStore())

	h.Create(ctx, CreateInput{SOPInstanceUID: "UID1", Accession: "FILL-1"})
	h.Create(ctx, CreateInput{SOPInstanceUID: "UID2", Accession: "FILL-2"})
	h.Set(ctx, SetInput{SOPInstanceUID: "UID2", Status: StatusCompleted})

	records, err := h.NonTerminal(ctx)
	if err != nil {
		t.Fatalf("NonTerminal() error: %v", err)
	}
	if len(records) != 1 || records[0].SOPInstanceUID != "UID1" {
		t.Fatalf("NonTerminal() = %+v", records)
	}
}

func TestHandler_ConcurrentEventsOnDifferentUIDsDontBlock(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(NewMemStore())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		uid := "UID" + string(rune('A'+i))
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			h.Create(ctx, CreateInput{SOPInstanceUID: uid, Accession: "FILL-" + uid})
		}(uid)
	}
	wg.Wait()

	records, err := h.NonTerminal(ctx)
	if err != nil {
		t.Fatalf("NonTerminal() error: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("len(records) = %d, want 10", len(records))
	}
}

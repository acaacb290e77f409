package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/mapping"
	"mercator-hq/jupiter/pkg/mpps"
	"mercator-hq/jupiter/pkg/routing"
)

type fakeDeliverer struct {
	mu    sync.Mutex
	sent  []*hl7.Message
	reqs  []*routing.RoutingRequest
	err   error
}

func (f *fakeDeliverer) Deliver(ctx context.Context, req *routing.RoutingRequest, msg *hl7.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	f.reqs = append(f.reqs, req)
	return nil
}

func (f *fakeDeliverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func header() mapping.OutboundHeader {
	return mapping.OutboundHeader{SendingApp: "BRIDGE", SendingFacility: "FAC", ReceivingApp: "RIS", ReceivingFacility: "FAC"}
}

func TestMPPSWorkflow_CreateMapsAndDelivers(t *testing.T) {
	store := mpps.NewMemStore()
	h := mpps.NewHandler(store)

	deliverer := &fakeDeliverer{}
	wf := NewMPPSWorkflow(header(), deliverer)
	wf.Subscribe(h)

	_, err := h.Create(context.Background(), mpps.CreateInput{
		SOPInstanceUID: "1.2.3", Accession: "ACC1", StartTime: time.Now(),
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if deliverer.count() != 1 {
		t.Fatalf("expected 1 delivered message, got %d", deliverer.count())
	}
	code, trigger := deliverer.sent[0].MessageType()
	if code != "ORM" || trigger != "O01" {
		t.Fatalf("expected ORM^O01, got %s^%s", code, trigger)
	}
	if deliverer.reqs[0].Accession != "ACC1" {
		t.Fatalf("expected routing request accession ACC1, got %q", deliverer.reqs[0].Accession)
	}
}

func TestMPPSWorkflow_CompletedSetDelivers(t *testing.T) {
	store := mpps.NewMemStore()
	h := mpps.NewHandler(store)

	deliverer := &fakeDeliverer{}
	wf := NewMPPSWorkflow(header(), deliverer)
	wf.Subscribe(h)

	ctx := context.Background()
	if _, err := h.Create(ctx, mpps.CreateInput{SOPInstanceUID: "1.2.4", Accession: "ACC2", StartTime: time.Now()}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := h.Set(ctx, mpps.SetInput{SOPInstanceUID: "1.2.4", Status: mpps.StatusCompleted, EndTime: time.Now()}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	if deliverer.count() != 2 {
		t.Fatalf("expected 2 delivered messages (create + set), got %d", deliverer.count())
	}
}

func TestMPPSWorkflow_DeliveryFailureDoesNotPanic(t *testing.T) {
	store := mpps.NewMemStore()
	h := mpps.NewHandler(store)

	deliverer := &fakeDeliverer{err: errors.New("simulated transport failure")}
	wf := NewMPPSWorkflow(header(), deliverer)
	wf.Subscribe(h)

	r, err := h.Create(context.Background(), mpps.CreateInput{SOPInstanceUID: "1.2.5", Accession: "ACC3", StartTime: time.Now()})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if r.Status != mpps.StatusInProgress {
		t.Fatalf("expected MPPS persistence to succeed despite delivery failure, got status %q", r.Status)
	}
}

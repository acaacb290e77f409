package mpps

import (
	"context"
	"sync"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

// Subscriber receives the updated record after every accepted N-CREATE or
// N-SET, so downstream workflows can react to MPPS status changes.
// Subscribers must not block; the handler invokes them synchronously
// after persistence so the workflow sees a consistent row.
type Subscriber func(*Record)

// Handler accepts modality N-CREATE/N-SET events, validates the state
// machine, and persists through Store. Events for the same SOP Instance
// UID are serialized by a per-UID lock; events for different UIDs run
// concurrently.
type Handler struct {
	store Store

	uidLocks sync.Map // map[string]*sync.Mutex

	mu          sync.RWMutex
	subscribers []Subscriber
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Subscribe registers sub to receive every future accepted record update.
func (h *Handler) Subscribe(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, sub)
}

func (h *Handler) lockFor(uid string) *sync.Mutex {
	actual, _ := h.uidLocks.LoadOrStore(uid, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Create handles N-CREATE: rejects a duplicate UID, otherwise inserts a
// new in-progress record and publishes it.
func (h *Handler) Create(ctx context.Context, in CreateInput) (*Record, error) {
	const op = "mpps.Handler.Create"

	lock := h.lockFor(in.SOPInstanceUID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := h.store.Get(ctx, in.SOPInstanceUID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, bridgeerr.New(bridgeerr.KindStateTransition, op, nil).
			WithContext("sop_instance_uid", in.SOPInstanceUID).
			WithContext("reason", "uid already exists")
	}

	r := &Record{
		SOPInstanceUID:       in.SOPInstanceUID,
		Accession:            in.Accession,
		PerformingStationAE:  in.PerformingStationAE,
		StudyInstanceUID:     in.StudyInstanceUID,
		SeriesInstanceUIDs:   in.SeriesInstanceUIDs,
		Status:               StatusInProgress,
		StartTime:            in.StartTime,
	}
	if err := h.store.Insert(ctx, r); err != nil {
		return nil, err
	}

	stored, err := h.store.Get(ctx, in.SOPInstanceUID)
	if err != nil {
		return nil, err
	}
	h.publish(stored)
	return stored, nil
}

// Set handles N-SET: loads the existing record, validates the
// transition, and applies the update atomically under the UID lock.
func (h *Handler) Set(ctx context.Context, in SetInput) (*Record, error) {
	const op = "mpps.Handler.Set"

	lock := h.lockFor(in.SOPInstanceUID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := h.store.Get(ctx, in.SOPInstanceUID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, bridgeerr.New(bridgeerr.KindStorage, op, nil).
			WithContext("sop_instance_uid", in.SOPInstanceUID).
			WithContext("reason", "not found")
	}
	if !existing.Status.CanTransitionTo(in.Status) {
		return nil, bridgeerr.New(bridgeerr.KindStateTransition, op, nil).
			WithContext("sop_instance_uid", in.SOPInstanceUID).
			WithContext("from", string(existing.Status)).
			WithContext("to", string(in.Status))
	}

	existing.Status = in.Status
	existing.EndTime = in.EndTime
	if err := h.store.Update(ctx, existing); err != nil {
		return nil, err
	}

	stored, err := h.store.Get(ctx, in.SOPInstanceUID)
	if err != nil {
		return nil, err
	}
	h.publish(stored)
	return stored, nil
}

func (h *Handler) publish(r *Record) {
	h.mu.RLock()
	subs := make([]Subscriber, len(h.subscribers))
	copy(subs, h.subscribers)
	h.mu.RUnlock()

	for _, sub := range subs {
		sub(r)
	}
}

// ByUID returns the record for uid, or nil if absent.
func (h *Handler) ByUID(ctx context.Context, uid string) (*Record, error) {
	return h.store.Get(ctx, uid)
}

// ByAccession returns all records linked to accession.
func (h *Handler) ByAccession(ctx context.Context, accession string) ([]*Record, error) {
	return h.store.Query(ctx, Filter{Accession: accession})
}

// NonTerminal enumerates all in-progress records, for restart recovery.
func (h *Handler) NonTerminal(ctx context.Context) ([]*Record, error) {
	return h.store.Query(ctx, Filter{NonTerminalOnly: true})
}

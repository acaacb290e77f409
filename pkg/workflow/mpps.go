// Package workflow coordinates cross-package effects that don't belong to
// any single domain package: turning an accepted MPPS event into an
// outbound ORM^O01 and handing it to the reliable sender.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/mapping"
	"mercator-hq/jupiter/pkg/mpps"
	"mercator-hq/jupiter/pkg/routing"
	"mercator-hq/jupiter/pkg/telemetry/logging"
)

// Deliverer is the narrow interface MPPSWorkflow needs from the reliable
// sender; defined here so this package doesn't import pkg/sender and
// force every caller of pkg/sender to also pull in pkg/mpps.
type Deliverer interface {
	Deliver(ctx context.Context, req *routing.RoutingRequest, msg *hl7.Message) error
}

// MPPSWorkflow subscribes to mpps.Handler and maps every accepted
// N-CREATE/N-SET into an outbound ORM^O01. A mapping failure is logged
// (no metric counts it), never returned to the originating modality: the MPPS
// event has already been persisted by the time this workflow runs, and
// mapping failures must not block MPPS persistence.
type MPPSWorkflow struct {
	header mapping.OutboundHeader
	sender Deliverer
}

// NewMPPSWorkflow builds a workflow that maps MPPS records with header
// and delivers the result through sender. Delivery metrics are recorded
// by sender itself once the destination is known.
func NewMPPSWorkflow(header mapping.OutboundHeader, sender Deliverer) *MPPSWorkflow {
	return &MPPSWorkflow{header: header, sender: sender}
}

// Subscribe registers the workflow against h so every future accepted
// MPPS record triggers an outbound mapping attempt.
func (w *MPPSWorkflow) Subscribe(h *mpps.Handler) {
	h.Subscribe(w.onRecord)
}

func (w *MPPSWorkflow) onRecord(r *mpps.Record) {
	ctx := logging.WithAccession(context.Background(), r.Accession)
	controlID := uuid.NewString()

	msg, err := mapping.MPPSToORM(r, w.header, controlID, time.Now())
	if err != nil {
		slog.Error("mpps to orm mapping failed",
			"sop_instance_uid", r.SOPInstanceUID,
			"accession", r.Accession,
			"status", string(r.Status),
			"error", err,
		)
		return
	}

	req := &routing.RoutingRequest{
		CorrelationID: logging.GetCorrelationID(ctx),
		MessageType:   "ORM",
		TriggerEvent:  "O01",
		Sender:        w.header.SendingApp,
		Accession:     r.Accession,
	}

	if err := w.sender.Deliver(ctx, req, msg); err != nil {
		slog.Error("outbound orm delivery failed",
			"sop_instance_uid", r.SOPInstanceUID,
			"accession", r.Accession,
			"control_id", controlID,
			"error", err,
		)
		return
	}
}

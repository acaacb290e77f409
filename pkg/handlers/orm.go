package handlers

import (
	"context"

	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/mapping"
	"mercator-hq/jupiter/pkg/mwl"
)

// handleORM applies an inbound ORM^O01's MapORM result to the MWL store:
// NW creates, XO updates the scheduling/demographic fields in place, and
// CA/DC cancels.
func handleORM(ctx context.Context, deps *Deps, msg *hl7.Message) error {
	op, err := mapping.MapORM(msg)
	if err != nil {
		return err
	}

	switch op.Kind {
	case mapping.MWLOpCreate:
		if err := deps.MWL.Add(ctx, op.Entry); err != nil {
			return err
		}
		deps.Metrics.IncMWLEntryCreate()
		return nil
	case mapping.MWLOpUpdate:
		return deps.MWL.UpdateByAccession(ctx, op.Accession, mergeEntryFields(op.Entry))
	case mapping.MWLOpCancel:
		return deps.MWL.CancelByAccession(ctx, op.Accession)
	default:
		return nil
	}
}

// mergeEntryFields returns a mutate closure that overwrites an existing
// MWL entry's scheduling/demographic fields with src's, leaving Accession,
// Status, and the store-owned timestamps untouched (ORC-1=XO updates
// scheduling details; it does not change lifecycle state).
func mergeEntryFields(src *mwl.Entry) func(*mwl.Entry) {
	return func(dst *mwl.Entry) {
		dst.PatientID = src.PatientID
		dst.PatientName = src.PatientName
		dst.BirthDate = src.BirthDate
		dst.Sex = src.Sex
		dst.ScheduledStationAE = src.ScheduledStationAE
		dst.ScheduledStart = src.ScheduledStart
		dst.Modality = src.Modality
		dst.ProcedureCode = src.ProcedureCode
		dst.ProcedureDesc = src.ProcedureDesc
		dst.RequestingPhysician = src.RequestingPhysician
	}
}

package handlers

import (
	"context"

	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/mapping"
)

// handleSIU applies an inbound SIU scheduling message's MapSIU result:
// S12 creates an MWL entry, S13/S14 update it, S15 cancels it.
func handleSIU(ctx context.Context, deps *Deps, msg *hl7.Message) error {
	op, err := mapping.MapSIU(msg)
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

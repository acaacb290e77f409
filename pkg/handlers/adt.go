package handlers

import (
	"context"

	"mercator-hq/jupiter/pkg/cache"
	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/mapping"
)

// handleADT applies an inbound ADT message's MapADT result: A01/A04/A08
// refresh the patient cache only, A40 merges patient IDs across the cache
// and every matching MWL entry.
func handleADT(ctx context.Context, deps *Deps, msg *hl7.Message) error {
	op, err := mapping.MapADT(msg)
	if err != nil {
		return err
	}

	switch op.Kind {
	case mapping.ADTOpPatientUpdate:
		deps.Cache.Put(op.PatientID, cache.PatientInfo{
			Name:      op.Name,
			BirthDate: op.BirthDate,
			Sex:       op.Sex,
		})
		return nil
	case mapping.ADTOpMerge:
		deps.Cache.Merge(op.MergeFromPatientID, op.MergeToPatientID)
		_, err := deps.MWL.RewritePatientID(ctx, op.MergeFromPatientID, op.MergeToPatientID)
		return err
	default:
		return nil
	}
}

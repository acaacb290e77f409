package mapping

import (
	"fmt"
	"time"

	"mercator-hq/jupiter/pkg/bridgeerr"
	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/mpps"
)

// OutboundHeader carries the MSH identity fields the workflow supplies for
// every outbound message; it does not vary per MPPS event.
type OutboundHeader struct {
	SendingApp        string
	SendingFacility   string
	ReceivingApp      string
	ReceivingFacility string
	Version           string // default "2.5" if empty
}

// MPPSToORM maps an MPPS record to an outbound ORM^O01:
// N-CREATE (in-progress) -> ORC-1=SC/ORC-5=IP; N-SET completed ->
// ORC-1=SC/ORC-5=CM with OBR-22/OBR-27 timing; N-SET discontinued ->
// ORC-1=DC/ORC-5=CA.
func MPPSToORM(r *mpps.Record, hdr OutboundHeader, controlID string, now time.Time) (*hl7.Message, error) {
	const op = "mapping.MPPSToORM"

	orderControl, orderStatus, err := ormCodesFor(r.Status)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindMapping, op, err).
			WithContext("sop_instance_uid", r.SOPInstanceUID).
			WithContext("status", string(r.Status))
	}

	version := hdr.Version
	if version == "" {
		version = "2.5"
	}

	b := hl7.NewBuilder().MSH(
		hdr.SendingApp, hdr.SendingFacility, hdr.ReceivingApp, hdr.ReceivingFacility,
		FormatHL7TS(now), "ORM", "O01", controlID, "P", version,
	)

	orc := b.Segment("ORC")
	orc.SetField(1, hl7.NewField(orderControl))
	orc.SetField(3, hl7.NewField(r.Accession))
	orc.SetField(5, hl7.NewField(orderStatus))

	obr := b.Segment("OBR")
	obr.SetField(3, hl7.NewField(r.Accession))

	if r.Status == mpps.StatusCompleted {
		if !r.EndTime.IsZero() {
			obr.SetField(22, hl7.NewField(FormatHL7TS(r.EndTime)))
		}
		if !r.StartTime.IsZero() || !r.EndTime.IsZero() {
			obr.SetField(27, hl7.NewField(timingRange(r.StartTime, r.EndTime)))
		}
	}

	return b.Build(), nil
}

func ormCodesFor(status mpps.Status) (orderControl, orderStatus string, err error) {
	switch status {
	case mpps.StatusInProgress:
		return "SC", "IP", nil
	case mpps.StatusCompleted:
		return "SC", "CM", nil
	case mpps.StatusDiscontinued:
		return "DC", "CA", nil
	default:
		return "", "", fmt.Errorf("mapping: unrecognized MPPS status %q", status)
	}
}

func timingRange(start, end time.Time) string {
	switch {
	case !start.IsZero() && !end.IsZero():
		return FormatHL7TS(start) + "-" + FormatHL7TS(end)
	case !end.IsZero():
		return FormatHL7TS(end)
	case !start.IsZero():
		return FormatHL7TS(start)
	default:
		return ""
	}
}

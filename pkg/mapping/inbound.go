// Package mapping implements the bidirectional HL7<->DICOM-MWL/MPPS
// translation: inbound ORM/ADT/SIU messages become MWL operations and
// patient-cache updates, and MPPS events become outbound ORM messages.
package mapping

import (
	"time"

	"mercator-hq/jupiter/pkg/bridgeerr"
	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/mwl"
)

// MWLOpKind enumerates the effect an inbound message has on the MWL store.
type MWLOpKind string

const (
	MWLOpCreate MWLOpKind = "create"
	MWLOpUpdate MWLOpKind = "update"
	MWLOpCancel MWLOpKind = "cancel"
)

// MWLOp is the normalized result of mapping an inbound ORM or SIU message:
// what to do to the MWL store, and with what entry data.
type MWLOp struct {
	Kind      MWLOpKind
	Accession string
	Entry     *mwl.Entry // populated for Create/Update; nil for Cancel
}

// ADTOpKind enumerates the effect an inbound ADT message has.
type ADTOpKind string

const (
	// ADTOpPatientUpdate updates the patient cache only (A01/A04/A08).
	ADTOpPatientUpdate ADTOpKind = "patient-update"
	// ADTOpMerge rewrites PatientID across the cache and MWL (A40).
	ADTOpMerge ADTOpKind = "merge"
)

// ADTOp is the normalized result of mapping an inbound ADT message.
type ADTOp struct {
	Kind ADTOpKind

	PatientID   string
	Name        mwl.PatientName
	BirthDate   time.Time
	Sex         string

	MergeFromPatientID string // A40: the retired ID (MRG-1)
	MergeToPatientID   string // A40: the surviving ID (PID-3)
}

// MapORM maps an inbound ORM^O01 message to an MWLOp per ORC-1: NW creates,
// XO updates, CA/DC cancels.
func MapORM(msg *hl7.Message) (*MWLOp, error) {
	const op = "mapping.MapORM"

	orc := msg.Segment("ORC")
	if orc == nil {
		return nil, bridgeerr.New(bridgeerr.KindMapping, op, nil).WithContext("reason", "missing ORC segment")
	}
	orderControl := orc.Field(1).Value()
	accession := accessionFromORCOrOBR(msg)
	if accession == "" {
		return nil, bridgeerr.New(bridgeerr.KindMapping, op, nil).WithContext("reason", "no accession in ORC-3/OBR-3")
	}

	switch orderControl {
	case "NW":
		entry := entryFromORM(msg, accession)
		entry.Status = mwl.StatusScheduled
		return &MWLOp{Kind: MWLOpCreate, Accession: accession, Entry: entry}, nil
	case "XO":
		entry := entryFromORM(msg, accession)
		return &MWLOp{Kind: MWLOpUpdate, Accession: accession, Entry: entry}, nil
	case "CA", "DC":
		return &MWLOp{Kind: MWLOpCancel, Accession: accession}, nil
	default:
		return nil, bridgeerr.New(bridgeerr.KindMapping, op, nil).
			WithContext("order_control", orderControl).
			WithContext("reason", "unsupported ORC-1 value")
	}
}

func accessionFromORCOrOBR(msg *hl7.Message) string {
	if orc := msg.Segment("ORC"); orc != nil {
		if v := orc.Field(3).Value(); v != "" {
			return v
		}
	}
	if obr := msg.Segment("OBR"); obr != nil {
		return obr.Field(3).Value()
	}
	return ""
}

func entryFromORM(msg *hl7.Message, accession string) *mwl.Entry {
	pid := msg.Segment("PID")
	obr := msg.Segment("OBR")

	entry := &mwl.Entry{Accession: accession}
	if pid != nil {
		entry.PatientID = pid.Field(3).Value()
		entry.PatientName = NameFromXPNField(pid.Field(5))
		entry.Sex = pid.Field(8).Value()
		if bd := pid.Field(7).Value(); bd != "" {
			if t, err := ParseHL7TS(bd); err == nil {
				entry.BirthDate = t
			}
		}
	}
	if obr != nil {
		entry.ProcedureCode = obr.Field(4).Repetition(1).Component(1).Value()
		entry.ProcedureDesc = obr.Field(4).Repetition(1).Component(2).Value()
		entry.RequestingPhysician = obr.Field(16).Value()
		entry.Modality = obr.Field(24).Value()
		entry.ScheduledStationAE = obr.Field(21).Value()

		scheduled := firstNonEmpty(obr.Field(6).Value(), obr.Field(7).Value(), obr.Field(36).Value())
		if scheduled != "" {
			if t, err := ParseHL7TS(scheduled); err == nil {
				entry.ScheduledStart = t
			}
		}
	}
	return entry
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// MapADT maps an inbound ADT message. A01/A04/A08 produce a patient-cache
// update; A40 produces a merge instruction (MRG-1 is the retired ID,
// PID-3 the surviving one).
func MapADT(msg *hl7.Message) (*ADTOp, error) {
	const op = "mapping.MapADT"

	pid := msg.Segment("PID")
	if pid == nil {
		return nil, bridgeerr.New(bridgeerr.KindMapping, op, nil).WithContext("reason", "missing PID segment")
	}
	_, trigger := msg.MessageType()

	patientOp := &ADTOp{
		Kind:      ADTOpPatientUpdate,
		PatientID: pid.Field(3).Value(),
		Name:      NameFromXPNField(pid.Field(5)),
		Sex:       pid.Field(8).Value(),
	}
	if bd := pid.Field(7).Value(); bd != "" {
		if t, err := ParseHL7TS(bd); err == nil {
			patientOp.BirthDate = t
		}
	}

	switch trigger {
	case "A01", "A04", "A08":
		return patientOp, nil
	case "A40":
		mrg := msg.Segment("MRG")
		if mrg == nil {
			return nil, bridgeerr.New(bridgeerr.KindMapping, op, nil).WithContext("reason", "A40 missing MRG segment")
		}
		patientOp.Kind = ADTOpMerge
		patientOp.MergeFromPatientID = mrg.Field(1).Value()
		patientOp.MergeToPatientID = pid.Field(3).Value()
		return patientOp, nil
	default:
		return nil, bridgeerr.New(bridgeerr.KindMapping, op, nil).
			WithContext("trigger", trigger).WithContext("reason", "unsupported ADT trigger")
	}
}

// MapSIU maps an inbound SIU scheduling message using SCH- and
// PID-derived fields (AIS and other resource segments are not read). S12
// creates, S13/S14 update, S15 cancels.
func MapSIU(msg *hl7.Message) (*MWLOp, error) {
	const op = "mapping.MapSIU"

	_, trigger := msg.MessageType()
	sch := msg.Segment("SCH")
	if sch == nil {
		return nil, bridgeerr.New(bridgeerr.KindMapping, op, nil).WithContext("reason", "missing SCH segment")
	}
	accession := sch.Field(2).Value()
	if accession == "" {
		accession = sch.Field(1).Value()
	}
	if accession == "" {
		return nil, bridgeerr.New(bridgeerr.KindMapping, op, nil).WithContext("reason", "no accession in SCH-1/SCH-2")
	}

	if trigger == "S15" {
		return &MWLOp{Kind: MWLOpCancel, Accession: accession}, nil
	}

	pid := msg.Segment("PID")
	entry := &mwl.Entry{Accession: accession}
	if pid != nil {
		entry.PatientID = pid.Field(3).Value()
		entry.PatientName = NameFromXPNField(pid.Field(5))
		entry.Sex = pid.Field(8).Value()
	}
	if start := sch.Field(11).Repetition(1).Component(4).Value(); start != "" {
		if t, err := ParseHL7TS(start); err == nil {
			entry.ScheduledStart = t
		}
	}
	entry.Status = mwl.StatusScheduled

	kind := MWLOpCreate
	if trigger == "S13" || trigger == "S14" {
		kind = MWLOpUpdate
	}
	return &MWLOp{Kind: kind, Accession: accession, Entry: entry}, nil
}

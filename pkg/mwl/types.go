// Package mwl implements the Modality Worklist store: scheduled procedure
// steps keyed by accession number, queryable by patient, accession, date
// range, modality, and AE title.
package mwl

import "time"

// Status is the MWL entry lifecycle state.
type Status string

const (
	StatusScheduled    Status = "scheduled"
	StatusInProgress   Status = "in-progress"
	StatusCompleted    Status = "completed"
	StatusDiscontinued Status = "discontinued"
	StatusArrived      Status = "arrived"
	StatusReady        Status = "ready"
)

// PatientName is HL7 XPN/DICOM PN component order: Family^Given^Middle^
// Suffix^Prefix (HL7 order; pkg/mapping swaps positions 4/5 for DICOM PN).
type PatientName struct {
	Family string
	Given  string
	Middle string
	Suffix string
	Prefix string
}

// Entry is a scheduled procedure step, keyed by accession number.
type Entry struct {
	Accession string // unique key

	PatientID   string
	PatientName PatientName
	BirthDate   time.Time
	Sex         string

	ScheduledStationAE string
	ScheduledStart     time.Time
	Modality           string
	ProcedureCode      string
	ProcedureDesc      string
	RequestingPhysician string

	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows a Query's results; zero-value fields are unconstrained.
type Filter struct {
	PatientID string
	Accession string
	Modality  string
	AETitle   string
	Status    Status

	StartFrom time.Time
	StartTo   time.Time
}

func (f Filter) matches(e *Entry) bool {
	if f.PatientID != "" && f.PatientID != e.PatientID {
		return false
	}
	if f.Accession != "" && f.Accession != e.Accession {
		return false
	}
	if f.Modality != "" && f.Modality != e.Modality {
		return false
	}
	if f.AETitle != "" && f.AETitle != e.ScheduledStationAE {
		return false
	}
	if f.Status != "" && f.Status != e.Status {
		return false
	}
	if !f.StartFrom.IsZero() && e.ScheduledStart.Before(f.StartFrom) {
		return false
	}
	if !f.StartTo.IsZero() && e.ScheduledStart.After(f.StartTo) {
		return false
	}
	return true
}

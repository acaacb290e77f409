// Package validator applies declarative per-(message-type, trigger-event)
// structural schemas to a parsed hl7.Message: required segments and
// required fields within them. It never fails hard on unknown optional
// fields; callers use the returned issue list to decide between an AA and
// an AE ACK.
package validator

import (
	"fmt"

	"mercator-hq/jupiter/pkg/hl7"
)

// Issue describes one structural problem found during validation.
type Issue struct {
	Path   string // HL7 path, e.g. "PID.3" or segment type for a missing segment
	Reason string
}

func (i Issue) String() string { return fmt.Sprintf("%s: %s", i.Path, i.Reason) }

// RequiredField names a field that must be non-empty within a required
// segment.
type RequiredField struct {
	Segment string
	Field   int
}

// Schema lists the structural requirements for one (message-type,
// trigger-event) pair.
type Schema struct {
	MessageType    string
	TriggerEvent   string
	RequiredSegs   []string
	RequiredFields []RequiredField
}

// Validator holds a registry of schemas keyed by "TYPE^TRIGGER".
type Validator struct {
	schemas map[string]Schema
}

// New builds a Validator pre-loaded with the default schemas for ADT
// A01/A04/A08/A40, ORM O01, ORU R01, SIU S12/S13/S14/S15, and ACK.
func New() *Validator {
	v := &Validator{schemas: make(map[string]Schema)}
	for _, s := range defaultSchemas() {
		v.Register(s)
	}
	return v
}

// Register adds or replaces a schema.
func (v *Validator) Register(s Schema) {
	v.schemas[key(s.MessageType, s.TriggerEvent)] = s
}

func key(msgType, trigger string) string { return msgType + "^" + trigger }

// Validate checks msg against the schema registered for its message type
// and trigger event. A message type/trigger with no registered schema
// produces no issues: unregistered types parse and are preserved but
// mapping is a no-op, and the same tolerance applies to validation.
func (v *Validator) Validate(msg *hl7.Message) []Issue {
	code, trigger := msg.MessageType()
	schema, ok := v.schemas[key(code, trigger)]
	if !ok {
		// Fall back to a trigger-agnostic schema (used for ACK, whose
		// trigger mirrors whatever it is acknowledging).
		schema, ok = v.schemas[key(code, "")]
	}
	if !ok {
		return nil
	}

	var issues []Issue
	for _, segType := range schema.RequiredSegs {
		if msg.Segment(segType) == nil {
			issues = append(issues, Issue{Path: segType, Reason: "required segment missing"})
		}
	}
	for _, rf := range schema.RequiredFields {
		seg := msg.Segment(rf.Segment)
		if seg == nil {
			continue // already reported as a missing segment above
		}
		if seg.Field(rf.Field).Value() == "" {
			issues = append(issues, Issue{
				Path:   fmt.Sprintf("%s.%d", rf.Segment, rf.Field),
				Reason: "required field empty",
			})
		}
	}
	return issues
}

func defaultSchemas() []Schema {
	return []Schema{
		{
			MessageType: "ADT", TriggerEvent: "A01",
			RequiredSegs:   []string{"MSH", "PID", "PV1"},
			RequiredFields: []RequiredField{{"PID", 3}},
		},
		{
			MessageType: "ADT", TriggerEvent: "A04",
			RequiredSegs:   []string{"MSH", "PID", "PV1"},
			RequiredFields: []RequiredField{{"PID", 3}},
		},
		{
			MessageType: "ADT", TriggerEvent: "A08",
			RequiredSegs:   []string{"MSH", "PID"},
			RequiredFields: []RequiredField{{"PID", 3}},
		},
		{
			MessageType: "ADT", TriggerEvent: "A40",
			RequiredSegs:   []string{"MSH", "PID", "MRG"},
			RequiredFields: []RequiredField{{"PID", 3}, {"MRG", 1}},
		},
		{
			MessageType: "ORM", TriggerEvent: "O01",
			RequiredSegs:   []string{"MSH", "PID", "ORC", "OBR"},
			RequiredFields: []RequiredField{{"PID", 3}, {"ORC", 1}},
		},
		{
			MessageType: "ORU", TriggerEvent: "R01",
			RequiredSegs:   []string{"MSH", "PID", "OBR", "OBX"},
			RequiredFields: []RequiredField{{"PID", 3}},
		},
		{
			MessageType: "SIU", TriggerEvent: "S12",
			RequiredSegs:   []string{"MSH", "SCH", "PID"},
			RequiredFields: []RequiredField{{"SCH", 1}},
		},
		{
			MessageType: "SIU", TriggerEvent: "S13",
			RequiredSegs:   []string{"MSH", "SCH", "PID"},
			RequiredFields: []RequiredField{{"SCH", 1}},
		},
		{
			MessageType: "SIU", TriggerEvent: "S14",
			RequiredSegs:   []string{"MSH", "SCH", "PID"},
			RequiredFields: []RequiredField{{"SCH", 1}},
		},
		{
			MessageType: "SIU", TriggerEvent: "S15",
			RequiredSegs:   []string{"MSH", "SCH"},
			RequiredFields: []RequiredField{{"SCH", 1}},
		},
		{
			MessageType: "ACK", TriggerEvent: "",
			RequiredSegs: []string{"MSH", "MSA"},
		},
	}
}

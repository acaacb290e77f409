// Package hl7 models HL7 v2.x messages as a segment/field/repetition/
// component/subcomponent tree, and provides 1-based path access
// ("PID.5.1.2") over it. It owns no I/O; pkg/hl7/parser builds trees from
// bytes, the Builder in this package constructs them, and
// Message.Serialize renders them back to bytes.
package hl7

import (
	"fmt"
	"strconv"
	"strings"
)

// Component is a leaf list of subcomponents; a component with no
// subcomponent separator in the source has exactly one.
type Component struct {
	Subcomponents []string
}

// Value returns the component's first subcomponent, the common case for
// components without subcomponent structure.
func (c *Component) Value() string {
	if len(c.Subcomponents) == 0 {
		return ""
	}
	return c.Subcomponents[0]
}

// Subcomponent returns the 1-based subcomponent, or "" if out of range.
func (c *Component) Subcomponent(n int) string {
	if n < 1 || n > len(c.Subcomponents) {
		return ""
	}
	return c.Subcomponents[n-1]
}

// Repetition is an ordered list of components; most fields have exactly one
// repetition.
type Repetition struct {
	Components []*Component
}

// Value returns the repetition's first component's first subcomponent.
func (r *Repetition) Value() string {
	if len(r.Components) == 0 {
		return ""
	}
	return r.Components[0].Value()
}

// Component returns the 1-based component, or an empty Component if out of
// range (empty components carry positional meaning and must round-trip).
func (r *Repetition) Component(n int) *Component {
	if n < 1 || n > len(r.Components) {
		return &Component{}
	}
	return r.Components[n-1]
}

// Field is an ordered list of repetitions.
type Field struct {
	Repetitions []*Repetition
}

// NewField builds a single-repetition, single-component field from a plain
// string value.
func NewField(value string) *Field {
	return &Field{Repetitions: []*Repetition{{Components: []*Component{{Subcomponents: []string{value}}}}}}
}

// Value returns the field's first repetition's value, the common case for
// unrepeated, uncomponentized fields.
func (f *Field) Value() string {
	if len(f.Repetitions) == 0 {
		return ""
	}
	return f.Repetitions[0].Value()
}

// Repetition returns the 1-based repetition, or an empty Repetition if out
// of range.
func (f *Field) Repetition(n int) *Repetition {
	if n < 1 || n > len(f.Repetitions) {
		return &Repetition{}
	}
	return f.Repetitions[n-1]
}

// Segment is a 3-character type code and its ordered fields. Fields are
// stored 0-indexed internally; field 1 in HL7 terms is Fields[0], except
// for MSH where field 1 (the separator itself) and field 2 (the four
// encoding characters) are synthesized by the parser/builder so that
// MSH.9-style paths still line up with the rest of the segment.
type Segment struct {
	Type   string
	Fields []*Field
}

// Field returns the 1-based field, or an empty Field if out of range.
func (s *Segment) Field(n int) *Field {
	if n < 1 || n > len(s.Fields) {
		return &Field{}
	}
	return s.Fields[n-1]
}

// SetField grows Fields as needed and assigns the 1-based field.
func (s *Segment) SetField(n int, f *Field) {
	for len(s.Fields) < n {
		s.Fields = append(s.Fields, &Field{})
	}
	s.Fields[n-1] = f
}

// Message is an ordered sequence of segments plus the delimiters declared
// by its own MSH. A Message is mutable during construction and frozen (by
// convention, not enforcement) once serialized by a Builder.
type Message struct {
	Delimiters Delimiters
	Segments   []*Segment
}

// NewMessage creates an empty message with the default delimiter set.
func NewMessage() *Message {
	return &Message{Delimiters: DefaultDelimiters}
}

// AppendSegment appends seg to the message.
func (m *Message) AppendSegment(seg *Segment) {
	m.Segments = append(m.Segments, seg)
}

// MSH returns the first MSH segment, or nil if the message has none.
func (m *Message) MSH() *Segment {
	return m.SegmentAt("MSH", 1)
}

// Segment returns the first occurrence of the named segment type, or nil.
func (m *Message) Segment(segType string) *Segment {
	return m.SegmentAt(segType, 1)
}

// SegmentAt returns the occ-th (1-based) occurrence of segType, or nil if
// there are fewer than occ occurrences.
func (m *Message) SegmentAt(segType string, occ int) *Segment {
	found := 0
	for _, s := range m.Segments {
		if s.Type == segType {
			found++
			if found == occ {
				return s
			}
		}
	}
	return nil
}

// SegmentsOf returns every segment of the named type, in message order.
func (m *Message) SegmentsOf(segType string) []*Segment {
	var out []*Segment
	for _, s := range m.Segments {
		if s.Type == segType {
			out = append(out, s)
		}
	}
	return out
}

// MessageType returns MSH-9's message-code and trigger-event (e.g. "ORM",
// "O01"), or empty strings if MSH-9 is absent.
func (m *Message) MessageType() (code, trigger string) {
	msh := m.MSH()
	if msh == nil {
		return "", ""
	}
	f := msh.Field(9)
	rep := f.Repetition(1)
	return rep.Component(1).Value(), rep.Component(2).Value()
}

// ControlID returns MSH-10, the per-sender message control ID.
func (m *Message) ControlID() string {
	msh := m.MSH()
	if msh == nil {
		return ""
	}
	return msh.Field(10).Value()
}

// path is a parsed "SEG[occ].field[rep].component.subcomponent" reference.
// occ/rep/component/subcomponent are 1-based; zero means "unset" (defaults
// to 1, or "whole field" for component/subcomponent).
type path struct {
	segType      string
	occurrence   int
	field        int
	repetition   int
	component    int
	subcomponent int
}

// parsePath parses HL7 path strings like "PID.5.1.2", "OBX[2].5", or
// "OBR.4(2).1" (repetition index in parentheses; segment occurrence index
// in brackets).
func parsePath(p string) (path, error) {
	parts := strings.Split(p, ".")
	if len(parts) == 0 || parts[0] == "" {
		return path{}, fmt.Errorf("hl7: empty path")
	}

	segType, occ, err := parseBracketed(parts[0], '[', ']')
	if err != nil {
		return path{}, fmt.Errorf("hl7: invalid path %q: %w", p, err)
	}
	out := path{segType: segType, occurrence: occ}

	if len(parts) > 1 {
		fieldStr, rep, err := parseBracketed(parts[1], '(', ')')
		if err != nil {
			return path{}, fmt.Errorf("hl7: invalid path %q: %w", p, err)
		}
		n, err := strconv.Atoi(fieldStr)
		if err != nil {
			return path{}, fmt.Errorf("hl7: invalid field number in %q: %w", p, err)
		}
		out.field = n
		out.repetition = rep
	}
	if len(parts) > 2 {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return path{}, fmt.Errorf("hl7: invalid component number in %q: %w", p, err)
		}
		out.component = n
	}
	if len(parts) > 3 {
		n, err := strconv.Atoi(parts[3])
		if err != nil {
			return path{}, fmt.Errorf("hl7: invalid subcomponent number in %q: %w", p, err)
		}
		out.subcomponent = n
	}
	return out, nil
}

// parseBracketed splits "NAME[n]" (or "NAME(n)") into NAME and n, defaulting
// n to 1 when no bracket is present.
func parseBracketed(s string, open, close byte) (string, int, error) {
	oi := strings.IndexByte(s, open)
	if oi < 0 {
		return s, 1, nil
	}
	ci := strings.IndexByte(s, close)
	if ci < 0 || ci < oi {
		return "", 0, fmt.Errorf("unbalanced %c%c", open, close)
	}
	n, err := strconv.Atoi(s[oi+1 : ci])
	if err != nil {
		return "", 0, err
	}
	return s[:oi], n, nil
}

// Get resolves an HL7 path against the message and returns the addressed
// value as stored in the tree. Trees built by pkg/hl7/parser hold
// already-unescaped subcomponents, so no further Unescape is needed.
func (m *Message) Get(p string) (string, error) {
	parsed, err := parsePath(p)
	if err != nil {
		return "", err
	}
	seg := m.SegmentAt(parsed.segType, parsed.occurrence)
	if seg == nil {
		return "", nil
	}
	if parsed.field == 0 {
		return "", nil
	}
	f := seg.Field(parsed.field)
	rep := f.Repetition(max1(parsed.repetition))
	if parsed.component == 0 {
		return rep.Value(), nil
	}
	comp := rep.Component(parsed.component)
	if parsed.subcomponent == 0 {
		return comp.Value(), nil
	}
	return comp.Subcomponent(parsed.subcomponent), nil
}

// Set resolves an HL7 path and assigns value at that location, growing the
// segment/field/repetition/component/subcomponent slices as needed. Set on
// a segment that doesn't yet exist returns an error; callers must
// AppendSegment first.
func (m *Message) Set(p, value string) error {
	parsed, err := parsePath(p)
	if err != nil {
		return err
	}
	seg := m.SegmentAt(parsed.segType, parsed.occurrence)
	if seg == nil {
		return fmt.Errorf("hl7: segment %q occurrence %d not present", parsed.segType, max1(parsed.occurrence))
	}
	if parsed.field == 0 {
		return fmt.Errorf("hl7: path %q has no field component", p)
	}
	f := seg.Field(parsed.field)
	if f == nil || len(f.Repetitions) == 0 {
		f = &Field{}
		seg.SetField(parsed.field, f)
	}
	repN := max1(parsed.repetition)
	for len(f.Repetitions) < repN {
		f.Repetitions = append(f.Repetitions, &Repetition{})
	}
	rep := f.Repetitions[repN-1]

	if parsed.component == 0 {
		rep.Components = []*Component{{Subcomponents: []string{value}}}
		return nil
	}
	for len(rep.Components) < parsed.component {
		rep.Components = append(rep.Components, &Component{})
	}
	comp := rep.Components[parsed.component-1]
	if parsed.subcomponent == 0 {
		comp.Subcomponents = []string{value}
		return nil
	}
	for len(comp.Subcomponents) < parsed.subcomponent {
		comp.Subcomponents = append(comp.Subcomponents, "")
	}
	comp.Subcomponents[parsed.subcomponent-1] = value
	return nil
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

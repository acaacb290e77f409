package hl7

import "strings"

// Serialize renders msg back to MLLP-ready bytes (segments separated by
// \r, no leading/trailing frame bytes — that's pkg/mllp's job). Trailing
// empty fields within a segment are trimmed, so a segment serializes only
// up to its last non-empty field; trailing empty repetitions, components
// and subcomponents inside a field are written out as they are.
func (m *Message) Serialize() []byte {
	segs := make([]string, len(m.Segments))
	for i, seg := range m.Segments {
		segs[i] = serializeSegment(seg, m.Delimiters)
	}
	return []byte(strings.Join(segs, "\r"))
}

func serializeSegment(seg *Segment, d Delimiters) string {
	fields := trimTrailingEmptyFields(seg.Fields, d)

	if seg.Type == "MSH" {
		var b strings.Builder
		b.WriteString("MSH")
		if len(fields) > 0 {
			b.WriteString(fields[0].Value()) // MSH-1: the separator itself
		} else {
			b.WriteByte(d.Field)
		}
		if len(fields) > 1 {
			b.WriteString(fields[1].Value()) // MSH-2: raw encoding chars
		}
		for _, f := range fields[min(2, len(fields)):] {
			b.WriteByte(d.Field)
			b.WriteString(serializeField(f, d))
		}
		return b.String()
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = serializeField(f, d)
	}
	if len(parts) == 0 {
		return seg.Type
	}
	return seg.Type + string(d.Field) + strings.Join(parts, string(d.Field))
}

func serializeField(f *Field, d Delimiters) string {
	reps := make([]string, len(f.Repetitions))
	for i, r := range f.Repetitions {
		reps[i] = serializeRepetition(r, d)
	}
	return strings.Join(reps, string(d.Repetition))
}

func serializeRepetition(r *Repetition, d Delimiters) string {
	comps := make([]string, len(r.Components))
	for i, c := range r.Components {
		comps[i] = serializeComponent(c, d)
	}
	return strings.Join(comps, string(d.Component))
}

func serializeComponent(c *Component, d Delimiters) string {
	subs := make([]string, len(c.Subcomponents))
	for i, s := range c.Subcomponents {
		subs[i] = Escape(s, d)
	}
	return strings.Join(subs, string(d.Subcomponent))
}

// trimTrailingEmptyFields drops trailing fields whose serialized form is
// empty, so round-tripped messages don't accumulate separators for fields
// the sender never populated.
func trimTrailingEmptyFields(fields []*Field, d Delimiters) []*Field {
	end := len(fields)
	for end > 0 && serializeField(fields[end-1], d) == "" {
		end--
	}
	return fields[:end]
}

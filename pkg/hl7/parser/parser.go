// Package parser builds hl7.Message trees from raw MLLP payload bytes. It
// is intentionally tolerant: unknown segments are preserved verbatim, and
// trailing empty fields are not treated as errors.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"mercator-hq/jupiter/pkg/bridgeerr"
	"mercator-hq/jupiter/pkg/hl7"
)

const op = "hl7.parser.Parse"

// Parse splits payload into segments on CR, discovers delimiters from the
// first (MSH) segment, and builds a Message tree. A trailing LF after CR is
// tolerated and stripped, per the wire convention some HIS systems use.
func Parse(payload []byte) (*hl7.Message, error) {
	lines := splitSegments(payload)
	if len(lines) == 0 {
		return nil, bridgeerr.New(bridgeerr.KindParse, op, nil).WithContext("reason", "empty-payload")
	}
	if len(lines[0]) < 3 || string(lines[0][:3]) != "MSH" {
		return nil, bridgeerr.New(bridgeerr.KindParse, op, nil).WithContext("reason", "bad-header").
			WithContext("detail", "payload does not begin with MSH")
	}

	delims, err := hl7.DiscoverDelimiters(lines[0])
	if err != nil {
		return nil, err
	}

	msg := &hl7.Message{Delimiters: delims}
	for i, line := range lines {
		seg, err := parseSegment(line, delims)
		if err != nil {
			return nil, bridgeerr.New(bridgeerr.KindParse, op, err).
				WithContext("segment_index", i).
				WithContext("byte_offset", segmentOffset(payload, i))
		}
		msg.AppendSegment(seg)
	}
	return msg, nil
}

// splitSegments splits payload on CR (0x0D), stripping a trailing LF
// (0x0A) from each line and dropping a trailing empty segment produced by a
// terminal CR.
func splitSegments(payload []byte) [][]byte {
	raw := bytes.Split(payload, []byte{'\r'})
	out := make([][]byte, 0, len(raw))
	for _, line := range raw {
		line = bytes.TrimSuffix(line, []byte{'\n'})
		if len(line) == 0 {
			continue
		}
		out = append(out, line)
	}
	return out
}

// segmentOffset returns the byte offset of the idx-th segment within
// payload, for error context; it recomputes rather than threading offsets
// through splitSegments to keep that function simple.
func segmentOffset(payload []byte, idx int) int {
	offset := 0
	count := 0
	for i := 0; i <= len(payload); i++ {
		if i == len(payload) || payload[i] == '\r' {
			if count == idx {
				return offset
			}
			count++
			offset = i + 1
		}
	}
	return offset
}

func parseSegment(line []byte, d hl7.Delimiters) (*hl7.Segment, error) {
	if len(line) < 3 {
		return nil, fmt.Errorf("segment too short: %q", line)
	}
	elements := strings.Split(string(line), string(d.Field))
	segType := elements[0]
	seg := &hl7.Segment{Type: segType}

	if segType == "MSH" {
		// MSH-1 is the field separator itself, which the split above
		// consumed rather than surfaced as an element; MSH-2 is
		// elements[1] (the four encoding characters, not split
		// further); MSH-3 onward are elements[2:], parsed normally.
		seg.Fields = append(seg.Fields, hl7.NewField(string(d.Field)))
		if len(elements) > 1 {
			seg.Fields = append(seg.Fields, hl7.NewField(elements[1]))
		}
		for _, fs := range elements[2:] {
			seg.Fields = append(seg.Fields, parseField(fs, d))
		}
		return seg, nil
	}

	for _, fs := range elements[1:] {
		seg.Fields = append(seg.Fields, parseField(fs, d))
	}
	return seg, nil
}

func parseField(s string, d hl7.Delimiters) *hl7.Field {
	f := &hl7.Field{}
	for _, rs := range strings.Split(s, string(d.Repetition)) {
		f.Repetitions = append(f.Repetitions, parseRepetition(rs, d))
	}
	return f
}

func parseRepetition(s string, d hl7.Delimiters) *hl7.Repetition {
	r := &hl7.Repetition{}
	for _, cs := range strings.Split(s, string(d.Component)) {
		r.Components = append(r.Components, parseComponent(cs, d))
	}
	return r
}

func parseComponent(s string, d hl7.Delimiters) *hl7.Component {
	c := &hl7.Component{}
	for _, sub := range strings.Split(s, string(d.Subcomponent)) {
		c.Subcomponents = append(c.Subcomponents, hl7.Unescape(sub, d))
	}
	return c
}

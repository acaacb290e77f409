package hl7

import "mercator-hq/jupiter/pkg/bridgeerr"

// Delimiters holds the encoding characters an HL7 message declares in its
// own MSH segment. They must be discovered from the wire bytes before any
// other segment can be split.
type Delimiters struct {
	Field        byte // MSH-1, immediately after "MSH"
	Component    byte // MSH-2.1
	Repetition   byte // MSH-2.2
	Escape       byte // MSH-2.3
	Subcomponent byte // MSH-2.4
}

// DefaultDelimiters are the conventional HL7 v2.x separators ("|^~\&").
var DefaultDelimiters = Delimiters{
	Field:        '|',
	Component:    '^',
	Repetition:   '~',
	Escape:       '\\',
	Subcomponent: '&',
}

// DiscoverDelimiters reads the field separator and the four encoding
// characters from the start of a serialized MSH segment: MSH-1 is the byte
// at index 3, MSH-2 is the run of four bytes at indices 4-7. It fails with
// bridgeerr.KindParse ("bad-header") if the segment is too short, does not
// begin with "MSH", or the five characters are not pairwise distinct.
func DiscoverDelimiters(msh []byte) (Delimiters, error) {
	const op = "hl7.DiscoverDelimiters"
	if len(msh) < 8 || msh[0] != 'M' || msh[1] != 'S' || msh[2] != 'H' {
		return Delimiters{}, bridgeerr.New(bridgeerr.KindParse, op, nil).
			WithContext("reason", "bad-header").
			WithContext("detail", "segment does not begin with MSH or is too short")
	}
	d := Delimiters{
		Field:        msh[3],
		Component:    msh[4],
		Repetition:   msh[5],
		Escape:       msh[6],
		Subcomponent: msh[7],
	}
	seen := map[byte]bool{d.Field: true}
	for _, c := range []byte{d.Component, d.Repetition, d.Escape, d.Subcomponent} {
		if seen[c] {
			return Delimiters{}, bridgeerr.New(bridgeerr.KindParse, op, nil).
				WithContext("reason", "bad-header").
				WithContext("detail", "encoding characters in MSH-1/MSH-2 are not pairwise distinct")
		}
		seen[c] = true
	}
	return d, nil
}

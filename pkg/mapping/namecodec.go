package mapping

import (
	"strings"

	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/mwl"
)

// NameFromXPNField reads an XPN-structured HL7 field (its first repetition)
// directly off the message tree, component by component, rather than
// through a joined string -- Field.Value() only ever returns the first
// component, which would silently drop everything past the family name.
func NameFromXPNField(f *hl7.Field) mwl.PatientName {
	rep := f.Repetition(1)
	return mwl.PatientName{
		Family: rep.Component(1).Value(),
		Given:  rep.Component(2).Value(),
		Middle: rep.Component(3).Value(),
		Suffix: rep.Component(4).Value(),
		Prefix: rep.Component(5).Value(),
	}
}

// ParseXPN splits an HL7 XPN-component value ("Family^Given^Middle^Suffix^
// Prefix") into a PatientName. Missing trailing components are left empty;
// empty components anywhere are preserved rather than collapsed.
func ParseXPN(value string) mwl.PatientName {
	parts := strings.Split(value, "^")
	get := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return mwl.PatientName{
		Family: get(0),
		Given:  get(1),
		Middle: get(2),
		Suffix: get(3),
		Prefix: get(4),
	}
}

// FormatXPN renders a PatientName in HL7 XPN component order.
func FormatXPN(n mwl.PatientName) string {
	return strings.Join([]string{n.Family, n.Given, n.Middle, n.Suffix, n.Prefix}, "^")
}

// FormatPN renders a PatientName in DICOM PN component order
// ("Family^Given^Middle^Prefix^Suffix"): components four and five swap
// relative to HL7 XPN.
func FormatPN(n mwl.PatientName) string {
	return strings.Join([]string{n.Family, n.Given, n.Middle, n.Prefix, n.Suffix}, "^")
}

// ParsePN parses a DICOM PN-ordered value into a PatientName stored in
// HL7 XPN field order (the canonical order mwl.PatientName uses).
func ParsePN(value string) mwl.PatientName {
	parts := strings.Split(value, "^")
	get := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return mwl.PatientName{
		Family: get(0),
		Given:  get(1),
		Middle: get(2),
		Prefix: get(3),
		Suffix: get(4),
	}
}

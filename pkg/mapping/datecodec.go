package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseHL7TS parses an HL7 TS value: YYYY[MM[DD[hh[mm[ss[.ffff]]]]]][+/-ZZZZ].
// Missing trailing components default to the start of their unit (month 1,
// day 1, hour/minute/second 0). A timezone offset, if present, is honored;
// otherwise the returned time is UTC.
func ParseHL7TS(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("mapping: empty HL7 timestamp")
	}

	body := value
	loc := time.UTC
	if idx := strings.IndexAny(value, "+-"); idx >= 8 {
		offset := value[idx:]
		body = value[:idx]
		tz, err := parseTZOffset(offset)
		if err != nil {
			return time.Time{}, fmt.Errorf("mapping: invalid HL7 timestamp %q: %w", value, err)
		}
		loc = tz
	}

	datePart := body
	fraction := 0
	if dot := strings.IndexByte(body, '.'); dot >= 0 {
		datePart = body[:dot]
		fracStr := body[dot+1:]
		f, err := strconv.Atoi(fracStr)
		if err != nil {
			return time.Time{}, fmt.Errorf("mapping: invalid HL7 fractional seconds in %q: %w", value, err)
		}
		scale := 1
		for i := 0; i < len(fracStr); i++ {
			scale *= 10
		}
		fraction = f * (1_000_000_000 / scale)
	}

	if len(datePart) < 4 {
		return time.Time{}, fmt.Errorf("mapping: HL7 timestamp %q too short", value)
	}
	field := func(start, length, def int) (int, error) {
		if start >= len(datePart) {
			return def, nil
		}
		end := start + length
		if end > len(datePart) {
			end = len(datePart)
		}
		return strconv.Atoi(datePart[start:end])
	}

	year, err := field(0, 4, 0)
	if err != nil {
		return time.Time{}, err
	}
	month, err := field(4, 2, 1)
	if err != nil {
		return time.Time{}, err
	}
	day, err := field(6, 2, 1)
	if err != nil {
		return time.Time{}, err
	}
	hour, err := field(8, 2, 0)
	if err != nil {
		return time.Time{}, err
	}
	minute, err := field(10, 2, 0)
	if err != nil {
		return time.Time{}, err
	}
	second, err := field(12, 2, 0)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, fraction, loc), nil
}

func parseTZOffset(s string) (*time.Location, error) {
	if len(s) != 5 {
		return nil, fmt.Errorf("malformed timezone offset %q", s)
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return nil, err
	}
	mins, err := strconv.Atoi(s[3:5])
	if err != nil {
		return nil, err
	}
	offsetSeconds := sign * (hours*3600 + mins*60)
	return time.FixedZone(s, offsetSeconds), nil
}

// FormatHL7TS renders t as an HL7 TS value with second precision and an
// explicit timezone offset.
func FormatHL7TS(t time.Time) string {
	return t.Format("20060102150405-0700")
}

// FormatDICOMDA renders t's date component as DICOM DA (YYYYMMDD).
func FormatDICOMDA(t time.Time) string {
	return t.Format("20060102")
}

// FormatDICOMTM renders t's time-of-day component as DICOM TM (HHMMSS).
func FormatDICOMTM(t time.Time) string {
	return t.Format("150405")
}

// FormatDICOMDT renders t as DICOM DT (DA immediately followed by TM).
func FormatDICOMDT(t time.Time) string {
	return FormatDICOMDA(t) + FormatDICOMTM(t)
}

// ParseDICOMDA parses a DICOM DA value (YYYYMMDD) as a UTC midnight time.
func ParseDICOMDA(value string) (time.Time, error) {
	if len(value) != 8 {
		return time.Time{}, fmt.Errorf("mapping: malformed DICOM DA %q", value)
	}
	return time.Parse("20060102", value)
}

// ParseDICOMDT parses a DICOM DT value: DA optionally followed by TM.
// Missing time components default to zero, matching ParseHL7TS's policy.
func ParseDICOMDT(value string) (time.Time, error) {
	if len(value) < 8 {
		return time.Time{}, fmt.Errorf("mapping: malformed DICOM DT %q", value)
	}
	return ParseHL7TS(value)
}

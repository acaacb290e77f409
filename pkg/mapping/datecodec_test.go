package mapping

import (
	"testing"
	"time"
)

func TestParseHL7TS_FullPrecision(t *testing.T) {
	got, err := ParseHL7TS("20250101130500-0500")
	if err != nil {
		t.Fatalf("ParseHL7TS() error: %v", err)
	}
	want := time.Date(2025, 1, 1, 13, 5, 0, 0, time.FixedZone("-0500", -5*3600))
	if !got.Equal(want) {
		t.Fatalf("ParseHL7TS() = %v, want %v", got, want)
	}
}

func TestParseHL7TS_DateOnlyDefaultsToMidnight(t *testing.T) {
	got, err := ParseHL7TS("20250101")
	if err != nil {
		t.Fatalf("ParseHL7TS() error: %v", err)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Fatalf("ParseHL7TS() = %v, want midnight", got)
	}
}

func TestParseHL7TS_FractionalSeconds(t *testing.T) {
	got, err := ParseHL7TS("20250101130500.5")
	if err != nil {
		t.Fatalf("ParseHL7TS() error: %v", err)
	}
	if got.Nanosecond() != 500_000_000 {
		t.Fatalf("Nanosecond() = %d, want 500000000", got.Nanosecond())
	}
}

func TestFormatHL7TS_RoundTrips(t *testing.T) {
	t1 := time.Date(2025, 6, 15, 9, 30, 0, 0, time.FixedZone("+0200", 2*3600))
	s := FormatHL7TS(t1)
	t2, err := ParseHL7TS(s)
	if err != nil {
		t.Fatalf("ParseHL7TS() error: %v", err)
	}
	if !t1.Equal(t2) {
		t.Fatalf("round trip mismatch: %v != %v", t1, t2)
	}
}

func TestDICOMDADTFormatAndParse(t *testing.T) {
	t1 := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	if got := FormatDICOMDA(t1); got != "20251231" {
		t.Fatalf("FormatDICOMDA() = %q", got)
	}
	if got := FormatDICOMTM(t1); got != "235959" {
		t.Fatalf("FormatDICOMTM() = %q", got)
	}
	dt := FormatDICOMDT(t1)
	parsed, err := ParseDICOMDT(dt)
	if err != nil {
		t.Fatalf("ParseDICOMDT() error: %v", err)
	}
	if !parsed.Equal(t1) {
		t.Fatalf("ParseDICOMDT() = %v, want %v", parsed, t1)
	}
}

func TestParseDICOMDA_Malformed(t *testing.T) {
	if _, err := ParseDICOMDA("2025"); err == nil {
		t.Fatal("expected error for short DA value")
	}
}

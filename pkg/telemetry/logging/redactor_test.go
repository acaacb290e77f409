package logging

import (
	"testing"

	"mercator-hq/jupiter/pkg/hl7"
)

func TestNewRedactor(t *testing.T) {
	tests := []struct {
		name           string
		customPatterns []RedactPattern
		wantPatterns   int
	}{
		{
			name:           "default patterns only",
			customPatterns: nil,
			wantPatterns:   4, // email, ssn, phone, bearer_token
		},
		{
			name: "with custom patterns",
			customPatterns: []RedactPattern{
				{Name: "custom_id", Pattern: "CUST-[0-9]{6}", Replacement: "CUST-******"},
			},
			wantPatterns: 5,
		},
		{
			name: "invalid custom pattern is skipped",
			customPatterns: []RedactPattern{
				{Name: "invalid", Pattern: "[unclosed", Replacement: "***"},
			},
			wantPatterns: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			redactor := NewRedactor(tt.customPatterns)
			if redactor == nil {
				t.Fatal("NewRedactor returned nil")
			}
			if len(redactor.patterns) < tt.wantPatterns {
				t.Errorf("expected at least %d patterns, got %d", tt.wantPatterns, len(redactor.patterns))
			}
		})
	}
}

func TestRedactor_RedactString_Email(t *testing.T) {
	redactor := NewRedactor(nil)
	input := "Contact user@example.com for results"
	output := redactor.RedactString(input)
	if output == input {
		t.Errorf("email not redacted: %s", output)
	}
	if containsStr(output, "user@example.com") {
		t.Errorf("original email still present: %s", output)
	}
}

func TestRedactor_RedactString_SSN(t *testing.T) {
	redactor := NewRedactor(nil)
	for _, input := range []string{"123-45-6789", "123 45 6789"} {
		output := redactor.RedactString(input)
		if output == input {
			t.Errorf("SSN not redacted: %s", output)
		}
	}
}

func TestRedactor_RedactString_Phone(t *testing.T) {
	redactor := NewRedactor(nil)
	for _, input := range []string{"555-123-4567", "(555) 123-4567"} {
		output := redactor.RedactString(input)
		if output == input {
			t.Errorf("phone not redacted: %s", output)
		}
	}
}

func TestRedactor_RedactString_BearerToken(t *testing.T) {
	redactor := NewRedactor(nil)
	output := redactor.RedactString("Bearer abc123xyz789")
	if output != "Bearer ***" {
		t.Errorf("unexpected redaction: %s", output)
	}
}

func TestRedactor_RedactArgs_SensitiveKeys(t *testing.T) {
	redactor := NewRedactor(nil)

	result := redactor.RedactArgs("patient_name", "DOE^JANE", "accession", "ACC0001")
	if result[1] == "DOE^JANE" {
		t.Error("patient_name value was not redacted")
	}
	if result[3] != "ACC0001" {
		t.Errorf("non-sensitive key accession was altered: %v", result[3])
	}
}

func TestRedactor_RedactArgs_RedactsEmbeddedEmail(t *testing.T) {
	redactor := NewRedactor(nil)
	result := redactor.RedactArgs("message", "Contact user@example.com")
	val, ok := result[1].(string)
	if !ok || containsStr(val, "user@example.com") {
		t.Errorf("embedded email was not redacted: %v", result[1])
	}
}

func TestRedactor_RedactArgs_MessageValue(t *testing.T) {
	redactor := NewRedactor(nil)
	msg := buildRedactorTestMessage()

	result := redactor.RedactArgs("inbound", msg)
	redacted, ok := result[1].(*hl7.Message)
	if !ok {
		t.Fatalf("expected *hl7.Message, got %T", result[1])
	}
	if redacted.Segment("PID").Field(5).Value() != "***" {
		t.Errorf("PID-5 was not masked: %q", redacted.Segment("PID").Field(5).Value())
	}
}

func TestRedactor_isSensitiveKey(t *testing.T) {
	redactor := NewRedactor(nil)

	tests := []struct {
		key       string
		sensitive bool
	}{
		{"password", true},
		{"PASSWORD", true},
		{"patient_name", true},
		{"mrn", true},
		{"ssn", true},
		{"birth_date", true},
		{"address", true},
		{"phone", true},
		{"token", true},
		{"accession", false},
		{"message_type", false},
		{"count", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := redactor.isSensitiveKey(tt.key); got != tt.sensitive {
				t.Errorf("isSensitiveKey(%q) = %v, want %v", tt.key, got, tt.sensitive)
			}
		})
	}
}

func TestRedactor_RedactMessage_MasksConfiguredPaths(t *testing.T) {
	redactor := NewRedactor(nil)
	msg := buildRedactorTestMessage()

	redacted := redactor.RedactMessage(msg)

	if redacted.Segment("PID").Field(5).Value() != "***" {
		t.Errorf("PID-5 not masked: %q", redacted.Segment("PID").Field(5).Value())
	}
	if redacted.Segment("PID").Field(7).Value() != "***" {
		t.Errorf("PID-7 not masked: %q", redacted.Segment("PID").Field(7).Value())
	}
	// PID-2 (an untouched field) must survive unchanged.
	if redacted.Segment("PID").Field(2).Value() != "ALT0001" {
		t.Errorf("untouched field PID-2 changed: %q", redacted.Segment("PID").Field(2).Value())
	}
	// The original message must not be mutated.
	if msg.Segment("PID").Field(5).Value() != "DOE^JANE" {
		t.Errorf("RedactMessage mutated its input: %q", msg.Segment("PID").Field(5).Value())
	}
}

func TestRedactor_RedactMessage_NilIsNoop(t *testing.T) {
	redactor := NewRedactor(nil)
	if got := redactor.RedactMessage(nil); got != nil {
		t.Errorf("RedactMessage(nil) = %v, want nil", got)
	}
}

func TestRedactor_CustomPatterns(t *testing.T) {
	redactor := NewRedactor([]RedactPattern{
		{Name: "custom_id", Pattern: "CUST-[0-9]{6}", Replacement: "CUST-******"},
	})

	if out := redactor.RedactString("Customer CUST-123456 made a request"); out == "Customer CUST-123456 made a request" {
		t.Errorf("custom pattern did not redact: %s", out)
	}
	if out := redactor.RedactString("no match here"); out != "no match here" {
		t.Errorf("unrelated string was altered: %s", out)
	}
}

func buildRedactorTestMessage() *hl7.Message {
	msg := hl7.NewMessage()
	pid := &hl7.Segment{Type: "PID"}
	pid.SetField(2, hl7.NewField("ALT0001"))
	pid.SetField(5, hl7.NewField("DOE^JANE"))
	pid.SetField(7, hl7.NewField("19800101"))
	msg.AppendSegment(pid)
	return msg
}

func containsStr(s, substr string) bool {
	return len(s) >= len(substr) && hasSubstring(s, substr)
}

func hasSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

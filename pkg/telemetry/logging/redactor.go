package logging

import (
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/jupiter/pkg/hl7"
)

// Redactor masks PHI (Protected Health Information) before it reaches a log
// sink: by HL7 segment.field path when the value being logged is a parsed
// *hl7.Message, and by regex/key-name heuristics for everything else (raw
// payload dumps, error strings that embed a field value).
type Redactor struct {
	patterns map[string]*redactPattern
	phiPaths []PHIPath
	enabled  bool
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// RedactPattern is a caller-supplied regex/replacement pair, for sites that
// want to mask something beyond the built-in pattern set (a site-specific
// identifier format, say).
type RedactPattern struct {
	Name        string
	Pattern     string
	Replacement string
}

// PHIPath names a segment type and 1-based field number carrying patient
// identity or free-text clinical content, e.g. {"PID", 5} for patient name.
type PHIPath struct {
	SegmentType string
	Field       int
}

// DefaultPHIPaths is the field set the spec calls out explicitly: patient
// name, birth date, address, phone, and the patient identifier list in PID,
// plus OBX-5's observation value, which carries free-text results.
func DefaultPHIPaths() []PHIPath {
	return []PHIPath{
		{"PID", 3},  // patient identifier list
		{"PID", 5},  // patient name
		{"PID", 7},  // birth date
		{"PID", 11}, // address
		{"PID", 13}, // home phone
		{"PID", 19}, // SSN
		{"OBX", 5},  // observation value
	}
}

// Common PII/PHI pattern names for free-text redaction.
const (
	PatternEmail       = "email"
	PatternSSN         = "ssn"
	PatternPhone       = "phone"
	PatternBearerToken = "bearer_token"
)

// NewRedactor creates a Redactor with the default PHI patterns/paths plus
// any custom patterns.
func NewRedactor(customPatterns []RedactPattern) *Redactor {
	r := &Redactor{
		patterns: make(map[string]*redactPattern),
		phiPaths: DefaultPHIPaths(),
		enabled:  true,
	}

	r.addDefaultPatterns()

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns[p.Name] = &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		}
	}

	return r
}

func (r *Redactor) addDefaultPatterns() {
	patterns := map[string]struct {
		regex       string
		replacement string
	}{
		PatternEmail: {
			regex:       `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
			replacement: "***@redacted",
		},
		PatternSSN: {
			regex:       `\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`,
			replacement: "***-**-****",
		},
		PatternPhone: {
			regex:       `\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`,
			replacement: "***-***-****",
		},
		PatternBearerToken: {
			regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},
	}

	for name, p := range patterns {
		r.patterns[name] = &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		}
	}
}

// RedactString redacts PHI-shaped substrings from a free-text value.
func (r *Redactor) RedactString(value string) string {
	if !r.enabled || value == "" {
		return value
	}
	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// RedactArgs redacts PHI from variadic log arguments, given as
// key1, value1, key2, value2, ...
func (r *Redactor) RedactArgs(args ...any) []any {
	if !r.enabled || len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && r.isSensitiveKey(key) {
			redacted[i] = r.redactValue(redacted[i])
			continue
		}
		if msg, ok := redacted[i].(*hl7.Message); ok {
			redacted[i] = r.RedactMessage(msg)
			continue
		}
		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

// RedactMessage returns a copy of msg with every configured PHI path masked
// to "***"; segment structure and every other field is left intact so the
// result still validates/shows message type and control ID in logs.
func (r *Redactor) RedactMessage(msg *hl7.Message) *hl7.Message {
	if msg == nil || !r.enabled {
		return msg
	}

	out := &hl7.Message{Delimiters: msg.Delimiters, Segments: make([]*hl7.Segment, len(msg.Segments))}
	for i, seg := range msg.Segments {
		copied := &hl7.Segment{Type: seg.Type, Fields: make([]*hl7.Field, len(seg.Fields))}
		copy(copied.Fields, seg.Fields)
		out.Segments[i] = copied
	}

	for _, p := range r.phiPaths {
		for _, seg := range out.Segments {
			if seg.Type != p.SegmentType {
				continue
			}
			if p.Field >= 1 && p.Field <= len(seg.Fields) && seg.Field(p.Field).Value() != "" {
				seg.SetField(p.Field, hl7.NewField("***"))
			}
		}
	}

	return out
}

func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	sensitiveKeys := []string{
		"patient_name", "patient_id", "mrn", "ssn", "birth_date", "dob",
		"address", "phone", "password", "passwd", "pwd",
		"secret", "token", "api_key", "apikey", "auth", "authorization",
	}
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

func (r *Redactor) redactValue(value any) any {
	switch v := value.(type) {
	case string:
		if v == "" {
			return ""
		}
		if len(v) <= 4 {
			return "***"
		}
		return v[:4] + "***"
	case *hl7.Message:
		return r.RedactMessage(v)
	case fmt.Stringer:
		return "***"
	default:
		return "***"
	}
}

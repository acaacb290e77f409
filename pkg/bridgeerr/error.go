// Package bridgeerr defines the error taxonomy shared across the bridge's
// components. Every public operation returns either a value or a *Error
// carrying a Kind and structured context; no control flow by panic/recover
// in the core.
package bridgeerr

import "fmt"

// Kind categorizes a failure so callers can decide on ACK codes, retry
// behavior, or process exit codes without string-matching messages.
type Kind string

const (
	// KindFraming means an MLLP frame was malformed; session-fatal.
	KindFraming Kind = "framing-error"
	// KindParse means HL7 bytes could not be parsed into a message tree.
	KindParse Kind = "parse-error"
	// KindValidation means a message parsed but failed schema checks.
	KindValidation Kind = "validation-error"
	// KindMapping means HL7<->DICOM translation could not produce a
	// target representation.
	KindMapping Kind = "mapping-error"
	// KindStorage means a persistence operation failed.
	KindStorage Kind = "storage-error"
	// KindTransport means an MLLP connect/write/read failed.
	KindTransport Kind = "transport-error"
	// KindTimeout means a configured deadline was crossed.
	KindTimeout Kind = "timeout"
	// KindStateTransition means a state machine rejected a transition.
	KindStateTransition Kind = "state-transition-error"
	// KindCapacity means a bounded resource (e.g. the queue) is full.
	KindCapacity Kind = "capacity-error"
	// KindFatalInit means startup could not complete; only used before
	// the process begins serving traffic.
	KindFatalInit Kind = "fatal-init-error"
)

// Error is the structured error type returned by bridge components.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "mllp.Deframe", "hl7.Parse".
	Op string
	// Context carries kind-specific details (byte offset, segment index,
	// destination name, SOP instance UID, ...).
	Context map[string]any
	// Err is the underlying cause, if any.
	Err error
}

// New constructs an *Error with the given kind, operation, and optional
// wrapped cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithContext returns a copy of e with key set in its Context map.
func (e *Error) WithContext(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind, allowing
// errors.Is(err, bridgeerr.KindParse) via KindError helpers, or comparison
// against another *Error carrying the same Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && (other.Op == "" || other.Op == e.Op)
}

// Sentinel returns a reusable *Error value for the given kind/op pair with
// no wrapped cause, suitable for errors.Is comparisons:
//
//	if errors.Is(err, bridgeerr.Sentinel(bridgeerr.KindTimeout, "mllp.Client.Send")) { ... }
func Sentinel(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, with ok
// reporting whether one was found.
func KindOf(err error) (Kind, bool) {
	var be *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			be = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if be == nil {
		return "", false
	}
	return be.Kind, true
}

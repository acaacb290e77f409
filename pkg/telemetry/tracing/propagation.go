package tracing

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/jupiter/pkg/hl7"
)

// Trace Context Propagation
//
// Inbound/outbound MLLP sessions carry trace context on a private ZTR
// segment, since HL7 v2.x has no standard field for it. ZTR mirrors the
// W3C Trace Context traceparent format so traces can be stitched together
// with whatever else in the deployment speaks W3C (an admin HTTP API, a
// sibling service instrumented with OTel's http.Transport):
//
//	ZTR|1|00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// ZTR-1 is a sequence number (always "1" today, reserved for future
// multi-hop chains). ZTR-2 is a standard traceparent string:
// version-trace_id-parent_id-trace_flags.
//
// The W3C helpers below remain for any HTTP-facing component (an admin
// API, a metrics scrape) that isn't HL7/MLLP.

const ztrSegmentType = "ZTR"

// InjectZTR appends a ZTR segment carrying ctx's span context onto msg. A
// no-op if ctx carries no valid span context.
func InjectZTR(ctx context.Context, msg *hl7.Message) {
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return
	}

	traceparent := fmt.Sprintf("00-%s-%s-%s",
		span.TraceID().String(), span.SpanID().String(), flagsHex(span))

	seg := hl7.NewSegment(ztrSegmentType)
	seg.SetField(1, hl7.NewField("1"))
	seg.SetField(2, hl7.NewField(traceparent))
	msg.AppendSegment(seg)
}

// ExtractZTR returns a context carrying the span context found in msg's ZTR
// segment, or ctx unchanged if msg has no ZTR segment or its traceparent is
// malformed.
func ExtractZTR(ctx context.Context, msg *hl7.Message) context.Context {
	seg := msg.Segment(ztrSegmentType)
	if seg == nil {
		return ctx
	}

	traceparent := seg.Field(2).Value()
	_, traceIDHex, spanIDHex, flagsStr, valid := ParseTraceParent(traceparent)
	if !valid {
		return ctx
	}

	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(spanIDHex)
	if err != nil {
		return ctx
	}

	flagsByte, err := strconv.ParseUint(flagsStr, 16, 8)
	if err != nil {
		return ctx
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.TraceFlags(flagsByte),
		Remote:     true,
	})
	return trace.ContextWithSpanContext(ctx, sc)
}

func flagsHex(sc trace.SpanContext) string {
	if sc.IsSampled() {
		return "01"
	}
	return "00"
}

// W3C Trace Context Propagation (HTTP)
//
// The W3C Trace Context specification (https://www.w3.org/TR/trace-context/)
// defines standard HTTP headers for propagating trace context across
// service boundaries: traceparent (required) and tracestate (optional).

// Propagator returns the configured text map propagator.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract extracts trace context from HTTP headers and returns a context
// with the extracted trace context.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject injects trace context into HTTP headers.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// ExtractFromMap extracts trace context from a string map.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	return Propagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap injects trace context into a string map.
func InjectToMap(ctx context.Context, carrier map[string]string) {
	Propagator().Inject(ctx, propagation.MapCarrier(carrier))
}

// HTTPMiddleware extracts trace context from incoming requests and stamps
// the response with trace/span IDs for debugging.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)

		if span := SpanFromContext(ctx); span.SpanContext().IsValid() {
			w.Header().Set("X-Trace-ID", span.SpanContext().TraceID().String())
			w.Header().Set("X-Span-ID", span.SpanContext().SpanID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateTraceParent validates the traceparent header format.
//
// Format: version-trace_id-parent_id-trace_flags
//   - version: 2 hex digits
//   - trace_id: 32 hex digits
//   - parent_id: 16 hex digits
//   - trace_flags: 2 hex digits
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}

	if len(parts[0]) != 2 || !isHexString(parts[0]) {
		return false
	}
	if len(parts[1]) != 32 || !isHexString(parts[1]) {
		return false
	}
	if len(parts[2]) != 16 || !isHexString(parts[2]) {
		return false
	}
	if len(parts[3]) != 2 || !isHexString(parts[3]) {
		return false
	}

	if parts[1] == "00000000000000000000000000000000" {
		return false
	}
	if parts[2] == "0000000000000000" {
		return false
	}

	return true
}

func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// ParseTraceParent parses a traceparent header into its components.
func ParseTraceParent(traceparent string) (version, traceID, parentID, flags string, valid bool) {
	if !ValidateTraceParent(traceparent) {
		return "", "", "", "", false
	}

	parts := strings.Split(traceparent, "-")
	return parts[0], parts[1], parts[2], parts[3], true
}

// IsSampledFromTraceParent checks if a trace is sampled based on the
// traceparent header's trace flags.
func IsSampledFromTraceParent(traceparent string) bool {
	_, _, _, flags, valid := ParseTraceParent(traceparent)
	if !valid {
		return false
	}

	if len(flags) != 2 {
		return false
	}

	var flagsByte byte
	if _, err := fmt.Sscanf(flags, "%02x", &flagsByte); err != nil {
		return false
	}

	return (flagsByte & 0x01) == 0x01
}

// PropagationDebugInfo returns debug information about trace propagation
// from HTTP headers.
func PropagationDebugInfo(headers http.Header) map[string]string {
	info := make(map[string]string)

	if traceparent := headers.Get("traceparent"); traceparent != "" {
		info["traceparent"] = traceparent
		version, traceID, parentID, flags, valid := ParseTraceParent(traceparent)
		if valid {
			info["version"] = version
			info["trace_id"] = traceID
			info["parent_id"] = parentID
			info["flags"] = flags
			info["sampled"] = fmt.Sprintf("%t", IsSampledFromTraceParent(traceparent))
		} else {
			info["error"] = "invalid traceparent format"
		}
	} else {
		info["traceparent"] = "not present"
	}

	if tracestate := headers.Get("tracestate"); tracestate != "" {
		info["tracestate"] = tracestate
	} else {
		info["tracestate"] = "not present"
	}

	return info
}

package tracing

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span Attribute Helpers
//
// Custom attribute keys use the "pacsbridge.*" namespace, covering the HL7
// message in flight, the MLLP session it arrived or departed on, and the
// outbound destination/queue entry it resulted in.

const (
	// Message attributes
	AttrMessageType  = "pacsbridge.message_type"
	AttrTriggerEvent = "pacsbridge.trigger_event"
	AttrControlID    = "pacsbridge.control_id"

	// Correlation attributes
	AttrCorrelationID = "pacsbridge.correlation_id"
	AttrSessionID     = "pacsbridge.session_id"
	AttrAccession     = "pacsbridge.accession"

	// Routing/delivery attributes
	AttrDestination  = "pacsbridge.destination"
	AttrRoutingRule  = "pacsbridge.routing_rule"
	AttrIsFailover   = "pacsbridge.is_failover"

	// Queue attributes
	AttrQueueEntryID = "pacsbridge.queue.entry_id"
	AttrQueueAttempt = "pacsbridge.queue.attempt"

	// ACK attributes
	AttrAckCode = "pacsbridge.ack_code"

	// Error attributes
	AttrErrorKind    = "pacsbridge.error.kind"
	AttrErrorMessage = "error.message"

	// Performance attributes
	AttrDuration   = "pacsbridge.duration_ms"
	AttrRetryCount = "pacsbridge.retry_count"
)

// SetMessageAttributes sets HL7 message-identity attributes on a span.
func SetMessageAttributes(span trace.Span, messageType, triggerEvent, controlID string) {
	span.SetAttributes(
		attribute.String(AttrMessageType, messageType),
		attribute.String(AttrTriggerEvent, triggerEvent),
		attribute.String(AttrControlID, controlID),
	)
}

// SetCorrelationAttributes sets correlation/session identity attributes on
// a span.
func SetCorrelationAttributes(span trace.Span, correlationID, sessionID, accession string) {
	attrs := []attribute.KeyValue{}
	if correlationID != "" {
		attrs = append(attrs, attribute.String(AttrCorrelationID, correlationID))
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	if accession != "" {
		attrs = append(attrs, attribute.String(AttrAccession, accession))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

// SetRoutingAttributes sets destination-selection attributes on a span.
func SetRoutingAttributes(span trace.Span, destination, rule string, isFailover bool) {
	span.SetAttributes(
		attribute.String(AttrDestination, destination),
		attribute.String(AttrRoutingRule, rule),
		attribute.Bool(AttrIsFailover, isFailover),
	)
}

// SetQueueAttributes sets durable-queue attributes on a span.
func SetQueueAttributes(span trace.Span, entryID int64, attempt int) {
	span.SetAttributes(
		attribute.Int64(AttrQueueEntryID, entryID),
		attribute.Int(AttrQueueAttempt, attempt),
	)
}

// SetAckAttribute sets the ACK code attribute on a span (AA/AE/AR).
func SetAckAttribute(span trace.Span, ackCode string) {
	span.SetAttributes(attribute.String(AttrAckCode, ackCode))
}

// SetErrorAttributes sets error-related attributes on a span, records the
// error, and sets the span status.
func SetErrorAttributes(span trace.Span, err error, errorKind string) {
	if err == nil {
		return
	}

	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String(AttrErrorKind, errorKind),
		attribute.String(AttrErrorMessage, err.Error()),
	)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetDurationAttribute sets the duration attribute on a span, in
// milliseconds.
func SetDurationAttribute(span trace.Span, durationMs int64) {
	span.SetAttributes(attribute.Int64(AttrDuration, durationMs))
}

// SetRetryAttribute sets the retry count attribute on a span.
func SetRetryAttribute(span trace.Span, retryCount int) {
	span.SetAttributes(attribute.Int(AttrRetryCount, retryCount))
}

// AddEvent adds a named event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordException records an exception event on the span.
func RecordException(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// AttributeBuilder provides a fluent interface for building span attributes.
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates a new attribute builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{attrs: make([]attribute.KeyValue, 0, 8)}
}

// WithMessage adds HL7 message-identity attributes.
func (ab *AttributeBuilder) WithMessage(messageType, triggerEvent string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrMessageType, messageType),
		attribute.String(AttrTriggerEvent, triggerEvent),
	)
	return ab
}

// WithCorrelation adds correlation/accession attributes.
func (ab *AttributeBuilder) WithCorrelation(correlationID, accession string) *AttributeBuilder {
	if correlationID != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrCorrelationID, correlationID))
	}
	if accession != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrAccession, accession))
	}
	return ab
}

// WithRouting adds destination-selection attributes.
func (ab *AttributeBuilder) WithRouting(destination, rule string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrDestination, destination),
		attribute.String(AttrRoutingRule, rule),
	)
	return ab
}

// WithQueue adds durable-queue attributes.
func (ab *AttributeBuilder) WithQueue(entryID int64, attempt int) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.Int64(AttrQueueEntryID, entryID),
		attribute.Int(AttrQueueAttempt, attempt),
	)
	return ab
}

// WithCustom adds a custom attribute, inferring the OTel type from value's
// Go type.
func (ab *AttributeBuilder) WithCustom(key string, value interface{}) *AttributeBuilder {
	switch v := value.(type) {
	case string:
		ab.attrs = append(ab.attrs, attribute.String(key, v))
	case int:
		ab.attrs = append(ab.attrs, attribute.Int(key, v))
	case int64:
		ab.attrs = append(ab.attrs, attribute.Int64(key, v))
	case float64:
		ab.attrs = append(ab.attrs, attribute.Float64(key, v))
	case bool:
		ab.attrs = append(ab.attrs, attribute.Bool(key, v))
	default:
		ab.attrs = append(ab.attrs, attribute.String(key, fmt.Sprintf("%v", v)))
	}
	return ab
}

// Build returns the built attributes as a trace.SpanStartOption.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Apply applies the attributes to a span.
func (ab *AttributeBuilder) Apply(span trace.Span) {
	span.SetAttributes(ab.attrs...)
}

// Attributes returns the raw attribute slice.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}

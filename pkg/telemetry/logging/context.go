package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// CorrelationIDKey is the context key for a request's correlation ID,
	// threaded from inbound MLLP session through mapping, routing, and the
	// durable queue.
	CorrelationIDKey contextKey = "correlation_id"

	// SessionIDKey is the context key for the MLLP session identifier.
	SessionIDKey contextKey = "session_id"

	// DestinationKey is the context key for the outbound destination name.
	DestinationKey contextKey = "destination"

	// AccessionKey is the context key for the accession number a message
	// or MWL/MPPS operation concerns.
	AccessionKey contextKey = "accession"

	// MessageTypeKey is the context key for the HL7 message type
	// (e.g. "ORM").
	MessageTypeKey contextKey = "message_type"

	// TriggerEventKey is the context key for the HL7 trigger event
	// (e.g. "O01").
	TriggerEventKey contextKey = "trigger_event"

	// TraceIDKey is the context key for the distributed trace ID.
	TraceIDKey contextKey = "trace_id"

	// SpanIDKey is the context key for the span ID.
	SpanIDKey contextKey = "span_id"
)

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID retrieves the correlation ID from the context.
func GetCorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID adds an MLLP session identifier to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// GetSessionID retrieves the MLLP session identifier from the context.
func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(SessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithDestination adds an outbound destination name to the context.
func WithDestination(ctx context.Context, destination string) context.Context {
	return context.WithValue(ctx, DestinationKey, destination)
}

// GetDestination retrieves the outbound destination name from the context.
func GetDestination(ctx context.Context) string {
	if v, ok := ctx.Value(DestinationKey).(string); ok {
		return v
	}
	return ""
}

// WithAccession adds an accession number to the context.
func WithAccession(ctx context.Context, accession string) context.Context {
	return context.WithValue(ctx, AccessionKey, accession)
}

// GetAccession retrieves the accession number from the context.
func GetAccession(ctx context.Context) string {
	if v, ok := ctx.Value(AccessionKey).(string); ok {
		return v
	}
	return ""
}

// WithMessageType adds an HL7 message type and trigger event to the
// context.
func WithMessageType(ctx context.Context, messageType, triggerEvent string) context.Context {
	ctx = context.WithValue(ctx, MessageTypeKey, messageType)
	return context.WithValue(ctx, TriggerEventKey, triggerEvent)
}

// GetMessageType retrieves the HL7 message type from the context.
func GetMessageType(ctx context.Context) string {
	if v, ok := ctx.Value(MessageTypeKey).(string); ok {
		return v
	}
	return ""
}

// GetTriggerEvent retrieves the HL7 trigger event from the context.
func GetTriggerEvent(ctx context.Context) string {
	if v, ok := ctx.Value(TriggerEventKey).(string); ok {
		return v
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSpanID adds a span ID to the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// GetSpanID retrieves the span ID from the context.
func GetSpanID(ctx context.Context) string {
	if v, ok := ctx.Value(SpanIDKey).(string); ok {
		return v
	}
	return ""
}

// extractContextFields extracts common fields from context for logging, as
// key-value pairs suitable for Logger.With.
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if v := GetCorrelationID(ctx); v != "" {
		fields = append(fields, "correlation_id", v)
	}
	if v := GetSessionID(ctx); v != "" {
		fields = append(fields, "session_id", v)
	}
	if v := GetDestination(ctx); v != "" {
		fields = append(fields, "destination", v)
	}
	if v := GetAccession(ctx); v != "" {
		fields = append(fields, "accession", v)
	}
	if v := GetMessageType(ctx); v != "" {
		fields = append(fields, "message_type", v)
	}
	if v := GetTriggerEvent(ctx); v != "" {
		fields = append(fields, "trigger_event", v)
	}
	if v := GetTraceID(ctx); v != "" {
		fields = append(fields, "trace_id", v)
	}
	if v := GetSpanID(ctx); v != "" {
		fields = append(fields, "span_id", v)
	}

	return fields
}

// ContextLogger is a logger that automatically includes context fields.
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

// NewContextLogger creates a logger that automatically includes context fields.
func NewContextLogger(logger *Logger, ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger: logger.WithContext(ctx),
		ctx:    ctx,
	}
}

// Debug logs a debug message with context fields.
func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.DebugContext(cl.ctx, msg, args...)
}

// Info logs an info message with context fields.
func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.InfoContext(cl.ctx, msg, args...)
}

// Warn logs a warning message with context fields.
func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.WarnContext(cl.ctx, msg, args...)
}

// Error logs an error message with context fields.
func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.ErrorContext(cl.ctx, msg, args...)
}

// With creates a new context logger with additional fields.
func (cl *ContextLogger) With(args ...any) *ContextLogger {
	return &ContextLogger{
		logger: cl.logger.With(args...),
		ctx:    cl.ctx,
	}
}

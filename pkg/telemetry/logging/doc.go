// Package logging provides structured logging with PHI redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog to provide:
//   - Structured logging with JSON, text, and console formats
//   - PHI redaction, by HL7 segment.field path for *hl7.Message values and
//     by key-name/regex heuristics for everything else
//   - Context-aware logging with correlation ID, destination, and HL7
//     message type/trigger event
//   - Synchronous writes: each record goes straight to the configured writer
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//
//	logger.Info("dispatched outbound ORM",
//	    "destination", "RIS",
//	    "inbound", mppsEventMessage,  // *hl7.Message, PID/OBX fields masked
//	)
//
//	ctx := logging.WithCorrelationID(context.Background(), "corr-123")
//	ctxLogger := logger.WithContext(ctx)
//	ctxLogger.Info("processing")  // includes correlation_id automatically
//
// # PHI redaction
//
//   - *hl7.Message values: PID-3/5/7/11/13/19 and OBX-5 masked to "***"
//   - Sensitive-keyed args (patient_name, mrn, ssn, birth_date, ...):
//     masked to a short prefix
//   - Free-text string values: email/SSN/phone/bearer-token substrings
//     matched and masked regardless of key name
//
// # Performance
//
//   - <1µs when log level filters out the message
//   - Records are written synchronously; none is buffered or dropped
package logging

// Package handlers implements the (message-type, trigger-event) handler
// registry: the MLLP server's single entry point, which parses an
// inbound payload, validates it, dispatches to the handler registered
// for its type/trigger, and always responds with an ACK/NAK
// rather than propagating mapping failures to the peer.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/jupiter/pkg/bridgeerr"
	"mercator-hq/jupiter/pkg/cache"
	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/hl7/parser"
	"mercator-hq/jupiter/pkg/hl7/validator"
	"mercator-hq/jupiter/pkg/mapping"
	"mercator-hq/jupiter/pkg/mllp"
	"mercator-hq/jupiter/pkg/mwl"
	"mercator-hq/jupiter/pkg/telemetry/logging"
	"mercator-hq/jupiter/pkg/telemetry/metrics"
	"mercator-hq/jupiter/pkg/telemetry/tracing"
)

// Deps are the domain collaborators every registered handler function may
// call into. Handlers are pure with respect to the Registry itself: all
// mutable state lives behind these interfaces.
type Deps struct {
	MWL       mwl.Store
	Cache     *cache.PatientCache
	Validator *validator.Validator
	Metrics   metrics.Sink
	Tracer    *tracing.Tracer
}

// HandlerFunc maps one inbound message to its MWL/cache side effects. Any
// returned error, including a storage error from the MWL store, becomes an
// AE ACK; the registry never retries, so a resend is up to the peer.
type HandlerFunc func(ctx context.Context, deps *Deps, msg *hl7.Message) error

// Registry dispatches parsed HL7 messages to per-(message-type,
// trigger-event) handlers. It is built once at startup with every
// default registration and is read-only thereafter, to avoid locking on
// the hot path.
type Registry struct {
	deps     *Deps
	handlers map[string]HandlerFunc
}

// NewRegistry builds a Registry over deps, pre-registered with the
// default ADT/ORM/SIU handlers that have full mapper coverage.
func NewRegistry(deps *Deps) *Registry {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopSink{}
	}
	r := &Registry{deps: deps, handlers: make(map[string]HandlerFunc)}

	r.Register("ORM", "O01", handleORM)

	r.Register("ADT", "A01", handleADT)
	r.Register("ADT", "A04", handleADT)
	r.Register("ADT", "A08", handleADT)
	r.Register("ADT", "A40", handleADT)

	r.Register("SIU", "S12", handleSIU)
	r.Register("SIU", "S13", handleSIU)
	r.Register("SIU", "S14", handleSIU)
	r.Register("SIU", "S15", handleSIU)

	return r
}

// Register adds or replaces the handler for messageType/triggerEvent.
func (r *Registry) Register(messageType, triggerEvent string, fn HandlerFunc) {
	r.handlers[registryKey(messageType, triggerEvent)] = fn
}

func registryKey(messageType, triggerEvent string) string {
	return messageType + "^" + triggerEvent
}

var _ mllp.Handler = (*Registry)(nil)

// Handle implements mllp.Handler: parse, validate, dispatch, and always
// produce an ACK unless the payload could not be parsed at all (in which
// case there is no MSH to swap sender/receiver on, so the error is
// surfaced to the session instead of acknowledged).
func (r *Registry) Handle(ctx context.Context, sess *mllp.Session, payload []byte) ([]byte, error) {
	const op = "handlers.Registry.Handle"

	ctx, span := r.deps.Tracer.Start(ctx, "pacsbridge.handlers.handle")
	defer span.End()

	msg, err := parser.Parse(payload)
	if err != nil {
		tracing.SetErrorAttributes(span, err, "parse")
		return nil, bridgeerr.New(bridgeerr.KindParse, op, err).WithContext("session", sess.ID)
	}

	code, trigger := msg.MessageType()
	ctx = logging.WithSessionID(ctx, sess.ID)
	ctx = logging.WithMessageType(ctx, code, trigger)
	ctx = tracing.ExtractZTR(ctx, msg)
	tracing.SetMessageAttributes(span, code, trigger, msg.ControlID())
	r.deps.Metrics.IncMessageIn(code, trigger)

	ackControlID := uuid.NewString()
	timestamp := mapping.FormatHL7TS(time.Now())

	if issues := r.deps.Validator.Validate(msg); len(issues) > 0 {
		ack := hl7.BuildAE(msg, ackControlID, timestamp, formatIssues(issues))
		tracing.SetAckAttribute(span, string(hl7.AckApplicationError))
		return ack.Serialize(), nil
	}

	fn, ok := r.handlers[registryKey(code, trigger)]
	if !ok {
		// Unregistered types parse and are preserved but mapping is a
		// no-op: acknowledge positively, nothing to apply.
		ack := hl7.BuildAA(msg, ackControlID, timestamp)
		tracing.SetAckAttribute(span, string(hl7.AckCommitAccept))
		return ack.Serialize(), nil
	}

	if err := fn(ctx, r.deps, msg); err != nil {
		tracing.SetErrorAttributes(span, err, "mapping")
		ack := hl7.BuildAE(msg, ackControlID, timestamp, err.Error())
		tracing.SetAckAttribute(span, string(hl7.AckApplicationError))
		return ack.Serialize(), nil
	}

	ack := hl7.BuildAA(msg, ackControlID, timestamp)
	tracing.SetAckAttribute(span, string(hl7.AckCommitAccept))
	return ack.Serialize(), nil
}

func formatIssues(issues []validator.Issue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%d validation issue(s): %s", len(issues), strings.Join(parts, "; "))
}

// Package sender implements the reliable outbound delivery path: attempt
// a direct MLLP send within a bounded timeout, fall back to the durable
// queue on failure or negative ACK, and serve as the queue.Sender the
// worker pool calls back into for retries.
package sender

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/jupiter/pkg/bridgeerr"
	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/hl7/parser"
	"mercator-hq/jupiter/pkg/mllp"
	"mercator-hq/jupiter/pkg/queue"
	"mercator-hq/jupiter/pkg/routing"
	"mercator-hq/jupiter/pkg/telemetry/metrics"
	"mercator-hq/jupiter/pkg/telemetry/tracing"
)

// Config controls the reliable sender's direct-attempt behavior.
type Config struct {
	// AlwaysQueue skips the direct attempt entirely and enqueues every
	// message.
	AlwaysQueue bool

	// DirectTimeout bounds a single direct-send attempt, including
	// connect, write, and the ACK read.
	DirectTimeout time.Duration

	// Priority is the queue priority assigned to entries this sender
	// creates; lower values are delivered first.
	Priority int
}

// DefaultConfig returns a 5s direct-attempt timeout and priority 0.
func DefaultConfig() Config {
	return Config{DirectTimeout: 5 * time.Second}
}

// Sender resolves a destination via Router, attempts direct delivery, and
// enqueues on failure. It also implements queue.Sender for the worker
// pool's retries, which go to the destination recorded on the entry,
// looked up by name; retries are not routed again.
type Sender struct {
	router      routing.Router
	queueStore  queue.Store
	byName      map[string]*routing.Destination
	cfg         Config
	metricsSink metrics.Sink
	tracer      *tracing.Tracer
}

// New builds a Sender. destinations indexes every configured destination
// by name so retries delivered by the worker pool (which only carries a
// destination name, not a *routing.Destination) can be dialed.
func New(router routing.Router, queueStore queue.Store, destinations map[string]*routing.Destination, cfg Config, metricsSink metrics.Sink, tracer *tracing.Tracer) *Sender {
	if metricsSink == nil {
		metricsSink = metrics.NoopSink{}
	}
	return &Sender{
		router:      router,
		queueStore:  queueStore,
		byName:      destinations,
		cfg:         cfg,
		metricsSink: metricsSink,
		tracer:      tracer,
	}
}

// Deliver routes req, attempts a direct send unless AlwaysQueue is set,
// and enqueues the payload for retry on failure or negative ACK. A nil
// error means the message was either delivered or durably queued; it
// never means "lost".
func (s *Sender) Deliver(ctx context.Context, req *routing.RoutingRequest, msg *hl7.Message) error {
	const op = "sender.Sender.Deliver"

	ctx, span := s.tracer.Start(ctx, "pacsbridge.sender.deliver")
	defer span.End()

	result, err := s.router.Route(ctx, req)
	if err != nil {
		tracing.SetErrorAttributes(span, err, "routing")
		return bridgeerr.New(bridgeerr.KindTransport, op, err).WithContext("message_type", req.MessageType)
	}
	tracing.SetRoutingAttributes(span, result.Destination.Name, result.Rule, result.IsFailover)

	tracing.InjectZTR(ctx, msg)
	payload := msg.Serialize()

	if !s.cfg.AlwaysQueue && s.attemptDirect(ctx, result.Destination, payload) {
		s.metricsSink.IncMessageOut(req.MessageType, req.TriggerEvent, result.Destination.Name)
		return nil
	}

	entry := &queue.Entry{
		Destination: result.Destination.Name,
		Payload:     payload,
		Priority:    s.cfg.Priority,
		Correlation: req.CorrelationID,
	}
	if _, err := s.queueStore.Enqueue(ctx, entry); err != nil {
		tracing.SetErrorAttributes(span, err, "storage")
		return bridgeerr.New(bridgeerr.KindStorage, op, err).WithContext("destination", result.Destination.Name)
	}
	s.metricsSink.IncQueueRetry(result.Destination.Name)
	return nil
}

// attemptDirect tries one direct MLLP send and reports the outcome back
// to Router's health tracking. It returns true only on a positive ACK.
func (s *Sender) attemptDirect(ctx context.Context, dest *routing.Destination, payload []byte) bool {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DirectTimeout)
	defer cancel()

	client := mllp.NewClient(mllp.ClientConfig{
		Address:        fmt.Sprintf("%s:%d", dest.Host, dest.Port),
		ConnectTimeout: s.cfg.DirectTimeout,
		WriteTimeout:   s.cfg.DirectTimeout,
		ReadTimeout:    s.cfg.DirectTimeout,
	})

	resp, err := client.Send(ctx, payload)
	if err != nil {
		s.router.Report(dest.Name, false)
		return false
	}

	ack, err := parser.Parse(resp)
	if err != nil || !isPositiveACK(ack) {
		s.router.Report(dest.Name, false)
		return false
	}

	s.router.Report(dest.Name, true)
	return true
}

// Send implements queue.Sender for the worker pool's retry path: it
// resolves destination to a host/port and attempts exactly one direct
// send, reporting health back to Router either way.
func (s *Sender) Send(ctx context.Context, destination string, payload []byte) error {
	const op = "sender.Sender.Send"

	dest, ok := s.byName[destination]
	if !ok {
		return bridgeerr.New(bridgeerr.KindTransport, op, nil).WithContext("destination", destination).WithContext("reason", "unknown destination")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DirectTimeout)
	defer cancel()

	client := mllp.NewClient(mllp.ClientConfig{
		Address:        fmt.Sprintf("%s:%d", dest.Host, dest.Port),
		ConnectTimeout: s.cfg.DirectTimeout,
		WriteTimeout:   s.cfg.DirectTimeout,
		ReadTimeout:    s.cfg.DirectTimeout,
	})

	resp, err := client.Send(ctx, payload)
	if err != nil {
		s.router.Report(destination, false)
		return bridgeerr.New(bridgeerr.KindTransport, op, err).WithContext("destination", destination)
	}

	ack, parseErr := parser.Parse(resp)
	if parseErr != nil || !isPositiveACK(ack) {
		s.router.Report(destination, false)
		return bridgeerr.New(bridgeerr.KindValidation, op, parseErr).WithContext("destination", destination).WithContext("reason", "negative or malformed ACK")
	}

	s.router.Report(destination, true)
	return nil
}

func isPositiveACK(msg *hl7.Message) bool {
	if msg == nil {
		return false
	}
	msa := msg.Segment("MSA")
	if msa == nil {
		return false
	}
	code := msa.Field(1).Value()
	return code == "AA" || code == "CA"
}

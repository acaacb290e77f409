package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pacsbridge"

// Sink is the narrow interface the rest of the bridge emits metric updates
// through. The handler registry, the reliable sender, and the serve
// command's session counter each hold a Sink rather than a concrete
// Prometheus type, so tests can substitute a no-op or recording fake
// instead of standing up a registry.
type Sink interface {
	IncMessageIn(messageType, triggerEvent string)
	IncMessageOut(messageType, triggerEvent, destination string)
	IncMWLEntryCreate()
	SetQueueDepth(destination string, depth int)
	IncQueueRetry(destination string)
	IncQueueDLQ(destination string)
	SetActiveConnections(n int)
}

// PrometheusSink is the production Sink, backed by its own registry so the
// bridge's metrics never collide with metrics registered by an embedding
// process.
type PrometheusSink struct {
	registry *prometheus.Registry

	msgIn    *prometheus.CounterVec
	msgOut   *prometheus.CounterVec
	mwlEntry prometheus.Counter
	depth    *prometheus.GaugeVec
	retries  *prometheus.CounterVec
	dlq      *prometheus.CounterVec
	conns    prometheus.Gauge
}

// NewPrometheusSink constructs a Sink registered against registry. If
// registry is nil, a fresh prometheus.Registry is created; retrieve it with
// Registry for a caller that wants to expose it.
func NewPrometheusSink(registry *prometheus.Registry) *PrometheusSink {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &PrometheusSink{
		registry: registry,
		msgIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hl7_msg_in_total",
			Help:      "HL7 messages received over MLLP, by message type and trigger event.",
		}, []string{"message_type", "trigger_event"}),
		msgOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hl7_msg_out_total",
			Help:      "HL7 messages delivered outbound, by message type, trigger event, and destination.",
		}, []string{"message_type", "trigger_event", "destination"}),
		mwlEntry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mwl_entry_create_total",
			Help:      "Modality worklist entries created.",
		}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Pending-plus-in-flight entry count in the durable outbound queue, by destination.",
		}, []string{"destination"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_retries_total",
			Help:      "Outbound delivery attempts that failed and were rescheduled, by destination.",
		}, []string{"destination"}),
		dlq: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dlq_total",
			Help:      "Outbound queue entries moved to the dead-letter table, by destination.",
		}, []string{"destination"}),
		conns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mllp_conn_active",
			Help:      "Currently open inbound MLLP sessions.",
		}),
	}

	s.registry.MustRegister(s.msgIn, s.msgOut, s.mwlEntry, s.depth, s.retries, s.dlq, s.conns)
	return s
}

func (s *PrometheusSink) IncMessageIn(messageType, triggerEvent string) {
	s.msgIn.WithLabelValues(messageType, triggerEvent).Inc()
}

func (s *PrometheusSink) IncMessageOut(messageType, triggerEvent, destination string) {
	s.msgOut.WithLabelValues(messageType, triggerEvent, destination).Inc()
}

func (s *PrometheusSink) IncMWLEntryCreate() {
	s.mwlEntry.Inc()
}

func (s *PrometheusSink) SetQueueDepth(destination string, depth int) {
	s.depth.WithLabelValues(destination).Set(float64(depth))
}

func (s *PrometheusSink) IncQueueRetry(destination string) {
	s.retries.WithLabelValues(destination).Inc()
}

func (s *PrometheusSink) IncQueueDLQ(destination string) {
	s.dlq.WithLabelValues(destination).Inc()
}

func (s *PrometheusSink) SetActiveConnections(n int) {
	s.conns.Set(float64(n))
}

// Registry returns the registry this sink's collectors are registered
// against.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

// NoopSink discards every update. It is the zero-value default for
// components constructed without an explicit Sink.
type NoopSink struct{}

func (NoopSink) IncMessageIn(string, string)          {}
func (NoopSink) IncMessageOut(string, string, string) {}
func (NoopSink) IncMWLEntryCreate()                   {}
func (NoopSink) SetQueueDepth(string, int)            {}
func (NoopSink) IncQueueRetry(string)                 {}
func (NoopSink) IncQueueDLQ(string)                   {}
func (NoopSink) SetActiveConnections(int)             {}

var (
	_ Sink = (*PrometheusSink)(nil)
	_ Sink = NoopSink{}
)

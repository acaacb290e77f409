package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusSink_IncMessageIn(t *testing.T) {
	s := NewPrometheusSink(nil)
	s.IncMessageIn("ORM", "O01")
	s.IncMessageIn("ORM", "O01")
	s.IncMessageIn("ADT", "A01")

	if got := testutil.ToFloat64(s.msgIn.WithLabelValues("ORM", "O01")); got != 2 {
		t.Errorf("hl7_msg_in_total{ORM,O01} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.msgIn.WithLabelValues("ADT", "A01")); got != 1 {
		t.Errorf("hl7_msg_in_total{ADT,A01} = %v, want 1", got)
	}
}

func TestPrometheusSink_IncMessageOut(t *testing.T) {
	s := NewPrometheusSink(nil)
	s.IncMessageOut("ORM", "O01", "RIS")
	if got := testutil.ToFloat64(s.msgOut.WithLabelValues("ORM", "O01", "RIS")); got != 1 {
		t.Errorf("hl7_msg_out_total = %v, want 1", got)
	}
}

func TestPrometheusSink_MWLEntryCreate(t *testing.T) {
	s := NewPrometheusSink(nil)
	s.IncMWLEntryCreate()
	s.IncMWLEntryCreate()
	if got := testutil.ToFloat64(s.mwlEntry); got != 2 {
		t.Errorf("mwl_entry_create_total = %v, want 2", got)
	}
}

func TestPrometheusSink_QueueGaugesAndCounters(t *testing.T) {
	s := NewPrometheusSink(nil)
	s.SetQueueDepth("RIS", 7)
	s.IncQueueRetry("RIS")
	s.IncQueueRetry("RIS")
	s.IncQueueDLQ("RIS")

	if got := testutil.ToFloat64(s.depth.WithLabelValues("RIS")); got != 7 {
		t.Errorf("queue_depth{RIS} = %v, want 7", got)
	}
	if got := testutil.ToFloat64(s.retries.WithLabelValues("RIS")); got != 2 {
		t.Errorf("queue_retries_total{RIS} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.dlq.WithLabelValues("RIS")); got != 1 {
		t.Errorf("queue_dlq_total{RIS} = %v, want 1", got)
	}
}

func TestPrometheusSink_ActiveConnections(t *testing.T) {
	s := NewPrometheusSink(nil)
	s.SetActiveConnections(3)
	if got := testutil.ToFloat64(s.conns); got != 3 {
		t.Errorf("mllp_conn_active = %v, want 3", got)
	}
}

func TestNewPrometheusSink_UsesProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg)
	if s.Registry() != reg {
		t.Error("expected NewPrometheusSink to reuse the provided registry")
	}
}

func TestNoopSink_DoesNotPanic(t *testing.T) {
	var s Sink = NoopSink{}
	s.IncMessageIn("ORM", "O01")
	s.IncMessageOut("ORM", "O01", "RIS")
	s.IncMWLEntryCreate()
	s.SetQueueDepth("RIS", 1)
	s.IncQueueRetry("RIS")
	s.IncQueueDLQ("RIS")
	s.SetActiveConnections(1)
}

// Package metrics defines the narrow Sink the rest of the bridge emits
// counter and gauge updates through, plus a Prometheus-backed
// implementation. The Sink has no histogram method.
//
// # Metric set
//
// The metric name set is fixed and small, per the bridge's external
// interface contract:
//
//	hl7.msg.in        counter   message type, trigger event
//	hl7.msg.out       counter   message type, trigger event, destination
//	mwl.entry.create  counter   (none)
//	queue.depth       gauge     destination
//	queue.retries     counter   destination
//	queue.dlq         counter   destination
//	mllp.conn.active  gauge     (none)
//
// # Usage
//
//	sink := metrics.NewPrometheusSink(nil)
//	sink.IncMessageIn("ORM", "O01")
//	sink.IncMessageOut("ORM", "O01", "RIS")
//	sink.SetQueueDepth("RIS", 12)
//	sink.IncQueueRetry("RIS")
//	sink.IncQueueDLQ("RIS")
//	sink.SetActiveConnections(3)
//
// PrometheusSink exports each name above with the "pacsbridge_" prefix,
// underscores for dots, and "_total" on counters (for example
// pacsbridge_hl7_msg_in_total). This package serves no HTTP itself; the
// serve command mounts PrometheusSink.Registry at /metrics on its admin
// listener.
package metrics

// Command pacsbridge is an HL7 v2.x <-> DICOM Modality Worklist bridge.
//
// It terminates MLLP connections from a HIS/RIS, maps ADT/ORM/SIU
// messages onto a worklist store queried by imaging modalities, accepts
// MPPS status updates from those modalities, and maps completed/in-
// progress procedures back to outbound ORM messages delivered over a
// durable, retrying queue.
//
// Usage:
//
//	# Start the bridge with default configuration
//	pacsbridge serve
//
//	# Start with a custom configuration file
//	pacsbridge serve --config /etc/pacsbridge/config.yaml
//
//	# Inspect the durable outbound queue
//	pacsbridge queue depth
//	pacsbridge queue list-dead
//	pacsbridge queue requeue-dlq 42
//
//	# Query the worklist store
//	pacsbridge mwl query --modality CT --status scheduled
//
//	# Show version information
//	pacsbridge version
package main

func main() {
	Execute()
}

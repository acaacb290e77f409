package routing

import "time"

// RoutingRequest describes the HL7 message a caller wants routed to an
// outbound destination. Rule.Matches compares MessageType, TriggerEvent
// and Sender only; Accession and other message content are not matched
// by any rule.
type RoutingRequest struct {
	// CorrelationID ties this routing decision back to the originating
	// MPPS event or queue entry for logging.
	CorrelationID string

	// MessageType is MSH-9.1 (e.g. "ORM").
	MessageType string

	// TriggerEvent is MSH-9.2 (e.g. "O01").
	TriggerEvent string

	// Sender is MSH-3 (sending application), used by rules that route
	// based on origin.
	Sender string

	// Accession is the order/accession number the message concerns, when
	// known. It is carried for context only; rule matching does not read
	// it.
	Accession string

	// PreferredDestination, if set, requests a specific destination by
	// name ahead of rule evaluation (manual override).
	PreferredDestination string
}

// RoutingResult is the outcome of a routing decision.
type RoutingResult struct {
	Destination           *Destination
	Rule                  string
	AttemptedDestinations []string
	IsFailover            bool
}

// Rule matches a RoutingRequest against a predicate and yields the
// FailoverGroup to use. Rules are evaluated in configuration order; the
// first match wins.
type Rule struct {
	Name string

	// MessageType/TriggerEvent are empty-string wildcards when unset.
	MessageType  string
	TriggerEvent string
	Sender       string

	Group *FailoverGroup
}

// Matches reports whether the rule's predicate accepts req.
func (r *Rule) Matches(req *RoutingRequest) bool {
	if r.MessageType != "" && r.MessageType != req.MessageType {
		return false
	}
	if r.TriggerEvent != "" && r.TriggerEvent != req.TriggerEvent {
		return false
	}
	if r.Sender != "" && r.Sender != req.Sender {
		return false
	}
	return true
}

// Stats is a point-in-time snapshot of routing statistics, safe to read
// without further synchronization.
type Stats struct {
	TotalRequests          int64
	RequestsPerDestination map[string]int64
	FailoverCount          int64
	Errors                 int64
	LastResetTime          time.Time
}

// Package routing implements the outbound destination table, health-aware
// selection, and priority/failover logic. The reliable sender (see
// pkg/sender) calls Router once per outbound message, before its direct
// attempt and any enqueue; queue workers retry the destination recorded
// on the entry and never call Route, so failover decisions are made here,
// keeping routing and retry concerns separate.
package routing

import "context"

// FailoverStrategy selects a destination from a FailoverGroup. Defined here
// (rather than in pkg/routing/strategies) so DefaultRouter can depend on the
// interface without importing the strategies package, mirroring the
// teacher's RoutingStrategy split to avoid an import cycle.
type FailoverStrategy interface {
	// Select returns the chosen destination, the ordered list of
	// destination names considered, and whether the choice required
	// skipping a higher-priority but unhealthy destination (failover).
	// A strategy returns a nil destination when it accepts no candidate;
	// whether an all-unhealthy group yields nil depends on the strategy.
	Select(group *FailoverGroup) (dest *Destination, attempted []string, failover bool)

	GetName() string
}

// Router is the main interface for routing outbound HL7 messages to
// destinations. Implementations must be safe for concurrent use.
type Router interface {
	// Route selects the best destination for req, applying rule matching,
	// health filtering, and priority/LRU tie-breaking.
	Route(ctx context.Context, req *RoutingRequest) (*RoutingResult, error)

	// Report feeds a delivery outcome back into the destination's health
	// counters.
	Report(destinationName string, success bool)

	// Stats returns a snapshot of routing statistics.
	Stats() *Stats

	// UpdateTable swaps the rule set and destination table, e.g. after a
	// destination-file reload.
	UpdateTable(rules []*Rule, defaultGroup *FailoverGroup) error
}

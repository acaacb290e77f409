package strategies

import (
	"mercator-hq/jupiter/pkg/routing"
)

// PriorityFailoverStrategy prefers the healthiest highest-priority
// member, ties broken by least-recently-used, plus the explicit
// fallback: if all are unhealthy,
// pick the least-recently-attempted" member regardless of priority.
type PriorityFailoverStrategy struct{}

// NewPriorityFailoverStrategy creates the default failover-group selection
// strategy.
func NewPriorityFailoverStrategy() *PriorityFailoverStrategy {
	return &PriorityFailoverStrategy{}
}

// Select implements routing.FailoverStrategy.
func (s *PriorityFailoverStrategy) Select(group *routing.FailoverGroup) (*routing.Destination, []string, bool) {
	dests := group.Destinations
	if len(dests) == 0 {
		return nil, nil, false
	}

	attempted := make([]string, len(dests))
	for i, d := range dests {
		attempted[i] = d.Name
	}

	bestTier := routing.HealthUnhealthy
	anyHealthyOrDegraded := false
	for _, d := range dests {
		if h := d.Health(); h < bestTier {
			bestTier = h
		}
		if d.Health() != routing.HealthUnhealthy {
			anyHealthyOrDegraded = true
		}
	}

	if !anyHealthyOrDegraded {
		// Every destination is unhealthy: ignore priority, pick the one
		// that has gone the longest without an attempt.
		return leastRecentlyAttempted(dests), attempted, true
	}

	// Among the healthiest tier present, prefer lowest priority number;
	// break remaining ties by least-recently-attempted.
	var candidates []*routing.Destination
	for _, d := range dests {
		if d.Health() == bestTier {
			candidates = append(candidates, d)
		}
	}

	best := candidates[0]
	for _, d := range candidates[1:] {
		switch {
		case d.Priority < best.Priority:
			best = d
		case d.Priority == best.Priority && d.LastAttempt().Before(best.LastAttempt()):
			best = d
		}
	}

	// "Failover" means the chosen destination is not the group's
	// top-priority member.
	top := dests[0]
	for _, d := range dests[1:] {
		if d.Priority < top.Priority {
			top = d
		}
	}
	failover := best.Name != top.Name

	return best, attempted, failover
}

// GetName implements routing.FailoverStrategy.
func (s *PriorityFailoverStrategy) GetName() string { return "priority-failover" }

func leastRecentlyAttempted(dests []*routing.Destination) *routing.Destination {
	best := dests[0]
	for _, d := range dests[1:] {
		if d.LastAttempt().Before(best.LastAttempt()) {
			best = d
		}
	}
	return best
}

package routing

import (
	"context"
	"fmt"
)

// DefaultRouter implements Router using rule-based group selection
// followed by the configured FailoverStrategy.
type DefaultRouter struct {
	selector *DestinationSelector
	strategy FailoverStrategy
	stats    *AtomicStats

	byName map[string]*Destination
}

// NewRouter builds a router over the given rules/default group. allDests
// indexes every destination the rules reference, by name, for lookups (e.g.
// PreferredDestination overrides and error reporting).
func NewRouter(rules []*Rule, defaultGroup *FailoverGroup, strategy FailoverStrategy, allDests []*Destination) (*DefaultRouter, error) {
	if strategy == nil {
		return nil, fmt.Errorf("routing strategy cannot be nil")
	}
	byName := make(map[string]*Destination, len(allDests))
	for _, d := range allDests {
		byName[d.Name] = d
	}
	return &DefaultRouter{
		selector: NewDestinationSelector(rules, defaultGroup),
		strategy: strategy,
		stats:    NewAtomicStats(),
		byName:   byName,
	}, nil
}

// Route implements Router.
func (r *DefaultRouter) Route(ctx context.Context, req *RoutingRequest) (*RoutingResult, error) {
	r.stats.IncrementTotal()

	if err := ctx.Err(); err != nil {
		r.stats.IncrementErrors()
		return nil, err
	}

	if req.PreferredDestination != "" {
		d, ok := r.byName[req.PreferredDestination]
		if !ok {
			r.stats.IncrementErrors()
			return nil, &DestinationNotFoundError{DestinationName: req.PreferredDestination, AvailableDestinations: r.names()}
		}
		r.stats.IncrementDestination(d.Name)
		return &RoutingResult{Destination: d, Rule: "manual", AttemptedDestinations: []string{d.Name}}, nil
	}

	ruleName, group, err := r.selector.Select(req)
	if err != nil {
		r.stats.IncrementErrors()
		return nil, err
	}
	if len(group.Destinations) == 0 {
		r.stats.IncrementErrors()
		return nil, ErrNoDestinationsConfigured
	}

	d, attempted, failover := r.strategy.Select(group)
	if d == nil {
		r.stats.IncrementErrors()
		return nil, &NoHealthyDestinationsError{Group: group.Name, AttemptedDestinations: attempted}
	}

	if failover {
		r.stats.IncrementFailover()
	}
	r.stats.IncrementDestination(d.Name)

	return &RoutingResult{
		Destination:           d,
		Rule:                  ruleName,
		AttemptedDestinations: attempted,
		IsFailover:            failover,
	}, nil
}

// Report implements Router.
func (r *DefaultRouter) Report(destinationName string, success bool) {
	d, ok := r.byName[destinationName]
	if !ok {
		return
	}
	if success {
		d.RecordSuccess()
	} else {
		d.RecordFailure()
	}
}

// Stats implements Router.
func (r *DefaultRouter) Stats() *Stats { return r.stats.Snapshot() }

// UpdateTable implements Router.
func (r *DefaultRouter) UpdateTable(rules []*Rule, defaultGroup *FailoverGroup) error {
	byName := make(map[string]*Destination)
	for _, rule := range rules {
		if rule.Group == nil {
			continue
		}
		for _, d := range rule.Group.Destinations {
			byName[d.Name] = d
		}
	}
	if defaultGroup != nil {
		for _, d := range defaultGroup.Destinations {
			byName[d.Name] = d
		}
	}
	r.selector.UpdateRules(rules, defaultGroup)
	r.byName = byName
	return nil
}

func (r *DefaultRouter) names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}

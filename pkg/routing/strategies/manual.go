package strategies

import "mercator-hq/jupiter/pkg/routing"

// ManualStrategy selects a single named destination within a FailoverGroup,
// ignoring health and priority, and falls back to a delegate strategy when
// the named destination is absent from the group. This covers the
// within-group "force this destination" case; the broader per-request
// PreferredDestination override (which can target any destination in the
// table, not just members of the matched group) is handled one layer up by
// DefaultRouter.Route.
type ManualStrategy struct {
	destinationName string
	delegate        routing.FailoverStrategy
}

// NewManualStrategy builds a strategy that always picks destinationName when
// present in the group, deferring to delegate otherwise. delegate must not
// be nil.
func NewManualStrategy(destinationName string, delegate routing.FailoverStrategy) *ManualStrategy {
	return &ManualStrategy{destinationName: destinationName, delegate: delegate}
}

// Select implements routing.FailoverStrategy.
func (s *ManualStrategy) Select(group *routing.FailoverGroup) (*routing.Destination, []string, bool) {
	attempted := make([]string, len(group.Destinations))
	for i, d := range group.Destinations {
		attempted[i] = d.Name
		if d.Name == s.destinationName {
			return d, attempted, false
		}
	}
	return s.delegate.Select(group)
}

// GetName implements routing.FailoverStrategy.
func (s *ManualStrategy) GetName() string { return "manual" }

package strategies

import "mercator-hq/jupiter/pkg/routing"

// RequireHealthyStrategy is a decorator that rejects a delegate's pick when
// it is unhealthy, rather than silently delivering to it. Useful around
// ManualStrategy, whose named override otherwise bypasses health filtering
// entirely.
type RequireHealthyStrategy struct {
	delegate routing.FailoverStrategy
}

// NewRequireHealthyStrategy wraps delegate, vetoing unhealthy picks.
func NewRequireHealthyStrategy(delegate routing.FailoverStrategy) *RequireHealthyStrategy {
	return &RequireHealthyStrategy{delegate: delegate}
}

// Select implements routing.FailoverStrategy.
func (s *RequireHealthyStrategy) Select(group *routing.FailoverGroup) (*routing.Destination, []string, bool) {
	d, attempted, failover := s.delegate.Select(group)
	if d == nil {
		return nil, attempted, failover
	}
	if d.Health() == routing.HealthUnhealthy {
		return nil, attempted, true
	}
	return d, attempted, failover
}

// GetName implements routing.FailoverStrategy.
func (s *RequireHealthyStrategy) GetName() string { return "require-healthy(" + s.delegate.GetName() + ")" }

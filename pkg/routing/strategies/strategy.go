// Package strategies implements pluggable FailoverGroup selection
// algorithms for pkg/routing, using a decorator/strategy split: a
// health-based wrapper around a delegate selection strategy.
package strategies

import "mercator-hq/jupiter/pkg/routing"

// assert the concrete strategies in this package satisfy the interface
// declared in pkg/routing, without introducing an import cycle.
var (
	_ routing.FailoverStrategy = (*PriorityFailoverStrategy)(nil)
	_ routing.FailoverStrategy = (*ManualStrategy)(nil)
	_ routing.FailoverStrategy = (*RequireHealthyStrategy)(nil)
)

package routing_test

import (
	"context"
	"testing"

	"mercator-hq/jupiter/pkg/routing"
	"mercator-hq/jupiter/pkg/routing/strategies"
)

func TestDefaultRouter_RouteByRule(t *testing.T) {
	a := routing.NewDestination("a", "host-a", 2575, routing.TransportPlain, 1)
	group := &routing.FailoverGroup{Name: "orm-dests", Destinations: []*routing.Destination{a}}
	rules := []*routing.Rule{{Name: "orm-rule", MessageType: "ORM", Group: group}}

	router, err := routing.NewRouter(rules, nil, strategies.NewPriorityFailoverStrategy(), []*routing.Destination{a})
	if err != nil {
		t.Fatalf("NewRouter() error: %v", err)
	}

	result, err := router.Route(context.Background(), &routing.RoutingRequest{MessageType: "ORM"})
	if err != nil {
		t.Fatalf("Route() error: %v", err)
	}
	if result.Destination.Name != "a" || result.Rule != "orm-rule" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestDefaultRouter_PreferredDestinationOverride(t *testing.T) {
	a := routing.NewDestination("a", "host-a", 2575, routing.TransportPlain, 1)
	b := routing.NewDestination("b", "host-b", 2575, routing.TransportPlain, 2)
	group := &routing.FailoverGroup{Name: "g", Destinations: []*routing.Destination{a, b}}
	rules := []*routing.Rule{{Name: "rule", Group: group}}

	router, err := routing.NewRouter(rules, nil, strategies.NewPriorityFailoverStrategy(), []*routing.Destination{a, b})
	if err != nil {
		t.Fatalf("NewRouter() error: %v", err)
	}

	result, err := router.Route(context.Background(), &routing.RoutingRequest{PreferredDestination: "b"})
	if err != nil {
		t.Fatalf("Route() error: %v", err)
	}
	if result.Destination.Name != "b" || result.Rule != "manual" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestDefaultRouter_PreferredDestinationUnknown(t *testing.T) {
	a := routing.NewDestination("a", "host-a", 2575, routing.TransportPlain, 1)
	group := &routing.FailoverGroup{Name: "g", Destinations: []*routing.Destination{a}}
	rules := []*routing.Rule{{Name: "rule", Group: group}}

	router, err := routing.NewRouter(rules, nil, strategies.NewPriorityFailoverStrategy(), []*routing.Destination{a})
	if err != nil {
		t.Fatalf("NewRouter() error: %v", err)
	}

	_, err = router.Route(context.Background(), &routing.RoutingRequest{PreferredDestination: "missing"})
	if err == nil {
		t.Fatal("expected error for unknown preferred destination")
	}
}

func TestDefaultRouter_ReportUpdatesHealth(t *testing.T) {
	a := routing.NewDestination("a", "host-a", 2575, routing.TransportPlain, 1)
	group := &routing.FailoverGroup{Name: "g", Destinations: []*routing.Destination{a}}
	rules := []*routing.Rule{{Name: "rule", Group: group}}

	router, err := routing.NewRouter(rules, nil, strategies.NewPriorityFailoverStrategy(), []*routing.Destination{a})
	if err != nil {
		t.Fatalf("NewRouter() error: %v", err)
	}

	for i := 0; i < 5; i++ {
		router.Report("a", false)
	}
	if a.Health() != routing.HealthUnhealthy {
		t.Fatalf("expected destination to become unhealthy after repeated failure reports, got %v", a.Health())
	}

	stats := router.Stats()
	if stats.TotalRequests != 0 {
		t.Fatalf("Report() must not affect request stats, got %d", stats.TotalRequests)
	}
}

func TestDefaultRouter_NoDestinationsConfigured(t *testing.T) {
	group := &routing.FailoverGroup{Name: "g"}
	rules := []*routing.Rule{{Name: "rule", Group: group}}

	router, err := routing.NewRouter(rules, nil, strategies.NewPriorityFailoverStrategy(), nil)
	if err != nil {
		t.Fatalf("NewRouter() error: %v", err)
	}

	_, err = router.Route(context.Background(), &routing.RoutingRequest{})
	if err != routing.ErrNoDestinationsConfigured {
		t.Fatalf("expected ErrNoDestinationsConfigured, got %v", err)
	}
}

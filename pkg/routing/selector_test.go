package routing

import (
	"errors"
	"testing"
)

func TestDestinationSelector_FirstMatchWins(t *testing.T) {
	ormGroup := &FailoverGroup{Name: "orm-dests"}
	adtGroup := &FailoverGroup{Name: "adt-dests"}
	defaultGroup := &FailoverGroup{Name: "default-dests"}

	rules := []*Rule{
		{Name: "orm-rule", MessageType: "ORM", Group: ormGroup},
		{Name: "adt-rule", MessageType: "ADT", Group: adtGroup},
	}
	selector := NewDestinationSelector(rules, defaultGroup)

	name, group, err := selector.Select(&RoutingRequest{MessageType: "ORM"})
	if err != nil || name != "orm-rule" || group != ormGroup {
		t.Fatalf("expected orm-rule/ormGroup, got %v %v %v", name, group, err)
	}

	name, group, err = selector.Select(&RoutingRequest{MessageType: "SIU"})
	if err != nil || name != "default" || group != defaultGroup {
		t.Fatalf("expected fallback to default group, got %v %v %v", name, group, err)
	}
}

func TestDestinationSelector_NoMatchNoDefault(t *testing.T) {
	selector := NewDestinationSelector(nil, nil)
	_, _, err := selector.Select(&RoutingRequest{MessageType: "ORU", TriggerEvent: "R01"})
	if err == nil {
		t.Fatal("expected error when no rule matches and no default group configured")
	}
	var nrm *NoRuleMatchedError
	if !errors.As(err, &nrm) {
		t.Fatalf("expected *NoRuleMatchedError, got %T", err)
	}
}

func TestRule_Matches(t *testing.T) {
	r := &Rule{MessageType: "ORM", TriggerEvent: "O01"}

	if !r.Matches(&RoutingRequest{MessageType: "ORM", TriggerEvent: "O01"}) {
		t.Fatal("expected exact match")
	}
	if r.Matches(&RoutingRequest{MessageType: "ADT", TriggerEvent: "O01"}) {
		t.Fatal("expected message type mismatch to reject")
	}

	wildcard := &Rule{Sender: "RIS"}
	if !wildcard.Matches(&RoutingRequest{MessageType: "ADT", Sender: "RIS"}) {
		t.Fatal("expected wildcard rule to match on sender alone")
	}
}

package routing

import (
	"errors"
	"fmt"
	"strings"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrNoHealthyDestinations is returned when the failover strategy
	// selects no destination from the chosen group.
	ErrNoHealthyDestinations = errors.New("no healthy destinations available")

	// ErrNoRuleMatched is returned when no routing rule's predicate
	// matches the request and no default group is configured.
	ErrNoRuleMatched = errors.New("no routing rule matched")

	// ErrDestinationNotFound is returned when manual destination
	// selection fails.
	ErrDestinationNotFound = errors.New("destination not found")

	// ErrNoDestinationsConfigured is returned when the destination table
	// is empty.
	ErrNoDestinationsConfigured = errors.New("no destinations configured")
)

// NoHealthyDestinationsError is returned when the failover strategy
// selects no destination from the chosen failover group.
type NoHealthyDestinationsError struct {
	Group                 string
	AttemptedDestinations []string
}

func (e *NoHealthyDestinationsError) Error() string {
	return fmt.Sprintf("no healthy destinations in group %q (attempted: %s)",
		e.Group, strings.Join(e.AttemptedDestinations, ", "))
}

func (e *NoHealthyDestinationsError) Is(target error) bool {
	return target == ErrNoHealthyDestinations
}

// NoRuleMatchedError is returned when no configured rule matches a
// RoutingRequest.
type NoRuleMatchedError struct {
	MessageType  string
	TriggerEvent string
}

func (e *NoRuleMatchedError) Error() string {
	return fmt.Sprintf("no routing rule matched message type %q trigger %q", e.MessageType, e.TriggerEvent)
}

func (e *NoRuleMatchedError) Is(target error) bool {
	return target == ErrNoRuleMatched
}

// DestinationNotFoundError is returned when an explicitly requested
// destination does not exist in the table.
type DestinationNotFoundError struct {
	DestinationName       string
	AvailableDestinations []string
}

func (e *DestinationNotFoundError) Error() string {
	return fmt.Sprintf("destination %q not found (available: %s)",
		e.DestinationName, strings.Join(e.AvailableDestinations, ", "))
}

func (e *DestinationNotFoundError) Is(target error) bool {
	return target == ErrDestinationNotFound
}

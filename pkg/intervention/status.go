package intervention

import (
	"errors"
	"fmt"
)

// Status is the intervention lifecycle state. The state machine is enforced
// centrally by Transition; nothing else may change a status.
type Status string

const (
	// StatusCandidate is the initial state: matched and gated but not yet
	// routed through approval or dispatch.
	StatusCandidate Status = "CANDIDATE"

	// StatusPendingApproval means an operator must approve before dispatch.
	StatusPendingApproval Status = "PENDING_APPROVAL"

	// StatusScheduled means approved (or auto-approved) and awaiting
	// dispatch, possibly held for quiet hours.
	StatusScheduled Status = "SCHEDULED"

	// StatusSent means the provider accepted the message.
	StatusSent Status = "SENT"

	// StatusDelivered is the terminal success state.
	StatusDelivered Status = "DELIVERED"

	// StatusFailed is terminal: the provider rejected or bounced the
	// message. There is no automatic retry.
	StatusFailed Status = "FAILED"

	// StatusCanceled is terminal: an operator withdrew the intervention.
	StatusCanceled Status = "CANCELED"
)

// ErrInvalidTransition is returned for transitions outside the state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the closed edge set of the lifecycle state machine.
var transitions = map[Status][]Status{
	StatusCandidate:       {StatusPendingApproval, StatusScheduled, StatusCanceled},
	StatusPendingApproval: {StatusScheduled, StatusFailed, StatusCanceled},
	StatusScheduled:       {StatusSent, StatusFailed, StatusCanceled},
	StatusSent:            {StatusDelivered, StatusFailed, StatusCanceled},
	StatusDelivered:       {},
	StatusFailed:          {},
	StatusCanceled:        {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	edges, ok := transitions[s]
	return ok && len(edges) == 0
}

// Transition validates the edge from -> to.
// Returns ErrInvalidTransition (wrapped with both states) if the edge is not
// part of the state machine.
func Transition(from, to Status) error {
	edges, ok := transitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	for _, edge := range edges {
		if edge == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

package order

import "fmt"

// Status represents order lifecycle.
type Status int

const (
	// StatusCreated means the order exists locally but has not been sent.
	StatusCreated Status = iota
	// StatusSubmitted means the order is on its way to the venue and no
	// acknowledgement has arrived yet.
	StatusSubmitted
	// StatusAccepted means the venue acknowledged the limit order; it now
	// rests in the book until traded or cancelled.
	StatusAccepted
	// StatusCancelPending means a cancel for the order has been submitted
	// and its acknowledgement is outstanding.
	StatusCancelPending
	// StatusCancelled is terminal: the venue accepted the cancel.
	StatusCancelled
	// StatusRejected is terminal: the venue refused the order.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusCancelPending:
		return "CANCEL_PENDING"
	case StatusCancelled:
		return "CANCELLED"
	case StatusRejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StateTransition is one edge of the lifecycle graph.
type StateTransition struct {
	From Status
	To   Status
}

// StateMachine validates order lifecycle transitions. An order never
// re-enters Submitted after reaching a terminal state.
type StateMachine struct {
	transitions map[StateTransition]bool
}

func NewStateMachine() *StateMachine {
	sm := &StateMachine{transitions: make(map[StateTransition]bool)}
	legal := []StateTransition{
		{StatusCreated, StatusSubmitted},

		{StatusSubmitted, StatusAccepted},
		{StatusSubmitted, StatusRejected},

		// An accepted limit order may have a cancel submitted for it.
		{StatusAccepted, StatusCancelPending},

		// A rejected cancel leaves the order resting in the book.
		{StatusCancelPending, StatusCancelled},
		{StatusCancelPending, StatusAccepted},
	}
	for _, t := range legal {
		sm.transitions[t] = true
	}
	return sm
}

// ValidateTransition reports whether from -> to is a legal lifecycle edge.
func (sm *StateMachine) ValidateTransition(from, to Status) error {
	if !sm.transitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal order state transition: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal reports whether no further transitions are possible.
func (sm *StateMachine) IsTerminal(s Status) bool {
	switch s {
	case StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// CanCancel reports whether a cancel may be submitted in the given state.
func (sm *StateMachine) CanCancel(s Status) bool {
	return s == StatusAccepted
}

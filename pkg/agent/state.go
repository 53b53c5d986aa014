package agent

import "fmt"

// State is the run state of one Chat call.
type State string

const (
	StateNone        State = ""
	StatePlanning    State = "planning"
	StateExecuting   State = "executing"
	StateWaitingUser State = "waiting_user"
	StateReview      State = "review"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	StateNone:      {StatePlanning},
	StatePlanning:  {StateExecuting, StateFailed},
	StateExecuting: {StateWaitingUser, StateReview, StateCompleted, StateFailed},
	StateReview:    {StateCompleted, StateFailed},
}

// CanTransition reports whether the state machine allows s -> to.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Final reports whether Chat returns in s.
func (s State) Final() bool {
	return s == StateWaitingUser || s == StateCompleted || s == StateFailed
}

// ErrIllegalTransition is returned for a transition outside the table.
type ErrIllegalTransition struct {
	From, To State
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal state transition %q -> %q", e.From, e.To)
}

package orchestrator

import "fmt"

// State is the position of one loop invocation.
type State string

const (
	StateInvoking     State = "invoking"
	StateToolDispatch State = "tool_dispatch"
	StateDone         State = "done"
	StateExhausted    State = "exhausted"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	switch s {
	case StateDone, StateExhausted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

var allowedTransitions = map[State]map[State]struct{}{
	"": {
		StateInvoking:  {},
		StateFailed:    {},
		StateCancelled: {},
	},
	StateInvoking: {
		StateToolDispatch: {},
		StateDone:         {},
		StateExhausted:    {},
		StateFailed:       {},
		StateCancelled:    {},
	},
	StateToolDispatch: {
		StateInvoking:  {},
		StateFailed:    {},
		StateCancelled: {},
	},
	StateDone:      {},
	StateExhausted: {},
	StateFailed:    {},
	StateCancelled: {},
}

func validateTransition(from, to State) error {
	if from == to {
		return nil
	}
	allowed, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source state %q", ErrInvalidStateTransition, from)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	return nil
}

func transition(current *State, to State) error {
	if err := validateTransition(*current, to); err != nil {
		return err
	}
	*current = to
	return nil
}

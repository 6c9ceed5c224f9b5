// Package fsm holds the pure dictation session state table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

const (
	EventPress   Event = "press"
	EventRelease Event = "release"
	EventAbort   Event = "abort"
	EventFinish  Event = "finish"
)

// Transition returns the state reached by applying event to current.
// Processing only ever returns to idle; there is no path back to recording.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventPress:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventRelease:
			return StateProcessing, nil
		case EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventFinish:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Busy reports whether a session is active in state.
func Busy(state State) bool {
	return state == StateRecording || state == StateProcessing
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}

// Package fsm defines the listening-session state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateListening State = "listening"
	StateStopping  State = "stopping"
)

const (
	// EventStart requests a new listening cycle.
	EventStart Event = "start"
	// EventReady confirms the recognizer engine started.
	EventReady Event = "ready"
	// EventDenied reports a microphone permission failure on start.
	EventDenied Event = "denied"
	// EventRetry restarts commands listening after a no-match timeout.
	EventRetry Event = "retry"
	EventStop  Event = "stop"
	// EventCleaned marks cleanup done after stopping.
	EventCleaned Event = "cleaned"
	// EventAbort forces idle while cleanup is still in flight.
	EventAbort Event = "abort"
	EventFail  Event = "fail"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateStarting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStarting:
		switch event {
		case EventReady:
			return StateListening, nil
		case EventDenied, EventFail:
			return StateIdle, nil
		case EventStop:
			return StateStopping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventRetry:
			return StateStarting, nil
		case EventStop, EventFail:
			return StateStopping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopping:
		switch event {
		case EventCleaned, EventAbort, EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Active reports whether a session occupies the recognizer.
func Active(state State) bool {
	return state == StateStarting || state == StateListening
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}

package call

import "fmt"

// State represents the lifecycle state of a call leg.
type State int

const (
	// StateIdle is the terminal state; an idle leg is dead and is only
	// re-entered as a brand new leg.
	StateIdle State = iota
	// StateDialing is a mobile-originated leg waiting for the network.
	StateDialing
	// StateAlerting is a mobile-originated leg ringing at the far end.
	StateAlerting
	// StateActive is a connected leg with media.
	StateActive
	// StateHeld is a connected leg parked on network hold.
	StateHeld
	// StateIncoming is a mobile-terminated leg ringing locally.
	StateIncoming
	// StateWaiting is a mobile-terminated leg ringing while another
	// call is already up (call waiting).
	StateWaiting
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDialing:
		return "dialing"
	case StateAlerting:
		return "alerting"
	case StateActive:
		return "active"
	case StateHeld:
		return "held"
	case StateIncoming:
		return "incoming"
	case StateWaiting:
		return "waiting"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseState maps a wire name back to a State.
func ParseState(s string) (State, bool) {
	switch s {
	case "idle":
		return StateIdle, true
	case "dialing":
		return StateDialing, true
	case "alerting":
		return StateAlerting, true
	case "active":
		return StateActive, true
	case "held":
		return StateHeld, true
	case "incoming":
		return StateIncoming, true
	case "waiting":
		return StateWaiting, true
	}
	return StateIdle, false
}

// validTransitions defines which state transitions the modem may
// legally report for an existing leg.
var validTransitions = map[State][]State{
	StateDialing:  {StateAlerting, StateActive, StateIdle},
	StateAlerting: {StateActive, StateIdle},
	StateActive:   {StateHeld, StateIdle},
	StateHeld:     {StateActive, StateIdle},
	StateIncoming: {StateActive, StateIdle},
	StateWaiting:  {StateActive, StateIncoming, StateIdle},
	StateIdle:     {},
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is the terminal state.
func (s State) IsTerminal() bool {
	return s == StateIdle
}

// IsConnected reports whether the leg has an established connection.
// Conference membership is only legal in a connected state.
func (s State) IsConnected() bool {
	return s == StateActive || s == StateHeld
}

// IsRinging reports whether the leg is a mobile-terminated leg that
// has not been answered yet.
func (s State) IsRinging() bool {
	return s == StateIncoming || s == StateWaiting
}

// IsOriginating reports whether the leg is a mobile-originated attempt
// that has not connected yet.
func (s State) IsOriginating() bool {
	return s == StateDialing || s == StateAlerting
}

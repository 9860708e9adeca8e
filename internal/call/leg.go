package call

import (
	"fmt"
	"time"
)

// IDUnassigned marks a leg whose modem handle is not known yet. A dial
// request is issued before the modem reports the handle back, so at
// most one such leg exists per slot at any time.
const IDUnassigned = -1

// Direction tells which side initiated the leg.
type Direction int

const (
	// MobileOriginated is an outgoing call attempt.
	MobileOriginated Direction = iota
	// MobileTerminated is an incoming call.
	MobileTerminated
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	if d == MobileTerminated {
		return "mt"
	}
	return "mo"
}

// Type is the dialing mode of a leg. Emergency is a distinct mode, not
// a flagged voice call: the modem dials it on a dedicated path.
type Type int

const (
	TypeVoice Type = iota
	TypeVideo
	TypeEmergency
)

// String returns the wire name of the call type.
func (t Type) String() string {
	switch t {
	case TypeVideo:
		return "video"
	case TypeEmergency:
		return "emergency"
	default:
		return "voice"
	}
}

// ParseType maps a wire name back to a Type.
func ParseType(s string) (Type, bool) {
	switch s {
	case "voice":
		return TypeVoice, true
	case "video":
		return TypeVideo, true
	case "emergency":
		return TypeEmergency, true
	}
	return TypeVoice, false
}

// NameMode describes the network's caller-name presentation flags.
type NameMode int

const (
	NameModeNone NameMode = iota
	NameModeUnknown
	NameModePrivate
	NameModePayphone
)

// String returns the wire name of the presentation mode.
func (m NameMode) String() string {
	switch m {
	case NameModeUnknown:
		return "unknown"
	case NameModePrivate:
		return "private"
	case NameModePayphone:
		return "payphone"
	default:
		return "none"
	}
}

// ParseNameMode maps a wire name back to a NameMode.
func ParseNameMode(s string) NameMode {
	switch s {
	case "unknown":
		return NameModeUnknown
	case "private":
		return NameModePrivate
	case "payphone":
		return NameModePayphone
	}
	return NameModeNone
}

// Leg is one call attempt or connection. All legs are owned by the
// Registry of their slot; holders of a *Leg outside the registry must
// not retain it across events.
type Leg struct {
	// ID is the modem-assigned handle, or IDUnassigned while the dial
	// request is still in flight.
	ID        int
	Direction Direction
	Type      Type
	State     State

	// Number is the dialable number; DTMFSuffix holds any post-dial
	// digits (with pause/wait control characters) split out of the
	// original dial string. The suffix is stored, not dialed, until
	// explicitly requested.
	Number     string
	DTMFSuffix string

	// CallingName is the network- or SIM-toolkit-supplied display name.
	CallingName string
	NameMode    NameMode

	// Conference reports whether the leg is merged into a multi-party
	// bridge. Only legal while the leg is active or held.
	Conference bool

	// RetrievePending marks a held leg to be reactivated once a sibling
	// leg that is currently ending has fully cleared.
	RetrievePending bool

	StartTime time.Time
	EndCause  EndCause
}

// Assigned reports whether the modem handle is known.
func (l *Leg) Assigned() bool {
	return l.ID != IDUnassigned
}

// Label returns a short identifier for logging.
func (l *Leg) Label() string {
	if !l.Assigned() {
		return fmt.Sprintf("leg(unassigned,%s)", l.State)
	}
	return fmt.Sprintf("leg(%d,%s)", l.ID, l.State)
}

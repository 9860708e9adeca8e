// Package collab declares the thin interfaces the call engine drives
// on its external collaborators. Platform wrappers implement them;
// tests use the recording mocks.
package collab

// Route names an audio output the session can be bound to.
type Route string

const (
	RouteReceiver  Route = "receiver"
	RouteSpeaker   Route = "speaker"
	RouteHeadset   Route = "headset"
	RouteBluetooth Route = "bluetooth"
)

// Audio owns the platform audio session for calls.
type Audio interface {
	// CreateSession opens the call audio session and returns its id.
	CreateSession() (string, error)
	// DestroySession tears the session down.
	DestroySession(id string) error
	// SetRoute rebinds the session output.
	SetRoute(id string, r Route) error
	// CurrentRoute returns the active output.
	CurrentRoute(id string) (Route, error)
}

// Effect is a short feedback sound.
type Effect string

const (
	EffectConnect    Effect = "connect"
	EffectDisconnect Effect = "disconnect"
	EffectCallEnd    Effect = "call-end"
	EffectWaiting    Effect = "waiting"
)

// Ringer drives ringtone, vibration and in-call signal tones.
type Ringer interface {
	// StartAlert begins ringtone/vibration for an incoming number.
	StartAlert(number string) error
	// StopAlert silences any running alert.
	StopAlert() error
	// PlayEffect plays one short feedback sound.
	PlayEffect(e Effect) error
	// PlaySignal plays a network-driven signal tone (busy, congestion).
	PlaySignal(cause string) error
}

// CallEvent is the condensed call notification forwarded to the
// hands-free link.
type CallEvent struct {
	Kind   string
	CallID int
	Number string
}

// HandsFree mirrors call state to the accessory radio link.
type HandsFree interface {
	SendCallEvent(e CallEvent) error
	OpenLink() error
	CloseLink() error
	// Connected reports whether an accessory is attached; used by the
	// auto-answer policy.
	Connected() bool
}

// Recorder captures call audio.
type Recorder interface {
	Start(callID int) error
	Stop() error
	// Active reports whether a recording is running; incoming-call
	// policy consults it.
	Active() bool
}

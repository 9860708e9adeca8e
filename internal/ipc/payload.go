// Package ipc exposes the engine to UI clients over MQTT: requests
// come in on req topics, typed outcomes go back on resp topics, and
// state changes are broadcast as event topics. Client liveness is
// tracked through retained presence messages with last-will clears.
package ipc

// Request methods accepted on <prefix>/req/<method>.
const (
	MethodDial         = "dial"
	MethodEnd          = "end"
	MethodEndAll       = "end-all"
	MethodHold         = "hold"
	MethodRetrieve     = "retrieve"
	MethodSwap         = "swap"
	MethodAnswer       = "answer"
	MethodJoin         = "join"
	MethodSplit        = "split"
	MethodTransfer     = "transfer"
	MethodSendDTMF     = "send-dtmf"
	MethodContinueDTMF = "continue-dtmf"
	MethodCancelDTMF   = "cancel-dtmf"
	MethodSetMute      = "set-mute"
	MethodSetRoute     = "set-audio-route"
	MethodListCalls    = "list-calls"
	MethodCallStatus   = "call-status"
)

// Request is one client command delivered to the orchestrator loop.
type Request struct {
	Method    string `json:"-"`
	RequestID string `json:"request_id"`

	Slot       int    `json:"slot"`
	CallID     int    `json:"call_id"`
	Number     string `json:"number"`
	CallType   string `json:"call_type,omitempty"`
	AnswerKind string `json:"answer_kind,omitempty"`
	Digits     string `json:"digits,omitempty"`
	Route      string `json:"route,omitempty"`
	Mute       bool   `json:"mute,omitempty"`
	// FlightModeOverride authorizes auto-disabling flight mode for a
	// non-emergency dial.
	FlightModeOverride bool `json:"flight_mode_override,omitempty"`
}

// Response is the typed outcome for one request.
type Response struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`

	Slot  int           `json:"slot,omitempty"`
	Calls []LegSnapshot `json:"calls,omitempty"`
}

// LegSnapshot is the wire form of one call leg.
type LegSnapshot struct {
	CallID     int    `json:"call_id"`
	Slot       int    `json:"slot"`
	Direction  string `json:"direction"`
	Number     string `json:"number"`
	Name       string `json:"name,omitempty"`
	NameMode   string `json:"name_mode,omitempty"`
	CallType   string `json:"call_type"`
	State      string `json:"state"`
	Conference bool   `json:"conference,omitempty"`
	StartTime  string `json:"start_time,omitempty"`
}

// CallEventPayload is broadcast on every externally visible call
// change, with snapshots of the named legs so clients never have to
// reconstruct ordering from individual events.
type CallEventPayload struct {
	Kind     string `json:"kind"`
	CallID   int    `json:"call_id"`
	Slot     int    `json:"slot"`
	EndCause string `json:"end_cause,omitempty"`

	Incoming *LegSnapshot `json:"incoming,omitempty"`
	Active   *LegSnapshot `json:"active,omitempty"`
	Held     *LegSnapshot `json:"held,omitempty"`
}

// DialStatusPayload reports the progress or failure of a dial request.
type DialStatusPayload struct {
	RequestID string `json:"request_id,omitempty"`
	Slot      int    `json:"slot"`
	Number    string `json:"number"`
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
}

// DTMFPayload reports post-dial delivery progress.
type DTMFPayload struct {
	Slot   int    `json:"slot"`
	CallID int    `json:"call_id"`
	State  string `json:"state"`
	Digit  string `json:"digit,omitempty"`
	// Remaining is the undelivered tail, surfaced so the UI can show
	// what a wait confirmation will send.
	Remaining string `json:"remaining,omitempty"`
}

// AudioPayload reports the audio session state and route.
type AudioPayload struct {
	SessionID string `json:"session_id,omitempty"`
	Active    bool   `json:"active"`
	Route     string `json:"route,omitempty"`
}

// RecordPayload reports voice-recording state.
type RecordPayload struct {
	Active bool `json:"active"`
	CallID int  `json:"call_id,omitempty"`
}

// MutePayload reports uplink mute state.
type MutePayload struct {
	Muted bool `json:"muted"`
}

// ClientEvent reports a watched IPC client appearing or disappearing.
type ClientEvent struct {
	Name    string
	Present bool
}

// Outcome codes carried in Response.Code and DialStatusPayload.Code.
const (
	CodeOK                  = "ok"
	CodeValidation          = "validation"
	CodeStateConflict       = "state-conflict"
	CodeHardwareRejected    = "hardware-rejected"
	CodeResourceUnavailable = "resource-unavailable"
	CodeAlreadyPending      = "already-pending"
	CodeNoService           = "no-service"
	CodeAmbiguousSlot       = "ambiguous-slot"
	CodeNotFound            = "not-found"
)

package modem

// AnswerKind selects how an incoming or waiting call is accepted.
type AnswerKind int

const (
	// AnswerNormal accepts the ringing call with no side effects.
	AnswerNormal AnswerKind = iota
	// AnswerHoldActive parks the active call, then accepts.
	AnswerHoldActive
	// AnswerReleaseActive ends the active call, then accepts.
	AnswerReleaseActive
	// AnswerReleaseHeld ends the held call, then accepts.
	AnswerReleaseHeld
)

// String returns the wire name of the answer kind.
func (k AnswerKind) String() string {
	switch k {
	case AnswerHoldActive:
		return "hold-and-accept"
	case AnswerReleaseActive:
		return "release-active-and-accept"
	case AnswerReleaseHeld:
		return "release-held-and-accept"
	default:
		return "accept"
	}
}

// ParseAnswerKind maps a wire name back to an AnswerKind.
func ParseAnswerKind(s string) (AnswerKind, bool) {
	switch s {
	case "accept", "":
		return AnswerNormal, true
	case "hold-and-accept":
		return AnswerHoldActive, true
	case "release-active-and-accept":
		return AnswerReleaseActive, true
	case "release-held-and-accept":
		return AnswerReleaseHeld, true
	}
	return AnswerNormal, false
}

// AudioPath names the route the modem should play call audio on.
type AudioPath string

const (
	PathReceiver  AudioPath = "receiver"
	PathSpeaker   AudioPath = "speaker"
	PathHeadset   AudioPath = "headset"
	PathBluetooth AudioPath = "bluetooth"
)

// Commander issues fire-and-forget commands to the modem daemon. Every
// method returns only transport errors; the outcome of the command
// itself arrives later as a response event carrying the same slot.
type Commander interface {
	// Dial starts a mobile-originated call. callType is the wire name
	// of the dialing mode (voice, video, emergency).
	Dial(slot int, number, callType string) error
	// End releases one leg.
	End(slot, callID int) error
	// EndAll releases every leg on the slot.
	EndAll(slot int) error
	// Hold parks the active leg.
	Hold(slot, callID int) error
	// Retrieve reactivates a held leg.
	Retrieve(slot, callID int) error
	// Swap atomically exchanges the active and held legs.
	Swap(slot int) error
	// Answer accepts the ringing leg.
	Answer(slot int, kind AnswerKind) error
	// Join merges the held leg into a multi-party bridge.
	Join(slot int) error
	// Split takes one leg out of the bridge and makes it active.
	Split(slot, callID int) error
	// Transfer connects the held and active legs to each other and
	// drops out (explicit call transfer).
	Transfer(slot int) error

	// StartDTMF begins playing one DTMF digit on the active leg.
	StartDTMF(slot int, digit byte) error
	// StopDTMF stops the digit started by StartDTMF.
	StopDTMF(slot int) error
	// BurstDTMF plays a fixed-length digit string in one shot.
	BurstDTMF(slot int, digits string) error

	// SetAudioPath routes call audio.
	SetAudioPath(path AudioPath) error
	// SetMute mutes or unmutes the uplink.
	SetMute(mute bool) error
	// SetFlightMode toggles the radio. Used by the dial path to clear
	// flight mode before an emergency or user-authorized call.
	SetFlightMode(enabled bool) error
}

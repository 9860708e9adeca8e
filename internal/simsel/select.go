package simsel

import "errors"

// Selection errors.
var (
	// ErrAmbiguousSelection means both SIMs are usable and no preferred
	// voice subscription is set; the caller must prompt the user.
	ErrAmbiguousSelection = errors.New("simsel: slot selection is ambiguous")
	// ErrNoUsableSlot means no slot can carry the call.
	ErrNoUsableSlot = errors.New("simsel: no usable slot")
)

// Resolver picks the active radio subscription for an outgoing call.
// CallCount reports how many legs a slot currently holds; an existing
// call binds the slot.
type Resolver struct {
	Slots     []*SlotStatus
	CallCount func(slot int) int
}

// SelectSlotForDial chooses the slot for a new outgoing attempt.
//
// A slot already holding calls is always reused. Otherwise a single
// initialized SIM wins; with two, the preferred voice subscription
// decides. An unset preference surfaces ErrAmbiguousSelection, unless
// the target is a known emergency contact, which defaults to slot 0
// and falls back to the alternate slot when slot 0 is out of service.
func (r *Resolver) SelectSlotForDial(number string, knownEmergencyContact bool) (int, error) {
	for _, s := range r.Slots {
		if r.CallCount(s.Slot) > 0 {
			return s.Slot, nil
		}
	}

	var usable []*SlotStatus
	for _, s := range r.Slots {
		if s.Usable() {
			usable = append(usable, s)
		}
	}

	switch len(usable) {
	case 0:
		// An emergency-capable slot can still place emergency dials;
		// the orchestrator handles that path via IsEmergencyNumber.
		return 0, ErrNoUsableSlot
	case 1:
		return usable[0].Slot, nil
	}

	for _, s := range usable {
		if s.PreferredVoice {
			return s.Slot, nil
		}
	}

	if knownEmergencyContact {
		first := r.Slots[0]
		if first.InService() {
			return first.Slot, nil
		}
		for _, s := range r.Slots[1:] {
			if s.InService() {
				return s.Slot, nil
			}
		}
		return first.Slot, nil
	}

	return 0, ErrAmbiguousSelection
}

// SelectSlotForEmergency picks the slot for an emergency dial when no
// calls exist: any in-service slot, preferring initialized ones, else
// slot 0. Emergency dialing never fails on selection.
func (r *Resolver) SelectSlotForEmergency() int {
	for _, s := range r.Slots {
		if r.CallCount(s.Slot) > 0 {
			return s.Slot
		}
	}
	for _, s := range r.Slots {
		if s.Usable() && s.InService() {
			return s.Slot
		}
	}
	for _, s := range r.Slots {
		if s.InService() {
			return s.Slot
		}
	}
	return 0
}

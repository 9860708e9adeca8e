package session

import (
	"errors"

	"github.com/sweeney/callmgrd/internal/call"
	"github.com/sweeney/callmgrd/internal/incall"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/simsel"
)

// handleDial places an outgoing call. Strings dialed while a call is
// already up are interpreted first: supplementary-service short codes
// act on the existing calls, post-dial sequences become DTMF on the
// live leg. Everything else goes through slot selection, emergency
// classification and the legality checks before the modem sees it.
func (o *Orchestrator) handleDial(ss *slotState, req ipc.Request) {
	number, suffix := incall.SplitPostDial(req.Number)

	if ss.connectedCount() > 0 {
		if code, ok := incall.ClassifyDialed(req.Number); ok {
			o.execShortCode(ss, req, code)
			return
		}
		// Tones need a live leg to carry them; the codes above also
		// work against a lone held call.
		if ss.active != nil && ss.active.State == call.StateActive && (suffix != "" || number == "") {
			o.sendInCallDigits(ss, req, number, suffix)
			return
		}
	}

	if number == "" {
		o.respond(req, ipc.Response{Code: ipc.CodeValidation, Message: "empty number"})
		return
	}

	contact, _ := o.lookupContact(number)
	r := o.resolver()
	slot, err := r.SelectSlotForDial(number, contact.EmergencyContact)
	emergency := false
	if err != nil {
		// Selection failures never block an emergency dial.
		eslot := r.SelectSlotForEmergency()
		if ok, _ := simsel.IsEmergencyNumber(o.slots[eslot].status, number); ok {
			slot, emergency = eslot, true
		} else {
			o.failDial(ss, req, number, selectionCode(err), err.Error())
			return
		}
	} else if ok, _ := simsel.IsEmergencyNumber(o.slots[slot].status, number); ok {
		emergency = true
	}

	target := o.slots[slot]
	ctype := call.TypeVoice
	if t, ok := call.ParseType(req.CallType); ok {
		ctype = t
	}
	if emergency {
		ctype = call.TypeEmergency
	}

	if !target.status.PhoneInitialized && !emergency {
		o.failDial(target, req, number, ipc.CodeResourceUnavailable, "phone not initialized")
		return
	}

	if target.status.FlightMode {
		if emergency || req.FlightModeOverride {
			o.deferDialForFlightMode(target, req, number, suffix, ctype)
		} else {
			o.failDial(target, req, number, ipc.CodeResourceUnavailable, "flight mode is enabled")
		}
		return
	}

	o.startDial(target, req, number, suffix, ctype)
}

func selectionCode(err error) string {
	if errors.Is(err, simsel.ErrAmbiguousSelection) {
		return ipc.CodeAmbiguousSlot
	}
	return ipc.CodeResourceUnavailable
}

// validateDial enforces the concurrency rules before a new MO leg is
// created. Returns an empty code when the dial is legal.
func (o *Orchestrator) validateDial(ss *slotState, ctype call.Type) (code, msg string) {
	if _, err := ss.reg.FindUnassigned(); err == nil {
		return ipc.CodeStateConflict, "a dial is already in progress"
	}
	if ss.incoming != nil {
		return ipc.CodeStateConflict, "a call is ringing"
	}
	if ss.active != nil && ss.held != nil {
		return ipc.CodeStateConflict, "both an active and a held call exist"
	}
	if ctype == call.TypeVideo && (ss.reg.HasType(call.TypeVoice) || ss.reg.HasType(call.TypeEmergency)) {
		return ipc.CodeStateConflict, "video call cannot join voice calls"
	}
	if ctype != call.TypeVideo && ss.reg.HasType(call.TypeVideo) {
		return ipc.CodeStateConflict, "a video call is in progress"
	}
	if ss.reg.Count() >= o.cfg.Telephony.MaxConferenceSize+1 {
		return ipc.CodeStateConflict, "too many calls"
	}
	return "", ""
}

// startDial creates the unassigned leg and pushes the dial to the
// modem. Emergency dials skip nothing here; the relaxations all happen
// upstream in selection and flight-mode handling.
func (o *Orchestrator) startDial(ss *slotState, req ipc.Request, number, suffix string, ctype call.Type) {
	if code, msg := o.validateDial(ss, ctype); code != "" {
		o.failDial(ss, req, number, code, msg)
		return
	}
	if !o.bindSlot(ss.slot) {
		o.failDial(ss, req, number, ipc.CodeStateConflict, "calls exist on the other slot")
		return
	}

	leg, err := ss.reg.CreateLeg(ctype, call.MobileOriginated, number)
	if err != nil {
		o.failDial(ss, req, number, ipc.CodeStateConflict, err.Error())
		return
	}
	leg.DTMFSuffix = suffix
	if c, ok := o.lookupContact(number); ok {
		leg.CallingName = c.Name
	}
	ss.recomputeRefs()

	if err := o.mdm.Dial(ss.slot, number, ctype.String()); err != nil {
		_ = ss.reg.DeleteLeg(leg)
		ss.recomputeRefs()
		o.releaseSlotIfIdle(ss)
		o.failDial(ss, req, number, ipc.CodeHardwareRejected, "dial command failed")
		return
	}
	ss.inflight["Dial"] = req
	o.publishDialStatus(ss, ipc.DialStatusPayload{
		RequestID: req.RequestID,
		Slot:      ss.slot,
		Number:    number,
		Status:    "dialing",
	})
}

// failDial reports a dial that never reached the network, both to the
// requester and on the dial-status event stream.
func (o *Orchestrator) failDial(ss *slotState, req ipc.Request, number, code, msg string) {
	o.respond(req, ipc.Response{Code: code, Message: msg})
	o.publishDialStatus(ss, ipc.DialStatusPayload{
		RequestID: req.RequestID,
		Slot:      ss.slot,
		Number:    number,
		Status:    "failed",
		Code:      code,
	})
}

// deferDialForFlightMode parks the dial, asks the modem to drop flight
// mode and arms the re-registration grace timer. The disable request
// is retried once on a transport failure; nothing else in the engine
// retries silently.
func (o *Orchestrator) deferDialForFlightMode(ss *slotState, req ipc.Request, number, suffix string, ctype call.Type) {
	if ss.deferred != nil {
		o.failDial(ss, req, number, ipc.CodeStateConflict, "a dial is already waiting for the radio")
		return
	}
	ss.deferred = &deferredDial{req: req, number: number, suffix: suffix, callType: ctype}
	ss.flightRetried = false

	for {
		err := o.mdm.SetFlightMode(false)
		if err == nil {
			break
		}
		if ss.flightRetried {
			ss.deferred = nil
			o.failDial(ss, req, number, ipc.CodeResourceUnavailable, "flight mode could not be disabled")
			return
		}
		ss.flightRetried = true
		o.log.Modem.Warnf("flight mode disable failed, retrying once: %v", err)
	}

	o.arm(ss, timerFlightGrace, o.cfg.Telephony.FlightModeGrace())
	o.publishDialStatus(ss, ipc.DialStatusPayload{
		RequestID: req.RequestID,
		Slot:      ss.slot,
		Number:    number,
		Status:    "waiting-for-radio",
	})
}

// maybeResumeDeferred launches the parked dial once flight mode is off
// and the network is back.
func (o *Orchestrator) maybeResumeDeferred(ss *slotState) {
	if ss.deferred == nil || ss.status.FlightMode || !ss.status.InService() {
		return
	}
	d := ss.deferred
	ss.deferred = nil
	o.cancelTimer(ss, timerFlightGrace)
	o.startDial(ss, d.req, d.number, d.suffix, d.callType)
}

// fireFlightGrace fails the parked dial: the network did not come back
// in time, even if flight mode itself cleared.
func (o *Orchestrator) fireFlightGrace(ss *slotState) {
	if ss.deferred == nil {
		return
	}
	d := ss.deferred
	ss.deferred = nil
	o.failDial(ss, d.req, d.number, ipc.CodeNoService, "network did not return after flight mode")
}

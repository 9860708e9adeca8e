package session

import (
	"strings"

	"github.com/sweeney/callmgrd/internal/call"
	"github.com/sweeney/callmgrd/internal/collab"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/modem"
	"github.com/sweeney/callmgrd/internal/pending"
	"github.com/sweeney/callmgrd/internal/simsel"
)

// trackedActions are the modem commands whose outcome is resolved by
// the pending transition tracker rather than the response block.
var trackedActions = map[string]bool{
	"Hold":     true,
	"Retrieve": true,
	"Swap":     true,
	"Join":     true,
	"Split":    true,
}

func (o *Orchestrator) handleCallStatus(ss *slotState, evt modem.Event) {
	status, ok := call.ParseState(evt.Get("Status"))
	if !ok {
		o.log.Modem.Warnf("call status with unknown state %q", evt.Get("Status"))
		return
	}
	id := evt.GetInt("CallID")

	switch status {
	case call.StateIncoming, call.StateWaiting:
		o.handleIncoming(ss, evt, status)
		return
	case call.StateIdle:
		o.handleIdle(ss, evt, id)
		return
	}

	leg, err := ss.reg.FindByID(id)
	if err != nil {
		// First report for an in-flight dial carries the new handle.
		if _, uerr := ss.reg.FindUnassigned(); uerr == nil {
			leg, err = ss.reg.AssignID(id)
		}
	}
	if err != nil {
		o.log.Modem.Warnf("call status for unknown leg %d: %v", id, err)
		return
	}

	// Any state change on another leg invalidates a running
	// auto-answer countdown.
	if ss.incoming != nil && leg != ss.incoming {
		o.cancelTimer(ss, timerAutoAnswer)
	}

	prev := leg.State
	if err := ss.reg.SetState(leg, status); err != nil {
		o.log.Modem.Warnf("rejected transition for %s: %v", leg.Label(), err)
		return
	}
	if evt.Get("Conference") != "" {
		leg.Conference = evt.GetBool("Conference")
	}
	ss.recomputeRefs()

	// Resolve the pending transition before publishing so a completed
	// operation is reported as one logical event.
	res := pending.NotTracked
	if status == call.StateActive || status == call.StateHeld {
		res = ss.tracker.Confirm(leg.ID)
	}
	if res != pending.NotTracked {
		// Per-leg events inside a tracked transition stay quiet; the
		// completion callback publishes the operation-level event.
		return
	}

	switch status {
	case call.StateDialing:
		o.publishCallEvent(ss, "dialing", leg.ID, "")
	case call.StateAlerting:
		o.publishCallEvent(ss, "alerting", leg.ID, "")
	case call.StateActive:
		o.onLegConnected(ss, leg, prev)
	case call.StateHeld:
		// Network-initiated hold.
		o.publishCallEvent(ss, "held", leg.ID, "")
	}
}

// onLegConnected handles a leg reaching active outside a tracked
// transition: an answered MT leg or a connected MO attempt.
func (o *Orchestrator) onLegConnected(ss *slotState, leg *call.Leg, prev call.State) {
	if prev.IsRinging() {
		o.stopRinging(ss)
		o.cancelTimer(ss, timerAutoAnswer)
	}
	o.ensureAudioSession()
	if err := o.ringer.PlayEffect(collab.EffectConnect); err != nil {
		o.log.Core.Warnf("playing connect effect: %v", err)
	}
	if err := o.hfp.SendCallEvent(collab.CallEvent{Kind: "connected", CallID: leg.ID, Number: leg.Number}); err != nil {
		o.log.Core.Warnf("notifying hands-free: %v", err)
	}
	o.publishCallEvent(ss, "connected", leg.ID, "")

	// Stored post-dial digits become available once the call is up;
	// surface them so the client can request delivery.
	if prev.IsOriginating() && leg.DTMFSuffix != "" {
		o.publishDTMF(ss, ipc.DTMFPayload{
			Slot:      ss.slot,
			CallID:    leg.ID,
			State:     "pending",
			Remaining: leg.DTMFSuffix,
		})
	}
}

func (o *Orchestrator) stopRinging(ss *slotState) {
	if !ss.ringing {
		return
	}
	ss.ringing = false
	if err := o.ringer.StopAlert(); err != nil {
		o.log.Core.Warnf("stopping alert: %v", err)
	}
}

func (o *Orchestrator) handleSimStatus(ss *slotState, evt modem.Event) {
	st := ss.status
	st.NoSIM = !evt.GetBool("Present")
	st.SIMInitialized = evt.GetBool("Initialized")
	if evt.Get("CardType") == "usim" {
		st.CardType = simsel.CardUSIM
	} else {
		st.CardType = simsel.CardSIM
	}
	if mcc := evt.Get("MCC"); mcc != "" {
		st.MCC = mcc
	}
	if mnc := evt.Get("MNC"); mnc != "" {
		st.MNC = mnc
	}
	if v := evt.Get("PreferredVoice"); v != "" {
		st.PreferredVoice = evt.GetBool("PreferredVoice")
	}
	st.SimECC = parseEccList(evt.Get("EccList"))
	o.log.Core.Infof("slot %d sim status: present=%v initialized=%v", ss.slot, !st.NoSIM, st.SIMInitialized)
}

// parseEccList reads the SIM emergency list. USIM entries carry a
// category suffix ("112:7"); SIM-style entries are bare numbers.
func parseEccList(s string) []simsel.EccEntry {
	if s == "" {
		return nil
	}
	var out []simsel.EccEntry
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		number, cat, found := strings.Cut(item, ":")
		entry := simsel.EccEntry{Number: number}
		if found {
			entry.Category = simsel.Category(atoiSafe(cat))
		}
		out = append(out, entry)
	}
	return out
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func (o *Orchestrator) handleNetworkStatus(ss *slotState, evt modem.Event) {
	ss.status.Network = simsel.ParseNetworkStatus(evt.Get("Status"))
	if mcc := evt.Get("MCC"); mcc != "" {
		ss.status.MCC = mcc
	}
	if mnc := evt.Get("MNC"); mnc != "" {
		ss.status.MNC = mnc
	}
	o.maybeResumeDeferred(ss)
}

func (o *Orchestrator) handlePhoneStatus(ss *slotState, evt modem.Event) {
	ss.status.PhoneInitialized = evt.GetBool("Initialized")
	ss.status.FlightMode = evt.GetBool("FlightMode")
	o.maybeResumeDeferred(ss)
}

func (o *Orchestrator) handleDtmfAck(ss *slotState, evt modem.Event) {
	if evt.GetInt("CallID") != ss.dtmfCallID || !ss.dtmf.Active() {
		return
	}
	digit := evt.Get("Digit")
	if err := o.mdm.StopDTMF(ss.slot); err != nil {
		o.log.Modem.Warnf("stopping dtmf tone: %v", err)
	}
	if err := ss.dtmf.Ack(); err != nil {
		o.log.Modem.Errorf("advancing post-dial tail: %v", err)
		return
	}
	o.publishDTMF(ss, ipc.DTMFPayload{
		Slot:      ss.slot,
		CallID:    ss.dtmfCallID,
		State:     ss.dtmf.State().String(),
		Digit:     digit,
		Remaining: ss.dtmf.Remaining(),
	})
}

// handleSatRequest services SIM-toolkit requests: the card can ask for
// a call setup or DTMF delivery on its own.
func (o *Orchestrator) handleSatRequest(ss *slotState, evt modem.Event) {
	switch evt.Get("Kind") {
	case "setup-call":
		o.handleDial(ss, ipc.Request{
			Method: ipc.MethodDial,
			Slot:   ss.slot,
			Number: evt.Get("Number"),
		})
	case "send-dtmf":
		if ss.active == nil || ss.active.State != call.StateActive {
			o.log.Core.Warnf("sat send-dtmf with no active call")
			return
		}
		if err := o.startDTMF(ss, ss.active.ID, evt.Get("Digits")); err != nil {
			o.log.Core.Errorf("sat dtmf delivery: %v", err)
		}
	case "call-control":
		// Call control results are applied by the modem before the
		// dial is reported; nothing to do beyond noting it.
		o.log.Core.Infof("sat call-control on slot %d: %s", ss.slot, evt.Get("Number"))
	default:
		o.log.Core.Debugf("unhandled sat request %q", evt.Get("Kind"))
	}
}

// handleResponse resolves a command response block. Success responses
// for tracked operations stay quiet (the tracker decides completion);
// failures surface to the original requester as typed outcomes.
func (o *Orchestrator) handleResponse(ss *slotState, evt modem.Event) {
	action := evt.Get("Action")
	if evt.Succeeded() {
		if !trackedActions[action] {
			o.respondInflight(ss, action, ipc.Response{Code: ipc.CodeOK, Slot: ss.slot})
		}
		return
	}

	o.log.Modem.Warnf("modem rejected %s on slot %d", action, ss.slot)
	switch {
	case action == "Dial":
		if leg, err := ss.reg.FindUnassigned(); err == nil {
			number := leg.Number
			_ = ss.reg.DeleteLeg(leg)
			ss.recomputeRefs()
			o.publishDialStatus(ss, ipc.DialStatusPayload{
				Slot:   ss.slot,
				Number: number,
				Status: "failed",
				Code:   ipc.CodeHardwareRejected,
			})
		}
		o.releaseSlotIfIdle(ss)
		o.respondInflight(ss, "Dial", ipc.Response{Code: ipc.CodeHardwareRejected, Message: "modem rejected dial"})
	case trackedActions[action]:
		ss.tracker.Abort()
		o.respondInflight(ss, action, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "modem rejected " + strings.ToLower(action)})
	case action == "Answer":
		ss.answerPending = false
		o.respondInflight(ss, "Answer", ipc.Response{Code: ipc.CodeHardwareRejected, Message: "modem rejected answer"})
	case action == "End" && ss.answerPending:
		// The release half of a release-then-accept failed; the accept
		// will never be issued.
		ss.answerPending = false
		o.respondInflight(ss, "Answer", ipc.Response{Code: ipc.CodeHardwareRejected, Message: "release before accept failed"})
	case action == "SetFlightMode" && ss.deferred != nil:
		d := ss.deferred
		ss.deferred = nil
		o.cancelTimer(ss, timerFlightGrace)
		o.respond(d.req, ipc.Response{Code: ipc.CodeResourceUnavailable, Message: "flight mode could not be disabled"})
	default:
		o.respondInflight(ss, action, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "modem rejected " + strings.ToLower(action)})
	}
}

func (o *Orchestrator) publishDialStatus(ss *slotState, p ipc.DialStatusPayload) {
	if err := o.surface.PublishDialStatus(p); err != nil {
		o.log.IPC.Errorf("publishing dial status: %v", err)
	}
}

func (o *Orchestrator) publishDTMF(ss *slotState, p ipc.DTMFPayload) {
	if err := o.surface.PublishDTMF(p); err != nil {
		o.log.IPC.Errorf("publishing dtmf state: %v", err)
	}
}

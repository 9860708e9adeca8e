package session

import (
	"context"

	"github.com/sweeney/callmgrd/internal/call"
	"github.com/sweeney/callmgrd/internal/collab"
	"github.com/sweeney/callmgrd/internal/modem"
)

// handleIncoming admits a new MT leg and applies the auto-reject
// policy. Rejections are ordered: the block list wins over every other
// rule, and the cause recorded on the leg decides the call-log entry.
func (o *Orchestrator) handleIncoming(ss *slotState, evt modem.Event, status call.State) {
	id := evt.GetInt("CallID")
	number := evt.Get("Number")

	if _, err := ss.reg.FindByID(id); err == nil {
		// Repeated ring indication for a leg we already hold.
		return
	}

	if !o.bindSlot(ss.slot) {
		// Calls are live on the other slot; this one cannot be
		// serviced.
		o.log.Core.Warnf("incoming call on slot %d while slot %d is busy, rejecting", ss.slot, o.activeSlot)
		o.rejectIncomingByID(ss, id, call.CauseRejectedByUser)
		return
	}

	ctype := call.TypeVoice
	if t, ok := call.ParseType(evt.Get("CallType")); ok {
		ctype = t
	}
	leg, err := ss.reg.AdoptLeg(id, ctype, call.MobileTerminated, number, status)
	if err != nil {
		o.log.Modem.Warnf("cannot admit incoming leg %d: %v", id, err)
		o.rejectIncomingByID(ss, id, call.CauseRejectedByUser)
		return
	}
	leg.CallingName = evt.Get("Name")
	leg.NameMode = call.ParseNameMode(evt.Get("Presentation"))
	ss.recomputeRefs()

	blocked := false
	if number != "" {
		if c, ok := o.lookupContact(number); ok && leg.CallingName == "" {
			leg.CallingName = c.Name
		}
		var err error
		blocked, err = o.store.IsBlocked(context.Background(), number)
		if err != nil {
			o.log.Core.Warnf("block-list lookup for %s: %v", number, err)
		}
	}

	switch {
	case blocked:
		o.rejectIncoming(ss, leg, call.CauseBlockedByUser, "blocked number")
		return
	case o.rec.Active() && o.cfg.Telephony.RejectDuringRecording:
		o.rejectIncoming(ss, leg, call.CauseRejectedByUser, "recording in progress")
		return
	case o.cfg.Telephony.DoNotDisturb:
		o.rejectIncoming(ss, leg, call.CauseRejectedByUser, "do not disturb")
		return
	case status == call.StateWaiting && o.cfg.Telephony.LimitedMode:
		o.rejectIncoming(ss, leg, call.CauseRejectedByUser, "limited mode")
		return
	}

	if status == call.StateIncoming {
		ss.ringing = true
		if err := o.ringer.StartAlert(number); err != nil {
			o.log.Core.Warnf("starting alert: %v", err)
		}
		if d := o.cfg.Telephony.AutoAnswerDelay(o.hfp.Connected()); d > 0 {
			o.arm(ss, timerAutoAnswer, d)
		}
	} else {
		// A waiting call gets the in-call tone, never the ringtone.
		if err := o.ringer.PlayEffect(collab.EffectWaiting); err != nil {
			o.log.Core.Warnf("playing waiting tone: %v", err)
		}
	}
	if err := o.hfp.SendCallEvent(collab.CallEvent{Kind: "incoming", CallID: leg.ID, Number: number}); err != nil {
		o.log.Core.Warnf("notifying hands-free: %v", err)
	}
	kind := "incoming"
	if status == call.StateWaiting {
		kind = "waiting"
	}
	o.publishCallEvent(ss, kind, leg.ID, "")
}

// rejectIncoming declines an admitted leg. The cause is recorded now
// so the idle event that follows classifies the log entry correctly.
func (o *Orchestrator) rejectIncoming(ss *slotState, leg *call.Leg, cause call.EndCause, reason string) {
	o.log.Core.Infof("auto-rejecting %s from %q: %s", leg.Label(), leg.Number, reason)
	leg.EndCause = cause
	if err := o.mdm.End(ss.slot, leg.ID); err != nil {
		o.log.Modem.Errorf("rejecting leg %d: %v", leg.ID, err)
	}
	o.publishCallEvent(ss, "rejected", leg.ID, cause.Name())
}

// rejectIncomingByID declines a leg that was never admitted to the
// registry.
func (o *Orchestrator) rejectIncomingByID(ss *slotState, id int, cause call.EndCause) {
	o.log.Core.Infof("declining leg %d: %s", id, cause.Name())
	if err := o.mdm.End(ss.slot, id); err != nil {
		o.log.Modem.Errorf("rejecting leg %d: %v", id, err)
	}
}

// fireAutoAnswer accepts the ringing leg when the auto-answer
// countdown survives to expiry.
func (o *Orchestrator) fireAutoAnswer(ss *slotState) {
	if ss.incoming == nil || ss.incoming.State != call.StateIncoming {
		return
	}
	o.log.Core.Infof("auto-answering %s", ss.incoming.Label())
	if err := o.mdm.Answer(ss.slot, modem.AnswerNormal); err != nil {
		o.log.Modem.Errorf("auto-answer: %v", err)
	}
}

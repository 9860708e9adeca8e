package session

import (
	"github.com/sweeney/callmgrd/internal/call"
	"github.com/sweeney/callmgrd/internal/collab"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/modem"
	"github.com/sweeney/callmgrd/internal/pending"
)

// causeSignals maps release causes to the in-call signal tone played
// instead of the generic end effect.
var causeSignals = map[call.EndCause]bool{
	call.CauseBusy:       true,
	call.CauseCongestion: true,
	call.CauseNoService:  true,
}

// handleIdle retires a leg that reached idle and runs the post-end
// policy: resolve aborted transitions, log the call, then decide what
// the surviving legs should do next.
func (o *Orchestrator) handleIdle(ss *slotState, evt modem.Event, id int) {
	leg, err := ss.reg.FindByID(id)
	if err != nil {
		// A dial can fail before the modem ever assigned a handle.
		leg, err = ss.reg.FindUnassigned()
	}
	if err != nil {
		o.log.Modem.Debugf("idle for unknown leg %d", id)
		return
	}

	if cause := call.EndCause(evt.GetInt("EndCause")); leg.EndCause == call.CauseUnknown {
		leg.EndCause = cause
	}
	wasAnswered := !leg.StartTime.IsZero()
	wasRinging := leg.State.IsRinging()

	// A leg dying mid-transition aborts the whole operation.
	if ss.tracker.Tracks(leg.ID) {
		op := ss.tracker.Kind()
		ss.tracker.Abort()
		for action := range trackedActions {
			o.respondInflight(ss, action, ipc.Response{
				Code:    ipc.CodeHardwareRejected,
				Message: op.String() + " aborted, leg ended",
			})
		}
	}

	if wasRinging {
		o.stopRinging(ss)
		o.cancelTimer(ss, timerAutoAnswer)
	}
	if ss.dtmfCallID == leg.ID && ss.dtmf.Active() {
		ss.dtmf.Cancel()
		o.cancelTimer(ss, timerDTMFPause)
	}

	o.addLog(ss, leg, call.ClassifyEnd(leg, wasAnswered))
	causeName := leg.EndCause.Name()
	if err := ss.reg.DeleteLeg(leg); err != nil {
		o.log.Core.Errorf("removing %s: %v", leg.Label(), err)
	}
	ss.recomputeRefs()

	o.publishCallEvent(ss, "ended", id, causeName)
	if err := o.hfp.SendCallEvent(collab.CallEvent{Kind: "ended", CallID: id, Number: leg.Number}); err != nil {
		o.log.Core.Warnf("notifying hands-free: %v", err)
	}

	// Second phase of a release-then-accept answer: issue the accept
	// once no connected leg remains.
	acceptIssued := false
	if ss.answerPending && ss.connectedCount() == 0 {
		ss.answerPending = false
		acceptIssued = true
		o.log.Core.Debugf("slot %d: releases for %s answer done, accepting", ss.slot, ss.answerReason)
		if err := o.mdm.Answer(ss.slot, modem.AnswerNormal); err != nil {
			o.log.Modem.Errorf("deferred answer: %v", err)
			o.respondInflight(ss, "Answer", ipc.Response{Code: ipc.CodeHardwareRejected, Message: "accept after release failed"})
		}
	}

	// A held leg marked for reactivation comes back automatically once
	// the ending sibling is gone.
	if ss.held != nil && ss.held.RetrievePending && ss.active == nil {
		held := ss.held
		held.RetrievePending = false
		err := ss.tracker.Begin(pending.KindRetrieveHeld, []int{held.ID}, func(k pending.Kind) {
			ss.recomputeRefs()
			o.publishCallEvent(ss, k.String(), held.ID, "")
		})
		if err == nil {
			if rerr := o.mdm.Retrieve(ss.slot, held.ID); rerr != nil {
				o.log.Modem.Errorf("auto-retrieve of %s: %v", held.Label(), rerr)
				ss.tracker.Abort()
			}
		}
	}

	if ss.reg.Count() == 0 {
		o.onAllCallsEnded(ss, leg.EndCause)
		return
	}

	// The ringtone resumes for a still-ringing leg unless an accept is
	// about to fire for it.
	if ss.incoming != nil && !acceptIssued && !ss.answerPending && !ss.ringing && ss.connectedCount() == 0 {
		if ss.incoming.State == call.StateWaiting {
			if err := ss.reg.SetState(ss.incoming, call.StateIncoming); err == nil {
				ss.recomputeRefs()
			}
		}
		ss.ringing = true
		if err := o.ringer.StartAlert(ss.incoming.Number); err != nil {
			o.log.Core.Warnf("resuming alert: %v", err)
		}
	}
}

// onAllCallsEnded runs the last-call teardown: audio, tones, mute and
// recording all return to their idle state.
func (o *Orchestrator) onAllCallsEnded(ss *slotState, cause call.EndCause) {
	o.teardownAudioSession()
	if causeSignals[cause] {
		if err := o.ringer.PlaySignal(cause.Name()); err != nil {
			o.log.Core.Warnf("playing signal tone: %v", err)
		}
	} else {
		if err := o.ringer.PlayEffect(collab.EffectCallEnd); err != nil {
			o.log.Core.Warnf("playing end effect: %v", err)
		}
	}
	o.resetMute()
	if o.rec.Active() {
		if err := o.rec.Stop(); err != nil {
			o.log.Core.Warnf("stopping recording: %v", err)
		}
		if err := o.surface.PublishRecord(ipc.RecordPayload{Active: false}); err != nil {
			o.log.IPC.Errorf("publishing record state: %v", err)
		}
	}
	ss.answerPending = false
	ss.dtmfCallID = 0
	o.releaseSlotIfIdle(ss)
}

// handleEnd releases one leg, or the most releasable one when no id is
// given. Ending the active leg while another is held marks the held
// leg for automatic reactivation.
func (o *Orchestrator) handleEnd(ss *slotState, req ipc.Request) {
	leg := o.resolveEndTarget(ss, req.CallID)
	if leg == nil {
		o.respond(req, ipc.Response{Code: ipc.CodeNotFound, Message: "no such call"})
		return
	}
	if leg.State.IsRinging() && leg.Direction == call.MobileTerminated {
		leg.EndCause = call.CauseRejectedByUser
	}
	if leg == ss.active && ss.held != nil {
		ss.held.RetrievePending = true
	}
	if !leg.Assigned() {
		// The dial is still in flight; abandon every leg the modem has.
		o.handleEndAll(ss, req)
		return
	}
	if err := o.mdm.End(ss.slot, leg.ID); err != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "end command failed"})
		return
	}
	ss.inflight["End"] = req
}

// resolveEndTarget picks the leg an end request addresses: an explicit
// id wins, otherwise ringing beats active beats held.
func (o *Orchestrator) resolveEndTarget(ss *slotState, id int) *call.Leg {
	if id != 0 {
		if leg, err := ss.reg.FindByID(id); err == nil {
			return leg
		}
		return nil
	}
	switch {
	case ss.incoming != nil:
		return ss.incoming
	case ss.active != nil:
		return ss.active
	case ss.held != nil:
		return ss.held
	}
	return nil
}

func (o *Orchestrator) handleEndAll(ss *slotState, req ipc.Request) {
	if ss.reg.Count() == 0 {
		o.respond(req, ipc.Response{Code: ipc.CodeOK, Slot: ss.slot})
		return
	}
	if err := o.mdm.EndAll(ss.slot); err != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "end-all command failed"})
		return
	}
	ss.inflight["EndAll"] = req
}

package session

import (
	"github.com/sweeney/callmgrd/internal/call"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/modem"
)

// handleAnswer accepts the ringing leg. The two release variants run
// in two phases: the release is issued first and the accept follows
// only after the registry confirms the released leg is gone, since the
// modem cannot be trusted to order them itself.
func (o *Orchestrator) handleAnswer(ss *slotState, req ipc.Request) {
	if ss.incoming == nil {
		o.respond(req, ipc.Response{Code: ipc.CodeNotFound, Message: "no ringing call"})
		return
	}
	kind, ok := modem.ParseAnswerKind(req.AnswerKind)
	if !ok {
		o.respond(req, ipc.Response{Code: ipc.CodeValidation, Message: "unknown answer kind " + req.AnswerKind})
		return
	}
	if ss.answerPending {
		o.respond(req, ipc.Response{Code: ipc.CodeAlreadyPending, Message: "an answer is already in progress"})
		return
	}

	// Downgrade release variants with no matching leg to a plain
	// accept rather than failing the answer.
	var release *call.Leg
	switch kind {
	case modem.AnswerReleaseActive:
		release = ss.active
	case modem.AnswerReleaseHeld:
		release = ss.held
	}

	switch kind {
	case modem.AnswerHoldActive:
		if ss.active == nil {
			kind = modem.AnswerNormal
		}
		fallthrough
	case modem.AnswerNormal:
		if err := o.mdm.Answer(ss.slot, kind); err != nil {
			o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "answer command failed"})
			return
		}
		ss.inflight["Answer"] = req

	case modem.AnswerReleaseActive, modem.AnswerReleaseHeld:
		if release == nil {
			if err := o.mdm.Answer(ss.slot, modem.AnswerNormal); err != nil {
				o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "answer command failed"})
				return
			}
			ss.inflight["Answer"] = req
			return
		}
		ss.answerPending = true
		ss.answerReason = kind
		ss.inflight["Answer"] = req
		if err := o.mdm.End(ss.slot, release.ID); err != nil {
			ss.answerPending = false
			o.respondInflight(ss, "Answer", ipc.Response{Code: ipc.CodeHardwareRejected, Message: "release before accept failed"})
			return
		}
	}

	o.stopRinging(ss)
	o.cancelTimer(ss, timerAutoAnswer)
}

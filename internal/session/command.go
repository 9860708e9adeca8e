package session

import (
	"errors"

	"github.com/sweeney/callmgrd/internal/call"
	"github.com/sweeney/callmgrd/internal/collab"
	"github.com/sweeney/callmgrd/internal/incall"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/modem"
	"github.com/sweeney/callmgrd/internal/pending"
)

// beginTracked registers a multi-leg transition and issues the modem
// command. Per-leg confirmations stay quiet; the completion callback
// publishes the operation as one event and answers the request.
// Returns whether the transition is actually in flight.
func (o *Orchestrator) beginTracked(ss *slotState, req ipc.Request, action string, kind pending.Kind, ids []int, issue func() error) bool {
	err := ss.tracker.Begin(kind, ids, func(k pending.Kind) {
		ss.recomputeRefs()
		focus := 0
		if len(ids) > 0 {
			focus = ids[0]
		}
		o.publishCallEvent(ss, k.String(), focus, "")
		o.respondInflight(ss, action, ipc.Response{Code: ipc.CodeOK, Slot: ss.slot})
	})
	if err != nil {
		code := ipc.CodeStateConflict
		if errors.Is(err, pending.ErrAlreadyPending) {
			code = ipc.CodeAlreadyPending
		}
		o.respond(req, ipc.Response{Code: code, Message: err.Error()})
		return false
	}
	ss.inflight[action] = req
	if err := issue(); err != nil {
		ss.tracker.Abort()
		o.respondInflight(ss, action, ipc.Response{Code: ipc.CodeHardwareRejected, Message: action + " command failed"})
		return false
	}
	return true
}

func (o *Orchestrator) handleHold(ss *slotState, req ipc.Request) {
	if ss.active == nil || ss.active.State != call.StateActive {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "no active call to hold"})
		return
	}
	if ss.held != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "a call is already held, use swap"})
		return
	}
	id := ss.active.ID
	o.beginTracked(ss, req, "Hold", pending.KindHoldActive, []int{id}, func() error {
		return o.mdm.Hold(ss.slot, id)
	})
}

func (o *Orchestrator) handleRetrieve(ss *slotState, req ipc.Request) {
	if ss.held == nil {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "no held call"})
		return
	}
	if ss.active != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "an active call exists, use swap"})
		return
	}
	id := ss.held.ID
	o.beginTracked(ss, req, "Retrieve", pending.KindRetrieveHeld, []int{id}, func() error {
		return o.mdm.Retrieve(ss.slot, id)
	})
}

func (o *Orchestrator) handleSwap(ss *slotState, req ipc.Request) {
	if ss.active == nil || ss.held == nil {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "swap needs an active and a held call"})
		return
	}
	ids := []int{ss.active.ID, ss.held.ID}
	o.beginTracked(ss, req, "Swap", pending.KindSwap, ids, func() error {
		return o.mdm.Swap(ss.slot)
	})
}

func (o *Orchestrator) handleJoin(ss *slotState, req ipc.Request) {
	if ss.active == nil || ss.held == nil {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "join needs an active and a held call"})
		return
	}
	if ss.reg.CountConference()+2 > o.cfg.Telephony.MaxConferenceSize+1 {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "conference is full"})
		return
	}
	active, held := ss.active, ss.held
	ids := []int{active.ID, held.ID}
	if o.beginTracked(ss, req, "Join", pending.KindJoin, ids, func() error {
		return o.mdm.Join(ss.slot)
	}) {
		// Membership flags are set optimistically; a later event with
		// an explicit Conference header corrects them.
		active.Conference = true
		held.Conference = true
	}
}

func (o *Orchestrator) handleSplit(ss *slotState, req ipc.Request) {
	leg, err := ss.reg.FindByID(req.CallID)
	if err != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeNotFound, Message: "no such call"})
		return
	}
	if !leg.Conference {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "call is not in the conference"})
		return
	}
	if o.beginTracked(ss, req, "Split", pending.KindSplit, []int{leg.ID}, func() error {
		return o.mdm.Split(ss.slot, leg.ID)
	}) {
		leg.Conference = false
	}
}

// handleTransfer connects the held and active remote parties and drops
// this end out. Both legs end afterwards, so the tracker is not used;
// the response resolves on the modem's command response.
func (o *Orchestrator) handleTransfer(ss *slotState, req ipc.Request) {
	if ss.active == nil || ss.held == nil {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "transfer needs an active and a held call"})
		return
	}
	if err := o.mdm.Transfer(ss.slot); err != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "transfer command failed"})
		return
	}
	ss.inflight["Transfer"] = req
}

// startDTMF wires the sender callbacks for one delivery run and begins
// sending on the leg.
func (o *Orchestrator) startDTMF(ss *slotState, callID int, tail string) error {
	ss.dtmfCallID = callID
	ss.dtmf.SendDigit = func(digit byte) error {
		return o.mdm.StartDTMF(ss.slot, digit)
	}
	ss.dtmf.StartPause = func() {
		o.arm(ss, timerDTMFPause, o.cfg.Telephony.DTMFPause())
		o.publishDTMF(ss, ipc.DTMFPayload{
			Slot:      ss.slot,
			CallID:    callID,
			State:     incall.SendPauseWait.String(),
			Remaining: ss.dtmf.Remaining(),
		})
	}
	ss.dtmf.NotifyWait = func() {
		o.publishDTMF(ss, ipc.DTMFPayload{
			Slot:      ss.slot,
			CallID:    callID,
			State:     incall.SendWaitUser.String(),
			Remaining: ss.dtmf.Remaining(),
		})
	}
	return ss.dtmf.Start(tail)
}

// sendInCallDigits delivers digits dialed while a call is up: the
// plain head goes out as one burst, the control tail digit by digit.
func (o *Orchestrator) sendInCallDigits(ss *slotState, req ipc.Request, head, tail string) {
	if ss.dtmf.Active() {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "dtmf delivery already in progress"})
		return
	}
	if head != "" {
		if err := o.mdm.BurstDTMF(ss.slot, head); err != nil {
			o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "dtmf burst failed"})
			return
		}
	}
	if tail != "" {
		if err := o.startDTMF(ss, ss.active.ID, tail); err != nil {
			o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "dtmf delivery failed"})
			return
		}
	}
	o.respond(req, ipc.Response{Code: ipc.CodeOK, Slot: ss.slot})
}

// handleSendDTMF starts delivery of explicit digits, or of the stored
// post-dial suffix when the request carries none.
func (o *Orchestrator) handleSendDTMF(ss *slotState, req ipc.Request) {
	if ss.active == nil || ss.active.State != call.StateActive {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "no active call"})
		return
	}
	digits := req.Digits
	if digits == "" {
		digits = ss.active.DTMFSuffix
		ss.active.DTMFSuffix = ""
	}
	if digits == "" {
		o.respond(req, ipc.Response{Code: ipc.CodeValidation, Message: "no digits to send"})
		return
	}
	if ss.dtmf.Active() {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "dtmf delivery already in progress"})
		return
	}
	if err := o.startDTMF(ss, ss.active.ID, digits); err != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "dtmf delivery failed"})
		return
	}
	o.respond(req, ipc.Response{Code: ipc.CodeOK, Slot: ss.slot})
}

// handleContinueDTMF resumes delivery parked at a wait character.
func (o *Orchestrator) handleContinueDTMF(ss *slotState, req ipc.Request) {
	if !ss.dtmf.Active() {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "no dtmf delivery waiting"})
		return
	}
	if err := ss.dtmf.Continue(); err != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "dtmf delivery failed"})
		return
	}
	o.respond(req, ipc.Response{Code: ipc.CodeOK, Slot: ss.slot})
}

func (o *Orchestrator) handleCancelDTMF(ss *slotState, req ipc.Request) {
	ss.dtmf.Cancel()
	o.cancelTimer(ss, timerDTMFPause)
	o.publishDTMF(ss, ipc.DTMFPayload{
		Slot:   ss.slot,
		CallID: ss.dtmfCallID,
		State:  "canceled",
	})
	o.respond(req, ipc.Response{Code: ipc.CodeOK, Slot: ss.slot})
}

// fireDTMFPause resumes delivery after the post-dial pause.
func (o *Orchestrator) fireDTMFPause(ss *slotState) {
	if err := ss.dtmf.PauseElapsed(); err != nil {
		o.log.Modem.Errorf("resuming post-dial tail: %v", err)
	}
}

func (o *Orchestrator) handleSetMute(ss *slotState, req ipc.Request) {
	if err := o.mdm.SetMute(req.Mute); err != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeHardwareRejected, Message: "mute command failed"})
		return
	}
	o.muted = req.Mute
	if err := o.surface.PublishMute(ipc.MutePayload{Muted: o.muted}); err != nil {
		o.log.IPC.Errorf("publishing mute state: %v", err)
	}
	ss.inflight["SetMute"] = req
}

// handleSetRoute rebinds the audio session and mirrors the route to
// the modem's audio path.
func (o *Orchestrator) handleSetRoute(ss *slotState, req ipc.Request) {
	if o.audioSession == "" {
		o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "no audio session"})
		return
	}
	route := collab.Route(req.Route)
	switch route {
	case collab.RouteReceiver, collab.RouteSpeaker, collab.RouteHeadset, collab.RouteBluetooth:
	default:
		o.respond(req, ipc.Response{Code: ipc.CodeValidation, Message: "unknown route " + req.Route})
		return
	}
	if err := o.audio.SetRoute(o.audioSession, route); err != nil {
		o.respond(req, ipc.Response{Code: ipc.CodeResourceUnavailable, Message: "route change failed"})
		return
	}
	if err := o.mdm.SetAudioPath(modem.AudioPath(req.Route)); err != nil {
		o.log.Modem.Warnf("mirroring audio path: %v", err)
	}
	o.publishAudio(true)
	o.respond(req, ipc.Response{Code: ipc.CodeOK, Slot: ss.slot})
}

func (o *Orchestrator) handleListCalls(ss *slotState, req ipc.Request) {
	resp := ipc.Response{Code: ipc.CodeOK, Slot: ss.slot}
	for _, leg := range ss.reg.All() {
		resp.Calls = append(resp.Calls, *ss.snapshot(leg))
	}
	o.respond(req, resp)
}

// handleCallStatusQuery returns the named references in a fixed order:
// incoming, active, held.
func (o *Orchestrator) handleCallStatusQuery(ss *slotState, req ipc.Request) {
	resp := ipc.Response{Code: ipc.CodeOK, Slot: ss.slot}
	for _, leg := range []*call.Leg{ss.incoming, ss.active, ss.held} {
		if leg != nil {
			resp.Calls = append(resp.Calls, *ss.snapshot(leg))
		}
	}
	o.respond(req, resp)
}

// execShortCode maps a supplementary-service code dialed during a call
// onto the equivalent engine operation.
func (o *Orchestrator) execShortCode(ss *slotState, req ipc.Request, code incall.SSCode) {
	o.log.Core.Infof("short code %s on slot %d", code.Op, ss.slot)
	switch code.Op {
	case incall.SSReleaseHeld:
		switch {
		case ss.incoming != nil && ss.incoming.State == call.StateWaiting:
			// With a waiting call ringing, "0" declines it (UDUB).
			ss.incoming.EndCause = call.CauseRejectedByUser
			req.CallID = ss.incoming.ID
			o.handleEnd(ss, req)
		case ss.held != nil:
			req.CallID = ss.held.ID
			o.handleEnd(ss, req)
		default:
			o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "nothing to release"})
		}

	case incall.SSReleaseActiveAccept:
		if ss.active == nil {
			o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "no active call"})
			return
		}
		if ss.incoming != nil {
			req.AnswerKind = modem.AnswerReleaseActive.String()
			o.handleAnswer(ss, req)
			return
		}
		// Ending the active leg auto-retrieves the held one.
		req.CallID = ss.active.ID
		o.handleEnd(ss, req)

	case incall.SSReleaseSpecific:
		leg := o.legByOrdinal(ss, code.Ordinal)
		if leg == nil {
			o.respond(req, ipc.Response{Code: ipc.CodeNotFound, Message: "no such call"})
			return
		}
		req.CallID = leg.ID
		o.handleEnd(ss, req)

	case incall.SSHoldActiveAccept:
		switch {
		case ss.incoming != nil:
			req.AnswerKind = modem.AnswerHoldActive.String()
			o.handleAnswer(ss, req)
		case ss.active != nil && ss.held != nil:
			o.handleSwap(ss, req)
		case ss.active != nil:
			o.handleHold(ss, req)
		case ss.held != nil:
			o.handleRetrieve(ss, req)
		default:
			o.respond(req, ipc.Response{Code: ipc.CodeStateConflict, Message: "no call to act on"})
		}

	case incall.SSSplitSpecific:
		leg := o.legByOrdinal(ss, code.Ordinal)
		if leg == nil {
			o.respond(req, ipc.Response{Code: ipc.CodeNotFound, Message: "no such call"})
			return
		}
		req.CallID = leg.ID
		o.handleSplit(ss, req)

	case incall.SSJoin:
		o.handleJoin(ss, req)

	case incall.SSTransfer:
		o.handleTransfer(ss, req)

	default:
		o.respond(req, ipc.Response{Code: ipc.CodeValidation, Message: "unknown short code"})
	}
}

// legByOrdinal resolves the 1-based leg selector of the 1X/2X codes
// against the registry's creation order.
func (o *Orchestrator) legByOrdinal(ss *slotState, ordinal int) *call.Leg {
	legs := ss.reg.All()
	if ordinal < 1 || ordinal > len(legs) {
		return nil
	}
	return legs[ordinal-1]
}

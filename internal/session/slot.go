package session

import (
	"time"

	"github.com/sweeney/callmgrd/internal/call"
	"github.com/sweeney/callmgrd/internal/incall"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/modem"
	"github.com/sweeney/callmgrd/internal/pending"
	"github.com/sweeney/callmgrd/internal/simsel"
)

// timerKind names the cancelable timers a slot can hold.
type timerKind int

const (
	timerAutoAnswer timerKind = iota
	timerDTMFPause
	timerFlightGrace
	timerCount
)

// deferredDial is a dial parked behind a flight-mode disable request.
type deferredDial struct {
	req      ipc.Request
	number   string
	suffix   string
	callType call.Type
}

// slotState bundles everything the orchestrator owns per SIM slot. The
// three named references (incoming, active, held) are recomputed from
// the registry after every state-changing event and never mutated
// directly.
type slotState struct {
	slot    int
	reg     *call.Registry
	tracker *pending.Tracker
	status  *simsel.SlotStatus

	incoming *call.Leg // ringing MT leg (incoming or waiting)
	active   *call.Leg // active or originating leg
	held     *call.Leg

	// Two-phase answer sequencer: an answer that first releases other
	// legs parks here until the registry confirms the release.
	answerPending bool
	answerReason  modem.AnswerKind

	deferred      *deferredDial
	flightRetried bool
	ringing       bool

	dtmf       *incall.Sender
	dtmfCallID int

	// inflight maps a modem action to the IPC request awaiting its
	// response, so hardware rejections reach the original caller.
	inflight map[string]ipc.Request

	timerSeq [timerCount]int
}

func newSlotState(slot int) *slotState {
	return &slotState{
		slot:     slot,
		reg:      call.NewRegistry(),
		tracker:  pending.NewTracker(),
		status:   &simsel.SlotStatus{Slot: slot},
		dtmf:     &incall.Sender{},
		inflight: make(map[string]ipc.Request),
	}
}

// recomputeRefs rebuilds the named slot references from the registry.
func (s *slotState) recomputeRefs() {
	s.incoming, s.active, s.held = nil, nil, nil
	for _, leg := range s.reg.All() {
		switch {
		case leg.State.IsRinging():
			s.incoming = leg
		case leg.State == call.StateActive || leg.State.IsOriginating():
			if s.active == nil {
				s.active = leg
			}
		case leg.State == call.StateHeld:
			if s.held == nil {
				s.held = leg
			}
		}
	}
}

// connectedCount returns how many legs are active or held.
func (s *slotState) connectedCount() int {
	n := 0
	for _, leg := range s.reg.All() {
		if leg.State.IsConnected() {
			n++
		}
	}
	return n
}

// snapshot converts a leg to its wire form. Nil in, nil out, so the
// named refs can be passed straight through.
func (s *slotState) snapshot(leg *call.Leg) *ipc.LegSnapshot {
	if leg == nil {
		return nil
	}
	snap := &ipc.LegSnapshot{
		CallID:     leg.ID,
		Slot:       s.slot,
		Direction:  leg.Direction.String(),
		Number:     leg.Number,
		Name:       leg.CallingName,
		NameMode:   leg.NameMode.String(),
		CallType:   leg.Type.String(),
		State:      leg.State.String(),
		Conference: leg.Conference,
	}
	if !leg.StartTime.IsZero() {
		snap.StartTime = leg.StartTime.UTC().Format(time.RFC3339)
	}
	return snap
}

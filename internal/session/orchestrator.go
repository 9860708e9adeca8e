// Package session is the call engine's event dispatcher: it owns the
// per-slot registries, resolves modem events against the pending
// transition tracker, recomputes the named slot references, decides
// legal transitions and drives the modem and the collaborators. All
// state is mutated on one goroutine; nothing here blocks.
package session

import (
	"context"
	"time"

	"github.com/sweeney/callmgrd/internal/call"
	"github.com/sweeney/callmgrd/internal/collab"
	"github.com/sweeney/callmgrd/internal/config"
	"github.com/sweeney/callmgrd/internal/contacts"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/logging"
	"github.com/sweeney/callmgrd/internal/modem"
	"github.com/sweeney/callmgrd/internal/simsel"
)

// slotUnbound means no slot currently holds the dialing/command focus.
const slotUnbound = -1

// timerEvent is a timer expiration delivered back into the loop. The
// seq guards against stale fires: canceling a timer bumps the slot's
// sequence so the late callback is ignored.
type timerEvent struct {
	kind timerKind
	slot int
	seq  int
}

// Deps are the orchestrator's wired collaborators.
type Deps struct {
	Config    *config.Config
	Log       *logging.Set
	Modem     modem.Commander
	Surface   ipc.Surface
	Audio     collab.Audio
	Ringer    collab.Ringer
	HandsFree collab.HandsFree
	Recorder  collab.Recorder
	Store     contacts.Store
}

// Orchestrator is the single-threaded call-session engine.
type Orchestrator struct {
	cfg     *config.Config
	log     *logging.Set
	mdm     modem.Commander
	surface ipc.Surface
	audio   collab.Audio
	ringer  collab.Ringer
	hfp     collab.HandsFree
	rec     collab.Recorder
	store   contacts.Store

	slots      []*slotState
	activeSlot int

	audioSession string
	muted        bool

	// watched client presence; when the last watched client vanishes
	// every call is force-ended.
	watched map[string]bool

	timerCh chan timerEvent
	// after schedules a callback; replaced in tests.
	after func(d time.Duration, fire func())
}

// New builds an orchestrator for the configured number of slots.
func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:        deps.Config,
		log:        deps.Log,
		mdm:        deps.Modem,
		surface:    deps.Surface,
		audio:      deps.Audio,
		ringer:     deps.Ringer,
		hfp:        deps.HandsFree,
		rec:        deps.Recorder,
		store:      deps.Store,
		activeSlot: slotUnbound,
		watched:    make(map[string]bool),
		timerCh:    make(chan timerEvent, 16),
		after: func(d time.Duration, fire func()) {
			time.AfterFunc(d, fire)
		},
	}
	for i := 0; i < deps.Config.Telephony.Slots; i++ {
		o.slots = append(o.slots, newSlotState(i))
	}
	for _, name := range deps.Config.MQTT.WatchedClients {
		o.watched[name] = false
	}
	return o
}

// Run drives the loop until ctx is canceled or the modem stream ends.
// Every mutation of engine state happens on this goroutine.
func (o *Orchestrator) Run(ctx context.Context, events <-chan modem.Event) error {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			o.HandleModemEvent(evt)
		case req := <-o.surface.Requests():
			o.HandleRequest(req)
		case ce := <-o.surface.ClientEvents():
			o.HandleClientEvent(ce)
		case te := <-o.timerCh:
			o.handleTimer(te)
		case <-ctx.Done():
			return nil
		}
	}
}

// HandleModemEvent dispatches one modem notification or response.
func (o *Orchestrator) HandleModemEvent(evt modem.Event) {
	slot := evt.Slot()
	if slot < 0 || slot >= len(o.slots) {
		o.log.Modem.Warnf("event for unknown slot %d dropped", slot)
		return
	}
	if evt.IsResponse() {
		o.handleResponse(o.slots[slot], evt)
		return
	}
	switch evt.Type() {
	case modem.EventCallStatus:
		o.handleCallStatus(o.slots[slot], evt)
	case modem.EventSimStatus:
		o.handleSimStatus(o.slots[slot], evt)
	case modem.EventNetworkStatus:
		o.handleNetworkStatus(o.slots[slot], evt)
	case modem.EventPhoneStatus:
		o.handlePhoneStatus(o.slots[slot], evt)
	case modem.EventDtmfAck:
		o.handleDtmfAck(o.slots[slot], evt)
	case modem.EventSatRequest:
		o.handleSatRequest(o.slots[slot], evt)
	default:
		// Unknown events are logged and ignored, never fatal.
		o.log.Modem.Debugf("unhandled modem event %q", evt.Type())
	}
}

// HandleRequest dispatches one IPC command.
func (o *Orchestrator) HandleRequest(req ipc.Request) {
	if req.Slot < 0 || req.Slot >= len(o.slots) {
		o.respond(req, ipc.Response{Code: ipc.CodeValidation, Message: "unknown slot"})
		return
	}
	ss := o.slots[req.Slot]
	switch req.Method {
	case ipc.MethodDial:
		o.handleDial(ss, req)
	case ipc.MethodEnd:
		o.handleEnd(ss, req)
	case ipc.MethodEndAll:
		o.handleEndAll(ss, req)
	case ipc.MethodHold:
		o.handleHold(ss, req)
	case ipc.MethodRetrieve:
		o.handleRetrieve(ss, req)
	case ipc.MethodSwap:
		o.handleSwap(ss, req)
	case ipc.MethodAnswer:
		o.handleAnswer(ss, req)
	case ipc.MethodJoin:
		o.handleJoin(ss, req)
	case ipc.MethodSplit:
		o.handleSplit(ss, req)
	case ipc.MethodTransfer:
		o.handleTransfer(ss, req)
	case ipc.MethodSendDTMF:
		o.handleSendDTMF(ss, req)
	case ipc.MethodContinueDTMF:
		o.handleContinueDTMF(ss, req)
	case ipc.MethodCancelDTMF:
		o.handleCancelDTMF(ss, req)
	case ipc.MethodSetMute:
		o.handleSetMute(ss, req)
	case ipc.MethodSetRoute:
		o.handleSetRoute(ss, req)
	case ipc.MethodListCalls:
		o.handleListCalls(ss, req)
	case ipc.MethodCallStatus:
		o.handleCallStatusQuery(ss, req)
	default:
		o.respond(req, ipc.Response{Code: ipc.CodeValidation, Message: "unknown method " + req.Method})
	}
}

// HandleClientEvent tracks watched client presence. Call lifetime is
// tied to the watched clients: when the last one disappears every call
// on every slot is force-ended.
func (o *Orchestrator) HandleClientEvent(e ipc.ClientEvent) {
	if _, ok := o.watched[e.Name]; !ok {
		return
	}
	o.watched[e.Name] = e.Present
	if e.Present {
		return
	}
	for _, present := range o.watched {
		if present {
			return
		}
	}
	o.log.Core.Warnf("last watched client %q disappeared, ending all calls", e.Name)
	for _, ss := range o.slots {
		if ss.reg.Count() > 0 {
			if err := o.mdm.EndAll(ss.slot); err != nil {
				o.log.Core.Errorf("end-all on slot %d: %v", ss.slot, err)
			}
		}
	}
}

// arm schedules a cancelable per-slot timer.
func (o *Orchestrator) arm(ss *slotState, kind timerKind, d time.Duration) {
	ss.timerSeq[kind]++
	seq := ss.timerSeq[kind]
	slot := ss.slot
	o.after(d, func() {
		o.timerCh <- timerEvent{kind: kind, slot: slot, seq: seq}
	})
}

// cancelTimer invalidates any outstanding fire for the timer.
func (o *Orchestrator) cancelTimer(ss *slotState, kind timerKind) {
	ss.timerSeq[kind]++
}

func (o *Orchestrator) handleTimer(te timerEvent) {
	if te.slot < 0 || te.slot >= len(o.slots) {
		return
	}
	ss := o.slots[te.slot]
	if te.seq != ss.timerSeq[te.kind] {
		return // canceled or superseded
	}
	switch te.kind {
	case timerAutoAnswer:
		o.fireAutoAnswer(ss)
	case timerDTMFPause:
		o.fireDTMFPause(ss)
	case timerFlightGrace:
		o.fireFlightGrace(ss)
	}
}

func (o *Orchestrator) respond(req ipc.Request, resp ipc.Response) {
	if err := o.surface.Respond(req, resp); err != nil {
		o.log.IPC.Errorf("responding to %s: %v", req.Method, err)
	}
}

// respondInflight answers the IPC request waiting on a modem action,
// if any.
func (o *Orchestrator) respondInflight(ss *slotState, action string, resp ipc.Response) {
	req, ok := ss.inflight[action]
	if !ok {
		return
	}
	delete(ss.inflight, action)
	o.respond(req, resp)
}

// publishCallEvent broadcasts a call change with fresh snapshots of
// the named legs.
func (o *Orchestrator) publishCallEvent(ss *slotState, kind string, callID int, endCause string) {
	p := ipc.CallEventPayload{
		Kind:     kind,
		CallID:   callID,
		Slot:     ss.slot,
		EndCause: endCause,
		Incoming: ss.snapshot(ss.incoming),
		Active:   ss.snapshot(ss.active),
		Held:     ss.snapshot(ss.held),
	}
	if err := o.surface.PublishCallEvent(p); err != nil {
		o.log.IPC.Errorf("publishing call event: %v", err)
	}
}

// bindSlot gives the slot dialing/command focus. Switching focus is
// only legal when the previously bound slot holds no legs.
func (o *Orchestrator) bindSlot(slot int) bool {
	if o.activeSlot == slot {
		return true
	}
	if o.activeSlot != slotUnbound && o.slots[o.activeSlot].reg.Count() > 0 {
		return false
	}
	o.activeSlot = slot
	return true
}

// releaseSlotIfIdle drops the focus once the bound slot is empty.
func (o *Orchestrator) releaseSlotIfIdle(ss *slotState) {
	if o.activeSlot == ss.slot && ss.reg.Count() == 0 {
		o.activeSlot = slotUnbound
	}
}

// resolver builds the slot resolver over current slot status.
func (o *Orchestrator) resolver() *simsel.Resolver {
	statuses := make([]*simsel.SlotStatus, len(o.slots))
	for i, ss := range o.slots {
		statuses[i] = ss.status
	}
	return &simsel.Resolver{
		Slots:     statuses,
		CallCount: func(slot int) int { return o.slots[slot].reg.Count() },
	}
}

// ensureAudioSession opens the call audio session on first use.
func (o *Orchestrator) ensureAudioSession() {
	if o.audioSession != "" {
		return
	}
	id, err := o.audio.CreateSession()
	if err != nil {
		o.log.Core.Errorf("creating audio session: %v", err)
		return
	}
	o.audioSession = id
	o.publishAudio(true)
}

// teardownAudioSession closes the session after the last call ends.
func (o *Orchestrator) teardownAudioSession() {
	if o.audioSession == "" {
		return
	}
	if err := o.audio.DestroySession(o.audioSession); err != nil {
		o.log.Core.Errorf("destroying audio session: %v", err)
	}
	o.audioSession = ""
	o.publishAudio(false)
}

func (o *Orchestrator) publishAudio(active bool) {
	p := ipc.AudioPayload{SessionID: o.audioSession, Active: active}
	if active {
		if r, err := o.audio.CurrentRoute(o.audioSession); err == nil {
			p.Route = string(r)
		}
	}
	if err := o.surface.PublishAudio(p); err != nil {
		o.log.IPC.Errorf("publishing audio state: %v", err)
	}
}

// resetMute clears the uplink mute after the last call ends.
func (o *Orchestrator) resetMute() {
	if !o.muted {
		return
	}
	o.muted = false
	if err := o.mdm.SetMute(false); err != nil {
		o.log.Modem.Errorf("resetting mute: %v", err)
	}
	if err := o.surface.PublishMute(ipc.MutePayload{Muted: false}); err != nil {
		o.log.IPC.Errorf("publishing mute state: %v", err)
	}
}

// lookupContact resolves the caller's details; misses are fine.
func (o *Orchestrator) lookupContact(number string) (contacts.Contact, bool) {
	c, err := o.store.Lookup(context.Background(), number)
	if err != nil {
		return contacts.Contact{}, false
	}
	return c, true
}

// addLog appends a call-log record; log failures never affect call
// handling.
func (o *Orchestrator) addLog(ss *slotState, leg *call.Leg, kind call.LogKind) {
	entry := contacts.LogEntry{
		Kind:      kind.String(),
		Slot:      ss.slot,
		Number:    leg.Number,
		Name:      leg.CallingName,
		StartTime: leg.StartTime,
		EndTime:   time.Now(),
		EndCause:  leg.EndCause.Name(),
	}
	if err := o.store.AddLog(context.Background(), entry); err != nil {
		o.log.Core.Warnf("appending call log: %v", err)
	}
}

package session

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/callmgrd/internal/collab"
	"github.com/sweeney/callmgrd/internal/config"
	"github.com/sweeney/callmgrd/internal/contacts"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/logging"
	"github.com/sweeney/callmgrd/internal/modem"
)

type armedTimer struct {
	d    time.Duration
	fire func()
}

// fixture wires the orchestrator to recording mocks and captures
// armed timers so tests control time explicitly.
type fixture struct {
	o     *Orchestrator
	mdm   *modem.Mock
	sfc   *ipc.Mock
	aud   *collab.MockAudio
	rng   *collab.MockRinger
	hfp   *collab.MockHandsFree
	rec   *collab.MockRecorder
	store *contacts.MemoryStore

	timers []armedTimer
}

func newFixture(t *testing.T, mut ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := &config.Config{
		Telephony: config.TelephonyConfig{
			Slots:             2,
			MaxConferenceSize: 5,
			DTMFPauseMS:       3000,
			FlightModeGraceMS: 10000,
		},
	}
	for _, m := range mut {
		m(cfg)
	}

	f := &fixture{
		mdm:   modem.NewMock(),
		sfc:   ipc.NewMock(),
		aud:   collab.NewMockAudio(),
		rng:   collab.NewMockRinger(),
		hfp:   collab.NewMockHandsFree(),
		rec:   collab.NewMockRecorder(),
		store: contacts.NewMemoryStore(),
	}
	f.o = New(Deps{
		Config:    cfg,
		Log:       logging.Discard(),
		Modem:     f.mdm,
		Surface:   f.sfc,
		Audio:     f.aud,
		Ringer:    f.rng,
		HandsFree: f.hfp,
		Recorder:  f.rec,
		Store:     f.store,
	})
	f.o.after = func(d time.Duration, fire func()) {
		f.timers = append(f.timers, armedTimer{d: d, fire: fire})
	}
	return f
}

func (f *fixture) push(kvs ...string) {
	f.o.HandleModemEvent(modem.NewEvent(kvs...))
}

// ready drives a slot to fully usable through the status events.
func (f *fixture) ready(slot int) {
	s := strconv.Itoa(slot)
	f.push("Event", "SimStatus", "Slot", s, "Present", "1", "Initialized", "1",
		"CardType", "usim", "MCC", "450", "MNC", "05", "EccList", "112:7")
	f.push("Event", "NetworkStatus", "Slot", s, "Status", "3g")
	f.push("Event", "PhoneStatus", "Slot", s, "Initialized", "1", "FlightMode", "0")
}

func (f *fixture) callStatus(slot, id int, status string, extra ...string) {
	kvs := append([]string{
		"Event", "CallStatus",
		"Slot", strconv.Itoa(slot),
		"CallID", strconv.Itoa(id),
		"Status", status,
	}, extra...)
	f.push(kvs...)
}

func (f *fixture) response(slot int, action, result string) {
	f.push("Response", result, "Action", action, "Slot", strconv.Itoa(slot))
}

// fireLastTimer runs the most recently armed timer through the loop.
func (f *fixture) fireLastTimer(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, f.timers, "no timer armed")
	tm := f.timers[len(f.timers)-1]
	f.timers = f.timers[:len(f.timers)-1]
	tm.fire()
	select {
	case te := <-f.o.timerCh:
		f.o.handleTimer(te)
	default:
		t.Fatal("timer fire did not enqueue an event")
	}
}

func (f *fixture) lastCallEvent(t *testing.T) ipc.CallEventPayload {
	t.Helper()
	evts := f.sfc.EventsOn("event/call")
	require.NotEmpty(t, evts, "no call events published")
	return evts[len(evts)-1].(ipc.CallEventPayload)
}

// establishActiveHeld builds the classic two-call shape on slot 0:
// leg 1 held, leg 2 active.
func (f *fixture) establishActiveHeld(t *testing.T) {
	t.Helper()
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.response(0, "Dial", "Success")
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodHold, RequestID: "h1", Slot: 0})
	f.callStatus(0, 1, "held")
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d2", Slot: 0, Number: "222"})
	f.response(0, "Dial", "Success")
	f.callStatus(0, 2, "dialing")
	f.callStatus(0, 2, "active")

	ss := f.o.slots[0]
	require.NotNil(t, ss.active, "active ref")
	require.NotNil(t, ss.held, "held ref")
	require.Equal(t, 2, ss.active.ID)
	require.Equal(t, 1, ss.held.ID)
}

// establishLoneHeld leaves a single held call (leg 1) on slot 0.
func (f *fixture) establishLoneHeld(t *testing.T) {
	t.Helper()
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.response(0, "Dial", "Success")
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodHold, RequestID: "h1", Slot: 0})
	f.callStatus(0, 1, "held")

	require.Nil(t, f.o.slots[0].active)
	require.NotNil(t, f.o.slots[0].held)
}

func TestDialLifecycle(t *testing.T) {
	f := newFixture(t)
	f.ready(0)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "r1", Slot: 0, Number: "5551234"})

	last := f.mdm.Last()
	assert.Equal(t, "Dial", last.Action)
	assert.Equal(t, "5551234/voice", last.Arg)

	statuses := f.sfc.EventsOn("event/dial-status")
	require.Len(t, statuses, 1)
	assert.Equal(t, "dialing", statuses[0].(ipc.DialStatusPayload).Status)

	f.response(0, "Dial", "Success")
	assert.Equal(t, ipc.CodeOK, f.sfc.LastResponse().Code)

	f.callStatus(0, 7, "dialing")
	f.callStatus(0, 7, "alerting")
	assert.Equal(t, "alerting", f.lastCallEvent(t).Kind)

	f.callStatus(0, 7, "active")
	ev := f.lastCallEvent(t)
	assert.Equal(t, "connected", ev.Kind)
	require.NotNil(t, ev.Active)
	assert.Equal(t, 7, ev.Active.CallID)
	assert.Equal(t, 1, f.aud.Live(), "audio session should be open")
	assert.Contains(t, f.rng.Effects, collab.EffectConnect)

	f.callStatus(0, 7, "idle", "EndCause", "16")
	ev = f.lastCallEvent(t)
	assert.Equal(t, "ended", ev.Kind)
	assert.Equal(t, "normal_clearing", ev.EndCause)
	assert.Equal(t, 0, f.aud.Live(), "audio session should be closed")

	require.Len(t, f.store.Log, 1)
	assert.Equal(t, "outgoing", f.store.Log[0].Kind)
}

func TestDialRejectsEmptyNumber(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "r1", Slot: 0})
	assert.Equal(t, ipc.CodeValidation, f.sfc.LastResponse().Code)
	assert.Zero(t, f.mdm.CountAction("Dial"))
}

func TestDialAmbiguousWithTwoUsableSims(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.ready(1)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "r1", Slot: 0, Number: "5551234"})
	assert.Equal(t, ipc.CodeAmbiguousSlot, f.sfc.LastResponse().Code)

	statuses := f.sfc.EventsOn("event/dial-status")
	require.Len(t, statuses, 1)
	assert.Equal(t, "failed", statuses[0].(ipc.DialStatusPayload).Status)
}

func TestDuplicatePendingDialRejected(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "r1", Slot: 0, Number: "111"})
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "r2", Slot: 0, Number: "222"})
	assert.Equal(t, ipc.CodeStateConflict, f.sfc.LastResponse().Code)
	assert.Equal(t, 1, f.mdm.CountAction("Dial"))
}

func TestEmergencyDialSelectsLiveSlot(t *testing.T) {
	f := newFixture(t)
	// Slot 0 is dead, slot 1 is fully up.
	f.push("Event", "SimStatus", "Slot", "0", "Present", "0")
	f.ready(1)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "r1", Slot: 0, Number: "911"})

	last := f.mdm.Last()
	require.Equal(t, "Dial", last.Action)
	assert.Equal(t, 1, last.Slot)
	assert.Equal(t, "911/emergency", last.Arg)
}

func TestSimEccListClassifiesEmergency(t *testing.T) {
	f := newFixture(t)
	f.push("Event", "SimStatus", "Slot", "0", "Present", "1", "Initialized", "1",
		"CardType", "usim", "EccList", "08:0,112:7")
	f.push("Event", "NetworkStatus", "Slot", "0", "Status", "3g")
	f.push("Event", "PhoneStatus", "Slot", "0", "Initialized", "1", "FlightMode", "0")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "r1", Slot: 0, Number: "08"})

	last := f.mdm.Last()
	require.Equal(t, "Dial", last.Action)
	assert.Equal(t, "08/emergency", last.Arg)
}

func TestBlockedIncomingAutoRejected(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.store.Blocked["6665554"] = true

	f.callStatus(0, 3, "incoming", "Number", "6665554")

	last := f.mdm.Last()
	assert.Equal(t, "End", last.Action)
	assert.Equal(t, 3, last.CallID)
	assert.False(t, f.rng.Alerting, "blocked call must not ring")
	assert.Equal(t, "rejected", f.lastCallEvent(t).Kind)

	f.callStatus(0, 3, "idle", "EndCause", "16")
	require.Len(t, f.store.Log, 1)
	assert.Equal(t, "blocked", f.store.Log[0].Kind)
}

func TestIncomingRingsAndAnswers(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.store.Contacts["5550001"] = contacts.Contact{Number: "5550001", Name: "Alice"}

	f.callStatus(0, 4, "incoming", "Number", "5550001")
	assert.True(t, f.rng.Alerting)
	ev := f.lastCallEvent(t)
	assert.Equal(t, "incoming", ev.Kind)
	require.NotNil(t, ev.Incoming)
	assert.Equal(t, "Alice", ev.Incoming.Name)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodAnswer, RequestID: "a1", Slot: 0})
	assert.Equal(t, "Answer", f.mdm.Last().Action)
	assert.False(t, f.rng.Alerting, "ringing stops on answer")

	f.callStatus(0, 4, "active")
	assert.Equal(t, "connected", f.lastCallEvent(t).Kind)
	assert.Equal(t, 1, f.aud.Live())

	f.callStatus(0, 4, "idle", "EndCause", "16")
	require.Len(t, f.store.Log, 1)
	assert.Equal(t, "answered", f.store.Log[0].Kind)
}

func TestUnansweredIncomingLogsMissed(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.callStatus(0, 4, "incoming", "Number", "5550001")
	f.callStatus(0, 4, "idle", "EndCause", "16")

	assert.False(t, f.rng.Alerting)
	require.Len(t, f.store.Log, 1)
	assert.Equal(t, "missed", f.store.Log[0].Kind)
}

func TestSwapCompletesOnBothConfirmations(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)
	f.sfc.Reset()

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSwap, RequestID: "s1", Slot: 0})
	assert.Equal(t, "Swap", f.mdm.Last().Action)
	assert.Empty(t, f.sfc.Responses(), "swap must not complete before confirmations")

	// Confirmations arrive held-first here; either order must work.
	f.callStatus(0, 2, "held")
	assert.Empty(t, f.sfc.EventsOn("event/call"), "half-confirmed swap stays quiet")

	f.callStatus(0, 1, "active")
	assert.Equal(t, ipc.CodeOK, f.sfc.LastResponse().Code)

	evts := f.sfc.EventsOn("event/call")
	require.Len(t, evts, 1, "one event for the whole swap")
	ev := evts[0].(ipc.CallEventPayload)
	assert.Equal(t, "swap", ev.Kind)
	require.NotNil(t, ev.Active)
	require.NotNil(t, ev.Held)
	assert.Equal(t, 1, ev.Active.CallID)
	assert.Equal(t, 2, ev.Held.CallID)
}

func TestSecondSwapWhilePendingRejected(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSwap, RequestID: "s1", Slot: 0})
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSwap, RequestID: "s2", Slot: 0})
	assert.Equal(t, ipc.CodeAlreadyPending, f.sfc.LastResponse().Code)
	assert.Equal(t, 1, f.mdm.CountAction("Swap"))
}

func TestShortCodeTwoSwaps(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "c1", Slot: 0, Number: "2"})
	assert.Equal(t, "Swap", f.mdm.Last().Action)
}

func TestEndingActiveAutoRetrievesHeld(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodEnd, RequestID: "e1", Slot: 0, CallID: 2})
	assert.Equal(t, "End", f.mdm.Last().Action)

	f.callStatus(0, 2, "idle", "EndCause", "16")
	last := f.mdm.Last()
	require.Equal(t, "Retrieve", last.Action, "held leg comes back automatically")
	assert.Equal(t, 1, last.CallID)

	f.callStatus(0, 1, "active")
	assert.Equal(t, "retrieve", f.lastCallEvent(t).Kind)
	require.NotNil(t, f.o.slots[0].active)
	assert.Equal(t, 1, f.o.slots[0].active.ID)
}

func TestReleaseActiveAndAcceptIsTwoPhase(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")
	f.callStatus(0, 2, "waiting", "Number", "5550002")

	f.o.HandleRequest(ipc.Request{
		Method: ipc.MethodAnswer, RequestID: "a1", Slot: 0,
		AnswerKind: "release-active-and-accept",
	})
	last := f.mdm.Last()
	require.Equal(t, "End", last.Action, "release goes first")
	assert.Equal(t, 1, last.CallID)
	assert.Zero(t, f.mdm.CountAction("Answer"), "accept waits for the release")

	f.callStatus(0, 1, "idle", "EndCause", "16")
	assert.Equal(t, "Answer", f.mdm.Last().Action, "accept follows the confirmed release")

	f.callStatus(0, 2, "active")
	require.NotNil(t, f.o.slots[0].active)
	assert.Equal(t, 2, f.o.slots[0].active.ID)
}

func TestLastWatchedClientGoneEndsAllCalls(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.MQTT.WatchedClients = []string{"ui"}
	})
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.o.HandleClientEvent(ipc.ClientEvent{Name: "ui", Present: true})
	assert.Zero(t, f.mdm.CountAction("EndAll"))

	f.o.HandleClientEvent(ipc.ClientEvent{Name: "ui", Present: false})
	assert.Equal(t, 1, f.mdm.CountAction("EndAll"))
}

func TestFlightModeDialDeferredUntilService(t *testing.T) {
	f := newFixture(t)
	f.push("Event", "SimStatus", "Slot", "0", "Present", "1", "Initialized", "1", "CardType", "usim")
	f.push("Event", "PhoneStatus", "Slot", "0", "Initialized", "1", "FlightMode", "1")

	f.o.HandleRequest(ipc.Request{
		Method: ipc.MethodDial, RequestID: "d1", Slot: 0,
		Number: "5551234", FlightModeOverride: true,
	})
	assert.Equal(t, "SetFlightMode", f.mdm.Last().Action)
	assert.Zero(t, f.mdm.CountAction("Dial"))

	statuses := f.sfc.EventsOn("event/dial-status")
	require.Len(t, statuses, 1)
	assert.Equal(t, "waiting-for-radio", statuses[0].(ipc.DialStatusPayload).Status)

	// Radio comes back and registers; the parked dial launches.
	f.push("Event", "PhoneStatus", "Slot", "0", "Initialized", "1", "FlightMode", "0")
	assert.Zero(t, f.mdm.CountAction("Dial"), "dial waits for registration")
	f.push("Event", "NetworkStatus", "Slot", "0", "Status", "3g")
	assert.Equal(t, 1, f.mdm.CountAction("Dial"))
}

func TestFlightModeGraceExpiry(t *testing.T) {
	f := newFixture(t)
	f.push("Event", "SimStatus", "Slot", "0", "Present", "1", "Initialized", "1", "CardType", "usim")
	f.push("Event", "PhoneStatus", "Slot", "0", "Initialized", "1", "FlightMode", "1")

	f.o.HandleRequest(ipc.Request{
		Method: ipc.MethodDial, RequestID: "d1", Slot: 0,
		Number: "5551234", FlightModeOverride: true,
	})
	f.push("Event", "PhoneStatus", "Slot", "0", "Initialized", "1", "FlightMode", "0")

	f.fireLastTimer(t)
	assert.Equal(t, ipc.CodeNoService, f.sfc.LastResponse().Code)
	assert.Zero(t, f.mdm.CountAction("Dial"))
}

func TestNonEmergencyDialBlockedByFlightMode(t *testing.T) {
	f := newFixture(t)
	f.push("Event", "SimStatus", "Slot", "0", "Present", "1", "Initialized", "1", "CardType", "usim")
	f.push("Event", "PhoneStatus", "Slot", "0", "Initialized", "1", "FlightMode", "1")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "5551234"})
	assert.Equal(t, ipc.CodeResourceUnavailable, f.sfc.LastResponse().Code)
	assert.Zero(t, f.mdm.CountAction("SetFlightMode"))
}

func TestPostDialSuffixStoredThenDelivered(t *testing.T) {
	f := newFixture(t)
	f.ready(0)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "5551234P12"})
	assert.Equal(t, "5551234/voice", f.mdm.Last().Arg, "suffix split off before dialing")

	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")
	dtmf := f.sfc.EventsOn("event/dtmf")
	require.Len(t, dtmf, 1)
	assert.Equal(t, "P12", dtmf[0].(ipc.DTMFPayload).Remaining)

	// Deliver the stored suffix: the pause arms a timer, each digit
	// waits for its ack.
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSendDTMF, RequestID: "s1", Slot: 0})
	assert.Equal(t, ipc.CodeOK, f.sfc.LastResponse().Code)
	assert.Zero(t, f.mdm.CountAction("StartDTMF"), "pause precedes the first digit")

	f.fireLastTimer(t)
	last := f.mdm.Last()
	require.Equal(t, "StartDTMF", last.Action)
	assert.Equal(t, "1", last.Arg)

	f.push("Event", "DtmfAck", "Slot", "0", "CallID", "1", "Digit", "1")
	last = f.mdm.Last()
	require.Equal(t, "StartDTMF", last.Action)
	assert.Equal(t, "2", last.Arg)

	f.push("Event", "DtmfAck", "Slot", "0", "CallID", "1", "Digit", "2")
	assert.Equal(t, 2, f.mdm.CountAction("StartDTMF"))
	assert.False(t, f.o.slots[0].dtmf.Active())
}

func TestInCallDialWithSuffixBecomesDTMF(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d2", Slot: 0, Number: "123P45"})
	assert.Equal(t, 1, f.mdm.CountAction("Dial"), "no second call is placed")
	burst := f.mdm.Last()
	// The burst goes out first, then the pause timer runs.
	foundBurst := false
	for _, c := range f.mdm.Commands() {
		if c.Action == "BurstDTMF" && c.Arg == "123" {
			foundBurst = true
		}
	}
	assert.True(t, foundBurst, "plain head sent as burst, got last %+v", burst)
}

func TestWaitingCallRejectedInLimitedMode(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Telephony.LimitedMode = true
	})
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.callStatus(0, 2, "waiting", "Number", "5550002")
	last := f.mdm.Last()
	require.Equal(t, "End", last.Action)
	assert.Equal(t, 2, last.CallID)

	f.callStatus(0, 2, "idle", "EndCause", "16")
	require.Len(t, f.store.Log, 1)
	assert.Equal(t, "rejected", f.store.Log[0].Kind)
}

func TestAutoAnswerFiresWithAccessory(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Telephony.AutoAnswer.AccessoryMS = 4000
	})
	f.ready(0)
	f.hfp.Attached = true

	f.callStatus(0, 5, "incoming", "Number", "5550001")
	require.NotEmpty(t, f.timers, "auto-answer timer armed")
	assert.Equal(t, 4*time.Second, f.timers[len(f.timers)-1].d)

	f.fireLastTimer(t)
	last := f.mdm.Last()
	require.Equal(t, "Answer", last.Action)
	assert.Equal(t, "accept", last.Arg)
}

func TestAutoAnswerCanceledByUserAnswer(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Telephony.AutoAnswer.AccessoryMS = 4000
	})
	f.ready(0)
	f.hfp.Attached = true

	f.callStatus(0, 5, "incoming", "Number", "5550001")
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodAnswer, RequestID: "a1", Slot: 0})
	answered := f.mdm.CountAction("Answer")

	f.fireLastTimer(t)
	assert.Equal(t, answered, f.mdm.CountAction("Answer"), "stale auto-answer must not fire")
}

func TestJoinBuildsConference(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodJoin, RequestID: "j1", Slot: 0})
	assert.Equal(t, "Join", f.mdm.Last().Action)

	f.callStatus(0, 1, "active", "Conference", "1")
	f.callStatus(0, 2, "active", "Conference", "1")
	assert.Equal(t, ipc.CodeOK, f.sfc.LastResponse().Code)
	assert.Equal(t, 2, f.o.slots[0].reg.CountConference())
}

func TestHoldRejectedWithoutActiveCall(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodHold, RequestID: "h1", Slot: 0})
	assert.Equal(t, ipc.CodeStateConflict, f.sfc.LastResponse().Code)
}

func TestHardwareRejectedHoldAbortsTracker(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodHold, RequestID: "h1", Slot: 0})
	f.response(0, "Hold", "Error")

	assert.Equal(t, ipc.CodeHardwareRejected, f.sfc.LastResponse().Code)
	assert.False(t, f.o.slots[0].tracker.Active())
	// The next hold attempt is not blocked by the dead transition.
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodHold, RequestID: "h2", Slot: 0})
	assert.Equal(t, 2, f.mdm.CountAction("Hold"))
}

func TestCallStatusQueryReturnsNamedRefs(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodCallStatus, RequestID: "q1", Slot: 0})
	resp := f.sfc.LastResponse()
	require.Equal(t, ipc.CodeOK, resp.Code)
	require.Len(t, resp.Calls, 2)
	assert.Equal(t, "active", resp.Calls[0].State)
	assert.Equal(t, "held", resp.Calls[1].State)
}

func TestBusyCausePlaysSignalTone(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "alerting")
	f.callStatus(0, 1, "idle", "EndCause", "17")

	assert.Contains(t, f.rng.Signals, "user_busy")
	assert.NotContains(t, f.rng.Effects, collab.EffectCallEnd)
}

func TestMuteResetAfterLastCall(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSetMute, RequestID: "m1", Slot: 0, Mute: true})
	assert.True(t, f.o.muted)

	f.callStatus(0, 1, "idle", "EndCause", "16")
	assert.False(t, f.o.muted)
	last := f.mdm.Commands()
	require.NotEmpty(t, last)
	assert.Equal(t, "0", last[len(last)-1].Arg, "unmute pushed to the modem")
}

func TestRingingResumesAfterActiveEnds(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")
	f.callStatus(0, 2, "waiting", "Number", "5550002")
	assert.False(t, f.rng.Alerting, "waiting call uses the tone, not the ringtone")

	f.callStatus(0, 1, "idle", "EndCause", "16")
	assert.True(t, f.rng.Alerting, "survivor rings once the active call is gone")
	require.NotNil(t, f.o.slots[0].incoming)
	assert.Equal(t, "incoming", f.o.slots[0].incoming.State.String())
}

func TestDialOnSecondSlotBlockedWhileFirstBusy(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.ready(1)
	f.o.slots[0].status.PreferredVoice = true
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.callStatus(1, 9, "incoming", "Number", "5550009")
	last := f.mdm.Last()
	require.Equal(t, "End", last.Action)
	assert.Equal(t, 1, last.Slot, "call on the unbound slot is declined")
}

func TestDtmfCancel(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSendDTMF, RequestID: "s1", Slot: 0, Digits: "1W23"})
	f.push("Event", "DtmfAck", "Slot", "0", "CallID", "1", "Digit", "1")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodCancelDTMF, RequestID: "c1", Slot: 0})
	assert.False(t, f.o.slots[0].dtmf.Active())
	assert.Equal(t, 1, f.mdm.CountAction("StartDTMF"), "nothing sent after cancel")
}

func TestDtmfWaitRequiresContinue(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSendDTMF, RequestID: "s1", Slot: 0, Digits: "1W2"})
	f.push("Event", "DtmfAck", "Slot", "0", "CallID", "1", "Digit", "1")
	assert.Equal(t, 1, f.mdm.CountAction("StartDTMF"), "delivery parked at the wait")

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodContinueDTMF, RequestID: "c1", Slot: 0})
	last := f.mdm.Last()
	require.Equal(t, "StartDTMF", last.Action)
	assert.Equal(t, "2", last.Arg)
}

func TestRejectedJoinLeavesMembershipUntouched(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSwap, RequestID: "s1", Slot: 0})
	require.True(t, f.o.slots[0].tracker.Active())

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodJoin, RequestID: "j1", Slot: 0})
	assert.Equal(t, ipc.CodeAlreadyPending, f.sfc.LastResponse().Code)
	assert.Zero(t, f.o.slots[0].reg.CountConference(), "rejected join must not flag members")
	assert.False(t, f.o.slots[0].active.Conference)
	assert.False(t, f.o.slots[0].held.Conference)
}

func TestRejectedSplitKeepsMembership(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodJoin, RequestID: "j1", Slot: 0})
	f.callStatus(0, 1, "active", "Conference", "1")
	f.callStatus(0, 2, "active", "Conference", "1")
	require.Equal(t, 2, f.o.slots[0].reg.CountConference())

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodHold, RequestID: "h1", Slot: 0})
	require.True(t, f.o.slots[0].tracker.Active())

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodSplit, RequestID: "sp1", Slot: 0, CallID: 1})
	assert.Equal(t, ipc.CodeAlreadyPending, f.sfc.LastResponse().Code)
	leg, err := f.o.slots[0].reg.FindByID(1)
	require.NoError(t, err)
	assert.True(t, leg.Conference, "rejected split must keep the member flagged")
}

func TestHardwareRejectedJoinLeavesMembershipUntouched(t *testing.T) {
	f := newFixture(t)
	f.establishActiveHeld(t)
	f.mdm.FailNext("Join", errors.New("transport down"))

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodJoin, RequestID: "j1", Slot: 0})
	assert.Equal(t, ipc.CodeHardwareRejected, f.sfc.LastResponse().Code)
	assert.Zero(t, f.o.slots[0].reg.CountConference())
	assert.False(t, f.o.slots[0].tracker.Active())
}

func TestShortCodeRetrievesLoneHeldCall(t *testing.T) {
	f := newFixture(t)
	f.establishLoneHeld(t)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d2", Slot: 0, Number: "2"})
	assert.Equal(t, 1, f.mdm.CountAction("Retrieve"), "code 2 retrieves the held call")
	assert.Equal(t, 1, f.mdm.CountAction("Dial"), "no literal call to the code digits")

	f.callStatus(0, 1, "active")
	assert.Equal(t, ipc.CodeOK, f.sfc.LastResponse().Code)
	assert.Equal(t, "d2", f.sfc.LastResponse().RequestID)
}

func TestShortCodeReleasesLoneHeldCall(t *testing.T) {
	f := newFixture(t)
	f.establishLoneHeld(t)

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d2", Slot: 0, Number: "0"})
	last := f.mdm.Last()
	assert.Equal(t, "End", last.Action)
	assert.Equal(t, 1, last.CallID)
	assert.Equal(t, 1, f.mdm.CountAction("Dial"))
}

func TestFlightModeDisableRetriedOnceThenFails(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.push("Event", "PhoneStatus", "Slot", "0", "Initialized", "1", "FlightMode", "1")
	f.mdm.FailNext("SetFlightMode", errors.New("transport down"))

	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0,
		Number: "5551234", FlightModeOverride: true})

	assert.Equal(t, ipc.CodeResourceUnavailable, f.sfc.LastResponse().Code)
	assert.Nil(t, f.o.slots[0].deferred, "exhausted retry must drop the parked dial")
	assert.Zero(t, f.mdm.CountAction("Dial"))
}

func TestIncomingOnSecondSlotDeclinedWhileFirstBusy(t *testing.T) {
	f := newFixture(t)
	f.ready(0)
	f.ready(1)
	f.o.HandleRequest(ipc.Request{Method: ipc.MethodDial, RequestID: "d1", Slot: 0, Number: "111"})
	f.callStatus(0, 1, "dialing")
	f.callStatus(0, 1, "active")

	f.callStatus(1, 9, "incoming", "Number", "333")

	last := f.mdm.Last()
	assert.Equal(t, "End", last.Action)
	assert.Equal(t, 1, last.Slot)
	assert.Equal(t, 9, last.CallID)
	assert.Zero(t, f.o.slots[1].reg.Count(), "leg on the busy-locked slot is never admitted")
}

func TestSimStatusKeepsPreferredVoiceWhenOmitted(t *testing.T) {
	f := newFixture(t)
	f.push("Event", "SimStatus", "Slot", "0", "Present", "1", "Initialized", "1", "PreferredVoice", "1")
	require.True(t, f.o.slots[0].status.PreferredVoice)

	f.push("Event", "SimStatus", "Slot", "0", "Present", "1", "Initialized", "1")
	assert.True(t, f.o.slots[0].status.PreferredVoice, "omitted header must not clear the preference")
}

package call

import "testing"

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateDialing, StateAlerting, true},
		{StateDialing, StateActive, true},
		{StateDialing, StateIdle, true},
		{StateDialing, StateHeld, false},
		{StateAlerting, StateActive, true},
		{StateAlerting, StateDialing, false},
		{StateActive, StateHeld, true},
		{StateHeld, StateActive, true},
		{StateHeld, StateIncoming, false},
		{StateIncoming, StateActive, true},
		{StateIncoming, StateWaiting, false},
		{StateWaiting, StateIncoming, true},
		{StateWaiting, StateActive, true},
		{StateIdle, StateDialing, false},
		{StateIdle, StateActive, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestStateStringRoundTrip(t *testing.T) {
	for _, s := range []State{StateIdle, StateDialing, StateAlerting, StateActive, StateHeld, StateIncoming, StateWaiting} {
		got, ok := ParseState(s.String())
		if !ok || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if _, ok := ParseState("bogus"); ok {
		t.Error("expected ParseState to reject unknown names")
	}
}

func TestClassifyEnd(t *testing.T) {
	tests := []struct {
		name        string
		direction   Direction
		cause       EndCause
		wasAnswered bool
		want        LogKind
	}{
		{"answered incoming", MobileTerminated, CauseNormal, true, LogAnswered},
		{"missed incoming", MobileTerminated, CauseNormal, false, LogMissed},
		{"declined incoming", MobileTerminated, CauseRejectedByUser, false, LogRejected},
		{"blocked incoming", MobileTerminated, CauseBlockedByUser, false, LogBlocked},
		{"outgoing", MobileOriginated, CauseNormal, true, LogOutgoing},
		{"outgoing unanswered", MobileOriginated, CauseNoAnswer, false, LogOutgoing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leg := &Leg{Direction: tt.direction, EndCause: tt.cause}
			if got := ClassifyEnd(leg, tt.wasAnswered); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestEndCauseNames(t *testing.T) {
	if CauseNormal.Name() != "normal_clearing" {
		t.Errorf("unexpected name: %s", CauseNormal.Name())
	}
	if EndCause(255).Name() != "unknown" {
		t.Errorf("expected unknown for unmapped cause, got %s", EndCause(255).Name())
	}
}

// Package pending tracks in-flight multi-leg call transitions.
//
// A single modem command such as swap produces independent confirmation
// events for every leg it touches, and those events can arrive in any
// order, interleaved with unrelated traffic. The tracker is the one
// place that knows when the whole operation is done rather than when
// one leg changed.
package pending

import "errors"

// Kind identifies the multi-leg operation being tracked.
type Kind int

const (
	KindHoldActive Kind = iota
	KindRetrieveHeld
	KindJoin
	KindSplit
	KindSwap
)

// String returns the wire name of the operation kind.
func (k Kind) String() string {
	switch k {
	case KindHoldActive:
		return "hold"
	case KindRetrieveHeld:
		return "retrieve"
	case KindJoin:
		return "join"
	case KindSplit:
		return "split"
	case KindSwap:
		return "swap"
	default:
		return "unknown"
	}
}

// ErrAlreadyPending is returned by Begin while a transition is still
// outstanding on the slot; a second concurrent transition is rejected.
var ErrAlreadyPending = errors.New("pending: a transition is already in flight")

// Result reports the effect of a confirmation.
type Result int

const (
	// NotTracked means the confirmed leg was not part of the pending
	// operation; the event belongs to someone else.
	NotTracked Result = iota
	// StillPending means more legs have yet to confirm.
	StillPending
	// Completed means the last outstanding leg confirmed and the
	// completion callback has fired.
	Completed
)

// Tracker holds at most one in-flight transition for a slot. It is
// owned by the orchestrator's event loop and is not safe for
// concurrent use.
type Tracker struct {
	kind        Kind
	outstanding map[int]struct{}
	onComplete  func(Kind)
	active      bool
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin starts tracking a transition over the given leg ids. The
// onComplete callback fires exactly once, when every id has confirmed.
func (t *Tracker) Begin(kind Kind, ids []int, onComplete func(Kind)) error {
	if t.active {
		return ErrAlreadyPending
	}
	t.kind = kind
	t.outstanding = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		t.outstanding[id] = struct{}{}
	}
	t.onComplete = onComplete
	t.active = true
	return nil
}

// Confirm records that a leg reached its commanded state. Ids that are
// not part of the tracked set are reported as NotTracked so unrelated
// events pass through untouched.
func (t *Tracker) Confirm(id int) Result {
	if !t.active {
		return NotTracked
	}
	if _, ok := t.outstanding[id]; !ok {
		return NotTracked
	}
	delete(t.outstanding, id)
	if len(t.outstanding) > 0 {
		return StillPending
	}
	kind := t.kind
	cb := t.onComplete
	t.reset()
	if cb != nil {
		cb(kind)
	}
	return Completed
}

// Abort clears the tracker without waiting for confirmations. Used
// when the modem rejects the command outright; the completion callback
// does not fire.
func (t *Tracker) Abort() {
	t.reset()
}

// Tracks reports whether the leg is part of the in-flight transition.
func (t *Tracker) Tracks(id int) bool {
	if !t.active {
		return false
	}
	_, ok := t.outstanding[id]
	return ok
}

// Active reports whether a transition is in flight.
func (t *Tracker) Active() bool {
	return t.active
}

// Kind returns the kind of the in-flight transition. Only meaningful
// while Active.
func (t *Tracker) Kind() Kind {
	return t.kind
}

func (t *Tracker) reset() {
	t.kind = 0
	t.outstanding = nil
	t.onComplete = nil
	t.active = false
}

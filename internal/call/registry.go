package call

import (
	"errors"
	"fmt"
	"time"
)

// Registry errors.
var (
	// ErrNotFound is returned when a lookup misses.
	ErrNotFound = errors.New("call: leg not found")
	// ErrDuplicatePending is returned when a second unassigned-id leg
	// would be created; the first must be deleted or assigned first.
	ErrDuplicatePending = errors.New("call: an unassigned leg already exists")
	// ErrStateOccupied is returned when a transition would put two legs
	// into a single-occupancy state at once.
	ErrStateOccupied = errors.New("call: state already occupied by another leg")
	// ErrBadTransition is returned for a lifecycle transition the state
	// machine does not allow.
	ErrBadTransition = errors.New("call: illegal state transition")
)

// occupancyKey groups states that at most one leg per slot may hold
// at a time. Incoming and waiting share one bucket: a second
// mobile-terminated leg cannot ring while one is already ringing.
func occupancyKey(s State) (State, bool) {
	switch s {
	case StateDialing, StateAlerting:
		return s, true
	case StateIncoming, StateWaiting:
		return StateIncoming, true
	}
	return s, false
}

// Registry is the per-slot collection of call legs. It exclusively
// owns all Leg records; all mutation is synchronous and local with no
// I/O. It is not safe for concurrent use; all access happens on the
// orchestrator's event loop.
type Registry struct {
	legs    []*Leg // creation order
	byID    map[int]*Leg
	byState map[State]*Leg // single-occupancy states only
	pending *Leg           // the one unassigned-id leg, if any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[int]*Leg),
		byState: make(map[State]*Leg),
	}
}

// CreateLeg creates a mobile-originated leg with an unassigned modem
// handle in the dialing state. It fails with ErrDuplicatePending if an
// unassigned leg already exists, and with ErrStateOccupied if another
// leg is already dialing or alerting.
func (r *Registry) CreateLeg(t Type, d Direction, number string) (*Leg, error) {
	if r.pending != nil {
		return nil, ErrDuplicatePending
	}
	if key, single := occupancyKey(StateDialing); single {
		if other := r.byState[key]; other != nil {
			return nil, fmt.Errorf("%w: %s", ErrStateOccupied, other.Label())
		}
	}
	leg := &Leg{
		ID:        IDUnassigned,
		Type:      t,
		Direction: d,
		Number:    number,
		State:     StateDialing,
	}
	r.legs = append(r.legs, leg)
	r.pending = leg
	r.index(leg, StateDialing)
	return leg, nil
}

// AdoptLeg registers a leg the modem announced on its own, typically a
// mobile-terminated call in the incoming or waiting state. The modem
// handle is already known.
func (r *Registry) AdoptLeg(id int, t Type, d Direction, number string, s State) (*Leg, error) {
	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("%w: id %d already registered", ErrStateOccupied, id)
	}
	if key, single := occupancyKey(s); single {
		if other := r.byState[key]; other != nil {
			return nil, fmt.Errorf("%w: %s", ErrStateOccupied, other.Label())
		}
	}
	leg := &Leg{
		ID:        id,
		Type:      t,
		Direction: d,
		Number:    number,
		State:     s,
	}
	r.legs = append(r.legs, leg)
	r.byID[id] = leg
	r.index(leg, s)
	return leg, nil
}

// AssignID attaches the modem handle to the unassigned leg once the
// dial response reports it.
func (r *Registry) AssignID(id int) (*Leg, error) {
	if r.pending == nil {
		return nil, fmt.Errorf("%w: no unassigned leg", ErrNotFound)
	}
	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("%w: id %d already registered", ErrStateOccupied, id)
	}
	leg := r.pending
	leg.ID = id
	r.byID[id] = leg
	r.pending = nil
	return leg, nil
}

// FindByID returns the leg with the given modem handle.
func (r *Registry) FindByID(id int) (*Leg, error) {
	if leg, ok := r.byID[id]; ok {
		return leg, nil
	}
	return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// FindByState returns the first leg in the given state. For the
// single-occupancy states this is the only such leg; for active and
// held the registry scans in creation order.
func (r *Registry) FindByState(s State) (*Leg, error) {
	if key, single := occupancyKey(s); single {
		if leg := r.byState[key]; leg != nil && leg.State == s {
			return leg, nil
		}
		return nil, fmt.Errorf("%w: no leg in state %s", ErrNotFound, s)
	}
	for _, leg := range r.legs {
		if leg.State == s {
			return leg, nil
		}
	}
	return nil, fmt.Errorf("%w: no leg in state %s", ErrNotFound, s)
}

// FindUnassigned returns the in-flight dial leg if one exists.
func (r *Registry) FindUnassigned() (*Leg, error) {
	if r.pending != nil {
		return r.pending, nil
	}
	return nil, fmt.Errorf("%w: no unassigned leg", ErrNotFound)
}

// SetState transitions a leg, enforcing the lifecycle state machine
// and the single-occupancy invariants, and maintains the state index.
func (r *Registry) SetState(leg *Leg, next State) error {
	if leg.State == next {
		return nil
	}
	if !leg.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, leg.State, next)
	}
	if key, single := occupancyKey(next); single {
		if other := r.byState[key]; other != nil && other != leg {
			return fmt.Errorf("%w: %s", ErrStateOccupied, other.Label())
		}
	}
	r.unindex(leg)
	prev := leg.State
	leg.State = next
	r.index(leg, next)

	if next == StateActive && prev != StateHeld {
		leg.StartTime = time.Now()
	}
	if !next.IsConnected() {
		leg.Conference = false
	}
	return nil
}

// DeleteLeg removes a leg from the registry.
func (r *Registry) DeleteLeg(leg *Leg) error {
	for i, l := range r.legs {
		if l == leg {
			r.legs = append(r.legs[:i], r.legs[i+1:]...)
			r.unindex(leg)
			if leg.Assigned() {
				delete(r.byID, leg.ID)
			}
			if r.pending == leg {
				r.pending = nil
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, leg.Label())
}

// Count returns the number of legs in the registry.
func (r *Registry) Count() int {
	return len(r.legs)
}

// CountConference returns the number of legs currently merged into the
// multi-party bridge.
func (r *Registry) CountConference() int {
	n := 0
	for _, leg := range r.legs {
		if leg.Conference {
			n++
		}
	}
	return n
}

// All returns the legs in creation order. The returned slice is a
// copy; the legs themselves are still owned by the registry.
func (r *Registry) All() []*Leg {
	out := make([]*Leg, len(r.legs))
	copy(out, r.legs)
	return out
}

// HasType reports whether any leg of the given type exists.
func (r *Registry) HasType(t Type) bool {
	for _, leg := range r.legs {
		if leg.Type == t {
			return true
		}
	}
	return false
}

func (r *Registry) index(leg *Leg, s State) {
	if key, single := occupancyKey(s); single {
		r.byState[key] = leg
	}
}

func (r *Registry) unindex(leg *Leg) {
	if key, single := occupancyKey(leg.State); single {
		if r.byState[key] == leg {
			delete(r.byState, key)
		}
	}
}

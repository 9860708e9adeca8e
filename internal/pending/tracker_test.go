package pending

import (
	"errors"
	"testing"
)

func TestBeginWhileActiveFails(t *testing.T) {
	tr := NewTracker()
	if err := tr.Begin(KindSwap, []int{1, 2}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Begin(KindHoldActive, []int{3}, nil); !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("expected ErrAlreadyPending, got %v", err)
	}
}

func TestConfirmInEitherOrder(t *testing.T) {
	for _, order := range [][]int{{1, 2}, {2, 1}} {
		fired := 0
		tr := NewTracker()
		if err := tr.Begin(KindSwap, []int{1, 2}, func(k Kind) {
			fired++
			if k != KindSwap {
				t.Errorf("expected swap completion, got %s", k)
			}
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := tr.Confirm(order[0]); got != StillPending {
			t.Fatalf("expected StillPending after first confirm, got %v", got)
		}
		if got := tr.Confirm(order[1]); got != Completed {
			t.Fatalf("expected Completed after second confirm, got %v", got)
		}
		if fired != 1 {
			t.Errorf("expected completion to fire exactly once, fired %d times", fired)
		}
		if tr.Active() {
			t.Error("expected tracker to be idle after completion")
		}
	}
}

func TestConfirmIgnoresUnrelatedLegs(t *testing.T) {
	tr := NewTracker()
	if err := tr.Begin(KindJoin, []int{1, 2}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.Confirm(9); got != NotTracked {
		t.Fatalf("expected NotTracked for unrelated leg, got %v", got)
	}
	if !tr.Active() {
		t.Error("expected tracker to stay active")
	}
}

func TestConfirmOnIdleTracker(t *testing.T) {
	tr := NewTracker()
	if got := tr.Confirm(1); got != NotTracked {
		t.Fatalf("expected NotTracked on idle tracker, got %v", got)
	}
}

func TestAbortSuppressesCompletion(t *testing.T) {
	fired := false
	tr := NewTracker()
	if err := tr.Begin(KindSplit, []int{1}, func(Kind) { fired = true }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.Abort()
	if tr.Active() {
		t.Error("expected tracker idle after abort")
	}
	if got := tr.Confirm(1); got != NotTracked {
		t.Errorf("expected NotTracked after abort, got %v", got)
	}
	if fired {
		t.Error("completion must not fire after abort")
	}
	// The slot is free for a new transition.
	if err := tr.Begin(KindSwap, []int{1, 2}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

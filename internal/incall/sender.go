package incall

// SenderState is the per-digit delivery state.
type SenderState int

const (
	// SendIdle: nothing queued or between digits.
	SendIdle SenderState = iota
	// SendSending: one digit is at the modem awaiting its ack.
	SendSending
	// SendPauseWait: a pause timer is running before the next digit.
	SendPauseWait
	// SendWaitUser: delivery is parked until the user confirms.
	SendWaitUser
)

// String returns a short name for logging.
func (s SenderState) String() string {
	switch s {
	case SendSending:
		return "sending"
	case SendPauseWait:
		return "pause"
	case SendWaitUser:
		return "wait"
	default:
		return "idle"
	}
}

// Sender drives a post-dial DTMF tail one digit at a time. Digits only
// advance on the hardware ack for the previous one; pause characters
// arm a timer, wait characters park until the user continues. The
// orchestrator owns the timer and feeds PauseElapsed back in, so the
// sender itself never blocks.
type Sender struct {
	state SenderState
	tail  []byte

	// SendDigit pushes one digit to the modem.
	SendDigit func(digit byte) error
	// StartPause arms the post-dial pause timer.
	StartPause func()
	// NotifyWait surfaces a wait indication so the user can confirm.
	NotifyWait func()
}

// State returns the current delivery state.
func (s *Sender) State() SenderState {
	return s.state
}

// Remaining returns the undelivered part of the tail.
func (s *Sender) Remaining() string {
	return string(s.tail)
}

// Active reports whether a tail is still being delivered.
func (s *Sender) Active() bool {
	return s.state != SendIdle || len(s.tail) > 0
}

// Start queues a tail and begins delivery. A tail already in progress
// is replaced only after Cancel; starting over a live tail is a bug.
func (s *Sender) Start(tail string) error {
	s.tail = []byte(tail)
	s.state = SendIdle
	return s.advance()
}

// Ack records the hardware acknowledgement for the in-flight digit and
// sends the next one.
func (s *Sender) Ack() error {
	if s.state != SendSending {
		return nil
	}
	s.state = SendIdle
	return s.advance()
}

// PauseElapsed resumes delivery after the pause timer fired.
func (s *Sender) PauseElapsed() error {
	if s.state != SendPauseWait {
		return nil
	}
	s.state = SendIdle
	return s.advance()
}

// Continue resumes delivery after an explicit user confirmation of a
// wait character.
func (s *Sender) Continue() error {
	if s.state != SendWaitUser {
		return nil
	}
	s.state = SendIdle
	return s.advance()
}

// Cancel drops the remaining tail without sending further digits.
func (s *Sender) Cancel() {
	s.tail = nil
	s.state = SendIdle
}

func (s *Sender) advance() error {
	for len(s.tail) > 0 {
		head := s.tail[0]
		s.tail = s.tail[1:]

		switch {
		case isPause(head):
			s.state = SendPauseWait
			if s.StartPause != nil {
				s.StartPause()
			}
			return nil
		case isWait(head):
			s.state = SendWaitUser
			if s.NotifyWait != nil {
				s.NotifyWait()
			}
			return nil
		default:
			s.state = SendSending
			if s.SendDigit != nil {
				if err := s.SendDigit(head); err != nil {
					s.Cancel()
					return err
				}
			}
			return nil
		}
	}
	s.state = SendIdle
	return nil
}

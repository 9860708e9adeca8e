// Package incall interprets strings dialed while a call is already up:
// supplementary-service short codes, USSD passthrough, and post-dial
// DTMF sequences with pause/wait control characters.
package incall

// SSOp is a supplementary-service operation selected by a short code.
type SSOp int

const (
	// SSReleaseHeld releases all held calls, or declines a waiting
	// call if one is ringing. Code "0".
	SSReleaseHeld SSOp = iota
	// SSReleaseActiveAccept releases all active calls and accepts the
	// waiting or held call. Code "1".
	SSReleaseActiveAccept
	// SSReleaseSpecific releases one active leg by ordinal. Code "1X".
	SSReleaseSpecific
	// SSHoldActiveAccept holds the active calls and accepts the other
	// call; with one active and one held leg this is a swap, with only
	// a held leg a retrieve. Code "2".
	SSHoldActiveAccept
	// SSSplitSpecific splits one leg out of the conference by ordinal.
	// Code "2X".
	SSSplitSpecific
	// SSJoin merges the held call into the conference. Code "3".
	SSJoin
	// SSTransfer connects the two remote parties and drops out. Code "4".
	SSTransfer
)

// String returns a short name for logging.
func (op SSOp) String() string {
	switch op {
	case SSReleaseHeld:
		return "release-held"
	case SSReleaseActiveAccept:
		return "release-active-accept"
	case SSReleaseSpecific:
		return "release-specific"
	case SSHoldActiveAccept:
		return "hold-active-accept"
	case SSSplitSpecific:
		return "split-specific"
	case SSJoin:
		return "join"
	case SSTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// SSCode is a parsed supplementary-service short code.
type SSCode struct {
	Op SSOp
	// Ordinal selects a specific leg for the 1X/2X forms, 1-based.
	// Zero when the code has no leg selector.
	Ordinal int
}

// ClassifyDialed decides what a string dialed during an active call
// means. Classification order matters: short codes are matched first,
// anything else is a USSD string and must be forwarded unmodified.
func ClassifyDialed(s string) (SSCode, bool) {
	switch len(s) {
	case 1:
		switch s[0] {
		case '0':
			return SSCode{Op: SSReleaseHeld}, true
		case '1':
			return SSCode{Op: SSReleaseActiveAccept}, true
		case '2':
			return SSCode{Op: SSHoldActiveAccept}, true
		case '3':
			return SSCode{Op: SSJoin}, true
		case '4':
			return SSCode{Op: SSTransfer}, true
		}
	case 2:
		x := s[1]
		if x < '1' || x > '7' {
			break
		}
		switch s[0] {
		case '1':
			return SSCode{Op: SSReleaseSpecific, Ordinal: int(x - '0')}, true
		case '2':
			return SSCode{Op: SSSplitSpecific, Ordinal: int(x - '0')}, true
		}
	}
	return SSCode{}, false
}

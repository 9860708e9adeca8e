package incall

// Post-dial control characters. Pause stops sending, waits a fixed
// delay and resumes; wait stops until the user explicitly continues.
const (
	ctrlPause = "Pp,"
	ctrlWait  = "Ww;"
)

func isPause(b byte) bool {
	for i := 0; i < len(ctrlPause); i++ {
		if ctrlPause[i] == b {
			return true
		}
	}
	return false
}

func isWait(b byte) bool {
	for i := 0; i < len(ctrlWait); i++ {
		if ctrlWait[i] == b {
			return true
		}
	}
	return false
}

func isControl(b byte) bool {
	return isPause(b) || isWait(b)
}

// SplitPostDial splits a dial string into the dialable number and the
// post-dial DTMF tail. The tail starts at the first pause or wait
// character and keeps it, so the sender knows how to begin. A string
// with no control characters has an empty tail.
func SplitPostDial(s string) (number, tail string) {
	for i := 0; i < len(s); i++ {
		if isControl(s[i]) {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// HasPostDial reports whether the dial string carries a DTMF tail.
func HasPostDial(s string) bool {
	_, tail := SplitPostDial(s)
	return tail != ""
}

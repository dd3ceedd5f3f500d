// Package logic contains the pure counting rules of the terminal.
// This package has NO external dependencies (no GPIO, display, clock or
// time.Sleep). Hours and counter values are always passed in.
package logic

// Mode is the operating mode of the terminal.
type Mode int

const (
	ModeInitialize Mode = iota
	ModeScan
	ModeAlarm
	ModeAccess
)

func (m Mode) String() string {
	switch m {
	case ModeInitialize:
		return "INITIALIZE"
	case ModeScan:
		return "SCAN"
	case ModeAlarm:
		return "ALARM"
	case ModeAccess:
		return "ACCESS"
	}
	return "UNKNOWN"
}

// ModeForChoice maps a menu key id (1-3) to a running mode.
func ModeForChoice(choice int) (Mode, bool) {
	switch choice {
	case 1:
		return ModeScan, true
	case 2:
		return ModeAlarm, true
	case 3:
		return ModeAccess, true
	}
	return ModeInitialize, false
}

// Result is the outcome of a credential check.
type Result int

const (
	// ResultIncomplete means more characters are needed before a decision.
	ResultIncomplete Result = iota
	ResultIncorrect
	ResultCorrect
)

func (r Result) String() string {
	switch r {
	case ResultIncomplete:
		return "INCOMPLETE"
	case ResultIncorrect:
		return "INCORRECT"
	case ResultCorrect:
		return "CORRECT"
	}
	return "UNKNOWN"
}

// HoursPerDay is the number of histogram slots.
const HoursPerDay = 24

// CustomerCount converts a break count into customers. Each passage breaks
// the beam twice; a trailing odd break rounds up.
func CustomerCount(breaks uint32) uint32 {
	return breaks/2 + breaks%2
}

// TwelveHour converts a 24-hour clock hour into 12-hour form.
// Hour 0 is 12 AM and hour 12 is 12 PM.
func TwelveHour(hour int) (int, string) {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return h, suffix
}

// BreakTracker remembers the last break counter value the main loop acted on.
type BreakTracker struct {
	seen uint32
}

// Advance records the current counter value and returns how far it moved
// since the previous call. The counter may move by more than one between
// polls. Unsigned subtraction keeps this correct across wrap-around.
func (b *BreakTracker) Advance(current uint32) uint32 {
	n := current - b.seen
	b.seen = current
	return n
}

// Seen returns the last counter value passed to Advance.
func (b *BreakTracker) Seen() uint32 { return b.seen }

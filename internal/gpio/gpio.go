// Package gpio provides keypad matrix and output line access with hardware
// abstraction. The real implementation uses the Linux GPIO character
// device. The fake implementation simulates a switch matrix for tests and
// the desktop simulator.
package gpio

// ScanConfig selects which side of the keypad matrix is driven.
type ScanConfig int

const (
	// RowsDriven drives the rows low and reads the columns. This is the idle
	// configuration: a pressed key pulls its column low and raises an edge.
	RowsDriven ScanConfig = iota
	// ColumnsDriven drives the columns low and reads the rows. Entered
	// briefly from the edge handler to resolve the pressed row.
	ColumnsDriven
)

func (c ScanConfig) String() string {
	switch c {
	case RowsDriven:
		return "rows-driven"
	case ColumnsDriven:
		return "columns-driven"
	}
	return "unknown"
}

// Lines is the number of row lines and of column lines.
const Lines = 4

// IdleNibble is the sample of four pulled-up lines with nothing pressed.
const IdleNibble = 0x0F

// EdgeHandler is called with the column index (0-3) that saw a falling
// edge. It runs on the event goroutine and must not block.
type EdgeHandler func(line int)

// Matrix is a 4x4 keypad matrix.
type Matrix interface {
	// Configure switches the matrix to the given scan configuration.
	Configure(c ScanConfig) error

	// Sample returns the 4 input lines of the current configuration as a
	// nibble, bit i = line i. A low bit means the line is pulled down.
	Sample() (uint8, error)

	// Watch registers the handler for column edges. Only one handler is
	// kept; a later call replaces it.
	Watch(h EdgeHandler)

	// Close releases the lines.
	Close() error
}

// Output is a single output line, e.g. the piezo buzzer.
type Output interface {
	SetValue(v int) error
	Close() error
}

// Default line offsets on gpiochip0 (BCM numbering).
var (
	DefaultRowPins = [Lines]int{5, 6, 13, 19}
	DefaultColPins = [Lines]int{12, 16, 20, 21}
)

// DefaultBuzzerPin drives the piezo.
const DefaultBuzzerPin = 18

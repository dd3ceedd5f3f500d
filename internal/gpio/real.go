//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "door-counter"

// RealMatrix drives a keypad matrix through the Linux GPIO character device.
// Column lines carry falling-edge detection while idle; the kernel delivers
// those events on a watcher goroutine, which calls the registered handler.
type RealMatrix struct {
	rows    *gpiocdev.Lines
	cols    *gpiocdev.Lines
	colPins [Lines]int

	mu       sync.Mutex
	config   ScanConfig
	handler  EdgeHandler
	debounce time.Duration
}

// NewRealMatrix requests the row and column lines on the given chip and
// leaves the matrix in the RowsDriven configuration.
func NewRealMatrix(chip string, rowPins, colPins [Lines]int, debounce time.Duration) (*RealMatrix, error) {
	m := &RealMatrix{colPins: colPins, debounce: debounce}

	cols, err := gpiocdev.RequestLines(chip, colPins[:],
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(m.handleEvent))
	if err != nil {
		return nil, fmt.Errorf("request column pins %v: %w", colPins, err)
	}

	rows, err := gpiocdev.RequestLines(chip, rowPins[:],
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsOutput(0, 0, 0, 0))
	if err != nil {
		cols.Close()
		return nil, fmt.Errorf("request row pins %v: %w", rowPins, err)
	}

	m.rows = rows
	m.cols = cols
	return m, nil
}

// Configure switches line directions for the requested scan configuration.
func (m *RealMatrix) Configure(c ScanConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch c {
	case RowsDriven:
		if err := m.rows.Reconfigure(gpiocdev.AsOutput(0, 0, 0, 0)); err != nil {
			return fmt.Errorf("drive rows: %w", err)
		}
		if err := m.cols.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge, gpiocdev.WithDebounce(m.debounce)); err != nil {
			return fmt.Errorf("read columns: %w", err)
		}
	case ColumnsDriven:
		if err := m.rows.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			return fmt.Errorf("read rows: %w", err)
		}
		if err := m.cols.Reconfigure(gpiocdev.AsOutput(0, 0, 0, 0)); err != nil {
			return fmt.Errorf("drive columns: %w", err)
		}
	default:
		return fmt.Errorf("unknown scan config %d", c)
	}
	m.config = c
	return nil
}

// Sample reads the undriven side of the matrix.
func (m *RealMatrix) Sample() (uint8, error) {
	m.mu.Lock()
	lines := m.cols
	if m.config == ColumnsDriven {
		lines = m.rows
	}
	m.mu.Unlock()

	vals := make([]int, Lines)
	if err := lines.Values(vals); err != nil {
		return 0, fmt.Errorf("read lines: %w", err)
	}

	var nibble uint8
	for i, v := range vals {
		if v != 0 {
			nibble |= 1 << i
		}
	}
	return nibble, nil
}

// Watch registers the edge handler.
func (m *RealMatrix) Watch(h EdgeHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

func (m *RealMatrix) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}

	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		return
	}

	for i, pin := range m.colPins {
		if pin == evt.Offset {
			h(i)
			return
		}
	}
}

// Close releases the lines. Both sides are left as pulled-up inputs so the
// keypad does not hold any pin low after exit.
func (m *RealMatrix) Close() error {
	var errs []error

	if m.rows != nil {
		if err := m.rows.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure rows: %w", err))
		}
		if err := m.rows.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rows: %w", err))
		}
	}
	if m.cols != nil {
		if err := m.cols.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close columns: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealOutput is a single GPIO output line.
type RealOutput struct {
	line *gpiocdev.Line
}

// NewRealOutput requests pin as an output, initially low.
func NewRealOutput(chip string, pin int) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	return &RealOutput{line: line}, nil
}

// SetValue drives the line.
func (o *RealOutput) SetValue(v int) error {
	return o.line.SetValue(v)
}

// Close drives the line low and releases it.
func (o *RealOutput) Close() error {
	var errs []error
	if err := o.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive low: %w", err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

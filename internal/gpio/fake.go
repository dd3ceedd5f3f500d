package gpio

import (
	"errors"
	"sync"
)

// FakeMatrix is a simulated switch matrix. Pressed keys connect their row
// and column, so whichever side is driven low pulls the other side low.
// Pressing two keys at once reproduces ghosting.
type FakeMatrix struct {
	mu      sync.Mutex
	pressed map[[2]int]bool
	config  ScanConfig
	handler EdgeHandler

	// Configs records every Configure call in order.
	Configs []ScanConfig

	// SampleError, if set, is returned by Sample.
	SampleError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeMatrix creates an idle FakeMatrix in the RowsDriven configuration.
func NewFakeMatrix() *FakeMatrix {
	return &FakeMatrix{pressed: make(map[[2]int]bool)}
}

// Configure records and applies the scan configuration.
func (f *FakeMatrix) Configure(c ScanConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return errors.New("matrix closed")
	}
	f.config = c
	f.Configs = append(f.Configs, c)
	return nil
}

// Sample returns the nibble read on the undriven side of the matrix.
func (f *FakeMatrix) Sample() (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SampleError != nil {
		return 0, f.SampleError
	}

	nibble := uint8(IdleNibble)
	for k := range f.pressed {
		row, col := k[0], k[1]
		if f.config == RowsDriven {
			nibble &^= 1 << col
		} else {
			nibble &^= 1 << row
		}
	}
	return nibble, nil
}

// Watch registers the edge handler.
func (f *FakeMatrix) Watch(h EdgeHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

// Close marks the matrix as closed.
func (f *FakeMatrix) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Press closes the switch at row, col (0-based).
func (f *FakeMatrix) Press(row, col int) {
	f.mu.Lock()
	f.pressed[[2]int{row, col}] = true
	f.mu.Unlock()
}

// Release opens the switch at row, col (0-based).
func (f *FakeMatrix) Release(row, col int) {
	f.mu.Lock()
	delete(f.pressed, [2]int{row, col})
	f.mu.Unlock()
}

// ReleaseAll opens every switch.
func (f *FakeMatrix) ReleaseAll() {
	f.mu.Lock()
	f.pressed = make(map[[2]int]bool)
	f.mu.Unlock()
}

// Fire delivers a falling edge on the given column line to the handler.
// The handler runs on the caller's goroutine.
func (f *FakeMatrix) Fire(col int) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(col)
	}
}

// Tap presses a key, fires its column edge and releases it.
func (f *FakeMatrix) Tap(row, col int) {
	f.Press(row, col)
	f.Fire(col)
	f.Release(row, col)
}

// Reset clears pressed keys, recorded configurations and errors.
func (f *FakeMatrix) Reset() {
	f.mu.Lock()
	f.pressed = make(map[[2]int]bool)
	f.config = RowsDriven
	f.Configs = nil
	f.SampleError = nil
	f.Closed = false
	f.mu.Unlock()
}

// FakeOutput records values written to an output line.
type FakeOutput struct {
	mu     sync.Mutex
	Values []int
	Closed bool
}

// SetValue records v.
func (f *FakeOutput) SetValue(v int) error {
	f.mu.Lock()
	f.Values = append(f.Values, v)
	f.mu.Unlock()
	return nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealMatrix is not available on non-Linux platforms.
type RealMatrix struct{}

// NewRealMatrix returns an error on non-Linux platforms.
func NewRealMatrix(chip string, rowPins, colPins [Lines]int, debounce time.Duration) (*RealMatrix, error) {
	return nil, errUnsupported
}

// Configure is not implemented on non-Linux platforms.
func (m *RealMatrix) Configure(c ScanConfig) error { return errUnsupported }

// Sample is not implemented on non-Linux platforms.
func (m *RealMatrix) Sample() (uint8, error) { return 0, errUnsupported }

// Watch is a no-op on non-Linux platforms.
func (m *RealMatrix) Watch(h EdgeHandler) {}

// Close is a no-op on non-Linux platforms.
func (m *RealMatrix) Close() error { return nil }

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(chip string, pin int) (*RealOutput, error) {
	return nil, errUnsupported
}

// SetValue is not implemented on non-Linux platforms.
func (o *RealOutput) SetValue(v int) error { return errUnsupported }

// Close is a no-op on non-Linux platforms.
func (o *RealOutput) Close() error { return nil }

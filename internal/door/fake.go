package door

import (
	"errors"
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// FakeReader is a test double that returns scripted samples.
type FakeReader struct {
	mu sync.Mutex

	// Samples contains scripted readings. Each call to Read() consumes the
	// next one; when exhausted the last one repeats.
	Samples []analog.Sample

	index int

	// ReadError, if set, will be returned by Read().
	ReadError error
}

// NewFakeReader creates a FakeReader that returns the given millivolt
// readings in order.
func NewFakeReader(mv ...int64) *FakeReader {
	samples := make([]analog.Sample, len(mv))
	for i, v := range mv {
		samples[i] = MillivoltSample(v)
	}
	return &FakeReader{Samples: samples}
}

// MillivoltSample builds a sample carrying the given voltage.
func MillivoltSample(mv int64) analog.Sample {
	return analog.Sample{V: physic.ElectricPotential(mv) * physic.MilliVolt}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (analog.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return analog.Sample{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return analog.Sample{}, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// SimReader models a beam that is either clear or blocked. It is used by
// the desktop simulator where a key toggles the beam.
type SimReader struct {
	blocked atomic.Bool
}

// SetBlocked sets the beam state.
func (s *SimReader) SetBlocked(b bool) { s.blocked.Store(b) }

// Toggle flips the beam state and returns the new state.
func (s *SimReader) Toggle() bool {
	for {
		old := s.blocked.Load()
		if s.blocked.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Read returns a full-scale raw result when clear and 0 when blocked.
func (s *SimReader) Read() (analog.Sample, error) {
	if s.blocked.Load() {
		return analog.Sample{Raw: 0}, nil
	}
	return analog.Sample{Raw: DefaultFullScale}, nil
}

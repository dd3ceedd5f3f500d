// Package door detects infrared beam breaks from periodic analog samples.
//
// The sampler goroutine is the only writer of the detector state; any
// other goroutine may read the break counter at any time.
package door

import "sync/atomic"

// Default conversion constants for a 12-bit converter on a 3.3 V reference.
const (
	DefaultReferenceMV = 3300
	DefaultFullScale   = 4095
	DefaultThresholdMV = 250
)

// RawToMillivolts converts a raw conversion result to millivolts.
func RawToMillivolts(raw int32, referenceMV int64, fullScale int32) int64 {
	if fullScale <= 0 {
		return 0
	}
	return int64(raw) * referenceMV / int64(fullScale)
}

// Detector counts transitions into the blocked state.
type Detector struct {
	thresholdMV int64
	blocked     atomic.Bool
	breaks      atomic.Uint32
}

// NewDetector creates a detector that treats readings below thresholdMV
// as a blocked beam.
func NewDetector(thresholdMV int64) *Detector {
	return &Detector{thresholdMV: thresholdMV}
}

// Observe evaluates one reading and reports whether it started a new break.
// Staying blocked does not count again and clearing never counts.
func (d *Detector) Observe(mv int64) bool {
	if mv < d.thresholdMV {
		if !d.blocked.Load() {
			d.blocked.Store(true)
			d.breaks.Add(1)
			return true
		}
		return false
	}
	if d.blocked.Load() {
		d.blocked.Store(false)
	}
	return false
}

// Blocked reports whether the beam was blocked at the last reading.
func (d *Detector) Blocked() bool { return d.blocked.Load() }

// BreakCount returns the number of breaks seen since start. It only grows.
func (d *Detector) BreakCount() uint32 { return d.breaks.Load() }

// Threshold returns the blocked threshold in millivolts.
func (d *Detector) Threshold() int64 { return d.thresholdMV }

// Package status provides a thread-safe status tracker for the door-counter
// terminal. The main loop writes it; heartbeat and shutdown logging read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/door-counter/internal/logic"
)

// Config contains terminal configuration for display. Credentials are
// never copied here.
type Config struct {
	AdminName    string
	SensorSource string
	SampleMs     int64
	ThresholdMV  int64
	HeartbeatMs  int64
	PromptClock  bool
}

// Counters are the fail-soft drop and error counts of the event sources.
type Counters struct {
	DroppedKeys   uint32
	KeyFaults     uint32
	SensorSamples uint32
	SensorErrors  uint32
}

// Snapshot is a point-in-time view of terminal state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Mode        logic.Mode
	LoggedIn    bool
	Alarmed     bool
	Armed       bool
	Breaks      uint32
	Customers   uint32
	BusiestHour int
	Histogram   logic.Histogram
	Counters    Counters
	StartTime   time.Time
	Now         time.Time
	Config      Config
}

// Uptime returns the duration since the terminal started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable terminal state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the session state after a main loop iteration.
// Customers and busiest hour are derived from breaks and hist.
func (t *Tracker) Update(mode logic.Mode, alarmed bool, breaks uint32, hist logic.Histogram) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.snap.Alarmed = alarmed
	t.snap.Breaks = breaks
	t.snap.Customers = logic.CustomerCount(breaks)
	t.snap.Histogram = hist
	t.snap.BusiestHour = hist.Busiest()
	t.mu.Unlock()
}

// SetLoggedIn records whether the administrator has authenticated.
func (t *Tracker) SetLoggedIn(v bool) {
	t.mu.Lock()
	t.snap.LoggedIn = v
	t.mu.Unlock()
}

// SetArmed records whether the beam sensor is being sampled.
func (t *Tracker) SetArmed(v bool) {
	t.mu.Lock()
	t.snap.Armed = v
	t.mu.Unlock()
}

// SetCounters sets the event source counters.
func (t *Tracker) SetCounters(c Counters) {
	t.mu.Lock()
	t.snap.Counters = c
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the terminal state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

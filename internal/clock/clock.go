// Package clock provides the terminal's settable wall clock.
//
// The clock runs from the host clock plus an offset set by the operator
// at boot from keypad entry.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// TextLayout is the fixed-width time readout, e.g. "09:05:00 PM".
const TextLayout = "03:04:05 PM"

// Clock is a wall clock that can be set without touching the host clock.
type Clock struct {
	mu     sync.RWMutex
	now    func() time.Time
	offset time.Duration
}

// New returns a clock that follows the host clock until Set is called.
func New() *Clock {
	return &Clock{now: time.Now}
}

// NewWithSource returns a clock that reads now instead of the host clock.
func NewWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current wall-clock time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Add(c.offset)
}

// Set moves the clock so that it reads t now.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.offset = t.Sub(c.now())
	c.mu.Unlock()
}

// CurrentHour returns the hour of the day, 0..23.
func (c *Clock) CurrentHour() int {
	return c.Now().Hour()
}

// CurrentTimeText returns the time in TextLayout form.
func (c *Clock) CurrentTimeText() string {
	return c.Now().Format(TextLayout)
}

// Entry is a date and time as keyed in by the operator: two-digit fields
// and a 12-hour clock.
type Entry struct {
	Month, Day, Year int // Year is two digits, 2000-based
	Hour             int // 1..12
	Minute, Second   int
	PM               bool
}

// Hour24 converts a 12-hour reading to 0..23.
func Hour24(hour int, pm bool) int {
	hour %= 12
	if pm {
		hour += 12
	}
	return hour
}

// ValidateDate checks the date fields of e.
func (e Entry) ValidateDate() error {
	if e.Month < 1 || e.Month > 12 {
		return fmt.Errorf("month %d out of range", e.Month)
	}
	if e.Year < 0 || e.Year > 99 {
		return fmt.Errorf("year %d out of range", e.Year)
	}
	// Day 0 of the next month is the last day of this one.
	last := time.Date(2000+e.Year, time.Month(e.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if e.Day < 1 || e.Day > last {
		return fmt.Errorf("day %d out of range for %02d/%02d", e.Day, e.Month, e.Year)
	}
	return nil
}

// ValidateTime checks the time fields of e.
func (e Entry) ValidateTime() error {
	if e.Hour < 1 || e.Hour > 12 {
		return fmt.Errorf("hour %d out of range", e.Hour)
	}
	if e.Minute < 0 || e.Minute > 59 {
		return fmt.Errorf("minute %d out of range", e.Minute)
	}
	if e.Second < 0 || e.Second > 59 {
		return fmt.Errorf("second %d out of range", e.Second)
	}
	return nil
}

// Time returns e as a time in loc.
func (e Entry) Time(loc *time.Location) (time.Time, error) {
	if err := e.ValidateDate(); err != nil {
		return time.Time{}, err
	}
	if err := e.ValidateTime(); err != nil {
		return time.Time{}, err
	}
	return time.Date(2000+e.Year, time.Month(e.Month), e.Day,
		Hour24(e.Hour, e.PM), e.Minute, e.Second, 0, loc), nil
}

// Package tone plays notes on a piezo buzzer.
package tone

import (
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/door-counter/internal/gpio"
)

// Letter is a note name. Rest is silence.
type Letter int

const (
	C Letter = iota
	D
	E
	F
	G
	A
	B
	Rest
)

func (l Letter) String() string {
	if l < C || l > Rest {
		return "?"
	}
	return []string{"C", "D", "E", "F", "G", "A", "B", "rest"}[l]
}

// Accidental raises or lowers a note by a semitone.
type Accidental int

const (
	Flat    Accidental = -1
	Natural Accidental = 0
	Sharp   Accidental = 1
)

// Note is a pitch held for a duration.
type Note struct {
	Letter     Letter
	Accidental Accidental
	Octave     int
	Duration   time.Duration
}

func (n Note) String() string {
	if n.Letter == Rest {
		return fmt.Sprintf("rest/%v", n.Duration)
	}
	acc := ""
	switch n.Accidental {
	case Sharp:
		acc = "#"
	case Flat:
		acc = "b"
	}
	return fmt.Sprintf("%v%s%d/%v", n.Letter, acc, n.Octave, n.Duration)
}

// middleC is C4 in hertz.
const middleC = 261.63

// Frequency returns the pitch of n in hertz, or 0 for a rest. Pitches are
// equal-tempered semitone steps from C4.
func (n Note) Frequency() float64 {
	if n.Letter == Rest || n.Letter < C || n.Letter > B {
		return 0
	}
	offset := int(n.Letter - C)
	// No semitone between E and F.
	steps := offset * 2
	if offset > 2 {
		steps--
	}
	steps += 12*(n.Octave-4) + int(n.Accidental)
	return middleC * math.Pow(2, float64(steps)/12)
}

// Player plays a note and returns when it has finished.
type Player interface {
	Play(n Note)
}

// Buzzer drives a piezo with a square wave on an output line.
type Buzzer struct {
	out   gpio.Output
	sleep func(time.Duration)
}

// NewBuzzer creates a Buzzer on out.
func NewBuzzer(out gpio.Output) *Buzzer {
	return &Buzzer{out: out, sleep: time.Sleep}
}

// Play toggles the line at the note's frequency for its duration.
func (b *Buzzer) Play(n Note) {
	freq := n.Frequency()
	if freq <= 0 {
		b.sleep(n.Duration)
		return
	}

	half := time.Duration(float64(time.Second) / freq / 2)
	ticker := time.NewTicker(half)
	defer ticker.Stop()
	deadline := time.After(n.Duration)

	level := 1
	for {
		if err := b.out.SetValue(level); err != nil {
			log.WithError(err).Warn("tone: drive buzzer")
			return
		}
		select {
		case <-deadline:
			if err := b.out.SetValue(0); err != nil {
				log.WithError(err).Warn("tone: silence buzzer")
			}
			return
		case <-ticker.C:
			level ^= 1
		}
	}
}

// LogPlayer logs notes instead of sounding them and waits for each
// note's duration. Used when no buzzer is wired.
type LogPlayer struct {
	Sleep func(time.Duration)
}

// Play logs n and waits for its duration.
func (p LogPlayer) Play(n Note) {
	log.WithFields(log.Fields{
		"note":      n.String(),
		"frequency": math.Round(n.Frequency()*100) / 100,
	}).Debug("tone: play")
	if p.Sleep != nil {
		p.Sleep(n.Duration)
	}
}

// FakePlayer records played notes for test assertions.
type FakePlayer struct {
	mu    sync.Mutex
	notes []Note
}

// Play records n.
func (f *FakePlayer) Play(n Note) {
	f.mu.Lock()
	f.notes = append(f.notes, n)
	f.mu.Unlock()
}

// Notes returns a copy of the played notes.
func (f *FakePlayer) Notes() []Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Note(nil), f.notes...)
}

// Reset clears recorded notes.
func (f *FakePlayer) Reset() {
	f.mu.Lock()
	f.notes = nil
	f.mu.Unlock()
}

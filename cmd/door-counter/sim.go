package main

import (
	"bufio"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/door-counter/internal/door"
	"github.com/sweeney/door-counter/internal/gpio"
	"github.com/sweeney/door-counter/internal/keypad"
)

// beamKey toggles the simulated beam.
const beamKey = 'x'

// feedKeys turns input characters into keypad taps on m until r is
// exhausted. Legend letters may be typed in lower case; beamKey toggles
// beam when it is set. Anything else is skipped.
func feedKeys(r io.Reader, m *gpio.FakeMatrix, beam *door.SimReader) {
	br := bufio.NewReader(r)
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Warn("simulator: read input")
			}
			return
		}
		feedKey(c, m, beam)
	}
}

func feedKey(c byte, m *gpio.FakeMatrix, beam *door.SimReader) {
	switch {
	case c == beamKey || c == beamKey-'a'+'A':
		if beam == nil {
			return
		}
		blocked := beam.Toggle()
		log.WithField("blocked", blocked).Info("simulator: beam toggled")
	case c >= 'a' && c <= 'd':
		keypad.TapChar(m, c-'a'+'A')
	default:
		keypad.TapChar(m, c)
	}
}

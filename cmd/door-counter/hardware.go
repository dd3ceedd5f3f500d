package main

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/door-counter/internal/config"
	"github.com/sweeney/door-counter/internal/door"
	"github.com/sweeney/door-counter/internal/gpio"
	"github.com/sweeney/door-counter/internal/keypad"
	"github.com/sweeney/door-counter/internal/tone"
)

// hardware holds the opened event sources and outputs.
type hardware struct {
	matrix gpio.Matrix
	reader door.Reader
	player tone.Player

	// Set in simulator mode only.
	fake *gpio.FakeMatrix
	beam *door.SimReader

	closers []io.Closer
}

func openHardware(cfg *config.Config, sim bool) (*hardware, error) {
	hw := &hardware{}

	if sim {
		hw.fake = gpio.NewFakeMatrix()
		hw.matrix = hw.fake
	} else {
		m, err := gpio.NewRealMatrix(cfg.Keypad.Chip, cfg.RowPins(), cfg.ColPins(), cfg.Debounce())
		if err != nil {
			return nil, fmt.Errorf("init keypad lines: %w", err)
		}
		hw.matrix = m
		hw.closers = append(hw.closers, m)
	}

	switch cfg.Sensor.Source {
	case config.SourceSim:
		hw.beam = &door.SimReader{}
		hw.reader = hw.beam
	default:
		adc, err := door.OpenADS1115(cfg.Sensor.Bus, cfg.Sensor.Channel,
			physic.ElectricPotential(cfg.Sensor.MaxVoltageMV)*physic.MilliVolt,
			physic.Frequency(cfg.Sensor.RateHz)*physic.Hertz)
		if err != nil {
			hw.Close()
			return nil, fmt.Errorf("init sensor: %w", err)
		}
		hw.reader = adc
		hw.closers = append(hw.closers, adc)
	}

	if sim || cfg.Buzzer.Pin < 0 {
		hw.player = tone.LogPlayer{Sleep: time.Sleep}
	} else {
		out, err := gpio.NewRealOutput(cfg.Buzzer.Chip, cfg.Buzzer.Pin)
		if err != nil {
			hw.Close()
			return nil, fmt.Errorf("init buzzer: %w", err)
		}
		hw.player = tone.NewBuzzer(out)
		hw.closers = append(hw.closers, out)
	}
	return hw, nil
}

// Close releases everything opened, last first.
func (hw *hardware) Close() error {
	var first error
	for i := len(hw.closers) - 1; i >= 0; i-- {
		if err := hw.closers[i].Close(); err != nil {
			log.WithError(err).Warn("close hardware")
			if first == nil {
				first = err
			}
		}
	}
	hw.closers = nil
	return first
}

// probe reports the idle keypad nibble and one beam sample.
func probe(w io.Writer, hw *hardware, scale door.Scale, thresholdMV int64) error {
	if err := hw.matrix.Configure(gpio.RowsDriven); err != nil {
		return fmt.Errorf("configure keypad: %w", err)
	}
	cols, err := hw.matrix.Sample()
	if err != nil {
		return fmt.Errorf("read keypad: %w", err)
	}
	pressed := "none"
	if col := keypad.DecodeLine(cols); col != 0 {
		pressed = fmt.Sprintf("column %d", col)
	} else if cols != gpio.IdleNibble {
		pressed = "ambiguous"
	}
	fmt.Fprintf(w, "keypad: columns=%04b pressed=%s\n", cols, pressed)

	sample, err := hw.reader.Read()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	mv := scale.Millivolts(sample)
	beam := "clear"
	if mv < thresholdMV {
		beam = "blocked"
	}
	fmt.Fprintf(w, "beam: %dmV raw=%d %s\n", mv, sample.Raw, beam)
	return nil
}

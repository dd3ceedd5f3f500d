package door

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// DefaultInterval is the sampling period.
const DefaultInterval = 100 * time.Millisecond

// Reader performs one analog conversion. periph.io analog.PinADC
// implementations satisfy it.
type Reader interface {
	Read() (analog.Sample, error)
}

// Scale describes how to turn a raw result into millivolts when the reader
// does not report a voltage.
type Scale struct {
	ReferenceMV int64
	FullScale   int32
}

// DefaultScale is a 12-bit converter on a 3.3 V reference.
var DefaultScale = Scale{ReferenceMV: DefaultReferenceMV, FullScale: DefaultFullScale}

// Millivolts returns the reading in millivolts. A sample carrying a
// voltage is used as is; otherwise the raw value is scaled.
func (s Scale) Millivolts(sample analog.Sample) int64 {
	if sample.V != 0 {
		return int64(sample.V / physic.MilliVolt)
	}
	return RawToMillivolts(sample.Raw, s.ReferenceMV, s.FullScale)
}

// Sampler triggers a conversion every tick and feeds the result to a
// Detector. Conversions only start after Arm.
type Sampler struct {
	reader   Reader
	detector *Detector
	scale    Scale
	interval time.Duration

	armed   atomic.Bool
	samples atomic.Uint32
	errors  atomic.Uint32
}

// NewSampler creates a disarmed sampler.
func NewSampler(r Reader, d *Detector, scale Scale, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{reader: r, detector: d, scale: scale, interval: interval}
}

// Arm enables conversions on subsequent ticks.
func (s *Sampler) Arm() {
	if !s.armed.Swap(true) {
		log.WithField("interval", s.interval).Info("door: sensor armed")
	}
}

// Armed reports whether Arm has been called.
func (s *Sampler) Armed() bool { return s.armed.Load() }

// BreakCount returns the detector's break counter.
func (s *Sampler) BreakCount() uint32 { return s.detector.BreakCount() }

// Samples returns the number of successful conversions.
func (s *Sampler) Samples() uint32 { return s.samples.Load() }

// Errors returns the number of failed conversions.
func (s *Sampler) Errors() uint32 { return s.errors.Load() }

// Run samples on a ticker until ctx is done.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	return s.run(ctx, ticker.C)
}

func (s *Sampler) run(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if !s.armed.Load() {
				continue
			}
			if err := s.Convert(); err != nil {
				// First failure, then every 100th.
				if n := s.errors.Load(); n == 1 || n%100 == 0 {
					log.WithError(err).WithField("failures", n).Warn("door: conversion failed")
				}
			}
		}
	}
}

// Convert performs one conversion and evaluates it.
func (s *Sampler) Convert() error {
	sample, err := s.reader.Read()
	if err != nil {
		s.errors.Add(1)
		return fmt.Errorf("read sensor: %w", err)
	}
	s.samples.Add(1)
	if s.detector.Observe(s.scale.Millivolts(sample)) {
		log.WithField("breaks", s.detector.BreakCount()).Debug("door: beam broken")
	}
	return nil
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"io"
	"log"
	"os"
	"time"
)

type config struct {
	msg     *log.Logger
	sink    Sink
	verbose bool
	sleep   func(time.Duration)

	pins struct {
		data   []int
		mode   []int
		strobe int
	}
	settle time.Duration
	taps   [8]float64
	avg    float64 // average phase advance per count (ps)
}

func newConfig(p Profile) config {
	cfg := config{
		msg:    log.New(os.Stdout, "coinc: ", 0),
		sleep:  time.Sleep,
		settle: 5 * time.Millisecond,
		taps:   Taps,
		avg:    1,
	}
	cfg.pins.data = []int{29, 31, 33, 35, 37, 40, 38, 36}
	cfg.pins.mode = append([]int(nil), p.DefModePins...)
	cfg.pins.strobe = 22
	return cfg
}

// Option configures a Controller.
type Option func(*config)

// WithDataPins sets the 8 data pins, d0 (least significant bit) first.
func WithDataPins(pins ...int) Option {
	return func(cfg *config) {
		cfg.pins.data = append([]int(nil), pins...)
	}
}

// WithModePins sets the mode-select pins, least significant bit first.
func WithModePins(pins ...int) Option {
	return func(cfg *config) {
		cfg.pins.mode = append([]int(nil), pins...)
	}
}

func WithStrobePin(pin int) Option {
	return func(cfg *config) {
		cfg.pins.strobe = pin
	}
}

// WithSettle sets how long data lines and each strobe level are held.
func WithSettle(d time.Duration) Option {
	return func(cfg *config) {
		cfg.settle = d
	}
}

// WithAvgPhaseAdvance sets the initial average phase advance per
// fine-phase count, in ps.
func WithAvgPhaseAdvance(ps float64) Option {
	return func(cfg *config) {
		cfg.avg = ps
	}
}

// WithLogger sets the controller logger. A nil logger discards messages.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		if msg == nil {
			msg = log.New(io.Discard, "", 0)
		}
		cfg.msg = msg
	}
}

// WithEventSink installs a sink receiving every controller event.
func WithEventSink(sink Sink) Option {
	return func(cfg *config) {
		cfg.sink = sink
	}
}

// WithVerbose logs every control word written to the FPGA.
func WithVerbose(v bool) Option {
	return func(cfg *config) {
		cfg.verbose = v
	}
}

// WithTaps overrides the delay taps of the coincidence window.
func WithTaps(taps [8]float64) Option {
	return func(cfg *config) {
		cfg.taps = taps
	}
}

func withSleep(f func(time.Duration)) Option {
	return func(cfg *config) {
		cfg.sleep = f
	}
}

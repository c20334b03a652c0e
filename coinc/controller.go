// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package coinc drives the coincidence trigger generator FPGA of the
// photocathode gun over a parallel GPIO bus.
//
// Every command is sent as a control word: 8 data lines plus 1 or 4
// mode-select lines, latched by the FPGA on a strobe pulse.
package coinc // import "github.com/go-lpc/ctg/coinc"

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/go-lpc/ctg/gpio"
)

// PinMap assigns the GPIO lines of the control bus.
type PinMap struct {
	Data   [8]int // d0..d7, d0 is the least significant bit
	Mode   []int  // m0..mN, m0 is the least significant bit
	Strobe int
}

// State is the controller's belief about the FPGA configuration.
type State struct {
	Bucket          uint8        `json:"bucket"`
	Window          float64      `json:"time_window"` // achieved window, ps
	WindowIndex     uint8        `json:"time_window_raw"`
	LaserTrig       LaserSource  `json:"laser_trig"`
	RingRF          RingRFSource `json:"ring_rf_source"`
	OffsetFine      int          `json:"offset_fine"`
	PhaseCounter    int          `json:"phase_counter"`
	Quadrant        int          `json:"quadrant"`
	OffsetCoarse    uint8        `json:"offset_coarse"`
	TriggerPaused   bool         `json:"trigger_paused"`
	AvgPhaseAdvance float64      `json:"avg_phase_advance"` // ps per count
}

// Controller drives the coincidence trigger generator.
//
// All operations are serialized: each one holds the controller lock from
// validation until the device state is updated.
type Controller struct {
	msg     *log.Logger
	sink    Sink
	verbose bool
	sleep   func(time.Duration)

	prof   Profile
	pins   PinMap
	wire   []int // data then mode pins
	strobe []int
	settle time.Duration
	delays *DelayTable

	mu    sync.Mutex
	dev   gpio.Backend
	state State
}

// New creates a controller driving dev with the wire protocol of prof.
//
// New configures every bus line as output, then selects bucket 0 and
// the smallest coincidence window.
func New(dev gpio.Backend, prof Profile, opts ...Option) (*Controller, error) {
	if dev == nil {
		return nil, fmt.Errorf("coinc: nil GPIO backend")
	}
	err := prof.validate()
	if err != nil {
		return nil, err
	}
	prof = prof.clone()

	cfg := newConfig(prof)
	for _, opt := range opts {
		opt(&cfg)
	}

	pins, err := newPinMap(prof, cfg.pins.data, cfg.pins.mode, cfg.pins.strobe)
	if err != nil {
		return nil, err
	}

	ctl := &Controller{
		msg:     cfg.msg,
		sink:    cfg.sink,
		verbose: cfg.verbose,
		sleep:   cfg.sleep,
		prof:    prof,
		pins:    pins,
		strobe:  []int{pins.Strobe},
		settle:  cfg.settle,
		delays:  NewDelayTable(cfg.taps),
		dev:     dev,
	}
	ctl.wire = append(ctl.wire, pins.Data[:]...)
	ctl.wire = append(ctl.wire, pins.Mode...)
	ctl.state.AvgPhaseAdvance = cfg.avg

	ctl.msg.Printf("profile %q: data pins %v, mode pins %v, strobe pin %d",
		prof.Name, pins.Data, pins.Mode, pins.Strobe,
	)

	err = ctl.init()
	if err != nil {
		return nil, err
	}

	return ctl, nil
}

func newPinMap(prof Profile, data, mode []int, strobe int) (PinMap, error) {
	var pins PinMap
	if len(data) != len(pins.Data) {
		return pins, fmt.Errorf("coinc: invalid number of data pins (got=%d, want=%d)",
			len(data), len(pins.Data),
		)
	}
	if len(mode) != prof.ModeLines {
		return pins, fmt.Errorf("coinc: invalid number of mode pins for profile %q (got=%d, want=%d)",
			prof.Name, len(mode), prof.ModeLines,
		)
	}

	copy(pins.Data[:], data)
	pins.Mode = append([]int(nil), mode...)
	pins.Strobe = strobe

	seen := make(map[int]string, len(data)+len(mode)+1)
	use := func(pin int, role string) error {
		if pin < 0 {
			return fmt.Errorf("coinc: invalid pin %d for %s", pin, role)
		}
		if dup, ok := seen[pin]; ok {
			return fmt.Errorf("coinc: pin %d assigned to both %s and %s", pin, dup, role)
		}
		seen[pin] = role
		return nil
	}
	for i, pin := range pins.Data {
		if err := use(pin, "d"+strconv.Itoa(i)); err != nil {
			return pins, err
		}
	}
	for i, pin := range pins.Mode {
		if err := use(pin, "m"+strconv.Itoa(i)); err != nil {
			return pins, err
		}
	}
	if err := use(pins.Strobe, "strobe"); err != nil {
		return pins, err
	}

	return pins, nil
}

func (ctl *Controller) init() error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	ctl.msg.Printf("initializing pins to output")
	for _, pin := range ctl.wire {
		ctl.dev.Configure(pin, gpio.Output)
	}
	ctl.dev.Configure(ctl.pins.Strobe, gpio.Output)
	if err := ctl.dev.Err(); err != nil {
		return fmt.Errorf("coinc: could not configure GPIO pins: %w", err)
	}

	idx, achieved := ctl.delays.Quantize(0)
	ctl.writeWord(CmdBucket, 0)
	ctl.writeWord(CmdWindow, idx)
	ctl.state.Window = achieved
	ctl.state.WindowIndex = idx

	if err := ctl.dev.Err(); err != nil {
		return fmt.Errorf("coinc: could not write initial bucket and window: %w", err)
	}
	return nil
}

// writeWord strobes data under the mode code of cmd into the FPGA.
// The caller must hold the lock and have checked that the profile has cmd.
func (ctl *Controller) writeWord(cmd Cmd, data uint8) {
	mode := ctl.prof.Modes[cmd] & ctl.prof.modeMask()
	if ctl.verbose {
		ctl.msg.Printf("writing byte %d, mode %d (%v)", data, mode, cmd)
	}

	levels := make([]uint8, len(ctl.wire))
	for i := range ctl.pins.Data {
		levels[i] = (data >> uint(i)) & 1
	}
	for i := range ctl.pins.Mode {
		levels[len(ctl.pins.Data)+i] = (mode >> uint(i)) & 1
	}

	ctl.dev.Write(ctl.wire, levels)
	ctl.sleep(ctl.settle)
	ctl.dev.Write(ctl.strobe, []uint8{1})
	ctl.sleep(ctl.settle)
	ctl.dev.Write(ctl.strobe, []uint8{0})

	ctl.emit(Event{Kind: EventWrite, Cmd: cmd, Data: data, Mode: mode})
}

func (ctl *Controller) emit(evt Event) {
	if ctl.sink == nil {
		return
	}
	ctl.sink(evt)
}

func (ctl *Controller) commit(op string, v interface{}) {
	ctl.emit(Event{Kind: EventCommit, Op: op, Value: fmt.Sprint(v)})
}

func (ctl *Controller) reject(op string, v interface{}, err error) error {
	ctl.emit(Event{Kind: EventReject, Op: op, Value: fmt.Sprint(v), Err: err})
	return err
}

// Profile returns the hardware profile driven by the controller.
func (ctl *Controller) Profile() Profile {
	return ctl.prof.clone()
}

// Pins returns the pin map of the control bus.
func (ctl *Controller) Pins() PinMap {
	pins := ctl.pins
	pins.Mode = append([]int(nil), ctl.pins.Mode...)
	return pins
}

// Delays returns the table of achievable coincidence windows.
func (ctl *Controller) Delays() DelayTable {
	return *ctl.delays
}

// Err returns the first failure reported by the GPIO backend, if any.
func (ctl *Controller) Err() error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.dev.Err()
}

// State returns a snapshot of the device state.
func (ctl *Controller) State() State {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state
}

// SetBucket selects the target bucket.
//
// The bucket word combines the bucket with the stored coarse offset and
// must fit in a byte.
func (ctl *Controller) SetBucket(bucket uint8) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.setBucket(bucket)
}

func (ctl *Controller) setBucket(bucket uint8) error {
	word, err := ctl.bucketWord(int(bucket), int(ctl.state.OffsetCoarse))
	if err != nil {
		return ctl.reject("bucket", bucket, err)
	}

	ctl.msg.Printf("selecting bucket %d (word=%d)", bucket, word)
	ctl.writeWord(CmdBucket, word)
	ctl.state.Bucket = bucket
	ctl.commit("bucket", bucket)
	return nil
}

func (ctl *Controller) Bucket() uint8 {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state.Bucket
}

// SetOffsetCoarse sets the coarse offset added to the bucket word, to
// compensate for ring fill-rate drift.
func (ctl *Controller) SetOffsetCoarse(offset uint8) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.setOffsetCoarse(offset)
}

func (ctl *Controller) setOffsetCoarse(offset uint8) error {
	if !ctl.prof.Coarse {
		return ctl.reject("offset_coarse", offset, errUnsupported("set coarse offset", ctl.prof))
	}

	word, err := ctl.bucketWord(int(ctl.state.Bucket), int(offset))
	if err != nil {
		return ctl.reject("offset_coarse", offset, err)
	}

	ctl.msg.Printf("coarse offset %d (bucket=%d, word=%d)", offset, ctl.state.Bucket, word)
	ctl.writeWord(CmdBucket, word)
	ctl.state.OffsetCoarse = offset
	ctl.commit("offset_coarse", offset)
	return nil
}

func (ctl *Controller) OffsetCoarse() uint8 {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state.OffsetCoarse
}

func (ctl *Controller) bucketWord(bucket, coarse int) (uint8, error) {
	word := bucket*ctl.prof.BucketStep + coarse
	err := checkRange("bucket word", word, 0, 0xff)
	if err != nil {
		return 0, err
	}
	return uint8(word), nil
}

// SetWindow sets the coincidence window to the achievable delay closest
// to ps. The achieved delay, not ps, becomes the window value.
func (ctl *Controller) SetWindow(ps float64) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.quantizeWindow(ps)
}

func (ctl *Controller) quantizeWindow(ps float64) {
	idx, achieved := ctl.delays.Quantize(ps)
	ctl.msg.Printf("wanted delay %v ps, closest possible: %v ps (index=%d)", ps, achieved, idx)
	ctl.setWindow(idx, achieved)
}

// SetWindowRaw writes the delay table index directly.
func (ctl *Controller) SetWindowRaw(idx uint8) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.setWindowRaw(idx)
}

func (ctl *Controller) setWindowRaw(idx uint8) {
	ctl.msg.Printf("writing delay raw number %d (%v ps)", idx, ctl.delays[idx])
	ctl.setWindow(idx, ctl.delays[idx])
}

func (ctl *Controller) setWindow(idx uint8, achieved float64) {
	ctl.writeWord(CmdWindow, idx)
	ctl.state.Window = achieved
	ctl.state.WindowIndex = idx
	ctl.commit("time_window", achieved)
}

// Window returns the achieved coincidence window, in ps.
func (ctl *Controller) Window() float64 {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state.Window
}

// SetLaserTrig selects the laser trigger source.
// See ParseLaserSource for how src is matched.
func (ctl *Controller) SetLaserTrig(src string) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.setLaserTrig(src)
}

func (ctl *Controller) setLaserTrig(src string) error {
	if !ctl.prof.Has(CmdLaserTrig) {
		return ctl.reject("laser_trig", src, errUnsupported("select laser trigger source", ctl.prof))
	}

	v := ParseLaserSource(src)
	ctl.msg.Printf("laser trigger source %v (from %q)", v, src)
	ctl.writeWord(CmdLaserTrig, uint8(v))
	ctl.state.LaserTrig = v
	ctl.commit("laser_trig", v)
	return nil
}

// LaserTrig returns the canonical name of the laser trigger source.
func (ctl *Controller) LaserTrig() string {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state.LaserTrig.String()
}

// SetRingRFSource selects the ring RF reference.
// See ParseRingRFSource for how src is matched.
func (ctl *Controller) SetRingRFSource(src string) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.setRingRFSource(src)
}

func (ctl *Controller) setRingRFSource(src string) error {
	if !ctl.prof.Has(CmdRingRF) {
		return ctl.reject("ring_rf_source", src, errUnsupported("select ring RF source", ctl.prof))
	}

	v := ParseRingRFSource(src)
	ctl.msg.Printf("ring RF source %v (from %q)", v, src)
	ctl.writeWord(CmdRingRF, uint8(v))
	ctl.state.RingRF = v
	ctl.commit("ring_rf_source", v)
	return nil
}

// RingRFSource returns the canonical name of the ring RF source.
func (ctl *Controller) RingRFSource() string {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state.RingRF.String()
}

// SetTriggerPaused suspends (or resumes) triggering.
func (ctl *Controller) SetTriggerPaused(paused bool) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.setTriggerPaused(paused)
}

func (ctl *Controller) setTriggerPaused(paused bool) error {
	if !ctl.prof.Has(CmdPauseTrig) {
		return ctl.reject("trigger_paused", paused, errUnsupported("pause triggering", ctl.prof))
	}

	ctl.msg.Printf("trigger paused: %v", paused)
	ctl.pause(paused)
	ctl.commit("trigger_paused", paused)
	return nil
}

func (ctl *Controller) TriggerPaused() bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state.TriggerPaused
}

func (ctl *Controller) pause(paused bool) {
	var v uint8
	if paused {
		v = 1
	}
	ctl.writeWord(CmdPauseTrig, v)
	ctl.state.TriggerPaused = paused
}

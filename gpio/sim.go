// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpio

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// OpKind describes a recorded simulator call.
type OpKind uint8

const (
	OpConfigure OpKind = iota
	OpWrite
)

// Op is one call recorded by the simulator.
type Op struct {
	Kind   OpKind
	Dir    Direction // only for OpConfigure
	Pins   []int
	Levels []uint8 // only for OpWrite
}

// Sim is a no-op backend: it logs calls instead of driving hardware
// and keeps a journal of every call.
type Sim struct {
	msg *log.Logger

	mu     sync.Mutex
	err    error
	dirs   map[int]Direction
	levels map[int]uint8
	ops    []Op
}

// NewSim returns a simulated backend logging to msg.
// A nil logger discards messages.
func NewSim(msg *log.Logger) *Sim {
	if msg == nil {
		msg = log.New(io.Discard, "", 0)
	}
	return &Sim{
		msg:    msg,
		dirs:   make(map[int]Direction),
		levels: make(map[int]uint8),
	}
}

func (sim *Sim) Configure(pin int, dir Direction) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.err != nil {
		return
	}
	sim.msg.Printf("configure pin=%d dir=%v", pin, dir)
	sim.dirs[pin] = dir
	sim.ops = append(sim.ops, Op{Kind: OpConfigure, Dir: dir, Pins: []int{pin}})
}

func (sim *Sim) Write(pins []int, levels []uint8) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.err != nil {
		return
	}
	if err := checkWrite(pins, levels); err != nil {
		sim.err = err
		return
	}
	for _, pin := range pins {
		if sim.dirs[pin] != Output {
			sim.err = fmt.Errorf("gpio: write to pin %d not configured as output", pin)
			return
		}
	}

	sim.msg.Printf("write pins=%v levels=%v", pins, levels)
	op := Op{
		Kind:   OpWrite,
		Pins:   append([]int(nil), pins...),
		Levels: make([]uint8, len(levels)),
	}
	for i, pin := range pins {
		lvl := levels[i] & 1
		op.Levels[i] = lvl
		sim.levels[pin] = lvl
	}
	sim.ops = append(sim.ops, op)
}

func (sim *Sim) Err() error {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.err
}

func (sim *Sim) Close() error {
	return nil
}

// Fail makes the simulator behave as a failed hardware backend:
// Err returns err and further calls are ignored.
func (sim *Sim) Fail(err error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	if sim.err == nil {
		sim.err = err
	}
}

// Level returns the last level written to pin.
func (sim *Sim) Level(pin int) uint8 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.levels[pin]
}

// Direction returns the configured direction of pin.
func (sim *Sim) Direction(pin int) (Direction, bool) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	dir, ok := sim.dirs[pin]
	return dir, ok
}

// Ops returns a copy of the call journal.
func (sim *Sim) Ops() []Op {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return append([]Op(nil), sim.ops...)
}

// Reset clears the call journal.
func (sim *Sim) Reset() {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.ops = sim.ops[:0]
}

var _ Backend = (*Sim)(nil)

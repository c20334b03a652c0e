// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"fmt"
	"sort"
	"strings"
)

// Cmd is a logical command transmitted on the mode-select lines.
type Cmd uint8

const (
	CmdBucket Cmd = iota
	CmdWindow
	CmdLaserTrig
	CmdPauseTrig
	CmdIncPhase
	CmdDecPhase
	CmdQuadrature
	CmdRingRF
)

var cmdNames = [...]string{
	CmdBucket:     "bucket",
	CmdWindow:     "window",
	CmdLaserTrig:  "laser_trig_source",
	CmdPauseTrig:  "pause_trig",
	CmdIncPhase:   "inc_phase",
	CmdDecPhase:   "dec_phase",
	CmdQuadrature: "quadrature",
	CmdRingRF:     "ring_rf_source",
}

func (cmd Cmd) String() string {
	if int(cmd) < len(cmdNames) {
		return cmdNames[cmd]
	}
	return fmt.Sprintf("Cmd(%d)", uint8(cmd))
}

// PhaseMode describes how a hardware revision moves its fine-phase counter.
type PhaseMode uint8

const (
	PhaseNone       PhaseMode = iota // no fine-phase control
	PhasePlain                       // signed inc/dec steps
	PhaseQuadrature                  // inc/dec steps within a quadrant, plus a quadrant selector
)

// Profile describes the wire protocol of one FPGA firmware revision.
type Profile struct {
	Name string

	ModeLines int           // number of mode-select lines
	Modes     map[Cmd]uint8 // mode code of each supported command

	BucketStep int  // bucket multiplier in the bucket word
	Coarse     bool // whether the bucket word carries a coarse offset

	Phase          PhaseMode
	PhaseStepMax   int  // largest |delta| per fine-offset call
	Quadrants      int  // number of quadrature positions
	QuadrantCounts int  // fine-phase counts per quadrant
	Resume         bool // re-enable triggering after a fine-offset sequence

	DefModePins []int // default mode pins, board numbering
}

// Has returns whether the profile has a mode code for cmd.
func (p Profile) Has(cmd Cmd) bool {
	_, ok := p.Modes[cmd]
	return ok
}

func (p Profile) modeMask() uint8 {
	return uint8(1<<uint(p.ModeLines) - 1)
}

func (p Profile) clone() Profile {
	o := p
	o.Modes = make(map[Cmd]uint8, len(p.Modes))
	for k, v := range p.Modes {
		o.Modes[k] = v
	}
	o.DefModePins = append([]int(nil), p.DefModePins...)
	return o
}

// RevA is the first firmware: one mode line, bucket and window only.
func RevA() Profile {
	return Profile{
		Name:      "rev-a",
		ModeLines: 1,
		Modes: map[Cmd]uint8{
			CmdBucket: 0,
			CmdWindow: 1,
		},
		BucketStep:  1,
		Phase:       PhaseNone,
		DefModePins: []int{32},
	}
}

// RevB adds the laser trigger source and a quadrature-based fine phase.
func RevB() Profile {
	return Profile{
		Name:      "rev-b",
		ModeLines: 4,
		Modes: map[Cmd]uint8{
			CmdBucket:     0,
			CmdWindow:     1,
			CmdLaserTrig:  2,
			CmdPauseTrig:  3,
			CmdIncPhase:   4,
			CmdDecPhase:   5,
			CmdQuadrature: 6,
		},
		BucketStep:     1,
		Phase:          PhaseQuadrature,
		PhaseStepMax:   150,
		Quadrants:      4,
		QuadrantCounts: 150,
		Resume:         true,
		DefModePins:    []int{32, 18, 16, 15},
	}
}

// RevC adds the ring RF source, the coarse offset and byte-wide phase steps.
//
// The fine-offset sequence of this revision leaves triggering paused.
func RevC() Profile {
	return Profile{
		Name:      "rev-c",
		ModeLines: 4,
		Modes: map[Cmd]uint8{
			CmdBucket:    0,
			CmdWindow:    1,
			CmdLaserTrig: 2,
			CmdPauseTrig: 3,
			CmdIncPhase:  4,
			CmdDecPhase:  5,
			CmdRingRF:    6,
		},
		BucketStep:   4,
		Coarse:       true,
		Phase:        PhasePlain,
		PhaseStepMax: 255,
		Resume:       false,
		DefModePins:  []int{32, 18, 16, 15},
	}
}

// Profiles returns all known hardware profiles.
func Profiles() []Profile {
	return []Profile{RevA(), RevB(), RevC()}
}

// ProfileByName returns the hardware profile with the provided name.
func ProfileByName(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range Profiles() {
		if p.Name == key {
			return p, nil
		}
	}
	names := make([]string, 0, 3)
	for _, p := range Profiles() {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return Profile{}, fmt.Errorf(
		"coinc: unknown hardware profile %q (known: %s)",
		name, strings.Join(names, ", "),
	)
}

func (p Profile) validate() error {
	if p.ModeLines < 1 || p.ModeLines > 8 {
		return fmt.Errorf("coinc: profile %q: invalid number of mode lines %d", p.Name, p.ModeLines)
	}
	if !p.Has(CmdBucket) || !p.Has(CmdWindow) {
		return fmt.Errorf("coinc: profile %q: missing bucket/window mode codes", p.Name)
	}
	for cmd, code := range p.Modes {
		if code&^p.modeMask() != 0 {
			return fmt.Errorf(
				"coinc: profile %q: mode code %d of %v does not fit in %d lines",
				p.Name, code, cmd, p.ModeLines,
			)
		}
	}
	if p.BucketStep < 1 {
		return fmt.Errorf("coinc: profile %q: invalid bucket step %d", p.Name, p.BucketStep)
	}
	switch p.Phase {
	case PhaseNone:
	case PhasePlain:
		if !p.Has(CmdPauseTrig) || !p.Has(CmdIncPhase) || !p.Has(CmdDecPhase) {
			return fmt.Errorf("coinc: profile %q: missing phase mode codes", p.Name)
		}
	case PhaseQuadrature:
		if !p.Has(CmdPauseTrig) || !p.Has(CmdIncPhase) || !p.Has(CmdDecPhase) || !p.Has(CmdQuadrature) {
			return fmt.Errorf("coinc: profile %q: missing quadrature phase mode codes", p.Name)
		}
		if p.Quadrants < 1 || p.Quadrants > 0x100 || p.QuadrantCounts < 1 {
			return fmt.Errorf("coinc: profile %q: invalid quadrature layout", p.Name)
		}
	default:
		return fmt.Errorf("coinc: profile %q: invalid phase mode %d", p.Name, p.Phase)
	}
	if p.Phase != PhaseNone && (p.PhaseStepMax < 1 || p.PhaseStepMax > 0xff) {
		return fmt.Errorf("coinc: profile %q: invalid phase step bound %d", p.Name, p.PhaseStepMax)
	}
	return nil
}

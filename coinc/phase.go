// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import "math"

// SetOffsetFine moves the FPGA fine-phase counter to target, and returns
// the corresponding phase shift (target times the average phase advance
// per count, in ps).
//
// Triggering is paused while the counter moves. Profiles without
// Resume leave it paused afterwards.
func (ctl *Controller) SetOffsetFine(target int) (float64, error) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.setOffsetFine(target)
}

func (ctl *Controller) setOffsetFine(target int) (float64, error) {
	const op = "offset_fine"
	if ctl.prof.Phase == PhaseNone {
		return 0, ctl.reject(op, target, errUnsupported("set fine offset", ctl.prof))
	}

	counter, quadrant, err := ctl.phaseTarget(target)
	if err != nil {
		return 0, ctl.reject(op, target, err)
	}

	delta := counter - ctl.state.PhaseCounter
	err = checkRange("offset_fine step", delta, -ctl.prof.PhaseStepMax, +ctl.prof.PhaseStepMax)
	if err != nil {
		return 0, ctl.reject(op, target, err)
	}

	ctl.msg.Printf("fine offset %d: phase counter %d -> %d (delta=%+d, quadrant=%d)",
		target, ctl.state.PhaseCounter, counter, delta, quadrant,
	)

	ctl.pause(true)
	switch {
	case delta > 0:
		ctl.writeWord(CmdIncPhase, uint8(delta))
	default:
		ctl.writeWord(CmdDecPhase, uint8(-delta))
	}
	if ctl.prof.Phase == PhaseQuadrature {
		ctl.writeWord(CmdQuadrature, uint8(quadrant))
	}
	if ctl.prof.Resume {
		ctl.pause(false)
	}

	ctl.state.PhaseCounter = counter
	ctl.state.Quadrant = quadrant
	ctl.state.OffsetFine = target
	ctl.commit(op, target)

	return float64(target) * ctl.state.AvgPhaseAdvance, nil
}

// SeekOffsetFine moves the fine offset to target like SetOffsetFine, in
// as many steps as needed to keep each one within the profile's
// PhaseStepMax.
func (ctl *Controller) SeekOffsetFine(target int) (float64, error) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.seekOffsetFine(target)
}

func (ctl *Controller) seekOffsetFine(target int) (float64, error) {
	const op = "offset_fine"
	if ctl.prof.Phase == PhaseNone {
		return 0, ctl.reject(op, target, errUnsupported("set fine offset", ctl.prof))
	}

	counter, _, err := ctl.phaseTarget(target)
	if err != nil {
		return 0, ctl.reject(op, target, err)
	}

	step := ctl.prof.PhaseStepMax
	for {
		// quadrature counters never need more than one step.
		next := target
		switch delta := counter - ctl.state.PhaseCounter; {
		case delta > step:
			next = ctl.state.PhaseCounter + step
		case delta < -step:
			next = ctl.state.PhaseCounter - step
		}

		shift, err := ctl.setOffsetFine(next)
		if err != nil {
			return 0, err
		}
		if next == target {
			if ctl.state.TriggerPaused {
				ctl.msg.Printf("fine offset %d reached: triggering left paused", target)
			}
			return shift, nil
		}
	}
}

// phaseTarget splits target into the fine-phase counter value and the
// quadrant, for the profile's phase mode.
func (ctl *Controller) phaseTarget(target int) (counter, quadrant int, err error) {
	switch ctl.prof.Phase {
	case PhaseQuadrature:
		n := ctl.prof.QuadrantCounts
		err = checkRange("offset_fine", target, 0, ctl.prof.Quadrants*n-1)
		if err != nil {
			return 0, 0, err
		}
		return target % n, target / n, nil
	default:
		err = checkRange("offset_fine", target, 0, math.MaxInt)
		if err != nil {
			return 0, 0, err
		}
		return target, 0, nil
	}
}

// OffsetFine returns the last fine offset target.
func (ctl *Controller) OffsetFine() int {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state.OffsetFine
}

// SetAvgPhaseAdvance sets the average phase advance per fine-phase count, in ps.
func (ctl *Controller) SetAvgPhaseAdvance(ps float64) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.setAvgPhaseAdvance(ps)
}

func (ctl *Controller) setAvgPhaseAdvance(ps float64) {
	ctl.state.AvgPhaseAdvance = ps
	ctl.commit("avg_phase_advance", ps)
}

func (ctl *Controller) AvgPhaseAdvance() float64 {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state.AvgPhaseAdvance
}

// PhaseShift returns the estimated phase shift of the current fine offset, in ps.
func (ctl *Controller) PhaseShift() float64 {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return float64(ctl.state.OffsetFine) * ctl.state.AvgPhaseAdvance
}

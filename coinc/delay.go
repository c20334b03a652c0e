// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import "math"

// Taps are the binary-weighted delay taps of the coincidence window, in ps.
// Bit b of a window index enables Taps[b].
var Taps = [8]float64{16, 77, 140, 166, 231, 292, 343, 424}

// DelayTable holds every achievable coincidence window, indexed by the
// byte written under the window mode code.
type DelayTable [256]float64

// NewDelayTable builds the table of achievable delays from 8 taps.
func NewDelayTable(taps [8]float64) *DelayTable {
	var tbl DelayTable
	for i := range tbl {
		var sum float64
		for b, tap := range taps {
			if (i>>uint(b))&1 == 1 {
				sum += tap
			}
		}
		tbl[i] = sum
	}
	return &tbl
}

// Quantize returns the index of the achievable delay closest to ps and
// that delay. The lowest index wins on ties.
func (tbl *DelayTable) Quantize(ps float64) (uint8, float64) {
	var (
		idx  = 0
		dmin = math.Inf(+1)
	)
	for i, v := range tbl {
		d := math.Abs(v - ps)
		if d < dmin {
			idx = i
			dmin = d
		}
	}
	return uint8(idx), tbl[idx]
}

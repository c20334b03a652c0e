// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"encoding/json"
	"testing"
)

func TestParseSources(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want LaserSource
	}{
		{"coincidence", LaserCoincidence},
		{"COINCIDENCE_MODE", LaserCoincidence},
		{"use-coin", LaserCoincidence},
		{"mrf", LaserMRF},
		{"MRF", LaserMRF},
		{"", LaserMRF},
		{"coincidnce", LaserMRF},
	} {
		if got := ParseLaserSource(tc.src); got != tc.want {
			t.Fatalf("laser %q: got=%v, want=%v", tc.src, got, tc.want)
		}
	}

	for _, tc := range []struct {
		src  string
		want RingRFSource
	}{
		{"rev_clock", RingRFRevClock},
		{"REV", RingRFRevClock},
		{"100MHz", RingRF100MHz},
		{"100MHZ", RingRF100MHz},
		{"", RingRF100MHz},
	} {
		if got := ParseRingRFSource(tc.src); got != tc.want {
			t.Fatalf("ring RF %q: got=%v, want=%v", tc.src, got, tc.want)
		}
	}

	if got, want := LaserSource(7).String(), "LaserSource(7)"; got != want {
		t.Fatalf("got=%q, want=%q", got, want)
	}
	if got, want := RingRFSource(7).String(), "RingRFSource(7)"; got != want {
		t.Fatalf("got=%q, want=%q", got, want)
	}
}

func TestSourcesJSON(t *testing.T) {
	st := State{LaserTrig: LaserCoincidence, RingRF: RingRFRevClock}
	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("could not marshal state: %+v", err)
	}

	var v map[string]interface{}
	err = json.Unmarshal(raw, &v)
	if err != nil {
		t.Fatalf("could not unmarshal state: %+v", err)
	}
	if got, want := v["laser_trig"], "COINCIDENCE"; got != want {
		t.Fatalf("invalid laser source: got=%v, want=%v", got, want)
	}
	if got, want := v["ring_rf_source"], "REV_CLOCK"; got != want {
		t.Fatalf("invalid ring RF source: got=%v, want=%v", got, want)
	}
}

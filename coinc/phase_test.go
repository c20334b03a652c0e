// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"errors"
	"testing"
)

func TestOffsetFinePlain(t *testing.T) {
	ctl, sim := newTestController(t, RevC())

	for _, tc := range []struct {
		target int
		words  []word
	}{
		{100, []word{{1, 3}, {100, 4}}},
		{30, []word{{1, 3}, {70, 5}}},
		{30, []word{{1, 3}, {0, 5}}},
		{285, []word{{1, 3}, {255, 4}}},
	} {
		sim.Reset()
		shift, err := ctl.SetOffsetFine(tc.target)
		if err != nil {
			t.Fatalf("target=%d: could not set fine offset: %+v", tc.target, err)
		}
		if got, want := shift, float64(tc.target); got != want {
			t.Fatalf("target=%d: invalid phase shift: got=%v, want=%v", tc.target, got, want)
		}
		checkWords(t, ctl, sim, tc.words...)

		if got, want := ctl.OffsetFine(), tc.target; got != want {
			t.Fatalf("invalid fine offset: got=%d, want=%d", got, want)
		}
		st := ctl.State()
		if got, want := st.PhaseCounter, tc.target; got != want {
			t.Fatalf("invalid phase counter: got=%d, want=%d", got, want)
		}
		// this revision never resumes triggering.
		if !st.TriggerPaused {
			t.Fatalf("triggering should be left paused")
		}
	}
}

func TestOffsetFineQuadrature(t *testing.T) {
	ctl, sim := newTestController(t, RevB())

	for _, tc := range []struct {
		target   int
		counter  int
		quadrant int
		words    []word
	}{
		{100, 100, 0, []word{{1, 3}, {100, 4}, {0, 6}, {0, 3}}},
		{30, 30, 0, []word{{1, 3}, {70, 5}, {0, 6}, {0, 3}}},
		{160, 10, 1, []word{{1, 3}, {20, 5}, {1, 6}, {0, 3}}},
		{599, 149, 3, []word{{1, 3}, {139, 4}, {3, 6}, {0, 3}}},
		{450, 0, 3, []word{{1, 3}, {149, 5}, {3, 6}, {0, 3}}},
	} {
		sim.Reset()
		_, err := ctl.SetOffsetFine(tc.target)
		if err != nil {
			t.Fatalf("target=%d: could not set fine offset: %+v", tc.target, err)
		}
		checkWords(t, ctl, sim, tc.words...)

		st := ctl.State()
		if st.OffsetFine != tc.target || st.PhaseCounter != tc.counter || st.Quadrant != tc.quadrant {
			t.Fatalf(
				"target=%d: got=(offset=%d, counter=%d, quadrant=%d), want=(offset=%d, counter=%d, quadrant=%d)",
				tc.target,
				st.OffsetFine, st.PhaseCounter, st.Quadrant,
				tc.target, tc.counter, tc.quadrant,
			)
		}
		if st.TriggerPaused {
			t.Fatalf("target=%d: triggering should have been resumed", tc.target)
		}
	}
}

func TestOffsetFineErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		prof   Profile
		prev   []int
		target int
		want   error
	}{
		{name: "rev-a", prof: RevA(), target: 1, want: ErrUnsupported},
		{name: "rev-b-negative", prof: RevB(), target: -1, want: ErrRange},
		{name: "rev-b-overflow", prof: RevB(), target: 600, want: ErrRange},
		{name: "rev-c-negative", prof: RevC(), target: -1, want: ErrRange},
		{name: "rev-c-step-up", prof: RevC(), target: 256, want: ErrRange},
		{name: "rev-c-step-down", prof: RevC(), prev: []int{200, 400}, target: 100, want: ErrRange},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctl, sim := newTestController(t, tc.prof)
			for _, v := range tc.prev {
				_, err := ctl.SetOffsetFine(v)
				if err != nil {
					t.Fatalf("could not set fine offset %d: %+v", v, err)
				}
			}
			before := ctl.State()
			sim.Reset()

			_, err := ctl.SetOffsetFine(tc.target)
			if !errors.Is(err, tc.want) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, tc.want)
			}
			checkWords(t, ctl, sim)

			if got := ctl.State(); got != before {
				t.Fatalf("state modified by failed call:\ngot= %+v\nwant=%+v", got, before)
			}
		})
	}
}

func TestPhaseAdvance(t *testing.T) {
	ctl, sim := newTestController(t, RevC(), WithAvgPhaseAdvance(2.5))

	if got, want := ctl.AvgPhaseAdvance(), 2.5; got != want {
		t.Fatalf("invalid phase advance: got=%v, want=%v", got, want)
	}

	shift, err := ctl.SetOffsetFine(40)
	if err != nil {
		t.Fatalf("could not set fine offset: %+v", err)
	}
	if got, want := shift, 100.0; got != want {
		t.Fatalf("invalid phase shift: got=%v, want=%v", got, want)
	}
	if got, want := ctl.PhaseShift(), 100.0; got != want {
		t.Fatalf("invalid phase shift: got=%v, want=%v", got, want)
	}

	sim.Reset()
	ctl.SetAvgPhaseAdvance(0.5)
	if got, want := ctl.PhaseShift(), 20.0; got != want {
		t.Fatalf("invalid phase shift: got=%v, want=%v", got, want)
	}
	checkWords(t, ctl, sim)
}

func TestSeekOffsetFine(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		ctl, sim := newTestController(t, RevC())

		for _, tc := range []struct {
			target int
			words  []word
		}{
			{300, []word{{1, 3}, {255, 4}, {1, 3}, {45, 4}}},
			{250, []word{{1, 3}, {50, 5}}},
			{250, []word{{1, 3}, {0, 5}}},
			{0, []word{{1, 3}, {250, 5}}},
			{520, []word{{1, 3}, {255, 4}, {1, 3}, {255, 4}, {1, 3}, {10, 4}}},
			{10, []word{{1, 3}, {255, 5}, {1, 3}, {255, 5}}},
		} {
			sim.Reset()
			shift, err := ctl.SeekOffsetFine(tc.target)
			if err != nil {
				t.Fatalf("target=%d: could not seek fine offset: %+v", tc.target, err)
			}
			if got, want := shift, float64(tc.target); got != want {
				t.Fatalf("target=%d: invalid phase shift: got=%v, want=%v", tc.target, got, want)
			}
			checkWords(t, ctl, sim, tc.words...)

			st := ctl.State()
			if st.OffsetFine != tc.target || st.PhaseCounter != tc.target {
				t.Fatalf("target=%d: invalid state: %+v", tc.target, st)
			}
			if !st.TriggerPaused {
				t.Fatalf("target=%d: triggering should be left paused", tc.target)
			}
		}
	})

	t.Run("quadrature", func(t *testing.T) {
		ctl, sim := newTestController(t, RevB())

		_, err := ctl.SeekOffsetFine(599)
		if err != nil {
			t.Fatalf("could not seek fine offset: %+v", err)
		}
		checkWords(t, ctl, sim, word{1, 3}, word{149, 4}, word{3, 6}, word{0, 3})

		st := ctl.State()
		if st.OffsetFine != 599 || st.PhaseCounter != 149 || st.Quadrant != 3 || st.TriggerPaused {
			t.Fatalf("invalid state: %+v", st)
		}
	})

	t.Run("errors", func(t *testing.T) {
		for _, tc := range []struct {
			prof   Profile
			target int
			want   error
		}{
			{RevA(), 10, ErrUnsupported},
			{RevB(), 600, ErrRange},
			{RevC(), -1, ErrRange},
		} {
			ctl, sim := newTestController(t, tc.prof)
			_, err := ctl.SeekOffsetFine(tc.target)
			if !errors.Is(err, tc.want) {
				t.Fatalf("%s: target=%d: invalid error: got=%+v, want=%+v", tc.prof.Name, tc.target, err, tc.want)
			}
			checkWords(t, ctl, sim)
		}
	})
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

func TestAttributes(t *testing.T) {
	for _, tc := range []struct {
		prof Profile
		memo []string
		all  []string
	}{
		{
			prof: RevA(),
			memo: []string{"avg_phase_advance", "bucket", "time_window"},
			all:  []string{"avg_phase_advance", "bucket", "time_window", "time_window_raw"},
		},
		{
			prof: RevB(),
			memo: []string{"avg_phase_advance", "bucket", "time_window", "laser_trig", "offset_fine"},
			all: []string{
				"avg_phase_advance", "bucket", "time_window", "time_window_raw",
				"laser_trig", "offset_fine", "trigger_paused",
			},
		},
		{
			prof: RevC(),
			memo: []string{
				"avg_phase_advance", "offset_coarse", "bucket", "time_window",
				"laser_trig", "ring_rf_source", "offset_fine",
			},
			all: []string{
				"avg_phase_advance", "offset_coarse", "bucket", "time_window", "time_window_raw",
				"laser_trig", "ring_rf_source", "offset_fine", "trigger_paused",
			},
		},
	} {
		t.Run(tc.prof.Name, func(t *testing.T) {
			if got, want := Attributes(tc.prof), tc.memo; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid memorized attributes:\ngot= %q\nwant=%q", got, want)
			}
			if got, want := AllAttributes(tc.prof), tc.all; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid attributes:\ngot= %q\nwant=%q", got, want)
			}
		})
	}
}

func TestMemorized(t *testing.T) {
	for _, tc := range []struct {
		name string
		want bool
	}{
		{"bucket", true},
		{" Time_Window ", true},
		{"time_window_raw", false},
		{"trigger_paused", false},
		{"offset_fine", true},
		{"no-such-attr", false},
	} {
		if got := Memorized(tc.name); got != tc.want {
			t.Fatalf("name=%q: got=%v, want=%v", tc.name, got, tc.want)
		}
	}
}

func TestSetGet(t *testing.T) {
	ctl, _ := newTestController(t, RevC())

	for _, tc := range []struct {
		name  string
		value string
		want  string
	}{
		{"bucket", "12", "12"},
		{"BUCKET", " 13 ", "13"},
		{"offset_coarse", "2", "2"},
		{"time_window", "50", "77"},
		{"time_window", "93.4", "93"},
		{"time_window_raw", "4", "4"},
		{"laser_trig", "coincidence_mode", "COINCIDENCE"},
		{"ring_rf_source", "rev_clock", "REV_CLOCK"},
		{"avg_phase_advance", "1.5", "1.5"},
		{"offset_fine", "99.6", "100"},
		{"trigger_paused", "false", "false"},
	} {
		v, err := ctl.Set(tc.name, tc.value)
		if err != nil {
			t.Fatalf("could not set %s=%q: %+v", tc.name, tc.value, err)
		}
		if v != tc.want {
			t.Fatalf("%s=%q: invalid canonical value: got=%q, want=%q", tc.name, tc.value, v, tc.want)
		}
		got, err := ctl.Get(tc.name)
		if err != nil {
			t.Fatalf("could not get %s: %+v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s=%q: got=%q, want=%q", tc.name, tc.value, got, tc.want)
		}
	}

	st := ctl.State()
	if got, want := st.Window, 140.0; got != want {
		t.Fatalf("invalid window: got=%v, want=%v", got, want)
	}
	if got, want := ctl.PhaseShift(), 150.0; got != want {
		t.Fatalf("invalid phase shift: got=%v, want=%v", got, want)
	}
}

func TestSetErrors(t *testing.T) {
	for _, tc := range []struct {
		prof  Profile
		name  string
		value string
		want  error
	}{
		{RevC(), "no-such-attr", "1", ErrUnknownAttribute},
		{RevC(), "bucket", "256", ErrRange},
		{RevC(), "bucket", "-1", ErrRange},
		{RevC(), "bucket", "64", ErrRange},
		{RevC(), "bucket", "x", strconv.ErrSyntax},
		{RevC(), "time_window", "1ps", strconv.ErrSyntax},
		{RevC(), "trigger_paused", "maybe", strconv.ErrSyntax},
		{RevA(), "laser_trig", "coincidence", ErrUnsupported},
		{RevA(), "offset_fine", "10", ErrUnsupported},
		{RevA(), "offset_coarse", "1", ErrUnsupported},
		{RevB(), "ring_rf_source", "rev", ErrUnsupported},
		{RevB(), "offset_fine", "600", ErrRange},
		{RevC(), "offset_fine", "300", ErrRange},
		{RevC(), "offset_fine", "NaN", ErrRange},
		{RevC(), "offset_fine", "+Inf", ErrRange},
		{RevC(), "offset_fine", "1e300", ErrRange},
		{RevC(), "time_window", "NaN", ErrRange},
		{RevC(), "time_window", "Inf", ErrRange},
		{RevC(), "avg_phase_advance", "-Inf", ErrRange},
	} {
		t.Run(tc.prof.Name+"-"+tc.name+"="+tc.value, func(t *testing.T) {
			ctl, sim := newTestController(t, tc.prof)
			_, err := ctl.Set(tc.name, tc.value)
			if !errors.Is(err, tc.want) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, tc.want)
			}
			checkWords(t, ctl, sim)
		})
	}
}

func TestRestoreAttr(t *testing.T) {
	ctl, sim := newTestController(t, RevC())

	v, err := ctl.Restore("offset_fine", "600")
	if err != nil {
		t.Fatalf("could not restore fine offset: %+v", err)
	}
	if got, want := v, "600"; got != want {
		t.Fatalf("invalid fine offset: got=%q, want=%q", got, want)
	}
	checkWords(t, ctl, sim,
		word{1, 3}, word{255, 4},
		word{1, 3}, word{255, 4},
		word{1, 3}, word{90, 4},
	)

	sim.Reset()
	v, err = ctl.Restore("bucket", "7")
	if err != nil {
		t.Fatalf("could not restore bucket: %+v", err)
	}
	if got, want := v, "7"; got != want {
		t.Fatalf("invalid bucket: got=%q, want=%q", got, want)
	}
	checkWords(t, ctl, sim, word{28, 0})
}

func TestGetErrors(t *testing.T) {
	ctl, _ := newTestController(t, RevA())

	for _, tc := range []struct {
		name string
		want error
	}{
		{"no-such-attr", ErrUnknownAttribute},
		{"laser_trig", ErrUnsupported},
		{"ring_rf_source", ErrUnsupported},
		{"offset_fine", ErrUnsupported},
		{"offset_coarse", ErrUnsupported},
		{"trigger_paused", ErrUnsupported},
	} {
		_, err := ctl.Get(tc.name)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: invalid error: got=%+v, want=%+v", tc.name, err, tc.want)
		}
	}

	got, err := ctl.Get("time_window")
	if err != nil {
		t.Fatalf("could not get window: %+v", err)
	}
	if want := "0"; got != want {
		t.Fatalf("invalid window: got=%q, want=%q", got, want)
	}
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memodb

import (
	"context"
	"database/sql/driver"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/ctg/coinc"
	"github.com/go-lpc/ctg/gpio"
	"github.com/go-lpc/ctg/internal/fakedb"
)

const dsn = "ctg:s3cr3t@tcp(localhost:3306)/ctg"

func init() {
	drvName = "fakedb"
}

func newController(t *testing.T, prof coinc.Profile) *coinc.Controller {
	t.Helper()
	ctl, err := coinc.New(gpio.NewSim(nil), prof, coinc.WithLogger(nil), coinc.WithSettle(0))
	if err != nil {
		t.Fatalf("could not create controller: %+v", err)
	}
	return ctl
}

func TestOpen(t *testing.T) {
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("could not open memodb: %+v", err)
	}
	defer db.Close()

	if got, want := db.name, "ctg"; got != want {
		t.Fatalf("invalid db name: got=%q, want=%q", got, want)
	}

	_, err = Open("not a dsn")
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestSave(t *testing.T) {
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("could not open memodb: %+v", err)
	}
	defer db.Close()

	var sess fakedb.Session
	err = fakedb.Run(context.Background(), &sess, func(ctx context.Context) error {
		err := db.Init(ctx)
		if err != nil {
			return err
		}
		err = db.Save(ctx, "bucket", "12")
		if err != nil {
			return err
		}
		return db.Save(ctx, "time_window", "77")
	})
	if err != nil {
		t.Fatalf("could not save settings: %+v", err)
	}

	if got, want := len(sess.Execs), 3; got != want {
		t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
	}
	if q := sess.Execs[0].Query; !strings.Contains(q, "CREATE TABLE IF NOT EXISTS settings") {
		t.Fatalf("invalid init statement: %q", q)
	}
	for i, want := range [][2]string{
		{"bucket", "12"},
		{"time_window", "77"},
	} {
		exec := sess.Execs[i+1]
		if !strings.HasPrefix(exec.Query, "REPLACE INTO settings") {
			t.Fatalf("invalid save statement: %q", exec.Query)
		}
		if got := exec.Args[:2]; !reflect.DeepEqual(got, []driver.Value{want[0], want[1]}) {
			t.Fatalf("invalid save arguments: got=%v, want=%v", got, want)
		}
	}
}

func TestSaveError(t *testing.T) {
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("could not open memodb: %+v", err)
	}
	defer db.Close()

	want := errors.New("table is read-only")
	sess := fakedb.Session{Err: want}
	err = fakedb.Run(context.Background(), &sess, func(ctx context.Context) error {
		return db.Save(ctx, "bucket", "12")
	})
	if !errors.Is(err, want) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, want)
	}
}

func TestSettings(t *testing.T) {
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("could not open memodb: %+v", err)
	}
	defer db.Close()

	sess := fakedb.Session{
		Rows: fakedb.Rows{
			Names: []string{"name", "value"},
			Values: [][]driver.Value{
				{"bucket", "12"},
				{"laser_trig", "COINCIDENCE"},
			},
		},
	}
	_ = fakedb.Run(context.Background(), &sess, func(ctx context.Context) error {
		got, err := db.Settings(ctx)
		if err != nil {
			t.Fatalf("could not retrieve settings: %+v", err)
		}

		want := []Setting{
			{Name: "bucket", Value: "12"},
			{Name: "laser_trig", Value: "COINCIDENCE"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid settings:\ngot= %+v\nwant=%+v", got, want)
		}
		return nil
	})
}

func TestRestore(t *testing.T) {
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("could not open memodb: %+v", err)
	}
	defer db.Close()

	sess := fakedb.Session{
		Rows: fakedb.Rows{
			Names: []string{"name", "value"},
			Values: [][]driver.Value{
				{"avg_phase_advance", "2"},
				{"bucket", "12"},
				{"laser_trig", "COINCIDENCE"},
				{"offset_coarse", "3"},
				{"offset_fine", "40"},
				{"ring_rf_source", "REV_CLOCK"},
				{"time_window", "77"},
				{"trigger_paused", "true"}, // not memorized
				{"unknown", "1"},
			},
		},
	}

	ctl := newController(t, coinc.RevC())
	err = fakedb.Run(context.Background(), &sess, func(ctx context.Context) error {
		return db.Restore(ctx, ctl)
	})
	if err != nil {
		t.Fatalf("could not restore settings: %+v", err)
	}

	st := ctl.State()
	want := coinc.State{
		Bucket:          12,
		Window:          77,
		WindowIndex:     2,
		LaserTrig:       coinc.LaserCoincidence,
		RingRF:          coinc.RingRFRevClock,
		OffsetFine:      40,
		PhaseCounter:    40,
		OffsetCoarse:    3,
		TriggerPaused:   true, // left paused by the fine offset sequence
		AvgPhaseAdvance: 2,
	}
	if st != want {
		t.Fatalf("invalid restored state:\ngot= %+v\nwant=%+v", st, want)
	}
	if got, want := ctl.PhaseShift(), 80.0; got != want {
		t.Fatalf("invalid phase shift: got=%v, want=%v", got, want)
	}
}

func TestRestoreFineOffset(t *testing.T) {
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("could not open memodb: %+v", err)
	}
	defer db.Close()

	// a fine offset reached through several moves on a live controller.
	live := newController(t, coinc.RevC())
	for _, v := range []int{200, 300} {
		_, err := live.SetOffsetFine(v)
		if err != nil {
			t.Fatalf("could not set fine offset %d: %+v", v, err)
		}
	}
	saved, err := live.Get("offset_fine")
	if err != nil {
		t.Fatalf("could not get fine offset: %+v", err)
	}

	sess := fakedb.Session{
		Rows: fakedb.Rows{
			Names: []string{"name", "value"},
			Values: [][]driver.Value{
				{"offset_fine", saved},
			},
		},
	}

	ctl := newController(t, coinc.RevC())
	err = fakedb.Run(context.Background(), &sess, func(ctx context.Context) error {
		return db.Restore(ctx, ctl)
	})
	if err != nil {
		t.Fatalf("could not restore settings: %+v", err)
	}

	if got, want := ctl.OffsetFine(), 300; got != want {
		t.Fatalf("invalid fine offset: got=%d, want=%d", got, want)
	}
	if got, want := ctl.State().PhaseCounter, 300; got != want {
		t.Fatalf("invalid phase counter: got=%d, want=%d", got, want)
	}
	if !ctl.TriggerPaused() {
		t.Fatalf("triggering should be left paused")
	}
}

func TestRestoreErrors(t *testing.T) {
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("could not open memodb: %+v", err)
	}
	defer db.Close()

	sess := fakedb.Session{
		Rows: fakedb.Rows{
			Names: []string{"name", "value"},
			Values: [][]driver.Value{
				{"bucket", "300"},
				{"laser_trig", "COINCIDENCE"}, // not on rev-a
				{"time_window", "93"},
			},
		},
	}

	ctl := newController(t, coinc.RevA())
	err = fakedb.Run(context.Background(), &sess, func(ctx context.Context) error {
		return db.Restore(ctx, ctl)
	})
	if !errors.Is(err, coinc.ErrRange) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, coinc.ErrRange)
	}
	if got, want := ctl.Window(), 93.0; got != want {
		t.Fatalf("restore stopped at first failure: got=%v, want=%v", got, want)
	}
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/ctg/coinc"
	"github.com/go-lpc/ctg/gpio"
)

// setting is an attribute assignment received with /config.
type setting struct {
	name  string
	value string
}

type node struct {
	name string
	cfg  coinc.Config
	msg  *log.Logger
	freq time.Duration // state publication period

	mu   sync.Mutex
	ctl  *coinc.Controller
	dev  gpio.Backend
	sets []setting

	data chan []byte
}

func newNode(name string, cfg coinc.Config, freq time.Duration) *node {
	return &node{
		name: name,
		cfg:  cfg,
		msg:  log.New(os.Stdout, "ctg-tdaq: ", 0),
		freq: freq,
		data: make(chan []byte, 16),
	}
}

// decodeSettings decodes a /config request body: a count followed by
// that many (name, value) string pairs.
func decodeSettings(body []byte) ([]setting, error) {
	if len(body) == 0 {
		return nil, nil
	}

	dec := tdaq.NewDecoder(bytes.NewReader(body))
	n := int(dec.ReadU32())
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("could not decode number of settings: %w", err)
	}
	if n > len(body) {
		return nil, fmt.Errorf("invalid number of settings %d", n)
	}

	sets := make([]setting, n)
	for i := range sets {
		sets[i].name = dec.ReadStr()
		sets[i].value = dec.ReadStr()
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("could not decode setting #%d: %w", i, err)
		}
		if sets[i].name == "" {
			return nil, fmt.Errorf("invalid empty attribute name for setting #%d", i)
		}
	}
	return sets, nil
}

// configure applies sets to the controller, or keeps them for /init when
// there is none yet. Only settings the controller accepted are kept.
func (dev *node) configure(sets []setting) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.ctl == nil {
		err := dev.check(sets)
		if err != nil {
			return err
		}
		dev.sets = append(dev.sets, sets...)
		return nil
	}

	for _, s := range sets {
		_, err := dev.ctl.Set(s.name, s.value)
		if err != nil {
			return fmt.Errorf("could not set %s=%q: %w", s.name, s.value, err)
		}
		dev.sets = append(dev.sets, s)
	}
	return nil
}

// check verifies that every setting names an attribute of the configured
// hardware profile.
func (dev *node) check(sets []setting) error {
	prof, err := dev.cfg.HardwareProfile()
	if err != nil {
		return fmt.Errorf("could not find hardware profile: %w", err)
	}

	names := make(map[string]bool)
	for _, name := range coinc.AllAttributes(prof) {
		names[name] = true
	}
	for _, s := range sets {
		if !names[strings.ToLower(strings.TrimSpace(s.name))] {
			return fmt.Errorf(
				"could not set %s=%q on profile %q: %w",
				s.name, s.value, prof.Name, coinc.ErrUnknownAttribute,
			)
		}
	}
	return nil
}

// init creates the controller, then replays the settings received so far.
// Settings the controller rejects are reported and dropped.
func (dev *node) init() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.open()
	if err != nil {
		return err
	}

	var (
		errs []error
		kept = dev.sets[:0]
	)
	for _, s := range dev.sets {
		_, err := dev.ctl.Restore(s.name, s.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("could not set %s=%q: %w", s.name, s.value, err))
			continue
		}
		kept = append(kept, s)
	}
	dev.sets = kept

	return errors.Join(errs...)
}

// reset drops the received settings and re-creates the controller with
// its default bucket and window.
func (dev *node) reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.sets = nil
	if dev.ctl == nil {
		return nil
	}
	return dev.open()
}

func (dev *node) open() error {
	dev.close()

	ctl, bkd, err := coinc.Open(dev.cfg, dev.msg)
	if err != nil {
		return fmt.Errorf("could not create controller: %w", err)
	}
	dev.ctl = ctl
	dev.dev = bkd
	return nil
}

func (dev *node) close() {
	if dev.dev == nil {
		return
	}
	err := dev.dev.Close()
	if err != nil {
		dev.msg.Printf("could not close GPIO backend: %+v", err)
	}
	dev.ctl = nil
	dev.dev = nil
}

// pause suspends or resumes triggering.
// Profiles without a pause command are left untouched.
func (dev *node) pause(v bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.ctl == nil {
		return fmt.Errorf("controller not initialized")
	}
	err := dev.ctl.SetTriggerPaused(v)
	if errors.Is(err, coinc.ErrUnsupported) {
		dev.msg.Printf("profile %q can not pause triggering", dev.ctl.Profile().Name)
		return nil
	}
	return err
}

func (dev *node) quit() {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.close()
}

func (dev *node) snapshot() ([]byte, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.ctl == nil {
		return nil, nil
	}
	return json.Marshal(dev.ctl.State())
}

// publish sends a state snapshot every freq until ctx is done.
// Snapshots are dropped when no consumer keeps up.
func (dev *node) publish(ctx context.Context) {
	tick := time.NewTicker(dev.freq)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			raw, err := dev.snapshot()
			if err != nil {
				dev.msg.Printf("could not encode state: %+v", err)
				continue
			}
			if raw == nil {
				continue
			}
			select {
			case dev.data <- raw:
			default:
			}
		}
	}
}

func (dev *node) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	sets, err := decodeSettings(req.Body)
	if err != nil {
		ctx.Msg.Errorf("could not decode settings: %+v", err)
		return fmt.Errorf("could not decode settings: %w", err)
	}

	err = dev.configure(sets)
	if err != nil {
		ctx.Msg.Errorf("could not configure: %+v", err)
		return fmt.Errorf("could not configure: %w", err)
	}
	return nil
}

func (dev *node) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := dev.init()
	if err != nil {
		ctx.Msg.Errorf("could not initialize: %+v", err)
		return fmt.Errorf("could not initialize: %w", err)
	}
	return nil
}

func (dev *node) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return dev.reset()
}

func (dev *node) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	err := dev.pause(false)
	if err != nil {
		return fmt.Errorf("could not resume triggering: %w", err)
	}
	return nil
}

func (dev *node) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	err := dev.pause(true)
	if err != nil {
		return fmt.Errorf("could not pause triggering: %w", err)
	}
	return nil
}

func (dev *node) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	dev.quit()
	return nil
}

func (dev *node) state(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *node) run(ctx tdaq.Context) error {
	dev.publish(ctx.Ctx)
	return nil
}

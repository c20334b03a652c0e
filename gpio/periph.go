// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpio

import (
	"fmt"
	"log"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Periph drives lines through the periph.io host drivers.
type Periph struct {
	msg  *log.Logger
	num  Numbering
	pins map[int]pgpio.PinIO
	err  error
}

func openPeriph(cfg config) (Backend, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("gpio: could not initialize periph host: %w", err)
	}
	for _, drv := range state.Loaded {
		cfg.msg.Printf("periph driver loaded: %s", drv)
	}

	return &Periph{
		msg:  cfg.msg,
		num:  cfg.num,
		pins: make(map[int]pgpio.PinIO),
	}, nil
}

func periphName(num Numbering, pin int) (string, error) {
	switch num {
	case Board:
		if _, err := BoardToBCM(pin); err != nil {
			return "", err
		}
		return fmt.Sprintf("P1_%d", pin), nil
	case BCM:
		line, err := lineOf(num, pin)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("GPIO%d", line), nil
	default:
		return "", fmt.Errorf("gpio: invalid pin numbering %v", num)
	}
}

func (dev *Periph) Configure(pin int, dir Direction) {
	if dev.err != nil {
		return
	}

	name, err := periphName(dev.num, pin)
	if err != nil {
		dev.err = err
		return
	}
	p := gpioreg.ByName(name)
	if p == nil {
		dev.err = fmt.Errorf("gpio: no periph pin named %q", name)
		return
	}

	switch dir {
	case Output:
		err = p.Out(pgpio.Low)
	default:
		err = p.In(pgpio.PullNoChange, pgpio.NoEdge)
	}
	if err != nil {
		dev.err = fmt.Errorf("gpio: could not configure %s as %v: %w", name, dir, err)
		return
	}
	dev.pins[pin] = p
}

func (dev *Periph) Write(pins []int, levels []uint8) {
	if dev.err != nil {
		return
	}
	if err := checkWrite(pins, levels); err != nil {
		dev.err = err
		return
	}

	for i, pin := range pins {
		p, ok := dev.pins[pin]
		if !ok {
			dev.err = fmt.Errorf("gpio: pin %d was not configured", pin)
			return
		}
		err := p.Out(pgpio.Level(levels[i]&1 == 1))
		if err != nil {
			dev.err = fmt.Errorf("gpio: could not set %s to %d: %w", p.Name(), levels[i], err)
			return
		}
	}
}

func (dev *Periph) Err() error { return dev.err }

func (dev *Periph) Close() error {
	for pin := range dev.pins {
		delete(dev.pins, pin)
	}
	return nil
}

var _ Backend = (*Periph)(nil)

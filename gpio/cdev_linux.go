// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package gpio

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// CDev drives lines through the GPIO character device.
type CDev struct {
	msg      *log.Logger
	num      Numbering
	consumer string

	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line // pin -> requested line
	err   error
}

func openCDev(cfg config) (Backend, error) {
	chip, err := gpiocdev.NewChip(cfg.chip)
	if err != nil {
		return nil, fmt.Errorf("gpio: could not open GPIO chip %q: %w", cfg.chip, err)
	}
	cfg.msg.Printf("opened chip %q (%s, %s)", cfg.chip, chip.Name, chip.Label)

	return &CDev{
		msg:      cfg.msg,
		num:      cfg.num,
		consumer: cfg.consumer,
		chip:     chip,
		lines:    make(map[int]*gpiocdev.Line),
	}, nil
}

func (dev *CDev) Configure(pin int, dir Direction) {
	if dev.err != nil {
		return
	}

	off, err := lineOf(dev.num, pin)
	if err != nil {
		dev.err = err
		return
	}

	if line, dup := dev.lines[pin]; dup {
		_ = line.Close()
		delete(dev.lines, pin)
	}

	var mode gpiocdev.LineReqOption = gpiocdev.AsInput
	if dir == Output {
		mode = gpiocdev.AsOutput(0)
	}

	line, err := dev.chip.RequestLine(off, mode, gpiocdev.WithConsumer(dev.consumer))
	if err != nil {
		dev.err = fmt.Errorf("gpio: could not request line %d (pin=%d): %w", off, pin, err)
		return
	}
	dev.lines[pin] = line
}

func (dev *CDev) Write(pins []int, levels []uint8) {
	if dev.err != nil {
		return
	}
	if err := checkWrite(pins, levels); err != nil {
		dev.err = err
		return
	}

	for i, pin := range pins {
		line, ok := dev.lines[pin]
		if !ok {
			dev.err = fmt.Errorf("gpio: pin %d was not configured", pin)
			return
		}
		err := line.SetValue(int(levels[i] & 1))
		if err != nil {
			dev.err = fmt.Errorf("gpio: could not set pin %d to %d: %w", pin, levels[i], err)
			return
		}
	}
}

func (dev *CDev) Err() error { return dev.err }

func (dev *CDev) Close() error {
	var errs []error
	for pin, line := range dev.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close line for pin %d: %w", pin, err))
		}
		delete(dev.lines, pin)
	}
	if dev.chip != nil {
		if err := dev.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close GPIO chip: %w", err))
		}
		dev.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("gpio: errors closing cdev backend: %v", errs)
	}
	return nil
}

var _ Backend = (*CDev)(nil)

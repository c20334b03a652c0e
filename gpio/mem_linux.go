// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package gpio

import (
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/ctg/internal/mmap"
)

// BCM283x GPIO register offsets, relative to the gpiomem window.
const (
	regGPFSEL0 = 0x00
	regGPSET0  = 0x1c
	regGPCLR0  = 0x28

	memSpan = 0xb4

	fselInput  = 0x0
	fselOutput = 0x1
)

type regs interface {
	ReadU32(off int64) (uint32, error)
	WriteU32(off int64, v uint32) error
	Close() error
}

// Mem drives BCM283x GPIO registers through a mapping of /dev/gpiomem.
type Mem struct {
	msg *log.Logger
	num Numbering

	fd   *os.File
	regs regs
	err  error
}

func openMem(cfg config) (Backend, error) {
	f, err := os.OpenFile(cfg.devmem, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("gpio: could not open %q: %w", cfg.devmem, err)
	}

	h, err := mmap.Map(f, 0, memSpan)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gpio: could not map GPIO registers: %w", err)
	}
	cfg.msg.Printf("mapped GPIO registers from %q", cfg.devmem)

	return newMem(cfg, f, h), nil
}

func newMem(cfg config, f *os.File, r regs) *Mem {
	return &Mem{
		msg:  cfg.msg,
		num:  cfg.num,
		fd:   f,
		regs: r,
	}
}

func (dev *Mem) Configure(pin int, dir Direction) {
	if dev.err != nil {
		return
	}

	line, err := lineOf(dev.num, pin)
	if err != nil {
		dev.err = err
		return
	}

	var (
		off   = int64(regGPFSEL0 + 4*(line/10))
		shift = uint(3 * (line % 10))
		fsel  = uint32(fselInput)
	)
	if dir == Output {
		fsel = fselOutput
	}

	v, err := dev.regs.ReadU32(off)
	if err != nil {
		dev.err = fmt.Errorf("gpio: could not read function select for line %d: %w", line, err)
		return
	}
	v &^= 0x7 << shift
	v |= fsel << shift
	err = dev.regs.WriteU32(off, v)
	if err != nil {
		dev.err = fmt.Errorf("gpio: could not write function select for line %d: %w", line, err)
		return
	}
}

// Write sets and clears all requested lines with one register write each.
func (dev *Mem) Write(pins []int, levels []uint8) {
	if dev.err != nil {
		return
	}
	if err := checkWrite(pins, levels); err != nil {
		dev.err = err
		return
	}

	var set, clr uint32
	for i, pin := range pins {
		line, err := lineOf(dev.num, pin)
		if err != nil {
			dev.err = err
			return
		}
		if levels[i]&1 == 1 {
			set |= 1 << uint(line)
		} else {
			clr |= 1 << uint(line)
		}
	}

	if set != 0 {
		if err := dev.regs.WriteU32(regGPSET0, set); err != nil {
			dev.err = fmt.Errorf("gpio: could not set lines 0x%x: %w", set, err)
			return
		}
	}
	if clr != 0 {
		if err := dev.regs.WriteU32(regGPCLR0, clr); err != nil {
			dev.err = fmt.Errorf("gpio: could not clear lines 0x%x: %w", clr, err)
			return
		}
	}
}

func (dev *Mem) Err() error { return dev.err }

func (dev *Mem) Close() error {
	err := dev.regs.Close()
	if err != nil {
		if dev.fd != nil {
			_ = dev.fd.Close()
		}
		return fmt.Errorf("gpio: could not unmap GPIO registers: %w", err)
	}
	if dev.fd == nil {
		return nil
	}
	err = dev.fd.Close()
	if err != nil {
		return fmt.Errorf("gpio: could not close %q: %w", dev.fd.Name(), err)
	}
	return nil
}

var _ Backend = (*Mem)(nil)

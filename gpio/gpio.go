// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gpio provides the raw GPIO pin capability used to drive
// the coincidence trigger generator: configure a pin direction and
// write levels to an ordered list of pins.
//
// Backends never report errors from Configure or Write. Instead, the
// first failure is recorded and returned by Err; every later call is
// then a no-op.
package gpio // import "github.com/go-lpc/ctg/gpio"

import (
	"fmt"
	"strings"
)

// Direction is the direction of a GPIO line.
type Direction uint8

const (
	Input Direction = iota
	Output
)

func (dir Direction) String() string {
	switch dir {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(dir))
	}
}

// Backend drives physical (or simulated) GPIO lines.
//
// Write asserts levels[i] on pins[i]. Both slices have the same length.
type Backend interface {
	Configure(pin int, dir Direction)
	Write(pins []int, levels []uint8)
	Err() error
	Close() error
}

// Numbering selects how pin identifiers are interpreted by hardware backends.
type Numbering uint8

const (
	Board Numbering = iota // physical 40-pin header position
	BCM                    // Broadcom SoC GPIO line
)

func (num Numbering) String() string {
	switch num {
	case Board:
		return "board"
	case BCM:
		return "bcm"
	default:
		return fmt.Sprintf("Numbering(%d)", uint8(num))
	}
}

// ParseNumbering parses a pin numbering scheme name.
func ParseNumbering(name string) (Numbering, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "board":
		return Board, nil
	case "bcm":
		return BCM, nil
	default:
		return Board, fmt.Errorf("gpio: invalid pin numbering %q", name)
	}
}

// board2bcm maps 40-pin header positions to BCM GPIO lines.
// Power and ground positions are absent.
var board2bcm = map[int]int{
	3: 2, 5: 3, 7: 4, 8: 14, 10: 15, 11: 17, 12: 18, 13: 27,
	15: 22, 16: 23, 18: 24, 19: 10, 21: 9, 22: 25, 23: 11, 24: 8,
	26: 7, 27: 0, 28: 1, 29: 5, 31: 6, 32: 12, 33: 13, 35: 19,
	36: 16, 37: 26, 38: 20, 40: 21,
}

// BoardToBCM returns the BCM GPIO line wired to the provided header position.
func BoardToBCM(pin int) (int, error) {
	bcm, ok := board2bcm[pin]
	if !ok {
		return -1, fmt.Errorf("gpio: header pin %d is not a GPIO line", pin)
	}
	return bcm, nil
}

func lineOf(num Numbering, pin int) (int, error) {
	switch num {
	case Board:
		return BoardToBCM(pin)
	case BCM:
		if pin < 0 || pin > 27 {
			return -1, fmt.Errorf("gpio: invalid BCM line %d", pin)
		}
		return pin, nil
	default:
		return -1, fmt.Errorf("gpio: invalid pin numbering %v", num)
	}
}

func checkWrite(pins []int, levels []uint8) error {
	if len(pins) != len(levels) {
		return fmt.Errorf(
			"gpio: pins/levels length mismatch (pins=%d, levels=%d)",
			len(pins), len(levels),
		)
	}
	return nil
}

// Open creates a backend from its kind name: sim, cdev, periph or mem.
func Open(kind string, opts ...Option) (Backend, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	switch strings.ToLower(kind) {
	case "", "sim":
		return NewSim(cfg.msg), nil
	case "cdev":
		return openCDev(cfg)
	case "periph":
		return openPeriph(cfg)
	case "mem":
		return openMem(cfg)
	default:
		return nil, fmt.Errorf("gpio: unknown backend %q", kind)
	}
}

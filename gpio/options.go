// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpio

import (
	"io"
	"log"
	"os"
)

type config struct {
	msg      *log.Logger
	num      Numbering
	chip     string // gpiocdev chip name
	consumer string // gpiocdev consumer label
	devmem   string // gpiomem device file
}

func newConfig() config {
	return config{
		msg:      log.New(os.Stdout, "gpio: ", 0),
		num:      Board,
		chip:     "gpiochip0",
		consumer: "ctg",
		devmem:   "/dev/gpiomem",
	}
}

// Option configures a backend created by Open.
type Option func(*config)

// WithLogger sets the logger used by the backend.
// A nil logger discards messages.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		if msg == nil {
			msg = log.New(io.Discard, "", 0)
		}
		cfg.msg = msg
	}
}

// WithNumbering sets the pin numbering scheme (Board by default).
func WithNumbering(num Numbering) Option {
	return func(cfg *config) {
		cfg.num = num
	}
}

// WithChip sets the GPIO character device chip (gpiochip0 by default).
func WithChip(name string) Option {
	return func(cfg *config) {
		cfg.chip = name
	}
}

// WithConsumer sets the consumer label of requested lines.
func WithConsumer(name string) Option {
	return func(cfg *config) {
		cfg.consumer = name
	}
}

// WithDevMem sets the device file mapped by the mem backend.
func WithDevMem(fname string) Option {
	return func(cfg *config) {
		cfg.devmem = fname
	}
}

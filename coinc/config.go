// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/ctg/gpio"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration of a coincidence trigger
// generator service.
type Config struct {
	Profile string `yaml:"profile"`

	Backend struct {
		Kind      string `yaml:"kind"`      // sim, cdev, periph or mem
		Numbering string `yaml:"numbering"` // board or bcm
		Chip      string `yaml:"chip"`
		DevMem    string `yaml:"devmem"`
	} `yaml:"backend"`

	Pins struct {
		Data   []int `yaml:"data"`
		Mode   []int `yaml:"mode"`
		Strobe *int  `yaml:"strobe"`
	} `yaml:"pins"`

	StrobeTime      *float64 `yaml:"strobe_time"` // seconds
	AvgPhaseAdvance *float64 `yaml:"avg_phase_advance"`
	Verbose         bool     `yaml:"verbose"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Memo struct {
		DSN string `yaml:"dsn"`
	} `yaml:"memo"`
}

// DefaultConfig returns the configuration of a rev-c board driven by the
// simulator.
func DefaultConfig() Config {
	var cfg Config
	cfg.Profile = "rev-c"
	cfg.Backend.Kind = "sim"
	cfg.Backend.Numbering = "board"
	cfg.Server.Addr = ":8866"
	return cfg
}

// LoadConfig reads a YAML configuration file.
// Missing fields keep the values of DefaultConfig.
func LoadConfig(fname string) (Config, error) {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return Config{}, fmt.Errorf("coinc: could not read config file %q: %w", fname, err)
	}
	cfg, err := DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return cfg, fmt.Errorf("coinc: could not load config file %q: %w", fname, err)
	}
	return cfg, nil
}

// DecodeConfig decodes a YAML configuration.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && err != io.EOF {
		return cfg, fmt.Errorf("coinc: could not decode config: %w", err)
	}
	return cfg, nil
}

// HardwareProfile returns the profile named by the configuration.
func (cfg Config) HardwareProfile() (Profile, error) {
	return ProfileByName(cfg.Profile)
}

// Options returns the controller options described by the configuration.
func (cfg Config) Options(msg *log.Logger) []Option {
	opts := []Option{
		WithLogger(msg),
		WithVerbose(cfg.Verbose),
	}
	if len(cfg.Pins.Data) > 0 {
		opts = append(opts, WithDataPins(cfg.Pins.Data...))
	}
	if len(cfg.Pins.Mode) > 0 {
		opts = append(opts, WithModePins(cfg.Pins.Mode...))
	}
	if cfg.Pins.Strobe != nil {
		opts = append(opts, WithStrobePin(*cfg.Pins.Strobe))
	}
	if cfg.StrobeTime != nil {
		opts = append(opts, WithSettle(time.Duration(*cfg.StrobeTime*float64(time.Second))))
	}
	if cfg.AvgPhaseAdvance != nil {
		opts = append(opts, WithAvgPhaseAdvance(*cfg.AvgPhaseAdvance))
	}
	return opts
}

// BackendOptions returns the GPIO backend options described by the configuration.
func (cfg Config) BackendOptions(msg *log.Logger) ([]gpio.Option, error) {
	num, err := gpio.ParseNumbering(cfg.Backend.Numbering)
	if err != nil {
		return nil, fmt.Errorf("coinc: invalid backend configuration: %w", err)
	}
	opts := []gpio.Option{
		gpio.WithLogger(msg),
		gpio.WithNumbering(num),
	}
	if cfg.Backend.Chip != "" {
		opts = append(opts, gpio.WithChip(cfg.Backend.Chip))
	}
	if cfg.Backend.DevMem != "" {
		opts = append(opts, gpio.WithDevMem(cfg.Backend.DevMem))
	}
	return opts, nil
}

// Open opens the configured GPIO backend and creates a controller on it.
// The returned backend must be closed by the caller.
func Open(cfg Config, msg *log.Logger) (*Controller, gpio.Backend, error) {
	prof, err := cfg.HardwareProfile()
	if err != nil {
		return nil, nil, err
	}

	gopts, err := cfg.BackendOptions(msg)
	if err != nil {
		return nil, nil, err
	}

	dev, err := gpio.Open(cfg.Backend.Kind, gopts...)
	if err != nil {
		return nil, nil, fmt.Errorf("coinc: could not open GPIO backend %q: %w", cfg.Backend.Kind, err)
	}

	ctl, err := New(dev, prof, cfg.Options(msg)...)
	if err != nil {
		_ = dev.Close()
		return nil, nil, fmt.Errorf("coinc: could not create controller: %w", err)
	}

	return ctl, dev, nil
}

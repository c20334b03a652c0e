// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Attribute names, as exposed to remote control clients.
const (
	AttrBucket          = "bucket"
	AttrTimeWindow      = "time_window"
	AttrTimeWindowRaw   = "time_window_raw"
	AttrLaserTrig       = "laser_trig"
	AttrRingRFSource    = "ring_rf_source"
	AttrOffsetFine      = "offset_fine"
	AttrOffsetCoarse    = "offset_coarse"
	AttrAvgPhaseAdvance = "avg_phase_advance"
	AttrTriggerPaused   = "trigger_paused"
)

type attrInfo struct {
	name     string
	memo     bool // value survives restarts
	supports func(p Profile) bool
}

func always(Profile) bool { return true }

// attrs lists attributes in restore order: settings other values depend
// on come first.
var attrs = []attrInfo{
	{AttrAvgPhaseAdvance, true, always},
	{AttrOffsetCoarse, true, func(p Profile) bool { return p.Coarse }},
	{AttrBucket, true, always},
	{AttrTimeWindow, true, always},
	{AttrTimeWindowRaw, false, always},
	{AttrLaserTrig, true, func(p Profile) bool { return p.Has(CmdLaserTrig) }},
	{AttrRingRFSource, true, func(p Profile) bool { return p.Has(CmdRingRF) }},
	{AttrOffsetFine, true, func(p Profile) bool { return p.Phase != PhaseNone }},
	{AttrTriggerPaused, false, func(p Profile) bool { return p.Has(CmdPauseTrig) }},
}

func lookupAttr(name string) (attrInfo, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, a := range attrs {
		if a.name == key {
			return a, nil
		}
	}
	return attrInfo{}, fmt.Errorf("coinc: %q: %w", name, ErrUnknownAttribute)
}

// Attributes returns the names of the memorized attributes supported by
// p, in the order they should be restored.
func Attributes(p Profile) []string {
	var names []string
	for _, a := range attrs {
		if a.memo && a.supports(p) {
			names = append(names, a.name)
		}
	}
	return names
}

// AllAttributes returns the names of every attribute supported by p.
func AllAttributes(p Profile) []string {
	var names []string
	for _, a := range attrs {
		if a.supports(p) {
			names = append(names, a.name)
		}
	}
	return names
}

// Memorized returns whether the attribute name survives restarts.
func Memorized(name string) bool {
	a, err := lookupAttr(name)
	return err == nil && a.memo
}

// Set parses value and applies it to the attribute name.
// It returns the canonical value of the attribute, as Get would, read
// under the same lock as the write.
func (ctl *Controller) Set(name, value string) (string, error) {
	return ctl.apply(name, value, false)
}

// Restore is like Set, but a fine offset further than one phase step
// from the current one is reached in several steps.
// It is meant to replay memorized values on a fresh controller.
func (ctl *Controller) Restore(name, value string) (string, error) {
	return ctl.apply(name, value, true)
}

func (ctl *Controller) apply(name, value string, seek bool) (string, error) {
	a, err := lookupAttr(name)
	if err != nil {
		return "", err
	}
	value = strings.TrimSpace(value)

	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	err = ctl.set(a, value, seek)
	if err != nil {
		return "", err
	}
	return formatAttr(a, ctl.state), nil
}

func (ctl *Controller) set(a attrInfo, value string, seek bool) error {
	switch a.name {
	case AttrBucket:
		v, err := parseByte(a.name, value)
		if err != nil {
			return err
		}
		return ctl.setBucket(v)

	case AttrOffsetCoarse:
		v, err := parseByte(a.name, value)
		if err != nil {
			return err
		}
		return ctl.setOffsetCoarse(v)

	case AttrTimeWindow:
		v, err := parseFloat(a.name, value)
		if err != nil {
			return err
		}
		ctl.quantizeWindow(v)
		return nil

	case AttrTimeWindowRaw:
		v, err := parseByte(a.name, value)
		if err != nil {
			return err
		}
		ctl.setWindowRaw(v)
		return nil

	case AttrLaserTrig:
		return ctl.setLaserTrig(value)

	case AttrRingRFSource:
		return ctl.setRingRFSource(value)

	case AttrOffsetFine:
		v, err := parseFloat(a.name, value)
		if err != nil {
			return err
		}
		if math.Abs(v) > math.MaxInt32 {
			return fmt.Errorf("coinc: invalid %s value %q: %w", a.name, value, ErrRange)
		}
		target := int(math.Round(v))
		if seek {
			_, err = ctl.seekOffsetFine(target)
			return err
		}
		_, err = ctl.setOffsetFine(target)
		return err

	case AttrAvgPhaseAdvance:
		v, err := parseFloat(a.name, value)
		if err != nil {
			return err
		}
		ctl.setAvgPhaseAdvance(v)
		return nil

	case AttrTriggerPaused:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("coinc: could not parse %s value %q: %w", a.name, value, err)
		}
		return ctl.setTriggerPaused(v)
	}

	panic("coinc: unhandled attribute " + a.name)
}

// Get returns the formatted value of the attribute name.
func (ctl *Controller) Get(name string) (string, error) {
	a, err := lookupAttr(name)
	if err != nil {
		return "", err
	}
	if !a.supports(ctl.prof) {
		return "", errUnsupported("read "+a.name, ctl.prof)
	}
	return formatAttr(a, ctl.State()), nil
}

func formatAttr(a attrInfo, st State) string {
	switch a.name {
	case AttrBucket:
		return strconv.Itoa(int(st.Bucket))
	case AttrOffsetCoarse:
		return strconv.Itoa(int(st.OffsetCoarse))
	case AttrTimeWindow:
		return formatFloat(st.Window)
	case AttrTimeWindowRaw:
		return strconv.Itoa(int(st.WindowIndex))
	case AttrLaserTrig:
		return st.LaserTrig.String()
	case AttrRingRFSource:
		return st.RingRF.String()
	case AttrOffsetFine:
		return strconv.Itoa(st.OffsetFine)
	case AttrAvgPhaseAdvance:
		return formatFloat(st.AvgPhaseAdvance)
	case AttrTriggerPaused:
		return strconv.FormatBool(st.TriggerPaused)
	}

	panic("coinc: unhandled attribute " + a.name)
}

func parseByte(name, value string) (uint8, error) {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("coinc: could not parse %s value %q: %w", name, value, err)
	}
	err = checkRange(name, int(v), 0, 0xff)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func parseFloat(name, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("coinc: could not parse %s value %q: %w", name, value, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("coinc: invalid %s value %q: %w", name, value, ErrRange)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

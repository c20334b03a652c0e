// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"fmt"
	"strings"
)

// LaserSource selects what triggers the gun laser.
type LaserSource uint8

const (
	LaserMRF         LaserSource = 0 // timing system event receiver
	LaserCoincidence LaserSource = 1 // coincidence output of the FPGA
)

// ParseLaserSource matches s permissively: any string containing "coin"
// (case-insensitive) selects LaserCoincidence, anything else LaserMRF.
func ParseLaserSource(s string) LaserSource {
	if strings.Contains(strings.ToLower(s), "coin") {
		return LaserCoincidence
	}
	return LaserMRF
}

func (src LaserSource) String() string {
	switch src {
	case LaserMRF:
		return "MRF"
	case LaserCoincidence:
		return "COINCIDENCE"
	default:
		return fmt.Sprintf("LaserSource(%d)", uint8(src))
	}
}

func (src LaserSource) MarshalText() ([]byte, error) {
	return []byte(src.String()), nil
}

func (src *LaserSource) UnmarshalText(p []byte) error {
	*src = ParseLaserSource(string(p))
	return nil
}

// RingRFSource selects the ring RF reference clock.
type RingRFSource uint8

const (
	RingRF100MHz   RingRFSource = 0
	RingRFRevClock RingRFSource = 1 // ring revolution clock
)

// ParseRingRFSource matches s permissively: any string containing "rev"
// (case-insensitive) selects RingRFRevClock, anything else RingRF100MHz.
func ParseRingRFSource(s string) RingRFSource {
	if strings.Contains(strings.ToLower(s), "rev") {
		return RingRFRevClock
	}
	return RingRF100MHz
}

func (src RingRFSource) String() string {
	switch src {
	case RingRF100MHz:
		return "100MHZ"
	case RingRFRevClock:
		return "REV_CLOCK"
	default:
		return fmt.Sprintf("RingRFSource(%d)", uint8(src))
	}
}

func (src RingRFSource) MarshalText() ([]byte, error) {
	return []byte(src.String()), nil
}

func (src *RingRFSource) UnmarshalText(p []byte) error {
	*src = ParseRingRFSource(string(p))
	return nil
}

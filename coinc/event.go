// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import "fmt"

// EventKind classifies controller events.
type EventKind uint8

const (
	EventWrite  EventKind = iota // one control word strobed into the FPGA
	EventCommit                  // a logical operation updated the device state
	EventReject                  // a logical operation was refused before any write
)

func (k EventKind) String() string {
	switch k {
	case EventWrite:
		return "write"
	case EventCommit:
		return "commit"
	case EventReject:
		return "reject"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event describes what the controller did.
//
// Write events carry the command, data byte and (truncated) mode code.
// Commit and reject events carry the operation name and its argument.
type Event struct {
	Kind EventKind

	Cmd  Cmd
	Data uint8
	Mode uint8

	Op    string
	Value string
	Err   error
}

// Sink receives controller events.
// It is called with the controller lock held and must not call back
// into the controller.
type Sink func(Event)

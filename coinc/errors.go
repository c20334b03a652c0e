// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"errors"
	"fmt"
)

var (
	// ErrRange is matched by every *RangeError.
	ErrRange = errors.New("coinc: value out of range")

	// ErrUnsupported reports an operation the hardware profile lacks.
	ErrUnsupported = errors.New("coinc: operation not supported by hardware profile")

	// ErrUnknownAttribute reports an invalid attribute name.
	ErrUnknownAttribute = errors.New("coinc: unknown attribute")
)

// RangeError reports a value that can not be represented on the wire.
// It is always returned before any hardware write.
type RangeError struct {
	Op    string // operation or quantity being checked
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf(
		"coinc: %s: value %d out of range [%d, %d]",
		e.Op, e.Value, e.Min, e.Max,
	)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}

func checkRange(op string, v, min, max int) error {
	if v < min || v > max {
		return &RangeError{Op: op, Value: v, Min: min, Max: max}
	}
	return nil
}

func errUnsupported(op string, p Profile) error {
	return fmt.Errorf("coinc: could not %s on profile %q: %w", op, p.Name, ErrUnsupported)
}

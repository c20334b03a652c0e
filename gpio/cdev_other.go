// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package gpio

import (
	"fmt"
	"runtime"
)

func openCDev(cfg config) (Backend, error) {
	return nil, fmt.Errorf("gpio: cdev backend not available on %s", runtime.GOOS)
}

func openMem(cfg config) (Backend, error) {
	return nil, fmt.Errorf("gpio: mem backend not available on %s", runtime.GOOS)
}

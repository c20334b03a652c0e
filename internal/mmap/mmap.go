// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package mmap exposes memory-mapped device registers.
package mmap // import "github.com/go-lpc/ctg/internal/mmap"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a memory-mapped register window.
type Handle struct {
	data   []byte
	mapped bool // data was returned by mmap
}

// Map maps size bytes of the device file f, starting at offset.
func Map(f *os.File, offset int64, size int) (*Handle, error) {
	data, err := unix.Mmap(
		int(f.Fd()), offset, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map %q: %w", f.Name(), err)
	}
	if len(data) != size {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("mmap: invalid mmap'd size: got=%d, want=%d", len(data), size)
	}
	h := &Handle{data: data, mapped: true}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h, nil
}

// HandleFrom wraps plain memory, e.g. a register image.
// Closing the handle only releases data.
func HandleFrom(data []byte) *Handle {
	return &Handle{data: data}
}

// Close unmaps the register window.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	if !h.mapped {
		return nil
	}
	runtime.SetFinalizer(h, nil)

	return unix.Munmap(data)
}

// Len returns the length of the register window.
func (h *Handle) Len() int {
	return len(h.data)
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// ReadU32 reads the 32b little-endian register at off.
func (h *Handle) ReadU32(off int64) (uint32, error) {
	var buf [4]byte
	_, err := h.ReadAt(buf[:], off)
	if err != nil {
		return 0, fmt.Errorf("mmap: could not read register 0x%x: %w", off, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// WriteU32 writes the 32b little-endian register at off.
func (h *Handle) WriteU32(off int64, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := h.WriteAt(buf[:], off)
	if err != nil {
		return fmt.Errorf("mmap: could not write register 0x%x: %w", off, err)
	}
	return nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)

// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package uefi

import (
	"encoding/binary"
	"errors"

	"github.com/usbarmory/tamago/dma"
)

const align = 8

// defined in efi_amd64.s
func callService(fn uint64, args []uint64) (status uint64)

// decode reads a fixed size structure from physical memory.
func decode(data any, addr uint64) (err error) {
	if addr == 0 {
		return errors.New("invalid address")
	}

	n := binary.Size(data)

	if n <= 0 {
		return errors.New("invalid structure")
	}

	r, err := dma.NewRegion(uint(addr), n+(n%align), true)

	if err != nil {
		return
	}

	ptr, buf := r.Reserve(n, 0)
	defer r.Release(ptr)

	return unmarshalBinary(buf, data)
}

// read copies size bytes of physical memory.
func read(addr uint64, size int) (buf []byte, err error) {
	if addr == 0 || size <= 0 {
		return nil, errors.New("invalid address")
	}

	r, err := dma.NewRegion(uint(addr), size, false)

	if err != nil {
		return
	}

	ptr, b := r.Reserve(size, 0)
	defer r.Release(ptr)

	buf = make([]byte, size)
	copy(buf, b)

	return
}

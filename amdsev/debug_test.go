// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build debug

package amdsev

import (
	"errors"
	"testing"

	"github.com/usbarmory/sevdxe/sim"
	"github.com/usbarmory/sevdxe/uefi"
)

func TestAssertRecoverable(t *testing.T) {
	p := &sim.Platform{
		SEV: true,
		Descriptors: []uefi.MemorySpaceDescriptor{
			{BaseAddress: 0xfed00000, Length: 0x1000, GcdMemoryType: uefi.EfiGcdMemoryTypeMemoryMappedIo},
		},
		Fail: map[string]error{
			sim.ClearMMIOPageEncMask: uefi.ErrNoMapping,
		},
	}

	d := &Driver{
		MemEncrypt: p,
		Firmware:   p,
		Memory:     p,
		Halt:       func() {},
	}

	defer func() {
		err, ok := recover().(error)

		if !ok || !errors.Is(err, uefi.ErrNoMapping) {
			t.Fatalf("unexpected assertion %v", err)
		}

		// the map is still released while unwinding
		if len(p.Find(sim.FreePool)) != 1 {
			t.Fatal("map not released")
		}
	}()

	d.Run()
}

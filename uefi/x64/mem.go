// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package x64

import (
	"encoding/binary"
	"errors"
	"log"
	"runtime"
	_ "unsafe"

	"github.com/usbarmory/tamago/dma"

	"github.com/usbarmory/sevdxe/uefi"
)

//go:linkname _unused runtime.ramStart
var _unused uint64 = 0x00100000 // overridden in x64.s

//go:linkname RamSize runtime.ramSize
var RamSize uint64 = 0x4000000 // 64MB

func allocateHeap() {
	memoryMap, err := UEFI.Boot.GetMemoryMap()

	if err != nil {
		log.Printf("WARNING: could not get memory map, %v", err)
		return
	}

	heapStart := uint64(0)
	ramStart, ramEnd := runtime.MemRegion()

	// locate runtime heap offset within UEFI memory allocation
	for _, desc := range memoryMap.Descriptors {
		if desc.Type == uefi.EfiBootServicesCode && desc.PhysicalStart == ramStart {
			heapStart = desc.PhysicalEnd()
			break
		}
	}

	if heapStart == 0 {
		log.Printf("WARNING: could not find heap offset")
		return
	}

	if _, err := UEFI.Boot.AllocatePages(
		uefi.AllocateAddress,
		uefi.EfiBootServicesData,
		int(ramEnd-heapStart),
		heapStart,
	); err != nil {
		log.Printf("WARNING: could not allocate heap at %#x, %v", heapStart, err)
	}
}

// Memory implements physical memory writes for the AMD SEV early DXE driver.
type Memory struct{}

func access(addr uint64, size int, fn func(buf []byte)) (err error) {
	if addr == 0 || size <= 0 {
		return errors.New("invalid address")
	}

	r, err := dma.NewRegion(uint(addr), size, false)

	if err != nil {
		return
	}

	ptr, buf := r.Reserve(size, 0)
	defer r.Release(ptr)

	fn(buf)

	return
}

// Zero clears size bytes of physical memory.
func (m *Memory) Zero(addr uint64, size int) error {
	return access(addr, size, func(buf []byte) {
		clear(buf)
	})
}

// Write copies a buffer to physical memory.
func (m *Memory) Write(addr uint64, buf []byte) error {
	return access(addr, len(buf), func(b []byte) {
		copy(b, buf)
	})
}

// PageTables implements paging structure entry access.
type PageTables struct{}

// Read returns the paging structure entry at a physical address.
func (p *PageTables) Read(addr uint64) (entry uint64, err error) {
	err = access(addr, 8, func(buf []byte) {
		entry = binary.LittleEndian.Uint64(buf)
	})

	return
}

// Write sets the paging structure entry at a physical address.
func (p *PageTables) Write(addr uint64, entry uint64) error {
	return access(addr, 8, func(buf []byte) {
		binary.LittleEndian.PutUint64(buf, entry)
	})
}

// allocateTable returns a zeroed page for split paging structures.
func allocateTable() (addr uint64, err error) {
	if addr, err = UEFI.Boot.AllocatePages(uefi.AllocateAnyPages, uefi.EfiBootServicesData, uefi.PageSize, 0); err != nil {
		return
	}

	m := &Memory{}
	err = m.Zero(addr, uefi.PageSize)

	return
}

// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DXE Services Table Signature
const dxeSignature = 0x565245535f455844 // DXE_SERV

// EFI DXE Services offset for GetMemorySpaceMap
const getMemorySpaceMap = 0x48

// EFI_GCD_MEMORY_TYPE
const (
	EfiGcdMemoryTypeNonExistent = iota
	EfiGcdMemoryTypeReserved
	EfiGcdMemoryTypeSystemMemory
	EfiGcdMemoryTypeMemoryMappedIo
	EfiGcdMemoryTypePersistent
	EfiGcdMemoryTypeMoreReliable
	EfiGcdMemoryTypeUnaccepted
	EfiGcdMemoryTypeMaximum
)

var gcdMemoryTypes = []string{
	"NonExistent",
	"Reserved",
	"SystemMemory",
	"MemoryMappedIo",
	"Persistent",
	"MoreReliable",
	"Unaccepted",
}

// GcdMemoryType represents an EFI_GCD_MEMORY_TYPE value.
type GcdMemoryType uint32

// String returns the memory type name.
func (t GcdMemoryType) String() string {
	if int(t) < len(gcdMemoryTypes) {
		return gcdMemoryTypes[t]
	}

	return fmt.Sprintf("GcdMemoryType(%d)", uint32(t))
}

// MemorySpaceDescriptor represents an EFI_GCD_MEMORY_SPACE_DESCRIPTOR.
type MemorySpaceDescriptor struct {
	BaseAddress   uint64
	Length        uint64
	Capabilities  uint64
	Attributes    uint64
	GcdMemoryType GcdMemoryType
	_             uint32
	ImageHandle   uint64
	DeviceHandle  uint64
}

// End returns the descriptor physical end address (exclusive).
func (d *MemorySpaceDescriptor) End() uint64 {
	return d.BaseAddress + d.Length
}

// MemorySpaceMap represents the global coherency domain memory space map
// returned by GetMemorySpaceMap(), the map buffer is allocated by the
// firmware from pool memory and must be released with FreePool().
type MemorySpaceMap struct {
	Descriptors []*MemorySpaceDescriptor

	// Address is the pool buffer holding the native map.
	Address uint64
}

// DXEServices represents an EFI DXE Services Table instance.
type DXEServices struct {
	base uint64
}

func newDXEServices(addr uint64) (d *DXEServices, err error) {
	h := &TableHeader{}

	if err = decode(h, addr); err != nil {
		return
	}

	if h.Signature != dxeSignature {
		return nil, errors.New("EFI DXE Services Table pointer is invalid")
	}

	return &DXEServices{base: addr}, nil
}

// GetMemorySpaceMap calls EFI_DXE_SERVICES.GetMemorySpaceMap().
func (d *DXEServices) GetMemorySpaceMap() (m *MemorySpaceMap, err error) {
	var n uint64
	var buf []byte

	m = &MemorySpaceMap{}

	status := callService(d.base+getMemorySpaceMap,
		[]uint64{
			ptrval(&n),
			ptrval(&m.Address),
		},
	)

	if err = parseStatus(status); err != nil {
		return nil, err
	}

	if n == 0 {
		return
	}

	entrySize := binary.Size(&MemorySpaceDescriptor{})

	if buf, err = read(m.Address, entrySize*int(n)); err != nil {
		return
	}

	m.Descriptors, err = ParseMemorySpaceMap(buf)

	return
}

// ParseMemorySpaceMap decodes an array of native
// EFI_GCD_MEMORY_SPACE_DESCRIPTOR entries.
func ParseMemorySpaceMap(buf []byte) (descs []*MemorySpaceDescriptor, err error) {
	entrySize := binary.Size(&MemorySpaceDescriptor{})

	if len(buf)%entrySize != 0 {
		return nil, fmt.Errorf("invalid memory space map size %d", len(buf))
	}

	for i := 0; i < len(buf); i += entrySize {
		d := &MemorySpaceDescriptor{}

		if err = unmarshalBinary(buf[i:i+entrySize], d); err != nil {
			return nil, err
		}

		descs = append(descs, d)
	}

	return
}

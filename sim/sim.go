// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim implements an in-memory platform for the AMD SEV early DXE
// driver, recording every firmware and memory encryption service invocation.
//
// It is used to exercise the driver on the host, either in tests or through
// the ccsim tool.
package sim

import (
	"fmt"

	"github.com/usbarmory/sevdxe/uefi"
)

// Default simulated addresses
const (
	DefaultMapAddress = 0x7f000000
	DefaultPoolBase   = 0x7e000000
	DefaultSMRAMBase  = 0x3f000
	DefaultSMRAMPages = 1
)

// Service names
const (
	SEVEnabled                          = "SEVEnabled"
	SNPEnabled                          = "SNPEnabled"
	GetMemorySpaceMap                   = "GetMemorySpaceMap"
	FreePool                            = "FreePool"
	AllocatePool                        = "AllocatePool"
	InstallConfigurationTable           = "InstallConfigurationTable"
	ClearMMIOPageEncMask                = "ClearMMIOPageEncMask"
	ClearPageEncMask                    = "ClearPageEncMask"
	LocateInitialSMRAMSaveStateMapPages = "LocateInitialSMRAMSaveStateMapPages"
	Zero                                = "Zero"
	Write                               = "Write"
)

// Call represents a recorded service invocation.
type Call struct {
	Op   string
	Args []uint64
	// GUID is set for InstallConfigurationTable
	GUID *uefi.GUID
	// Err is the returned error, if any
	Err error
}

// String returns the call in human readable form.
func (c Call) String() (s string) {
	s = c.Op + "("

	if c.GUID != nil {
		s += c.GUID.String()

		if len(c.Args) > 0 {
			s += ", "
		}
	}

	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}

		s += fmt.Sprintf("%#x", a)
	}

	s += ")"

	if c.Err != nil {
		s += fmt.Sprintf(" = %v", c.Err)
	}

	return
}

// Platform represents a simulated SEV guest firmware environment.
type Platform struct {
	// Detection results
	SEV bool
	SNP bool

	// Descriptors is returned by GetMemorySpaceMap()
	Descriptors []uefi.MemorySpaceDescriptor

	// Simulated addresses, defaults are used when zero
	MapAddress uint64
	PoolBase   uint64
	SMRAMBase  uint64
	SMRAMPages uint64

	// Fail maps service names to the error they return.
	Fail map[string]error
	// FailMMIO maps ClearMMIOPageEncMask base addresses to the error they
	// return.
	FailMMIO map[uint64]error

	// Calls records invocations in order
	Calls []Call

	mem  map[uint64]byte
	pool uint64
}

func (p *Platform) record(op string, guid *uefi.GUID, err error, args ...uint64) error {
	p.Calls = append(p.Calls, Call{
		Op:   op,
		Args: args,
		GUID: guid,
		Err:  err,
	})

	return err
}

func (p *Platform) fail(op string) error {
	if p.Fail == nil {
		return nil
	}

	return p.Fail[op]
}

func or(v uint64, def uint64) uint64 {
	if v == 0 {
		return def
	}

	return v
}

// Find returns the recorded calls of a given service.
func (p *Platform) Find(op string) (calls []Call) {
	for _, c := range p.Calls {
		if c.Op == op {
			calls = append(calls, c)
		}
	}

	return
}

// Index returns the position of the first recorded call of a given service,
// or -1.
func (p *Platform) Index(op string) int {
	for i, c := range p.Calls {
		if c.Op == op {
			return i
		}
	}

	return -1
}

// SEVEnabled implements amdsev.MemEncrypt.
func (p *Platform) SEVEnabled() bool {
	p.record(SEVEnabled, nil, nil)
	return p.SEV
}

// SNPEnabled implements amdsev.MemEncrypt.
func (p *Platform) SNPEnabled() bool {
	p.record(SNPEnabled, nil, nil)
	return p.SNP
}

// ClearMMIOPageEncMask implements amdsev.MemEncrypt.
func (p *Platform) ClearMMIOPageEncMask(root uint64, base uint64, pages uint64) error {
	err := p.fail(ClearMMIOPageEncMask)

	if e, ok := p.FailMMIO[base]; ok {
		err = e
	}

	return p.record(ClearMMIOPageEncMask, nil, err, root, base, pages)
}

// ClearPageEncMask implements amdsev.MemEncrypt.
func (p *Platform) ClearPageEncMask(root uint64, base uint64, pages uint64) error {
	return p.record(ClearPageEncMask, nil, p.fail(ClearPageEncMask), root, base, pages)
}

// LocateInitialSMRAMSaveStateMapPages implements amdsev.MemEncrypt.
func (p *Platform) LocateInitialSMRAMSaveStateMapPages() (base uint64, pages uint64, err error) {
	if err = p.record(LocateInitialSMRAMSaveStateMapPages, nil, p.fail(LocateInitialSMRAMSaveStateMapPages)); err != nil {
		return
	}

	return or(p.SMRAMBase, DefaultSMRAMBase), or(p.SMRAMPages, DefaultSMRAMPages), nil
}

// GetMemorySpaceMap implements amdsev.Firmware.
func (p *Platform) GetMemorySpaceMap() (m *uefi.MemorySpaceMap, err error) {
	if err = p.record(GetMemorySpaceMap, nil, p.fail(GetMemorySpaceMap)); err != nil {
		return
	}

	m = &uefi.MemorySpaceMap{
		Address: or(p.MapAddress, DefaultMapAddress),
	}

	for i := range p.Descriptors {
		d := p.Descriptors[i]
		m.Descriptors = append(m.Descriptors, &d)
	}

	return
}

// FreePool implements amdsev.Firmware.
func (p *Platform) FreePool(addr uint64) error {
	return p.record(FreePool, nil, p.fail(FreePool), addr)
}

// AllocatePool implements amdsev.Firmware.
func (p *Platform) AllocatePool(memoryType int, size int) (addr uint64, err error) {
	if err = p.record(AllocatePool, nil, p.fail(AllocatePool), uint64(memoryType), uint64(size)); err != nil {
		return
	}

	addr = or(p.PoolBase, DefaultPoolBase) + p.pool
	p.pool += (uint64(size) + 7) &^ 7

	return
}

// InstallConfigurationTable implements amdsev.Firmware.
func (p *Platform) InstallConfigurationTable(guid uefi.GUID, table uint64) error {
	return p.record(InstallConfigurationTable, &guid, p.fail(InstallConfigurationTable), table)
}

// Zero implements amdsev.Memory.
func (p *Platform) Zero(addr uint64, size int) (err error) {
	if err = p.record(Zero, nil, p.fail(Zero), addr, uint64(size)); err != nil {
		return
	}

	p.store(addr, make([]byte, size))

	return
}

// Write implements amdsev.Memory.
func (p *Platform) Write(addr uint64, buf []byte) (err error) {
	if err = p.record(Write, nil, p.fail(Write), addr, uint64(len(buf))); err != nil {
		return
	}

	p.store(addr, buf)

	return
}

func (p *Platform) store(addr uint64, buf []byte) {
	if p.mem == nil {
		p.mem = make(map[uint64]byte)
	}

	for i, b := range buf {
		p.mem[addr+uint64(i)] = b
	}
}

// Preload fills simulated memory without recording a call, to model stale
// contents.
func (p *Platform) Preload(addr uint64, buf []byte) {
	p.store(addr, buf)
}

// Read returns size bytes of simulated memory, unwritten bytes read as 0xff.
func (p *Platform) Read(addr uint64, size int) (buf []byte) {
	buf = make([]byte, size)

	for i := range buf {
		b, ok := p.mem[addr+uint64(i)]

		if !ok {
			b = 0xff
		}

		buf[i] = b
	}

	return
}

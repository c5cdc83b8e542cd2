// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package amdsev implements the early DXE initialization of AMD Secure
// Encrypted Virtualization (SEV) guests.
//
// Before any other DXE driver runs, the C-bit is cleared from MMIO and
// NonExistent memory space, so that current and future MMIO mappings are
// shared with the hypervisor. When SMM is enabled the initial SMRAM save state
// map is scrubbed and shared, finally the Confidential Computing Blob locating
// the SEV-SNP secrets and CPUID pages is published for later boot stages.
package amdsev

import (
	"fmt"
	"log"

	"github.com/usbarmory/sevdxe/uefi"
)

// driver name used in diagnostics
const name = "AmdSevDxe"

// Intel Q35 Memory Controller Hub PCI device ID
const IntelQ35MCHDeviceID = 0x29c0

// PCI Express MMCONFIG window size
const MMConfigSize = 256 << 20 // 256 MiB

// Config represents the platform build-time constants.
type Config struct {
	// SEV-SNP secrets page
	SecretsBase uint64 `toml:"snp_secrets_base"`
	SecretsSize uint32 `toml:"snp_secrets_size"`

	// SEV-SNP CPUID page
	CPUIDBase uint64 `toml:"cpuid_base"`
	CPUIDSize uint32 `toml:"cpuid_size"`

	// PCI Express MMCONFIG base address
	PCIExpressBase uint64 `toml:"pci_express_base_address"`

	// Host bridge PCI device ID
	HostBridgeDevID uint16 `toml:"host_bridge_device_id"`

	// SMMRequired reports whether the platform is built with SMM
	SMMRequired bool `toml:"smm_smram_require"`

	// StrictMMIO turns C-bit clearing failures on MMIO and NonExistent
	// memory space into fatal errors.
	StrictMMIO bool `toml:"strict_mmio"`

	// FreeUnpublishedBlob releases the Confidential Computing Blob when
	// SEV-SNP is not active, instead of leaving it in ACPI reclaim memory.
	FreeUnpublishedBlob bool `toml:"free_unpublished_blob"`
}

// MemEncrypt represents the memory encryption support primitives.
type MemEncrypt interface {
	SEVEnabled() bool
	SNPEnabled() bool

	// ClearMMIOPageEncMask clears the C-bit on MMIO pages, a root of 0
	// selects the active paging structures.
	ClearMMIOPageEncMask(root uint64, base uint64, pages uint64) error
	// ClearPageEncMask clears the C-bit on RAM pages, a root of 0 selects
	// the active paging structures.
	ClearPageEncMask(root uint64, base uint64, pages uint64) error

	LocateInitialSMRAMSaveStateMapPages() (base uint64, pages uint64, err error)
}

// Firmware represents the UEFI and DXE services consumed by the driver.
type Firmware interface {
	GetMemorySpaceMap() (*uefi.MemorySpaceMap, error)
	FreePool(addr uint64) error
	AllocatePool(memoryType int, size int) (addr uint64, err error)
	InstallConfigurationTable(guid uefi.GUID, table uint64) error
}

// Memory represents physical memory writes.
type Memory interface {
	Zero(addr uint64, size int) error
	Write(addr uint64, buf []byte) error
}

// Driver represents the AMD SEV early DXE driver.
type Driver struct {
	MemEncrypt MemEncrypt
	Firmware   Firmware
	Memory     Memory

	// Config holds the platform build-time constants
	Config *Config

	// Halt stops the processor on fatal errors, on target it must never
	// return. When nil fatal errors panic.
	Halt func()

	// Log receives diagnostics, log.Default() is used when nil.
	Log *log.Logger
}

// FatalError represents an error which halted the driver.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s(): %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// assert mirrors firmware debug assertions, it is a no-op in release builds.
func assert(err error) {
	if debug && err != nil {
		panic(err)
	}
}

func (d *Driver) logf(format string, v ...any) {
	l := d.Log

	if l == nil {
		l = log.Default()
	}

	l.Printf(name+": "+format, v...)
}

// fatal reports an error which must not allow boot to continue, a partially
// scrubbed or shared memory range is a confidentiality hazard.
func (d *Driver) fatal(op string, err error) error {
	d.logf("%s(): %v", op, err)
	assert(err)

	e := &FatalError{Op: op, Err: err}

	if d.Halt == nil {
		panic(e)
	}

	d.Halt()

	return e
}

// recoverable records an error which does not prevent the driver from
// completing.
func (d *Driver) recoverable(r *Report, op string, err error) {
	err = fmt.Errorf("%s(): %w", op, err)

	d.logf("%v", err)
	r.append(err)
	assert(err)
}

func (d *Driver) config() *Config {
	if d.Config == nil {
		return &Config{}
	}

	return d.Config
}

// Run executes the driver entry point.
//
// When SEV is not active uefi.ErrUnsupported is returned and no other action
// is taken. Otherwise the returned error is the outcome of the Confidential
// Computing Blob installation (SEV-SNP) or nil. The returned report records
// actions taken and errors ignored along the way.
func (d *Driver) Run() (r *Report, err error) {
	r = &Report{}

	// do nothing when SEV is not enabled
	if !d.MemEncrypt.SEVEnabled() {
		return r, uefi.ErrUnsupported
	}

	r.SEV = true
	cfg := d.config()

	if err = d.sweep(r, cfg); err != nil {
		return
	}

	if err = d.clearMMConfig(r, cfg); err != nil {
		return
	}

	if cfg.SMMRequired {
		if err = d.scrubSMRAM(r); err != nil {
			return
		}
	}

	return r, d.publish(r, cfg)
}

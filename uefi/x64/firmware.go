// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package x64

import (
	"github.com/usbarmory/sevdxe/uefi"
)

// Firmware implements the UEFI and DXE services consumed by the AMD SEV early
// DXE driver.
type Firmware struct {
	Services *uefi.Services
}

// GetMemorySpaceMap returns the GCD memory space map, the caller must release
// its pool buffer with FreePool().
func (f *Firmware) GetMemorySpaceMap() (m *uefi.MemorySpaceMap, err error) {
	if f.Services.DXE == nil {
		return nil, uefi.ErrUnsupported
	}

	m, err = f.Services.DXE.GetMemorySpaceMap()

	if err != nil && m != nil && m.Address != 0 {
		f.FreePool(m.Address)
		return nil, err
	}

	return
}

// FreePool calls EFI_BOOT_SERVICES.FreePool().
func (f *Firmware) FreePool(addr uint64) error {
	return f.Services.Boot.FreePool(addr)
}

// AllocatePool calls EFI_BOOT_SERVICES.AllocatePool().
func (f *Firmware) AllocatePool(memoryType int, size int) (uint64, error) {
	return f.Services.Boot.AllocatePool(memoryType, size)
}

// InstallConfigurationTable calls
// EFI_BOOT_SERVICES.InstallConfigurationTable().
func (f *Firmware) InstallConfigurationTable(guid uefi.GUID, table uint64) error {
	return f.Services.Boot.InstallConfigurationTable(guid, table)
}

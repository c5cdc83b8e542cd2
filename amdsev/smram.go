// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package amdsev

import (
	"github.com/usbarmory/sevdxe/uefi"
)

// scrubSMRAM clears the C-bit from the initial SMRAM save state map, which
// the hypervisor must be able to access.
//
// The cleared area is the one used before SMBASE relocation, the relocated
// save state areas are not page aligned and share pages with SMM code, which
// must remain encrypted.
func (d *Driver) scrubSMRAM(r *Report) (err error) {
	base, pages, err := d.MemEncrypt.LocateInitialSMRAMSaveStateMapPages()

	if err != nil {
		return d.fatal("LocateInitialSMRAMSaveStateMapPages", err)
	}

	// The pages were set aside during PEI, however we could be after a warm
	// reboot from the OS: stale OS data must not leak to the hypervisor,
	// therefore the pages are zeroed while still encrypted.
	if err = d.Memory.Zero(base, int(pages*uefi.PageSize)); err != nil {
		return d.fatal("ZeroMem", err)
	}

	if err = d.MemEncrypt.ClearPageEncMask(0, base, pages); err != nil {
		return d.fatal("ClearPageEncMask", err)
	}

	r.SMRAM = &Range{
		Type:  uefi.EfiGcdMemoryTypeSystemMemory,
		Base:  base,
		Pages: pages,
	}

	return
}

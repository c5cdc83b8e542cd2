// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package amdsev

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/usbarmory/sevdxe/uefi"
)

// Pages returns the number of 4 KiB pages covering length bytes.
func Pages(length uint64) uint64 {
	return uefi.SizeToPages(length)
}

// shared reports whether the C-bit must be cleared on a memory space type.
//
// NonExistent memory space is later used to map MMIO added after this driver
// (e.g. by PCI root bridges), clearing both guarantees that current and future
// MMIO ranges are shared.
func shared(t uefi.GcdMemoryType) bool {
	switch t {
	case uefi.EfiGcdMemoryTypeMemoryMappedIo, uefi.EfiGcdMemoryTypeNonExistent:
		return true
	default:
		return false
	}
}

func (d *Driver) clearMMIO(r *Report, cfg *Config, t uefi.GcdMemoryType, base uint64, pages uint64) (err error) {
	if err = d.MemEncrypt.ClearMMIOPageEncMask(0, base, pages); err != nil {
		err = fmt.Errorf("%#x (%d pages), %w", base, pages, err)

		if cfg.StrictMMIO {
			return d.fatal("ClearMMIOPageEncMask", err)
		}

		d.recoverable(r, "ClearMMIOPageEncMask", err)

		return nil
	}

	r.Cleared = append(r.Cleared, Range{
		Type:  t,
		Base:  base,
		Pages: pages,
	})

	return
}

// sweep clears the C-bit from all MMIO and NonExistent memory space, a memory
// space map retrieval failure skips the sweep.
func (d *Driver) sweep(r *Report, cfg *Config) (err error) {
	m, err := d.Firmware.GetMemorySpaceMap()

	if err != nil || m == nil {
		r.SweepSkipped = true
		return nil
	}

	defer func() {
		if e := d.Firmware.FreePool(m.Address); e != nil {
			d.recoverable(r, "FreePool", e)
		}
	}()

	for _, desc := range m.Descriptors {
		if !shared(desc.GcdMemoryType) {
			continue
		}

		if err = d.clearMMIO(r, cfg, desc.GcdMemoryType, desc.BaseAddress, Pages(desc.Length)); err != nil {
			return
		}
	}

	return
}

// clearMMConfig clears the C-bit from the PCI Express MMCONFIG window on Q35.
//
// The MMCONFIG area is reserved, rather than marked as MMIO, in the memory
// space map and therefore it is not covered by the sweep.
func (d *Driver) clearMMConfig(r *Report, cfg *Config) (err error) {
	if cfg.HostBridgeDevID != IntelQ35MCHDeviceID {
		return
	}

	d.logf("clearing C-bit on MMCONFIG %#x (%s)", cfg.PCIExpressBase, humanize.IBytes(MMConfigSize))

	n := len(r.Cleared)

	if err = d.clearMMIO(r, cfg, uefi.EfiGcdMemoryTypeReserved, cfg.PCIExpressBase, Pages(MMConfigSize)); err != nil {
		return
	}

	if len(r.Cleared) > n {
		mmconfig := r.Cleared[n]
		r.MMConfig = &mmconfig
	}

	return
}

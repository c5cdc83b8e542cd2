// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package amdsev

import (
	"github.com/usbarmory/sevdxe/uefi"
)

// NewBlob returns the Confidential Computing Blob for the argument platform
// constants.
func NewBlob(cfg *Config) *uefi.ConfidentialComputingBlob {
	return &uefi.ConfidentialComputingBlob{
		Header:                 uefi.CCBlobSignature,
		Version:                uefi.CCBlobVersion,
		SecretsPhysicalAddress: cfg.SecretsBase,
		SecretsSize:            cfg.SecretsSize,
		CPUIDPhysicalAddress:   cfg.CPUIDBase,
		CPUIDSize:              cfg.CPUIDSize,
	}
}

// allocateBlob allocates and fills the Confidential Computing Blob in ACPI
// reclaim memory.
func (d *Driver) allocateBlob(cfg *Config) (addr uint64, blob *uefi.ConfidentialComputingBlob, err error) {
	var buf []byte

	if addr, err = d.Firmware.AllocatePool(uefi.EfiACPIReclaimMemory, uefi.CCBlobSize); err != nil {
		return
	}

	blob = NewBlob(cfg)

	if buf, err = blob.MarshalBinary(); err != nil {
		return
	}

	err = d.Memory.Write(addr, buf)

	return
}

// publish installs the Confidential Computing Blob, locating both the
// secrets and CPUID pages, on SEV-SNP guests.
func (d *Driver) publish(r *Report, cfg *Config) (err error) {
	addr, blob, err := d.allocateBlob(cfg)

	if err != nil {
		return d.fatal("AllocateConfidentialComputingBlob", err)
	}

	r.Blob = blob
	r.BlobAddress = addr

	if d.MemEncrypt.SNPEnabled() {
		r.SNP = true

		if err = d.Firmware.InstallConfigurationTable(uefi.CONFIDENTIAL_COMPUTING_SEV_SNP_BLOB_GUID, addr); err == nil {
			r.Published = true
		}

		return
	}

	if !cfg.FreeUnpublishedBlob {
		return
	}

	if err = d.Firmware.FreePool(addr); err != nil {
		d.recoverable(r, "FreePool", err)
		return nil
	}

	r.BlobAddress = 0

	return
}

// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package amdsev

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"github.com/usbarmory/sevdxe/uefi"
)

// Range represents a physical memory range.
type Range struct {
	Type  uefi.GcdMemoryType
	Base  uint64
	Pages uint64
}

// Size returns the range size in bytes.
func (r Range) Size() uint64 {
	return r.Pages * uefi.PageSize
}

// String returns the range in human readable form.
func (r Range) String() string {
	return fmt.Sprintf("%#016x-%#016x %-14s %s", r.Base, r.Base+r.Size(), r.Type, humanize.IBytes(r.Size()))
}

// Report represents the outcome of a driver invocation.
type Report struct {
	// SEV and SNP record the detected encryption features
	SEV bool
	SNP bool

	// SweepSkipped reports that the memory space map was unavailable
	SweepSkipped bool
	// Cleared lists the MMIO ranges on which the C-bit has been cleared
	Cleared []Range
	// MMConfig is the cleared PCI Express MMCONFIG window, if any
	MMConfig *Range
	// SMRAM is the scrubbed initial SMRAM save state map, if any
	SMRAM *Range

	// Blob is the Confidential Computing Blob and BlobAddress its pool
	// allocation (0 when released)
	Blob        *uefi.ConfidentialComputingBlob
	BlobAddress uint64
	// Published reports the blob installation in the configuration table
	Published bool

	// Errors aggregates ignored errors
	Errors *multierror.Error
}

func (r *Report) append(err error) {
	r.Errors = multierror.Append(r.Errors, err)
}

// Err returns ignored errors, if any.
func (r *Report) Err() error {
	return r.Errors.ErrorOrNil()
}

// String returns a human readable summary of the report.
func (r *Report) String() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "SEV ................: %v\n", r.SEV)
	fmt.Fprintf(&buf, "SEV-SNP ............: %v\n", r.SNP)

	if !r.SEV {
		return buf.String()
	}

	if r.SweepSkipped {
		fmt.Fprintf(&buf, "Memory space map ...: unavailable\n")
	}

	for _, c := range r.Cleared {
		fmt.Fprintf(&buf, "Shared .............: %s\n", c)
	}

	if r.SMRAM != nil {
		fmt.Fprintf(&buf, "SMRAM save state ...: %s\n", r.SMRAM)
	}

	if b := r.Blob; b != nil {
		fmt.Fprintf(&buf, "CC blob ............: %#x (published: %v)\n", r.BlobAddress, r.Published)
		fmt.Fprintf(&buf, "Secrets Page .......: %#x (%d bytes)\n", b.SecretsPhysicalAddress, b.SecretsSize)
		fmt.Fprintf(&buf, "CPUID Page .........: %#x (%d bytes)\n", b.CPUIDPhysicalAddress, b.CPUIDSize)
	}

	if err := r.Err(); err != nil {
		fmt.Fprintf(&buf, "Errors .............: %d\n", len(r.Errors.Errors))
	}

	return buf.String()
}

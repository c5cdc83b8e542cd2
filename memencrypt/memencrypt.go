// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package memencrypt implements the AMD SEV memory encryption support
// primitives used during early DXE: C-bit management for MMIO and RAM ranges
// and the location of the initial SMRAM save state map.
package memencrypt

import (
	"errors"
	"fmt"

	"github.com/usbarmory/sevdxe/pagetable"
	"github.com/usbarmory/sevdxe/uefi"
)

// ErrPageState is returned when RAM must be converted to shared under
// SEV-SNP but no page state converter is configured.
var ErrPageState = errors.New("SEV-SNP page state change unavailable")

// Encryptor implements C-bit management over the active paging structures.
type Encryptor struct {
	// SEV reports whether AMD SEV is active
	SEV bool
	// SNP reports whether AMD SEV-SNP is active
	SNP bool
	// SMMRequired reports whether the platform is built with SMM
	SMMRequired bool

	// Mask is the C-bit in paging structure entries
	Mask uint64
	// Tables gives access to the paging structures
	Tables *pagetable.Walker

	// Root returns the active paging structure root (CR3)
	Root func() uint64
	// FlushTLB invalidates translations after an update
	FlushTLB func()
	// FlushCache writes back and invalidates caches before private memory
	// is made shared
	FlushCache func()
	// PageState converts RAM pages from private to shared (SEV-SNP)
	PageState func(base uint64, pages uint64) error
}

// SEVEnabled returns whether AMD SEV is active.
func (e *Encryptor) SEVEnabled() bool {
	return e.SEV
}

// SNPEnabled returns whether AMD SEV-SNP is active.
func (e *Encryptor) SNPEnabled() bool {
	return e.SNP
}

func (e *Encryptor) clear(root uint64, base uint64, pages uint64) (err error) {
	if e.Tables == nil || e.Mask == 0 {
		return uefi.ErrUnsupported
	}

	if root == 0 {
		if e.Root == nil {
			return errors.New("no active paging structure root")
		}

		root = e.Root()
	}

	if err = e.Tables.Clear(root, base, pages*uefi.PageSize, e.Mask); err != nil {
		if errors.Is(err, pagetable.ErrNotMapped) {
			return fmt.Errorf("%w, %v", uefi.ErrNoMapping, err)
		}

		return fmt.Errorf("%w, %v", uefi.ErrInvalidParameter, err)
	}

	if e.FlushTLB != nil {
		e.FlushTLB()
	}

	return
}

// ClearMMIOPageEncMask clears the C-bit on pages mapping MMIO, a root of 0
// selects the active paging structures.
//
// MMIO is not guest memory, therefore neither cache flushing nor page state
// changes are performed.
func (e *Encryptor) ClearMMIOPageEncMask(root uint64, base uint64, pages uint64) error {
	return e.clear(root, base, pages)
}

// ClearPageEncMask clears the C-bit on pages mapping guest memory, a root of 0
// selects the active paging structures.
//
// Caches are flushed before the change, under SEV-SNP the pages are also
// converted to shared in the RMP.
func (e *Encryptor) ClearPageEncMask(root uint64, base uint64, pages uint64) (err error) {
	if e.FlushCache != nil {
		e.FlushCache()
	}

	if e.SNP {
		if e.PageState == nil {
			return ErrPageState
		}

		if err = e.PageState(base, pages); err != nil {
			return
		}
	}

	return e.clear(root, base, pages)
}

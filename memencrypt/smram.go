// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package memencrypt

import (
	"github.com/usbarmory/sevdxe/uefi"
)

// Initial (pre-relocation) SMRAM layout
const (
	DefaultSMBASE = 0x30000
	// SMI handler entry, relative to SMBASE
	SMMHandlerOffset = 0x8000
	// AMD64 save state map, relative to the SMI handler entry
	SaveStateMapOffset = 0x7c00
	// sizeof(SMRAM_SAVE_STATE_MAP)
	SaveStateMapSize = 0x400
)

// LocateInitialSMRAMSaveStateMapPages returns the page aligned range
// containing the save state map used by the processor on the first SMI,
// before SMBASE relocation.
func (e *Encryptor) LocateInitialSMRAMSaveStateMapPages() (base uint64, pages uint64, err error) {
	if !e.SMMRequired {
		return 0, 0, uefi.ErrUnsupported
	}

	start := uint64(DefaultSMBASE + SMMHandlerOffset + SaveStateMapOffset)
	end := start + SaveStateMapSize

	base = start &^ (uefi.PageSize - 1)
	pages = uefi.SizeToPages(end - base)

	return
}

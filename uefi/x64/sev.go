// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package x64

import (
	"fmt"

	"github.com/usbarmory/tamago/kvm/svm"

	"github.com/usbarmory/sevdxe/memencrypt"
	"github.com/usbarmory/sevdxe/pagetable"
	"github.com/usbarmory/sevdxe/uefi"
)

// GHCB MSR protocol
const (
	ghcbInfoPSCRequest  = 0x014
	ghcbInfoPSCResponse = 0x015

	pscOpShared = 2
)

// PVALIDATE return codes
const (
	pvalidateSuccess      = 0
	pvalidateFailSizeMism = 6
)

// defined in cpu_amd64.s
func readCR3() uint64
func writeCR3(cr3 uint64)
func wbinvd()
func halt()
func pvalidate(addr uint64, validate bool) (ret uint32, unchanged bool)
func ghcbMSRProtocol(req uint64) (res uint64)

// Halt disables interrupts and stops the processor, it never returns.
func Halt() {
	halt()
}

func flushTLB() {
	writeCR3(readCR3())
}

// pageState converts private pages to shared through the GHCB MSR protocol
// Page State Change request, after rescinding their validation.
func pageState(base uint64, pages uint64) (err error) {
	for i := uint64(0); i < pages; i++ {
		addr := base + i*uefi.PageSize

		switch ret, _ := pvalidate(addr, false); ret {
		case pvalidateSuccess:
		case pvalidateFailSizeMism:
			return fmt.Errorf("could not rescind %#x validation, size mismatch", addr)
		default:
			return fmt.Errorf("could not rescind %#x validation (%d)", addr, ret)
		}

		req := uint64(pscOpShared)<<52 | (addr>>12)<<12 | ghcbInfoPSCRequest
		res := ghcbMSRProtocol(req)

		if res&0xfff != ghcbInfoPSCResponse || res>>32 != 0 {
			return fmt.Errorf("could not share %#x, GHCB response %#x", addr, res)
		}
	}

	return
}

// NewEncryptor returns the memory encryption support primitives for the
// running guest.
func NewEncryptor(smmRequired bool) (e *memencrypt.Encryptor) {
	features := svm.Features(AMD64)

	e = &memencrypt.Encryptor{
		SEV:         features.SEV.SEV,
		SNP:         features.SEV.SNP,
		SMMRequired: smmRequired,
	}

	if !e.SEV {
		return
	}

	e.Mask = uint64(1) << features.EncryptionBit

	e.Tables = &pagetable.Walker{
		Memory: &PageTables{},
		Alloc:  allocateTable,
		Mask:   e.Mask,
	}

	e.Root = readCR3
	e.FlushTLB = flushTLB
	e.FlushCache = wbinvd

	if e.SNP {
		e.PageState = pageState
	}

	return
}

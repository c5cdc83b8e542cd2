// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package memencrypt

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/usbarmory/sevdxe/pagetable"
	"github.com/usbarmory/sevdxe/uefi"
)

const cbit = 1 << 47

type memory map[uint64]uint64

func (m memory) Read(addr uint64) (uint64, error) {
	return m[addr], nil
}

func (m memory) Write(addr uint64, val uint64) error {
	m[addr] = val
	return nil
}

// testEncryptor identity maps the first 1 GiB with 2 MiB pages and records
// hook invocations.
func testEncryptor(events *[]string) (e *Encryptor, mem memory) {
	const (
		pml4 = 0x1000
		pdpt = 0x2000
		pd   = 0x3000
	)

	mem = memory{}
	next := uint64(0x100000)

	mem[pml4] = pdpt | pagetable.Present | pagetable.Writable | cbit
	mem[pdpt] = pd | pagetable.Present | pagetable.Writable | cbit

	for i := uint64(0); i < 512; i++ {
		mem[pd+i*8] = i*pagetable.Size2M | pagetable.Present | pagetable.Writable | pagetable.PageSize | cbit
	}

	e = &Encryptor{
		SEV:  true,
		Mask: cbit,
		Tables: &pagetable.Walker{
			Memory: mem,
			Mask:   cbit,
			Alloc: func() (uint64, error) {
				addr := next
				next += pagetable.Size4K
				return addr, nil
			},
		},
		Root: func() uint64 {
			*events = append(*events, "root")
			return pml4 | cbit
		},
		FlushTLB: func() {
			*events = append(*events, "tlb")
		},
		FlushCache: func() {
			*events = append(*events, "cache")
		},
	}

	return
}

func encrypted(t *testing.T, e *Encryptor, addr uint64) bool {
	entry, _, err := e.Tables.Lookup(0x1000, addr)

	if err != nil {
		t.Fatal(err)
	}

	return entry&cbit != 0
}

func TestClearMMIOPageEncMask(t *testing.T) {
	var events []string

	e, _ := testEncryptor(&events)
	e.SNP = true

	if err := e.ClearMMIOPageEncMask(0, 0x200000, 512); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"root", "tlb"}, events); diff != "" {
		t.Fatalf("unexpected hooks (-want +got):\n%s", diff)
	}

	if encrypted(t, e, 0x200000) || !encrypted(t, e, 0x400000) || !encrypted(t, e, 0) {
		t.Fatal("unexpected C-bit state")
	}

	if e.Tables.Splits != 0 {
		t.Fatal("unexpected split")
	}
}

func TestClearPageEncMaskExplicitRoot(t *testing.T) {
	var events []string

	e, _ := testEncryptor(&events)

	if err := e.ClearPageEncMask(0x1000, 0x3f000, 1); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"cache", "tlb"}, events); diff != "" {
		t.Fatalf("unexpected hooks (-want +got):\n%s", diff)
	}

	if encrypted(t, e, 0x3f000) || !encrypted(t, e, 0x3e000) || !encrypted(t, e, 0x40000) {
		t.Fatal("unexpected C-bit state")
	}
}

func TestClearPageEncMaskSNP(t *testing.T) {
	var events []string

	e, _ := testEncryptor(&events)
	e.SNP = true

	if err := e.ClearPageEncMask(0, 0x3f000, 1); !errors.Is(err, ErrPageState) {
		t.Fatalf("unexpected error %v", err)
	}

	if !encrypted(t, e, 0x3f000) {
		t.Fatal("C-bit cleared without page state change")
	}

	e.PageState = func(base uint64, pages uint64) error {
		events = append(events, "psc")

		if base != 0x3f000 || pages != 1 {
			t.Errorf("unexpected page state change %#x %d", base, pages)
		}

		return nil
	}

	events = nil

	if err := e.ClearPageEncMask(0, 0x3f000, 1); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"cache", "psc", "root", "tlb"}, events); diff != "" {
		t.Fatalf("unexpected hooks (-want +got):\n%s", diff)
	}

	if encrypted(t, e, 0x3f000) {
		t.Fatal("C-bit not cleared")
	}
}

func TestClearNotMapped(t *testing.T) {
	var events []string

	e, _ := testEncryptor(&events)

	err := e.ClearMMIOPageEncMask(0, 0x40000000, 1)

	if !errors.Is(err, uefi.ErrNoMapping) {
		t.Fatalf("unexpected error %v", err)
	}

	if uefi.StatusCode(err) != 0x8000000000000011 {
		t.Fatalf("unexpected status %#x", uefi.StatusCode(err))
	}

	for _, ev := range events {
		if ev == "tlb" {
			t.Fatal("TLB flushed after failure")
		}
	}
}

func TestClearUnsupported(t *testing.T) {
	e := &Encryptor{}

	if err := e.ClearMMIOPageEncMask(0, 0, 1); !errors.Is(err, uefi.ErrUnsupported) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLocateInitialSMRAMSaveStateMapPages(t *testing.T) {
	e := &Encryptor{}

	if _, _, err := e.LocateInitialSMRAMSaveStateMapPages(); !errors.Is(err, uefi.ErrUnsupported) {
		t.Fatalf("unexpected error %v", err)
	}

	e.SMMRequired = true

	base, pages, err := e.LocateInitialSMRAMSaveStateMapPages()

	if err != nil {
		t.Fatal(err)
	}

	if base != 0x3f000 || pages != 1 {
		t.Fatalf("got %#x (%d pages), want 0x3f000 (1 page)", base, pages)
	}
}

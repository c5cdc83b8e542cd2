// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pagetable implements attribute changes over x86-64 4-level paging
// structures, as required to mark guest physical ranges as shared or private
// under AMD Secure Encrypted Virtualization.
//
// The paging structures are accessed through the Memory interface, on target
// they are identity mapped physical memory.
package pagetable

import (
	"errors"
	"fmt"
)

// Paging structure entry bits
const (
	Present  = 1 << 0
	Writable = 1 << 1
	User     = 1 << 2
	Accessed = 1 << 5
	Dirty    = 1 << 6
	// page size bit for PDPT and PD entries
	PageSize = 1 << 7
	Global   = 1 << 8
	// PAT bit for large page entries
	LargePAT = 1 << 12
	NoExec   = 1 << 63

	// physical address bits 51:12
	addressMask = 0x000ffffffffff000
	// attributes inherited by split mappings
	attrMask = 0x17f | NoExec
)

// Mapping sizes
const (
	Size4K = 1 << 12
	Size2M = 1 << 21
	Size1G = 1 << 30

	entries = 512
)

var (
	// ErrNotMapped is returned when a paging structure entry covering the
	// requested range is not present.
	ErrNotMapped = errors.New("address not mapped")

	// ErrUnaligned is returned for ranges not aligned to 4 KiB.
	ErrUnaligned = errors.New("address not page aligned")
)

// Memory represents the physical memory holding paging structures.
type Memory interface {
	Read(addr uint64) (uint64, error)
	Write(addr uint64, val uint64) error
}

// Allocator returns the physical address of a free 4 KiB page to be used as
// paging structure.
type Allocator func() (addr uint64, err error)

// Walker modifies leaf entries of 4-level paging structures.
type Walker struct {
	// Memory gives access to paging structures
	Memory Memory

	// Alloc provides pages for splitting large mappings
	Alloc Allocator

	// Mask identifies address bits repurposed as attributes (e.g. the AMD
	// SEV C-bit), which are never treated as part of a table address.
	Mask uint64

	// Splits counts large mappings split by this walker.
	Splits int
}

func index(addr uint64, level int) uint64 {
	return (addr >> (12 + 9*uint(level))) & (entries - 1)
}

func (w *Walker) address(entry uint64) uint64 {
	return entry & addressMask &^ w.Mask
}

// Clear clears the argument bits on every leaf entry mapping [base,
// base+length), large mappings only partially covered are split first.
func (w *Walker) Clear(root uint64, base uint64, length uint64, bits uint64) (err error) {
	return w.update(root, base, length, bits, 0)
}

// Set sets the argument bits on every leaf entry mapping [base, base+length),
// large mappings only partially covered are split first.
func (w *Walker) Set(root uint64, base uint64, length uint64, bits uint64) (err error) {
	return w.update(root, base, length, 0, bits)
}

func (w *Walker) update(root uint64, base uint64, length uint64, clear uint64, set uint64) (err error) {
	if base%Size4K != 0 || length%Size4K != 0 {
		return ErrUnaligned
	}

	end := base + length

	if end < base {
		return fmt.Errorf("invalid range %#x-%#x", base, end)
	}

	root = w.address(root)

	for addr := base; addr < end; {
		var n uint64

		if n, err = w.updateEntry(root, addr, end, clear, set); err != nil {
			return fmt.Errorf("%#x, %w", addr, err)
		}

		addr += n
	}

	return
}

// updateEntry modifies the leaf entry mapping addr and returns the size of
// the modified mapping.
func (w *Walker) updateEntry(root uint64, addr uint64, end uint64, clear uint64, set uint64) (n uint64, err error) {
	table := root

	for level := 3; level >= 0; level-- {
		var entry uint64

		ptr := table + index(addr, level)*8

		if entry, err = w.Memory.Read(ptr); err != nil {
			return
		}

		if entry&Present == 0 {
			return 0, ErrNotMapped
		}

		size := uint64(1) << (12 + 9*uint(level))
		leaf := level == 0 || (level < 3 && entry&PageSize != 0)

		if !leaf {
			table = w.address(entry)
			continue
		}

		if addr%size == 0 && end-addr >= size {
			return size, w.Memory.Write(ptr, (entry&^clear)|set)
		}

		// partially covered large mapping
		if entry, err = w.split(ptr, entry, level); err != nil {
			return
		}

		table = w.address(entry)
	}

	return 0, errors.New("invalid paging structure")
}

// split replaces the large mapping entry at ptr with a pointer to a table of
// 512 mappings of the next smaller size.
func (w *Walker) split(ptr uint64, entry uint64, level int) (uint64, error) {
	if w.Alloc == nil {
		return 0, errors.New("cannot split large mapping without allocator")
	}

	table, err := w.Alloc()

	if err != nil {
		return 0, err
	}

	size := uint64(1) << (12 + 9*uint(level-1))
	base := w.address(entry) &^ LargePAT
	attr := (entry & attrMask) | (entry & w.Mask)

	if level == 1 {
		// 4 KiB entries use bit 7 as PAT
		attr &^= PageSize

		if entry&LargePAT != 0 {
			attr |= PageSize
		}
	} else {
		// 2 MiB entries remain large mappings
		attr |= PageSize | (entry & LargePAT)
	}

	for i := uint64(0); i < entries; i++ {
		if err = w.Memory.Write(table+i*8, base+i*size|attr); err != nil {
			return 0, err
		}
	}

	// the new table itself lives in private memory
	next := table | w.Mask | (entry & (Present | Writable | User | Accessed))

	if err = w.Memory.Write(ptr, next); err != nil {
		return 0, err
	}

	w.Splits++

	return next, nil
}

// Lookup returns the leaf entry mapping addr and the size of its mapping.
func (w *Walker) Lookup(root uint64, addr uint64) (entry uint64, size uint64, err error) {
	table := w.address(root)

	for level := 3; level >= 0; level-- {
		if entry, err = w.Memory.Read(table + index(addr, level)*8); err != nil {
			return
		}

		if entry&Present == 0 {
			return 0, 0, ErrNotMapped
		}

		if level == 0 || (level < 3 && entry&PageSize != 0) {
			return entry, uint64(1) << (12 + 9*uint(level)), nil
		}

		table = w.address(entry)
	}

	return
}

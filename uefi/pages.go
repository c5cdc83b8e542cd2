// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

// EFI Boot Services offsets
const (
	allocatePages = 0x28
	freePages     = 0x30
	allocatePool  = 0x40
	freePool      = 0x48
)

// PageSize represents the EFI page size in bytes
const PageSize = 4096 // 4 KiB

// EFI_ALLOCATE_TYPE
const (
	AllocateAnyPages = iota
	AllocateMaxAddress
	AllocateAddress
	MaxAllocateType
)

// EFI_MEMORY_TYPE
const (
	EfiReservedMemoryType = iota
	EfiLoaderCode
	EfiLoaderData
	EfiBootServicesCode
	EfiBootServicesData
	EfiRuntimeServicesCode
	EfiRuntimeServicesData
	EfiConventionalMemory
	EfiUnusableMemory
	EfiACPIReclaimMemory
	EfiACPIMemoryNVS
	EfiMemoryMappedIO
	EfiMemoryMappedIOPortSpace
	EfiPalCode
	EfiPersistentMemory
	EfiUnacceptedMemoryType
	EfiMaxMemoryType
)

// SizeToPages returns the number of pages covering size bytes, rounding up
// (EFI_SIZE_TO_PAGES).
func SizeToPages(size uint64) uint64 {
	n := size / PageSize

	if size%PageSize != 0 {
		n++
	}

	return n
}

// AllocatePages calls EFI_BOOT_SERVICES.AllocatePages(), the physical address
// argument is only relevant for AllocateMaxAddress and AllocateAddress types.
func (s *BootServices) AllocatePages(allocateType int, memoryType int, size int, physicalAddress uint64) (uint64, error) {
	status := callService(s.base+allocatePages,
		[]uint64{
			uint64(allocateType),
			uint64(memoryType),
			SizeToPages(uint64(size)),
			ptrval(&physicalAddress),
		},
	)

	return physicalAddress, parseStatus(status)
}

// FreePages calls EFI_BOOT_SERVICES.FreePages().
func (s *BootServices) FreePages(physicalAddress uint64, size int) error {
	status := callService(s.base+freePages,
		[]uint64{
			physicalAddress,
			SizeToPages(uint64(size)),
		},
	)

	return parseStatus(status)
}

// AllocatePool calls EFI_BOOT_SERVICES.AllocatePool().
func (s *BootServices) AllocatePool(memoryType int, size int) (addr uint64, err error) {
	status := callService(s.base+allocatePool,
		[]uint64{
			uint64(memoryType),
			uint64(size),
			ptrval(&addr),
		},
	)

	return addr, parseStatus(status)
}

// FreePool calls EFI_BOOT_SERVICES.FreePool().
func (s *BootServices) FreePool(addr uint64) error {
	status := callService(s.base+freePool,
		[]uint64{
			addr,
		},
	)

	return parseStatus(status)
}

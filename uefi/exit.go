// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

// EFI Boot Services offset for Exit
const exit = 0xd8

// Exit calls EFI_BOOT_SERVICES.Exit(), returning the argument status to the
// image caller (e.g. the DXE dispatcher).
func (s *BootServices) Exit(status uint64) (err error) {
	ret := callService(s.base+exit,
		[]uint64{
			s.imageHandle,
			status,
			0,
			0,
		},
	)

	return parseStatus(ret)
}

// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !tamago || !amd64

package uefi

func callService(fn uint64, args []uint64) (status uint64) {
	return errorBit | EFI_UNSUPPORTED
}

func decode(data any, addr uint64) error {
	return ErrUnsupported
}

func read(addr uint64, size int) ([]byte, error) {
	return nil, ErrUnsupported
}

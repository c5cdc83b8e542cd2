// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

// The sevdxe command is an UEFI image performing the early DXE initialization
// of AMD SEV guests, see the amdsev package for details.
package main

import (
	"errors"
	"io"
	"log"

	"github.com/usbarmory/sevdxe/amdsev"
	"github.com/usbarmory/sevdxe/pcd"
	"github.com/usbarmory/sevdxe/uefi"
	"github.com/usbarmory/sevdxe/uefi/x64"
)

func init() {
	log.SetFlags(0)

	if x64.UEFI.Console != nil {
		log.SetOutput(io.MultiWriter(x64.UART0, x64.UEFI.Console))
	} else {
		log.SetOutput(x64.UART0)
	}
}

// verify reports the Confidential Computing Blob as seen by later boot stages.
func verify() {
	if err := x64.UEFI.Refresh(); err != nil {
		log.Printf("could not refresh EFI System Table, %v", err)
		return
	}

	blob, err := x64.UEFI.GetSNPConfiguration()

	if err != nil {
		log.Printf("could not find Confidential Computing Blob, %v", err)
		return
	}

	if !blob.Valid() {
		log.Printf("invalid Confidential Computing Blob")
	}
}

func main() {
	if x64.UEFI.Boot == nil {
		log.Printf("EFI Boot Services unavailable")
		x64.Halt()
	}

	cfg, err := pcd.Load(pcd.Profile)

	if err != nil {
		log.Printf("could not load PCD profile %q, %v", pcd.Profile, err)
		x64.Halt()
	}

	driver := &amdsev.Driver{
		MemEncrypt: x64.NewEncryptor(cfg.SMMRequired),
		Firmware:   &x64.Firmware{Services: x64.UEFI},
		Memory:     &x64.Memory{},
		Config:     cfg,
		Halt:       x64.Halt,
	}

	r, err := driver.Run()

	switch {
	case errors.Is(err, uefi.ErrUnsupported) && !r.SEV:
		// not an SEV guest, nothing to report
	case err != nil:
		log.Printf("%s\nerror: %v", r, err)
	default:
		log.Print(r)
	}

	if r.Published {
		verify()
	}

	if err = x64.UEFI.Boot.Exit(uefi.StatusCode(err)); err != nil {
		log.Printf("could not exit, %v", err)
	}

	x64.Halt()
}

// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !tamago || !amd64

package uefi

import (
	"errors"
	"testing"
)

func TestServicesUnavailable(t *testing.T) {
	s := &Services{}

	if err := s.Init(0, 0x1000); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unexpected error %v", err)
	}

	b := &BootServices{}

	if _, err := b.AllocatePool(EfiACPIReclaimMemory, CCBlobSize); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unexpected error %v", err)
	}

	if _, err := read(0x1000, 8); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unexpected error %v", err)
	}
}

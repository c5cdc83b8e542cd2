// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"bytes"
	"testing"
)

func TestParseGUID(t *testing.T) {
	// CONFIDENTIAL_COMPUTING_SEV_SNP_BLOB_GUID as laid out in memory
	native := []byte{
		0x5f, 0x1f, 0x7b, 0x06,
		0x26, 0xcf,
		0xc5, 0x44,
		0x85, 0x54,
		0x93, 0xd7, 0x77, 0x91, 0x2d, 0x42,
	}

	g, err := ParseGUID("067b1f5f-cf26-44c5-8554-93d777912d42")

	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(g[:], native) {
		t.Fatalf("unexpected native layout %x", g[:])
	}

	if g != CONFIDENTIAL_COMPUTING_SEV_SNP_BLOB_GUID {
		t.Fatal("GUID mismatch")
	}

	if s := g.String(); s != "067b1f5f-cf26-44c5-8554-93d777912d42" {
		t.Fatalf("unexpected registry format %s", s)
	}
}

func TestParseGUIDUpperCase(t *testing.T) {
	g, err := ParseGUID("05AD34BA-6F02-4214-952E-4DA0398E2BB9")

	if err != nil {
		t.Fatal(err)
	}

	if g != DXE_SERVICES_TABLE_GUID {
		t.Fatalf("GUID mismatch, %s", g)
	}
}

func TestParseGUIDInvalid(t *testing.T) {
	for _, s := range []string{
		"",
		"067b1f5f-cf26-44c5-8554",
		"067b1f5f-cf26-44c5-8554-93d777912d4",
		"067b1f5fxcf26-44c5-8554-93d777912d42",
		"g67b1f5f-cf26-44c5-8554-93d777912d42",
	} {
		if _, err := ParseGUID(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestConfidentialComputingBlobLayout(t *testing.T) {
	blob := &ConfidentialComputingBlob{
		Header:                 CCBlobSignature,
		Version:                CCBlobVersion,
		SecretsPhysicalAddress: 0x80d000,
		SecretsSize:            0x1000,
		CPUIDPhysicalAddress:   0x80e000,
		CPUIDSize:              0x1000,
	}

	if n := binary.Size(blob); n != CCBlobSize {
		t.Fatalf("unexpected size %d", n)
	}

	buf, err := blob.MarshalBinary()

	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(buf[0:4], []byte("AMDE")) {
		t.Fatalf("unexpected signature %q", buf[0:4])
	}

	for _, f := range []struct {
		off  int
		size int
		val  uint64
	}{
		{0, 4, 0x45444d41},
		{4, 4, 1},
		{8, 4, 0},
		{12, 8, 0x80d000},
		{20, 4, 0x1000},
		{24, 4, 0},
		{28, 8, 0x80e000},
		{36, 4, 0x1000},
		{40, 4, 0},
	} {
		var v uint64

		switch f.size {
		case 4:
			v = uint64(binary.LittleEndian.Uint32(buf[f.off:]))
		case 8:
			v = binary.LittleEndian.Uint64(buf[f.off:])
		}

		if v != f.val {
			t.Errorf("offset %d: got %#x, want %#x", f.off, v, f.val)
		}
	}

	decoded := &ConfidentialComputingBlob{}

	if err = decoded.UnmarshalBinary(buf); err != nil {
		t.Fatal(err)
	}

	if *decoded != *blob || !decoded.Valid() {
		t.Fatalf("unexpected decoded blob %+v", decoded)
	}
}

func TestConfidentialComputingBlobShort(t *testing.T) {
	if err := (&ConfidentialComputingBlob{}).UnmarshalBinary(make([]byte, CCBlobSize-1)); err == nil {
		t.Fatal("expected error")
	}
}

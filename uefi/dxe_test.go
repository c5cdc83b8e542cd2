// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"testing"
)

func TestParseMemorySpaceMap(t *testing.T) {
	want := []MemorySpaceDescriptor{
		{BaseAddress: 0xfed00000, Length: 0x1000, GcdMemoryType: EfiGcdMemoryTypeMemoryMappedIo},
		{BaseAddress: 0, Length: 0x80000000, GcdMemoryType: EfiGcdMemoryTypeSystemMemory, Attributes: 0xf},
		{BaseAddress: 0x100000000, Length: 0x10000000, GcdMemoryType: EfiGcdMemoryTypeNonExistent, ImageHandle: 1},
	}

	var buf []byte

	for i := range want {
		b, err := marshalBinary(&want[i])

		if err != nil {
			t.Fatal(err)
		}

		buf = append(buf, b...)
	}

	if n := binary.Size(&MemorySpaceDescriptor{}); len(buf) != n*len(want) || n != 56 {
		t.Fatalf("unexpected descriptor size %d", n)
	}

	descs, err := ParseMemorySpaceMap(buf)

	if err != nil {
		t.Fatal(err)
	}

	if len(descs) != len(want) {
		t.Fatalf("got %d descriptors, want %d", len(descs), len(want))
	}

	for i, d := range descs {
		if *d != want[i] {
			t.Errorf("descriptor %d: got %+v, want %+v", i, *d, want[i])
		}
	}

	if descs[2].End() != 0x110000000 {
		t.Errorf("unexpected end %#x", descs[2].End())
	}

	if _, err = ParseMemorySpaceMap(buf[:55]); err == nil {
		t.Fatal("expected error on truncated map")
	}
}

func TestGcdMemoryTypeString(t *testing.T) {
	if s := GcdMemoryType(EfiGcdMemoryTypeMemoryMappedIo).String(); s != "MemoryMappedIo" {
		t.Fatalf("unexpected name %s", s)
	}

	if s := GcdMemoryType(42).String(); s != "GcdMemoryType(42)" {
		t.Fatalf("unexpected name %s", s)
	}
}

func TestSizeToPages(t *testing.T) {
	for _, tt := range []struct{ size, pages uint64 }{
		{0, 0},
		{1, 1},
		{PageSize, 1},
		{PageSize + 1, 2},
		{256 << 20, 65536},
	} {
		if n := SizeToPages(tt.size); n != tt.pages {
			t.Errorf("SizeToPages(%#x) = %d, want %d", tt.size, n, tt.pages)
		}
	}
}

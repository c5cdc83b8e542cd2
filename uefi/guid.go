// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

var (
	// PI Specification Volume 2 - DXE Services Table
	DXE_SERVICES_TABLE_GUID = MustParseGUID("05ad34ba-6f02-4214-952e-4da0398e2bb9")

	// AMD SEV-SNP Confidential Computing Blob
	CONFIDENTIAL_COMPUTING_SEV_SNP_BLOB_GUID = MustParseGUID("067b1f5f-cf26-44c5-8554-93d777912d42")
)

// registry format field lengths
var guidFields = []int{8, 4, 4, 4, 12}

// GUID represents an EFI GUID in its native 16-byte memory layout, where the
// first three fields are little-endian.
type GUID [16]byte

// ParseGUID parses a GUID in registry format
// (xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx).
func ParseGUID(s string) (g GUID, err error) {
	f := strings.Split(s, "-")

	if len(f) != len(guidFields) {
		return GUID{}, fmt.Errorf("invalid GUID format: %q", s)
	}

	for i, n := range guidFields {
		if len(f[i]) != n {
			return GUID{}, fmt.Errorf("invalid GUID format: %q", s)
		}
	}

	buf, err := hex.DecodeString(strings.Join(f, ""))

	if err != nil {
		return GUID{}, fmt.Errorf("invalid GUID format: %q, %v", s, err)
	}

	binary.LittleEndian.PutUint32(g[0:4], binary.BigEndian.Uint32(buf[0:4]))
	binary.LittleEndian.PutUint16(g[4:6], binary.BigEndian.Uint16(buf[4:6]))
	binary.LittleEndian.PutUint16(g[6:8], binary.BigEndian.Uint16(buf[6:8]))
	copy(g[8:], buf[8:])

	return
}

// MustParseGUID is like ParseGUID but panics on error, for package level GUID
// declarations.
func MustParseGUID(s string) (g GUID) {
	var err error

	if g, err = ParseGUID(s); err != nil {
		panic(err)
	}

	return
}

// String returns the registry format string representation of the GUID.
// https://uefi.org/specs/UEFI/2.10/Apx_A_GUID_and_Time_Formats.html
func (g GUID) String() string {
	// First three fields are little-endian 32/16/16
	return fmt.Sprintf("%08x-%04x-%04x-%x-%x",
		binary.LittleEndian.Uint32(g[0:4]),
		binary.LittleEndian.Uint16(g[4:6]),
		binary.LittleEndian.Uint16(g[6:8]),
		g[8:10],
		g[10:])
}

func (g *GUID) ptrval() uint64 {
	return ptrval(&g[0])
}

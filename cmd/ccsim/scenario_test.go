// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usbarmory/sevdxe/amdsev"
	"github.com/usbarmory/sevdxe/pcd"
	"github.com/usbarmory/sevdxe/sim"
	"github.com/usbarmory/sevdxe/uefi"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/snp-smm.toml")
	require.NoError(t, err)
	require.True(t, s.SEV)
	require.True(t, s.SNP)
	require.Equal(t, "q35-smm", s.Profile)
	require.Len(t, s.Descriptors, 4)

	p, err := s.Platform()
	require.NoError(t, err)
	require.Equal(t, uefi.GcdMemoryType(uefi.EfiGcdMemoryTypeMemoryMappedIo), p.Descriptors[1].GcdMemoryType)
	require.ErrorIs(t, p.Fail[sim.InstallConfigurationTable], uefi.ErrOutOfResources)
	require.ErrorIs(t, p.FailMMIO[0xfec00000], uefi.ErrNoMapping)
}

func TestRunScenario(t *testing.T) {
	s, err := LoadScenario("testdata/snp-smm.toml")
	require.NoError(t, err)

	cfg, err := pcd.Load(s.Profile)
	require.NoError(t, err)

	p, err := s.Platform()
	require.NoError(t, err)

	halted := false

	d := &amdsev.Driver{
		MemEncrypt: p,
		Firmware:   p,
		Memory:     p,
		Config:     cfg,
		Halt:       func() { halted = true },
	}

	r, err := d.Run()
	require.ErrorIs(t, err, uefi.ErrOutOfResources)
	require.False(t, halted)
	require.False(t, r.Published)

	// fed00000, NonExistent and MMCONFIG
	require.Len(t, r.Cleared, 3)
	require.NotNil(t, r.MMConfig)
	require.NotNil(t, r.SMRAM)
	require.ErrorIs(t, r.Err(), uefi.ErrNoMapping)

	blob := &uefi.ConfidentialComputingBlob{}
	require.NoError(t, blob.UnmarshalBinary(p.Read(r.BlobAddress, uefi.CCBlobSize)))
	require.True(t, blob.Valid())
	require.Equal(t, cfg.SecretsBase, blob.SecretsPhysicalAddress)
}

func TestInvalidScenario(t *testing.T) {
	s, err := LoadScenario("testdata/bad-status.toml")
	require.NoError(t, err)

	_, err = s.Platform()
	require.Error(t, err)

	_, err = LoadScenario("testdata/missing.toml")
	require.Error(t, err)
}

func TestParseType(t *testing.T) {
	for _, tt := range []struct {
		s    string
		want uefi.GcdMemoryType
		ok   bool
	}{
		{"NonExistent", uefi.EfiGcdMemoryTypeNonExistent, true},
		{"MemoryMappedIo", uefi.EfiGcdMemoryTypeMemoryMappedIo, true},
		{"0x3", uefi.EfiGcdMemoryTypeMemoryMappedIo, true},
		{"Unaccepted", uefi.EfiGcdMemoryTypeUnaccepted, true},
		{"MMIO", 0, false},
	} {
		t.Run(tt.s, func(t *testing.T) {
			got, err := parseType(tt.s)

			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}

			require.Equal(t, tt.want, got)
		})
	}
}

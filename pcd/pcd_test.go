// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pcd

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/usbarmory/sevdxe/amdsev"
)

func TestLoad(t *testing.T) {
	for _, tt := range []struct {
		name string
		want amdsev.Config
	}{
		{
			name: "q35",
			want: amdsev.Config{
				SecretsBase:     0x80d000,
				SecretsSize:     0x1000,
				CPUIDBase:       0x80e000,
				CPUIDSize:       0x1000,
				PCIExpressBase:  0xb0000000,
				HostBridgeDevID: amdsev.IntelQ35MCHDeviceID,
			},
		},
		{
			name: "q35-smm",
			want: amdsev.Config{
				SecretsBase:     0x80d000,
				SecretsSize:     0x1000,
				CPUIDBase:       0x80e000,
				CPUIDSize:       0x1000,
				PCIExpressBase:  0xb0000000,
				HostBridgeDevID: amdsev.IntelQ35MCHDeviceID,
				SMMRequired:     true,
			},
		},
		{
			name: "i440fx",
			want: amdsev.Config{
				SecretsBase:     0x80d000,
				SecretsSize:     0x1000,
				CPUIDBase:       0x80e000,
				CPUIDSize:       0x1000,
				HostBridgeDevID: 0x1237,
			},
		},
	} {
		cfg, err := Load(tt.name)

		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}

		if diff := cmp.Diff(tt.want, *cfg); diff != "" {
			t.Errorf("%s: unexpected profile (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestDefaultProfile(t *testing.T) {
	if _, err := Load(Profile); err != nil {
		t.Fatal(err)
	}
}

func TestProfiles(t *testing.T) {
	names, err := Profiles(Database)

	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"i440fx", "q35", "q35-smm"}, names); diff != "" {
		t.Fatalf("unexpected profiles (-want +got):\n%s", diff)
	}
}

func TestMissingProfile(t *testing.T) {
	if _, err := Load("microvm"); !errors.Is(err, ErrProfile) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, doc := range []string{
		"[q35\n",
		"[q35]\nhost_bridge_device_id = \"Q35\"\n",
		"[q35]\nhost_bridge_device_id = 0x29c0\npcie_base = 0xb0000000\n",
	} {
		if _, err := Decode([]byte(doc), "q35"); err == nil {
			t.Errorf("expected error decoding %q", doc)
		}
	}
}

func TestDecodeOverride(t *testing.T) {
	doc := `
[custom]
pci_express_base_address = 0xe0000000
host_bridge_device_id = 0x29c0
strict_mmio = true
free_unpublished_blob = true
`
	cfg, err := Decode([]byte(doc), "custom")

	if err != nil {
		t.Fatal(err)
	}

	if cfg.PCIExpressBase != 0xe0000000 || !cfg.StrictMMIO || !cfg.FreeUnpublishedBlob || cfg.SecretsBase != 0 {
		t.Fatalf("unexpected profile %+v", cfg)
	}
}

// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"errors"
)

// EFI Boot Services offset for InstallConfigurationTable
const installConfigurationTable = 0xc0

// ConfigurationTable represents an EFI Configuration Table entry.
type ConfigurationTable struct {
	GUID        GUID
	VendorTable uint64
}

// ConfigurationTables returns the EFI Configuration Tables.
func (d *SystemTable) ConfigurationTables() (c []*ConfigurationTable, err error) {
	if d.NumberOfTableEntries == 0 || d.ConfigurationTable == 0 {
		return nil, errors.New("EFI Configuration Table is invalid")
	}

	entrySize := binary.Size(&ConfigurationTable{})
	tableSize := entrySize * int(d.NumberOfTableEntries)

	buf, err := read(d.ConfigurationTable, tableSize)

	if err != nil {
		return
	}

	for i := 0; i < tableSize; i += entrySize {
		t := &ConfigurationTable{}

		if err = unmarshalBinary(buf[i:i+entrySize], t); err != nil {
			return
		}

		c = append(c, t)
	}

	return
}

// LocateConfiguration locates an EFI Configuration Table.
func (d *SystemTable) LocateConfiguration(guid GUID) (t *ConfigurationTable, err error) {
	var c []*ConfigurationTable

	if c, err = d.ConfigurationTables(); err != nil {
		return
	}

	for _, t := range c {
		if t.GUID == guid {
			return t, nil
		}
	}

	return nil, ErrNotFound
}

// InstallConfigurationTable calls EFI_BOOT_SERVICES.InstallConfigurationTable().
func (s *BootServices) InstallConfigurationTable(guid GUID, table uint64) error {
	status := callService(s.base+installConfigurationTable,
		[]uint64{
			guid.ptrval(),
			table,
		},
	)

	return parseStatus(status)
}

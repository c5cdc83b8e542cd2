// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// CCBlobSignature is the Confidential Computing Blob header, 'A','M','D','E'
// packed in little-endian order.
const CCBlobSignature = 0x45444d41

// CCBlobVersion is the Confidential Computing Blob layout version.
const CCBlobVersion = 1

// CCBlobSize is the encoded size of a ConfidentialComputingBlob.
const CCBlobSize = 44

// ConfidentialComputingBlob represents the AMD SEV-SNP Confidential Computing
// Blob (CONFIDENTIAL_COMPUTING_SNP_BLOB_LOCATION) which later boot stages use
// to find the SNP secrets and CPUID pages.
type ConfidentialComputingBlob struct {
	Header                 uint32
	Version                uint32
	_                      uint32
	SecretsPhysicalAddress uint64
	SecretsSize            uint32
	_                      uint32
	CPUIDPhysicalAddress   uint64
	CPUIDSize              uint32
	_                      uint32
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
func (b *ConfidentialComputingBlob) MarshalBinary() (data []byte, err error) {
	data = make([]byte, CCBlobSize)
	_, err = binary.Encode(data, binary.LittleEndian, b)
	return
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
func (b *ConfidentialComputingBlob) UnmarshalBinary(data []byte) (err error) {
	if len(data) < CCBlobSize {
		return fmt.Errorf("invalid blob size %d", len(data))
	}

	_, err = binary.Decode(data, binary.LittleEndian, b)
	return
}

// Valid returns whether the blob carries the expected signature and a
// supported version.
func (b *ConfidentialComputingBlob) Valid() bool {
	return b.Header == CCBlobSignature && b.Version >= CCBlobVersion
}

// GetSNPConfiguration returns the AMD SEV-SNP Confidential Computing Blob
// installed in the EFI Configuration Table.
func (s *Services) GetSNPConfiguration() (blob *ConfidentialComputingBlob, err error) {
	var t *ConfigurationTable

	if s.SystemTable == nil {
		return nil, errors.New("EFI System Table is invalid")
	}

	if t, err = s.SystemTable.LocateConfiguration(CONFIDENTIAL_COMPUTING_SEV_SNP_BLOB_GUID); err != nil {
		return
	}

	blob = &ConfidentialComputingBlob{}

	if err = decode(blob, t.VendorTable); err != nil {
		return nil, err
	}

	if !blob.Valid() {
		return blob, errors.New("EFI SNP Configuration Table is invalid")
	}

	return
}

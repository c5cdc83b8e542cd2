// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pcd provides the platform build-time constants consumed by the AMD
// SEV early DXE driver.
//
// Constants are grouped in named profiles, held in an embedded TOML document,
// one profile is selected at link time through the Profile variable.
package pcd

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/usbarmory/sevdxe/amdsev"
)

// Profile is the default profile name, it can be overridden at link time.
var Profile = "q35"

//go:embed pcd.toml
var Database []byte

// ErrProfile is returned when a requested profile is not defined.
var ErrProfile = errors.New("profile not found")

// Profiles returns the sorted profile names defined in a PCD document.
func Profiles(data []byte) (names []string, err error) {
	var db map[string]toml.Primitive

	if _, err = toml.Decode(string(data), &db); err != nil {
		return
	}

	for name := range db {
		names = append(names, name)
	}

	sort.Strings(names)

	return
}

// Decode parses a PCD document and returns the constants of the named
// profile.
func Decode(data []byte, name string) (cfg *amdsev.Config, err error) {
	var db map[string]toml.Primitive

	md, err := toml.Decode(string(data), &db)

	if err != nil {
		return nil, fmt.Errorf("invalid PCD database, %w", err)
	}

	p, ok := db[name]

	if !ok {
		return nil, fmt.Errorf("%w (%q)", ErrProfile, name)
	}

	cfg = &amdsev.Config{}

	if err = md.PrimitiveDecode(p, cfg); err != nil {
		return nil, fmt.Errorf("invalid profile %q, %w", name, err)
	}

	for _, key := range md.Undecoded() {
		if len(key) > 1 && key[0] == name {
			return nil, fmt.Errorf("invalid profile %q, unknown key %s", name, key)
		}
	}

	return
}

// Load returns the constants of the named profile from the embedded database.
func Load(name string) (*amdsev.Config, error) {
	return Decode(Database, name)
}

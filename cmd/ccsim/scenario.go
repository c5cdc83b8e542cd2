// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/usbarmory/sevdxe/sim"
	"github.com/usbarmory/sevdxe/uefi"
)

// Descriptor represents a scenario GCD memory space descriptor.
type Descriptor struct {
	Base   uint64 `toml:"base"`
	Length uint64 `toml:"length"`
	Type   string `toml:"type"`
}

// Scenario represents a simulated guest environment.
type Scenario struct {
	SEV bool `toml:"sev"`
	SNP bool `toml:"snp"`

	// Profile overrides the PCD profile
	Profile string `toml:"profile"`

	Descriptors []Descriptor `toml:"descriptor"`

	// Fail maps service names to EFI_STATUS names
	Fail map[string]string `toml:"fail"`
	// FailMMIO maps base addresses to EFI_STATUS names
	FailMMIO map[string]string `toml:"fail_mmio"`
}

func parseType(s string) (t uefi.GcdMemoryType, err error) {
	for t = 0; t < uefi.EfiGcdMemoryTypeMaximum; t++ {
		if t.String() == s {
			return
		}
	}

	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uefi.GcdMemoryType(n), nil
	}

	return 0, fmt.Errorf("invalid memory type %q", s)
}

// Platform returns the simulated platform described by the scenario.
func (s *Scenario) Platform() (p *sim.Platform, err error) {
	p = &sim.Platform{
		SEV:      s.SEV,
		SNP:      s.SNP,
		Fail:     make(map[string]error),
		FailMMIO: make(map[uint64]error),
	}

	for _, d := range s.Descriptors {
		var t uefi.GcdMemoryType

		if t, err = parseType(d.Type); err != nil {
			return nil, err
		}

		p.Descriptors = append(p.Descriptors, uefi.MemorySpaceDescriptor{
			BaseAddress:   d.Base,
			Length:        d.Length,
			GcdMemoryType: t,
		})
	}

	for op, name := range s.Fail {
		e, ok := uefi.LookupStatus(name)

		if !ok {
			return nil, fmt.Errorf("invalid status %q for %s", name, op)
		}

		p.Fail[op] = e
	}

	for base, name := range s.FailMMIO {
		addr, err := strconv.ParseUint(base, 0, 64)

		if err != nil {
			return nil, fmt.Errorf("invalid address %q, %v", base, err)
		}

		e, ok := uefi.LookupStatus(name)

		if !ok {
			return nil, fmt.Errorf("invalid status %q for %#x", name, addr)
		}

		p.FailMMIO[addr] = e
	}

	return
}

// LoadScenario parses a scenario TOML file.
func LoadScenario(path string) (s *Scenario, err error) {
	s = &Scenario{}

	md, err := toml.DecodeFile(path, s)

	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown scenario keys %v", undecoded)
	}

	return
}

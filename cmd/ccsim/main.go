// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// The ccsim command runs the AMD SEV early DXE driver against a simulated
// guest environment, described in a TOML scenario file, and prints the
// resulting firmware service calls, Confidential Computing Blob and
// EFI_STATUS.
package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	flag "github.com/spf13/pflag"

	"github.com/usbarmory/sevdxe/amdsev"
	"github.com/usbarmory/sevdxe/pcd"
	"github.com/usbarmory/sevdxe/sim"
	"github.com/usbarmory/sevdxe/uefi"
)

var (
	profile  = flag.StringP("profile", "p", "", "PCD profile (default: scenario profile or "+pcd.Profile+")")
	database = flag.String("pcd", "", "PCD database file (default: embedded)")
	strict   = flag.Bool("strict", false, "treat MMIO C-bit clearing failures as fatal")
	freeBlob = flag.Bool("free-blob", false, "release the Confidential Computing Blob when not published")
	list     = flag.BoolP("list", "l", false, "list PCD profiles")
)

func init() {
	log.SetFlags(0)
	log.SetPrefix("ccsim: ")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <scenario.toml>\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func loadDatabase() (data []byte, err error) {
	if *database == "" {
		return pcd.Database, nil
	}

	return os.ReadFile(*database)
}

func printCalls(calls []sim.Call) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Firmware services")
	t.AppendHeader(table.Row{"#", "Service", "Arguments", "Result"})

	for i, c := range calls {
		var args []string

		if c.GUID != nil {
			args = append(args, c.GUID.String())
		}

		for _, a := range c.Args {
			args = append(args, fmt.Sprintf("%#x", a))
		}

		res := "EFI_SUCCESS"

		if c.Err != nil {
			res = c.Err.Error()
		}

		t.AppendRow(table.Row{i, c.Op, strings.Join(args, ", "), res})
	}

	t.Render()
}

func printShared(r *amdsev.Report) {
	var total uint64

	if len(r.Cleared) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Shared memory space")
	t.AppendHeader(table.Row{"Type", "Base", "Pages", "Size"})

	for _, c := range r.Cleared {
		t.AppendRow(table.Row{c.Type, fmt.Sprintf("%#x", c.Base), c.Pages, humanize.IBytes(c.Size())})
		total += c.Size()
	}

	t.AppendFooter(table.Row{"", "", "Total", humanize.IBytes(total)})
	t.Render()
}

func main() {
	var halted bool

	flag.Parse()

	data, err := loadDatabase()

	if err != nil {
		log.Fatalf("could not load PCD database, %v", err)
	}

	if *list {
		names, err := pcd.Profiles(data)

		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(strings.Join(names, "\n"))
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	s, err := LoadScenario(flag.Arg(0))

	if err != nil {
		log.Fatalf("could not load scenario, %v", err)
	}

	name := pcd.Profile

	switch {
	case *profile != "":
		name = *profile
	case s.Profile != "":
		name = s.Profile
	}

	cfg, err := pcd.Decode(data, name)

	if err != nil {
		log.Fatal(err)
	}

	cfg.StrictMMIO = cfg.StrictMMIO || *strict
	cfg.FreeUnpublishedBlob = cfg.FreeUnpublishedBlob || *freeBlob

	p, err := s.Platform()

	if err != nil {
		log.Fatal(err)
	}

	driver := &amdsev.Driver{
		MemEncrypt: p,
		Firmware:   p,
		Memory:     p,
		Config:     cfg,
		Halt:       func() { halted = true },
		Log:        log.New(os.Stderr, "", 0),
	}

	r, err := driver.Run()

	printCalls(p.Calls)
	printShared(r)

	fmt.Printf("\nProfile ............: %s\n", name)
	fmt.Print(r)

	if r.BlobAddress != 0 {
		fmt.Printf("\n%s", hex.Dump(p.Read(r.BlobAddress, uefi.CCBlobSize)))
	}

	status := uefi.StatusCode(err)
	fmt.Printf("\nEFI_STATUS .........: %#x", status)

	if err != nil {
		fmt.Printf(" (%v)", err)
	}

	fmt.Println()

	if halted {
		fmt.Println("CPU halted")
		os.Exit(1)
	}
}

// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/buildinfo"

	"github.com/lassandro/gochip8/pkg/disasm"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

var (
	helpvar    bool
	versionvar bool
	outvar     string
)

const usage = "gochip8-dasm [options] rom"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&versionvar, "version", false, "Displays the build version")
	flag.StringVar(&outvar, "o", "",
		"Output file for the listing, stdout if not given")
	flag.Parse()
}

func dasm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	if versionvar {
		fmt.Printf(
			"gochip8-dasm %s\n", buildinfo.Version(version, commit, date),
		)
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	rom, err := os.ReadFile(args[0])

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	out := os.Stdout

	if outvar != "" {
		out, err = os.Create(outvar)

		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		defer out.Close()
	}

	if err := disasm.Listing(rom, out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(dasm())
}

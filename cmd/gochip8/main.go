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

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/lassandro/gochip8/pkg/runner"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

var (
	helpvar    bool
	versionvar bool
	debugvar   bool
	verbosevar bool
	quietvar   bool
	tracevar   bool
	hzvar      uint
)

// Shared with the debug REPL: the REPL requests shutdown and machine
// resets through these, the same way the run loop does.
var (
	shouldexit bool
	loadedROM  []byte
	port       *terminalPort
)

const usage = "gochip8 [options] rom"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&versionvar, "version", false, "Displays the build version")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(&verbosevar, "v", false, "Enables debug logging")
	flag.BoolVar(&quietvar, "q", false, "Logs errors only")
	flag.BoolVar(&tracevar, "trace", false,
		"Logs every executed instruction in assembly form")
	flag.UintVar(&hzvar, "hz", machine.DefaultClockHz,
		"Instruction clock in ticks per second")
	flag.Parse()
}

func newLogger() *log.Logger {
	cfg := log.DefaultConfig()

	if verbosevar || tracevar {
		cfg.Level = log.DebugLevel
	} else if quietvar {
		cfg.Level = log.ErrorLevel
	}

	return log.NewWithConfig(cfg)
}

func gochip8() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	if versionvar {
		fmt.Printf("gochip8 %s\n", buildinfo.Version(version, commit, date))
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	logger := newLogger()

	rom, err := os.ReadFile(args[0])

	if err != nil {
		logger.Error("Unable to read ROM", log.Err(err))
		return 1
	}

	loadedROM = rom

	mc := machine.New(logger)

	if err := mc.State.Load(rom); err != nil {
		logger.Error("Unable to load ROM", log.Err(err))
		return 1
	}

	port, err = newTerminalPort()

	if err != nil {
		logger.Error("Unable to set up terminal", log.Err(err))
		return 1
	}

	defer port.Close()

	if debugvar {
		dbg := &debugger.Debugger{
			HandleBreak: handleBreak,
			HandleRead:  handleRead,
			HandleWrite: handleWrite,
		}
		mc.Hooks = dbg

		debugREPL(dbg, mc)
	}

	run := &runner.Runner{
		Machine: mc,
		Port:    port,
		Logger:  logger,
		ClockHz: hzvar,
		Trace:   tracevar,
	}

	code, err := run.Run(app.Context())

	// Restore the terminal before anything gets printed about the
	// outcome, fault or not
	port.Close()

	if err != nil {
		logger.Error("Machine fault", log.Err(err))
		return 1
	}

	logger.Debug("Program exited", log.Int("code", code))
	return code
}

func main() {
	os.Exit(gochip8())
}

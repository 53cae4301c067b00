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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

var lastcmd []string

func debugBreak(dbg *debugger.Debugger, args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x###]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		addr, err := encoding.DecodeHex(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		addr &= machine.AddrMask

		exists := false

		for _, breakpoint := range dbg.Breakpoints {
			if breakpoint.Addr == addr {
				exists = true
				break
			}
		}

		if !exists {
			dbg.Breakpoints = append(
				dbg.Breakpoints,
				debugger.Breakpoint{Addr: addr},
			)

			fmt.Printf("Breakpoint added [%#03x]\n", addr)
		}

	case "l", "ls", "list":
		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf("#%d: %#03x\n", i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := encoding.DecodeInt(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		if i < 0 || int(i) >= len(dbg.Breakpoints) {
			fmt.Println("Invalid breakpoint number")
			return
		}

		dbg.Breakpoints[i] = dbg.Breakpoints[len(dbg.Breakpoints)-1]
		dbg.Breakpoints = dbg.Breakpoints[:len(dbg.Breakpoints)-1]
		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		fmt.Printf("break: '%s' is not a valid command\n", cmd)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|rm|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x###] [read|write|readwrite]"

		if len(args) != 2 {
			fmt.Println(usage)
			return
		}

		addr, err := encoding.DecodeHex(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		addr &= machine.AddrMask

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "rwrite", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			fmt.Println(usage)
			return
		}

		exists := false

		for _, watchpoint := range dbg.Watchpoints {
			if watchpoint.Addr == addr && watchpoint.Type == wtype {
				exists = true
				break
			}
		}

		if !exists {
			dbg.Watchpoints = append(
				dbg.Watchpoints,
				debugger.Watchpoint{Addr: addr, Type: wtype},
			)

			var typename string
			switch wtype {
			case debugger.ReadWatch:
				typename = "R"
			case debugger.WriteWatch:
				typename = "W"
			case debugger.ReadWriteWatch:
				typename = "RW"
			}

			fmt.Printf("Watchpoint added [%#03x] (%s)\n", addr, typename)
		}

	case "l", "ls", "list":
		for i, watchpoint := range dbg.Watchpoints {
			switch watchpoint.Type {
			case debugger.ReadWatch:
				fmt.Printf("#%d: %#03x read\n", i, watchpoint.Addr)
			case debugger.WriteWatch:
				fmt.Printf("#%d: %#03x write\n", i, watchpoint.Addr)
			case debugger.ReadWriteWatch:
				fmt.Printf("#%d: %#03x rwrite\n", i, watchpoint.Addr)
			}
		}

	case "r", "rm", "remove":
		const usage = "watch rm [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := encoding.DecodeInt(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		if i < 0 || int(i) >= len(dbg.Watchpoints) {
			fmt.Println("Invalid watchpoint number")
			return
		}

		dbg.Watchpoints[i] = dbg.Watchpoints[len(dbg.Watchpoints)-1]
		dbg.Watchpoints = dbg.Watchpoints[:len(dbg.Watchpoints)-1]
		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		fmt.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

func debugReg(st *machine.State, args []string) {
	const usage = "register [V#|I|PC|DT|ST] [0x##]"

	if len(args) > 0 {
		if len(args) != 2 {
			fmt.Println(usage)
			return
		}

		value, err := encoding.DecodeHex(args[1])

		if err != nil {
			fmt.Println(err)
			return
		}

		name := strings.ToUpper(args[0])

		switch {
		case len(name) == 2 && name[0] == 'V':
			i := strings.IndexByte("0123456789ABCDEF", name[1])
			if i < 0 {
				fmt.Println("Invalid register")
				return
			}
			st.V[i] = uint8(value)

		case name == "I":
			st.I = value & machine.AddrMask
		case name == "PC":
			st.PC = value & machine.AddrMask
		case name == "DT":
			st.DelayTimer = uint8(value)
		case name == "ST":
			st.SoundTimer = uint8(value)
		default:
			fmt.Println("Invalid register")
			return
		}

		fmt.Printf("\033[1m%s:\033[0m %#x\n", name, value)
	} else {
		for i, register := range st.V {
			fmt.Printf("\033[1mV%X:\033[0m %#02x\t", i, register)
			if (i+1)%4 == 0 {
				fmt.Println()
			}
		}

		fmt.Printf(
			"\033[1mPC:\033[0m %#03x\t\033[1mI:\033[0m %#03x\t"+
				"\033[1mDT:\033[0m %#02x\t\033[1mST:\033[0m %#02x\n",
			st.PC, st.I, st.DelayTimer, st.SoundTimer,
		)

		fmt.Printf("\033[1mSP:\033[0m %d", st.SP)
		if st.Mode == machine.AwaitingKey {
			fmt.Printf("\t(waiting for key into V%X)", st.WaitReg)
		}
		fmt.Println()
	}
}

func debugList(dbg *debugger.Debugger, st *machine.State, args []string) {
	const usage = "list [0x###] [#]"

	if len(args) > 2 {
		fmt.Println(usage)
		return
	}

	addr := st.PC
	var count uint16 = 8
	var err error

	if len(args) > 0 {
		addr, err = encoding.DecodeHex(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}
	}

	if len(args) > 1 {
		var value int16
		value, err = encoding.DecodeInt(args[1])

		if err != nil {
			fmt.Println(err)
			return
		}

		count = uint16(value)
	}

	dbg.PrintDisasm(st, addr&machine.AddrMask, count)
}

func debugMemory(dbg *debugger.Debugger, st *machine.State, args []string) {
	const usage = "memory [0x###] [#]"

	if len(args) > 2 {
		fmt.Println(usage)
		return
	}

	var count uint16 = 1
	addr := st.PC
	var err error

	if len(args) > 0 {
		addr, err = encoding.DecodeHex(args[0])

		if err != nil {
			var value int16
			value, err = encoding.DecodeInt(args[0])

			if err != nil {
				fmt.Println(err)
				return
			}

			addr = st.PC
			count = uint16(value)
		}
	}

	if len(args) > 1 {
		var value int16
		value, err = encoding.DecodeInt(args[1])

		if err != nil {
			fmt.Println(err)
			return
		}

		count = uint16(value)
	}

	dbg.PrintMem(st, addr&machine.AddrMask, count)
}

func debugSet(dbg *debugger.Debugger, st *machine.State, args []string) {
	const usage = "set [0x###] [0x##]"

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	addr, err := encoding.DecodeHex(args[0])

	if err != nil {
		fmt.Println(err)
		return
	}

	value, err := encoding.DecodeHex(args[1])

	if err != nil {
		fmt.Println(err)
		return
	}

	addr &= machine.AddrMask
	st.Memory[addr] = byte(value)
	dbg.PrintMem(st, addr, 1)
}

func debugJump(st *machine.State, args []string) {
	const usage = "jump [0x###]"

	if len(args) != 1 {
		fmt.Println(usage)
		return
	}

	addr, err := encoding.DecodeHex(args[0])

	if err != nil {
		fmt.Println(err)
		return
	}

	st.PC = addr & machine.AddrMask
	fmt.Printf("\033[1mPC:\033[0m %#03x\n", st.PC)
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	port.suspend()
	defer port.resume()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			shouldexit = true
			return
		}

		args := strings.Split(strings.TrimSpace(scanner.Text()), " ")

		if len(args[0]) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			debugReg(&mc.State, args)

		case "l", "ls", "list":
			debugList(dbg, &mc.State, args)

		case "m", "mem", "memory":
			debugMemory(dbg, &mc.State, args)

		case "set":
			debugSet(dbg, &mc.State, args)

		case "j", "jmp", "jump":
			debugJump(&mc.State, args)

		case "c", "continue":
			dbg.Break = false
			return

		case "n", "next", "step":
			dbg.Break = true
			return

		case "q", "quit", "exit":
			shouldexit = true
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			mc.State.Reset()
			if err := mc.State.Load(loadedROM); err != nil {
				fmt.Println(err)
			}

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		fmt.Println()
		fmt.Println("Program stopped")
		dbg.PrintDisasm(&mc.State, mc.State.PC, 8)
	}
	debugREPL(dbg, mc)
}

func handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped")
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}

func handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped")
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}

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

package debugger

import (
	"fmt"

	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/lassandro/gochip8/pkg/machine"
)

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.State.PC == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, mc *machine.Machine) {
	// The fetch path reads every tick; only I-relative reads and
	// fetches outside the current instruction matter, so filter on the
	// configured addresses alone.
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// PrintDisasm prints count disassembled instructions starting at addr,
// marking the current program counter.
func (dbg *Debugger) PrintDisasm(st *machine.State, addr, count uint16) {
	for i := uint16(0); i < count; i++ {
		at := (addr + i*2) & machine.AddrMask
		op := uint16(st.Memory[at])<<8 |
			uint16(st.Memory[(at+1)&machine.AddrMask])

		text, ok := disasm.Decode(op)
		if !ok {
			text = fmt.Sprintf(".word 0x%04x", op)
		}

		if at == st.PC {
			fmt.Printf("\033[1m[%#03x]\033[0m %s\n", at, text)
		} else {
			fmt.Printf("\033[1;30m[%#03x]\033[0m %s\n", at, text)
		}
	}
}

func (dbg *Debugger) PrintMem(st *machine.State, addr, count uint16) {
	for i := addr; i < addr+count; i++ {
		if i == addr {
			fmt.Printf("\033[1m[%#03x]\033[0m ", i&machine.AddrMask)
		} else if (i-addr)%8 == 0 {
			fmt.Println()
			fmt.Printf("\033[1m[%#03x]\033[0m ", i&machine.AddrMask)
		}

		result := st.Memory[i&machine.AddrMask]

		if result == 0 {
			fmt.Printf("\033[1;30m%#02x\033[0m ", result)
		} else {
			fmt.Printf("%#02x ", result)
		}
	}

	fmt.Println()
}

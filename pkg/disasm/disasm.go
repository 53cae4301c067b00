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

// Package disasm renders CHIP-8 instructions as assembly text. Opcode
// identification comes from the retrogolib instruction table; anything
// the table does not know (including the FXFF halt extension and trap
// padding) is emitted as a data word.
package disasm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

// Decode returns the assembly rendering of a single instruction, or
// false if the instruction is not in the opcode table.
func Decode(op uint16) (string, bool) {
	for _, candidate := range chip8.Opcodes[int(op>>12)] {
		if candidate.Instruction == nil {
			continue
		}

		if op&candidate.Info.Mask == candidate.Info.Value {
			if args := operands(op, candidate.Info.Mask); args != "" {
				return candidate.Instruction.Name + " " + args, true
			}
			return candidate.Instruction.Name, true
		}
	}

	return "", false
}

// operands formats the instruction sub-fields. The table's mask tells
// which fields exist: a full mask means no operands, a 0xF00F mask a
// register pair, a 0xF0FF mask a single register. The remaining 0xF000
// forms split by top nibble between address, register/immediate and the
// three-field draw encoding.
func operands(op uint16, mask uint16) string {
	switch mask {
	case 0xFFFF:
		return ""
	case 0xF00F:
		return fmt.Sprintf("v%x, v%x", encoding.RegX(op), encoding.RegY(op))
	case 0xF0FF:
		return fmt.Sprintf("v%x", encoding.RegX(op))
	}

	switch op >> 12 {
	case 0x0, 0x1, 0x2, 0xA, 0xB:
		return fmt.Sprintf("0x%03x", encoding.Addr(op))
	case 0xD:
		return fmt.Sprintf(
			"v%x, v%x, %d",
			encoding.RegX(op), encoding.RegY(op), encoding.Nibble(op),
		)
	default:
		return fmt.Sprintf("v%x, 0x%02x", encoding.RegX(op), encoding.Imm(op))
	}
}

// Listing writes an address/opcode/assembly listing of a raw ROM, with
// addresses shown as the machine sees them after loading.
func Listing(rom []byte, w io.Writer) error {
	out := bufio.NewWriter(w)

	for i := 0; i+1 < len(rom); i += 2 {
		op := uint16(rom[i])<<8 | uint16(rom[i+1])
		addr := machine.ProgramStart + i

		text, ok := Decode(op)
		if !ok {
			text = fmt.Sprintf(".word 0x%04x", op)
		}

		fmt.Fprintf(out, "%04x  %04x  %s\n", addr, op, text)
	}

	if len(rom)%2 != 0 {
		fmt.Fprintf(
			out,
			"%04x  %02x    .byte 0x%02x\n",
			machine.ProgramStart+len(rom)-1,
			rom[len(rom)-1],
			rom[len(rom)-1],
		)
	}

	return out.Flush()
}

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

package machine

import (
	"errors"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/encoding"
)

var (
	ErrStackUnderflow = errors.New("return with an empty call stack")
	ErrStackOverflow  = errors.New("call stack limit exceeded")
)

func (mc *Machine) push(addr uint16) error {
	if mc.State.SP >= StackDepth {
		return ErrStackOverflow
	}

	mc.State.Stack[mc.State.SP] = addr
	mc.State.SP++
	return nil
}

func (mc *Machine) pop() (uint16, error) {
	if mc.State.SP == 0 {
		return 0, ErrStackUnderflow
	}

	mc.State.SP--
	return mc.State.Stack[mc.State.SP], nil
}

func (mc *Machine) read(addr uint16) byte {
	addr &= AddrMask

	if mc.Hooks != nil {
		mc.Hooks.Read(addr, mc)
	}

	return mc.State.Memory[addr]
}

func (mc *Machine) write(addr uint16, value byte) {
	addr &= AddrMask
	mc.State.Memory[addr] = value

	if mc.Hooks != nil {
		mc.Hooks.Write(addr, mc)
	}
}

func (mc *Machine) ignored(op uint16) {
	if mc.Logger != nil {
		mc.Logger.Warn("Ignored instruction", log.Hex("opcode", op))
	}
}

// Step fetches, decodes and executes the instruction at PC. The program
// counter is advanced past the instruction before the body runs, so jump
// targets and skip increments compose without special cases.
//
// The return values report the halt extension: code is V[X]&0xF once
// halted is true. The only error conditions are call stack underflow and
// overflow; any unrecognized instruction is logged and skipped.
func (mc *Machine) Step() (code uint8, halted bool, err error) {
	st := &mc.State

	op := uint16(mc.read(st.PC))<<8 | uint16(mc.read(st.PC+1))
	st.PC = (st.PC + 2) & AddrMask

	switch op >> 12 {
	// NOP  |0000|000000000000                 | No operation (extension)
	// CLS  |0000|0000|1110|0000               | Clear the display
	// RET  |0000|0000|1110|1110               | Return from subroutine
	// SYS  |0000|NNN                          | Machine routine, ignored
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x0:
		switch op {
		case 0x0000:

		case 0x00E0:
			st.Screen = [Width * Height]bool{}

		case 0x00EE:
			addr, err := mc.pop()
			if err != nil {
				return 0, false, err
			}
			st.PC = addr

		default:
			mc.ignored(op)
		}

	// JP   |0001|NNN                          | Jump to NNN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x1:
		st.PC = encoding.Addr(op)

	// CALL |0010|NNN                          | Call subroutine at NNN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x2:
		if err := mc.push(st.PC); err != nil {
			return 0, false, err
		}
		st.PC = encoding.Addr(op)

	// SE   |0011|X   |NN                      | Skip next if VX == NN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x3:
		if st.V[encoding.RegX(op)] == encoding.Imm(op) {
			st.PC = (st.PC + 2) & AddrMask
		}

	// SNE  |0100|X   |NN                      | Skip next if VX != NN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x4:
		if st.V[encoding.RegX(op)] != encoding.Imm(op) {
			st.PC = (st.PC + 2) & AddrMask
		}

	// SE   |0101|X   |Y   |0000               | Skip next if VX == VY
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x5:
		if op&0xF != 0 {
			mc.ignored(op)
			break
		}

		if st.V[encoding.RegX(op)] == st.V[encoding.RegY(op)] {
			st.PC = (st.PC + 2) & AddrMask
		}

	// LD   |0110|X   |NN                      | VX = NN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x6:
		st.V[encoding.RegX(op)] = encoding.Imm(op)

	// ADD  |0111|X   |NN                      | VX += NN, no carry flag
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x7:
		st.V[encoding.RegX(op)] += encoding.Imm(op)

	// ALU  |1000|X   |Y   |f                  | Register/register ops
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x8:
		x := encoding.RegX(op)
		y := encoding.RegY(op)

		switch op & 0xF {
		// 8XY0: VX = VY
		case 0x0:
			st.V[x] = st.V[y]

		// 8XY1: VX |= VY
		case 0x1:
			st.V[x] |= st.V[y]

		// 8XY2: VX &= VY
		case 0x2:
			st.V[x] &= st.V[y]

		// 8XY3: VX ^= VY
		case 0x3:
			st.V[x] ^= st.V[y]

		// 8XY4: VX += VY, VF = carry
		case 0x4:
			result := uint16(st.V[x]) + uint16(st.V[y])
			st.V[x] = uint8(result)
			st.V[0xF] = uint8(result >> 8)

		// 8XY5: VX -= VY, VF = 0 on borrow
		case 0x5:
			borrow := st.V[y] > st.V[x]
			st.V[x] -= st.V[y]
			if borrow {
				st.V[0xF] = 0
			} else {
				st.V[0xF] = 1
			}

		// 8XY6: VF = VY & 1, VX = VY >> 1
		case 0x6:
			st.V[0xF] = st.V[y] & 0x1
			st.V[x] = st.V[y] >> 1

		// 8XY7: VX = VY - VX, VF = 0 on borrow
		case 0x7:
			borrow := st.V[x] > st.V[y]
			st.V[x] = st.V[y] - st.V[x]
			if borrow {
				st.V[0xF] = 0
			} else {
				st.V[0xF] = 1
			}

		// 8XYE: VF = bit 7 of VY, VX = VY << 1
		case 0xE:
			st.V[0xF] = st.V[y] >> 7
			st.V[x] = st.V[y] << 1

		default:
			mc.ignored(op)
		}

	// SNE  |1001|X   |Y   |0000               | Skip next if VX != VY
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0x9:
		if op&0xF != 0 {
			mc.ignored(op)
			break
		}

		if st.V[encoding.RegX(op)] != st.V[encoding.RegY(op)] {
			st.PC = (st.PC + 2) & AddrMask
		}

	// LD   |1010|NNN                          | I = NNN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0xA:
		st.I = encoding.Addr(op)

	// JP   |1011|NNN                          | Jump to NNN + V0
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0xB:
		st.PC = (encoding.Addr(op) + uint16(st.V[0])) & AddrMask

	// RND  |1100|X   |NN                      | VX = random byte & NN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0xC:
		st.V[encoding.RegX(op)] = uint8(mc.rng.UintN(256)) & encoding.Imm(op)

	// DRW  |1101|X   |Y   |N                  | Draw N-row sprite at VX,VY
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0xD:
		mc.draw(
			st.V[encoding.RegX(op)],
			st.V[encoding.RegY(op)],
			encoding.Nibble(op),
		)

	// SKP  |1110|X   |1001|1110               | Skip next if key == VX
	// SKNP |1110|X   |1010|0001               | Skip next if key != VX
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0xE:
		x := encoding.RegX(op)

		switch encoding.Imm(op) {
		case 0x9E:
			if st.KeyDown && st.Key == st.V[x] {
				st.PC = (st.PC + 2) & AddrMask
			}
			st.KeyDown = false

		case 0xA1:
			if !st.KeyDown || st.Key != st.V[x] {
				st.PC = (st.PC + 2) & AddrMask
			}
			st.KeyDown = false

		default:
			mc.ignored(op)
		}

	// MISC |1111|X   |ff                      | Timers, memory, halt
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case 0xF:
		x := encoding.RegX(op)

		switch encoding.Imm(op) {
		// FX07: VX = delay timer
		case 0x07:
			st.V[x] = st.DelayTimer

		// FX0A: suspend dispatch until a key lands in VX
		case 0x0A:
			st.Mode = AwaitingKey
			st.WaitReg = x

		// FX15: delay timer = VX
		case 0x15:
			st.DelayTimer = st.V[x]

		// FX18: sound timer = VX
		case 0x18:
			st.SoundTimer = st.V[x]

		// FX1E: I += VX
		case 0x1E:
			st.I = (st.I + uint16(st.V[x])) & AddrMask

		// FX29: I = font glyph address for low nibble of VX
		case 0x29:
			st.I = FontOffset + uint16(st.V[x]&0xF)*FontGlyphLen

		// FX33: memory[I..I+2] = BCD digits of VX
		case 0x33:
			mc.write(st.I, st.V[x]/100)
			mc.write(st.I+1, (st.V[x]%100)/10)
			mc.write(st.I+2, st.V[x]%10)

		// FX55: memory[I..I+X] = V0..VX, then I += X+1
		case 0x55:
			for i := uint16(0); i <= uint16(x); i++ {
				mc.write(st.I+i, st.V[i])
			}
			st.I = (st.I + uint16(x) + 1) & AddrMask

		// FX65: V0..VX = memory[I..I+X], then I += X+1
		case 0x65:
			for i := uint16(0); i <= uint16(x); i++ {
				st.V[i] = mc.read(st.I + i)
			}
			st.I = (st.I + uint16(x) + 1) & AddrMask

		// FXFF: halt, exit code from VX (extension)
		case 0xFF:
			return st.V[x] & 0xF, true, nil

		default:
			mc.ignored(op)
		}
	}

	if mc.Hooks != nil {
		mc.Hooks.Step(mc)
	}

	return 0, false, nil
}

// draw XORs an N-row sprite read from memory[I] onto the screen at
// (x, y). Pixels wrap individually at both edges. VF reports whether any
// lit pixel was turned off.
func (mc *Machine) draw(x, y, n uint8) {
	st := &mc.State
	st.V[0xF] = 0

	for row := uint8(0); row < n; row++ {
		bits := mc.read(st.I + uint16(row))
		py := (int(y) + int(row)) % Height

		for col := 0; col < 8; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}

			px := (int(x) + col) % Width
			cell := &st.Screen[py*Width+px]

			if *cell {
				st.V[0xF] = 1
			}
			*cell = !*cell
		}
	}
}

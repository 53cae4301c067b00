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
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/retroenv/retrogolib/log"
)

var ErrROMTooLarge = errors.New("ROM does not fit in program memory")

// The built-in 4x5 font, one glyph per hex digit, five bytes each with
// the pixels in the upper four bits. Installed at FontOffset and never
// touched again.
var font = [16][FontGlyphLen]byte{
	{0xF0, 0x90, 0x90, 0x90, 0xF0}, // 0
	{0x20, 0x60, 0x20, 0x20, 0x70}, // 1
	{0xF0, 0x10, 0xF0, 0x80, 0xF0}, // 2
	{0xF0, 0x10, 0xF0, 0x10, 0xF0}, // 3
	{0x90, 0x90, 0xF0, 0x10, 0x10}, // 4
	{0xF0, 0x80, 0xF0, 0x10, 0xF0}, // 5
	{0xF0, 0x80, 0xF0, 0x90, 0xF0}, // 6
	{0xF0, 0x10, 0x20, 0x40, 0x40}, // 7
	{0xF0, 0x90, 0xF0, 0x90, 0xF0}, // 8
	{0xF0, 0x90, 0xF0, 0x10, 0xF0}, // 9
	{0xF0, 0x90, 0xF0, 0x90, 0x90}, // A
	{0xE0, 0x90, 0xE0, 0x90, 0xE0}, // B
	{0xF0, 0x80, 0x80, 0x80, 0xF0}, // C
	{0xE0, 0x90, 0x90, 0x90, 0xE0}, // D
	{0xF0, 0x80, 0xF0, 0x80, 0xF0}, // E
	{0xF0, 0x80, 0xF0, 0x80, 0x80}, // F
}

// Reset zero-initializes the state, installs the font, fills the
// reserved regions with trap bytes and plants the stray-execution
// redirect. The program counter starts at ProgramStart.
func (st *State) Reset() {
	*st = State{}

	for glyph, rows := range font {
		copy(st.Memory[FontOffset+glyph*FontGlyphLen:], rows[:])
	}

	for i := PadStart; i <= PadEnd; i++ {
		st.Memory[i] = TrapByte
	}

	for i := TailStart; i <= TailEnd; i++ {
		st.Memory[i] = TrapByte
	}

	// 1NNN back to the program entry point
	st.Memory[RedirectAddr] = 0x10 | (ProgramStart >> 8)
	st.Memory[RedirectAddr+1] = ProgramStart & 0xFF

	st.PC = ProgramStart
	st.KeyTime = time.Now()
}

// Load copies raw ROM bytes into memory starting at ProgramStart. The
// program space ends where the reserved tail begins; a ROM that does
// not fit is rejected without partial loading.
func (st *State) Load(rom []byte) error {
	if len(rom) > TailStart-ProgramStart {
		return fmt.Errorf(
			"%w: %d bytes, %d available",
			ErrROMTooLarge, len(rom), TailStart-ProgramStart,
		)
	}

	copy(st.Memory[ProgramStart:], rom)
	return nil
}

func New(logger *log.Logger) *Machine {
	mc := &Machine{
		Logger: logger,
		rng: rand.New(rand.NewPCG(
			uint64(time.Now().UnixNano()),
			rand.Uint64(),
		)),
	}
	mc.State.Reset()
	return mc
}

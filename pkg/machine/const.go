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

const (
	// 4KB, addresses wrap at the 12-bit boundary
	MemorySize = 4096
	AddrMask   = 0x0FFF

	Width  = 64
	Height = 32

	// Classical 12-level return stack
	StackDepth = 12
)

// Memory map. Everything below ProgramStart is interpreter territory:
// the font glyphs first, then padding up to the program space. The tail
// region historically held the call stack and display refresh area; this
// implementation keeps both out of addressable memory but reserves the
// region anyway so that ROMs relying on the layout keep working.
const (
	FontOffset   = 0x000
	FontGlyphLen = 5

	PadStart = 0x050
	PadEnd   = 0x1FF

	ProgramStart = 0x200

	// A stray PC that walks off the end of the program space hits this
	// jump and is sent back to ProgramStart.
	RedirectAddr = 0xE9E

	TailStart = 0xEA0
	TailEnd   = 0xFFF

	// 0xFFFF decodes as the FXFF halt extension, so misfetched padding
	// stops the machine instead of executing garbage.
	TrapByte = 0xFF
)

const (
	// Instruction clock in ticks per second
	DefaultClockHz = 48000

	// Delay/sound timers decrement at 60Hz regardless of the clock
	TimerHz = 60
)

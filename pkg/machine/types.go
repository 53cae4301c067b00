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
	"math/rand/v2"
	"time"

	"github.com/retroenv/retrogolib/log"
)

// RunMode describes whether the machine is dispatching instructions or
// suspended on an FX0A key wait.
type RunMode uint8

const (
	Running RunMode = iota

	// Dispatch is suspended until a key event arrives; WaitReg names the
	// register the key value lands in.
	AwaitingKey
)

// State is the full architectural state of the machine. It has no
// behaviour beyond construction and ROM loading; all fields are mutated
// directly by the executor, and the key latch and run mode additionally
// by the I/O front end.
type State struct {
	Memory [MemorySize]byte

	// V0-VF. VF doubles as the carry/borrow/collision flag.
	V [16]uint8

	// Address register and program counter, 12 effective bits each,
	// masked after every write.
	I  uint16
	PC uint16

	// Bounded return stack; SP points at the next free slot.
	Stack [StackDepth]uint16
	SP    uint8

	DelayTimer uint8
	SoundTimer uint8

	// Row-major, top-left origin, true = lit
	Screen [Width * Height]bool

	// Key latch: at most one pending key 0x0-0xF, stamped when it was
	// delivered so stale presses can be expired.
	Key     uint8
	KeyDown bool
	KeyTime time.Time

	Mode    RunMode
	WaitReg uint8
}

// Hooks receives callbacks from the executor, one per executed
// instruction and one per memory access through the I register or the
// fetch path. Used by the debugger; nil hooks cost nothing.
type Hooks interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

// Machine couples a State with the executor's collaborators: the random
// source for CXNN, an optional hook set, and a logger for ignored
// instructions.
type Machine struct {
	State  State
	Hooks  Hooks
	Logger *log.Logger

	rng *rand.Rand
}

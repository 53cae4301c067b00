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

// Package runner drives the machine's tick loop. One instruction
// executes per tick (none while the machine waits on a key), then the
// I/O port gets a chance to render and deliver at most one input event.
// The machine state is owned by the goroutine calling Run for the whole
// run; the port is the only other collaborator and is called from that
// same goroutine.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/lassandro/gochip8/pkg/machine"
)

// A key press that no instruction consumes within this window is
// dropped, standing in for the key-release events a terminal never
// delivers.
const KeyTimeout = 100 * time.Millisecond

type EventKind uint8

const (
	None EventKind = iota
	Key
	Quit
)

// Event is one input delivered by the port: a keypad press 0x0-0xF or a
// request to stop the run.
type Event struct {
	Kind EventKind
	Key  uint8
}

// Port is the I/O collaborator consulted once per tick.
type Port interface {
	Render(st *machine.State) error
	Poll() (Event, error)
}

type Runner struct {
	Machine *machine.Machine
	Port    Port
	Logger  *log.Logger

	// Instruction clock, DefaultClockHz when zero
	ClockHz uint

	// Exit code reported when the run is cancelled or quit rather than
	// halted by the program
	CancelCode int

	// Log every executed instruction in assembly form
	Trace bool
}

// Run executes ticks until the program halts, a fatal machine error
// occurs, the port reports quit, or ctx is cancelled. The returned code
// is the program's halt code, or CancelCode for the latter two.
//
// Tick pacing sleeps toward a per-tick deadline; a tick that overruns
// its budget simply starts the next one late, with no catch-up backlog.
// Delay/sound timers run on their own 60Hz schedule.
func (r *Runner) Run(ctx context.Context) (int, error) {
	hz := r.ClockHz
	if hz == 0 {
		hz = machine.DefaultClockHz
	}

	tick := time.Second / time.Duration(hz)
	timerTick := time.Second / machine.TimerHz

	st := &r.Machine.State
	nextTimer := time.Now().Add(timerTick)

	for {
		if ctx.Err() != nil {
			return r.CancelCode, nil
		}

		tickStart := time.Now()

		if st.Mode == machine.Running {
			if r.Trace {
				r.trace()
			}

			code, halted, err := r.Machine.Step()

			if err != nil {
				return 0, fmt.Errorf("at 0x%03x: %w", st.PC, err)
			}

			if halted {
				if r.Logger != nil {
					r.Logger.Debug(
						"Program halted", log.Uint8("code", code),
					)
				}
				return int(code), nil
			}
		}

		if err := r.Port.Render(st); err != nil {
			return 0, err
		}

		event, err := r.Port.Poll()

		if err != nil {
			return 0, err
		}

		switch event.Kind {
		case Quit:
			return r.CancelCode, nil
		case Key:
			r.deliverKey(event.Key, tickStart)
		}

		now := time.Now()

		// Resynchronize rather than burst-decrement after a long stall,
		// such as a stretch spent inside the debug REPL
		if now.Sub(nextTimer) > time.Second {
			nextTimer = now
		}

		for !now.Before(nextTimer) {
			if st.DelayTimer > 0 {
				st.DelayTimer--
			}
			if st.SoundTimer > 0 {
				st.SoundTimer--
			}
			nextTimer = nextTimer.Add(timerTick)
		}

		if st.KeyDown && now.Sub(st.KeyTime) > KeyTimeout {
			st.KeyDown = false
		}

		if elapsed := time.Since(tickStart); elapsed < tick {
			time.Sleep(tick - elapsed)
		}
	}
}

// deliverKey resolves a pending key wait, or latches the key for the
// skip-if-key instructions. A key spent on resuming a wait is consumed
// and never latched.
func (r *Runner) deliverKey(key uint8, now time.Time) {
	st := &r.Machine.State

	if st.Mode == machine.AwaitingKey {
		st.V[st.WaitReg] = key
		st.Mode = machine.Running
		st.KeyDown = false
		return
	}

	st.Key = key
	st.KeyDown = true
	st.KeyTime = now
}

func (r *Runner) trace() {
	if r.Logger == nil {
		return
	}

	st := &r.Machine.State
	op := uint16(st.Memory[st.PC])<<8 |
		uint16(st.Memory[(st.PC+1)&machine.AddrMask])

	text, ok := disasm.Decode(op)
	if !ok {
		text = fmt.Sprintf(".word 0x%04x", op)
	}

	r.Logger.Debug(
		"Step",
		log.Hex("pc", st.PC),
		log.Hex("opcode", op),
		log.String("asm", text),
	)
}

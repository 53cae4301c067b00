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

package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/lassandro/gochip8/pkg/runner"
)

// scriptPort hands out one queued event per poll and counts renders.
type scriptPort struct {
	events    []runner.Event
	renders   int
	renderErr error
	pollErr   error
}

func (p *scriptPort) Render(st *machine.State) error {
	p.renders++
	return p.renderErr
}

func (p *scriptPort) Poll() (runner.Event, error) {
	if p.pollErr != nil {
		return runner.Event{}, p.pollErr
	}

	if len(p.events) == 0 {
		return runner.Event{}, nil
	}

	event := p.events[0]
	p.events = p.events[1:]
	return event, nil
}

func newTestRunner(t *testing.T, rom []byte, port runner.Port) *runner.Runner {
	t.Helper()

	logger := log.NewTestLogger(t)
	mc := machine.New(logger)

	assert.NoError(t, mc.State.Load(rom))

	return &runner.Runner{
		Machine: mc,
		Port:    port,
		Logger:  logger,
	}
}

func TestRunToHalt(t *testing.T) {
	// V0 = 5, V0 += 3, halt with V0
	rom := []byte{0x60, 0x05, 0x70, 0x03, 0xF0, 0xFF}

	port := &scriptPort{}
	r := newTestRunner(t, rom, port)

	code, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 8, code)

	// The halting tick does not render
	assert.Equal(t, 2, port.renders)
}

func TestRunQuitEvent(t *testing.T) {
	// Spin in place until quit arrives
	rom := []byte{0x12, 0x00}

	port := &scriptPort{
		events: []runner.Event{{Kind: runner.Quit}},
	}

	r := newTestRunner(t, rom, port)
	r.CancelCode = 130

	code, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 130, code)
}

func TestRunCancelledContext(t *testing.T) {
	rom := []byte{0x60, 0x05, 0xF0, 0xFF}

	r := newTestRunner(t, rom, &scriptPort{})
	r.CancelCode = 130

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, err := r.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 130, code)

	// Cancellation lands before any instruction runs
	assert.Equal(t, uint16(machine.ProgramStart), r.Machine.State.PC)
}

func TestRunKeyResumesWait(t *testing.T) {
	// Wait for a key into V0, halt with it
	rom := []byte{0xF0, 0x0A, 0xF0, 0xFF}

	port := &scriptPort{
		events: []runner.Event{{Kind: runner.Key, Key: 0xA}},
	}

	r := newTestRunner(t, rom, port)

	code, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0xA, code)

	// A key spent on a wait is consumed, not latched
	assert.False(t, r.Machine.State.KeyDown)
}

func TestRunKeyLatchSkips(t *testing.T) {
	rom := []byte{
		0x60, 0x05, // V0 = 5, key 5 delivered after this tick
		0xE0, 0x9E, // skip if key == V0
		0xF0, 0xFF, // halt 5 when not skipped
		0x61, 0x09, // V1 = 9
		0xF1, 0xFF, // halt 9
	}

	port := &scriptPort{
		events: []runner.Event{{Kind: runner.Key, Key: 0x5}},
	}

	r := newTestRunner(t, rom, port)

	code, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 9, code)
}

func TestRunKeyLatchExpires(t *testing.T) {
	// One no-op tick so the expiry check runs before the halt
	rom := []byte{0x00, 0x00, 0xF0, 0xFF}

	r := newTestRunner(t, rom, &scriptPort{})

	st := &r.Machine.State
	st.Key = 0x5
	st.KeyDown = true
	st.KeyTime = time.Now().Add(-2 * runner.KeyTimeout)

	_, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.False(t, st.KeyDown)
}

func TestRunTimersDecrement(t *testing.T) {
	rom := []byte{
		0xF0, 0x07, // V0 = delay timer
		0x30, 0x00, // skip next if V0 == 0
		0x12, 0x00, // not yet zero, loop
		0xF0, 0xFF, // halt 0
	}

	r := newTestRunner(t, rom, &scriptPort{})
	r.Machine.State.DelayTimer = 3
	r.Machine.State.SoundTimer = 3

	start := time.Now()

	code, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, code)

	// Three 60Hz periods must have passed for the timer to hit zero
	assert.True(t, time.Since(start) >= 2*time.Second/machine.TimerHz)
	assert.Equal(t, uint8(0), r.Machine.State.SoundTimer)
}

func TestRunStackErrorPosition(t *testing.T) {
	// Return with nothing on the stack
	rom := []byte{0x00, 0xEE}

	r := newTestRunner(t, rom, &scriptPort{})

	_, err := r.Run(context.Background())
	assert.True(t, errors.Is(err, machine.ErrStackUnderflow))
}

func TestRunRenderError(t *testing.T) {
	rom := []byte{0x12, 0x00}

	wantErr := errors.New("render failed")
	port := &scriptPort{renderErr: wantErr}

	r := newTestRunner(t, rom, port)

	_, err := r.Run(context.Background())
	assert.True(t, errors.Is(err, wantErr))
}

func TestRunPollError(t *testing.T) {
	rom := []byte{0x12, 0x00}

	wantErr := errors.New("poll failed")
	port := &scriptPort{pollErr: wantErr}

	r := newTestRunner(t, rom, port)

	_, err := r.Run(context.Background())
	assert.True(t, errors.Is(err, wantErr))
}

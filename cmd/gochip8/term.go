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
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/lassandro/gochip8/pkg/runner"
)

const (
	enterAltScreen = "\033[?1049h"
	leaveAltScreen = "\033[?1049l"
	hideCursor     = "\033[?25l"
	showCursor     = "\033[?25h"
	cursorHome     = "\033[H"
)

// Hex keypad layout: the left-hand block of a QWERTY keyboard maps in
// reading order onto keys 0x0-0xF.
var keymap = map[byte]uint8{
	'1': 0x0, '2': 0x1, '3': 0x2, '4': 0x3,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0x7,
	'a': 0x8, 's': 0x9, 'd': 0xA, 'f': 0xB,
	'z': 0xC, 'x': 0xD, 'c': 0xE, 'v': 0xF,
}

// terminalPort renders the framebuffer to the terminal's alternate
// screen and feeds keypad events from raw stdin. A reader goroutine
// pumps stdin bytes into a channel; everything else runs on the
// scheduler goroutine.
type terminalPort struct {
	keys chan byte
	stop chan struct{}
	done chan struct{}

	fd    int
	saved *term.State
	out   *bufio.Writer

	last    [machine.Width * machine.Height]bool
	lastPC  uint16
	redraw  bool
	running bool
	closed  bool
}

func newTerminalPort() (*terminalPort, error) {
	p := &terminalPort{
		keys: make(chan byte, 64),
		fd:   int(os.Stdin.Fd()),
		out:  bufio.NewWriter(os.Stdout),
	}

	if err := p.resume(); err != nil {
		return nil, err
	}

	return p, nil
}

// resume puts the terminal into raw alternate-screen mode and starts
// the stdin reader. Balanced by suspend.
func (p *terminalPort) resume() error {
	saved, err := term.MakeRaw(p.fd)

	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}

	p.saved = saved

	if err := unix.SetNonblock(p.fd, true); err != nil {
		_ = term.Restore(p.fd, p.saved)
		return fmt.Errorf("setting non-blocking stdin: %w", err)
	}

	fmt.Fprint(p.out, enterAltScreen, hideCursor, cursorHome)
	p.out.Flush()
	p.redraw = true

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.read()

	p.running = true
	return nil
}

// suspend stops the stdin reader and hands the terminal back in cooked
// mode, for the debug REPL and for shutdown.
func (p *terminalPort) suspend() {
	if !p.running {
		return
	}
	p.running = false

	close(p.stop)
	<-p.done

	fmt.Fprint(p.out, showCursor, leaveAltScreen)
	p.out.Flush()

	_ = unix.SetNonblock(p.fd, false)
	_ = term.Restore(p.fd, p.saved)
}

func (p *terminalPort) Close() {
	if p.closed {
		return
	}
	p.closed = true

	p.suspend()
}

func (p *terminalPort) read() {
	defer close(p.done)

	buf := make([]byte, 1)

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		n, err := unix.Read(p.fd, buf)

		if n > 0 {
			select {
			case p.keys <- buf[0]:
			default:
				// Input faster than the machine consumes it; drop
			}
			continue
		}

		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		if err != nil {
			return
		}
	}
}

// Poll reports at most one pending input event. Raw mode turns Ctrl-C
// into a plain 0x03 byte, so quit handling lives here rather than in a
// signal handler.
func (p *terminalPort) Poll() (runner.Event, error) {
	if shouldexit {
		return runner.Event{Kind: runner.Quit}, nil
	}

	select {
	case b := <-p.keys:
		if b == 0x1B || b == 0x03 {
			return runner.Event{Kind: runner.Quit}, nil
		}

		if key, ok := keymap[b]; ok {
			return runner.Event{Kind: runner.Key, Key: key}, nil
		}

		return runner.Event{}, nil

	default:
		return runner.Event{}, nil
	}
}

// Render repaints the framebuffer and the status line. Unchanged frames
// are skipped; a resume after the REPL forces a full repaint.
func (p *terminalPort) Render(st *machine.State) error {
	if !p.redraw && p.last == st.Screen && p.lastPC == st.PC {
		return nil
	}

	fmt.Fprint(p.out, cursorHome)

	for row := 0; row < machine.Height; row++ {
		for col := 0; col < machine.Width; col++ {
			if st.Screen[row*machine.Width+col] {
				p.out.WriteRune('█')
			} else {
				p.out.WriteByte(' ')
			}
		}
		p.out.WriteString("\r\n")
	}

	fmt.Fprintf(p.out, "PC: %03X ", st.PC)

	if err := p.out.Flush(); err != nil {
		return fmt.Errorf("rendering frame: %w", err)
	}

	p.last = st.Screen
	p.lastPC = st.PC
	p.redraw = false
	return nil
}

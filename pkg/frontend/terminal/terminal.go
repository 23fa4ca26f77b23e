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

// Package terminal renders the display as block characters on a raw tty and
// reads keypad input from it.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/retroenv/retrogolib/log"
	"golang.org/x/term"

	"github.com/lassandro/gochip8/pkg/display"
	"github.com/lassandro/gochip8/pkg/input"
	"github.com/lassandro/gochip8/pkg/machine"
)

const (
	REFRESH_INTERVAL = time.Second / 60
	AUTO_RELEASE     = 100 * time.Millisecond
)

// Frame text plus the border.
const (
	MIN_COLUMNS = display.WIDTH + 2
	MIN_ROWS    = display.HEIGHT + 2
)

var ErrNotTerminal = errors.New("terminal: input is not a terminal")

// Status supplies the snapshot shown below the frame when the status panel
// is toggled on.
type Status interface {
	Latest() machine.Snapshot
}

type Terminal struct {
	in     *os.File
	out    io.Writer
	screen *display.Shared
	queue  *input.Queue
	status Status
	logger *log.Logger

	keys     releaser
	panel    bool
	sequence uint64
	redraw   bool
}

func New(in *os.File, out io.Writer, screen *display.Shared, queue *input.Queue, status Status, logger *log.Logger) *Terminal {
	return &Terminal{
		in:     in,
		out:    out,
		screen: screen,
		queue:  queue,
		status: status,
		logger: logger,
		keys:   releaser{delay: AUTO_RELEASE},
		redraw: true,
	}
}

// Run puts the terminal in raw mode and renders until ctx is cancelled or a
// quit key is read.
func (t *Terminal) Run(ctx context.Context) error {
	fd := int(t.in.Fd())

	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}

	if cols, rows, err := term.GetSize(fd); err == nil && (cols < MIN_COLUMNS || rows < MIN_ROWS) {
		t.logger.Warn("Terminal too small for display",
			log.Int("columns", cols), log.Int("rows", rows),
			log.Int("required_columns", MIN_COLUMNS), log.Int("required_rows", MIN_ROWS),
		)
	}

	restore, err := enterRaw(fd)

	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}

	defer restore()

	fmt.Fprint(t.out, "\033[?25l\033[2J")
	defer fmt.Fprint(t.out, "\033[?25h\n")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reads := make(chan []byte, 16)
	go t.read(ctx, reads)

	ticker := time.NewTicker(REFRESH_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case buf, ok := <-reads:
			if !ok {
				return nil
			}

			if t.handle(buf, time.Now()) {
				t.queue.Quit()
				return nil
			}

		case now := <-ticker.C:
			for _, key := range t.keys.expired(now) {
				t.queue.Release(key)
			}

			t.render()
		}
	}
}

func (t *Terminal) read(ctx context.Context, reads chan<- []byte) {
	defer close(reads)

	buf := make([]byte, 64)

	for ctx.Err() == nil {
		n, err := t.in.Read(buf)

		if n > 0 {
			select {
			case reads <- append([]byte(nil), buf[:n]...):
			case <-ctx.Done():
				return
			}
		}

		// A raw read timeout surfaces as EOF.
		if err != nil && !errors.Is(err, io.EOF) {
			t.logger.Error("Terminal read failed", log.Err(err))
			return
		}
	}
}

// handle applies a chunk of input and reports whether a quit key was read.
func (t *Terminal) handle(buf []byte, now time.Time) bool {
	keys, toggle, quit := decodeKeys(buf)

	for _, key := range keys {
		if t.keys.press(key, now) && !t.queue.Press(key) {
			t.keys.forget(key)
		}
	}

	if toggle {
		t.panel = !t.panel
		t.redraw = true
	}

	return quit
}

func (t *Terminal) render() {
	frame := t.screen.Frame()

	if !t.redraw && !t.panel && frame.Sequence == t.sequence {
		return
	}

	var snap *machine.Snapshot

	if t.panel && t.status != nil {
		latest := t.status.Latest()
		snap = &latest
	}

	fmt.Fprint(t.out, screenText(frame, snap, t.panel))

	t.sequence = frame.Sequence
	t.redraw = false
}

func screenText(frame *display.Frame, snap *machine.Snapshot, panel bool) string {
	var builder strings.Builder

	builder.WriteString("\033[H")
	builder.WriteString(frame.String())
	builder.WriteByte('\n')

	if panel {
		if snap == nil {
			builder.WriteString("Debugger not attached\n")
		} else {
			fmt.Fprintf(&builder, "%s\n", snap.Instruction())
			fmt.Fprintf(&builder, "I:  %s\nPC: %s\nDT: %s\n",
				snap.FormatIndex(), snap.FormatProgram(), snap.FormatDelay(),
			)
			builder.WriteString(snap.FormatRegisters())
			builder.WriteByte('\n')
		}
	}

	builder.WriteString("\033[J")
	return builder.String()
}

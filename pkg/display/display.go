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

package display

import (
	"strings"
	"sync/atomic"
)

const (
	WIDTH  = 64
	HEIGHT = 32
)

type Framebuffer struct {
	cells [HEIGHT][WIDTH]bool
	dirty bool
}

func (fb *Framebuffer) Clear() {
	fb.cells = [HEIGHT][WIDTH]bool{}
	fb.dirty = true
}

// Blit XORs sprite rows into the framebuffer at (x, y), wrapping both axes.
// It reports whether any lit cell was turned off.
func (fb *Framebuffer) Blit(x, y uint8, sprite []byte) bool {
	erased := false

	for row, bits := range sprite {
		cy := (int(y) + row) % HEIGHT

		for col := 0; col < 8; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}

			cx := (int(x) + col) % WIDTH

			if fb.cells[cy][cx] {
				erased = true
			}

			fb.cells[cy][cx] = !fb.cells[cy][cx]
		}
	}

	if len(sprite) > 0 {
		fb.dirty = true
	}

	return erased
}

func (fb *Framebuffer) At(x, y int) bool {
	return fb.cells[y%HEIGHT][x%WIDTH]
}

func (fb *Framebuffer) Frame() *Frame {
	return &Frame{Cells: fb.cells}
}

// Frame is an immutable copy of the framebuffer handed to renderers.
type Frame struct {
	Cells    [HEIGHT][WIDTH]bool
	Sequence uint64
}

func (f *Frame) At(x, y int) bool {
	return f.Cells[y%HEIGHT][x%WIDTH]
}

func (f *Frame) String() string {
	var builder strings.Builder

	border := strings.Repeat("+", WIDTH+2)

	builder.WriteString(border)
	builder.WriteByte('\n')

	for _, row := range f.Cells {
		builder.WriteByte('+')
		for _, lit := range row {
			if lit {
				builder.WriteString("█")
			} else {
				builder.WriteByte(' ')
			}
		}
		builder.WriteString("+\n")
	}

	builder.WriteString(border)
	return builder.String()
}

// Headless keeps the framebuffer in process. Publish does nothing.
type Headless struct {
	Framebuffer
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (hd *Headless) Publish() {}

// Shared copy-publishes a frame whenever the framebuffer changed since the
// last publish. Frame may be called from any goroutine.
type Shared struct {
	Framebuffer

	frame    atomic.Pointer[Frame]
	sequence uint64
}

func NewShared() *Shared {
	sh := &Shared{}
	sh.frame.Store(&Frame{})
	return sh
}

func (sh *Shared) Publish() {
	if !sh.dirty {
		return
	}

	sh.sequence++
	frame := sh.Framebuffer.Frame()
	frame.Sequence = sh.sequence

	sh.frame.Store(frame)
	sh.dirty = false
}

func (sh *Shared) Frame() *Frame {
	return sh.frame.Load()
}

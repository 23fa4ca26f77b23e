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

// Package window renders the display in an ebiten window and translates
// keyboard state into keypad events.
package window

import (
	"errors"
	"fmt"
	"image/color"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/image/font/basicfont"

	"github.com/lassandro/gochip8/pkg/display"
	"github.com/lassandro/gochip8/pkg/input"
	"github.com/lassandro/gochip8/pkg/machine"
)

const (
	DEFAULT_SCALE = 10
	DEFAULT_TITLE = "gochip8"
)

const (
	OVERLAY_LINE_HEIGHT = 14
	OVERLAY_MARGIN      = 4
)

var (
	DEFAULT_FOREGROUND = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	DEFAULT_BACKGROUND = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	OVERLAY_BACKGROUND = color.RGBA{0x00, 0x00, 0x00, 0xB4}
	OVERLAY_TEXT       = color.RGBA{0x00, 0xFF, 0x00, 0xFF}
)

// Keys maps keyboard keys to keypad values.
var Keys = map[ebiten.Key]int{
	ebiten.KeyDigit0: 0x0,
	ebiten.KeyDigit1: 0x1,
	ebiten.KeyDigit2: 0x2,
	ebiten.KeyDigit3: 0x3,
	ebiten.KeyDigit4: 0x4,
	ebiten.KeyDigit5: 0x5,
	ebiten.KeyDigit6: 0x6,
	ebiten.KeyDigit7: 0x7,
	ebiten.KeyDigit8: 0x8,
	ebiten.KeyDigit9: 0x9,
	ebiten.KeyA:      0xA,
	ebiten.KeyB:      0xB,
	ebiten.KeyC:      0xC,
	ebiten.KeyD:      0xD,
	ebiten.KeyE:      0xE,
	ebiten.KeyF:      0xF,
}

var QuitKeys = []ebiten.Key{ebiten.KeyEscape, ebiten.KeyQ}

// Controls is the subset of the debugger the window drives with the
// function keys. The overlay reads the latest snapshot from it.
type Controls interface {
	Latest() machine.Snapshot
	Pause() <-chan struct{}
	Resume() <-chan struct{}
	Step(count int) <-chan struct{}
	Reset() <-chan struct{}
}

type Options struct {
	Scale      int
	Title      string
	Foreground color.RGBA
	Background color.RGBA
}

type Window struct {
	screen   *display.Shared
	queue    *input.Queue
	controls Controls
	logger   *log.Logger
	options  Options

	image    *ebiten.Image
	pixels   []byte
	sequence uint64
	held     [input.KEY_COUNT]bool
	overlay  bool
	closing  atomic.Bool

	// Set by a quit key until the input queue accepts the event
	quitting bool
}

func New(screen *display.Shared, queue *input.Queue, controls Controls, logger *log.Logger, options Options) *Window {
	if options.Scale < 1 {
		options.Scale = DEFAULT_SCALE
	}

	if options.Title == "" {
		options.Title = DEFAULT_TITLE
	}

	if options.Foreground == (color.RGBA{}) {
		options.Foreground = DEFAULT_FOREGROUND
	}

	if options.Background == (color.RGBA{}) {
		options.Background = DEFAULT_BACKGROUND
	}

	w := &Window{
		screen:   screen,
		queue:    queue,
		controls: controls,
		logger:   logger,
		options:  options,
		pixels:   make([]byte, display.WIDTH*display.HEIGHT*4),
	}

	// Force the first Draw to render even an empty frame.
	w.sequence = ^uint64(0)
	return w
}

// Run opens the window and blocks until it is closed. It must be called
// from the main goroutine.
func (w *Window) Run() error {
	ebiten.SetWindowSize(display.WIDTH*w.options.Scale, display.HEIGHT*w.options.Scale)
	ebiten.SetWindowTitle(w.options.Title)

	if err := ebiten.RunGame(w); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("window: %w", err)
	}

	return nil
}

// Close asks the game loop to exit on its next update.
func (w *Window) Close() {
	w.closing.Store(true)
}

func (w *Window) Update() error {
	if ebiten.IsWindowBeingClosed() || w.closing.Load() {
		w.queue.Quit()
		return ebiten.Termination
	}

	for _, key := range QuitKeys {
		if inpututil.IsKeyJustPressed(key) {
			w.logger.Debug("Quit requested")
			w.quitting = true
		}
	}

	w.flushQuit()

	for key, value := range Keys {
		w.setKey(value, ebiten.IsKeyPressed(key))
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		w.overlay = !w.overlay
	}

	if w.controls != nil {
		w.handleControls()
	}

	return nil
}

func (w *Window) flushQuit() {
	if w.quitting && w.queue.Quit() {
		w.quitting = false
	}
}

// setKey pushes an event only when the held state of a key changes.
func (w *Window) setKey(key int, pressed bool) {
	if w.held[key] == pressed {
		return
	}

	var ok bool

	if pressed {
		ok = w.queue.Press(key)
	} else {
		ok = w.queue.Release(key)
	}

	if !ok {
		w.logger.Warn("Input queue full, dropping key event", log.Int("key", key))
		return
	}

	w.held[key] = pressed
}

func (w *Window) handleControls() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		if w.controls.Latest().Paused {
			w.controls.Resume()
		} else {
			w.controls.Pause()
		}

	case inpututil.IsKeyJustPressed(ebiten.KeyF6):
		w.controls.Step(1)

	case inpututil.IsKeyJustPressed(ebiten.KeyF7):
		w.controls.Reset()
	}
}

func (w *Window) Draw(screen *ebiten.Image) {
	if w.image == nil {
		w.image = ebiten.NewImage(display.WIDTH, display.HEIGHT)
	}

	if frame := w.screen.Frame(); frame.Sequence != w.sequence {
		renderFrame(frame, w.pixels, w.options.Foreground, w.options.Background)
		w.image.WritePixels(w.pixels)
		w.sequence = frame.Sequence
	}

	var opts ebiten.DrawImageOptions
	opts.GeoM.Scale(float64(w.options.Scale), float64(w.options.Scale))
	screen.DrawImage(w.image, &opts)

	if w.overlay {
		w.drawOverlay(screen)
	}
}

func (w *Window) drawOverlay(screen *ebiten.Image) {
	var lines []string

	if w.controls == nil {
		lines = []string{"Debugger not attached"}
	} else {
		snap := w.controls.Latest()
		lines = overlayLines(&snap)
	}

	width := 0
	for _, line := range lines {
		width = max(width, text.BoundString(basicfont.Face7x13, line).Dx())
	}

	ebitenutil.DrawRect(
		screen, 0, 0,
		float64(width+OVERLAY_MARGIN*2),
		float64(len(lines)*OVERLAY_LINE_HEIGHT+OVERLAY_MARGIN*2),
		OVERLAY_BACKGROUND,
	)

	for i, line := range lines {
		text.Draw(
			screen, line, basicfont.Face7x13,
			OVERLAY_MARGIN, OVERLAY_MARGIN+(i+1)*OVERLAY_LINE_HEIGHT-3,
			OVERLAY_TEXT,
		)
	}
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return display.WIDTH * w.options.Scale, display.HEIGHT * w.options.Scale
}

// renderFrame writes frame as RGBA pixels into pixels.
func renderFrame(frame *display.Frame, pixels []byte, fg, bg color.RGBA) {
	for y := 0; y < display.HEIGHT; y++ {
		for x := 0; x < display.WIDTH; x++ {
			c := bg
			if frame.Cells[y][x] {
				c = fg
			}

			i := (y*display.WIDTH + x) * 4
			pixels[i+0] = c.R
			pixels[i+1] = c.G
			pixels[i+2] = c.B
			pixels[i+3] = c.A
		}
	}
}

func overlayLines(snap *machine.Snapshot) []string {
	state := "RUNNING"

	switch {
	case snap.Fault != "":
		state = "FAULT " + snap.Fault
	case snap.Awaiting:
		state = "AWAITING KEY"
	case snap.Paused:
		state = "PAUSED"
	}

	lines := []string{
		snap.Instruction(),
		"I:  " + snap.FormatIndex(),
		"PC: " + snap.FormatProgram(),
		"DT: " + snap.FormatDelay(),
	}

	for row := 0; row < len(snap.Registers); row += 8 {
		line := ""

		for reg := row; reg < row+8; reg++ {
			if reg > row {
				line += " "
			}
			line += fmt.Sprintf("V%X:%02X", reg, snap.Registers[reg])
		}

		lines = append(lines, line)
	}

	return append(lines, state)
}

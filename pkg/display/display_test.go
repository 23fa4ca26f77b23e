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

package display_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/lassandro/gochip8/pkg/display"
	"github.com/retroenv/retrogolib/assert"
)

func TestBlit(t *testing.T) {
	t.Run("Collision Only On Erase", func(t *testing.T) {
		sprites := [][]byte{
			{0x80},
			{0xFF, 0x81, 0xFF},
			{0x3C, 0x42, 0x81, 0x81, 0x42, 0x3C},
		}

		for _, sprite := range sprites {
			fb := &display.Framebuffer{}
			assert.False(t, fb.Blit(10, 5, sprite))
			assert.True(t, fb.Blit(10, 5, sprite))

			for y := 0; y < display.HEIGHT; y++ {
				for x := 0; x < display.WIDTH; x++ {
					assert.False(t, fb.At(x, y))
				}
			}
		}
	})

	t.Run("Disjoint Sprites Do Not Collide", func(t *testing.T) {
		fb := &display.Framebuffer{}
		assert.False(t, fb.Blit(0, 0, []byte{0xF0}))
		assert.False(t, fb.Blit(4, 0, []byte{0xF0}))
		assert.True(t, fb.At(7, 0))
	})

	t.Run("Wraps Both Axes", func(t *testing.T) {
		fb := &display.Framebuffer{}
		assert.False(t, fb.Blit(62, 31, []byte{0xC0, 0xC0}))

		assert.True(t, fb.At(62, 31))
		assert.True(t, fb.At(63, 31))
		assert.True(t, fb.At(62, 0))
		assert.True(t, fb.At(63, 0))
		assert.False(t, fb.At(0, 31))
	})

	t.Run("Coordinates Beyond Screen Wrap", func(t *testing.T) {
		fb := &display.Framebuffer{}
		fb.Blit(64+3, 32+2, []byte{0x80})
		assert.True(t, fb.At(3, 2))
	})

	t.Run("Empty Sprite", func(t *testing.T) {
		fb := &display.Framebuffer{}
		assert.False(t, fb.Blit(0, 0, nil))
	})
}

func TestShared(t *testing.T) {
	sh := display.NewShared()
	first := sh.Frame()
	assert.NotNil(t, first)

	// Publishing without changes keeps the same frame
	sh.Publish()
	assert.True(t, first == sh.Frame())

	sh.Blit(0, 0, []byte{0x80})
	assert.False(t, sh.Frame().At(0, 0))

	sh.Publish()
	frame := sh.Frame()
	assert.True(t, frame.At(0, 0))
	assert.Equal(t, uint64(1), frame.Sequence)

	// Published frames are never mutated afterwards
	sh.Clear()
	sh.Publish()
	assert.True(t, frame.At(0, 0))
	assert.False(t, sh.Frame().At(0, 0))
	assert.Equal(t, uint64(2), sh.Frame().Sequence)
}

func TestSharedConcurrentReaders(t *testing.T) {
	sh := display.NewShared()

	var wg sync.WaitGroup
	done := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = sh.Frame().At(1, 1)
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		sh.Blit(uint8(i), uint8(i), []byte{0xAA})
		sh.Publish()
	}

	close(done)
	wg.Wait()
}

func TestFrameString(t *testing.T) {
	hd := display.NewHeadless()
	hd.Blit(0, 0, []byte{0x80})
	hd.Publish()

	lines := strings.Split(hd.Frame().String(), "\n")
	assert.Equal(t, display.HEIGHT+2, len(lines))
	assert.Equal(t, strings.Repeat("+", display.WIDTH+2), lines[0])
	assert.Equal(t, "+█"+strings.Repeat(" ", display.WIDTH-1)+"+", lines[1])
}

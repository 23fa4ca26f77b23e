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

package terminal

import (
	"time"

	"github.com/lassandro/gochip8/pkg/input"
)

const KEY_ESCAPE = 0x1B

// decodeKeys maps raw terminal bytes to keypad values. Escape sequences
// (arrow keys and the like) are skipped; a lone escape quits.
func decodeKeys(buf []byte) (keys []int, toggle bool, quit bool) {
	for i := 0; i < len(buf); i++ {
		b := buf[i]

		switch {
		case b >= '0' && b <= '9':
			keys = append(keys, int(b-'0'))

		case b >= 'a' && b <= 'f':
			keys = append(keys, int(b-'a')+0xA)

		case b >= 'A' && b <= 'F':
			keys = append(keys, int(b-'A')+0xA)

		case b == 'q' || b == 'Q':
			quit = true

		case b == ' ':
			toggle = !toggle

		case b == KEY_ESCAPE:
			if i+1 < len(buf) && (buf[i+1] == '[' || buf[i+1] == 'O') {
				i += 2
				for i < len(buf) && (buf[i] < 0x40 || buf[i] > 0x7E) {
					i++
				}
				continue
			}

			quit = true
		}
	}

	return keys, toggle, quit
}

// releaser tracks held keys. A terminal only reports presses, so a key is
// released once no repeat has arrived within delay.
type releaser struct {
	delay    time.Duration
	deadline [input.KEY_COUNT]time.Time
}

// press extends the hold on key and reports whether it was newly pressed.
func (r *releaser) press(key int, now time.Time) bool {
	held := !r.deadline[key].IsZero()
	r.deadline[key] = now.Add(r.delay)
	return !held
}

func (r *releaser) forget(key int) {
	r.deadline[key] = time.Time{}
}

func (r *releaser) expired(now time.Time) []int {
	var keys []int

	for key, deadline := range r.deadline {
		if deadline.IsZero() || now.Before(deadline) {
			continue
		}

		keys = append(keys, key)
		r.deadline[key] = time.Time{}
	}

	return keys
}

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

package input

const KEY_QUIT = -1

const KEY_COUNT = 16

const DEFAULT_QUEUE_SIZE = 64

// Event is a key transition. Key is 0x0-0xF or KEY_QUIT.
type Event struct {
	Key     int
	Pressed bool
}

// Queue carries events from an input surface to the machine. Push never
// blocks; events are dropped when the machine falls behind.
type Queue struct {
	events chan Event
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = DEFAULT_QUEUE_SIZE
	}
	return &Queue{events: make(chan Event, size)}
}

func (q *Queue) Push(event Event) bool {
	select {
	case q.events <- event:
		return true
	default:
		return false
	}
}

func (q *Queue) Press(key int) bool   { return q.Push(Event{key, true}) }
func (q *Queue) Release(key int) bool { return q.Push(Event{key, false}) }
func (q *Queue) Quit() bool           { return q.Push(Event{KEY_QUIT, true}) }

// Keypad folds queued events into a pressed-key set.
type Keypad struct {
	queue   *Queue
	pressed uint16
}

func NewKeypad(q *Queue) *Keypad {
	return &Keypad{queue: q}
}

// Poll drains every pending event and reports whether quit was requested.
func (kp *Keypad) Poll() bool {
	quit := false

	for {
		select {
		case event := <-kp.queue.events:
			switch {
			case event.Key == KEY_QUIT:
				quit = quit || event.Pressed
			case event.Key < 0 || event.Key >= KEY_COUNT:
			case event.Pressed:
				kp.pressed |= 1 << event.Key
			default:
				kp.pressed &^= 1 << event.Key
			}
		default:
			return quit
		}
	}
}

func (kp *Keypad) Pressed(key uint8) bool {
	return key < KEY_COUNT && kp.pressed&(1<<key) != 0
}

// Lowest returns the lowest pressed key code.
func (kp *Keypad) Lowest() (uint8, bool) {
	for key := uint8(0); key < KEY_COUNT; key++ {
		if kp.pressed&(1<<key) != 0 {
			return key, true
		}
	}
	return 0, false
}

// State returns the pressed-key set as a bitmask, bit n for key n.
func (kp *Keypad) State() uint16 {
	return kp.pressed
}

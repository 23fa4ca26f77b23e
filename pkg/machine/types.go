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
	"github.com/retroenv/retrogolib/log"
)

// Display is the capability set the engine needs from a framebuffer. Publish
// is called once per executed tick so observers can pick up a fresh frame.
type Display interface {
	Clear()
	Blit(x, y uint8, sprite []byte) bool
	Publish()
}

// Keypad folds queued input into a pressed-key set. Poll drains pending
// events and reports whether the quit key was seen.
type Keypad interface {
	Poll() bool
	Pressed(key uint8) bool
	Lowest() (uint8, bool)
}

// Sound receives the value written by LD ST, Vx. Trigger must not block.
type Sound interface {
	Trigger(timer uint8)
}

type DeviceHandler struct {
	Display Display
	Keypad  Keypad
	Sound   Sound
}

type MachineState struct {
	Registers [REGISTER_COUNT]uint8
	Index     uint16
	Delay     uint8
	Program   uint16
	Stack     []uint16
	Memory    Memory

	// Last fetched instruction word
	Opcode Opcode

	// Set by LD Vx, K until a key is pressed
	Awaiting bool
	AwaitReg uint8
}

// MachineDebugger is consulted before every tick. Poll may reset or reload
// the machine and reports whether the tick should execute.
type MachineDebugger interface {
	Poll(mc *Machine) (bool, error)
	Publish(snapshot Snapshot)
}

type Settings struct {
	StackSize int
	TickRate  int
}

type Machine struct {
	Devices  *DeviceHandler
	State    MachineState
	Debugger MachineDebugger
	Settings Settings

	// Source of CHIP-8 random bytes, replaceable for deterministic tests
	Random func() uint8

	logger *log.Logger
	rom    []byte
	fault  error
	ticks  uint64
	cycles uint64
}

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
	"errors"
	"fmt"
)

// ErrQuit is returned by Tick when the keypad reports the quit key.
var ErrQuit = errors.New("Quit requested")

type BoundsFault struct {
	Addr   uint16
	Length int
}

func (err *BoundsFault) Error() string {
	return fmt.Sprintf(
		"Memory access out of bounds\n\twant:[%#04x, %#04x)\n\thave:[%#04x, %#04x)",
		0,
		MEMORY_SIZE,
		err.Addr,
		int(err.Addr)+err.Length,
	)
}

type RomTooLargeFault struct {
	Size  int
	Limit int
}

func (err *RomTooLargeFault) Error() string {
	return fmt.Sprintf(
		"Program exceeds program memory\n\twant:%d bytes\n\thave:%d bytes",
		err.Limit,
		err.Size,
	)
}

type UnknownOpcodeFault struct {
	Addr   uint16
	Opcode Opcode
}

func (err *UnknownOpcodeFault) Error() string {
	return fmt.Sprintf("[%#04x] Unknown opcode %s", err.Addr, err.Opcode)
}

type StackOverflowFault struct {
	Addr  uint16
	Depth int
}

func (err *StackOverflowFault) Error() string {
	return fmt.Sprintf(
		"[%#04x] Stack overflow\n\twant:depth <= %d\n\thave:depth %d",
		err.Addr,
		err.Depth,
		err.Depth+1,
	)
}

type StackUnderflowFault struct {
	Addr uint16
}

func (err *StackUnderflowFault) Error() string {
	return fmt.Sprintf("[%#04x] Return with empty stack", err.Addr)
}

type InvalidSettingError struct {
	Name  string
	Value int
	Min   int
	Max   int
}

func (err *InvalidSettingError) Error() string {
	return fmt.Sprintf(
		"Invalid %s\n\twant:%d..%d\n\thave:%d",
		err.Name,
		err.Min,
		err.Max,
		err.Value,
	)
}

// IsFault reports whether err is one of the fatal machine faults.
func IsFault(err error) bool {
	var (
		bounds    *BoundsFault
		rom       *RomTooLargeFault
		opcode    *UnknownOpcodeFault
		overflow  *StackOverflowFault
		underflow *StackUnderflowFault
	)

	return errors.As(err, &bounds) ||
		errors.As(err, &rom) ||
		errors.As(err, &opcode) ||
		errors.As(err, &overflow) ||
		errors.As(err, &underflow)
}

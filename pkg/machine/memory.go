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

import "encoding/binary"

type Memory [MEMORY_SIZE]byte

func checkBounds(addr uint16, length int) error {
	if length < 0 || int(addr) >= MEMORY_SIZE || int(addr)+length > MEMORY_SIZE {
		return &BoundsFault{Addr: addr, Length: length}
	}

	return nil
}

// Read returns a copy of length bytes starting at addr.
func (mem *Memory) Read(addr uint16, length int) ([]byte, error) {
	if err := checkBounds(addr, length); err != nil {
		return nil, err
	}

	result := make([]byte, length)
	copy(result, mem[addr:int(addr)+length])
	return result, nil
}

func (mem *Memory) Write(addr uint16, value byte) error {
	if err := checkBounds(addr, 1); err != nil {
		return err
	}

	mem[addr] = value
	return nil
}

// WriteBytes stores values starting at addr. Nothing is written unless the
// whole range is addressable.
func (mem *Memory) WriteBytes(addr uint16, values []byte) error {
	if err := checkBounds(addr, len(values)); err != nil {
		return err
	}

	copy(mem[addr:], values)
	return nil
}

// Word fetches the big-endian instruction word at addr.
func (mem *Memory) Word(addr uint16) (uint16, error) {
	if err := checkBounds(addr, 2); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(mem[addr:]), nil
}

func (mem *Memory) LoadFont() {
	copy(mem[MEMSPACE_FONT:], Font[:])
}

func (mem *Memory) LoadProgram(rom []byte) error {
	if len(rom) > MAX_PROGRAM_SIZE {
		return &RomTooLargeFault{Size: len(rom), Limit: MAX_PROGRAM_SIZE}
	}

	copy(mem[MEMSPACE_PROGRAM:], rom)
	return nil
}

func (mem *Memory) Clear() {
	for i := range mem {
		mem[i] = 0
	}
}

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

package assembler

import (
	"fmt"
	"io"

	"github.com/lassandro/gochip8/pkg/machine"
)

// Disassemble writes a listing of rom that assembles back to the same
// bytes. Each line carries its address and raw word as a comment.
func Disassemble(w io.Writer, rom []byte) error {
	addr := int(PROGRAM_ORIGIN)

	for i := 0; i+1 < len(rom); i += 2 {
		op := machine.Opcode(uint16(rom[i])<<8 | uint16(rom[i+1]))

		if _, err := fmt.Fprintf(
			w, "    %-24s; %#04x  %s\n", machine.Disassemble(op), addr, op,
		); err != nil {
			return err
		}

		addr += 2
	}

	if len(rom)%2 != 0 {
		last := rom[len(rom)-1]

		if _, err := fmt.Fprintf(
			w, "    %-24s; %#04x\n", fmt.Sprintf(".DB 0x%02X", last), addr,
		); err != nil {
			return err
		}
	}

	return nil
}

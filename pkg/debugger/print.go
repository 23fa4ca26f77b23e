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

package debugger

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/lassandro/gochip8/pkg/machine"
)

func PrintRegisters(w io.Writer, snap *machine.Snapshot) {
	for i, register := range snap.Registers {
		fmt.Fprintf(w, "\033[1mV%X:\033[0m 0x%02x\t", i, register)
		if i%8 == 7 {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(
		w,
		"\033[1mPC:\033[0m 0x%04x\t\033[1mI:\033[0m 0x%04x\t\033[1mDT:\033[0m 0x%02x\n",
		snap.Program,
		snap.Index,
		snap.Delay,
	)
}

func PrintStack(w io.Writer, snap *machine.Snapshot) {
	if len(snap.Stack) == 0 {
		fmt.Fprintln(w, "Stack empty")
		return
	}

	for i := len(snap.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "\033[1m#%02d\033[0m 0x%04x\n", i, snap.Stack[i])
	}
}

func PrintMem(w io.Writer, mem *machine.Memory, addr, count uint16) {
	for offset := uint16(0); offset < count; offset++ {
		i := int(addr) + int(offset)
		if i >= machine.MEMORY_SIZE {
			break
		}

		if offset == 0 {
			fmt.Fprintf(w, "\033[1m[0x%04x]\033[0m ", i)
		} else if offset%8 == 0 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "\033[1m[0x%04x]\033[0m ", i)
		}

		result := mem[i]

		if result == 0 {
			fmt.Fprintf(w, "\033[1;30m0x%02x\033[0m ", result)
		} else {
			fmt.Fprintf(w, "0x%02x ", result)
		}
	}

	fmt.Fprintln(w)
}

// PrintDisassembly decodes count words starting at addr, marking pc.
func PrintDisassembly(w io.Writer, snap *machine.Snapshot, addr, count uint16) {
	for i := uint16(0); i < count; i++ {
		word, err := snap.Memory.Word(addr)
		if err != nil {
			break
		}

		marker := "  "
		if addr == snap.Program {
			marker = "=>"
		}

		op := machine.Opcode(word)
		fmt.Fprintf(w, "%s \033[1m[0x%04x]\033[0m %s  %s\n", marker, addr, op, machine.Disassemble(op))

		addr += 2
	}
}

func (dbg *Debugger) PrintSource(w io.Writer, addr uint16, count uint16) {
	if dbg.Source == nil {
		fmt.Fprintln(w, "No source file loaded")
		return
	}

	if dbg.SymTable == nil {
		fmt.Fprintln(w, "No symbol table loaded")
		return
	}

	offset, exists := dbg.SymTable.Symbols[addr]
	if !exists {
		fmt.Fprintf(w, "No instruction found at 0x%04x\n", addr)
		return
	}

	lines := make(map[int64]uint16, len(dbg.SymTable.Symbols))
	for lineaddr, linebyte := range dbg.SymTable.Symbols {
		lines[linebyte] = lineaddr
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		fmt.Fprintln(w, err)
		return
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := uint16(0); i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if lineaddr, found := lines[offset]; found {
			fmt.Fprintf(w, "\033[1m[0x%04x]\033[0m ", lineaddr)
		} else {
			fmt.Fprint(w, "\033[1;30m~~~~~~~~\033[0m ")
		}

		fmt.Fprintln(w, line)

		offset += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(w, err)
	}
}

// LookupLabel resolves a label name from the loaded symbol table.
func (dbg *Debugger) LookupLabel(name string) (uint16, bool) {
	if dbg.SymTable == nil {
		return 0, false
	}

	for addr, label := range dbg.SymTable.Labels {
		if label == name {
			return addr, true
		}
	}

	return 0, false
}

func (dbg *Debugger) PrintLabels(w io.Writer) {
	if dbg.SymTable == nil {
		fmt.Fprintln(w, "No symbol table loaded")
		return
	}

	keys := make([]uint16, 0, len(dbg.SymTable.Labels))
	for addr := range dbg.SymTable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, addr := range keys {
		fmt.Fprintf(w, "\033[1m[0x%04x]\033[0m %s\n", addr, dbg.SymTable.Labels[addr])
	}
}

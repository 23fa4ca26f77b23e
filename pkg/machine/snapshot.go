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
	"fmt"
	"strings"
)

// Snapshot is a point-in-time copy of the machine. It shares no memory with
// the engine.
type Snapshot struct {
	Opcode    Opcode
	Index     uint16
	Delay     uint8
	Program   uint16
	Registers [REGISTER_COUNT]uint8
	Stack     []uint16
	Memory    Memory

	Awaiting    bool
	Paused      bool
	Breakpoints []uint16

	Ticks  uint64
	Cycles uint64
	Fault  string
}

func (mc *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		Opcode:    mc.State.Opcode,
		Index:     mc.State.Index,
		Delay:     mc.State.Delay,
		Program:   mc.State.Program,
		Registers: mc.State.Registers,
		Stack:     append([]uint16(nil), mc.State.Stack...),
		Memory:    mc.State.Memory,
		Awaiting:  mc.State.Awaiting,
		Ticks:     mc.ticks,
		Cycles:    mc.cycles,
	}

	if mc.fault != nil {
		snap.Fault = mc.fault.Error()
	}

	return snap
}

// Instruction renders the last fetched opcode, e.g. "0x6A2A - LD VA, 0x2A".
func (snap *Snapshot) Instruction() string {
	return fmt.Sprintf("%s - %s", snap.Opcode, Disassemble(snap.Opcode))
}

func formatWide(value uint16) string {
	return fmt.Sprintf("0x%04X | %d", value, value)
}

func (snap *Snapshot) FormatIndex() string   { return formatWide(snap.Index) }
func (snap *Snapshot) FormatProgram() string { return formatWide(snap.Program) }
func (snap *Snapshot) FormatDelay() string   { return formatWide(uint16(snap.Delay)) }

// FormatRegisters lays out V0..VF as three rows: register index, decimal
// value and hex value, each column eight characters wide.
func (snap *Snapshot) FormatRegisters() string {
	var index, decimal, hex strings.Builder

	for i, value := range snap.Registers {
		fmt.Fprintf(&index, "%8X", i)
		fmt.Fprintf(&decimal, "%8d", value)
		fmt.Fprintf(&hex, "%8s", fmt.Sprintf("0x%04X", value))
	}

	return index.String() + "\n" + decimal.String() + "\n" + hex.String()
}

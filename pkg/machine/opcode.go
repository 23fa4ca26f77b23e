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

type Opcode uint16

type OperandType uint

const (
	OPERAND_VX OperandType = iota
	OPERAND_VY
	OPERAND_BYTE
	OPERAND_NIBBLE
	OPERAND_ADDR

	// Fixed operands, encoded by the pattern alone
	OPERAND_V0
	OPERAND_I
	OPERAND_I_INDIRECT
	OPERAND_DT
	OPERAND_ST
	OPERAND_K
	OPERAND_F
	OPERAND_B
)

type Instruction struct {
	Mask     uint16
	Pattern  uint16
	Name     string
	Operands []OperandType

	exec func(mc *Machine, op Opcode) error
}

func (op Opcode) Class() uint8 { return uint8(op >> 12) }
func (op Opcode) X() uint8     { return uint8(op>>8) & 0xF }
func (op Opcode) Y() uint8     { return uint8(op>>4) & 0xF }
func (op Opcode) N() uint8     { return uint8(op) & 0xF }
func (op Opcode) KK() uint8    { return uint8(op) }
func (op Opcode) NNN() uint16  { return uint16(op) & 0x0FFF }

func (op Opcode) String() string {
	return fmt.Sprintf("0x%04X", uint16(op))
}

// Instructions lists every supported instruction in decode priority order.
// Entries sharing a leading nibble are tried top to bottom.
var Instructions = []Instruction{
	{0xFFFF, 0x00E0, "CLS", nil, (*Machine).opCLS},
	{0xFFFF, 0x00EE, "RET", nil, (*Machine).opRET},
	{0xF000, 0x0000, "SYS", []OperandType{OPERAND_ADDR}, (*Machine).opSYS},
	{0xF000, 0x1000, "JP", []OperandType{OPERAND_ADDR}, (*Machine).opJP},
	{0xF000, 0x2000, "CALL", []OperandType{OPERAND_ADDR}, (*Machine).opCALL},
	{0xF000, 0x3000, "SE", []OperandType{OPERAND_VX, OPERAND_BYTE}, (*Machine).opSEB},
	{0xF000, 0x4000, "SNE", []OperandType{OPERAND_VX, OPERAND_BYTE}, (*Machine).opSNEB},
	{0xF00F, 0x5000, "SE", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opSER},
	{0xF000, 0x6000, "LD", []OperandType{OPERAND_VX, OPERAND_BYTE}, (*Machine).opLDB},
	{0xF000, 0x7000, "ADD", []OperandType{OPERAND_VX, OPERAND_BYTE}, (*Machine).opADDB},
	{0xF00F, 0x8000, "LD", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opLDR},
	{0xF00F, 0x8001, "OR", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opOR},
	{0xF00F, 0x8002, "AND", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opAND},
	{0xF00F, 0x8003, "XOR", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opXOR},
	{0xF00F, 0x8004, "ADD", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opADDR},
	{0xF00F, 0x8005, "SUB", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opSUB},
	{0xF00F, 0x8006, "SHR", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opSHR},
	{0xF00F, 0x8007, "SUBN", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opSUBN},
	{0xF00F, 0x800E, "SHL", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opSHL},
	{0xF00F, 0x9000, "SNE", []OperandType{OPERAND_VX, OPERAND_VY}, (*Machine).opSNER},
	{0xF000, 0xA000, "LD", []OperandType{OPERAND_I, OPERAND_ADDR}, (*Machine).opLDI},
	{0xF000, 0xB000, "JP", []OperandType{OPERAND_V0, OPERAND_ADDR}, (*Machine).opJPV},
	{0xF000, 0xC000, "RND", []OperandType{OPERAND_VX, OPERAND_BYTE}, (*Machine).opRND},
	{0xF000, 0xD000, "DRW", []OperandType{OPERAND_VX, OPERAND_VY, OPERAND_NIBBLE}, (*Machine).opDRW},
	{0xF0FF, 0xE09E, "SKP", []OperandType{OPERAND_VX}, (*Machine).opSKP},
	{0xF0FF, 0xE0A1, "SKNP", []OperandType{OPERAND_VX}, (*Machine).opSKNP},
	{0xF0FF, 0xF007, "LD", []OperandType{OPERAND_VX, OPERAND_DT}, (*Machine).opLDVDT},
	{0xF0FF, 0xF00A, "LD", []OperandType{OPERAND_VX, OPERAND_K}, (*Machine).opLDK},
	{0xF0FF, 0xF015, "LD", []OperandType{OPERAND_DT, OPERAND_VX}, (*Machine).opLDDT},
	{0xF0FF, 0xF018, "LD", []OperandType{OPERAND_ST, OPERAND_VX}, (*Machine).opLDST},
	{0xF0FF, 0xF01E, "ADD", []OperandType{OPERAND_I, OPERAND_VX}, (*Machine).opADDI},
	{0xF0FF, 0xF029, "LD", []OperandType{OPERAND_F, OPERAND_VX}, (*Machine).opLDF},
	{0xF0FF, 0xF033, "LD", []OperandType{OPERAND_B, OPERAND_VX}, (*Machine).opLDBCD},
	{0xF0FF, 0xF055, "LD", []OperandType{OPERAND_I_INDIRECT, OPERAND_VX}, (*Machine).opSTORE},
	{0xF0FF, 0xF065, "LD", []OperandType{OPERAND_VX, OPERAND_I_INDIRECT}, (*Machine).opLOAD},
}

var decodeTable [16][]*Instruction

func init() {
	for i := range Instructions {
		inst := &Instructions[i]
		class := inst.Pattern >> 12
		decodeTable[class] = append(decodeTable[class], inst)
	}
}

// Decode finds the instruction matching op. The all-zero word is unprogrammed
// memory and never decodes as SYS.
func Decode(op Opcode) (*Instruction, error) {
	if op != 0 {
		for _, inst := range decodeTable[op.Class()] {
			if uint16(op)&inst.Mask == inst.Pattern {
				return inst, nil
			}
		}
	}

	return nil, &UnknownOpcodeFault{Opcode: op}
}

// Encode places args into the instruction's operand fields. Fixed operands
// take no argument, so args holds one value per variable operand.
func (inst *Instruction) Encode(args []uint16) (Opcode, error) {
	result := inst.Pattern
	next := 0

	for _, operand := range inst.Operands {
		if operand.Fixed() {
			continue
		}

		if next >= len(args) {
			return 0, fmt.Errorf("%s: missing operand", inst.Name)
		}

		value := args[next]
		next++

		if value > operand.Limit() {
			return 0, fmt.Errorf(
				"%s: operand %#x exceeds %#x", inst.Name, value, operand.Limit(),
			)
		}

		switch operand {
		case OPERAND_VX:
			result |= value << 8
		case OPERAND_VY:
			result |= value << 4
		case OPERAND_BYTE, OPERAND_NIBBLE, OPERAND_ADDR:
			result |= value
		}
	}

	if next != len(args) {
		return 0, fmt.Errorf("%s: too many operands", inst.Name)
	}

	return Opcode(result), nil
}

func (operand OperandType) Fixed() bool {
	return operand >= OPERAND_V0
}

// Limit is the largest value a variable operand field can hold.
func (operand OperandType) Limit() uint16 {
	switch operand {
	case OPERAND_VX, OPERAND_VY, OPERAND_NIBBLE:
		return 0xF
	case OPERAND_BYTE:
		return 0xFF
	case OPERAND_ADDR:
		return 0xFFF
	}

	return 0
}

func formatOperand(operand OperandType, op Opcode) string {
	switch operand {
	case OPERAND_VX:
		return fmt.Sprintf("V%X", op.X())
	case OPERAND_VY:
		return fmt.Sprintf("V%X", op.Y())
	case OPERAND_BYTE:
		return fmt.Sprintf("0x%02X", op.KK())
	case OPERAND_NIBBLE:
		return fmt.Sprintf("0x%02X", op.N())
	case OPERAND_ADDR:
		return fmt.Sprintf("0x%04X", op.NNN())
	case OPERAND_V0:
		return "V0"
	case OPERAND_I:
		return "I"
	case OPERAND_I_INDIRECT:
		return "[I]"
	case OPERAND_DT:
		return "DT"
	case OPERAND_ST:
		return "ST"
	case OPERAND_K:
		return "K"
	case OPERAND_F:
		return "F"
	case OPERAND_B:
		return "B"
	}

	return "?"
}

// Disassemble renders op as assembler text. Words that do not decode are
// rendered as a data directive.
func Disassemble(op Opcode) string {
	inst, err := Decode(op)

	if err != nil {
		return fmt.Sprintf("DW 0x%04X", uint16(op))
	}

	if len(inst.Operands) == 0 {
		return inst.Name
	}

	operands := make([]string, len(inst.Operands))
	for i, operand := range inst.Operands {
		operands[i] = formatOperand(operand, op)
	}

	return inst.Name + " " + strings.Join(operands, ", ")
}

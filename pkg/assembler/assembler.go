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
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

var mnemonics = make(map[string][]*machine.Instruction)

func init() {
	for i := range machine.Instructions {
		inst := &machine.Instructions[i]
		mnemonics[inst.Name] = append(mnemonics[inst.Name], inst)
	}
}

var fixedOperands = map[machine.OperandType]string{
	machine.OPERAND_V0:         "V0",
	machine.OPERAND_I:          "I",
	machine.OPERAND_I_INDIRECT: "[I]",
	machine.OPERAND_DT:         "DT",
	machine.OPERAND_ST:         "ST",
	machine.OPERAND_K:          "K",
	machine.OPERAND_F:          "F",
	machine.OPERAND_B:          "B",
}

func parseDirective(ident string) DirectiveType {
	ident = strings.TrimPrefix(ident, ".")

	if strings.EqualFold(ident, "ORG") {
		return DIRECTIVE_ORG
	} else if strings.EqualFold(ident, "DB") {
		return DIRECTIVE_DB
	} else if strings.EqualFold(ident, "DW") {
		return DIRECTIVE_DW
	} else if strings.EqualFold(ident, "END") {
		return DIRECTIVE_END
	}

	return DIRECTIVE_INVALID
}

func parseInstruction(ident string) []*machine.Instruction {
	return mnemonics[strings.ToUpper(ident)]
}

func parseRegister(token *Token) (uint16, bool) {
	ident := token.Value

	if len(ident) != 2 || (ident[0] != 'V' && ident[0] != 'v') {
		return 0, false
	}

	value, err := strconv.ParseUint(ident[1:], 16, 8)

	if err != nil {
		return 0, false
	}

	return uint16(value), true
}

func isKeyword(token *Token) bool {
	if token.Type != TOKEN_IDENT && token.Type != TOKEN_DIRECTIVE {
		return false
	}

	return parseInstruction(token.Value) != nil ||
		parseDirective(token.Value) != DIRECTIVE_INVALID
}

func isReserved(ident string) bool {
	if parseInstruction(ident) != nil || parseDirective(ident) != DIRECTIVE_INVALID {
		return true
	}

	for _, name := range fixedOperands {
		if strings.EqualFold(ident, name) {
			return true
		}
	}

	_, isRegister := parseRegister(&Token{Value: ident})
	return isRegister
}

// parseLiteral decodes token and checks it against [min, max]. Negative
// values are returned in two's complement of the field width.
func parseLiteral(token *Token, min, max int) (uint16, error) {
	if token.Type != TOKEN_LITERAL {
		return 0, &InvalidOperandError{
			token.Position, "Literal", tokenTypeName(token.Type),
		}
	}

	result, err := encoding.DecodeLiteral(token.Value)

	if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}

	if int(result) < min || int(result) > max {
		return 0, &OversizedLiteralError{token.Position, max, int(result)}
	}

	return uint16(result), nil
}

type labelRef struct {
	Label    string
	Addr     uint16
	Word     bool
	Position Cursor
}

// operandMatch is the outcome of fitting a line's operands to one
// instruction form. Depth counts the operands accepted before err.
type operandMatch struct {
	args  []uint16
	label *Token
	depth int
	err   error
}

func matchOperands(inst *machine.Instruction, operands []Token) operandMatch {
	var match operandMatch

	for i := range operands {
		token := &operands[i]
		kind := inst.Operands[i]

		if name, fixed := fixedOperands[kind]; fixed {
			if token.Type != TOKEN_IDENT || !strings.EqualFold(token.Value, name) {
				match.err = &InvalidOperandError{token.Position, name, token.Value}
				return match
			}

			match.depth++
			continue
		}

		var value uint16
		var err error

		switch kind {
		case machine.OPERAND_VX, machine.OPERAND_VY:
			var ok bool
			if value, ok = parseRegister(token); !ok {
				if token.Type == TOKEN_IDENT {
					err = &InvalidRegisterError{token.Position}
				} else {
					err = &InvalidOperandError{
						token.Position, "Register", tokenTypeName(token.Type),
					}
				}
			}

		case machine.OPERAND_BYTE:
			value, err = parseLiteral(token, -0x80, 0xFF)
			value &= 0xFF

		case machine.OPERAND_NIBBLE:
			value, err = parseLiteral(token, 0, 0xF)

		case machine.OPERAND_ADDR:
			if token.Type == TOKEN_IDENT && !isReserved(token.Value) {
				match.label = token
			} else {
				value, err = parseLiteral(token, 0, 0xFFF)
			}
		}

		if err != nil {
			match.err = err
			return match
		}

		match.args = append(match.args, value)
		match.depth++
	}

	return match
}

// assembleInstruction picks the first form of the mnemonic whose operands
// fit. When none fit, the error from the form that got furthest is reported.
func assembleInstruction(keyword *Token, forms []*machine.Instruction, operands []Token) (machine.Opcode, *Token, error) {
	var best *operandMatch
	counted := false

	for _, inst := range forms {
		if len(inst.Operands) != len(operands) {
			continue
		}

		counted = true
		match := matchOperands(inst, operands)

		if match.err == nil {
			op, err := inst.Encode(match.args)
			return op, match.label, err
		}

		if best == nil || match.depth > best.depth {
			best = &match
		}
	}

	if !counted {
		return 0, nil, &InvalidNumArgumentsError{
			keyword.Position, len(forms[0].Operands), len(operands),
		}
	}

	return 0, nil, best.err
}

type assembly struct {
	result []byte
	errs   []error

	labels    map[string]uint16
	order     []string
	labelRefs []labelRef
}

func (asm *assembly) addr() int {
	return int(PROGRAM_ORIGIN) + len(asm.result)
}

func (asm *assembly) emit(values ...byte) bool {
	if asm.addr()+len(values) > PROGRAM_LIMIT {
		asm.errs = append(asm.errs, &OversizedBinaryError{
			asm.addr() + len(values) - int(PROGRAM_ORIGIN), machine.MAX_PROGRAM_SIZE,
		})
		return false
	}

	asm.result = append(asm.result, values...)
	return true
}

func (asm *assembly) declare(label *Token) {
	name := label.Value

	if isReserved(name) {
		asm.errs = append(asm.errs, &InvalidLabelError{label.Position, name})
		return
	}

	if _, exists := asm.labels[name]; exists {
		asm.errs = append(asm.errs, &RedeclaredLabelError{label.Position, name})
		return
	}

	asm.labels[name] = uint16(asm.addr())
	asm.order = append(asm.order, name)
}

func (asm *assembly) directive(keyword *Token, directive DirectiveType, operands []Token) bool {
	switch directive {
	// .ORG addr
	case DIRECTIVE_ORG:
		if count := len(operands); count != 1 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
			)
			return true
		}

		origin, err := parseLiteral(&operands[0], 0, 0xFFFF)

		if err != nil {
			asm.errs = append(asm.errs, err)
			return true
		}

		if int(origin) < asm.addr() || int(origin) > PROGRAM_LIMIT {
			asm.errs = append(asm.errs, &InvalidOriginError{
				operands[0].Position, asm.addr(), int(origin),
			})
			return true
		}

		return asm.emit(make([]byte, int(origin)-asm.addr())...)

	// .DB byte|"string", ...
	case DIRECTIVE_DB:
		if len(operands) == 0 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
			)
			return true
		}

		for i := range operands {
			operand := &operands[i]

			if operand.Type == TOKEN_STRING {
				s, err := strconv.Unquote(operand.Value)

				if err != nil {
					asm.errs = append(asm.errs, &InvalidStringError{operand.Position})
					continue
				}

				for _, c := range s {
					if c > 0x7F {
						asm.errs = append(asm.errs, &OversizedCharacterError{operand.Position})
						break
					}

					if !asm.emit(byte(c)) {
						return false
					}
				}

				continue
			}

			value, err := parseLiteral(operand, -0x80, 0xFF)

			if err != nil {
				asm.errs = append(asm.errs, err)
				continue
			}

			if !asm.emit(byte(value)) {
				return false
			}
		}

	// .DW word|label, ...
	case DIRECTIVE_DW:
		if len(operands) == 0 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
			)
			return true
		}

		for i := range operands {
			operand := &operands[i]
			addr := uint16(asm.addr())
			isLabel := operand.Type == TOKEN_IDENT && !isReserved(operand.Value)
			var value uint16

			if !isLabel {
				var err error

				if value, err = parseLiteral(operand, -0x8000, 0xFFFF); err != nil {
					asm.errs = append(asm.errs, err)
					continue
				}
			}

			if !asm.emit(byte(value>>8), byte(value)) {
				return false
			}

			if isLabel {
				asm.labelRefs = append(asm.labelRefs, labelRef{
					operand.Value, addr, true, operand.Position,
				})
			}
		}
	}

	return true
}

// Assemble translates CHIP-8 assembly into a program image loaded at
// PROGRAM_ORIGIN. When symtable is non-nil it is filled with line offsets and
// labels for source level debugging.
func Assemble(input io.Reader, symtable *SymTable) (result []byte, errs []error) {
	asm := &assembly{
		result: make([]byte, 0, machine.MAX_PROGRAM_SIZE),
		labels: make(map[string]uint16),
	}

	var scanner = bufio.NewScanner(input)
	var cursor = Cursor{Line: 1}

	advance := func(line string) {
		cursor.Line++
		cursor.Byte += int64(len(line) + 1)
		cursor.LineByte += int64(len(line) + 1)
	}

lines:
	for scanner.Scan() {
		line := scanner.Text()
		cursor.Size = int64(len(line))

		tokens, lineErrs := tokenize(line, cursor)

		if len(lineErrs) > 0 {
			asm.errs = append(asm.errs, lineErrs...)
			advance(line)
			continue
		}

		// Labels:
		// - "name:" anywhere before the keyword
		// - a bare leading identifier that is not a keyword
		for len(tokens) > 0 && tokens[0].Type == TOKEN_LABEL {
			asm.declare(&tokens[0])
			tokens = tokens[1:]
		}

		if len(tokens) > 0 && tokens[0].Type == TOKEN_IDENT &&
			parseInstruction(tokens[0].Value) == nil &&
			parseDirective(tokens[0].Value) == DIRECTIVE_INVALID &&
			(len(tokens) == 1 || isKeyword(&tokens[1])) {
			asm.declare(&tokens[0])
			tokens = tokens[1:]
		}

		if len(tokens) == 0 {
			advance(line)
			continue
		}

		keyword := &tokens[0]
		operands := tokens[1:]
		addr := uint16(asm.addr())

		var directive DirectiveType
		if keyword.Type == TOKEN_DIRECTIVE || keyword.Type == TOKEN_IDENT {
			directive = parseDirective(keyword.Value)
		}

		switch {
		case directive == DIRECTIVE_END:
			if count := len(operands); count != 0 {
				asm.errs = append(
					asm.errs, &InvalidNumArgumentsError{keyword.Position, 0, count},
				)
			}

			break lines

		case directive != DIRECTIVE_INVALID:
			if directive != DIRECTIVE_ORG && symtable != nil {
				symtable.Symbols[addr] = cursor.LineByte
			}

			if !asm.directive(keyword, directive, operands) {
				break lines
			}

		case keyword.Type == TOKEN_IDENT && parseInstruction(keyword.Value) != nil:
			op, label, err := assembleInstruction(
				keyword, parseInstruction(keyword.Value), operands,
			)

			if err != nil {
				asm.errs = append(asm.errs, err)
				break
			}

			if !asm.emit(byte(op>>8), byte(op)) {
				break lines
			}

			if label != nil {
				asm.labelRefs = append(asm.labelRefs, labelRef{
					label.Value, addr, false, label.Position,
				})
			}

			if symtable != nil {
				symtable.Symbols[addr] = cursor.LineByte
			}

		default:
			asm.errs = append(
				asm.errs, &UnknownIdentifierError{keyword.Position, keyword.Value},
			)
		}

		advance(line)
	}

	if err := scanner.Err(); err != nil {
		asm.errs = append(asm.errs, err)
	}

	// Labels
	// - Resolve references into address fields or data words
	// - Add labels to symbol table, first declared wins per address
	for _, ref := range asm.labelRefs {
		addr, exists := asm.labels[ref.Label]

		if !exists {
			asm.errs = append(asm.errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		offset := int(ref.Addr - PROGRAM_ORIGIN)

		if ref.Word {
			asm.result[offset] = byte(addr >> 8)
		} else {
			asm.result[offset] |= byte(addr>>8) & 0x0F
		}

		asm.result[offset+1] = byte(addr)
	}

	if symtable != nil {
		for _, label := range asm.order {
			addr := asm.labels[label]

			if _, exists := symtable.Labels[addr]; !exists {
				symtable.Labels[addr] = label
			}
		}
	}

	return asm.result, asm.errs
}

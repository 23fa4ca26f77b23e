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

package assembler_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/assert"
)

type testCase struct {
	Name     string
	Input    string
	Output   []byte
	SymTable *assembler.SymTable
}

type failCase struct {
	Name  string
	Input string
	Error error
}

func testAssemblerSuccess(t *testing.T, test *testCase) {
	var symtarget *assembler.SymTable

	if test.SymTable != nil {
		symtarget = assembler.NewSymTable("")
	}

	result, errs := assembler.Assemble(strings.NewReader(test.Input), symtarget)

	if len(errs) > 0 {
		t.Fatal(errs[0])
	}

	if !bytes.Equal(result, test.Output) {
		t.Fatalf(
			"Program encoding mismatch\n"+
				"want:% X\n"+
				"have:% X",
			test.Output,
			result,
		)
	}

	if test.SymTable != nil {
		if !reflect.DeepEqual(symtarget.Symbols, test.SymTable.Symbols) {
			t.Fatalf(
				"Symtable encoding mismatch\n"+
					"want:%v (test.SymTable.Symbols)\n"+
					"have:%v",
				test.SymTable.Symbols,
				symtarget.Symbols,
			)
		}

		if !reflect.DeepEqual(symtarget.Labels, test.SymTable.Labels) {
			t.Fatalf(
				"Symtable encoding mismatch\n"+
					"want:%v (test.SymTable.Labels)\n"+
					"have:%v",
				test.SymTable.Labels,
				symtarget.Labels,
			)
		}
	}
}

func testAssemblerFail(t *testing.T, test *failCase) {
	_, errs := assembler.Assemble(strings.NewReader(test.Input), nil)

	if test.Error == nil {
		panic("Fail case missing error value")
	}

	if len(errs) == 0 {
		t.Fatalf(
			"%s produced error of incorrect type"+
				"\nwant:%T (test.Error)\nhave:<nil>",
			t.Name(),
			test.Error,
		)
	}

	if len(errs) > 1 {
		errTypes := make([]reflect.Type, 0, len(errs))
		for _, err := range errs {
			errTypes = append(errTypes, reflect.TypeOf(err))
		}

		t.Fatalf(
			"%s produced multiple errors:\n\twant:%T (test.Error)\n\thave:%v",
			t.Name(),
			test.Error,
			errTypes,
		)
	}

	if reflect.TypeOf(errs[0]) != reflect.TypeOf(test.Error) {
		t.Fatalf(
			"%s produced error of incorrect type"+
				"\nwant:%T (test.Error)\nhave:%T (%s)",
			t.Name(),
			test.Error,
			errs[0],
			errs[0],
		)
	}
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerSuccess(t, &test)
			})
		}
	})
}

func testFail(t *testing.T, tests []failCase) {
	t.Run("Fail", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerFail(t, &test)
			})
		}
	})
}

func TestInstructions(t *testing.T) {
	testSuccess(t, []testCase{
		{Name: "CLS", Input: `CLS`, Output: []byte{0x00, 0xE0}},
		{Name: "RET", Input: `RET`, Output: []byte{0x00, 0xEE}},
		{Name: "SYS", Input: `SYS 0x123`, Output: []byte{0x01, 0x23}},
		{Name: "JP", Input: `JP 0x345`, Output: []byte{0x13, 0x45}},
		{Name: "CALL", Input: `CALL 0x300`, Output: []byte{0x23, 0x00}},
		{Name: "SE Byte", Input: `SE V3, 0x42`, Output: []byte{0x33, 0x42}},
		{Name: "SNE Byte", Input: `SNE V3, 0x42`, Output: []byte{0x43, 0x42}},
		{Name: "SE Register", Input: `SE V1, V2`, Output: []byte{0x51, 0x20}},
		{Name: "LD Byte", Input: `LD VA, 0x2A`, Output: []byte{0x6A, 0x2A}},
		{Name: "ADD Byte", Input: `ADD V1, 0x01`, Output: []byte{0x71, 0x01}},
		{Name: "LD Register", Input: `LD V1, V2`, Output: []byte{0x81, 0x20}},
		{Name: "OR", Input: `OR V1, V2`, Output: []byte{0x81, 0x21}},
		{Name: "AND", Input: `AND V1, V2`, Output: []byte{0x81, 0x22}},
		{Name: "XOR", Input: `XOR V1, V2`, Output: []byte{0x81, 0x23}},
		{Name: "ADD Register", Input: `ADD V1, V2`, Output: []byte{0x81, 0x24}},
		{Name: "SUB", Input: `SUB V1, V2`, Output: []byte{0x81, 0x25}},
		{Name: "SHR", Input: `SHR V1, V2`, Output: []byte{0x81, 0x26}},
		{Name: "SUBN", Input: `SUBN V1, V2`, Output: []byte{0x81, 0x27}},
		{Name: "SHL", Input: `SHL V1, V2`, Output: []byte{0x81, 0x2E}},
		{Name: "SNE Register", Input: `SNE V1, V2`, Output: []byte{0x91, 0x20}},
		{Name: "LD I", Input: `LD I, 0x300`, Output: []byte{0xA3, 0x00}},
		{Name: "JP V0", Input: `JP V0, 0x300`, Output: []byte{0xB3, 0x00}},
		{Name: "RND", Input: `RND V5, 0x0F`, Output: []byte{0xC5, 0x0F}},
		{Name: "DRW", Input: `DRW V0, V1, 5`, Output: []byte{0xD0, 0x15}},
		{Name: "SKP", Input: `SKP V3`, Output: []byte{0xE3, 0x9E}},
		{Name: "SKNP", Input: `SKNP V3`, Output: []byte{0xE3, 0xA1}},
		{Name: "LD Vx DT", Input: `LD V3, DT`, Output: []byte{0xF3, 0x07}},
		{Name: "LD Vx K", Input: `LD V3, K`, Output: []byte{0xF3, 0x0A}},
		{Name: "LD DT Vx", Input: `LD DT, V3`, Output: []byte{0xF3, 0x15}},
		{Name: "LD ST Vx", Input: `LD ST, V3`, Output: []byte{0xF3, 0x18}},
		{Name: "ADD I", Input: `ADD I, V3`, Output: []byte{0xF3, 0x1E}},
		{Name: "LD F", Input: `LD F, V3`, Output: []byte{0xF3, 0x29}},
		{Name: "LD B", Input: `LD B, V3`, Output: []byte{0xF3, 0x33}},
		{Name: "LD Store", Input: `LD [I], V3`, Output: []byte{0xF3, 0x55}},
		{Name: "LD Load", Input: `LD V3, [I]`, Output: []byte{0xF3, 0x65}},

		{Name: "Lowercase", Input: `ld va, [i]`, Output: []byte{0xFA, 0x65}},
		{Name: "Decimal", Input: `LD V0, #42`, Output: []byte{0x60, 0x2A}},
		{Name: "Bare Decimal", Input: `LD V0, 255`, Output: []byte{0x60, 0xFF}},
		{Name: "Negative Byte", Input: `ADD V0, -1`, Output: []byte{0x70, 0xFF}},
		{Name: "Binary", Input: `LD V0, 0b1010`, Output: []byte{0x60, 0x0A}},
		{Name: "Whitespace", Input: "\t  LD   V0 ,0x01  ", Output: []byte{0x60, 0x01}},
	})

	testFail(t, []failCase{
		{"Oversized Byte", `LD V0, 0x100`, &assembler.OversizedLiteralError{}},
		{"Undersized Byte", `LD V0, -129`, &assembler.OversizedLiteralError{}},
		{"Oversized Nibble", `DRW V0, V1, 16`, &assembler.OversizedLiteralError{}},
		{"Oversized Addr", `JP 0x1000`, &assembler.OversizedLiteralError{}},
		{"Negative Addr", `CALL -2`, &assembler.OversizedLiteralError{}},
		{"Bad Register", `LD VG, 0x01`, &assembler.InvalidRegisterError{}},
		{"Label Register", `SKP LABEL`, &assembler.InvalidRegisterError{}},
		{"Literal Register", `SKP 0x1`, &assembler.InvalidOperandError{}},
		{"String Byte", `LD V0, "a"`, &assembler.InvalidOperandError{}},
		{"Wrong Fixed", `JP V1, 0x300`, &assembler.InvalidOperandError{}},
		{"Fixed Then Literal", `LD DT, 0x12`, &assembler.InvalidOperandError{}},
		{"ADD I Literal", `ADD I, 5`, &assembler.InvalidOperandError{}},
		{"Missing Operand", `JP`, &assembler.InvalidNumArgumentsError{}},
		{"Extra Operand", `CLS V0`, &assembler.InvalidNumArgumentsError{}},
		{"Too Many", `LD V0, 0x12, 0x34`, &assembler.InvalidNumArgumentsError{}},
		{"Bad Literal", `LD V0, 0xZZ`, &assembler.InvalidLiteralError{}},
		{"Unexpected Character", `LD V0, @1`, &assembler.UnexpectedCharacterError{}},
		{"Non ASCII", `LD V0, é`, &assembler.OversizedCharacterError{}},
		{"Unknown Mnemonic", `LDD V0, 0x01`, &assembler.UnknownIdentifierError{}},
	})
}

func TestLabel(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "Forward And Backward",
			Input: strings.Join([]string{
				"start:",
				"    LD I, sprite",
				"    DRW V0, V1, 5",
				"    JP start",
				"sprite:",
				"    .DB 0xF0, 0x90, 0x90, 0x90, 0xF0",
			}, "\n"),
			Output: []byte{
				0xA2, 0x06,
				0xD0, 0x15,
				0x12, 0x00,
				0xF0, 0x90, 0x90, 0x90, 0xF0,
			},
		},
		{
			Name:   "Bare Label",
			Input:  "loop JP loop",
			Output: []byte{0x12, 0x00},
		},
		{
			Name:   "Label Only Line",
			Input:  "CLS\nhere\nJP here",
			Output: []byte{0x00, 0xE0, 0x12, 0x02},
		},
		{
			Name:   "Inline Colon",
			Input:  "a: c: CALL c",
			Output: []byte{0x22, 0x00},
		},
		{
			Name:   "Data Word",
			Input:  ".DW table\ntable: .DW 0x1234",
			Output: []byte{0x02, 0x02, 0x12, 0x34},
		},
	})

	testFail(t, []failCase{
		{"Redeclared", "a:\nCLS\na:\nRET", &assembler.RedeclaredLabelError{}},
		{"Unknown", `JP nowhere`, &assembler.UnknownLabelError{}},
		{"Unknown Word", `.DW nowhere`, &assembler.UnknownLabelError{}},
		{"Register Name", "V0:\nCLS", &assembler.InvalidLabelError{}},
		{"Keyword Name", "DT: CLS", &assembler.InvalidLabelError{}},
		{"Operand Keyword Name", "b: CLS", &assembler.InvalidLabelError{}},
		{"Empty Label", `: CLS`, &assembler.UnexpectedCharacterError{}},
		{"Literal Label", `0x12: CLS`, &assembler.UnexpectedCharacterError{}},
	})
}

func TestDirectives(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "DB",
			Input:  `.DB 0xF0, 0b1001, #12, -1`,
			Output: []byte{0xF0, 0x09, 0x0C, 0xFF},
		},
		{
			Name:   "DB String",
			Input:  `.DB "HI\n", 0`,
			Output: []byte{'H', 'I', '\n', 0x00},
		},
		{
			Name:   "DB String With Delimiters",
			Input:  `.DB "a, b; c"`,
			Output: []byte("a, b; c"),
		},
		{
			Name:   "DW",
			Input:  `.DW 0x1234, -2`,
			Output: []byte{0x12, 0x34, 0xFF, 0xFE},
		},
		{
			Name:   "Bare Directives",
			Input:  "DB 0x01\nDW 0x0203\nORG 0x206\nDB 4",
			Output: []byte{0x01, 0x02, 0x03, 0x00, 0x00, 0x00, 0x04},
		},
		{
			Name:   "ORG",
			Input:  ".ORG 0x204\nCLS",
			Output: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0xE0},
		},
		{
			Name:   "ORG Current",
			Input:  "CLS\n.ORG 0x202\nRET",
			Output: []byte{0x00, 0xE0, 0x00, 0xEE},
		},
		{
			Name:   "END",
			Input:  "CLS\n.END\nRET\nthis is ignored",
			Output: []byte{0x00, 0xE0},
		},
	})

	testFail(t, []failCase{
		{"Unknown Directive", `.FOO 1`, &assembler.UnknownIdentifierError{}},
		{"DB Empty", `.DB`, &assembler.InvalidNumArgumentsError{}},
		{"DB Oversized", `.DB 256`, &assembler.OversizedLiteralError{}},
		{"DB Unterminated", `.DB "abc`, &assembler.InvalidStringError{}},
		{"DB Label", `.DB label`, &assembler.InvalidOperandError{}},
		{"DW Oversized", `.DW 0x10000`, &assembler.InvalidLiteralError{}},
		{"ORG Backwards", "CLS\nCLS\n.ORG 0x200", &assembler.InvalidOriginError{}},
		{"ORG Below Program", `.ORG 0x100`, &assembler.InvalidOriginError{}},
		{"ORG Beyond Program", `.ORG 0xF00`, &assembler.InvalidOriginError{}},
		{"ORG Count", `.ORG`, &assembler.InvalidNumArgumentsError{}},
		{"END Operands", `.END 1`, &assembler.InvalidNumArgumentsError{}},
	})
}

func TestComment(t *testing.T) {
	testSuccess(t, []testCase{
		{Name: "Line", Input: "; nothing here\nCLS", Output: []byte{0x00, 0xE0}},
		{Name: "Trailing", Input: "CLS ; clear", Output: []byte{0x00, 0xE0}},
		{Name: "Tight", Input: "LD V0, 0x01;set", Output: []byte{0x60, 0x01}},
		{Name: "Empty", Input: "\n\n;\n", Output: []byte{}},
	})
}

func TestProgramSize(t *testing.T) {
	limit := strings.Repeat("CLS\n", machine.MAX_PROGRAM_SIZE/2)

	result, errs := assembler.Assemble(strings.NewReader(limit), nil)
	assert.Empty(t, errs)
	assert.Equal(t, machine.MAX_PROGRAM_SIZE, len(result))

	testFail(t, []failCase{
		{"Instruction", limit + "CLS", &assembler.OversizedBinaryError{}},
		{"Data", ".ORG 0xEA0\n.DB 1", &assembler.OversizedBinaryError{}},
	})
}

func TestSymtable(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "Offsets And Labels",
			Input: strings.Join([]string{
				"start:",        // 0
				"    CLS",       // 7
				"loop: JP loop", // 15
				"; data",        // 29
				"font .DB 0xFF", // 36
				"alias:",        // 50
				"other: DW 1",   // 57
			}, "\n"),
			Output: []byte{0x00, 0xE0, 0x12, 0x02, 0xFF, 0x00, 0x01},
			SymTable: &assembler.SymTable{
				Symbols: map[uint16]int64{
					0x200: 7,
					0x202: 15,
					0x204: 36,
					0x205: 57,
				},
				Labels: map[uint16]string{
					0x200: "start",
					0x202: "loop",
					0x204: "font",
					0x205: "alias",
				},
			},
		},
	})
}

func TestSymtableEncoding(t *testing.T) {
	want := assembler.NewSymTable("/src/game.c8s")
	want.Symbols[0x200] = 12
	want.Labels[0x200] = "main"

	var buf bytes.Buffer
	assert.NoError(t, want.Encode(&buf))

	have, err := assembler.DecodeSymTable(&buf)
	assert.NoError(t, err)
	assert.Equal(t, want.Source, have.Source)
	assert.Equal(t, want.Symbols, have.Symbols)
	assert.Equal(t, want.Labels, have.Labels)

	_, err = assembler.DecodeSymTable(strings.NewReader("garbage"))
	assert.Error(t, err)

	assert.Equal(t, "roms/game.c8db", assembler.SymTablePath("roms/game.ch8"))
	assert.Equal(t, "game.c8db", assembler.SymTablePath("game"))
}

// Every 16 bit word disassembles to text that assembles back to itself.
func TestDisassembleRoundTrip(t *testing.T) {
	const chunk = machine.MAX_PROGRAM_SIZE / 2

	for start := 0; start <= 0xFFFF; start += chunk {
		rom := make([]byte, 0, machine.MAX_PROGRAM_SIZE)

		for word := start; word < start+chunk && word <= 0xFFFF; word++ {
			rom = append(rom, byte(word>>8), byte(word))
		}

		var listing bytes.Buffer
		assert.NoError(t, assembler.Disassemble(&listing, rom))

		result, errs := assembler.Assemble(&listing, nil)

		if len(errs) > 0 {
			t.Fatalf("Chunk %#04x failed to assemble: %s", start, errs[0])
		}

		if !bytes.Equal(rom, result) {
			t.Fatalf("Chunk %#04x did not round trip", start)
		}
	}
}

func TestDisassembleOddLength(t *testing.T) {
	rom := []byte{0x60, 0x01, 0xAB}

	var listing bytes.Buffer
	assert.NoError(t, assembler.Disassemble(&listing, rom))
	assert.Contains(t, listing.String(), "LD V0, 0x01")
	assert.Contains(t, listing.String(), ".DB 0xAB")

	result, errs := assembler.Assemble(&listing, nil)
	assert.Empty(t, errs)
	assert.Equal(t, rom, result)
}

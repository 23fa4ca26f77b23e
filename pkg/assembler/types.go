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
	"encoding/gob"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type TokenType uint
type DirectiveType uint

type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

type Token struct {
	Type     TokenType
	Position Cursor
	Value    string
}

// SymTable maps program addresses back to the byte offset of the source
// line that produced them.
type SymTable struct {
	Source  string
	Symbols map[uint16]int64
	Labels  map[uint16]string
}

func NewSymTable(source string) *SymTable {
	return &SymTable{
		Source:  source,
		Symbols: make(map[uint16]int64),
		Labels:  make(map[uint16]string),
	}
}

func (st *SymTable) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(st)
}

func DecodeSymTable(r io.Reader) (*SymTable, error) {
	var st SymTable

	if err := gob.NewDecoder(r).Decode(&st); err != nil {
		return nil, err
	}

	return &st, nil
}

// SymTablePath returns the symbol table file that sits next to binary.
func SymTablePath(binary string) string {
	return strings.TrimSuffix(binary, filepath.Ext(binary)) + SYMTABLE_EXT
}

type TokenError interface {
	GetPosition() Cursor
}

// GetPosition lets every error that embeds a Cursor satisfy TokenError.
func (c Cursor) GetPosition() Cursor {
	return c
}

func (c Cursor) String() string {
	return fmt.Sprintf("%02d:%02d", c.Line, c.Column)
}

func tokenTypeName(tokenType TokenType) string {
	switch tokenType {
	case TOKEN_IDENT:
		return "Identifier"
	case TOKEN_LABEL:
		return "Label"
	case TOKEN_DIRECTIVE:
		return "Directive"
	case TOKEN_STRING:
		return "String"
	case TOKEN_LITERAL:
		return "Literal"
	default:
		return "<invalid>"
	}
}

type InvalidOperandError struct {
	Cursor
	Required string
	Received string
}

func (err *InvalidOperandError) Error() string {
	return fmt.Sprintf("%s: Invalid operands\n\twant:%s\n\thave:%s", err.Cursor, err.Required, err.Received)
}

type InvalidNumArgumentsError struct {
	Cursor
	Required int
	Received int
}

func (err *InvalidNumArgumentsError) Error() string {
	return fmt.Sprintf("%s: Invalid number of arguments\n\twant:%d\n\thave:%d", err.Cursor, err.Required, err.Received)
}

type OversizedLiteralError struct {
	Cursor
	Required int
	Received int
}

func (err *OversizedLiteralError) Error() string {
	return fmt.Sprintf("%s: Literal exceeds allowed size\n\twant:%#x\n\thave:%#x", err.Cursor, err.Required, err.Received)
}

type InvalidOriginError struct {
	Cursor
	Required int
	Received int
}

func (err *InvalidOriginError) Error() string {
	return fmt.Sprintf(
		"%s: Origin outside program space\n\twant:%#04x-%#04x\n\thave:%#04x",
		err.Cursor, err.Required, PROGRAM_LIMIT, err.Received,
	)
}

type UnexpectedCharacterError struct {
	Cursor
	Received rune
}

func (err *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf("%s: Unexpected character %c", err.Cursor, err.Received)
}

type InvalidLiteralError struct{ Cursor }
type InvalidStringError struct{ Cursor }
type InvalidRegisterError struct{ Cursor }
type OversizedCharacterError struct{ Cursor }

func (err *InvalidLiteralError) Error() string     { return err.Cursor.String() + ": Invalid numeric literal" }
func (err *InvalidStringError) Error() string      { return err.Cursor.String() + ": Invalid string literal" }
func (err *InvalidRegisterError) Error() string    { return err.Cursor.String() + ": Invalid register identifier" }
func (err *OversizedCharacterError) Error() string { return err.Cursor.String() + ": Character exceeds ASCII limit" }

// Errors naming an offending label or identifier
type RedeclaredLabelError struct {
	Cursor
	Received string
}

type UnknownLabelError struct {
	Cursor
	Received string
}

type UnknownIdentifierError struct {
	Cursor
	Received string
}

type InvalidLabelError struct {
	Cursor
	Received string
}

func (err *RedeclaredLabelError) Error() string {
	return fmt.Sprintf("%s: Redeclaration of label '%s'", err.Cursor, err.Received)
}

func (err *UnknownLabelError) Error() string {
	return fmt.Sprintf("%s: Unknown label '%s'", err.Cursor, err.Received)
}

func (err *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("%s: Unknown identifier '%s'", err.Cursor, err.Received)
}

func (err *InvalidLabelError) Error() string {
	return fmt.Sprintf("%s: '%s' is reserved and cannot be used as a label", err.Cursor, err.Received)
}

// OversizedBinaryError has no position; it is raised by whichever line
// crosses the limit.
type OversizedBinaryError struct {
	Size  int
	Limit int
}

func (err *OversizedBinaryError) Error() string {
	return fmt.Sprintf("Binary exceeds allowed size\n\twant:%d\n\thave:%d", err.Limit, err.Size)
}

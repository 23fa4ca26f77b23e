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
	"strings"
	"unicode"

	"github.com/lassandro/gochip8/pkg/encoding"
)

func isWordChar(char rune) bool {
	switch {
	case unicode.IsLetter(char), unicode.IsDigit(char):
		return true
	case char == '_', char == '.', char == '#', char == '%', char == '-':
		return true
	case char == '[', char == ']':
		return true
	}

	return false
}

func isIdent(s string) bool {
	if strings.EqualFold(s, "[I]") {
		return true
	}

	for i, char := range s {
		if char == '_' || unicode.IsLetter(char) {
			continue
		}

		if i > 0 && unicode.IsDigit(char) {
			continue
		}

		return false
	}

	return len(s) > 0
}

// classify assigns a token type to a completed word. The returned index is
// the offset of the first offending character when no type fits.
func classify(word string) (TokenType, int) {
	switch {
	case strings.HasPrefix(word, "."):
		if isIdent(word[1:]) {
			return TOKEN_DIRECTIVE, -1
		}
	case encoding.IsLiteral(word):
		return TOKEN_LITERAL, -1
	case isIdent(word):
		return TOKEN_IDENT, -1
	}

	for i, char := range word {
		if i == 0 && char == '.' {
			continue
		}

		if char != '_' && !unicode.IsLetter(char) && !unicode.IsDigit(char) {
			return TOKEN_NONE, i
		}
	}

	return TOKEN_NONE, 0
}

// tokenize splits one source line into tokens. Commas and whitespace
// separate operands, ';' starts a comment and a trailing ':' marks a label.
func tokenize(line string, cursor Cursor) (tokens []Token, errs []error) {
	var builder strings.Builder
	var start int
	var inString, escaped bool

	position := func(column int, size int) Cursor {
		return Cursor{
			Line:     cursor.Line,
			Column:   column + 1,
			Byte:     cursor.LineByte + int64(column),
			Size:     int64(size),
			LineByte: cursor.LineByte,
		}
	}

	flush := func(label bool) {
		if builder.Len() == 0 {
			return
		}

		value := builder.String()
		builder.Reset()

		token := Token{Position: position(start, len(value)), Value: value}

		if strings.HasPrefix(value, "\"") {
			token.Type = TOKEN_STRING
		} else {
			tokenType, bad := classify(value)

			if tokenType == TOKEN_NONE {
				char := []rune(value[bad:])[0]
				errs = append(
					errs,
					&UnexpectedCharacterError{position(start+bad, 1), char},
				)
				return
			}

			token.Type = tokenType
		}

		if label {
			if token.Type != TOKEN_IDENT {
				errs = append(
					errs,
					&UnexpectedCharacterError{position(start+len(value), 1), ':'},
				)
				return
			}

			token.Type = TOKEN_LABEL
		}

		tokens = append(tokens, token)
	}

	for column, char := range line {
		if inString {
			builder.WriteRune(char)

			switch {
			case escaped:
				escaped = false
			case char == '\\':
				escaped = true
			case char == '"':
				inString = false
				flush(false)
			}

			continue
		}

		switch {
		case unicode.IsSpace(char), char == ',':
			flush(false)

		case char == ';':
			flush(false)
			return tokens, errs

		case char == ':':
			if builder.Len() == 0 {
				errs = append(errs, &UnexpectedCharacterError{position(column, 1), char})
			}

			flush(true)

		case char == '"':
			if builder.Len() > 0 {
				errs = append(errs, &UnexpectedCharacterError{position(column, 1), char})
				builder.Reset()
			}

			start = column
			inString = true
			builder.WriteRune(char)

		case char > unicode.MaxASCII:
			errs = append(errs, &OversizedCharacterError{position(column, 1)})

		case isWordChar(char):
			if builder.Len() == 0 {
				start = column
			}

			builder.WriteRune(char)

		default:
			errs = append(errs, &UnexpectedCharacterError{position(column, 1), char})
		}
	}

	if inString {
		errs = append(errs, &InvalidStringError{position(start, builder.Len())})
		return tokens, errs
	}

	flush(false)
	return tokens, errs
}

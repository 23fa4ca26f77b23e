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

package encoding

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidLiteral = errors.New("Invalid numeric literal")

// Decodes a hexidecimal string in the formats: 0xFFFF, xFFFF, 0xFF, xFF
func DecodeHex(s string) (uint16, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 || s[0] != '0' {
		return 0, errors.New("Invalid hex string")
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a binary string in the formats: 0b0110, b0110, %0110
func DecodeBinary(s string) (uint16, error) {
	switch {
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		s = s[2:]
	case strings.HasPrefix(s, "b"), strings.HasPrefix(s, "B"), strings.HasPrefix(s, "%"):
		s = s[1:]
	default:
		return 0, errors.New("Invalid binary string")
	}

	result, err := strconv.ParseUint(s, 2, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123, #-5, -5
func DecodeInt(s string) (int32, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 32)

	if err != nil {
		return 0, err
	}

	if result < -0x8000 || result > 0xFFFF {
		return 0, strconv.ErrRange
	}

	return int32(result), nil
}

// DecodeLiteral accepts any of the hex, binary or decimal formats.
func DecodeLiteral(s string) (int32, error) {
	if len(s) == 0 {
		return 0, ErrInvalidLiteral
	}

	if value, err := DecodeHex(s); err == nil {
		return int32(value), nil
	}

	if value, err := DecodeBinary(s); err == nil {
		return int32(value), nil
	}

	if value, err := DecodeInt(s); err == nil {
		return value, nil
	}

	return 0, ErrInvalidLiteral
}

// IsLiteral reports whether s starts like a numeric literal.
func IsLiteral(s string) bool {
	if len(s) == 0 {
		return false
	}

	switch c := s[0]; {
	case c >= '0' && c <= '9', c == '#', c == '%', c == '-':
		return true
	case (c == 'x' || c == 'X') && len(s) > 1 && isHexDigit(s[1]):
		return true
	case (c == 'b' || c == 'B') && len(s) > 1 && (s[1] == '0' || s[1] == '1'):
		return strings.Trim(s[1:], "01") == ""
	}

	return false
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

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

package encoding_test

import (
	"testing"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/retroenv/retrogolib/assert"
)

func TestDecodeLiteral(t *testing.T) {
	tests := []struct {
		input string
		value int32
		valid bool
	}{
		{"0x200", 0x200, true},
		{"x2A", 0x2A, true},
		{"0XFFFF", 0xFFFF, true},
		{"0x10000", 0, false},
		{"1x20", 0, false},
		{"0b10100101", 0xA5, true},
		{"b11", 3, true},
		{"%1000", 8, true},
		{"0b2", 0, false},
		{"#255", 255, true},
		{"4096", 4096, true},
		{"#-1", -1, true},
		{"-32768", -32768, true},
		{"-32769", 0, false},
		{"65536", 0, false},
		{"", 0, false},
		{"V0", 0, false},
		{"#", 0, false},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			value, err := encoding.DecodeLiteral(test.input)

			if !test.valid {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, test.value, value)
		})
	}
}

func TestDecodeHex(t *testing.T) {
	value, err := encoding.DecodeHex("xFF")
	assert.NoError(t, err)
	assert.Equal(t, uint16(0xFF), value)

	_, err = encoding.DecodeHex("255")
	assert.Error(t, err)

	_, err = encoding.DecodeHex("Ax12")
	assert.Error(t, err)
}

func TestIsLiteral(t *testing.T) {
	for _, s := range []string{"0x12", "x1F", "#3", "12", "%01", "b0101", "-4"} {
		assert.True(t, encoding.IsLiteral(s), s)
	}

	for _, s := range []string{"", "V0", "loop", "xyz", "build", "I", "B", "DT"} {
		assert.False(t, encoding.IsLiteral(s), s)
	}
}

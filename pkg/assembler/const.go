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

import "github.com/lassandro/gochip8/pkg/machine"

const (
	TOKEN_NONE TokenType = iota
	TOKEN_IDENT
	TOKEN_LABEL
	TOKEN_DIRECTIVE
	TOKEN_STRING
	TOKEN_LITERAL
)

const (
	DIRECTIVE_INVALID DirectiveType = iota
	DIRECTIVE_ORG
	DIRECTIVE_DB
	DIRECTIVE_DW
	DIRECTIVE_END
)

const (
	PROGRAM_ORIGIN = machine.MEMSPACE_PROGRAM
	PROGRAM_LIMIT  = machine.MEMSPACE_RESERVED
)

const SYMTABLE_EXT = ".c8db"

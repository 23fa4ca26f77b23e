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

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/internal/config"
	"github.com/lassandro/gochip8/pkg/assembler"
)

var helpvar bool
var debugvar bool
var disasmvar bool
var quietvar bool
var outvar string

const usage = "gochip8-asm [-debug] [-out outfile] filename\n" +
	"gochip8-asm -disassemble [-out outfile] rom.ch8"

const ROM_EXT = ".ch8"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Generates debugging information as a symbol table next to the "+
			"output file, with extension '"+assembler.SYMTABLE_EXT+"'",
	)
	flag.BoolVar(
		&disasmvar, "disassemble", false,
		"Writes the assembly listing of a ROM instead of assembling source",
	)
	flag.BoolVar(&quietvar, "q", false, "Only logs errors")
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.Parse()
}

// printDiagnostic shows err with the offending source line underlined.
func printDiagnostic(w io.Writer, prefix string, input io.ReadSeeker, err error) {
	tokenErr, ok := err.(assembler.TokenError)

	if !ok || input == nil {
		fmt.Fprintf(w, "%s %s\n", prefix, err)
		return
	}

	cursor := tokenErr.GetPosition()

	if _, err := input.Seek(cursor.LineByte, io.SeekStart); err != nil {
		fmt.Fprintf(w, "%s %s\n", prefix, err)
		return
	}

	line, _ := bufio.NewReader(input).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")

	column := int(cursor.Byte - cursor.LineByte)
	size := max(int(cursor.Size), 1)

	fmt.Fprintf(
		w, "%s %s\n%s\n\033[31m%s^%s\033[0m\n",
		prefix, err, line,
		strings.Repeat(" ", column), strings.Repeat("~", size-1),
	)
}

func disassemble(args []string, logger *log.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	rom, err := os.ReadFile(args[0])

	if err != nil {
		logger.Error("Error reading ROM", log.Err(err))
		return 1
	}

	var out io.Writer = os.Stdout

	if outvar != "" {
		file, err := os.Create(outvar)

		if err != nil {
			logger.Error("Error creating output file", log.Err(err))
			return 1
		}

		defer file.Close()
		out = file
	}

	writer := bufio.NewWriter(out)

	if err := assembler.Disassemble(writer, rom); err != nil {
		logger.Error("Error writing listing", log.Err(err))
		return 1
	}

	if err := writer.Flush(); err != nil {
		logger.Error("Error writing listing", log.Err(err))
		return 1
	}

	return 0
}

func gochip8_asm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	logger := config.CreateLogger(false, quietvar)
	args := flag.Args()

	if disasmvar {
		return disassemble(args, logger)
	}

	var infile string
	var input io.ReadSeeker
	var prefix string

	if stat, err := os.Stdin.Stat(); len(args) == 0 && err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		input = os.Stdin
		prefix = "\033[1m<stdin>:\033[0m"

		if outvar == "" {
			outvar = "out" + ROM_EXT
		}
	} else {
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, usage)
			return 1
		}

		file, err := os.Open(args[0])

		if err != nil {
			logger.Error("Error opening source", log.Err(err))
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			logger.Error("Error opening source", log.Err(err))
			return 1
		} else if stat.IsDir() {
			logger.Error("Not a valid CHIP-8 assembly file", log.String("path", filename))
			return 1
		}

		input = file
		infile = file.Name()
		prefix = fmt.Sprintf("\033[1m%s:\033[0m", filename)

		if outvar == "" {
			outvar = strings.TrimSuffix(filename, filepath.Ext(filename)) + ROM_EXT
		}
	}

	var symtable *assembler.SymTable

	if debugvar {
		source := ""

		if infile != "" {
			if abs, err := filepath.Abs(infile); err == nil {
				source = abs
			} else {
				logger.Warn("Unable to resolve source path", log.Err(err))
			}
		}

		symtable = assembler.NewSymTable(source)
	}

	result, errs := assembler.Assemble(input, symtable)

	if len(errs) > 0 {
		// Stdin cannot be rewound to quote the source line
		seeker := input
		if input == os.Stdin {
			seeker = nil
		}

		for _, err := range errs {
			printDiagnostic(os.Stderr, prefix, seeker, err)
		}

		return 1
	}

	if err := os.WriteFile(outvar, result, 0666); err != nil {
		logger.Error("Error writing output file", log.Err(err))
		return 1
	}

	if debugvar {
		filename := assembler.SymTablePath(outvar)
		file, err := os.Create(filename)

		if err != nil {
			logger.Error("Error creating symbol table", log.Err(err))
			return 1
		}

		defer file.Close()

		if err := symtable.Encode(file); err != nil {
			logger.Error("Error writing symbol table", log.Err(err))
			return 1
		}
	}

	logger.Info("Assembled ROM", log.String("path", outvar), log.Int("size", len(result)))
	return 0
}

func main() {
	os.Exit(gochip8_asm())
}

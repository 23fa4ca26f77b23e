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
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

const PROMPT = "\033[1;30m(dbg)\033[0m "

// How long a command waits for the engine to acknowledge it
const COMMAND_TIMEOUT = time.Second

type console struct {
	dbg    *debugger.Debugger
	out    io.Writer
	cancel context.CancelFunc

	// Serializes output between the prompt and the monitor
	mutex   sync.Mutex
	lastcmd []string
}

func newConsole(dbg *debugger.Debugger, out io.Writer, cancel context.CancelFunc) *console {
	return &console{dbg: dbg, out: out, cancel: cancel}
}

func (con *console) printf(format string, args ...any) {
	con.mutex.Lock()
	defer con.mutex.Unlock()
	fmt.Fprintf(con.out, format, args...)
}

// wait blocks until the engine has applied a request and returns the
// snapshot published after it.
func (con *console) wait(done <-chan struct{}) (machine.Snapshot, bool) {
	if done == nil {
		con.printf("Command queue full\n")
		return machine.Snapshot{}, false
	}

	if !debugger.Wait(done, COMMAND_TIMEOUT) {
		con.printf("Machine not responding\n")
		return machine.Snapshot{}, false
	}

	return con.dbg.Latest(), true
}

// address resolves a label or numeric literal.
func (con *console) address(arg string) (uint16, error) {
	if addr, ok := con.dbg.LookupLabel(arg); ok {
		return addr, nil
	}

	value, err := encoding.DecodeLiteral(arg)

	if err != nil {
		return 0, fmt.Errorf("'%s' is not a label or address", arg)
	}

	if value < 0 || int(value) >= machine.MEMORY_SIZE {
		return 0, fmt.Errorf("address 0x%04x out of range", value)
	}

	return uint16(value), nil
}

func parseCount(arg string) (uint16, error) {
	value, err := strconv.ParseUint(arg, 10, 16)

	if err != nil {
		return 0, err
	}

	return uint16(value), nil
}

// span parses the optional [addr|label] [#] arguments shared by the
// inspection commands. A lone decimal number is a count from pc.
func (con *console) span(args []string, pc, size uint16) (uint16, uint16, error) {
	if len(args) > 2 {
		return 0, 0, fmt.Errorf("too many arguments")
	}

	addr := pc

	if len(args) > 0 {
		if count, err := parseCount(args[0]); err == nil && len(args) == 1 {
			return pc, count, nil
		}

		var err error
		if addr, err = con.address(args[0]); err != nil {
			return 0, 0, err
		}
	}

	if len(args) > 1 {
		count, err := parseCount(args[1])

		if err != nil {
			return 0, 0, err
		}

		size = count
	}

	return addr, size, nil
}

func (con *console) debugBreak(args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x###|label]"

		if len(args) != 1 {
			con.printf("%s\n", usage)
			return
		}

		addr, err := con.address(args[0])

		if err != nil {
			con.printf("%s\n", err)
			return
		}

		if _, ok := con.wait(con.dbg.AddBreakpoint(addr)); ok {
			con.printf("Breakpoint added [0x%04x]\n", addr)
		}

	case "l", "ls", "list":
		snap := con.dbg.Latest()

		if len(snap.Breakpoints) == 0 {
			con.printf("No breakpoints\n")
			return
		}

		for i, addr := range snap.Breakpoints {
			con.printf("#%02d: 0x%04x\n", i, addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			con.printf("%s\n", usage)
			return
		}

		breakpoints := con.dbg.Latest().Breakpoints
		i, err := strconv.Atoi(args[0])

		if err != nil || i < 0 || i >= len(breakpoints) {
			con.printf("Invalid breakpoint number\n")
			return
		}

		if _, ok := con.wait(con.dbg.RemoveBreakpoint(breakpoints[i])); ok {
			con.printf("Breakpoint removed [0x%04x]\n", breakpoints[i])
		}

	case "clear":
		if _, ok := con.wait(con.dbg.ClearBreakpoints()); ok {
			con.printf("Breakpoints reset\n")
		}

	default:
		con.printf("break: '%s' is not a valid command\n%s\n", cmd, usage)
	}
}

func parseRegister(name string) (uint16, bool) {
	switch name = strings.ToUpper(name); {
	case name == "I":
		return debugger.REGISTER_I, true
	case name == "DT":
		return debugger.REGISTER_DT, true
	case len(name) == 2 && name[0] == 'V':
		reg, err := strconv.ParseUint(name[1:], 16, 8)
		return uint16(reg), err == nil
	}

	return 0, false
}

func (con *console) debugReg(args []string) {
	const usage = "register [V#|I|DT] [value]"

	snap := con.dbg.Latest()

	if len(args) > 0 {
		if len(args) != 2 {
			con.printf("%s\n", usage)
			return
		}

		reg, ok := parseRegister(args[0])

		if !ok {
			con.printf("Invalid register\n")
			return
		}

		value, err := encoding.DecodeLiteral(args[1])

		if err != nil || value < 0 {
			con.printf("Invalid value '%s'\n", args[1])
			return
		}

		if snap, ok = con.wait(con.dbg.SetRegister(reg, uint16(value))); !ok {
			return
		}
	}

	con.mutex.Lock()
	debugger.PrintRegisters(con.out, &snap)
	con.mutex.Unlock()
}

func (con *console) debugMemory(args []string) {
	snap := con.dbg.Latest()
	addr, size, err := con.span(args, snap.Program, 8)

	if err != nil {
		con.printf("%s\nmemory [0x###|label|#] [#]\n", err)
		return
	}

	con.mutex.Lock()
	debugger.PrintMem(con.out, &snap.Memory, addr, size)
	con.mutex.Unlock()
}

func (con *console) debugSet(args []string) {
	const usage = "set [0x###|label] [value]"

	if len(args) != 2 {
		con.printf("%s\n", usage)
		return
	}

	addr, err := con.address(args[0])

	if err != nil {
		con.printf("%s\n", err)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil || value < -0x80 || value > 0xFF {
		con.printf("Invalid byte '%s'\n", args[1])
		return
	}

	snap, ok := con.wait(con.dbg.SetMemory(addr, uint8(value)))

	if !ok {
		return
	}

	con.mutex.Lock()
	debugger.PrintMem(con.out, &snap.Memory, addr, 1)
	con.mutex.Unlock()
}

func (con *console) debugDisassemble(args []string) {
	snap := con.dbg.Latest()
	addr, size, err := con.span(args, snap.Program, 8)

	if err != nil {
		con.printf("%s\ndisassemble [0x###|label|#] [#]\n", err)
		return
	}

	con.mutex.Lock()
	debugger.PrintDisassembly(con.out, &snap, addr, size)
	con.mutex.Unlock()
}

func (con *console) debugSource(args []string) {
	snap := con.dbg.Latest()
	addr, size, err := con.span(args, snap.Program, 3)

	if err != nil {
		con.printf("%s\nsource [0x###|label|#] [#]\n", err)
		return
	}

	con.mutex.Lock()
	con.dbg.PrintSource(con.out, addr, size)
	con.mutex.Unlock()
}

func (con *console) debugJump(args []string) {
	const usage = "jump [0x###|label]"

	if len(args) != 1 {
		con.printf("%s\n", usage)
		return
	}

	addr, err := con.address(args[0])

	if err != nil {
		con.printf("%s\n", err)
		return
	}

	if _, ok := con.wait(con.dbg.Jump(addr)); ok {
		con.printf("\033[1mPC:\033[0m 0x%04x\n", addr)
	}
}

func (con *console) debugNext(args []string) {
	count := 1

	if len(args) > 0 {
		value, err := strconv.Atoi(args[0])

		if err != nil || value < 1 {
			con.printf("next [#]\n")
			return
		}

		count = value
	}

	if done := con.dbg.Step(count); done == nil {
		con.printf("Command queue full\n")
	} else if debugger.Wait(done, COMMAND_TIMEOUT+time.Duration(count)*time.Millisecond*10) {
		snap := con.dbg.Latest()
		con.printIn(func(w io.Writer) {
			debugger.PrintDisassembly(w, &snap, snap.Program, 1)
		})
	} else {
		con.printf("Machine not responding\n")
	}
}

func (con *console) printIn(fn func(w io.Writer)) {
	con.mutex.Lock()
	defer con.mutex.Unlock()
	fn(con.out)
}

// exec runs one command line and reports whether the console should exit.
func (con *console) exec(line string) bool {
	args := strings.Fields(line)

	if len(args) == 0 {
		if len(con.lastcmd) == 0 {
			return false
		}
		args = con.lastcmd
	} else {
		con.lastcmd = slices.Clone(args)
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "b", "bp", "break", "breakpoint":
		con.debugBreak(args)

	case "r", "reg", "register", "registers":
		con.debugReg(args)

	case "st", "stack":
		snap := con.dbg.Latest()
		con.printIn(func(w io.Writer) { debugger.PrintStack(w, &snap) })

	case "s", "src", "source":
		con.debugSource(args)

	case "d", "dis", "disassemble":
		con.debugDisassemble(args)

	case "l", "label", "labels":
		con.printIn(con.dbg.PrintLabels)

	case "j", "jmp", "jump":
		con.debugJump(args)

	case "m", "mem", "memory":
		con.debugMemory(args)

	case "set":
		con.debugSet(args)

	case "p", "pause":
		if snap, ok := con.wait(con.dbg.Pause()); ok {
			con.printf("Paused at 0x%04x\n", snap.Program)
		}

	case "c", "continue":
		con.wait(con.dbg.Resume())

	case "n", "next":
		con.debugNext(args)

	case "reset":
		if _, ok := con.wait(con.dbg.Reset()); ok {
			con.printf("Machine reset\n")
		}

	case "reload":
		if _, ok := con.wait(con.dbg.Reload()); ok {
			con.printf("ROM reloaded\n")
		}

	case "clear":
		con.printf("\033[H\033[2J")

	case "q", "quit", "exit":
		return true

	default:
		con.printf("error: '%s' is not a valid command\n", cmd)
	}

	return false
}

func (con *console) repl(in io.Reader) {
	defer con.cancel()

	scanner := bufio.NewScanner(in)

	for {
		con.printf(PROMPT)

		if !scanner.Scan() {
			con.printf("\n")
			return
		}

		if con.exec(scanner.Text()) {
			return
		}
	}
}

// monitor reports breakpoint stops and faults as the engine publishes them.
func (con *console) monitor(ctx context.Context) {
	watch := con.dbg.Watch()
	defer watch.Close()

	paused := true
	faulted := false

	for {
		select {
		case <-ctx.Done():
			return

		case snap := <-watch.C():
			if snap.Fault != "" && !faulted {
				faulted = true
				con.printf("\nProgram halted: %s\n%s", snap.Fault, PROMPT)
			}

			if snap.Paused && !paused && slices.Contains(snap.Breakpoints, snap.Program) {
				con.printIn(func(w io.Writer) {
					fmt.Fprintf(w, "\nProgram stopped at 0x%04x\n", snap.Program)

					if con.dbg.SymTable != nil && con.dbg.Source != nil {
						con.dbg.PrintSource(w, snap.Program, 8)
					} else {
						debugger.PrintDisassembly(w, &snap, snap.Program, 4)
					}

					fmt.Fprint(w, PROMPT)
				})
			}

			paused = snap.Paused
		}
	}
}

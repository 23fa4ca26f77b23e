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

package debugger

import (
	"io"
	"sync"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
)

type CommandType uint

const (
	CMD_PAUSE CommandType = iota
	CMD_RESUME
	CMD_STEP
	CMD_RESET
	CMD_RELOAD
	CMD_BREAK_ADD
	CMD_BREAK_REMOVE
	CMD_BREAK_CLEAR
	CMD_JUMP
	CMD_SET_REGISTER
	CMD_SET_MEMORY
)

// Register selectors for CMD_SET_REGISTER beyond V0..VF.
const (
	REGISTER_I  = machine.REGISTER_COUNT
	REGISTER_DT = machine.REGISTER_COUNT + 1
)

const DEFAULT_COMMAND_QUEUE = 64

// Command is a request for the engine. Addr is used by the breakpoint,
// jump and set commands (a register selector for CMD_SET_REGISTER), Value by
// the set commands and Count by CMD_STEP. Done, when set, is closed with the first
// snapshot published after the command took effect.
type Command struct {
	Type  CommandType
	Addr  uint16
	Value uint16
	Count int
	Done  chan struct{}
}

type stepCredit struct {
	remaining int
	done      chan struct{}
}

type Debugger struct {
	Source   io.ReadSeeker
	SymTable *assembler.SymTable

	commands chan Command
	logger   *log.Logger

	// Owned by the engine goroutine
	paused      bool
	steps       []stepCredit
	breakpoints map[uint16]struct{}
	skipping    bool
	skipAddr    uint16
	closers     []chan struct{}

	mutex    sync.Mutex
	watchers map[*Watch]struct{}
	latest   machine.Snapshot
}

// Watch receives snapshots with latest-wins delivery. A slow reader only
// ever misses intermediate snapshots.
type Watch struct {
	dbg       *Debugger
	snapshots chan machine.Snapshot
}

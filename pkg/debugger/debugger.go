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
	"sort"
	"time"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
)

func New(logger *log.Logger) *Debugger {
	return &Debugger{
		commands:    make(chan Command, DEFAULT_COMMAND_QUEUE),
		logger:      logger,
		breakpoints: make(map[uint16]struct{}),
		watchers:    make(map[*Watch]struct{}),
	}
}

// Send queues cmd without blocking. It reports false if the queue is full.
func (dbg *Debugger) Send(cmd Command) bool {
	select {
	case dbg.commands <- cmd:
		return true
	default:
		return false
	}
}

func (dbg *Debugger) request(cmd Command) <-chan struct{} {
	cmd.Done = make(chan struct{})

	if !dbg.Send(cmd) {
		return nil
	}

	return cmd.Done
}

func (dbg *Debugger) Pause() <-chan struct{} {
	return dbg.request(Command{Type: CMD_PAUSE})
}

func (dbg *Debugger) Resume() <-chan struct{} {
	return dbg.request(Command{Type: CMD_RESUME})
}

// Step pauses the machine and grants count ticks of execution.
func (dbg *Debugger) Step(count int) <-chan struct{} {
	return dbg.request(Command{Type: CMD_STEP, Count: count})
}

func (dbg *Debugger) Reset() <-chan struct{} {
	return dbg.request(Command{Type: CMD_RESET})
}

func (dbg *Debugger) Reload() <-chan struct{} {
	return dbg.request(Command{Type: CMD_RELOAD})
}

func (dbg *Debugger) AddBreakpoint(addr uint16) <-chan struct{} {
	return dbg.request(Command{Type: CMD_BREAK_ADD, Addr: addr})
}

func (dbg *Debugger) RemoveBreakpoint(addr uint16) <-chan struct{} {
	return dbg.request(Command{Type: CMD_BREAK_REMOVE, Addr: addr})
}

func (dbg *Debugger) ClearBreakpoints() <-chan struct{} {
	return dbg.request(Command{Type: CMD_BREAK_CLEAR})
}

func (dbg *Debugger) Jump(addr uint16) <-chan struct{} {
	return dbg.request(Command{Type: CMD_JUMP, Addr: addr})
}

// SetRegister writes V0..VF, or I and DT through REGISTER_I and REGISTER_DT.
func (dbg *Debugger) SetRegister(reg uint16, value uint16) <-chan struct{} {
	return dbg.request(Command{Type: CMD_SET_REGISTER, Addr: reg, Value: value})
}

func (dbg *Debugger) SetMemory(addr uint16, value uint8) <-chan struct{} {
	return dbg.request(Command{Type: CMD_SET_MEMORY, Addr: addr, Value: uint16(value)})
}

// Wait blocks until done is closed or timeout elapses. A nil done (a
// dropped request) never completes.
func Wait(done <-chan struct{}, timeout time.Duration) bool {
	if done == nil {
		return false
	}

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (dbg *Debugger) cancelSteps() {
	for _, credit := range dbg.steps {
		dbg.release(credit.done)
	}
	dbg.steps = dbg.steps[:0]
}

func (dbg *Debugger) release(done chan struct{}) {
	if done != nil {
		dbg.closers = append(dbg.closers, done)
	}
}

func (dbg *Debugger) apply(cmd Command, mc *machine.Machine) (reset, reload bool) {
	switch cmd.Type {
	case CMD_PAUSE:
		dbg.paused = true
		dbg.cancelSteps()

	case CMD_RESUME:
		dbg.paused = false
		dbg.cancelSteps()
		dbg.skipping = true
		dbg.skipAddr = mc.State.Program

	case CMD_STEP:
		count := cmd.Count
		if count < 1 {
			count = 1
		}

		dbg.paused = true
		dbg.steps = append(dbg.steps, stepCredit{count, cmd.Done})
		dbg.skipping = true
		dbg.skipAddr = mc.State.Program
		return false, false

	case CMD_RESET:
		reset = true

	case CMD_RELOAD:
		reload = true

	case CMD_BREAK_ADD:
		dbg.breakpoints[cmd.Addr] = struct{}{}

	case CMD_BREAK_REMOVE:
		delete(dbg.breakpoints, cmd.Addr)

	case CMD_BREAK_CLEAR:
		dbg.breakpoints = make(map[uint16]struct{})

	case CMD_JUMP:
		mc.State.Program = cmd.Addr & 0x0FFF
		mc.State.Awaiting = false

	case CMD_SET_REGISTER:
		switch {
		case cmd.Addr < machine.REGISTER_COUNT:
			mc.State.Registers[cmd.Addr] = uint8(cmd.Value)
		case cmd.Addr == REGISTER_I:
			mc.State.Index = cmd.Value
		case cmd.Addr == REGISTER_DT:
			mc.State.Delay = uint8(cmd.Value)
		}

	case CMD_SET_MEMORY:
		if int(cmd.Addr) < machine.MEMORY_SIZE {
			mc.State.Memory[cmd.Addr] = uint8(cmd.Value)
		}
	}

	dbg.release(cmd.Done)
	return reset, reload
}

// Poll drains every pending command and reports whether the engine should
// execute this tick. Any number of resets queued since the last poll are
// applied once.
func (dbg *Debugger) Poll(mc *machine.Machine) (bool, error) {
	reset, reload := false, false

drain:
	for {
		select {
		case cmd := <-dbg.commands:
			r, l := dbg.apply(cmd, mc)
			reset = reset || r
			reload = reload || l
		default:
			break drain
		}
	}

	if reload {
		if err := mc.Reload(); err != nil {
			return false, err
		}
	} else if reset {
		mc.Reset()
	}

	// A halted machine publishes nothing from Tick
	if mc.Fault() != nil {
		dbg.Publish(mc.Snapshot())
		return false, nil
	}

	pc := mc.State.Program
	run := !dbg.paused || len(dbg.steps) > 0
	skip := dbg.skipping && dbg.skipAddr == pc
	dbg.skipping = false

	if _, hit := dbg.breakpoints[pc]; run && hit && !skip && !mc.State.Awaiting {
		if dbg.logger != nil {
			dbg.logger.Info("Breakpoint hit", log.Hex("pc", pc))
		}

		dbg.paused = true
		dbg.cancelSteps()
		return false, nil
	}

	if run && dbg.paused {
		head := &dbg.steps[0]
		head.remaining--

		if head.remaining == 0 {
			dbg.release(head.done)
			dbg.steps = dbg.steps[1:]
		}
	}

	return run, nil
}

func (dbg *Debugger) sortedBreakpoints() []uint16 {
	addrs := make([]uint16, 0, len(dbg.breakpoints))
	for addr := range dbg.breakpoints {
		addrs = append(addrs, addr)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Publish stamps the debugger state onto snapshot and fans it out to every
// watcher, then releases commands waiting on it.
func (dbg *Debugger) Publish(snapshot machine.Snapshot) {
	snapshot.Paused = dbg.paused
	snapshot.Breakpoints = dbg.sortedBreakpoints()

	dbg.mutex.Lock()
	dbg.latest = snapshot

	for watch := range dbg.watchers {
		watch.offer(snapshot)
	}
	dbg.mutex.Unlock()

	for _, done := range dbg.closers {
		close(done)
	}
	dbg.closers = dbg.closers[:0]
}

// Latest returns the most recently published snapshot.
func (dbg *Debugger) Latest() machine.Snapshot {
	dbg.mutex.Lock()
	defer dbg.mutex.Unlock()
	return dbg.latest
}

func (dbg *Debugger) Watch() *Watch {
	watch := &Watch{dbg: dbg, snapshots: make(chan machine.Snapshot, 1)}

	dbg.mutex.Lock()
	dbg.watchers[watch] = struct{}{}
	dbg.mutex.Unlock()

	return watch
}

func (watch *Watch) offer(snapshot machine.Snapshot) {
	select {
	case <-watch.snapshots:
	default:
	}

	watch.snapshots <- snapshot
}

func (watch *Watch) C() <-chan machine.Snapshot {
	return watch.snapshots
}

func (watch *Watch) Close() {
	watch.dbg.mutex.Lock()
	delete(watch.dbg.watchers, watch)
	watch.dbg.mutex.Unlock()
}

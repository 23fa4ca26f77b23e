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

package machine_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/assert"
)

type testDebugger struct {
	run       bool
	snapshots []machine.Snapshot
}

func (dbg *testDebugger) Poll(mc *machine.Machine) (bool, error) {
	return dbg.run, nil
}

func (dbg *testDebugger) Publish(snapshot machine.Snapshot) {
	dbg.snapshots = append(dbg.snapshots, snapshot)
}

func TestTick(t *testing.T) {
	t.Run("Scenario", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.Load([]byte{
			0x6A, 0x2A, // LD VA, 0x2A
			0x3A, 0x2A, // SE VA, 0x2A
			0x00, 0x00, // skipped
			0xD0, 0x15, // DRW V0, V1, 5
			0x00, 0xE0, // CLS
			0x1A, 0xBC, // JP 0xABC
		}))

		assert.NoError(t, mc.Tick())
		assert.Equal(t, uint8(0x2A), mc.State.Registers[0xA])
		assert.Equal(t, uint16(0x202), mc.State.Program)

		assert.NoError(t, mc.Tick())
		assert.Equal(t, uint16(0x206), mc.State.Program)

		assert.NoError(t, mc.Tick())
		assert.True(t, rig.screen.At(0, 0))

		assert.NoError(t, mc.Tick())
		assert.False(t, rig.screen.At(0, 0))

		assert.NoError(t, mc.Tick())
		assert.Equal(t, uint16(0x0ABC), mc.State.Program)

		mc.Reset()
		assert.Equal(t, uint16(0x200), mc.State.Program)
		assert.Equal(t, [16]uint8{}, mc.State.Registers)
		assert.Equal(t, uint8(0x6A), mc.State.Memory[0x200])
	})

	t.Run("Delay Timer", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.Load([]byte{
			0x60, 0x02, // LD V0, 2
			0xF0, 0x15, // LD DT, V0
			0x12, 0x04, // JP 0x204
		}))

		assert.NoError(t, mc.Tick())
		assert.NoError(t, mc.Tick())
		assert.Equal(t, uint8(1), mc.State.Delay)
		assert.NoError(t, mc.Tick())
		assert.Equal(t, uint8(0), mc.State.Delay)
		assert.NoError(t, mc.Tick())
		assert.Equal(t, uint8(0), mc.State.Delay)
	})

	t.Run("Snapshot Precedes Delay Decrement", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc
		dbg := &testDebugger{run: true}
		mc.Debugger = dbg

		assert.NoError(t, mc.Load([]byte{
			0x60, 0x03, // LD V0, 3
			0xF0, 0x15, // LD DT, V0
			0x12, 0x04, // JP 0x204
		}))

		assert.NoError(t, mc.Tick())
		assert.NoError(t, mc.Tick())
		assert.Equal(t, uint8(3), dbg.snapshots[1].Delay)
		assert.Equal(t, uint8(2), mc.State.Delay)

		assert.NoError(t, mc.Tick())
		assert.Equal(t, uint8(2), dbg.snapshots[2].Delay)
		assert.Equal(t, uint8(1), mc.State.Delay)
	})

	t.Run("Delay Timer Runs While Awaiting Key", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.Load([]byte{0xF1, 0x0A}))
		mc.State.Delay = 3

		for i := 0; i < 3; i++ {
			assert.NoError(t, mc.Tick())
		}

		assert.True(t, mc.State.Awaiting)
		assert.Equal(t, uint8(0), mc.State.Delay)

		rig.queue.Press(0x7)
		assert.NoError(t, mc.Tick())
		assert.False(t, mc.State.Awaiting)
		assert.Equal(t, uint8(0x7), mc.State.Registers[1])
		assert.Equal(t, uint16(0x202), mc.State.Program)
	})

	t.Run("Quit Key", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.Load([]byte{0x12, 0x00}))
		rig.queue.Quit()

		err := mc.Tick()
		assert.True(t, errors.Is(err, machine.ErrQuit))
	})

	t.Run("Paused Tick Publishes Frozen State", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc
		dbg := &testDebugger{run: false}
		mc.Debugger = dbg

		assert.NoError(t, mc.Load([]byte{0x60, 0x01}))
		mc.State.Delay = 5

		assert.NoError(t, mc.Tick())
		assert.NoError(t, mc.Tick())

		assert.Equal(t, 2, len(dbg.snapshots))
		assert.Equal(t, uint16(0x200), mc.State.Program)
		assert.Equal(t, uint8(5), mc.State.Delay)
		assert.Equal(t, uint8(0), mc.State.Registers[0])

		dbg.run = true
		assert.NoError(t, mc.Tick())

		last := dbg.snapshots[len(dbg.snapshots)-1]
		assert.Equal(t, uint16(0x202), last.Program)
		assert.Equal(t, uint8(1), last.Registers[0])
		assert.Equal(t, machine.Opcode(0x6001), last.Opcode)
	})
}

func TestFaults(t *testing.T) {
	t.Run("Unknown Opcode Halts", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.Load([]byte{0x51, 0x21}))

		err := mc.Tick()
		var fault *machine.UnknownOpcodeFault
		assert.True(t, errors.As(err, &fault))
		assert.Equal(t, uint16(0x200), fault.Addr)
		assert.Equal(t, machine.Opcode(0x5121), fault.Opcode)
		assert.Equal(t, uint16(0x200), mc.State.Program)

		// Halted machines stay halted
		assert.Equal(t, err, mc.Tick())
		assert.Equal(t, uint16(0x200), mc.State.Program)
		assert.True(t, machine.IsFault(mc.Fault()))

		mc.Reset()
		assert.Nil(t, mc.Fault())
	})

	t.Run("Zero Word Is Unknown", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		err := mc.Step()
		var fault *machine.UnknownOpcodeFault
		assert.True(t, errors.As(err, &fault))
	})

	t.Run("Stack Overflow", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		// CALL 0x200 recurses forever
		assert.NoError(t, mc.Load([]byte{0x22, 0x00}))

		for i := 0; i < machine.DefaultSettings.StackSize; i++ {
			assert.NoError(t, mc.Tick())
		}

		err := mc.Tick()
		var fault *machine.StackOverflowFault
		assert.True(t, errors.As(err, &fault))
		assert.Equal(t, 16, fault.Depth)
		assert.Equal(t, uint16(0x200), mc.State.Program)
	})

	t.Run("Stack Underflow", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.Load([]byte{0x00, 0xEE}))

		err := mc.Tick()
		var fault *machine.StackUnderflowFault
		assert.True(t, errors.As(err, &fault))
		assert.Equal(t, uint16(0x200), mc.State.Program)
	})

	t.Run("Bounds On Store", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.Load([]byte{0xF3, 0x55}))
		mc.State.Index = 0x0FFE

		err := mc.Tick()
		var fault *machine.BoundsFault
		assert.True(t, errors.As(err, &fault))
		assert.Equal(t, uint16(0x0FFE), fault.Addr)
		assert.Equal(t, 4, fault.Length)
		assert.Equal(t, uint8(0), mc.State.Memory[0x0FFE])
	})

	t.Run("Bounds On Fetch", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		mc.State.Program = 0x0FFF

		err := mc.Step()
		var fault *machine.BoundsFault
		assert.True(t, errors.As(err, &fault))
	})

	t.Run("Rom Too Large", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.Load(make([]byte, machine.MAX_PROGRAM_SIZE)))

		err := mc.Load(make([]byte, machine.MAX_PROGRAM_SIZE+1))
		var fault *machine.RomTooLargeFault
		assert.True(t, errors.As(err, &fault))
		assert.Equal(t, 3232, fault.Limit)
	})
}

func TestLifecycle(t *testing.T) {
	t.Run("Reload Restores Program", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc

		assert.NoError(t, mc.LoadBin(bytes.NewReader([]byte{
			0x60, 0x42, // LD V0, 0x42
			0xA2, 0x00, // LD I, 0x200
			0xF0, 0x55, // LD [I], V0
		})))

		for i := 0; i < 3; i++ {
			assert.NoError(t, mc.Tick())
		}

		assert.Equal(t, uint8(0x42), mc.State.Memory[0x200])

		mc.Reset()
		assert.Equal(t, uint8(0x42), mc.State.Memory[0x200])

		assert.NoError(t, mc.Reload())
		assert.Equal(t, uint8(0x60), mc.State.Memory[0x200])
		assert.Equal(t, uint8(0xF0), mc.State.Memory[machine.MEMSPACE_FONT])
		assert.Equal(t, uint16(0x200), mc.State.Program)
	})

	t.Run("Settings", func(t *testing.T) {
		settings := machine.DefaultSettings
		assert.NoError(t, settings.Validate())

		settings.TickRate = 0
		assert.Error(t, settings.Validate())

		settings = machine.DefaultSettings
		settings.StackSize = 0
		_, err := machine.New(settings, nil, nil)
		assert.Error(t, err)
	})

	t.Run("Headless Without Devices", func(t *testing.T) {
		mc, err := machine.New(machine.DefaultSettings, nil, nil)
		assert.NoError(t, err)

		assert.NoError(t, mc.Load([]byte{
			0xD0, 0x15, // DRW V0, V1, 5
			0xE0, 0x9E, // SKP V0
			0xF0, 0x18, // LD ST, V0
			0x00, 0xE0, // CLS
		}))

		for i := 0; i < 4; i++ {
			assert.NoError(t, mc.Tick())
		}

		assert.Equal(t, uint16(0x208), mc.State.Program)
	})

	t.Run("Run Stops On Cancel", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc
		mc.Settings.TickRate = 1000

		assert.NoError(t, mc.Load([]byte{0x12, 0x00}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		assert.NoError(t, mc.Run(ctx))
	})

	t.Run("Run Returns Fault", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc
		mc.Settings.TickRate = 1000

		assert.NoError(t, mc.Load([]byte{0x00, 0xEE}))

		err := mc.Run(context.Background())
		assert.True(t, machine.IsFault(err))
	})

	t.Run("Run Returns On Quit", func(t *testing.T) {
		rig := newTestRig(t)
		mc := rig.mc
		mc.Settings.TickRate = 1000

		assert.NoError(t, mc.Load([]byte{0x12, 0x00}))
		rig.queue.Quit()

		assert.NoError(t, mc.Run(context.Background()))
	})
}

func TestSnapshot(t *testing.T) {
	rig := newTestRig(t)
	mc := rig.mc

	assert.NoError(t, mc.Load([]byte{0x6A, 0x2A, 0x23, 0x00}))
	assert.NoError(t, mc.Tick())
	assert.NoError(t, mc.Tick())

	snap := mc.Snapshot()
	assert.Equal(t, "0x2300 - CALL 0x0300", snap.Instruction())
	assert.Equal(t, "0x0300 | 768", snap.FormatProgram())
	assert.Equal(t, []uint16{0x204}, snap.Stack)

	// Snapshots are copies
	snap.Stack[0] = 0
	snap.Memory[0x200] = 0
	snap.Registers[0xA] = 0
	assert.Equal(t, uint16(0x204), mc.State.Stack[0])
	assert.Equal(t, uint8(0x6A), mc.State.Memory[0x200])
	assert.Equal(t, uint8(0x2A), mc.State.Registers[0xA])

	registers := mc.Snapshot()
	want := "       0       1       2       3       4       5       6       7" +
		"       8       9       A       B       C       D       E       F\n" +
		"       0       0       0       0       0       0       0       0" +
		"       0       0      42       0       0       0       0       0\n" +
		"  0x0000  0x0000  0x0000  0x0000  0x0000  0x0000  0x0000  0x0000" +
		"  0x0000  0x0000  0x002A  0x0000  0x0000  0x0000  0x0000  0x0000"
	assert.Equal(t, want, registers.FormatRegisters())
}

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

package machine

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"time"

	"github.com/retroenv/retrogolib/log"
)

const (
	MIN_TICK_RATE = 1
	MAX_TICK_RATE = 2000
	MAX_STACK     = 0x100
)

var DefaultSettings = Settings{
	StackSize: 16,
	TickRate:  300,
}

func (s *Settings) Validate() error {
	if s.StackSize < 1 || s.StackSize > MAX_STACK {
		return &InvalidSettingError{"stack size", s.StackSize, 1, MAX_STACK}
	}

	if s.TickRate < MIN_TICK_RATE || s.TickRate > MAX_TICK_RATE {
		return &InvalidSettingError{
			"tick rate", s.TickRate, MIN_TICK_RATE, MAX_TICK_RATE,
		}
	}

	return nil
}

func (s *Settings) Interval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}

func New(settings Settings, devices *DeviceHandler, logger *log.Logger) (*Machine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	mc := &Machine{
		Devices:  devices,
		Settings: settings,
		logger:   logger,
	}

	mc.State.Reset()
	mc.State.Memory.LoadFont()
	return mc, nil
}

func (mc *MachineState) Reset() {
	for i := range mc.Registers {
		mc.Registers[i] = 0
	}

	mc.Index = 0
	mc.Delay = 0
	mc.Program = MEMSPACE_PROGRAM
	mc.Stack = mc.Stack[:0]
	mc.Opcode = 0
	mc.Awaiting = false
	mc.AwaitReg = 0
}

// Reset restores the startup register state and clears the display. Memory,
// including the loaded program, is left untouched.
func (mc *Machine) Reset() {
	mc.State.Reset()
	mc.fault = nil

	if display := mc.display(); display != nil {
		display.Clear()
		display.Publish()
	}

	if mc.logger != nil {
		mc.logger.Info("Machine reset")
	}
}

// Reload clears memory, reinstalls the font and the last loaded program, then
// resets.
func (mc *Machine) Reload() error {
	mc.State.Memory.Clear()
	mc.State.Memory.LoadFont()

	if err := mc.State.Memory.LoadProgram(mc.rom); err != nil {
		return err
	}

	mc.Reset()
	return nil
}

func (mc *Machine) Load(rom []byte) error {
	if len(rom) > MAX_PROGRAM_SIZE {
		return &RomTooLargeFault{Size: len(rom), Limit: MAX_PROGRAM_SIZE}
	}

	mc.rom = append([]byte(nil), rom...)

	if mc.logger != nil {
		mc.logger.Debug("Loading program", log.Int("size", len(rom)))
	}

	return mc.Reload()
}

func (mc *Machine) LoadBin(reader io.Reader) error {
	rom, err := io.ReadAll(io.LimitReader(reader, int64(MAX_PROGRAM_SIZE)+1))

	if err != nil {
		return err
	}

	return mc.Load(rom)
}

// Fault returns the error that halted the machine, if any.
func (mc *Machine) Fault() error {
	return mc.fault
}

func (mc *Machine) random() uint8 {
	if mc.Random != nil {
		return mc.Random()
	}
	return uint8(rand.IntN(0x100))
}

// Step executes a single instruction, or completes a pending key wait.
func (mc *Machine) Step() error {
	if mc.State.Awaiting {
		if keypad := mc.keypad(); keypad != nil {
			if key, ok := keypad.Lowest(); ok {
				mc.State.Registers[mc.State.AwaitReg] = key
				mc.State.Awaiting = false
				mc.State.Program += 2
			}
		}
		return nil
	}

	pc := mc.State.Program
	word, err := mc.State.Memory.Word(pc)

	if err != nil {
		return err
	}

	op := Opcode(word)
	mc.State.Opcode = op

	inst, err := Decode(op)

	if err != nil {
		var unknown *UnknownOpcodeFault
		if errors.As(err, &unknown) {
			unknown.Addr = pc
		}
		return err
	}

	mc.State.Program += 2

	if err := inst.exec(mc, op); err != nil {
		mc.State.Program = pc
		return err
	}

	mc.cycles++
	return nil
}

func (mc *Machine) halt(err error) error {
	mc.fault = err

	if mc.logger != nil {
		mc.logger.Warn("Machine halted",
			log.Hex("pc", mc.State.Program),
			log.Err(err))
	}

	mc.publish()
	return err
}

// Tick runs one scheduler period: debugger poll, input drain, one
// instruction, publication and the delay timer. A halted machine keeps returning
// its fault until reset.
func (mc *Machine) Tick() error {
	run := true

	if mc.Debugger != nil {
		var err error
		if run, err = mc.Debugger.Poll(mc); err != nil {
			return mc.halt(err)
		}
	}

	if mc.fault != nil {
		return mc.fault
	}

	mc.ticks++

	if keypad := mc.keypad(); keypad != nil && keypad.Poll() {
		return ErrQuit
	}

	if run {
		if err := mc.Step(); err != nil {
			return mc.halt(err)
		}

		if display := mc.display(); display != nil {
			display.Publish()
		}
	}

	mc.publish()

	// The snapshot carries DT as the executed instruction left it
	if run && mc.State.Delay > 0 {
		mc.State.Delay--
	}

	return nil
}

func (mc *Machine) publish() {
	if mc.Debugger != nil {
		mc.Debugger.Publish(mc.Snapshot())
	}
}

// Run ticks the machine at the configured rate until ctx is cancelled, the
// quit key is pressed or a fault halts it.
func (mc *Machine) Run(ctx context.Context) error {
	if err := mc.Settings.Validate(); err != nil {
		return err
	}

	ticker := time.NewTicker(mc.Settings.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := mc.Tick(); err != nil {
				if errors.Is(err, ErrQuit) {
					if mc.logger != nil {
						mc.logger.Info("Quit requested")
					}
					return nil
				}
				return err
			}
		}
	}
}

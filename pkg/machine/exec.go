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
	"github.com/retroenv/retrogolib/log"
)

// Every handler runs with Program already advanced past the instruction.

func (mc *Machine) display() Display {
	if mc.Devices == nil {
		return nil
	}
	return mc.Devices.Display
}

func (mc *Machine) keypad() Keypad {
	if mc.Devices == nil {
		return nil
	}
	return mc.Devices.Keypad
}

func (mc *Machine) setFlag(set bool) {
	if set {
		mc.State.Registers[FLAG_REGISTER] = 1
	} else {
		mc.State.Registers[FLAG_REGISTER] = 0
	}
}

func (mc *Machine) skipIf(cond bool) {
	if cond {
		mc.State.Program += 2
	}
}

// CLS  |0000    |0000    |1110    |0000    | Clear the display
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opCLS(op Opcode) error {
	if display := mc.display(); display != nil {
		display.Clear()
	}
	return nil
}

// RET  |0000    |0000    |1110    |1110    | Return from subroutine
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opRET(op Opcode) error {
	depth := len(mc.State.Stack)

	if depth == 0 {
		return &StackUnderflowFault{Addr: mc.State.Program - 2}
	}

	mc.State.Program = mc.State.Stack[depth-1]
	mc.State.Stack = mc.State.Stack[:depth-1]
	return nil
}

// SYS  |0000    |addr                    | Native routine (ignored)
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSYS(op Opcode) error {
	if mc.logger != nil {
		mc.logger.Warn("Ignoring native routine call",
			log.Hex("pc", mc.State.Program-2),
			log.Hex("addr", op.NNN()))
	}
	return nil
}

// JP   |0001    |addr                    | Jump
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opJP(op Opcode) error {
	mc.State.Program = op.NNN()
	return nil
}

// CALL |0010    |addr                    | Call subroutine
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opCALL(op Opcode) error {
	if len(mc.State.Stack) >= mc.Settings.StackSize {
		return &StackOverflowFault{
			Addr:  mc.State.Program - 2,
			Depth: mc.Settings.StackSize,
		}
	}

	mc.State.Stack = append(mc.State.Stack, mc.State.Program)
	mc.State.Program = op.NNN()
	return nil
}

// SE   |0011    |Vx     |byte            | Skip if Vx == byte
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSEB(op Opcode) error {
	mc.skipIf(mc.State.Registers[op.X()] == op.KK())
	return nil
}

// SNE  |0100    |Vx     |byte            | Skip if Vx != byte
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSNEB(op Opcode) error {
	mc.skipIf(mc.State.Registers[op.X()] != op.KK())
	return nil
}

// SE   |0101    |Vx     |Vy     |0000    | Skip if Vx == Vy
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSER(op Opcode) error {
	mc.skipIf(mc.State.Registers[op.X()] == mc.State.Registers[op.Y()])
	return nil
}

// LD   |0110    |Vx     |byte            | Load immediate
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDB(op Opcode) error {
	mc.State.Registers[op.X()] = op.KK()
	return nil
}

// ADD  |0111    |Vx     |byte            | Add immediate, no carry
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opADDB(op Opcode) error {
	mc.State.Registers[op.X()] += op.KK()
	return nil
}

// LD   |1000    |Vx     |Vy     |0000    | Vx = Vy
// OR   |1000    |Vx     |Vy     |0001    | Vx = Vx | Vy
// AND  |1000    |Vx     |Vy     |0010    | Vx = Vx & Vy
// XOR  |1000    |Vx     |Vy     |0011    | Vx = Vx ^ Vy
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDR(op Opcode) error {
	mc.State.Registers[op.X()] = mc.State.Registers[op.Y()]
	return nil
}

func (mc *Machine) opOR(op Opcode) error {
	mc.State.Registers[op.X()] |= mc.State.Registers[op.Y()]
	return nil
}

func (mc *Machine) opAND(op Opcode) error {
	mc.State.Registers[op.X()] &= mc.State.Registers[op.Y()]
	return nil
}

func (mc *Machine) opXOR(op Opcode) error {
	mc.State.Registers[op.X()] ^= mc.State.Registers[op.Y()]
	return nil
}

// The arithmetic group writes VF before the result, so a VF destination
// keeps the result and loses the flag.

// ADD  |1000    |Vx     |Vy     |0100    | Vx = Vx + Vy, VF = carry
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opADDR(op Opcode) error {
	vx := mc.State.Registers[op.X()]
	vy := mc.State.Registers[op.Y()]

	mc.setFlag(uint16(vx)+uint16(vy) > 0xFF)
	mc.State.Registers[op.X()] = vx + vy
	return nil
}

// SUB  |1000    |Vx     |Vy     |0101    | Vx = Vx - Vy, VF = NOT borrow
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSUB(op Opcode) error {
	vx := mc.State.Registers[op.X()]
	vy := mc.State.Registers[op.Y()]

	mc.setFlag(vx > vy)
	mc.State.Registers[op.X()] = vx - vy
	return nil
}

// SHR  |1000    |Vx     |Vy     |0110    | Vx = Vx >> 1, VF = shifted bit
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSHR(op Opcode) error {
	vx := mc.State.Registers[op.X()]

	mc.setFlag(vx&0x01 != 0)
	mc.State.Registers[op.X()] = vx >> 1
	return nil
}

// SUBN |1000    |Vx     |Vy     |0111    | Vx = Vy - Vx, VF = NOT borrow
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSUBN(op Opcode) error {
	vx := mc.State.Registers[op.X()]
	vy := mc.State.Registers[op.Y()]

	mc.setFlag(vy > vx)
	mc.State.Registers[op.X()] = vy - vx
	return nil
}

// SHL  |1000    |Vx     |Vy     |1110    | Vx = Vx << 1, VF = shifted bit
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSHL(op Opcode) error {
	vx := mc.State.Registers[op.X()]

	mc.setFlag(vx&0x80 != 0)
	mc.State.Registers[op.X()] = vx << 1
	return nil
}

// SNE  |1001    |Vx     |Vy     |0000    | Skip if Vx != Vy
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSNER(op Opcode) error {
	mc.skipIf(mc.State.Registers[op.X()] != mc.State.Registers[op.Y()])
	return nil
}

// LD   |1010    |addr                    | I = addr
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDI(op Opcode) error {
	mc.State.Index = op.NNN()
	return nil
}

// JP   |1011    |addr                    | Jump to addr + V0
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opJPV(op Opcode) error {
	mc.State.Program = op.NNN() + uint16(mc.State.Registers[0])
	return nil
}

// RND  |1100    |Vx     |byte            | Vx = random & byte
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opRND(op Opcode) error {
	mc.State.Registers[op.X()] = mc.random() & op.KK()
	return nil
}

// DRW  |1101    |Vx     |Vy     |n       | Draw n-byte sprite, VF = collision
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opDRW(op Opcode) error {
	sprite, err := mc.State.Memory.Read(mc.State.Index, int(op.N()))

	if err != nil {
		return err
	}

	collision := false

	if display := mc.display(); display != nil {
		collision = display.Blit(
			mc.State.Registers[op.X()],
			mc.State.Registers[op.Y()],
			sprite,
		)
	}

	mc.setFlag(collision)
	return nil
}

// SKP  |1110    |Vx     |1001    |1110    | Skip if key Vx pressed
// SKNP |1110    |Vx     |1010    |0001    | Skip if key Vx not pressed
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSKP(op Opcode) error {
	mc.skipIf(mc.pressed(mc.State.Registers[op.X()]))
	return nil
}

func (mc *Machine) opSKNP(op Opcode) error {
	mc.skipIf(!mc.pressed(mc.State.Registers[op.X()]))
	return nil
}

func (mc *Machine) pressed(key uint8) bool {
	if keypad := mc.keypad(); keypad != nil {
		return keypad.Pressed(key)
	}
	return false
}

// LD   |1111    |Vx     |0000    |0111    | Vx = DT
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDVDT(op Opcode) error {
	mc.State.Registers[op.X()] = mc.State.Delay
	return nil
}

// LD   |1111    |Vx     |0000    |1010    | Wait for key, Vx = key
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDK(op Opcode) error {
	// Program stays on this instruction until a key arrives
	mc.State.Program -= 2
	mc.State.Awaiting = true
	mc.State.AwaitReg = op.X()
	return nil
}

// LD   |1111    |Vx     |0001    |0101    | DT = Vx
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDDT(op Opcode) error {
	mc.State.Delay = mc.State.Registers[op.X()]
	return nil
}

// LD   |1111    |Vx     |0001    |1000    | ST = Vx
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDST(op Opcode) error {
	if mc.Devices != nil && mc.Devices.Sound != nil {
		mc.Devices.Sound.Trigger(mc.State.Registers[op.X()])
	}
	return nil
}

// ADD  |1111    |Vx     |0001    |1110    | I = I + Vx
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opADDI(op Opcode) error {
	mc.State.Index += uint16(mc.State.Registers[op.X()])
	return nil
}

// LD   |1111    |Vx     |0010    |1001    | I = glyph address of Vx
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDF(op Opcode) error {
	mc.State.Index = MEMSPACE_FONT +
		uint16(mc.State.Registers[op.X()])*FONT_GLYPH_SIZE
	return nil
}

// LD   |1111    |Vx     |0011    |0011    | Store BCD of Vx at I..I+2
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLDBCD(op Opcode) error {
	value := mc.State.Registers[op.X()]

	return mc.State.Memory.WriteBytes(mc.State.Index, []byte{
		value / 100,
		(value / 10) % 10,
		value % 10,
	})
}

// LD   |1111    |Vx     |0101    |0101    | Store V0..Vx at I
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opSTORE(op Opcode) error {
	return mc.State.Memory.WriteBytes(
		mc.State.Index, mc.State.Registers[:int(op.X())+1],
	)
}

// LD   |1111    |Vx     |0110    |0101    | Load V0..Vx from I
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func (mc *Machine) opLOAD(op Opcode) error {
	values, err := mc.State.Memory.Read(mc.State.Index, int(op.X())+1)

	if err != nil {
		return err
	}

	copy(mc.State.Registers[:], values)
	return nil
}

package vip8

import "crypto/rand"

// execute applies the state transition of one decoded instruction.
//
// The switch is exhaustive over OpKind. Side effects are applied within
// the single-threaded execution of the instruction; no effect is ever
// observable as partially applied by the driving loop.
func (cpu *Cpu) execute(ins Instruction) error {
	x, y := ins.X, ins.Y

	switch ins.Op {
	case OpSys:
		// Only used on the old computers on which Chip-8 was originally
		// implemented. Ignored by modern interpreters.
		if cpu.MachineRoutineInterpreter != nil {
			return cpu.MachineRoutineInterpreter(ins.Word, cpu)
		}

	case OpCls:
		cpu.clearScreen()
		cpu.isScreenDirty = true

	case OpRet:
		if cpu.Sp == 0 {
			return ErrStackUnderflow
		}
		cpu.Sp--
		cpu.Pc = cpu.Stack[cpu.Sp]

	case OpJp:
		cpu.Pc = ins.NNN

	case OpCall:
		if cpu.Sp > 15 {
			return ErrStackOverflow
		}
		cpu.Stack[cpu.Sp] = cpu.Pc
		cpu.Sp++

		cpu.Pc = ins.NNN

	case OpSeVxByte:
		if cpu.V[x] == ins.KK {
			cpu.Pc += 2
		}

	case OpSneVxByte:
		if cpu.V[x] != ins.KK {
			cpu.Pc += 2
		}

	case OpSeVxVy:
		if cpu.V[x] == cpu.V[y] {
			cpu.Pc += 2
		}

	case OpLdVxByte:
		cpu.V[x] = ins.KK

	case OpAddVxByte:
		// No carry on the immediate form
		cpu.V[x] = cpu.V[x] + ins.KK

	case OpLdVxVy:
		cpu.V[x] = cpu.V[y]

	case OpOr:
		cpu.V[x] |= cpu.V[y]

	case OpAnd:
		cpu.V[x] &= cpu.V[y]

	case OpXor:
		cpu.V[x] ^= cpu.V[y]

	case OpAddVxVy:
		// VF is written last so that Vx == VF still leaves the carry
		r := uint16(cpu.V[x]) + uint16(cpu.V[y])
		cpu.V[x] = byte(r & 0x00FF)
		cpu.V[0xF] = byte(r >> 8)

	case OpSub:
		// VF = NOT borrow
		noBorrow := cpu.V[x] >= cpu.V[y]
		cpu.V[x] = cpu.V[x] - cpu.V[y]
		cpu.V[0xF] = bool2byte(noBorrow)

	case OpShr:
		carry := cpu.V[x] & 0b00000001
		cpu.V[x] = cpu.V[x] >> 1
		cpu.V[0xF] = carry

	case OpSubn:
		noBorrow := cpu.V[y] >= cpu.V[x]
		cpu.V[x] = cpu.V[y] - cpu.V[x]
		cpu.V[0xF] = bool2byte(noBorrow)

	case OpShl:
		carry := (cpu.V[x] & 0b10000000) >> 7
		cpu.V[x] = cpu.V[x] << 1
		cpu.V[0xF] = carry

	case OpSneVxVy:
		if cpu.V[x] != cpu.V[y] {
			cpu.Pc += 2
		}

	case OpLdI:
		cpu.I = ins.NNN

	case OpJpV0:
		cpu.Pc = uint16(cpu.V[0]) + ins.NNN

	case OpRnd:
		buff := [1]byte{}
		if _, err := rand.Read(buff[:]); err != nil {
			return err
		}

		cpu.V[x] = buff[0] & ins.KK

	case OpDrw:
		if ins.N > 0 {
			if err := cpu.Memory.checkReadRange(cpu.I, uint16(ins.N)); err != nil {
				return err
			}
		}
		cpu.V[0xF] = 0
		for i := byte(0); i < ins.N; i++ {
			cpu.V[0xF] |= bool2byte(cpu.blitSprite(cpu.V[x], cpu.V[y]+i, cpu.Memory[cpu.I+uint16(i)]))
		}
		cpu.isScreenDirty = true

	case OpSkp:
		if cpu.Keyboard.IsPressed(cpu.V[x]) {
			cpu.Pc += 2
		}

	case OpSknp:
		if !cpu.Keyboard.IsPressed(cpu.V[x]) {
			cpu.Pc += 2
		}

	case OpLdVxDt:
		cpu.V[x] = cpu.Dt

	case OpLdVxKey:
		// Blocking without suspension: while no key is down the PC is
		// rolled back onto this instruction, so the wait re-executes on
		// every cycle with no state beyond the PC itself.
		if k, pressed := cpu.Keyboard.GetPressed(); pressed {
			cpu.V[x] = k
		} else {
			cpu.Pc -= 2
		}

	case OpLdDtVx:
		cpu.Dt = cpu.V[x]

	case OpLdStVx:
		cpu.St = cpu.V[x]

	case OpAddIVx:
		// I is left unmasked; out-of-range values fault on use
		cpu.I = cpu.I + uint16(cpu.V[x])

	case OpLdFVx:
		cpu.I = uint16(cpu.V[x]&0x0F) * fontHeight

	case OpLdBVx:
		if err := cpu.Memory.checkWriteRange(cpu.I, 3); err != nil {
			return err
		}
		v := cpu.V[x]
		cpu.Memory[cpu.I+0] = v / 100
		cpu.Memory[cpu.I+1] = (v % 100) / 10
		cpu.Memory[cpu.I+2] = v % 10

	case OpLdIVx:
		if err := cpu.Memory.checkWriteRange(cpu.I, uint16(x)+1); err != nil {
			return err
		}
		for i := uint16(0); i <= uint16(x); i++ {
			cpu.Memory[cpu.I+i] = cpu.V[i]
		}

	case OpLdVxI:
		if err := cpu.Memory.checkReadRange(cpu.I, uint16(x)+1); err != nil {
			return err
		}
		for i := uint16(0); i <= uint16(x); i++ {
			cpu.V[i] = cpu.Memory[cpu.I+i]
		}
	}

	return nil
}

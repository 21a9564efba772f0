package vip8

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// lookupOpcode finds the opcode definition matching w, the same
// first-nibble mask/value scan a disassembler uses.
func lookupOpcode(w uint16) (chip8.Opcode, bool) {
	firstNibble := (w & 0xF000) >> 12
	for _, op := range chip8.Opcodes[int(firstNibble)] {
		if op.Info.Mask&w == op.Info.Value {
			return op, true
		}
	}

	return chip8.Opcode{}, false
}

// Disassemble renders an opcode as mnemonic and operands, for traces
// and the debugger. Patterns outside the instruction grammar render as
// a data word.
func Disassemble(opCode uint16) string {
	ins, err := Decode(opCode)
	op, ok := lookupOpcode(opCode)
	if err != nil || !ok || op.Instruction == nil {
		return fmt.Sprintf(".word 0x%04X", opCode)
	}

	name := op.Instruction.Name
	operands := formatOperands(ins)
	if operands == "" {
		return name
	}

	return name + " " + operands
}

func formatOperands(ins Instruction) string {
	switch ins.Op {
	case OpCls, OpRet:
		return ""
	case OpSys, OpJp, OpCall:
		return fmt.Sprintf("0x%03X", ins.NNN)
	case OpSeVxByte, OpSneVxByte, OpLdVxByte, OpAddVxByte, OpRnd:
		return fmt.Sprintf("v%X, 0x%02X", ins.X, ins.KK)
	case OpSeVxVy, OpSneVxVy, OpLdVxVy, OpOr, OpAnd, OpXor, OpAddVxVy, OpSub, OpSubn:
		return fmt.Sprintf("v%X, v%X", ins.X, ins.Y)
	case OpShr, OpShl, OpSkp, OpSknp:
		return fmt.Sprintf("v%X", ins.X)
	case OpLdI:
		return fmt.Sprintf("i, 0x%03X", ins.NNN)
	case OpJpV0:
		return fmt.Sprintf("v0, 0x%03X", ins.NNN)
	case OpDrw:
		return fmt.Sprintf("v%X, v%X, 0x%X", ins.X, ins.Y, ins.N)
	case OpLdVxDt:
		return fmt.Sprintf("v%X, dt", ins.X)
	case OpLdVxKey:
		return fmt.Sprintf("v%X, k", ins.X)
	case OpLdDtVx:
		return fmt.Sprintf("dt, v%X", ins.X)
	case OpLdStVx:
		return fmt.Sprintf("st, v%X", ins.X)
	case OpAddIVx:
		return fmt.Sprintf("i, v%X", ins.X)
	case OpLdFVx:
		return fmt.Sprintf("f, v%X", ins.X)
	case OpLdBVx:
		return fmt.Sprintf("b, v%X", ins.X)
	case OpLdIVx:
		return fmt.Sprintf("[i], v%X", ins.X)
	case OpLdVxI:
		return fmt.Sprintf("v%X, [i]", ins.X)
	}

	return ""
}

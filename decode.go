package vip8

// OpKind identifies one of the 35 defined CHIP-8 instructions.
type OpKind byte

const (
	// OpSys :: 0nnn - jump to a machine code routine at nnn
	OpSys OpKind = iota
	// OpCls :: 00E0 - clear the display
	OpCls
	// OpRet :: 00EE - return from a subroutine
	OpRet
	// OpJp :: 1nnn - jump to nnn
	OpJp
	// OpCall :: 2nnn - call subroutine at nnn
	OpCall
	// OpSeVxByte :: 3xkk - skip next instruction if Vx == kk
	OpSeVxByte
	// OpSneVxByte :: 4xkk - skip next instruction if Vx != kk
	OpSneVxByte
	// OpSeVxVy :: 5xy0 - skip next instruction if Vx == Vy
	OpSeVxVy
	// OpLdVxByte :: 6xkk - set Vx = kk
	OpLdVxByte
	// OpAddVxByte :: 7xkk - set Vx = Vx + kk (no carry)
	OpAddVxByte
	// OpLdVxVy :: 8xy0 - set Vx = Vy
	OpLdVxVy
	// OpOr :: 8xy1 - set Vx = Vx OR Vy
	OpOr
	// OpAnd :: 8xy2 - set Vx = Vx AND Vy
	OpAnd
	// OpXor :: 8xy3 - set Vx = Vx XOR Vy
	OpXor
	// OpAddVxVy :: 8xy4 - set Vx = Vx + Vy, VF = carry
	OpAddVxVy
	// OpSub :: 8xy5 - set Vx = Vx - Vy, VF = NOT borrow
	OpSub
	// OpShr :: 8xy6 - set Vx = Vx >> 1, VF = bit shifted out
	OpShr
	// OpSubn :: 8xy7 - set Vx = Vy - Vx, VF = NOT borrow
	OpSubn
	// OpShl :: 8xyE - set Vx = Vx << 1, VF = bit shifted out
	OpShl
	// OpSneVxVy :: 9xy0 - skip next instruction if Vx != Vy
	OpSneVxVy
	// OpLdI :: Annn - set I = nnn
	OpLdI
	// OpJpV0 :: Bnnn - jump to nnn + V0
	OpJpV0
	// OpRnd :: Cxkk - set Vx = random byte AND kk
	OpRnd
	// OpDrw :: Dxyn - draw n-byte sprite from I at (Vx, Vy), VF = collision
	OpDrw
	// OpSkp :: Ex9E - skip next instruction if key Vx is pressed
	OpSkp
	// OpSknp :: ExA1 - skip next instruction if key Vx is not pressed
	OpSknp
	// OpLdVxDt :: Fx07 - set Vx = delay timer
	OpLdVxDt
	// OpLdVxKey :: Fx0A - wait for a key press, store the key in Vx
	OpLdVxKey
	// OpLdDtVx :: Fx15 - set delay timer = Vx
	OpLdDtVx
	// OpLdStVx :: Fx18 - set sound timer = Vx
	OpLdStVx
	// OpAddIVx :: Fx1E - set I = I + Vx
	OpAddIVx
	// OpLdFVx :: Fx29 - set I = address of the font sprite for digit Vx
	OpLdFVx
	// OpLdBVx :: Fx33 - store BCD of Vx at I, I+1, I+2
	OpLdBVx
	// OpLdIVx :: Fx55 - store V0..Vx in memory starting at I
	OpLdIVx
	// OpLdVxI :: Fx65 - load V0..Vx from memory starting at I
	OpLdVxI
)

// Instruction is a decoded opcode: the kind plus every operand field the
// 16-bit word can carry. Only the fields the kind uses are meaningful.
type Instruction struct {
	Op OpKind
	// Word is the raw 16-bit opcode
	Word uint16
	// X is the register index in bits 8-11
	X byte
	// Y is the register index in bits 4-7
	Y byte
	// N is the low nibble
	N byte
	// KK is the low byte
	KK byte
	// NNN is the low 12 bits, an address
	NNN uint16
}

// Decode maps a 16-bit opcode to an Instruction. It is a pure function:
// no machine state is read or written. Bit patterns outside the defined
// grammar yield an ErrUnknownOpCode with a zero Pc; the caller knows the
// fetch address.
func Decode(opCode uint16) (Instruction, error) {
	ins := Instruction{
		Word: opCode,
		X:    byte((opCode & 0x0F00) >> 8),
		Y:    byte((opCode & 0x00F0) >> 4),
		N:    byte(opCode & 0x000F),
		KK:   byte(opCode & 0x00FF),
		NNN:  opCode & 0x0FFF,
	}

	switch opCode & 0xF000 {
	case 0x0000:
		switch opCode {
		case 0x00E0:
			ins.Op = OpCls
		case 0x00EE:
			ins.Op = OpRet
		default:
			ins.Op = OpSys
		}

	case 0x1000:
		ins.Op = OpJp
	case 0x2000:
		ins.Op = OpCall
	case 0x3000:
		ins.Op = OpSeVxByte
	case 0x4000:
		ins.Op = OpSneVxByte

	case 0x5000:
		if ins.N != 0 {
			return ins, ErrUnknownOpCode{OpCode: opCode}
		}
		ins.Op = OpSeVxVy

	case 0x6000:
		ins.Op = OpLdVxByte
	case 0x7000:
		ins.Op = OpAddVxByte

	case 0x8000:
		switch ins.N {
		case 0x0:
			ins.Op = OpLdVxVy
		case 0x1:
			ins.Op = OpOr
		case 0x2:
			ins.Op = OpAnd
		case 0x3:
			ins.Op = OpXor
		case 0x4:
			ins.Op = OpAddVxVy
		case 0x5:
			ins.Op = OpSub
		case 0x6:
			ins.Op = OpShr
		case 0x7:
			ins.Op = OpSubn
		case 0xE:
			ins.Op = OpShl
		default:
			return ins, ErrUnknownOpCode{OpCode: opCode}
		}

	case 0x9000:
		if ins.N != 0 {
			return ins, ErrUnknownOpCode{OpCode: opCode}
		}
		ins.Op = OpSneVxVy

	case 0xA000:
		ins.Op = OpLdI
	case 0xB000:
		ins.Op = OpJpV0
	case 0xC000:
		ins.Op = OpRnd
	case 0xD000:
		ins.Op = OpDrw

	case 0xE000:
		switch ins.KK {
		case 0x9E:
			ins.Op = OpSkp
		case 0xA1:
			ins.Op = OpSknp
		default:
			return ins, ErrUnknownOpCode{OpCode: opCode}
		}

	case 0xF000:
		switch ins.KK {
		case 0x07:
			ins.Op = OpLdVxDt
		case 0x0A:
			ins.Op = OpLdVxKey
		case 0x15:
			ins.Op = OpLdDtVx
		case 0x18:
			ins.Op = OpLdStVx
		case 0x1E:
			ins.Op = OpAddIVx
		case 0x29:
			ins.Op = OpLdFVx
		case 0x33:
			ins.Op = OpLdBVx
		case 0x55:
			ins.Op = OpLdIVx
		case 0x65:
			ins.Op = OpLdVxI
		default:
			return ins, ErrUnknownOpCode{OpCode: opCode}
		}
	}

	return ins, nil
}

package vip8

import (
	"errors"
	"fmt"
)

var ErrCpuIsNotBooted = errors.New("the CPU has not been booted properly")

var ErrStackUnderflow = errors.New("stack underflow: try to pop an empty stack")
var ErrStackOverflow = errors.New("stack overflow: try to push to a full stack")

var ErrProgramDoesNotFitIntoMemory = errors.New("the program does not fit into memory")

// ErrUnknownOpCode reports a bit pattern that matches none of the 35
// defined instructions. It is the only recoverable execution error: the
// PC has already advanced past the offending word, so the caller may log
// it and keep running.
type ErrUnknownOpCode struct {
	OpCode uint16
	Pc     uint16
}

func (err ErrUnknownOpCode) Error() string {
	return fmt.Sprintf("unknown opcode=%04X at PC=0x%03X", err.OpCode, err.Pc)
}

// ErrAddressOutOfBounds reports a fetch or memory operand outside
// 0x000-0xFFF. Fatal: execution cannot safely continue.
type ErrAddressOutOfBounds struct {
	Addr uint16
}

func (err ErrAddressOutOfBounds) Error() string {
	return fmt.Sprintf("address 0x%04X is outside of memory", err.Addr)
}

// ErrWriteProtected reports a write into the interpreter region
// (0x000-0x1FF) after initialization. Fatal.
type ErrWriteProtected struct {
	Addr uint16
}

func (err ErrWriteProtected) Error() string {
	return fmt.Sprintf("address 0x%04X is in the write-protected interpreter region", err.Addr)
}

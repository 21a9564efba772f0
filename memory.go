package vip8

import (
	"fmt"
	"strings"
)

const startOfProgram = 0x200

const MEMORY_SIZE = 4096

// MaxProgramSize is the number of bytes available to a loaded program.
const MaxProgramSize = MEMORY_SIZE - startOfProgram

// Memory is the 4096-byte address space of the machine. The region below
// startOfProgram belongs to the interpreter and holds the font sprites;
// it is readable but write-protected after initialization.
type Memory [MEMORY_SIZE]byte

// NewMemory creates a memory with the font sprites loaded
func NewMemory() *Memory {
	m := Memory([MEMORY_SIZE]byte{})
	loadCharactersInto(&m)

	return &m
}

func (mem Memory) Clone() *Memory {
	m := Memory([MEMORY_SIZE]byte{})
	copy(m[:], mem[:])

	return &m
}

// ReadByte returns the byte at addr
func (mem *Memory) ReadByte(addr uint16) (byte, error) {
	if addr >= MEMORY_SIZE {
		return 0, ErrAddressOutOfBounds{Addr: addr}
	}

	return mem[addr], nil
}

// ReadWord returns the big-endian 16-bit word at addr, addr+1
func (mem *Memory) ReadWord(addr uint16) (uint16, error) {
	// >= MEMORY_SIZE-1 instead of addr+1 >= MEMORY_SIZE: the addition
	// wraps for addr 0xFFFF
	if addr >= MEMORY_SIZE-1 {
		return 0, ErrAddressOutOfBounds{Addr: addr}
	}

	return uint16(mem[addr])<<8 | uint16(mem[addr+1]), nil
}

// WriteByte writes b at addr. Writes below the start-of-program address
// fail: that region belongs to the interpreter.
func (mem *Memory) WriteByte(addr uint16, b byte) error {
	if addr >= MEMORY_SIZE {
		return ErrAddressOutOfBounds{Addr: addr}
	}
	if addr < startOfProgram {
		return ErrWriteProtected{Addr: addr}
	}

	mem[addr] = b

	return nil
}

// checkReadRange verifies that addrs addr..addr+n-1 are readable.
// Multi-byte instructions validate their whole range up front so that a
// fault never leaves a partially applied effect behind.
func (mem *Memory) checkReadRange(addr, n uint16) error {
	last := addr + n - 1
	if last >= MEMORY_SIZE || last < addr {
		return ErrAddressOutOfBounds{Addr: last}
	}

	return nil
}

// checkWriteRange verifies that addrs addr..addr+n-1 are writable.
func (mem *Memory) checkWriteRange(addr, n uint16) error {
	if err := mem.checkReadRange(addr, n); err != nil {
		return err
	}
	if addr < startOfProgram {
		return ErrWriteProtected{Addr: addr}
	}

	return nil
}

// Reset re-zeros the whole memory and re-loads the font sprites
func (mem *Memory) Reset() {
	for i := range mem {
		mem[i] = 0
	}
	loadCharactersInto(mem)
}

// LoadProgram copies the program into memory starting at the
// start-of-program address. The load is all-or-nothing: on error the
// memory is untouched.
func (mem *Memory) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("loading %d bytes: %w", len(program), ErrProgramDoesNotFitIntoMemory)
	}

	mem.Reset()
	copy(mem[startOfProgram:], program)

	return nil
}

func (mem Memory) String() string {
	sb := strings.Builder{}

	sb.WriteString("[ ")
	for _, b := range mem[:startOfProgram] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]\n")
	sb.WriteString("[ ")
	for _, b := range mem[startOfProgram:] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]")

	return sb.String()
}

// fontHeight is the size in bytes of one hexadecimal digit sprite
const fontHeight = 5

func loadCharactersInto(mem *Memory) {
	copy(mem[:], []byte{
		// 0
		0xF0, 0x90, 0x90, 0x90, 0xF0,
		// 1
		0x20, 0x60, 0x20, 0x20, 0x70,
		// 2
		0xF0, 0x10, 0xF0, 0x80, 0xF0,
		// 3
		0xF0, 0x10, 0xF0, 0x10, 0xF0,
		// 4
		0x90, 0x90, 0xF0, 0x10, 0x10,
		// 5
		0xF0, 0x80, 0xF0, 0x10, 0xF0,
		// 6
		0xF0, 0x80, 0xF0, 0x90, 0xF0,
		// 7
		0xF0, 0x10, 0x20, 0x40, 0x40,
		// 8
		0xF0, 0x90, 0xF0, 0x90, 0xF0,
		// 9
		0xF0, 0x90, 0xF0, 0x10, 0xF0,
		// A
		0xF0, 0x90, 0xF0, 0x90, 0x90,
		// B
		0xE0, 0x90, 0xE0, 0x90, 0xE0,
		// C
		0xF0, 0x80, 0x80, 0x80, 0xF0,
		// D
		0xE0, 0x90, 0x90, 0x90, 0xE0,
		// E
		0xF0, 0x80, 0xF0, 0x80, 0xF0,
		// F
		0xF0, 0x80, 0xF0, 0x80, 0x80})
}

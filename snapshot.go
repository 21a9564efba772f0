package vip8

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrInvalidSnapshot = errors.New("invalid machine snapshot")

var snapshotMagic = [4]byte{'V', 'I', 'P', '8'}

const snapshotVersion byte = 1

// snapshotBody is the fixed-layout part of a snapshot, written
// big-endian. The variable-size screen follows it on the wire.
type snapshotBody struct {
	Memory [MEMORY_SIZE]byte
	V      [16]byte
	I      uint16
	Dt     byte
	St     byte
	Pc     uint16
	Sp     byte
	Stack  [16]uint16
	Cycles uint64
	Frames uint64
	Width  uint16
	Height uint16
	// Keys is the 16-key state as a bitmask, bit k = key k pressed
	Keys uint16
}

// KeyStater is implemented by keyboards whose state can be captured in
// a snapshot.
type KeyStater interface {
	State() KeyboardState
}

// KeySetter is implemented by keyboards whose state can be restored
// from a snapshot.
type KeySetter interface {
	SetState(KeyboardState)
}

// SaveState writes a snapshot of the whole machine: memory, registers,
// PC, stack, timers, display and key state. Restoring it with LoadState
// and resuming is indistinguishable from never having stopped.
func (cpu *Cpu) SaveState(w io.Writer) error {
	body := snapshotBody{
		Memory: *cpu.Memory,
		V:      cpu.V,
		I:      cpu.I,
		Dt:     cpu.Dt,
		St:     cpu.St,
		Pc:     cpu.Pc,
		Sp:     cpu.Sp,
		Stack:  cpu.Stack,
		Cycles: uint64(cpu.cycles),
		Frames: uint64(cpu.frames),
		Width:  uint16(cpu.ScreenSettings.Width),
		Height: uint16(cpu.ScreenSettings.Height),
	}

	if kb, ok := cpu.Keyboard.(KeyStater); ok {
		for k, pressed := range kb.State() {
			if pressed {
				body.Keys |= 1 << k
			}
		}
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{snapshotVersion}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, body); err != nil {
		return err
	}
	if _, err := w.Write(cpu.screen); err != nil {
		return err
	}

	return nil
}

// LoadState restores a snapshot written by SaveState. On error the
// machine is left untouched.
func (cpu *Cpu) LoadState(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return err
	}
	if magic != snapshotMagic {
		return fmt.Errorf("bad magic %q: %w", magic[:], ErrInvalidSnapshot)
	}

	var version [1]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return err
	}
	if version[0] != snapshotVersion {
		return fmt.Errorf("unsupported version %d: %w", version[0], ErrInvalidSnapshot)
	}

	body := snapshotBody{}
	if err := binary.Read(r, binary.BigEndian, &body); err != nil {
		return err
	}

	settings := ScreenSettings{Width: int(body.Width), Height: int(body.Height)}
	screen := newScreen(settings.Width, settings.Height)
	if _, err := io.ReadFull(r, screen); err != nil {
		return err
	}

	*cpu.Memory = body.Memory
	cpu.V = body.V
	cpu.I = body.I
	cpu.Dt = body.Dt
	cpu.St = body.St
	cpu.Pc = body.Pc
	cpu.Sp = body.Sp
	cpu.Stack = body.Stack
	cpu.cycles = uint(body.Cycles)
	cpu.frames = uint(body.Frames)
	cpu.ScreenSettings = settings
	cpu.screen = screen
	cpu.isScreenDirty = true
	cpu.lastError = nil

	if kb, ok := cpu.Keyboard.(KeySetter); ok {
		state := KeyboardState{}
		for k := range state {
			state[k] = body.Keys&(1<<k) != 0
		}
		kb.SetState(state)
	}

	return nil
}

package vip8

import (
	"errors"
	"time"

	"github.com/retroenv/retrogolib/log"
)

// MachineRoutineInterpreter interpretes 0nnn machine routines
type MachineRoutineInterpreter func(opCode uint16, cpu *Cpu) error

// Chip-8 CPU
//
// All machine state lives in this struct; there is no package-level
// state, so independent instances can run side by side. The zero
// value is not usable: create instances with NewCpu.
type Cpu struct {
	Memory *Memory
	// V 8-bit registers
	V [16]byte
	// I 16-bit register. The full 16 bits are kept: values outside
	// 0x000-0xFFF are not masked, they fault on the first memory access
	// that goes through them.
	I uint16
	// Delay timer register
	Dt byte
	// Sound timer register
	St byte
	// Program counter
	Pc uint16
	// Stack pointer
	Sp byte
	// Stack
	Stack [16]uint16

	cycles uint
	frames uint

	speedInHz uint
	step      time.Duration

	ScreenSettings ScreenSettings
	screen         Screen
	isScreenDirty  bool

	Display  Display
	Keyboard Keyboard
	Buzzer   Buzzer

	MachineRoutineInterpreter MachineRoutineInterpreter

	isBooted  bool
	isPaused  bool
	lastError error

	logger *log.Logger

	// Hooks that run before every frame
	beforeFrameHooks []Hook
	// Hooks that run before every cycle
	beforeCycleHooks []Hook
	// Hooks that run after every cycle
	afterCycleHooks []Hook
	// Hooks that run after every frame
	afterFrameHooks []Hook
	// Hooks that run after an error
	errorHooks []Hook
}

const (
	DefaultSpeed uint = 500
	MaxSpeed     uint = 700
	MinSpeed     uint = 5

	// TimerFrequency is the fixed cadence of the delay and sound timers.
	// It is independent of the CPU speed.
	TimerFrequency uint = 60
)

var timerPeriod = time.Second / time.Duration(TimerFrequency)

func NewCpu(memory *Memory, screenSettings ScreenSettings, display Display, keyboard Keyboard, buzzer Buzzer) *Cpu {
	return &Cpu{
		Memory: memory,

		V:     [16]byte{},
		I:     0,
		Dt:    0,
		St:    0,
		Pc:    startOfProgram,
		Sp:    0,
		Stack: [16]uint16{},

		speedInHz: DefaultSpeed,
		step:      time.Second / time.Duration(DefaultSpeed),

		ScreenSettings: screenSettings,
		screen:         newScreen(screenSettings.Width, screenSettings.Height),
		isScreenDirty:  false,

		Display:  display,
		Keyboard: keyboard,
		Buzzer:   buzzer,

		MachineRoutineInterpreter: nil,

		isBooted:  false,
		isPaused:  false,
		lastError: nil,

		logger: log.NewNop(),

		beforeFrameHooks: make([]Hook, 0),
		beforeCycleHooks: make([]Hook, 0),
		afterCycleHooks:  make([]Hook, 0),
		afterFrameHooks:  make([]Hook, 0),
		errorHooks:       make([]Hook, 0),
	}
}

func (cpu Cpu) IsRunning() bool {
	return !cpu.isPaused
}

// IsSoundTimerActive is the gate an external audio driver reads: a tone
// should play for as long as it reports true.
func (cpu Cpu) IsSoundTimerActive() bool {
	return cpu.St > 0
}

func (cpu Cpu) IsDelayTimerActive() bool {
	return cpu.Dt > 0
}

func (cpu Cpu) SpeedInHz() uint {
	return cpu.speedInHz
}

func (cpu *Cpu) SetSpeedInHz(inHz uint) {
	cpu.speedInHz = inHz
	cpu.step = time.Second / time.Duration(inHz)
}

func (cpu Cpu) Cycles() uint {
	return cpu.cycles
}

// Frames counts render passes: cycles whose instruction changed the
// screen. Cycles that leave the screen untouched do not count.
func (cpu Cpu) Frames() uint {
	return cpu.frames
}

// SetLogger replaces the no-op default. The CPU only logs diagnosed
// no-ops, like unknown opcodes that were skipped.
func (cpu *Cpu) SetLogger(logger *log.Logger) {
	cpu.logger = logger
}

// LastError returns the error that stopped the CPU, if any
func (cpu Cpu) LastError() error {
	return cpu.lastError
}

func (cpu *Cpu) Start() {
	cpu.isPaused = false
}

func (cpu *Cpu) Stop() {
	cpu.isPaused = true
}

// Boot initializes all the components
// If the CPU was already booted, this method is a noop
func (cpu *Cpu) Boot() error {
	if cpu.isBooted {
		return nil
	}

	if err := cpu.Display.Boot(); err != nil {
		return err
	}

	if err := cpu.Keyboard.Boot(); err != nil {
		return err
	}

	if err := cpu.Buzzer.Boot(); err != nil {
		return err
	}

	cpu.isBooted = true

	return nil
}

// LoadProgram loads the program into memory and sets the PC to the start-of-program address
func (cpu *Cpu) LoadProgram(program []byte) error {
	if err := cpu.Memory.LoadProgram(program); err != nil {
		return err
	}

	cpu.Reset()

	return nil
}

// Reset puts the machine back into the canonical power-on state:
// PC at the start of the program, registers, timers and stack zeroed,
// font sprites in place, display cleared. The loaded program survives.
func (cpu *Cpu) Reset() {
	cpu.V = [16]byte{}
	cpu.I = 0
	cpu.Dt = 0
	cpu.St = 0
	cpu.Pc = startOfProgram
	cpu.Sp = 0
	cpu.Stack = [16]uint16{}

	cpu.frames = 0
	cpu.cycles = 0
	cpu.lastError = nil

	loadCharactersInto(cpu.Memory)

	cpu.clearScreen()
	cpu.Display.Render(cpu.screen, cpu.ScreenSettings)
}

// Step fetches, decodes and executes exactly one instruction.
//
// The PC is advanced past the instruction before its effect is applied;
// control-flow instructions overwrite the advanced value. On an unknown
// opcode the advance is the only state change, so callers may treat the
// returned ErrUnknownOpCode as a diagnosed no-op and continue. Every
// other error is fatal to the session.
func (cpu *Cpu) Step() error {
	fetchPc := cpu.Pc
	opCode, err := cpu.Memory.ReadWord(fetchPc)
	if err != nil {
		return err
	}
	cpu.Pc += 2

	ins, err := Decode(opCode)
	if err != nil {
		return ErrUnknownOpCode{OpCode: opCode, Pc: fetchPc}
	}

	return cpu.execute(ins)
}

// TickTimers decrements the delay and sound timers once. It must be
// driven at TimerFrequency regardless of the instruction rate. A timer
// at zero stays at zero.
func (cpu *Cpu) TickTimers() {
	if cpu.Dt > 0 {
		cpu.Dt--
	}

	if cpu.St > 0 {
		cpu.Buzzer.Play()
		cpu.St--
		if cpu.St == 0 {
			cpu.Buzzer.Stop()
		}
	}
}

// RunAtSpeed sets the speed and starts the loop
func (cpu *Cpu) RunAtSpeed(speedInHz uint) error {
	cpu.SetSpeedInHz(speedInHz)
	return cpu.Run()
}

// Run drives the machine: instruction cycles at the configured speed,
// timer ticks at the fixed 60 Hz cadence, and a render whenever the
// screen changed. It returns when the program runs off the end of
// memory or a fatal error occurs. Unknown opcodes are logged and
// skipped.
func (cpu *Cpu) Run() error {
	if !cpu.isBooted {
		return ErrCpuIsNotBooted
	}

	if cpu.lastError != nil {
		return cpu.lastError
	}

	var last time.Time
	nextTimerTick := time.Now().Add(timerPeriod)

	for {
		if done, err := cpu.runNextCycle(); err != nil {
			return err
		} else if done {
			return nil
		}

		for now := time.Now(); !now.Before(nextTimerTick); {
			cpu.TickTimers()
			nextTimerTick = nextTimerTick.Add(timerPeriod)
		}

		// Prevent the CPU from running faster than expected
		time.Sleep(max(cpu.step-time.Since(last), 0))
		last = time.Now()
	}
}

// SingleFrame runs a single cycle bypassing the pause state. Timers are
// not ticked: the caller owns that cadence when stepping manually.
func (cpu *Cpu) SingleFrame() error {
	if !cpu.isBooted {
		return ErrCpuIsNotBooted
	}

	if cpu.lastError != nil {
		return cpu.lastError
	}

	prev := cpu.isPaused
	cpu.isPaused = false
	defer func(cpu *Cpu, prev bool) {
		cpu.isPaused = prev
	}(cpu, prev)

	if _, err := cpu.runNextCycle(); err != nil {
		return err
	}

	return nil
}

func (cpu *Cpu) runNextCycle() (bool, error) {
	cpu.runBeforeFrameHooks()

	if cpu.isPaused {
		return false, nil
	}

	cpu.runBeforeCycleHooks()
	if err := cpu.Step(); err != nil {
		var unknown ErrUnknownOpCode
		if errors.As(err, &unknown) {
			cpu.logger.Warn("skipping unknown opcode",
				log.Uint16("opcode", unknown.OpCode),
				log.Uint16("pc", unknown.Pc))
			cpu.runErrorHooks()
		} else {
			cpu.runErrorHooks()
			cpu.lastError = err
			return false, err
		}
	}
	cpu.cycles++
	cpu.runAfterCycleHooks()

	if cpu.isScreenDirty {
		cpu.isScreenDirty = false
		if err := cpu.Display.Render(cpu.screen, cpu.ScreenSettings); err != nil {
			cpu.runErrorHooks()
			cpu.lastError = err
			return false, err
		}
		cpu.frames++
	}

	cpu.runAfterFrameHooks()

	if cpu.Pc >= MEMORY_SIZE {
		// The program ran off the end of memory
		return true, nil
	}

	return false, nil
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}

	return 0
}

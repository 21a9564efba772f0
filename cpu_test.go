package vip8_test

import (
	"errors"
	"testing"

	"github.com/calderon/vip8"
)

func newTestMachine() (*vip8.Cpu, *vip8.InMemoryKeyboard, *vip8.DummyBuzzer) {
	mem := vip8.NewMemory()
	kb := vip8.NewInMemoryKeyboard()
	b := vip8.NewDummyBuzzer()
	d := vip8.NewDummyDisplay()

	return vip8.NewCpu(mem, vip8.SmallScreen, d, kb, b), kb, b
}

func runNCycles(cpu *vip8.Cpu, program []byte, n int) error {
	if err := cpu.LoadProgram(program); err != nil {
		return err
	}

	if err := cpu.Boot(); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		err := cpu.SingleFrame()
		if err != nil {
			return err
		}
	}

	return nil
}

func writeWord(cpu *vip8.Cpu, addr, opCode uint16) {
	cpu.Memory[addr] = byte(opCode >> 8)
	cpu.Memory[addr+1] = byte(opCode)
}

func assertVxEq(t *testing.T, msg string, cpu *vip8.Cpu, x, kk byte) {
	t.Helper()

	if cpu.V[x] != kk {
		t.Fatalf(`%s: cpu.V[%x] = %x, expected %x`, msg, x, cpu.V[x], kk)
	}
}

func assertPcEq(t *testing.T, cpu *vip8.Cpu, pc uint16) {
	t.Helper()

	if cpu.Pc != pc {
		t.Fatalf(`cpu.Pc = %x, expected %x`, cpu.Pc, pc)
	}
}

// TestProgramLoading loads a program that jumps to the last address to exit immediately
func TestProgramLoading(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// move to the last address
		0x1F, 0xFE,
	}
	if err := runNCycles(cpu, program, 2); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	expectedPc := uint16(4096)
	if cpu.Pc != expectedPc {
		t.Fatalf(`cpu.Pc = %d, expected for %d`, cpu.Pc, expectedPc)
	}
}

// TestConstantSetInstructions
func TestConstantSetInstructions(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 1
		0x62, 1,
		// add to v2 4
		0x72, 4,
		// move to the last address
		0x1F, 0xFE,
	}
	if err := runNCycles(cpu, program, 5); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "LD Vx kk", cpu, 0x0, 128)
	assertVxEq(t, "LD Vx kk", cpu, 0x1, 16)
	assertVxEq(t, "ADD Vx kk", cpu, 0x2, 5)
}

// TestSimpleSkips checks both polarities of SE and SNE
func TestSimpleSkips(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 128
		0x62, 128,

		// if v0 == 128, do not set v3 to 1
		0x30, 128,
		0x63, 1,

		// if v0 == 16, do not set vA to 1
		0x30, 16,
		0x6A, 1,

		// if v0 != 128, do not set v4 to 1
		0x40, 128,
		0x64, 1,

		// if v0 != 16, do not set vB to 1
		0x40, 16,
		0x6B, 1,

		// if v0 == v1, do not set v5 to 1
		0x50, 0x10,
		0x65, 1,

		// if v0 == v2, do not set v6 to 1
		0x50, 0x20,
		0x66, 1,

		// move to the last address
		0x1F, 0xFE,
	}
	if err := runNCycles(cpu, program, 12); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "SE Vx kk true", cpu, 0x3, 0x0)
	assertVxEq(t, "SE Vx kk false", cpu, 0xA, 0x1)
	assertVxEq(t, "SNE Vx kk true", cpu, 0xB, 0x0)
	assertVxEq(t, "SNE Vx kk false", cpu, 0x4, 0x1)
	assertVxEq(t, "SE Vx Vy true", cpu, 0x6, 0x0)
	assertVxEq(t, "SE Vx Vy false", cpu, 0x5, 0x1)
}

func TestArithmeticCarryAndBorrow(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// v0 = 0xFF, v1 = 0x01: ADD v0, v1 carries
		0x60, 0xFF,
		0x61, 0x01,
		0x80, 0x14,
		// v2 = 0x01, v3 = 0x02: SUB v2, v3 borrows
		0x62, 0x01,
		0x63, 0x02,
		0x82, 0x35,
	}
	if err := runNCycles(cpu, program, 3); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "ADD Vx Vy wraps", cpu, 0x0, 0x00)
	assertVxEq(t, "ADD Vx Vy carry", cpu, 0xF, 0x01)

	if err := runNCycles(cpu, program, 6); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "SUB Vx Vy wraps", cpu, 0x2, 0xFF)
	assertVxEq(t, "SUB Vx Vy borrow", cpu, 0xF, 0x00)
}

func TestSubnNoBorrow(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// v0 = 0x01, v1 = 0x03: SUBN v0, v1 = v1 - v0, no borrow
		0x60, 0x01,
		0x61, 0x03,
		0x80, 0x17,
	}
	if err := runNCycles(cpu, program, 3); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "SUBN Vx Vy", cpu, 0x0, 0x02)
	assertVxEq(t, "SUBN Vx Vy no borrow", cpu, 0xF, 0x01)
}

func TestShiftsSetVfToShiftedOutBit(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// v0 = 0b10000001
		0x60, 0x81,
		// SHR v0
		0x80, 0x06,
		// v1 = 0b10000001
		0x61, 0x81,
		// SHL v1
		0x81, 0x1E,
	}
	if err := runNCycles(cpu, program, 2); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "SHR Vx", cpu, 0x0, 0x40)
	assertVxEq(t, "SHR Vx carry", cpu, 0xF, 0x01)

	if err := runNCycles(cpu, program, 4); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "SHL Vx", cpu, 0x1, 0x02)
	assertVxEq(t, "SHL Vx carry", cpu, 0xF, 0x01)
}

func TestBcdStore(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// v0 = 254
		0x60, 254,
		// I = 0x300
		0xA3, 0x00,
		// BCD of v0 at I..I+2
		0xF0, 0x33,
	}
	if err := runNCycles(cpu, program, 3); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	if cpu.Memory[0x300] != 2 || cpu.Memory[0x301] != 5 || cpu.Memory[0x302] != 4 {
		t.Fatalf(`BCD of 254 = [%d %d %d], expected [2 5 4]`,
			cpu.Memory[0x300], cpu.Memory[0x301], cpu.Memory[0x302])
	}
}

func TestRegisterStoreAndLoad(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		0x60, 0x11,
		0x61, 0x22,
		0x62, 0x33,
		// I = 0x320
		0xA3, 0x20,
		// store v0..v2
		0xF2, 0x55,
		// clobber the registers
		0x60, 0x00,
		0x61, 0x00,
		0x62, 0x00,
		// load v0..v2 back
		0xF2, 0x65,
	}
	if err := runNCycles(cpu, program, 9); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "LD Vx [I]", cpu, 0x0, 0x11)
	assertVxEq(t, "LD Vx [I]", cpu, 0x1, 0x22)
	assertVxEq(t, "LD Vx [I]", cpu, 0x2, 0x33)

	if cpu.I != 0x320 {
		t.Fatalf(`cpu.I = %x, expected it untouched at 0x320`, cpu.I)
	}
}

func TestCallAndReturn(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// call 0x206
		0x22, 0x06,
		0x00, 0x00,
		0x00, 0x00,
		// return
		0x00, 0xEE,
	}
	if err := runNCycles(cpu, program, 1); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}
	assertPcEq(t, cpu, 0x206)

	if err := cpu.SingleFrame(); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}
	assertPcEq(t, cpu, 0x202)

	if cpu.Sp != 0 {
		t.Fatalf(`cpu.Sp = %d, expected an empty stack`, cpu.Sp)
	}
}

func TestStackDiscipline(t *testing.T) {
	cpu, _, _ := newTestMachine()

	if err := cpu.LoadProgram(nil); err != nil {
		t.Fatalf(`LoadProgram() returned an error %v`, err)
	}

	// 16 nested calls, each jumping to the next instruction slot
	addr := uint16(0x200)
	for i := 0; i < 16; i++ {
		writeWord(cpu, addr, 0x2000|(addr+2))
		addr += 2
	}
	// the 17th call overflows
	writeWord(cpu, addr, 0x2000|(addr+2))

	for i := 0; i < 16; i++ {
		if err := cpu.Step(); err != nil {
			t.Fatalf(`call %d returned an error %v`, i+1, err)
		}
	}

	if err := cpu.Step(); !errors.Is(err, vip8.ErrStackOverflow) {
		t.Fatalf(`17th call returned %v, expected ErrStackOverflow`, err)
	}
}

func TestReturnOnEmptyStack(t *testing.T) {
	cpu, _, _ := newTestMachine()

	if err := cpu.LoadProgram(nil); err != nil {
		t.Fatalf(`LoadProgram() returned an error %v`, err)
	}
	writeWord(cpu, 0x200, 0x00EE)

	if err := cpu.Step(); !errors.Is(err, vip8.ErrStackUnderflow) {
		t.Fatalf(`Step() returned %v, expected ErrStackUnderflow`, err)
	}
}

func TestKeyWaitDoesNotAdvancePc(t *testing.T) {
	cpu, kb, _ := newTestMachine()

	program := []byte{
		// wait for a key into v2
		0xF2, 0x0A,
	}
	if err := runNCycles(cpu, program, 3); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	// The wait re-executes: PC stays on the instruction
	assertPcEq(t, cpu, 0x200)

	kb.Press(0x7)
	if err := cpu.SingleFrame(); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertPcEq(t, cpu, 0x202)
	assertVxEq(t, "LD Vx K", cpu, 0x2, 0x7)
}

func TestKeySkips(t *testing.T) {
	cpu, kb, _ := newTestMachine()
	kb.Press(0x5)

	program := []byte{
		// v0 = 5
		0x60, 0x05,
		// skip if key v0 pressed (it is)
		0xE0, 0x9E,
		0x6A, 1,
		// skip if key v0 not pressed (it is): no skip
		0xE0, 0xA1,
		0x6B, 1,
	}
	if err := runNCycles(cpu, program, 4); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "SKP Vx", cpu, 0xA, 0)
	assertVxEq(t, "SKNP Vx", cpu, 0xB, 1)
}

func TestTimersCountDownToZero(t *testing.T) {
	cpu, _, buzzer := newTestMachine()

	program := []byte{
		// v0 = 5, DT = v0, v1 = 2, ST = v1
		0x60, 0x05,
		0xF0, 0x15,
		0x61, 0x02,
		0xF1, 0x18,
	}
	if err := runNCycles(cpu, program, 4); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	if cpu.Dt != 5 || cpu.St != 2 {
		t.Fatalf(`Dt = %d, St = %d, expected 5 and 2`, cpu.Dt, cpu.St)
	}

	cpu.TickTimers()
	if cpu.Dt != 4 || cpu.St != 1 {
		t.Fatalf(`Dt = %d, St = %d after one tick, expected 4 and 1`, cpu.Dt, cpu.St)
	}
	if !buzzer.IsPlaying {
		t.Fatal(`the buzzer should play while the sound timer is active`)
	}

	for i := 0; i < 5; i++ {
		cpu.TickTimers()
	}

	// A 6th tick never goes below zero
	if cpu.Dt != 0 || cpu.St != 0 {
		t.Fatalf(`Dt = %d, St = %d after six ticks, expected both 0`, cpu.Dt, cpu.St)
	}
	if buzzer.IsPlaying {
		t.Fatal(`the buzzer should stop when the sound timer reaches zero`)
	}
}

func TestDelayTimerReadBack(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// v0 = 7, DT = v0, v1 = DT
		0x60, 0x07,
		0xF0, 0x15,
		0xF1, 0x07,
	}
	if err := runNCycles(cpu, program, 3); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "LD Vx DT", cpu, 0x1, 0x07)
}

func TestJumpWithOffset(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// v0 = 4
		0x60, 0x04,
		// jump to 0x300 + v0
		0xB3, 0x00,
	}
	if err := runNCycles(cpu, program, 2); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertPcEq(t, cpu, 0x304)
}

func TestRandomIsMasked(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// v0 = random & 0x00
		0xC0, 0x00,
		// v1 = random & 0x0F
		0xC1, 0x0F,
	}
	if err := runNCycles(cpu, program, 2); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "RND Vx 0x00", cpu, 0x0, 0x00)
	if cpu.V[1] > 0x0F {
		t.Fatalf(`cpu.V[1] = %x, expected it masked to 0x0F`, cpu.V[1])
	}
}

func TestUnknownOpCodeIsSkipped(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// not an instruction
		0xFF, 0xFF,
		// still reached
		0x60, 0x12,
	}
	if err := runNCycles(cpu, program, 2); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	assertVxEq(t, "instruction after the unknown opcode", cpu, 0x0, 0x12)
}

// TestUnknownOpCodeRunsErrorHooks checks that a skipped opcode is still
// observable from the outside
func TestUnknownOpCodeRunsErrorHooks(t *testing.T) {
	cpu, _, _ := newTestMachine()

	var observed int
	cpu.AddErrorHook(func(cpu *vip8.Cpu) {
		observed++
	})

	program := []byte{
		// not an instruction
		0xFF, 0xFF,
		0x60, 0x12,
	}
	if err := runNCycles(cpu, program, 2); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	if observed != 1 {
		t.Fatalf(`error hooks ran %d times, expected once for the skipped opcode`, observed)
	}
	if cpu.LastError() != nil {
		t.Fatalf(`LastError() = %v, a skipped opcode must not stop the machine`, cpu.LastError())
	}
}

// TestFramesCountRenders checks that the frame counter moves with the
// display, not with the instruction rate
func TestFramesCountRenders(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// clear the screen: the only cycle that renders
		0x00, 0xE0,
		0x60, 0x01,
		0x61, 0x02,
	}
	if err := runNCycles(cpu, program, 3); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	if cpu.Cycles() != 3 {
		t.Fatalf(`Cycles() = %d, expected 3`, cpu.Cycles())
	}
	if cpu.Frames() != 1 {
		t.Fatalf(`Frames() = %d, expected 1 render`, cpu.Frames())
	}
}

func TestStepReportsUnknownOpCode(t *testing.T) {
	cpu, _, _ := newTestMachine()

	if err := cpu.LoadProgram([]byte{0xFF, 0xFF}); err != nil {
		t.Fatalf(`LoadProgram() returned an error %v`, err)
	}

	err := cpu.Step()
	unknown := vip8.ErrUnknownOpCode{}
	if !errors.As(err, &unknown) {
		t.Fatalf(`Step() returned %v, expected ErrUnknownOpCode`, err)
	}
	if unknown.OpCode != 0xFFFF || unknown.Pc != 0x200 {
		t.Fatalf(`unknown opcode %04X at %03X, expected FFFF at 200`, unknown.OpCode, unknown.Pc)
	}

	// The advance past the opcode is the only state change
	assertPcEq(t, cpu, 0x202)
}

func TestFontSpriteAddress(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		// v0 = 0xA
		0x60, 0x0A,
		// I = sprite address of digit in v0
		0xF0, 0x29,
	}
	if err := runNCycles(cpu, program, 2); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	if cpu.I != 0xA*5 {
		t.Fatalf(`cpu.I = %x, expected the sprite of digit A at %x`, cpu.I, 0xA*5)
	}
	if cpu.Memory[cpu.I] != 0xF0 {
		t.Fatalf(`first sprite byte = %x, expected F0`, cpu.Memory[cpu.I])
	}
}

func TestIndexOverflowFaults(t *testing.T) {
	cpu, _, _ := newTestMachine()

	if err := cpu.LoadProgram(nil); err != nil {
		t.Fatalf(`LoadProgram() returned an error %v`, err)
	}

	// I = 0xFFF, v0 = 2, I += v0 -> I = 0x1001, unmasked
	cpu.V[0] = 2
	writeWord(cpu, 0x200, 0xAFFF)
	writeWord(cpu, 0x202, 0xF01E)
	writeWord(cpu, 0x204, 0xF065)

	if err := cpu.Step(); err != nil {
		t.Fatalf(`Step() returned an error %v`, err)
	}
	if err := cpu.Step(); err != nil {
		t.Fatalf(`Step() returned an error %v`, err)
	}

	if cpu.I != 0x1001 {
		t.Fatalf(`cpu.I = %x, expected the unmasked 0x1001`, cpu.I)
	}

	// The first access through the out-of-range I faults
	err := cpu.Step()
	outOfBounds := vip8.ErrAddressOutOfBounds{}
	if !errors.As(err, &outOfBounds) {
		t.Fatalf(`Step() returned %v, expected ErrAddressOutOfBounds`, err)
	}
}

func TestResetRestoresPowerOnState(t *testing.T) {
	cpu, _, _ := newTestMachine()

	program := []byte{
		0x60, 0xAA,
		0x61, 0xBB,
		0xA3, 0x00,
		0x62, 0x30,
		0xF2, 0x15,
		0x22, 0x0C,
	}
	if err := runNCycles(cpu, program, 6); err != nil {
		t.Fatalf(`SingleFrame() returned an error %v`, err)
	}

	cpu.Reset()

	assertPcEq(t, cpu, 0x200)
	for x := byte(0); x < 16; x++ {
		assertVxEq(t, "registers after reset", cpu, x, 0)
	}
	if cpu.I != 0 || cpu.Dt != 0 || cpu.St != 0 || cpu.Sp != 0 {
		t.Fatalf(`I = %x, Dt = %d, St = %d, Sp = %d, expected all zero`, cpu.I, cpu.Dt, cpu.St, cpu.Sp)
	}
	if cpu.Memory[0] != 0xF0 {
		t.Fatalf(`font sprites missing after reset`)
	}
	// The loaded program survives a reset
	if cpu.Memory[0x200] != 0x60 {
		t.Fatalf(`program missing after reset`)
	}
	for _, b := range cpu.Screen() {
		if b != 0 {
			t.Fatalf(`display not cleared after reset`)
		}
	}
}

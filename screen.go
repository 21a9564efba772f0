package vip8

import (
	"math"
)

// Screen is the monochrome pixel buffer, bit-packed row-major: one bit
// per pixel, most significant bit first.
type Screen []byte

func (s Screen) Clone() Screen {
	c := make(Screen, len(s))
	copy(c, s)

	return c
}

// At reports whether the pixel at (x, y) is set
func (s Screen) At(x, y int, settings ScreenSettings) bool {
	t := y*settings.Width + x
	return s[t/8]&(1<<(7-byte(t%8))) != 0
}

// ScreenSettings for the console
// Common display sizes are 64x32 and 128x64.
// Other uncommon sizes are 64x48 and 64x64.
type ScreenSettings struct {
	Width, Height int
}

var SmallScreen = ScreenSettings{
	Width:  64,
	Height: 32,
}

func sizeInBytesOfScreen(w, h int) int {
	return int(math.Ceil(float64(w*h) / 8.0))
}

func newScreen(w, h int) Screen {
	return make(Screen, sizeInBytesOfScreen(w, h))
}

func (cpu *Cpu) clearScreen() {
	cpu.screen = newScreen(cpu.ScreenSettings.Width, cpu.ScreenSettings.Height)
}

// Screen returns a read-only snapshot of the display buffer. Renderers
// polling between cycles never see a half-applied draw.
func (cpu Cpu) Screen() Screen {
	return cpu.screen.Clone()
}

func (cpu Cpu) toScreenCoord(x, y byte) uint {
	x = x % byte(cpu.ScreenSettings.Width)
	y = y % byte(cpu.ScreenSettings.Height)

	return uint(y)*uint(cpu.ScreenSettings.Width) + uint(x)
}

// blitSprite XORs one 8-pixel sprite row onto the screen at (x, y).
// Pixels past the right or bottom edge wrap to the opposite side.
// Returns whether any set pixel was cleared by the XOR.
func (cpu *Cpu) blitSprite(x, y, sprite byte) bool {
	collision := false

	for bit := byte(0); bit < 8; bit++ {
		if sprite&(1<<(7-bit)) == 0 {
			continue
		}

		t := cpu.toScreenCoord(x+bit, y)
		idx := t / 8
		mask := byte(1) << (7 - byte(t%8))

		if cpu.screen[idx]&mask != 0 {
			collision = true
		}
		cpu.screen[idx] ^= mask
	}

	return collision
}

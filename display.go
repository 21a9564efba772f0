package vip8

import (
	"io"
	"os"
	"sync"
)

// Display abstraction for a display
type Display interface {
	// Boot initializes the component
	Boot() error
	// Render receives the current screen after any cycle that changed it
	Render(Screen, ScreenSettings) error
}

// DummyDisplay is a display that does nothing
type DummyDisplay struct {
}

func NewDummyDisplay() *DummyDisplay {
	return &DummyDisplay{}
}

func (d DummyDisplay) Boot() error {
	return nil
}

func (d DummyDisplay) Render(screen Screen, settings ScreenSettings) error {
	return nil
}

// InMemoryDisplay keeps the last rendered screen. Useful for headless
// hosting and tests.
type InMemoryDisplay struct {
	mu       sync.RWMutex
	screen   Screen
	settings ScreenSettings
}

func NewInMemoryDisplay() *InMemoryDisplay {
	return &InMemoryDisplay{}
}

// Boot implements Display.
func (d *InMemoryDisplay) Boot() error {
	return nil
}

// Render implements Display.
func (d *InMemoryDisplay) Render(screen Screen, settings ScreenSettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.screen = screen.Clone()
	d.settings = settings

	return nil
}

// Screen returns the last rendered screen
func (d *InMemoryDisplay) Screen() (Screen, ScreenSettings) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.screen, d.settings
}

const escape = 0x1B

// TerminalDisplay renders the screen as text using ANSI escapes
type TerminalDisplay struct {
	terminal        io.Writer
	OnChar, OffChar string
}

func NewTerminalDisplay() *TerminalDisplay {
	return NewTerminalDisplayWithOutput(os.Stdout)
}

func NewTerminalDisplayWithOutput(out io.Writer) *TerminalDisplay {
	return &TerminalDisplay{
		terminal: out,
		OnChar:   "##",
		OffChar:  "  ",
	}
}

// Boot implements Display.
func (disp *TerminalDisplay) Boot() error {
	_, err := disp.terminal.Write([]byte{
		// Move cursor to start
		escape, '[', '1', 'H',
		// clear the terminal
		escape, '[', '0', 'J',
	})

	return err
}

func (disp *TerminalDisplay) Render(screen Screen, settings ScreenSettings) error {
	buff := make([]byte, 0, settings.Width*settings.Height*2+settings.Height+64)
	buff = append(buff, escape, '[', '1', 'H')
	for i, b := range screen {
		for bitJ := 0; bitJ < 8; bitJ++ {
			bit := b & (1 << (7 - byte(bitJ)))

			if bit > 0 {
				buff = append(buff, disp.OnChar...)
			} else {
				buff = append(buff, disp.OffChar...)
			}
		}

		if ((i+1)*8)%settings.Width == 0 {
			buff = append(buff, '|', '\n')
		}
	}

	_, err := disp.terminal.Write(buff)
	return err
}

package vip8

import (
	"sync"
	"time"

	"github.com/pkg/term"
)

type KeyboardState [16]bool

type Keyboard interface {
	// Boot initializes the component
	Boot() error
	IsPressed(k byte) bool
	// GetPressed returns the lowest pressed key, if any
	GetPressed() (byte, bool)
}

// InMemoryKeyboard holds the 16-key state behind a lock. The input
// provider (another goroutine, usually) writes keys, the CPU reads
// them; a reader never observes a half-updated key set.
type InMemoryKeyboard struct {
	mu    sync.RWMutex
	state KeyboardState
}

func NewInMemoryKeyboard() *InMemoryKeyboard {
	return &InMemoryKeyboard{
		state: [16]bool{},
	}
}

// Boot implements Keyboard.
func (kb *InMemoryKeyboard) Boot() error {
	return nil
}

func (kb *InMemoryKeyboard) IsPressed(k byte) bool {
	if k > 15 {
		return false
	}

	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.state[k]
}

func (kb *InMemoryKeyboard) GetPressed() (byte, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	for k, pressed := range kb.state {
		if pressed {
			return byte(k), true
		}
	}

	return 0, false
}

func (kb *InMemoryKeyboard) State() KeyboardState {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.state
}

func (kb *InMemoryKeyboard) SetState(state KeyboardState) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.state = state
}

func (kb *InMemoryKeyboard) Press(k byte) {
	if k > 15 {
		return
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.state[k] = true
}

func (kb *InMemoryKeyboard) Release(k byte) {
	if k > 15 {
		return
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.state[k] = false
}

// terminalLayout is the classic mapping of the 4x4 hex pad onto the
// left side of a QWERTY keyboard.
var terminalLayout = map[byte]byte{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// A terminal has no key-up events, so a key read from the tty counts as
// pressed for this long.
const terminalKeyHold = 150 * time.Millisecond

// TerminalKeyboard reads the controlling tty in raw mode and feeds an
// InMemoryKeyboard. Keys auto-release after terminalKeyHold.
type TerminalKeyboard struct {
	*InMemoryKeyboard

	tty    *term.Term
	closed chan struct{}
}

func NewTerminalKeyboard() *TerminalKeyboard {
	return &TerminalKeyboard{
		InMemoryKeyboard: NewInMemoryKeyboard(),
		closed:           make(chan struct{}),
	}
}

// Boot opens the tty in raw mode and starts the read loop.
func (kb *TerminalKeyboard) Boot() error {
	if kb.tty != nil {
		return nil
	}

	tty, err := term.Open("/dev/tty")
	if err != nil {
		return err
	}
	if err := term.RawMode(tty); err != nil {
		tty.Close()
		return err
	}

	kb.tty = tty
	go kb.readLoop()

	return nil
}

// Close restores the terminal and stops the read loop
func (kb *TerminalKeyboard) Close() error {
	if kb.tty == nil {
		return nil
	}

	close(kb.closed)
	kb.tty.Restore()

	return kb.tty.Close()
}

func (kb *TerminalKeyboard) readLoop() {
	buff := make([]byte, 1)

	for {
		select {
		case <-kb.closed:
			return
		default:
		}

		n, err := kb.tty.Read(buff)
		if err != nil || n == 0 {
			continue
		}

		k, ok := terminalLayout[buff[0]]
		if !ok {
			continue
		}

		kb.Press(k)
		go func(k byte) {
			time.Sleep(terminalKeyHold)
			kb.Release(k)
		}(k)
	}
}

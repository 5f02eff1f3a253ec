package graphics

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
)

// Terminals report key presses only, so a key counts as held for this many
// polls after its last repeat.
const terminalHoldPolls = 6

// TerminalBackend renders frames with 24-bit colour half blocks and reads
// the keyboard in cbreak mode
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow implements the Window interface for terminal rendering
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool

	out  io.Writer
	keys *keyReader
	held map[Key]int
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return errors.New("terminal backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow takes over the controlling terminal. Keyboard input is
// unavailable when stdin is not a terminal; rendering still works.
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, errors.New("backend not initialized")
	}

	w := &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
		out:     os.Stdout,
		held:    make(map[Key]int),
	}
	keys, err := startKeyReader(os.Stdin)
	if err != nil {
		log.Printf("[TERMINAL] keyboard input disabled: %v", err)
	} else {
		w.keys = keys
	}
	fmt.Fprint(w.out, "\x1b[?25l\x1b[2J")
	return w, nil
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// SetTitle sets the terminal title
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\x1b]0;%s\x07", title)
}

func (w *TerminalWindow) GetSize() (width, height int) { return w.width, w.height }
func (w *TerminalWindow) ShouldClose() bool            { return !w.running }
func (w *TerminalWindow) SwapBuffers()                 {}

// PollEvents turns key bytes into press events and synthesises the
// releases a terminal never sends
func (w *TerminalWindow) PollEvents() []InputEvent {
	var events []InputEvent
	for key, n := range w.held {
		if n <= 1 {
			delete(w.held, key)
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: false})
			continue
		}
		w.held[key] = n - 1
	}
	if w.keys == nil {
		return events
	}

	for _, ev := range w.keys.drain() {
		if ev.Type == InputEventTypeKey {
			_, already := w.held[ev.Key]
			w.held[ev.Key] = terminalHoldPolls
			if already {
				continue
			}
		}
		events = append(events, ev)
	}
	return events
}

// RenderFrame draws the picture at half resolution, two pixel rows per
// character cell
func (w *TerminalWindow) RenderFrame(frame Frame) error {
	return renderHalfBlocks(w.out, frame)
}

// Cleanup restores the terminal
func (w *TerminalWindow) Cleanup() error {
	w.running = false
	fmt.Fprint(w.out, "\x1b[0m\x1b[?25h\n")
	if w.keys != nil {
		return w.keys.close()
	}
	return nil
}

func renderHalfBlocks(out io.Writer, frame Frame) error {
	bw := bufio.NewWriter(out)
	bw.WriteString("\x1b[H")

	var lastFG, lastBG uint32 = 1 << 24, 1 << 24
	for y := 0; y < FrameHeight; y += 4 {
		for x := 0; x < FrameWidth; x += 2 {
			top := frame[y*FrameWidth+x]
			bottom := frame[(y+2)*FrameWidth+x]
			if top != lastFG {
				r, g, b := unpack(top)
				fmt.Fprintf(bw, "\x1b[38;2;%d;%d;%dm", r, g, b)
				lastFG = top
			}
			if bottom != lastBG {
				r, g, b := unpack(bottom)
				fmt.Fprintf(bw, "\x1b[48;2;%d;%d;%dm", r, g, b)
				lastBG = bottom
			}
			bw.WriteString("▀")
		}
		bw.WriteString("\x1b[0m\r\n")
		lastFG, lastBG = 1<<24, 1<<24
	}
	return bw.Flush()
}

// decodeKeys converts the bytes of one terminal read into key events
func decodeKeys(buf []byte) []InputEvent {
	var events []InputEvent
	press := func(k Key, mods ModifierKey) {
		events = append(events, InputEvent{Type: InputEventTypeKey, Key: k, Pressed: true, Modifiers: mods})
	}

	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch {
		case c == 0x1b && i+2 < len(buf) && buf[i+1] == '[':
			switch buf[i+2] {
			case 'A':
				press(KeyUp, 0)
			case 'B':
				press(KeyDown, 0)
			case 'C':
				press(KeyRight, 0)
			case 'D':
				press(KeyLeft, 0)
			}
			i += 2
		case c == 0x1b:
			press(KeyEscape, 0)
		case c == '\r' || c == '\n':
			press(KeyEnter, 0)
		case c == ' ':
			press(KeySpace, 0)
		case c == '\t':
			press(KeyTab, 0)
		case c == 0x7f || c == 0x08:
			press(KeyBackspace, 0)
		case c >= 'a' && c <= 'z':
			press(KeyA+Key(c-'a'), 0)
		case c >= 'A' && c <= 'Z':
			press(KeyA+Key(c-'A'), ModifierShift)
		case c >= '0' && c <= '9':
			press(Key0+Key(c-'0'), 0)
		case c == 0x04: // Ctrl-D
			events = append(events, InputEvent{Type: InputEventTypeQuit})
		}
	}
	return events
}

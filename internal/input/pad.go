// Package input implements the NES standard controller shift register.
package input

import (
	"fmt"
	"log"
	"strings"

	"github.com/pkg/errors"
)

// Button represents NES controller buttons. The bit position of each button
// is the order in which the hardware shifts it out.
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// AllButtons lists every button in serial read order
var AllButtons = [8]Button{
	ButtonA, ButtonB, ButtonSelect, ButtonStart,
	ButtonUp, ButtonDown, ButtonLeft, ButtonRight,
}

var buttonNames = map[Button]string{
	ButtonA:      "A",
	ButtonB:      "B",
	ButtonSelect: "Select",
	ButtonStart:  "Start",
	ButtonUp:     "Up",
	ButtonDown:   "Down",
	ButtonLeft:   "Left",
	ButtonRight:  "Right",
}

// String returns the button name
func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Button(0x%02X)", uint8(b))
}

// ParseButton converts a button name (case insensitive) to a Button
func ParseButton(name string) (Button, error) {
	for b, n := range buttonNames {
		if strings.EqualFold(n, name) {
			return b, nil
		}
	}
	return 0, errors.Errorf("unknown button %q", name)
}

// Pad is one controller port. While the strobe is high the read index is
// held at 0; while it is low every read returns the next button bit.
type Pad struct {
	buttons uint8
	index   uint8
	strobe  bool

	debugEnabled bool
}

// New creates a Pad with no buttons held
func New() *Pad {
	return &Pad{}
}

// SetButton sets the state of a button
func (p *Pad) SetButton(button Button, pressed bool) {
	old := p.buttons
	if pressed {
		p.buttons |= uint8(button)
	} else {
		p.buttons &^= uint8(button)
	}
	if p.debugEnabled && old != p.buttons {
		log.Printf("[PAD] %s pressed=%t buttons=0x%02X", button, pressed, p.buttons)
	}
}

// Press marks a button as held
func (p *Pad) Press(button Button) {
	p.SetButton(button, true)
}

// Release marks a button as released
func (p *Pad) Release(button Button) {
	p.SetButton(button, false)
}

// IsPressed returns true if the button is currently held
func (p *Pad) IsPressed(button Button) bool {
	return p.buttons&uint8(button) != 0
}

// Buttons returns the raw button mask
func (p *Pad) Buttons() uint8 {
	return p.buttons
}

// WriteStrobe handles a write to the strobe register ($4016 bit 0)
func (p *Pad) WriteStrobe(value uint8) {
	p.strobe = value&1 != 0
	if p.strobe {
		p.index = 0
	}
}

// Read returns the current button bit and advances to the next one when
// the strobe is low.
func (p *Pad) Read() uint8 {
	bit := (p.buttons >> p.index) & 1
	if !p.strobe {
		p.index = (p.index + 1) % 8
	}
	return bit
}

// Reset releases every button and clears the shift state
func (p *Pad) Reset() {
	p.buttons = 0
	p.index = 0
	p.strobe = false
}

// EnableDebug toggles button logging
func (p *Pad) EnableDebug(enabled bool) {
	p.debugEnabled = enabled
}

// PadState is a serialisable copy of the pad registers
type PadState struct {
	Buttons uint8
	Index   uint8
	Strobe  bool
}

// State returns a snapshot of the pad
func (p *Pad) State() PadState {
	return PadState{Buttons: p.buttons, Index: p.index, Strobe: p.strobe}
}

// SetState restores a snapshot taken with State
func (p *Pad) SetState(s PadState) {
	p.buttons = s.Buttons
	p.index = s.Index % 8
	p.strobe = s.Strobe
}

package graphics

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Key represents a keyboard key
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
	KeyTab
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyLeftShift
	KeyRightShift
	KeyLeftControl
	KeyRightControl

	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	keyCount
)

var keyNames = map[Key]string{
	KeyEscape:       "Escape",
	KeyEnter:        "Enter",
	KeySpace:        "Space",
	KeyTab:          "Tab",
	KeyBackspace:    "Backspace",
	KeyUp:           "Up",
	KeyDown:         "Down",
	KeyLeft:         "Left",
	KeyRight:        "Right",
	KeyLeftShift:    "LeftShift",
	KeyRightShift:   "RightShift",
	KeyLeftControl:  "LeftControl",
	KeyRightControl: "RightControl",
}

// Alternative spellings accepted in config files
var keyAliases = map[string]Key{
	"esc":    KeyEscape,
	"return": KeyEnter,
	"lshift": KeyLeftShift,
	"rshift": KeyRightShift,
	"lctrl":  KeyLeftControl,
	"rctrl":  KeyRightControl,
}

var keysByName map[string]Key

func init() {
	for k := KeyA; k <= KeyZ; k++ {
		keyNames[k] = string(rune('A' + int(k-KeyA)))
	}
	for k := Key0; k <= Key9; k++ {
		keyNames[k] = string(rune('0' + int(k-Key0)))
	}
	for k := KeyF1; k <= KeyF12; k++ {
		keyNames[k] = fmt.Sprintf("F%d", int(k-KeyF1)+1)
	}

	keysByName = make(map[string]Key, len(keyNames)+len(keyAliases))
	for k, name := range keyNames {
		keysByName[strings.ToLower(name)] = k
	}
	for name, k := range keyAliases {
		keysByName[name] = k
	}
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// ParseKey converts a key name (case insensitive) to a Key
func ParseKey(name string) (Key, error) {
	if k, ok := keysByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return KeyUnknown, errors.Errorf("unknown key %q", name)
}

// FunctionKeyIndex returns 0 for F1 through 11 for F12, or -1
func (k Key) FunctionKeyIndex() int {
	if k < KeyF1 || k > KeyF12 {
		return -1
	}
	return int(k - KeyF1)
}

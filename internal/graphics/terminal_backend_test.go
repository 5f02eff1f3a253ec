package graphics

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeKeys(t *testing.T) {
	key := func(k Key, mods ModifierKey) InputEvent {
		return InputEvent{Type: InputEventTypeKey, Key: k, Pressed: true, Modifiers: mods}
	}

	tests := []struct {
		name string
		in   []byte
		want []InputEvent
	}{
		{"arrows", []byte("\x1b[A\x1b[D"), []InputEvent{key(KeyUp, 0), key(KeyLeft, 0)}},
		{"lone escape", []byte{0x1b}, []InputEvent{key(KeyEscape, 0)}},
		{"letters", []byte("jK"), []InputEvent{key(KeyJ, 0), key(KeyK, ModifierShift)}},
		{"enter and space", []byte("\r "), []InputEvent{key(KeyEnter, 0), key(KeySpace, 0)}},
		{"digit", []byte("5"), []InputEvent{key(Key5, 0)}},
		{"backspace", []byte{0x7f}, []InputEvent{key(KeyBackspace, 0)}},
		{"ctrl-d quits", []byte{0x04}, []InputEvent{{Type: InputEventTypeQuit}}},
		{"ignored", []byte{0x01, '~'}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeKeys(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decodeKeys(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTerminalWindow_ShouldSynthesiseRelease(t *testing.T) {
	w := &TerminalWindow{running: true, held: map[Key]int{KeyJ: 2}}

	if events := w.PollEvents(); len(events) != 0 {
		t.Fatalf("First poll = %+v, want no events", events)
	}
	events := w.PollEvents()
	want := []InputEvent{{Type: InputEventTypeKey, Key: KeyJ, Pressed: false}}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("Second poll = %+v, want %+v", events, want)
	}
	if len(w.held) != 0 {
		t.Errorf("held = %v, want empty", w.held)
	}
}

func TestRenderHalfBlocks(t *testing.T) {
	var frame Frame
	for i := range frame {
		frame[i] = 0x102030
	}

	var buf bytes.Buffer
	if err := renderHalfBlocks(&buf, frame); err != nil {
		t.Fatalf("renderHalfBlocks: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "\x1b[H") {
		t.Error("Output should start by homing the cursor")
	}
	if got := strings.Count(out, "\r\n"); got != FrameHeight/4 {
		t.Errorf("rows = %d, want %d", got, FrameHeight/4)
	}
	if got := strings.Count(out, "▀"); got != FrameWidth/2*FrameHeight/4 {
		t.Errorf("cells = %d, want %d", got, FrameWidth/2*FrameHeight/4)
	}
	// Colours are re-sent once per row only
	if got := strings.Count(out, "\x1b[38;2;16;32;48m"); got != FrameHeight/4 {
		t.Errorf("foreground changes = %d, want %d", got, FrameHeight/4)
	}
}

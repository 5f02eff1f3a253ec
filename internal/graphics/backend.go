// Package graphics provides the presentation backends for the emulator:
// an Ebitengine window, a headless frame dumper and a terminal renderer.
package graphics

import (
	"github.com/pkg/errors"
)

// NES picture size
const (
	FrameWidth  = 256
	FrameHeight = 240
)

// Frame is one picture in packed 0xRRGGBB pixels, row major
type Frame = [FrameWidth * FrameHeight]uint32

// Backend represents a graphics rendering backend
type Backend interface {
	// Initialize prepares the backend; it may only be called once
	Initialize(config Config) error

	// CreateWindow creates the output surface
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if nothing is shown to the user
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window represents a rendering surface
type Window interface {
	SetTitle(title string)
	GetSize() (width, height int)
	ShouldClose() bool

	// SwapBuffers presents the rendered frame
	SwapBuffers()

	// PollEvents returns the input events since the last call
	PollEvents() []InputEvent

	// RenderFrame renders a NES picture to the window
	RenderFrame(frame Frame) error

	Cleanup() error
}

// Runner is implemented by windows that own the main loop and call back
// into the emulator once per frame
type Runner interface {
	SetEmulatorUpdateFunc(updateFunc func() error)
	Run() error
}

// Config contains configuration for graphics backends
type Config struct {
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool
	Filter       string // "nearest", "linear"

	Headless bool
	Debug    bool

	// Headless frame dumps
	DumpDirectory string
	DumpFrames    []int // 1-based frame numbers to write
	DumpEvery     int   // write every Nth frame when > 0
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type      InputEventType
	Key       Key
	Pressed   bool
	Modifiers ModifierKey
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeQuit
)

// ModifierKey represents modifier keys held during a key event
type ModifierKey int

const (
	ModifierNone  ModifierKey = 0
	ModifierShift ModifierKey = 1 << iota
	ModifierCtrl
	ModifierAlt
)

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine:
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	}
	return nil, errors.Errorf("unknown graphics backend %q", backendType)
}

// unpack splits a packed pixel into its components
func unpack(pixel uint32) (r, g, b uint8) {
	return uint8(pixel >> 16), uint8(pixel >> 8), uint8(pixel)
}

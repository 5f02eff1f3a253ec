//go:build !headless
// +build !headless

package graphics

import (
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/pkg/errors"
)

// ebitenKeys maps Ebitengine keys to backend keys
var ebitenKeys = map[ebiten.Key]Key{
	ebiten.KeyEscape:       KeyEscape,
	ebiten.KeyEnter:        KeyEnter,
	ebiten.KeySpace:        KeySpace,
	ebiten.KeyTab:          KeyTab,
	ebiten.KeyBackspace:    KeyBackspace,
	ebiten.KeyArrowUp:      KeyUp,
	ebiten.KeyArrowDown:    KeyDown,
	ebiten.KeyArrowLeft:    KeyLeft,
	ebiten.KeyArrowRight:   KeyRight,
	ebiten.KeyShiftLeft:    KeyLeftShift,
	ebiten.KeyShiftRight:   KeyRightShift,
	ebiten.KeyControlLeft:  KeyLeftControl,
	ebiten.KeyControlRight: KeyRightControl,
	ebiten.KeyA:            KeyA,
	ebiten.KeyB:            KeyB,
	ebiten.KeyC:            KeyC,
	ebiten.KeyD:            KeyD,
	ebiten.KeyE:            KeyE,
	ebiten.KeyF:            KeyF,
	ebiten.KeyG:            KeyG,
	ebiten.KeyH:            KeyH,
	ebiten.KeyI:            KeyI,
	ebiten.KeyJ:            KeyJ,
	ebiten.KeyK:            KeyK,
	ebiten.KeyL:            KeyL,
	ebiten.KeyM:            KeyM,
	ebiten.KeyN:            KeyN,
	ebiten.KeyO:            KeyO,
	ebiten.KeyP:            KeyP,
	ebiten.KeyQ:            KeyQ,
	ebiten.KeyR:            KeyR,
	ebiten.KeyS:            KeyS,
	ebiten.KeyT:            KeyT,
	ebiten.KeyU:            KeyU,
	ebiten.KeyV:            KeyV,
	ebiten.KeyW:            KeyW,
	ebiten.KeyX:            KeyX,
	ebiten.KeyY:            KeyY,
	ebiten.KeyZ:            KeyZ,
	ebiten.KeyDigit0:       Key0,
	ebiten.KeyDigit1:       Key1,
	ebiten.KeyDigit2:       Key2,
	ebiten.KeyDigit3:       Key3,
	ebiten.KeyDigit4:       Key4,
	ebiten.KeyDigit5:       Key5,
	ebiten.KeyDigit6:       Key6,
	ebiten.KeyDigit7:       Key7,
	ebiten.KeyDigit8:       Key8,
	ebiten.KeyDigit9:       Key9,
	ebiten.KeyF1:           KeyF1,
	ebiten.KeyF2:           KeyF2,
	ebiten.KeyF3:           KeyF3,
	ebiten.KeyF4:           KeyF4,
	ebiten.KeyF5:           KeyF5,
	ebiten.KeyF6:           KeyF6,
	ebiten.KeyF7:           KeyF7,
	ebiten.KeyF8:           KeyF8,
	ebiten.KeyF9:           KeyF9,
	ebiten.KeyF10:          KeyF10,
	ebiten.KeyF11:          KeyF11,
	ebiten.KeyF12:          KeyF12,
}

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
}

// EbitengineWindow implements Window and Runner for Ebitengine
type EbitengineWindow struct {
	title   string
	width   int
	height  int
	game    *ebitengineGame
	running bool
	events  []InputEvent

	emulatorUpdateFunc func() error
}

// ebitengineGame implements ebiten.Game
type ebitengineGame struct {
	window     *EbitengineWindow
	frameImage *ebiten.Image
	pixels     []byte
	drawCount  int
	debug      bool
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return errors.New("Ebitengine backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow configures the Ebitengine window. Nothing is shown until Run.
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, errors.New("backend not initialized")
	}
	if b.config.Headless {
		return nil, errors.New("cannot create window in headless mode")
	}

	window := &EbitengineWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
	}
	window.game = &ebitengineGame{
		window:     window,
		frameImage: ebiten.NewImage(FrameWidth, FrameHeight),
		pixels:     make([]byte, FrameWidth*FrameHeight*4),
		debug:      b.config.Debug,
	}

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	ebiten.SetFullscreen(b.config.Fullscreen)
	ebiten.SetScreenFilterEnabled(b.config.Filter == "linear")

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers is handled by Ebitengine
func (w *EbitengineWindow) SwapBuffers() {}

// PollEvents returns the events collected since the last call
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame uploads a NES picture to the window texture
func (w *EbitengineWindow) RenderFrame(frame Frame) error {
	if w.game == nil {
		return errors.New("game not initialized")
	}

	pix := w.game.pixels
	for i, pixel := range frame {
		pix[i*4], pix[i*4+1], pix[i*4+2] = unpack(pixel)
		pix[i*4+3] = 0xFF
	}
	w.game.frameImage.WritePixels(pix)
	return nil
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop and blocks until the window closes
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return errors.New("game not initialized")
	}
	err := ebiten.RunGame(w.game)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// SetEmulatorUpdateFunc sets the function called once per tick
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// Update implements ebiten.Game
func (g *ebitengineGame) Update() error {
	g.collectInput()

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			log.Printf("[Ebitengine] Emulator update error: %v", err)
			return err
		}
	}
	if !g.window.running {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game; the picture is scaled to fit and centred
func (g *ebitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale := float64(sw) / FrameWidth
	if s := float64(sh) / FrameHeight; s < scale {
		scale = s
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate((float64(sw)-FrameWidth*scale)/2, (float64(sh)-FrameHeight*scale)/2)
	screen.DrawImage(g.frameImage, op)

	g.drawCount++
	if g.debug && g.drawCount%1800 == 0 {
		log.Printf("[Ebitengine] frame %d drawn at %.2fx", g.drawCount, scale)
	}
}

// Layout implements ebiten.Game
func (g *ebitengineGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.window.width, g.window.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// collectInput queues key transitions since the previous tick
func (g *ebitengineGame) collectInput() {
	var mods ModifierKey
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModifierShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModifierCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModifierAlt
	}

	for ek, key := range ebitenKeys {
		switch {
		case inpututil.IsKeyJustPressed(ek):
			g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: true, Modifiers: mods})
		case inpututil.IsKeyJustReleased(ek):
			g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: false, Modifiers: mods})
		}
	}
}

// AsEbitengineWindow tries to cast a Window to EbitengineWindow
func AsEbitengineWindow(window Window) (*EbitengineWindow, bool) {
	w, ok := window.(*EbitengineWindow)
	return w, ok
}

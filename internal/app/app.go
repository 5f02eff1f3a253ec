package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/console"
	"nescore/internal/graphics"
	"nescore/internal/input"
)

// Application represents the main NES emulator application
type Application struct {
	console *console.Console

	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor

	config   *Config
	emulator *Emulator
	states   *StateManager
	options  Options

	// Player 1 and 2 key bindings
	bindings [2]map[graphics.Key]input.Button

	// Control flags
	running     bool
	paused      bool
	initialized bool

	// Performance tracking
	frameCount      uint64
	startTime       time.Time
	lastFPSTime     time.Time
	framesAtLastFPS uint64
	currentFPS      float64

	romPath string

	// Called with every emulated frame before it is presented
	frameHook func(*graphics.Frame) error

	// ESC must be pressed twice to quit
	lastESCTime time.Time
}

// Options select how the application presents frames
type Options struct {
	Headless bool

	// Headless runs stop after this many frames when > 0
	MaxFrames int

	DumpDirectory string
	DumpFrames    []int
	DumpEvery     int
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplicationWithOptions creates a new NES emulator application
func NewApplicationWithOptions(configPath string, opts Options) (*Application, error) {
	app := &Application{
		config:      NewConfig(),
		options:     opts,
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
	}

	if configPath != "" {
		if err := app.config.LoadFromFile(configPath); err != nil {
			log.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v", configPath, err)
			app.config = NewConfig()
		}
	}

	if err := app.initializeComponents(); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "component setup",
			Err:       err,
		}
	}

	return app, nil
}

func (app *Application) initializeComponents() error {
	for player, mapping := range []KeyMapping{app.config.Input.Player1Keys, app.config.Input.Player2Keys} {
		bindings, err := mapping.Bindings()
		if err != nil {
			return errors.Wrapf(err, "player %d key bindings", player+1)
		}
		app.bindings[player] = bindings
	}

	app.console = console.New()

	if err := app.initializeGraphicsBackend(); err != nil {
		return errors.Wrap(err, "initialize graphics backend")
	}

	app.emulator = NewEmulator(app.console, app.config)
	app.states = NewStateManager(app.config.Paths.SaveStates)
	app.states.SetMaxSlots(app.config.Emulation.SaveStateSlots)

	app.initialized = true
	return nil
}

// initializeGraphicsBackend creates the configured backend, falling back to
// headless when the window system is unavailable
func (app *Application) initializeGraphicsBackend() error {
	backendType := graphics.BackendType(app.config.Video.Backend)
	if app.options.Headless {
		backendType = graphics.BackendHeadless
	}

	graphicsConfig := graphics.Config{
		WindowTitle:   "nescore",
		WindowWidth:   app.config.Window.Width,
		WindowHeight:  app.config.Window.Height,
		Fullscreen:    app.config.Window.Fullscreen,
		VSync:         app.config.Video.VSync,
		Filter:        app.config.Video.Filter,
		Headless:      backendType == graphics.BackendHeadless,
		Debug:         app.config.Debug.EnableLogging,
		DumpDirectory: app.options.DumpDirectory,
		DumpFrames:    app.options.DumpFrames,
		DumpEvery:     app.options.DumpEvery,
	}
	if graphicsConfig.DumpDirectory == "" {
		graphicsConfig.DumpDirectory = app.config.Paths.Screenshots
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return err
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		if backendType != graphics.BackendEbitengine {
			return err
		}
		log.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode", err)
		app.options.Headless = true
		app.graphicsBackend = graphics.NewHeadlessBackend()
		graphicsConfig.Headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return errors.Wrap(err, "initialize fallback headless backend")
		}
	}

	app.window, err = app.graphicsBackend.CreateWindow(
		graphicsConfig.WindowTitle,
		graphicsConfig.WindowWidth,
		graphicsConfig.WindowHeight,
	)
	if err != nil {
		return errors.Wrap(err, "create window")
	}

	app.videoProcessor = graphics.NewVideoProcessor(
		app.config.Video.Brightness,
		app.config.Video.Contrast,
		app.config.Video.Saturation,
	)
	return nil
}

// LoadROM loads a ROM file into the emulator. Battery RAM saved by an
// earlier session is restored when enabled.
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	if err := app.console.LoadFile(romPath); err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}
	app.romPath = romPath

	if app.config.Emulation.BatterySaves {
		if err := LoadBattery(app.console.Cartridge(), app.batteryPath()); err != nil {
			log.Printf("[APP_WARNING] Battery RAM not restored: %v", err)
		}
	}

	app.window.SetTitle(fmt.Sprintf("nescore - %s", filepath.Base(romPath)))
	app.emulator.Reset()
	app.emulator.Start()
	return nil
}

// Run starts the main application loop. Windows that own the main loop
// call back once per frame; otherwise frames are paced here, or run
// unthrottled when headless.
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	app.running = true
	app.startTime = time.Now()
	app.lastFPSTime = app.startTime

	if app.config.Debug.EnableLogging {
		log.Printf("[APP_DEBUG] Starting emulator with %s backend", app.graphicsBackend.GetName())
	}

	if runner, ok := app.window.(graphics.Runner); ok {
		runner.SetEmulatorUpdateFunc(func() error {
			if err := app.tick(); err != nil {
				log.Printf("[APP_ERROR] %v", err)
			}
			if !app.running {
				return app.window.Cleanup()
			}
			return nil
		})
		return runner.Run()
	}

	for app.running {
		frameStart := time.Now()
		if err := app.tick(); err != nil {
			if app.options.Headless {
				app.Stop()
				return err
			}
			log.Printf("[APP_ERROR] %v", err)
		}

		if app.options.Headless {
			continue
		}
		if d := app.emulator.TargetFrameTime() - time.Since(frameStart); d > 0 {
			time.Sleep(d)
		}
	}

	if app.config.Debug.EnableLogging {
		log.Printf("[APP_DEBUG] Emulator main loop ended after %d frames", app.frameCount)
	}
	return nil
}

// tick processes input, emulates one frame and presents it
func (app *Application) tick() error {
	if err := app.processInput(); err != nil {
		return errors.Wrap(err, "input")
	}

	if err := app.updateEmulator(); err != nil {
		// The faulting frame is still shown
		app.render()
		return errors.Wrap(err, "emulator")
	}
	if app.frameHook != nil && app.romPath != "" && !app.paused && app.emulator.IsRunning() {
		if err := app.frameHook(app.emulator.FrameBuffer()); err != nil {
			return errors.Wrap(err, "frame hook")
		}
	}

	if err := app.render(); err != nil {
		return errors.Wrap(err, "render")
	}

	app.updatePerformanceMetrics()
	if app.window.ShouldClose() {
		app.Stop()
	}
	if app.options.MaxFrames > 0 && app.frameCount >= uint64(app.options.MaxFrames) {
		app.Stop()
	}
	return nil
}

func (app *Application) updateEmulator() error {
	if app.paused || app.romPath == "" {
		return nil
	}
	return app.emulator.Update()
}

// processInput routes window events to the controllers and hotkeys
func (app *Application) processInput() error {
	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
			return nil

		case graphics.InputEventTypeKey:
			if app.handleSpecialInput(event) {
				continue
			}
			app.handleControllerKey(event)
		}
	}
	return nil
}

// handleControllerKey presses or releases every button bound to the key
func (app *Application) handleControllerKey(event graphics.InputEvent) {
	for player, bindings := range app.bindings {
		if button, ok := bindings[event.Key]; ok {
			app.console.SetButton(player+1, button, event.Pressed)
		}
	}
}

// handleSpecialInput handles hotkeys: ESC twice within 3 seconds quits,
// F1-F10 save a state and Shift+F1-F10 load one, P toggles pause and
// Backspace resets
func (app *Application) handleSpecialInput(event graphics.InputEvent) bool {
	if !event.Pressed {
		return false
	}

	if event.Key == graphics.KeyEscape {
		now := time.Now()
		if !app.lastESCTime.IsZero() && now.Sub(app.lastESCTime) < 3*time.Second {
			log.Printf("[APP] ESC double-tap confirmed, shutting down")
			app.Stop()
		} else {
			log.Printf("[APP] ESC pressed, press again within 3 seconds to quit")
			app.lastESCTime = now
		}
		return true
	}
	app.lastESCTime = time.Time{}

	if slot := event.Key.FunctionKeyIndex(); slot >= 0 && slot < 10 {
		if event.Modifiers&graphics.ModifierShift != 0 {
			if err := app.LoadState(slot); err != nil {
				log.Printf("[APP_ERROR] Failed to load state %d: %v", slot, err)
			}
		} else if err := app.SaveState(slot); err != nil {
			log.Printf("[APP_ERROR] Failed to save state %d: %v", slot, err)
		}
		return true
	}

	if event.Modifiers&graphics.ModifierCtrl == 0 {
		return false
	}
	switch event.Key {
	case graphics.KeyP:
		app.TogglePause()
		return true
	case graphics.KeyR:
		app.Reset()
		return true
	}
	return false
}

// render presents the last completed frame
func (app *Application) render() error {
	if app.romPath == "" {
		return nil
	}

	frame := *app.emulator.FrameBuffer()
	app.videoProcessor.ProcessFrame(&frame)
	if err := app.window.RenderFrame(frame); err != nil {
		return errors.Wrap(err, "render NES frame")
	}
	app.window.SwapBuffers()
	return nil
}

func (app *Application) updatePerformanceMetrics() {
	app.frameCount++

	now := time.Now()
	elapsed := now.Sub(app.lastFPSTime)
	if elapsed < time.Second {
		return
	}
	app.currentFPS = float64(app.frameCount-app.framesAtLastFPS) / elapsed.Seconds()
	app.framesAtLastFPS = app.frameCount
	app.lastFPSTime = now

	if app.config.Debug.ShowFPS {
		stats := app.emulator.Stats()
		log.Printf("[FPS] %.1f fps, emulation %v, jitter %v", app.currentFPS, stats.EmulationTime, stats.FrameJitter)
	}
}

// SetFrameHook installs fn to observe each emulated frame; nil removes it
func (app *Application) SetFrameHook(fn func(*graphics.Frame) error) {
	app.frameHook = fn
}

// Stop stops the application
func (app *Application) Stop() {
	app.running = false
}

// Pause pauses the emulator
func (app *Application) Pause() {
	app.paused = true
}

// Resume resumes the emulator
func (app *Application) Resume() {
	app.paused = false
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	app.paused = !app.paused
}

// SaveState saves the current emulator state
func (app *Application) SaveState(slot int) error {
	if app.romPath == "" {
		return errors.New("no ROM loaded")
	}
	return app.states.SaveState(app.console, slot, app.romPath)
}

// LoadState loads a saved emulator state
func (app *Application) LoadState(slot int) error {
	if app.romPath == "" {
		return errors.New("no ROM loaded")
	}
	return app.states.LoadState(app.console, slot, app.romPath)
}

// Reset resets the emulator; a CPU fault is cleared
func (app *Application) Reset() {
	app.emulator.Reset()
	if app.romPath != "" {
		app.emulator.Start()
	}
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.paused
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the number of frames presented
func (app *Application) GetFrameCount() uint64 {
	return app.frameCount
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the currently loaded ROM path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetConsole returns the emulated machine
func (app *Application) GetConsole() *console.Console {
	return app.console
}

// GetEmulator returns the frame loop driver
func (app *Application) GetEmulator() *Emulator {
	return app.emulator
}

// GetWindow returns the presentation window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// ApplyDebugSettings applies the debug config and the NESCORE_DEBUG_*
// environment switches to the console
func (app *Application) ApplyDebugSettings() {
	dbg := app.config.Debug

	app.console.EnableDebug(dbg.PPUDebugging || os.Getenv("NESCORE_DEBUG_PPU") == "1")
	if dbg.CPUTracing || os.Getenv("NESCORE_DEBUG_CPU") == "1" {
		app.console.EnableCPUTrace(true)
		log.Printf("[DEBUG] CPU tracing enabled; expect a large slowdown")
	}
	for _, addr := range dbg.Watchpoints {
		app.console.Watch(addr)
	}
	if dbg.EnableLogging && len(dbg.Watchpoints) > 0 {
		log.Printf("[DEBUG] Watching %d addresses", len(dbg.Watchpoints))
	}
}

func (app *Application) batteryPath() string {
	return BatteryPath(app.config.Paths.SaveData, app.romPath)
}

// Cleanup writes battery RAM and releases all resources
func (app *Application) Cleanup() error {
	var lastErr error

	if app.romPath != "" {
		if app.config.Emulation.AutoSave {
			if err := app.SaveState(app.states.GetMaxSlots() - 1); err != nil {
				lastErr = err
				log.Printf("[APP_ERROR] Auto save failed: %v", err)
			}
		}
		if app.config.Emulation.BatterySaves {
			if err := SaveBattery(app.console.Cartridge(), app.batteryPath()); err != nil {
				lastErr = err
				log.Printf("[APP_ERROR] Battery save failed: %v", err)
			}
		}
	}

	if app.states != nil {
		if err := app.states.Cleanup(); err != nil {
			lastErr = err
		}
	}
	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP_ERROR] Window cleanup error: %v", err)
		}
	}
	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP_ERROR] Graphics backend cleanup error: %v", err)
		}
	}

	app.initialized = false
	return lastErr
}

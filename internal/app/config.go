// Package app ties the emulator core to a graphics backend, configuration
// and save files.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"nescore/internal/graphics"
	"nescore/internal/input"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	Scale      int  `json:"scale"` // NES resolution multiplier
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	VSync      bool    `json:"vsync"`
	Filter     string  `json:"filter"`  // "nearest", "linear"
	Backend    string  `json:"backend"` // "ebitengine", "headless", "terminal"
	Brightness float32 `json:"brightness"`
	Contrast   float32 `json:"contrast"`
	Saturation float32 `json:"saturation"`
}

// InputConfig contains keyboard mappings for both controllers
type InputConfig struct {
	Player1Keys KeyMapping `json:"player1_keys"`
	Player2Keys KeyMapping `json:"player2_keys"`
}

// KeyMapping maps NES controller buttons to keyboard key names
type KeyMapping struct {
	Up     string `json:"up"`
	Down   string `json:"down"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	A      string `json:"a"`
	B      string `json:"b"`
	Start  string `json:"start"`
	Select string `json:"select"`
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	FrameRate      float64 `json:"frame_rate"`       // Target frame rate
	SaveStateSlots int     `json:"save_state_slots"` // Number of save state slots
	BatterySaves   bool    `json:"battery_saves"`    // Persist battery RAM under Paths.SaveData
	AutoSave       bool    `json:"auto_save"`        // Save state to the last slot on exit
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	ShowFPS       bool     `json:"show_fps"`
	EnableLogging bool     `json:"enable_logging"`
	CPUTracing    bool     `json:"cpu_tracing"`
	PPUDebugging  bool     `json:"ppu_debugging"`
	Watchpoints   []uint16 `json:"watchpoints"` // CPU addresses logged when they change
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	SaveData    string `json:"save_data"`
	SaveStates  string `json:"save_states"`
	Screenshots string `json:"screenshots"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  768,
			Height: 720,
			Scale:  3,
		},
		Video: VideoConfig{
			VSync:      true,
			Filter:     "nearest",
			Backend:    string(graphics.BackendEbitengine),
			Brightness: 1.0,
			Contrast:   1.0,
			Saturation: 1.0,
		},
		Input: InputConfig{
			Player1Keys: KeyMapping{
				Up:     "W",
				Down:   "S",
				Left:   "A",
				Right:  "D",
				A:      "J",
				B:      "K",
				Start:  "Enter",
				Select: "Space",
			},
			Player2Keys: KeyMapping{
				Up:     "Up",
				Down:   "Down",
				Left:   "Left",
				Right:  "Right",
				A:      "N",
				B:      "M",
				Start:  "RightShift",
				Select: "RightControl",
			},
		},
		Emulation: EmulationConfig{
			FrameRate:      60.0,
			SaveStateSlots: 10,
			BatterySaves:   true,
		},
		Paths: PathsConfig{
			SaveData:    "./saves",
			SaveStates:  "./states",
			Screenshots: "./screenshots",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. A missing file is
// created with the current values.
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := json.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, "parse config file")
	}
	if err := c.validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if err := c.createDirectories(); err != nil {
		return err
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "write config file")
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the file it was loaded from
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("no config file path set")
	}
	return c.SaveToFile(c.configPath)
}

// validate rejects settings that cannot work and resets out of range
// tuning values to their defaults
func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return &ConfigError{
			Field: "window",
			Value: fmt.Sprintf("%dx%d", c.Window.Width, c.Window.Height),
			Err:   errors.New("dimensions must be positive"),
		}
	}
	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}

	switch graphics.BackendType(c.Video.Backend) {
	case graphics.BackendEbitengine, graphics.BackendHeadless, graphics.BackendTerminal:
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: errors.New("unknown backend")}
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}
	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}
	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}

	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = 60.0
	}
	if c.Emulation.SaveStateSlots <= 0 {
		c.Emulation.SaveStateSlots = 10
	}

	for player, mapping := range []KeyMapping{c.Input.Player1Keys, c.Input.Player2Keys} {
		if _, err := mapping.Bindings(); err != nil {
			return &ConfigError{Field: fmt.Sprintf("input.player%d_keys", player+1), Value: mapping, Err: err}
		}
	}
	return nil
}

// createDirectories creates the save and screenshot directories
func (c *Config) createDirectories() error {
	for _, dir := range []string{c.Paths.SaveData, c.Paths.SaveStates, c.Paths.Screenshots} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}
	return nil
}

// Bindings resolves the key names into a key to button table. Empty names
// leave a button unbound.
func (m KeyMapping) Bindings() (map[graphics.Key]input.Button, error) {
	pairs := []struct {
		name   string
		button input.Button
	}{
		{m.A, input.ButtonA},
		{m.B, input.ButtonB},
		{m.Select, input.ButtonSelect},
		{m.Start, input.ButtonStart},
		{m.Up, input.ButtonUp},
		{m.Down, input.ButtonDown},
		{m.Left, input.ButtonLeft},
		{m.Right, input.ButtonRight},
	}

	bindings := make(map[graphics.Key]input.Button, len(pairs))
	for _, p := range pairs {
		if strings.TrimSpace(p.name) == "" {
			continue
		}
		key, err := graphics.ParseKey(p.name)
		if err != nil {
			return nil, errors.Wrapf(err, "button %s", p.button)
		}
		bindings[key] = p.button
	}
	return bindings, nil
}

// WindowResolution returns the window size for the configured scale
func (c *Config) WindowResolution() (int, int) {
	return 256 * c.Window.Scale, 240 * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// ConfigPath returns the path to the config file
func (c *Config) ConfigPath() string {
	return c.configPath
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	return "./config/nescore.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

package app

import (
	"os"
	"path/filepath"
	"testing"

	"nescore/internal/cartridge"
	"nescore/internal/console"
)

// idleROM spins on JMP $8000
func idleROM() *cartridge.ROMBuilder {
	return cartridge.NewROMBuilder().WithCode(0x8000, 0x4C, 0x00, 0x80)
}

// faultROM executes one NOP and then an unknown opcode
func faultROM() *cartridge.ROMBuilder {
	return cartridge.NewROMBuilder().WithCode(0x8000, 0xEA, 0x02)
}

// writeROM stores the image under dir and returns its path
func writeROM(t *testing.T, dir, name string, rom *cartridge.ROMBuilder) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, rom.Build(), 0644); err != nil {
		t.Fatalf("write ROM: %v", err)
	}
	return path
}

// newLoadedConsole returns a console running the ROM at path
func newLoadedConsole(t *testing.T, path string) *console.Console {
	t.Helper()
	c := console.New()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return c
}

// testConfig returns defaults with every path inside dir
func testConfig(dir string) *Config {
	cfg := NewConfig()
	cfg.Video.Backend = "headless"
	cfg.Paths = PathsConfig{
		SaveData:    filepath.Join(dir, "saves"),
		SaveStates:  filepath.Join(dir, "states"),
		Screenshots: filepath.Join(dir, "shots"),
	}
	return cfg
}

// writeConfig stores cfg under dir and returns its path
func writeConfig(t *testing.T, dir string, cfg *Config) string {
	t.Helper()
	path := filepath.Join(dir, "config", "nescore.json")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}
	return path
}

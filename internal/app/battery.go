package app

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"nescore/internal/cartridge"
)

// BatteryPath returns where battery RAM for romPath is kept
func BatteryPath(saveDirectory, romPath string) string {
	return filepath.Join(saveDirectory, romBaseName(romPath)+".sav")
}

// LoadBattery fills the cartridge's battery RAM from path. A missing file
// is not an error; the game simply starts without a save.
func LoadBattery(cart *cartridge.Cartridge, path string) error {
	if !cart.HasBattery() {
		return nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "open battery file")
	}
	defer f.Close()
	return cart.LoadBattery(f)
}

// SaveBattery writes the cartridge's battery RAM to path
func SaveBattery(cart *cartridge.Cartridge, path string) error {
	if !cart.HasBattery() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create save data directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create battery file")
	}
	if err := cart.SaveBattery(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close battery file")
}

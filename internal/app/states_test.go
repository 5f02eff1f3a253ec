package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestStateManager_SaveLoadShouldRestoreMachine(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir, "idle.nes", idleROM())
	c := newLoadedConsole(t, romPath)
	sm := NewStateManager(filepath.Join(dir, "states"))

	if err := c.RunCycles(5000); err != nil {
		t.Fatalf("RunCycles: %v", err)
	}
	c.Bus.Write(0x0042, 0x99, false)
	want := c.Snapshot()

	if err := sm.SaveState(c, 1, romPath); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if !sm.HasSaveState(1, romPath) {
		t.Fatal("HasSaveState(1) = false after save")
	}

	if err := c.RunFrames(2); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	c.Bus.Write(0x0042, 0x00, false)

	if err := sm.LoadState(c, 1, romPath); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got := c.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Restored machine differs from saved one:\n got CPU %+v\nwant CPU %+v", got.CPU, want.CPU)
	}
}

func TestStateManager_Errors(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir, "idle.nes", idleROM())
	c := newLoadedConsole(t, romPath)
	sm := NewStateManager(filepath.Join(dir, "states"))

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"save negative slot", func() error { return sm.SaveState(c, -1, romPath) }, ErrInvalidSlot},
		{"load slot past end", func() error { return sm.LoadState(c, 10, romPath) }, ErrInvalidSlot},
		{"load empty slot", func() error { return sm.LoadState(c, 3, romPath) }, ErrNoSaveState},
		{"delete empty slot", func() error { return sm.DeleteState(3, romPath) }, ErrNoSaveState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStateManager_ImportFromOtherROMShouldFail(t *testing.T) {
	dir := t.TempDir()
	romA := writeROM(t, dir, "a.nes", idleROM())
	romB := writeROM(t, dir, "b.nes", idleROM().WithCode(0x8003, 0xEA))
	c := newLoadedConsole(t, romA)
	sm := NewStateManager(filepath.Join(dir, "states"))

	exported := filepath.Join(dir, "export.json")
	if err := sm.ExportState(c, exported, romA); err != nil {
		t.Fatalf("ExportState: %v", err)
	}
	before := c.Snapshot()

	if err := sm.ImportState(c, exported, romB); !errors.Is(err, ErrROMMismatch) {
		t.Errorf("ImportState error = %v, want ErrROMMismatch", err)
	}
	if !reflect.DeepEqual(c.Snapshot(), before) {
		t.Error("Failed import changed the machine")
	}
	if err := sm.ImportState(c, exported, romA); err != nil {
		t.Errorf("ImportState with the right ROM: %v", err)
	}
}

func TestStateManager_MovedROMShouldKeepStates(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir, "game.nes", idleROM())
	c := newLoadedConsole(t, romPath)
	sm := NewStateManager(filepath.Join(dir, "states"))
	if err := sm.SaveState(c, 0, romPath); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	moved := filepath.Join(dir, "roms", "game.nes")
	if err := os.MkdirAll(filepath.Dir(moved), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(romPath, moved); err != nil {
		t.Fatal(err)
	}
	if err := sm.LoadState(c, 0, moved); err != nil {
		t.Errorf("LoadState after move: %v", err)
	}
}

func TestStateManager_SlotInfoAndStats(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir, "idle.nes", idleROM())
	c := newLoadedConsole(t, romPath)
	sm := NewStateManager(filepath.Join(dir, "states"))
	sm.SetMaxSlots(4)

	for _, slot := range []int{0, 2} {
		if err := sm.SaveState(c, slot, romPath); err != nil {
			t.Fatalf("SaveState(%d): %v", slot, err)
		}
	}

	info := sm.GetSlotInfo(romPath)
	if len(info) != 4 {
		t.Fatalf("len(GetSlotInfo) = %d, want 4", len(info))
	}
	for i, slot := range info {
		used := i == 0 || i == 2
		if slot.Used != used || slot.SlotNumber != i {
			t.Errorf("slot %d: %+v", i, slot)
		}
		if used && (slot.ROMPath != romPath || slot.FileSize == 0) {
			t.Errorf("slot %d metadata: %+v", i, slot)
		}
	}

	stats := sm.GetStateManagerStats(romPath)
	if stats.UsedSlots != 2 || stats.FreeSlots != 2 || !stats.Initialized {
		t.Errorf("stats = %+v", stats)
	}

	if err := sm.DeleteState(2, romPath); err != nil {
		t.Fatalf("DeleteState: %v", err)
	}
	if sm.HasSaveState(2, romPath) {
		t.Error("Slot 2 still present after delete")
	}
}

func TestBattery_ShouldPersistAcrossCartridges(t *testing.T) {
	dir := t.TempDir()
	romPath := writeROM(t, dir, "zelda.nes", idleROM().WithBattery())
	c := newLoadedConsole(t, romPath)
	path := BatteryPath(filepath.Join(dir, "saves"), romPath)
	if filepath.Base(path) != "zelda.sav" {
		t.Errorf("BatteryPath = %s", path)
	}

	c.Bus.Write(0x6000, 0xA5, false)
	c.Bus.Write(0x7FFF, 0x5A, false)
	if err := SaveBattery(c.Cartridge(), path); err != nil {
		t.Fatalf("SaveBattery: %v", err)
	}

	fresh := newLoadedConsole(t, romPath)
	if err := LoadBattery(fresh.Cartridge(), path); err != nil {
		t.Fatalf("LoadBattery: %v", err)
	}
	if fresh.Bus.Read(0x6000, true) != 0xA5 || fresh.Bus.Read(0x7FFF, true) != 0x5A {
		t.Error("Battery RAM not restored")
	}
}

func TestBattery_WithoutBatteryOrFileShouldBeNoop(t *testing.T) {
	dir := t.TempDir()
	plain := newLoadedConsole(t, writeROM(t, dir, "plain.nes", idleROM()))
	path := filepath.Join(dir, "saves", "plain.sav")

	if err := SaveBattery(plain.Cartridge(), path); err != nil {
		t.Fatalf("SaveBattery: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Cartridge without battery should not write a save file")
	}

	backed := newLoadedConsole(t, writeROM(t, dir, "backed.nes", idleROM().WithBattery()))
	if err := LoadBattery(backed.Cartridge(), filepath.Join(dir, "missing.sav")); err != nil {
		t.Errorf("LoadBattery on a missing file: %v", err)
	}
}

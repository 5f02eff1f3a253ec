package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/console"
)

// SaveStateVersion identifies the save file layout
const SaveStateVersion = "1.0"

var (
	// ErrInvalidSlot is returned for slot numbers outside [0, MaxSlots)
	ErrInvalidSlot = errors.New("invalid save slot")
	// ErrNoSaveState is returned when a slot is empty
	ErrNoSaveState = errors.New("save state not found")
	// ErrROMMismatch is returned when a state was saved with another ROM
	ErrROMMismatch = errors.New("save state is for a different ROM")
)

// StateManager manages save states
type StateManager struct {
	saveDirectory string
	maxSlots      int
	initialized   bool

	// ROM path -> checksum
	checksums map[string]string
}

// SaveState is a saved emulator state with its metadata
type SaveState struct {
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	ROMChecksum string    `json:"rom_checksum"`
	SlotNumber  int       `json:"slot_number"`
	Description string    `json:"description"`

	FrameCount uint64 `json:"frame_count"`
	CycleCount uint64 `json:"cycle_count"`

	Machine console.Snapshot `json:"machine"`
}

// StateSlotInfo describes one save slot
type StateSlotInfo struct {
	SlotNumber  int       `json:"slot_number"`
	Used        bool      `json:"used"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
}

// StateManagerStats contains state manager statistics
type StateManagerStats struct {
	MaxSlots      int    `json:"max_slots"`
	UsedSlots     int    `json:"used_slots"`
	FreeSlots     int    `json:"free_slots"`
	TotalSize     int64  `json:"total_size"`
	SaveDirectory string `json:"save_directory"`
	Initialized   bool   `json:"initialized"`
}

// NewStateManager creates a new state manager with 10 slots
func NewStateManager(saveDirectory string) *StateManager {
	manager := &StateManager{
		saveDirectory: saveDirectory,
		maxSlots:      10,
		checksums:     make(map[string]string),
	}

	if err := manager.initialize(); err != nil {
		log.Printf("[STATES] Warning: state manager initialization failed: %v", err)
	}

	return manager
}

func (sm *StateManager) initialize() error {
	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return errors.Wrap(err, "create save directory")
	}
	sm.initialized = true
	return nil
}

// SaveState saves the console state to a slot
func (sm *StateManager) SaveState(c *console.Console, slot int, romPath string) error {
	if !sm.initialized {
		return errors.New("state manager not initialized")
	}
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	state, err := sm.capture(c, romPath)
	if err != nil {
		return err
	}
	state.SlotNumber = slot
	state.Description = fmt.Sprintf("Slot %d - %s", slot, state.Timestamp.Format("2006-01-02 15:04:05"))

	if err := sm.saveToFile(state, sm.getSlotFilePath(slot, romPath)); err != nil {
		return errors.Wrapf(err, "save slot %d", slot)
	}
	return nil
}

// LoadState restores the console from a slot. On error the console is
// unchanged.
func (sm *StateManager) LoadState(c *console.Console, slot int, romPath string) error {
	if !sm.initialized {
		return errors.New("state manager not initialized")
	}
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	filePath := sm.getSlotFilePath(slot, romPath)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.Wrapf(ErrNoSaveState, "slot %d", slot)
	}

	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "load slot %d", slot)
	}
	return sm.restore(c, state, romPath)
}

// ExportState writes the console state to an arbitrary file
func (sm *StateManager) ExportState(c *console.Console, filePath string, romPath string) error {
	state, err := sm.capture(c, romPath)
	if err != nil {
		return err
	}
	state.SlotNumber = -1
	state.Description = fmt.Sprintf("Export %s", state.Timestamp.Format("2006-01-02 15:04:05"))
	return sm.saveToFile(state, filePath)
}

// ImportState restores the console from a file written by ExportState
func (sm *StateManager) ImportState(c *console.Console, filePath string, romPath string) error {
	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return errors.Wrap(err, "import state")
	}
	return sm.restore(c, state, romPath)
}

func (sm *StateManager) capture(c *console.Console, romPath string) (*SaveState, error) {
	checksum, err := sm.romChecksum(romPath)
	if err != nil {
		return nil, err
	}
	return &SaveState{
		Version:     SaveStateVersion,
		Timestamp:   time.Now(),
		ROMPath:     romPath,
		ROMChecksum: checksum,
		FrameCount:  c.FrameCount(),
		CycleCount:  c.Cycles(),
		Machine:     c.Snapshot(),
	}, nil
}

func (sm *StateManager) restore(c *console.Console, state *SaveState, romPath string) error {
	if err := sm.validateSaveState(state, romPath); err != nil {
		return err
	}
	if err := c.Restore(state.Machine); err != nil {
		return errors.Wrap(err, "restore state")
	}
	return nil
}

func (sm *StateManager) saveToFile(state *SaveState, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrap(err, "create directory")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return errors.Wrap(err, "write file")
	}
	return nil
}

func (sm *StateManager) loadFromFile(filePath string) (*SaveState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "unmarshal state")
	}
	return &state, nil
}

// validateSaveState matches ROMs by content, so a moved ROM keeps its states
func (sm *StateManager) validateSaveState(state *SaveState, romPath string) error {
	if state.Version != SaveStateVersion {
		return errors.Errorf("unsupported save state version %q", state.Version)
	}
	checksum, err := sm.romChecksum(romPath)
	if err != nil {
		return err
	}
	if state.ROMChecksum != checksum {
		return errors.Wrapf(ErrROMMismatch, "saved with %s", filepath.Base(state.ROMPath))
	}
	return nil
}

func (sm *StateManager) checkSlot(slot int) error {
	if slot < 0 || slot >= sm.maxSlots {
		return errors.Wrapf(ErrInvalidSlot, "%d", slot)
	}
	return nil
}

func (sm *StateManager) getSlotFilePath(slot int, romPath string) string {
	return filepath.Join(sm.saveDirectory, fmt.Sprintf("%s_slot_%d.save", romBaseName(romPath), slot))
}

func (sm *StateManager) romChecksum(romPath string) (string, error) {
	if sum, ok := sm.checksums[romPath]; ok {
		return sum, nil
	}
	sum, err := ROMChecksum(romPath)
	if err != nil {
		return "", err
	}
	sm.checksums[romPath] = sum
	return sum, nil
}

// ROMChecksum returns the hex SHA-256 of the file at romPath
func ROMChecksum(romPath string) (string, error) {
	f, err := os.Open(romPath)
	if err != nil {
		return "", errors.Wrap(err, "open ROM for checksum")
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "hash ROM")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func romBaseName(romPath string) string {
	name := filepath.Base(romPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// GetSlotInfo returns information about all save slots
func (sm *StateManager) GetSlotInfo(romPath string) []StateSlotInfo {
	slots := make([]StateSlotInfo, sm.maxSlots)

	for i := range slots {
		slots[i].SlotNumber = i

		filePath := sm.getSlotFilePath(i, romPath)
		stat, err := os.Stat(filePath)
		if err != nil {
			continue
		}
		slots[i].Used = true
		slots[i].FilePath = filePath
		slots[i].FileSize = stat.Size()
		slots[i].Timestamp = stat.ModTime()

		if state, err := sm.loadFromFile(filePath); err == nil {
			slots[i].ROMPath = state.ROMPath
			slots[i].Description = state.Description
			slots[i].Timestamp = state.Timestamp
		}
	}

	return slots
}

// DeleteState deletes a save state from a slot
func (sm *StateManager) DeleteState(slot int, romPath string) error {
	if !sm.initialized {
		return errors.New("state manager not initialized")
	}
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	filePath := sm.getSlotFilePath(slot, romPath)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.Wrapf(ErrNoSaveState, "slot %d", slot)
	}
	if err := os.Remove(filePath); err != nil {
		return errors.Wrap(err, "delete save state")
	}
	return nil
}

// HasSaveState checks if a save state exists in a slot
func (sm *StateManager) HasSaveState(slot int, romPath string) bool {
	if sm.checkSlot(slot) != nil {
		return false
	}
	_, err := os.Stat(sm.getSlotFilePath(slot, romPath))
	return err == nil
}

// GetMaxSlots returns the maximum number of save slots
func (sm *StateManager) GetMaxSlots() int {
	return sm.maxSlots
}

// SetMaxSlots sets the maximum number of save slots
func (sm *StateManager) SetMaxSlots(slots int) {
	if slots > 0 {
		sm.maxSlots = slots
	}
}

// GetSaveDirectory returns the save directory path
func (sm *StateManager) GetSaveDirectory() string {
	return sm.saveDirectory
}

// Cleanup cleans up state manager resources
func (sm *StateManager) Cleanup() error {
	sm.initialized = false
	return nil
}

// GetStateManagerStats returns statistics about the state manager
func (sm *StateManager) GetStateManagerStats(romPath string) StateManagerStats {
	var usedSlots int
	var totalSize int64
	for _, slot := range sm.GetSlotInfo(romPath) {
		if slot.Used {
			usedSlots++
			totalSize += slot.FileSize
		}
	}

	return StateManagerStats{
		MaxSlots:      sm.maxSlots,
		UsedSlots:     usedSlots,
		FreeSlots:     sm.maxSlots - usedSlots,
		TotalSize:     totalSize,
		SaveDirectory: sm.saveDirectory,
		Initialized:   sm.initialized,
	}
}

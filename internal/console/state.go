package console

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"nescore/internal/bus"
	"nescore/internal/cpu"
	"nescore/internal/ppu"
)

// SnapshotVersion is bumped whenever Snapshot changes incompatibly
const SnapshotVersion = 1

// ErrSnapshotVersion is returned when restoring a snapshot from another format
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// Snapshot is the complete machine state apart from cartridge ROM
type Snapshot struct {
	Version    int          `json:"version"`
	CPU        cpu.State    `json:"cpu"`
	PPU        ppu.State    `json:"ppu"`
	Bus        bus.BusState `json:"bus"`
	SRAM       []uint8      `json:"sram"`
	CHRRAM     []uint8      `json:"chr_ram,omitempty"`
	NMIPending bool         `json:"nmi_pending"`
}

// Snapshot captures the machine state
func (c *Console) Snapshot() Snapshot {
	sram, chrRAM := c.Bus.Cart.Snapshot()
	return Snapshot{
		Version:    SnapshotVersion,
		CPU:        c.CPU.State(),
		PPU:        c.PPU.State(),
		Bus:        c.Bus.State(),
		SRAM:       sram,
		CHRRAM:     chrRAM,
		NMIPending: c.nmiPending,
	}
}

// Restore puts the machine back into a captured state. The snapshot is
// validated first; on error nothing is changed.
func (c *Console) Restore(s Snapshot) error {
	if s.Version != SnapshotVersion {
		return errors.Wrapf(ErrSnapshotVersion, "version %d", s.Version)
	}
	if err := c.PPU.SetState(s.PPU); err != nil {
		return errors.Wrap(err, "console: restore")
	}
	c.CPU.SetState(s.CPU)
	c.Bus.SetState(s.Bus)
	c.Bus.Cart.Restore(s.SRAM, s.CHRRAM)
	c.nmiPending = s.NMIPending
	return nil
}

// SaveState writes the machine state to w as JSON
func (c *Console) SaveState(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(c.Snapshot()); err != nil {
		return errors.Wrap(err, "console: encode state")
	}
	return nil
}

// LoadState reads a state written by SaveState
func (c *Console) LoadState(r io.Reader) error {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return errors.Wrap(err, "console: decode state")
	}
	return c.Restore(s)
}

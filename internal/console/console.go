// Package console wires the CPU, PPU, bus and cartridge into a runnable NES.
package console

import (
	"fmt"
	"io"
	"log"

	"github.com/pkg/errors"

	"nescore/internal/bus"
	"nescore/internal/cartridge"
	"nescore/internal/cpu"
	"nescore/internal/input"
	"nescore/internal/ppu"
)

const (
	// DMACycles is the CPU stall for an OAM DMA started on an even cycle;
	// an odd start costs one more.
	DMACycles = 513

	// CPUCyclesPerFrame is the approximate NTSC frame length
	// (89342 PPU dots / 3)
	CPUCyclesPerFrame = 29781
)

// Console connects all NES components together
type Console struct {
	CPU *cpu.CPU
	PPU *ppu.PPU
	Bus *bus.Bus

	frameBuffer ppu.FrameBuffer
	nmiPending  bool

	// Execution logging for tests and tracing
	executionLog   []ExecutionEvent
	loggingEnabled bool

	// Address -> last observed value
	watchpoints map[uint16]uint8
}

// New creates a console with an empty cartridge slot. Load a cartridge
// before stepping.
func New() *Console {
	b := bus.New()
	c := &Console{
		CPU:         cpu.New(b),
		PPU:         ppu.New(),
		Bus:         b,
		watchpoints: make(map[uint16]uint8),
	}
	c.Reset()
	return c
}

// Load parses an iNES image from r, inserts it and resets the console.
// On error the running cartridge and all state are left untouched.
func (c *Console) Load(r io.Reader) error {
	cart := cartridge.New()
	if err := cart.Load(r); err != nil {
		return errors.Wrap(err, "console: load cartridge")
	}
	c.Insert(cart)
	return nil
}

// LoadFile loads an iNES image from disk
func (c *Console) LoadFile(path string) error {
	cart, err := cartridge.LoadFromFile(path)
	if err != nil {
		return errors.Wrap(err, "console: load cartridge")
	}
	c.Insert(cart)
	return nil
}

// Insert attaches an already loaded cartridge and resets the console
func (c *Console) Insert(cart *cartridge.Cartridge) {
	c.Bus.LoadCartridge(cart)
	c.Reset()
}

// Cartridge returns the inserted cartridge
func (c *Console) Cartridge() *cartridge.Cartridge {
	return c.Bus.Cart
}

// Reset returns every component to its power-on state. The CPU reads its
// start address from the cartridge reset vector.
func (c *Console) Reset() {
	c.Bus.Reset()
	c.PPU.Reset()
	c.CPU.Reset()
	c.frameBuffer.Clear(ppu.Color{})
	c.nmiPending = false
	c.executionLog = c.executionLog[:0]
}

// EnableCPUTrace toggles per-instruction CPU logging
func (c *Console) EnableCPUTrace(enabled bool) {
	c.CPU.EnableTrace(enabled)
}

// EnableDebug toggles PPU, bus and controller logging
func (c *Console) EnableDebug(enabled bool) {
	c.PPU.EnableDebug(enabled)
	c.Bus.EnableDebug(enabled)
	c.Bus.Pad1.EnableDebug(enabled)
	c.Bus.Pad2.EnableDebug(enabled)
}

// Step delivers a pending NMI, executes one CPU instruction, charges any
// OAM DMA stall and then advances the PPU by the cycles spent. It returns
// the CPU cycles consumed.
func (c *Console) Step() (int, error) {
	pc := c.CPU.PC
	cycles := 0
	nmi := c.nmiPending
	if nmi {
		c.nmiPending = false
		cycles += c.CPU.Interrupt(cpu.InterruptNMI)
	}

	n, err := c.CPU.Step()
	if err != nil {
		// Cycles spent entering an NMI handler still reach the PPU
		c.stepPPU(cycles)
		return cycles, err
	}
	cycles += n

	dma := c.Bus.DMA.Pending()
	if dma {
		stall := DMACycles
		if c.CPU.Cycles()%2 == 1 {
			stall++
		}
		c.CPU.Stall(stall)
		cycles += stall
	}

	c.stepPPU(cycles)

	if c.loggingEnabled {
		c.executionLog = append(c.executionLog, ExecutionEvent{
			StepNumber:   len(c.executionLog) + 1,
			PC:           pc,
			Opcode:       c.Bus.Read(pc, true),
			Cycles:       cycles,
			TotalCycles:  c.CPU.Cycles(),
			Line:         c.PPU.Line(),
			Frame:        c.PPU.Frame(),
			DMAStarted:   dma,
			NMIDelivered: nmi,
		})
	}
	return cycles, nil
}

func (c *Console) stepPPU(cycles int) {
	if c.PPU.Step(cycles, c.Bus, &c.frameBuffer) == cpu.InterruptNMI {
		c.nmiPending = true
	}
}

// Frame runs until the PPU enters the next vertical blank, then checks the
// memory watchpoints.
func (c *Console) Frame() error {
	start := c.PPU.Frame()
	for c.PPU.Frame() == start {
		if _, err := c.Step(); err != nil {
			return err
		}
	}
	c.CheckWatchpoints()
	return nil
}

// RunFrames runs n complete frames, stopping at the first CPU fault
func (c *Console) RunFrames(n int) error {
	for i := 0; i < n; i++ {
		if err := c.Frame(); err != nil {
			return errors.Wrapf(err, "frame %d", c.PPU.Frame())
		}
	}
	return nil
}

// RunCycles runs at least the given number of CPU cycles
func (c *Console) RunCycles(cycles uint64) error {
	target := c.CPU.Cycles() + cycles
	for c.CPU.Cycles() < target {
		if _, err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// FrameBuffer returns the picture rendered so far
func (c *Console) FrameBuffer() *ppu.FrameBuffer {
	return &c.frameBuffer
}

// FrameCount returns the number of vertical blanks since reset
func (c *Console) FrameCount() uint64 {
	return c.PPU.Frame()
}

// Cycles returns the CPU cycles executed since power on
func (c *Console) Cycles() uint64 {
	return c.CPU.Cycles()
}

// NMIPending reports whether an NMI will be taken before the next instruction
func (c *Console) NMIPending() bool {
	return c.nmiPending
}

// Pad returns the controller for player 1 or 2, or nil
func (c *Console) Pad(player int) *input.Pad {
	switch player {
	case 1:
		return c.Bus.Pad1
	case 2:
		return c.Bus.Pad2
	}
	return nil
}

// SetButton sets the state of one button; unknown players are ignored
func (c *Console) SetButton(player int, button input.Button, pressed bool) {
	if pad := c.Pad(player); pad != nil {
		pad.SetButton(button, pressed)
	}
}

// Press holds a button down
func (c *Console) Press(player int, button input.Button) {
	c.SetButton(player, button, true)
}

// Release lets a button go
func (c *Console) Release(player int, button input.Button) {
	c.SetButton(player, button, false)
}

// ExecutionEvent records one Step for tests and tracing
type ExecutionEvent struct {
	StepNumber   int
	PC           uint16
	Opcode       uint8
	Cycles       int
	TotalCycles  uint64
	Line         int
	Frame        uint64
	DMAStarted   bool
	NMIDelivered bool
}

// EnableExecutionLog turns step recording on or off
func (c *Console) EnableExecutionLog(enabled bool) {
	c.loggingEnabled = enabled
}

// ExecutionLog returns the recorded steps
func (c *Console) ExecutionLog() []ExecutionEvent {
	return c.executionLog
}

// ClearExecutionLog drops the recorded steps
func (c *Console) ClearExecutionLog() {
	c.executionLog = c.executionLog[:0]
}

// WatchChange is a watched address whose value changed
type WatchChange struct {
	Address  uint16
	Old, New uint8
}

func (w WatchChange) String() string {
	return fmt.Sprintf("$%04X: $%02X -> $%02X", w.Address, w.Old, w.New)
}

// Watch starts monitoring a CPU address for changes
func (c *Console) Watch(address uint16) {
	c.watchpoints[address] = c.Bus.Read(address, true)
}

// Unwatch stops monitoring an address
func (c *Console) Unwatch(address uint16) {
	delete(c.watchpoints, address)
}

// CheckWatchpoints logs and returns the watched addresses that changed since
// the last check. Reads are peeks.
func (c *Console) CheckWatchpoints() []WatchChange {
	var changes []WatchChange
	for address, old := range c.watchpoints {
		current := c.Bus.Read(address, true)
		if current == old {
			continue
		}
		change := WatchChange{Address: address, Old: old, New: current}
		log.Printf("[MEMORY_WATCH] frame %d: %s", c.PPU.Frame(), change)
		c.watchpoints[address] = current
		changes = append(changes, change)
	}
	return changes
}

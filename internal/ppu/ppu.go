// Package ppu implements the Picture Processing Unit for the NES as a
// scanline state machine driven by CPU cycle counts.
package ppu

import (
	"fmt"
	"log"

	"github.com/pkg/errors"

	"nescore/internal/bus"
	"nescore/internal/cpu"
)

// Timing
const (
	DotsPerCPUCycle = 3
	DotsPerLine     = 341
	LinesPerFrame   = 262

	PostRenderLine = 240
	VBlankLine     = 241
	PreRenderLine  = 261

	// PowerOnLine is the scanline after reset
	PowerOnLine = VBlankLine
)

// OAM and DMA
const (
	OAMSize = 0x100

	// dmaFirstHalf is the number of bytes copied in the step that sees the
	// DMA request; the rest are copied on the following step
	dmaFirstHalf = 0xAA
)

// LinePhase classifies a scanline
type LinePhase int

const (
	PhaseVisible LinePhase = iota
	PhasePostRender
	PhaseVBlank
	PhasePreRender
)

func (p LinePhase) String() string {
	switch p {
	case PhaseVisible:
		return "visible"
	case PhasePostRender:
		return "post-render"
	case PhaseVBlank:
		return "vblank"
	case PhasePreRender:
		return "pre-render"
	}
	return fmt.Sprintf("LinePhase(%d)", int(p))
}

// PhaseOf returns the phase of line. Lines outside 0-261 cannot occur and
// panic.
func PhaseOf(line int) LinePhase {
	switch {
	case line < 0:
	case line < PostRenderLine:
		return PhaseVisible
	case line == PostRenderLine:
		return PhasePostRender
	case line < PreRenderLine:
		return PhaseVBlank
	case line == PreRenderLine:
		return PhasePreRender
	}
	panic(fmt.Sprintf("ppu: invalid scanline %d", line))
}

// PPU represents the NES Picture Processing Unit (2C02)
type PPU struct {
	oam     [OAMSize]uint8
	sprites [maxSpritesPerLine]sprite
	count   int // sprites evaluated for the current line

	dots  int // PPU dots accumulated towards the next line
	line  int
	frame uint64

	// Scroll latched from the bus, applied at the start of each line
	fetchScroll   bus.Scroll
	currentScroll bus.Scroll

	vramAddr uint16

	dmaRunning bool
	dmaSource  uint16
	dmaDest    uint8

	// NMI output level (vblank && enabled); an NMI fires on its rising edge
	nmiLine bool

	debugEnabled bool
}

// New creates a PPU in its power-on state
func New() *PPU {
	p := &PPU{}
	p.Reset()
	return p
}

// Reset restores the power-on state
func (p *PPU) Reset() {
	*p = PPU{line: PowerOnLine, debugEnabled: p.debugEnabled}
}

// EnableDebug turns per-line logging on or off
func (p *PPU) EnableDebug(enabled bool) {
	p.debugEnabled = enabled
}

// Line returns the current scanline (0-261)
func (p *PPU) Line() int {
	return p.line
}

// Frame returns the number of frames completed. The counter advances when
// vertical blanking begins, at which point the picture is complete.
func (p *PPU) Frame() uint64 {
	return p.frame
}

// OAM returns a copy of object attribute memory
func (p *PPU) OAM() [OAMSize]uint8 {
	return p.oam
}

// DMARunning reports whether the second half of an OAM DMA is outstanding
func (p *PPU) DMARunning() bool {
	return p.dmaRunning
}

// Step consumes pending register accesses from the bus, runs OAM DMA, then
// advances by cpuCycles. It returns InterruptNMI when an NMI should be
// delivered to the CPU before its next instruction.
func (p *PPU) Step(cpuCycles int, b *bus.Bus, fb *FrameBuffer) cpu.InterruptKind {
	p.serviceRegisters(b)
	p.serviceDMA(b)

	nmi := p.pollNMI(b)

	p.dots += cpuCycles * DotsPerCPUCycle
	for p.dots >= DotsPerLine {
		p.dots -= DotsPerLine
		p.advanceLine(b, fb)
		if p.pollNMI(b) {
			nmi = true
		}
	}

	if nmi {
		return cpu.InterruptNMI
	}
	return cpu.InterruptNone
}

// serviceRegisters completes the accesses the CPU posted since the last step
func (p *PPU) serviceRegisters(b *bus.Bus) {
	if s, ok := b.ScrollWrite.Take(); ok {
		p.fetchScroll = s
	}
	if addr, ok := b.AddrWrite.Take(); ok {
		p.vramAddr = addr & 0x3FFF
	}

	if v, ok := b.DataWrite.Take(); ok {
		b.VRAM.Write(p.vramAddr, v)
		p.incrementAddr(b)
	}
	if _, ok := b.DataRead.Take(); ok {
		b.SetDataBuffer(b.VRAM.Read(p.vramAddr))
		p.incrementAddr(b)
	}

	if v, ok := b.OAMWrite.Take(); ok {
		addr := b.OAMAddr()
		p.oam[addr] = v
		b.SetOAMAddr(addr + 1)
	}
	b.OAMRead.Take()
	b.SetOAMData(p.oam[b.OAMAddr()])
}

func (p *PPU) incrementAddr(b *bus.Bus) {
	p.vramAddr = (p.vramAddr + b.Ctrl().Increment()) & 0x3FFF
}

// serviceDMA finishes an in-flight transfer and starts a newly requested one
func (p *PPU) serviceDMA(b *bus.Bus) {
	if p.dmaRunning {
		p.runDMA(b, false)
	}
	if page, ok := b.DMA.Take(); ok {
		p.dmaSource = uint16(page) << 8
		p.dmaDest = b.OAMAddr()
		p.runDMA(b, true)
	}
}

// runDMA copies the first 170 or the remaining 86 bytes of a page into
// OAM, starting at the OAMADDR captured when the transfer began
func (p *PPU) runDMA(b *bus.Bus, first bool) {
	start, size := 0, dmaFirstHalf
	if !first {
		start, size = dmaFirstHalf, OAMSize-dmaFirstHalf
	}
	for i := start; i < start+size; i++ {
		p.oam[p.dmaDest+uint8(i)] = b.Read(p.dmaSource+uint16(i), false)
	}
	p.dmaRunning = first
}

// pollNMI samples the NMI line and reports a rising edge
func (p *PPU) pollNMI(b *bus.Bus) bool {
	level := b.Ctrl().NMIEnabled() && b.Status()&bus.StatusVBlank != 0
	edge := level && !p.nmiLine
	p.nmiLine = level
	return edge
}

// advanceLine runs the current scanline and moves to the next one
func (p *PPU) advanceLine(b *bus.Bus, fb *FrameBuffer) {
	p.currentScroll = p.fetchScroll

	switch PhaseOf(p.line) {
	case PhaseVisible:
		p.evaluateSprites(b)
		p.drawLine(b, fb)
	case PhasePostRender:
	case PhaseVBlank:
		if p.line == VBlankLine {
			b.SetStatus(bus.StatusVBlank, true)
			p.frame++
			if p.debugEnabled {
				log.Printf("[PPU_DEBUG] frame %d complete, vblank set (ctrl=%02X mask=%02X)",
					p.frame, uint8(b.Ctrl()), uint8(b.Mask()))
			}
		}
	case PhasePreRender:
		b.SetStatus(bus.StatusVBlank|bus.StatusSprite0|bus.StatusOverflow, false)
	}

	p.line = (p.line + 1) % LinesPerFrame
}

// State is a serialisable copy of the PPU
type State struct {
	OAM           [OAMSize]uint8
	Dots          int
	Line          int
	Frame         uint64
	FetchScroll   bus.Scroll
	CurrentScroll bus.Scroll
	VRAMAddr      uint16
	DMARunning    bool
	DMASource     uint16
	DMADest       uint8
	NMILine       bool
}

// State returns a snapshot of the PPU. Evaluated sprites are rebuilt on
// the next visible line and are not included.
func (p *PPU) State() State {
	return State{
		OAM:           p.oam,
		Dots:          p.dots,
		Line:          p.line,
		Frame:         p.frame,
		FetchScroll:   p.fetchScroll,
		CurrentScroll: p.currentScroll,
		VRAMAddr:      p.vramAddr,
		DMARunning:    p.dmaRunning,
		DMASource:     p.dmaSource,
		DMADest:       p.dmaDest,
		NMILine:       p.nmiLine,
	}
}

// SetState restores a snapshot taken with State
func (p *PPU) SetState(s State) error {
	if s.Line < 0 || s.Line >= LinesPerFrame || s.Dots < 0 || s.Dots >= DotsPerLine {
		return errors.Errorf("ppu: invalid state (line %d, dot %d)", s.Line, s.Dots)
	}
	p.oam = s.OAM
	p.dots = s.Dots
	p.line = s.Line
	p.frame = s.Frame
	p.fetchScroll = s.FetchScroll
	p.currentScroll = s.CurrentScroll
	p.vramAddr = s.VRAMAddr
	p.dmaRunning = s.DMARunning
	p.dmaSource = s.DMASource
	p.dmaDest = s.DMADest
	p.nmiLine = s.NMILine
	p.count = 0
	return nil
}

// Package memory implements the PPU address space: pattern tables on the
// cartridge, mirrored nametables and the palette.
package memory

import (
	"fmt"

	"nescore/internal/cartridge"
)

// PPU address space layout
const (
	PatternTableBase  = 0x0000
	NametableBase     = 0x2000
	NametableMirror   = 0x3000
	PaletteBase       = 0x3F00
	AddressSpaceSize  = 0x4000
	NametableSize     = 0x400
	AttributeOffset   = 0x3C0
	PaletteSize       = 0x20
	PaletteEntrySize  = 4
	SpritePaletteBase = 0x10
)

// PatternMemory is the cartridge side of the PPU bus
type PatternMemory interface {
	ReadVideo(address uint16) uint8
	WriteVideo(address uint16, value uint8)
}

// VRAM holds nametables and palette RAM. Horizontal, vertical and
// single-screen carts use the first two tables; four-screen carts use all four.
type VRAM struct {
	pattern    PatternMemory
	mirroring  cartridge.Mirroring
	nametables [4][NametableSize]uint8
	palette    [PaletteSize]uint8
}

// NewVRAM creates video memory backed by the given pattern source
func NewVRAM(pattern PatternMemory, mirroring cartridge.Mirroring) *VRAM {
	return &VRAM{
		pattern:   pattern,
		mirroring: mirroring,
	}
}

// Reset clears nametables and palette
func (v *VRAM) Reset() {
	v.nametables = [4][NametableSize]uint8{}
	v.palette = [PaletteSize]uint8{}
}

// Attach connects a new cartridge
func (v *VRAM) Attach(pattern PatternMemory, mirroring cartridge.Mirroring) {
	v.pattern = pattern
	v.mirroring = mirroring
}

// Mirroring returns the active nametable mirroring
func (v *VRAM) Mirroring() cartridge.Mirroring {
	return v.mirroring
}

// Read reads from PPU memory ($0000-$3FFF, higher bits ignored)
func (v *VRAM) Read(address uint16) uint8 {
	address &= AddressSpaceSize - 1

	switch {
	case address < NametableBase:
		if v.pattern == nil {
			return 0
		}
		return v.pattern.ReadVideo(address)
	case address < PaletteBase:
		table, offset := v.NametableIndex(address)
		return v.nametables[table][offset]
	default:
		return v.palette[PaletteIndex(address)]
	}
}

// Write writes to PPU memory ($0000-$3FFF, higher bits ignored)
func (v *VRAM) Write(address uint16, value uint8) {
	address &= AddressSpaceSize - 1

	switch {
	case address < NametableBase:
		if v.pattern != nil {
			v.pattern.WriteVideo(address, value)
		}
	case address < PaletteBase:
		table, offset := v.NametableIndex(address)
		v.nametables[table][offset] = value
	default:
		v.palette[PaletteIndex(address)] = value
	}
}

// NametableIndex resolves a nametable address ($2000-$3EFF) to a physical
// table and offset under the current mirroring mode:
//
//	horizontal  [A A]  vertical  [A B]  single  [A A]  four  [A B]
//	            [B B]            [A B]          [A A]        [C D]
func (v *VRAM) NametableIndex(address uint16) (table int, offset int) {
	address = (address - NametableBase) & 0x0FFF
	logical := int(address / NametableSize)
	offset = int(address % NametableSize)

	switch v.mirroring {
	case cartridge.MirrorHorizontal:
		return logical >> 1, offset
	case cartridge.MirrorVertical:
		return logical & 1, offset
	case cartridge.MirrorSingleScreen:
		return 0, offset
	case cartridge.MirrorFourScreen:
		return logical, offset
	}
	panic(fmt.Sprintf("memory: invalid mirroring mode %d", v.mirroring))
}

// PaletteIndex folds a palette address into the 32-byte table. Sprite
// entry 0 of every palette aliases the matching background entry.
func PaletteIndex(address uint16) int {
	index := int(address & (PaletteSize - 1))
	if index&0x13 == 0x10 {
		index &^= 0x10
	}
	return index
}

// Nametable reads logical nametable n (0-3) at offset
func (v *VRAM) Nametable(n int, offset int) uint8 {
	if n < 0 || n > 3 {
		panic(fmt.Sprintf("memory: invalid nametable select %d", n))
	}
	return v.Read(NametableBase + uint16(n*NametableSize+offset))
}

// Pattern reads one byte of pattern table data
func (v *VRAM) Pattern(address uint16) uint8 {
	if v.pattern == nil {
		return 0
	}
	return v.pattern.ReadVideo(address & 0x1FFF)
}

// PaletteEntry returns palette byte i (0-31) after mirroring
func (v *VRAM) PaletteEntry(i int) uint8 {
	return v.palette[PaletteIndex(uint16(i))]
}

// VRAMState is a serialisable copy of video memory
type VRAMState struct {
	Nametables [4][NametableSize]uint8
	Palette    [PaletteSize]uint8
}

// State returns a snapshot of nametables and palette
func (v *VRAM) State() VRAMState {
	return VRAMState{Nametables: v.nametables, Palette: v.palette}
}

// SetState restores a snapshot taken with State
func (v *VRAM) SetState(s VRAMState) {
	v.nametables = s.Nametables
	v.palette = s.Palette
}

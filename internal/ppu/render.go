package ppu

import (
	"nescore/internal/bus"
	"nescore/internal/memory"
)

const (
	tileSize     = 8
	tilesWide    = ScreenWidth / tileSize  // 32
	tilesHigh    = ScreenHeight / tileSize // 30
	attrBlock    = 4                       // tiles per attribute byte edge
	attrRowBytes = tilesWide / attrBlock

	spritePaletteOffset = memory.SpritePaletteBase
)

// planeBits combines bit col (0 = leftmost) of the two bit-planes into a
// 2-bit colour value
func planeBits(lo, hi uint8, col int) uint8 {
	shift := 7 - uint(col)
	return (hi>>shift&1)<<1 | lo>>shift&1
}

// drawLine renders the current scanline into fb. Priority is front sprite,
// then background, then back sprite, then the universal background colour.
func (p *PPU) drawLine(b *bus.Bus, fb *FrameBuffer) {
	mask := b.Mask()
	universal := b.VRAM.PaletteEntry(0)
	row := &fb[p.line]

	for x := 0; x < ScreenWidth; x++ {
		index := universal
		front, back, hasFront, hasBack := p.spritePixels(b, x)
		bg, hasBG := p.backgroundPixel(b, x)

		switch {
		case hasFront:
			index = front
		case hasBG:
			index = bg
		case hasBack:
			index = back
		}

		c := ColorFromIndex(index)
		if mask.Monochrome() {
			c = c.Gray()
		}
		row[x] = c
	}
}

// backgroundPixel returns the palette byte of the background at column x
// of the current line, or false when it is transparent, hidden or clipped.
func (p *PPU) backgroundPixel(b *bus.Bus, x int) (uint8, bool) {
	mask := b.Mask()
	if !mask.ShowBackground() || (mask.ClipBackground() && x < 8) {
		return 0, false
	}
	ctrl := b.Ctrl()

	// Coordinates in the 512x480 logical nametable plane
	px := x + int(p.currentScroll.X)
	py := p.line + int(p.currentScroll.Y)
	tileX := (px / tileSize) % (tilesWide * 2)
	tileY := (py / tileSize) % (tilesHigh * 2)
	localX, localY := tileX%tilesWide, tileY%tilesHigh

	table := ctrl.Nametable()
	if tileX >= tilesWide {
		table ^= 1
	}
	if tileY >= tilesHigh {
		table ^= 2
	}

	tile := b.VRAM.Nametable(table, localY*tilesWide+localX)
	attr := b.VRAM.Nametable(table, memory.AttributeOffset+(localY/attrBlock)*attrRowBytes+localX/attrBlock)
	shift := uint((localY&2)<<1 | localX&2)
	palette := attr >> shift & 0x03

	addr := ctrl.BackgroundTable() + uint16(tile)*16 + uint16(py%tileSize)
	value := planeBits(b.VRAM.Pattern(addr), b.VRAM.Pattern(addr+8), px%tileSize)
	if value == 0 {
		return 0, false
	}
	return b.VRAM.PaletteEntry(int(palette)*4 + int(value)), true
}

package ppu

import (
	"log"

	"nescore/internal/bus"
)

const (
	spriteCount       = 64
	spriteBytes       = 4
	spriteWidth       = 8
	maxSpritesPerLine = 8

	// sprite-0 hit is reported in the last rows of the sprite's window
	sprite0HitWindow = 3
)

// Sprite attribute bits
const (
	attrPalette   = 0x03
	attrBehind    = 0x20
	attrFlipH     = 0x40
	attrFlipV     = 0x80
	tileBankLarge = 0x01
)

// sprite is one OAM entry selected for the current line
type sprite struct {
	index int
	y     uint8
	tile  uint8
	attr  uint8
	x     uint8
}

func (s sprite) behind() bool { return s.attr&attrBehind != 0 }
func (s sprite) flipH() bool  { return s.attr&attrFlipH != 0 }
func (s sprite) flipV() bool  { return s.attr&attrFlipV != 0 }

// patternAddress returns the address of the low bit-plane byte for row
// (0 to height-1) of the sprite, after vertical flip.
func (s sprite) patternAddress(row int, height int, table uint16) uint16 {
	if s.flipV() {
		row = height - 1 - row
	}

	tile := s.tile
	if height == 16 {
		table = 0x0000
		if s.tile&tileBankLarge != 0 {
			table = 0x1000
		}
		tile &^= tileBankLarge
		if row >= 8 {
			tile++
			row -= 8
		}
	}
	return table + uint16(tile)*16 + uint16(row)
}

// evaluateSprites selects up to eight sprites covering the current line in
// OAM order. A sprite with top byte y covers lines y+1 through y+height.
func (p *PPU) evaluateSprites(b *bus.Bus) {
	p.count = 0
	if !b.Mask().ShowSprites() {
		return
	}

	height := b.Ctrl().SpriteHeight()
	for i := 0; i < spriteCount; i++ {
		entry := p.oam[i*spriteBytes : i*spriteBytes+spriteBytes]
		top := int(entry[0])
		bottom := top + height
		if p.line <= top || p.line > bottom {
			continue
		}

		if i == 0 && p.line > bottom-sprite0HitWindow {
			b.SetStatus(bus.StatusSprite0, true)
		}

		if p.count == maxSpritesPerLine {
			b.SetStatus(bus.StatusOverflow, true)
			if p.debugEnabled {
				log.Printf("[PPU_DEBUG] sprite overflow on line %d at sprite %d", p.line, i)
			}
			break
		}
		p.sprites[p.count] = sprite{
			index: i,
			y:     entry[0],
			tile:  entry[1],
			attr:  entry[2],
			x:     entry[3],
		}
		p.count++
	}
}

// spritePixels returns the palette bytes of the first opaque front- and
// back-priority sprite pixels at column x
func (p *PPU) spritePixels(b *bus.Bus, x int) (front, back uint8, hasFront, hasBack bool) {
	mask := b.Mask()
	if !mask.ShowSprites() || (mask.ClipSprites() && x < 8) {
		return
	}

	ctrl := b.Ctrl()
	height := ctrl.SpriteHeight()
	for _, s := range p.sprites[:p.count] {
		col := x - int(s.x)
		if col < 0 || col >= spriteWidth {
			continue
		}
		if s.flipH() {
			col = spriteWidth - 1 - col
		}

		row := p.line - int(s.y) - 1
		addr := s.patternAddress(row, height, ctrl.SpriteTable())
		value := planeBits(b.VRAM.Pattern(addr), b.VRAM.Pattern(addr+8), col)
		if value == 0 {
			continue
		}

		colour := b.VRAM.PaletteEntry(spritePaletteOffset + int(s.attr&attrPalette)*4 + int(value))
		if s.behind() {
			if !hasBack {
				back, hasBack = colour, true
			}
		} else if !hasFront {
			front, hasFront = colour, true
		}
		if hasFront && hasBack {
			break
		}
	}
	return
}

package bus

// PPU register offsets within the $2000-$2007 window
const (
	RegCtrl    = 0
	RegMask    = 1
	RegStatus  = 2
	RegOAMAddr = 3
	RegOAMData = 4
	RegScroll  = 5
	RegAddr    = 6
	RegData    = 7
)

// PPUSTATUS bits
const (
	StatusOverflow uint8 = 0x20
	StatusSprite0  uint8 = 0x40
	StatusVBlank   uint8 = 0x80
)

// PPUCtrl is the decoded $2000 register
type PPUCtrl uint8

// NMIEnabled reports whether vblank raises an NMI
func (c PPUCtrl) NMIEnabled() bool { return c&0x80 != 0 }

// Master reports the master/slave select bit
func (c PPUCtrl) Master() bool { return c&0x40 != 0 }

// SpriteHeight returns 8 or 16
func (c PPUCtrl) SpriteHeight() int {
	if c&0x20 != 0 {
		return 16
	}
	return 8
}

// BackgroundTable returns the background pattern table base
func (c PPUCtrl) BackgroundTable() uint16 {
	if c&0x10 != 0 {
		return 0x1000
	}
	return 0x0000
}

// SpriteTable returns the 8x8 sprite pattern table base
func (c PPUCtrl) SpriteTable() uint16 {
	if c&0x08 != 0 {
		return 0x1000
	}
	return 0x0000
}

// Increment returns the VRAM address step after a $2007 access
func (c PPUCtrl) Increment() uint16 {
	if c&0x04 != 0 {
		return 32
	}
	return 1
}

// Nametable returns the base nametable index (0-3)
func (c PPUCtrl) Nametable() int { return int(c & 0x03) }

// NametableBase returns the base nametable address
func (c PPUCtrl) NametableBase() uint16 { return 0x2000 + uint16(c&0x03)*0x400 }

// PPUMask is the decoded $2001 register
type PPUMask uint8

// ShowSprites reports whether sprites are drawn
func (m PPUMask) ShowSprites() bool { return m&0x10 != 0 }

// ShowBackground reports whether the background is drawn
func (m PPUMask) ShowBackground() bool { return m&0x08 != 0 }

// ClipSprites reports whether sprites are hidden in the leftmost 8 pixels
func (m PPUMask) ClipSprites() bool { return m&0x04 == 0 }

// ClipBackground reports whether the background is hidden in the leftmost 8 pixels
func (m PPUMask) ClipBackground() bool { return m&0x02 == 0 }

// Monochrome reports greyscale output
func (m PPUMask) Monochrome() bool { return m&0x01 != 0 }

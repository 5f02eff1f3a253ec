package cartridge

import (
	"bytes"
)

// ROMBuilder assembles iNES images in memory. It is used by tests and by
// tools that need a cartridge without a file on disk.
type ROMBuilder struct {
	prgBanks  uint8
	chrBanks  uint8
	mapper    uint8
	mirroring Mirroring
	battery   bool
	trainer   []uint8
	prg       []uint8
	chr       []uint8
}

// NewROMBuilder returns a builder for a 16KB PRG / 8KB CHR RAM NROM image
// with every vector pointing at $8000.
func NewROMBuilder() *ROMBuilder {
	b := &ROMBuilder{prgBanks: 1}
	b.prg = make([]uint8, 2*PRGBankSize)
	b.WithVectors(0x8000, 0x8000, 0x8000)
	return b
}

// WithPRGBanks sets the number of 16KB PRG banks
func (b *ROMBuilder) WithPRGBanks(n uint8) *ROMBuilder {
	b.prgBanks = n
	return b
}

// WithCHR supplies CHR ROM data, padded to whole 8KB banks
func (b *ROMBuilder) WithCHR(data []uint8) *ROMBuilder {
	banks := (len(data) + CHRBankSize - 1) / CHRBankSize
	if banks == 0 {
		banks = 1
	}
	b.chrBanks = uint8(banks)
	b.chr = make([]uint8, banks*CHRBankSize)
	copy(b.chr, data)
	return b
}

// WithMapper sets the iNES mapper number
func (b *ROMBuilder) WithMapper(id uint8) *ROMBuilder {
	b.mapper = id
	return b
}

// WithMirroring sets the nametable mirroring flags
func (b *ROMBuilder) WithMirroring(m Mirroring) *ROMBuilder {
	b.mirroring = m
	return b
}

// WithBattery marks PRG RAM as battery backed
func (b *ROMBuilder) WithBattery() *ROMBuilder {
	b.battery = true
	return b
}

// WithTrainer attaches a 512-byte trainer
func (b *ROMBuilder) WithTrainer(data []uint8) *ROMBuilder {
	b.trainer = make([]uint8, TrainerSize)
	copy(b.trainer, data)
	return b
}

// WithCode places bytes at a CPU address in $8000-$FFFF. With a single PRG
// bank the address is folded into the lower 16KB.
func (b *ROMBuilder) WithCode(address uint16, code ...uint8) *ROMBuilder {
	for i, v := range code {
		b.prg[b.prgOffset(address+uint16(i))] = v
	}
	return b
}

// WithVectors sets the NMI, reset and IRQ vectors
func (b *ROMBuilder) WithVectors(nmi, reset, irq uint16) *ROMBuilder {
	for i, v := range []uint16{nmi, reset, irq} {
		addr := uint16(0xFFFA + 2*i)
		b.WithCode(addr, uint8(v), uint8(v>>8))
	}
	return b
}

// WithResetVector sets only the reset vector
func (b *ROMBuilder) WithResetVector(address uint16) *ROMBuilder {
	return b.WithCode(0xFFFC, uint8(address), uint8(address>>8))
}

func (b *ROMBuilder) prgOffset(address uint16) int {
	offset := int(address-PRGBase) & 0x7FFF
	if b.prgBanks <= 1 {
		offset &= PRGBankSize - 1
	}
	return offset
}

// Header returns only the 16 header bytes
func (b *ROMBuilder) Header() []uint8 {
	h := make([]uint8, HeaderSize)
	copy(h, inesMagic[:])
	h[4] = b.prgBanks
	h[5] = b.chrBanks
	flags6 := b.mapper << 4
	switch b.mirroring {
	case MirrorVertical:
		flags6 |= 0x01
	case MirrorFourScreen:
		flags6 |= 0x08
	}
	if b.battery {
		flags6 |= 0x02
	}
	if b.trainer != nil {
		flags6 |= 0x04
	}
	h[6] = flags6
	h[7] = b.mapper & 0xF0
	return h
}

// Build returns the complete image
func (b *ROMBuilder) Build() []uint8 {
	var buf bytes.Buffer
	buf.Write(b.Header())
	buf.Write(b.trainer)
	size := int(b.prgBanks) * PRGBankSize
	if size > len(b.prg) {
		size = len(b.prg)
	}
	buf.Write(b.prg[:size])
	buf.Write(b.chr)
	return buf.Bytes()
}

// BuildCartridge loads the image into a new Cartridge
func (b *ROMBuilder) BuildCartridge() (*Cartridge, error) {
	cart := New()
	if err := cart.Load(bytes.NewReader(b.Build())); err != nil {
		return nil, err
	}
	return cart, nil
}

package cartridge

// supportedMappers maps iNES mapper numbers to constructors
var supportedMappers = map[uint8]func(*Cartridge) Mapper{
	0: func(c *Cartridge) Mapper { return NewMapper000(c) },
}

// Mapper000 implements NROM: one or two fixed 16KB PRG banks, 8KB of CHR
// ROM or RAM and 8KB of PRG RAM at $6000-$7FFF.
type Mapper000 struct {
	cart *Cartridge
}

// NewMapper000 creates an NROM mapper over cart
func NewMapper000(cart *Cartridge) *Mapper000 {
	return &Mapper000{cart: cart}
}

// ReadPRG reads PRG RAM or ROM. A single 16KB bank appears at both
// $8000 and $C000.
func (m *Mapper000) ReadPRG(address uint16) uint8 {
	switch {
	case address >= PRGBase:
		offset := int(address - PRGBase)
		if m.cart.prgBytes <= PRGBankSize {
			offset &= PRGBankSize - 1
		}
		return m.cart.prg[offset]
	case address >= SRAMBase:
		return m.cart.sram[address-SRAMBase]
	}
	return 0
}

// WritePRG writes PRG RAM; ROM writes are dropped
func (m *Mapper000) WritePRG(address uint16, value uint8) {
	if address >= SRAMBase && address < PRGBase {
		m.cart.sram[address-SRAMBase] = value
	}
}

// ReadCHR reads the 8KB pattern memory
func (m *Mapper000) ReadCHR(address uint16) uint8 {
	return m.cart.chr[address&(CHRBankSize-1)]
}

// WriteCHR writes pattern memory when it is RAM
func (m *Mapper000) WriteCHR(address uint16, value uint8) {
	if m.cart.hasCHRRAM {
		m.cart.chr[address&(CHRBankSize-1)] = value
	}
}

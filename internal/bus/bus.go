// Package bus implements the NES CPU address space and the register files
// shared between the CPU and the PPU.
package bus

import (
	"log"

	"nescore/internal/cartridge"
	"nescore/internal/input"
	"nescore/internal/memory"
)

// CPU address map
const (
	WRAMBase     = 0x0000
	PPURegBase   = 0x2000
	IORegBase    = 0x4000
	CartBase     = 0x4020
	WRAMSize     = 0x800
	PPURegCount  = 8
	IORegCount   = 0x20
	OAMDMAOffset = 0x14
	Pad1Offset   = 0x16
	Pad2Offset   = 0x17
)

// Scroll is a completed pair of $2005 writes
type Scroll struct {
	X, Y uint8
}

// Bus routes CPU accesses to work RAM, the PPU and I/O register files and
// the cartridge. Accesses that the PPU must complete are posted to latches
// and consumed by the PPU on its next step.
type Bus struct {
	wram   [WRAMSize]uint8
	ppuReg [PPURegCount]uint8
	ioReg  [IORegCount]uint8

	// Shared first/second write toggle for $2005 and $2006
	secondWrite bool
	scrollY     uint8
	addrLo      uint8

	Cart *cartridge.Cartridge
	VRAM *memory.VRAM
	Pad1 *input.Pad
	Pad2 *input.Pad

	OAMWrite    Latch[uint8]
	OAMRead     Latch[struct{}]
	DataWrite   Latch[uint8]
	DataRead    Latch[struct{}]
	ScrollWrite Latch[Scroll]
	AddrWrite   Latch[uint16]
	DMA         Latch[uint8]

	debugEnabled bool
}

// New creates a bus with an empty cartridge slot and two controllers
func New() *Bus {
	cart := cartridge.New()
	return &Bus{
		Cart: cart,
		VRAM: memory.NewVRAM(cart, cart.Mirroring()),
		Pad1: input.New(),
		Pad2: input.New(),
	}
}

// LoadCartridge inserts a cartridge and rewires video memory to it
func (b *Bus) LoadCartridge(cart *cartridge.Cartridge) {
	b.Cart = cart
	b.VRAM.Attach(cart, cart.Mirroring())
}

// Reset clears RAM, registers, pending latches and video memory
func (b *Bus) Reset() {
	b.wram = [WRAMSize]uint8{}
	b.ppuReg = [PPURegCount]uint8{}
	b.ioReg = [IORegCount]uint8{}
	b.secondWrite = false
	b.scrollY = 0
	b.addrLo = 0

	b.OAMWrite.Clear()
	b.OAMRead.Clear()
	b.DataWrite.Clear()
	b.DataRead.Clear()
	b.ScrollWrite.Clear()
	b.AddrWrite.Clear()
	b.DMA.Clear()

	b.VRAM.Reset()
	b.Pad1.Reset()
	b.Pad2.Reset()
}

// EnableDebug turns register access logging on or off
func (b *Bus) EnableDebug(enabled bool) {
	b.debugEnabled = enabled
}

// Read reads a byte from the CPU address space. A peek read performs no
// side effects: status flags, toggles, latches and controllers are untouched.
func (b *Bus) Read(address uint16, peek bool) uint8 {
	switch {
	case address < PPURegBase:
		return b.wram[address%WRAMSize]
	case address < IORegBase:
		return b.readPPURegister(int(address-PPURegBase)%PPURegCount, peek)
	case address < CartBase:
		index := address - IORegBase
		if !peek {
			switch index {
			case Pad1Offset:
				return b.Pad1.Read()
			case Pad2Offset:
				return b.Pad2.Read()
			}
		}
		return b.ioReg[index]
	default:
		if b.Cart == nil {
			return 0
		}
		return b.Cart.Read(address, peek)
	}
}

// Write writes a byte to the CPU address space. A peek write stores the
// value without posting latches or moving toggles.
func (b *Bus) Write(address uint16, value uint8, peek bool) {
	switch {
	case address < PPURegBase:
		b.wram[address%WRAMSize] = value
	case address < IORegBase:
		b.writePPURegister(int(address-PPURegBase)%PPURegCount, value, peek)
	case address < CartBase:
		index := address - IORegBase
		if !peek {
			switch index {
			case OAMDMAOffset:
				b.DMA.Post(value)
			case Pad1Offset:
				// Both ports share the strobe line
				b.Pad1.WriteStrobe(value)
				b.Pad2.WriteStrobe(value)
			}
		}
		b.ioReg[index] = value
	default:
		if b.Cart != nil {
			b.Cart.Write(address, value, peek)
		}
	}
}

func (b *Bus) readPPURegister(reg int, peek bool) uint8 {
	value := b.ppuReg[reg]
	if peek {
		return value
	}

	switch reg {
	case RegStatus:
		b.secondWrite = false
		b.ppuReg[RegStatus] &^= StatusVBlank
	case RegOAMData:
		b.OAMRead.Post(struct{}{})
	case RegData:
		b.DataRead.Post(struct{}{})
	}
	return value
}

func (b *Bus) writePPURegister(reg int, value uint8, peek bool) {
	if b.debugEnabled && !peek {
		log.Printf("[BUS] PPU register $%04X <- $%02X", PPURegBase+reg, value)
	}

	switch reg {
	case RegStatus:
		// read only
	case RegOAMData:
		b.ppuReg[reg] = value
		if !peek {
			b.OAMWrite.Post(value)
		}
	case RegScroll:
		if b.secondWrite {
			b.scrollY = value
			if !peek {
				b.secondWrite = false
				b.ScrollWrite.Post(Scroll{X: b.ppuReg[RegScroll], Y: value})
			}
		} else {
			b.ppuReg[reg] = value
			if !peek {
				b.secondWrite = true
			}
		}
	case RegAddr:
		if b.secondWrite {
			b.addrLo = value
			if !peek {
				b.secondWrite = false
				b.AddrWrite.Post(b.VRAMAddress())
			}
		} else {
			b.ppuReg[reg] = value
			if !peek {
				b.secondWrite = true
			}
		}
	case RegData:
		if !peek {
			b.DataWrite.Post(value)
		}
	default:
		b.ppuReg[reg] = value
	}
}

// Ctrl returns PPUCTRL
func (b *Bus) Ctrl() PPUCtrl {
	return PPUCtrl(b.ppuReg[RegCtrl])
}

// Mask returns PPUMASK
func (b *Bus) Mask() PPUMask {
	return PPUMask(b.ppuReg[RegMask])
}

// Status returns PPUSTATUS without side effects
func (b *Bus) Status() uint8 {
	return b.ppuReg[RegStatus]
}

// SetStatus sets or clears PPUSTATUS bits
func (b *Bus) SetStatus(bits uint8, on bool) {
	if on {
		b.ppuReg[RegStatus] |= bits
	} else {
		b.ppuReg[RegStatus] &^= bits
	}
}

// OAMAddr returns OAMADDR
func (b *Bus) OAMAddr() uint8 {
	return b.ppuReg[RegOAMAddr]
}

// SetOAMAddr updates OAMADDR
func (b *Bus) SetOAMAddr(addr uint8) {
	b.ppuReg[RegOAMAddr] = addr
}

// SetOAMData stores the byte returned by the next $2004 read
func (b *Bus) SetOAMData(value uint8) {
	b.ppuReg[RegOAMData] = value
}

// SetDataBuffer stores the byte returned by the next $2007 read
func (b *Bus) SetDataBuffer(value uint8) {
	b.ppuReg[RegData] = value
}

// Scroll returns the staged scroll pair
func (b *Bus) Scroll() Scroll {
	return Scroll{X: b.ppuReg[RegScroll], Y: b.scrollY}
}

// VRAMAddress returns the address assembled from the two $2006 writes
func (b *Bus) VRAMAddress() uint16 {
	return uint16(b.ppuReg[RegAddr])<<8 | uint16(b.addrLo)
}

// SecondWrite reports the $2005/$2006 write toggle
func (b *Bus) SecondWrite() bool {
	return b.secondWrite
}

// BusState is a serialisable copy of the bus
type BusState struct {
	WRAM        [WRAMSize]uint8
	PPUReg      [PPURegCount]uint8
	IOReg       [IORegCount]uint8
	SecondWrite bool
	ScrollY     uint8
	AddrLo      uint8
	Pad1        input.PadState
	Pad2        input.PadState
	VRAM        memory.VRAMState
}

// State returns a snapshot of the bus and the devices it owns
func (b *Bus) State() BusState {
	return BusState{
		WRAM:        b.wram,
		PPUReg:      b.ppuReg,
		IOReg:       b.ioReg,
		SecondWrite: b.secondWrite,
		ScrollY:     b.scrollY,
		AddrLo:      b.addrLo,
		Pad1:        b.Pad1.State(),
		Pad2:        b.Pad2.State(),
		VRAM:        b.VRAM.State(),
	}
}

// SetState restores a snapshot taken with State
func (b *Bus) SetState(s BusState) {
	b.wram = s.WRAM
	b.ppuReg = s.PPUReg
	b.ioReg = s.IOReg
	b.secondWrite = s.SecondWrite
	b.scrollY = s.ScrollY
	b.addrLo = s.AddrLo
	b.Pad1.SetState(s.Pad1)
	b.Pad2.SetState(s.Pad2)
	b.VRAM.SetState(s.VRAM)
}

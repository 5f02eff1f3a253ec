// Package cartridge implements iNES loading and the fixed-mapping cartridge
// address space for the NES.
package cartridge

import (
	"bufio"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
)

// Address windows seen from the CPU bus
const (
	ExpansionBase = 0x4020
	SRAMBase      = 0x6000
	PRGBase       = 0x8000

	PRGBankSize = 0x4000
	CHRBankSize = 0x2000
	SRAMSize    = 0x2000
	TrainerSize = 512
	HeaderSize  = 16

	// The trainer is mapped into battery RAM at $7000
	trainerOffset = 0x1000
)

// Load errors
var (
	ErrInvalidMagic      = errors.New("invalid iNES magic")
	ErrTruncated         = errors.New("truncated iNES header")
	ErrUnsupportedMapper = errors.New("unsupported mapper")
	ErrOversize          = errors.New("image exceeds NROM capacity")
)

var inesMagic = [4]byte{'N', 'E', 'S', 0x1A}

// Mirroring selects how the four logical nametables map onto video memory
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorSingleScreen
	MirrorFourScreen
)

// String returns the mirroring name
func (m Mirroring) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorSingleScreen:
		return "single-screen"
	case MirrorFourScreen:
		return "four-screen"
	}
	return "unknown"
}

// Mapper translates bus addresses into cartridge storage
type Mapper interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// Header is the decoded 16-byte iNES header
type Header struct {
	PRGBanks  uint8
	CHRBanks  uint8
	Mapper    uint8
	Mirroring Mirroring
	Battery   bool
	Trainer   bool
}

// Cartridge holds program, pattern and battery-backed memory. A new
// cartridge reads as zero everywhere until an image is loaded.
type Cartridge struct {
	header Header

	prg  [0x8000]uint8
	chr  [CHRBankSize]uint8
	sram [SRAMSize]uint8

	prgBytes  int
	chrBytes  int
	hasCHRRAM bool
	loaded    bool

	mapper Mapper
}

// New creates an empty cartridge
func New() *Cartridge {
	c := &Cartridge{}
	c.mapper = NewMapper000(c)
	return c
}

// LoadFromFile loads an iNES image from disk
func LoadFromFile(filename string) (*Cartridge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open ROM")
	}
	defer file.Close()

	cart := New()
	if err := cart.Load(bufio.NewReader(file)); err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	return cart, nil
}

// ParseHeader decodes an iNES header
func ParseHeader(raw []byte) (Header, error) {
	if len(raw) < 4 || [4]byte(raw[:4]) != inesMagic {
		return Header{}, ErrInvalidMagic
	}
	if len(raw) < HeaderSize {
		return Header{}, ErrTruncated
	}

	flags6, flags7 := raw[6], raw[7]
	h := Header{
		PRGBanks: raw[4],
		CHRBanks: raw[5],
		Battery:  flags6&0x02 != 0,
		Trainer:  flags6&0x04 != 0,
		Mapper:   flags6 >> 4,
	}

	// Old dumpers wrote text into bytes 7-15; only trust flags 7 when the
	// tail of the header is clean.
	if raw[12]|raw[13]|raw[14]|raw[15] == 0 {
		h.Mapper |= flags7 & 0xF0
	}

	switch {
	case flags6&0x08 != 0:
		h.Mirroring = MirrorFourScreen
	case flags6&0x01 != 0:
		h.Mirroring = MirrorVertical
	default:
		h.Mirroring = MirrorHorizontal
	}
	return h, nil
}

// Load parses an iNES image. On any error the cartridge is left untouched.
// Program or pattern data shorter than the header announces is zero filled.
func (c *Cartridge) Load(r io.Reader) error {
	raw := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, raw)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(err, "read header")
	}
	header, err := ParseHeader(raw[:n])
	if err != nil {
		return err
	}
	newMapper, ok := supportedMappers[header.Mapper]
	if !ok {
		return errors.Wrapf(ErrUnsupportedMapper, "mapper %d", header.Mapper)
	}
	if int(header.PRGBanks)*PRGBankSize > len(c.prg) {
		return errors.Wrapf(ErrOversize, "%d PRG banks", header.PRGBanks)
	}
	if int(header.CHRBanks)*CHRBankSize > len(c.chr) {
		return errors.Wrapf(ErrOversize, "%d CHR banks", header.CHRBanks)
	}

	next := &Cartridge{
		header:    header,
		prgBytes:  int(header.PRGBanks) * PRGBankSize,
		chrBytes:  int(header.CHRBanks) * CHRBankSize,
		hasCHRRAM: header.CHRBanks == 0,
		loaded:    true,
	}

	if header.Trainer {
		if err := readPadded(r, next.sram[trainerOffset:trainerOffset+TrainerSize], "trainer"); err != nil {
			return err
		}
	}
	if err := readPadded(r, next.prg[:next.prgBytes], "PRG ROM"); err != nil {
		return err
	}
	if err := readPadded(r, next.chr[:next.chrBytes], "CHR ROM"); err != nil {
		return err
	}

	*c = *next
	c.mapper = newMapper(c)
	return nil
}

// readPadded fills dst from r, leaving a zero tail when r runs dry
func readPadded(r io.Reader, dst []byte, what string) error {
	n, err := io.ReadFull(r, dst)
	switch err {
	case nil:
		return nil
	case io.EOF, io.ErrUnexpectedEOF:
		log.Printf("[CARTRIDGE] %s short by %d bytes, zero filled", what, len(dst)-n)
		return nil
	}
	return errors.Wrapf(err, "read %s", what)
}

// Read services a CPU read in $4020-$FFFF. NROM reads have no side
// effects, so peek makes no difference here.
func (c *Cartridge) Read(address uint16, peek bool) uint8 {
	if address < SRAMBase {
		return 0
	}
	return c.mapper.ReadPRG(address)
}

// Write services a CPU write in $4020-$FFFF
func (c *Cartridge) Write(address uint16, value uint8, peek bool) {
	if address < SRAMBase {
		return
	}
	c.mapper.WritePRG(address, value)
}

// ReadVideo reads the pattern tables at PPU $0000-$1FFF
func (c *Cartridge) ReadVideo(address uint16) uint8 {
	return c.mapper.ReadCHR(address)
}

// WriteVideo writes the pattern tables; ignored unless the cartridge uses CHR RAM
func (c *Cartridge) WriteVideo(address uint16, value uint8) {
	c.mapper.WriteCHR(address, value)
}

// Header returns the decoded header of the loaded image
func (c *Cartridge) Header() Header {
	return c.header
}

// Mirroring returns the nametable mirroring mode
func (c *Cartridge) Mirroring() Mirroring {
	return c.header.Mirroring
}

// Loaded reports whether an image has been loaded successfully
func (c *Cartridge) Loaded() bool {
	return c.loaded
}

// HasBattery reports whether battery RAM should persist across sessions
func (c *Cartridge) HasBattery() bool {
	return c.header.Battery
}

// PRGSize returns the number of PRG ROM bytes announced by the header
func (c *Cartridge) PRGSize() int {
	return c.prgBytes
}

// CHRSize returns the number of CHR ROM bytes announced by the header (0 for CHR RAM)
func (c *Cartridge) CHRSize() int {
	return c.chrBytes
}

// SaveBattery writes battery RAM to w
func (c *Cartridge) SaveBattery(w io.Writer) error {
	_, err := w.Write(c.sram[:])
	return errors.Wrap(err, "write battery RAM")
}

// LoadBattery restores battery RAM from r
func (c *Cartridge) LoadBattery(r io.Reader) error {
	var buf [SRAMSize]uint8
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return errors.Wrap(err, "read battery RAM")
	}
	c.sram = buf
	return nil
}

// Snapshot copies the mutable cartridge memory for save states
func (c *Cartridge) Snapshot() (sram []uint8, chrRAM []uint8) {
	sram = append([]uint8(nil), c.sram[:]...)
	if c.hasCHRRAM {
		chrRAM = append([]uint8(nil), c.chr[:]...)
	}
	return sram, chrRAM
}

// Restore writes back memory captured with Snapshot
func (c *Cartridge) Restore(sram []uint8, chrRAM []uint8) {
	copy(c.sram[:], sram)
	if c.hasCHRRAM && chrRAM != nil {
		copy(c.chr[:], chrRAM)
	}
}

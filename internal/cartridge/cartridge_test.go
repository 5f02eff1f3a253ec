package cartridge

import (
	"bytes"
	"errors"
	"testing"
)

func mustBuild(t *testing.T, b *ROMBuilder) *Cartridge {
	t.Helper()
	cart, err := b.BuildCartridge()
	if err != nil {
		t.Fatalf("BuildCartridge failed: %v", err)
	}
	return cart
}

func TestParseHeader_ShouldDecodeFlags(t *testing.T) {
	tests := []struct {
		name   string
		flags6 uint8
		flags7 uint8
		want   Header
	}{
		{"horizontal", 0x00, 0x00, Header{PRGBanks: 2, CHRBanks: 1, Mirroring: MirrorHorizontal}},
		{"vertical", 0x01, 0x00, Header{PRGBanks: 2, CHRBanks: 1, Mirroring: MirrorVertical}},
		{"battery", 0x02, 0x00, Header{PRGBanks: 2, CHRBanks: 1, Battery: true}},
		{"trainer", 0x04, 0x00, Header{PRGBanks: 2, CHRBanks: 1, Trainer: true}},
		{"four screen wins", 0x09, 0x00, Header{PRGBanks: 2, CHRBanks: 1, Mirroring: MirrorFourScreen}},
		{"mapper nibbles", 0x10, 0x40, Header{PRGBanks: 2, CHRBanks: 1, Mapper: 0x41}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte{'N', 'E', 'S', 0x1A, 2, 1, tt.flags6, tt.flags7, 0, 0, 0, 0, 0, 0, 0, 0}
			got, err := ParseHeader(raw)
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseHeader = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseHeader_DirtyTail_ShouldIgnoreFlags7(t *testing.T) {
	raw := []byte{'N', 'E', 'S', 0x1A, 1, 1, 0x00, 'D', 'i', 's', 'k', 'D', 'u', 'd', 'e', '!'}
	h, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Mapper != 0 {
		t.Errorf("Expected mapper 0 with dirty header tail, got %d", h.Mapper)
	}
}

func TestLoad_InvalidMagic_ShouldLeaveCartridgeUnchanged(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder().WithCode(0x8000, 0xA9, 0x42).WithMirroring(MirrorVertical))
	before := *cart

	for _, image := range [][]byte{
		{'N', 'E', 'S', 0x1B, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{'n', 'e', 's', 0x1A, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{},
		{'N', 'E'},
	} {
		err := cart.Load(bytes.NewReader(image))
		if !errors.Is(err, ErrInvalidMagic) {
			t.Errorf("Load(%v) error = %v, want ErrInvalidMagic", image, err)
		}
		if cart.prg != before.prg || cart.header != before.header || cart.sram != before.sram {
			t.Fatal("Cartridge state changed after rejected load")
		}
	}
	if got := cart.Read(0x8001, false); got != 0x42 {
		t.Errorf("PRG byte after rejected load = 0x%02X, want 0x42", got)
	}
}

func TestLoad_UnsupportedMapper_ShouldFail(t *testing.T) {
	cart := New()
	err := cart.Load(bytes.NewReader(NewROMBuilder().WithMapper(4).Build()))
	if !errors.Is(err, ErrUnsupportedMapper) {
		t.Errorf("Expected ErrUnsupportedMapper, got %v", err)
	}
	if cart.Loaded() {
		t.Error("Cartridge should not be marked loaded")
	}
}

func TestLoad_Oversize_ShouldFail(t *testing.T) {
	cart := New()
	err := cart.Load(bytes.NewReader(NewROMBuilder().WithPRGBanks(4).Build()))
	if !errors.Is(err, ErrOversize) {
		t.Errorf("Expected ErrOversize, got %v", err)
	}
}

func TestLoad_HeaderOnly_ShouldZeroFill(t *testing.T) {
	cart := New()
	header := NewROMBuilder().Header()
	if err := cart.Load(bytes.NewReader(header)); err != nil {
		t.Fatalf("Load header-only image: %v", err)
	}
	if !cart.Loaded() || cart.PRGSize() != PRGBankSize || cart.CHRSize() != 0 {
		t.Errorf("Unexpected sizes PRG=%d CHR=%d", cart.PRGSize(), cart.CHRSize())
	}
	if got := cart.Read(0xFFFC, false); got != 0 {
		t.Errorf("Expected zero filled PRG, got 0x%02X", got)
	}
}

func TestLoad_TruncatedHeader_ShouldLeaveCartridgeUnchanged(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder().WithCode(0x8000, 0xA9, 0x42))
	before := *cart

	err := cart.Load(bytes.NewReader([]byte{'N', 'E', 'S', 0x1A, 2, 1}))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Load error = %v, want ErrTruncated", err)
	}
	if cart.prg != before.prg || cart.header != before.header {
		t.Error("Cartridge state changed after rejected load")
	}
}

func TestLoad_ShortPRG_ShouldZeroFillTail(t *testing.T) {
	b := NewROMBuilder().WithCode(0x8000, 0xEA, 0xEA)
	image := b.Build()[:HeaderSize+2]

	cart := New()
	if err := cart.Load(bytes.NewReader(image)); err != nil {
		t.Fatalf("Load short image: %v", err)
	}
	if got := cart.Read(0x8001, false); got != 0xEA {
		t.Errorf("PRG byte 1 = 0x%02X, want 0xEA", got)
	}
	if got := cart.Read(0x8002, false); got != 0 {
		t.Errorf("PRG byte 2 = 0x%02X, want zero fill", got)
	}
}

func TestRead_SingleBank_ShouldMirrorUpperHalf(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder().WithCode(0x8123, 0x5A))

	for _, addr := range []uint16{0x8123, 0xC123} {
		if got := cart.Read(addr, false); got != 0x5A {
			t.Errorf("Read(0x%04X) = 0x%02X, want 0x5A", addr, got)
		}
	}
}

func TestRead_TwoBanks_ShouldMapDirectly(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder().WithPRGBanks(2).WithCode(0x8010, 0x11).WithCode(0xC010, 0x22))

	if got := cart.Read(0x8010, false); got != 0x11 {
		t.Errorf("Read(0x8010) = 0x%02X, want 0x11", got)
	}
	if got := cart.Read(0xC010, false); got != 0x22 {
		t.Errorf("Read(0xC010) = 0x%02X, want 0x22", got)
	}
}

func TestWrite_ShouldOnlyTouchBatteryRAM(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder().WithCode(0x8000, 0xEA))

	cart.Write(0x6000, 0x12, false)
	cart.Write(0x7FFF, 0x34, false)
	cart.Write(0x8000, 0x99, false)
	cart.Write(0x5000, 0x77, false)

	if got := cart.Read(0x6000, false); got != 0x12 {
		t.Errorf("SRAM $6000 = 0x%02X", got)
	}
	if got := cart.Read(0x7FFF, false); got != 0x34 {
		t.Errorf("SRAM $7FFF = 0x%02X", got)
	}
	if got := cart.Read(0x8000, false); got != 0xEA {
		t.Errorf("PRG ROM should be read only, got 0x%02X", got)
	}
	if got := cart.Read(0x5000, false); got != 0 {
		t.Errorf("Expansion area should read 0, got 0x%02X", got)
	}
}

func TestTrainer_ShouldAppearAt7000(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder().WithTrainer([]uint8{0xDE, 0xAD}).WithCode(0x8000, 0x4C))

	if got := cart.Read(0x7000, false); got != 0xDE {
		t.Errorf("Trainer byte 0 = 0x%02X", got)
	}
	if got := cart.Read(0x7001, false); got != 0xAD {
		t.Errorf("Trainer byte 1 = 0x%02X", got)
	}
	if got := cart.Read(0x8000, false); got != 0x4C {
		t.Errorf("PRG should follow the trainer, got 0x%02X", got)
	}
}

func TestVideo_CHRRAM_ShouldBeWritable(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder())
	cart.WriteVideo(0x0123, 0x77)
	if got := cart.ReadVideo(0x0123); got != 0x77 {
		t.Errorf("CHR RAM read = 0x%02X, want 0x77", got)
	}
}

func TestVideo_CHRROM_ShouldIgnoreWrites(t *testing.T) {
	chr := make([]uint8, CHRBankSize)
	chr[0x10] = 0x3C
	cart := mustBuild(t, NewROMBuilder().WithCHR(chr))

	cart.WriteVideo(0x0010, 0xFF)
	if got := cart.ReadVideo(0x0010); got != 0x3C {
		t.Errorf("CHR ROM read = 0x%02X, want 0x3C", got)
	}
}

func TestBattery_ShouldRoundTrip(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder().WithBattery())
	if !cart.HasBattery() {
		t.Fatal("Expected battery flag")
	}
	cart.Write(0x6100, 0xAB, false)

	var buf bytes.Buffer
	if err := cart.SaveBattery(&buf); err != nil {
		t.Fatalf("SaveBattery: %v", err)
	}

	other := mustBuild(t, NewROMBuilder().WithBattery())
	if err := other.LoadBattery(&buf); err != nil {
		t.Fatalf("LoadBattery: %v", err)
	}
	if got := other.Read(0x6100, false); got != 0xAB {
		t.Errorf("Restored SRAM = 0x%02X, want 0xAB", got)
	}
}

func TestLoadBattery_ShortInput_ShouldKeepRAM(t *testing.T) {
	cart := mustBuild(t, NewROMBuilder())
	cart.Write(0x6000, 0x01, false)
	if err := cart.LoadBattery(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Fatal("Expected error for short battery file")
	}
	if got := cart.Read(0x6000, false); got != 0x01 {
		t.Errorf("SRAM changed after failed restore: 0x%02X", got)
	}
}

package ppu

import (
	"testing"

	"nescore/internal/bus"
	"nescore/internal/cartridge"
	"nescore/internal/cpu"
)

// PPUTestHelper bundles a PPU with a bus backed by a CHR RAM cartridge
type PPUTestHelper struct {
	PPU   *PPU
	Bus   *bus.Bus
	Frame *FrameBuffer
}

func NewPPUTestHelper(t *testing.T) *PPUTestHelper {
	t.Helper()
	cart, err := cartridge.NewROMBuilder().BuildCartridge()
	if err != nil {
		t.Fatalf("BuildCartridge: %v", err)
	}
	b := bus.New()
	b.LoadCartridge(cart)
	return &PPUTestHelper{PPU: New(), Bus: b, Frame: &FrameBuffer{}}
}

// StepLines advances exactly n scanlines, one CPU cycle at a time, and
// returns how many NMIs were requested
func (h *PPUTestHelper) StepLines(t *testing.T, n int) int {
	t.Helper()
	nmis := 0
	for i := 0; i < n; i++ {
		start := h.PPU.Line()
		for guard := 0; h.PPU.Line() == start; guard++ {
			if guard > DotsPerLine {
				t.Fatalf("Line %d never completed", start)
			}
			if h.PPU.Step(1, h.Bus, h.Frame) == cpu.InterruptNMI {
				nmis++
			}
		}
	}
	return nmis
}

// Service runs a zero-cycle step so posted register accesses complete
func (h *PPUTestHelper) Service() cpu.InterruptKind {
	return h.PPU.Step(0, h.Bus, h.Frame)
}

func TestNew_ShouldStartAtVBlankLine(t *testing.T) {
	p := New()
	if p.Line() != PowerOnLine || p.Line() != 241 {
		t.Errorf("Expected power-on line 241, got %d", p.Line())
	}
	if p.Frame() != 0 {
		t.Errorf("Expected frame 0, got %d", p.Frame())
	}
}

func TestStep_ShouldAccumulateDotsAcrossCalls(t *testing.T) {
	h := NewPPUTestHelper(t)

	h.PPU.Step(113, h.Bus, h.Frame) // 339 dots
	if h.PPU.Line() != 241 {
		t.Fatalf("Line advanced after 339 dots: %d", h.PPU.Line())
	}
	h.PPU.Step(1, h.Bus, h.Frame) // 342 dots
	if h.PPU.Line() != 242 {
		t.Errorf("Expected line 242, got %d", h.PPU.Line())
	}
	if h.PPU.dots != 1 {
		t.Errorf("Expected 1 leftover dot, got %d", h.PPU.dots)
	}
}

func TestStep_ShouldAdvanceSeveralLinesInOneCall(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.PPU.Step(514, h.Bus, h.Frame) // 1542 dots = 4 lines + 178
	if h.PPU.Line() != 245 {
		t.Errorf("Expected line 245, got %d", h.PPU.Line())
	}
}

func TestStep_ShouldWrapAfter262Lines(t *testing.T) {
	h := NewPPUTestHelper(t)

	for i := 0; i < LinesPerFrame; i++ {
		h.StepLines(t, 1)
		if line := h.PPU.Line(); line < 0 || line >= LinesPerFrame {
			t.Fatalf("Line %d out of range", line)
		}
	}
	if h.PPU.Line() != PowerOnLine {
		t.Errorf("Expected line %d after a full frame, got %d", PowerOnLine, h.PPU.Line())
	}
	if h.PPU.Frame() != 1 {
		t.Errorf("Expected one completed frame, got %d", h.PPU.Frame())
	}
}

func TestPhaseOf(t *testing.T) {
	tests := []struct {
		line int
		want LinePhase
	}{
		{0, PhaseVisible},
		{239, PhaseVisible},
		{240, PhasePostRender},
		{241, PhaseVBlank},
		{260, PhaseVBlank},
		{261, PhasePreRender},
	}
	for _, tt := range tests {
		if got := PhaseOf(tt.line); got != tt.want {
			t.Errorf("PhaseOf(%d) = %s, want %s", tt.line, got, tt.want)
		}
	}
}

func TestPhaseOf_ShouldPanicOutsideFrame(t *testing.T) {
	for _, line := range []int{-1, 262, 1000} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("PhaseOf(%d) did not panic", line)
				}
			}()
			PhaseOf(line)
		}()
	}
}

func TestVBlank_ShouldRaiseNMIOnceWhenEnabled(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.Bus.Write(0x2000, 0x80, false)

	if nmis := h.StepLines(t, 1); nmis != 1 {
		t.Errorf("Expected one NMI entering vblank, got %d", nmis)
	}
	if h.Bus.Status()&bus.StatusVBlank == 0 {
		t.Error("VBlank flag should be set on line 241")
	}

	if nmis := h.StepLines(t, 19); nmis != 0 {
		t.Errorf("NMI should not repeat during vblank, got %d", nmis)
	}
}

func TestVBlank_ShouldNotRaiseNMIWhenDisabled(t *testing.T) {
	h := NewPPUTestHelper(t)

	if nmis := h.StepLines(t, 1); nmis != 0 {
		t.Errorf("Expected no NMI, got %d", nmis)
	}
	if h.Bus.Status()&bus.StatusVBlank == 0 {
		t.Error("VBlank flag should be set regardless of NMI enable")
	}
}

func TestVBlank_EnablingNMIDuringVBlankShouldFire(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.StepLines(t, 2)

	h.Bus.Write(0x2000, 0x80, false)
	if h.Service() != cpu.InterruptNMI {
		t.Error("Enabling NMI while vblank is set should raise an NMI")
	}
	if h.Service() != cpu.InterruptNone {
		t.Error("NMI should fire only on the rising edge")
	}
}

func TestVBlank_StatusReadShouldPreventLateNMI(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.StepLines(t, 1)
	h.Bus.Read(0x2002, false)

	h.Bus.Write(0x2000, 0x80, false)
	if nmis := h.StepLines(t, 5); nmis != 0 {
		t.Errorf("Expected no NMI after vblank was acknowledged, got %d", nmis)
	}
}

func TestPreRender_ShouldClearStatusFlags(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.Bus.SetStatus(bus.StatusSprite0|bus.StatusOverflow, true)

	// 241 through 261
	h.StepLines(t, 21)
	if h.PPU.Line() != 0 {
		t.Fatalf("Expected line 0, got %d", h.PPU.Line())
	}
	if status := h.Bus.Status(); status != 0 {
		t.Errorf("Expected status cleared after pre-render, got 0x%02X", status)
	}
}

func TestRegisters_DataWriteShouldIncrementAddress(t *testing.T) {
	tests := []struct {
		name  string
		ctrl  uint8
		addrs []uint16
	}{
		{"increment 1", 0x00, []uint16{0x2100, 0x2101}},
		{"increment 32", 0x04, []uint16{0x2100, 0x2120}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPPUTestHelper(t)
			h.Bus.Write(0x2000, tt.ctrl, false)
			h.Bus.Write(0x2006, 0x21, false)
			h.Bus.Write(0x2006, 0x00, false)
			h.Service()

			for i, addr := range tt.addrs {
				h.Bus.Write(0x2007, uint8(0x50+i), false)
				h.Service()
				if got := h.Bus.VRAM.Read(addr); got != uint8(0x50+i) {
					t.Errorf("VRAM[0x%04X] = 0x%02X, want 0x%02X", addr, got, 0x50+i)
				}
			}
		})
	}
}

func TestRegisters_DataReadShouldBeBuffered(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.Bus.VRAM.Write(0x2000, 0x11)
	h.Bus.VRAM.Write(0x2001, 0x22)
	h.Bus.Write(0x2006, 0x20, false)
	h.Bus.Write(0x2006, 0x00, false)
	h.Service()

	h.Bus.Read(0x2007, false) // stale buffer
	h.Service()
	if got := h.Bus.Read(0x2007, false); got != 0x11 {
		t.Errorf("Second read = 0x%02X, want 0x11", got)
	}
	h.Service()
	if got := h.Bus.Read(0x2007, true); got != 0x22 {
		t.Errorf("Buffered byte = 0x%02X, want 0x22", got)
	}
}

func TestRegisters_OAMDataShouldWriteAndIncrement(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.Bus.Write(0x2003, 0x10, false)
	h.Bus.Write(0x2004, 0xAB, false)
	h.Service()
	h.Bus.Write(0x2004, 0xCD, false)
	h.Service()

	oam := h.PPU.OAM()
	if oam[0x10] != 0xAB || oam[0x11] != 0xCD {
		t.Errorf("OAM[0x10:0x12] = %02X %02X", oam[0x10], oam[0x11])
	}
	if h.Bus.OAMAddr() != 0x12 {
		t.Errorf("OAMADDR = 0x%02X, want 0x12", h.Bus.OAMAddr())
	}

	h.Bus.Write(0x2003, 0x10, false)
	h.Service()
	if got := h.Bus.Read(0x2004, false); got != 0xAB {
		t.Errorf("$2004 read = 0x%02X, want 0xAB", got)
	}
}

func TestScroll_ShouldApplyAtNextLine(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.Bus.Write(0x2005, 0x08, false)
	h.Bus.Write(0x2005, 0x10, false)
	h.Service()

	want := bus.Scroll{X: 0x08, Y: 0x10}
	if h.PPU.fetchScroll != want {
		t.Errorf("Fetch scroll = %+v, want %+v", h.PPU.fetchScroll, want)
	}
	if h.PPU.currentScroll != (bus.Scroll{}) {
		t.Error("Current scroll changed before the line started")
	}

	h.StepLines(t, 1)
	if h.PPU.currentScroll != want {
		t.Errorf("Current scroll = %+v, want %+v", h.PPU.currentScroll, want)
	}
}

func TestDMA_ShouldCopyPageInTwoHalves(t *testing.T) {
	h := NewPPUTestHelper(t)
	for i := 0; i < 0x100; i++ {
		h.Bus.Write(0x0200+uint16(i), uint8(i), false)
	}
	h.Bus.Write(0x2003, 0x04, false)
	h.Bus.Write(0x4014, 0x02, false)

	h.Service()
	if !h.PPU.DMARunning() {
		t.Fatal("DMA should still be running after the first half")
	}
	oam := h.PPU.OAM()
	for i := 0; i < dmaFirstHalf; i++ {
		if oam[uint8(0x04+i)] != uint8(i) {
			t.Fatalf("First half: OAM[0x%02X] = 0x%02X, want 0x%02X", uint8(0x04+i), oam[uint8(0x04+i)], i)
		}
	}
	if oam[uint8(0x04+dmaFirstHalf)] != 0 {
		t.Error("Second half copied too early")
	}

	h.Service()
	if h.PPU.DMARunning() {
		t.Error("DMA should be complete after the second half")
	}
	oam = h.PPU.OAM()
	for i := 0; i < OAMSize; i++ {
		if oam[uint8(0x04+i)] != uint8(i) {
			t.Fatalf("OAM[0x%02X] = 0x%02X, want 0x%02X", uint8(0x04+i), oam[uint8(0x04+i)], i)
		}
	}
}

func TestState_ShouldRoundTrip(t *testing.T) {
	h := NewPPUTestHelper(t)
	h.Bus.Write(0x2004, 0x99, false)
	h.Service()
	h.PPU.Step(200, h.Bus, h.Frame)

	other := New()
	if err := other.SetState(h.PPU.State()); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if other.State() != h.PPU.State() {
		t.Error("Restored PPU state differs")
	}
}

func TestSetState_ShouldRejectInvalidLine(t *testing.T) {
	p := New()
	s := p.State()
	s.Line = LinesPerFrame
	if err := p.SetState(s); err == nil {
		t.Error("Expected an error for line 262")
	}
	if p.Line() != PowerOnLine {
		t.Error("Rejected state must not be applied")
	}
}

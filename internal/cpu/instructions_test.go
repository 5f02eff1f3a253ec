package cpu

import "testing"

func TestADC_FlagTable(t *testing.T) {
	tests := []struct {
		name       string
		a, m       uint8
		carry      bool
		want       uint8
		c, z, v, n bool
	}{
		{"simple", 0x10, 0x20, false, 0x30, false, false, false, false},
		{"carry in", 0x10, 0x20, true, 0x31, false, false, false, false},
		{"signed overflow", 0x50, 0x50, false, 0xA0, false, false, true, true},
		{"unsigned wrap", 0xFF, 0x01, false, 0x00, true, true, false, false},
		{"negative overflow", 0x80, 0xFF, false, 0x7F, true, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper := NewCPUTestHelper()
			helper.SetupResetVector(0x8000)
			helper.LoadProgram(0x8000, 0x69, tt.m)
			helper.CPU.A = tt.a
			helper.CPU.P.Set(FlagC, tt.carry)

			helper.MustStep(t)
			if helper.CPU.A != tt.want {
				t.Errorf("Expected A=0x%02X, got 0x%02X", tt.want, helper.CPU.A)
			}
			helper.AssertFlag(t, tt.name, FlagC, tt.c)
			helper.AssertFlag(t, tt.name, FlagZ, tt.z)
			helper.AssertFlag(t, tt.name, FlagV, tt.v)
			helper.AssertFlag(t, tt.name, FlagN, tt.n)
		})
	}
}

func TestSBC_FlagTable(t *testing.T) {
	tests := []struct {
		name  string
		a, m  uint8
		carry bool
		want  uint8
		c, v  bool
	}{
		{"no borrow", 0x50, 0x10, true, 0x40, true, false},
		{"borrow in", 0x50, 0x10, false, 0x3F, true, false},
		{"borrow out", 0x50, 0xF0, true, 0x60, false, false},
		{"signed overflow", 0x50, 0xB0, true, 0xA0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper := NewCPUTestHelper()
			helper.SetupResetVector(0x8000)
			helper.LoadProgram(0x8000, 0xE9, tt.m)
			helper.CPU.A = tt.a
			helper.CPU.P.Set(FlagC, tt.carry)

			helper.MustStep(t)
			if helper.CPU.A != tt.want {
				t.Errorf("Expected A=0x%02X, got 0x%02X", tt.want, helper.CPU.A)
			}
			helper.AssertFlag(t, tt.name, FlagC, tt.c)
			helper.AssertFlag(t, tt.name, FlagV, tt.v)
		})
	}
}

func TestADCThenSBC_ShouldRestoreAccumulator(t *testing.T) {
	values := []uint8{0x00, 0x01, 0x50, 0x7F, 0x80, 0xFF}

	for _, a := range values {
		for _, m := range values {
			helper := NewCPUTestHelper()
			helper.SetupResetVector(0x8000)
			// LDA #a; CLC; ADC #m; SEC; SBC #m
			helper.LoadProgram(0x8000, 0xA9, a, 0x18, 0x69, m, 0x38, 0xE9, m)

			helper.RunSteps(t, 5)
			if helper.CPU.A != a {
				t.Errorf("A=0x%02X m=0x%02X: round trip gave 0x%02X", a, m, helper.CPU.A)
			}
		}
	}
}

func TestCompare_FlagTable(t *testing.T) {
	tests := []struct {
		name    string
		reg, m  uint8
		c, z, n bool
	}{
		{"equal", 0x40, 0x40, true, true, false},
		{"greater", 0x41, 0x40, true, false, false},
		{"less", 0x40, 0x41, false, false, true},
		{"unsigned compare", 0x01, 0xFF, false, false, false},
	}

	for _, tt := range tests {
		for _, op := range []struct {
			name   string
			opcode uint8
			set    func(c *CPU, v uint8)
		}{
			{"CMP", 0xC9, func(c *CPU, v uint8) { c.A = v }},
			{"CPX", 0xE0, func(c *CPU, v uint8) { c.X = v }},
			{"CPY", 0xC0, func(c *CPU, v uint8) { c.Y = v }},
		} {
			name := op.name + " " + tt.name
			helper := NewCPUTestHelper()
			helper.SetupResetVector(0x8000)
			helper.LoadProgram(0x8000, op.opcode, tt.m)
			op.set(helper.CPU, tt.reg)

			helper.MustStep(t)
			helper.AssertFlag(t, name, FlagC, tt.c)
			helper.AssertFlag(t, name, FlagZ, tt.z)
			helper.AssertFlag(t, name, FlagN, tt.n)
		}
	}
}

func TestShifts_AccumulatorAndMemory(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		a, mem  uint8
		carry   bool
		wantA   uint8
		wantMem uint8
		wantC   bool
	}{
		{"ASL A", []uint8{0x0A}, 0x81, 0, false, 0x02, 0, true},
		{"LSR A", []uint8{0x4A}, 0x03, 0, false, 0x01, 0, true},
		{"ROL A with carry", []uint8{0x2A}, 0x40, 0, true, 0x81, 0, false},
		{"ROR A with carry", []uint8{0x6A}, 0x02, 0, true, 0x81, 0, false},
		{"ASL zp", []uint8{0x06, 0x10}, 0x00, 0xC0, false, 0x00, 0x80, true},
		{"ROR zp", []uint8{0x66, 0x10}, 0x00, 0x01, false, 0x00, 0x00, true},
		{"INC zp wraps", []uint8{0xE6, 0x10}, 0x00, 0xFF, false, 0x00, 0x00, false},
		{"DEC zp", []uint8{0xC6, 0x10}, 0x00, 0x00, false, 0x00, 0xFF, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper := NewCPUTestHelper()
			helper.SetupResetVector(0x8000)
			helper.LoadProgram(0x8000, tt.program...)
			helper.Memory.SetBytes(0x0010, tt.mem)
			helper.CPU.A = tt.a
			helper.CPU.P.Set(FlagC, tt.carry)

			helper.MustStep(t)
			if helper.CPU.A != tt.wantA {
				t.Errorf("Expected A=0x%02X, got 0x%02X", tt.wantA, helper.CPU.A)
			}
			helper.AssertMemory(t, tt.name, 0x0010, tt.wantMem)
			helper.AssertFlag(t, tt.name, FlagC, tt.wantC)
		})
	}
}

func TestBIT_ShouldCopyHighBits(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.SetupResetVector(0x8000)
	helper.LoadProgram(0x8000, 0x24, 0x10)
	helper.Memory.SetBytes(0x0010, 0xC0)
	helper.CPU.A = 0x01

	helper.MustStep(t)
	helper.AssertFlag(t, "BIT", FlagZ, true)
	helper.AssertFlag(t, "BIT", FlagV, true)
	helper.AssertFlag(t, "BIT", FlagN, true)
	if helper.CPU.A != 0x01 {
		t.Error("BIT must not change A")
	}
}

func TestTransfers(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.SetupResetVector(0x8000)
	// LDA #$80; TAX; TAY; LDX #$40; TXS; TSX; TXA
	helper.LoadProgram(0x8000, 0xA9, 0x80, 0xAA, 0xA8, 0xA2, 0x40, 0x9A, 0xBA, 0x8A)

	helper.RunSteps(t, 3)
	helper.AssertRegisters(t, "TAX/TAY", 0x80, 0x80, 0x80, 0xFD, 0x8004)
	helper.AssertFlag(t, "TAY", FlagN, true)

	helper.RunSteps(t, 4)
	helper.AssertRegisters(t, "TXS/TSX/TXA", 0x40, 0x40, 0x80, 0x40, 0x8009)
}

func TestUndocumentedOpcodes(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		a, x    uint8
		mem     uint8
		carry   bool
		wantA   uint8
		wantX   uint8
		wantMem uint8
		wantC   bool
		wantZ   bool
	}{
		{"LAX zp", []uint8{0xA7, 0x10}, 0, 0, 0x5A, false, 0x5A, 0x5A, 0x5A, false, false},
		{"SAX zp", []uint8{0x87, 0x10}, 0xF0, 0x3C, 0x00, false, 0xF0, 0x3C, 0x30, false, false},
		{"DCP zp", []uint8{0xC7, 0x10}, 0x10, 0, 0x11, false, 0x10, 0, 0x10, true, true},
		{"ISC zp", []uint8{0xE7, 0x10}, 0x20, 0, 0x0F, true, 0x10, 0, 0x10, true, false},
		{"SLO zp", []uint8{0x07, 0x10}, 0x01, 0, 0x81, false, 0x03, 0, 0x02, true, false},
		{"RLA zp", []uint8{0x27, 0x10}, 0xFF, 0, 0x40, true, 0x81, 0, 0x81, false, false},
		{"SRE zp", []uint8{0x47, 0x10}, 0x01, 0, 0x03, false, 0x00, 0, 0x01, true, true},
		{"RRA zp", []uint8{0x67, 0x10}, 0x10, 0, 0x02, true, 0x91, 0, 0x81, false, false},
		{"ALR imm", []uint8{0x4B, 0x03}, 0xFF, 0, 0, false, 0x01, 0, 0, true, false},
		{"ANC imm", []uint8{0x0B, 0x80}, 0xFF, 0, 0, false, 0x80, 0, 0, true, false},
		{"AXS imm", []uint8{0xCB, 0x02}, 0x0F, 0x07, 0, false, 0x0F, 0x05, 0, true, false},
		{"ARR imm", []uint8{0x6B, 0xFF}, 0xC0, 0, 0, true, 0xE0, 0, 0, true, false},
		{"SBC alias", []uint8{0xEB, 0x10}, 0x50, 0, 0, true, 0x40, 0, 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper := NewCPUTestHelper()
			helper.SetupResetVector(0x8000)
			helper.LoadProgram(0x8000, tt.program...)
			helper.Memory.SetBytes(0x0010, tt.mem)
			helper.CPU.A = tt.a
			helper.CPU.X = tt.x
			helper.CPU.P.Set(FlagC, tt.carry)

			helper.MustStep(t)
			if helper.CPU.A != tt.wantA {
				t.Errorf("Expected A=0x%02X, got 0x%02X", tt.wantA, helper.CPU.A)
			}
			if helper.CPU.X != tt.wantX {
				t.Errorf("Expected X=0x%02X, got 0x%02X", tt.wantX, helper.CPU.X)
			}
			helper.AssertMemory(t, tt.name, 0x0010, tt.wantMem)
			helper.AssertFlag(t, tt.name, FlagC, tt.wantC)
			helper.AssertFlag(t, tt.name, FlagZ, tt.wantZ)
		})
	}
}

func TestARR_OverflowFromBitsFiveAndSix(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.SetupResetVector(0x8000)
	helper.LoadProgram(0x8000, 0x6B, 0xFF)
	helper.CPU.A = 0x80
	helper.CPU.P.Set(FlagC, false)

	helper.MustStep(t)
	// 0x80 >> 1 = 0x40: bit 6 set, bit 5 clear
	if helper.CPU.A != 0x40 {
		t.Errorf("Expected A=0x40, got 0x%02X", helper.CPU.A)
	}
	helper.AssertFlag(t, "ARR", FlagC, true)
	helper.AssertFlag(t, "ARR", FlagV, true)
}

func TestUndocumentedNOPs_ShouldConsumeOperands(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		length  uint16
		cycles  int
	}{
		{"NOP implied", []uint8{0x1A}, 1, 2},
		{"SKB immediate", []uint8{0x80, 0x12}, 2, 2},
		{"IGN zero page", []uint8{0x04, 0x10}, 2, 3},
		{"IGN absolute", []uint8{0x0C, 0x00, 0x02}, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper := NewCPUTestHelper()
			helper.SetupResetVector(0x8000)
			helper.LoadProgram(0x8000, tt.program...)
			helper.CPU.A = 0x33

			if cycles := helper.MustStep(t); cycles != tt.cycles {
				t.Errorf("Expected %d cycles, got %d", tt.cycles, cycles)
			}
			helper.AssertRegisters(t, tt.name, 0x33, 0, 0, 0xFD, 0x8000+tt.length)
		})
	}
}

func TestIGN_ShouldPerformDummyRead(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.SetupResetVector(0x8000)
	helper.LoadProgram(0x8000, 0x0C, 0x02, 0x20)
	helper.Memory.ClearCounts()

	helper.MustStep(t)
	if helper.Memory.GetReadCount(0x2002) != 1 {
		t.Errorf("Expected one read of $2002, got %d", helper.Memory.GetReadCount(0x2002))
	}
}

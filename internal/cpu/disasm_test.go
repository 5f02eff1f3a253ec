package cpu

import "testing"

func TestDisassemble(t *testing.T) {
	tests := []struct {
		name    string
		address uint16
		bytes   []uint8
		want    string
		length  uint16
	}{
		{"implied", 0x8000, []uint8{0xEA}, "NOP", 1},
		{"accumulator", 0x8000, []uint8{0x0A}, "ASL A", 1},
		{"immediate", 0x8000, []uint8{0xA9, 0x42}, "LDA #$42", 2},
		{"zero page,X", 0x8000, []uint8{0xB5, 0x10}, "LDA $10,X", 2},
		{"zero page,Y", 0x8000, []uint8{0xB6, 0x10}, "LDX $10,Y", 2},
		{"absolute", 0x8000, []uint8{0x8D, 0x00, 0x20}, "STA $2000", 3},
		{"absolute,Y", 0x8000, []uint8{0xB9, 0x34, 0x12}, "LDA $1234,Y", 3},
		{"indirect", 0x8000, []uint8{0x6C, 0xFC, 0xFF}, "JMP ($FFFC)", 3},
		{"indexed indirect", 0x8000, []uint8{0xA1, 0x20}, "LDA ($20,X)", 2},
		{"indirect indexed", 0x8000, []uint8{0xB1, 0x20}, "LDA ($20),Y", 2},
		{"relative forward", 0x8000, []uint8{0xD0, 0x10}, "BNE $8012", 2},
		{"relative backward", 0x8010, []uint8{0xF0, 0xFE}, "BEQ $8010", 2},
		{"undocumented", 0x8000, []uint8{0xA7, 0x33}, "LAX $33", 2},
		{"unknown", 0x8000, []uint8{0x02}, ".db $02", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memory := NewMockMemory()
			memory.SetBytes(tt.address, tt.bytes...)

			text, length := Disassemble(memory, tt.address)
			if text != tt.want || length != tt.length {
				t.Errorf("Disassemble = (%q, %d), want (%q, %d)", text, length, tt.want, tt.length)
			}
			if len(memory.readCount) != 0 {
				t.Error("Disassemble must only peek")
			}
		})
	}
}

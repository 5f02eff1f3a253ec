package cpu

// AddressingMode selects how an instruction finds its operand
type AddressingMode uint8

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

// Length returns the instruction length in bytes for the mode
func (m AddressingMode) Length() uint16 {
	switch m {
	case Implied, Accumulator:
		return 1
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 3
	default:
		return 2
	}
}

// Mnemonic identifies an operation independent of addressing mode
type Mnemonic uint8

const (
	opNone Mnemonic = iota
	ADC
	AND
	ASL
	BCC
	BCS
	BEQ
	BIT
	BMI
	BNE
	BPL
	BRK
	BVC
	BVS
	CLC
	CLD
	CLI
	CLV
	CMP
	CPX
	CPY
	DEC
	DEX
	DEY
	EOR
	INC
	INX
	INY
	JMP
	JSR
	LDA
	LDX
	LDY
	LSR
	NOP
	ORA
	PHA
	PHP
	PLA
	PLP
	ROL
	ROR
	RTI
	RTS
	SBC
	SEC
	SED
	SEI
	STA
	STX
	STY
	TAX
	TAY
	TSX
	TXA
	TXS
	TYA

	// Undocumented
	ALR
	ANC
	ARR
	AXS
	DCP
	IGN
	ISC
	LAX
	RLA
	RRA
	SAX
	SKB
	SLO
	SRE

	mnemonicCount
)

var mnemonicNames = [mnemonicCount]string{
	opNone: "???",
	ADC:    "ADC", AND: "AND", ASL: "ASL", BCC: "BCC", BCS: "BCS", BEQ: "BEQ",
	BIT: "BIT", BMI: "BMI", BNE: "BNE", BPL: "BPL", BRK: "BRK", BVC: "BVC",
	BVS: "BVS", CLC: "CLC", CLD: "CLD", CLI: "CLI", CLV: "CLV", CMP: "CMP",
	CPX: "CPX", CPY: "CPY", DEC: "DEC", DEX: "DEX", DEY: "DEY", EOR: "EOR",
	INC: "INC", INX: "INX", INY: "INY", JMP: "JMP", JSR: "JSR", LDA: "LDA",
	LDX: "LDX", LDY: "LDY", LSR: "LSR", NOP: "NOP", ORA: "ORA", PHA: "PHA",
	PHP: "PHP", PLA: "PLA", PLP: "PLP", ROL: "ROL", ROR: "ROR", RTI: "RTI",
	RTS: "RTS", SBC: "SBC", SEC: "SEC", SED: "SED", SEI: "SEI", STA: "STA",
	STX: "STX", STY: "STY", TAX: "TAX", TAY: "TAY", TSX: "TSX", TXA: "TXA",
	TXS: "TXS", TYA: "TYA",
	ALR: "ALR", ANC: "ANC", ARR: "ARR", AXS: "AXS", DCP: "DCP", IGN: "IGN",
	ISC: "ISC", LAX: "LAX", RLA: "RLA", RRA: "RRA", SAX: "SAX", SKB: "SKB",
	SLO: "SLO", SRE: "SRE",
}

// String returns the assembler mnemonic
func (m Mnemonic) String() string {
	if m < mnemonicCount {
		return mnemonicNames[m]
	}
	return "???"
}

// Instruction describes one opcode. PageCycle marks read instructions that
// pay an extra cycle when indexing crosses a page.
type Instruction struct {
	Op        Mnemonic
	Mode      AddressingMode
	Cycles    uint8
	PageCycle bool
}

// Valid reports whether the opcode is implemented
func (i Instruction) Valid() bool {
	return i.Op != opNone
}

// Instructions is the decode table indexed by opcode. Entries left zero
// (KIL and the unstable store/transfer opcodes) are rejected by Step.
var Instructions = [256]Instruction{
	0x00: {BRK, Implied, 7, false},
	0x01: {ORA, IndexedIndirect, 6, false},
	0x03: {SLO, IndexedIndirect, 8, false},
	0x04: {IGN, ZeroPage, 3, false},
	0x05: {ORA, ZeroPage, 3, false},
	0x06: {ASL, ZeroPage, 5, false},
	0x07: {SLO, ZeroPage, 5, false},
	0x08: {PHP, Implied, 3, false},
	0x09: {ORA, Immediate, 2, false},
	0x0A: {ASL, Accumulator, 2, false},
	0x0B: {ANC, Immediate, 2, false},
	0x0C: {IGN, Absolute, 4, false},
	0x0D: {ORA, Absolute, 4, false},
	0x0E: {ASL, Absolute, 6, false},
	0x0F: {SLO, Absolute, 6, false},

	0x10: {BPL, Relative, 2, false},
	0x11: {ORA, IndirectIndexed, 5, true},
	0x13: {SLO, IndirectIndexed, 8, false},
	0x14: {IGN, ZeroPageX, 4, false},
	0x15: {ORA, ZeroPageX, 4, false},
	0x16: {ASL, ZeroPageX, 6, false},
	0x17: {SLO, ZeroPageX, 6, false},
	0x18: {CLC, Implied, 2, false},
	0x19: {ORA, AbsoluteY, 4, true},
	0x1A: {NOP, Implied, 2, false},
	0x1B: {SLO, AbsoluteY, 7, false},
	0x1C: {IGN, AbsoluteX, 4, true},
	0x1D: {ORA, AbsoluteX, 4, true},
	0x1E: {ASL, AbsoluteX, 7, false},
	0x1F: {SLO, AbsoluteX, 7, false},

	0x20: {JSR, Absolute, 6, false},
	0x21: {AND, IndexedIndirect, 6, false},
	0x23: {RLA, IndexedIndirect, 8, false},
	0x24: {BIT, ZeroPage, 3, false},
	0x25: {AND, ZeroPage, 3, false},
	0x26: {ROL, ZeroPage, 5, false},
	0x27: {RLA, ZeroPage, 5, false},
	0x28: {PLP, Implied, 4, false},
	0x29: {AND, Immediate, 2, false},
	0x2A: {ROL, Accumulator, 2, false},
	0x2B: {ANC, Immediate, 2, false},
	0x2C: {BIT, Absolute, 4, false},
	0x2D: {AND, Absolute, 4, false},
	0x2E: {ROL, Absolute, 6, false},
	0x2F: {RLA, Absolute, 6, false},

	0x30: {BMI, Relative, 2, false},
	0x31: {AND, IndirectIndexed, 5, true},
	0x33: {RLA, IndirectIndexed, 8, false},
	0x34: {IGN, ZeroPageX, 4, false},
	0x35: {AND, ZeroPageX, 4, false},
	0x36: {ROL, ZeroPageX, 6, false},
	0x37: {RLA, ZeroPageX, 6, false},
	0x38: {SEC, Implied, 2, false},
	0x39: {AND, AbsoluteY, 4, true},
	0x3A: {NOP, Implied, 2, false},
	0x3B: {RLA, AbsoluteY, 7, false},
	0x3C: {IGN, AbsoluteX, 4, true},
	0x3D: {AND, AbsoluteX, 4, true},
	0x3E: {ROL, AbsoluteX, 7, false},
	0x3F: {RLA, AbsoluteX, 7, false},

	0x40: {RTI, Implied, 6, false},
	0x41: {EOR, IndexedIndirect, 6, false},
	0x43: {SRE, IndexedIndirect, 8, false},
	0x44: {IGN, ZeroPage, 3, false},
	0x45: {EOR, ZeroPage, 3, false},
	0x46: {LSR, ZeroPage, 5, false},
	0x47: {SRE, ZeroPage, 5, false},
	0x48: {PHA, Implied, 3, false},
	0x49: {EOR, Immediate, 2, false},
	0x4A: {LSR, Accumulator, 2, false},
	0x4B: {ALR, Immediate, 2, false},
	0x4C: {JMP, Absolute, 3, false},
	0x4D: {EOR, Absolute, 4, false},
	0x4E: {LSR, Absolute, 6, false},
	0x4F: {SRE, Absolute, 6, false},

	0x50: {BVC, Relative, 2, false},
	0x51: {EOR, IndirectIndexed, 5, true},
	0x53: {SRE, IndirectIndexed, 8, false},
	0x54: {IGN, ZeroPageX, 4, false},
	0x55: {EOR, ZeroPageX, 4, false},
	0x56: {LSR, ZeroPageX, 6, false},
	0x57: {SRE, ZeroPageX, 6, false},
	0x58: {CLI, Implied, 2, false},
	0x59: {EOR, AbsoluteY, 4, true},
	0x5A: {NOP, Implied, 2, false},
	0x5B: {SRE, AbsoluteY, 7, false},
	0x5C: {IGN, AbsoluteX, 4, true},
	0x5D: {EOR, AbsoluteX, 4, true},
	0x5E: {LSR, AbsoluteX, 7, false},
	0x5F: {SRE, AbsoluteX, 7, false},

	0x60: {RTS, Implied, 6, false},
	0x61: {ADC, IndexedIndirect, 6, false},
	0x63: {RRA, IndexedIndirect, 8, false},
	0x64: {IGN, ZeroPage, 3, false},
	0x65: {ADC, ZeroPage, 3, false},
	0x66: {ROR, ZeroPage, 5, false},
	0x67: {RRA, ZeroPage, 5, false},
	0x68: {PLA, Implied, 4, false},
	0x69: {ADC, Immediate, 2, false},
	0x6A: {ROR, Accumulator, 2, false},
	0x6B: {ARR, Immediate, 2, false},
	0x6C: {JMP, Indirect, 5, false},
	0x6D: {ADC, Absolute, 4, false},
	0x6E: {ROR, Absolute, 6, false},
	0x6F: {RRA, Absolute, 6, false},

	0x70: {BVS, Relative, 2, false},
	0x71: {ADC, IndirectIndexed, 5, true},
	0x73: {RRA, IndirectIndexed, 8, false},
	0x74: {IGN, ZeroPageX, 4, false},
	0x75: {ADC, ZeroPageX, 4, false},
	0x76: {ROR, ZeroPageX, 6, false},
	0x77: {RRA, ZeroPageX, 6, false},
	0x78: {SEI, Implied, 2, false},
	0x79: {ADC, AbsoluteY, 4, true},
	0x7A: {NOP, Implied, 2, false},
	0x7B: {RRA, AbsoluteY, 7, false},
	0x7C: {IGN, AbsoluteX, 4, true},
	0x7D: {ADC, AbsoluteX, 4, true},
	0x7E: {ROR, AbsoluteX, 7, false},
	0x7F: {RRA, AbsoluteX, 7, false},

	0x80: {SKB, Immediate, 2, false},
	0x81: {STA, IndexedIndirect, 6, false},
	0x82: {SKB, Immediate, 2, false},
	0x83: {SAX, IndexedIndirect, 6, false},
	0x84: {STY, ZeroPage, 3, false},
	0x85: {STA, ZeroPage, 3, false},
	0x86: {STX, ZeroPage, 3, false},
	0x87: {SAX, ZeroPage, 3, false},
	0x88: {DEY, Implied, 2, false},
	0x89: {SKB, Immediate, 2, false},
	0x8A: {TXA, Implied, 2, false},
	0x8C: {STY, Absolute, 4, false},
	0x8D: {STA, Absolute, 4, false},
	0x8E: {STX, Absolute, 4, false},
	0x8F: {SAX, Absolute, 4, false},

	0x90: {BCC, Relative, 2, false},
	0x91: {STA, IndirectIndexed, 6, false},
	0x94: {STY, ZeroPageX, 4, false},
	0x95: {STA, ZeroPageX, 4, false},
	0x96: {STX, ZeroPageY, 4, false},
	0x97: {SAX, ZeroPageY, 4, false},
	0x98: {TYA, Implied, 2, false},
	0x99: {STA, AbsoluteY, 5, false},
	0x9A: {TXS, Implied, 2, false},
	0x9D: {STA, AbsoluteX, 5, false},

	0xA0: {LDY, Immediate, 2, false},
	0xA1: {LDA, IndexedIndirect, 6, false},
	0xA2: {LDX, Immediate, 2, false},
	0xA3: {LAX, IndexedIndirect, 6, false},
	0xA4: {LDY, ZeroPage, 3, false},
	0xA5: {LDA, ZeroPage, 3, false},
	0xA6: {LDX, ZeroPage, 3, false},
	0xA7: {LAX, ZeroPage, 3, false},
	0xA8: {TAY, Implied, 2, false},
	0xA9: {LDA, Immediate, 2, false},
	0xAA: {TAX, Implied, 2, false},
	0xAC: {LDY, Absolute, 4, false},
	0xAD: {LDA, Absolute, 4, false},
	0xAE: {LDX, Absolute, 4, false},
	0xAF: {LAX, Absolute, 4, false},

	0xB0: {BCS, Relative, 2, false},
	0xB1: {LDA, IndirectIndexed, 5, true},
	0xB3: {LAX, IndirectIndexed, 5, true},
	0xB4: {LDY, ZeroPageX, 4, false},
	0xB5: {LDA, ZeroPageX, 4, false},
	0xB6: {LDX, ZeroPageY, 4, false},
	0xB7: {LAX, ZeroPageY, 4, false},
	0xB8: {CLV, Implied, 2, false},
	0xB9: {LDA, AbsoluteY, 4, true},
	0xBA: {TSX, Implied, 2, false},
	0xBC: {LDY, AbsoluteX, 4, true},
	0xBD: {LDA, AbsoluteX, 4, true},
	0xBE: {LDX, AbsoluteY, 4, true},
	0xBF: {LAX, AbsoluteY, 4, true},

	0xC0: {CPY, Immediate, 2, false},
	0xC1: {CMP, IndexedIndirect, 6, false},
	0xC2: {SKB, Immediate, 2, false},
	0xC3: {DCP, IndexedIndirect, 8, false},
	0xC4: {CPY, ZeroPage, 3, false},
	0xC5: {CMP, ZeroPage, 3, false},
	0xC6: {DEC, ZeroPage, 5, false},
	0xC7: {DCP, ZeroPage, 5, false},
	0xC8: {INY, Implied, 2, false},
	0xC9: {CMP, Immediate, 2, false},
	0xCA: {DEX, Implied, 2, false},
	0xCB: {AXS, Immediate, 2, false},
	0xCC: {CPY, Absolute, 4, false},
	0xCD: {CMP, Absolute, 4, false},
	0xCE: {DEC, Absolute, 6, false},
	0xCF: {DCP, Absolute, 6, false},

	0xD0: {BNE, Relative, 2, false},
	0xD1: {CMP, IndirectIndexed, 5, true},
	0xD3: {DCP, IndirectIndexed, 8, false},
	0xD4: {IGN, ZeroPageX, 4, false},
	0xD5: {CMP, ZeroPageX, 4, false},
	0xD6: {DEC, ZeroPageX, 6, false},
	0xD7: {DCP, ZeroPageX, 6, false},
	0xD8: {CLD, Implied, 2, false},
	0xD9: {CMP, AbsoluteY, 4, true},
	0xDA: {NOP, Implied, 2, false},
	0xDB: {DCP, AbsoluteY, 7, false},
	0xDC: {IGN, AbsoluteX, 4, true},
	0xDD: {CMP, AbsoluteX, 4, true},
	0xDE: {DEC, AbsoluteX, 7, false},
	0xDF: {DCP, AbsoluteX, 7, false},

	0xE0: {CPX, Immediate, 2, false},
	0xE1: {SBC, IndexedIndirect, 6, false},
	0xE2: {SKB, Immediate, 2, false},
	0xE3: {ISC, IndexedIndirect, 8, false},
	0xE4: {CPX, ZeroPage, 3, false},
	0xE5: {SBC, ZeroPage, 3, false},
	0xE6: {INC, ZeroPage, 5, false},
	0xE7: {ISC, ZeroPage, 5, false},
	0xE8: {INX, Implied, 2, false},
	0xE9: {SBC, Immediate, 2, false},
	0xEA: {NOP, Implied, 2, false},
	0xEB: {SBC, Immediate, 2, false},
	0xEC: {CPX, Absolute, 4, false},
	0xED: {SBC, Absolute, 4, false},
	0xEE: {INC, Absolute, 6, false},
	0xEF: {ISC, Absolute, 6, false},

	0xF0: {BEQ, Relative, 2, false},
	0xF1: {SBC, IndirectIndexed, 5, true},
	0xF3: {ISC, IndirectIndexed, 8, false},
	0xF4: {IGN, ZeroPageX, 4, false},
	0xF5: {SBC, ZeroPageX, 4, false},
	0xF6: {INC, ZeroPageX, 6, false},
	0xF7: {ISC, ZeroPageX, 6, false},
	0xF8: {SED, Implied, 2, false},
	0xF9: {SBC, AbsoluteY, 4, true},
	0xFA: {NOP, Implied, 2, false},
	0xFB: {ISC, AbsoluteY, 7, false},
	0xFC: {IGN, AbsoluteX, 4, true},
	0xFD: {SBC, AbsoluteX, 4, true},
	0xFE: {INC, AbsoluteX, 7, false},
	0xFF: {ISC, AbsoluteX, 7, false},
}

package cpu

import "fmt"

// Disassemble decodes the instruction at address using peek reads and
// returns its text and length in bytes. Unknown opcodes render as a
// one-byte ".db".
func Disassemble(bus Bus, address uint16) (string, uint16) {
	opcode := bus.Read(address, true)
	inst := Instructions[opcode]
	if !inst.Valid() {
		return fmt.Sprintf(".db $%02X", opcode), 1
	}

	lo := bus.Read(address+1, true)
	hi := bus.Read(address+2, true)
	word := uint16(hi)<<8 | uint16(lo)
	name := inst.Op.String()

	var text string
	switch inst.Mode {
	case Implied:
		text = name
	case Accumulator:
		text = name + " A"
	case Immediate:
		text = fmt.Sprintf("%s #$%02X", name, lo)
	case ZeroPage:
		text = fmt.Sprintf("%s $%02X", name, lo)
	case ZeroPageX:
		text = fmt.Sprintf("%s $%02X,X", name, lo)
	case ZeroPageY:
		text = fmt.Sprintf("%s $%02X,Y", name, lo)
	case Relative:
		target := address + 2 + uint16(int8(lo))
		text = fmt.Sprintf("%s $%04X", name, target)
	case Absolute:
		text = fmt.Sprintf("%s $%04X", name, word)
	case AbsoluteX:
		text = fmt.Sprintf("%s $%04X,X", name, word)
	case AbsoluteY:
		text = fmt.Sprintf("%s $%04X,Y", name, word)
	case Indirect:
		text = fmt.Sprintf("%s ($%04X)", name, word)
	case IndexedIndirect:
		text = fmt.Sprintf("%s ($%02X,X)", name, lo)
	case IndirectIndexed:
		text = fmt.Sprintf("%s ($%02X),Y", name, lo)
	}
	return text, inst.Mode.Length()
}

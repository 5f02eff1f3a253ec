package cpu

// handler executes one operation and returns cycles beyond the table cost
type handler func(c *CPU, op operand) int

var handlers = [mnemonicCount]handler{
	ADC: (*CPU).adc, AND: (*CPU).and, ASL: (*CPU).asl, BIT: (*CPU).bit,
	BCC: (*CPU).bcc, BCS: (*CPU).bcs, BEQ: (*CPU).beq, BMI: (*CPU).bmi,
	BNE: (*CPU).bne, BPL: (*CPU).bpl, BVC: (*CPU).bvc, BVS: (*CPU).bvs,
	BRK: (*CPU).brk,
	CLC: (*CPU).clc, CLD: (*CPU).cld, CLI: (*CPU).cli, CLV: (*CPU).clv,
	CMP: (*CPU).cmp, CPX: (*CPU).cpx, CPY: (*CPU).cpy,
	DEC: (*CPU).dec, DEX: (*CPU).dex, DEY: (*CPU).dey, EOR: (*CPU).eor,
	INC: (*CPU).inc, INX: (*CPU).inx, INY: (*CPU).iny,
	JMP: (*CPU).jmp, JSR: (*CPU).jsr,
	LDA: (*CPU).lda, LDX: (*CPU).ldx, LDY: (*CPU).ldy, LSR: (*CPU).lsr,
	NOP: (*CPU).nop, ORA: (*CPU).ora,
	PHA: (*CPU).pha, PHP: (*CPU).php, PLA: (*CPU).pla, PLP: (*CPU).plp,
	ROL: (*CPU).rol, ROR: (*CPU).ror, RTI: (*CPU).rti, RTS: (*CPU).rts,
	SBC: (*CPU).sbc, SEC: (*CPU).sec, SED: (*CPU).sed, SEI: (*CPU).sei,
	STA: (*CPU).sta, STX: (*CPU).stx, STY: (*CPU).sty,
	TAX: (*CPU).tax, TAY: (*CPU).tay, TSX: (*CPU).tsx, TXA: (*CPU).txa,
	TXS: (*CPU).txs, TYA: (*CPU).tya,

	ALR: (*CPU).alr, ANC: (*CPU).anc, ARR: (*CPU).arr, AXS: (*CPU).axs,
	DCP: (*CPU).dcp, IGN: (*CPU).ign, ISC: (*CPU).isc, LAX: (*CPU).lax,
	RLA: (*CPU).rla, RRA: (*CPU).rra, SAX: (*CPU).sax, SKB: (*CPU).nop,
	SLO: (*CPU).slo, SRE: (*CPU).sre,
}

// Arithmetic

// addWithCarry adds m and the carry into A. SBC passes ^m.
func (c *CPU) addWithCarry(m uint8) {
	sum := uint16(c.A) + uint16(m)
	if c.P.Has(FlagC) {
		sum++
	}
	result := uint8(sum)
	c.P.Set(FlagC, sum > 0xFF)
	c.P.Set(FlagV, (c.A^result)&(m^result)&0x80 != 0)
	c.A = result
	c.setZN(result)
}

func (c *CPU) adc(op operand) int {
	c.addWithCarry(c.load(op))
	return 0
}

func (c *CPU) sbc(op operand) int {
	c.addWithCarry(^c.load(op))
	return 0
}

func (c *CPU) compare(register, m uint8) {
	c.P.Set(FlagC, register >= m)
	c.setZN(register - m)
}

func (c *CPU) cmp(op operand) int { c.compare(c.A, c.load(op)); return 0 }
func (c *CPU) cpx(op operand) int { c.compare(c.X, c.load(op)); return 0 }
func (c *CPU) cpy(op operand) int { c.compare(c.Y, c.load(op)); return 0 }

// Logic

func (c *CPU) and(op operand) int {
	c.A &= c.load(op)
	c.setZN(c.A)
	return 0
}

func (c *CPU) ora(op operand) int {
	c.A |= c.load(op)
	c.setZN(c.A)
	return 0
}

func (c *CPU) eor(op operand) int {
	c.A ^= c.load(op)
	c.setZN(c.A)
	return 0
}

func (c *CPU) bit(op operand) int {
	m := c.load(op)
	c.P.Set(FlagZ, c.A&m == 0)
	c.P.Set(FlagV, m&0x40 != 0)
	c.P.Set(FlagN, m&0x80 != 0)
	return 0
}

// Shifts operate on the fetched operand and write the result back to it

func (c *CPU) shiftLeft(op operand, carryIn bool) uint8 {
	m := c.load(op)
	c.P.Set(FlagC, m&0x80 != 0)
	m <<= 1
	if carryIn {
		m |= 0x01
	}
	c.store(op, m)
	c.setZN(m)
	return m
}

func (c *CPU) shiftRight(op operand, carryIn bool) uint8 {
	m := c.load(op)
	c.P.Set(FlagC, m&0x01 != 0)
	m >>= 1
	if carryIn {
		m |= 0x80
	}
	c.store(op, m)
	c.setZN(m)
	return m
}

func (c *CPU) asl(op operand) int { c.shiftLeft(op, false); return 0 }
func (c *CPU) lsr(op operand) int { c.shiftRight(op, false); return 0 }
func (c *CPU) rol(op operand) int { c.shiftLeft(op, c.P.Has(FlagC)); return 0 }
func (c *CPU) ror(op operand) int { c.shiftRight(op, c.P.Has(FlagC)); return 0 }

// Increment and decrement

func (c *CPU) incrementBy(op operand, delta uint8) uint8 {
	m := c.load(op) + delta
	c.store(op, m)
	c.setZN(m)
	return m
}

func (c *CPU) inc(op operand) int { c.incrementBy(op, 1); return 0 }
func (c *CPU) dec(op operand) int { c.incrementBy(op, 0xFF); return 0 }

func (c *CPU) inx(operand) int { c.X++; c.setZN(c.X); return 0 }
func (c *CPU) iny(operand) int { c.Y++; c.setZN(c.Y); return 0 }
func (c *CPU) dex(operand) int { c.X--; c.setZN(c.X); return 0 }
func (c *CPU) dey(operand) int { c.Y--; c.setZN(c.Y); return 0 }

// Loads and stores

func (c *CPU) lda(op operand) int { c.A = c.load(op); c.setZN(c.A); return 0 }
func (c *CPU) ldx(op operand) int { c.X = c.load(op); c.setZN(c.X); return 0 }
func (c *CPU) ldy(op operand) int { c.Y = c.load(op); c.setZN(c.Y); return 0 }

func (c *CPU) sta(op operand) int { c.write(op.addr, c.A); return 0 }
func (c *CPU) stx(op operand) int { c.write(op.addr, c.X); return 0 }
func (c *CPU) sty(op operand) int { c.write(op.addr, c.Y); return 0 }

// Transfers; TXS is the only one that leaves flags alone

func (c *CPU) tax(operand) int { c.X = c.A; c.setZN(c.X); return 0 }
func (c *CPU) tay(operand) int { c.Y = c.A; c.setZN(c.Y); return 0 }
func (c *CPU) txa(operand) int { c.A = c.X; c.setZN(c.A); return 0 }
func (c *CPU) tya(operand) int { c.A = c.Y; c.setZN(c.A); return 0 }
func (c *CPU) tsx(operand) int { c.X = c.SP; c.setZN(c.X); return 0 }
func (c *CPU) txs(operand) int { c.SP = c.X; return 0 }

// Flags

func (c *CPU) clc(operand) int { c.P.Set(FlagC, false); return 0 }
func (c *CPU) cld(operand) int { c.P.Set(FlagD, false); return 0 }
func (c *CPU) cli(operand) int { c.P.Set(FlagI, false); return 0 }
func (c *CPU) clv(operand) int { c.P.Set(FlagV, false); return 0 }
func (c *CPU) sec(operand) int { c.P.Set(FlagC, true); return 0 }
func (c *CPU) sed(operand) int { c.P.Set(FlagD, true); return 0 }
func (c *CPU) sei(operand) int { c.P.Set(FlagI, true); return 0 }

// Stack

func (c *CPU) pha(operand) int { c.push(c.A); return 0 }
func (c *CPU) php(operand) int { c.push(uint8(c.P | FlagB | FlagU)); return 0 }
func (c *CPU) pla(operand) int { c.A = c.pop(); c.setZN(c.A); return 0 }

func (c *CPU) plp(operand) int {
	c.P = Status(c.pop())&^FlagB | FlagU
	return 0
}

// Jumps and returns

func (c *CPU) jmp(op operand) int {
	c.PC = op.addr
	return 0
}

// jsr pushes the address of its own last byte
func (c *CPU) jsr(op operand) int {
	c.pushWord(c.PC - 1)
	c.PC = op.addr
	return 0
}

func (c *CPU) rts(operand) int {
	c.PC = c.popWord() + 1
	return 0
}

func (c *CPU) rti(operand) int {
	c.P = Status(c.pop())&^FlagB | FlagU
	c.PC = c.popWord()
	return 0
}

// brk skips its padding byte, so the handler returns past it. Its cycles
// come from the opcode table.
func (c *CPU) brk(operand) int {
	c.PC++
	if !c.P.Has(FlagI) {
		c.enter(InterruptBRK)
	}
	return 0
}

// Branches cost one more cycle when taken and another when the target is
// on a different page from the next instruction.
func (c *CPU) branch(op operand, taken bool) int {
	if !taken {
		return 0
	}
	c.PC = op.addr
	if op.crossed {
		return 2
	}
	return 1
}

func (c *CPU) bcc(op operand) int { return c.branch(op, !c.P.Has(FlagC)) }
func (c *CPU) bcs(op operand) int { return c.branch(op, c.P.Has(FlagC)) }
func (c *CPU) bne(op operand) int { return c.branch(op, !c.P.Has(FlagZ)) }
func (c *CPU) beq(op operand) int { return c.branch(op, c.P.Has(FlagZ)) }
func (c *CPU) bpl(op operand) int { return c.branch(op, !c.P.Has(FlagN)) }
func (c *CPU) bmi(op operand) int { return c.branch(op, c.P.Has(FlagN)) }
func (c *CPU) bvc(op operand) int { return c.branch(op, !c.P.Has(FlagV)) }
func (c *CPU) bvs(op operand) int { return c.branch(op, c.P.Has(FlagV)) }

func (c *CPU) nop(operand) int { return 0 }

// ign performs the dummy read of the two- and three-byte NOPs
func (c *CPU) ign(op operand) int {
	c.read(op.addr)
	return 0
}

// Undocumented combined operations

func (c *CPU) alr(op operand) int {
	c.A &= c.load(op)
	c.shiftRight(operand{mode: Accumulator}, false)
	return 0
}

func (c *CPU) anc(op operand) int {
	c.A &= c.load(op)
	c.setZN(c.A)
	c.P.Set(FlagC, c.A&0x80 != 0)
	return 0
}

func (c *CPU) arr(op operand) int {
	c.A &= c.load(op)
	c.shiftRight(operand{mode: Accumulator}, c.P.Has(FlagC))
	c.P.Set(FlagC, c.A&0x40 != 0)
	c.P.Set(FlagV, (c.A>>6^c.A>>5)&0x01 != 0)
	return 0
}

func (c *CPU) axs(op operand) int {
	m := c.load(op)
	ax := c.A & c.X
	c.P.Set(FlagC, ax >= m)
	c.X = ax - m
	c.setZN(c.X)
	return 0
}

func (c *CPU) lax(op operand) int {
	c.A = c.load(op)
	c.X = c.A
	c.setZN(c.A)
	return 0
}

func (c *CPU) sax(op operand) int {
	c.write(op.addr, c.A&c.X)
	return 0
}

func (c *CPU) dcp(op operand) int {
	m := c.load(op) - 1
	c.store(op, m)
	c.compare(c.A, m)
	return 0
}

func (c *CPU) isc(op operand) int {
	m := c.load(op) + 1
	c.store(op, m)
	c.addWithCarry(^m)
	return 0
}

func (c *CPU) rla(op operand) int {
	m := c.shiftLeft(op, c.P.Has(FlagC))
	c.A &= m
	c.setZN(c.A)
	return 0
}

func (c *CPU) rra(op operand) int {
	m := c.shiftRight(op, c.P.Has(FlagC))
	c.addWithCarry(m)
	return 0
}

func (c *CPU) slo(op operand) int {
	m := c.shiftLeft(op, false)
	c.A |= m
	c.setZN(c.A)
	return 0
}

func (c *CPU) sre(op operand) int {
	m := c.shiftRight(op, false)
	c.A ^= m
	c.setZN(c.A)
	return 0
}

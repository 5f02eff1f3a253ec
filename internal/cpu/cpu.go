// Package cpu implements the NES 6502 (2A03) CPU core.
package cpu

import (
	"fmt"
	"log"
)

const (
	stackBase = 0x0100
	pageMask  = 0xFF00

	// PowerOnSP is the stack pointer after reset (stack address $01FD)
	PowerOnSP = 0xFD
)

// Bus is the CPU view of the address space. peek accesses must not
// trigger hardware side effects.
type Bus interface {
	Read(address uint16, peek bool) uint8
	Write(address uint16, value uint8, peek bool)
}

// UnknownOpcodeError reports an opcode with no decode entry. The CPU is
// left at the faulting instruction.
type UnknownOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("cpu: unknown opcode $%02X at $%04X", e.Opcode, e.PC)
}

// CPU represents the 6502 processor used in the NES
type CPU struct {
	A  uint8  // Accumulator
	X  uint8  // X register
	Y  uint8  // Y register
	SP uint8  // Stack pointer, offset into page 1
	PC uint16 // Program counter
	P  Status // Processor status

	bus Bus

	// Total cycles executed since power on
	cycles uint64

	traceEnabled bool
}

// operand is a resolved effective address
type operand struct {
	mode    AddressingMode
	addr    uint16
	crossed bool
}

// New creates a CPU attached to bus. Call Reset before stepping.
func New(bus Bus) *CPU {
	return &CPU{
		bus: bus,
		SP:  PowerOnSP,
		P:   PowerOnStatus,
	}
}

// Reset restores the power-on register state and jumps through the reset vector
func (c *CPU) Reset() int {
	return c.Interrupt(InterruptReset)
}

// Cycles returns the total cycle count
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// Stall charges n cycles during which the CPU executes nothing, as when
// OAM DMA holds the bus
func (c *CPU) Stall(n int) {
	c.cycles += uint64(n)
}

// EnableTrace turns per-instruction logging on or off
func (c *CPU) EnableTrace(enabled bool) {
	c.traceEnabled = enabled
}

// Step executes one instruction and returns the cycles it took, including
// page-cross and branch penalties.
func (c *CPU) Step() (int, error) {
	pc := c.PC
	opcode := c.read(pc)
	inst := Instructions[opcode]
	if !inst.Valid() {
		return 0, &UnknownOpcodeError{Opcode: opcode, PC: pc}
	}

	if c.traceEnabled {
		c.trace(pc)
	}

	op := c.resolve(inst.Mode)
	c.PC += inst.Mode.Length()

	cycles := int(inst.Cycles)
	if inst.PageCycle && op.crossed {
		cycles++
	}
	cycles += handlers[inst.Op](c, op)

	c.cycles += uint64(cycles)
	return cycles, nil
}

// resolve computes the effective address for mode from the operand bytes
// following PC. PC itself is not moved.
func (c *CPU) resolve(mode AddressingMode) operand {
	op := operand{mode: mode}

	switch mode {
	case Implied, Accumulator:
	case Immediate:
		op.addr = c.PC + 1
	case ZeroPage:
		op.addr = uint16(c.read(c.PC + 1))
	case ZeroPageX:
		op.addr = uint16(c.read(c.PC+1) + c.X)
	case ZeroPageY:
		op.addr = uint16(c.read(c.PC+1) + c.Y)
	case Relative:
		offset := int8(c.read(c.PC + 1))
		next := c.PC + 2
		op.addr = next + uint16(offset)
		op.crossed = next&pageMask != op.addr&pageMask
	case Absolute:
		op.addr = c.readWord(c.PC + 1)
	case AbsoluteX:
		base := c.readWord(c.PC + 1)
		op.addr = base + uint16(c.X)
		op.crossed = base&pageMask != op.addr&pageMask
	case AbsoluteY:
		base := c.readWord(c.PC + 1)
		op.addr = base + uint16(c.Y)
		op.crossed = base&pageMask != op.addr&pageMask
	case Indirect:
		// The high byte is fetched without carrying into the pointer's page
		ptr := c.readWord(c.PC + 1)
		lo := uint16(c.read(ptr))
		hi := uint16(c.read(ptr&pageMask | (ptr+1)&0x00FF))
		op.addr = hi<<8 | lo
	case IndexedIndirect:
		ptr := c.read(c.PC+1) + c.X
		op.addr = c.readZeroPageWord(ptr)
	case IndirectIndexed:
		base := c.readZeroPageWord(c.read(c.PC + 1))
		op.addr = base + uint16(c.Y)
		op.crossed = base&pageMask != op.addr&pageMask
	default:
		panic(fmt.Sprintf("cpu: invalid addressing mode %d", mode))
	}
	return op
}

func (c *CPU) read(address uint16) uint8 {
	return c.bus.Read(address, false)
}

func (c *CPU) write(address uint16, value uint8) {
	c.bus.Write(address, value, false)
}

func (c *CPU) readWord(address uint16) uint16 {
	lo := uint16(c.read(address))
	hi := uint16(c.read(address + 1))
	return hi<<8 | lo
}

// readZeroPageWord reads a pointer whose high byte wraps within page 0
func (c *CPU) readZeroPageWord(ptr uint8) uint16 {
	lo := uint16(c.read(uint16(ptr)))
	hi := uint16(c.read(uint16(ptr + 1)))
	return hi<<8 | lo
}

// load returns the operand value; accumulator mode reads A
func (c *CPU) load(op operand) uint8 {
	if op.mode == Accumulator {
		return c.A
	}
	return c.read(op.addr)
}

// store writes the operand; accumulator mode writes A
func (c *CPU) store(op operand, value uint8) {
	if op.mode == Accumulator {
		c.A = value
		return
	}
	c.write(op.addr, value)
}

// Stack operations wrap within page 1
func (c *CPU) push(value uint8) {
	c.write(stackBase|uint16(c.SP), value)
	c.SP--
}

func (c *CPU) pop() uint8 {
	c.SP++
	return c.read(stackBase | uint16(c.SP))
}

func (c *CPU) pushWord(value uint16) {
	c.push(uint8(value >> 8))
	c.push(uint8(value))
}

func (c *CPU) popWord() uint16 {
	lo := uint16(c.pop())
	hi := uint16(c.pop())
	return hi<<8 | lo
}

func (c *CPU) setZN(value uint8) {
	c.P.Set(FlagZ, value == 0)
	c.P.Set(FlagN, value&0x80 != 0)
}

func (c *CPU) trace(pc uint16) {
	text, _ := Disassemble(c.bus, pc)
	log.Printf("[CPU_TRACE] %04X  %-14s A:%02X X:%02X Y:%02X P:%02X SP:%02X %s CYC:%d",
		pc, text, c.A, c.X, c.Y, uint8(c.P), c.SP, c.P, c.cycles)
}

// State is a serialisable copy of the CPU registers
type State struct {
	A, X, Y, SP uint8
	PC          uint16
	P           Status
	Cycles      uint64
}

// State returns a snapshot of the registers
func (c *CPU) State() State {
	return State{A: c.A, X: c.X, Y: c.Y, SP: c.SP, PC: c.PC, P: c.P, Cycles: c.cycles}
}

// SetState restores a snapshot taken with State
func (c *CPU) SetState(s State) {
	c.A, c.X, c.Y, c.SP, c.PC, c.P, c.cycles = s.A, s.X, s.Y, s.SP, s.PC, s.P, s.Cycles
}

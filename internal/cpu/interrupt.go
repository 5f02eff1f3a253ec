package cpu

// Interrupt vectors
const (
	NMIVector   = 0xFFFA
	ResetVector = 0xFFFC
	IRQVector   = 0xFFFE
)

// InterruptCycles is the cost of taking any interrupt
const InterruptCycles = 7

// InterruptKind selects an interrupt source
type InterruptKind uint8

const (
	InterruptNone InterruptKind = iota
	InterruptNMI
	InterruptReset
	InterruptIRQ
	InterruptBRK
)

func (k InterruptKind) String() string {
	switch k {
	case InterruptNMI:
		return "NMI"
	case InterruptReset:
		return "RESET"
	case InterruptIRQ:
		return "IRQ"
	case InterruptBRK:
		return "BRK"
	}
	return "none"
}

// Vector returns the address of the kind's vector
func (k InterruptKind) Vector() uint16 {
	switch k {
	case InterruptNMI:
		return NMIVector
	case InterruptReset:
		return ResetVector
	default:
		return IRQVector
	}
}

// Interrupt enters the handler for kind and returns the cycles spent, or 0
// when the interrupt was masked. IRQ and BRK are masked by the I flag; NMI
// always fires. Reset pushes nothing and restores power-on registers.
func (c *CPU) Interrupt(kind InterruptKind) int {
	switch kind {
	case InterruptNone:
		return 0
	case InterruptReset:
		c.A, c.X, c.Y = 0, 0, 0
		c.SP = PowerOnSP
		c.P = PowerOnStatus
		c.PC = c.readWord(ResetVector)
		c.cycles += InterruptCycles
		return InterruptCycles
	case InterruptIRQ, InterruptBRK:
		if c.P.Has(FlagI) {
			return 0
		}
	}

	c.enter(kind)
	c.cycles += InterruptCycles
	return InterruptCycles
}

// enter pushes PC and status and jumps through the kind's vector. Cycles
// are charged by the caller.
func (c *CPU) enter(kind InterruptKind) {
	c.pushWord(c.PC)
	status := c.P | FlagU
	status.Set(FlagB, kind == InterruptBRK)
	c.push(uint8(status))

	c.P.Set(FlagI, true)
	c.PC = c.readWord(kind.Vector())
}

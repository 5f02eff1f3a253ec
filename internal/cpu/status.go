package cpu

import "strings"

// Status is the processor status register (NV-BDIZC)
type Status uint8

// Status register bits
const (
	FlagC Status = 1 << iota // carry
	FlagZ                    // zero
	FlagI                    // interrupt disable
	FlagD                    // decimal (stored, ignored by the 2A03)
	FlagB                    // break, only meaningful on the stack
	FlagU                    // unused, reads as 1 when pushed
	FlagV                    // overflow
	FlagN                    // negative
)

// PowerOnStatus is the status value after reset
const PowerOnStatus Status = 0x34

// Has reports whether every bit in f is set
func (s Status) Has(f Status) bool {
	return s&f == f
}

// Set sets or clears the bits in f, leaving the others alone
func (s *Status) Set(f Status, on bool) {
	if on {
		*s |= f
	} else {
		*s &^= f
	}
}

// String renders the flags as NV-BDIZC with '-' for clear bits
func (s Status) String() string {
	var b strings.Builder
	for i, c := range "NV-BDIZC" {
		bit := Status(0x80 >> i)
		if c != '-' && s&bit != 0 {
			b.WriteRune(c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

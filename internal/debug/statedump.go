package debug

import (
	"fmt"
	"io"

	"github.com/bradleyjkemp/memviz"

	"nescore/internal/console"
)

// WriteStateGraph writes the machine state of c as a Graphviz dot graph
func WriteStateGraph(w io.Writer, c *console.Console) {
	snapshot := c.Snapshot()
	memviz.Map(w, &snapshot)
}

// DumpStateGraph writes the machine state graph to path
func DumpStateGraph(path string, c *console.Console) error {
	return writeFile(path, func(w io.Writer) { WriteStateGraph(w, c) })
}

// WriteStateSummary writes the CPU and PPU registers in a compact text form
func WriteStateSummary(w io.Writer, c *console.Console) {
	s := c.Snapshot()
	fmt.Fprintf(w, "CPU: PC=$%04X A=$%02X X=$%02X Y=$%02X SP=$%02X P=%s cycles=%d\n",
		s.CPU.PC, s.CPU.A, s.CPU.X, s.CPU.Y, s.CPU.SP, s.CPU.P, s.CPU.Cycles)
	fmt.Fprintf(w, "PPU: frame=%d line=%d dots=%d vram=$%04X dma=%t nmi=%t\n",
		s.PPU.Frame, s.PPU.Line, s.PPU.Dots, s.PPU.VRAMAddr, s.PPU.DMARunning, s.NMIPending)
}

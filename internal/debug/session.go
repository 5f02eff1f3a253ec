package debug

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/console"
	"nescore/internal/graphics"
)

// traceTail is the number of executed instructions kept for the report
const traceTail = 64

// Session collects frame dumps, an instruction trace and a final machine
// state for the first frames of a run
type Session struct {
	outputDir    string
	sessionID    string
	console      *console.Console
	frameDumper  *FrameDumper
	startTime    time.Time
	enabled      bool
	targetFrames int
	framesSeen   int
	tail         []console.ExecutionEvent
}

// NewSession creates a session writing into a timestamped directory
// under outputDir. Five frames are dumped by default.
func NewSession(outputDir string, c *console.Console) *Session {
	sessionID := fmt.Sprintf("debug_%s", time.Now().Format("20060102_150405"))
	sessionDir := filepath.Join(outputDir, sessionID)

	return &Session{
		outputDir:    sessionDir,
		sessionID:    sessionID,
		console:      c,
		frameDumper:  NewFrameDumper(sessionDir),
		targetFrames: 5,
	}
}

// SetTargetFrames sets how many frames are dumped
func (s *Session) SetTargetFrames(n int) {
	s.targetFrames = n
}

// FrameDumper returns the dumper, for filters and intervals
func (s *Session) FrameDumper() *FrameDumper {
	return s.frameDumper
}

// Start begins the session; a cartridge must be inserted
func (s *Session) Start() error {
	if s.enabled {
		return errors.New("debug session already active")
	}
	if !s.console.Cartridge().Loaded() {
		return errors.New("debug session: no cartridge inserted")
	}

	s.frameDumper.SetMaxDumps(s.targetFrames)
	if err := s.frameDumper.Enable(); err != nil {
		return err
	}
	s.console.ClearExecutionLog()
	s.console.EnableExecutionLog(true)
	s.startTime = time.Now()
	s.enabled = true

	return writeFile(filepath.Join(s.outputDir, "session_info.txt"), s.writeSessionInfo)
}

// ProcessFrame dumps a completed frame and keeps the end of its trace.
// Tracing stops once the target frame count is reached.
func (s *Session) ProcessFrame(frame *graphics.Frame) error {
	if !s.enabled || s.framesSeen >= s.targetFrames {
		return nil
	}
	s.framesSeen++

	log := s.console.ExecutionLog()
	if len(log) > traceTail {
		log = log[len(log)-traceTail:]
	}
	s.tail = append(s.tail[:0], log...)
	s.console.ClearExecutionLog()
	if s.framesSeen == s.targetFrames {
		s.console.EnableExecutionLog(false)
	}

	if err := s.frameDumper.DumpFrame(frame, uint64(s.framesSeen)); err != nil {
		return errors.Wrap(err, "dump frame")
	}
	return nil
}

// Stop ends the session and writes the final report and state graph
func (s *Session) Stop() error {
	if !s.enabled {
		return errors.New("debug session not active")
	}
	s.enabled = false
	s.frameDumper.Disable()
	s.console.EnableExecutionLog(false)

	if err := DumpStateGraph(filepath.Join(s.outputDir, "state.dot"), s.console); err != nil {
		return err
	}
	return writeFile(filepath.Join(s.outputDir, "final_report.txt"), s.writeReport)
}

func (s *Session) writeSessionInfo(w io.Writer) {
	h := s.console.Cartridge().Header()
	fmt.Fprintf(w, "Debug Session\n")
	fmt.Fprintf(w, "=============\n\n")
	fmt.Fprintf(w, "Session ID: %s\n", s.sessionID)
	fmt.Fprintf(w, "Start Time: %s\n", s.startTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Output Directory: %s\n", s.outputDir)
	fmt.Fprintf(w, "Target Frames: %d\n", s.targetFrames)
	fmt.Fprintf(w, "\nCartridge:\n")
	fmt.Fprintf(w, "  Mapper: %d\n", h.Mapper)
	fmt.Fprintf(w, "  PRG banks: %d (16KB)\n", h.PRGBanks)
	fmt.Fprintf(w, "  CHR banks: %d (8KB)\n", h.CHRBanks)
	fmt.Fprintf(w, "  Mirroring: %s\n", h.Mirroring)
	fmt.Fprintf(w, "  Battery: %t\n", h.Battery)
	fmt.Fprintf(w, "\nInitial state:\n")
	WriteStateSummary(w, s.console)
}

func (s *Session) writeReport(w io.Writer) {
	endTime := time.Now()
	fmt.Fprintf(w, "Debug Session - Final Report\n")
	fmt.Fprintf(w, "============================\n\n")
	fmt.Fprintf(w, "Session ID: %s\n", s.sessionID)
	fmt.Fprintf(w, "Duration: %v\n", endTime.Sub(s.startTime))
	fmt.Fprintf(w, "Frames Processed: %d\n", s.framesSeen)
	fmt.Fprintf(w, "Frames Dumped: %d\n", s.frameDumper.DumpCount())

	fmt.Fprintf(w, "\nFinal state:\n")
	WriteStateSummary(w, s.console)

	fmt.Fprintf(w, "\nLast %d instructions of frame %d:\n", len(s.tail), s.framesSeen)
	for _, e := range s.tail {
		fmt.Fprintf(w, "  %8d  $%04X  %02X  %d cyc  line %3d", e.StepNumber, e.PC, e.Opcode, e.Cycles, e.Line)
		if e.NMIDelivered {
			fmt.Fprintf(w, "  NMI")
		}
		if e.DMAStarted {
			fmt.Fprintf(w, "  DMA")
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "\nGenerated Files:\n")
	fmt.Fprintf(w, "- session_info.txt: cartridge and initial state\n")
	fmt.Fprintf(w, "- frame_*.txt: frame buffer dumps\n")
	fmt.Fprintf(w, "- frame_rgb_*.txt: colour frequency\n")
	fmt.Fprintf(w, "- state.dot: machine state graph (render with graphviz)\n")
}

// OutputDir returns the directory this session writes to
func (s *Session) OutputDir() string {
	return s.outputDir
}

// IsEnabled returns whether the session is active
func (s *Session) IsEnabled() bool {
	return s.enabled
}

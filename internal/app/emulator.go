package app

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/console"
	"nescore/internal/cpu"
	"nescore/internal/graphics"
	"nescore/internal/ppu"
)

// Emulator manages the emulation loop and timing
type Emulator struct {
	console *console.Console
	config  *Config

	targetFrameTime time.Duration
	frameBuffer     graphics.Frame

	// Performance monitoring
	actualFrameTime  time.Duration
	emulationTime    time.Duration
	averageFrameTime time.Duration
	frameCount       uint64
	timingBuffer     *CircularTimingBuffer

	isRunning     bool
	fault         error
	lastResetTime time.Time
}

// EmulatorStats contains emulator performance statistics
type EmulatorStats struct {
	FrameCount       uint64
	CycleCount       uint64
	EmulationTime    time.Duration
	ActualFrameTime  time.Duration
	AverageFrameTime time.Duration
	TargetFrameTime  time.Duration
	FrameJitter      time.Duration
	EmulationSpeed   float64
	Uptime           time.Duration
	IsRunning        bool
}

// NewEmulator creates an emulator driving c. The frame rate comes from
// config and defaults to 60.
func NewEmulator(c *console.Console, config *Config) *Emulator {
	e := &Emulator{
		console:         c,
		config:          config,
		targetFrameTime: time.Second / 60,
		timingBuffer:    NewCircularTimingBuffer(180),
		lastResetTime:   time.Now(),
	}
	if config != nil {
		e.SetTargetFrameRate(config.Emulation.FrameRate)
	}
	return e
}

// Reset resets the console and all counters. A halted emulator becomes
// runnable again.
func (e *Emulator) Reset() {
	e.console.Reset()
	e.frameBuffer = graphics.Frame{}
	e.actualFrameTime = 0
	e.emulationTime = 0
	e.averageFrameTime = 0
	e.frameCount = 0
	e.fault = nil
	e.timingBuffer.Reset()
	e.lastResetTime = time.Now()
}

// Start starts the emulator
func (e *Emulator) Start() {
	if e.fault != nil {
		return
	}
	e.isRunning = true
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.isRunning = false
}

// IsRunning returns whether the emulator is running
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// Fault returns the error that halted the CPU, if any
func (e *Emulator) Fault() error {
	return e.fault
}

// Update runs exactly one frame when the emulator is running. A CPU fault
// stops the emulator; the faulting frame is still presented.
func (e *Emulator) Update() error {
	if !e.isRunning {
		return nil
	}

	start := time.Now()
	err := e.StepFrame()
	e.actualFrameTime = time.Since(start)
	e.updatePerformanceMetrics()

	if err != nil {
		e.Stop()
		return err
	}
	return nil
}

// StepFrame executes one frame whether or not the emulator is running
func (e *Emulator) StepFrame() error {
	if e.fault != nil {
		return e.fault
	}

	start := time.Now()
	err := e.console.Frame()
	e.emulationTime = time.Since(start)
	e.frameBuffer = e.console.FrameBuffer().Packed()
	e.frameCount++

	if err != nil {
		return e.halt(err)
	}
	return nil
}

// StepInstruction executes one CPU instruction and returns its cycles
func (e *Emulator) StepInstruction() (int, error) {
	if e.fault != nil {
		return 0, e.fault
	}
	n, err := e.console.Step()
	if err != nil {
		return n, e.halt(err)
	}
	return n, nil
}

func (e *Emulator) halt(err error) error {
	var unknown *cpu.UnknownOpcodeError
	if errors.As(err, &unknown) {
		log.Printf("[EMULATOR] CPU halted: opcode $%02X at $%04X", unknown.Opcode, unknown.PC)
	} else {
		log.Printf("[EMULATOR] halted: %v", err)
	}
	e.fault = errors.Wrapf(err, "frame %d", e.frameCount)
	return e.fault
}

func (e *Emulator) updatePerformanceMetrics() {
	e.timingBuffer.Add(e.actualFrameTime)
	if e.averageFrameTime == 0 {
		e.averageFrameTime = e.actualFrameTime
		return
	}
	e.averageFrameTime = time.Duration(
		float64(e.averageFrameTime)*0.95 + float64(e.actualFrameTime)*0.05,
	)
}

// FrameBuffer returns the picture of the last completed frame
func (e *Emulator) FrameBuffer() *graphics.Frame {
	return &e.frameBuffer
}

// Console returns the emulated machine
func (e *Emulator) Console() *console.Console {
	return e.console
}

// SetTargetFrameRate sets the target frame rate; non-positive rates are ignored
func (e *Emulator) SetTargetFrameRate(fps float64) {
	if fps > 0 {
		e.targetFrameTime = time.Duration(float64(time.Second) / fps)
	}
}

// TargetFrameTime returns the wall time one frame should take
func (e *Emulator) TargetFrameTime() time.Duration {
	return e.targetFrameTime
}

// CPUState returns the current CPU registers for debugging
func (e *Emulator) CPUState() cpu.State {
	return e.console.CPU.State()
}

// PPUState returns the current PPU state for debugging
func (e *Emulator) PPUState() ppu.State {
	return e.console.PPU.State()
}

// Stats returns performance statistics
func (e *Emulator) Stats() EmulatorStats {
	stats := EmulatorStats{
		FrameCount:       e.frameCount,
		CycleCount:       e.console.Cycles(),
		EmulationTime:    e.emulationTime,
		ActualFrameTime:  e.actualFrameTime,
		AverageFrameTime: e.averageFrameTime,
		TargetFrameTime:  e.targetFrameTime,
		FrameJitter:      e.timingBuffer.StdDev(),
		Uptime:           time.Since(e.lastResetTime),
		IsRunning:        e.isRunning,
	}
	if e.actualFrameTime > 0 {
		stats.EmulationSpeed = float64(e.targetFrameTime) / float64(e.actualFrameTime) * 100.0
	}
	return stats
}

// CircularTimingBuffer keeps the most recent frame durations
type CircularTimingBuffer struct {
	mu       sync.RWMutex
	buffer   []time.Duration
	capacity int
	index    int
	size     int
}

// NewCircularTimingBuffer creates a new circular timing buffer
func NewCircularTimingBuffer(capacity int) *CircularTimingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CircularTimingBuffer{
		buffer:   make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// Add adds a timing measurement to the buffer
func (ctb *CircularTimingBuffer) Add(d time.Duration) {
	ctb.mu.Lock()
	defer ctb.mu.Unlock()

	ctb.buffer[ctb.index] = d
	ctb.index = (ctb.index + 1) % ctb.capacity
	if ctb.size < ctb.capacity {
		ctb.size++
	}
}

// Len returns the number of stored measurements
func (ctb *CircularTimingBuffer) Len() int {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()
	return ctb.size
}

// Average returns the mean of the stored durations
func (ctb *CircularTimingBuffer) Average() time.Duration {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()
	return ctb.average()
}

func (ctb *CircularTimingBuffer) average() time.Duration {
	if ctb.size == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ctb.buffer[:ctb.size] {
		total += d
	}
	return total / time.Duration(ctb.size)
}

// StdDev returns the standard deviation of the stored durations
func (ctb *CircularTimingBuffer) StdDev() time.Duration {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()

	if ctb.size < 2 {
		return 0
	}
	avg := ctb.average()
	var sum float64
	for _, d := range ctb.buffer[:ctb.size] {
		diff := float64(d - avg)
		sum += diff * diff
	}
	return time.Duration(math.Sqrt(sum / float64(ctb.size)))
}

// Reset clears the buffer
func (ctb *CircularTimingBuffer) Reset() {
	ctb.mu.Lock()
	defer ctb.mu.Unlock()
	ctb.index = 0
	ctb.size = 0
}

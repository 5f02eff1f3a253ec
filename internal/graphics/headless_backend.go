package graphics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// HeadlessBackend implements the Backend interface without any display.
// Selected frames can be written to disk as PPM images.
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow counts rendered frames and dumps the requested ones
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount int

	outputDir string
	dumpSet   map[int]bool
	dumpEvery int
	dumped    []string
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return errors.New("headless backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates a headless window
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, errors.New("backend not initialized")
	}

	w := &HeadlessWindow{
		title:     title,
		width:     width,
		height:    height,
		running:   true,
		outputDir: b.config.DumpDirectory,
		dumpSet:   make(map[int]bool),
		dumpEvery: b.config.DumpEvery,
	}
	if w.outputDir == "" {
		w.outputDir = "."
	}
	for _, n := range b.config.DumpFrames {
		w.dumpSet[n] = true
	}
	return w, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

func (w *HeadlessWindow) SetTitle(title string)        { w.title = title }
func (w *HeadlessWindow) GetSize() (width, height int) { return w.width, w.height }
func (w *HeadlessWindow) ShouldClose() bool            { return !w.running }
func (w *HeadlessWindow) SwapBuffers()                 {}
func (w *HeadlessWindow) PollEvents() []InputEvent     { return nil }

// RenderFrame counts the frame and writes it out when it was requested
func (w *HeadlessWindow) RenderFrame(frame Frame) error {
	w.frameCount++
	if !w.dumpSet[w.frameCount] && (w.dumpEvery <= 0 || w.frameCount%w.dumpEvery != 0) {
		return nil
	}

	path := filepath.Join(w.outputDir, fmt.Sprintf("frame_%05d.ppm", w.frameCount))
	if err := SaveFramePPM(frame, path); err != nil {
		return err
	}
	w.dumped = append(w.dumped, path)
	return nil
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// FrameCount returns the number of frames rendered
func (w *HeadlessWindow) FrameCount() int {
	return w.frameCount
}

// Dumped returns the paths of the frames written so far
func (w *HeadlessWindow) Dumped() []string {
	return w.dumped
}

// SaveFramePPM writes a frame to path as a binary PPM image
func SaveFramePPM(frame Frame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create frame directory")
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	if err := WritePPM(file, frame); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// WritePPM encodes a frame as a binary (P6) PPM image
func WritePPM(w io.Writer, frame Frame) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P6\n%d %d\n255\n", FrameWidth, FrameHeight)
	for _, pixel := range frame {
		r, g, b := unpack(pixel)
		bw.Write([]byte{r, g, b})
	}
	return bw.Flush()
}

// Package debug provides frame and machine state dumps for tracking down
// emulation problems.
package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/graphics"
)

// PixelFilter selects the pixels written by a dump
type PixelFilter func(x, y int, rgb uint32) bool

// FrameDumper writes frame buffer contents as text
type FrameDumper struct {
	outputDir    string
	dumpEnabled  bool
	dumpCount    int
	maxDumps     int
	dumpInterval int // dump every N frames
	pixelFilter  PixelFilter
}

// NewFrameDumper creates a disabled dumper writing up to 10 frames
func NewFrameDumper(outputDir string) *FrameDumper {
	return &FrameDumper{
		outputDir:    outputDir,
		maxDumps:     10,
		dumpInterval: 1,
	}
}

// Enable activates frame dumping
func (fd *FrameDumper) Enable() error {
	if err := os.MkdirAll(fd.outputDir, 0755); err != nil {
		return errors.Wrap(err, "create frame dump directory")
	}
	fd.dumpEnabled = true
	return nil
}

// Disable deactivates frame dumping
func (fd *FrameDumper) Disable() {
	fd.dumpEnabled = false
}

// SetMaxDumps sets the maximum number of frames to dump
func (fd *FrameDumper) SetMaxDumps(max int) {
	fd.maxDumps = max
}

// SetDumpInterval sets the interval between frame dumps
func (fd *FrameDumper) SetDumpInterval(interval int) {
	if interval > 0 {
		fd.dumpInterval = interval
	}
}

// SetPixelFilter restricts dumps to the pixels filter accepts
func (fd *FrameDumper) SetPixelFilter(filter PixelFilter) {
	fd.pixelFilter = filter
}

// DumpCount returns how many frames have been written
func (fd *FrameDumper) DumpCount() int {
	return fd.dumpCount
}

// ShouldDump reports whether frame frameNum would be written
func (fd *FrameDumper) ShouldDump(frameNum uint64) bool {
	return fd.dumpEnabled && frameNum%uint64(fd.dumpInterval) == 0 && fd.dumpCount < fd.maxDumps
}

// DumpFrame writes the hex dump and the colour breakdown of one frame
func (fd *FrameDumper) DumpFrame(frame *graphics.Frame, frameNum uint64) error {
	if !fd.ShouldDump(frameNum) {
		return nil
	}

	hexPath := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d.txt", frameNum))
	if err := writeFile(hexPath, func(w io.Writer) { fd.writeHex(w, frame, frameNum) }); err != nil {
		return err
	}
	rgbPath := filepath.Join(fd.outputDir, fmt.Sprintf("frame_rgb_%06d.txt", frameNum))
	if err := writeFile(rgbPath, func(w io.Writer) { fd.writeRGB(w, frame, frameNum) }); err != nil {
		return err
	}

	fd.dumpCount++
	return nil
}

func writeFile(path string, write func(io.Writer)) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	write(bw)
	return errors.Wrapf(bw.Flush(), "write %s", path)
}

// writeHex lists every pixel, 16 per row
func (fd *FrameDumper) writeHex(w io.Writer, frame *graphics.Frame, frameNum uint64) {
	fmt.Fprintf(w, "Frame Buffer Dump\n")
	fmt.Fprintf(w, "Frame Number: %d\n", frameNum)
	fmt.Fprintf(w, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Dimensions: %dx%d\n", graphics.FrameWidth, graphics.FrameHeight)
	fmt.Fprintf(w, "===================\n\n")

	for y := 0; y < graphics.FrameHeight; y++ {
		fmt.Fprintf(w, "Line %03d: ", y)
		written := 0
		for x := 0; x < graphics.FrameWidth; x++ {
			pixel := frame[y*graphics.FrameWidth+x]
			if fd.pixelFilter != nil && !fd.pixelFilter(x, y, pixel) {
				continue
			}
			if written > 0 && written%16 == 0 {
				fmt.Fprintf(w, "\n          ")
			}
			fmt.Fprintf(w, "%06X ", pixel)
			written++
		}
		fmt.Fprintf(w, "\n")
	}
}

// writeRGB lists the colours used, most frequent first
func (fd *FrameDumper) writeRGB(w io.Writer, frame *graphics.Frame, frameNum uint64) {
	fmt.Fprintf(w, "Frame Buffer Colour Breakdown\n")
	fmt.Fprintf(w, "Frame Number: %d\n", frameNum)
	fmt.Fprintf(w, "========================\n\n")

	freq := ColorFrequency(frame, fd.pixelFilter)
	colors := make([]uint32, 0, len(freq))
	for c := range freq {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		if freq[colors[i]] != freq[colors[j]] {
			return freq[colors[i]] > freq[colors[j]]
		}
		return colors[i] < colors[j]
	})

	fmt.Fprintf(w, "Color   | Count | Percentage\n")
	fmt.Fprintf(w, "--------|-------|-----------\n")
	total := float64(len(frame))
	for _, c := range colors {
		fmt.Fprintf(w, "#%06X | %5d | %6.2f%%  RGB(%3d,%3d,%3d)\n",
			c, freq[c], float64(freq[c])/total*100, c>>16&0xFF, c>>8&0xFF, c&0xFF)
	}
}

// ColorFrequency counts how often each colour appears among the pixels
// filter accepts; a nil filter accepts all
func ColorFrequency(frame *graphics.Frame, filter PixelFilter) map[uint32]int {
	freq := make(map[uint32]int)
	for i, pixel := range frame {
		if filter != nil && !filter(i%graphics.FrameWidth, i/graphics.FrameWidth, pixel) {
			continue
		}
		freq[pixel]++
	}
	return freq
}

// RegionFilter accepts pixels inside the inclusive rectangle
func RegionFilter(x1, y1, x2, y2 int) PixelFilter {
	return func(x, y int, rgb uint32) bool {
		return x >= x1 && x <= x2 && y >= y1 && y <= y2
	}
}

// ColorRangeFilter accepts colours between minRGB and maxRGB inclusive
func ColorRangeFilter(minRGB, maxRGB uint32) PixelFilter {
	return func(x, y int, rgb uint32) bool {
		return rgb >= minRGB && rgb <= maxRGB
	}
}

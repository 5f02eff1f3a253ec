package graphics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		backend BackendType
		name    string
		wantErr bool
	}{
		{BackendHeadless, "Headless", false},
		{BackendTerminal, "Terminal", false},
		{BackendType("sdl2"), "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			b, err := CreateBackend(tt.backend)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateBackend error = %v, wantErr %t", err, tt.wantErr)
			}
			if err == nil && b.GetName() != tt.name {
				t.Errorf("GetName() = %q, want %q", b.GetName(), tt.name)
			}
		})
	}
}

func TestHeadlessBackend_Lifecycle(t *testing.T) {
	b := NewHeadlessBackend()
	if _, err := b.CreateWindow("x", 1, 1); err == nil {
		t.Error("CreateWindow before Initialize should fail")
	}
	if err := b.Initialize(Config{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := b.Initialize(Config{}); err == nil {
		t.Error("Second Initialize should fail")
	}
	if !b.IsHeadless() {
		t.Error("Headless backend should report headless")
	}

	w, err := b.CreateWindow("test", 256, 240)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	if w.ShouldClose() {
		t.Error("New window should be open")
	}
	if err := w.Cleanup(); err != nil || !w.ShouldClose() {
		t.Errorf("Cleanup = %v, ShouldClose = %t", err, w.ShouldClose())
	}
}

func TestHeadlessWindow_ShouldDumpRequestedFrames(t *testing.T) {
	dir := t.TempDir()
	b := NewHeadlessBackend()
	if err := b.Initialize(Config{DumpDirectory: dir, DumpFrames: []int{2}, DumpEvery: 3}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	win, err := b.CreateWindow("test", 256, 240)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	w := win.(*HeadlessWindow)

	var frame Frame
	for i := 0; i < 6; i++ {
		if err := w.RenderFrame(frame); err != nil {
			t.Fatalf("RenderFrame %d: %v", i+1, err)
		}
	}

	if w.FrameCount() != 6 {
		t.Errorf("FrameCount = %d, want 6", w.FrameCount())
	}
	want := []string{
		filepath.Join(dir, "frame_00002.ppm"),
		filepath.Join(dir, "frame_00003.ppm"),
		filepath.Join(dir, "frame_00006.ppm"),
	}
	if fmt.Sprint(w.Dumped()) != fmt.Sprint(want) {
		t.Errorf("Dumped = %v, want %v", w.Dumped(), want)
	}
	for _, path := range want {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("Missing dump %s: %v", path, err)
			continue
		}
		if size := info.Size(); size != int64(len("P6\n256 240\n255\n")+FrameWidth*FrameHeight*3) {
			t.Errorf("%s size = %d", path, size)
		}
	}
}

func TestWritePPM_ShouldEncodeRGB(t *testing.T) {
	var frame Frame
	frame[0] = 0x112233
	frame[len(frame)-1] = 0xAABBCC

	var buf bytes.Buffer
	if err := WritePPM(&buf, frame); err != nil {
		t.Fatalf("WritePPM: %v", err)
	}

	header := "P6\n256 240\n255\n"
	data := buf.Bytes()
	if string(data[:len(header)]) != header {
		t.Fatalf("header = %q", data[:len(header)])
	}
	pixels := data[len(header):]
	if !bytes.Equal(pixels[:3], []byte{0x11, 0x22, 0x33}) {
		t.Errorf("first pixel = % X", pixels[:3])
	}
	if !bytes.Equal(pixels[len(pixels)-3:], []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("last pixel = % X", pixels[len(pixels)-3:])
	}
}

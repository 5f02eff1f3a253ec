package ppu

// Visible picture size
const (
	ScreenWidth  = 256
	ScreenHeight = 240
)

// FrameBuffer is the rendered picture, written one scanline at a time
type FrameBuffer [ScreenHeight][ScreenWidth]Color

// Clear fills the picture with c
func (fb *FrameBuffer) Clear(c Color) {
	for y := range fb {
		for x := range fb[y] {
			fb[y][x] = c
		}
	}
}

// Pixel returns the colour at (x, y)
func (fb *FrameBuffer) Pixel(x, y int) Color {
	return fb[y][x]
}

// Packed returns the picture as row-major 0x00RRGGBB values
func (fb *FrameBuffer) Packed() [ScreenWidth * ScreenHeight]uint32 {
	var out [ScreenWidth * ScreenHeight]uint32
	for y := range fb {
		row := y * ScreenWidth
		for x, c := range fb[y] {
			out[row+x] = c.Packed()
		}
	}
	return out
}

// RGBA writes the picture into dst as 8-bit RGBA with opaque alpha. dst must
// hold at least ScreenWidth*ScreenHeight*4 bytes.
func (fb *FrameBuffer) RGBA(dst []byte) {
	i := 0
	for y := range fb {
		for _, c := range fb[y] {
			dst[i] = c.R
			dst[i+1] = c.G
			dst[i+2] = c.B
			dst[i+3] = 0xFF
			i += 4
		}
	}
}

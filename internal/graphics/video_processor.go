package graphics

import (
	"math"
)

// VideoProcessor applies brightness, contrast and saturation to frames.
// Results are cached per distinct input colour; a NES frame uses at most a
// few dozen.
type VideoProcessor struct {
	brightness float32
	contrast   float32
	saturation float32

	cache map[uint32]uint32
}

// NewVideoProcessor creates a new video processor
func NewVideoProcessor(brightness, contrast, saturation float32) *VideoProcessor {
	return &VideoProcessor{
		brightness: brightness,
		contrast:   contrast,
		saturation: saturation,
		cache:      make(map[uint32]uint32),
	}
}

// Identity reports whether processing leaves frames unchanged
func (vp *VideoProcessor) Identity() bool {
	return vp.brightness == 1 && vp.contrast == 1 && vp.saturation == 1
}

// ProcessFrame applies the adjustments to frame in place
func (vp *VideoProcessor) ProcessFrame(frame *Frame) {
	if vp.Identity() {
		return
	}
	for i, pixel := range frame {
		out, ok := vp.cache[pixel]
		if !ok {
			out = vp.processPixel(pixel)
			vp.cache[pixel] = out
		}
		frame[i] = out
	}
}

func (vp *VideoProcessor) processPixel(pixel uint32) uint32 {
	r8, g8, b8 := unpack(pixel)
	r, g, b := float32(r8)/255, float32(g8)/255, float32(b8)/255

	r, g, b = r*vp.brightness, g*vp.brightness, b*vp.brightness
	r = (r-0.5)*vp.contrast + 0.5
	g = (g-0.5)*vp.contrast + 0.5
	b = (b-0.5)*vp.contrast + 0.5

	if vp.saturation != 1 {
		h, s, l := rgbToHSL(clamp(r, 0, 1), clamp(g, 0, 1), clamp(b, 0, 1))
		r, g, b = hslToRGB(h, clamp(s*vp.saturation, 0, 1), l)
	}

	return uint32(clamp(r, 0, 1)*255+0.5)<<16 |
		uint32(clamp(g, 0, 1)*255+0.5)<<8 |
		uint32(clamp(b, 0, 1)*255+0.5)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// rgbToHSL converts components in [0,1] to hue, saturation and lightness
func rgbToHSL(r, g, b float32) (h, s, l float32) {
	max := float32(math.Max(float64(r), math.Max(float64(g), float64(b))))
	min := float32(math.Min(float64(r), math.Min(float64(g), float64(b))))
	l = (max + min) / 2
	if max == min {
		return 0, 0, l
	}

	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	switch max {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

func hslToRGB(h, s, l float32) (r, g, b float32) {
	if s == 0 {
		return l, l, l
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return hueToRGB(p, q, h+1.0/3), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3)
}

func hueToRGB(p, q, t float32) float32 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

// SetAdjustments replaces all three adjustments and drops cached colours
func (vp *VideoProcessor) SetAdjustments(brightness, contrast, saturation float32) {
	vp.brightness, vp.contrast, vp.saturation = brightness, contrast, saturation
	vp.cache = make(map[uint32]uint32)
}

// Package testdata builds deterministic synthetic frames for tests.
// Frames are generated rather than loaded from disk so that algorithm
// tests stay hermetic and do not depend on image codecs.
package testdata

import "github.com/ayusman/skyline/internal/raster"

// Shades used by the synthetic frames. The contrast is strong enough to
// pass the default detector thresholds.
const (
	SkyShade    = 40
	GroundShade = 220
)

// HorizonFrame returns a grayscale frame with a dark region above the
// boundary row and a bright region from the boundary row down. With
// default detector settings the extracted edge lands exactly on the
// boundary row, so the tracked line holds height minus boundary in
// every column.
func HorizonFrame(w, h, boundary int) *raster.Frame {
	f := raster.NewGray(w, h)
	for y := 0; y < h; y++ {
		v := uint8(SkyShade)
		if y >= boundary {
			v = GroundShade
		}
		for x := 0; x < w; x++ {
			f.Set(x, y, 0, v)
		}
	}
	return f
}

// FlatFrame returns a uniform grayscale frame with no edges.
func FlatFrame(w, h int, shade uint8) *raster.Frame {
	f := raster.NewGray(w, h)
	for i := range f.Pix {
		f.Pix[i] = shade
	}
	return f
}

// HorizonSequence returns one HorizonFrame per entry in boundaries,
// sharing the given dimensions.
func HorizonSequence(w, h int, boundaries []int) []*raster.Frame {
	frames := make([]*raster.Frame, len(boundaries))
	for i, b := range boundaries {
		frames[i] = HorizonFrame(w, h, b)
	}
	return frames
}

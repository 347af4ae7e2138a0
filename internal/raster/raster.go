// Package raster defines the in-memory image types shared by the edge
// detection and horizon tracking packages.
package raster

// Channel counts for Frame.
const (
	Grayscale = 1
	RGB       = 3
)

// Luma weights matching OpenCV's RGB to gray conversion.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Frame is a row-major, channel-interleaved raster image.
// Pixel ownership stays with the caller; nothing in this module retains
// a Frame beyond the call it was passed to.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewFrame creates a zeroed frame with the given dimensions.
// Invalid dimensions yield an empty frame.
func NewFrame(width, height, channels int) *Frame {
	if width <= 0 || height <= 0 || (channels != Grayscale && channels != RGB) {
		return &Frame{}
	}
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// NewGray creates a zeroed single-channel frame.
func NewGray(width, height int) *Frame {
	return NewFrame(width, height, Grayscale)
}

// NewRGB creates a zeroed three-channel frame.
func NewRGB(width, height int) *Frame {
	return NewFrame(width, height, RGB)
}

// Empty reports whether the frame has no pixel data.
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Pix) == 0
}

// At returns the value of channel c at column x, row y.
func (f *Frame) At(x, y, c int) uint8 {
	return f.Pix[(y*f.Width+x)*f.Channels+c]
}

// Set stores v into channel c at column x, row y.
func (f *Frame) Set(x, y, c int, v uint8) {
	f.Pix[(y*f.Width+x)*f.Channels+c] = v
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f.Empty() {
		return &Frame{}
	}
	dup := *f
	dup.Pix = make([]uint8, len(f.Pix))
	copy(dup.Pix, f.Pix)
	return &dup
}

// Gray returns a single-channel view of the frame using OpenCV's luma
// weights. Grayscale input is returned as-is without copying.
func (f *Frame) Gray() *Frame {
	if f.Empty() || f.Channels == Grayscale {
		return f
	}
	out := NewGray(f.Width, f.Height)
	for i, j := 0, 0; i < len(f.Pix); i, j = i+RGB, j+1 {
		r := float64(f.Pix[i])
		g := float64(f.Pix[i+1])
		b := float64(f.Pix[i+2])
		out.Pix[j] = uint8(lumaR*r + lumaG*g + lumaB*b + 0.5)
	}
	return out
}

// EdgeMap is a binary grid marking edge pixels; any non-zero value is an
// edge. Like Frame, it is ephemeral and owned by the caller.
type EdgeMap struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewEdgeMap creates a zeroed edge map with the given dimensions.
// Invalid dimensions yield an empty map.
func NewEdgeMap(width, height int) *EdgeMap {
	if width <= 0 || height <= 0 {
		return &EdgeMap{}
	}
	return &EdgeMap{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Empty reports whether the map has no cells.
func (m *EdgeMap) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Pix) == 0
}

// At reports whether the cell at column x, row y is an edge.
func (m *EdgeMap) At(x, y int) bool {
	return m.Pix[y*m.Width+x] != 0
}

// Set marks the cell at column x, row y as an edge.
func (m *EdgeMap) Set(x, y int) {
	m.Pix[y*m.Width+x] = 255
}

// Frame renders the map as a grayscale frame, edge pixels white.
// Used by debug views that display raw detector output.
func (m *EdgeMap) Frame() *Frame {
	if m.Empty() {
		return &Frame{}
	}
	out := NewGray(m.Width, m.Height)
	copy(out.Pix, m.Pix)
	return out
}

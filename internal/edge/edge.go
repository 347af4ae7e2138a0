// Package edge extracts binary edge maps from raster frames using a
// Canny-style two-threshold detector.
package edge

import (
	"errors"

	"github.com/ayusman/skyline/internal/raster"
)

// Default detector settings.
const (
	DefaultLowerThreshold = 100
	DefaultUpperThreshold = 200
	DefaultApertureSize   = 3
)

// ErrEmptyFrame is returned when detection is attempted on a frame with
// no pixel data.
var ErrEmptyFrame = errors.New("empty frame")

// Params holds the tunable detector settings. Updates take effect on the
// next Detect call; the detector itself keeps no state between calls.
type Params struct {
	// LowerThreshold is the hysteresis linking threshold.
	LowerThreshold float64 `json:"lower_threshold"`
	// UpperThreshold is the hysteresis seed threshold.
	UpperThreshold float64 `json:"upper_threshold"`
	// ApertureSize is the Sobel kernel size: 3, 5 or 7. Any other value
	// is silently clamped to 3.
	ApertureSize int `json:"aperture_size"`
	// L2Gradient selects the Euclidean gradient norm instead of the
	// cheaper |gx|+|gy| approximation.
	L2Gradient bool `json:"l2_gradient"`
}

// DefaultParams returns the detector settings used when nothing else is
// configured.
func DefaultParams() Params {
	return Params{
		LowerThreshold: DefaultLowerThreshold,
		UpperThreshold: DefaultUpperThreshold,
		ApertureSize:   DefaultApertureSize,
	}
}

// normalized maps out-of-range settings onto the valid domain: unknown
// aperture sizes clamp to 3 and swapped thresholds are reordered.
func (p Params) normalized() Params {
	switch p.ApertureSize {
	case 3, 5, 7:
	default:
		p.ApertureSize = DefaultApertureSize
	}
	if p.LowerThreshold > p.UpperThreshold {
		p.LowerThreshold, p.UpperThreshold = p.UpperThreshold, p.LowerThreshold
	}
	return p
}

// Detect runs the full detector on a frame: luma conversion for RGB
// input, aperture-sized Sobel gradients, non-maximum suppression and
// double-threshold hysteresis. The result marks edge pixels non-zero.
func Detect(frame *raster.Frame, p Params) (*raster.EdgeMap, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}
	p = p.normalized()

	gray := frame.Gray()
	gx, gy := gradients(gray, p.ApertureSize)
	mag := magnitude(gx, gy, p.L2Gradient)
	thin := suppress(mag, gx, gy, gray.Width, gray.Height)
	return hysteresis(thin, gray.Width, gray.Height, p.LowerThreshold, p.UpperThreshold), nil
}

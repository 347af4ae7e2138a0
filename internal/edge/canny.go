package edge

import (
	"math"

	"github.com/ayusman/skyline/internal/raster"
)

// sobelKernels returns the separable derivative and smoothing kernel
// pair for the given aperture size. Coefficients match OpenCV's
// getDerivKernels output for sizes 3, 5 and 7.
func sobelKernels(aperture int) (deriv, smooth []float64) {
	switch aperture {
	case 5:
		return []float64{-1, -2, 0, 2, 1}, []float64{1, 4, 6, 4, 1}
	case 7:
		return []float64{-1, -4, -5, 0, 5, 4, 1}, []float64{1, 6, 15, 20, 15, 6, 1}
	default:
		return []float64{-1, 0, 1}, []float64{1, 2, 1}
	}
}

// gradients computes the horizontal and vertical Sobel derivatives of a
// grayscale frame with replicated borders.
func gradients(gray *raster.Frame, aperture int) (gx, gy []float64) {
	deriv, smooth := sobelKernels(aperture)
	gx = convolveSep(gray.Pix, gray.Width, gray.Height, deriv, smooth)
	gy = convolveSep(gray.Pix, gray.Width, gray.Height, smooth, deriv)
	return gx, gy
}

// convolveSep applies a separable kernel: kx along rows, then ky along
// columns. Samples outside the image replicate the nearest border pixel.
func convolveSep(pix []uint8, w, h int, kx, ky []float64) []float64 {
	rx := len(kx) / 2
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for i, k := range kx {
				sx := clampInt(x+i-rx, 0, w-1)
				sum += k * float64(pix[y*w+sx])
			}
			tmp[y*w+x] = sum
		}
	}

	ry := len(ky) / 2
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for i, k := range ky {
				sy := clampInt(y+i-ry, 0, h-1)
				sum += k * tmp[sy*w+x]
			}
			out[y*w+x] = sum
		}
	}
	return out
}

// magnitude combines the two derivatives into a gradient strength per
// pixel, using either the L1 or L2 norm.
func magnitude(gx, gy []float64, l2 bool) []float64 {
	mag := make([]float64, len(gx))
	for i := range gx {
		if l2 {
			mag[i] = math.Hypot(gx[i], gy[i])
		} else {
			mag[i] = math.Abs(gx[i]) + math.Abs(gy[i])
		}
	}
	return mag
}

// suppress thins the gradient ridge to single-pixel width. Each pixel is
// compared against its two neighbors along the gradient direction,
// quantized to four sectors; the asymmetric comparison (>= behind,
// > ahead) keeps exactly one side of an equal-magnitude plateau.
func suppress(mag, gx, gy []float64, w, h int) []float64 {
	out := make([]float64, len(mag))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m == 0 {
				continue
			}

			angle := math.Atan2(gy[i], gx[i]) * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}

			var px, py, nx, ny int
			switch {
			case angle < 22.5 || angle >= 157.5: // horizontal gradient
				px, py, nx, ny = x-1, y, x+1, y
			case angle < 67.5: // diagonal, top-left to bottom-right
				px, py, nx, ny = x-1, y-1, x+1, y+1
			case angle < 112.5: // vertical gradient
				px, py, nx, ny = x, y-1, x, y+1
			default: // diagonal, top-right to bottom-left
				px, py, nx, ny = x+1, y-1, x-1, y+1
			}

			if m >= sample(mag, w, h, px, py) && m > sample(mag, w, h, nx, ny) {
				out[i] = m
			}
		}
	}
	return out
}

// sample returns the magnitude at (x, y), or 0 outside the image.
func sample(mag []float64, w, h, x, y int) float64 {
	if x < 0 || x >= w || y < 0 || y >= h {
		return 0
	}
	return mag[y*w+x]
}

// hysteresis seeds edges from pixels above the upper threshold and grows
// them through 8-connected neighbors above the lower threshold.
func hysteresis(mag []float64, w, h int, lower, upper float64) *raster.EdgeMap {
	edges := raster.NewEdgeMap(w, h)

	var stack []int
	for i, m := range mag {
		if m > upper && edges.Pix[i] == 0 {
			edges.Pix[i] = 255
			stack = append(stack, i)

			for len(stack) > 0 {
				j := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				jx, jy := j%w, j/w
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						kx, ky := jx+dx, jy+dy
						if kx < 0 || kx >= w || ky < 0 || ky >= h {
							continue
						}
						k := ky*w + kx
						if edges.Pix[k] == 0 && mag[k] > lower {
							edges.Pix[k] = 255
							stack = append(stack, k)
						}
					}
				}
			}
		}
	}
	return edges
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

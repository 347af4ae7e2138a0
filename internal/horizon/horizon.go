// Package horizon tracks a spatially continuous boundary line across the
// columns of a binary edge map.
package horizon

import (
	"errors"

	"github.com/ayusman/skyline/internal/raster"
)

// Unknown marks a column where no position has been established yet.
// It survives serialization so downstream consumers can skip the column.
const Unknown = -1

// DefaultJumpThreshold bounds the vertical movement of the line between
// adjacent columns.
const DefaultJumpThreshold = 15

// ErrEmptyEdgeMap is returned when tracking is attempted on a map with
// zero width or height.
var ErrEmptyEdgeMap = errors.New("empty edge map")

// Variant selects the tracking algorithm.
type Variant string

const (
	// VariantClassic searches up and down from the previous position in
	// every column.
	VariantClassic Variant = "classic"
	// VariantVectorized takes each column's top-most edge and filters the
	// candidates sequentially against the previous position.
	VariantVectorized Variant = "vectorized"
)

// Valid reports whether v names a known algorithm.
func (v Variant) Valid() bool {
	return v == VariantClassic || v == VariantVectorized
}

// Params holds the tunable tracker settings. Like the detector params,
// updates take effect on the next Track call.
type Params struct {
	// JumpThreshold is the maximum accepted per-column position change,
	// in pixels.
	JumpThreshold int `json:"jump_threshold"`
	// Variant picks the algorithm. Unknown values fall back to classic.
	Variant Variant `json:"variant"`
}

// DefaultParams returns the tracker settings used when nothing else is
// configured.
func DefaultParams() Params {
	return Params{
		JumpThreshold: DefaultJumpThreshold,
		Variant:       VariantClassic,
	}
}

// Line holds one horizon position per image column, measured as height
// from the image bottom: the top row maps to the image height, the
// bottom row to 1. Columns with no accepted position hold Unknown.
type Line []int

// Known reports whether column x holds a real position.
func (l Line) Known(x int) bool {
	return x >= 0 && x < len(l) && l[x] != Unknown
}

// Bounds returns the lowest and highest known positions, and false if
// every column is Unknown.
func (l Line) Bounds() (lo, hi int, ok bool) {
	for _, v := range l {
		if v == Unknown {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// Track walks the edge map left to right and produces one position per
// column. Columns before the first edge stay Unknown; afterwards a
// candidate edge is accepted only when it moves at most JumpThreshold
// pixels from the previous position, otherwise the previous position is
// carried forward unchanged.
func Track(edges *raster.EdgeMap, p Params) (Line, error) {
	if edges.Empty() {
		return nil, ErrEmptyEdgeMap
	}
	if p.JumpThreshold < 0 {
		p.JumpThreshold = 0
	}

	if p.Variant == VariantVectorized {
		return trackVectorized(edges, p.JumpThreshold), nil
	}
	return trackClassic(edges, p.JumpThreshold), nil
}

// trackClassic searches each column for the edge nearest to the previous
// position, scanning up and down simultaneously. Ties prefer up (the
// greater height).
func trackClassic(edges *raster.EdgeMap, jump int) Line {
	w, h := edges.Width, edges.Height
	line := make(Line, w)

	prevRow := -1
	for x := 0; x < w; x++ {
		if prevRow < 0 {
			r := firstEdgeRow(edges, x)
			if r < 0 {
				line[x] = Unknown
				continue
			}
			prevRow = r
			line[x] = h - r
			continue
		}

		if r := nearestEdgeRow(edges, x, prevRow); r >= 0 && absInt(r-prevRow) <= jump {
			prevRow = r
		}
		line[x] = h - prevRow
	}
	return line
}

// trackVectorized resolves every column's top-most edge independently,
// then applies the same sequential continuity filter.
func trackVectorized(edges *raster.EdgeMap, jump int) Line {
	w, h := edges.Width, edges.Height

	first := make([]int, w)
	for x := 0; x < w; x++ {
		first[x] = firstEdgeRow(edges, x)
	}

	line := make(Line, w)
	prevRow := -1
	for x := 0; x < w; x++ {
		r := first[x]
		if prevRow < 0 {
			if r < 0 {
				line[x] = Unknown
				continue
			}
			prevRow = r
			line[x] = h - r
			continue
		}

		if r >= 0 && absInt(r-prevRow) <= jump {
			prevRow = r
		}
		line[x] = h - prevRow
	}
	return line
}

// firstEdgeRow returns the row of the top-most edge in column x, or -1
// if the column has none.
func firstEdgeRow(edges *raster.EdgeMap, x int) int {
	for y := 0; y < edges.Height; y++ {
		if edges.At(x, y) {
			return y
		}
	}
	return -1
}

// nearestEdgeRow returns the row of the edge in column x closest to row
// from, checking up before down at each distance so that equidistant
// candidates resolve toward the image top. The scan is clamped to the
// image bounds on both sides. Returns -1 if the column has no edges.
func nearestEdgeRow(edges *raster.EdgeMap, x, from int) int {
	h := edges.Height
	maxDist := from
	if h-1-from > maxDist {
		maxDist = h - 1 - from
	}

	for d := 0; d <= maxDist; d++ {
		if up := from - d; up >= 0 && edges.At(x, up) {
			return up
		}
		if down := from + d; d > 0 && down < h && edges.At(x, down) {
			return down
		}
	}
	return -1
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

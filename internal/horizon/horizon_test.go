package horizon

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/ayusman/skyline/internal/raster"
)

// mapFromRows builds an edge map with at most one edge per column, at
// the given row from the top (-1 leaves the column empty).
func mapFromRows(h int, rows []int) *raster.EdgeMap {
	m := raster.NewEdgeMap(len(rows), h)
	for x, r := range rows {
		if r >= 0 {
			m.Set(x, r)
		}
	}
	return m
}

func variants() []Variant {
	return []Variant{VariantClassic, VariantVectorized}
}

func TestTrack_EmptyMap(t *testing.T) {
	for _, v := range variants() {
		p := Params{JumpThreshold: 5, Variant: v}

		if _, err := Track(nil, p); !errors.Is(err, ErrEmptyEdgeMap) {
			t.Errorf("%s: Track(nil) error = %v, want ErrEmptyEdgeMap", v, err)
		}
		if _, err := Track(raster.NewEdgeMap(0, 0), p); !errors.Is(err, ErrEmptyEdgeMap) {
			t.Errorf("%s: Track(0x0) error = %v, want ErrEmptyEdgeMap", v, err)
		}
	}
}

func TestTrack_WidthMatchesMap(t *testing.T) {
	maps := []*raster.EdgeMap{
		mapFromRows(4, []int{1, 1, 1}),
		mapFromRows(6, []int{-1, -1, -1, -1}),
		mapFromRows(8, []int{0, 7, 3, 3, 5, 2, 6, 1, 4, 4}),
	}

	for _, v := range variants() {
		for _, m := range maps {
			line, err := Track(m, Params{JumpThreshold: 3, Variant: v})
			if err != nil {
				t.Fatalf("%s: Track() error = %v", v, err)
			}
			if len(line) != m.Width {
				t.Errorf("%s: len(line) = %d, want %d", v, len(line), m.Width)
			}
		}
	}
}

func TestTrack_ContinuityExample(t *testing.T) {
	// Single edge per column at rows [1,1,1,2,2,1,1,3,1,1] on a 10x4 map
	// with jump threshold 1. Column 7's candidate (row 3, distance 2 from
	// row 1) is the only rejection; every other move is within threshold.
	m := mapFromRows(4, []int{1, 1, 1, 2, 2, 1, 1, 3, 1, 1})
	want := Line{3, 3, 3, 2, 2, 3, 3, 3, 3, 3}

	for _, v := range variants() {
		line, err := Track(m, Params{JumpThreshold: 1, Variant: v})
		if err != nil {
			t.Fatalf("%s: Track() error = %v", v, err)
		}
		if !reflect.DeepEqual(line, want) {
			t.Errorf("%s: line = %v, want %v", v, line, want)
		}
	}
}

func TestTrack_BootstrapLeadingUnknowns(t *testing.T) {
	m := mapFromRows(4, []int{-1, -1, 2, 2})
	want := Line{Unknown, Unknown, 2, 2}

	for _, v := range variants() {
		line, err := Track(m, Params{JumpThreshold: 1, Variant: v})
		if err != nil {
			t.Fatalf("%s: Track() error = %v", v, err)
		}
		if !reflect.DeepEqual(line, want) {
			t.Errorf("%s: line = %v, want %v", v, line, want)
		}
	}
}

func TestTrack_AllColumnsEmpty(t *testing.T) {
	m := mapFromRows(5, []int{-1, -1, -1, -1, -1})

	for _, v := range variants() {
		line, err := Track(m, Params{JumpThreshold: 1, Variant: v})
		if err != nil {
			t.Fatalf("%s: Track() error = %v", v, err)
		}
		for x, got := range line {
			if got != Unknown {
				t.Errorf("%s: line[%d] = %d, want Unknown", v, x, got)
			}
		}
	}
}

func TestTrack_EmptyColumnCarriesForward(t *testing.T) {
	m := mapFromRows(4, []int{1, -1, 1})
	want := Line{3, 3, 3}

	for _, v := range variants() {
		line, err := Track(m, Params{JumpThreshold: 5, Variant: v})
		if err != nil {
			t.Fatalf("%s: Track() error = %v", v, err)
		}
		if !reflect.DeepEqual(line, want) {
			t.Errorf("%s: line = %v, want %v", v, line, want)
		}
	}
}

func TestTrack_JumpRejectionCarriesForward(t *testing.T) {
	// The rejected column keeps the previous value, and the previous
	// position stays the comparison reference for later columns.
	m := mapFromRows(5, []int{2, 0, 2})
	want := Line{3, 3, 3}

	for _, v := range variants() {
		line, err := Track(m, Params{JumpThreshold: 1, Variant: v})
		if err != nil {
			t.Fatalf("%s: Track() error = %v", v, err)
		}
		if !reflect.DeepEqual(line, want) {
			t.Errorf("%s: line = %v, want %v", v, line, want)
		}
	}
}

func TestTrack_TiePrefersUp(t *testing.T) {
	// Column 1 has edges exactly jumpThreshold above and below the
	// previous position; classic must resolve toward the image top.
	m := raster.NewEdgeMap(2, 5)
	m.Set(0, 2)
	m.Set(1, 0)
	m.Set(1, 4)

	line, err := Track(m, Params{JumpThreshold: 2, Variant: VariantClassic})
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	want := Line{3, 5}
	if !reflect.DeepEqual(line, want) {
		t.Errorf("line = %v, want %v", line, want)
	}
}

func TestTrack_TopRowReachable(t *testing.T) {
	m := mapFromRows(4, []int{1, 0})
	want := Line{3, 4}

	line, err := Track(m, Params{JumpThreshold: 1, Variant: VariantClassic})
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if !reflect.DeepEqual(line, want) {
		t.Errorf("line = %v, want %v", line, want)
	}
}

func TestTrack_BottomRowReachable(t *testing.T) {
	m := mapFromRows(4, []int{2, 3})
	want := Line{2, 1}

	line, err := Track(m, Params{JumpThreshold: 1, Variant: VariantClassic})
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if !reflect.DeepEqual(line, want) {
		t.Errorf("line = %v, want %v", line, want)
	}
}

func TestTrack_VariantsDiverge(t *testing.T) {
	// Column 1 has an edge at the previous position and another nearer
	// the top. Classic stays put (distance 0); vectorized takes the
	// top-most edge because it is within the jump threshold.
	m := raster.NewEdgeMap(2, 6)
	m.Set(0, 3)
	m.Set(1, 1)
	m.Set(1, 3)

	classic, err := Track(m, Params{JumpThreshold: 2, Variant: VariantClassic})
	if err != nil {
		t.Fatalf("Track(classic) error = %v", err)
	}
	vectorized, err := Track(m, Params{JumpThreshold: 2, Variant: VariantVectorized})
	if err != nil {
		t.Fatalf("Track(vectorized) error = %v", err)
	}

	if want := (Line{3, 3}); !reflect.DeepEqual(classic, want) {
		t.Errorf("classic = %v, want %v", classic, want)
	}
	if want := (Line{3, 5}); !reflect.DeepEqual(vectorized, want) {
		t.Errorf("vectorized = %v, want %v", vectorized, want)
	}
}

func TestTrack_ContinuityInvariant(t *testing.T) {
	m := mapFromRows(12, []int{5, 9, 2, 7, 7, 0, 3, 8, 1, 6})
	const jump = 3

	for _, v := range variants() {
		line, err := Track(m, Params{JumpThreshold: jump, Variant: v})
		if err != nil {
			t.Fatalf("%s: Track() error = %v", v, err)
		}

		for x := 0; x+1 < len(line); x++ {
			if line[x] == Unknown || line[x+1] == Unknown {
				continue
			}
			diff := absInt(line[x+1] - line[x])
			if diff > jump && line[x+1] != line[x] {
				t.Errorf("%s: |line[%d]-line[%d]| = %d exceeds threshold %d",
					v, x+1, x, diff, jump)
			}
		}
	}
}

func TestTrack_Idempotent(t *testing.T) {
	m := mapFromRows(12, []int{5, 9, 2, 7, 7, 0, 3, 8, 1, 6})
	before := make([]uint8, len(m.Pix))
	copy(before, m.Pix)

	for _, v := range variants() {
		p := Params{JumpThreshold: 3, Variant: v}

		first, err := Track(m, p)
		if err != nil {
			t.Fatalf("%s: Track() error = %v", v, err)
		}
		second, err := Track(m, p)
		if err != nil {
			t.Fatalf("%s: Track() error = %v", v, err)
		}

		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: repeated tracking diverged: %v then %v", v, first, second)
		}
	}

	if !bytes.Equal(m.Pix, before) {
		t.Error("tracking modified the edge map")
	}
}

func TestTrack_UnknownVariantFallsBackToClassic(t *testing.T) {
	m := raster.NewEdgeMap(2, 6)
	m.Set(0, 3)
	m.Set(1, 1)
	m.Set(1, 3)

	got, err := Track(m, Params{JumpThreshold: 2, Variant: "turbo"})
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	want, err := Track(m, Params{JumpThreshold: 2, Variant: VariantClassic})
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unknown variant = %v, want classic result %v", got, want)
	}
}

func TestTrack_NegativeJumpBehavesLikeZero(t *testing.T) {
	m := mapFromRows(6, []int{2, 3})

	line, err := Track(m, Params{JumpThreshold: -5, Variant: VariantClassic})
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	want := Line{4, 4}
	if !reflect.DeepEqual(line, want) {
		t.Errorf("line = %v, want %v", line, want)
	}
}

func TestVariant_Valid(t *testing.T) {
	tests := []struct {
		v    Variant
		want bool
	}{
		{VariantClassic, true},
		{VariantVectorized, true},
		{"", false},
		{"turbo", false},
	}

	for _, tt := range tests {
		if got := tt.v.Valid(); got != tt.want {
			t.Errorf("Variant(%q).Valid() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestLine_Known(t *testing.T) {
	l := Line{Unknown, 3, 7}

	if l.Known(0) {
		t.Error("Known(0) = true for sentinel column")
	}
	if !l.Known(1) {
		t.Error("Known(1) = false for real value")
	}
	if l.Known(5) || l.Known(-1) {
		t.Error("Known() out of range should be false")
	}
}

func TestLine_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		line   Line
		lo, hi int
		ok     bool
	}{
		{"mixed", Line{Unknown, 3, 9, 5}, 3, 9, true},
		{"single", Line{Unknown, 4}, 4, 4, true},
		{"all unknown", Line{Unknown, Unknown}, 0, 0, false},
		{"empty", Line{}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := tt.line.Bounds()
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (lo != tt.lo || hi != tt.hi) {
				t.Errorf("bounds = %d..%d, want %d..%d", lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

// Package sonify turns horizon heights into music: values are mapped
// onto a scale ladder and written out as a standard MIDI file.
package sonify

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/skyline/internal/horizon"
)

// ErrNoValues is returned when a line has no tracked columns to map.
var ErrNoValues = errors.New("sonify: no tracked values")

// Scale names the interval pattern the note ladder is built from.
type Scale string

const (
	ScaleMajor Scale = "major"
	ScaleMinor Scale = "minor"
)

// Valid reports whether s names a known scale.
func (s Scale) Valid() bool {
	return s == ScaleMajor || s == ScaleMinor
}

// Semitone offsets of one octave, including the octave itself.
var (
	majorDegrees = []uint8{0, 2, 4, 5, 7, 9, 11, 12}
	minorDegrees = []uint8{0, 2, 3, 5, 7, 8, 10, 12}
)

// Options control how heights become notes.
type Options struct {
	// Root is the MIDI note the ladder starts from.
	Root uint8 `json:"root"`

	// Octaves is how many octaves the ladder spans.
	Octaves int `json:"octaves"`

	Scale    Scale `json:"scale"`
	Velocity uint8 `json:"velocity"`

	// NoteTicks is the gap between consecutive notes in MIDI ticks.
	NoteTicks uint32 `json:"note_ticks"`

	// TicksPerBeat sets the file's tick resolution.
	TicksPerBeat uint16 `json:"ticks_per_beat"`
}

// DefaultOptions returns the standard mapping: two octaves of C major
// starting at middle C.
func DefaultOptions() Options {
	return Options{
		Root:         60,
		Octaves:      2,
		Scale:        ScaleMajor,
		Velocity:     64,
		NoteTicks:    40,
		TicksPerBeat: 480,
	}
}

// normalized fills zero fields with defaults and corrects an unknown
// scale to major.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Root == 0 {
		o.Root = def.Root
	}
	if o.Octaves <= 0 {
		o.Octaves = def.Octaves
	}
	if !o.Scale.Valid() {
		o.Scale = def.Scale
	}
	if o.Velocity == 0 {
		o.Velocity = def.Velocity
	}
	if o.NoteTicks == 0 {
		o.NoteTicks = def.NoteTicks
	}
	if o.TicksPerBeat == 0 {
		o.TicksPerBeat = def.TicksPerBeat
	}
	return o
}

// scaleNotes builds the note ladder: Octaves repetitions of the scale
// degrees stacked on Root, deduplicated at the octave seams and capped
// at the MIDI note ceiling.
func scaleNotes(o Options) []uint8 {
	degrees := majorDegrees
	if o.Scale == ScaleMinor {
		degrees = minorDegrees
	}

	var notes []uint8
	for octave := 0; octave < o.Octaves; octave++ {
		for i, d := range degrees {
			if octave > 0 && i == 0 {
				continue // same pitch as the previous octave's top
			}
			n := int(o.Root) + 12*octave + int(d)
			if n > 127 {
				return notes
			}
			notes = append(notes, uint8(n))
		}
	}
	return notes
}

// Notes maps every tracked value of line onto the ladder. The lowest
// value lands on the ladder's first note and the highest on its last;
// a line with a single distinct value maps entirely to the first note.
func Notes(line horizon.Line, opts Options) ([]uint8, error) {
	opts = opts.normalized()

	var values []int
	for x := 0; x < len(line); x++ {
		if line.Known(x) {
			values = append(values, line[x])
		}
	}
	if len(values) == 0 {
		return nil, ErrNoValues
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	ladder := scaleNotes(opts)
	span := max - min

	notes := make([]uint8, len(values))
	for i, v := range values {
		idx := 0
		if span > 0 {
			idx = int(float64(v-min) / float64(span) * float64(len(ladder)-1))
		}
		notes[i] = ladder[idx]
	}
	return notes, nil
}

// FrameMeans reduces per-frame lines to one height per frame, the
// rounded mean of the tracked columns. Frames with nothing tracked
// become Unknown, so a video's lines can feed Notes directly.
func FrameMeans(lines []horizon.Line) horizon.Line {
	out := make(horizon.Line, len(lines))
	for i, line := range lines {
		var heights []float64
		for x := 0; x < len(line); x++ {
			if line.Known(x) {
				heights = append(heights, float64(line[x]))
			}
		}
		if len(heights) == 0 {
			out[i] = horizon.Unknown
			continue
		}
		out[i] = int(math.Round(stat.Mean(heights, nil)))
	}
	return out
}

package sonify

import (
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ayusman/skyline/internal/horizon"
)

// WriteSMF maps the line's values to notes and writes them to w as a
// single-track standard MIDI file.
func WriteSMF(w io.Writer, line horizon.Line, opts Options) error {
	opts = opts.normalized()

	notes, err := Notes(line, opts)
	if err != nil {
		return err
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.TicksPerBeat)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	for _, n := range notes {
		tr.Add(0, midi.NoteOn(0, n, opts.Velocity))
		tr.Add(opts.NoteTicks, midi.NoteOff(0, n))
	}
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add midi track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// WriteSMFFile writes the line's notes to a MIDI file at path.
func WriteSMFFile(path string, line horizon.Line, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create midi %s: %w", path, err)
	}
	if err := WriteSMF(f, line, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close midi %s: %w", path, err)
	}
	return nil
}

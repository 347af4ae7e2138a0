package export

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/media"
	"github.com/ayusman/skyline/internal/playback"
	"github.com/ayusman/skyline/internal/raster"
)

// WriteOverlayImage renders the horizon over a frame and saves it.
func WriteOverlayImage(path string, frame *raster.Frame, line horizon.Line) error {
	marked, err := media.DrawHorizon(frame, line)
	if err != nil {
		return fmt.Errorf("draw overlay: %w", err)
	}
	return media.WriteImage(path, marked)
}

// CollectLines tracks every remaining frame of src. Frames that fail
// tracking get a nil line and the walk continues.
func CollectLines(src playback.Source, finder *horizon.Finder) ([]FrameLine, error) {
	var lines []FrameLine
	err := walkVideo(src, finder, func(index int, _ *raster.Frame, line horizon.Line) error {
		lines = append(lines, FrameLine{Index: index, Line: line})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// WriteOverlayVideo tracks every remaining frame of src and writes a
// copy with the horizon drawn in. It returns the per-frame lines so
// callers can feed them to the CSV and graph writers without decoding
// the video again.
func WriteOverlayVideo(path string, src playback.Source, finder *horizon.Finder) ([]FrameLine, error) {
	var (
		writer *media.VideoWriter
		lines  []FrameLine
	)

	err := walkVideo(src, finder, func(index int, frame *raster.Frame, line horizon.Line) error {
		if writer == nil {
			w, err := media.NewVideoWriter(path, src.FPS(), frame.Width, frame.Height)
			if err != nil {
				return err
			}
			writer = w
		}

		marked, err := media.DrawHorizon(frame, line)
		if err != nil {
			return fmt.Errorf("draw overlay on frame %d: %w", index, err)
		}
		if err := writer.Write(marked); err != nil {
			return err
		}
		lines = append(lines, FrameLine{Index: index, Line: line})
		return nil
	})

	if writer != nil {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// walkVideo reads src to the end from its current position, tracking
// each frame and handing the results to visit.
func walkVideo(src playback.Source, finder *horizon.Finder, visit func(int, *raster.Frame, horizon.Line) error) error {
	for index := 0; ; index++ {
		frame, err := src.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", index, err)
		}

		line, err := finder.TrackFrame(frame)
		if err != nil {
			log.Printf("track frame %d: %v", index, err)
			line = nil
		}
		if err := visit(index, frame, line); err != nil {
			return err
		}
	}
}

package media

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/raster"
)

// ErrWriterClosed is returned when writing to a closed video writer.
var ErrWriterClosed = errors.New("media: video writer closed")

// horizonColor is the magenta marker drawn on tracked columns.
var horizonColor = color.RGBA{R: 255, G: 0, B: 255, A: 0}

// DrawHorizon returns a copy of the frame with a filled dot on every
// tracked column. Dots sit at row height-value, so a value of 1 lands
// on the bottom row. Unknown columns are left unmarked.
func DrawHorizon(frame *raster.Frame, line horizon.Line) (*raster.Frame, error) {
	mat, err := matFromFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	radius := markerRadius(frame.Width, frame.Height)
	for x := 0; x < len(line) && x < frame.Width; x++ {
		if !line.Known(x) {
			continue
		}
		gocv.Circle(&mat, image.Pt(x, frame.Height-line[x]), radius, horizonColor, -1)
	}
	return frameFromMat(mat)
}

// markerRadius scales the overlay dot with the frame, with a floor of
// two pixels so it stays visible on small frames.
func markerRadius(width, height int) int {
	min := width
	if height < min {
		min = height
	}
	if r := min / 300; r > 2 {
		return r
	}
	return 2
}

// VideoWriter encodes frames to an mp4 file.
type VideoWriter struct {
	mu     sync.Mutex
	writer *gocv.VideoWriter
	path   string
	open   bool
}

// NewVideoWriter opens an mp4 writer at the given geometry. A
// non-positive fps falls back to 30.
func NewVideoWriter(path string, fps float64, width, height int) (*VideoWriter, error) {
	if fps <= 0 {
		fps = 30
	}
	w, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	return &VideoWriter{writer: w, path: path, open: true}, nil
}

// Write appends one frame to the file.
func (w *VideoWriter) Write(frame *raster.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open {
		return ErrWriterClosed
	}

	mat, err := matFromFrame(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	if err := w.writer.Write(mat); err != nil {
		return fmt.Errorf("write frame to %s: %w", w.path, err)
	}
	return nil
}

// Close finalizes the file.
func (w *VideoWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open {
		return nil
	}
	w.open = false
	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("close video writer %s: %w", w.path, err)
	}
	return nil
}

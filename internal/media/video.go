// Package media is the OpenCV boundary: video decode and encode, image
// files, JPEG buffers, and horizon overlay drawing. Mats never leak out
// of this package; everything crosses in raster frames.
package media

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/skyline/internal/raster"
)

// ErrVideoNotOpen is returned when reading from a closed video.
var ErrVideoNotOpen = errors.New("media: video not open")

// Video reads frames from a video file. It implements the playback
// source contract: Read returns io.EOF at the end of the stream.
type Video struct {
	mu   sync.Mutex
	cap  *gocv.VideoCapture
	path string
	open bool
}

// OpenVideo opens the video file at path for decoding.
func OpenVideo(path string) (*Video, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	return &Video{cap: cap, path: path, open: true}, nil
}

// Read decodes the next frame. It returns io.EOF once the stream is
// exhausted.
func (v *Video) Read() (*raster.Frame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.open {
		return nil, ErrVideoNotOpen
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := v.cap.Read(&mat); !ok || mat.Empty() {
		return nil, io.EOF
	}
	return frameFromMat(mat)
}

// Seek repositions decoding at the given frame index.
func (v *Video) Seek(index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.open {
		return ErrVideoNotOpen
	}

	total := int(v.cap.Get(gocv.VideoCaptureFrameCount))
	if index < 0 || (total > 0 && index >= total) {
		return fmt.Errorf("frame index %d out of range [0,%d)", index, total)
	}
	v.cap.Set(gocv.VideoCapturePosFrames, float64(index))
	return nil
}

// FrameCount returns the container's frame count, or 0 if unknown.
func (v *Video) FrameCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.open {
		return 0
	}
	count := int(v.cap.Get(gocv.VideoCaptureFrameCount))
	if count < 0 {
		return 0
	}
	return count
}

// FPS returns the native frame rate recorded in the container.
func (v *Video) FPS() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.open {
		return 0
	}
	return v.cap.Get(gocv.VideoCaptureFPS)
}

// Path returns the file the video was opened from.
func (v *Video) Path() string {
	return v.path
}

// Close releases the decoder.
func (v *Video) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.open {
		return nil
	}
	v.open = false
	if err := v.cap.Close(); err != nil {
		return fmt.Errorf("close video %s: %w", v.path, err)
	}
	return nil
}

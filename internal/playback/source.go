// Package playback schedules horizon tracking against a frame source,
// decoupling the tracking cadence from the display cadence.
package playback

import (
	"fmt"
	"io"
	"sync"

	"github.com/ayusman/skyline/internal/raster"
)

// Source supplies frames to a playback session. Read returns io.EOF
// when the stream is exhausted; the session treats that as a loop point.
type Source interface {
	// Read returns the frame at the current position and advances.
	Read() (*raster.Frame, error)

	// Seek repositions the source at the given frame index.
	Seek(index int) error

	// FrameCount returns the total number of frames, or 0 if unknown.
	FrameCount() int

	// FPS returns the native frame rate of the source.
	FPS() float64

	// Close releases any resources held by the source.
	Close() error
}

// SliceSource plays back an in-memory slice of frames. It serves tests
// and offline processing the same way a file-backed source serves live
// playback.
type SliceSource struct {
	mu     sync.Mutex
	frames []*raster.Frame
	index  int
	fps    float64
}

// NewSliceSource creates a source over the given frames. A non-positive
// fps falls back to 30.
func NewSliceSource(frames []*raster.Frame, fps float64) *SliceSource {
	if fps <= 0 {
		fps = 30
	}
	return &SliceSource{frames: frames, fps: fps}
}

// Read returns a copy of the next frame, so callers may draw on it
// without corrupting the backing slice.
func (s *SliceSource) Read() (*raster.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.frames) {
		return nil, io.EOF
	}

	frame := s.frames[s.index].Clone()
	s.index++
	return frame, nil
}

// Seek repositions playback at the given frame index.
func (s *SliceSource) Seek(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.frames) {
		return fmt.Errorf("frame index %d out of range [0,%d)", index, len(s.frames))
	}
	s.index = index
	return nil
}

// FrameCount returns the number of frames in the slice.
func (s *SliceSource) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// FPS returns the configured native frame rate.
func (s *SliceSource) FPS() float64 {
	return s.fps
}

// Close drops the frame slice. Subsequent reads return io.EOF.
func (s *SliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
	s.index = 0
	return nil
}

// Package record captures live playback results into the store as
// recordings.
package record

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/skyline/internal/playback"
	"github.com/ayusman/skyline/internal/store"
)

var (
	// ErrAlreadyRecording is returned when a recording is already active.
	ErrAlreadyRecording = errors.New("record: already recording")

	// ErrNotRecording is returned when no recording is active.
	ErrNotRecording = errors.New("record: not recording")
)

// Recorder persists freshly tracked lines from a playback session.
// Note is safe to call from the session's sink goroutine.
type Recorder struct {
	repo *store.RecordingRepository

	mu     sync.Mutex
	active *store.Recording
	frames int
}

// NewRecorder creates a recorder writing through the given repository.
func NewRecorder(repo *store.RecordingRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Start begins a new recording of the named source.
func (r *Recorder) Start(source string, width, height int, nativeFPS float64) (*store.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, ErrAlreadyRecording
	}

	rec := &store.Recording{
		ID:        uuid.New().String(),
		Source:    source,
		Width:     width,
		Height:    height,
		NativeFPS: nativeFPS,
	}
	if err := r.repo.Create(rec); err != nil {
		return nil, err
	}

	r.active = rec
	r.frames = 0
	return rec, nil
}

// Note observes one playback result. Only freshly tracked lines are
// persisted; cached and fallback results are skipped so a recording
// holds each tracked frame once.
func (r *Recorder) Note(res playback.Result) {
	if res.Origin != playback.OriginFresh {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return
	}
	if err := r.repo.AppendLine(r.active.ID, res.FrameIndex, res.Line); err != nil {
		log.Printf("record line for frame %d: %v", res.FrameIndex, err)
		return
	}
	r.frames++
}

// Stop finalizes the active recording and returns it.
func (r *Recorder) Stop() (*store.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil, ErrNotRecording
	}

	rec := r.active
	r.active = nil
	rec.FrameCount = r.frames
	if err := r.repo.SetFrameCount(rec.ID, r.frames); err != nil {
		return nil, err
	}
	return rec, nil
}

// Active returns the recording in progress, or nil.
func (r *Recorder) Active() *store.Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

package server

import (
	"sync"

	"github.com/ayusman/skyline/internal/playback"
)

// Hub retains the most recent playback result for pull-based consumers.
// The MJPEG stream and the WebSocket broadcaster read from it on their
// own cadence instead of keeping pace with every session tick.
type Hub struct {
	mu     sync.RWMutex
	latest playback.Result
	seq    uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Publish replaces the retained result. It satisfies playback.Sink so a
// hub can be wired directly as a session sink.
func (h *Hub) Publish(res playback.Result) {
	h.mu.Lock()
	h.latest = res
	h.seq++
	h.mu.Unlock()
}

// Latest returns the retained result and a sequence number that changes
// with every Publish. A zero sequence means nothing has been published
// yet; consumers compare sequences to skip frames they already handled.
func (h *Hub) Latest() (playback.Result, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.seq
}

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/media"
	"github.com/ayusman/skyline/internal/playback"
)

// StreamHandler serves MJPEG frames of the current playback position,
// with the tracked horizon drawn over each frame. Requesting ?view=edges
// streams the raw edge detector output instead.
type StreamHandler struct {
	hub    *Hub
	finder *horizon.Finder
}

// NewStreamHandler creates a new StreamHandler reading from the given hub.
func NewStreamHandler(hub *Hub, finder *horizon.Finder) *StreamHandler {
	return &StreamHandler{hub: hub, finder: finder}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	edgeView := r.URL.Query().Get("view") == "edges"

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var last uint64
	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		res, seq := h.hub.Latest()
		if seq == last || res.Frame == nil {
			time.Sleep(33 * time.Millisecond)
			continue
		}
		last = seq

		buf, err := h.render(res, edgeView)
		if err != nil {
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
		w.Write(buf)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}

// render encodes one result as JPEG, either the edge map or the frame
// with its horizon overlay. A failed overlay falls back to the bare frame.
func (h *StreamHandler) render(res playback.Result, edgeView bool) ([]byte, error) {
	frame := res.Frame

	if edgeView && h.finder != nil {
		if edges, err := h.finder.Edges(frame); err == nil {
			frame = edges.Frame()
		}
	} else if len(res.Line) > 0 {
		if over, err := media.DrawHorizon(frame, res.Line); err == nil {
			frame = over
		}
	}

	return media.EncodeJPEG(frame)
}

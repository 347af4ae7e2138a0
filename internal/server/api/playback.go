package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/playback"
)

// SourceOpener opens a playback source from a local path. The server's
// composition root supplies one backed by the media package so handlers
// stay decoupled from video decoding.
type SourceOpener func(path string) (playback.Source, error)

// PlaybackHandler handles HTTP requests for the playback session.
type PlaybackHandler struct {
	session *playback.Session
	opener  SourceOpener
}

// NewPlaybackHandler creates a new PlaybackHandler for the given session.
func NewPlaybackHandler(s *playback.Session, opener SourceOpener) *PlaybackHandler {
	return &PlaybackHandler{session: s, opener: opener}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/playback for status, /api/playback/{action} for control.
func (h *PlaybackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/playback")
	path = strings.TrimPrefix(path, "/")

	if path == "" || path == "state" {
		// Status endpoint: /api/playback or /api/playback/state
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.writeStatus(w, http.StatusOK)
		return
	}

	if path == "rates" {
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.rates(w, r)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch path {
	case "open":
		h.open(w, r)
	case "play":
		h.play(w, r)
	case "pause":
		h.pause(w, r)
	case "resume":
		h.resume(w, r)
	case "stop":
		h.stop(w, r)
	case "seek":
		h.seek(w, r)
	case "step":
		h.step(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type openRequest struct {
	Path string `json:"path"`
}

type seekRequest struct {
	Frame int `json:"frame"`
}

type stepRequest struct {
	Delta int `json:"delta"`
}

type ratesRequest struct {
	ProcessingFPS float64 `json:"processing_fps"`
	DisplayFPSCap float64 `json:"display_fps_cap"`
}

type statusResponse struct {
	State                 string       `json:"state"`
	Paused                bool         `json:"paused"`
	Source                string       `json:"source,omitempty"`
	FrameIndex            int          `json:"frame_index"`
	FrameCount            int          `json:"frame_count"`
	Width                 int          `json:"width"`
	Height                int          `json:"height"`
	NativeFPS             float64      `json:"native_fps"`
	DisplayFPSCap         float64      `json:"display_fps_cap"`
	ProcessingFPS         float64      `json:"processing_fps"`
	Stride                int          `json:"stride"`
	MeasuredDisplayFPS    float64      `json:"measured_display_fps"`
	MeasuredProcessingFPS float64      `json:"measured_processing_fps"`
	Line                  horizon.Line `json:"line,omitempty"`
}

// toStatusResponse converts a playback.Status to a statusResponse.
func toStatusResponse(st playback.Status) statusResponse {
	return statusResponse{
		State:                 st.State.String(),
		Paused:                st.Paused,
		Source:                st.Source,
		FrameIndex:            st.FrameIndex,
		FrameCount:            st.FrameCount,
		Width:                 st.Width,
		Height:                st.Height,
		NativeFPS:             st.NativeFPS,
		DisplayFPSCap:         st.DisplayFPSCap,
		ProcessingFPS:         st.ProcessingFPS,
		Stride:                st.Stride,
		MeasuredDisplayFPS:    st.MeasuredDisplayFPS,
		MeasuredProcessingFPS: st.MeasuredProcessingFPS,
		Line:                  st.Line,
	}
}

// writeStatus responds with a fresh session snapshot. Every control
// action returns one so clients never need a follow-up status call.
func (h *PlaybackHandler) writeStatus(w http.ResponseWriter, status int) {
	writeJSON(w, status, toStatusResponse(h.session.Status()))
}

// open handles POST /api/playback/open and swaps in a new video source.
func (h *PlaybackHandler) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "Path is required")
		return
	}

	if h.opener == nil {
		writeError(w, http.StatusInternalServerError, "No source opener configured")
		return
	}

	source, err := h.opener(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to open video")
		return
	}

	h.session.Open(source)
	h.writeStatus(w, http.StatusOK)
}

// play handles POST /api/playback/play and starts or resumes playback.
func (h *PlaybackHandler) play(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Play(); err != nil {
		if errors.Is(err, playback.ErrNoSource) {
			writeError(w, http.StatusBadRequest, "No video open")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start playback")
		return
	}

	h.writeStatus(w, http.StatusOK)
}

// pause handles POST /api/playback/pause.
func (h *PlaybackHandler) pause(w http.ResponseWriter, r *http.Request) {
	h.session.Pause()
	h.writeStatus(w, http.StatusOK)
}

// resume handles POST /api/playback/resume.
func (h *PlaybackHandler) resume(w http.ResponseWriter, r *http.Request) {
	h.session.Resume()
	h.writeStatus(w, http.StatusOK)
}

// stop handles POST /api/playback/stop and releases the source.
func (h *PlaybackHandler) stop(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()
	h.writeStatus(w, http.StatusOK)
}

// seek handles POST /api/playback/seek.
func (h *PlaybackHandler) seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.session.Seek(req.Frame)
	h.writeStatus(w, http.StatusOK)
}

// step handles POST /api/playback/step, moving the paused position by a
// signed number of frames.
func (h *PlaybackHandler) step(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.session.Step(req.Delta)
	h.writeStatus(w, http.StatusOK)
}

// rates handles PUT /api/playback/rates. Omitted or non-positive rates
// stay unchanged.
func (h *PlaybackHandler) rates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ProcessingFPS > 0 {
		h.session.SetProcessingFPS(req.ProcessingFPS)
	}
	if req.DisplayFPSCap > 0 {
		h.session.SetDisplayFPSCap(req.DisplayFPSCap)
	}

	h.writeStatus(w, http.StatusOK)
}

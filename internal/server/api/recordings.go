package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/skyline/internal/export"
	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/playback"
	"github.com/ayusman/skyline/internal/record"
	"github.com/ayusman/skyline/internal/sonify"
	"github.com/ayusman/skyline/internal/store"
)

// RecordingHandler handles HTTP requests for recording resources and the
// live capture of playback results into a recording.
type RecordingHandler struct {
	store    *store.Store
	recorder *record.Recorder
	session  *playback.Session
}

// NewRecordingHandler creates a new RecordingHandler. The session supplies
// source metadata when a capture starts; it may be nil, in which case
// capture cannot start but stored recordings remain readable.
func NewRecordingHandler(s *store.Store, rec *record.Recorder, session *playback.Session) *RecordingHandler {
	return &RecordingHandler{store: s, recorder: rec, session: session}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/recordings, /api/recordings/record[/start|/stop],
// /api/recordings/{id} and /api/recordings/{id}/export.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/recordings
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	// Capture control endpoints
	if path == "record" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.active(w, r)
		return
	}
	if path == "record/start" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.start(w, r)
		return
	}
	if path == "record/stop" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stop(w, r)
		return
	}

	// Item endpoints: /api/recordings/{id} or /api/recordings/{id}/export
	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 && parts[1] == "export" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r, id)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Response types

type recordingResponse struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	NativeFPS  float64 `json:"native_fps"`
	FrameCount int     `json:"frame_count"`
	CreatedAt  string  `json:"created_at"`
}

type listRecordingsResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

type recordingDetailResponse struct {
	Recording recordingResponse    `json:"recording"`
	Lines     []store.RecordedLine `json:"lines"`
}

type activeRecordingResponse struct {
	Recording *recordingResponse `json:"recording"`
}

// toRecordingResponse converts a store.Recording to a recordingResponse.
func toRecordingResponse(rec *store.Recording) recordingResponse {
	return recordingResponse{
		ID:         rec.ID,
		Source:     rec.Source,
		Width:      rec.Width,
		Height:     rec.Height,
		NativeFPS:  rec.NativeFPS,
		FrameCount: rec.FrameCount,
		CreatedAt:  rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// list handles GET /api/recordings and returns all recordings.
func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}

	response := listRecordingsResponse{
		Recordings: make([]recordingResponse, 0, len(recordings)),
	}

	for _, rec := range recordings {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/recordings/{id} and returns a recording with its
// captured lines.
func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	lines, err := h.store.Recordings().Lines(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load recording lines")
		return
	}

	writeJSON(w, http.StatusOK, recordingDetailResponse{
		Recording: toRecordingResponse(rec),
		Lines:     lines,
	})
}

// delete handles DELETE /api/recordings/{id}. Captured lines go with the
// recording.
func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Recordings().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// active handles GET /api/recordings/record and reports the capture in
// progress, if any.
func (h *RecordingHandler) active(w http.ResponseWriter, r *http.Request) {
	response := activeRecordingResponse{}
	if rec := h.recorder.Active(); rec != nil {
		converted := toRecordingResponse(rec)
		response.Recording = &converted
	}

	writeJSON(w, http.StatusOK, response)
}

// start handles POST /api/recordings/record/start and begins capturing
// tracked lines from the open video.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	if h.session == nil {
		writeError(w, http.StatusInternalServerError, "Playback not configured")
		return
	}

	status := h.session.Status()
	if status.Source == "" {
		writeError(w, http.StatusBadRequest, "No video open")
		return
	}

	rec, err := h.recorder.Start(status.Source, status.Width, status.Height, status.NativeFPS)
	if err != nil {
		if errors.Is(err, record.ErrAlreadyRecording) {
			writeError(w, http.StatusBadRequest, "Recording already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start recording")
		return
	}

	writeJSON(w, http.StatusCreated, toRecordingResponse(rec))
}

// stop handles POST /api/recordings/record/stop and finalizes the capture.
func (h *RecordingHandler) stop(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recorder.Stop()
	if err != nil {
		if errors.Is(err, record.ErrNotRecording) {
			writeError(w, http.StatusBadRequest, "No recording in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to stop recording")
		return
	}

	writeJSON(w, http.StatusOK, toRecordingResponse(rec))
}

// export handles GET /api/recordings/{id}/export?format=csv|midi and
// renders the captured lines as a download.
func (h *RecordingHandler) export(w http.ResponseWriter, r *http.Request, id string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "midi" {
		writeError(w, http.StatusBadRequest, "Invalid export format")
		return
	}

	if _, err := h.store.Recordings().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	recorded, err := h.store.Recordings().Lines(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load recording lines")
		return
	}

	switch format {
	case "csv":
		frameLines := make([]export.FrameLine, 0, len(recorded))
		for _, rl := range recorded {
			frameLines = append(frameLines, export.FrameLine{Index: rl.FrameIndex, Line: rl.Line})
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=recording-%s.csv", id))
		export.EncodeVideoCSV(w, frameLines)

	case "midi":
		opts, err := midiOptions(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		lines := make([]horizon.Line, 0, len(recorded))
		for _, rl := range recorded {
			lines = append(lines, rl.Line)
		}

		// Render to a buffer first so an empty recording can still get
		// a clean error response.
		var buf bytes.Buffer
		if err := sonify.WriteSMF(&buf, sonify.FrameMeans(lines), opts); err != nil {
			if errors.Is(err, sonify.ErrNoValues) {
				writeError(w, http.StatusBadRequest, "Recording has no tracked lines")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to render MIDI")
			return
		}

		w.Header().Set("Content-Type", "audio/midi")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=recording-%s.mid", id))
		w.Write(buf.Bytes())
	}
}

// midiOptions reads sonification overrides from the export query string.
// Absent parameters keep the package defaults.
func midiOptions(r *http.Request) (sonify.Options, error) {
	opts := sonify.DefaultOptions()
	q := r.URL.Query()

	if v := q.Get("root"); v != "" {
		root, err := strconv.Atoi(v)
		if err != nil || root < 0 || root > 127 {
			return opts, errors.New("Invalid root note")
		}
		opts.Root = uint8(root)
	}
	if v := q.Get("octaves"); v != "" {
		octaves, err := strconv.Atoi(v)
		if err != nil || octaves < 1 {
			return opts, errors.New("Invalid octave count")
		}
		opts.Octaves = octaves
	}
	if v := q.Get("scale"); v != "" {
		scale := sonify.Scale(v)
		if !scale.Valid() {
			return opts, errors.New("Invalid scale")
		}
		opts.Scale = scale
	}
	return opts, nil
}

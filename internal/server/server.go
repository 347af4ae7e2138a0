// Package server provides the HTTP server for the Skyline horizon tracking system.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/playback"
	"github.com/ayusman/skyline/internal/record"
	"github.com/ayusman/skyline/internal/server/api"
	"github.com/ayusman/skyline/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Session   *playback.Session
	Hub       *Hub
	Recorder  *record.Recorder
	Opener    api.SourceOpener
}

// Server represents the HTTP server for the Skyline application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Register parameter and playback control handlers if a Session is configured
	if s.config.Session != nil {
		var settings *store.SettingRepository
		if s.config.Store != nil {
			settings = s.config.Store.Settings()
		}
		paramsHandler := api.NewParamsHandler(s.config.Session.Finder(), settings)
		s.mux.Handle("/api/params", paramsHandler)

		playbackHandler := api.NewPlaybackHandler(s.config.Session, s.config.Opener)
		s.mux.Handle("/api/playback", playbackHandler)
		s.mux.Handle("/api/playback/", playbackHandler)
	}

	// Register preset API handler if Store is configured
	if s.config.Store != nil {
		presetHandler := api.NewPresetHandler(s.config.Store, s.sessionFinder())
		s.mux.Handle("/api/presets", presetHandler)
		s.mux.Handle("/api/presets/", presetHandler)
	}

	// Register recording API handler if Store and Recorder are configured
	if s.config.Store != nil && s.config.Recorder != nil {
		recordingHandler := api.NewRecordingHandler(s.config.Store, s.config.Recorder, s.config.Session)
		s.mux.Handle("/api/recordings", recordingHandler)
		s.mux.Handle("/api/recordings/", recordingHandler)
	}

	// Register live view endpoints if a Hub is configured
	if s.config.Hub != nil {
		streamHandler := NewStreamHandler(s.config.Hub, s.sessionFinder())
		s.mux.Handle("/api/stream", streamHandler)

		horizonHandler := NewHorizonHandler(s.config.Hub)
		s.mux.Handle("/api/horizon", horizonHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// sessionFinder returns the session's finder, or nil when no session is
// configured.
func (s *Server) sessionFinder() *horizon.Finder {
	if s.config.Session == nil {
		return nil
	}
	return s.config.Session.Finder()
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

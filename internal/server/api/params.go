package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/skyline/internal/edge"
	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/store"
)

// ParamsHandler handles HTTP requests for the live detector and tracker
// parameters. Updates take effect on the next tracked frame.
type ParamsHandler struct {
	finder   *horizon.Finder
	settings *store.SettingRepository
}

// NewParamsHandler creates a new ParamsHandler for the given finder. The
// settings repository persists updates across restarts; it may be nil when
// the server runs without a store.
func NewParamsHandler(f *horizon.Finder, settings *store.SettingRepository) *ParamsHandler {
	return &ParamsHandler{finder: f, settings: settings}
}

// Setting keys for persisted parameters.
const (
	SettingDetectorParams = "detector_params"
	SettingTrackerParams  = "tracker_params"
)

// ServeHTTP implements the http.Handler interface.
func (h *ParamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type updateParamsRequest struct {
	Detector *edge.Params    `json:"detector"`
	Tracker  *horizon.Params `json:"tracker"`
}

type paramsResponse struct {
	Detector edge.Params    `json:"detector"`
	Tracker  horizon.Params `json:"tracker"`
}

// get handles GET /api/params and returns the current parameters.
func (h *ParamsHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paramsResponse{
		Detector: h.finder.DetectorParams(),
		Tracker:  h.finder.TrackerParams(),
	})
}

// update handles PUT /api/params. Either section may be omitted to leave
// it unchanged.
func (h *ParamsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Tracker != nil {
		tracker := *req.Tracker
		if tracker.Variant == "" {
			tracker.Variant = horizon.VariantClassic
		}
		if !tracker.Variant.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid tracker variant")
			return
		}
		h.finder.SetTrackerParams(tracker)
	}

	if req.Detector != nil {
		h.finder.SetDetectorParams(*req.Detector)
	}

	if h.settings != nil {
		if err := h.settings.SetJSON(SettingDetectorParams, h.finder.DetectorParams()); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save parameters")
			return
		}
		if err := h.settings.SetJSON(SettingTrackerParams, h.finder.TrackerParams()); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save parameters")
			return
		}
	}

	h.get(w, r)
}

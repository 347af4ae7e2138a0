package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/skyline/internal/export"
	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/playback"
	"github.com/ayusman/skyline/internal/server"
	"github.com/ayusman/skyline/internal/sonify"
	"github.com/ayusman/skyline/internal/store"
	"github.com/ayusman/skyline/testdata"
)

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	srv := server.New(server.Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("CreatePreset", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/presets",
			"application/json",
			strings.NewReader(`{"name": "steady", "tracker": {"jump_threshold": 8, "variant": "classic"}}`),
		)
		if err != nil {
			t.Fatalf("create preset error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	finder := horizon.NewFinder()

	t.Run("LoadPreset", func(t *testing.T) {
		presets, err := s.Presets().List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(presets) != 1 {
			t.Fatalf("expected 1 preset, got %d", len(presets))
		}

		finder.SetDetectorParams(presets[0].Detector)
		finder.SetTrackerParams(presets[0].Tracker)

		if finder.TrackerParams().JumpThreshold != 8 {
			t.Errorf("JumpThreshold = %d, want 8", finder.TrackerParams().JumpThreshold)
		}
	})

	t.Run("TrackHorizon", func(t *testing.T) {
		frame := testdata.HorizonFrame(12, 10, 4)

		line, err := finder.TrackFrame(frame)
		if err != nil {
			t.Fatalf("TrackFrame() error = %v", err)
		}
		if len(line) != 12 {
			t.Fatalf("len(line) = %d, want 12", len(line))
		}

		for x := range line {
			if line[x] != 6 {
				t.Errorf("line[%d] = %d, want 6", x, line[x])
			}
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, _ := client.Get(ts.URL + "/api/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after tracking operations")
		}
		resp.Body.Close()
	})
}

func TestE2E_TrackRecordAndSonify(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "data.db"))
	defer s.Close()

	// A horizon climbing toward the top of the frame.
	src := playback.NewSliceSource(testdata.HorizonSequence(10, 10, []int{6, 4, 2}), 24)
	finder := horizon.NewFinder()

	lines, err := export.CollectLines(src, finder)
	if err != nil {
		t.Fatalf("CollectLines() error = %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 tracked frames, got %d", len(lines))
	}

	rec := &store.Recording{
		ID:         "rec-e2e",
		Source:     "climb.mp4",
		Width:      10,
		Height:     10,
		NativeFPS:  24,
		FrameCount: len(lines),
	}
	s.Recordings().Create(rec)

	recorded := make([]store.RecordedLine, 0, len(lines))
	for _, fl := range lines {
		recorded = append(recorded, store.RecordedLine{FrameIndex: fl.Index, Line: fl.Line})
	}
	if err := s.Recordings().AppendLines(rec.ID, recorded); err != nil {
		t.Fatalf("AppendLines() error = %v", err)
	}

	stored, err := s.Recordings().Lines(rec.ID)
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}

	tracked := make([]horizon.Line, 0, len(stored))
	for _, rl := range stored {
		tracked = append(tracked, rl.Line)
	}

	notes, err := sonify.Notes(sonify.FrameMeans(tracked), sonify.DefaultOptions())
	if err != nil {
		t.Fatalf("Notes() error = %v", err)
	}

	if len(notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(notes))
	}
	if notes[0] != 60 {
		t.Errorf("notes[0] = %d, expected the lowest horizon at the root note", notes[0])
	}
	if notes[0] >= notes[1] || notes[1] >= notes[2] {
		t.Errorf("notes = %v, expected pitch to rise with the horizon", notes)
	}
}

func TestE2E_PresetApply(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "data.db"))
	defer s.Close()

	session := playback.NewSession(playback.Config{})
	defer session.Stop()

	srv := server.New(server.Config{Store: s, Session: session})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	resp, err := client.Post(
		ts.URL+"/api/presets",
		"application/json",
		strings.NewReader(`{
			"name": "crisp",
			"detector": {"lower_threshold": 50, "upper_threshold": 150, "aperture_size": 3},
			"tracker": {"jump_threshold": 9, "variant": "vectorized"}
		}`),
	)
	if err != nil {
		t.Fatalf("create preset error = %v", err)
	}

	var presetResp struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&presetResp)
	resp.Body.Close()

	resp, err = client.Post(ts.URL+"/api/presets/"+presetResp.ID+"/apply", "application/json", nil)
	if err != nil {
		t.Fatalf("apply preset error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("apply status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	resp, err = client.Get(ts.URL + "/api/params")
	if err != nil {
		t.Fatalf("get params error = %v", err)
	}

	var paramsResp struct {
		Detector struct {
			LowerThreshold float64 `json:"lower_threshold"`
			UpperThreshold float64 `json:"upper_threshold"`
		} `json:"detector"`
		Tracker struct {
			JumpThreshold int    `json:"jump_threshold"`
			Variant       string `json:"variant"`
		} `json:"tracker"`
	}
	json.NewDecoder(resp.Body).Decode(&paramsResp)
	resp.Body.Close()

	if paramsResp.Detector.LowerThreshold != 50 {
		t.Errorf("lower threshold = %f, want 50", paramsResp.Detector.LowerThreshold)
	}
	if paramsResp.Tracker.JumpThreshold != 9 {
		t.Errorf("jump threshold = %d, want 9", paramsResp.Tracker.JumpThreshold)
	}
	if paramsResp.Tracker.Variant != "vectorized" {
		t.Errorf("variant = %s, want vectorized", paramsResp.Tracker.Variant)
	}
}

package horizon

import (
	"fmt"
	"sync"

	"github.com/ayusman/skyline/internal/edge"
	"github.com/ayusman/skyline/internal/raster"
)

// Finder bundles edge extraction and line tracking behind one parameter
// set. Parameter updates are last-writer-wins and become visible no
// later than the next call.
type Finder struct {
	mu       sync.Mutex
	detector edge.Params
	tracker  Params
}

// NewFinder creates a Finder with default detector and tracker settings.
func NewFinder() *Finder {
	return &Finder{
		detector: edge.DefaultParams(),
		tracker:  DefaultParams(),
	}
}

// SetDetectorParams replaces the edge detector settings.
func (f *Finder) SetDetectorParams(p edge.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detector = p
}

// DetectorParams returns the current edge detector settings.
func (f *Finder) DetectorParams() edge.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detector
}

// SetTrackerParams replaces the tracker settings.
func (f *Finder) SetTrackerParams(p Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracker = p
}

// TrackerParams returns the current tracker settings.
func (f *Finder) TrackerParams() Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracker
}

// TrackFrame extracts edges from the frame and tracks the horizon line
// across them in one call.
func (f *Finder) TrackFrame(frame *raster.Frame) (Line, error) {
	f.mu.Lock()
	dp, tp := f.detector, f.tracker
	f.mu.Unlock()

	edges, err := edge.Detect(frame, dp)
	if err != nil {
		return nil, fmt.Errorf("detect edges: %w", err)
	}

	line, err := Track(edges, tp)
	if err != nil {
		return nil, fmt.Errorf("track horizon: %w", err)
	}
	return line, nil
}

// Edges runs only the extraction stage, for callers that display raw
// detector output.
func (f *Finder) Edges(frame *raster.Frame) (*raster.EdgeMap, error) {
	f.mu.Lock()
	dp := f.detector
	f.mu.Unlock()
	return edge.Detect(frame, dp)
}

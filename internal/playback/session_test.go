package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/skyline/internal/raster"
	"github.com/ayusman/skyline/testdata"
)

// collector is a Sink that records every result.
type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) sink(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func (c *collector) at(i int) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[i]
}

// forceState puts a session into a state without starting the timer
// goroutine, so tests can drive ticks by hand.
func forceState(s *Session, state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// steppedSource builds a source whose frames move the horizon boundary
// in steps of three identical frames: rows 2, 4 and 6 of an 8x8 frame,
// giving heights 6, 4 and 2.
func steppedSource(fps float64) *SliceSource {
	boundaries := []int{2, 2, 2, 4, 4, 4, 6, 6, 6}
	return NewSliceSource(testdata.HorizonSequence(8, 8, boundaries), fps)
}

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession(Config{})

	st := s.Status()
	if st.State != Stopped {
		t.Errorf("State = %v, want %v", st.State, Stopped)
	}
	if st.ProcessingFPS != DefaultProcessingFPS {
		t.Errorf("ProcessingFPS = %v, want %v", st.ProcessingFPS, DefaultProcessingFPS)
	}
	if st.DisplayFPSCap != DefaultDisplayFPSCap {
		t.Errorf("DisplayFPSCap = %v, want %v", st.DisplayFPSCap, DefaultDisplayFPSCap)
	}
	if s.Finder() == nil {
		t.Error("Finder() = nil, want default finder")
	}
}

func TestSession_PlayWithoutSource(t *testing.T) {
	s := NewSession(Config{})

	if err := s.Play(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Play() error = %v, want %v", err, ErrNoSource)
	}
}

func TestSession_OpenInitializesState(t *testing.T) {
	s := NewSession(Config{})
	s.Open(steppedSource(24))

	st := s.Status()
	if st.FrameCount != 9 {
		t.Errorf("FrameCount = %d, want 9", st.FrameCount)
	}
	if st.NativeFPS != 24 {
		t.Errorf("NativeFPS = %v, want 24", st.NativeFPS)
	}
	if st.FrameIndex != 0 {
		t.Errorf("FrameIndex = %d, want 0", st.FrameIndex)
	}
	if st.State != Stopped {
		t.Errorf("State = %v, want %v", st.State, Stopped)
	}
}

func TestSession_StrideComputation(t *testing.T) {
	tests := []struct {
		name       string
		nativeFPS  float64
		displayCap float64
		processFPS float64
		want       int
	}{
		{"every third frame", 30, 30, 10, 3},
		{"every other frame", 24, 30, 12, 2},
		{"processing outpaces display", 30, 30, 50, 1},
		{"native capped by display", 60, 30, 10, 3},
		{"rounds half up", 30, 30, 20, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(Config{ProcessingFPS: tt.processFPS, DisplayFPSCap: tt.displayCap})
			s.Open(NewSliceSource(testdata.HorizonSequence(8, 8, []int{4}), tt.nativeFPS))

			if got := s.Status().Stride; got != tt.want {
				t.Errorf("Stride = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSession_TickAlternatesFreshAndCached(t *testing.T) {
	var c collector
	s := NewSession(Config{Sink: c.sink, ProcessingFPS: 10, DisplayFPSCap: 30})
	s.Open(steppedSource(30))
	forceState(s, Playing)

	for i := 0; i < 9; i++ {
		s.tick()
	}

	if c.count() != 9 {
		t.Fatalf("got %d results, want 9", c.count())
	}

	wantOrigins := []Origin{
		OriginFresh, OriginCached, OriginCached,
		OriginFresh, OriginCached, OriginCached,
		OriginFresh, OriginCached, OriginCached,
	}
	wantHeights := []int{6, 6, 6, 4, 4, 4, 2, 2, 2}

	for i := 0; i < 9; i++ {
		res := c.at(i)
		if res.FrameIndex != i {
			t.Errorf("result %d: FrameIndex = %d, want %d", i, res.FrameIndex, i)
		}
		if res.Origin != wantOrigins[i] {
			t.Errorf("result %d: Origin = %v, want %v", i, res.Origin, wantOrigins[i])
		}
		if len(res.Line) != 8 || res.Line[0] != wantHeights[i] {
			t.Errorf("result %d: Line = %v, want all %d", i, res.Line, wantHeights[i])
		}
	}
}

func TestSession_FallbackReusesCachedLine(t *testing.T) {
	frames := testdata.HorizonSequence(8, 8, []int{4, 4})
	frames = append(frames, raster.NewGray(0, 0)) // tracking fails here
	frames = append(frames, testdata.HorizonFrame(8, 8, 4))

	var c collector
	s := NewSession(Config{Sink: c.sink, ProcessingFPS: 30, DisplayFPSCap: 30})
	s.Open(NewSliceSource(frames, 30))
	forceState(s, Playing)

	for i := 0; i < 3; i++ {
		s.tick()
	}

	res := c.at(2)
	if res.Origin != OriginFallback {
		t.Fatalf("result 2: Origin = %v, want %v", res.Origin, OriginFallback)
	}
	if len(res.Line) != 8 || res.Line[0] != 4 {
		t.Errorf("result 2: Line = %v, want cached line of 4s", res.Line)
	}
	if st := s.Status(); len(st.Line) != 8 || st.Line[0] != 4 {
		t.Errorf("Status().Line = %v, want cached line of 4s", st.Line)
	}

	s.tick()
	if res := c.at(3); res.Origin != OriginFresh {
		t.Errorf("result 3: Origin = %v, want %v", res.Origin, OriginFresh)
	}
}

func TestSession_FallbackBeforeFirstTrack(t *testing.T) {
	var c collector
	s := NewSession(Config{Sink: c.sink, ProcessingFPS: 30, DisplayFPSCap: 30})
	s.Open(NewSliceSource([]*raster.Frame{raster.NewGray(0, 0)}, 30))
	forceState(s, Playing)

	s.tick()

	res := c.at(0)
	if res.Origin != OriginFallback {
		t.Errorf("Origin = %v, want %v", res.Origin, OriginFallback)
	}
	if res.Line != nil {
		t.Errorf("Line = %v, want nil before any successful track", res.Line)
	}
}

func TestSession_EndOfStreamLoops(t *testing.T) {
	var c collector
	s := NewSession(Config{Sink: c.sink, ProcessingFPS: 30, DisplayFPSCap: 30})
	s.Open(NewSliceSource(testdata.HorizonSequence(8, 8, []int{2, 4, 6}), 30))
	forceState(s, Playing)

	for i := 0; i < 3; i++ {
		s.tick()
	}
	s.tick() // hits end of stream, emits nothing

	if c.count() != 3 {
		t.Fatalf("got %d results after end of stream, want 3", c.count())
	}
	st := s.Status()
	if st.FrameIndex != 0 {
		t.Errorf("FrameIndex = %d, want 0 after loop", st.FrameIndex)
	}
	if st.Line != nil {
		t.Errorf("Status().Line = %v, want nil after loop", st.Line)
	}

	s.tick()

	res := c.at(3)
	if res.FrameIndex != 0 {
		t.Errorf("FrameIndex = %d, want 0", res.FrameIndex)
	}
	if res.Origin != OriginFresh {
		t.Errorf("Origin = %v, want %v after loop restart", res.Origin, OriginFresh)
	}
	if len(res.Line) != 8 || res.Line[0] != 6 {
		t.Errorf("Line = %v, want all 6", res.Line)
	}
}

func TestSession_SeekWhileStoppedIsNoOp(t *testing.T) {
	var c collector
	s := NewSession(Config{Sink: c.sink})
	s.Open(steppedSource(30))

	s.Seek(5)

	if c.count() != 0 {
		t.Errorf("got %d results, want 0", c.count())
	}
	if st := s.Status(); st.FrameIndex != 0 {
		t.Errorf("FrameIndex = %d, want 0", st.FrameIndex)
	}
}

func TestSession_RateChangeWhileStoppedIsNoOp(t *testing.T) {
	s := NewSession(Config{})
	s.Open(steppedSource(30))

	s.SetProcessingFPS(5)
	s.SetDisplayFPSCap(15)

	st := s.Status()
	if st.ProcessingFPS != DefaultProcessingFPS {
		t.Errorf("ProcessingFPS = %v, want %v", st.ProcessingFPS, DefaultProcessingFPS)
	}
	if st.DisplayFPSCap != DefaultDisplayFPSCap {
		t.Errorf("DisplayFPSCap = %v, want %v", st.DisplayFPSCap, DefaultDisplayFPSCap)
	}
}

func TestSession_PausedSeekTracksImmediately(t *testing.T) {
	var c collector
	s := NewSession(Config{Sink: c.sink, ProcessingFPS: 10, DisplayFPSCap: 30})
	s.Open(NewSliceSource(testdata.HorizonSequence(8, 8, []int{2, 4, 6}), 30))
	forceState(s, Paused)

	s.Seek(1)
	s.Step(1)
	s.Step(-2)

	if c.count() != 3 {
		t.Fatalf("got %d results, want 3", c.count())
	}

	wantIndex := []int{1, 2, 0}
	wantHeight := []int{4, 2, 6}
	for i := range wantIndex {
		res := c.at(i)
		if res.FrameIndex != wantIndex[i] {
			t.Errorf("result %d: FrameIndex = %d, want %d", i, res.FrameIndex, wantIndex[i])
		}
		if res.Origin != OriginFresh {
			t.Errorf("result %d: Origin = %v, want %v", i, res.Origin, OriginFresh)
		}
		if len(res.Line) != 8 || res.Line[0] != wantHeight[i] {
			t.Errorf("result %d: Line = %v, want all %d", i, res.Line, wantHeight[i])
		}
	}
}

func TestSession_SeekClampsToRange(t *testing.T) {
	var c collector
	s := NewSession(Config{Sink: c.sink})
	s.Open(NewSliceSource(testdata.HorizonSequence(8, 8, []int{2, 4, 6}), 30))
	forceState(s, Paused)

	s.Seek(99)
	s.Seek(-7)

	if c.count() != 2 {
		t.Fatalf("got %d results, want 2", c.count())
	}
	if res := c.at(0); res.FrameIndex != 2 {
		t.Errorf("Seek(99) landed on %d, want 2", res.FrameIndex)
	}
	if res := c.at(1); res.FrameIndex != 0 {
		t.Errorf("Seek(-7) landed on %d, want 0", res.FrameIndex)
	}
}

func TestSession_StepIgnoredUnlessPaused(t *testing.T) {
	var c collector
	s := NewSession(Config{Sink: c.sink})
	s.Open(steppedSource(30))

	s.Step(1)
	forceState(s, Playing)
	s.Step(1)

	if c.count() != 0 {
		t.Errorf("got %d results, want 0", c.count())
	}
}

func TestSession_RateChangeKeepsPlaybackState(t *testing.T) {
	var c collector
	s := NewSession(Config{Sink: c.sink, ProcessingFPS: 10, DisplayFPSCap: 30})
	s.Open(steppedSource(30))
	forceState(s, Playing)

	for i := 0; i < 4; i++ {
		s.tick()
	}

	s.SetProcessingFPS(30)

	st := s.Status()
	if st.Stride != 1 {
		t.Errorf("Stride = %d, want 1", st.Stride)
	}
	if st.FrameIndex != 4 {
		t.Errorf("FrameIndex = %d, want 4 after rate change", st.FrameIndex)
	}
	if st.Line == nil {
		t.Error("Status().Line = nil, want cached line preserved across rate change")
	}

	s.tick()
	if res := c.at(4); res.Origin != OriginFresh || res.FrameIndex != 4 {
		t.Errorf("result 4 = {index %d, origin %v}, want {index 4, origin %v}",
			res.FrameIndex, res.Origin, OriginFresh)
	}
}

// closeSpy records whether the session released its source.
type closeSpy struct {
	*SliceSource
	closed bool
}

func (c *closeSpy) Close() error {
	c.closed = true
	return c.SliceSource.Close()
}

func TestSession_StopReleasesSource(t *testing.T) {
	spy := &closeSpy{SliceSource: steppedSource(30)}
	s := NewSession(Config{})
	s.Open(spy)

	s.Stop()

	if !spy.closed {
		t.Error("Stop() did not close the source")
	}
	st := s.Status()
	if st.State != Stopped {
		t.Errorf("State = %v, want %v", st.State, Stopped)
	}
	if st.FrameCount != 0 {
		t.Errorf("FrameCount = %d, want 0 after release", st.FrameCount)
	}
	if err := s.Play(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Play() after Stop() error = %v, want %v", err, ErrNoSource)
	}
}

func TestSession_OpenReleasesPreviousSource(t *testing.T) {
	first := &closeSpy{SliceSource: steppedSource(30)}
	s := NewSession(Config{})
	s.Open(first)

	s.Open(NewSliceSource(testdata.HorizonSequence(8, 8, []int{4}), 24))

	if !first.closed {
		t.Error("Open() did not close the previous source")
	}
	if st := s.Status(); st.FrameCount != 1 || st.NativeFPS != 24 {
		t.Errorf("Status = {count %d, fps %v}, want {count 1, fps 24}", st.FrameCount, st.NativeFPS)
	}
}

func TestSession_PlayPauseResumeStop(t *testing.T) {
	boundaries := make([]int, 50)
	for i := range boundaries {
		boundaries[i] = 4
	}

	var c collector
	s := NewSession(Config{Sink: c.sink, ProcessingFPS: 200, DisplayFPSCap: 200})
	s.Open(NewSliceSource(testdata.HorizonSequence(8, 8, boundaries), 200))

	waitFor := func(cond func() bool) bool {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if cond() {
				return true
			}
			time.Sleep(5 * time.Millisecond)
		}
		return cond()
	}

	if err := s.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !waitFor(func() bool { return c.count() >= 5 }) {
		t.Fatalf("got %d results while playing, want at least 5", c.count())
	}
	if st := s.Status(); st.MeasuredDisplayFPS <= 0 {
		t.Errorf("MeasuredDisplayFPS = %v, want > 0 while playing", st.MeasuredDisplayFPS)
	}

	s.Pause()
	time.Sleep(30 * time.Millisecond) // let any in-flight tick drain
	n := c.count()
	time.Sleep(60 * time.Millisecond)
	if got := c.count(); got != n {
		t.Errorf("results grew from %d to %d while paused", n, got)
	}
	if st := s.Status(); !st.Paused {
		t.Errorf("Paused = false, want true")
	}

	s.Resume()
	if !waitFor(func() bool { return c.count() > n }) {
		t.Error("no results after Resume()")
	}

	s.Stop()
	if st := s.Status(); st.State != Stopped {
		t.Errorf("State = %v, want %v", st.State, Stopped)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Stopped, "stopped"},
		{Playing, "playing"},
		{Paused, "paused"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestOrigin_String(t *testing.T) {
	tests := []struct {
		origin Origin
		want   string
	}{
		{OriginFresh, "fresh"},
		{OriginCached, "cached"},
		{OriginFallback, "fallback"},
		{Origin(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.origin.String(); got != tt.want {
			t.Errorf("Origin(%d).String() = %q, want %q", int(tt.origin), got, tt.want)
		}
	}
}

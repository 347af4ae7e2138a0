package playback

import (
	"errors"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/raster"
)

// ErrNoSource is returned when playback is requested before a source
// has been opened.
var ErrNoSource = errors.New("playback: no source open")

const (
	// DefaultProcessingFPS is how many frames per second get fresh
	// horizon tracking when no rate is configured.
	DefaultProcessingFPS = 10

	// DefaultDisplayFPSCap bounds the frame-pull cadence when no cap
	// is configured.
	DefaultDisplayFPSCap = 30

	// rateWindow is how many inter-tick gaps feed the measured-rate
	// averages.
	rateWindow = 30
)

// State describes the lifecycle of a session.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Origin tells a sink how the horizon line in a Result was obtained.
type Origin int

const (
	// OriginFresh means the line was computed from this frame.
	OriginFresh Origin = iota

	// OriginCached means this frame reused the line from an earlier
	// tracked frame.
	OriginCached

	// OriginFallback means tracking was attempted on this frame and
	// failed, so the previous line was reused.
	OriginFallback
)

func (o Origin) String() string {
	switch o {
	case OriginFresh:
		return "fresh"
	case OriginCached:
		return "cached"
	case OriginFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Result is one display tick: a frame paired with the horizon line to
// draw over it. Line is nil until the first successful track.
type Result struct {
	FrameIndex int
	Frame      *raster.Frame
	Line       horizon.Line
	Origin     Origin
}

// Sink receives results as playback produces them. It is called from
// the session's timer goroutine, outside any session lock.
type Sink func(Result)

// Status is a snapshot of session state.
type Status struct {
	State         State   `json:"state"`
	Paused        bool    `json:"paused"`
	Source        string  `json:"source,omitempty"`
	FrameIndex    int     `json:"frame_index"`
	FrameCount    int     `json:"frame_count"`
	NativeFPS     float64 `json:"native_fps"`
	DisplayFPSCap float64 `json:"display_fps_cap"`
	ProcessingFPS float64 `json:"processing_fps"`
	Stride        int     `json:"stride"`

	// Width and Height are the dimensions of the last decoded frame,
	// zero until a frame has been read.
	Width  int `json:"width"`
	Height int `json:"height"`

	// MeasuredDisplayFPS and MeasuredProcessingFPS are averaged over
	// recent ticks, not the configured targets.
	MeasuredDisplayFPS    float64 `json:"measured_display_fps"`
	MeasuredProcessingFPS float64 `json:"measured_processing_fps"`

	// Line is the most recent successfully tracked horizon line.
	Line horizon.Line `json:"line,omitempty"`
}

// Config carries session dependencies and rate targets. Zero rates
// fall back to the package defaults.
type Config struct {
	Finder        *horizon.Finder
	Sink          Sink
	ProcessingFPS float64
	DisplayFPSCap float64
}

// Session drives a Source on a timer, tracking the horizon on a subset
// of frames and reusing the last line on the rest. A single goroutine
// owns the timer; every public method is safe for concurrent use.
type Session struct {
	finder *horizon.Finder
	sink   Sink

	mu         sync.Mutex
	source     Source
	sourceDesc string
	state      State
	stopCh     chan struct{}
	frameIndex int
	total      int
	width      int
	height     int
	nativeFPS  float64
	displayCap float64
	processFPS float64
	stride     int
	counter    int
	cached     horizon.Line

	lastTick  time.Time
	lastFresh time.Time
	tickGaps  []float64
	freshGaps []float64
}

// NewSession creates a session from the given configuration.
func NewSession(config Config) *Session {
	if config.Finder == nil {
		config.Finder = horizon.NewFinder()
	}
	if config.ProcessingFPS <= 0 {
		config.ProcessingFPS = DefaultProcessingFPS
	}
	if config.DisplayFPSCap <= 0 {
		config.DisplayFPSCap = DefaultDisplayFPSCap
	}

	s := &Session{
		finder:     config.Finder,
		sink:       config.Sink,
		state:      Stopped,
		displayCap: config.DisplayFPSCap,
		processFPS: config.ProcessingFPS,
	}
	s.recalcTiming()
	return s
}

// Finder returns the horizon finder the session tracks with.
func (s *Session) Finder() *horizon.Finder {
	return s.finder
}

// Open adopts a new source, releasing any previous one. The session is
// left in the Stopped state at frame zero.
func (s *Session) Open(source Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.haltLocked()
	s.releaseLocked()

	s.source = source
	s.total = source.FrameCount()
	s.nativeFPS = source.FPS()
	if p, ok := source.(interface{ Path() string }); ok {
		s.sourceDesc = p.Path()
	}
	s.recalcTiming()
}

// Play starts playback, or resumes it when paused. Playing while
// already playing is a no-op.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return ErrNoSource
	}

	switch s.state {
	case Playing:
		return nil
	case Paused:
		s.state = Playing
		return nil
	}

	s.state = Playing
	s.counter = 0
	s.stopCh = make(chan struct{})
	go s.run(s.stopCh)
	return nil
}

// Pause suspends playback. The timer keeps running so a later resume
// picks up immediately, but ticks stop pulling frames.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Playing {
		s.state = Paused
	}
}

// Resume continues playback after a pause.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Paused {
		s.state = Playing
	}
}

// Stop tears the session down: the timer goroutine exits, the source
// is closed and released, and all playback state resets. A stopped
// session needs a new Open before it can play again.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.haltLocked()
	s.releaseLocked()
}

// Seek repositions playback at the given frame index, clamped to the
// source's range. While paused it performs one synchronous
// read-track-emit cycle so the new position is visible immediately;
// while stopped it is a no-op.
func (s *Session) Seek(index int) {
	res, ok := s.seekTo(index)
	if ok {
		s.emit(res)
	}
}

// Step moves the paused position by delta frames. It is a no-op unless
// the session is paused.
func (s *Session) Step(delta int) {
	s.mu.Lock()
	if s.state != Paused || s.source == nil {
		s.mu.Unlock()
		return
	}
	// frameIndex points past the frame on screen.
	target := s.frameIndex - 1 + delta
	s.mu.Unlock()

	s.Seek(target)
}

// SetProcessingFPS retargets how often frames get fresh tracking.
// Non-positive rates are ignored, as is any change while stopped.
func (s *Session) SetProcessingFPS(fps float64) {
	if fps <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped {
		return
	}
	s.processFPS = fps
	s.recalcTiming()
}

// SetDisplayFPSCap retargets the frame-pull cadence ceiling.
// Non-positive caps are ignored, as is any change while stopped.
func (s *Session) SetDisplayFPSCap(fps float64) {
	if fps <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped {
		return
	}
	s.displayCap = fps
	s.recalcTiming()
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		State:                 s.state,
		Paused:                s.state == Paused,
		Source:                s.sourceDesc,
		FrameIndex:            s.frameIndex,
		FrameCount:            s.total,
		Width:                 s.width,
		Height:                s.height,
		NativeFPS:             s.nativeFPS,
		DisplayFPSCap:         s.displayCap,
		ProcessingFPS:         s.processFPS,
		Stride:                s.stride,
		MeasuredDisplayFPS:    meanRate(s.tickGaps),
		MeasuredProcessingFPS: meanRate(s.freshGaps),
		Line:                  s.cached,
	}
}

// run is the timer loop. It re-arms the ticker whenever rate changes
// shift the tick interval.
func (s *Session) run(stopCh chan struct{}) {
	s.mu.Lock()
	interval := s.tickInterval()
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if next := s.tick(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// tick advances playback one display frame and emits the result. It
// returns the interval the timer should run at.
func (s *Session) tick() time.Duration {
	res, ok, interval := s.advance()
	if ok {
		s.emit(res)
	}
	return interval
}

// advance does the locked portion of a tick: read a frame, decide
// whether this tick gets fresh tracking, and build the result.
func (s *Session) advance() (Result, bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing || s.source == nil {
		return Result{}, false, s.tickInterval()
	}

	frame, err := s.source.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// End of stream: loop back and re-bootstrap as if the
			// source were freshly opened.
			if serr := s.source.Seek(0); serr != nil {
				log.Printf("rewind source: %v", serr)
			}
			s.frameIndex = 0
			s.counter = 0
			s.cached = nil
			return Result{}, false, s.tickInterval()
		}
		log.Printf("read frame %d: %v", s.frameIndex, err)
		return Result{}, false, s.tickInterval()
	}

	index := s.frameIndex
	s.frameIndex++
	s.width, s.height = frame.Width, frame.Height

	process := s.counter%s.stride == 0
	s.counter++

	res := s.resolve(index, frame, process)
	s.observe(time.Now(), res.Origin == OriginFresh)
	return res, true, s.tickInterval()
}

// resolve pairs a frame with its horizon line: freshly tracked when
// process is set, otherwise the cached line. A failed track falls back
// to the cached line and flags it.
func (s *Session) resolve(index int, frame *raster.Frame, process bool) Result {
	res := Result{FrameIndex: index, Frame: frame, Line: s.cached, Origin: OriginCached}
	if !process {
		return res
	}

	line, err := s.finder.TrackFrame(frame)
	if err != nil {
		log.Printf("track frame %d: %v (reusing previous line)", index, err)
		res.Origin = OriginFallback
		return res
	}

	s.cached = line
	res.Line = line
	res.Origin = OriginFresh
	return res
}

// seekTo repositions the source. While paused it also reads and tracks
// the target frame so the caller can emit it.
func (s *Session) seekTo(index int) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped || s.source == nil {
		return Result{}, false
	}

	if s.total > 0 {
		index = clampInt(index, 0, s.total-1)
	} else if index < 0 {
		index = 0
	}

	if err := s.source.Seek(index); err != nil {
		log.Printf("seek to frame %d: %v", index, err)
		return Result{}, false
	}
	s.frameIndex = index
	s.counter = 0

	if s.state != Paused {
		return Result{}, false
	}

	// Paused seeks always track, so stepping frame by frame shows the
	// line for the frame on screen rather than a stale one.
	frame, err := s.source.Read()
	if err != nil {
		log.Printf("read frame %d: %v", index, err)
		return Result{}, false
	}
	s.frameIndex++
	s.counter = 1
	s.width, s.height = frame.Width, frame.Height

	res := s.resolve(index, frame, true)
	s.observe(time.Now(), res.Origin == OriginFresh)
	return res, true
}

func (s *Session) emit(res Result) {
	if s.sink != nil {
		s.sink(res)
	}
}

// haltLocked stops the timer goroutine if one is running.
func (s *Session) haltLocked() {
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.state = Stopped
}

// releaseLocked closes the source and resets playback state.
func (s *Session) releaseLocked() {
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			log.Printf("close source: %v", err)
		}
		s.source = nil
	}
	s.sourceDesc = ""
	s.frameIndex = 0
	s.total = 0
	s.width = 0
	s.height = 0
	s.nativeFPS = 0
	s.counter = 0
	s.cached = nil
	s.lastTick = time.Time{}
	s.lastFresh = time.Time{}
	s.tickGaps = nil
	s.freshGaps = nil
	s.recalcTiming()
}

// recalcTiming derives the display tick rate and the tracking stride
// from the configured rates and the source's native rate.
func (s *Session) recalcTiming() {
	timer := s.displayCap
	if s.nativeFPS > 0 && s.nativeFPS < timer {
		timer = s.nativeFPS
	}

	stride := int(math.Round(timer / s.processFPS))
	if stride < 1 {
		stride = 1
	}
	s.stride = stride
}

// tickInterval converts the display tick rate to a timer period.
func (s *Session) tickInterval() time.Duration {
	timer := s.displayCap
	if s.nativeFPS > 0 && s.nativeFPS < timer {
		timer = s.nativeFPS
	}
	return time.Duration(float64(time.Second) / timer)
}

// observe feeds the measured-rate windows from tick timestamps.
func (s *Session) observe(now time.Time, fresh bool) {
	if !s.lastTick.IsZero() {
		s.tickGaps = pushGap(s.tickGaps, now.Sub(s.lastTick).Seconds())
	}
	s.lastTick = now

	if !fresh {
		return
	}
	if !s.lastFresh.IsZero() {
		s.freshGaps = pushGap(s.freshGaps, now.Sub(s.lastFresh).Seconds())
	}
	s.lastFresh = now
}

func pushGap(gaps []float64, gap float64) []float64 {
	if len(gaps) >= rateWindow {
		copy(gaps, gaps[1:])
		gaps = gaps[:rateWindow-1]
	}
	return append(gaps, gap)
}

// meanRate converts a window of inter-tick gaps to a rate in Hz.
func meanRate(gaps []float64) float64 {
	if len(gaps) == 0 {
		return 0
	}
	m := stat.Mean(gaps, nil)
	if m <= 0 {
		return 0
	}
	return 1 / m
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

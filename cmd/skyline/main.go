package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ayusman/skyline/internal/edge"
	"github.com/ayusman/skyline/internal/export"
	"github.com/ayusman/skyline/internal/horizon"
	"github.com/ayusman/skyline/internal/media"
	"github.com/ayusman/skyline/internal/playback"
	"github.com/ayusman/skyline/internal/record"
	"github.com/ayusman/skyline/internal/server"
	"github.com/ayusman/skyline/internal/server/api"
	"github.com/ayusman/skyline/internal/sonify"
	"github.com/ayusman/skyline/internal/store"
)

const version = "0.3.0"

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "analyze":
		handleAnalyze(args)
	case "process":
		handleProcess(args)
	case "serve":
		handleServe(args)
	case "version":
		fmt.Printf("skyline version %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`skyline - horizon tracking for landscape images and video

Usage: skyline <command> [options]

Commands:
  analyze    Track the horizon in a single image and export the results
  process    Track the horizon through a whole video file
  serve      Start the HTTP server and web UI
  version    Show skyline version
  help       Show this help message

Detector and tracker flags (analyze, process):
  --lower <n>       Lower hysteresis threshold (default 100)
  --upper <n>       Upper hysteresis threshold (default 200)
  --aperture <n>    Sobel aperture size: 3, 5 or 7 (default 3)
  --l2              Use the Euclidean gradient norm
  --jump <n>        Maximum per-column jump in pixels (default 15)
  --variant <name>  Tracker variant: classic or vectorized

Examples:
  # Export the horizon of a photo as CSV and a height graph
  skyline analyze --csv horizon.csv --graph horizon.png sunset.jpg

  # Render a video with the tracked horizon drawn on every frame
  skyline process --overlay tracked.mp4 flight.mp4

  # Turn a flight video into a MIDI melody
  skyline process --midi flight.mid --scale minor flight.mp4

  # Start the server on a custom port
  skyline serve --addr :9090`)
}

// trackingFlags collects the shared detector and tracker options.
type trackingFlags struct {
	lower    *float64
	upper    *float64
	aperture *int
	l2       *bool
	jump     *int
	variant  *string
}

func addTrackingFlags(fs *flag.FlagSet) *trackingFlags {
	return &trackingFlags{
		lower:    fs.Float64("lower", edge.DefaultLowerThreshold, "Lower hysteresis threshold"),
		upper:    fs.Float64("upper", edge.DefaultUpperThreshold, "Upper hysteresis threshold"),
		aperture: fs.Int("aperture", edge.DefaultApertureSize, "Sobel aperture size: 3, 5 or 7"),
		l2:       fs.Bool("l2", false, "Use the Euclidean gradient norm"),
		jump:     fs.Int("jump", horizon.DefaultJumpThreshold, "Maximum per-column jump in pixels"),
		variant:  fs.String("variant", string(horizon.VariantClassic), "Tracker variant: classic or vectorized"),
	}
}

// finder builds a configured Finder from the parsed flags.
func (f *trackingFlags) finder() (*horizon.Finder, error) {
	variant := horizon.Variant(*f.variant)
	if !variant.Valid() {
		return nil, fmt.Errorf("unknown tracker variant %q", *f.variant)
	}

	finder := horizon.NewFinder()
	finder.SetDetectorParams(edge.Params{
		LowerThreshold: *f.lower,
		UpperThreshold: *f.upper,
		ApertureSize:   *f.aperture,
		L2Gradient:     *f.l2,
	})
	finder.SetTrackerParams(horizon.Params{
		JumpThreshold: *f.jump,
		Variant:       variant,
	})
	return finder, nil
}

// sonifyFlags collects the MIDI rendering options.
type sonifyFlags struct {
	root    *int
	octaves *int
	scale   *string
}

func addSonifyFlags(fs *flag.FlagSet) *sonifyFlags {
	defaults := sonify.DefaultOptions()
	return &sonifyFlags{
		root:    fs.Int("root", int(defaults.Root), "MIDI root note"),
		octaves: fs.Int("octaves", defaults.Octaves, "Octave range of the scale ladder"),
		scale:   fs.String("scale", string(defaults.Scale), "Scale: major or minor"),
	}
}

// options builds sonification options from the parsed flags.
func (f *sonifyFlags) options() (sonify.Options, error) {
	opts := sonify.DefaultOptions()

	if *f.root < 0 || *f.root > 127 {
		return opts, fmt.Errorf("root note %d outside the MIDI range", *f.root)
	}
	scale := sonify.Scale(*f.scale)
	if !scale.Valid() {
		return opts, fmt.Errorf("unknown scale %q", *f.scale)
	}

	opts.Root = uint8(*f.root)
	opts.Octaves = *f.octaves
	opts.Scale = scale
	return opts, nil
}

func handleAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	csvPath := fs.String("csv", "", "Write per-column positions as CSV")
	graphPath := fs.String("graph", "", "Write a height graph as PNG")
	overlayPath := fs.String("overlay", "", "Write the image with the horizon drawn on it")
	midiPath := fs.String("midi", "", "Write the horizon as a single-track MIDI file")
	tracking := addTrackingFlags(fs)
	sonifying := addSonifyFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: an image path is required (e.g., skyline analyze --csv out.csv photo.jpg)")
		fs.Usage()
		os.Exit(1)
	}
	imagePath := fs.Arg(0)

	finder, err := tracking.finder()
	if err != nil {
		log.Fatalf("Invalid tracking options: %v", err)
	}

	frame, err := media.ReadImage(imagePath)
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}

	line, err := finder.TrackFrame(frame)
	if err != nil {
		log.Fatalf("Failed to track horizon: %v", err)
	}

	known := 0
	for x := range line {
		if line.Known(x) {
			known++
		}
	}
	fmt.Printf("Tracked %d of %d columns\n", known, len(line))
	if lo, hi, ok := line.Bounds(); ok {
		fmt.Printf("Height range: %d to %d\n", lo, hi)
	}

	if *csvPath != "" {
		if err := export.WriteImageCSV(*csvPath, line); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
		fmt.Printf("Wrote %s\n", *csvPath)
	}

	if *graphPath != "" {
		if err := export.WriteGraph(*graphPath, line); err != nil {
			log.Fatalf("Failed to write graph: %v", err)
		}
		fmt.Printf("Wrote %s\n", *graphPath)
	}

	if *overlayPath != "" {
		if err := export.WriteOverlayImage(*overlayPath, frame, line); err != nil {
			log.Fatalf("Failed to write overlay: %v", err)
		}
		fmt.Printf("Wrote %s\n", *overlayPath)
	}

	if *midiPath != "" {
		opts, err := sonifying.options()
		if err != nil {
			log.Fatalf("Invalid sonification options: %v", err)
		}
		if err := sonify.WriteSMFFile(*midiPath, line, opts); err != nil {
			log.Fatalf("Failed to write MIDI: %v", err)
		}
		fmt.Printf("Wrote %s\n", *midiPath)
	}
}

func handleProcess(args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	csvPath := fs.String("csv", "", "Write per-frame positions as CSV")
	graphPath := fs.String("graph", "", "Write a mean-height graph as PNG")
	overlayPath := fs.String("overlay", "", "Write a video with the horizon drawn on every frame")
	midiPath := fs.String("midi", "", "Write per-frame mean heights as a MIDI file")
	recordFlag := fs.Bool("record", false, "Save the tracked lines as a recording in the database")
	dataDir := fs.String("data", "", "Data directory (default ~/.skyline)")
	tracking := addTrackingFlags(fs)
	sonifying := addSonifyFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: a video path is required (e.g., skyline process --csv out.csv flight.mp4)")
		fs.Usage()
		os.Exit(1)
	}
	videoPath := fs.Arg(0)

	finder, err := tracking.finder()
	if err != nil {
		log.Fatalf("Invalid tracking options: %v", err)
	}

	src, err := media.OpenVideo(videoPath)
	if err != nil {
		log.Fatalf("Failed to open video: %v", err)
	}
	defer src.Close()

	// Peek at the first frame for the recording dimensions, then start over.
	first, err := src.Read()
	if err != nil {
		log.Fatalf("Failed to read video: %v", err)
	}
	width, height := first.Width, first.Height
	if err := src.Seek(0); err != nil {
		log.Fatalf("Failed to rewind video: %v", err)
	}

	var lines []export.FrameLine
	if *overlayPath != "" {
		lines, err = export.WriteOverlayVideo(*overlayPath, src, finder)
		if err != nil {
			log.Fatalf("Failed to write overlay video: %v", err)
		}
		fmt.Printf("Wrote %s\n", *overlayPath)
	} else {
		lines, err = export.CollectLines(src, finder)
		if err != nil {
			log.Fatalf("Failed to process video: %v", err)
		}
	}
	fmt.Printf("Processed %d frames (%dx%d)\n", len(lines), width, height)

	if *csvPath != "" {
		if err := export.WriteVideoCSV(*csvPath, lines); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
		fmt.Printf("Wrote %s\n", *csvPath)
	}

	if *graphPath != "" {
		if err := export.WriteVideoGraph(*graphPath, lines); err != nil {
			log.Fatalf("Failed to write graph: %v", err)
		}
		fmt.Printf("Wrote %s\n", *graphPath)
	}

	if *midiPath != "" {
		opts, err := sonifying.options()
		if err != nil {
			log.Fatalf("Invalid sonification options: %v", err)
		}
		tracked := make([]horizon.Line, 0, len(lines))
		for _, fl := range lines {
			tracked = append(tracked, fl.Line)
		}
		if err := sonify.WriteSMFFile(*midiPath, sonify.FrameMeans(tracked), opts); err != nil {
			log.Fatalf("Failed to write MIDI: %v", err)
		}
		fmt.Printf("Wrote %s\n", *midiPath)
	}

	if *recordFlag {
		st, err := openStore(*dataDir)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer st.Close()

		rec := &store.Recording{
			ID:         uuid.New().String(),
			Source:     videoPath,
			Width:      width,
			Height:     height,
			NativeFPS:  src.FPS(),
			FrameCount: len(lines),
		}
		if err := st.Recordings().Create(rec); err != nil {
			log.Fatalf("Failed to create recording: %v", err)
		}

		recorded := make([]store.RecordedLine, 0, len(lines))
		for _, fl := range lines {
			if fl.Line == nil {
				continue
			}
			recorded = append(recorded, store.RecordedLine{FrameIndex: fl.Index, Line: fl.Line})
		}
		if err := st.Recordings().AppendLines(rec.ID, recorded); err != nil {
			log.Fatalf("Failed to save recording lines: %v", err)
		}
		fmt.Printf("Saved recording %s (%d lines)\n", rec.ID, len(recorded))
	}
}

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	webDirFlag := fs.String("web", "", "Static file directory (default: autodetect)")
	dataDir := fs.String("data", "", "Data directory (default ~/.skyline)")
	fs.Parse(args)

	fmt.Println("Skyline - Horizon Tracking")

	st, err := openStore(*dataDir)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	finder := horizon.NewFinder()
	loadSavedParams(st, finder)

	hub := server.NewHub()
	recorder := record.NewRecorder(st.Recordings())

	session := playback.NewSession(playback.Config{
		Finder: finder,
		Sink: func(res playback.Result) {
			hub.Publish(res)
			recorder.Note(res)
		},
	})
	defer session.Stop()

	opener := func(path string) (playback.Source, error) {
		return media.OpenVideo(path)
	}

	// Find web directory
	webDir := *webDirFlag
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	// Configure and start server
	cfg := server.Config{
		StaticDir: webDir,
		Store:     st,
		Session:   session,
		Hub:       hub,
		Recorder:  recorder,
		Opener:    opener,
	}

	srv := server.New(cfg)

	fmt.Printf("Starting server on %s\n", *addr)
	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// openStore opens the sqlite store under the given data directory,
// defaulting to ~/.skyline.
func openStore(dataDir string) (*store.Store, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".skyline")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return store.New(filepath.Join(dataDir, "skyline.db"))
}

// loadSavedParams restores detector and tracker parameters persisted by
// the params API. Missing settings leave the defaults in place.
func loadSavedParams(st *store.Store, finder *horizon.Finder) {
	var dp edge.Params
	if err := st.Settings().GetJSON(api.SettingDetectorParams, &dp); err == nil {
		finder.SetDetectorParams(dp)
	}

	var tp horizon.Params
	if err := st.Settings().GetJSON(api.SettingTrackerParams, &tp); err == nil {
		finder.SetTrackerParams(tp)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.skyline/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".skyline", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

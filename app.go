package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/tilemesh/jigsaw"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *jigsaw.Config
	Pattern    *jigsaw.Pattern
	Tracker    *jigsaw.ResultTracker
	MQTTClient *jigsaw.MQTTClient
	Publisher  *jigsaw.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile        string
	DataDir           string
	TileFile          string
	PatternFile       string
	ResultCache       string
	OutputFile        string
	RenderFormat      string
	VectorFormat      string
	Anchor            int
	AnchorOrientation int
	Scale             int
	HttpPort          int
	MqttMode          bool
	HttpMode          bool

	out io.Writer
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Tracker: jigsaw.NewResultTracker(),
		Anchor:  -1,
		out:     os.Stdout,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.DataDir = opts.DataDir
	a.TileFile = opts.TileFile
	a.PatternFile = opts.PatternFile
	a.ResultCache = opts.ResultCache
	a.OutputFile = opts.OutputFile
	a.RenderFormat = opts.RenderFormat
	a.VectorFormat = opts.VectorFormat
	a.Anchor = opts.Anchor
	a.AnchorOrientation = opts.AnchorOrientation
	a.Scale = opts.Scale
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// RunParseOnly parses the tile file and prints a summary
func (a *App) RunParseOnly() {
	if err := a.parseAndPrint(a.TileFile); err != nil {
		log.Fatalf("Error parsing %s: %v", a.TileFile, err)
	}
}

func (a *App) parseAndPrint(path string) error {
	fragments, err := jigsaw.ParseTileFile(path)
	if err != nil {
		return err
	}

	s := jigsaw.Summarize(fragments)
	fmt.Fprintf(a.out, "=== %s ===\n", filepath.Base(path))
	fmt.Fprintf(a.out, "Tiles: %d (ids %d..%d)\n", s.Count, s.MinID, s.MaxID)
	fmt.Fprintf(a.out, "Tile size: %dx%d\n", s.TileSize, s.TileSize)
	if s.PerfectSq {
		fmt.Fprintf(a.out, "Grid: %dx%d\n", s.Side, s.Side)
	} else {
		fmt.Fprintf(a.out, "Grid: tile count is not a perfect square\n")
	}
	fmt.Fprintf(a.out, "Active pixels: %d\n", s.ActivePixels)
	return nil
}

// RunSolve solves the tile file and prints the checksum and roughness
func (a *App) RunSolve() {
	sol, err := a.solveFile(a.TileFile)
	if err != nil {
		log.Fatalf("Error solving %s: %v", a.TileFile, err)
	}
	a.printSolution(sol)
}

// RunRender solves the tile file and writes the selected output format
func (a *App) RunRender() {
	sol, err := a.solveFile(a.TileFile)
	if err != nil {
		log.Fatalf("Error solving %s: %v", a.TileFile, err)
	}
	if err := a.render(sol, a.OutputFile); err != nil {
		log.Fatalf("Error rendering: %v", err)
	}
	fmt.Fprintf(a.out, "Saved %s output to %s\n", a.RenderFormat, a.OutputFile)
}

// loadPattern returns the pattern from --pattern, the config, or the default
func (a *App) loadPattern() (*jigsaw.Pattern, error) {
	if a.PatternFile != "" {
		return jigsaw.LoadPattern(a.PatternFile)
	}
	if a.Config != nil {
		return jigsaw.ResolvePattern(a.Config.Pattern, a.DataDir)
	}
	return jigsaw.SeaMonster(), nil
}

// assembleOptions combines the CLI anchor flags with a per-puzzle anchor.
// A configured anchor wins over the flag.
func (a *App) assembleOptions(puzzleAnchor int) []jigsaw.AssembleOption {
	anchor := a.Anchor
	if puzzleAnchor >= 0 {
		anchor = puzzleAnchor
	}
	return []jigsaw.AssembleOption{
		jigsaw.WithAnchor(anchor),
		jigsaw.WithAnchorOrientation(jigsaw.Orientation(a.AnchorOrientation)),
	}
}

func (a *App) solveFile(path string) (*jigsaw.Solution, error) {
	fragments, err := jigsaw.ParseTileFile(path)
	if err != nil {
		return nil, err
	}
	pattern, err := a.loadPattern()
	if err != nil {
		return nil, err
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return jigsaw.Solve(id, fragments, pattern, a.assembleOptions(-1)...)
}

func (a *App) printSolution(sol *jigsaw.Solution) {
	res := sol.Result
	fmt.Fprintf(a.out, "Puzzle: %s\n", res.PuzzleID)
	fmt.Fprintf(a.out, "Grid: %dx%d tiles of %dx%d\n", res.Side, res.Side, res.TileSize, res.TileSize)
	fmt.Fprintf(a.out, "Corners: %v\n", res.Corners)
	fmt.Fprintf(a.out, "Checksum: %d\n", res.Checksum)
	fmt.Fprintf(a.out, "Pattern occurrences: %d (orientation %s)\n", res.Occurrences, res.MatchOrientation)
	if res.Ambiguous {
		fmt.Fprintf(a.out, "Warning: pattern found in several orientations %v\n", res.OrientationCounts)
	}
	fmt.Fprintf(a.out, "Roughness: %d\n", res.Roughness)
}

// render writes sol to path in the configured format
func (a *App) render(sol *jigsaw.Solution, path string) error {
	switch a.RenderFormat {
	case "", "raster":
		r := jigsaw.NewImageRenderer(sol)
		if a.Scale > 0 {
			r.Scale = a.Scale
		}
		return r.SavePNG(path)

	case "vector":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()

		r := jigsaw.NewLayoutRenderer(sol.Assembly)
		switch a.VectorFormat {
		case "", "svg":
			return r.RenderToSVG(f)
		case "png":
			return r.RenderToPNG(f)
		default:
			return fmt.Errorf("unknown vector format %q (want svg or png)", a.VectorFormat)
		}

	case "geojson":
		fc := jigsaw.LayoutFeatureCollection(sol.Assembly)
		for _, f := range jigsaw.MatchFeatureCollection(sol).Features {
			fc.Append(f)
		}
		data, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling GeoJSON: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown render format %q (want raster, vector or geojson)", a.RenderFormat)
	}
}

// resolvePath joins relative paths onto the data directory
func (a *App) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || a.DataDir == "" || a.DataDir == "." {
		return path
	}
	return filepath.Join(a.DataDir, path)
}

// solvePuzzle solves one puzzle, records the result and publishes it
func (a *App) solvePuzzle(puzzleID string, fragments []jigsaw.Fragment) (*jigsaw.Solution, error) {
	anchor := -1
	if a.Config != nil {
		if pc := a.Config.GetPuzzleByID(puzzleID); pc != nil {
			anchor = pc.GetAnchor()
		}
	}

	sol, err := jigsaw.Solve(puzzleID, fragments, a.Pattern, a.assembleOptions(anchor)...)
	if err != nil {
		log.Printf("Error solving %s: %v", puzzleID, err)
		if a.Publisher != nil {
			if pubErr := a.Publisher.PublishError(puzzleID, err); pubErr != nil {
				log.Printf("Error publishing failure for %s: %v", puzzleID, pubErr)
			}
		}
		return nil, err
	}

	a.Tracker.Update(sol)
	if a.Publisher != nil {
		if err := a.Publisher.PublishResult(&sol.Result); err != nil {
			log.Printf("Error publishing result for %s: %v", puzzleID, err)
		}
	}
	return sol, nil
}

// handleTiles is the MQTT tile handler
func (a *App) handleTiles(puzzleID string, rawPayload []byte, fragments []jigsaw.Fragment, err error) {
	if err != nil {
		log.Printf("Error receiving tiles for %s (%d bytes): %v", puzzleID, len(rawPayload), err)
		if a.Publisher != nil {
			if pubErr := a.Publisher.PublishError(puzzleID, err); pubErr != nil {
				log.Printf("Error publishing failure for %s: %v", puzzleID, pubErr)
			}
		}
		return
	}
	log.Printf("%s: received %d tiles", puzzleID, len(fragments))
	_, _ = a.solvePuzzle(puzzleID, fragments)
}

// loadInitialPuzzles solves every puzzle with a file or API source.
// Failures are logged and do not stop the service.
func (a *App) loadInitialPuzzles(ctx context.Context) int {
	solved := 0
	for _, pc := range a.Config.Puzzles {
		var (
			fragments []jigsaw.Fragment
			err       error
		)
		switch {
		case pc.File != "":
			fragments, err = jigsaw.ParseTileFile(a.resolvePath(pc.File))
		case pc.ApiURL != nil && *pc.ApiURL != "":
			fragments, err = jigsaw.FetchTilesFromAPI(ctx, *pc.ApiURL)
		default:
			continue
		}
		if err != nil {
			log.Printf("Warning: Failed to load tiles for %s: %v", pc.ID, err)
			continue
		}
		if _, err := a.solvePuzzle(pc.ID, fragments); err == nil {
			solved++
		}
	}
	return solved
}

// setupService loads the config and pattern, restores cached results,
// solves file and API puzzles and connects to MQTT when enabled.
func (a *App) setupService(ctx context.Context) error {
	configPath := a.ConfigFile
	if a.DataDir != "." && configPath == "config.yaml" {
		configPath = filepath.Join(a.DataDir, "config.yaml")
	}

	config, err := jigsaw.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w (looked at %s)", err, configPath)
	}
	a.Config = config
	log.Printf("Loaded config from %s", configPath)

	pattern, err := a.loadPattern()
	if err != nil {
		return fmt.Errorf("failed to load pattern: %w", err)
	}
	a.Pattern = pattern
	log.Printf("Pattern: %dx%d with %d active cells", pattern.Width, pattern.Height, pattern.ActiveCount())

	if a.ResultCache != "" {
		cachePath := a.resolvePath(a.ResultCache)
		a.Tracker = jigsaw.NewResultTrackerWithCache(cachePath)
		if a.Tracker.HasResults() {
			log.Printf("Loaded %d cached results from %s", len(a.Tracker.Results()), cachePath)
		}
	}

	if a.MqttMode {
		mqttClient, err := jigsaw.InitMQTT(config, a.handleTiles)
		if err != nil {
			return fmt.Errorf("failed to initialize MQTT: %w", err)
		}
		if mqttClient == nil {
			return errors.New("MQTT broker not configured in config.yaml")
		}
		a.MQTTClient = mqttClient
		a.Publisher = jigsaw.NewPublisher(mqttClient.GetClient(), config.MQTT.PublishPrefix)
		a.Publisher.SetQoS(config.MQTT.QoSLevel())
		if config.MQTT.Retain != nil {
			a.Publisher.SetRetain(*config.MQTT.Retain)
		}
		fmt.Fprintln(a.out, "MQTT result publisher initialized")
	}

	if n := a.loadInitialPuzzles(ctx); n > 0 {
		fmt.Fprintf(a.out, "Solved %d puzzles from files and APIs\n", n)
	}
	return nil
}

// RunService runs MQTT and/or HTTP service mode until interrupted
func (a *App) RunService() {
	fmt.Fprintln(a.out, "Starting tilemesh service...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.setupService(ctx); err != nil {
		log.Fatalf("%v", err)
	}

	var server *http.Server
	if a.HttpMode {
		server = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(a.Tracker, a.Config),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	a.printServiceInfo()

	<-ctx.Done()

	fmt.Fprintln(a.out, "\nShutting down service...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Fprintln(a.out, "Service stopped")
}

func (a *App) printServiceInfo() {
	fmt.Fprintln(a.out, "\nService Running")
	fmt.Fprintln(a.out, "===============")

	if a.MqttMode {
		fmt.Fprintln(a.out, "\nMQTT:")
		fmt.Fprintln(a.out, "  Subscribed topics:")
		for _, pc := range a.Config.Puzzles {
			if pc.Topic != "" {
				fmt.Fprintf(a.out, "    - %s (%s)\n", pc.Topic, pc.ID)
			}
		}
		prefix := a.Publisher.Prefix()
		fmt.Fprintf(a.out, "  Publishing to: %s/{puzzleID}/result\n", prefix)
		fmt.Fprintf(a.out, "  Combined results: %s/results\n", prefix)
	}

	if a.HttpMode {
		fmt.Fprintf(a.out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Fprintln(a.out, "  GET /health                     - Health check")
		fmt.Fprintln(a.out, "  GET /results.json               - All results")
		fmt.Fprintln(a.out, "  GET /result.json?puzzle=ID      - One result (latest when omitted)")
		fmt.Fprintln(a.out, "  GET /image.png?puzzle=ID        - Stitched image with pattern matches")
		fmt.Fprintln(a.out, "  GET /layout.svg?puzzle=ID       - Tile layout as SVG")
		fmt.Fprintln(a.out, "  GET /layout.geojson?puzzle=ID   - Tile layout as GeoJSON")
	}

	fmt.Fprintln(a.out, "\nPress Ctrl+C to stop")
}

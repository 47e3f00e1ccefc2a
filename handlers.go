package main

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/kwv/tilemesh/jigsaw"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(tracker *jigsaw.ResultTracker, config *jigsaw.Config) http.Handler {
	mux := http.NewServeMux()

	render := jigsaw.RenderConfig{Scale: jigsaw.DefaultRenderScale, Padding: jigsaw.DefaultRenderPadding}
	if config != nil {
		if config.Render.Scale > 0 {
			render.Scale = config.Render.Scale
		}
		if config.Render.Padding > 0 {
			render.Padding = config.Render.Padding
		}
	}

	// knownPuzzle rejects ids the config does not list
	knownPuzzle := func(w http.ResponseWriter, id string) bool {
		if id != "" && config != nil && config.GetPuzzleByID(id) == nil {
			http.Error(w, fmt.Sprintf("Unknown puzzle %q", id), http.StatusNotFound)
			return false
		}
		return true
	}

	// solution looks up the solved puzzle named by ?puzzle=, or the latest one
	solution := func(w http.ResponseWriter, r *http.Request) (*jigsaw.Solution, bool) {
		id := r.URL.Query().Get("puzzle")
		if !knownPuzzle(w, id) {
			return nil, false
		}
		var sol *jigsaw.Solution
		if id == "" {
			sol = tracker.Latest()
		} else {
			sol, _ = tracker.Get(id)
		}
		if sol == nil {
			http.Error(w, "No solution available", http.StatusServiceUnavailable)
			return nil, false
		}
		return sol, true
	}

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status     string    `json:"status"`
			Timestamp  time.Time `json:"timestamp"`
			HasResults bool      `json:"hasResults"`
		}{
			Status:     "ok",
			Timestamp:  time.Now(),
			HasResults: tracker.HasResults(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// All results, including ones restored from the cache
	mux.HandleFunc("/results.json", func(w http.ResponseWriter, r *http.Request) {
		if !tracker.HasResults() {
			http.Error(w, "No results available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(tracker.Results()); err != nil {
			log.Printf("Error encoding results: %v", err)
		}
	})

	// Single result
	mux.HandleFunc("/result.json", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("puzzle")
		if !knownPuzzle(w, id) {
			return
		}

		var (
			res jigsaw.Result
			ok  bool
		)
		if id == "" {
			res, ok = tracker.LatestResult()
		} else {
			res, ok = tracker.Result(id)
		}
		if !ok {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			log.Printf("Error encoding result: %v", err)
		}
	})

	// Stitched image with pattern matches highlighted
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		sol, ok := solution(w, r)
		if !ok {
			return
		}
		renderer := jigsaw.NewImageRenderer(sol)
		renderer.Scale = render.Scale

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, renderer.Render()); err != nil {
			log.Printf("Error encoding image PNG: %v", err)
		}
	})

	// Tile layout as vector graphics
	mux.HandleFunc("/layout.svg", func(w http.ResponseWriter, r *http.Request) {
		sol, ok := solution(w, r)
		if !ok {
			return
		}
		renderer := jigsaw.NewLayoutRenderer(sol.Assembly)
		renderer.Padding = render.Padding

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w); err != nil {
			log.Printf("Error rendering layout SVG: %v", err)
		}
	})

	// Tile layout as GeoJSON; ?matches=1 adds the pattern footprints
	mux.HandleFunc("/layout.geojson", func(w http.ResponseWriter, r *http.Request) {
		sol, ok := solution(w, r)
		if !ok {
			return
		}
		fc := jigsaw.LayoutFeatureCollection(sol.Assembly)
		if r.URL.Query().Get("matches") == "1" {
			for _, f := range jigsaw.MatchFeatureCollection(sol).Features {
				fc.Append(f)
			}
		}

		data, err := json.Marshal(fc)
		if err != nil {
			http.Error(w, "Failed to encode GeoJSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.Printf("Error writing GeoJSON: %v", err)
		}
	})

	return mux
}

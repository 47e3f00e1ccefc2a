package jigsaw

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ResultTracker keeps the latest solution per puzzle for HTTP endpoints
type ResultTracker struct {
	mu        sync.RWMutex
	solutions map[string]*Solution
	results   map[string]Result // includes results restored from cache
	cachePath string            // empty disables persistence
}

// NewResultTracker creates an in-memory tracker
func NewResultTracker() *ResultTracker {
	return &ResultTracker{
		solutions: make(map[string]*Solution),
		results:   make(map[string]Result),
	}
}

// NewResultTrackerWithCache creates a tracker that persists results to
// cachePath. Results already in the cache are loaded on creation; their
// images are not cached and are rebuilt on the next solve.
func NewResultTrackerWithCache(cachePath string) *ResultTracker {
	rt := NewResultTracker()
	rt.cachePath = cachePath
	if cachePath != "" {
		if results, err := LoadResults(cachePath); err == nil {
			for _, r := range results {
				rt.results[r.PuzzleID] = r
			}
		}
	}
	return rt
}

// Update stores a solution and persists the result cache
func (rt *ResultTracker) Update(sol *Solution) {
	rt.mu.Lock()
	rt.solutions[sol.Result.PuzzleID] = sol
	rt.results[sol.Result.PuzzleID] = sol.Result
	results := rt.sortedResultsLocked()
	cachePath := rt.cachePath
	rt.mu.Unlock()

	if cachePath != "" {
		if err := SaveResults(results, cachePath); err != nil {
			log.Printf("warning: failed to save result cache: %v", err)
		}
	}
}

// Get returns the solution for a puzzle, if it was solved in this process
func (rt *ResultTracker) Get(puzzleID string) (*Solution, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	sol, ok := rt.solutions[puzzleID]
	return sol, ok
}

// Latest returns the most recently solved solution, or nil
func (rt *ResultTracker) Latest() *Solution {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	var latest *Solution
	for _, sol := range rt.solutions {
		if latest == nil || sol.Result.SolvedAt > latest.Result.SolvedAt ||
			(sol.Result.SolvedAt == latest.Result.SolvedAt && sol.Result.PuzzleID < latest.Result.PuzzleID) {
			latest = sol
		}
	}
	return latest
}

// LatestResult returns the newest result by SolvedAt, including results
// restored from the cache. Ties go to the lowest puzzle ID.
func (rt *ResultTracker) LatestResult() (Result, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	var (
		latest Result
		found  bool
	)
	for _, r := range rt.results {
		if !found || r.SolvedAt > latest.SolvedAt ||
			(r.SolvedAt == latest.SolvedAt && r.PuzzleID < latest.PuzzleID) {
			latest, found = r, true
		}
	}
	return latest, found
}

// Result returns the result for a puzzle, including cached ones
func (rt *ResultTracker) Result(puzzleID string) (Result, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	r, ok := rt.results[puzzleID]
	return r, ok
}

// Results returns all known results sorted by puzzle ID
func (rt *ResultTracker) Results() []Result {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.sortedResultsLocked()
}

// HasResults returns true if at least one result is known
func (rt *ResultTracker) HasResults() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.results) > 0
}

func (rt *ResultTracker) sortedResultsLocked() []Result {
	out := make([]Result, 0, len(rt.results))
	for _, r := range rt.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PuzzleID < out[j].PuzzleID })
	return out
}

// SaveResults writes results to disk as JSON
func SaveResults(results []Result, path string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result cache: %w", err)
	}
	return nil
}

// LoadResults reads results from a JSON file on disk
func LoadResults(path string) ([]Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result cache: %w", err)
	}
	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("unmarshal result cache: %w", err)
	}
	return results, nil
}

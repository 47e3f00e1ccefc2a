package jigsaw

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// SeaMonsterText is the default pattern searched in stitched images
const SeaMonsterText = "                  # \n" +
	"#    ##    ##    ###\n" +
	" #  #  #  #  #  #   "

// Pattern is a fixed template over a bounding box. Offsets lists the cells
// that must be active; every other cell is ignored.
type Pattern struct {
	Width   int
	Height  int
	Offsets []Position
}

// ParsePattern reads a template where '#' marks a required active pixel and
// ' ' or '.' mark don't-care cells. Rows may have different lengths; the
// bounding box is as wide as the longest row.
func ParsePattern(text string) (*Pattern, error) {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("pattern is empty")
	}
	rows := strings.Split(text, "\n")
	p := &Pattern{Height: len(rows)}
	for r, line := range rows {
		line = strings.TrimSuffix(line, "\r")
		p.Width = max(p.Width, len(line))
		for c, ch := range line {
			switch ch {
			case '#':
				p.Offsets = append(p.Offsets, Position{Row: r, Col: c})
			case ' ', '.':
			default:
				return nil, fmt.Errorf("pattern row %d: invalid character %q", r+1, ch)
			}
		}
	}
	if len(p.Offsets) == 0 {
		return nil, fmt.Errorf("pattern has no active cells")
	}
	return p, nil
}

// SeaMonster returns the default pattern
func SeaMonster() *Pattern {
	p, err := ParsePattern(SeaMonsterText)
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPattern reads a pattern file
func LoadPattern(path string) (*Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern file: %w", err)
	}
	return ParsePattern(string(data))
}

// ActiveCount returns the number of must-be-active cells
func (p *Pattern) ActiveCount() int { return len(p.Offsets) }

// MatchesAt reports whether the pattern fits img with its top-left corner
// at (row, col)
func (p *Pattern) MatchesAt(img Grid, row, col int) bool {
	for _, o := range p.Offsets {
		if !img[row+o.Row][col+o.Col] {
			return false
		}
	}
	return true
}

// Match is one pattern occurrence, located in the oriented image
type Match struct {
	Orientation Orientation `json:"orientation"`
	Row         int         `json:"row"`
	Col         int         `json:"col"`
}

// ScanResult holds pattern occurrences across all 8 image orientations
type ScanResult struct {
	Counts      [orientationCount]int
	Matches     []Match
	Total       int
	Orientation Orientation // first orientation with matches, or NoOrientation
	Ambiguous   bool        // more than one orientation matched
}

// Scan slides the pattern over every orientation of img. Overlapping windows
// are counted independently. Total is the sum over all orientations;
// matches in more than one orientation are flagged and logged.
func Scan(img Grid, p *Pattern) ScanResult {
	res := ScanResult{Orientation: NoOrientation}
	matched := 0
	for o, g := range Orientations(img) {
		for r := 0; r+p.Height <= g.Rows(); r++ {
			for c := 0; c+p.Width <= g.Cols(); c++ {
				if p.MatchesAt(g, r, c) {
					res.Counts[o]++
					res.Matches = append(res.Matches, Match{Orientation: Orientation(o), Row: r, Col: c})
				}
			}
		}
		if res.Counts[o] > 0 {
			matched++
			if res.Orientation == NoOrientation {
				res.Orientation = Orientation(o)
			}
		}
		res.Total += res.Counts[o]
	}
	if matched > 1 {
		res.Ambiguous = true
		log.Printf("Warning: pattern matched in %d orientations %v; summing all counts", matched, res.Counts)
	}
	return res
}

// MatchesIn returns the matches found in orientation o
func (s ScanResult) MatchesIn(o Orientation) []Match {
	var out []Match
	for _, m := range s.Matches {
		if m.Orientation == o {
			out = append(out, m)
		}
	}
	return out
}

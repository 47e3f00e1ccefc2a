package jigsaw

import "strings"

// Grid is a square (or, for stitched images and patterns, rectangular) block
// of binary pixels indexed [row][col]. true means the pixel is active ('#').
type Grid [][]bool

// NewGrid allocates an empty grid with the given dimensions
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	for i := range g {
		g[i] = make([]bool, cols)
	}
	return g
}

// ParseGrid builds a grid from rows of '#' and '.' characters.
// Any other character is rejected.
func ParseGrid(rows []string) (Grid, error) {
	g := make(Grid, len(rows))
	for r, line := range rows {
		g[r] = make([]bool, len(line))
		for c, ch := range line {
			switch ch {
			case '#':
				g[r][c] = true
			case '.':
			default:
				return nil, &ParseError{Line: r + 1, Msg: "invalid character " + string(ch)}
			}
		}
	}
	return g, nil
}

// Rows returns the number of rows in the grid
func (g Grid) Rows() int { return len(g) }

// Cols returns the number of columns in the grid (0 for an empty grid)
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// IsSquare reports whether every row has exactly Rows() cells
func (g Grid) IsSquare() bool {
	for _, row := range g {
		if len(row) != len(g) {
			return false
		}
	}
	return true
}

// ActiveCount returns the number of active pixels
func (g Grid) ActiveCount() int {
	n := 0
	for _, row := range g {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the grid
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]bool(nil), row...)
	}
	return out
}

// Equal reports whether two grids have identical dimensions and pixels
func (g Grid) Equal(o Grid) bool {
	if len(g) != len(o) {
		return false
	}
	for i := range g {
		if len(g[i]) != len(o[i]) {
			return false
		}
		for j := range g[i] {
			if g[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}

// Lines renders the grid as '#'/'.' rows
func (g Grid) Lines() []string {
	lines := make([]string, len(g))
	var sb strings.Builder
	for i, row := range g {
		sb.Reset()
		for _, v := range row {
			if v {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		lines[i] = sb.String()
	}
	return lines
}

// String renders the grid as newline separated rows
func (g Grid) String() string {
	return strings.Join(g.Lines(), "\n")
}

// Fragment is a single square image tile with its identifier.
// Fragments are values: orientation transforms return new fragments.
type Fragment struct {
	ID   uint64 `json:"id"`
	Grid Grid   `json:"-"`
}

// Size returns the side length of the fragment
func (f Fragment) Size() int { return len(f.Grid) }

// Position is a (row, column) coordinate in assembly space
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Add returns the position offset by d
func (p Position) Add(d Position) Position {
	return Position{Row: p.Row + d.Row, Col: p.Col + d.Col}
}

// Relative offsets reported by FindJoin
var (
	Above   = Position{Row: -1, Col: 0}
	Below   = Position{Row: 1, Col: 0}
	LeftOf  = Position{Row: 0, Col: -1}
	RightOf = Position{Row: 0, Col: 1}
)

// EdgeSignature is the '#'/'.' string along one border of a grid.
// Horizontal borders read left to right, vertical borders top to bottom.
type EdgeSignature string

// Placement is a fragment fixed at a grid position in a specific orientation.
// Fragment.Grid holds the oriented pixels; Orientation is relative to the
// fragment as it was parsed.
type Placement struct {
	Fragment    Fragment
	Orientation Orientation
	Position    Position
}

// Result is the serializable outcome of solving one puzzle
type Result struct {
	RunID             string      `json:"runId"`
	PuzzleID          string      `json:"puzzleId"`
	Checksum          uint64      `json:"checksum"`
	Roughness         int         `json:"roughness"`
	Side              int         `json:"side"`
	TileSize          int         `json:"tileSize"`
	Corners           [4]uint64   `json:"corners"`
	Layout            [][]uint64  `json:"layout"`
	Occurrences       int         `json:"occurrences"`
	OrientationCounts [8]int      `json:"orientationCounts"`
	MatchOrientation  Orientation `json:"matchOrientation"`
	Ambiguous         bool        `json:"ambiguous,omitempty"`
	ActivePixels      int         `json:"activePixels"`
	SolvedAt          int64       `json:"solvedAt"`
}

// PuzzleConfig defines one puzzle source from the config file
type PuzzleConfig struct {
	ID     string  `yaml:"id" json:"id"`
	Topic  string  `yaml:"topic,omitempty" json:"topic,omitempty"`   // MQTT topic delivering tile payloads
	ApiURL *string `yaml:"apiUrl,omitempty" json:"apiUrl,omitempty"` // Optional URL serving the tile text
	File   string  `yaml:"file,omitempty" json:"file,omitempty"`     // Optional local tile file
	Anchor *int    `yaml:"anchor,omitempty" json:"anchor,omitempty"` // Optional anchor fragment index
}

// PatternConfig selects the pattern searched in stitched images
type PatternConfig struct {
	File string   `yaml:"file,omitempty" json:"file,omitempty"`
	Rows []string `yaml:"rows,omitempty" json:"rows,omitempty"`
}

// RenderConfig holds raster and vector output settings
type RenderConfig struct {
	Scale   int     `yaml:"scale,omitempty" json:"scale,omitempty"`     // Raster pixels per image pixel (default 4)
	Padding float64 `yaml:"padding,omitempty" json:"padding,omitempty"` // Vector padding in cells (default 2)
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	QoS           *int   `yaml:"qos,omitempty" json:"qos,omitempty"`       // Subscribe and publish QoS (default 1)
	Retain        *bool  `yaml:"retain,omitempty" json:"retain,omitempty"` // Retain result messages (default true)
}

// QoSLevel returns the configured QoS, or 1 when unset
func (m MQTTConfig) QoSLevel() byte {
	if m.QoS == nil {
		return 1
	}
	return byte(*m.QoS)
}

// Config represents the full configuration file
type Config struct {
	MQTT    MQTTConfig     `yaml:"mqtt" json:"mqtt"`
	Pattern PatternConfig  `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Puzzles []PuzzleConfig `yaml:"puzzles" json:"puzzles"`
	Render  RenderConfig   `yaml:"render,omitempty" json:"render,omitempty"`
}

// GetPuzzleByID returns the puzzle config for the given ID
func (c *Config) GetPuzzleByID(id string) *PuzzleConfig {
	for i := range c.Puzzles {
		if c.Puzzles[i].ID == id {
			return &c.Puzzles[i]
		}
	}
	return nil
}

// HasTopics returns true if any puzzle is fed over MQTT
func (c *Config) HasTopics() bool {
	for _, p := range c.Puzzles {
		if p.Topic != "" {
			return true
		}
	}
	return false
}

// GetAnchor returns the configured anchor index, or -1 when unset
func (pc *PuzzleConfig) GetAnchor() int {
	if pc.Anchor != nil {
		return *pc.Anchor
	}
	return -1
}

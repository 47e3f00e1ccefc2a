package jigsaw

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseError reports malformed tile input
type ParseError struct {
	Line int // 1-based line number in the input, 0 when unknown
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// ParseTileFile reads and parses a tile file
func ParseTileFile(path string) ([]Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseTiles(data)
}

// ParseTiles parses "Tile <id>:" blocks separated by blank lines.
// Every block must hold a square grid of '#'/'.' rows with the same side
// length as the first block, and ids must be unique.
func ParseTiles(data []byte) ([]Fragment, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var fragments []Fragment
	seen := make(map[uint64]int)
	size := 0

	i := 0
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}

		headerLine := i + 1
		id, err := parseHeader(lines[i])
		if err != nil {
			return nil, &ParseError{Line: headerLine, Msg: err.Error()}
		}
		if prev, dup := seen[id]; dup {
			return nil, &ParseError{Line: headerLine, Msg: fmt.Sprintf("duplicate tile id %d (first on line %d)", id, prev)}
		}
		seen[id] = headerLine
		i++

		start := i
		var rows []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			rows = append(rows, strings.TrimSpace(lines[i]))
			i++
		}
		if len(rows) == 0 {
			return nil, &ParseError{Line: headerLine, Msg: fmt.Sprintf("tile %d has no rows", id)}
		}

		grid, err := ParseGrid(rows)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				return nil, &ParseError{Line: start + pe.Line, Msg: fmt.Sprintf("tile %d: %s", id, pe.Msg)}
			}
			return nil, err
		}
		for r, row := range grid {
			if len(row) != len(grid) {
				return nil, &ParseError{Line: start + r + 1, Msg: fmt.Sprintf("tile %d is not square: row has %d cells, want %d", id, len(row), len(grid))}
			}
		}
		if size == 0 {
			size = len(grid)
		} else if len(grid) != size {
			return nil, &ParseError{Line: headerLine, Msg: fmt.Sprintf("tile %d is %dx%d, want %dx%d", id, len(grid), len(grid), size, size)}
		}

		fragments = append(fragments, Fragment{ID: id, Grid: grid})
	}

	if len(fragments) == 0 {
		return nil, &ParseError{Msg: "no tiles found"}
	}
	return fragments, nil
}

// parseHeader extracts the id from a "Tile 1234:" line
func parseHeader(line string) (uint64, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "Tile ") || !strings.HasSuffix(line, ":") {
		return 0, fmt.Errorf("expected \"Tile <id>:\" header, got %q", line)
	}
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "Tile "), ":"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tile id %q", raw)
	}
	return id, nil
}

// FormatTiles writes fragments in the format read by ParseTiles
func FormatTiles(fragments []Fragment) []byte {
	var buf bytes.Buffer
	for i, f := range fragments {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "Tile %d:\n", f.ID)
		for _, line := range f.Grid.Lines() {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// TileSummary provides a summary of parsed tile input
type TileSummary struct {
	Count        int
	TileSize     int
	Side         int
	PerfectSq    bool
	ActivePixels int
	MinID        uint64
	MaxID        uint64
}

// Summarize extracts key information from parsed tiles
func Summarize(fragments []Fragment) TileSummary {
	s := TileSummary{Count: len(fragments)}
	if len(fragments) == 0 {
		return s
	}
	s.TileSize = fragments[0].Size()
	s.Side = isqrt(len(fragments))
	s.PerfectSq = s.Side*s.Side == len(fragments)
	s.MinID, s.MaxID = fragments[0].ID, fragments[0].ID
	for _, f := range fragments {
		s.ActivePixels += f.Grid.ActiveCount()
		s.MinID = min(s.MinID, f.ID)
		s.MaxID = max(s.MaxID, f.ID)
	}
	return s
}

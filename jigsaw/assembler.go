package jigsaw

import (
	"errors"
	"fmt"
	"log"
)

var (
	// ErrInvalidInput is returned when the fragment set cannot form a square
	ErrInvalidInput = errors.New("invalid input")

	// ErrInconsistentSize is returned when fragments are not all N×N squares
	ErrInconsistentSize = errors.New("inconsistent fragment size")

	// ErrUnsolvable is returned when the worklist stops making progress
	ErrUnsolvable = errors.New("unsolvable assembly")
)

// AssembleOption configures Assemble behavior.
type AssembleOption func(*assembleConfig)

type assembleConfig struct {
	anchor            int
	anchorOrientation Orientation
	maxAttempts       int
}

func defaultAssembleConfig(count int) assembleConfig {
	return assembleConfig{
		anchor:            count - 1,
		anchorOrientation: Identity,
		maxAttempts:       count * count,
	}
}

// WithAnchor selects the fragment (by input index) that seeds the assembly.
// Negative values keep the default (the last fragment).
func WithAnchor(index int) AssembleOption {
	return func(c *assembleConfig) {
		if index >= 0 {
			c.anchor = index
		}
	}
}

// WithAnchorOrientation sets the orientation the anchor is placed in.
func WithAnchorOrientation(o Orientation) AssembleOption {
	return func(c *assembleConfig) {
		c.anchorOrientation = o
	}
}

// WithMaxAttempts bounds the number of worklist dequeues.
func WithMaxAttempts(n int) AssembleOption {
	return func(c *assembleConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// Assembly is the finished square arrangement of fragments
type Assembly struct {
	Side     int
	TileSize int
	Attempts int
	// Placements is indexed [row][col] with (0,0) at the top-left corner
	Placements [][]Placement
}

// Validate checks the fragment set before assembly: a perfect-square count
// of N×N fragments with unique ids. It returns the square's side length.
func Validate(fragments []Fragment) (int, error) {
	count := len(fragments)
	if count == 0 {
		return 0, fmt.Errorf("%w: no fragments", ErrInvalidInput)
	}
	side := isqrt(count)
	if side*side != count {
		return 0, fmt.Errorf("%w: fragment count %d is not a perfect square", ErrInvalidInput, count)
	}

	size := fragments[0].Size()
	seen := make(map[uint64]bool, count)
	for i, f := range fragments {
		if f.Size() == 0 || f.Size() != size || !f.Grid.IsSquare() {
			return 0, fmt.Errorf("%w: fragment %d (index %d) is not %dx%d", ErrInconsistentSize, f.ID, i, size, size)
		}
		if seen[f.ID] {
			return 0, fmt.Errorf("%w: duplicate fragment id %d", ErrInvalidInput, f.ID)
		}
		seen[f.ID] = true
	}
	return side, nil
}

// Assemble places every fragment into a shared coordinate space.
//
// The anchor is placed first; the remaining fragments form a FIFO worklist.
// Each dequeued fragment is matched against placed fragments in placement
// order and takes the first unoccupied neighbouring position found.
// Unmatched fragments go to the back of the queue. Assembly fails with
// ErrUnsolvable when a full pass over the queue places nothing, the attempt
// budget runs out, or the finished square has a border mismatch.
func Assemble(fragments []Fragment, opts ...AssembleOption) (*Assembly, error) {
	side, err := Validate(fragments)
	if err != nil {
		return nil, err
	}

	cfg := defaultAssembleConfig(len(fragments))
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.anchor >= len(fragments) {
		return nil, fmt.Errorf("%w: anchor index %d out of range", ErrInvalidInput, cfg.anchor)
	}
	if !cfg.anchorOrientation.Valid() {
		return nil, fmt.Errorf("%w: anchor orientation %d", ErrInvalidInput, cfg.anchorOrientation)
	}

	anchor := fragments[cfg.anchor]
	origin := Position{}
	placed := map[Position]Placement{
		origin: {
			Fragment:    anchor.Oriented(cfg.anchorOrientation),
			Orientation: cfg.anchorOrientation,
			Position:    origin,
		},
	}
	order := []Position{origin}

	queue := make([]Fragment, 0, len(fragments)-1)
	for i, f := range fragments {
		if i != cfg.anchor {
			queue = append(queue, f)
		}
	}

	attempts, stalled := 0, 0
	for len(queue) > 0 {
		if attempts >= cfg.maxAttempts {
			return nil, fmt.Errorf("%w: %d fragments unplaced after %d attempts", ErrUnsolvable, len(queue), attempts)
		}
		attempts++

		candidate := queue[0]
		queue = queue[1:]

		if p, ok := placeCandidate(candidate, placed, order); ok {
			placed[p.Position] = p
			order = append(order, p.Position)
			stalled = 0
			continue
		}

		queue = append(queue, candidate)
		stalled++
		if stalled >= len(queue) {
			return nil, fmt.Errorf("%w: no progress with %d fragments unplaced", ErrUnsolvable, len(queue))
		}
	}

	asm, err := normalize(placed, side, fragments[0].Size())
	if err != nil {
		return nil, err
	}
	// Each fragment was joined to one neighbour only; the rest may disagree.
	if err := asm.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsolvable, err)
	}
	asm.Attempts = attempts
	log.Printf("Assembled %d fragments into %dx%d grid (%d attempts)", len(fragments), side, side, attempts)
	return asm, nil
}

// placeCandidate tries candidate against every placed fragment and returns
// the first join that lands on a free position.
func placeCandidate(candidate Fragment, placed map[Position]Placement, order []Position) (Placement, bool) {
	for _, pos := range order {
		join, ok := FindJoin(placed[pos].Fragment, candidate)
		if !ok {
			continue
		}
		target := pos.Add(join.Offset)
		if _, taken := placed[target]; taken {
			continue
		}
		return Placement{
			Fragment:    join.Fragment,
			Orientation: join.Orientation,
			Position:    target,
		}, true
	}
	return Placement{}, false
}

// normalize shifts the sparse placement map so its bounding box starts at
// (0,0) and checks that it is a gapless side×side square.
func normalize(placed map[Position]Placement, side, tileSize int) (*Assembly, error) {
	minRow, minCol, maxRow, maxCol := bounds(placed)
	if maxRow-minRow+1 != side || maxCol-minCol+1 != side {
		return nil, fmt.Errorf("%w: placements span %dx%d, want %dx%d",
			ErrUnsolvable, maxRow-minRow+1, maxCol-minCol+1, side, side)
	}

	asm := &Assembly{Side: side, TileSize: tileSize, Placements: make([][]Placement, side)}
	for r := 0; r < side; r++ {
		asm.Placements[r] = make([]Placement, side)
		for c := 0; c < side; c++ {
			p, ok := placed[Position{Row: minRow + r, Col: minCol + c}]
			if !ok {
				return nil, fmt.Errorf("%w: gap at row %d col %d", ErrUnsolvable, r, c)
			}
			p.Position = Position{Row: r, Col: c}
			asm.Placements[r][c] = p
		}
	}
	return asm, nil
}

func bounds(placed map[Position]Placement) (minRow, minCol, maxRow, maxCol int) {
	first := true
	for pos := range placed {
		if first {
			minRow, maxRow, minCol, maxCol = pos.Row, pos.Row, pos.Col, pos.Col
			first = false
			continue
		}
		minRow = min(minRow, pos.Row)
		maxRow = max(maxRow, pos.Row)
		minCol = min(minCol, pos.Col)
		maxCol = max(maxCol, pos.Col)
	}
	return
}

// At returns the placement at (row, col)
func (a *Assembly) At(row, col int) Placement {
	return a.Placements[row][col]
}

// Corners returns the ids at the top-left, top-right, bottom-left and
// bottom-right corners
func (a *Assembly) Corners() [4]uint64 {
	last := a.Side - 1
	return [4]uint64{
		a.Placements[0][0].Fragment.ID,
		a.Placements[0][last].Fragment.ID,
		a.Placements[last][0].Fragment.ID,
		a.Placements[last][last].Fragment.ID,
	}
}

// Checksum is the product of the four corner ids. It does not depend on the
// anchor or its orientation.
func (a *Assembly) Checksum() uint64 {
	product := uint64(1)
	for _, id := range a.Corners() {
		product *= id
	}
	return product
}

// Layout returns the fragment ids in row-major grid order
func (a *Assembly) Layout() [][]uint64 {
	ids := make([][]uint64, a.Side)
	for r, row := range a.Placements {
		ids[r] = make([]uint64, len(row))
		for c, p := range row {
			ids[r][c] = p.Fragment.ID
		}
	}
	return ids
}

// Verify checks that every pair of neighbouring placements shares an
// identical border.
func (a *Assembly) Verify() error {
	for r := 0; r < a.Side; r++ {
		for c := 0; c < a.Side; c++ {
			g := a.Placements[r][c].Fragment.Grid
			if c+1 < a.Side {
				right := a.Placements[r][c+1].Fragment
				if g.Right() != right.Grid.Left() {
					return fmt.Errorf("fragment %d at (%d,%d) does not match right neighbour %d", a.Placements[r][c].Fragment.ID, r, c, right.ID)
				}
			}
			if r+1 < a.Side {
				below := a.Placements[r+1][c].Fragment
				if g.Bottom() != below.Grid.Top() {
					return fmt.Errorf("fragment %d at (%d,%d) does not match lower neighbour %d", a.Placements[r][c].Fragment.ID, r, c, below.ID)
				}
			}
		}
	}
	return nil
}

// isqrt returns floor(sqrt(n)) for n >= 0
func isqrt(n int) int {
	x := 0
	for (x+1)*(x+1) <= n {
		x++
	}
	return x
}

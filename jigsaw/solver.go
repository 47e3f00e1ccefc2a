package jigsaw

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Solution bundles every stage output for one puzzle
type Solution struct {
	Assembly *Assembly
	Image    Grid
	Pattern  *Pattern
	Scan     ScanResult
	Result   Result
}

// Solve runs the full pipeline: assemble, stitch, scan, and score.
// A nil pattern selects the sea monster.
func Solve(puzzleID string, fragments []Fragment, pattern *Pattern, opts ...AssembleOption) (*Solution, error) {
	if pattern == nil {
		pattern = SeaMonster()
	}

	asm, err := Assemble(fragments, opts...)
	if err != nil {
		return nil, fmt.Errorf("assembling %s: %w", puzzleID, err)
	}

	img := Stitch(asm)
	scan := Scan(img, pattern)
	roughness := Roughness(img, pattern, scan.Total)

	log.Printf("Puzzle %s: checksum=%d occurrences=%d roughness=%d", puzzleID, asm.Checksum(), scan.Total, roughness)

	return &Solution{
		Assembly: asm,
		Image:    img,
		Pattern:  pattern,
		Scan:     scan,
		Result: Result{
			RunID:             uuid.NewString(),
			PuzzleID:          puzzleID,
			Checksum:          asm.Checksum(),
			Roughness:         roughness,
			Side:              asm.Side,
			TileSize:          asm.TileSize,
			Corners:           asm.Corners(),
			Layout:            asm.Layout(),
			Occurrences:       scan.Total,
			OrientationCounts: scan.Counts,
			MatchOrientation:  scan.Orientation,
			Ambiguous:         scan.Ambiguous,
			ActivePixels:      img.ActiveCount(),
			SolvedAt:          time.Now().Unix(),
		},
	}, nil
}

// OrientedImage returns the stitched image in the orientation where the
// pattern was found (identity when nothing matched)
func (s *Solution) OrientedImage() Grid {
	if s.Scan.Orientation == NoOrientation {
		return s.Image
	}
	return s.Scan.Orientation.Apply(s.Image)
}

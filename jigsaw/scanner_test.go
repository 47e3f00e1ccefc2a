package jigsaw

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleImage(t *testing.T, opts ...AssembleOption) Grid {
	t.Helper()
	asm, err := Assemble(loadSample(t), opts...)
	require.NoError(t, err)
	return Stitch(asm)
}

func TestSeaMonster(t *testing.T) {
	p := SeaMonster()
	assert.Equal(t, 20, p.Width)
	assert.Equal(t, 3, p.Height)
	assert.Equal(t, 15, p.ActiveCount())
	assert.Contains(t, p.Offsets, Position{Row: 0, Col: 18})
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantErr    string
		wantWidth  int
		wantHeight int
		wantActive int
	}{
		{name: "dots as don't-care", text: ".#.\n###\n", wantWidth: 3, wantHeight: 2, wantActive: 4},
		{name: "ragged rows", text: "#\n  #", wantWidth: 3, wantHeight: 2, wantActive: 2},
		{name: "crlf", text: "#.\r\n.#\r\n", wantWidth: 2, wantHeight: 2, wantActive: 2},
		{name: "empty", text: "  \n", wantErr: "empty"},
		{name: "invalid character", text: "#x#", wantErr: "invalid character"},
		{name: "nothing active", text: "...\n   ", wantErr: "no active cells"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.text)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, p.Width)
			assert.Equal(t, tt.wantHeight, p.Height)
			assert.Equal(t, tt.wantActive, p.ActiveCount())
		})
	}
}

func TestLoadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monster.txt")
	require.NoError(t, os.WriteFile(path, []byte(SeaMonsterText+"\n"), 0644))

	p, err := LoadPattern(path)
	require.NoError(t, err)
	assert.Equal(t, SeaMonster(), p)

	_, err = LoadPattern(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestScan_Sample(t *testing.T) {
	img := sampleImage(t)
	res := Scan(img, SeaMonster())

	assert.Equal(t, [8]int{0, 0, 0, 0, 0, 0, 0, 2}, res.Counts)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, Orientation(7), res.Orientation)
	assert.False(t, res.Ambiguous)
	assert.Len(t, res.MatchesIn(7), 2)
	assert.Empty(t, res.MatchesIn(0))
}

func TestScan_ExactlyOneOrientationForEveryAnchor(t *testing.T) {
	fragments := loadSample(t)
	for anchor := range fragments {
		for o := Orientation(0); o < orientationCount; o++ {
			res := Scan(sampleImage(t, WithAnchor(anchor), WithAnchorOrientation(o)), SeaMonster())

			nonZero := 0
			for _, c := range res.Counts {
				if c > 0 {
					nonZero++
					assert.Equal(t, 2, c, "anchor %d orientation %v", anchor, o)
				}
			}
			assert.Equal(t, 1, nonZero, "anchor %d orientation %v", anchor, o)
		}
	}
}

func TestScan_OverlappingAndAmbiguous(t *testing.T) {
	// A single active cell is symmetric under every orientation.
	p, err := ParsePattern("#")
	require.NoError(t, err)

	img := mustGrid(t,
		"##",
		"..",
	)
	res := Scan(img, p)
	assert.True(t, res.Ambiguous)
	assert.Equal(t, Identity, res.Orientation)
	for o, c := range res.Counts {
		assert.Equal(t, 2, c, "orientation %d", o)
	}
	assert.Equal(t, 16, res.Total)
}

func TestScan_PatternLargerThanImage(t *testing.T) {
	res := Scan(NewGrid(2, 2), SeaMonster())
	assert.Zero(t, res.Total)
	assert.Equal(t, NoOrientation, res.Orientation)
	assert.Empty(t, res.Matches)
}

func TestRoughness(t *testing.T) {
	img := sampleImage(t)
	p := SeaMonster()
	res := Scan(img, p)
	assert.Equal(t, 273, Roughness(img, p, res.Total))
	assert.Equal(t, 303, Roughness(img, p, 0))
}

func TestCoverage(t *testing.T) {
	img := sampleImage(t)
	p := SeaMonster()
	res := Scan(img, p)

	oriented := res.Orientation.Apply(img)
	cov := Coverage(oriented, p, res.MatchesIn(res.Orientation))
	assert.Equal(t, 30, cov.ActiveCount())

	for r, row := range cov {
		for c, covered := range row {
			if covered {
				assert.True(t, oriented[r][c], "covered pixel (%d,%d) is inactive", r, c)
			}
		}
	}
}

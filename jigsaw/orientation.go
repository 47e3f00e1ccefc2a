package jigsaw

import "fmt"

// Orientation identifies one of the 8 dihedral transforms of a square grid.
// Values 0-3 rotate clockwise by 0, 90, 180 and 270 degrees; values 4-7
// mirror each row first and then rotate by the same amounts.
type Orientation int

// NoOrientation marks the absence of an orientation (e.g. no pattern match)
const NoOrientation Orientation = -1

// Identity is the orientation that leaves a grid untouched
const Identity Orientation = 0

// orientationCount is the size of the dihedral group of the square
const orientationCount = 8

// Mirrored reports whether the orientation includes a reflection
func (o Orientation) Mirrored() bool { return o >= 4 }

// Turns returns the number of clockwise quarter turns
func (o Orientation) Turns() int { return int(o) % 4 }

// Valid reports whether o is one of the 8 orientations
func (o Orientation) Valid() bool { return o >= 0 && o < orientationCount }

func (o Orientation) String() string {
	if !o.Valid() {
		return "none"
	}
	s := fmt.Sprintf("rot%d", o.Turns()*90)
	if o.Mirrored() {
		s = "mirror+" + s
	}
	return s
}

// Apply returns the grid transformed by o
func (o Orientation) Apply(g Grid) Grid {
	if o.Mirrored() {
		g = Mirror(g)
	}
	for i := 0; i < o.Turns(); i++ {
		g = Rotate(g)
	}
	return g
}

// Rotate returns g rotated 90 degrees clockwise (transpose, then reverse
// each row). Works on rectangular grids as well: an R×C grid becomes C×R.
func Rotate(g Grid) Grid {
	rows, cols := g.Rows(), g.Cols()
	out := NewGrid(cols, rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c][rows-1-r] = g[r][c]
		}
	}
	return out
}

// Mirror returns g with every row reversed
func Mirror(g Grid) Grid {
	out := make(Grid, len(g))
	for r, row := range g {
		n := len(row)
		out[r] = make([]bool, n)
		for c, v := range row {
			out[r][n-1-c] = v
		}
	}
	return out
}

// Orientations returns all 8 variants of g indexed by Orientation
func Orientations(g Grid) [orientationCount]Grid {
	var out [orientationCount]Grid
	cur := g
	for m := 0; m < 2; m++ {
		for r := 0; r < 4; r++ {
			out[m*4+r] = cur
			cur = Rotate(cur)
		}
		cur = Mirror(cur)
	}
	return out
}

// Oriented returns a copy of the fragment with its grid transformed by o
func (f Fragment) Oriented(o Orientation) Fragment {
	return Fragment{ID: f.ID, Grid: o.Apply(f.Grid)}
}

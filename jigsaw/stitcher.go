package jigsaw

// Interior returns g without its outermost ring of pixels. Grids smaller
// than 3×3 have an empty interior.
func Interior(g Grid) Grid {
	n := len(g)
	if n < 3 {
		return Grid{}
	}
	out := make(Grid, n-2)
	for r := 1; r < n-1; r++ {
		out[r-1] = append([]bool(nil), g[r][1:len(g[r])-1]...)
	}
	return out
}

// Stitch joins the interiors of all placements into one image of
// side*(N-2) pixels per axis, walking the assembly row by row.
func Stitch(a *Assembly) Grid {
	inner := a.TileSize - 2
	if inner <= 0 {
		return Grid{}
	}
	dim := a.Side * inner
	img := NewGrid(dim, dim)
	for r, row := range a.Placements {
		for c, p := range row {
			block := Interior(p.Fragment.Grid)
			for y, line := range block {
				copy(img[r*inner+y][c*inner:], line)
			}
		}
	}
	return img
}

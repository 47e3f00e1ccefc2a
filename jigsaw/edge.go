package jigsaw

// Join describes where a candidate fragment fits relative to an anchor
type Join struct {
	Fragment    Fragment    // candidate in the orientation that matched
	Orientation Orientation // transform applied to the candidate's input grid
	Offset      Position    // candidate position minus anchor position
}

func signature(cells func(i int) bool, n int) EdgeSignature {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		if cells(i) {
			b[i] = '#'
		} else {
			b[i] = '.'
		}
	}
	return EdgeSignature(b)
}

// Top returns the first row, read left to right
func (g Grid) Top() EdgeSignature {
	if len(g) == 0 {
		return ""
	}
	return signature(func(i int) bool { return g[0][i] }, len(g[0]))
}

// Bottom returns the last row, read left to right
func (g Grid) Bottom() EdgeSignature {
	if len(g) == 0 {
		return ""
	}
	last := g[len(g)-1]
	return signature(func(i int) bool { return last[i] }, len(last))
}

// Left returns the first column, read top to bottom
func (g Grid) Left() EdgeSignature {
	return signature(func(i int) bool { return g[i][0] }, len(g))
}

// Right returns the last column, read top to bottom
func (g Grid) Right() EdgeSignature {
	return signature(func(i int) bool { return g[i][len(g[i])-1] }, len(g))
}

// FindJoin searches the 8 orientations of candidate for one whose border
// matches a border of anchor (taken as already oriented). Orientations are
// tried mirror-outer, rotate-inner; within one orientation the sides are
// tested in the order above, below, left, right. The first hit wins.
func FindJoin(anchor, candidate Fragment) (Join, bool) {
	top, bottom := anchor.Grid.Top(), anchor.Grid.Bottom()
	left, right := anchor.Grid.Left(), anchor.Grid.Right()

	for o, g := range Orientations(candidate.Grid) {
		var offset Position
		switch {
		case g.Bottom() == top:
			offset = Above
		case g.Top() == bottom:
			offset = Below
		case g.Right() == left:
			offset = LeftOf
		case g.Left() == right:
			offset = RightOf
		default:
			continue
		}
		return Join{
			Fragment:    Fragment{ID: candidate.ID, Grid: g},
			Orientation: Orientation(o),
			Offset:      offset,
		}, true
	}
	return Join{}, false
}

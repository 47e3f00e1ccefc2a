package jigsaw

// Roughness counts the active pixels of img not attributed to pattern
// occurrences. Overlapping occurrences are not deduplicated.
func Roughness(img Grid, p *Pattern, occurrences int) int {
	return img.ActiveCount() - p.ActiveCount()*occurrences
}

// Coverage marks the pixels covered by matches. img must be the image in the
// orientation the matches were found in.
func Coverage(img Grid, p *Pattern, matches []Match) Grid {
	cov := NewGrid(img.Rows(), img.Cols())
	for _, m := range matches {
		for _, off := range p.Offsets {
			cov[m.Row+off.Row][m.Col+off.Col] = true
		}
	}
	return cov
}

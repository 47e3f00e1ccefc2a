package jigsaw

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// cellRing returns a closed square ring covering size×size cells with its
// top-left corner at (row, col). X grows with columns, Y grows downward.
func cellRing(row, col, size float64) orb.Ring {
	return orb.Ring{
		{col, row},
		{col + size, row},
		{col + size, row + size},
		{col, row + size},
		{col, row},
	}
}

// LayoutFeatureCollection converts an assembly into GeoJSON in pixel units:
// one polygon per fragment carrying its id, grid position and orientation.
func LayoutFeatureCollection(a *Assembly) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	bound := orb.Bound{}
	size := float64(a.TileSize)

	for _, row := range a.Placements {
		for _, p := range row {
			poly := orb.Polygon{cellRing(float64(p.Position.Row)*size, float64(p.Position.Col)*size, size)}
			f := geojson.NewFeature(poly)
			f.ID = p.Fragment.ID
			f.Properties["id"] = p.Fragment.ID
			f.Properties["row"] = p.Position.Row
			f.Properties["col"] = p.Position.Col
			f.Properties["orientation"] = p.Orientation.String()
			f.Properties["active"] = p.Fragment.Grid.ActiveCount()
			fc.Append(f)

			if len(fc.Features) == 1 {
				bound = poly.Bound()
			} else {
				bound = bound.Union(poly.Bound())
			}
		}
	}

	if len(fc.Features) > 0 {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}

// MatchFeatureCollection returns one MultiPolygon per pattern match in the
// stitched image (in the matching orientation), built from the pattern's
// active cells.
func MatchFeatureCollection(sol *Solution) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if sol.Scan.Orientation == NoOrientation {
		return fc
	}

	for i, m := range sol.Scan.MatchesIn(sol.Scan.Orientation) {
		mp := make(orb.MultiPolygon, 0, sol.Pattern.ActiveCount())
		for _, off := range sol.Pattern.Offsets {
			mp = append(mp, orb.Polygon{cellRing(float64(m.Row+off.Row), float64(m.Col+off.Col), 1)})
		}
		f := geojson.NewFeature(mp)
		f.ID = i
		f.Properties["orientation"] = m.Orientation.String()
		f.Properties["row"] = m.Row
		f.Properties["col"] = m.Col
		fc.Append(f)
	}
	return fc
}

package similarity

import (
	"math"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rotisserie/eris"
)

// Repair attempts to produce a valid polygonal geometry from g. Valid input
// is returned unchanged. Invalid polygons are rebuilt from their exterior
// ring (dropping holes); invalid multi-polygons keep their repairable parts.
// The second return value is false when nothing valid can be extracted.
func Repair(g geom.Geometry) (geom.Geometry, bool) {
	if g.IsEmpty() {
		return geom.Geometry{}, false
	}

	// Only polygonal geometries can take part in area-based matching; a
	// valid LINESTRING or POINT is still unusable and must be excluded.
	switch g.Type() {
	case geom.TypePolygon, geom.TypeMultiPolygon:
	default:
		return geom.Geometry{}, false
	}

	if g.Validate() == nil {
		return g, true
	}

	switch g.Type() {
	case geom.TypePolygon:
		return repairPolygon(g.MustAsPolygon())
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		var kept []geom.Polygon
		for i := 0; i < mp.NumPolygons(); i++ {
			if fixed, ok := repairPolygon(mp.PolygonN(i)); ok {
				kept = append(kept, fixed.MustAsPolygon())
			}
		}
		if len(kept) == 0 {
			return geom.Geometry{}, false
		}
		out := geom.NewMultiPolygon(kept).AsGeometry()
		if out.Validate() == nil {
			return out, true
		}
		// Parts overlap each other: keep the largest valid part.
		best := kept[0]
		for _, p := range kept[1:] {
			if p.Area() > best.Area() {
				best = p
			}
		}
		return best.AsGeometry(), true
	default:
		return geom.Geometry{}, false
	}
}

func repairPolygon(p geom.Polygon) (geom.Geometry, bool) {
	g := p.AsGeometry()
	if g.Validate() == nil {
		return g, true
	}
	shell := geom.NewPolygon([]geom.LineString{p.ExteriorRing()}).AsGeometry()
	if shell.Validate() == nil {
		return shell, true
	}
	return geom.Geometry{}, false
}

// IoU computes the intersection-over-union area ratio of two polygonal
// geometries. A zero union area (both degenerate) yields 0 by definition.
func IoU(a, b geom.Geometry) (float64, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return 0, nil
	}
	if !envelopesIntersect(a, b) {
		return 0, nil
	}

	inter, err := geom.Intersection(a, b)
	if err != nil {
		return 0, eris.Wrap(err, "similarity: intersection overlay")
	}
	union, err := geom.Union(a, b)
	if err != nil {
		return 0, eris.Wrap(err, "similarity: union overlay")
	}

	unionArea := union.Area()
	if unionArea == 0 {
		return 0, nil
	}
	return inter.Area() / unionArea, nil
}

// BoundingDiagonal returns the length of the diagonal of g's bounding box,
// used as the reference scale for Hausdorff normalization.
func BoundingDiagonal(g geom.Geometry) float64 {
	min, max, ok := g.Envelope().MinMaxXYs()
	if !ok {
		return 0
	}
	return math.Hypot(max.X-min.X, max.Y-min.Y)
}

func envelopesIntersect(a, b geom.Geometry) bool {
	amin, amax, ok := a.Envelope().MinMaxXYs()
	if !ok {
		return false
	}
	bmin, bmax, ok := b.Envelope().MinMaxXYs()
	if !ok {
		return false
	}
	return amin.X <= bmax.X && bmin.X <= amax.X &&
		amin.Y <= bmax.Y && bmin.Y <= amax.Y
}

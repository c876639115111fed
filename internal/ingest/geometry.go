package ingest

import (
	"github.com/jonas-p/go-shp"
	"github.com/peterstace/simplefeatures/geom"
)

// ShapeToGeometry converts a shapefile shape to a multipolygon geometry.
// Shapefile ring orientation follows the ESRI convention: outer rings
// are clockwise, holes counter-clockwise. Consecutive holes attach to
// the most recent outer ring. Returns false for nil, empty, or
// non-polygonal shapes.
func ShapeToGeometry(shape shp.Shape) (geom.Geometry, bool) {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return geom.Geometry{}, false
	}

	var polys []geom.Polygon
	var shell geom.LineString
	var holes []geom.LineString
	haveShell := false

	flush := func() {
		if !haveShell {
			return
		}
		rings := append([]geom.LineString{shell}, holes...)
		polys = append(polys, geom.NewPolygon(rings))
		holes = nil
		haveShell = false
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))

		// Clockwise (negative signed area) starts a new outer ring.
		if signedArea(flat) < 0 {
			flush()
			shell = ring
			haveShell = true
		} else if haveShell {
			holes = append(holes, ring)
		}
		// A hole before any shell is malformed; drop it.
	}
	flush()

	if len(polys) == 0 {
		return geom.Geometry{}, false
	}
	if len(polys) == 1 {
		return polys[0].AsGeometry(), true
	}
	return geom.NewMultiPolygon(polys).AsGeometry(), true
}

// signedArea computes twice the signed area of a flat XY ring via the
// shoelace formula. Positive means counter-clockwise.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum
}

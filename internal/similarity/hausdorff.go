package similarity

import (
	"math"

	"github.com/peterstace/simplefeatures/geom"
)

// densifyFactor controls how finely boundaries are sampled before the
// point-set Hausdorff computation: segments longer than refScale/densifyFactor
// are subdivided. Higher values tighten the approximation at quadratic cost.
const densifyFactor = 100.0

// Hausdorff computes the symmetric Hausdorff distance between the boundaries
// of two geometries, approximated over densified boundary vertices. The
// second return value is false when either boundary is empty or the
// reference scale is degenerate, in which case the distance is undefined.
func Hausdorff(a, b geom.Geometry) (float64, bool) {
	ref := math.Max(BoundingDiagonal(a), BoundingDiagonal(b))
	if ref <= 0 {
		return 0, false
	}

	step := ref / densifyFactor
	pa := boundaryPoints(a, step)
	pb := boundaryPoints(b, step)
	if len(pa) == 0 || len(pb) == 0 {
		return 0, false
	}

	return math.Max(directedHausdorff(pa, pb), directedHausdorff(pb, pa)), true
}

// directedHausdorff returns max over p in from of the min distance to to.
// O(n*m); callers short-circuit on decisive IoU to avoid paying this.
func directedHausdorff(from, to []geom.XY) float64 {
	var worst float64
	for _, p := range from {
		best := math.Inf(1)
		for _, q := range to {
			d := math.Hypot(p.X-q.X, p.Y-q.Y)
			if d < best {
				best = d
			}
		}
		if best > worst {
			worst = best
		}
	}
	return worst
}

func boundaryPoints(g geom.Geometry, step float64) []geom.XY {
	boundary := g.Boundary()
	if boundary.IsEmpty() {
		return nil
	}
	if step > 0 {
		boundary = boundary.Densify(step)
	}

	seq := boundary.DumpCoordinates()
	pts := make([]geom.XY, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		pts = append(pts, seq.GetXY(i))
	}
	return pts
}

// Package similarity implements the combined IoU + Hausdorff geometric
// similarity metric used to decide whether two vintages of a boundary
// describe the same entity.
//
// The combined method is sequential and short-circuiting: IoU is computed
// first, and when it alone is decisive (IDENTICAL or DISTINCT band) the
// expensive Hausdorff step is skipped entirely.
package similarity

import (
	"fmt"
	"math"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rotisserie/eris"

	"github.com/geovintage/boundary-cli/internal/model"
)

// Metric scores the similarity of two polygonal geometries. Implementations
// must be safe for concurrent use and must never panic on malformed input.
type Metric interface {
	Score(a, b geom.Geometry) model.SimilarityResult
}

// CombinedScorer scores geometry pairs with the weighted IoU + boundary
// displacement method. Immutable after construction, safe for concurrent use.
type CombinedScorer struct {
	thresholds model.SimilarityThresholds
	weights    model.ScoreWeights
}

// NewCombinedScorer validates the configuration and returns a scorer.
// Threshold or weight violations are configuration errors and fatal.
func NewCombinedScorer(t model.SimilarityThresholds, w model.ScoreWeights) (*CombinedScorer, error) {
	if err := t.Validate(); err != nil {
		return nil, eris.Wrap(err, "similarity: invalid thresholds")
	}
	if err := w.Validate(); err != nil {
		return nil, eris.Wrap(err, "similarity: invalid weights")
	}
	return &CombinedScorer{thresholds: t, weights: w}, nil
}

// Thresholds returns the configured decision matrix cut points.
func (s *CombinedScorer) Thresholds() model.SimilarityThresholds {
	return s.thresholds
}

// Score compares old geometry a against candidate new geometry b. A
// malformed geometry that cannot be repaired scores DISTINCT with a
// diagnostic reason rather than failing; one bad pair must never abort a
// whole matching pass.
func (s *CombinedScorer) Score(a, b geom.Geometry) model.SimilarityResult {
	ra, ok := Repair(a)
	if !ok {
		return distinct(0, "old geometry empty or unrepairable")
	}
	rb, ok := Repair(b)
	if !ok {
		return distinct(0, "new geometry empty or unrepairable")
	}

	iou, err := IoU(ra, rb)
	if err != nil {
		return distinct(0, fmt.Sprintf("overlay failed: %s", eris.Cause(err)))
	}

	// Decisive IoU: skip the O(n*m) Hausdorff step.
	switch level := s.thresholds.Classify(iou); level {
	case model.LevelIdentical:
		return model.SimilarityResult{
			Level:         level,
			IoU:           iou,
			CombinedScore: iou,
			Reason:        fmt.Sprintf("high IoU (%.1f%%), automatic merge", iou*100),
		}
	case model.LevelDistinct:
		return distinct(iou, fmt.Sprintf("very low IoU (%.1f%%), distinct objects", iou*100))
	}

	// Ambiguous middle band: bring in boundary displacement.
	refScale := math.Max(BoundingDiagonal(ra), BoundingDiagonal(rb))
	hd, computed := Hausdorff(ra, rb)

	var distSim float64
	if computed && refScale > 0 {
		distSim = 1 - hd/refScale
		if distSim < 0 {
			distSim = 0 // displacement beyond the reference scale
		}
	}

	combined := s.weights.IoU*iou + s.weights.Distance*distSim
	res := model.SimilarityResult{
		Level:             s.thresholds.Classify(combined),
		IoU:               iou,
		HausdorffComputed: computed,
		CombinedScore:     combined,
	}
	if computed {
		res.HausdorffDistance = hd
		res.Reason = fmt.Sprintf("medium IoU (%.1f%%), Hausdorff %.2f", iou*100, hd)
	} else {
		res.Reason = fmt.Sprintf("medium IoU (%.1f%%), boundary distance undefined", iou*100)
	}
	return res
}

func distinct(iou float64, reason string) model.SimilarityResult {
	return model.SimilarityResult{
		Level:         model.LevelDistinct,
		IoU:           iou,
		CombinedScore: iou,
		Reason:        reason,
	}
}

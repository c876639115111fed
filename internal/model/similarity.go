package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// SimilarityLevel classifies a combined score into one of four confidence
// bands. Levels are totally ordered: IDENTICAL > LIKELY_MATCH > SUSPECT > DISTINCT.
type SimilarityLevel string

const (
	LevelIdentical   SimilarityLevel = "identical"    // automatic merge
	LevelLikelyMatch SimilarityLevel = "likely_match" // strong match, review if attributes differ
	LevelSuspect     SimilarityLevel = "suspect"      // potential conflict or temporal change
	LevelDistinct    SimilarityLevel = "distinct"     // different objects
)

// Rank returns the confidence order of the level, higher is more confident.
func (l SimilarityLevel) Rank() int {
	switch l {
	case LevelIdentical:
		return 3
	case LevelLikelyMatch:
		return 2
	case LevelSuspect:
		return 1
	default:
		return 0
	}
}

// SimilarityResult is the outcome of comparing one old entity against one
// candidate new entity. Produced fresh per comparison, never shared.
type SimilarityResult struct {
	Level             SimilarityLevel `json:"level"`
	IoU               float64         `json:"iou"`
	HausdorffComputed bool            `json:"hausdorff_computed"`
	HausdorffDistance float64         `json:"hausdorff_distance,omitempty"` // linear units; valid only if computed
	CombinedScore     float64         `json:"combined_score"`
	Reason            string          `json:"reason,omitempty"`
}

// IsMatch reports whether the result represents a usable correspondence.
func (r SimilarityResult) IsMatch() bool {
	return r.Level != LevelDistinct
}

// SimilarityThresholds holds the three lower-inclusive cut points that split
// [0,1] into the four similarity bands:
//
//	[IdenticalMin, 1.00]          IDENTICAL
//	[LikelyMatchMin, IdenticalMin) LIKELY_MATCH
//	[SuspectMin, LikelyMatchMin)   SUSPECT
//	[0, SuspectMin)                DISTINCT
//
// Strict ordering of the cut points makes gaps and overlaps unrepresentable.
type SimilarityThresholds struct {
	IdenticalMin   float64 `yaml:"identical_min" mapstructure:"identical_min"`
	LikelyMatchMin float64 `yaml:"likely_match_min" mapstructure:"likely_match_min"`
	SuspectMin     float64 `yaml:"suspect_min" mapstructure:"suspect_min"`
}

// DefaultThresholds returns the decision matrix used for French
// administrative data: 0.95 / 0.80 / 0.50.
func DefaultThresholds() SimilarityThresholds {
	return SimilarityThresholds{
		IdenticalMin:   0.95,
		LikelyMatchMin: 0.80,
		SuspectMin:     0.50,
	}
}

// Validate checks that the cut points partition [0,1]. A violation is a
// configuration error and fatal to the whole pass.
func (t SimilarityThresholds) Validate() error {
	if t.SuspectMin <= 0 || t.SuspectMin >= 1 {
		return eris.Errorf("thresholds: suspect_min %.3f must be in (0,1)", t.SuspectMin)
	}
	if t.LikelyMatchMin <= t.SuspectMin {
		return eris.Errorf("thresholds: likely_match_min %.3f must exceed suspect_min %.3f",
			t.LikelyMatchMin, t.SuspectMin)
	}
	if t.IdenticalMin <= t.LikelyMatchMin {
		return eris.Errorf("thresholds: identical_min %.3f must exceed likely_match_min %.3f",
			t.IdenticalMin, t.LikelyMatchMin)
	}
	if t.IdenticalMin > 1 {
		return eris.Errorf("thresholds: identical_min %.3f must be <= 1", t.IdenticalMin)
	}
	return nil
}

// Classify maps a combined score onto its similarity band. Scores are
// clamped into [0,1] first so float noise near the edges cannot escape
// the partition.
func (t SimilarityThresholds) Classify(score float64) SimilarityLevel {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	switch {
	case score >= t.IdenticalMin:
		return LevelIdentical
	case score >= t.LikelyMatchMin:
		return LevelLikelyMatch
	case score >= t.SuspectMin:
		return LevelSuspect
	default:
		return LevelDistinct
	}
}

// ScoreWeights weights the two similarity signals in the combined score.
// Area overlap is the primary signal, boundary displacement the secondary.
type ScoreWeights struct {
	IoU      float64 `yaml:"iou" mapstructure:"iou"`
	Distance float64 `yaml:"distance" mapstructure:"distance"`
}

// DefaultWeights returns the 70/30 IoU/distance weighting.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{IoU: 0.70, Distance: 0.30}
}

const weightSumTolerance = 1e-9

// Validate checks that both weights are non-negative and sum to 1.0.
func (w ScoreWeights) Validate() error {
	if w.IoU < 0 || w.Distance < 0 {
		return eris.Errorf("weights: must be non-negative, got iou=%.3f distance=%.3f", w.IoU, w.Distance)
	}
	if math.Abs(w.IoU+w.Distance-1.0) > weightSumTolerance {
		return eris.Errorf("weights: must sum to 1.0, got %.6f", w.IoU+w.Distance)
	}
	return nil
}

package match

import "github.com/geovintage/boundary-cli/internal/model"

// Disposition is the terminal decision for a scored pair.
type Disposition string

const (
	// DispositionAutoMatch merges the pair without human review.
	DispositionAutoMatch Disposition = "auto_match"
	// DispositionNeedsValidation defers the pair to a reviewer.
	DispositionNeedsValidation Disposition = "needs_validation"
	// DispositionNoMatch treats the pair as unrelated entities.
	DispositionNoMatch Disposition = "no_match"
)

// Classify maps a similarity result plus the attribute-equality signal onto
// a disposition. Identical geometry with changed attributes is deferred to a
// reviewer instead of silently overwriting descriptive data. Pure function;
// the result is never mutated.
func Classify(res model.SimilarityResult, attrsChanged bool) Disposition {
	switch res.Level {
	case model.LevelIdentical:
		if attrsChanged {
			return DispositionNeedsValidation
		}
		return DispositionAutoMatch
	case model.LevelLikelyMatch, model.LevelSuspect:
		return DispositionNeedsValidation
	default:
		return DispositionNoMatch
	}
}

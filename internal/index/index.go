// Package index provides the spatial candidate index used to avoid all-pairs
// geometry comparison. Envelopes of the new-vintage entities are loaded into
// an R-tree once; queries return every entity whose buffered bounding box
// intersects the probe's box, so true overlaps are never missed while distant
// entities are never scored.
package index

import (
	"sort"

	"github.com/tidwall/rtree"

	"github.com/geovintage/boundary-cli/internal/model"
)

// CandidateIndex is built once per new-vintage collection and is read-only
// afterwards; concurrent queries are safe.
type CandidateIndex struct {
	tree   rtree.RTreeG[string]
	buffer float64
	size   int
}

// New builds a CandidateIndex over entities. buffer widens every stored and
// queried envelope by the given distance (linear units) so near-misses from
// coordinate drift still surface as candidates. Entities with empty
// geometry are skipped; callers diagnose those separately.
func New(entities []*model.Entity, buffer float64) *CandidateIndex {
	if buffer < 0 {
		buffer = 0
	}
	ix := &CandidateIndex{buffer: buffer}
	for _, e := range entities {
		min, max, ok := e.Geometry.Envelope().MinMaxXYs()
		if !ok {
			continue
		}
		ix.tree.Insert(
			[2]float64{min.X - buffer, min.Y - buffer},
			[2]float64{max.X + buffer, max.Y + buffer},
			e.ID,
		)
		ix.size++
	}
	return ix
}

// Len returns the number of indexed entities.
func (ix *CandidateIndex) Len() int {
	return ix.size
}

// Candidates returns the IDs of indexed entities whose buffered envelope
// intersects the envelope of old's geometry, sorted for reproducibility.
// False positives are expected and filtered later by the scorer.
func (ix *CandidateIndex) Candidates(old *model.Entity) []string {
	min, max, ok := old.Geometry.Envelope().MinMaxXYs()
	if !ok {
		return nil
	}

	var ids []string
	ix.tree.Search(
		[2]float64{min.X - ix.buffer, min.Y - ix.buffer},
		[2]float64{max.X + ix.buffer, max.Y + ix.buffer},
		func(_, _ [2]float64, id string) bool {
			ids = append(ids, id)
			return true
		},
	)
	sort.Strings(ids)
	return ids
}

// Package match resolves one-to-one correspondences between two vintages of
// polygonal entities. Candidate lookup goes through the spatial index,
// scoring through a pluggable similarity metric, and conflicts between old
// entities competing for the same new entity are settled by a single global
// greedy pass over all scored pairs in descending score order.
package match

import (
	"context"
	"math"
	"sort"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geovintage/boundary-cli/internal/index"
	"github.com/geovintage/boundary-cli/internal/model"
	"github.com/geovintage/boundary-cli/internal/similarity"
)

// Options configures a matching pass.
type Options struct {
	Buffer  float64 // candidate lookup envelope buffer, linear units
	Workers int     // concurrent old-entity evaluations; <=0 selects the default
}

const defaultWorkers = 4

// Pair is one resolved old/new correspondence.
type Pair struct {
	Old    *model.Entity
	New    *model.Entity
	Result model.SimilarityResult
}

// Result is the raw outcome of a matching pass, before disposition
// classification. Pairs never contain DISTINCT-level results.
type Result struct {
	Pairs       []Pair
	Removed     []*model.Entity
	Added       []*model.Entity
	Rejected    []Pair // scored candidates that lost resolution or scored DISTINCT
	Diagnostics []model.EntityDiagnostic
}

// Matcher finds one-to-one matches between entity collections. Stateless
// across passes; safe to reuse.
type Matcher struct {
	metric similarity.Metric
	opts   Options
}

// New creates a Matcher around the given metric.
func New(metric similarity.Metric, opts Options) *Matcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Matcher{metric: metric, opts: opts}
}

// prepared wraps an entity with its repaired geometry so the inputs stay
// untouched.
type prepared struct {
	entity *model.Entity
	geo    geom.Geometry
}

// scoredCandidate is one (old, new) comparison retained for resolution.
type scoredCandidate struct {
	oldIdx    int
	newID     string
	codeMatch bool // both sides carry a business code and they agree
	result    model.SimilarityResult
}

// FindMatches partitions the two collections into resolved pairs, removed
// old entities and added new entities. Entities with missing or unrepairable
// geometry are excluded individually and reported in Diagnostics; the pass
// itself only fails on context cancellation.
func (m *Matcher) FindMatches(ctx context.Context, oldEntities, newEntities []*model.Entity) (*Result, error) {
	res := &Result{}

	oldPrep := prepare(oldEntities, model.SideOld, &res.Diagnostics)
	newPrep := prepare(newEntities, model.SideNew, &res.Diagnostics)

	// Deterministic evaluation order regardless of input order.
	sort.Slice(oldPrep, func(i, j int) bool { return oldPrep[i].entity.ID < oldPrep[j].entity.ID })

	newByID := make(map[string]prepared, len(newPrep))
	indexed := make([]*model.Entity, 0, len(newPrep))
	for _, p := range newPrep {
		newByID[p.entity.ID] = p
		shadow := *p.entity
		shadow.Geometry = p.geo
		indexed = append(indexed, &shadow)
	}
	ix := index.New(indexed, m.opts.Buffer)

	zap.L().Debug("matching pass started",
		zap.String("component", "matcher"),
		zap.Int("old", len(oldPrep)),
		zap.Int("new", len(newPrep)),
		zap.Int("workers", m.opts.Workers),
	)

	// Phase 1: score every old entity against its spatial candidates.
	// Each goroutine reads shared immutable state and writes only its own
	// result slot, so no locking is needed.
	slots := make([][]scoredCandidate, len(oldPrep))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)
	for i := range oldPrep {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			op := oldPrep[i]
			probe := *op.entity
			probe.Geometry = op.geo
			var scored []scoredCandidate
			for _, id := range ix.Candidates(&probe) {
				np := newByID[id]
				scored = append(scored, scoredCandidate{
					oldIdx:    i,
					newID:     id,
					codeMatch: op.entity.Code != "" && op.entity.Code == np.entity.Code,
					result:    m.metric.Score(op.geo, np.geo),
				})
			}
			slots[i] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "match: candidate scoring")
	}

	// Phase 2: one deterministic global resolution pass. Pairs are ranked
	// across all old entities so a high-scoring late arrival is never robbed
	// by a weaker early claim; losers fall back to their next-best unclaimed
	// candidate further down the ranking.
	m.resolve(oldPrep, newByID, slots, res)

	return res, nil
}

func (m *Matcher) resolve(oldPrep []prepared, newByID map[string]prepared, slots [][]scoredCandidate, res *Result) {
	var all []scoredCandidate
	for _, scored := range slots {
		all = append(all, scored...)
	}
	sort.Slice(all, func(i, j int) bool {
		return less(oldPrep, all[i], all[j])
	})

	assignedOld := make(map[int]bool, len(oldPrep))
	claimedNew := make(map[string]bool, len(newByID))

	for _, sc := range all {
		if !sc.result.IsMatch() || assignedOld[sc.oldIdx] || claimedNew[sc.newID] {
			res.Rejected = append(res.Rejected, Pair{
				Old:    oldPrep[sc.oldIdx].entity,
				New:    newByID[sc.newID].entity,
				Result: sc.result,
			})
			continue
		}
		assignedOld[sc.oldIdx] = true
		claimedNew[sc.newID] = true
		res.Pairs = append(res.Pairs, Pair{
			Old:    oldPrep[sc.oldIdx].entity,
			New:    newByID[sc.newID].entity,
			Result: sc.result,
		})
	}

	for i, p := range oldPrep {
		if !assignedOld[i] {
			res.Removed = append(res.Removed, p.entity)
		}
	}
	for _, p := range newByID {
		if !claimedNew[p.entity.ID] {
			res.Added = append(res.Added, p.entity)
		}
	}

	// Reproducible bucket ordering, independent of resolution order.
	sort.Slice(res.Pairs, func(i, j int) bool { return res.Pairs[i].Old.ID < res.Pairs[j].Old.ID })
	sort.Slice(res.Rejected, func(i, j int) bool {
		if res.Rejected[i].Old.ID != res.Rejected[j].Old.ID {
			return res.Rejected[i].Old.ID < res.Rejected[j].Old.ID
		}
		return res.Rejected[i].New.ID < res.Rejected[j].New.ID
	})
	sort.Slice(res.Removed, func(i, j int) bool { return res.Removed[i].ID < res.Removed[j].ID })
	sort.Slice(res.Added, func(i, j int) bool { return res.Added[i].ID < res.Added[j].ID })
}

// less ranks scored candidates for global resolution: combined score first,
// then exact business-code agreement, then smaller boundary displacement,
// then lowest new and old identifiers for a stable total order.
func less(oldPrep []prepared, a, b scoredCandidate) bool {
	if a.result.CombinedScore != b.result.CombinedScore {
		return a.result.CombinedScore > b.result.CombinedScore
	}
	if a.codeMatch != b.codeMatch {
		return a.codeMatch
	}
	ah, bh := hausdorffOrInf(a.result), hausdorffOrInf(b.result)
	if ah != bh {
		return ah < bh
	}
	if a.newID != b.newID {
		return a.newID < b.newID
	}
	return oldPrep[a.oldIdx].entity.ID < oldPrep[b.oldIdx].entity.ID
}

func hausdorffOrInf(r model.SimilarityResult) float64 {
	if !r.HausdorffComputed {
		return math.Inf(1)
	}
	return r.HausdorffDistance
}

// prepare repairs geometries up front and files diagnostics for entities
// that cannot take part in matching. Inputs are never mutated.
func prepare(entities []*model.Entity, side model.DiagnosticSide, diags *[]model.EntityDiagnostic) []prepared {
	out := make([]prepared, 0, len(entities))
	for _, e := range entities {
		if e.Geometry.IsEmpty() {
			*diags = append(*diags, model.EntityDiagnostic{
				EntityID: e.ID,
				Vintage:  e.Vintage,
				Side:     side,
				Reason:   "missing or empty geometry",
			})
			continue
		}
		repaired, ok := similarity.Repair(e.Geometry)
		if !ok {
			*diags = append(*diags, model.EntityDiagnostic{
				EntityID: e.ID,
				Vintage:  e.Vintage,
				Side:     side,
				Reason:   "unrepairable geometry",
			})
			continue
		}
		out = append(out, prepared{entity: e, geo: repaired})
	}
	return out
}

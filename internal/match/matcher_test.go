package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovintage/boundary-cli/internal/model"
	"github.com/geovintage/boundary-cli/internal/similarity"
)

func newMatcher(t *testing.T) *Matcher {
	t.Helper()
	scorer, err := similarity.NewCombinedScorer(model.DefaultThresholds(), model.DefaultWeights())
	require.NoError(t, err)
	return New(scorer, Options{Buffer: 5, Workers: 4})
}

func entity(t *testing.T, id, code, vintage, wkt string) *model.Entity {
	t.Helper()
	g, err := geom.UnmarshalWKT(wkt, geom.NoValidate{})
	require.NoError(t, err)
	return &model.Entity{ID: id, Code: code, Vintage: vintage, Geometry: g}
}

func box(minX, minY, maxX, maxY float64) string {
	return fmt.Sprintf("POLYGON((%[1]g %[2]g,%[3]g %[2]g,%[3]g %[4]g,%[1]g %[4]g,%[1]g %[2]g))",
		minX, minY, maxX, maxY)
}

func TestFindMatchesIdenticalPair(t *testing.T) {
	m := newMatcher(t)
	old := []*model.Entity{entity(t, "o1", "75056", "2023", box(0, 0, 10, 10))}
	niu := []*model.Entity{entity(t, "n1", "75056", "2024", box(0, 0, 10, 10))}

	res, err := m.FindMatches(context.Background(), old, niu)
	require.NoError(t, err)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "o1", res.Pairs[0].Old.ID)
	assert.Equal(t, "n1", res.Pairs[0].New.ID)
	assert.Equal(t, model.LevelIdentical, res.Pairs[0].Result.Level)
	assert.InDelta(t, 1.0, res.Pairs[0].Result.CombinedScore, 1e-9)
	assert.Empty(t, res.Removed)
	assert.Empty(t, res.Added)
}

func TestFindMatchesRemovedAndAdded(t *testing.T) {
	m := newMatcher(t)
	// Old entity with nothing nearby, new entity with no old counterpart.
	old := []*model.Entity{entity(t, "o1", "", "2023", box(0, 0, 10, 10))}
	niu := []*model.Entity{entity(t, "n1", "", "2024", box(500, 500, 510, 510))}

	res, err := m.FindMatches(context.Background(), old, niu)
	require.NoError(t, err)

	assert.Empty(t, res.Pairs)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, "o1", res.Removed[0].ID)
	require.Len(t, res.Added, 1)
	assert.Equal(t, "n1", res.Added[0].ID)
}

func TestFindMatchesEmptyCollections(t *testing.T) {
	m := newMatcher(t)

	res, err := m.FindMatches(context.Background(), nil,
		[]*model.Entity{entity(t, "n1", "", "2024", box(0, 0, 10, 10))})
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.Removed)

	res, err = m.FindMatches(context.Background(),
		[]*model.Entity{entity(t, "o1", "", "2023", box(0, 0, 10, 10))}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Removed, 1)
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.Added)
}

// Two old entities compete for the same new entity; the higher combined
// score wins and the loser falls back to its next-best unclaimed candidate.
func TestFindMatchesConflictResolution(t *testing.T) {
	m := newMatcher(t)
	old := []*model.Entity{
		entity(t, "o1", "", "2023", box(1, 0, 11, 10)),   // weaker claim on n1
		entity(t, "o2", "", "2023", box(0.5, 0, 10.5, 10)), // stronger claim on n1
	}
	niu := []*model.Entity{
		entity(t, "n1", "", "2024", box(0, 0, 10, 10)),
		entity(t, "n2", "", "2024", box(3, 0, 13, 10)), // o1's fallback
	}

	res, err := m.FindMatches(context.Background(), old, niu)
	require.NoError(t, err)

	require.Len(t, res.Pairs, 2)
	byOld := map[string]string{}
	for _, p := range res.Pairs {
		byOld[p.Old.ID] = p.New.ID
	}
	assert.Equal(t, "n1", byOld["o2"])
	assert.Equal(t, "n2", byOld["o1"])
	assert.Empty(t, res.Removed)
	assert.Empty(t, res.Added)
}

// No new entity may be claimed by more than one old entity even when many
// old entities overlap it.
func TestFindMatchesOneToOne(t *testing.T) {
	m := newMatcher(t)
	var old []*model.Entity
	for i := 0; i < 5; i++ {
		old = append(old, entity(t, fmt.Sprintf("o%d", i), "", "2023",
			box(float64(i), 0, float64(i)+10, 10)))
	}
	niu := []*model.Entity{entity(t, "n1", "", "2024", box(0, 0, 10, 10))}

	res, err := m.FindMatches(context.Background(), old, niu)
	require.NoError(t, err)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "o0", res.Pairs[0].Old.ID) // exact overlap wins
	assert.Len(t, res.Removed, 4)

	claimed := map[string]int{}
	for _, p := range res.Pairs {
		claimed[p.New.ID]++
	}
	for id, n := range claimed {
		assert.Equal(t, 1, n, "new entity %s claimed more than once", id)
	}
}

// Equal-score conflicts are settled by business-code agreement.
func TestFindMatchesCodeTieBreak(t *testing.T) {
	m := newMatcher(t)
	old := []*model.Entity{
		entity(t, "o1", "11111", "2023", box(0, 0, 10, 10)),
		entity(t, "o2", "22222", "2023", box(0, 0, 10, 10)),
	}
	niu := []*model.Entity{entity(t, "n1", "22222", "2024", box(0, 0, 10, 10))}

	res, err := m.FindMatches(context.Background(), old, niu)
	require.NoError(t, err)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "o2", res.Pairs[0].Old.ID)
}

func TestFindMatchesDiagnosesBadGeometry(t *testing.T) {
	m := newMatcher(t)
	old := []*model.Entity{
		{ID: "o-empty", Vintage: "2023"},
		entity(t, "o-bowtie", "", "2023", "POLYGON((0 0,10 10,10 0,0 10,0 0))"),
		entity(t, "o-ok", "", "2023", box(0, 0, 10, 10)),
	}
	niu := []*model.Entity{entity(t, "n1", "", "2024", box(0, 0, 10, 10))}

	res, err := m.FindMatches(context.Background(), old, niu)
	require.NoError(t, err)

	// The bad entities are excluded individually; the pass continues.
	require.Len(t, res.Diagnostics, 2)
	reasons := map[string]string{}
	for _, d := range res.Diagnostics {
		reasons[d.EntityID] = d.Reason
	}
	assert.Contains(t, reasons["o-empty"], "empty")
	assert.Contains(t, reasons["o-bowtie"], "unrepairable")

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "o-ok", res.Pairs[0].Old.ID)
}

// Identical inputs and configuration must produce identical output,
// including ordering, regardless of input order and parallel scheduling.
func TestFindMatchesDeterministic(t *testing.T) {
	m := newMatcher(t)

	build := func(reverse bool) ([]*model.Entity, []*model.Entity) {
		var old, niu []*model.Entity
		for i := 0; i < 20; i++ {
			x := float64(i * 12)
			old = append(old, entity(t, fmt.Sprintf("o%02d", i), "", "2023", box(x, 0, x+10, 10)))
			niu = append(niu, entity(t, fmt.Sprintf("n%02d", i), "", "2024", box(x+1, 0, x+11, 10)))
		}
		if reverse {
			for i, j := 0, len(old)-1; i < j; i, j = i+1, j-1 {
				old[i], old[j] = old[j], old[i]
				niu[i], niu[j] = niu[j], niu[i]
			}
		}
		return old, niu
	}

	o1, n1 := build(false)
	first, err := m.FindMatches(context.Background(), o1, n1)
	require.NoError(t, err)

	for run := 0; run < 3; run++ {
		o2, n2 := build(run%2 == 1)
		again, err := m.FindMatches(context.Background(), o2, n2)
		require.NoError(t, err)

		require.Len(t, again.Pairs, len(first.Pairs))
		for i := range first.Pairs {
			assert.Equal(t, first.Pairs[i].Old.ID, again.Pairs[i].Old.ID)
			assert.Equal(t, first.Pairs[i].New.ID, again.Pairs[i].New.ID)
			assert.Equal(t, first.Pairs[i].Result, again.Pairs[i].Result)
		}
	}
}

// Every usable entity lands in exactly one bucket.
func TestFindMatchesTotality(t *testing.T) {
	m := newMatcher(t)
	var old, niu []*model.Entity
	for i := 0; i < 10; i++ {
		x := float64(i * 30)
		old = append(old, entity(t, fmt.Sprintf("o%d", i), "", "2023", box(x, 0, x+10, 10)))
	}
	for i := 0; i < 8; i++ {
		x := float64(i * 30)
		niu = append(niu, entity(t, fmt.Sprintf("n%d", i), "", "2024", box(x+0.5, 0, x+10.5, 10)))
	}

	res, err := m.FindMatches(context.Background(), old, niu)
	require.NoError(t, err)

	seenOld := map[string]int{}
	seenNew := map[string]int{}
	for _, p := range res.Pairs {
		seenOld[p.Old.ID]++
		seenNew[p.New.ID]++
	}
	for _, e := range res.Removed {
		seenOld[e.ID]++
	}
	for _, e := range res.Added {
		seenNew[e.ID]++
	}

	assert.Len(t, seenOld, len(old))
	assert.Len(t, seenNew, len(niu))
	for id, n := range seenOld {
		assert.Equal(t, 1, n, "old %s", id)
	}
	for id, n := range seenNew {
		assert.Equal(t, 1, n, "new %s", id)
	}
}

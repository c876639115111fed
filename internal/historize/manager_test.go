package historize

import (
	"context"
	"fmt"
	"testing"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovintage/boundary-cli/internal/model"
)

func testOptions() Options {
	return Options{
		Thresholds: model.DefaultThresholds(),
		Weights:    model.DefaultWeights(),
		Buffer:     5,
		Workers:    2,
		Layer:      "commune",
		OldVintage: "2023",
		NewVintage: "2024",
	}
}

func entity(t *testing.T, id, code, vintage, wkt string, attrs map[string]string) *model.Entity {
	t.Helper()
	g, err := geom.UnmarshalWKT(wkt)
	require.NoError(t, err)
	return &model.Entity{ID: id, Code: code, Vintage: vintage, Geometry: g, Attrs: attrs}
}

func box(minX, minY, maxX, maxY float64) string {
	return fmt.Sprintf("POLYGON((%[1]g %[2]g,%[3]g %[2]g,%[3]g %[4]g,%[1]g %[4]g,%[1]g %[2]g))",
		minX, minY, maxX, maxY)
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	opts := testOptions()
	opts.Thresholds.SuspectMin = 0.9 // above likely_match_min
	_, err := NewManager(opts)
	assert.Error(t, err)

	opts = testOptions()
	opts.Weights = model.ScoreWeights{IoU: 0.5, Distance: 0.4}
	_, err = NewManager(opts)
	assert.Error(t, err)
}

func TestRunAutoMatch(t *testing.T) {
	m, err := NewManager(testOptions())
	require.NoError(t, err)

	attrs := map[string]string{"nom": "Sainte-Énimie"}
	old := []*model.Entity{entity(t, "o1", "48146", "2023", box(0, 0, 10, 10), attrs)}
	niu := []*model.Entity{entity(t, "n1", "48146", "2024", box(0, 0, 10, 10), attrs)}

	report, err := m.Run(context.Background(), old, niu)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.AutoMatches, 1)
	assert.InDelta(t, 1.0, report.AutoMatches[0].Result.CombinedScore, 1e-9)
	assert.False(t, report.AutoMatches[0].AttrsChanged)
	assert.Empty(t, report.NeedsValidation)
	assert.Empty(t, report.Removed)
	assert.Empty(t, report.Added)
}

func TestRunIdenticalGeometryChangedAttrs(t *testing.T) {
	m, err := NewManager(testOptions())
	require.NoError(t, err)

	old := []*model.Entity{entity(t, "o1", "48146", "2023", box(0, 0, 10, 10),
		map[string]string{"nom": "Sainte-Énimie"})}
	niu := []*model.Entity{entity(t, "n1", "48146", "2024", box(0, 0, 10, 10),
		map[string]string{"nom": "Gorges du Tarn Causses"})}

	report, err := m.Run(context.Background(), old, niu)
	require.NoError(t, err)

	// Geometry says same entity, attributes disagree: review, never overwrite.
	assert.Empty(t, report.AutoMatches)
	require.Len(t, report.NeedsValidation, 1)
	assert.True(t, report.NeedsValidation[0].AttrsChanged)
	assert.Equal(t, model.LevelIdentical, report.NeedsValidation[0].Result.Level)
}

func TestRunShiftedGeometryNeedsValidation(t *testing.T) {
	m, err := NewManager(testOptions())
	require.NoError(t, err)

	old := []*model.Entity{entity(t, "o1", "", "2023", box(0, 0, 10, 10), nil)}
	niu := []*model.Entity{entity(t, "n1", "", "2024", box(1, 0, 11, 10), nil)}

	report, err := m.Run(context.Background(), old, niu)
	require.NoError(t, err)

	assert.Empty(t, report.AutoMatches)
	require.Len(t, report.NeedsValidation, 1)
	assert.Equal(t, model.LevelLikelyMatch, report.NeedsValidation[0].Result.Level)
	assert.True(t, report.NeedsValidation[0].Result.HausdorffComputed)
}

func TestRunRemovedAndAdded(t *testing.T) {
	m, err := NewManager(testOptions())
	require.NoError(t, err)

	old := []*model.Entity{entity(t, "o1", "", "2023", box(0, 0, 10, 10), nil)}
	niu := []*model.Entity{entity(t, "n1", "", "2024", box(400, 400, 410, 410), nil)}

	report, err := m.Run(context.Background(), old, niu)
	require.NoError(t, err)

	require.Len(t, report.Removed, 1)
	assert.Equal(t, "o1", report.Removed[0].ID)
	require.Len(t, report.Added, 1)
	assert.Equal(t, "n1", report.Added[0].ID)

	counts := report.Counts()
	assert.Equal(t, 1, counts.Removed)
	assert.Equal(t, 1, counts.Added)
	assert.Zero(t, counts.AutoMatches)
}

func TestRunRejectedAuditTrail(t *testing.T) {
	opts := testOptions()
	opts.IncludeRejected = true
	m, err := NewManager(opts)
	require.NoError(t, err)

	// Two old squares competing for one new square: the loser's comparison
	// must survive in the audit trail.
	old := []*model.Entity{
		entity(t, "o1", "", "2023", box(1, 0, 11, 10), nil),
		entity(t, "o2", "", "2023", box(0, 0, 10, 10), nil),
	}
	niu := []*model.Entity{entity(t, "n1", "", "2024", box(0, 0, 10, 10), nil)}

	report, err := m.Run(context.Background(), old, niu)
	require.NoError(t, err)

	require.Len(t, report.AutoMatches, 1)
	assert.Equal(t, "o2", report.AutoMatches[0].Old.ID)
	require.NotEmpty(t, report.Rejected)
	assert.Equal(t, "o1", report.Rejected[0].Old.ID)
}

func TestRunEmptyCollections(t *testing.T) {
	m, err := NewManager(testOptions())
	require.NoError(t, err)

	report, err := m.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	counts := report.Counts()
	assert.Zero(t, counts.AutoMatches+counts.NeedsValidation+counts.Removed+counts.Added)
}

func TestAttrsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]string
		want bool
	}{
		{"both nil", nil, nil, true},
		{"equal", map[string]string{"nom": "Lozère"}, map[string]string{"nom": "Lozère"}, true},
		{"trailing space ignored", map[string]string{"nom": "Mende "}, map[string]string{"nom": "Mende"}, true},
		{
			"NFC and NFD encodings agree",
			map[string]string{"nom": "Sée"},        // é precomposed
			map[string]string{"nom": "Sée"},       // e + combining acute
			true,
		},
		{"different value", map[string]string{"nom": "Mende"}, map[string]string{"nom": "Florac"}, false},
		{"missing key", map[string]string{"nom": "Mende"}, map[string]string{"code": "48095"}, false},
		{"extra key", map[string]string{"nom": "Mende"}, map[string]string{"nom": "Mende", "code": "48095"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttrsEqual(tt.a, tt.b))
		})
	}
}

func TestVintageDates(t *testing.T) {
	start, err := VintageStart("2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", start.Format("2006-01-02"))

	end, err := VintageEnd("2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", end.Format("2006-01-02"))

	closeAt, err := CloseDate("2024")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", closeAt.Format("2006-01-02"))

	_, err = VintageStart("not-a-year")
	assert.Error(t, err)
	_, err = VintageStart("250")
	assert.Error(t, err)
}

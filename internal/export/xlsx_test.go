package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func sampleReport() *model.HistorizationReport {
	old := &model.Entity{Code: "48146", Vintage: "2023", Attrs: map[string]string{"nom": "Sainte-Énimie"}}
	niu := &model.Entity{Code: "48146", Vintage: "2024", Attrs: map[string]string{"nom": "Gorges du Tarn Causses"}}

	return &model.HistorizationReport{
		RunID:      "run-1",
		Layer:      "commune",
		OldVintage: "2023",
		NewVintage: "2024",
		NeedsValidation: []model.MatchPair{{
			Old: old, New: niu,
			Result: model.SimilarityResult{
				Level: model.LevelIdentical, IoU: 1, CombinedScore: 1,
			},
			AttrsChanged: true,
		}},
		Removed: []*model.Entity{{Code: "48999", Vintage: "2023", Attrs: map[string]string{"nom": "Disparue"}}},
		Added:   []*model.Entity{{Code: "48901", Vintage: "2024", Attrs: map[string]string{"nom": "Nouvelle"}}},
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.xlsx")
	require.NoError(t, WriteWorkbook(sampleReport(), path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	for _, name := range []string{"auto_matches", "needs_validation", "removed", "added"} {
		_, ok := f.Sheet[name]
		assert.True(t, ok, "missing sheet %s", name)
	}
	// No rejected pairs, no rejected sheet.
	_, ok := f.Sheet["rejected"]
	assert.False(t, ok)

	nv := f.Sheet["needs_validation"]
	require.Len(t, nv.Rows, 2)
	assert.Equal(t, "old_code", nv.Rows[0].Cells[0].String())
	assert.Equal(t, "48146", nv.Rows[1].Cells[0].String())
	assert.Equal(t, "Gorges du Tarn Causses", nv.Rows[1].Cells[3].String())
	assert.Equal(t, "identical", nv.Rows[1].Cells[4].String())

	removed := f.Sheet["removed"]
	require.Len(t, removed.Rows, 2)
	assert.Equal(t, "48999", removed.Rows[1].Cells[0].String())
}

func TestDefaultFilename(t *testing.T) {
	assert.Equal(t, "review_commune_2023_2024.xlsx", DefaultFilename(sampleReport()))
}

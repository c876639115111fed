package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/store"
)

var decisionHeader = []string{
	"old_code", "new_code", "disposition",
	"level", "iou", "hausdorff", "combined", "attrs_changed", "reason",
}

// WriteDecisions re-exports stored run decisions as a single-sheet workbook,
// grouped under one sheet per disposition.
func WriteDecisions(runID string, decisions []store.Decision, path string) error {
	f := xlsx.NewFile()

	byDisposition := map[string][]store.Decision{}
	for _, d := range decisions {
		byDisposition[d.Disposition] = append(byDisposition[d.Disposition], d)
	}

	// Stable sheet order regardless of row order in the store.
	for _, disposition := range []string{"auto_match", "needs_validation", "removed", "added", "rejected"} {
		rows, ok := byDisposition[disposition]
		if !ok {
			continue
		}
		if err := addDecisionSheet(f, disposition, rows); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}

	zap.L().Info("decision workbook written",
		zap.String("component", "export"),
		zap.String("run_id", runID),
		zap.String("path", path),
		zap.Int("decisions", len(decisions)),
	)
	return nil
}

func addDecisionSheet(f *xlsx.File, name string, decisions []store.Decision) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	headerRow := sheet.AddRow()
	for _, h := range decisionHeader {
		headerRow.AddCell().SetString(h)
	}

	for _, d := range decisions {
		row := sheet.AddRow()
		row.AddCell().SetString(deref(d.OldCode))
		row.AddCell().SetString(deref(d.NewCode))
		row.AddCell().SetString(d.Disposition)
		row.AddCell().SetString(d.Level)
		row.AddCell().SetFloatWithFormat(d.IoU, "0.0000")
		if d.Hausdorff != nil {
			row.AddCell().SetFloatWithFormat(*d.Hausdorff, "0.0000")
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloatWithFormat(d.Combined, "0.0000")
		row.AddCell().SetBool(d.AttrsChanged)
		row.AddCell().SetString(d.Reason)
	}

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

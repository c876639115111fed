// Package export writes historization reports as review workbooks.
package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/model"
)

var pairHeader = []string{
	"old_code", "new_code", "old_name", "new_name",
	"level", "iou", "hausdorff", "combined", "attrs_changed", "reason",
}

var entityHeader = []string{"code", "name", "vintage"}

// WriteWorkbook writes the report as an XLSX workbook with one sheet per
// bucket, for manual review of the needs_validation pairs.
func WriteWorkbook(report *model.HistorizationReport, path string) error {
	f := xlsx.NewFile()

	if err := addPairSheet(f, "auto_matches", report.AutoMatches); err != nil {
		return err
	}
	if err := addPairSheet(f, "needs_validation", report.NeedsValidation); err != nil {
		return err
	}
	if err := addEntitySheet(f, "removed", report.Removed); err != nil {
		return err
	}
	if err := addEntitySheet(f, "added", report.Added); err != nil {
		return err
	}
	if len(report.Rejected) > 0 {
		if err := addPairSheet(f, "rejected", report.Rejected); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}

	counts := report.Counts()
	zap.L().Info("review workbook written",
		zap.String("component", "export"),
		zap.String("path", path),
		zap.Int("auto_matches", counts.AutoMatches),
		zap.Int("needs_validation", counts.NeedsValidation),
	)
	return nil
}

func addPairSheet(f *xlsx.File, name string, pairs []model.MatchPair) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	headerRow := sheet.AddRow()
	for _, h := range pairHeader {
		headerRow.AddCell().SetString(h)
	}

	for _, p := range pairs {
		row := sheet.AddRow()
		row.AddCell().SetString(p.Old.Code)
		row.AddCell().SetString(p.New.Code)
		row.AddCell().SetString(p.Old.Attrs["nom"])
		row.AddCell().SetString(p.New.Attrs["nom"])
		row.AddCell().SetString(string(p.Result.Level))
		row.AddCell().SetFloatWithFormat(p.Result.IoU, "0.0000")
		if p.Result.HausdorffComputed {
			row.AddCell().SetFloatWithFormat(p.Result.HausdorffDistance, "0.0000")
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloatWithFormat(p.Result.CombinedScore, "0.0000")
		row.AddCell().SetBool(p.AttrsChanged)
		row.AddCell().SetString(p.Result.Reason)
	}

	return nil
}

func addEntitySheet(f *xlsx.File, name string, entities []*model.Entity) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	headerRow := sheet.AddRow()
	for _, h := range entityHeader {
		headerRow.AddCell().SetString(h)
	}

	for _, e := range entities {
		row := sheet.AddRow()
		row.AddCell().SetString(e.Code)
		row.AddCell().SetString(e.Attrs["nom"])
		row.AddCell().SetString(e.Vintage)
	}

	return nil
}

// DefaultFilename builds the workbook filename for a report.
func DefaultFilename(report *model.HistorizationReport) string {
	return fmt.Sprintf("review_%s_%s_%s.xlsx", report.Layer, report.OldVintage, report.NewVintage)
}

// Package ingest reads IGN shapefile layers into boundary entities.
package ingest

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/catalog"
	"github.com/geovintage/boundary-cli/internal/model"
)

// ParseVintage reads a shapefile layer and returns one entity per record.
// Records with a missing key field or an unconvertible shape are skipped
// and counted; the parse itself never aborts on a single bad record.
func ParseVintage(shpPath string, layer catalog.Layer, vintage string) ([]*model.Entity, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map. DBF field names are fixed-width and
	// NUL-padded.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	keyIdx, ok := fieldIdx[strings.ToLower(layer.KeyField)]
	if !ok {
		return nil, eris.Errorf("ingest: key field %q not found in %s", layer.KeyField, shpPath)
	}

	var entities []*model.Entity
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		code := attributeAt(reader, keyIdx)
		if code == "" {
			skipped++
			continue
		}

		g, ok := ShapeToGeometry(shape)
		if !ok {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(layer.Attrs))
		for _, col := range layer.Attrs {
			idx, ok := fieldIdx[strings.ToLower(col)]
			if !ok {
				continue
			}
			if val := attributeAt(reader, idx); val != "" {
				attrs[col] = val
			}
		}

		entities = append(entities, &model.Entity{
			ID:       code,
			Code:     code,
			Vintage:  vintage,
			Geometry: g,
			Attrs:    attrs,
		})
	}

	if skipped > 0 {
		zap.L().Debug("ingest: skipped shapefile records",
			zap.String("layer", layer.Name),
			zap.Int("skipped", skipped),
		)
	}

	return entities, nil
}

func attributeAt(reader *shp.Reader, idx int) string {
	val := strings.TrimRight(reader.Attribute(idx), "\x00")
	return strings.TrimSpace(val)
}

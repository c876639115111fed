package ingest

import (
	"testing"

	"github.com/jonas-p/go-shp"
	sfgeom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// cwRing returns a clockwise 10x10 square ring at the given offset
// (ESRI outer-ring orientation).
func cwRing(off float64) []shp.Point {
	return []shp.Point{
		{X: off, Y: off},
		{X: off, Y: off + 10},
		{X: off + 10, Y: off + 10},
		{X: off + 10, Y: off},
		{X: off, Y: off},
	}
}

// ccwRing returns a counter-clockwise ring (ESRI hole orientation)
// spanning [a,b] in both axes.
func ccwRing(a, b float64) []shp.Point {
	return []shp.Point{
		{X: a, Y: a},
		{X: b, Y: a},
		{X: b, Y: b},
		{X: a, Y: b},
		{X: a, Y: a},
	}
}

func polygon(rings ...[]shp.Point) *shp.Polygon {
	p := &shp.Polygon{}
	p.NumParts = int32(len(rings))
	for _, ring := range rings {
		p.Parts = append(p.Parts, int32(len(p.Points)))
		p.Points = append(p.Points, ring...)
	}
	return p
}

func TestShapeToGeometrySimplePolygon(t *testing.T) {
	g, ok := ShapeToGeometry(polygon(cwRing(0)))
	require.True(t, ok)
	assert.InDelta(t, 100.0, g.Area(), 1e-9)
}

func TestShapeToGeometryPolygonWithHole(t *testing.T) {
	g, ok := ShapeToGeometry(polygon(cwRing(0), ccwRing(2, 4)))
	require.True(t, ok)
	assert.NoError(t, g.Validate())
	assert.InDelta(t, 100.0-4.0, g.Area(), 1e-9)
}

func TestShapeToGeometryMultipleParts(t *testing.T) {
	g, ok := ShapeToGeometry(polygon(cwRing(0), cwRing(100)))
	require.True(t, ok)
	assert.InDelta(t, 200.0, g.Area(), 1e-9)
}

func TestShapeToGeometryRejectsBadShapes(t *testing.T) {
	_, ok := ShapeToGeometry(nil)
	assert.False(t, ok)

	_, ok = ShapeToGeometry(&shp.Polygon{})
	assert.False(t, ok)

	_, ok = ShapeToGeometry(&shp.Point{X: 1, Y: 2})
	assert.False(t, ok)
}

func TestSignedArea(t *testing.T) {
	// Counter-clockwise unit square: positive.
	assert.Greater(t, signedArea([]float64{0, 0, 1, 0, 1, 1, 0, 1, 0, 0}), 0.0)
	// Clockwise: negative.
	assert.Less(t, signedArea([]float64{0, 0, 0, 1, 1, 1, 1, 0, 0, 0}), 0.0)
}

func TestEncodeEWKB(t *testing.T) {
	g, ok := ShapeToGeometry(polygon(cwRing(0)))
	require.True(t, ok)

	data, err := EncodeEWKB(g, SRIDLambert93)
	require.NoError(t, err)

	decoded, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, SRIDLambert93, decoded.SRID())
}

func TestEncodeEWKBRejectsNonPolygonal(t *testing.T) {
	line, err := sfgeom.UnmarshalWKT("LINESTRING(0 0,1 1)")
	require.NoError(t, err)

	_, err = EncodeEWKB(line, SRIDLambert93)
	assert.Error(t, err)
}

func TestDecodeWKBRoundTrip(t *testing.T) {
	g, ok := ShapeToGeometry(polygon(cwRing(0)))
	require.True(t, ok)

	data, err := EncodeEWKB(g, SRIDLambert93)
	require.NoError(t, err)

	back, err := DecodeWKB(data)
	require.NoError(t, err)
	assert.InDelta(t, g.Area(), back.Area(), 1e-9)

	// Plain ISO WKB (the ST_AsBinary read path) decodes unchanged.
	plain, err := DecodeWKB(g.AsBinary())
	require.NoError(t, err)
	assert.InDelta(t, g.Area(), plain.Area(), 1e-9)

	_, err = DecodeWKB(nil)
	assert.Error(t, err)
}

package ingest

import (
	"encoding/binary"

	sfgeom "github.com/peterstace/simplefeatures/geom"
	"github.com/rotisserie/eris"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRIDLambert93 is the projected CRS used by IGN metropolitan products.
const SRIDLambert93 = 2154

// EncodeEWKB serializes a polygonal geometry as EWKB bytes with the
// given SRID, suitable for direct COPY into a PostGIS geometry column.
func EncodeEWKB(g sfgeom.Geometry, srid int) ([]byte, error) {
	mp := gogeom.NewMultiPolygon(gogeom.XY).SetSRID(srid)

	switch g.Type() {
	case sfgeom.TypePolygon:
		if err := pushPolygon(mp, g.MustAsPolygon()); err != nil {
			return nil, err
		}
	case sfgeom.TypeMultiPolygon:
		src := g.MustAsMultiPolygon()
		for i := 0; i < src.NumPolygons(); i++ {
			if err := pushPolygon(mp, src.PolygonN(i)); err != nil {
				return nil, err
			}
		}
	default:
		return nil, eris.Errorf("ingest: cannot encode %s as EWKB multipolygon", g.Type())
	}

	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: encode EWKB")
	}
	return data, nil
}

func pushPolygon(mp *gogeom.MultiPolygon, p sfgeom.Polygon) error {
	poly := gogeom.NewPolygon(gogeom.XY)

	rings := make([]sfgeom.LineString, 0, p.NumInteriorRings()+1)
	rings = append(rings, p.ExteriorRing())
	for i := 0; i < p.NumInteriorRings(); i++ {
		rings = append(rings, p.InteriorRingN(i))
	}

	for _, r := range rings {
		seq := r.Coordinates()
		flat := make([]float64, 0, seq.Length()*2)
		for i := 0; i < seq.Length(); i++ {
			xy := seq.GetXY(i)
			flat = append(flat, xy.X, xy.Y)
		}
		if err := poly.Push(gogeom.NewLinearRingFlat(gogeom.XY, flat)); err != nil {
			return eris.Wrap(err, "ingest: build ring")
		}
	}

	if err := mp.Push(poly); err != nil {
		return eris.Wrap(err, "ingest: build polygon")
	}
	return nil
}

// DecodeWKB parses WKB bytes back into a geometry for matching. It accepts
// both ISO WKB (as produced by ST_AsBinary) and PostGIS EWKB (raw geometry
// column bytes); the EWKB SRID header is stripped, since the SRID is fixed
// per deployment anyway. Validation is deferred to the repair stage.
func DecodeWKB(data []byte) (sfgeom.Geometry, error) {
	wkb, err := stripSRIDHeader(data)
	if err != nil {
		return sfgeom.Geometry{}, err
	}
	g, err := sfgeom.UnmarshalWKB(wkb, sfgeom.NoValidate{})
	if err != nil {
		return sfgeom.Geometry{}, eris.Wrap(err, "ingest: decode WKB")
	}
	return g, nil
}

// ewkbSRIDFlag marks an EWKB geometry code as carrying a 4-byte SRID.
const ewkbSRIDFlag = 0x20000000

// stripSRIDHeader rewrites an SRID-flagged EWKB header as a plain WKB one.
// Plain WKB passes through untouched. Only the top-level header can carry
// the flag; nested geometries inside a MULTIPOLYGON never do.
func stripSRIDHeader(data []byte) ([]byte, error) {
	if len(data) < 5 {
		return data, nil
	}

	var order binary.ByteOrder = binary.LittleEndian
	if data[0] == 0 {
		order = binary.BigEndian
	}
	code := order.Uint32(data[1:5])
	if code&ewkbSRIDFlag == 0 {
		return data, nil
	}
	if len(data) < 9 {
		return nil, eris.New("ingest: truncated EWKB header")
	}

	out := make([]byte, 0, len(data)-4)
	out = append(out, data[0])
	var geomType [4]byte
	order.PutUint32(geomType[:], code&^ewkbSRIDFlag)
	out = append(out, geomType[:]...)
	out = append(out, data[9:]...)
	return out, nil
}

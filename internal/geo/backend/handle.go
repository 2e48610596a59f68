// Package backend adapts go-geom geometries to the orb geometry engine used
// for clipping, generalization and tile filling.
package backend

import (
	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"

	"geomap/internal/geo"
)

var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// Handle owns a backend geometry. Handles never share coordinates with the
// value they were built from or with each other; every operation returns a
// new handle. The zero Handle is empty.
type Handle struct {
	g    orb.Geometry
	is2D bool
}

// Wrap takes a copy of g.
func Wrap(g orb.Geometry) Handle {
	if g == nil {
		return Handle{}
	}
	return Handle{g: orb.Clone(g), is2D: true}
}

// Geometry returns a copy of the wrapped geometry.
func (h Handle) Geometry() orb.Geometry {
	if h.g == nil {
		return nil
	}
	return orb.Clone(h.g)
}

// Is2D is false when the source carried Z or M ordinates. They are dropped on
// conversion.
func (h Handle) Is2D() bool { return h.is2D }

func (h Handle) IsEmpty() bool { return isEmpty(h.g) }

func (h Handle) Envelope() geo.Envelope {
	if h.IsEmpty() {
		return geo.EmptyEnvelope()
	}
	return geo.EnvelopeFromBound(h.g.Bound())
}

// Type returns the GeoJSON type name, or "" for an empty handle.
func (h Handle) Type() string {
	if h.g == nil {
		return ""
	}
	return h.g.GeoJSONType()
}

func (h Handle) with(g orb.Geometry) Handle {
	if isEmpty(g) {
		return Handle{is2D: h.is2D}
	}
	return Handle{g: g, is2D: h.is2D}
}

// ToBackend converts a native geometry. XY is preserved exactly.
func ToBackend(g geom.T) (Handle, error) {
	if g == nil {
		return Handle{}, nil
	}
	og, err := toOrb(g)
	if err != nil {
		return Handle{}, err
	}
	h := Handle{is2D: g.Stride() <= 2}
	return h.with(og), nil
}

func toOrb(g geom.T) (orb.Geometry, error) {
	switch t := g.(type) {
	case *geom.Point:
		if len(t.FlatCoords()) == 0 {
			return nil, nil
		}
		return point(t.Coords()), nil
	case *geom.LineString:
		return orb.LineString(points(t.Coords())), nil
	case *geom.LinearRing:
		return orb.LineString(points(t.Coords())), nil
	case *geom.Polygon:
		return polygon(t.Coords()), nil
	case *geom.MultiPoint:
		return orb.MultiPoint(points(t.Coords())), nil
	case *geom.MultiLineString:
		coords := t.Coords()
		mls := make(orb.MultiLineString, 0, len(coords))
		for _, ls := range coords {
			mls = append(mls, orb.LineString(points(ls)))
		}
		return mls, nil
	case *geom.MultiPolygon:
		coords := t.Coords()
		mp := make(orb.MultiPolygon, 0, len(coords))
		for _, p := range coords {
			mp = append(mp, polygon(p))
		}
		return mp, nil
	case *geom.GeometryCollection:
		c := make(orb.Collection, 0, t.NumGeoms())
		for _, sub := range t.Geoms() {
			og, err := toOrb(sub)
			if err != nil {
				return nil, err
			}
			if og != nil {
				c = append(c, og)
			}
		}
		return c, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedGeometry, "%T", g)
}

func point(c geom.Coord) orb.Point { return orb.Point{c.X(), c.Y()} }

func points(cs []geom.Coord) []orb.Point {
	out := make([]orb.Point, len(cs))
	for i, c := range cs {
		out[i] = point(c)
	}
	return out
}

func polygon(rings [][]geom.Coord) orb.Polygon {
	p := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		p = append(p, orb.Ring(points(r)))
	}
	return p
}

// ToNative converts h back to a go-geom XY geometry. An empty handle yields
// nil.
func ToNative(h Handle) geom.T {
	if h.IsEmpty() {
		return nil
	}
	return fromOrb(h.g)
}

func fromOrb(g orb.Geometry) geom.T {
	switch t := g.(type) {
	case orb.Point:
		return geom.NewPointFlat(geom.XY, []float64{t[0], t[1]})
	case orb.LineString:
		return geom.NewLineStringFlat(geom.XY, flat(t))
	case orb.Ring:
		return geom.NewLineStringFlat(geom.XY, flat(t))
	case orb.Polygon:
		fc, ends := flatPolygon(t, nil)
		return geom.NewPolygonFlat(geom.XY, fc, ends)
	case orb.Bound:
		fc, ends := flatPolygon(t.ToPolygon(), nil)
		return geom.NewPolygonFlat(geom.XY, fc, ends)
	case orb.MultiPoint:
		return geom.NewMultiPointFlat(geom.XY, flat(t))
	case orb.MultiLineString:
		var fc []float64
		ends := make([]int, 0, len(t))
		for _, ls := range t {
			fc = append(fc, flat(ls)...)
			ends = append(ends, len(fc))
		}
		return geom.NewMultiLineStringFlat(geom.XY, fc, ends)
	case orb.MultiPolygon:
		var fc []float64
		endss := make([][]int, 0, len(t))
		for _, p := range t {
			var ends []int
			fc, ends = flatPolygon(p, fc)
			endss = append(endss, ends)
		}
		return geom.NewMultiPolygonFlat(geom.XY, fc, endss)
	case orb.Collection:
		gc := geom.NewGeometryCollection()
		for _, sub := range t {
			if n := fromOrb(sub); n != nil {
				if err := gc.Push(n); err != nil {
					return nil
				}
			}
		}
		return gc
	}
	return nil
}

func flat(pts []orb.Point) []float64 {
	out := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		out = append(out, p[0], p[1])
	}
	return out
}

// flatPolygon appends p to fc and returns ring ends as offsets into fc.
func flatPolygon(p orb.Polygon, fc []float64) ([]float64, []int) {
	ends := make([]int, 0, len(p))
	for _, r := range p {
		fc = append(fc, flat(r)...)
		ends = append(ends, len(fc))
	}
	return fc, ends
}

func isEmpty(g orb.Geometry) bool {
	switch t := g.(type) {
	case nil:
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(t) == 0
	case orb.LineString:
		return len(t) == 0
	case orb.Ring:
		return len(t) == 0
	case orb.Polygon:
		return len(t) == 0 || len(t[0]) == 0
	case orb.MultiLineString:
		for _, ls := range t {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		for _, p := range t {
			if !isEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, sub := range t {
			if !isEmpty(sub) {
				return false
			}
		}
		return true
	}
	return false
}

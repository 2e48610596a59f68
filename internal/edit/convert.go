package edit

import (
	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
)

// FromNative starts an edit of g. Z and M ordinates are dropped; unclosed
// rings are closed.
func FromNative(g geom.T, opts Options) (*Geometry, error) {
	if g == nil {
		return nil, ErrEmptyGeometry
	}
	var (
		kind  Kind
		shape Shape
	)
	switch t := g.(type) {
	case *geom.Point:
		if t.Empty() {
			return nil, ErrEmptyGeometry
		}
		kind, shape = KindPoint, Shape{{pathOf([]geom.Coord{t.Coords()})}}
	case *geom.LineString:
		kind, shape = KindLine, Shape{{pathOf(t.Coords())}}
	case *geom.Polygon:
		kind, shape = KindPolygon, Shape{partOf(t.Coords())}
	case *geom.MultiPoint:
		kind = KindMultiPoint
		for _, c := range t.Coords() {
			if len(c) < 2 {
				continue
			}
			shape = append(shape, Part{pathOf([]geom.Coord{c})})
		}
	case *geom.MultiLineString:
		kind = KindMultiLine
		for _, ls := range t.Coords() {
			if len(ls) > 0 {
				shape = append(shape, Part{pathOf(ls)})
			}
		}
	case *geom.MultiPolygon:
		kind = KindMultiPolygon
		for _, p := range t.Coords() {
			if len(p) > 0 {
				shape = append(shape, partOf(p))
			}
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedGeometry, "%T", g)
	}
	if len(shape) == 0 || len(shape[0]) == 0 || len(shape[0][0]) == 0 {
		return nil, ErrEmptyGeometry
	}
	return newGeometry(kind, shape, opts), nil
}

// ToNative builds the current payload as a 2D go-geom geometry.
func (g *Geometry) ToNative() geom.T {
	return g.kind.rules().native(g.shape())
}

func pathOf(cs []geom.Coord) Path {
	p := make(Path, 0, len(cs))
	for _, c := range cs {
		p = append(p, orb.Point{c.X(), c.Y()})
	}
	return p
}

func partOf(rings [][]geom.Coord) Part {
	part := make(Part, 0, len(rings))
	for _, r := range rings {
		ring := pathOf(r)
		if len(ring) == 0 {
			continue
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		part = append(part, ring)
	}
	return part
}

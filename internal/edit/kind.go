package edit

import (
	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
)

// Kind tags the geometry variant being edited.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindPolygon
	KindMultiPoint
	KindMultiLine
	KindMultiPolygon
	kindCount
)

var (
	ErrUnsupportedGeometry = errors.New("edit: unsupported geometry type")
	ErrEmptyGeometry       = errors.New("edit: empty geometry")
	ErrInvalidGeometry     = errors.New("edit: invalid geometry")
)

// Path is an ordered vertex list. Closed paths repeat their first vertex at
// the end.
type Path []orb.Point

// Part is one disconnected element: a single path for points and lines,
// exterior ring followed by holes for polygons.
type Part []Path

// Shape is the edit payload shared by every variant.
type Shape []Part

// Clone deep copies s.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	for i, part := range s {
		out[i] = make(Part, len(part))
		for j, path := range part {
			out[i][j] = append(Path(nil), path...)
		}
	}
	return out
}

// rules drive every operation on a variant.
type rules struct {
	name string
	// single vertex paths (point kinds).
	single bool
	// paths are closed rings.
	closed bool
	// more than one part allowed.
	multi bool
	// parts may carry holes.
	holes bool
	// fewest distinct vertices a path may keep.
	minVertices int
	native      func(Shape) geom.T
}

var kinds = [kindCount]rules{
	KindPoint: {
		name: "Point", single: true, minVertices: 1,
		native: func(s Shape) geom.T {
			if len(s) == 0 || len(s[0]) == 0 || len(s[0][0]) == 0 {
				return geom.NewPointFlat(geom.XY, nil)
			}
			p := s[0][0][0]
			return geom.NewPointFlat(geom.XY, []float64{p[0], p[1]})
		},
	},
	KindLine: {
		name: "LineString", minVertices: 2,
		native: func(s Shape) geom.T {
			if len(s) == 0 || len(s[0]) == 0 {
				return geom.NewLineStringFlat(geom.XY, nil)
			}
			return geom.NewLineStringFlat(geom.XY, flatPath(nil, s[0][0]))
		},
	},
	KindPolygon: {
		name: "Polygon", closed: true, holes: true, minVertices: 3,
		native: func(s Shape) geom.T {
			if len(s) == 0 {
				return geom.NewPolygonFlat(geom.XY, nil, nil)
			}
			fc, ends := flatPart(nil, s[0])
			return geom.NewPolygonFlat(geom.XY, fc, ends)
		},
	},
	KindMultiPoint: {
		name: "MultiPoint", single: true, multi: true, minVertices: 1,
		native: func(s Shape) geom.T {
			var fc []float64
			for _, part := range s {
				fc = flatPath(fc, part[0])
			}
			return geom.NewMultiPointFlat(geom.XY, fc)
		},
	},
	KindMultiLine: {
		name: "MultiLineString", multi: true, minVertices: 2,
		native: func(s Shape) geom.T {
			var fc []float64
			ends := make([]int, 0, len(s))
			for _, part := range s {
				fc = flatPath(fc, part[0])
				ends = append(ends, len(fc))
			}
			return geom.NewMultiLineStringFlat(geom.XY, fc, ends)
		},
	},
	KindMultiPolygon: {
		name: "MultiPolygon", closed: true, multi: true, holes: true, minVertices: 3,
		native: func(s Shape) geom.T {
			var fc []float64
			endss := make([][]int, 0, len(s))
			for _, part := range s {
				var ends []int
				fc, ends = flatPart(fc, part)
				endss = append(endss, ends)
			}
			return geom.NewMultiPolygonFlat(geom.XY, fc, endss)
		},
	},
}

func (k Kind) rules() rules { return kinds[k] }

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "Unknown"
	}
	return kinds[k].name
}

// IsMulti reports whether k holds several parts.
func (k Kind) IsMulti() bool { return k >= 0 && k < kindCount && kinds[k].multi }

// IsClosed reports whether k's paths are rings repeating their first vertex.
func (k Kind) IsClosed() bool { return k >= 0 && k < kindCount && kinds[k].closed }

// Kinds lists every editable variant.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

func flatPath(fc []float64, p Path) []float64 {
	for _, pt := range p {
		fc = append(fc, pt[0], pt[1])
	}
	return fc
}

func flatPart(fc []float64, part Part) ([]float64, []int) {
	ends := make([]int, 0, len(part))
	for _, ring := range part {
		fc = flatPath(fc, ring)
		ends = append(ends, len(fc))
	}
	return fc, ends
}

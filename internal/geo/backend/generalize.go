package backend

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Lines are never reduced below minLinePoints vertices, rings below
// minRingPoints (three distinct vertices plus the closing one).
const (
	minLinePoints = 3
	minRingPoints = 4
)

type kind int

const (
	kindUnknown kind = iota
	kindPoint
	kindMultiPoint
	kindLine
	kindMultiLine
	kindRing
	kindPolygon
	kindMultiPolygon
	kindCollection
	kindCount
)

func kindOf(g orb.Geometry) kind {
	switch g.(type) {
	case orb.Point:
		return kindPoint
	case orb.MultiPoint:
		return kindMultiPoint
	case orb.LineString:
		return kindLine
	case orb.MultiLineString:
		return kindMultiLine
	case orb.Ring:
		return kindRing
	case orb.Polygon:
		return kindPolygon
	case orb.MultiPolygon:
		return kindMultiPolygon
	case orb.Collection:
		return kindCollection
	}
	return kindUnknown
}

type generalizer func(g orb.Geometry, tolerance float64) orb.Geometry

var generalizers [kindCount]generalizer

func init() {
	passThrough := func(g orb.Geometry, _ float64) orb.Geometry { return orb.Clone(g) }
	generalizers = [kindCount]generalizer{
		kindUnknown:    passThrough,
		kindPoint:      passThrough,
		kindMultiPoint: passThrough,
		kindLine: func(g orb.Geometry, tol float64) orb.Geometry {
			return generalizeLine(g.(orb.LineString), tol)
		},
		kindMultiLine: func(g orb.Geometry, tol float64) orb.Geometry {
			mls := g.(orb.MultiLineString)
			out := make(orb.MultiLineString, len(mls))
			for i, ls := range mls {
				out[i] = generalizeLine(ls, tol)
			}
			return out
		},
		kindRing: func(g orb.Geometry, tol float64) orb.Geometry {
			return generalizeRing(g.(orb.Ring), tol)
		},
		kindPolygon: func(g orb.Geometry, tol float64) orb.Geometry {
			return generalizePolygon(g.(orb.Polygon), tol)
		},
		kindMultiPolygon: func(g orb.Geometry, tol float64) orb.Geometry {
			mp := g.(orb.MultiPolygon)
			out := make(orb.MultiPolygon, len(mp))
			for i, p := range mp {
				out[i] = generalizePolygon(p, tol)
			}
			return out
		},
		kindCollection: func(g orb.Geometry, tol float64) orb.Geometry {
			c := g.(orb.Collection)
			out := make(orb.Collection, len(c))
			for i, sub := range c {
				out[i] = generalizers[kindOf(sub)](sub, tol)
			}
			return out
		},
	}
}

// Generalize reduces vertices of lines and rings with Douglas-Peucker.
// Points pass through. Running it twice with the same tolerance changes
// nothing.
func Generalize(h Handle, tolerance float64) Handle {
	if h.IsEmpty() {
		return h
	}
	if tolerance <= 0 {
		return Handle{g: orb.Clone(h.g), is2D: h.is2D}
	}
	return h.with(generalizers[kindOf(h.g)](h.g, tolerance))
}

func generalizeLine(ls orb.LineString, tol float64) orb.LineString {
	if len(ls) <= minLinePoints {
		return ls.Clone()
	}
	out := simplify.DouglasPeucker(tol).LineString(ls.Clone())
	if len(out) >= minLinePoints {
		return out
	}
	// Keep the interior vertex farthest from the chord.
	first, last := ls[0], ls[len(ls)-1]
	best, bestD := 1, -1.0
	for i := 1; i < len(ls)-1; i++ {
		if d := planar.DistanceFromSegmentSquared(first, last, ls[i]); d > bestD {
			best, bestD = i, d
		}
	}
	return orb.LineString{first, ls[best], last}
}

func generalizeRing(r orb.Ring, tol float64) orb.Ring {
	if len(r) <= minRingPoints || !r.Closed() {
		return r.Clone()
	}
	out := orb.Ring(simplify.DouglasPeucker(tol).LineString(orb.LineString(r.Clone())))
	if len(out) >= minRingPoints {
		return out
	}
	return minimalRing(r)
}

// minimalRing picks the first vertex, the vertex farthest from it and the
// vertex farthest from the segment between those two, in ring order.
func minimalRing(r orb.Ring) orb.Ring {
	n := len(r) - 1
	a := 0
	b, bd := 1, -1.0
	for i := 1; i < n; i++ {
		if d := planar.DistanceSquared(r[a], r[i]); d > bd {
			b, bd = i, d
		}
	}
	c, cd := -1, -1.0
	for i := 1; i < n; i++ {
		if i == b {
			continue
		}
		if d := planar.DistanceFromSegmentSquared(r[a], r[b], r[i]); d > cd {
			c, cd = i, d
		}
	}
	if c < b {
		b, c = c, b
	}
	return orb.Ring{r[a], r[b], r[c], r[a]}
}

func generalizePolygon(p orb.Polygon, tol float64) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = generalizeRing(r, tol)
	}
	return out
}

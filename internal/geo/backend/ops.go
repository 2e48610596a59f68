package backend

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"geomap/internal/geo"
)

// Clip intersects h with env. The result may be empty; h is not modified.
func Clip(h Handle, env geo.Envelope) Handle {
	if h.IsEmpty() || !env.IsInit() {
		return Handle{is2D: h.is2D}
	}
	b := env.Bound()
	if !h.g.Bound().Intersects(b) {
		return Handle{is2D: h.is2D}
	}
	// clip works in place.
	out := clip.Geometry(b, orb.Clone(h.g))
	return h.with(normalize(out))
}

// normalize closes rings, drops rings that can no longer enclose an area and
// drops polygons that lost their exterior.
func normalize(g orb.Geometry) orb.Geometry {
	switch t := g.(type) {
	case orb.Polygon:
		if p, ok := normalizePolygon(t); ok {
			return p
		}
		return nil
	case orb.MultiPolygon:
		out := t[:0]
		for _, p := range t {
			if np, ok := normalizePolygon(p); ok {
				out = append(out, np)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case orb.MultiLineString:
		out := t[:0]
		for _, ls := range t {
			if len(ls) >= 2 {
				out = append(out, ls)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case orb.LineString:
		if len(t) < 2 {
			return nil
		}
		return t
	case orb.Collection:
		out := t[:0]
		for _, sub := range t {
			if n := normalize(sub); n != nil {
				out = append(out, n)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return g
}

func normalizePolygon(p orb.Polygon) (orb.Polygon, bool) {
	out := p[:0]
	for i, r := range p {
		if len(r) > 0 && !r.Closed() {
			r = append(r, r[0])
		}
		if len(r) < 4 {
			if i == 0 {
				return nil, false
			}
			continue
		}
		out = append(out, r)
	}
	return out, len(out) > 0
}

// Intersects reports whether any part of h falls inside env.
func Intersects(h Handle, env geo.Envelope) bool {
	if h.IsEmpty() || !env.IsInit() {
		return false
	}
	b := env.Bound()
	if !h.g.Bound().Intersects(b) {
		return false
	}
	if poly, ok := h.g.(orb.Polygon); ok && planar.PolygonContains(poly, b.Center()) {
		return true
	}
	return !Clip(h, env).IsEmpty()
}

// Distance returns the planar distance from (x, y) to h. Points inside a
// polygon are at distance 0. An empty handle is infinitely far.
func Distance(h Handle, x, y float64) float64 {
	if h.IsEmpty() {
		return math.Inf(1)
	}
	return distance(h.g, orb.Point{x, y})
}

func distance(g orb.Geometry, p orb.Point) float64 {
	switch t := g.(type) {
	case orb.Polygon:
		if planar.PolygonContains(t, p) {
			return 0
		}
	case orb.MultiPolygon:
		if planar.MultiPolygonContains(t, p) {
			return 0
		}
	case orb.Collection:
		d := math.Inf(1)
		for _, sub := range t {
			d = math.Min(d, distance(sub, p))
		}
		return d
	}
	return planar.DistanceFrom(g, p)
}

// Project applies fn to every coordinate of a copy of h.
func Project(h Handle, fn orb.Projection) Handle {
	if h.IsEmpty() {
		return h
	}
	return h.with(project.Geometry(orb.Clone(h.g), fn))
}

// ToMercator projects a WGS84 handle to EPSG:3857.
func ToMercator(h Handle) Handle { return Project(h, project.WGS84.ToMercator) }

// ToWGS84 projects an EPSG:3857 handle to WGS84.
func ToWGS84(h Handle) Handle { return Project(h, project.Mercator.ToWGS84) }

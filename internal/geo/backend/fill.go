package backend

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	log "github.com/sirupsen/logrus"

	"geomap/internal/vectortile"
)

// FillTile converts h, already in tile local coordinates, into render
// fragments owned by featureID. Degenerate parts contribute nothing.
func FillTile(h Handle, featureID int64) []vectortile.Item {
	if h.IsEmpty() {
		return nil
	}
	f := filler{id: featureID, is2D: h.is2D}
	f.fill(h.g)
	return f.items
}

type filler struct {
	id    int64
	is2D  bool
	items []vectortile.Item
}

func (f *filler) item() vectortile.Item {
	it := vectortile.NewItem(f.id)
	it.Is2D = f.is2D
	return it
}

func (f *filler) fill(g orb.Geometry) {
	switch t := g.(type) {
	case orb.Point:
		it := f.item()
		it.Points = []vectortile.SimplePoint{simple(t)}
		f.items = append(f.items, it)
	case orb.MultiPoint:
		if len(t) == 0 {
			return
		}
		for start := 0; start < len(t); start += vectortile.MaxPoints {
			end := min(start+vectortile.MaxPoints, len(t))
			it := f.item()
			it.Points = simples(t[start:end])
			f.items = append(f.items, it)
		}
	case orb.LineString:
		f.line(t)
	case orb.MultiLineString:
		for _, ls := range t {
			f.line(ls)
		}
	case orb.Ring:
		f.polygon(orb.Polygon{t})
	case orb.Polygon:
		f.polygon(t)
	case orb.MultiPolygon:
		for _, p := range t {
			f.polygon(p)
		}
	case orb.Collection:
		for _, sub := range t {
			f.fill(sub)
		}
	case orb.Bound:
		f.polygon(t.ToPolygon())
	}
}

// line emits strips; lines longer than an item can index are split into
// chunks that share their joining vertex.
func (f *filler) line(ls orb.LineString) {
	if len(ls) < 2 {
		return
	}
	for start := 0; start < len(ls)-1; start += vectortile.MaxPoints - 1 {
		end := min(start+vectortile.MaxPoints, len(ls))
		it := f.item()
		it.Points = simples(ls[start:end])
		it.Indices = make([]uint16, end-start)
		for i := range it.Indices {
			it.Indices[i] = uint16(i)
		}
		f.items = append(f.items, it)
	}
}

func (f *filler) polygon(p orb.Polygon) {
	var (
		pts    []orb.Point
		starts []int
	)
	for i, r := range p {
		open := r
		if len(open) > 1 && open[0] == open[len(open)-1] {
			open = open[:len(open)-1]
		}
		if len(open) < 3 {
			if i == 0 {
				return
			}
			continue
		}
		starts = append(starts, len(pts))
		pts = append(pts, open...)
	}
	if len(pts) > vectortile.MaxPoints {
		log.WithFields(log.Fields{"feature": f.id, "points": len(pts)}).
			Warn("polygon fragment too large for a tile item, dropped")
		return
	}
	tris := triangulate(pts, starts)
	if len(tris) == 0 {
		return
	}

	it := f.item()
	it.Points = simples(pts)
	it.Indices = make([]uint16, len(tris))
	for i, v := range tris {
		it.Indices[i] = uint16(v)
	}
	it.BorderIndices = make([][]uint16, len(starts))
	for i, s := range starts {
		end := len(pts)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		ring := make([]uint16, 0, end-s)
		for j := s; j < end; j++ {
			ring = append(ring, uint16(j))
		}
		it.BorderIndices[i] = ring
	}
	c, _ := planar.CentroidArea(p)
	it.Centroids = []vectortile.SimplePoint{simple(c)}
	f.items = append(f.items, it)
}

func simple(p orb.Point) vectortile.SimplePoint {
	return vectortile.SimplePoint{X: float32(p[0]), Y: float32(p[1])}
}

func simples(pts []orb.Point) []vectortile.SimplePoint {
	out := make([]vectortile.SimplePoint, len(pts))
	for i, p := range pts {
		out[i] = simple(p)
	}
	return out
}

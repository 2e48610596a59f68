package backend

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// triangulate fills a polygon given as open rings (no closing vertex) laid
// out back to back in pts; ring i spans [starts[i], starts[i+1]). Holes are
// bridged into the exterior and the result is ear clipped. The returned
// indices address pts, three per triangle.
func triangulate(pts []orb.Point, starts []int) []int {
	outer := ringIndices(starts, 0, len(pts))
	if len(outer) < 3 {
		return nil
	}
	if signedArea(pts, outer) < 0 {
		reverse(outer)
	}

	var holes [][]int
	for i := 1; i < len(starts); i++ {
		h := ringIndices(starts, i, len(pts))
		if len(h) < 3 {
			continue
		}
		if signedArea(pts, h) > 0 {
			reverse(h)
		}
		holes = append(holes, h)
	}
	sort.SliceStable(holes, func(i, j int) bool {
		return pts[holes[i][rightmost(pts, holes[i])]][0] > pts[holes[j][rightmost(pts, holes[j])]][0]
	})
	for i, h := range holes {
		outer = bridge(pts, outer, h, holes[i+1:])
	}
	return earClip(pts, outer)
}

func ringIndices(starts []int, i, total int) []int {
	end := total
	if i+1 < len(starts) {
		end = starts[i+1]
	}
	out := make([]int, 0, end-starts[i])
	for j := starts[i]; j < end; j++ {
		out = append(out, j)
	}
	return out
}

func signedArea(pts []orb.Point, ring []int) float64 {
	var a float64
	for i := range ring {
		p, q := pts[ring[i]], pts[ring[(i+1)%len(ring)]]
		a += p[0]*q[1] - q[0]*p[1]
	}
	return a / 2
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func rightmost(pts []orb.Point, ring []int) int {
	best := 0
	for i := range ring {
		if pts[ring[i]][0] > pts[ring[best]][0] {
			best = i
		}
	}
	return best
}

// bridge splices hole into outer through the nearest outer vertex visible
// from the hole's rightmost vertex.
func bridge(pts []orb.Point, outer, hole []int, pending [][]int) []int {
	hi := rightmost(pts, hole)
	m := pts[hole[hi]]

	order := make([]int, len(outer))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sqDist(m, pts[outer[order[a]]]) < sqDist(m, pts[outer[order[b]]])
	})
	oi := order[0]
	for _, cand := range order {
		v := pts[outer[cand]]
		if visible(pts, m, v, outer) && visible(pts, m, v, hole) && visibleAll(pts, m, v, pending) {
			oi = cand
			break
		}
	}

	merged := make([]int, 0, len(outer)+len(hole)+2)
	merged = append(merged, outer[:oi+1]...)
	for k := 0; k <= len(hole); k++ {
		merged = append(merged, hole[(hi+k)%len(hole)])
	}
	merged = append(merged, outer[oi:]...)
	return merged
}

func visibleAll(pts []orb.Point, a, b orb.Point, rings [][]int) bool {
	for _, r := range rings {
		if !visible(pts, a, b, r) {
			return false
		}
	}
	return true
}

// visible reports whether segment a-b crosses no edge of ring.
func visible(pts []orb.Point, a, b orb.Point, ring []int) bool {
	for i := range ring {
		p, q := pts[ring[i]], pts[ring[(i+1)%len(ring)]]
		if p == a || p == b || q == a || q == b {
			continue
		}
		if segmentsCross(a, b, p, q) {
			return false
		}
	}
	return true
}

func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func sqDist(a, b orb.Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

// earClip triangulates a counter clockwise simple polygon. Degenerate
// vertices that never form an ear are dropped so the loop always ends.
func earClip(pts []orb.Point, poly []int) []int {
	idx := append([]int(nil), poly...)
	out := make([]int, 0, (len(idx)-2)*3)
	for len(idx) > 3 {
		n := len(idx)
		clipped := false
		for i := 0; i < n; i++ {
			a, b, c := idx[(i+n-1)%n], idx[i], idx[(i+1)%n]
			if !isEar(pts, idx, a, b, c) {
				continue
			}
			out = append(out, a, b, c)
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// Drop the flattest vertex without emitting a triangle.
			best, bestV := 0, math.Inf(1)
			for i := 0; i < n; i++ {
				a, b, c := idx[(i+n-1)%n], idx[i], idx[(i+1)%n]
				if v := math.Abs(cross(pts[a], pts[b], pts[c])); v < bestV {
					best, bestV = i, v
				}
			}
			idx = append(idx[:best], idx[best+1:]...)
		}
	}
	if len(idx) == 3 && cross(pts[idx[0]], pts[idx[1]], pts[idx[2]]) > 0 {
		out = append(out, idx[0], idx[1], idx[2])
	}
	return out
}

func isEar(pts []orb.Point, idx []int, a, b, c int) bool {
	pa, pb, pc := pts[a], pts[b], pts[c]
	if cross(pa, pb, pc) <= 0 {
		return false
	}
	for _, k := range idx {
		p := pts[k]
		if p == pa || p == pb || p == pc {
			continue
		}
		if cross(pa, pb, p) >= 0 && cross(pb, pc, p) >= 0 && cross(pc, pa, p) >= 0 {
			return false
		}
	}
	return true
}

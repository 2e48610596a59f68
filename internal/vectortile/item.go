// Package vectortile holds render ready tile fragments and their binary
// encoding.
package vectortile

import (
	"math"
	"sort"
)

// PointTolerance is the per axis distance under which two points are equal.
const PointTolerance = 1e-5

// MaxPoints is the largest fragment addressable by uint16 indices.
const MaxPoints = math.MaxUint16 + 1

// SimplePoint is a tile local coordinate.
type SimplePoint struct {
	X float32
	Y float32
}

func (p SimplePoint) IsEqual(o SimplePoint) bool {
	return math.Abs(float64(p.X-o.X)) < PointTolerance && math.Abs(float64(p.Y-o.Y)) < PointTolerance
}

// Item is one renderable fragment of one or more features.
type Item struct {
	Points        []SimplePoint
	Indices       []uint16
	BorderIndices [][]uint16
	Centroids     []SimplePoint
	Valid         bool
	Is2D          bool

	ids map[int64]struct{}
}

// NewItem returns a valid 2D item owned by the given feature ids.
func NewItem(ids ...int64) Item {
	it := Item{Valid: true, Is2D: true}
	for _, id := range ids {
		it.AddID(id)
	}
	return it
}

func (it *Item) AddID(id int64) {
	if it.ids == nil {
		it.ids = make(map[int64]struct{})
	}
	it.ids[id] = struct{}{}
}

func (it *Item) RemoveID(id int64) {
	delete(it.ids, id)
}

func (it Item) HasID(id int64) bool {
	_, ok := it.ids[id]
	return ok
}

func (it Item) IDCount() int { return len(it.ids) }

// IDs returns the owning ids in ascending order.
func (it Item) IDs() []int64 {
	out := make([]int64, 0, len(it.ids))
	for id := range it.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal compares points only.
func (it Item) Equal(o Item) bool {
	if len(it.Points) != len(o.Points) {
		return false
	}
	for i := range it.Points {
		if !it.Points[i].IsEqual(o.Points[i]) {
			return false
		}
	}
	return true
}

// Clone deep copies the item.
func (it Item) Clone() Item {
	out := Item{
		Points:    append([]SimplePoint(nil), it.Points...),
		Indices:   append([]uint16(nil), it.Indices...),
		Centroids: append([]SimplePoint(nil), it.Centroids...),
		Valid:     it.Valid,
		Is2D:      it.Is2D,
	}
	if it.BorderIndices != nil {
		out.BorderIndices = make([][]uint16, len(it.BorderIndices))
		for i, r := range it.BorderIndices {
			out.BorderIndices[i] = append([]uint16(nil), r...)
		}
	}
	for id := range it.ids {
		out.AddID(id)
	}
	return out
}

// sameContent is the full comparison used by the codec round trip.
func (it Item) sameContent(o Item) bool {
	if !it.Equal(o) || it.Valid != o.Valid || it.Is2D != o.Is2D {
		return false
	}
	if len(it.ids) != len(o.ids) {
		return false
	}
	for id := range it.ids {
		if !o.HasID(id) {
			return false
		}
	}
	if !equalU16(it.Indices, o.Indices) || len(it.BorderIndices) != len(o.BorderIndices) {
		return false
	}
	for i := range it.BorderIndices {
		if !equalU16(it.BorderIndices[i], o.BorderIndices[i]) {
			return false
		}
	}
	if len(it.Centroids) != len(o.Centroids) {
		return false
	}
	for i := range it.Centroids {
		if !it.Centroids[i].IsEqual(o.Centroids[i]) {
			return false
		}
	}
	return true
}

func equalU16(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

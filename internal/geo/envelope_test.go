package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeInit(t *testing.T) {
	e := EmptyEnvelope()
	require.False(t, e.IsInit())
	require.True(t, NewEnvelope(0, 0, 1, 1).IsInit())

	e.Extend(3, 4)
	require.True(t, e.IsInit())
	assert.Equal(t, Envelope{MinX: 3, MinY: 4, MaxX: 3, MaxY: 4}, e)
}

func TestEnvelopePredicates(t *testing.T) {
	a := NewEnvelope(0, 0, 10, 10)
	testCases := []struct {
		desc       string
		other      Envelope
		intersects bool
		contains   bool
	}{
		{desc: "inside", other: NewEnvelope(2, 2, 4, 4), intersects: true, contains: true},
		{desc: "overlap", other: NewEnvelope(5, 5, 15, 15), intersects: true},
		{desc: "touching edge", other: NewEnvelope(10, 0, 20, 10), intersects: true},
		{desc: "disjoint", other: NewEnvelope(11, 11, 12, 12)},
		{desc: "empty", other: EmptyEnvelope()},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.intersects, a.Intersects(tc.other))
			assert.Equal(t, tc.contains, a.Contains(tc.other))
		})
	}
}

func TestEnvelopeMergeIntersect(t *testing.T) {
	a := NewEnvelope(0, 0, 10, 10)
	a.Merge(NewEnvelope(5, -5, 20, 5))
	assert.Equal(t, NewEnvelope(0, -5, 20, 10), a)

	b := EmptyEnvelope()
	b.Merge(NewEnvelope(1, 1, 2, 2))
	assert.Equal(t, NewEnvelope(1, 1, 2, 2), b)

	c := NewEnvelope(0, 0, 10, 10)
	c.Intersect(NewEnvelope(5, 5, 15, 15))
	assert.Equal(t, NewEnvelope(5, 5, 10, 10), c)

	d := NewEnvelope(0, 0, 1, 1)
	d.Intersect(NewEnvelope(5, 5, 6, 6))
	assert.False(t, d.IsInit())
}

func TestEnvelopeTransforms(t *testing.T) {
	e := NewEnvelope(-1, -1, 1, 1)
	e.Rotate(math.Pi / 4)
	assert.InDelta(t, math.Sqrt2, e.MaxX, 1e-9)
	assert.InDelta(t, -math.Sqrt2, e.MinY, 1e-9)

	r := NewEnvelope(0, 0, 10, 5)
	r.SetRatio(1)
	assert.Equal(t, NewEnvelope(0, -2.5, 10, 7.5), r)

	r = NewEnvelope(0, 0, 4, 4)
	r.SetRatio(2)
	assert.Equal(t, NewEnvelope(-2, 0, 6, 4), r)

	s := NewEnvelope(0, 0, 10, 10)
	s.Resize(2)
	assert.Equal(t, NewEnvelope(-5, -5, 15, 15), s)

	m := NewEnvelope(0, 0, 1, 1)
	m.Move(2, 3)
	assert.Equal(t, NewEnvelope(2, 3, 3, 4), m)

	f := Envelope{MinX: 5, MinY: 6, MaxX: 1, MaxY: 2}
	f.Fix()
	assert.Equal(t, Envelope{MinX: 1, MinY: 2, MaxX: 5, MaxY: 6}, f)
}

func TestEnvelopeLoadSave(t *testing.T) {
	src := NewEnvelope(-3, -2, 7, 8)
	var dst Envelope
	require.True(t, dst.Load(src.Save(), DefaultBounds))
	assert.Equal(t, src, dst)

	doc := src.Save()
	doc["name"] = "extra"
	require.True(t, dst.Load(doc, DefaultBounds))
	assert.Equal(t, src, dst)

	swapped := Document{KeyMinX: 7.0, KeyMinY: 8.0, KeyMaxX: -3.0, KeyMaxY: -2.0}
	require.True(t, dst.Load(swapped, DefaultBounds))
	assert.Equal(t, src, dst)
	assert.True(t, dst.IsInit())

	require.True(t, dst.Load(EmptyEnvelope().Save(), DefaultBounds))
	assert.False(t, dst.IsInit())

	testCases := []struct {
		desc string
		doc  Document
	}{
		{desc: "missing key", doc: Document{KeyMinX: 1.0, KeyMinY: 1.0, KeyMaxX: 2.0}},
		{desc: "string value", doc: Document{KeyMinX: "1", KeyMinY: 1.0, KeyMaxX: 2.0, KeyMaxY: 2.0}},
		{desc: "nil doc", doc: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			var e Envelope
			assert.False(t, e.Load(tc.doc, DefaultBounds))
			assert.Equal(t, DefaultBounds, e)
		})
	}
}

func TestEnvelopeLoadJSON(t *testing.T) {
	var e Envelope
	require.True(t, e.LoadJSON([]byte(`{"min_x":1,"min_y":2,"max_x":3,"max_y":4,"srs":3857}`), DefaultBounds))
	assert.Equal(t, NewEnvelope(1, 2, 3, 4), e)

	require.True(t, e.LoadJSON([]byte(`{"min_x":3,"min_y":4,"max_x":1,"max_y":2}`), DefaultBounds))
	assert.Equal(t, NewEnvelope(1, 2, 3, 4), e)
	assert.True(t, e.IsInit())

	assert.False(t, e.LoadJSON([]byte(`{"min_x":1,"min_y":2,"max_x":"3","max_y":4}`), DefaultBounds))
	assert.Equal(t, DefaultBounds, e)

	assert.False(t, e.LoadJSON([]byte(`{"min_x":1,`), DefaultBoundsX2))
	assert.Equal(t, DefaultBoundsX2, e)
}

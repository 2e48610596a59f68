package geo

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOrder(t *testing.T) {
	keys := []Key{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
		{X: 0, Y: 0, Z: 0, CrossExtent: 1},
		{X: 0, Y: 0, Z: 0, CrossExtent: -1},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	assert.Equal(t, []Key{
		{X: 0, Y: 0, Z: 0, CrossExtent: -1},
		{X: 0, Y: 0, Z: 0, CrossExtent: 1},
		{X: 0, Y: 0, Z: 1},
		{X: 0, Y: 1, Z: 0},
		{X: 1, Y: 0, Z: 0},
	}, keys)

	k := Key{X: 3, Y: 4, Z: 5}
	assert.Equal(t, 0, k.Compare(Key{X: 3, Y: 4, Z: 5}))
	assert.False(t, k.Less(k))
	assert.Equal(t, "5/3/4", k.String())
}

func TestKeyEnvelope(t *testing.T) {
	assert.Equal(t, DefaultBounds, Key{}.Envelope())

	e := Key{X: 1, Y: 0, Z: 1}.Envelope()
	assert.InDelta(t, 0, e.MinX, 1e-6)
	assert.InDelta(t, WorldHalf, e.MaxX, 1e-6)
	assert.InDelta(t, 0, e.MinY, 1e-6)
	assert.InDelta(t, WorldHalf, e.MaxY, 1e-6)

	shifted := Key{X: 0, Y: 0, Z: 0, CrossExtent: 1}.Envelope()
	assert.InDelta(t, WorldHalf, shifted.MinX, 1e-6)

	b := Key{X: 0, Y: 0, Z: 1}.LonLatBound()
	assert.InDelta(t, -180, b.Min[0], 1e-9)
	assert.InDelta(t, 0, b.Max[0], 1e-9)
}

func TestKeysForEnvelope(t *testing.T) {
	items := KeysForEnvelope(DefaultBounds, 1)
	require.Len(t, items, 4)
	for _, it := range items {
		assert.Equal(t, int8(0), it.Key.CrossExtent)
		assert.True(t, it.Envelope.Intersects(DefaultBounds))
	}

	small := NewEnvelope(10, 10, 20, 20)
	items = KeysForEnvelope(small, 2)
	require.Len(t, items, 1)
	assert.Equal(t, Key{X: 2, Y: 1, Z: 2}, items[0].Key)

	// A view straddling the antimeridian picks up wrapped columns.
	wrap := NewEnvelope(WorldHalf-10, -10, WorldHalf+10, 10)
	items = KeysForEnvelope(wrap, 1)
	var crossed int
	for _, it := range items {
		if it.Key.CrossExtent == 1 {
			crossed++
			assert.Equal(t, 0, it.Key.X)
		}
	}
	assert.Equal(t, 2, crossed)
	assert.True(t, sort.SliceIsSorted(items, func(i, j int) bool { return items[i].Key.Less(items[j].Key) }))

	assert.Nil(t, KeysForEnvelope(EmptyEnvelope(), 3))
}

func TestZoomFor(t *testing.T) {
	assert.Equal(t, uint8(0), ZoomFor(DefaultBounds, 1))
	assert.Equal(t, uint8(2), ZoomFor(DefaultBounds, 4))
	assert.Equal(t, uint8(0), ZoomFor(EmptyEnvelope(), 4))
}

func TestParseKey(t *testing.T) {
	testCases := []struct {
		in   string
		want Key
		ok   bool
	}{
		{in: "3/2/5", want: Key{X: 2, Y: 5, Z: 3}, ok: true},
		{in: " 1/1/0@-1 ", want: Key{X: 1, Y: 0, Z: 1, CrossExtent: -1}, ok: true},
		{in: "0/0/0", want: Key{}, ok: true},
		{in: "1/2/0"},
		{in: "1/0"},
		{in: "x/0/0"},
		{in: "1/0/0@z"},
		{in: "25/0/0"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			k, err := ParseKey(tc.in)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, k)
			assert.Equal(t, tc.want.String(), k.String())
		})
	}
}

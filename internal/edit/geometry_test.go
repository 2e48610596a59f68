package edit

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

func ringsClosed(t *testing.T, g *Geometry) {
	t.Helper()
	if !g.Kind().rules().closed {
		return
	}
	for _, part := range g.Shape() {
		for _, ring := range part {
			require.NotEmpty(t, ring)
			assert.Equal(t, ring[0], ring[len(ring)-1])
		}
	}
}

func TestNewSeeds(t *testing.T) {
	testCases := []struct {
		kind Kind
		want string
	}{
		{kind: KindPoint, want: "POINT (5 5)"},
		{kind: KindLine, want: "LINESTRING (0 0, 10 10)"},
		{kind: KindPolygon, want: "POLYGON ((0 0, 0 10, 10 10, 10 0, 0 0))"},
		{kind: KindMultiLine, want: "MULTILINESTRING ((0 0, 10 10))"},
		{kind: KindMultiPolygon, want: "MULTIPOLYGON (((0 0, 0 10, 10 10, 10 0, 0 0)))"},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			g := New(tc.kind, 0, 0, 10, 10, Options{})
			got, err := wkt.Marshal(g.ToNative())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.False(t, g.CanUndo())
		})
	}
}

func TestPolygonAddPointUndo(t *testing.T) {
	g := New(KindPolygon, 0, 0, 10, 10, Options{})
	before := g.Shape()

	require.True(t, g.AddPoint(5, 15, true))
	ringsClosed(t, g)
	ring := g.Shape()[0][0]
	require.Len(t, ring, 6)
	assert.Contains(t, ring, orb.Point{5, 15})
	assert.True(t, g.CanUndo())

	require.True(t, g.Undo())
	assert.Equal(t, before, g.Shape())
	assert.False(t, g.CanUndo())
	require.True(t, g.Redo())
	assert.Len(t, g.Shape()[0][0], 6)
}

func TestAddPointAfterSelection(t *testing.T) {
	g := New(KindLine, 0, 0, 10, 0, Options{})
	require.True(t, g.Select(0, 0, 0))
	require.True(t, g.AddPoint(3, 3, true))
	assert.Equal(t, Path{{0, 0}, {3, 3}, {10, 0}}, g.Shape()[0][0])
	assert.Equal(t, Selection{Part: 0, Ring: 0, Point: 1}, g.Selection())

	p := New(KindPoint, 0, 0, 2, 2, Options{})
	assert.False(t, p.AddPoint(3, 3, true))

	mp := New(KindMultiPoint, 0, 0, 2, 2, Options{})
	require.True(t, mp.AddPoint(3, 3, true))
	assert.Len(t, mp.Shape(), 2)
}

func TestTouchDragIsOneStep(t *testing.T) {
	g := New(KindPolygon, 0, 0, 10, 10, Options{})

	id := g.Touch(0.2, 0.2, TouchDown, 1)
	require.Equal(t, PointID{Index: 0}, id)
	assert.True(t, g.IsDragging())
	g.Touch(2, 2, TouchMove, 1)
	g.Touch(3, 3, TouchMove, 1)
	g.Touch(4, 4, TouchUp, 1)
	assert.False(t, g.IsDragging())

	ring := g.Shape()[0][0]
	assert.Equal(t, orb.Point{4, 4}, ring[0])
	ringsClosed(t, g)

	require.True(t, g.Undo())
	assert.Equal(t, orb.Point{0, 0}, g.Shape()[0][0][0])
	assert.False(t, g.CanUndo())
}

func TestTouchMissAndMedian(t *testing.T) {
	g := New(KindLine, 0, 0, 10, 0, Options{})
	assert.Equal(t, noPoint, g.Touch(50, 50, TouchDown, 1))
	assert.Equal(t, noSelection, g.Selection())

	id := g.Touch(5, 0.1, TouchSingle, 1)
	assert.Equal(t, PointID{Index: 1}, id)
	assert.Equal(t, Path{{0, 0}, {5, 0}, {10, 0}}, g.Shape()[0][0])
	assert.True(t, g.CanUndo())

	// Tapping an existing vertex only selects it.
	id = g.Touch(10, 0, TouchSingle, 1)
	assert.Equal(t, PointID{Index: 2}, id)
	assert.Len(t, g.Shape()[0][0], 3)
}

func TestDeletePiece(t *testing.T) {
	t.Run("point", func(t *testing.T) {
		g := New(KindPoint, 0, 0, 2, 2, Options{})
		assert.Equal(t, RemoveGeometry, g.DeletePiece(PiecePoint))
		assert.Equal(t, Path{{1, 1}}, g.Shape()[0][0])
	})
	t.Run("two point line", func(t *testing.T) {
		g := New(KindLine, 0, 0, 10, 0, Options{})
		require.True(t, g.Select(0, 0, 1))
		assert.Equal(t, RemovedPart, g.DeletePiece(PiecePoint))
		assert.Empty(t, g.Shape())
		ls, ok := g.ToNative().(*geom.LineString)
		require.True(t, ok)
		assert.Zero(t, ls.NumCoords())

		assert.ErrorIs(t, g.Validate(), ErrEmptyGeometry)

		// The first vertex waits for a second before a path exists.
		require.True(t, g.AddPoint(5, 5, true))
		assert.Empty(t, g.Shape())
		anchor, ok := g.Anchor()
		require.True(t, ok)
		assert.Equal(t, orb.Point{5, 5}, anchor)
		assert.Error(t, g.Validate())

		require.True(t, g.AddPoint(8, 5, true))
		assert.Equal(t, Shape{{{{5, 5}, {8, 5}}}}, g.Shape())
		_, ok = g.Anchor()
		assert.False(t, ok)
		assert.NoError(t, g.Validate())
		assert.Equal(t, 1, g.Selection().Point)

		require.True(t, g.Undo())
		assert.Empty(t, g.Shape())
		require.True(t, g.Undo())
		assert.Len(t, g.Shape()[0][0], 2)
	})
	t.Run("line anchor dropped", func(t *testing.T) {
		g := New(KindLine, 0, 0, 10, 0, Options{})
		require.True(t, g.Select(0, 0, 0))
		require.Equal(t, RemovedPart, g.DeletePiece(PiecePoint))
		require.True(t, g.AddPoint(5, 5, true))
		assert.Equal(t, Deleted, g.DeletePiece(PiecePoint))
		_, ok := g.Anchor()
		assert.False(t, ok)
		assert.Empty(t, g.Shape())
	})
	t.Run("line vertex", func(t *testing.T) {
		g := New(KindLine, 0, 0, 10, 0, Options{})
		require.True(t, g.AddPoint(20, 0, true))
		require.True(t, g.Select(0, 0, 2))
		assert.Equal(t, Deleted, g.DeletePiece(PiecePoint))
		assert.Equal(t, Path{{0, 0}, {10, 0}}, g.Shape()[0][0])
		assert.Equal(t, 1, g.Selection().Point)
	})
	t.Run("first ring vertex keeps closure", func(t *testing.T) {
		g := New(KindPolygon, 0, 0, 10, 10, Options{})
		require.True(t, g.Select(0, 0, 0))
		assert.Equal(t, Deleted, g.DeletePiece(PiecePoint))
		ringsClosed(t, g)
		assert.Len(t, g.Shape()[0][0], 4)
		assert.Equal(t, 2, g.Selection().Point)
	})
	t.Run("triangle exterior is last part", func(t *testing.T) {
		g := New(KindPolygon, 0, 0, 10, 10, Options{})
		require.True(t, g.Select(0, 0, 0))
		require.Equal(t, Deleted, g.DeletePiece(PiecePoint))
		require.True(t, g.Select(0, 0, 0))
		assert.Equal(t, RemoveGeometry, g.DeletePiece(PiecePoint))
		assert.Len(t, g.Shape()[0][0], 4)
	})
	t.Run("multiline last part", func(t *testing.T) {
		g := New(KindMultiLine, 0, 0, 10, 0, Options{})
		require.True(t, g.Select(0, 0, 0))
		assert.Equal(t, RemoveGeometry, g.DeletePiece(PiecePart))
		assert.Len(t, g.Shape(), 1)
	})
	t.Run("nothing selected", func(t *testing.T) {
		g := New(KindMultiPolygon, 0, 0, 10, 10, Options{})
		assert.Equal(t, DeleteFailed, g.DeletePiece(PiecePoint))
		assert.False(t, g.CanUndo())
	})
}

func TestHolesAndParts(t *testing.T) {
	g := New(KindPolygon, 0, 0, 10, 10, Options{})
	assert.False(t, g.AddPiece(PieceHole, 8, 8, 20, 20), "hole outside exterior")
	assert.False(t, g.AddPiece(PiecePart, 20, 20, 30, 30), "polygon has a single part")

	require.True(t, g.AddPiece(PieceHole, 2, 2, 4, 4))
	require.Len(t, g.Shape()[0], 2)
	ringsClosed(t, g)

	// Exterior cannot go while a hole remains.
	require.True(t, g.Select(0, 0, 0))
	assert.Equal(t, DeleteFailed, g.DeletePiece(PieceHole))

	require.True(t, g.Select(0, 1, 0))
	assert.Equal(t, RemovedPart, g.DeletePiece(PieceHole))
	assert.Len(t, g.Shape()[0], 1)

	mp := New(KindMultiPolygon, 0, 0, 10, 10, Options{})
	require.True(t, mp.AddPiece(PiecePart, 20, 20, 30, 30))
	require.Len(t, mp.Shape(), 2)
	ringsClosed(t, mp)
	assert.Equal(t, RemovedPart, mp.DeletePiece(PiecePart))
	assert.Len(t, mp.Shape(), 1)
	require.True(t, mp.Undo())
	assert.Len(t, mp.Shape(), 2)
}

func TestRingsStayClosed(t *testing.T) {
	g := New(KindMultiPolygon, 0, 0, 100, 100, Options{})
	require.True(t, g.AddPiece(PieceHole, 20, 20, 40, 40))
	require.True(t, g.AddPiece(PiecePart, 200, 200, 300, 300))

	drag := func(x, y, toX, toY float64) func(t *testing.T) {
		return func(t *testing.T) {
			require.Equal(t, 0, g.Touch(x, y, TouchDown, 1).Index)
			g.Touch((x+toX)/2, (y+toY)/2, TouchMove, 1)
			g.Touch(toX, toY, TouchUp, 1)
		}
	}
	deleteFirst := func(part, ring int) func(t *testing.T) {
		return func(t *testing.T) {
			require.True(t, g.Select(part, ring, 0))
			require.Equal(t, Deleted, g.DeletePiece(PiecePoint))
		}
	}
	testCases := []struct {
		desc string
		step func(t *testing.T)
	}{
		{desc: "add exterior vertex", step: func(t *testing.T) {
			require.True(t, g.Select(0, 0, 3))
			require.True(t, g.AddPoint(100, 50, true))
		}},
		{desc: "add hole vertex", step: func(t *testing.T) {
			require.True(t, g.Select(0, 1, 1))
			require.True(t, g.AddPoint(30, 45, true))
		}},
		{desc: "delete first exterior vertex", step: deleteFirst(0, 0)},
		{desc: "drag first exterior vertex", step: drag(0, 100, -10, 110)},
		{desc: "delete first hole vertex", step: deleteFirst(0, 1)},
		{desc: "drag first hole vertex", step: drag(20, 40, 22, 38)},
		{desc: "delete first vertex of second part", step: deleteFirst(1, 0)},
		{desc: "undo", step: func(t *testing.T) { require.True(t, g.Undo()) }},
		{desc: "undo again", step: func(t *testing.T) { require.True(t, g.Undo()) }},
		{desc: "redo", step: func(t *testing.T) { require.True(t, g.Redo()) }},
		{desc: "add vertex after redo", step: func(t *testing.T) {
			require.True(t, g.Select(1, 0, 0))
			require.True(t, g.AddPoint(250, 310, true))
		}},
		{desc: "drag first vertex of second part", step: drag(200, 200, 190, 190)},
		{desc: "undo to start", step: func(t *testing.T) {
			for g.Undo() {
				ringsClosed(t, g)
			}
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			tc.step(t)
			ringsClosed(t, g)
			assert.NoError(t, g.Validate())
		})
	}
	assert.Equal(t, New(KindMultiPolygon, 0, 0, 100, 100, Options{}).Shape(), g.Shape())
}

func TestFromNative(t *testing.T) {
	testCases := []struct {
		desc string
		in   string
		kind Kind
	}{
		{desc: "point", in: "POINT (1 2)", kind: KindPoint},
		{desc: "line", in: "LINESTRING (0 0, 1 1, 2 0)", kind: KindLine},
		{desc: "polygon", in: "POLYGON ((0 0, 10 0, 10 10, 0 0), (2 1, 3 1, 3 2, 2 1))", kind: KindPolygon},
		{desc: "multipoint", in: "MULTIPOINT ((1 1), (2 2))", kind: KindMultiPoint},
		{desc: "multiline", in: "MULTILINESTRING ((0 0, 1 1), (2 2, 3 3))", kind: KindMultiLine},
		{desc: "multipolygon", in: "MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)), ((5 5, 6 5, 6 6, 5 5)))", kind: KindMultiPolygon},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			in, err := wkt.Unmarshal(tc.in)
			require.NoError(t, err)
			g, err := FromNative(in, Options{})
			require.NoError(t, err)
			assert.Equal(t, tc.kind, g.Kind())
			want, err := wkt.Marshal(in)
			require.NoError(t, err)
			got, err := wkt.Marshal(g.ToNative())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := FromNative(geom.NewGeometryCollection(), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)
	_, err = FromNative(geom.NewLineStringFlat(geom.XY, nil), Options{})
	assert.ErrorIs(t, err, ErrEmptyGeometry)

	z := geom.NewPointFlat(geom.XYZ, []float64{1, 2, 3})
	g, err := FromNative(z, Options{})
	require.NoError(t, err)
	assert.Equal(t, geom.XY, g.ToNative().Layout())
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, 6)
	var closed []Kind
	for _, k := range kinds {
		if k.IsClosed() {
			closed = append(closed, k)
		}
	}
	assert.Equal(t, []Kind{KindPolygon, KindMultiPolygon}, closed)
	assert.False(t, Kind(42).IsClosed())
	assert.Equal(t, "MultiLineString", KindMultiLine.String())
}

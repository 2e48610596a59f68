package overlay

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/wkt"

	"geomap/internal/edit"
	"geomap/internal/geo"
	"geomap/internal/metrics"
	"geomap/internal/source"
	"geomap/internal/tilecache"
	"geomap/internal/tiler"
)

var (
	worldKey = geo.Key{}
	farKey   = geo.Key{X: 0, Y: 0, Z: 2}
)

type fixture struct {
	store   *source.MemoryStore
	cache   *tilecache.Cache
	metrics *metrics.Metrics
	opts    Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	g, err := wkt.Unmarshal("POLYGON ((0 0, 0 100, 100 100, 100 0, 0 0))")
	require.NoError(t, err)
	store := source.NewMemoryStore(source.Feature{ID: 1, Geometry: g, Attributes: map[string]interface{}{"name": "a"}})

	m := metrics.New(nil)
	cache, err := tilecache.Open(tilecache.Options{Metrics: m})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	tl := tiler.New(store, tiler.DefaultConfig(), m)
	for _, k := range []geo.Key{worldKey, farKey} {
		tile, err := tl.Build(ctx, k)
		require.NoError(t, err)
		require.NoError(t, cache.Put(ctx, k, tile))
	}
	return &fixture{
		store:   store,
		cache:   cache,
		metrics: m,
		opts:    Options{Cache: cache, Tiler: tl, Metrics: m},
	}
}

func TestSaveCommitsAndInvalidates(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	s, err := Begin(ctx, fx.store, 1, fx.opts)
	require.NoError(t, err)
	assert.Equal(t, edit.KindPolygon, s.Geometry().Kind())

	g := s.Geometry()
	require.Equal(t, edit.PointID{Index: 2}, g.Touch(100, 100, edit.TouchDown, 1))
	g.Touch(150, 150, edit.TouchMove, 1)
	g.Touch(200, 200, edit.TouchUp, 1)

	saved, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, geo.NewEnvelope(0, 0, 200, 200), geo.EnvelopeOf(saved))

	f, err := fx.store.Feature(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, geo.NewEnvelope(0, 0, 200, 200), geo.EnvelopeOf(f.Geometry))
	assert.Equal(t, "a", f.Attributes["name"])

	assert.Equal(t, []geo.Key{farKey}, fx.cache.Keys())
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.Commits.WithLabelValues("update")))

	pending, err := fx.store.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.False(t, s.Closed())
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	s := Create(fx.store, edit.KindLine, geo.NewEnvelope(200, 200, 300, 300), fx.opts)
	assert.True(t, s.IsNew())
	_, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.ID())

	f, err := fx.store.Feature(ctx, 2)
	require.NoError(t, err)
	out, err := wkt.Marshal(f.Geometry)
	require.NoError(t, err)
	assert.Equal(t, "LINESTRING (200 200, 300 300)", out)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.Commits.WithLabelValues("insert")))

	id, ok := fx.opts.Tiler.Nearest(ctx, 250, 250, 1)
	require.True(t, ok)
	assert.Equal(t, int64(2), id)
}

func TestDeleteAndCancel(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	s, err := Begin(ctx, fx.store, 1, fx.opts)
	require.NoError(t, err)
	s.Geometry().AddPoint(50, 150, true)
	s.Cancel()
	assert.True(t, s.Closed())
	_, err = s.Save(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	f, err := fx.store.Feature(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, geo.NewEnvelope(0, 0, 100, 100), geo.EnvelopeOf(f.Geometry))

	s, err = Begin(ctx, fx.store, 1, fx.opts)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx))
	_, err = fx.store.Feature(ctx, 1)
	assert.ErrorIs(t, err, source.ErrNotFound)
	assert.Equal(t, []geo.Key{farKey}, fx.cache.Keys())
	assert.ErrorIs(t, s.Delete(ctx), ErrClosed)

	_, err = Begin(ctx, fx.store, 1, fx.opts)
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestSaveRejectsUnfinishedLine(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	line, err := wkt.Unmarshal("LINESTRING (0 0, 10 0)")
	require.NoError(t, err)
	id, _, err := fx.store.Insert(ctx, line, nil)
	require.NoError(t, err)

	s, err := Begin(ctx, fx.store, id, fx.opts)
	require.NoError(t, err)
	g := s.Geometry()
	require.True(t, g.Select(0, 0, 0))
	require.Equal(t, edit.RemovedPart, g.DeletePiece(edit.PiecePoint))
	require.True(t, g.AddPoint(5, 5, true))

	_, err = s.Save(ctx)
	assert.ErrorIs(t, err, edit.ErrEmptyGeometry)
	f, err := fx.store.Feature(ctx, id)
	require.NoError(t, err)
	out, err := wkt.Marshal(f.Geometry)
	require.NoError(t, err)
	assert.Equal(t, "LINESTRING (0 0, 10 0)", out)

	require.True(t, g.AddPoint(5, 10, true))
	saved, err := s.Save(ctx)
	require.NoError(t, err)
	out, err = wkt.Marshal(saved)
	require.NoError(t, err)
	assert.Equal(t, "LINESTRING (5 5, 5 10)", out)
}

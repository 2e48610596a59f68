package tiler

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/wkt"

	"geomap/internal/geo"
	"geomap/internal/metrics"
	"geomap/internal/source"
	"geomap/internal/vectortile"
)

const square = "POLYGON ((100 100, 1100 100, 1100 1100, 100 1100, 100 100))"

func newStore(t *testing.T, geoms ...string) *source.MemoryStore {
	t.Helper()
	s := source.NewMemoryStore()
	for _, text := range geoms {
		g, err := wkt.Unmarshal(text)
		require.NoError(t, err)
		s.Add(source.Feature{Geometry: g})
	}
	return s
}

func squareKey(t *testing.T) geo.Key {
	t.Helper()
	items := geo.KeysForEnvelope(geo.NewEnvelope(100, 100, 1100, 1100), 14)
	require.Len(t, items, 1)
	return items[0].Key
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(nil)
	tl := New(newStore(t, square, "LINESTRING (2000 2000, 3000 2000)"), DefaultConfig(), m)

	key := squareKey(t)
	tile, err := tl.Build(ctx, key)
	require.NoError(t, err)
	assert.True(t, tile.Valid())
	require.Equal(t, 1, tile.Len())

	it := tile.Items()[0]
	assert.Equal(t, []int64{1}, it.IDs())
	for _, p := range it.Points {
		assert.True(t, p.X >= 0 && p.X <= 4096 && p.Y >= 0 && p.Y <= 4096, "%v outside tile", p)
	}
	size := geo.TileSize(14)
	require.Len(t, it.Centroids, 1)
	assert.InDelta(t, 600/size*4096, it.Centroids[0].X, 0.5)
	// y points down.
	assert.InDelta(t, (size-600)/size*4096, it.Centroids[0].Y, 0.5)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TilesBuilt))

	// The world tile holds both features, the square generalized to a
	// minimal ring.
	world, err := tl.Build(ctx, geo.Key{})
	require.NoError(t, err)
	assert.Equal(t, 2, world.Len())

	// A wrapped copy has the same content.
	wrapped := key
	wrapped.CrossExtent = 1
	again, err := tl.Build(ctx, wrapped)
	require.NoError(t, err)
	assert.True(t, tile.Equal(again))
}

func TestBuildMergesDuplicates(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	tl := New(newStore(t, square, square), cfg, nil)
	tile, err := tl.Build(ctx, squareKey(t))
	require.NoError(t, err)
	require.Equal(t, 1, tile.Len())
	assert.Equal(t, []int64{1, 2}, tile.Items()[0].IDs())

	cfg.CheckDuplicates = false
	tl = New(newStore(t, square, square), cfg, nil)
	tile, err = tl.Build(ctx, squareKey(t))
	require.NoError(t, err)
	assert.Equal(t, 2, tile.Len())
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tl := New(newStore(t, square), DefaultConfig(), nil)
	require.NoError(t, tl.Prepare(context.Background()))
	cancel()
	_, err := tl.Build(ctx, geo.Key{})
	assert.ErrorIs(t, err, context.Canceled)

	called := false
	err = tl.BuildAll(ctx, []geo.Key{{}, squareKey(t)}, func(geo.Key, *vectortile.Tile) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestBuildAll(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Workers = 3
	tl := New(newStore(t, square, "POINT (-5000000 3000000)"), cfg, nil)

	keys, err := tl.KeysFor(ctx, 0, 3)
	require.NoError(t, err)
	require.NotEmpty(t, keys)

	var mu sync.Mutex
	got := make(map[geo.Key]*vectortile.Tile)
	require.NoError(t, tl.BuildAll(ctx, keys, func(k geo.Key, tile *vectortile.Tile) error {
		mu.Lock()
		defer mu.Unlock()
		got[k] = tile
		return nil
	}))
	require.Len(t, got, len(keys))
	for k, tile := range got {
		assert.True(t, tile.Valid(), k.String())
	}

	boom := errors.New("sink full")
	err = tl.BuildAll(ctx, keys, func(geo.Key, *vectortile.Tile) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRefreshAndNearest(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, square, "LINESTRING (2000 0, 3000 0)")
	tl := New(store, DefaultConfig(), nil)

	id, ok := tl.Nearest(ctx, 500, 500, 10)
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	id, ok = tl.Nearest(ctx, 2500, 50, 100)
	require.True(t, ok)
	assert.Equal(t, int64(2), id)
	_, ok = tl.Nearest(ctx, -9000, -9000, 100)
	assert.False(t, ok)

	moved, err := wkt.Unmarshal("POLYGON ((5000 5000, 6000 5000, 6000 6000, 5000 5000))")
	require.NoError(t, err)
	_, err = store.CommitEdit(ctx, 1, moved)
	require.NoError(t, err)
	env, err := tl.Refresh(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, geo.NewEnvelope(100, 100, 6000, 6000), env)
	_, ok = tl.Nearest(ctx, 500, 500, 10)
	assert.False(t, ok)

	_, err = store.Delete(ctx, 2)
	require.NoError(t, err)
	env, err = tl.Refresh(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, geo.NewEnvelope(2000, 0, 3000, 0), env)
	all, err := tl.Envelope(ctx)
	require.NoError(t, err)
	assert.Equal(t, geo.NewEnvelope(5000, 5000, 6000, 6000), all)
}

func TestTolerance(t *testing.T) {
	tl := New(source.NewMemoryStore(), Config{Extent: 4096, PixelTolerance: 2}, nil)
	assert.InDelta(t, 2*geo.TileSize(3)/4096, tl.Tolerance(3), 1e-9)
	assert.Equal(t, 1, tl.Config().Workers)
}

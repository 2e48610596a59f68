// Package tiler cuts store features into vector tiles.
package tiler

import (
	"context"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"geomap/internal/geo"
	"geomap/internal/geo/backend"
	"geomap/internal/metrics"
	"geomap/internal/source"
	"geomap/internal/vectortile"
)

type Config struct {
	// Extent is the tile-local coordinate range, [0, Extent] on both axes.
	Extent float64
	// Buffer pads the clip box, in tile-local units.
	Buffer float64
	// PixelTolerance is the generalization tolerance in tile-local units.
	// Zero disables generalization.
	PixelTolerance  float64
	Workers         int
	CheckDuplicates bool
}

func DefaultConfig() Config {
	return Config{Extent: 4096, Buffer: 64, PixelTolerance: 1, Workers: 4, CheckDuplicates: true}
}

type feature struct {
	h   backend.Handle
	env geo.Envelope
}

// Tiler is safe for concurrent use once prepared.
type Tiler struct {
	store   source.Store
	cfg     Config
	metrics *metrics.Metrics

	mu       sync.RWMutex
	prepared bool
	features map[int64]feature
	ids      []int64
}

func New(store source.Store, cfg Config, m *metrics.Metrics) *Tiler {
	if cfg.Extent <= 0 {
		cfg.Extent = DefaultConfig().Extent
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Tiler{store: store, cfg: cfg, metrics: m}
}

func (t *Tiler) Config() Config { return t.cfg }

// Prepare converts every store feature once. Builds prepare on first use;
// calling Prepare again re-reads the store.
func (t *Tiler) Prepare(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prepare(ctx)
}

func (t *Tiler) prepare(ctx context.Context) error {
	features := make(map[int64]feature)
	var ids []int64
	t.store.Reset()
	for {
		f, err := t.store.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "read features")
		}
		ft, ok := convert(f)
		if !ok {
			continue
		}
		if _, dup := features[f.ID]; !dup {
			ids = append(ids, f.ID)
		}
		features[f.ID] = ft
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	t.features, t.ids, t.prepared = features, ids, true
	log.WithField("features", len(ids)).Debug("tiler prepared")
	return nil
}

func convert(f *source.Feature) (feature, bool) {
	if f.Geometry == nil {
		return feature{}, false
	}
	h, err := backend.ToBackend(f.Geometry)
	if err != nil {
		log.WithError(err).WithField("feature", f.ID).Warn("feature skipped")
		return feature{}, false
	}
	if h.IsEmpty() {
		return feature{}, false
	}
	return feature{h: h, env: h.Envelope()}, true
}

func (t *Tiler) ensurePrepared(ctx context.Context) error {
	t.mu.RLock()
	ok := t.prepared
	t.mu.RUnlock()
	if ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.prepared {
		return nil
	}
	return t.prepare(ctx)
}

// Envelope covers every prepared feature.
func (t *Tiler) Envelope(ctx context.Context) (geo.Envelope, error) {
	if err := t.ensurePrepared(ctx); err != nil {
		return geo.EmptyEnvelope(), err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	env := geo.EmptyEnvelope()
	for _, f := range t.features {
		env.Merge(f.env)
	}
	return env, nil
}

// Tolerance is the generalization tolerance in map units at zoom z.
func (t *Tiler) Tolerance(z uint8) float64 {
	return t.cfg.PixelTolerance * geo.TileSize(z) / t.cfg.Extent
}

// Build cuts one tile. The tile is valid only when every feature was
// processed.
func (t *Tiler) Build(ctx context.Context, key geo.Key) (*vectortile.Tile, error) {
	if err := t.ensurePrepared(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	// Wrapped tiles repeat the content of their home column.
	home := key
	home.CrossExtent = 0
	env := home.Envelope()
	size := env.Width()
	pad := t.cfg.Buffer * size / t.cfg.Extent
	clipEnv := geo.NewEnvelope(env.MinX-pad, env.MinY-pad, env.MaxX+pad, env.MaxY+pad)
	tol := t.Tolerance(key.Z)
	local := toLocal(env, t.cfg.Extent)

	tile := vectortile.New()
	t.mu.RLock()
	for _, id := range t.ids {
		f := t.features[id]
		if !f.env.Intersects(clipEnv) {
			continue
		}
		h := backend.Clip(f.h, clipEnv)
		if h.IsEmpty() {
			continue
		}
		if tol > 0 {
			h = backend.Generalize(h, tol)
		}
		h = backend.Project(h, local)
		tile.AddItems(backend.FillTile(h, id), t.cfg.CheckDuplicates)
	}
	t.mu.RUnlock()

	tile.SetValid(true)
	t.metrics.TileBuilt(time.Since(start), tile.Len())
	return tile, nil
}

// toLocal maps map units inside env to [0, extent], y pointing down.
func toLocal(env geo.Envelope, extent float64) orb.Projection {
	sx := extent / env.Width()
	sy := extent / env.Height()
	return func(p orb.Point) orb.Point {
		return orb.Point{(p[0] - env.MinX) * sx, (env.MaxY - p[1]) * sy}
	}
}

// Sink receives finished tiles. Calls are serialized.
type Sink func(key geo.Key, tile *vectortile.Tile) error

// BuildAll builds keys on the configured number of workers. The first error
// cancels the rest; tiles not finished by then never reach sink.
func (t *Tiler) BuildAll(ctx context.Context, keys []geo.Key, sink Sink) error {
	if err := t.ensurePrepared(ctx); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Workers)
	var sinkMu sync.Mutex
	for _, key := range keys {
		if gctx.Err() != nil {
			break
		}
		key := key
		g.Go(func() error {
			tile, err := t.Build(gctx, key)
			if err != nil {
				t.metrics.TileFailed()
				return errors.Wrapf(err, "tile %s", key)
			}
			sinkMu.Lock()
			defer sinkMu.Unlock()
			if err := gctx.Err(); err != nil {
				return err
			}
			return sink(key, tile)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Refresh re-reads feature id after an edit and returns the extent covering
// its old and new geometry. A feature gone from the store is dropped.
func (t *Tiler) Refresh(ctx context.Context, id int64) (geo.Envelope, error) {
	if err := t.ensurePrepared(ctx); err != nil {
		return geo.EmptyEnvelope(), err
	}
	f, err := t.store.Feature(ctx, id)
	if err != nil && !errors.Is(err, source.ErrNotFound) {
		return geo.EmptyEnvelope(), err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	env := geo.EmptyEnvelope()
	old, had := t.features[id]
	if had {
		env.Merge(old.env)
	}
	var ft feature
	ok := false
	if f != nil {
		ft, ok = convert(f)
	}
	switch {
	case ok:
		env.Merge(ft.env)
		t.features[id] = ft
		if !had {
			i := sort.Search(len(t.ids), func(i int) bool { return t.ids[i] >= id })
			t.ids = append(t.ids, 0)
			copy(t.ids[i+1:], t.ids[i:])
			t.ids[i] = id
		}
	case had:
		delete(t.features, id)
		i := sort.Search(len(t.ids), func(i int) bool { return t.ids[i] >= id })
		t.ids = append(t.ids[:i], t.ids[i+1:]...)
	}
	return env, nil
}

// Nearest finds the feature closest to (x, y) within maxDist map units.
func (t *Tiler) Nearest(ctx context.Context, x, y, maxDist float64) (int64, bool) {
	if err := t.ensurePrepared(ctx); err != nil {
		return 0, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	probe := geo.NewEnvelope(x-maxDist, y-maxDist, x+maxDist, y+maxDist)
	best, bestD := int64(0), math.Inf(1)
	for _, id := range t.ids {
		f := t.features[id]
		if !f.env.Intersects(probe) {
			continue
		}
		if d := backend.Distance(f.h, x, y); d <= maxDist && d < bestD {
			best, bestD = id, d
		}
	}
	return best, !math.IsInf(bestD, 1)
}

// KeysFor lists the keys covering the prepared data from zoom minZ to maxZ.
func (t *Tiler) KeysFor(ctx context.Context, minZ, maxZ uint8) ([]geo.Key, error) {
	env, err := t.Envelope(ctx)
	if err != nil {
		return nil, err
	}
	var keys []geo.Key
	for z := minZ; z <= maxZ && z <= geo.MaxZoom; z++ {
		for _, it := range geo.KeysForEnvelope(env, z) {
			keys = append(keys, it.Key)
		}
	}
	return keys, nil
}

package tui

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"

	"geomap/internal/config"
	"geomap/internal/edit"
	"geomap/internal/geo"
	"geomap/internal/metrics"
	"geomap/internal/overlay"
	"geomap/internal/source"
	"geomap/internal/tilecache"
	"geomap/internal/tiler"
	"geomap/internal/vectortile"
)

// Engine owns the data behind the map: the loaded features, the tiler cutting
// them and the cache holding finished tiles.
type Engine struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	cache   *tilecache.Cache
	store   *source.MemoryStore
	tiler   *tiler.Tiler
}

func NewEngine(cfg *config.Config, m *metrics.Metrics) (*Engine, error) {
	opts := cfg.CacheOptions()
	opts.Metrics = m
	cache, err := tilecache.Open(opts)
	if err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, metrics: m, cache: cache}
	e.reset(source.NewMemoryStore())
	return e, nil
}

func (e *Engine) reset(store *source.MemoryStore) {
	e.store = store
	e.tiler = tiler.New(store, e.cfg.Tiler(), e.metrics)
}

func (e *Engine) Close() error { return e.cache.Close() }

func (e *Engine) Store() *source.MemoryStore { return e.store }

func (e *Engine) Cache() *tilecache.Cache { return e.cache }

// Load replaces the data set. Every cached tile is dropped since it was cut
// from the previous features.
func (e *Engine) Load(ctx context.Context, fs []source.Feature) error {
	if err := e.cache.Purge(ctx); err != nil {
		return err
	}
	e.reset(source.NewMemoryStore(fs...))
	if err := e.tiler.Prepare(ctx); err != nil {
		return err
	}
	log.WithField("features", e.store.Len()).Info("data set loaded")
	return nil
}

// Insert adds g as a new feature and drops the tiles it lands on.
func (e *Engine) Insert(ctx context.Context, g geom.T) (int64, error) {
	id, _, err := e.store.Insert(ctx, g, nil)
	if err != nil {
		return 0, err
	}
	env, err := e.tiler.Refresh(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := e.cache.Invalidate(ctx, env); err != nil {
		return 0, err
	}
	return id, nil
}

// Tile serves key from the cache, building and caching it on a miss.
func (e *Engine) Tile(ctx context.Context, key geo.Key) (*vectortile.Tile, error) {
	t, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = e.tiler.Build(ctx, key)
	if err != nil {
		e.metrics.TileFailed()
		return nil, errors.Wrapf(err, "tile %s", key)
	}
	if err := e.cache.Put(ctx, key, t); err != nil {
		log.WithError(err).WithField("tile", key.String()).Warn("tile not cached")
	}
	return t, nil
}

func (e *Engine) Envelope(ctx context.Context) geo.Envelope {
	env, err := e.tiler.Envelope(ctx)
	if err != nil {
		log.WithError(err).Warn("data extent unavailable")
		return geo.EmptyEnvelope()
	}
	return env
}

func (e *Engine) Nearest(ctx context.Context, x, y, maxDist float64) (int64, bool) {
	return e.tiler.Nearest(ctx, x, y, maxDist)
}

func (e *Engine) Feature(ctx context.Context, id int64) (*source.Feature, error) {
	return e.store.Feature(ctx, id)
}

// Features lists the loaded features in id order.
func (e *Engine) Features(ctx context.Context) ([]*source.Feature, error) {
	var out []*source.Feature
	e.store.Reset()
	for {
		f, err := e.store.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
}

func (e *Engine) sessionOptions() overlay.Options {
	return overlay.Options{
		Edit:    e.cfg.EditOptions(),
		Cache:   e.cache,
		Tiler:   e.tiler,
		Metrics: e.metrics,
	}
}

// Begin opens feature id for editing.
func (e *Engine) Begin(ctx context.Context, id int64) (*overlay.Session, error) {
	return overlay.Begin(ctx, e.store, id, e.sessionOptions())
}

// Create starts a new feature of kind seeded inside env.
func (e *Engine) Create(kind edit.Kind, env geo.Envelope) *overlay.Session {
	return overlay.Create(e.store, kind, env, e.sessionOptions())
}

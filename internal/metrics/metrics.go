// Package metrics holds the Prometheus collectors for tile builds, the tile
// cache and edit commits. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const namespace = "geomap"

type Metrics struct {
	TilesBuilt    prometheus.Counter
	TileErrors    prometheus.Counter
	BuildDuration prometheus.Histogram
	TileItems     prometheus.Histogram
	CacheHits     *prometheus.CounterVec
	CacheMisses   prometheus.Counter
	Invalidated   prometheus.Counter
	Commits       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TilesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiler",
			Name:      "tiles_built_total",
			Help:      "Tiles built to completion.",
		}),
		TileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiler",
			Name:      "tile_errors_total",
			Help:      "Tile builds that failed or were cancelled.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tiler",
			Name:      "build_duration_seconds",
			Help:      "Time to build one tile.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		TileItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tiler",
			Name:      "tile_items",
			Help:      "Items per built tile.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Tile cache hits by layer.",
		}, []string{"layer"}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Tile cache misses.",
		}),
		Invalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidated_total",
			Help:      "Tiles dropped from the cache by edits.",
		}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "edit",
			Name:      "commits_total",
			Help:      "Edit sessions committed to the store, by operation.",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.TilesBuilt, m.TileErrors, m.BuildDuration, m.TileItems,
			m.CacheHits, m.CacheMisses, m.Invalidated, m.Commits)
	}
	return m
}

func (m *Metrics) TileBuilt(d time.Duration, items int) {
	if m == nil {
		return
	}
	m.TilesBuilt.Inc()
	m.BuildDuration.Observe(d.Seconds())
	m.TileItems.Observe(float64(items))
}

func (m *Metrics) TileFailed() {
	if m == nil {
		return
	}
	m.TileErrors.Inc()
}

// CacheHit counts a hit in layer ("memory" or "disk").
func (m *Metrics) CacheHit(layer string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(layer).Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) TilesInvalidated(n int) {
	if m == nil {
		return
	}
	m.Invalidated.Add(float64(n))
}

// Commit counts an edit commit; op is "update", "insert" or "delete".
func (m *Metrics) Commit(op string) {
	if m == nil {
		return
	}
	m.Commits.WithLabelValues(op).Inc()
}

// Serve exposes gatherer on addr under /metrics in the background.
func Serve(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server")
		}
	}()
	return srv
}

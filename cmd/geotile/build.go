package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"geomap/internal/geo"
	"geomap/internal/metrics"
	"geomap/internal/source"
	"geomap/internal/tilecache"
	"geomap/internal/tiler"
	"geomap/internal/vectortile"
)

type buildOptions struct {
	zoom        string
	workers     int
	cache       string
	projected   bool
	metricsAddr string
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Build every tile covering a file into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.zoom, "zoom", "", "zoom level or range, e.g. 12 or 0-14 (default 0 to tiles.max_zoom)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent tile builds (default tiles.workers)")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "cache directory (default cache.path)")
	cmd.Flags().BoolVar(&opts.projected, "projected", false, "input is already EPSG:3857")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while building")
	return cmd
}

func runBuild(cmd *cobra.Command, root *rootOptions, opts *buildOptions, path string) error {
	ctx := cmd.Context()
	cfg := root.cfg
	minZ, maxZ, err := parseZoomRange(opts.zoom, cfg.Tiles.MaxZoom)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	addr := opts.metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		srv := metrics.Serve(addr, reg)
		defer srv.Close()
	}

	fs, err := source.LoadFile(path, source.LoadOptions{Mercator: !opts.projected})
	if err != nil {
		return err
	}
	tcfg := cfg.Tiler()
	if opts.workers > 0 {
		tcfg.Workers = opts.workers
	}
	tl := tiler.New(source.NewMemoryStore(fs...), tcfg, m)
	keys, err := tl.KeysFor(ctx, minZ, maxZ)
	if err != nil {
		return err
	}

	copts := cfg.CacheOptions()
	if opts.cache != "" {
		copts.Path = opts.cache
	}
	if copts.Path == "" && !copts.InMemory {
		return errors.New("no cache directory: pass --cache or set cache.path")
	}
	copts.Metrics = m
	cache, err := tilecache.Open(copts)
	if err != nil {
		return err
	}
	defer cache.Close()

	log.WithFields(log.Fields{
		"file":     path,
		"features": len(fs),
		"tiles":    len(keys),
		"zoom":     fmt.Sprintf("%d-%d", minZ, maxZ),
		"workers":  tcfg.Workers,
	}).Info("building tiles")
	start := time.Now()
	built, items := 0, 0
	err = tl.BuildAll(ctx, keys, func(key geo.Key, tile *vectortile.Tile) error {
		if tile.Empty() {
			return nil
		}
		built++
		items += tile.Len()
		return cache.Put(ctx, key, tile)
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	log.WithFields(log.Fields{"tiles": built, "items": items, "elapsed": elapsed}).Info("tiles built")
	fmt.Fprintf(cmd.OutOrStdout(), "built %d tiles (%d items) from %d features in %s\n",
		built, items, len(fs), elapsed.Round(time.Millisecond))
	return nil
}

// parseZoomRange reads "z" or "min-max". Empty means 0 to def.
func parseZoomRange(s string, def uint8) (uint8, uint8, error) {
	if s == "" {
		return 0, def, nil
	}
	lo, hi, isRange := strings.Cut(s, "-")
	minZ, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 8)
	if err != nil {
		return 0, 0, errors.Newf("bad zoom %q", s)
	}
	maxZ := minZ
	if isRange {
		if maxZ, err = strconv.ParseUint(strings.TrimSpace(hi), 10, 8); err != nil {
			return 0, 0, errors.Newf("bad zoom %q", s)
		}
	}
	if minZ > maxZ || maxZ > geo.MaxZoom {
		return 0, 0, errors.Newf("zoom range %q must be ascending and at most %d", s, geo.MaxZoom)
	}
	return uint8(minZ), uint8(maxZ), nil
}

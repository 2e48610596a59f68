package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"geomap/internal/geo"
	"geomap/internal/source"
	"geomap/internal/tilecache"
	"geomap/internal/tiler"
	"geomap/internal/vectortile"
)

type inspectOptions struct {
	key       string
	projected bool
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <file|cache-dir>",
		Short: "Describe a tile from a cache directory or cut from a file",
		Long: "Without --key, a cache directory lists how many tiles it holds per zoom.\n" +
			"With --key, the tile is read from the cache or built from the file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.key, "key", "", "tile key as z/x/y[@cross]")
	cmd.Flags().BoolVar(&opts.projected, "projected", false, "file input is already EPSG:3857")
	return cmd
}

func runInspect(cmd *cobra.Command, root *rootOptions, opts *inspectOptions, path string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	st, err := os.Stat(path)
	if err != nil {
		return err
	}

	var key geo.Key
	if opts.key != "" {
		if key, err = geo.ParseKey(opts.key); err != nil {
			return err
		}
	}

	var tile *vectortile.Tile
	if st.IsDir() {
		cache, err := tilecache.Open(tilecache.Options{Path: path})
		if err != nil {
			return err
		}
		defer cache.Close()
		if opts.key == "" {
			return summarizeCache(out, cache)
		}
		var ok bool
		if tile, ok, err = cache.Get(ctx, key); err != nil {
			return err
		} else if !ok {
			return errors.Newf("tile %s not in cache", key)
		}
	} else {
		if opts.key == "" {
			return errors.New("--key is required when inspecting a file")
		}
		fs, err := source.LoadFile(path, source.LoadOptions{Mercator: !opts.projected})
		if err != nil {
			return err
		}
		tl := tiler.New(source.NewMemoryStore(fs...), root.cfg.Tiler(), nil)
		if tile, err = tl.Build(ctx, key); err != nil {
			return err
		}
	}
	describeTile(out, key, tile)
	return nil
}

func summarizeCache(w io.Writer, cache *tilecache.Cache) error {
	fmt.Fprintf(w, "tiles: %d\n", cache.Len())
	for z := uint8(0); z <= geo.MaxZoom; z++ {
		if n := len(cache.KeysAt(z)); n > 0 {
			fmt.Fprintf(w, "  z%-2d %d\n", z, n)
		}
	}
	return nil
}

func describeTile(w io.Writer, key geo.Key, tile *vectortile.Tile) {
	b := key.LonLatBound()
	fmt.Fprintf(w, "tile: %s\n", key)
	fmt.Fprintf(w, "envelope: %s\n", key.Envelope())
	fmt.Fprintf(w, "lon/lat: [%.6f, %.6f, %.6f, %.6f]\n", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	fmt.Fprintf(w, "valid: %v\n", tile.Valid())
	fmt.Fprintf(w, "items: %d\n", tile.Len())
	for i, it := range tile.Items() {
		fmt.Fprintf(w, "  #%d %-7s points=%d indices=%d rings=%d ids=%v\n",
			i, itemKind(it), len(it.Points), len(it.Indices), len(it.BorderIndices), it.IDs())
	}
}

func itemKind(it vectortile.Item) string {
	switch {
	case len(it.BorderIndices) > 0:
		return "polygon"
	case len(it.Indices) > 0:
		return "line"
	default:
		return "point"
	}
}

// Package config loads the YAML configuration shared by geomap and geotile.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"geomap/internal/edit"
	"geomap/internal/geo"
	"geomap/internal/tilecache"
	"geomap/internal/tiler"
)

// EnvPath names the variable consulted when no path is given.
const EnvPath = "GEOMAP_CONFIG"

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Tiles   TilesConfig   `yaml:"tiles"`
	Cache   CacheConfig   `yaml:"cache"`
	Edit    EditConfig    `yaml:"edit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives log output; empty means stderr.
	File string `yaml:"file"`
}

type TilesConfig struct {
	Extent          float64 `yaml:"extent"`
	Buffer          float64 `yaml:"buffer"`
	PixelTolerance  float64 `yaml:"pixel_tolerance"`
	MaxZoom         uint8   `yaml:"max_zoom"`
	Workers         int     `yaml:"workers"`
	CheckDuplicates bool    `yaml:"check_duplicates"`
}

type CacheConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	Compress bool   `yaml:"compress"`
}

type EditConfig struct {
	HistoryLimit int `yaml:"history_limit"`
	// TouchTolerance is the hit radius in screen cells.
	TouchTolerance float64 `yaml:"touch_tolerance"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	t := tiler.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Tiles: TilesConfig{
			Extent:          t.Extent,
			Buffer:          t.Buffer,
			PixelTolerance:  t.PixelTolerance,
			MaxZoom:         14,
			Workers:         t.Workers,
			CheckDuplicates: t.CheckDuplicates,
		},
		Cache: CacheConfig{Compress: true},
		Edit:  EditConfig{HistoryLimit: edit.DefaultHistoryLimit, TouchTolerance: 1},
	}
}

// Load reads path over the defaults. An empty path falls back to
// $GEOMAP_CONFIG, and to the defaults alone when that is unset too.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
		if path == "" {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Tiles.Extent <= 0:
		return errors.Newf("tiles.extent must be positive, got %v", c.Tiles.Extent)
	case c.Tiles.Buffer < 0:
		return errors.Newf("tiles.buffer must not be negative, got %v", c.Tiles.Buffer)
	case c.Tiles.PixelTolerance < 0:
		return errors.Newf("tiles.pixel_tolerance must not be negative, got %v", c.Tiles.PixelTolerance)
	case c.Tiles.MaxZoom > geo.MaxZoom:
		return errors.Newf("tiles.max_zoom must be at most %d, got %d", geo.MaxZoom, c.Tiles.MaxZoom)
	case c.Edit.HistoryLimit < 0:
		return errors.Newf("edit.history_limit must not be negative, got %d", c.Edit.HistoryLimit)
	}
	return nil
}

func (c *Config) Tiler() tiler.Config {
	return tiler.Config{
		Extent:          c.Tiles.Extent,
		Buffer:          c.Tiles.Buffer,
		PixelTolerance:  c.Tiles.PixelTolerance,
		Workers:         c.Tiles.Workers,
		CheckDuplicates: c.Tiles.CheckDuplicates,
	}
}

func (c *Config) CacheOptions() tilecache.Options {
	return tilecache.Options{Path: c.Cache.Path, InMemory: c.Cache.InMemory, Compress: c.Cache.Compress}
}

func (c *Config) EditOptions() edit.Options {
	return edit.Options{HistoryLimit: c.Edit.HistoryLimit}
}

package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"geomap/internal/geo/backend"
)

type LoadOptions struct {
	// Mercator projects WGS84 input to EPSG:3857.
	Mercator bool
	// FirstID numbers features that carry no usable id. Zero starts at 1.
	FirstID int64
}

// Extensions lists the file types LoadFile understands.
var Extensions = []string{".geojson", ".json", ".wkt", ".csv", ".kml"}

// Supported reports whether LoadFile can read path.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// LoadFile reads features from a GeoJSON, WKT, CSV or KML file.
func LoadFile(path string, opts LoadOptions) ([]Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fs []Feature
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		fs, err = parseGeoJSON(data)
	case ".wkt":
		fs, err = parseWKTLines(string(data))
	case ".csv":
		fs, err = parseCSV(data)
	case ".kml":
		fs, err = parseKML(data)
	default:
		return nil, errors.Newf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", filepath.Base(path))
	}
	if len(fs) == 0 {
		return nil, errors.Newf("load %s: no geometries found", filepath.Base(path))
	}
	return finish(fs, opts)
}

// ParseWKT reads a single geometry, e.g. from the clipboard.
func ParseWKT(text string) (geom.T, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, errors.New("empty wkt")
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "wkt")
	}
	return g, nil
}

// parseWKTLines reads one geometry per non-blank line.
func parseWKTLines(text string) ([]Feature, error) {
	var fs []Feature
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		g, err := ParseWKT(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", i+1)
		}
		fs = append(fs, Feature{Geometry: g})
	}
	return fs, nil
}

// finish assigns missing ids and applies projection.
func finish(fs []Feature, opts LoadOptions) ([]Feature, error) {
	next := opts.FirstID
	if next == 0 {
		next = 1
	}
	used := make(map[int64]bool, len(fs))
	for _, f := range fs {
		if f.ID != 0 {
			used[f.ID] = true
		}
	}
	out := fs[:0]
	for _, f := range fs {
		if f.ID == 0 {
			for used[next] {
				next++
			}
			f.ID = next
			used[next] = true
		}
		if opts.Mercator {
			g, err := ToMercator(f.Geometry)
			if err != nil {
				log.WithError(err).WithField("feature", f.ID).Warn("skipping feature")
				continue
			}
			f.Geometry = g
		}
		out = append(out, f)
	}
	return out, nil
}

// ToMercator projects a WGS84 geometry to EPSG:3857.
func ToMercator(g geom.T) (geom.T, error) {
	h, err := backend.ToBackend(g)
	if err != nil {
		return nil, err
	}
	out := backend.ToNative(backend.ToMercator(h))
	if out == nil {
		return nil, errors.New("geometry empty after projection")
	}
	return out, nil
}

// ToWGS84 reverses ToMercator.
func ToWGS84(g geom.T) (geom.T, error) {
	h, err := backend.ToBackend(g)
	if err != nil {
		return nil, err
	}
	out := backend.ToNative(backend.ToWGS84(h))
	if out == nil {
		return nil, errors.New("geometry empty after projection")
	}
	return out, nil
}

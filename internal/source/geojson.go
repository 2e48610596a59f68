package source

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// parseGeoJSON accepts a FeatureCollection, a single Feature or a bare
// geometry object. Feature ids may be numbers or numeric strings.
func parseGeoJSON(data []byte) ([]Feature, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid json")
	}
	doc := gjson.ParseBytes(data)
	switch t := doc.Get("type").String(); t {
	case "FeatureCollection":
		var (
			fs  []Feature
			err error
		)
		doc.Get("features").ForEach(func(i, v gjson.Result) bool {
			var f Feature
			var ok bool
			if f, ok, err = featureFromJSON(v); err != nil {
				err = errors.Wrapf(err, "feature %d", i.Int())
				return false
			}
			if ok {
				fs = append(fs, f)
			}
			return true
		})
		return fs, err
	case "Feature":
		f, ok, err := featureFromJSON(doc)
		if err != nil || !ok {
			return nil, err
		}
		return []Feature{f}, nil
	case "":
		return nil, errors.New("invalid geojson: missing type")
	default:
		g, err := geometryFromJSON(doc.Raw)
		if err != nil {
			return nil, err
		}
		return []Feature{{Geometry: g}}, nil
	}
}

// featureFromJSON reports false for features without geometry.
func featureFromJSON(v gjson.Result) (Feature, bool, error) {
	raw := v.Get("geometry")
	if !raw.IsObject() {
		return Feature{}, false, nil
	}
	g, err := geometryFromJSON(raw.Raw)
	if err != nil {
		return Feature{}, false, err
	}
	f := Feature{Geometry: g}
	if id := v.Get("id"); id.Exists() && id.Int() > 0 {
		f.ID = id.Int()
	}
	if props := v.Get("properties"); props.IsObject() {
		if err := json.Unmarshal([]byte(props.Raw), &f.Attributes); err != nil {
			return Feature{}, false, errors.Wrap(err, "properties")
		}
	}
	return f, true, nil
}

func geometryFromJSON(raw string) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, errors.Wrap(err, "geojson geometry")
	}
	return g, nil
}

// WriteGeoJSON encodes fs as a FeatureCollection. With wgs84 set the
// geometries are unprojected from EPSG:3857 first.
func WriteGeoJSON(w io.Writer, fs []*Feature, wgs84 bool) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(fs))}
	for _, f := range fs {
		g := f.Geometry
		if wgs84 {
			var err error
			if g, err = ToWGS84(g); err != nil {
				return errors.Wrapf(err, "feature %d", f.ID)
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.FormatInt(f.ID, 10),
			Geometry:   g,
			Properties: f.Attributes,
		})
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode geojson")
	}
	_, err = w.Write(data)
	return err
}

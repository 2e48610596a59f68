package source

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

type kmlCoords struct {
	Coordinates string `xml:"coordinates"`
}

type kmlBoundary struct {
	Ring kmlCoords `xml:"LinearRing"`
}

type kmlPolygon struct {
	Outer kmlBoundary   `xml:"outerBoundaryIs"`
	Inner []kmlBoundary `xml:"innerBoundaryIs"`
}

type kmlPlacemark struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description"`
	Point       *kmlCoords  `xml:"Point"`
	LineString  *kmlCoords  `xml:"LineString"`
	Polygon     *kmlPolygon `xml:"Polygon"`
}

// Placemarks may sit directly under kml, in a Document or in Folders.
type kmlContainer struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Folders    []kmlContainer `xml:"Folder"`
	Documents  []kmlContainer `xml:"Document"`
}

func (c kmlContainer) walk(fn func(kmlPlacemark)) {
	for _, pm := range c.Placemarks {
		fn(pm)
	}
	for _, f := range c.Folders {
		f.walk(fn)
	}
	for _, d := range c.Documents {
		d.walk(fn)
	}
}

// parseKML extracts Point, LineString and Polygon placemarks. KML
// coordinates are "lon,lat[,alt]"; altitude is ignored.
func parseKML(data []byte) ([]Feature, error) {
	var doc kmlContainer
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "kml")
	}
	var fs []Feature
	doc.walk(func(pm kmlPlacemark) {
		var g geom.T
		switch {
		case pm.Point != nil:
			if fc := kmlFlat(pm.Point.Coordinates); len(fc) >= 2 {
				g = geom.NewPointFlat(geom.XY, fc[:2])
			}
		case pm.LineString != nil:
			if fc := kmlFlat(pm.LineString.Coordinates); len(fc) >= 4 {
				g = geom.NewLineStringFlat(geom.XY, fc)
			}
		case pm.Polygon != nil:
			fc := kmlFlat(pm.Polygon.Outer.Ring.Coordinates)
			if len(fc) < 6 {
				return
			}
			ends := []int{len(fc)}
			for _, in := range pm.Polygon.Inner {
				if hole := kmlFlat(in.Ring.Coordinates); len(hole) >= 6 {
					fc = append(fc, hole...)
					ends = append(ends, len(fc))
				}
			}
			g = geom.NewPolygonFlat(geom.XY, fc, ends)
		}
		if g == nil {
			return
		}
		f := Feature{Geometry: g}
		if pm.Name != "" || pm.Description != "" {
			f.Attributes = map[string]interface{}{"name": pm.Name}
			if pm.Description != "" {
				f.Attributes["description"] = pm.Description
			}
		}
		fs = append(fs, f)
	})
	return fs, nil
}

func kmlFlat(coords string) []float64 {
	var fc []float64
	for _, tuple := range strings.Fields(coords) {
		vals := strings.Split(tuple, ",")
		if len(vals) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(vals[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		fc = append(fc, lon, lat)
	}
	return fc
}

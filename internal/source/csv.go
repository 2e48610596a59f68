package source

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

// parseCSV reads one point per row from latitude and longitude columns
// (lat|latitude|y, lon|lng|long|longitude|x; case-insensitive). An id
// column numbers the features; every other column becomes an attribute.
// Rows with unparsable coordinates are skipped.
func parseCSV(data []byte) ([]Feature, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "csv")
	}
	if len(recs) == 0 {
		return nil, errors.New("empty csv")
	}
	header := recs[0]
	idxLat, idxLon, idxID := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lat", "latitude", "y":
			if idxLat == -1 {
				idxLat = i
			}
		case "lon", "lng", "long", "longitude", "x":
			if idxLon == -1 {
				idxLon = i
			}
		case "id", "fid":
			if idxID == -1 {
				idxID = i
			}
		}
	}
	if idxLat == -1 || idxLon == -1 {
		return nil, errors.New("csv: latitude/longitude columns not found")
	}

	var fs []Feature
	for _, row := range recs[1:] {
		if idxLon >= len(row) || idxLat >= len(row) {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(row[idxLon]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(row[idxLat]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		f := Feature{Geometry: geom.NewPointFlat(geom.XY, []float64{lon, lat})}
		for i, v := range row {
			switch {
			case i == idxLat || i == idxLon || i >= len(header):
			case i == idxID:
				if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && id > 0 {
					f.ID = id
				}
			default:
				if f.Attributes == nil {
					f.Attributes = make(map[string]interface{})
				}
				f.Attributes[header[i]] = v
			}
		}
		fs = append(fs, f)
	}
	if len(fs) == 0 {
		return nil, errors.New("csv: no valid points parsed")
	}
	return fs, nil
}

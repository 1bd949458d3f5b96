// Package export turns core data into interchange values: GeoJSON for
// map tooling and CSV with grid coordinates for field paperwork. File
// format grammar beyond that is the consumer's business.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"fieldnav/pkg/model"
	"fieldnav/pkg/utm"
)

// WaypointsGeoJSON renders the waypoint collection as a
// FeatureCollection of points.
func WaypointsGeoJSON(wps []model.Waypoint) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, wp := range wps {
		f := geojson.NewFeature(orb.Point{wp.Lon, wp.Lat})
		f.Properties["id"] = wp.ID
		f.Properties["grid"] = utm.Coordinate{
			Zone: wp.Zone, Band: wp.Band, Easting: wp.Easting, Northing: wp.Northing,
		}.String()
		if wp.Type != "" {
			f.Properties["type"] = wp.Type
		}
		if wp.Note != "" {
			f.Properties["note"] = wp.Note
		}
		if wp.Timestamp != "" {
			f.Properties["timestamp"] = wp.Timestamp
		}
		if wp.Altitude != nil {
			f.Properties["altitude"] = *wp.Altitude
		}
		fc.Append(f)
	}
	return json.Marshal(fc)
}

// TrackGeoJSON renders the recorded track as a single LineString
// feature. An empty track yields an empty FeatureCollection.
func TrackGeoJSON(points []model.TrackPoint) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	if len(points) > 0 {
		line := make(orb.LineString, len(points))
		for i, p := range points {
			line[i] = orb.Point{p.Lon, p.Lat}
		}
		fc.Append(geojson.NewFeature(line))
	}
	return json.Marshal(fc)
}

// WaypointsCSV renders the collection with grid coordinates. A zone
// override > 0 reprojects every point into that zone so the whole set
// shares one grid; zone 0 keeps each point's native zone.
func WaypointsCSV(wps []model.Waypoint, zone int) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "lat", "lon", "zone", "band", "easting", "northing", "altitude", "accuracy", "timestamp", "type", "note"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, wp := range wps {
		coord := utm.Coordinate{
			Zone: wp.Zone, Band: wp.Band, Easting: wp.Easting, Northing: wp.Northing,
		}
		if zone > 0 {
			c, err := utm.FromLatLonZone(wp.Lat, wp.Lon, zone)
			if err != nil {
				return nil, err
			}
			coord = c
		}

		rec := []string{
			wp.ID,
			strconv.FormatFloat(wp.Lat, 'f', -1, 64),
			strconv.FormatFloat(wp.Lon, 'f', -1, 64),
			strconv.Itoa(coord.Zone),
			coord.Band,
			strconv.Itoa(coord.Easting),
			strconv.Itoa(coord.Northing),
			optFloat(wp.Altitude),
			optFloat(wp.Accuracy),
			wp.Timestamp,
			wp.Type,
			wp.Note,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

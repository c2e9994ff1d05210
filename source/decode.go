package source

import (
	"fmt"
	"time"

	"github.com/rotblauer/cleanspeed/types/trip"
	"github.com/tidwall/gjson"
)

// Decode parses one fix from JSON. Two shapes are understood:
//
// flat objects,
//
//	{"lat": 37.77, "lon": -122.42, "time": "2024-06-01T12:00:00Z", "accuracy": 5, "speed": 1.2}
//
// where latitude/longitude/lng and ts/timestamp (unix milliseconds) are also accepted,
// and GeoJSON point features as recorded by Cat Tracks,
//
//	{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.42, 37.77]},
//	 "properties": {"UnixTime": 1717243200, "Accuracy": 5, "Speed": 1.2}}
//
// Decode does not validate coordinate ranges; see trip.RawFix.Valid.
func Decode(data []byte) (trip.RawFix, error) {
	if !gjson.ValidBytes(data) {
		return trip.RawFix{}, fmt.Errorf("invalid json: %.64s", data)
	}
	if gjson.GetBytes(data, "geometry.coordinates").Exists() {
		return decodeFeature(data)
	}
	return decodeFlat(data)
}

func decodeFeature(data []byte) (trip.RawFix, error) {
	coords := gjson.GetBytes(data, "geometry.coordinates").Array()
	if len(coords) < 2 {
		return trip.RawFix{}, fmt.Errorf("%w: geometry.coordinates", ErrMissingAttribute)
	}
	fix := trip.RawFix{
		Longitude: coords[0].Float(),
		Latitude:  coords[1].Float(),
	}

	props := gjson.GetBytes(data, "properties")
	if unix := props.Get("UnixTime"); unix.Exists() {
		fix.Time = time.Unix(unix.Int(), 0).UTC()
	} else if ts := props.Get("Time"); ts.Exists() {
		t, err := time.Parse(time.RFC3339, ts.String())
		if err != nil {
			return trip.RawFix{}, fmt.Errorf("properties.Time: %w", err)
		}
		fix.Time = t
	} else {
		return trip.RawFix{}, fmt.Errorf("%w: properties.UnixTime or properties.Time", ErrMissingAttribute)
	}

	fix.Accuracy = optional(props.Get("Accuracy"))
	fix.Speed = optional(props.Get("Speed"))
	return fix, nil
}

func decodeFlat(data []byte) (trip.RawFix, error) {
	lat := first(data, "lat", "latitude")
	lon := first(data, "lon", "lng", "longitude")
	if !lat.Exists() || !lon.Exists() {
		return trip.RawFix{}, fmt.Errorf("%w: lat/lon", ErrMissingAttribute)
	}
	fix := trip.RawFix{
		Latitude:  lat.Float(),
		Longitude: lon.Float(),
	}

	if ts := gjson.GetBytes(data, "time"); ts.Exists() {
		t, err := time.Parse(time.RFC3339Nano, ts.String())
		if err != nil {
			return trip.RawFix{}, fmt.Errorf("time: %w", err)
		}
		fix.Time = t
	} else if ms := first(data, "ts", "timestamp"); ms.Exists() {
		fix.Time = time.UnixMilli(ms.Int()).UTC()
	} else {
		return trip.RawFix{}, fmt.Errorf("%w: time", ErrMissingAttribute)
	}

	fix.Accuracy = optional(gjson.GetBytes(data, "accuracy"))
	fix.Speed = optional(gjson.GetBytes(data, "speed"))
	return fix, nil
}

func first(data []byte, paths ...string) gjson.Result {
	for _, r := range gjson.GetManyBytes(data, paths...) {
		if r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func optional(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	return trip.Float(r.Float())
}

package trip

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/cleanspeed/common"
	"github.com/rotblauer/cleanspeed/units"
)

// Feature renders the trip as a GeoJSON feature for review and export.
// The geometry is a LineString through the retained waypoints
// (a Point for single-waypoint trips), and the properties carry the trip stats.
func (t *CompletedTrip) Feature() *geojson.Feature {
	var geometry orb.Geometry
	line := make(orb.LineString, 0, len(t.Points))
	for _, p := range t.Points {
		line = append(line, orb.Point{p.Longitude, p.Latitude})
	}
	if len(line) == 1 {
		geometry = line[0]
	} else {
		geometry = line
	}

	f := geojson.NewFeature(geometry)
	f.ID = t.ID
	f.Properties["Time_Start_Unix"] = t.StartTime.Unix()
	f.Properties["Time_Start_RFC3339"] = t.StartTime.Format(time.RFC3339)
	f.Properties["Time_End_Unix"] = t.EndTime.Unix()
	f.Properties["Time_End_RFC3339"] = t.EndTime.Format(time.RFC3339)
	f.Properties["Duration"] = t.DurationSeconds
	f.Properties["Distance"] = math.Round(t.DistanceMeters)
	f.Properties["Speed_Average"] = common.DecimalToFixed(t.AvgSpeedMps, 2)
	f.Properties["Speed_Max"] = common.DecimalToFixed(t.MaxSpeedMps, 2)
	f.Properties["Units"] = t.Units.String()
	f.Properties["Distance_Display"] = units.FormatDistance(t.DistanceMeters, t.Units)
	f.Properties["WayPointCount"] = len(t.Points)
	if t.StartPlace != "" {
		f.Properties["Place_Start"] = t.StartPlace
	}
	if t.EndPlace != "" {
		f.Properties["Place_End"] = t.EndPlace
	}

	speeds := make([]float64, 0, len(t.Points))
	for _, p := range t.Points {
		speeds = append(speeds, p.SpeedMps)
	}
	installStats := func(key string, fn func(stats.Float64Data) (float64, error)) {
		v, err := fn(stats.Float64Data(speeds))
		if err != nil {
			v = 0
		}
		f.Properties[key] = common.DecimalToFixed(v, 2)
	}
	installStats("Speed_WayPoints_Mean", stats.Float64Data.Mean)
	installStats("Speed_WayPoints_Median", stats.Float64Data.Median)
	installStats("Speed_WayPoints_Min", stats.Float64Data.Min)
	installStats("Speed_WayPoints_Max", stats.Float64Data.Max)

	return f
}

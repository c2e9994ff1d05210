package common

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean radius of the sphere used for great-circle distances.
const EarthRadiusMeters = 6_371_000.0

// DistanceMeters returns the great-circle distance between two coordinates
// given in degrees, on a sphere of EarthRadiusMeters.
// s2 computes the central angle with the haversine formula.
// The result is never negative.
// Non-finite inputs yield NaN; callers are expected to validate coordinates first.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * EarthRadiusMeters
}

// ValidCoordinate reports whether lat, lon are finite and within their ranges.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

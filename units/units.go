// Package units converts the canonical internal units (meters, meters/second)
// into one of the display unit systems.
package units

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// System is a display unit system.
type System int

const (
	Imperial System = iota // mph, miles
	Metric                 // km/h, kilometers
	Nautical               // knots, nautical miles
)

// DefaultSystem is used when no preference has been stored.
const DefaultSystem = Imperial

const (
	mpsToMph   = 2.23693629
	mpsToKmh   = 3.6
	mpsToKnots = 1.94384449

	metersPerMile         = 1609.344
	metersPerKilometer    = 1000.0
	metersPerNauticalMile = 1852.0
)

// Systems lists every supported system.
var Systems = []System{Imperial, Metric, Nautical}

// SpeedFromMps converts a speed in meters per second to the system's speed unit.
// No rounding is applied.
func SpeedFromMps(mps float64, sys System) float64 {
	switch sys {
	case Metric:
		return mps * mpsToKmh
	case Nautical:
		return mps * mpsToKnots
	default:
		return mps * mpsToMph
	}
}

// DistanceFromMeters converts a distance in meters to the system's distance unit.
// No rounding is applied.
func DistanceFromMeters(meters float64, sys System) float64 {
	switch sys {
	case Metric:
		return meters / metersPerKilometer
	case Nautical:
		return meters / metersPerNauticalMile
	default:
		return meters / metersPerMile
	}
}

// SpeedLabel is the short label of the system's speed unit.
func SpeedLabel(sys System) string {
	switch sys {
	case Metric:
		return "km/h"
	case Nautical:
		return "kn"
	default:
		return "mph"
	}
}

// DistanceLabel is the short label of the system's distance unit.
func DistanceLabel(sys System) string {
	switch sys {
	case Metric:
		return "km"
	case Nautical:
		return "nm"
	default:
		return "mi"
	}
}

func (s System) String() string {
	switch s {
	case Imperial:
		return "imperial"
	case Metric:
		return "metric"
	case Nautical:
		return "nautical"
	}
	return fmt.Sprintf("System(%d)", int(s))
}

// ParseSystem parses a system name, case-insensitively.
// The speed-unit names MPH, KMH and KNOTS are accepted as aliases.
func ParseSystem(name string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "imperial", "mph":
		return Imperial, nil
	case "metric", "kmh", "km/h":
		return Metric, nil
	case "nautical", "knots", "kn":
		return Nautical, nil
	}
	return DefaultSystem, fmt.Errorf("unknown unit system %q", name)
}

func (s System) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *System) UnmarshalText(text []byte) error {
	v, err := ParseSystem(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Format renders v rounded half away from zero to the given number of decimal places.
func Format(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatSpeed renders a speed in meters per second for display, eg. "36.0 km/h".
func FormatSpeed(mps float64, sys System) string {
	return Format(SpeedFromMps(mps, sys), 1) + " " + SpeedLabel(sys)
}

// FormatDistance renders a distance in meters for display, eg. "1.25 mi".
func FormatDistance(meters float64, sys System) string {
	return Format(DistanceFromMeters(meters, sys), 2) + " " + DistanceLabel(sys)
}

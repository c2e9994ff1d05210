package trip

import (
	"time"

	"github.com/rotblauer/cleanspeed/common"
)

// RawFix is one location observation from a positioning source.
// Accuracy (meters) and Speed (meters/second) are optional; nil means not reported.
type RawFix struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Time      time.Time `json:"time"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
}

// Valid reports whether the fix has usable coordinates and a timestamp.
func (f RawFix) Valid() bool {
	return !f.Time.IsZero() && common.ValidCoordinate(f.Latitude, f.Longitude)
}

// ReportedSpeed returns the fix's own speed, if it has a non-negative one.
func (f RawFix) ReportedSpeed() (float64, bool) {
	if f.Speed == nil || *f.Speed < 0 {
		return 0, false
	}
	return *f.Speed, true
}

// Float is a convenience for filling the optional fields.
func Float(v float64) *float64 {
	return &v
}

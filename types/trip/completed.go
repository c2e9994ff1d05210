package trip

import (
	"time"

	"github.com/rotblauer/cleanspeed/units"
)

// CompletedTrip is a finalized, persisted trip record.
// It is immutable once stored.
type CompletedTrip struct {
	ID              uint64       `json:"id"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	DurationSeconds int64        `json:"duration_seconds"`
	DistanceMeters  float64      `json:"distance_meters"`
	AvgSpeedMps     float64      `json:"avg_speed_mps"`
	MaxSpeedMps     float64      `json:"max_speed_mps"`
	Units           units.System `json:"units"`
	StartPlace      string       `json:"start_place,omitempty"`
	EndPlace        string       `json:"end_place,omitempty"`
	Points          []WayPoint   `json:"points,omitempty"`
}

// NewCompletedTrip translates a stopped snapshot into a trip record.
// The points are copied; the record shares nothing with the tracker.
// If the snapshot has no end time, end is used.
func NewCompletedTrip(s TrackingSnapshot, sys units.System, end time.Time) *CompletedTrip {
	if !s.EndTime.IsZero() {
		end = s.EndTime
	}
	points := make([]WayPoint, len(s.Points))
	copy(points, s.Points)
	return &CompletedTrip{
		StartTime:       s.StartTime,
		EndTime:         end,
		DurationSeconds: s.ElapsedSeconds,
		DistanceMeters:  s.DistanceMeters,
		AvgSpeedMps:     s.AvgSpeedMps,
		MaxSpeedMps:     s.MaxSpeedMps,
		Units:           sys,
		Points:          points,
	}
}

// Summary returns a copy of the trip without its points.
func (t *CompletedTrip) Summary() CompletedTrip {
	cp := *t
	cp.Points = nil
	return cp
}

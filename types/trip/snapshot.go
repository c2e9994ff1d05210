package trip

import "time"

// WayPoint is a retained, down-sampled trip sample.
type WayPoint struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Time      time.Time `json:"time"`
	SpeedMps  float64   `json:"speed_mps"`
}

// TrackingSnapshot is the complete observable state of a trip at one instant.
// Snapshots are values; the tracker replaces them wholesale on every update.
// Points must be treated as read-only.
type TrackingSnapshot struct {
	Status    Status    `json:"status"`
	StartTime time.Time `json:"start_time"`
	// EndTime is set when the trip is stopped.
	EndTime        time.Time  `json:"end_time"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	DistanceMeters float64    `json:"distance_meters"`
	SpeedMps       float64    `json:"speed_mps"`
	AvgSpeedMps    float64    `json:"avg_speed_mps"`
	MaxSpeedMps    float64    `json:"max_speed_mps"`
	WeakSignal     bool       `json:"weak_signal"`
	Points         []WayPoint `json:"points"`
}

// Started reports whether the snapshot belongs to a trip that has been started.
func (s TrackingSnapshot) Started() bool {
	return !s.StartTime.IsZero()
}

// Empty is true for a started trip that recorded neither time nor distance.
func (s TrackingSnapshot) Empty() bool {
	return s.ElapsedSeconds == 0 && s.DistanceMeters <= 0
}

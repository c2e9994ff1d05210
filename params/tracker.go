package params

import "time"

type TrackerConfig struct {
	// AccuracyThreshold is the worst reported accuracy (meters) a fix may have and still be used.
	// Fixes reporting a larger value raise the weak signal flag and are discarded.
	AccuracyThreshold float64 `mapstructure:"accuracy_threshold"`

	// MaxFixGap is the longest time between two accepted fixes.
	// A fix arriving later than this after the previous one
	// (app backgrounded, signal lost, GPS jump) is discarded entirely.
	MaxFixGap time.Duration `mapstructure:"max_fix_gap"`

	// SampleInterval is the minimum spacing between retained waypoints.
	SampleInterval time.Duration `mapstructure:"sample_interval"`

	// MaxWayPoints caps the retained waypoints per trip.
	// Accumulation continues once the cap is reached; only retention stops.
	MaxWayPoints int `mapstructure:"max_waypoints"`

	// TickInterval is how often elapsed time and average speed are recomputed.
	TickInterval time.Duration `mapstructure:"tick_interval"`

	// StatsInterval, if positive, periodically logs ingest statistics.
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		AccuracyThreshold: 25,
		MaxFixGap:         15 * time.Second,
		SampleInterval:    2000 * time.Millisecond,
		MaxWayPoints:      10_000,
		TickInterval:      time.Second,
		StatsInterval:     0,
	}
}

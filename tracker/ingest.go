package tracker

import (
	"github.com/rotblauer/cleanspeed/common"
	"github.com/rotblauer/cleanspeed/types/trip"
)

// Outcome describes what Ingest did with a fix.
// It is advisory; no outcome is an error.
type Outcome int

const (
	// Accepted fixes updated distance, speed and possibly the waypoints.
	Accepted Outcome = iota
	// Ignored fixes arrived while the trip was not Running.
	Ignored
	// Malformed fixes had unusable coordinates or no timestamp.
	Malformed
	// WeakSignal fixes reported an accuracy worse than the threshold.
	WeakSignal
	// Stale fixes came too long after the previous accepted fix.
	Stale
	// OutOfOrder fixes were older than the previous accepted fix.
	OutOfOrder
)

var outcomeNames = [...]string{
	Accepted:   "accepted",
	Ignored:    "ignored",
	Malformed:  "malformed",
	WeakSignal: "weak",
	Stale:      "stale",
	OutOfOrder: "out_of_order",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Ingest feeds one fix to the trip. Only fixes arriving while Running are used.
func (t *Tracker) Ingest(fix trip.RawFix) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	o := t.ingestLocked(fix)
	t.meter.mark(o)
	return o
}

func (t *Tracker) ingestLocked(fix trip.RawFix) Outcome {
	if t.working.Status != trip.Running {
		return Ignored
	}
	if !fix.Valid() {
		t.logger.Debug("Discarded malformed fix", "fix", fix)
		return Malformed
	}

	if fix.Accuracy != nil && *fix.Accuracy > t.config.AccuracyThreshold {
		if !t.working.WeakSignal {
			t.logger.Warn("Weak GPS signal", "accuracy", *fix.Accuracy)
			t.working.WeakSignal = true
			t.publishLocked()
		}
		return WeakSignal
	}

	prev := t.previous
	elapsed := 0.0
	if prev != nil {
		dt := fix.Time.Sub(prev.Time)
		if dt < 0 {
			return OutOfOrder
		}
		if dt > t.config.MaxFixGap {
			t.logger.Debug("Discarded fix after gap", "gap", dt)
			return Stale
		}
		elapsed = dt.Seconds()
	}

	speed, reported := fix.ReportedSpeed()
	distance := 0.0
	if prev != nil {
		distance = common.DistanceMeters(prev.Latitude, prev.Longitude, fix.Latitude, fix.Longitude)
		if !reported && elapsed > 0 {
			speed = distance / elapsed
		}
	}

	t.working.WeakSignal = false
	t.working.DistanceMeters += distance
	t.working.SpeedMps = speed
	t.working.MaxSpeedMps = max(t.working.MaxSpeedMps, speed)
	t.retainLocked(fix, speed)

	accepted := fix
	t.previous = &accepted

	t.refreshLocked(t.now())
	t.publishLocked()
	return Accepted
}

// retainLocked appends a waypoint if the sampling interval has passed since
// the last retained one and the cap has not been reached.
// The first fix of a trip is always retained.
func (t *Tracker) retainLocked(fix trip.RawFix, speed float64) {
	if len(t.points) >= t.config.MaxWayPoints {
		return
	}
	if n := len(t.points); n > 0 && fix.Time.Sub(t.points[n-1].Time) < t.config.SampleInterval {
		return
	}
	t.points = append(t.points, trip.WayPoint{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Time:      fix.Time,
		SpeedMps:  speed,
	})
}

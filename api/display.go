package api

import (
	"fmt"

	"github.com/rotblauer/cleanspeed/types/trip"
	"github.com/rotblauer/cleanspeed/units"
)

// Display is a snapshot rendered in a unit system.
type Display struct {
	Units      units.System `json:"units"`
	SpeedLabel string       `json:"speed_label"`
	Speed      string       `json:"speed"`
	AvgSpeed   string       `json:"avg_speed"`
	MaxSpeed   string       `json:"max_speed"`
	Distance   string       `json:"distance"`
	Elapsed    string       `json:"elapsed"`
	Status     trip.Status  `json:"status"`
	WeakSignal bool         `json:"weak_signal"`
}

func NewDisplay(s trip.TrackingSnapshot, sys units.System) Display {
	return Display{
		Units:      sys,
		SpeedLabel: units.SpeedLabel(sys),
		Speed:      units.Format(units.SpeedFromMps(s.SpeedMps, sys), 1),
		AvgSpeed:   units.Format(units.SpeedFromMps(s.AvgSpeedMps, sys), 1),
		MaxSpeed:   units.Format(units.SpeedFromMps(s.MaxSpeedMps, sys), 1),
		Distance:   units.FormatDistance(s.DistanceMeters, sys),
		Elapsed:    FormatElapsed(s.ElapsedSeconds),
		Status:     s.Status,
		WeakSignal: s.WeakSignal,
	}
}

// FormatElapsed renders seconds as HH:MM:SS, or MM:SS under an hour.
func FormatElapsed(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

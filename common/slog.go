package common

import "log/slog"

// SlogResetLevel sets the slog level and returns a function that restores the previous one.
// Pairs well with defer:
//
//	defer common.SlogResetLevel(slog.LevelError)()
func SlogResetLevel(level slog.Level) (reset func()) {
	oldLevel := slog.SetLogLoggerLevel(level)
	return func() {
		slog.SetLogLoggerLevel(oldLevel)
	}
}

// Package source provides location fix sources for a trip.
//
// A Source delivers fixes to a Sink only between Start and Stop.
// The controller starts a source when a trip runs and stops it when the
// trip pauses or ends, so fixes never reach a tracker that would ignore them.
package source

import (
	"context"
	"errors"

	"github.com/rotblauer/cleanspeed/types/trip"
)

var (
	// ErrUnavailable means the positioning source cannot be used,
	// eg. permission was denied or the input cannot be opened.
	ErrUnavailable = errors.New("location source unavailable")

	// ErrInactive is returned to producers pushing fixes while the source is stopped.
	ErrInactive = errors.New("location source inactive")

	ErrMissingAttribute = errors.New("missing attribute")
)

// Sink receives fixes.
type Sink func(trip.RawFix)

type Source interface {
	// Start begins delivering fixes to sink. Starting a started source is a no-op.
	Start(ctx context.Context, sink Sink) error
	// Stop ends delivery. When Stop returns, sink will not be called again.
	Stop()
}

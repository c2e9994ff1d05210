// Package api is the controller between a presentation (CLI, web daemon)
// and the trip machinery: tracker, fix source, trip store and preferences.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rotblauer/cleanspeed/events"
	"github.com/rotblauer/cleanspeed/rgeo"
	"github.com/rotblauer/cleanspeed/source"
	"github.com/rotblauer/cleanspeed/state"
	"github.com/rotblauer/cleanspeed/tracker"
	"github.com/rotblauer/cleanspeed/types/trip"
	"github.com/rotblauer/cleanspeed/units"
)

// TripStore persists completed trips. state.Trips implements it.
type TripStore interface {
	Insert(ctx context.Context, t *trip.CompletedTrip) (uint64, error)
	Recent(ctx context.Context, n int) ([]trip.CompletedTrip, error)
	Get(ctx context.Context, id uint64) (*trip.CompletedTrip, error)
}

// PrefStore holds user preferences. state.Prefs implements it.
type PrefStore interface {
	Get() state.Preferences
	SetUnits(sys units.System) error
	SetKeepAwake(v bool) error
}

// App drives one tracker. Commands are serialized; the tracker itself
// may be read (Snapshot, Subscribe) concurrently at any time.
type App struct {
	tracker *tracker.Tracker
	source  source.Source
	trips   TripStore
	prefs   PrefStore
	placer  rgeo.Placer
	logger  *slog.Logger
	now     func() time.Time

	mu               sync.Mutex
	saved            *trip.CompletedTrip
	selected         *trip.CompletedTrip
	permissionDenied bool
}

type Option func(*App)

// WithPlacer labels saved trips' endpoints with place names.
// A placer with a Load method (rgeo.Geocoder) is loaded in the background,
// so a slow first load does not hold up the first save.
func WithPlacer(p rgeo.Placer) Option {
	return func(a *App) {
		a.placer = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

func New(t *tracker.Tracker, src source.Source, trips TripStore, prefs PrefStore, opts ...Option) *App {
	a := &App{
		tracker: t,
		source:  src,
		trips:   trips,
		prefs:   prefs,
		logger:  slog.With("d", "app"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if l, ok := a.placer.(rgeo.Loader); ok {
		go func() {
			if err := l.Load(); err != nil {
				a.logger.Warn("Place labels unavailable", "error", err)
			}
		}()
	}
	return a
}

func (a *App) Tracker() *tracker.Tracker {
	return a.tracker
}

func (a *App) ingest(fix trip.RawFix) {
	a.tracker.Ingest(fix)
}

// startSourceLocked starts fix delivery. The source outlives the request
// that started the trip, so it gets a context that is never canceled.
// A source failure is recorded as a permission problem; the trip keeps running.
func (a *App) startSourceLocked(ctx context.Context) {
	if err := a.source.Start(context.WithoutCancel(ctx), a.ingest); err != nil {
		a.logger.Warn("Location source unavailable", "error", err)
		a.permissionDenied = true
		return
	}
	a.permissionDenied = false
}

// Start begins a new trip and its fix delivery.
// It is a no-op while a trip is running or paused.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tracker.Status().Active() {
		return
	}
	a.tracker.Start()
	a.saved = nil
	a.startSourceLocked(ctx)
}

// PauseOrResume pauses a running trip or resumes a paused one.
// Fix delivery stops while paused.
func (a *App) PauseOrResume(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.tracker.Status() {
	case trip.Running:
		a.source.Stop()
		a.tracker.Pause()
	case trip.Paused:
		a.tracker.Resume()
		a.startSourceLocked(ctx)
	}
}

// StopAndSave ends the trip and persists it.
//
// It returns nil, nil when there is nothing to save: no trip was started,
// or the trip recorded neither time nor distance.
// If the insert fails the stopped trip stays in place, and a later call
// retries it. A trip that was saved is not saved again.
func (a *App) StopAndSave(ctx context.Context) (*trip.CompletedTrip, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.source.Stop()
	snap := a.tracker.Stop()
	if snap.Status != trip.Stopped {
		return nil, nil
	}
	if a.saved != nil && a.saved.StartTime.Equal(snap.StartTime) {
		return a.saved, nil
	}
	if snap.Empty() {
		a.logger.Info("Discarding empty trip")
		return nil, nil
	}

	ct := trip.NewCompletedTrip(snap, a.prefs.Get().Units, a.now())
	if a.placer != nil && len(ct.Points) > 0 {
		first, last := ct.Points[0], ct.Points[len(ct.Points)-1]
		ct.StartPlace = a.placer.Place(first.Latitude, first.Longitude)
		ct.EndPlace = a.placer.Place(last.Latitude, last.Longitude)
	}
	if _, err := a.trips.Insert(ctx, ct); err != nil {
		return nil, fmt.Errorf("save trip: %w", err)
	}
	a.saved = ct
	a.logger.Info("Saved trip", "id", ct.ID, "summary", units.FormatDistance(ct.DistanceMeters, ct.Units))
	events.TripSavedFeed.Send(ct)
	return ct, nil
}

// Reset stops fix delivery and discards the current trip, saved or not.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source.Stop()
	a.tracker.Reset()
	a.saved = nil
}

// Trip looks up a stored trip without selecting it.
func (a *App) Trip(ctx context.Context, id uint64) (*trip.CompletedTrip, error) {
	return a.trips.Get(ctx, id)
}

// LoadTrip selects a stored trip for review.
func (a *App) LoadTrip(ctx context.Context, id uint64) (*trip.CompletedTrip, error) {
	t, err := a.trips.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.selected = t
	a.mu.Unlock()
	return t, nil
}

func (a *App) ClearSelectedTrip() {
	a.mu.Lock()
	a.selected = nil
	a.mu.Unlock()
}

func (a *App) RecentTrips(ctx context.Context) ([]trip.CompletedTrip, error) {
	return a.trips.Recent(ctx, 0)
}

func (a *App) Preferences() state.Preferences {
	return a.prefs.Get()
}

func (a *App) SetUnits(sys units.System) error {
	return a.prefs.SetUnits(sys)
}

func (a *App) SetKeepAwake(v bool) error {
	return a.prefs.SetKeepAwake(v)
}

// SetPermissionDenied records whether the user refused location access.
func (a *App) SetPermissionDenied(v bool) {
	a.mu.Lock()
	a.permissionDenied = v
	a.mu.Unlock()
}

func (a *App) PermissionDenied() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.permissionDenied
}

// View is everything a presentation shows at once.
type View struct {
	Tracking         trip.TrackingSnapshot `json:"tracking"`
	Display          Display               `json:"display"`
	Preferences      state.Preferences     `json:"preferences"`
	Recent           []trip.CompletedTrip  `json:"recent"`
	Selected         *trip.CompletedTrip   `json:"selected,omitempty"`
	PermissionDenied bool                  `json:"permission_denied"`
}

func (a *App) View(ctx context.Context) (View, error) {
	snap := a.tracker.Snapshot()
	prefs := a.prefs.Get()
	recent, err := a.trips.Recent(ctx, 0)
	if err != nil && !errors.Is(err, context.Canceled) {
		return View{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return View{
		Tracking:         snap,
		Display:          NewDisplay(snap, prefs.Units),
		Preferences:      prefs,
		Recent:           recent,
		Selected:         a.selected,
		PermissionDenied: a.permissionDenied,
	}, nil
}

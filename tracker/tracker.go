// Package tracker turns a raw, noisy, irregular stream of location fixes
// into a consistent trip record.
//
// A Tracker is a state machine (Idle, Running, Paused, Stopped).
// All mutation (fix ingestion, the per-second tick, lifecycle transitions)
// is serialized by one mutex, and every mutation publishes a complete
// trip.TrackingSnapshot value, so readers never observe a half-applied update.
package tracker

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/types/trip"
)

type Tracker struct {
	config *params.TrackerConfig
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	working     trip.TrackingSnapshot
	points      []trip.WayPoint
	previous    *trip.RawFix
	pausedAt    time.Time
	pausedTotal time.Duration

	// epoch is bumped by every transition that starts or ends the trip clock.
	// Ticks carry the epoch they were started under and are dropped on mismatch.
	epoch  uint64
	ticker *tickLoop

	current atomic.Pointer[trip.TrackingSnapshot]
	feed    event.FeedOf[trip.TrackingSnapshot]
	pending chan struct{}
	quit    chan struct{}
	once    sync.Once

	meter *ingestMeter
}

type Option func(*Tracker)

// WithClock replaces the wall clock used for trip start, pauses and elapsed time.
// Fix timestamps always come from the fixes themselves.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// New returns an Idle tracker. The caller owns it and must Close it.
func New(config *params.TrackerConfig, opts ...Option) *Tracker {
	if config == nil {
		config = params.DefaultTrackerConfig()
	}
	t := &Tracker{
		config:  config,
		logger:  slog.With("d", "tracker"),
		now:     time.Now,
		pending: make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.meter = newIngestMeter(t.logger)
	t.current.Store(&trip.TrackingSnapshot{})

	go t.publishLoop()
	if config.StatsInterval > 0 {
		go t.statsLoop(config.StatsInterval)
	}
	return t
}

// Close stops the publisher and the stats logger, and halts any running tick loop.
// The tracker state is left as is.
func (t *Tracker) Close() {
	t.once.Do(func() {
		t.mu.Lock()
		t.epoch++
		tk := t.ticker
		t.ticker = nil
		t.mu.Unlock()
		tk.halt()
		close(t.quit)
		t.meter.stop()
	})
}

// Snapshot returns the most recently published state.
func (t *Tracker) Snapshot() trip.TrackingSnapshot {
	return *t.current.Load()
}

// Status is a shorthand for Snapshot().Status.
// Fix source collaborators use it to decide whether to deliver fixes.
func (t *Tracker) Status() trip.Status {
	return t.current.Load().Status
}

// Subscribe delivers published snapshots to ch.
// Bursts of updates are conflated: a subscriber always receives the latest
// snapshot, but not necessarily every intermediate one.
// Subscribers must keep draining ch (or Unsubscribe); a stalled subscriber
// delays delivery to the others, never ingestion.
func (t *Tracker) Subscribe(ch chan<- trip.TrackingSnapshot) event.Subscription {
	return t.feed.Subscribe(ch)
}

// Start begins a new trip. Valid from Idle or Stopped, otherwise a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st := t.working.Status; st != trip.Idle && st != trip.Stopped {
		return
	}
	t.clearLocked()
	t.working = trip.TrackingSnapshot{
		Status:    trip.Running,
		StartTime: t.now(),
	}
	t.epoch++
	t.ticker = newTickLoop(t.epoch)
	go t.runTicker(t.ticker)

	t.logger.Info("Trip started", "start", t.working.StartTime)
	t.publishLocked()
}

// Pause suspends the trip. Valid only while Running.
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.working.Status != trip.Running {
		return
	}
	now := t.now()
	t.refreshLocked(now)
	t.pausedAt = now
	t.working.SpeedMps = 0
	t.working.Status = trip.Paused

	t.logger.Info("Trip paused", "elapsed", t.working.ElapsedSeconds)
	t.publishLocked()
}

// Resume continues a paused trip. Valid only while Paused.
func (t *Tracker) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.working.Status != trip.Paused {
		return
	}
	now := t.now()
	if !t.pausedAt.IsZero() {
		t.pausedTotal += now.Sub(t.pausedAt)
	}
	t.pausedAt = time.Time{}
	t.working.Status = trip.Running
	t.refreshLocked(now)

	t.logger.Info("Trip resumed", "paused", t.pausedTotal.Round(time.Second))
	t.publishLocked()
}

// Stop freezes the trip and returns the final snapshot for the caller to persist.
// Valid from Running or Paused; otherwise it changes nothing and returns the current snapshot.
// The tick loop has exited by the time Stop returns.
func (t *Tracker) Stop() trip.TrackingSnapshot {
	t.mu.Lock()
	if !t.working.Status.Active() {
		s := t.Snapshot()
		t.mu.Unlock()
		return s
	}
	now := t.now()
	t.refreshLocked(now)
	if !t.pausedAt.IsZero() {
		t.pausedTotal += now.Sub(t.pausedAt)
		t.pausedAt = time.Time{}
	}
	t.working.Status = trip.Stopped
	t.working.SpeedMps = 0
	t.working.EndTime = now
	t.previous = nil

	t.epoch++
	tk := t.ticker
	t.ticker = nil

	t.logger.Info("Trip stopped",
		"elapsed", t.working.ElapsedSeconds,
		"distance", t.working.DistanceMeters,
		"waypoints", len(t.points))
	t.publishLocked()
	s := t.Snapshot()
	t.mu.Unlock()

	tk.halt()
	return s
}

// Reset returns the tracker to Idle with a zeroed snapshot, from any state.
// The tick loop has exited by the time Reset returns.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.epoch++
	tk := t.ticker
	t.ticker = nil
	t.clearLocked()
	t.working = trip.TrackingSnapshot{}
	t.publishLocked()
	t.mu.Unlock()

	tk.halt()
}

func (t *Tracker) clearLocked() {
	// Drop the reference rather than truncating: published snapshots share the backing array.
	t.points = nil
	t.previous = nil
	t.pausedAt = time.Time{}
	t.pausedTotal = 0
}

// refreshLocked recomputes elapsed active seconds and average speed as of now.
func (t *Tracker) refreshLocked(now time.Time) {
	if t.working.StartTime.IsZero() {
		return
	}
	paused := t.pausedTotal
	if t.working.Status == trip.Paused && !t.pausedAt.IsZero() {
		paused += now.Sub(t.pausedAt)
	}
	secs := int64((now.Sub(t.working.StartTime) - paused) / time.Second)
	if secs < 0 {
		secs = 0
	}
	t.working.ElapsedSeconds = secs
	t.working.AvgSpeedMps = averageSpeed(t.working.DistanceMeters, secs)
}

func averageSpeed(meters float64, secs int64) float64 {
	if secs <= 0 {
		return 0
	}
	return meters / float64(secs)
}

// publishLocked makes the working state the current snapshot and wakes the publisher.
func (t *Tracker) publishLocked() {
	s := t.working
	n := len(t.points)
	s.Points = t.points[:n:n]
	t.current.Store(&s)
	select {
	case t.pending <- struct{}{}:
	default:
	}
}

func (t *Tracker) publishLoop() {
	for {
		select {
		case <-t.quit:
			return
		case <-t.pending:
			t.feed.Send(t.Snapshot())
		}
	}
}

package tracker

import (
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rotblauer/cleanspeed/common"
	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/types/trip"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// testConfig never ticks on its own; tests drive ticks with forceTick.
func testConfig() *params.TrackerConfig {
	c := params.DefaultTrackerConfig()
	c.TickInterval = time.Hour
	return c
}

func newTestTracker(t *testing.T, config *params.TrackerConfig) (*Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: t0}
	tr := New(config, WithClock(clock.Now))
	t.Cleanup(tr.Close)
	return tr, clock
}

func forceTick(tr *Tracker) {
	tr.mu.Lock()
	e := tr.epoch
	tr.mu.Unlock()
	tr.tick(e)
}

// north converts meters along a meridian to degrees of latitude.
func north(meters float64) float64 {
	return meters / common.EarthRadiusMeters * 180 / math.Pi
}

func fixAt(metersNorth float64, at time.Duration) trip.RawFix {
	return trip.RawFix{
		Latitude:  north(metersNorth),
		Longitude: 0,
		Time:      t0.Add(at),
		Accuracy:  trip.Float(5),
	}
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTracker_Trip(t *testing.T) {
	tr, clock := newTestTracker(t, testConfig())
	tr.Start()
	if tr.Status() != trip.Running {
		t.Fatalf("expected running, got %v", tr.Status())
	}

	for i := 0; i < 3; i++ {
		at := time.Duration(i) * 2 * time.Second
		clock.Set(t0.Add(at))
		if o := tr.Ingest(fixAt(float64(i)*20, at)); o != Accepted {
			t.Fatalf("fix %d: expected accepted, got %v", i, o)
		}
	}
	forceTick(tr)

	s := tr.Snapshot()
	if !near(s.DistanceMeters, 40, 1e-6) {
		t.Errorf("distance: got %v, want 40", s.DistanceMeters)
	}
	if !near(s.SpeedMps, 10, 1e-6) {
		t.Errorf("speed: got %v, want 10", s.SpeedMps)
	}
	if !near(s.MaxSpeedMps, 10, 1e-6) {
		t.Errorf("max speed: got %v, want 10", s.MaxSpeedMps)
	}
	if s.ElapsedSeconds != 4 {
		t.Errorf("elapsed: got %d, want 4", s.ElapsedSeconds)
	}
	if !near(s.AvgSpeedMps, 10, 1e-6) {
		t.Errorf("avg speed: got %v, want 10", s.AvgSpeedMps)
	}
	if len(s.Points) != 3 {
		t.Fatalf("waypoints: got %d, want 3", len(s.Points))
	}
	for i, p := range s.Points {
		if want := t0.Add(time.Duration(i) * 2 * time.Second); !p.Time.Equal(want) {
			t.Errorf("waypoint %d at %v, want %v", i, p.Time, want)
		}
	}
	if s.WeakSignal {
		t.Error("unexpected weak signal")
	}
}

func TestTracker_ReportedSpeed(t *testing.T) {
	tr, _ := newTestTracker(t, testConfig())
	tr.Start()

	f := fixAt(0, 0)
	f.Speed = trip.Float(3)
	tr.Ingest(f)
	if s := tr.Snapshot(); s.SpeedMps != 3 || s.MaxSpeedMps != 3 {
		t.Errorf("got speed %v max %v, want 3", s.SpeedMps, s.MaxSpeedMps)
	}

	// Negative reported speed counts as absent.
	f = fixAt(20, 2*time.Second)
	f.Speed = trip.Float(-1)
	tr.Ingest(f)
	if s := tr.Snapshot(); !near(s.SpeedMps, 10, 1e-6) {
		t.Errorf("got speed %v, want derived 10", s.SpeedMps)
	}

	// Zero is a reported speed.
	f = fixAt(40, 4*time.Second)
	f.Speed = trip.Float(0)
	tr.Ingest(f)
	if s := tr.Snapshot(); s.SpeedMps != 0 || !near(s.MaxSpeedMps, 10, 1e-6) {
		t.Errorf("got speed %v max %v, want 0 and 10", s.SpeedMps, s.MaxSpeedMps)
	}
}

func TestTracker_WeakSignal(t *testing.T) {
	tr, _ := newTestTracker(t, testConfig())
	tr.Start()
	tr.Ingest(fixAt(0, 0))

	weak := fixAt(500, time.Second)
	weak.Accuracy = trip.Float(30)
	if o := tr.Ingest(weak); o != WeakSignal {
		t.Fatalf("expected weak, got %v", o)
	}
	s := tr.Snapshot()
	if !s.WeakSignal {
		t.Error("expected weak signal flag")
	}
	if s.DistanceMeters != 0 || len(s.Points) != 1 {
		t.Errorf("weak fix changed the trip: %+v", s)
	}

	// Accuracy exactly at the threshold is usable and clears the flag.
	ok := fixAt(20, 2*time.Second)
	ok.Accuracy = trip.Float(25)
	if o := tr.Ingest(ok); o != Accepted {
		t.Fatalf("expected accepted, got %v", o)
	}
	if s := tr.Snapshot(); s.WeakSignal || !near(s.DistanceMeters, 20, 1e-6) {
		t.Errorf("got weak=%v distance=%v", s.WeakSignal, s.DistanceMeters)
	}
}

func TestTracker_StaleGap(t *testing.T) {
	tr, _ := newTestTracker(t, testConfig())
	tr.Start()
	tr.Ingest(fixAt(0, 0))

	if o := tr.Ingest(fixAt(1000, 16*time.Second)); o != Stale {
		t.Fatalf("expected stale, got %v", o)
	}
	if s := tr.Snapshot(); s.DistanceMeters != 0 {
		t.Errorf("stale fix added distance %v", s.DistanceMeters)
	}

	// The baseline is still the first fix.
	if o := tr.Ingest(fixAt(50, 10*time.Second)); o != Accepted {
		t.Fatalf("expected accepted, got %v", o)
	}
	s := tr.Snapshot()
	if !near(s.DistanceMeters, 50, 1e-6) {
		t.Errorf("distance: got %v, want 50", s.DistanceMeters)
	}
	if !near(s.SpeedMps, 5, 1e-6) {
		t.Errorf("speed: got %v, want 5", s.SpeedMps)
	}

	// Exactly the max gap is not stale.
	if o := tr.Ingest(fixAt(60, 25*time.Second)); o != Accepted {
		t.Errorf("expected accepted at the gap boundary, got %v", o)
	}
}

func TestTracker_Discards(t *testing.T) {
	tr, _ := newTestTracker(t, testConfig())
	if o := tr.Ingest(fixAt(0, 0)); o != Ignored {
		t.Errorf("idle: expected ignored, got %v", o)
	}
	tr.Start()
	tr.Ingest(fixAt(0, 2*time.Second))
	before := tr.Snapshot()

	cases := []struct {
		name string
		fix  trip.RawFix
		want Outcome
	}{
		{"nan", trip.RawFix{Latitude: math.NaN(), Time: t0.Add(3 * time.Second)}, Malformed},
		{"latitude", trip.RawFix{Latitude: 91, Time: t0.Add(3 * time.Second)}, Malformed},
		{"no time", trip.RawFix{Latitude: 1, Longitude: 1}, Malformed},
		{"older", fixAt(20, time.Second), OutOfOrder},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if o := tr.Ingest(c.fix); o != c.want {
				t.Errorf("expected %v, got %v", c.want, o)
			}
			if got := tr.Snapshot(); !reflect.DeepEqual(got, before) {
				t.Errorf("discarded fix changed the trip:\n%+v\n%+v", got, before)
			}
		})
	}

	tr.Pause()
	if o := tr.Ingest(fixAt(20, 4*time.Second)); o != Ignored {
		t.Errorf("paused: expected ignored, got %v", o)
	}
	if tr.Count(Ignored) != 2 || tr.Count(Malformed) != 3 || tr.Count(Accepted) != 1 {
		t.Errorf("counts: ignored=%d malformed=%d accepted=%d",
			tr.Count(Ignored), tr.Count(Malformed), tr.Count(Accepted))
	}
}

func TestTracker_WayPointSpacing(t *testing.T) {
	tr, _ := newTestTracker(t, testConfig())
	tr.Start()
	for i := 0; i <= 20; i++ {
		at := time.Duration(i) * 500 * time.Millisecond
		tr.Ingest(fixAt(float64(i), at))
	}
	s := tr.Snapshot()
	if len(s.Points) != 6 {
		t.Fatalf("waypoints: got %d, want 6", len(s.Points))
	}
	for i := 1; i < len(s.Points); i++ {
		if d := s.Points[i].Time.Sub(s.Points[i-1].Time); d < 2*time.Second {
			t.Errorf("waypoints %d and %d are %v apart", i-1, i, d)
		}
	}
	if !near(s.DistanceMeters, 20, 1e-6) {
		t.Errorf("distance: got %v, want 20", s.DistanceMeters)
	}
}

func TestTracker_WayPointCap(t *testing.T) {
	config := testConfig()
	config.MaxWayPoints = 3
	tr, _ := newTestTracker(t, config)
	tr.Start()
	for i := 0; i < 6; i++ {
		tr.Ingest(fixAt(float64(i)*10, time.Duration(i)*2*time.Second))
	}
	s := tr.Snapshot()
	if len(s.Points) != 3 {
		t.Errorf("waypoints: got %d, want 3", len(s.Points))
	}
	if !near(s.DistanceMeters, 50, 1e-6) {
		t.Errorf("distance kept accumulating past the cap: got %v, want 50", s.DistanceMeters)
	}
}

func TestTracker_PointsAreClipped(t *testing.T) {
	tr, _ := newTestTracker(t, testConfig())
	tr.Start()
	tr.Ingest(fixAt(0, 0))
	s := tr.Snapshot()
	_ = append(s.Points, trip.WayPoint{Latitude: 9})
	tr.Ingest(fixAt(10, 2*time.Second))
	if got := tr.Snapshot().Points[1].Latitude; got == 9 {
		t.Error("caller append leaked into the tracker")
	}
}

func TestTracker_PauseResume(t *testing.T) {
	tr, clock := newTestTracker(t, testConfig())
	tr.Start()

	clock.Add(10 * time.Second)
	tr.Pause()
	s := tr.Snapshot()
	if s.Status != trip.Paused || s.ElapsedSeconds != 10 || s.SpeedMps != 0 {
		t.Fatalf("after pause: %+v", s)
	}

	clock.Add(20 * time.Second)
	forceTick(tr)
	if got := tr.Snapshot().ElapsedSeconds; got != 10 {
		t.Errorf("elapsed advanced while paused: %d", got)
	}

	tr.Resume()
	clock.Add(5 * time.Second)
	forceTick(tr)
	if got := tr.Snapshot().ElapsedSeconds; got != 15 {
		t.Errorf("elapsed: got %d, want 15", got)
	}

	// Stopping while paused excludes the open pause.
	tr.Pause()
	clock.Add(time.Minute)
	s = tr.Stop()
	if s.ElapsedSeconds != 15 {
		t.Errorf("elapsed after stop: got %d, want 15", s.ElapsedSeconds)
	}
}

func TestTracker_InvalidTransitions(t *testing.T) {
	tr, clock := newTestTracker(t, testConfig())

	idle := tr.Snapshot()
	tr.Pause()
	tr.Resume()
	tr.Stop()
	if got := tr.Snapshot(); !reflect.DeepEqual(got, idle) {
		t.Errorf("idle changed: %+v", got)
	}

	tr.Start()
	tr.Ingest(fixAt(0, 0))
	running := tr.Snapshot()
	clock.Add(time.Second)
	tr.Start()
	tr.Resume()
	if got := tr.Snapshot(); !reflect.DeepEqual(got, running) {
		t.Errorf("running changed:\n%+v\n%+v", got, running)
	}

	tr.Pause()
	paused := tr.Snapshot()
	tr.Start()
	tr.Pause()
	if got := tr.Snapshot(); !reflect.DeepEqual(got, paused) {
		t.Errorf("paused changed:\n%+v\n%+v", got, paused)
	}
}

func TestTracker_Stop(t *testing.T) {
	tr, clock := newTestTracker(t, testConfig())
	tr.Start()
	tr.Ingest(fixAt(0, 0))
	tr.Ingest(fixAt(20, 2*time.Second))
	clock.Add(4 * time.Second)

	tr.mu.Lock()
	oldEpoch := tr.epoch
	tr.mu.Unlock()

	s := tr.Stop()
	if s.Status != trip.Stopped || s.SpeedMps != 0 || !s.EndTime.Equal(t0.Add(4*time.Second)) {
		t.Fatalf("stop snapshot: %+v", s)
	}
	if s.ElapsedSeconds != 4 || !near(s.AvgSpeedMps, 5, 1e-6) {
		t.Errorf("elapsed %d avg %v, want 4 and 5", s.ElapsedSeconds, s.AvgSpeedMps)
	}

	clock.Add(time.Minute)
	tr.tick(oldEpoch)
	forceTick(tr)
	if o := tr.Ingest(fixAt(40, 6*time.Second)); o != Ignored {
		t.Errorf("expected ignored after stop, got %v", o)
	}
	if got := tr.Snapshot(); !reflect.DeepEqual(got, s) {
		t.Errorf("stopped trip changed:\n%+v\n%+v", got, s)
	}
	if again := tr.Stop(); !reflect.DeepEqual(again, s) {
		t.Errorf("second stop differs:\n%+v\n%+v", again, s)
	}
}

func TestTracker_RestartAndReset(t *testing.T) {
	tr, clock := newTestTracker(t, testConfig())
	tr.Start()
	tr.Ingest(fixAt(0, 0))
	tr.Ingest(fixAt(20, 2*time.Second))
	first := tr.Stop()

	clock.Add(time.Minute)
	tr.Start()
	s := tr.Snapshot()
	if s.Status != trip.Running || s.DistanceMeters != 0 || len(s.Points) != 0 || s.MaxSpeedMps != 0 {
		t.Errorf("restart did not clear: %+v", s)
	}
	if len(first.Points) != 2 {
		t.Errorf("earlier snapshot lost its points: %d", len(first.Points))
	}
	// A fix long after the last trip's fixes is not stale: the previous fix was cleared.
	if o := tr.Ingest(fixAt(0, time.Minute)); o != Accepted {
		t.Errorf("expected accepted, got %v", o)
	}

	tr.Reset()
	if got := tr.Snapshot(); !reflect.DeepEqual(got, trip.TrackingSnapshot{}) {
		t.Errorf("reset: %+v", got)
	}
	forceTick(tr)
	if got := tr.Status(); got != trip.Idle {
		t.Errorf("tick after reset: %v", got)
	}
}

func TestTracker_Subscribe(t *testing.T) {
	tr, _ := newTestTracker(t, testConfig())
	ch := make(chan trip.TrackingSnapshot, 8)
	sub := tr.Subscribe(ch)
	defer sub.Unsubscribe()

	tr.Start()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.Status == trip.Running {
				return
			}
		case <-timeout:
			t.Fatal("no running snapshot published")
		}
	}
}

func TestTracker_Ticker(t *testing.T) {
	config := params.DefaultTrackerConfig()
	config.TickInterval = 5 * time.Millisecond
	tr, clock := newTestTracker(t, config)
	tr.Start()
	clock.Add(3 * time.Second)

	deadline := time.Now().Add(5 * time.Second)
	for tr.Snapshot().ElapsedSeconds != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("ticker did not advance elapsed: %+v", tr.Snapshot())
		}
		time.Sleep(time.Millisecond)
	}

	tr.Stop()
	clock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if got := tr.Snapshot().ElapsedSeconds; got != 3 {
		t.Errorf("ticker ran after stop: elapsed %d", got)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	config := testConfig()
	config.TickInterval = time.Millisecond
	tr, _ := newTestTracker(t, config)
	tr.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tr.Ingest(fixAt(float64(i), time.Duration(i)*time.Second))
		}
	}()

	done := make(chan struct{})
	var lastDistance, lastMax float64
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			s := tr.Snapshot()
			if s.DistanceMeters < lastDistance || s.MaxSpeedMps < lastMax {
				t.Errorf("went backwards: %v < %v or %v < %v", s.DistanceMeters, lastDistance, s.MaxSpeedMps, lastMax)
				return
			}
			if s.ElapsedSeconds > 0 && s.AvgSpeedMps != s.DistanceMeters/float64(s.ElapsedSeconds) {
				t.Errorf("inconsistent average: %+v", s)
				return
			}
			if s.SpeedMps > s.MaxSpeedMps {
				t.Errorf("speed above max: %+v", s)
				return
			}
			lastDistance, lastMax = s.DistanceMeters, s.MaxSpeedMps
		}
	}()
	wg.Wait()
	<-done
	tr.Stop()
}

func TestOutcome_String(t *testing.T) {
	if Accepted.String() != "accepted" || OutOfOrder.String() != "out_of_order" {
		t.Error("unexpected outcome names")
	}
	if Outcome(99).String() != "unknown" {
		t.Error("out of range outcome")
	}
}

package state

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/event"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/types/trip"
	"go.etcd.io/bbolt"
)

var ErrTripNotFound = errors.New("trip not found")

// Trips is the completed trip store.
//
// Trip records (without points) live in the trips bucket keyed by ID,
// their waypoints as newline-delimited JSON in the points bucket under the same key,
// and trips_by_start indexes IDs by start time for the recent list.
type Trips struct {
	state  *State
	config *params.StoreConfig
	logger *slog.Logger

	// Completed trips are immutable, so cached lookups never go stale.
	cache *lru.Cache[uint64, *trip.CompletedTrip]
	feed  event.FeedOf[[]trip.CompletedTrip]
}

func NewTrips(s *State, config *params.StoreConfig) (*Trips, error) {
	if config == nil {
		config = params.DefaultStoreConfig()
	}
	cache, err := lru.New[uint64, *trip.CompletedTrip](max(config.CacheSize, 1))
	if err != nil {
		return nil, err
	}
	return &Trips{
		state:  s,
		config: config,
		logger: slog.With("d", "trips"),
		cache:  cache,
	}, nil
}

func idKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

// startKey sorts by start time, then ID. The sign bit is flipped
// so pre-epoch times still sort before later ones.
func startKey(t *trip.CompletedTrip) []byte {
	k := binary.BigEndian.AppendUint64(nil, uint64(t.StartTime.UnixNano())^(1<<63))
	return binary.BigEndian.AppendUint64(k, t.ID)
}

// Insert stores t under a new ID, which is returned and set on t.
// On error nothing is stored and t is unchanged.
func (s *Trips) Insert(ctx context.Context, t *trip.CompletedTrip) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if t == nil {
		return 0, fmt.Errorf("insert: nil trip")
	}

	record := t.Summary()
	points := bytes.NewBuffer([]byte{})
	enc := json.NewEncoder(points)
	for _, p := range t.Points {
		if err := enc.Encode(p); err != nil {
			return 0, fmt.Errorf("insert: encode point: %w", err)
		}
	}

	err := s.state.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tripsBucket)
		if b == nil {
			return fmt.Errorf("%s: bucket missing", tripsBucket)
		}
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		record.ID = id
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := b.Put(idKey(id), data); err != nil {
			return err
		}
		if err := tx.Bucket(pointsBucket).Put(idKey(id), points.Bytes()); err != nil {
			return err
		}
		return tx.Bucket(tripsByStartIndex).Put(startKey(&record), []byte{})
	})
	if err != nil {
		return 0, fmt.Errorf("insert trip: %w", err)
	}
	t.ID = record.ID

	stored := record
	stored.Points = append([]trip.WayPoint(nil), t.Points...)
	s.cache.Add(stored.ID, &stored)

	s.logger.Info("Stored trip", "id", t.ID, "start", t.StartTime, "distance", t.DistanceMeters, "waypoints", len(t.Points))
	s.notify(ctx)
	return t.ID, nil
}

func (s *Trips) notify(ctx context.Context) {
	recent, err := s.Recent(ctx, 0)
	if err != nil {
		s.logger.Error("Failed to read recent trips", "error", err)
		return
	}
	s.feed.Send(recent)
}

// SubscribeRecent delivers the recent trips list after every insert.
// Subscribers must keep draining ch.
func (s *Trips) SubscribeRecent(ch chan<- []trip.CompletedTrip) event.Subscription {
	return s.feed.Subscribe(ch)
}

// Recent returns up to n trip summaries (no points), newest start time first.
// n <= 0 means the configured recent limit.
func (s *Trips) Recent(ctx context.Context, n int) ([]trip.CompletedTrip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = s.config.RecentLimit
	}
	out := make([]trip.CompletedTrip, 0, n)
	err := s.state.DB.View(func(tx *bbolt.Tx) error {
		index := tx.Bucket(tripsByStartIndex)
		records := tx.Bucket(tripsBucket)
		if index == nil || records == nil {
			return nil
		}
		c := index.Cursor()
		for k, _ := c.Last(); k != nil && len(out) < n; k, _ = c.Prev() {
			if len(k) != 16 {
				continue
			}
			data := records.Get(k[8:])
			if data == nil {
				continue
			}
			var t trip.CompletedTrip
			if err := json.Unmarshal(data, &t); err != nil {
				return fmt.Errorf("trip %d: %w", binary.BigEndian.Uint64(k[8:]), err)
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recent trips: %w", err)
	}
	return out, nil
}

// Get returns the trip with its points, or ErrTripNotFound.
// The returned trip must not be modified.
func (s *Trips) Get(ctx context.Context, id uint64) (*trip.CompletedTrip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t, ok := s.cache.Get(id); ok {
		return t, nil
	}

	var t *trip.CompletedTrip
	err := s.state.DB.View(func(tx *bbolt.Tx) error {
		records := tx.Bucket(tripsBucket)
		if records == nil {
			return nil
		}
		data := records.Get(idKey(id))
		if data == nil {
			return nil
		}
		t = &trip.CompletedTrip{}
		if err := json.Unmarshal(data, t); err != nil {
			return err
		}
		if b := tx.Bucket(pointsBucket); b != nil {
			points, err := readPoints(b.Get(idKey(id)))
			if err != nil {
				return err
			}
			t.Points = points
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trip %d: %w", id, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %d", ErrTripNotFound, id)
	}
	s.cache.Add(id, t)
	return t, nil
}

func readPoints(data []byte) ([]trip.WayPoint, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var points []trip.WayPoint
	for {
		var p trip.WayPoint
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

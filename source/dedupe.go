package source

import (
	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rotblauer/cleanspeed/types/trip"
)

type dedupeKey struct {
	Lat, Lon float64
	UnixNano int64
	Accuracy *float64
	Speed    *float64
}

// NewDedupePassLRUFunc returns a filter passing fixes not seen among
// the last size distinct fixes. Providers and replayed logs both repeat fixes.
// The returned func is not safe for concurrent use.
func NewDedupePassLRUFunc(size int) func(trip.RawFix) bool {
	seen := lru.New(size)
	return func(fix trip.RawFix) bool {
		key := dedupeKey{
			Lat:      fix.Latitude,
			Lon:      fix.Longitude,
			UnixNano: fix.Time.UnixNano(),
			Accuracy: fix.Accuracy,
			Speed:    fix.Speed,
		}
		hash, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
		if err != nil {
			return true
		}
		if _, ok := seen.Get(hash); ok {
			return false
		}
		seen.Add(hash, struct{}{})
		return true
	}
}

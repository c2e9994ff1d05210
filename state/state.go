// Package state persists completed trips and user preferences in a bbolt database.
package state

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	tripsBucket       = []byte("trips")
	pointsBucket      = []byte("points")
	tripsByStartIndex = []byte("trips_by_start")
	prefsBucket       = []byte("prefs")
)

// State is one open trip database, shared by Trips and Prefs.
type State struct {
	DB    *bbolt.DB
	rOnly bool
}

// Open opens (creating if needed) the database at path.
// Opening a writable DB conn will block all other writers and readers
// with essentially a file lock/flock, so Open gives up after a second.
func Open(path string, readOnly bool) (*State, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: readOnly,
		Timeout:  time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &State{DB: db, rOnly: readOnly}
	if readOnly {
		return s, nil
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{tripsBucket, pointsBucket, tripsByStartIndex, prefsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *State) Close() error {
	return s.DB.Close()
}

func (s *State) ReadOnly() bool {
	return s.rOnly
}

func (s *State) storeKV(bucket, key, data []byte) error {
	if key == nil {
		return fmt.Errorf("storeKV: nil key")
	}
	if data == nil {
		return fmt.Errorf("storeKV: nil data")
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// readKV returns a copy of the value at key, or nil if there is none.
func (s *State) readKV(bucket, key []byte) ([]byte, error) {
	var out []byte
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		// Gotcha! The value returned by Get is only valid in the scope of the transaction.
		if got := b.Get(key); got != nil {
			out = bytes.Clone(got)
		}
		return nil
	})
	return out, err
}

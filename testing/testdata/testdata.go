// Package testdata holds recorded and synthetic fix logs for tests.
package testdata

import (
	"bytes"
	"encoding/json"
	"math"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rotblauer/cleanspeed/common"
	"github.com/rotblauer/cleanspeed/gzfile"
)

// basepath is the root directory of this package.
var basepath string

func init() {
	_, currentFile, _, _ := runtime.Caller(0)
	basepath = filepath.Dir(currentFile)
}

// Path returns the absolute path the given relative file or directory path,
// relative to this testdata/ directory.
// If rel is already absolute, it is returned unmodified.
// Taken from https://github.com/grpc/grpc-go/blob/master/testdata/testdata.go.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(basepath, rel)
}

// RideOrigin is where synthetic rides start, in Minneapolis.
var RideOrigin = [2]float64{44.98896789550781, -93.2554931640625}

type rideFix struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Time     time.Time `json:"time"`
	Accuracy float64   `json:"accuracy"`
	Speed    *float64  `json:"speed,omitempty"`
}

// Ride returns n flat fixes as JSON lines: a steady ride due north at mps,
// one fix per interval starting at start, with good accuracy.
// Fixes carry their own speed if withSpeed is set.
// The ride covers (n-1) * mps * interval meters.
func Ride(start time.Time, n int, mps float64, interval time.Duration, withSpeed bool) []byte {
	step := mps * interval.Seconds() / common.EarthRadiusMeters * 180 / math.Pi
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	for i := 0; i < n; i++ {
		f := rideFix{
			Lat:      RideOrigin[0] + float64(i)*step,
			Lon:      RideOrigin[1],
			Time:     start.Add(time.Duration(i) * interval).UTC(),
			Accuracy: 5,
		}
		if withSpeed {
			v := mps
			f.Speed = &v
		}
		_ = enc.Encode(f)
	}
	return buf.Bytes()
}

// WriteRide writes a fix log to path, gzipped if path ends in .gz.
func WriteRide(path string, ride []byte) error {
	w, err := gzfile.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(ride); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

package cmd

import (
	"testing"

	"github.com/rotblauer/cleanspeed/params"
	"github.com/spf13/pflag"
)

func newTrackFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("track", pflag.ContinueOnError)
	fs.Bool("realtime", false, "")
	fs.Float64("speedup", 1, "")
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestTrackSourceConfig(t *testing.T) {
	cases := []struct {
		name     string
		file     string
		args     []string
		realtime bool
		speedup  float64
	}{
		{"file paced by default", "ride.json.gz", nil, true, 1},
		{"stdin is live", "", nil, false, 1},
		{"dash is stdin", "-", nil, false, 1},
		{"file unpaced on request", "ride.json", []string{"--realtime=false"}, false, 1},
		{"speedup", "ride.json", []string{"--speedup", "10"}, true, 10},
		{"stdin paced on request", "", []string{"--realtime"}, true, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			base := params.DefaultSourceConfig()
			got := trackSourceConfig(base, c.file, newTrackFlags(t, c.args...))
			if got.Realtime != c.realtime || got.Speedup != c.speedup {
				t.Errorf("got realtime=%v speedup=%v, want %v %v", got.Realtime, got.Speedup, c.realtime, c.speedup)
			}
			if base.Realtime || base.Speedup != 1 {
				t.Errorf("base config modified: %+v", base)
			}
		})
	}
}

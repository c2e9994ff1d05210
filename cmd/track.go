/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/rotblauer/cleanspeed/api"
	"github.com/rotblauer/cleanspeed/common"
	"github.com/rotblauer/cleanspeed/gzfile"
	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/source"
	"github.com/rotblauer/cleanspeed/types/trip"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var optTrackFile string

// trackCmd represents the track command
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track a trip from a stream of fixes",
	Long: `Starts a trip and feeds it location fixes read as JSON lines from a file or stdin.

Recorded files are replayed paced by the fixes' own timestamps, so elapsed time
and average speed match the recording; --realtime=false replays as fast as possible.
The speedometer is printed as it updates. The trip is stopped and saved
when the input ends, or on interrupt. A second interrupt exits without saving.

Fixes are flat objects or GeoJSON point features, see source.Decode:

  {"lat": 37.77, "lon": -122.42, "time": "2024-06-01T12:00:00Z", "accuracy": 5, "speed": 1.2}

Examples:

  cleanspeed track --file ride.json.gz --realtime --speedup 10
  gpspipe -w | jq -c 'select(.class=="TPV")' | cleanspeed track
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		config := loadConfig()
		config.Source = trackSourceConfig(config.Source, optTrackFile, cmd.Flags())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		r, err := gzfile.Open(optTrackFile)
		if err != nil {
			log.Fatalln(err)
		}
		defer r.Close()

		src := source.NewReaderStream(ctx, r, config.Source)
		app, closer := newApp(config, src)
		defer closer()

		snaps := make(chan trip.TrackingSnapshot, 1)
		sub := app.Tracker().Subscribe(snaps)
		defer sub.Unsubscribe()

		app.Start(ctx)
		if app.PermissionDenied() {
			log.Fatalln("Fix source unavailable")
		}

		interrupt := common.Interrupted()
		prefs := app.Preferences()
	loop:
		for {
			select {
			case snap := <-snaps:
				printDisplay(api.NewDisplay(snap, prefs.Units))
			case <-src.Done():
				slog.Info("Input ended")
				break loop
			case sig := <-interrupt:
				slog.Warn("Received signal", "signal", sig)
				go func() {
					sig := <-interrupt
					log.Fatalln("Force exit", sig)
				}()
				break loop
			}
		}

		app.Tracker().LogStats()
		saved, err := app.StopAndSave(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Println()
		if saved == nil {
			fmt.Println("Nothing to save")
			return
		}
		printTrip(saved)
	},
}

// trackSourceConfig applies the track flags to base.
// Files are paced unless --realtime says otherwise; stdin is taken as live.
func trackSourceConfig(base *params.SourceConfig, file string, flags *pflag.FlagSet) *params.SourceConfig {
	c := *base
	replay := file != "" && file != "-"
	if flags.Changed("realtime") {
		c.Realtime, _ = flags.GetBool("realtime")
	} else if replay {
		c.Realtime = true
	}
	if flags.Changed("speedup") {
		c.Speedup, _ = flags.GetFloat64("speedup")
	}
	if replay && !c.Realtime {
		slog.Warn("Replaying without pacing: elapsed time and average speed will not reflect the recording")
	}
	return &c
}

func printDisplay(d api.Display) {
	weak := ""
	if d.WeakSignal {
		weak = " (weak signal)"
	}
	fmt.Printf("\r%-8s %6s %s  avg %s  max %s  %s  %s%s   ",
		d.Status, d.Speed, d.SpeedLabel, d.AvgSpeed, d.MaxSpeed, d.Distance, d.Elapsed, weak)
}

func init() {
	rootCmd.AddCommand(trackCmd)

	flags := trackCmd.Flags()
	flags.StringVar(&optTrackFile, "file", "", "JSON lines of fixes, gzipped if named *.gz (default stdin)")
	flags.Bool("realtime", false, "replay fixes paced by their timestamps (default true with --file)")
	flags.Float64("speedup", 1, "replay speed multiplier, with --realtime")
}

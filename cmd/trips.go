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
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/cleanspeed/api"
	"github.com/rotblauer/cleanspeed/gzfile"
	"github.com/rotblauer/cleanspeed/types/trip"
	"github.com/rotblauer/cleanspeed/units"
	"github.com/spf13/cobra"
)

var optTripsN int
var optExportOut string

// tripsCmd represents the trips command
var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "Review saved trips",
}

var tripsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent trips, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		config := loadConfig()
		st, trips, _ := openState(config, true)
		defer st.Close()

		list, err := trips.Recent(context.Background(), optTripsN)
		if err != nil {
			log.Fatalln(err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tDISTANCE\tAVG\tMAX\tFROM\tTO")
		for _, t := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID,
				humanize.Time(t.StartTime),
				api.FormatElapsed(t.DurationSeconds),
				units.FormatDistance(t.DistanceMeters, t.Units),
				units.FormatSpeed(t.AvgSpeedMps, t.Units),
				units.FormatSpeed(t.MaxSpeedMps, t.Units),
				t.StartPlace, t.EndPlace,
			)
		}
		_ = w.Flush()
	},
}

var tripsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a trip",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		t := mustGetTrip(args[0])
		printTrip(t)
	},
}

var tripsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a trip as a GeoJSON feature",
	Long: `Writes the trip's route and stats as a GeoJSON feature,
to stdout or to --out, gzipped if the name ends in .gz.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		t := mustGetTrip(args[0])

		w, err := gzfile.Create(optExportOut)
		if err != nil {
			log.Fatalln(err)
		}
		if err := json.NewEncoder(w).Encode(t.Feature()); err != nil {
			_ = w.Close()
			log.Fatalln(err)
		}
		if err := w.Close(); err != nil {
			log.Fatalln(err)
		}
	},
}

func mustGetTrip(arg string) *trip.CompletedTrip {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		log.Fatalln("Bad trip id:", arg)
	}
	config := loadConfig()
	st, trips, _ := openState(config, true)
	defer st.Close()
	t, err := trips.Get(context.Background(), id)
	if err != nil {
		log.Fatalln(err)
	}
	return t
}

func printTrip(t *trip.CompletedTrip) {
	fmt.Printf("Trip %d\n", t.ID)
	fmt.Printf("  started   %s (%s)\n", t.StartTime.Local().Format(time.DateTime), humanize.Time(t.StartTime))
	fmt.Printf("  ended     %s\n", t.EndTime.Local().Format(time.DateTime))
	fmt.Printf("  duration  %s\n", api.FormatElapsed(t.DurationSeconds))
	fmt.Printf("  distance  %s\n", units.FormatDistance(t.DistanceMeters, t.Units))
	fmt.Printf("  avg speed %s\n", units.FormatSpeed(t.AvgSpeedMps, t.Units))
	fmt.Printf("  max speed %s\n", units.FormatSpeed(t.MaxSpeedMps, t.Units))
	if t.StartPlace != "" || t.EndPlace != "" {
		fmt.Printf("  from      %s\n", t.StartPlace)
		fmt.Printf("  to        %s\n", t.EndPlace)
	}
	fmt.Printf("  waypoints %s\n", humanize.Comma(int64(len(t.Points))))
}

func init() {
	rootCmd.AddCommand(tripsCmd)
	tripsCmd.AddCommand(tripsListCmd, tripsShowCmd, tripsExportCmd)

	tripsListCmd.Flags().IntVarP(&optTripsN, "n", "n", 0, "number of trips to list (default store.recent_limit)")
	tripsExportCmd.Flags().StringVarP(&optExportOut, "out", "o", "", "output file (default stdout)")
}

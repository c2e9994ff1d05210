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
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rotblauer/cleanspeed/api"
	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/rgeo"
	"github.com/rotblauer/cleanspeed/source"
	"github.com/rotblauer/cleanspeed/state"
	"github.com/rotblauer/cleanspeed/tracker"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var optConfigFile string
var optDatadir string
var optVerbosity int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   params.AppName,
	Short: "A GPS trip speedometer",
	Long: `Tracks a trip from a stream of location fixes: current, average and max speed,
distance and elapsed time, with pause and resume.

Finished trips are saved to a local database and can be listed, reviewed and exported as GeoJSON.
Fixes come from a file or stdin (track), or are pushed over HTTP (webd).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// wordSepNormalizeFunc lets flags be spelled like their config keys, eg. --max_fix_gap.
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&optConfigFile, "config", "", fmt.Sprintf("config file (default is %s/%s.yaml)", params.DatadirRoot, params.ConfigFileName))
	pFlags.StringVar(&optDatadir, "datadir", params.DatadirRoot, "directory holding the trip database")
	pFlags.IntVar(&optVerbosity, "verbosity", int(slog.LevelInfo), "log level: -4 debug, 0 info, 4 warn, 8 error")
	pFlags.Bool("places", false, "label saved trips with reverse geocoded place names")
	_ = viper.BindPFlag("places", pFlags.Lookup("places"))

	params.SetDefaults(viper.GetViper())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if optConfigFile != "" {
		viper.SetConfigFile(optConfigFile)
	} else {
		dir, err := homedir.Expand(optDatadir)
		cobra.CheckErr(err)
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName(params.ConfigFileName)
	}

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("Using config file", "file", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		log.Fatalln("Failed to read config:", err)
	}
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(optVerbosity),
	})))
}

// loadConfig returns the configuration. An explicit --datadir moves the database.
func loadConfig() *params.Config {
	config, err := params.Load(viper.GetViper())
	if err != nil {
		log.Fatalln(err)
	}
	if rootCmd.PersistentFlags().Changed("datadir") {
		dir, err := homedir.Expand(optDatadir)
		if err != nil {
			log.Fatalln(err)
		}
		config.Store.Path = filepath.Join(dir, params.DBFileName)
	}
	return config
}

// openState opens the trip database and its stores.
func openState(config *params.Config, readOnly bool) (*state.State, *state.Trips, *state.Prefs) {
	st, err := state.Open(config.Store.Path, readOnly)
	if err != nil {
		log.Fatalln(err)
	}
	trips, err := state.NewTrips(st, config.Store)
	if err != nil {
		log.Fatalln(err)
	}
	prefs, err := state.NewPrefs(st)
	if err != nil {
		log.Fatalln(err)
	}
	return st, trips, prefs
}

// newApp wires a tracker to src and the stores.
// The returned closer stops the tracker and closes the database.
func newApp(config *params.Config, src source.Source) (app *api.App, closer func()) {
	st, trips, prefs := openState(config, false)
	tr := tracker.New(config.Tracker)

	var opts []api.Option
	if config.Places {
		opts = append(opts, api.WithPlacer(rgeo.NewGeocoder()))
	}
	app = api.New(tr, src, trips, prefs, opts...)
	return app, func() {
		tr.Close()
		if err := st.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}
}

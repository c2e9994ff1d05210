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
	"strconv"

	"github.com/rotblauer/cleanspeed/state"
	"github.com/rotblauer/cleanspeed/units"
	"github.com/spf13/cobra"
)

// prefsCmd represents the prefs command
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change preferences",
	Long: `Keys:

  units       imperial (mph, mi), metric (km/h, km) or nautical (kn, nm)
  keep_awake  true or false; presentations keep the screen on while tracking

Examples:

  cleanspeed prefs get
  cleanspeed prefs set units metric
  cleanspeed prefs set keep_awake true
`,
}

var prefsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the preferences",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		st, _, prefs := openState(loadConfig(), true)
		defer st.Close()
		printPrefs(prefs.Get())
	},
}

var prefsSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Change a preference",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"units", "keep_awake"},
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		st, _, prefs := openState(loadConfig(), false)
		defer st.Close()

		var err error
		switch args[0] {
		case "units":
			var sys units.System
			sys, err = units.ParseSystem(args[1])
			if err == nil {
				err = prefs.SetUnits(sys)
			}
		case "keep_awake":
			var v bool
			v, err = strconv.ParseBool(args[1])
			if err == nil {
				err = prefs.SetKeepAwake(v)
			}
		default:
			err = fmt.Errorf("unknown preference %q", args[0])
		}
		if err != nil {
			log.Fatalln(err)
		}
		printPrefs(prefs.Get())
	},
}

func printPrefs(p state.Preferences) {
	fmt.Printf("units       %s (%s, %s)\n", p.Units, units.SpeedLabel(p.Units), units.DistanceLabel(p.Units))
	fmt.Printf("keep_awake  %t\n", p.KeepAwake)
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)
}

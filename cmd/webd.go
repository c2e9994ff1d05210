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
	"log"
	"log/slog"

	"github.com/rotblauer/cleanspeed/common"
	"github.com/rotblauer/cleanspeed/daemon/webd"
	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// webdCmd represents the serve command
var webdCmd = &cobra.Command{
	Use:     "webd",
	Aliases: []string{"serve"},
	Short:   "Start the webserver",
	Long: `Serves the speedometer over HTTP and a websocket on localhost.

Fixes are pushed to POST /fix as JSON lines while a trip is running.
If a token is configured (--token, or CLEANSPEED_WEB_TOKEN),
requests that change state must carry it as a bearer token or an api_token query param.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		config := loadConfig()

		push := source.NewPush(config.Source)
		app, closer := newApp(config, push)
		defer closer()

		server := webd.NewWebDaemon(config.Web, app, push)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			sig := <-common.Interrupted()
			slog.Warn("Received signal", "signal", sig)
			cancel()
		}()

		if err := server.Run(ctx); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(webdCmd)

	defaults := params.DefaultWebDaemonConfig()

	pFlags := webdCmd.PersistentFlags()
	pFlags.String("address", defaults.Address, "HTTP address to listen on")
	pFlags.String("token", "", "token required by state changing requests")
	_ = viper.BindPFlag("web.address", pFlags.Lookup("address"))
	_ = viper.BindPFlag("web.token", pFlags.Lookup("token"))
}

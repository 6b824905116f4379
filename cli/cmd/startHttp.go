package cmd

/*
Copyright © 2019 NAME HERE <EMAIL ADDRESS>

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

import (
	"context"
	"os"

	"github.com/francois-poidevin/stationtracker/internal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var httpListen string

// startHttpCmd represents the startHttp command
var startHttpCmd = &cobra.Command{
	Use:   "startHttp",
	Short: "Allow to start REST API service around tracking of the space stations",
	Long: `The HTTP Rest API service start with config parameters. Endpoints:
	/api/v1/start, /api/v1/stop and /api/v1/status`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Initialize config
		initConfig()

		if err := conf.Validate(); err != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Fatal("Unable to interpret configuration")
		}

		if err := internal.Serve(ctx, log, *conf, httpListen); err != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Error("Error in REST API service")
			os.Exit(1)
		}
	},
}

func init() {
	startHttpCmd.Flags().StringVar(&httpListen, "listen", ":8081", "listen address of the REST API")
}

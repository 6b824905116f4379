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

// whereCmd represents the where command
var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Print the current position of the space stations",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		initConfig()

		if err := internal.Where(ctx, log, *conf); err != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Error("Error in Where processing")
			os.Exit(1)
		}
	},
}

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
	"fmt"
	"os"
	"strings"

	"github.com/francois-poidevin/stationtracker/config"
	defaults "github.com/mcuadros/go-defaults"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "ST_"
	defaultConfigFile = "stationtracker.toml"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stationtracker",
	Short: "Stationtracker application follows the ISS and Tiangong space stations",
	Long: `Stationtracker application follows the live position of the ISS and Tiangong
	space stations, from a REST feed or by SGP4 propagation of TLE data,
	and pushes markers and ground tracks to the configured surfaces.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var (
	log     *logrus.Logger
	cfgFile string
	conf    = &config.Configuration{}
)

func init() {
	//log handling
	log = logrus.New()
	log.Formatter = new(logrus.TextFormatter)
	log.Formatter.(*logrus.TextFormatter).DisableColors = true
	log.Formatter.(*logrus.TextFormatter).FullTimestamp = true
	log.Level = logrus.InfoLevel
	log.Out = os.Stdout

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./"+defaultConfigFile+" then $HOME/."+defaultConfigFile+")")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(startHttpCmd)
	rootCmd.AddCommand(whereCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	defaults.SetDefaults(conf)

	for k := range asEnvVariables(conf, "", false) {
		err := viper.BindEnv(strings.ToLower(strings.Replace(k, "_", ".", -1)), envPrefix+k)
		if err != nil {
			log.WithFields(logrus.Fields{
				"var": envPrefix + k,
			}).Error("Unable to bind environment variable")
		}
	}

	if file := configFile(); file != "" {
		log.WithFields(logrus.Fields{
			"File": file,
		}).Info("Reading configuration file")

		viper.SetConfigFile(file)
		viper.SetConfigType("toml")
		if err := viper.ReadInConfig(); err != nil {
			log.WithFields(logrus.Fields{
				"err": err,
			}).Fatal("Unable to read config")
		}
	}

	if err := viper.Unmarshal(conf); err != nil {
		log.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Unable to parse config")
	}

	level, err := logrus.ParseLevel(conf.Log.Level)
	if err != nil {
		log.WithFields(logrus.Fields{
			"level": conf.Log.Level,
		}).Warn("Unknown log level, keeping info")
		return
	}
	log.SetLevel(level)
}

// configFile returns the file to read, "" to run on defaults only.
func configFile() string {
	if cfgFile != "" {
		// If the config file doesn't exists, let's exit
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			log.WithFields(logrus.Fields{
				"err": err,
			}).Fatal("File doesn't exists")
		}
		return cfgFile
	}

	candidates := []string{defaultConfigFile}
	if home, err := homedir.Expand("~/." + defaultConfigFile); err == nil {
		candidates = append(candidates, home)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

/*
Copyright (c) Facebook, Inc. and its affiliates.

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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is cssctl's main entry point, exported so a wrapper binary
// can Execute it without duplicating subcommand wiring.
var RootCmd = &cobra.Command{
	Use:   "cssctl",
	Short: "companion screen synchronisation client/server utilities",
}

var (
	verbose         bool
	target          string
	listen          string
	path            string
	contentID       string
	selector        string
	tickRate        float64
	algorithm       string
	monitoringPort  int
	configPath      string
	protocolVersion string
)

func init() {
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config")
	RootCmd.PersistentFlags().IntVar(&monitoringPort, "monitoringport", 4270, "port to start monitoring http server on")
}

// Execute is the main entry point for cssctl's CLI interface.
func Execute() {
	log.SetLevel(log.InfoLevel)
	if err := RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

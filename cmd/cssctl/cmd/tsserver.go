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
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/internal/metrics"
	"github.com/bbc-rd/csssync/transport"
	"github.com/bbc-rd/csssync/ts/protocol"
	"github.com/bbc-rd/csssync/ts/server"
)

func init() {
	RootCmd.AddCommand(tsServerCmd)
	tsServerCmd.Flags().StringVar(&listen, "listen", ":7682", "host:port to listen for TS websocket connections on")
	tsServerCmd.Flags().StringVar(&path, "path", "/ts", "HTTP path to mount the TS endpoint at")
	tsServerCmd.Flags().StringVar(&contentID, "content-id", "", "contentId companions must match to receive updates")
	tsServerCmd.Flags().StringVar(&selector, "selector", "urn:dvb:css:timeline:pts", "timeline selector this server reports")
	tsServerCmd.Flags().Float64Var(&tickRate, "tick-rate", 90000, "tick rate of the reported timeline")
	if err := tsServerCmd.MarkFlagRequired("content-id"); err != nil {
		log.Fatal(err)
	}
}

var tsServerCmd = &cobra.Command{
	Use:   "ts-server",
	Short: "run a timeline-sync server reporting a single timeline",
	Run: func(_ *cobra.Command, _ []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
		cfg, err := loadTSServerConfig()
		if err != nil {
			log.Fatal(err)
		}
		if err := runTSServer(cfg, listen, path, contentID, selector, tickRate); err != nil {
			log.Fatal(err)
		}
	},
}

func loadTSServerConfig() (*server.Config, error) {
	cfg := &server.Config{}
	var err error
	if configPath != "" {
		cfg, err = server.ReadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", configPath, err)
		}
	}
	return cfg, nil
}

func runTSServer(cfg *server.Config, listenAddr, mountPath, ciStem, timelineSelector string, timelineTickRate float64) error {
	counters := metrics.NewCounters()
	startMonitoring(counters)

	wallClock := clockgraph.NewSystemClock(1e9, 50)
	contentClock := clockgraph.NewCorrelatedClock(wallClock, timelineTickRate, clockgraph.Correlation{})
	source := protocol.NewSimpleClockTimelineSource(timelineSelector, contentClock, wallClock)

	s := server.New(*cfg)
	s.SetContentID(ciStem)
	s.AddSource(source)
	s.Start()
	defer s.Stop()

	mux := http.NewServeMux()
	mux.Handle(mountPath, transport.NewServer(s.Handler()))

	log.Infof("cssctl ts-server: listening on %s%s", listenAddr, mountPath)
	return http.ListenAndServe(listenAddr, mux)
}

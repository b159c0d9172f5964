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

package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/internal/metrics"
	"github.com/bbc-rd/csssync/transport"
	"github.com/bbc-rd/csssync/ts/protocol"
	"github.com/bbc-rd/csssync/ts/server"
)

func prepareConfig(cfgPath string, updateIntervalSecs float64) (*server.Config, error) {
	cfg := &server.Config{}
	var err error
	if cfgPath != "" {
		cfg, err = server.ReadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", cfgPath, err)
		}
	}
	if updateIntervalSecs != 0 && updateIntervalSecs != cfg.UpdateIntervalSecs {
		log.Warningf("overriding updateIntervalSecs from CLI flag")
		cfg.UpdateIntervalSecs = updateIntervalSecs
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}

// doWork mounts a TS server at path on listenAddr, serving a single
// selector off a free-running SystemClock-backed timeline: a
// stand-in for whatever content-position clock a real deployment
// would bind in its place.
func doWork(cfg *server.Config, listenAddr, path, contentID, selector string, tickRate float64, monitoringPort int) error {
	counters := metrics.NewCounters()
	exporter := metrics.NewPrometheusExporter(counters)
	monMux := http.NewServeMux()
	monMux.Handle("/metrics.json", counters)
	monMux.Handle("/metrics", exporter.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", monitoringPort)
		if err := http.ListenAndServe(addr, monMux); err != nil {
			log.Errorf("monitoring server on %s: %v", addr, err)
		}
	}()

	if sysStats, err := metrics.NewSysStatsReporter(counters); err != nil {
		log.Warningf("process stats unavailable: %v", err)
	} else {
		stop := make(chan struct{})
		defer close(stop)
		go sysStats.Run(stop, 10*time.Second)
	}

	wallClock := clockgraph.NewSystemClock(1e9, 50)
	contentClock := clockgraph.NewCorrelatedClock(wallClock, tickRate, clockgraph.Correlation{})
	source := protocol.NewSimpleClockTimelineSource(selector, contentClock, wallClock)

	s := server.New(*cfg)
	s.SetContentID(contentID)
	s.AddSource(source)
	s.Start()
	defer s.Stop()

	mux := http.NewServeMux()
	mux.Handle(path, transport.NewServer(s.Handler()))

	log.Infof("css-ts-server: listening on %s%s", listenAddr, path)
	return http.ListenAndServe(listenAddr, mux)
}

func main() {
	var (
		verboseFlag        bool
		configFlag         string
		listenFlag         string
		pathFlag           string
		contentIDFlag      string
		selectorFlag       string
		tickRateFlag       float64
		updateIntervalFlag float64
		monitoringPortFlag int
	)

	flag.BoolVar(&verboseFlag, "verbose", false, "verbose output")
	flag.StringVar(&configFlag, "config", "", "path to the config")
	flag.StringVar(&listenFlag, "listen", ":7682", "host:port to listen for TS websocket connections on")
	flag.StringVar(&pathFlag, "path", "/ts", "HTTP path to mount the TS endpoint at")
	flag.StringVar(&contentIDFlag, "content-id", "", "contentId companions must match to receive updates")
	flag.StringVar(&selectorFlag, "selector", "urn:dvb:css:timeline:pts", "timeline selector this server reports")
	flag.Float64Var(&tickRateFlag, "tick-rate", 90000, "tick rate of the reported timeline")
	flag.Float64Var(&updateIntervalFlag, "update-interval-secs", 0, "seconds between re-evaluations of every connection")
	flag.IntVar(&monitoringPortFlag, "monitoringport", 4274, "port to start monitoring http server on")

	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	if contentIDFlag == "" {
		log.Fatal("-content-id is required")
	}

	cfg, err := prepareConfig(configFlag, updateIntervalFlag)
	if err != nil {
		log.Fatal(err)
	}

	if err := doWork(cfg, listenFlag, pathFlag, contentIDFlag, selectorFlag, tickRateFlag, monitoringPortFlag); err != nil {
		log.Fatal(err)
	}
}

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

	"github.com/bbc-rd/csssync/cii/server"
	"github.com/bbc-rd/csssync/internal/metrics"
	"github.com/bbc-rd/csssync/schema"
	"github.com/bbc-rd/csssync/transport"
)

func prepareConfig(cfgPath, protocolVersion string) (*server.Config, error) {
	cfg := &server.Config{}
	var err error
	if cfgPath != "" {
		cfg, err = server.ReadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", cfgPath, err)
		}
	}
	if protocolVersion != "" && protocolVersion != cfg.ProtocolVersion {
		log.Warningf("overriding protocolVersion from CLI flag")
		cfg.ProtocolVersion = protocolVersion
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}

// doWork mounts a CII server at path on listenAddr and, if contentID
// is non-empty, seeds the initial state with it. The listener is left
// running until the process is killed.
func doWork(cfg *server.Config, listenAddr, path, contentID string, monitoringPort int) error {
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

	s := server.New(*cfg)
	if contentID != "" {
		s.Set(func(c *schema.CII) { c.ContentID = schema.Of(contentID) })
	}

	mux := http.NewServeMux()
	mux.Handle(path, transport.NewServer(s.Handler()))

	log.Infof("css-cii-server: listening on %s%s", listenAddr, path)
	return http.ListenAndServe(listenAddr, mux)
}

func main() {
	var (
		verboseFlag        bool
		configFlag         string
		listenFlag         string
		pathFlag           string
		contentIDFlag      string
		protocolVersion    string
		monitoringPortFlag int
	)

	flag.BoolVar(&verboseFlag, "verbose", false, "verbose output")
	flag.StringVar(&configFlag, "config", "", "path to the config")
	flag.StringVar(&listenFlag, "listen", ":7681", "host:port to listen for CII websocket connections on")
	flag.StringVar(&pathFlag, "path", "/cii", "HTTP path to mount the CII endpoint at")
	flag.StringVar(&contentIDFlag, "content-id", "", "initial contentId to seed")
	flag.StringVar(&protocolVersion, "protocol-version", "", "CII protocolVersion to advertise")
	flag.IntVar(&monitoringPortFlag, "monitoringport", 4273, "port to start monitoring http server on")

	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := prepareConfig(configFlag, protocolVersion)
	if err != nil {
		log.Fatal(err)
	}

	if err := doWork(cfg, listenFlag, pathFlag, contentIDFlag, monitoringPortFlag); err != nil {
		log.Fatal(err)
	}
}

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
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bbc-rd/csssync/internal/metrics"
	"github.com/bbc-rd/csssync/monotime"
	"github.com/bbc-rd/csssync/wc/server"
)

func prepareConfig(cfgPath string, workers int, maxFreqErrorPPM float64, followup bool) (*server.Config, error) {
	cfg := &server.Config{}
	var err error
	warn := func(name string) {
		log.Warningf("overriding %s from CLI flag", name)
	}
	if cfgPath != "" {
		cfg, err = server.ReadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", cfgPath, err)
		}
	}
	if workers != 0 && workers != cfg.Workers {
		warn("workers")
		cfg.Workers = workers
	}
	if maxFreqErrorPPM != 0 && maxFreqErrorPPM != cfg.MaxFreqErrorPPM {
		warn("maxFreqErrorPPM")
		cfg.MaxFreqErrorPPM = maxFreqErrorPPM
	}
	if followup {
		cfg.SupportsFollowup = true
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}

// doWork listens on listenAddr, measures this process's own timestamp
// precision, and runs the WC worker pool against every inbound
// datagram until the process is killed.
func doWork(cfg *server.Config, listenAddr string, monitoringPort int) error {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", listenAddr, err)
	}
	defer conn.Close()

	counters := metrics.NewCounters()
	exporter := metrics.NewPrometheusExporter(counters)
	mux := http.NewServeMux()
	mux.Handle("/metrics.json", counters)
	mux.Handle("/metrics", exporter.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", monitoringPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
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

	precisionSeconds := monotime.MeasurePrecision(monotime.NowNanos, 8)
	s := server.New(*cfg, precisionSeconds)
	s.Start()
	defer s.Stop()

	buf := make([]byte, 64)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("reading from socket: %w", err)
		}
		received := monotime.NowNanos()
		counters.Inc("wc.server.datagrams_received")
		raw := append([]byte(nil), buf[:n]...)
		replier := server.ReplierFunc(func(b []byte) error {
			_, err := conn.WriteToUDP(b, from)
			return err
		})
		s.HandleDatagram(raw, received, replier)
	}
}

func main() {
	var (
		verboseFlag         bool
		configFlag          string
		listenFlag          string
		workersFlag         int
		maxFreqErrorPPMFlag float64
		followupFlag        bool
		monitoringPortFlag  int
	)

	flag.BoolVar(&verboseFlag, "verbose", false, "verbose output")
	flag.StringVar(&configFlag, "config", "", "path to the config")
	flag.StringVar(&listenFlag, "listen", ":6677", "host:port to listen for WC requests on")
	flag.IntVar(&workersFlag, "workers", 0, "number of worker goroutines answering requests")
	flag.Float64Var(&maxFreqErrorPPMFlag, "max-freq-error-ppm", 0, "advertised maximum frequency error, parts per million")
	flag.BoolVar(&followupFlag, "followup", false, "use the type-2/type-3 two-step reply")
	flag.IntVar(&monitoringPortFlag, "monitoringport", 4272, "port to start monitoring http server on")

	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := prepareConfig(configFlag, workersFlag, maxFreqErrorPPMFlag, followupFlag)
	if err != nil {
		log.Fatal(err)
	}

	if err := doWork(cfg, listenFlag, monitoringPortFlag); err != nil {
		log.Fatal(err)
	}
}

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

	log "github.com/sirupsen/logrus"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/internal/metrics"
	"github.com/bbc-rd/csssync/monotime"
	"github.com/bbc-rd/csssync/wc/client"
)

func prepareConfig(cfgPath, algorithm string, repeatSecs, timeoutSecs float64) (*client.Config, error) {
	cfg := &client.Config{}
	var err error
	warn := func(name string) {
		log.Warningf("overriding %s from CLI flag", name)
	}
	if cfgPath != "" {
		cfg, err = client.ReadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", cfgPath, err)
		}
	}
	if algorithm != "" && algorithm != cfg.Algorithm {
		warn("algorithm")
		cfg.Algorithm = algorithm
	}
	if repeatSecs != 0 && repeatSecs != cfg.RepeatSecs {
		warn("repeatSecs")
		cfg.RepeatSecs = repeatSecs
	}
	if timeoutSecs != 0 && timeoutSecs != cfg.TimeoutSecs {
		warn("timeoutSecs")
		cfg.TimeoutSecs = timeoutSecs
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}

// doWork dials target over UDP, builds a tunable target clock hanging
// off a local SystemClock, and runs the WC client loop against it
// until the process is killed.
func doWork(cfg *client.Config, target string, monitoringPort int) error {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dialing %q: %w", target, err)
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

	sys := clockgraph.NewSystemClock(1e9, 50)
	targetClock := clockgraph.NewTunableClock(sys, 1e9, clockgraph.Correlation{})

	transport := client.TransportFunc(func(b []byte) error {
		_, err := conn.Write(b)
		if err != nil {
			counters.Inc("wc.client.send_errors")
		}
		return err
	})
	algorithm := client.NewAlgorithm(*cfg)
	c := client.New(targetClock, transport, algorithm, *cfg)

	go func() {
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				log.Warningf("wc client: read: %v", err)
				return
			}
			arrival := monotime.NowNanos()
			counters.Inc("wc.client.datagrams_received")
			c.HandleDatagram(buf[:n], arrival)
		}
	}()

	c.Run()
	return nil
}

func main() {
	var (
		verboseFlag        bool
		configFlag         string
		targetFlag         string
		algorithmFlag      string
		repeatSecsFlag     float64
		timeoutSecsFlag    float64
		monitoringPortFlag int
	)

	flag.BoolVar(&verboseFlag, "verbose", false, "verbose output")
	flag.StringVar(&configFlag, "config", "", "path to the config")
	flag.StringVar(&targetFlag, "target", "", "host:port of the WC server to query")
	flag.StringVar(&algorithmFlag, "algorithm", "", "candidate algorithm: lowest-dispersion or filter-predict")
	flag.Float64Var(&repeatSecsFlag, "repeat-secs", 0, "seconds between requests")
	flag.Float64Var(&timeoutSecsFlag, "timeout-secs", 0, "seconds to wait for a response")
	flag.IntVar(&monitoringPortFlag, "monitoringport", 4271, "port to start monitoring http server on")

	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	if targetFlag == "" {
		log.Fatal("-target is required")
	}

	cfg, err := prepareConfig(configFlag, algorithmFlag, repeatSecsFlag, timeoutSecsFlag)
	if err != nil {
		log.Fatal(err)
	}

	if err := doWork(cfg, targetFlag, monitoringPortFlag); err != nil {
		log.Fatal(err)
	}
}

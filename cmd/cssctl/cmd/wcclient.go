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
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/internal/metrics"
	"github.com/bbc-rd/csssync/monotime"
	"github.com/bbc-rd/csssync/wc/client"
)

func init() {
	RootCmd.AddCommand(wcClientCmd)
	wcClientCmd.Flags().StringVar(&target, "target", "", "host:port of the WC server to query")
	wcClientCmd.Flags().StringVar(&algorithm, "algorithm", "", "candidate algorithm: lowest-dispersion or filter-predict")
	if err := wcClientCmd.MarkFlagRequired("target"); err != nil {
		log.Fatal(err)
	}
}

var wcClientCmd = &cobra.Command{
	Use:   "wc-client",
	Short: "run a wall-clock protocol client against a WC server",
	Run: func(_ *cobra.Command, _ []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
		cfg, err := loadWCClientConfig()
		if err != nil {
			log.Fatal(err)
		}
		if err := runWCClient(cfg, target); err != nil {
			log.Fatal(err)
		}
	},
}

func loadWCClientConfig() (*client.Config, error) {
	cfg := &client.Config{}
	var err error
	if configPath != "" {
		cfg, err = client.ReadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", configPath, err)
		}
	}
	if algorithm != "" && algorithm != cfg.Algorithm {
		log.Warningf("overriding algorithm from CLI flag")
		cfg.Algorithm = algorithm
	}
	return cfg, nil
}

func runWCClient(cfg *client.Config, targetAddr string) error {
	addr, err := net.ResolveUDPAddr("udp", targetAddr)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", targetAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dialing %q: %w", targetAddr, err)
	}
	defer conn.Close()

	counters := metrics.NewCounters()
	startMonitoring(counters)

	sys := clockgraph.NewSystemClock(1e9, 50)
	targetClock := clockgraph.NewTunableClock(sys, 1e9, clockgraph.Correlation{})

	transport := client.TransportFunc(func(b []byte) error {
		_, err := conn.Write(b)
		if err != nil {
			counters.Inc("wc.client.send_errors")
		}
		return err
	})
	algo := client.NewAlgorithm(*cfg)
	c := client.New(targetClock, transport, algo, *cfg)

	if lowestDispersion, ok := algo.(*client.LowestDispersionAlgorithm); ok && term.IsTerminal(int(os.Stdout.Fd())) {
		go printWCClientStatus(targetClock, lowestDispersion)
	}

	go func() {
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				log.Warningf("wc client: read: %v", err)
				return
			}
			counters.Inc("wc.client.datagrams_received")
			c.HandleDatagram(buf[:n], monotime.NowNanos())
		}
	}()

	c.Run()
	return nil
}

// printWCClientStatus periodically renders the target clock's current
// correlation and RTT jitter to stdout, the way ptpcheck's diag/sources
// commands render live PTP status: every two seconds a fresh table is
// written below the previous one.
func printWCClientStatus(targetClock *clockgraph.TunableClock, algo *client.LowestDispersionAlgorithm) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		jitter := algo.RTTJitterSeconds()
		status := color.GreenString("[ OK ]")
		if jitter > 0.005 {
			status = color.YellowString("[WARN]")
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"status", "parent ticks", "child ticks", "rtt jitter"})
		corr := targetClock.Correlation()
		table.Append([]string{
			status,
			fmt.Sprintf("%.0f", corr.ParentTicks),
			fmt.Sprintf("%.0f", corr.ChildTicks),
			fmt.Sprintf("%.6fs", jitter),
		})
		table.Render()
	}
}

// startMonitoring mounts counters on the monitoring port, repeating
// the pattern the standalone css-* binaries use: each call builds its
// own exporter and mux and starts its own listener.
func startMonitoring(counters *metrics.Counters) {
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
}

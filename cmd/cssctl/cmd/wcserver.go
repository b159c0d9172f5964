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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bbc-rd/csssync/internal/metrics"
	"github.com/bbc-rd/csssync/monotime"
	"github.com/bbc-rd/csssync/wc/server"
)

func init() {
	RootCmd.AddCommand(wcServerCmd)
	wcServerCmd.Flags().StringVar(&listen, "listen", ":6677", "host:port to listen for WC requests on")
}

var wcServerCmd = &cobra.Command{
	Use:   "wc-server",
	Short: "run a wall-clock protocol server answering WC requests",
	Run: func(_ *cobra.Command, _ []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
		cfg, err := loadWCServerConfig()
		if err != nil {
			log.Fatal(err)
		}
		if err := runWCServer(cfg, listen); err != nil {
			log.Fatal(err)
		}
	},
}

func loadWCServerConfig() (*server.Config, error) {
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

func runWCServer(cfg *server.Config, listenAddr string) error {
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
	startMonitoring(counters)

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

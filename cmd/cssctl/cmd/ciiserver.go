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

	"github.com/bbc-rd/csssync/cii/server"
	"github.com/bbc-rd/csssync/internal/metrics"
	"github.com/bbc-rd/csssync/schema"
	"github.com/bbc-rd/csssync/transport"
)

func init() {
	RootCmd.AddCommand(ciiServerCmd)
	ciiServerCmd.Flags().StringVar(&listen, "listen", ":7681", "host:port to listen for CII websocket connections on")
	ciiServerCmd.Flags().StringVar(&path, "path", "/cii", "HTTP path to mount the CII endpoint at")
	ciiServerCmd.Flags().StringVar(&contentID, "content-id", "", "initial contentId to seed")
	ciiServerCmd.Flags().StringVar(&protocolVersion, "protocol-version", "", "CII protocolVersion to advertise")
}

var ciiServerCmd = &cobra.Command{
	Use:   "cii-server",
	Short: "run a content-identity server broadcasting CII state",
	Run: func(_ *cobra.Command, _ []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
		cfg, err := loadCIIServerConfig()
		if err != nil {
			log.Fatal(err)
		}
		if err := runCIIServer(cfg, listen, path, contentID); err != nil {
			log.Fatal(err)
		}
	},
}

func loadCIIServerConfig() (*server.Config, error) {
	cfg := &server.Config{}
	var err error
	if configPath != "" {
		cfg, err = server.ReadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", configPath, err)
		}
	}
	if protocolVersion != "" && protocolVersion != cfg.ProtocolVersion {
		log.Warningf("overriding protocolVersion from CLI flag")
		cfg.ProtocolVersion = protocolVersion
	}
	return cfg, nil
}

func runCIIServer(cfg *server.Config, listenAddr, mountPath, initialContentID string) error {
	counters := metrics.NewCounters()
	startMonitoring(counters)

	s := server.New(*cfg)
	if initialContentID != "" {
		s.Set(func(c *schema.CII) { c.ContentID = schema.Of(initialContentID) })
	}

	mux := http.NewServeMux()
	mux.Handle(mountPath, transport.NewServer(s.Handler()))

	log.Infof("cssctl cii-server: listening on %s%s", listenAddr, mountPath)
	return http.ListenAndServe(listenAddr, mux)
}

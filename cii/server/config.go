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

package server

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds the protocol version this server advertises in the full
// state sent to every new connection; a diff carries it only when it
// changes.
type Config struct {
	ProtocolVersion string `yaml:"protocol_version"`
}

// ReadConfig loads Config from a YAML file, defaulting ProtocolVersion
// to "1.1" (the version spec.md's CII field-mapping table documents).
func ReadConfig(path string) (*Config, error) {
	cfg := &Config{ProtocolVersion: "1.1"}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = "1.1"
	}
	return cfg, nil
}

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
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds the TS server's polling cadence: how often it
// re-evaluates availability and timeline readings for every connected
// companion.
type Config struct {
	UpdateIntervalSecs float64 `yaml:"update_interval_secs"`
}

// ReadConfig loads Config from a YAML file, filling in defaults for
// anything left unset.
func ReadConfig(path string) (*Config, error) {
	cfg := &Config{UpdateIntervalSecs: 0.1}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if cfg.UpdateIntervalSecs <= 0 {
		cfg.UpdateIntervalSecs = 0.1
	}
	return cfg, nil
}

func (c Config) updateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSecs * float64(time.Second))
}

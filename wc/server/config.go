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

	yaml "gopkg.in/yaml.v2"
)

// Config describes a WC server's advertised maximum frequency error
// and how it answers requests.
type Config struct {
	// Workers is the number of worker goroutines draining the inbound
	// queue, matching facebook-time's responder/server.Server.Workers.
	Workers int `yaml:"workers"`
	// MaxFreqErrorPPM is advertised to clients verbatim in every reply.
	MaxFreqErrorPPM float64 `yaml:"max_freq_error_ppm"`
	// SupportsFollowup enables the type-2/type-3 two-step reply, used
	// when the platform can measure a more accurate post-transmission
	// t3 than it can produce before the type-1 reply is built.
	SupportsFollowup bool `yaml:"supports_followup"`
}

// ReadConfig reads Config from a YAML file.
func ReadConfig(path string) (*Config, error) {
	c := &Config{Workers: 4}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

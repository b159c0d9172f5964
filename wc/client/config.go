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

package client

import (
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Supported algorithm names for Config.Algorithm.
const (
	AlgorithmLowestDispersion = "lowest-dispersion"
	AlgorithmFilterPredict    = "filter-predict"
)

// Config describes how a Client paces requests and picks candidates.
type Config struct {
	Algorithm string `yaml:"algorithm"`

	// RepeatSecs is how often a request is sent while responses are
	// arriving on time.
	RepeatSecs float64 `yaml:"repeat_secs"`
	// TimeoutSecs is how long to wait for a response before the
	// attempt is abandoned and the next one sent.
	TimeoutSecs float64 `yaml:"timeout_secs"`
	// RTTThresholdSecs discards candidates whose RTT exceeds it, used
	// by both built-in algorithms.
	RTTThresholdSecs float64 `yaml:"rtt_threshold_secs"`
	// WindowSize bounds how many candidates LowestDispersionAlgorithm
	// and FilterPredictAlgorithm keep in their candidate windows.
	WindowSize int `yaml:"window_size"`
	// LocalMaxFreqErrorPPMOverride, if non-nil, is used in place of
	// the target clock's system-clock ancestor's configured maximum
	// frequency error.
	LocalMaxFreqErrorPPMOverride *float64 `yaml:"local_max_freq_error_ppm_override"`
}

// ReadConfig reads Config from a YAML file, defaulting fields a caller
// did not set.
func ReadConfig(path string) (*Config, error) {
	c := &Config{
		Algorithm:        AlgorithmLowestDispersion,
		RepeatSecs:       1,
		TimeoutSecs:      1,
		RTTThresholdSecs: 1,
		WindowSize:       8,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

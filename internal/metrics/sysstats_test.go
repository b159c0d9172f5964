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

package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
)

var expectedSysStatsKeys = []string{
	"process.uptime_seconds",
	"process.heap_alloc_bytes",
	"process.num_goroutine",
	"process.cpu_pct_x100",
	"process.rss_bytes",
}

func TestSysStatsReporterSamplesExpectedKeys(t *testing.T) {
	c := NewCounters()
	r, err := NewSysStatsReporter(c)
	require.NoError(t, err)

	r.sample()

	keys := maps.Keys(c.Snapshot())
	require.ElementsMatch(t, expectedSysStatsKeys, keys)
}

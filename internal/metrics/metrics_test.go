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
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncAndSnapshot(t *testing.T) {
	c := NewCounters()
	c.Inc("requests")
	c.Inc("requests")
	c.Add("responses", 5)

	snap := c.Snapshot()
	require.Equal(t, int64(2), snap["requests"])
	require.Equal(t, int64(5), snap["responses"])
}

func TestConcurrentIncIsRaceFree(t *testing.T) {
	c := NewCounters()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc("requests")
		}()
	}
	wg.Wait()
	require.Equal(t, int64(100), c.Snapshot()["requests"])
}

func TestServeHTTPRendersJSON(t *testing.T) {
	c := NewCounters()
	c.Inc("requests")

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/metrics.json", nil)
	c.ServeHTTP(w, r)

	require.Equal(t, 200, w.Code)
	var body map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, int64(1), body["requests"])
}

func TestPrometheusExporterCollectsCounters(t *testing.T) {
	c := NewCounters()
	c.Inc("wc.requests")

	exp := NewPrometheusExporter(c)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/metrics", nil)
	exp.Handler().ServeHTTP(w, r)

	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "wc_requests")
}

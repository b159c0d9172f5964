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
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// collector adapts a Counters snapshot to prometheus.Collector. Keys
// are only known at scrape time, so Describe is intentionally a no-op:
// this collector is unchecked, same tradeoff the teacher's exporter
// makes by registering one ad hoc gauge per observed key.
type collector struct {
	counters *Counters
}

func (c *collector) Describe(chan<- *prometheus.Desc) {}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for key, val := range c.counters.Snapshot() {
		desc := prometheus.NewDesc(flattenKey(key), key, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(val))
	}
}

func flattenKey(key string) string {
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "=", "_")
	key = strings.ReplaceAll(key, "/", "_")
	return key
}

// PrometheusExporter exposes a Counters set through a dedicated
// prometheus.Registry, independent of the default global one so
// multiple css-* binaries in one process (e.g. cssctl driving several
// in-process components) never collide on metric names.
type PrometheusExporter struct {
	registry *prometheus.Registry
}

// NewPrometheusExporter creates an exporter reading from counters.
func NewPrometheusExporter(counters *Counters) *PrometheusExporter {
	e := &PrometheusExporter{registry: prometheus.NewRegistry()}
	e.registry.MustRegister(&collector{counters: counters})
	return e
}

// Handler returns the http.Handler to mount at the process's /metrics
// path. Owning the listener itself is left to the caller, the same
// way wc/server and cii/server leave their sockets external.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

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

// Package metrics is the counters the css-* binaries increment: WC
// datagrams received and WC client send errors, plus the process
// statistics SysStatsReporter samples. Counters exposes them as plain JSON over HTTP
// and, through PrometheusExporter, as a Prometheus scrape endpoint —
// both read the same atomic counter map, so nothing here makes a
// network hop to get numbers out of a running process.
package metrics

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
	"os"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// SysStatsReporter samples process CPU/memory/goroutine counts into a
// Counters set on a fixed interval, alongside the protocol counters
// each css-* server already increments, so one /metrics scrape covers
// both halves of the process's health.
type SysStatsReporter struct {
	counters *Counters
	proc     *process.Process
}

// NewSysStatsReporter creates a reporter for the calling process,
// writing into counters.
func NewSysStatsReporter(counters *Counters) (*SysStatsReporter, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &SysStatsReporter{counters: counters, proc: proc}, nil
}

// Run samples stats every interval until stop is closed.
func (r *SysStatsReporter) Run(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.sample()
		}
	}
}

func (r *SysStatsReporter) sample() {
	r.counters.Set("process.uptime_seconds", int64(time.Since(procStartTime).Seconds()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.counters.Set("process.heap_alloc_bytes", int64(m.HeapAlloc))
	r.counters.Set("process.num_goroutine", int64(runtime.NumGoroutine()))

	if pct, err := r.proc.Percent(0); err == nil {
		r.counters.Set("process.cpu_pct_x100", int64(pct*100))
	} else {
		log.Debugf("metrics: cpu percent unavailable: %v", err)
	}
	if info, err := r.proc.MemoryInfo(); err == nil && info != nil {
		r.counters.Set("process.rss_bytes", int64(info.RSS))
	} else {
		log.Debugf("metrics: process memory info unavailable: %v", err)
	}
}

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

package monotime

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

var latch int64
var warnOnce sync.Once

// NowNanos returns a monotonic, never-decreasing nanosecond count.
// The origin is arbitrary but consistent for the lifetime of the
// process: only differences between two readings are meaningful.
func NowNanos() int64 {
	n, err := rawNowNanos()
	if err != nil {
		warnOnce.Do(func() {
			log.Warningf("monotime: falling back to latched wall clock: %v", err)
		})
		n = time.Now().UnixNano()
	}
	for {
		prev := atomic.LoadInt64(&latch)
		if n <= prev {
			return prev
		}
		if atomic.CompareAndSwapInt64(&latch, prev, n) {
			return n
		}
	}
}

// Sleep blocks for at least the given duration. Unlike time.Sleep it
// re-checks NowNanos on wakeup and loops if the OS woke it early,
// which matters for scheduler-driven waits that must never fire
// before their target time.
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := NowNanos() + d.Nanoseconds()
	for {
		remaining := deadline - NowNanos()
		if remaining <= 0 {
			return
		}
		time.Sleep(time.Duration(remaining))
	}
}

// MeasurePrecision samples nanos() repeatedly and returns the smallest
// non-zero delta observed between successive reads, converted to
// seconds. nanos is expected to return a clock reading already
// expressed in nanoseconds (clockgraph.Clock.Nanos, or NowNanos
// itself); it is used to estimate a clock's reading precision for the
// WC wire field and for correlation error-bound construction.
func MeasurePrecision(nanos func() int64, samples int) float64 {
	if samples < 2 {
		samples = 2
	}
	var min int64
	prev := nanos()
	for i := 1; i < samples; i++ {
		cur := nanos()
		if cur != prev {
			delta := cur - prev
			if delta < 0 {
				delta = -delta
			}
			if min == 0 || delta < min {
				min = delta
			}
		}
		prev = cur
	}
	if min == 0 {
		return 0
	}
	return float64(min) / 1e9
}

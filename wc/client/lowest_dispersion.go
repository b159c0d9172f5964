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
	"sync"
	"time"

	"github.com/eclesh/welford"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/wc/protocol"
)

// LowestDispersionAlgorithm keeps a bounded window of recent
// candidates and, on every new one, installs the correlation built
// from whichever candidate currently has the lowest quality score
// (rtt/2 plus frequency error accumulated since its arrival time).
// Candidates whose RTT exceeds cfg.RTTThresholdSecs never enter the
// window.
type LowestDispersionAlgorithm struct {
	cfg      Config
	nowNanos func() int64

	mu      sync.Mutex
	window  []protocol.Candidate
	repeat  time.Duration
	timeout time.Duration
	rtt     *welford.Stats
}

// NewLowestDispersionAlgorithm creates a LowestDispersionAlgorithm
// from cfg, using nowNanos (normally monotime.NowNanos) to timestamp
// "now" for the quality formula's elapsed-time term.
func NewLowestDispersionAlgorithm(cfg Config, nowNanos func() int64) *LowestDispersionAlgorithm {
	return &LowestDispersionAlgorithm{
		cfg:      cfg,
		nowNanos: nowNanos,
		repeat:   secondsToDuration(cfg.RepeatSecs),
		timeout:  secondsToDuration(cfg.TimeoutSecs),
		rtt:      welford.New(),
	}
}

// OnCandidate implements Algorithm.
func (a *LowestDispersionAlgorithm) OnCandidate(cand protocol.Candidate, local localInfo) (clockgraph.Correlation, bool) {
	if a.cfg.RTTThresholdSecs > 0 && cand.RTT/1e9 > a.cfg.RTTThresholdSecs {
		return clockgraph.Correlation{}, false
	}

	a.mu.Lock()
	a.window = append(a.window, cand)
	if max := a.cfg.WindowSize; max > 0 && len(a.window) > max {
		a.window = a.window[len(a.window)-max:]
	}
	window := append([]protocol.Candidate(nil), a.window...)
	a.rtt.Add(cand.RTT / 1e9)
	a.mu.Unlock()

	now := a.nowNanos()
	best := window[0]
	bestQuality := quality(best, local, now, best.T4)
	for _, c := range window[1:] {
		q := quality(c, local, now, c.T4)
		if q < bestQuality {
			best, bestQuality = c, q
		}
	}
	return buildCorrelation(best, local), true
}

// CurrentInterval implements Algorithm.
func (a *LowestDispersionAlgorithm) CurrentInterval() time.Duration {
	return a.repeat
}

// RTTJitterSeconds returns the running standard deviation of accepted
// candidates' round trip times, in seconds, computed incrementally
// with Welford's algorithm so it stays O(1) regardless of how long
// the client has been running (unlike a recompute over the bounded
// window, which only ever sees cfg.WindowSize samples). Useful as a
// link-quality signal distinct from any single candidate's RTT.
func (a *LowestDispersionAlgorithm) RTTJitterSeconds() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rtt.Stddev()
}

func secondsToDuration(secs float64) time.Duration {
	if secs <= 0 {
		return time.Second
	}
	return time.Duration(secs * float64(time.Second))
}

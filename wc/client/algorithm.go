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
	"time"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/monotime"
	"github.com/bbc-rd/csssync/wc/protocol"
)

// localInfo bundles the locally-known quantities an Algorithm needs
// to turn a Candidate into a Correlation: the target clock's own
// precision and frequency-error budget, and the parent/child tick
// rates needed to move nanosecond quantities into each clock's tick
// domain.
type localInfo struct {
	precisionSeconds float64
	maxFreqErrorPPM  float64
	parentTickRate   float64
	childTickRate    float64
}

// Algorithm consumes each completed round trip and decides whether,
// and to what Correlation, the target clock should be retuned.
type Algorithm interface {
	// OnCandidate is fed every successful round trip, nanosecond
	// quantities throughout. It returns a Correlation to install and
	// true, or false if this candidate does not warrant a change.
	OnCandidate(cand protocol.Candidate, local localInfo) (clockgraph.Correlation, bool)
	// CurrentInterval is how long the client should wait before
	// sending its next request.
	CurrentInterval() time.Duration
}

// buildCorrelation implements the shared construction formula both
// built-in algorithms use: parentT is the candidate's arrival time
// (t4) expressed in the target clock's parent's own ticks, childT is
// the estimated true time at t4 expressed in the target clock's own
// ticks, initialError is half the round trip (converted from
// nanoseconds to seconds) plus both ends' precision, and growthRate is the combined frequency-error budget of
// both ends, expressed as seconds of error per parent tick so it
// composes correctly with Correlation.DispersionAt.
func buildCorrelation(cand protocol.Candidate, local localInfo) clockgraph.Correlation {
	parentT := nanosToTicks(float64(cand.T4), local.parentTickRate)
	childT := nanosToTicks(float64(cand.T4)+cand.Offset, local.childTickRate)
	growthRatePerSecond := (local.maxFreqErrorPPM + cand.RemoteMaxFreqErrorPPM) * 1e-6
	growthRatePerParentTick := growthRatePerSecond
	if local.parentTickRate != 0 {
		growthRatePerParentTick = growthRatePerSecond / local.parentTickRate
	}
	return clockgraph.Correlation{
		ParentTicks:     parentT,
		ChildTicks:      childT,
		InitialError:    cand.RTT/2/1e9 + cand.RemotePrecisionSeconds + local.precisionSeconds,
		ErrorGrowthRate: growthRatePerParentTick,
	}
}

func nanosToTicks(nanos, tickRate float64) float64 {
	return nanos * tickRate / 1e9
}

// NewAlgorithm builds the Algorithm named by cfg.Algorithm. Unknown
// names fall back to AlgorithmLowestDispersion, cfg's own default.
func NewAlgorithm(cfg Config) Algorithm {
	switch cfg.Algorithm {
	case AlgorithmFilterPredict:
		return NewFilterPredictAlgorithm(cfg,
			[]Filter{
				&RTTThresholdFilter{ThresholdSeconds: cfg.RTTThresholdSecs},
				NewLowestDispersionSoFarFilter(),
			},
			&SimplePredictor{},
		)
	default:
		return NewLowestDispersionAlgorithm(cfg, monotime.NowNanos)
	}
}

// quality is the dispersion-like score LowestDispersionAlgorithm and
// the lowest-dispersion-so-far Filter both minimise, in seconds: rtt/2
// plus the frequency error the candidate will have accumulated by
// now. cand.RTT is nanoseconds (protocol.NewCandidate), so it is
// converted to seconds before being combined with the
// already-seconds-scale accumulated-error term.
func quality(cand protocol.Candidate, local localInfo, nowNanos, t4 int64) float64 {
	accumulated := (local.maxFreqErrorPPM + cand.RemoteMaxFreqErrorPPM) * 1e-6
	elapsedSeconds := float64(nowNanos-t4) / 1e9
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	return cand.RTT/2/1e9 + accumulated*elapsedSeconds
}

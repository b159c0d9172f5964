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
	"math"
	"sync"
	"time"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/wc/protocol"
)

// Filter decides whether one candidate survives into the predictor
// stage of a FilterPredictAlgorithm's pipeline. A Filter is free to
// keep state across calls (LowestDispersionSoFarFilter does); a
// stateless one (RTTThresholdFilter) does not need to.
type Filter interface {
	Accept(cand protocol.Candidate) bool
}

// RTTThresholdFilter rejects any candidate whose round trip exceeds
// ThresholdSeconds. A non-positive threshold disables the filter.
type RTTThresholdFilter struct {
	ThresholdSeconds float64
}

// Accept implements Filter.
func (f RTTThresholdFilter) Accept(cand protocol.Candidate) bool {
	return f.ThresholdSeconds <= 0 || cand.RTT/1e9 <= f.ThresholdSeconds
}

// LowestDispersionSoFarFilter only accepts a candidate whose half-RTT
// improves on the best it has seen since construction; this lets the
// pipeline ratchet down towards the best-observed link quality rather
// than reacting to every sample.
type LowestDispersionSoFarFilter struct {
	mu   sync.Mutex
	best float64
}

// NewLowestDispersionSoFarFilter creates a filter with no prior best.
func NewLowestDispersionSoFarFilter() *LowestDispersionSoFarFilter {
	return &LowestDispersionSoFarFilter{best: math.Inf(1)}
}

// Accept implements Filter.
func (f *LowestDispersionSoFarFilter) Accept(cand protocol.Candidate) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	half := cand.RTT / 2
	if half < f.best {
		f.best = half
		return true
	}
	return false
}

// Predictor maps the candidates that survived a FilterPredictAlgorithm's
// filter chain to the one candidate that chain's Correlation should be
// built from.
type Predictor interface {
	Predict(survivors []protocol.Candidate) (protocol.Candidate, bool)
}

// SimplePredictor always predicts the latest surviving candidate.
type SimplePredictor struct{}

// Predict implements Predictor.
func (SimplePredictor) Predict(survivors []protocol.Candidate) (protocol.Candidate, bool) {
	if len(survivors) == 0 {
		return protocol.Candidate{}, false
	}
	return survivors[len(survivors)-1], true
}

// FilterPredictAlgorithm runs every candidate through an ordered chain
// of Filters; a candidate rejected by any filter is dropped entirely.
// Surviving candidates accumulate in a bounded window that is handed
// to a Predictor, whose chosen candidate becomes the next Correlation.
type FilterPredictAlgorithm struct {
	cfg       Config
	filters   []Filter
	predictor Predictor
	repeat    time.Duration

	mu        sync.Mutex
	survivors []protocol.Candidate
}

// NewFilterPredictAlgorithm creates a FilterPredictAlgorithm running
// filters in order, then predictor, over cfg's window and timing.
func NewFilterPredictAlgorithm(cfg Config, filters []Filter, predictor Predictor) *FilterPredictAlgorithm {
	return &FilterPredictAlgorithm{
		cfg:       cfg,
		filters:   filters,
		predictor: predictor,
		repeat:    secondsToDuration(cfg.RepeatSecs),
	}
}

// OnCandidate implements Algorithm.
func (a *FilterPredictAlgorithm) OnCandidate(cand protocol.Candidate, local localInfo) (clockgraph.Correlation, bool) {
	for _, f := range a.filters {
		if !f.Accept(cand) {
			return clockgraph.Correlation{}, false
		}
	}

	a.mu.Lock()
	a.survivors = append(a.survivors, cand)
	if max := a.cfg.WindowSize; max > 0 && len(a.survivors) > max {
		a.survivors = a.survivors[len(a.survivors)-max:]
	}
	survivors := append([]protocol.Candidate(nil), a.survivors...)
	a.mu.Unlock()

	chosen, ok := a.predictor.Predict(survivors)
	if !ok {
		return clockgraph.Correlation{}, false
	}
	return buildCorrelation(chosen, local), true
}

// CurrentInterval implements Algorithm.
func (a *FilterPredictAlgorithm) CurrentInterval() time.Duration {
	return a.repeat
}

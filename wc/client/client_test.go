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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/wc/protocol"
)

// S1: t1=116_012_000_000, t2=116_012_500_000, t3=116_013_000_000,
// t4=116_020_000_000 gives offset=-3_250_000ns, rtt=7_500_000ns.
func scenarioS1Candidate() protocol.Candidate {
	return protocol.NewCandidate(116_012_000_000, 116_012_500_000, 116_013_000_000, 116_020_000_000)
}

func TestBuildCorrelationNanosecondTickRates(t *testing.T) {
	cand := scenarioS1Candidate()
	cand.RemotePrecisionSeconds = 0.001
	cand.RemoteMaxFreqErrorPPM = 10

	local := localInfo{
		precisionSeconds: 0.0005,
		maxFreqErrorPPM:  5,
		parentTickRate:   1e9,
		childTickRate:    1e9,
	}
	corr := buildCorrelation(cand, local)

	require.Equal(t, float64(116_020_000_000), corr.ParentTicks)
	require.InDelta(t, 116_020_000_000+cand.Offset, corr.ChildTicks, 1e-6)
	require.InDelta(t, cand.RTT/2/1e9+0.001+0.0005, corr.InitialError, 1e-9)
	require.InDelta(t, 15e-6/1e9, corr.ErrorGrowthRate, 1e-20)
}

func TestBuildCorrelationScalesByParentTickRate(t *testing.T) {
	cand := scenarioS1Candidate()
	local := localInfo{parentTickRate: 2e9, childTickRate: 1000}
	corr := buildCorrelation(cand, local)

	require.Equal(t, float64(116_020_000_000)*2, corr.ParentTicks)
	require.InDelta(t, (116_020_000_000+cand.Offset)*1000/1e9, corr.ChildTicks, 1e-6)
}

func TestRTTThresholdFilterRejectsOverThreshold(t *testing.T) {
	f := RTTThresholdFilter{ThresholdSeconds: 0.005}
	require.True(t, f.Accept(protocol.Candidate{RTT: 4_000_000}))
	require.False(t, f.Accept(protocol.Candidate{RTT: 6_000_000}))
}

func TestRTTThresholdFilterDisabledWhenNonPositive(t *testing.T) {
	f := RTTThresholdFilter{ThresholdSeconds: 0}
	require.True(t, f.Accept(protocol.Candidate{RTT: 1e12}))
}

func TestLowestDispersionSoFarFilterOnlyAcceptsImprovements(t *testing.T) {
	f := NewLowestDispersionSoFarFilter()
	require.True(t, f.Accept(protocol.Candidate{RTT: 10_000_000}))
	require.False(t, f.Accept(protocol.Candidate{RTT: 12_000_000}))
	require.True(t, f.Accept(protocol.Candidate{RTT: 4_000_000}))
}

func TestFilterPredictAlgorithmDropsCandidateRejectedByAnyFilter(t *testing.T) {
	cfg := Config{RepeatSecs: 1, WindowSize: 4}
	a := NewFilterPredictAlgorithm(cfg, []Filter{RTTThresholdFilter{ThresholdSeconds: 0.005}}, SimplePredictor{})

	_, ok := a.OnCandidate(protocol.Candidate{RTT: 6_000_000}, localInfo{parentTickRate: 1e9, childTickRate: 1e9})
	require.False(t, ok)

	corr, ok := a.OnCandidate(protocol.Candidate{RTT: 4_000_000, T4: 100}, localInfo{parentTickRate: 1e9, childTickRate: 1e9})
	require.True(t, ok)
	require.Equal(t, float64(100), corr.ParentTicks)
}

func TestFilterPredictAlgorithmPredictsLatestSurvivor(t *testing.T) {
	cfg := Config{RepeatSecs: 1, WindowSize: 4}
	a := NewFilterPredictAlgorithm(cfg, nil, SimplePredictor{})

	_, ok := a.OnCandidate(protocol.Candidate{T4: 100}, localInfo{parentTickRate: 1e9, childTickRate: 1e9})
	require.True(t, ok)
	corr, ok := a.OnCandidate(protocol.Candidate{T4: 200}, localInfo{parentTickRate: 1e9, childTickRate: 1e9})
	require.True(t, ok)
	require.Equal(t, float64(200), corr.ParentTicks)
}

func TestLowestDispersionAlgorithmPicksMinimalQuality(t *testing.T) {
	cfg := Config{RepeatSecs: 1, TimeoutSecs: 1, WindowSize: 8}
	now := int64(0)
	a := NewLowestDispersionAlgorithm(cfg, func() int64 { return now })

	local := localInfo{parentTickRate: 1e9, childTickRate: 1e9}
	_, ok := a.OnCandidate(protocol.Candidate{RTT: 20_000_000, T4: 0}, local)
	require.True(t, ok)
	corr, ok := a.OnCandidate(protocol.Candidate{RTT: 4_000_000, T4: 0}, local)
	require.True(t, ok)
	require.Equal(t, float64(0), corr.ParentTicks)

	// lower RTT candidate should win even though it arrived second
	require.InDelta(t, 0, corr.ChildTicks, 1e-6)
}

func TestLowestDispersionAlgorithmPrefersFresherOverLowerRTT(t *testing.T) {
	cfg := Config{RepeatSecs: 1, WindowSize: 8}
	now := int64(10_000_000_000) // 10s, in nanoseconds
	a := NewLowestDispersionAlgorithm(cfg, func() int64 { return now })

	// maxFreqErrorPPM is large enough that ten seconds of staleness
	// outweighs a 2ms RTT advantage, once both terms are compared in
	// the same (seconds) scale.
	local := localInfo{parentTickRate: 1e9, childTickRate: 1e9, maxFreqErrorPPM: 1000}

	// stale candidate: lower RTT, but arrived ten seconds ago.
	_, ok := a.OnCandidate(protocol.Candidate{RTT: 4_000_000, T4: 0}, local)
	require.True(t, ok)
	// fresh candidate: higher RTT, but arrived just now.
	corr, ok := a.OnCandidate(protocol.Candidate{RTT: 6_000_000, T4: now}, local)
	require.True(t, ok)

	require.Equal(t, float64(now), corr.ParentTicks)
}

func TestLowestDispersionAlgorithmRejectsOverThreshold(t *testing.T) {
	cfg := Config{RepeatSecs: 1, RTTThresholdSecs: 0.005}
	a := NewLowestDispersionAlgorithm(cfg, func() int64 { return 0 })
	_, ok := a.OnCandidate(protocol.Candidate{RTT: 10_000_000}, localInfo{})
	require.False(t, ok)
}

func TestLowestDispersionAlgorithmWindowEvictsOldest(t *testing.T) {
	cfg := Config{RepeatSecs: 1, WindowSize: 2}
	a := NewLowestDispersionAlgorithm(cfg, func() int64 { return 0 })
	local := localInfo{parentTickRate: 1e9, childTickRate: 1e9}
	_, _ = a.OnCandidate(protocol.Candidate{RTT: 2_000_000, T4: 1}, local)
	_, _ = a.OnCandidate(protocol.Candidate{RTT: 20_000_000, T4: 2}, local)
	corr, ok := a.OnCandidate(protocol.Candidate{RTT: 20_000_000, T4: 3}, local)
	require.True(t, ok)
	// the best (T4=1) candidate has fallen out of the window, so one
	// of the two remaining (tied) 20ms candidates wins.
	require.NotEqual(t, float64(1), corr.ParentTicks)
}

func TestLowestDispersionAlgorithmTracksRTTJitter(t *testing.T) {
	cfg := Config{RepeatSecs: 1, WindowSize: 8}
	a := NewLowestDispersionAlgorithm(cfg, func() int64 { return 0 })
	local := localInfo{parentTickRate: 1e9, childTickRate: 1e9}

	require.Equal(t, 0.0, a.RTTJitterSeconds())

	_, _ = a.OnCandidate(protocol.Candidate{RTT: 4_000_000, T4: 1}, local)
	_, _ = a.OnCandidate(protocol.Candidate{RTT: 6_000_000, T4: 2}, local)
	require.Greater(t, a.RTTJitterSeconds(), 0.0)
}

type recordingTransport struct {
	sent [][]byte
}

func (r *recordingTransport) Send(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	r.sent = append(r.sent, cp)
	return nil
}

func TestClientTunesTargetClockOnResponse(t *testing.T) {
	sys := clockgraph.NewSystemClock(1e9, 20)
	target := clockgraph.NewTunableClock(sys, 1e9, clockgraph.Correlation{})

	transport := &recordingTransport{}
	cfg := Config{RepeatSecs: time.Hour.Seconds(), TimeoutSecs: 1, WindowSize: 4}
	algorithm := NewLowestDispersionAlgorithm(cfg, func() int64 { return 200_000_000 })
	c := New(target, transport, algorithm, cfg)

	go c.Run()
	t.Cleanup(c.Stop)

	require.Eventually(t, func() bool { return len(transport.sent) > 0 }, time.Second, time.Millisecond)

	sentMsg, err := protocol.Decode(transport.sent[0])
	require.NoError(t, err)
	require.Equal(t, protocol.TypeRequest, sentMsg.Type)

	resp := protocol.Message{
		Type:      protocol.TypeResponse,
		Originate: sentMsg.Originate,
		Receive:   sentMsg.Originate + 500_000,
		Transmit:  sentMsg.Originate + 1_000_000,
	}
	encoded, err := protocol.Encode(resp)
	require.NoError(t, err)
	c.HandleDatagram(encoded[:], sentMsg.Originate+8_000_000)

	require.Eventually(t, func() bool {
		corr := target.Correlation()
		return corr.ChildTicks != 0
	}, time.Second, time.Millisecond)
}

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

package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bbc-rd/csssync/clockgraph"
)

func TestSimpleClockTimelineSourceRecognisesOnlyItsSelector(t *testing.T) {
	sys := clockgraph.NewSystemClock(1e9, 20)
	pts := clockgraph.NewCorrelatedClock(sys, 90000, clockgraph.Correlation{})
	src := NewSimpleClockTimelineSource("urn:dvb:css:timeline:pts", pts, sys)

	require.True(t, src.RecognisesTimelineSelector("urn:dvb:css:timeline:pts"))
	require.False(t, src.RecognisesTimelineSelector("urn:dvb:css:timeline:temi"))
}

func TestSimpleClockTimelineSourceReportsUnavailableWhenClockUnavailable(t *testing.T) {
	sys := clockgraph.NewSystemClock(1e9, 20)
	pts := clockgraph.NewCorrelatedClock(sys, 90000, clockgraph.Correlation{})
	src := NewSimpleClockTimelineSource("urn:dvb:css:timeline:pts", pts, sys)

	pts.SetAvailability(false)

	_, ok := src.GetTimelineState("urn:dvb:css:timeline:pts")
	require.False(t, ok)
}

func TestSimpleClockTimelineSourceReportsState(t *testing.T) {
	sys := clockgraph.NewSystemClock(1e9, 20)
	pts := clockgraph.NewCorrelatedClock(sys, 90000, clockgraph.Correlation{
		ParentTicks: 0,
		ChildTicks:  1000,
	})
	src := NewSimpleClockTimelineSource("urn:dvb:css:timeline:pts", pts, sys)

	state, ok := src.GetTimelineState("urn:dvb:css:timeline:pts")
	require.True(t, ok)
	require.Equal(t, 90000.0, state.TickRate)
	require.Equal(t, 1.0, state.Speed)
}

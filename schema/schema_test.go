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

package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// S3: old {contentId:"dvb://A", presentationStatus:["okay"]}; new
// {contentId:"dvb://A", presentationStatus:["transitioning"]}.
// Diff = {presentationStatus:["transitioning"]}.
func TestScenarioS3CIIDiff(t *testing.T) {
	oldState := CII{
		ContentID:          Of("dvb://A"),
		PresentationStatus: Of([]string{"okay"}),
	}
	newState := CII{
		ContentID:          Of("dvb://A"),
		PresentationStatus: Of([]string{"transitioning"}),
	}
	diff := DiffCII(oldState, newState)
	require.True(t, diff.ContentID.IsOmit())
	v, ok := diff.PresentationStatus.Value()
	require.True(t, ok)
	require.Equal(t, []string{"transitioning"}, v)

	b, err := json.Marshal(diff)
	require.NoError(t, err)
	require.JSONEq(t, `{"presentationStatus":["transitioning"]}`, string(b))
}

// S6: AptEptLpt with latest.wallClockTime = "plusinfinity" round-trips
// the literal token.
func TestScenarioS6AptEptLptInfinity(t *testing.T) {
	msg := AptEptLpt{
		Actual: Timestamp{
			ContentTime:   Of(TickValue(834190)),
			WallClockTime: Of(WallClockTime(115_992_000_000)),
		},
		Earliest: EdgeTimestamp{
			ContentTime:   Of(TickValue(834190)),
			WallClockTime: Of(FiniteWallClockTime(115_984_000_000)),
		},
		Latest: EdgeTimestamp{
			ContentTime:   Of(TickValue(834190)),
			WallClockTime: Of(PlusInfinityWallClockTime()),
		},
	}
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	require.Contains(t, string(b), `"plusinfinity"`)

	var decoded AptEptLpt
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.True(t, decoded.Latest.WallClockTime.Get().IsPlusInfinity())
}

// Testable property 7: applyDiff(state, diff(state, new)) == new.
func TestCIIDiffIdempotence(t *testing.T) {
	oldState := CII{
		ProtocolVersion: Of("1.1"),
		ContentID:       Of("dvb://A"),
		Timelines: Of([]TimelineOption{
			{TimelineSelector: "urn:dvb:css:timeline:pts", UnitsPerTick: 1, UnitsPerSecond: 90000},
		}),
	}
	newState := CII{
		ProtocolVersion:    Of("1.1"),
		ContentID:          Of("dvb://B"),
		PresentationStatus: Of([]string{"okay"}),
		Timelines: Of([]TimelineOption{
			{TimelineSelector: "urn:dvb:css:timeline:pts", UnitsPerTick: 1, UnitsPerSecond: 90000},
		}),
	}
	diff := DiffCII(oldState, newState)
	got := ApplyDiff(oldState, diff)
	require.True(t, got.ProtocolVersion.Equal(newState.ProtocolVersion))
	require.True(t, got.ContentID.Equal(newState.ContentID))
	require.True(t, got.PresentationStatus.Equal(newState.PresentationStatus))
	require.True(t, got.Timelines.Equal(newState.Timelines))
}

func TestCIIValidatePresentationStatus(t *testing.T) {
	ok := CII{PresentationStatus: Of([]string{"okay"})}
	require.NoError(t, ok.Validate())

	bad := CII{PresentationStatus: Of([]string{"confused"})}
	require.Error(t, bad.Validate())
}

func TestCIIOmitVsNullRoundTrip(t *testing.T) {
	c := CII{
		ContentID: Of("dvb://A"),
		MRSURL:    Null[string](),
	}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	require.JSONEq(t, `{"contentId":"dvb://A","mrsUrl":null}`, string(b))

	var decoded CII
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.True(t, decoded.MRSURL.IsNull())
	require.True(t, decoded.TSURL.IsOmit())
}

func TestControlTimestampValidateRejectsNaN(t *testing.T) {
	ct := ControlTimestamp{TimelineSpeedMultiplier: Of(1.0)}
	require.NoError(t, ct.Validate())

	nan := ControlTimestamp{TimelineSpeedMultiplier: Of(math.NaN())}
	require.Error(t, nan.Validate())
}

func TestControlTimestampChanged(t *testing.T) {
	a := ControlTimestamp{ContentTime: Of(TickValue(100))}
	b := ControlTimestamp{ContentTime: Of(TickValue(200))}
	require.True(t, a.Changed(b))
	require.False(t, a.Changed(a))
}

func TestTickValueWireFormatIsQuotedDecimal(t *testing.T) {
	b, err := json.Marshal(TickValue(-42))
	require.NoError(t, err)
	require.Equal(t, `"-42"`, string(b))

	var v TickValue
	require.NoError(t, json.Unmarshal(b, &v))
	require.Equal(t, TickValue(-42), v)
}

func TestSetupDataRoundTrip(t *testing.T) {
	sd := SetupData{ContentIDStem: "dvb://233a.1004.1044", TimelineSelector: "urn:dvb:css:timeline:pts"}
	b, err := json.Marshal(sd)
	require.NoError(t, err)
	var decoded SetupData
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, sd.ContentIDStem, decoded.ContentIDStem)
	require.Equal(t, sd.TimelineSelector, decoded.TimelineSelector)
	require.True(t, decoded.Private.IsOmit())
}

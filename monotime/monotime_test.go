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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowNanosMonotonic(t *testing.T) {
	var prev int64
	for i := 0; i < 1000; i++ {
		n := NowNanos()
		require.GreaterOrEqual(t, n, prev)
		prev = n
	}
}

func TestSleepDoesNotReturnEarly(t *testing.T) {
	start := NowNanos()
	Sleep(5 * time.Millisecond)
	elapsed := NowNanos() - start
	require.GreaterOrEqual(t, elapsed, int64(5*time.Millisecond))
}

func TestMeasurePrecisionIgnoresZeroDeltas(t *testing.T) {
	seq := []int64{100, 100, 100, 150, 150, 210}
	i := -1
	nanos := func() int64 {
		i++
		return seq[i]
	}
	got := MeasurePrecision(nanos, len(seq))
	require.InDelta(t, 50.0/1e9, got, 1e-12)
}

func TestMeasurePrecisionNoMovement(t *testing.T) {
	nanos := func() int64 { return 42 }
	require.Equal(t, 0.0, MeasurePrecision(nanos, 5))
}

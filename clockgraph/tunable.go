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

package clockgraph

// TunableClock is kept only for compatibility with callers that
// expect a distinct "tunable" clock type; it is realised as a thin
// wrapper over CorrelatedClock and carries no behaviour of its own
// beyond the embedded clock's.
type TunableClock struct {
	*CorrelatedClock
}

// NewTunableClock creates a TunableClock ticking at tickRate Hz,
// related to parent by correlation, at speed 1.
func NewTunableClock(parent Clock, tickRate float64, correlation Correlation) *TunableClock {
	return &TunableClock{CorrelatedClock: NewCorrelatedClock(parent, tickRate, correlation)}
}

// Tune is a convenience method combining SetSpeed and SetCorrelation
// into the one call a tuning algorithm typically wants: "as of now,
// the clock reads childTicks and will henceforth run at speed".
func (t *TunableClock) Tune(correlation Correlation, speed float64) {
	t.SetCorrelation(correlation)
	t.SetSpeed(speed)
}

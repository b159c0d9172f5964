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

import (
	"math"

	"github.com/bbc-rd/csssync/monotime"
)

// SystemClock is always a leaf root of its graph: ticks =
// monotonic_nanos * rate / 1e9. Its dispersion grows linearly with
// elapsed time at MaxFreqErrorPPM parts per million, which doubles as
// the clock's own initial error-growth rate for any CorrelatedClock
// anchored to it.
type SystemClock struct {
	rate            float64
	maxFreqErrorPPM float64
	available       bool
	observers       map[Observer]struct{}
	nanos           func() int64 // overridable for tests
}

// NewSystemClock creates a SystemClock ticking at rate Hz with the
// given maximum frequency error in parts per million.
func NewSystemClock(rate float64, maxFreqErrorPPM float64) *SystemClock {
	return &SystemClock{
		rate:            rate,
		maxFreqErrorPPM: maxFreqErrorPPM,
		available:       true,
		observers:       map[Observer]struct{}{},
		nanos:           monotime.NowNanos,
	}
}

// MaxFreqErrorPPM returns the clock's configured maximum frequency error.
func (s *SystemClock) MaxFreqErrorPPM() float64 { return s.maxFreqErrorPPM }

// Ticks implements Clock.
func (s *SystemClock) Ticks() float64 {
	graphMu.RLock()
	defer graphMu.RUnlock()
	return float64(s.nanos()) * s.rate / 1e9
}

// Speed implements Clock; a SystemClock always runs at speed 1.
func (s *SystemClock) Speed() float64 { return 1 }

// TickRate implements Clock.
func (s *SystemClock) TickRate() float64 {
	graphMu.RLock()
	defer graphMu.RUnlock()
	return s.rate
}

// Nanos implements Clock.
func (s *SystemClock) Nanos() float64 { return float64(s.nanos()) }

// Parent implements Clock; a SystemClock never has one.
func (s *SystemClock) Parent() Clock { return nil }

// Root implements Clock.
func (s *SystemClock) Root() Clock { return s }

// ToParentTicks implements Clock; always NaN, there is no parent.
func (s *SystemClock) ToParentTicks(t float64) float64 { return NaN }

// FromParentTicks implements Clock; always NaN, there is no parent.
func (s *SystemClock) FromParentTicks(t float64) float64 { return NaN }

// ToOtherClockTicks implements Clock.
func (s *SystemClock) ToOtherClockTicks(other Clock, t float64) float64 {
	return toOtherClockTicks(s, other, t)
}

// CalcWhen implements Clock.
func (s *SystemClock) CalcWhen(t float64) float64 {
	rate := s.TickRate()
	if rate == 0 {
		return NaN
	}
	return t * 1e9 / rate
}

// DispersionAtTime implements Clock: the error accrued since tick 0
// at the configured maximum frequency error.
func (s *SystemClock) DispersionAtTime(t float64) float64 {
	rate := s.TickRate()
	if rate == 0 {
		return math.Inf(1)
	}
	elapsedSeconds := t / rate
	if elapsedSeconds < 0 {
		elapsedSeconds = -elapsedSeconds
	}
	return elapsedSeconds * s.maxFreqErrorPPM * 1e-6
}

// IsAvailable implements Clock.
func (s *SystemClock) IsAvailable() bool {
	graphMu.RLock()
	defer graphMu.RUnlock()
	return s.available
}

// SetAvailability implements Clock.
func (s *SystemClock) SetAvailability(v bool) {
	graphMu.Lock()
	changed := s.available != v
	s.available = v
	snapshot := s.notifySnapshotLocked()
	graphMu.Unlock()
	if changed {
		for _, o := range snapshot {
			o.OnClockChange(s)
		}
	}
}

func (s *SystemClock) notifySnapshotLocked() []Observer {
	out := make([]Observer, 0, len(s.observers))
	for o := range s.observers {
		out = append(out, o)
	}
	return out
}

// Bind implements Clock.
func (s *SystemClock) Bind(o Observer) {
	graphMu.Lock()
	defer graphMu.Unlock()
	s.observers[o] = struct{}{}
}

// Unbind implements Clock.
func (s *SystemClock) Unbind(o Observer) {
	graphMu.Lock()
	defer graphMu.Unlock()
	delete(s.observers, o)
}

// Notify implements Clock.
func (s *SystemClock) Notify() {
	graphMu.RLock()
	snapshot := s.notifySnapshotLocked()
	graphMu.RUnlock()
	for _, o := range snapshot {
		o.OnClockChange(s)
	}
}

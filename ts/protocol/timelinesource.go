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

import "github.com/bbc-rd/csssync/clockgraph"

// TimelineState is a fresh reading from a TimelineSource: the content
// position, the wall-clock instant it corresponds to, the timeline's
// current speed, and its tick rate.
type TimelineState struct {
	ContentTicks   float64
	WallClockNanos int64
	Speed          float64
	TickRate       float64
}

// TimelineSource is something a TS server can poll for timelines it
// knows how to report. A server typically holds several (one per
// timeline type it can serve) and asks each in turn which selectors it
// recognises.
type TimelineSource interface {
	// RecognisesTimelineSelector reports whether this source can
	// report state for selector (e.g. "urn:dvb:css:timeline:pts").
	RecognisesTimelineSelector(selector string) bool
	// GetTimelineState returns the current reading for selector. ok is
	// false if the source recognises the selector but has no
	// available reading right now.
	GetTimelineState(selector string) (state TimelineState, ok bool)
	// Bind registers o to be notified when this source's state may
	// have changed, so a server can react without polling faster than
	// necessary.
	Bind(o clockgraph.Observer)
	// Unbind removes a previously bound observer.
	Unbind(o clockgraph.Observer)
}

// SimpleClockTimelineSource adapts a single clockgraph.Clock to
// TimelineSource: it recognises exactly one selector, and its
// availability and readings mirror the wrapped clock's.
type SimpleClockTimelineSource struct {
	selector string
	clock    clockgraph.Clock
	root     clockgraph.Clock
}

// NewSimpleClockTimelineSource creates a source that answers selector
// from clock. root is the clock whose Nanos() gives wall-clock time
// for TimelineState.WallClockNanos (typically the root wall clock of
// clock's graph).
func NewSimpleClockTimelineSource(selector string, clock clockgraph.Clock, root clockgraph.Clock) *SimpleClockTimelineSource {
	return &SimpleClockTimelineSource{selector: selector, clock: clock, root: root}
}

// RecognisesTimelineSelector implements TimelineSource.
func (s *SimpleClockTimelineSource) RecognisesTimelineSelector(selector string) bool {
	return selector == s.selector
}

// GetTimelineState implements TimelineSource.
func (s *SimpleClockTimelineSource) GetTimelineState(selector string) (TimelineState, bool) {
	if selector != s.selector || !s.clock.IsAvailable() {
		return TimelineState{}, false
	}
	return TimelineState{
		ContentTicks:   s.clock.Ticks(),
		WallClockNanos: int64(s.root.Nanos()),
		Speed:          s.clock.Speed(),
		TickRate:       s.clock.TickRate(),
	}, true
}

// Bind implements TimelineSource.
func (s *SimpleClockTimelineSource) Bind(o clockgraph.Observer) { s.clock.Bind(o) }

// Unbind implements TimelineSource.
func (s *SimpleClockTimelineSource) Unbind(o clockgraph.Observer) { s.clock.Unbind(o) }

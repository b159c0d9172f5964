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

import "math"

// RangeCorrelatedClock defines its relation to its parent by two
// Correlation points rather than one point plus a speed: the tick
// rate is implied by the slope of the line through them. It is used
// where a source only ever hands over two timestamped samples (e.g. a
// TS AptEptLpt's earliest/latest pair) rather than a speed.
type RangeCorrelatedClock struct {
	parent    Clock
	a, b      Correlation
	available bool
	observers map[Observer]struct{}
}

// NewRangeCorrelatedClock creates a clock whose relation to parent is
// the line through a and b. a.ParentTicks must differ from
// b.ParentTicks.
func NewRangeCorrelatedClock(parent Clock, a, b Correlation) *RangeCorrelatedClock {
	c := &RangeCorrelatedClock{parent: parent, a: a, b: b, available: true, observers: map[Observer]struct{}{}}
	parent.Bind(c)
	return c
}

// OnClockChange implements Observer.
func (c *RangeCorrelatedClock) OnClockChange(Clock) { c.Notify() }

// slope returns child ticks per parent tick, or NaN if the two anchor
// points coincide in parent ticks (undefined line).
func (c *RangeCorrelatedClock) slope() float64 {
	dp := c.b.ParentTicks - c.a.ParentTicks
	if dp == 0 {
		return NaN
	}
	return (c.b.ChildTicks - c.a.ChildTicks) / dp
}

// Ticks implements Clock.
func (c *RangeCorrelatedClock) Ticks() float64 {
	return c.FromParentTicks(c.parent.Ticks())
}

// Speed returns the slope expressed relative to the parent's own rate
// (1.0 means this clock's implied rate tracks the parent one-for-one
// once tick-rate scaling is accounted for).
func (c *RangeCorrelatedClock) Speed() float64 {
	s := c.slope()
	if math.IsNaN(s) {
		return 0
	}
	if s < 0 {
		return -1
	}
	return 1
}

// TickRate implements Clock: the slope scaled by the parent's rate.
func (c *RangeCorrelatedClock) TickRate() float64 {
	s := c.slope()
	if math.IsNaN(s) {
		return 0
	}
	return s * c.parent.TickRate()
}

// Nanos implements Clock.
func (c *RangeCorrelatedClock) Nanos() float64 {
	rate := c.TickRate()
	if rate == 0 {
		return NaN
	}
	return c.Ticks() * 1e9 / rate
}

// Parent implements Clock.
func (c *RangeCorrelatedClock) Parent() Clock { return c.parent }

// Root implements Clock.
func (c *RangeCorrelatedClock) Root() Clock {
	p := c.parent
	for p.Parent() != nil {
		p = p.Parent()
	}
	return p
}

// ToParentTicks implements Clock. See CorrelatedClock.ToParentTicks
// for the rounding rule applied to the converted delta.
func (c *RangeCorrelatedClock) ToParentTicks(t float64) float64 {
	s := c.slope()
	if s == 0 || math.IsNaN(s) {
		return NaN
	}
	return c.a.ParentTicks + scaleTickDelta(t-c.a.ChildTicks, 1/s)
}

// FromParentTicks implements Clock.
func (c *RangeCorrelatedClock) FromParentTicks(t float64) float64 {
	s := c.slope()
	if math.IsNaN(s) {
		return NaN
	}
	return c.a.ChildTicks + scaleTickDelta(t-c.a.ParentTicks, s)
}

// ToOtherClockTicks implements Clock.
func (c *RangeCorrelatedClock) ToOtherClockTicks(other Clock, t float64) float64 {
	return toOtherClockTicks(c, other, t)
}

// CalcWhen implements Clock.
func (c *RangeCorrelatedClock) CalcWhen(t float64) float64 { return calcWhen(c, t) }

// DispersionAtTime implements Clock, using anchor point a for the
// growth term (the two anchors are assumed to have comparable
// reported error; a real source should keep a.InitialError and
// b.InitialError equal when it cannot distinguish them).
func (c *RangeCorrelatedClock) DispersionAtTime(t float64) float64 {
	parentT := c.ToParentTicks(t)
	if math.IsNaN(parentT) {
		return math.Inf(1)
	}
	d := t - c.a.ChildTicks
	if d < 0 {
		d = -d
	}
	return c.a.DispersionAt(parentT) + c.parent.DispersionAtTime(parentT) + d*c.a.ErrorGrowthRate
}

// IsAvailable implements Clock.
func (c *RangeCorrelatedClock) IsAvailable() bool {
	graphMu.RLock()
	local := c.available
	graphMu.RUnlock()
	return local && c.parent.IsAvailable()
}

// SetAvailability implements Clock.
func (c *RangeCorrelatedClock) SetAvailability(v bool) {
	graphMu.Lock()
	changed := c.available != v
	c.available = v
	graphMu.Unlock()
	if changed {
		c.Notify()
	}
}

// SetRange replaces both anchor points atomically and notifies once.
func (c *RangeCorrelatedClock) SetRange(a, b Correlation) {
	graphMu.Lock()
	c.a, c.b = a, b
	graphMu.Unlock()
	c.Notify()
}

// Bind implements Clock.
func (c *RangeCorrelatedClock) Bind(o Observer) {
	graphMu.Lock()
	defer graphMu.Unlock()
	c.observers[o] = struct{}{}
}

// Unbind implements Clock.
func (c *RangeCorrelatedClock) Unbind(o Observer) {
	graphMu.Lock()
	defer graphMu.Unlock()
	delete(c.observers, o)
}

// Notify implements Clock.
func (c *RangeCorrelatedClock) Notify() {
	graphMu.RLock()
	snapshot := make([]Observer, 0, len(c.observers))
	for o := range c.observers {
		snapshot = append(snapshot, o)
	}
	graphMu.RUnlock()
	for _, o := range snapshot {
		o.OnClockChange(c)
	}
}

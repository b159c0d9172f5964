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

// CorrelatedClock has a single parent and one Correlation defining its
// linear relation to that parent. Its correlation, speed and tick
// rate may all be mutated after construction; doing so notifies every
// transitively-dependent observer exactly once.
//
// Field reads/writes below are guarded by graphMu only at the
// exported mutation entry points (Set*, Bind/Unbind/Notify,
// SetAvailability/IsAvailable); the pure tick-math getters (Ticks,
// ToParentTicks, FromParentTicks, DispersionAtTime, CalcWhen) walk up
// the parent chain calling the same getters on ancestor clocks, so
// they deliberately do not take graphMu themselves to avoid recursive
// RLock through the chain. Mutations are comparatively rare next to
// reads, so the brief window in which a read can observe a
// half-applied mutation is an accepted simplification here.
type CorrelatedClock struct {
	parent      Clock
	correlation Correlation
	speed       float64
	tickRate    float64
	available   bool
	observers   map[Observer]struct{}
}

// NewCorrelatedClock creates a clock ticking at tickRate Hz, related
// to parent by correlation, at speed 1. It registers itself as an
// observer of parent so that parent mutations cascade down to this
// clock's own observers.
func NewCorrelatedClock(parent Clock, tickRate float64, correlation Correlation) *CorrelatedClock {
	c := &CorrelatedClock{
		parent:      parent,
		correlation: correlation,
		speed:       1,
		tickRate:    tickRate,
		available:   true,
		observers:   map[Observer]struct{}{},
	}
	parent.Bind(c)
	return c
}

// OnClockChange implements Observer: cascades a parent's mutation down
// to this clock's own bound observers.
func (c *CorrelatedClock) OnClockChange(Clock) { c.Notify() }

// Ticks implements Clock.
func (c *CorrelatedClock) Ticks() float64 {
	return c.FromParentTicks(c.parent.Ticks())
}

// Speed returns the clock's speed multiplier.
func (c *CorrelatedClock) Speed() float64 { return c.speed }

// TickRate implements Clock.
func (c *CorrelatedClock) TickRate() float64 { return c.tickRate }

// Nanos implements Clock.
func (c *CorrelatedClock) Nanos() float64 { return c.Ticks() * 1e9 / c.tickRate }

// Parent implements Clock.
func (c *CorrelatedClock) Parent() Clock { return c.parent }

// Root implements Clock.
func (c *CorrelatedClock) Root() Clock {
	p := c.parent
	for p.Parent() != nil {
		p = p.Parent()
	}
	return p
}

// Correlation returns the clock's current correlation.
func (c *CorrelatedClock) Correlation() Correlation { return c.correlation }

// parentPerChildTick converts a distance in this clock's ticks to the
// equivalent distance in parent ticks.
func (c *CorrelatedClock) parentPerChildTick() float64 {
	return c.parent.TickRate() / c.tickRate
}

// ToParentTicks implements Clock. Returns NaN if speed is 0: the
// mapping from child tick to parent tick is then not invertible (the
// child is frozen, so every parent tick maps to the same child tick).
// The delta is rounded to the nearest tick (ties away from zero) via
// scaleTickDelta so conversions near the correlation point stay
// monotonic.
func (c *CorrelatedClock) ToParentTicks(t float64) float64 {
	if c.speed == 0 {
		return NaN
	}
	return c.correlation.ParentTicks + scaleTickDelta(t-c.correlation.ChildTicks, c.parentPerChildTick()/c.speed)
}

// FromParentTicks implements Clock. See ToParentTicks for the
// rounding rule applied to the converted delta.
func (c *CorrelatedClock) FromParentTicks(t float64) float64 {
	return c.correlation.ChildTicks + scaleTickDelta(t-c.correlation.ParentTicks, c.speed/c.parentPerChildTick())
}

// ToOtherClockTicks implements Clock.
func (c *CorrelatedClock) ToOtherClockTicks(other Clock, t float64) float64 {
	return toOtherClockTicks(c, other, t)
}

// CalcWhen implements Clock.
func (c *CorrelatedClock) CalcWhen(t float64) float64 { return calcWhen(c, t) }

// DispersionAtTime implements Clock: the correlation's own dispersion
// at the equivalent parent tick, plus the parent's dispersion there,
// plus the frequency-error growth accumulated since the correlation's
// anchor point, measured in this clock's own ticks.
func (c *CorrelatedClock) DispersionAtTime(t float64) float64 {
	parentT := c.correlation.ParentTicks
	if c.speed != 0 {
		parentT = c.ToParentTicks(t)
	}
	if math.IsNaN(parentT) {
		return math.Inf(1)
	}
	d := t - c.correlation.ChildTicks
	if d < 0 {
		d = -d
	}
	return c.correlation.DispersionAt(parentT) + c.parent.DispersionAtTime(parentT) + d*c.correlation.ErrorGrowthRate
}

// IsAvailable implements Clock: this clock's own flag ANDed with every
// ancestor's.
func (c *CorrelatedClock) IsAvailable() bool {
	graphMu.RLock()
	local := c.available
	graphMu.RUnlock()
	return local && c.parent.IsAvailable()
}

// SetAvailability implements Clock.
func (c *CorrelatedClock) SetAvailability(v bool) {
	graphMu.Lock()
	changed := c.available != v
	c.available = v
	graphMu.Unlock()
	if changed {
		c.Notify()
	}
}

// SetSpeed changes the clock's speed multiplier and notifies.
func (c *CorrelatedClock) SetSpeed(speed float64) {
	graphMu.Lock()
	c.speed = speed
	graphMu.Unlock()
	c.Notify()
}

// SetTickRate changes the clock's own tick rate and notifies.
func (c *CorrelatedClock) SetTickRate(rate float64) {
	graphMu.Lock()
	c.tickRate = rate
	graphMu.Unlock()
	c.Notify()
}

// SetCorrelation replaces the clock's correlation and notifies.
func (c *CorrelatedClock) SetCorrelation(corr Correlation) {
	graphMu.Lock()
	c.correlation = corr
	graphMu.Unlock()
	c.Notify()
}

// SetParent reparents the clock onto a new parent, rejecting the
// change if it would introduce a cycle. It notifies afterwards.
func (c *CorrelatedClock) SetParent(parent Clock) error {
	if wouldCycle(c, parent) {
		return errCycle
	}
	graphMu.Lock()
	old := c.parent
	c.parent = parent
	graphMu.Unlock()
	old.Unbind(c)
	parent.Bind(c)
	c.Notify()
	return nil
}

// Bind implements Clock.
func (c *CorrelatedClock) Bind(o Observer) {
	graphMu.Lock()
	defer graphMu.Unlock()
	c.observers[o] = struct{}{}
}

// Unbind implements Clock.
func (c *CorrelatedClock) Unbind(o Observer) {
	graphMu.Lock()
	defer graphMu.Unlock()
	delete(c.observers, o)
}

// Notify implements Clock.
func (c *CorrelatedClock) Notify() {
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

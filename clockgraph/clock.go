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
	"errors"
	"math"
	"sync"
)

// errCycle is returned by SetParent when the requested reparent would
// make the clock its own ancestor.
var errCycle = errors.New("clockgraph: reparenting would introduce a cycle")

// wouldCycle reports whether making candidateParent the parent of
// child would create a cycle: true if child appears anywhere in
// candidateParent's own ancestor chain (or is candidateParent itself).
func wouldCycle(child Clock, candidateParent Clock) bool {
	for c := candidateParent; c != nil; c = c.Parent() {
		if c == child {
			return true
		}
	}
	return false
}

// graphMu is the single mutex covering the entire clock graph (all
// graphs share it: clocks from two independent trees still serialise
// against each other, which is harmless and keeps the model in §5 of
// the specification simple: one shared mutable resource).
var graphMu sync.RWMutex

// Observer is notified when a clock it is bound to (or any ancestor
// of that clock) mutates.
type Observer interface {
	OnClockChange(c Clock)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(c Clock)

// OnClockChange implements Observer.
func (f ObserverFunc) OnClockChange(c Clock) { f(c) }

// Clock is the public contract every node in the clock graph
// implements.
type Clock interface {
	// Ticks returns the clock's current tick value.
	Ticks() float64
	// Speed returns the clock's speed multiplier relative to its parent.
	Speed() float64
	// TickRate returns the clock's rate in Hz.
	TickRate() float64
	// Nanos returns the clock's current reading converted to
	// nanoseconds (Ticks() * 1e9 / TickRate()).
	Nanos() float64
	// Parent returns the clock's parent, or nil if this clock is a root.
	Parent() Clock
	// Root returns the root of this clock's tree (itself if it has no parent).
	Root() Clock
	// ToParentTicks converts a tick value of this clock to the
	// equivalent tick value of its parent. Returns NaN if this clock
	// has no parent or the conversion is undefined (speed 0).
	ToParentTicks(t float64) float64
	// FromParentTicks converts a parent tick value to the equivalent
	// tick value of this clock.
	FromParentTicks(t float64) float64
	// ToOtherClockTicks converts a tick value of this clock to the
	// equivalent tick value of other, walking up to the lowest common
	// ancestor and back down. Returns NaN if no conversion path exists
	// or any clock on the path is blocked (speed 0, wrong direction).
	ToOtherClockTicks(other Clock, t float64) float64
	// CalcWhen returns the root-wall-time, in nanoseconds, at which
	// this clock will reach tick value t. Returns NaN if blocked by a
	// zero-speed ancestor.
	CalcWhen(t float64) float64
	// DispersionAtTime returns the dispersion (seconds of uncertainty,
	// possibly +Inf) of this clock's reading at tick value t.
	DispersionAtTime(t float64) float64
	// IsAvailable reports whether this clock and every ancestor is
	// available.
	IsAvailable() bool
	// SetAvailability sets this clock's own local availability flag.
	SetAvailability(bool)
	// Bind registers an observer to be notified on mutation of this
	// clock or any of its ancestors.
	Bind(o Observer)
	// Unbind removes a previously bound observer.
	Unbind(o Observer)
	// Notify synchronously invokes every bound observer exactly once.
	// Must be called with the clock's mutation already committed.
	// The observer set is copied under the graph lock and the lock is
	// released before any observer is called, so OnClockChange runs
	// without the graph lock held; an observer that mutates the clock
	// it is notified about triggers a further, nested Notify.
	Notify()
}

// NaN is the "not a number" conversion-result marker. It propagates
// through every tick-conversion combinator without raising an error;
// callers test with math.IsNaN.
var NaN = math.NaN()

// scaleTickDelta converts delta (a tick distance in one clock's
// domain) to the equivalent distance in another's, given the rate
// ratio between them, rounding to the nearest tick with ties away
// from zero (math.Round already rounds this way). When ratio is
// exactly representable as an integer the rounded delta is scaled by
// integer multiplication first, so large deltas don't pick up
// float64 rounding error from the multiply itself; otherwise the
// multiply happens entirely in float64 before rounding. Correlated
// clocks (CorrelatedClock, RangeCorrelatedClock) use this so a tick
// conversion straddling their correlation point stays monotonic on
// both sides.
func scaleTickDelta(delta, ratio float64) float64 {
	if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return delta * ratio
	}
	if ratio == math.Trunc(ratio) {
		return float64(int64(math.Round(delta)) * int64(ratio))
	}
	return math.Round(delta * ratio)
}

// ancestorChain returns c and every ancestor of c, closest first.
func ancestorChain(c Clock) []Clock {
	chain := []Clock{c}
	for p := c.Parent(); p != nil; p = p.Parent() {
		chain = append(chain, p)
	}
	return chain
}

// lowestCommonAncestor returns the LCA of a and b, or nil if they
// belong to disjoint trees.
func lowestCommonAncestor(a, b Clock) Clock {
	bChain := ancestorChain(b)
	bIndex := make(map[Clock]int, len(bChain))
	for i, c := range bChain {
		bIndex[c] = i
	}
	for _, c := range ancestorChain(a) {
		if _, ok := bIndex[c]; ok {
			return c
		}
	}
	return nil
}

// toOtherClockTicks implements the shared "up to LCA then down"
// conversion used by every Clock implementation's ToOtherClockTicks.
func toOtherClockTicks(this, other Clock, t float64) float64 {
	if this == other {
		return t
	}
	lca := lowestCommonAncestor(this, other)
	if lca == nil {
		return NaN
	}
	ticks := t
	for c := this; c != lca; c = c.Parent() {
		ticks = c.ToParentTicks(ticks)
		if math.IsNaN(ticks) {
			return NaN
		}
	}
	// descend from lca to other: build other's ancestor chain up to
	// (excluding) lca, then apply FromParentTicks from the outermost
	// down to other.
	chain := ancestorChain(other)
	var descend []Clock
	for _, c := range chain {
		if c == lca {
			break
		}
		descend = append(descend, c)
	}
	for i := len(descend) - 1; i >= 0; i-- {
		ticks = descend[i].FromParentTicks(ticks)
		if math.IsNaN(ticks) {
			return NaN
		}
	}
	return ticks
}

// toRootTicks converts t (a tick value of c) to the equivalent tick
// value of c's root, or NaN if any ancestor on the path has speed 0.
func toRootTicks(c Clock, t float64) float64 {
	ticks := t
	for c.Parent() != nil {
		ticks = c.ToParentTicks(ticks)
		if math.IsNaN(ticks) {
			return NaN
		}
		c = c.Parent()
	}
	return ticks
}

// calcWhen is the shared CalcWhen implementation: convert t to root
// ticks, then root ticks to nanoseconds via the root's tick rate.
func calcWhen(c Clock, t float64) float64 {
	root := c.Root()
	if root == nil {
		root = c
	}
	rootTicks := toRootTicks(c, t)
	if math.IsNaN(rootTicks) {
		return NaN
	}
	rate := root.TickRate()
	if rate == 0 {
		return NaN
	}
	return rootTicks * 1e9 / rate
}

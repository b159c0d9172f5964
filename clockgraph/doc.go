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

/*
Package clockgraph implements the synthesised clock graph: a tree of
logical clocks, each composed with its parent through a Correlation,
tracking dispersion (error) and availability.

A graph always bottoms out in a SystemClock, which ticks directly from
package monotime. Every other clock is a CorrelatedClock, a
RangeCorrelatedClock, or a TunableClock (a thin CorrelatedClock
wrapper), and has exactly one parent.

All mutation (SetCorrelation, SetSpeed, SetTickRate, SetParent,
SetAvailability) and all cross-clock reads are serialised through a
single package-level graph lock, matching the single shared mutable
resource the rest of the system (scheduler, WC/CII/TS clients and
servers) is built around. Observers registered with Bind are notified
synchronously, once per mutation: the observer set is copied under
that lock and the lock is released before any observer is called, so
an observer callback runs without the graph lock held.
*/
package clockgraph

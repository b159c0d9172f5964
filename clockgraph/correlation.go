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

// Correlation expresses that at parent-clock tick value ParentTicks
// the child clock reads ChildTicks, with an instantaneous error bound
// of InitialError seconds that widens by ErrorGrowthRate seconds per
// tick of separation (measured in parent ticks) in either direction.
type Correlation struct {
	ParentTicks     float64
	ChildTicks      float64
	InitialError    float64
	ErrorGrowthRate float64
}

// CorrelationOption mutates a single field of a Correlation produced
// by With. Used for the "with-modifications" constructor spec.md
// requires: c2 := c1.With(WithChildTicks(5000)).
type CorrelationOption func(*Correlation)

// WithParentTicks overrides ParentTicks.
func WithParentTicks(v float64) CorrelationOption {
	return func(c *Correlation) { c.ParentTicks = v }
}

// WithChildTicks overrides ChildTicks.
func WithChildTicks(v float64) CorrelationOption {
	return func(c *Correlation) { c.ChildTicks = v }
}

// WithInitialError overrides InitialError.
func WithInitialError(v float64) CorrelationOption {
	return func(c *Correlation) { c.InitialError = v }
}

// WithErrorGrowthRate overrides ErrorGrowthRate.
func WithErrorGrowthRate(v float64) CorrelationOption {
	return func(c *Correlation) { c.ErrorGrowthRate = v }
}

// With returns a new Correlation equal to c except for the fields
// named by opts.
func (c Correlation) With(opts ...CorrelationOption) Correlation {
	out := c
	for _, opt := range opts {
		opt(&out)
	}
	return out
}

// DispersionAt returns the correlation's own contribution to
// dispersion at the given parent tick value: the initial error plus
// the growth accumulated over the distance (in either direction) from
// ParentTicks.
func (c Correlation) DispersionAt(parentTicks float64) float64 {
	d := parentTicks - c.ParentTicks
	if d < 0 {
		d = -d
	}
	return c.InitialError + d*c.ErrorGrowthRate
}

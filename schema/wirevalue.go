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
	"fmt"
	"strconv"
)

// TickValue is a clock tick count, serialised as a decimal ASCII
// string (not a JSON number) so values outside the range a JSON
// number survives without precision loss round-trip exactly.
type TickValue int64

// MarshalJSON implements json.Marshaler.
func (t TickValue) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(t), 10))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TickValue) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("schema: tick value must be a quoted decimal string: %w", err)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("schema: invalid tick value %q: %w", s, err)
	}
	*t = TickValue(v)
	return nil
}

// WallClockTime is a wall-clock nanosecond count, serialised as a
// decimal ASCII string.
type WallClockTime int64

// MarshalJSON implements json.Marshaler.
func (w WallClockTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(w), 10))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *WallClockTime) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("schema: wall-clock time must be a quoted decimal string: %w", err)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("schema: invalid wall-clock time %q: %w", s, err)
	}
	*w = WallClockTime(v)
	return nil
}

const (
	plusInfinityToken  = "plusinfinity"
	minusInfinityToken = "minusinfinity"
)

// ExtendedWallClockTime is a wall-clock nanosecond count that may also
// take the literal values +infinity or -infinity, used only by
// AptEptLpt's earliest and latest timestamps.
type ExtendedWallClockTime struct {
	infinity int8 // 0 finite, +1 plusinfinity, -1 minusinfinity
	nanos    int64
}

// FiniteWallClockTime returns an ExtendedWallClockTime holding an
// ordinary nanosecond count.
func FiniteWallClockTime(nanos int64) ExtendedWallClockTime {
	return ExtendedWallClockTime{nanos: nanos}
}

// PlusInfinityWallClockTime returns the "plusinfinity" sentinel.
func PlusInfinityWallClockTime() ExtendedWallClockTime {
	return ExtendedWallClockTime{infinity: 1}
}

// MinusInfinityWallClockTime returns the "minusinfinity" sentinel.
func MinusInfinityWallClockTime() ExtendedWallClockTime {
	return ExtendedWallClockTime{infinity: -1}
}

// IsPlusInfinity reports whether this is the "plusinfinity" sentinel.
func (w ExtendedWallClockTime) IsPlusInfinity() bool { return w.infinity > 0 }

// IsMinusInfinity reports whether this is the "minusinfinity" sentinel.
func (w ExtendedWallClockTime) IsMinusInfinity() bool { return w.infinity < 0 }

// Nanos returns the finite nanosecond value; meaningless if either
// infinity flag is set.
func (w ExtendedWallClockTime) Nanos() int64 { return w.nanos }

// MarshalJSON implements json.Marshaler.
func (w ExtendedWallClockTime) MarshalJSON() ([]byte, error) {
	switch {
	case w.infinity > 0:
		return []byte(strconv.Quote(plusInfinityToken)), nil
	case w.infinity < 0:
		return []byte(strconv.Quote(minusInfinityToken)), nil
	default:
		return []byte(strconv.Quote(strconv.FormatInt(w.nanos, 10))), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *ExtendedWallClockTime) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("schema: extended wall-clock time must be a quoted string: %w", err)
	}
	switch s {
	case plusInfinityToken:
		*w = ExtendedWallClockTime{infinity: 1}
		return nil
	case minusInfinityToken:
		*w = ExtendedWallClockTime{infinity: -1}
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("schema: invalid extended wall-clock time %q: %w", s, err)
	}
	*w = ExtendedWallClockTime{nanos: v}
	return nil
}

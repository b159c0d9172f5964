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

import "math"

// Timestamp pairs a content-timeline tick with the wall-clock instant
// it corresponds to. Either half may be Null (content paused, or wall
// clock unknown) or Omit (not part of this particular message).
type Timestamp struct {
	ContentTime   Field[TickValue]
	WallClockTime Field[WallClockTime]
}

// Clone returns a deep copy (Field values here are all scalars, so a
// plain struct copy suffices, but every message record exposes this
// constructor for symmetry with the composite types).
func (t Timestamp) Clone() Timestamp { return t }

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	w := &objectWriter{}
	writeField(w, "contentTime", t.ContentTime)
	writeField(w, "wallClockTime", t.WallClockTime)
	return w.build()
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw, err := decodeRawFields(b)
	if err != nil {
		return err
	}
	if t.ContentTime, err = fieldFromRaw[TickValue](raw, "contentTime"); err != nil {
		return err
	}
	if t.WallClockTime, err = fieldFromRaw[WallClockTime](raw, "wallClockTime"); err != nil {
		return err
	}
	return nil
}

// EdgeTimestamp is a Timestamp whose wall-clock half additionally
// accepts the plusinfinity/minusinfinity tokens: AptEptLpt's earliest
// and latest timestamps, never its actual one.
type EdgeTimestamp struct {
	ContentTime   Field[TickValue]
	WallClockTime Field[ExtendedWallClockTime]
}

func (t EdgeTimestamp) Clone() EdgeTimestamp { return t }

// MarshalJSON implements json.Marshaler.
func (t EdgeTimestamp) MarshalJSON() ([]byte, error) {
	w := &objectWriter{}
	writeField(w, "contentTime", t.ContentTime)
	writeField(w, "wallClockTime", t.WallClockTime)
	return w.build()
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *EdgeTimestamp) UnmarshalJSON(b []byte) error {
	raw, err := decodeRawFields(b)
	if err != nil {
		return err
	}
	if t.ContentTime, err = fieldFromRaw[TickValue](raw, "contentTime"); err != nil {
		return err
	}
	if t.WallClockTime, err = fieldFromRaw[ExtendedWallClockTime](raw, "wallClockTime"); err != nil {
		return err
	}
	return nil
}

// ControlTimestamp is Timestamp plus the timeline's speed multiplier,
// pushed by a TS server whenever the underlying TimelineSource's
// reading changes by more than its declared meaningful-change
// threshold, or its availability changes.
type ControlTimestamp struct {
	ContentTime             Field[TickValue]
	WallClockTime           Field[WallClockTime]
	TimelineSpeedMultiplier Field[float64]
}

// Clone returns a deep copy.
func (c ControlTimestamp) Clone() ControlTimestamp { return c }

// Validate checks the wire-format rules: timelineSpeedMultiplier, if
// present with a value, must be finite.
func (c ControlTimestamp) Validate() error {
	if v, ok := c.TimelineSpeedMultiplier.Value(); ok && math.IsNaN(v) {
		return errValidation("timelineSpeedMultiplier must be finite or null, got NaN")
	}
	if v, ok := c.TimelineSpeedMultiplier.Value(); ok && math.IsInf(v, 0) {
		return errValidation("timelineSpeedMultiplier must be finite or null, got infinite")
	}
	return nil
}

// Changed reports whether any field differs between c and other,
// implementing the wire protocol's isControlTimestampChanged.
func (c ControlTimestamp) Changed(other ControlTimestamp) bool {
	return !c.ContentTime.Equal(other.ContentTime) ||
		!c.WallClockTime.Equal(other.WallClockTime) ||
		!c.TimelineSpeedMultiplier.Equal(other.TimelineSpeedMultiplier)
}

// MarshalJSON implements json.Marshaler.
func (c ControlTimestamp) MarshalJSON() ([]byte, error) {
	w := &objectWriter{}
	writeField(w, "contentTime", c.ContentTime)
	writeField(w, "wallClockTime", c.WallClockTime)
	writeField(w, "timelineSpeedMultiplier", c.TimelineSpeedMultiplier)
	return w.build()
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ControlTimestamp) UnmarshalJSON(b []byte) error {
	raw, err := decodeRawFields(b)
	if err != nil {
		return err
	}
	if c.ContentTime, err = fieldFromRaw[TickValue](raw, "contentTime"); err != nil {
		return err
	}
	if c.WallClockTime, err = fieldFromRaw[WallClockTime](raw, "wallClockTime"); err != nil {
		return err
	}
	if c.TimelineSpeedMultiplier, err = fieldFromRaw[float64](raw, "timelineSpeedMultiplier"); err != nil {
		return err
	}
	return nil
}

// AptEptLpt is the companion's periodic report of where it currently
// believes the timeline is: actual position, and the earliest/latest
// bounds it could still be nudged to without a visible jump.
type AptEptLpt struct {
	Actual   Timestamp     `json:"actual"`
	Earliest EdgeTimestamp `json:"earliest"`
	Latest   EdgeTimestamp `json:"latest"`
}

// Clone returns a deep copy.
func (a AptEptLpt) Clone() AptEptLpt { return a }

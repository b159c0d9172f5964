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

// Valid first tokens of CII's presentationStatus list.
const (
	PresentationStatusOkay          = "okay"
	PresentationStatusTransitioning = "transitioning"
	PresentationStatusFault         = "fault"
)

// TimelineOption describes one timeline a CII's content offers, e.g.
// "urn:dvb:css:timeline:pts" at some tick rate.
type TimelineOption struct {
	TimelineSelector string
	UnitsPerTick     int64
	UnitsPerSecond   int64
	Accuracy         Field[float64]
	Private          Field[[]string]
}

// Clone returns a deep copy.
func (o TimelineOption) Clone() TimelineOption {
	out := o
	if v, ok := o.Private.Value(); ok {
		cp := make([]string, len(v))
		copy(cp, v)
		out.Private = Of(cp)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (o TimelineOption) MarshalJSON() ([]byte, error) {
	w := &objectWriter{}
	writeField(w, "timelineSelector", Of(o.TimelineSelector))
	writeField(w, "unitsPerTick", Of(o.UnitsPerTick))
	writeField(w, "unitsPerSecond", Of(o.UnitsPerSecond))
	writeField(w, "accuracy", o.Accuracy)
	writeField(w, "private", o.Private)
	return w.build()
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *TimelineOption) UnmarshalJSON(b []byte) error {
	raw, err := decodeRawFields(b)
	if err != nil {
		return err
	}
	selector, err := fieldFromRaw[string](raw, "timelineSelector")
	if err != nil {
		return err
	}
	o.TimelineSelector = selector.Get()
	unitsPerTick, err := fieldFromRaw[int64](raw, "unitsPerTick")
	if err != nil {
		return err
	}
	o.UnitsPerTick = unitsPerTick.Get()
	unitsPerSecond, err := fieldFromRaw[int64](raw, "unitsPerSecond")
	if err != nil {
		return err
	}
	o.UnitsPerSecond = unitsPerSecond.Get()
	if o.Accuracy, err = fieldFromRaw[float64](raw, "accuracy"); err != nil {
		return err
	}
	if o.Private, err = fieldFromRaw[[]string](raw, "private"); err != nil {
		return err
	}
	return nil
}

// CII is a record of optional content-identity fields pushed from a
// server to its connected companions.
type CII struct {
	ProtocolVersion    Field[string]
	ContentID          Field[string]
	ContentIDStatus    Field[string]
	PresentationStatus Field[[]string]
	MRSURL             Field[string]
	TSURL              Field[string]
	WCURL              Field[string]
	TEURL              Field[string]
	Timelines          Field[[]TimelineOption]
	Private            Field[[]string]
}

// Clone returns a deep copy: slice-valued fields are copied so
// mutating the clone never aliases the original.
func (c CII) Clone() CII {
	out := c
	if v, ok := c.PresentationStatus.Value(); ok {
		cp := make([]string, len(v))
		copy(cp, v)
		out.PresentationStatus = Of(cp)
	}
	if v, ok := c.Timelines.Value(); ok {
		cp := make([]TimelineOption, len(v))
		for i, t := range v {
			cp[i] = t.Clone()
		}
		out.Timelines = Of(cp)
	}
	if v, ok := c.Private.Value(); ok {
		cp := make([]string, len(v))
		copy(cp, v)
		out.Private = Of(cp)
	}
	return out
}

// Validate checks the wire-format rules spec.md names: if present,
// presentationStatus's first token must be one of okay/transitioning/fault.
func (c CII) Validate() error {
	if v, ok := c.PresentationStatus.Value(); ok {
		if len(v) == 0 {
			return errValidation("presentationStatus must not be an empty list")
		}
		switch v[0] {
		case PresentationStatusOkay, PresentationStatusTransitioning, PresentationStatusFault:
		default:
			return errValidation("presentationStatus[0] must be one of okay/transitioning/fault, got " + v[0])
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c CII) MarshalJSON() ([]byte, error) {
	w := &objectWriter{}
	writeField(w, "protocolVersion", c.ProtocolVersion)
	writeField(w, "contentId", c.ContentID)
	writeField(w, "contentIdStatus", c.ContentIDStatus)
	writeField(w, "presentationStatus", c.PresentationStatus)
	writeField(w, "mrsUrl", c.MRSURL)
	writeField(w, "tsUrl", c.TSURL)
	writeField(w, "wcUrl", c.WCURL)
	writeField(w, "teUrl", c.TEURL)
	writeField(w, "timelines", c.Timelines)
	writeField(w, "private", c.Private)
	return w.build()
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CII) UnmarshalJSON(b []byte) error {
	raw, err := decodeRawFields(b)
	if err != nil {
		return err
	}
	if c.ProtocolVersion, err = fieldFromRaw[string](raw, "protocolVersion"); err != nil {
		return err
	}
	if c.ContentID, err = fieldFromRaw[string](raw, "contentId"); err != nil {
		return err
	}
	if c.ContentIDStatus, err = fieldFromRaw[string](raw, "contentIdStatus"); err != nil {
		return err
	}
	if c.PresentationStatus, err = fieldFromRaw[[]string](raw, "presentationStatus"); err != nil {
		return err
	}
	if c.MRSURL, err = fieldFromRaw[string](raw, "mrsUrl"); err != nil {
		return err
	}
	if c.TSURL, err = fieldFromRaw[string](raw, "tsUrl"); err != nil {
		return err
	}
	if c.WCURL, err = fieldFromRaw[string](raw, "wcUrl"); err != nil {
		return err
	}
	if c.TEURL, err = fieldFromRaw[string](raw, "teUrl"); err != nil {
		return err
	}
	if c.Timelines, err = fieldFromRaw[[]TimelineOption](raw, "timelines"); err != nil {
		return err
	}
	if c.Private, err = fieldFromRaw[[]string](raw, "private"); err != nil {
		return err
	}
	return nil
}

// DiffCII returns a CII containing only the fields whose value
// differs between oldState and newState (Omit everywhere else), used
// to build the incremental message a CII server pushes on commit.
func DiffCII(oldState, newState CII) CII {
	return CII{
		ProtocolVersion:    diffField(oldState.ProtocolVersion, newState.ProtocolVersion),
		ContentID:          diffField(oldState.ContentID, newState.ContentID),
		ContentIDStatus:    diffField(oldState.ContentIDStatus, newState.ContentIDStatus),
		PresentationStatus: diffField(oldState.PresentationStatus, newState.PresentationStatus),
		MRSURL:             diffField(oldState.MRSURL, newState.MRSURL),
		TSURL:              diffField(oldState.TSURL, newState.TSURL),
		WCURL:              diffField(oldState.WCURL, newState.WCURL),
		TEURL:              diffField(oldState.TEURL, newState.TEURL),
		Timelines:          diffField(oldState.Timelines, newState.Timelines),
		Private:            diffField(oldState.Private, newState.Private),
	}
}

// ApplyDiff applies a CII produced by DiffCII on top of state,
// leaving every field DiffCII omitted unchanged. ApplyDiff(state,
// DiffCII(state, newState)) reproduces every field newState carries (a
// value or Null); a field newState omits keeps state's value, so the
// result differs from newState where state had that field set.
func ApplyDiff(state, diff CII) CII {
	out := state
	applyField(&out.ProtocolVersion, diff.ProtocolVersion)
	applyField(&out.ContentID, diff.ContentID)
	applyField(&out.ContentIDStatus, diff.ContentIDStatus)
	applyField(&out.PresentationStatus, diff.PresentationStatus)
	applyField(&out.MRSURL, diff.MRSURL)
	applyField(&out.TSURL, diff.TSURL)
	applyField(&out.WCURL, diff.WCURL)
	applyField(&out.TEURL, diff.TEURL)
	applyField(&out.Timelines, diff.Timelines)
	applyField(&out.Private, diff.Private)
	return out
}

func diffField[T any](oldF, newF Field[T]) Field[T] {
	if oldF.Equal(newF) {
		return Field[T]{}
	}
	return newF
}

func applyField[T any](dst *Field[T], diff Field[T]) {
	if diff.IsOmit() {
		return
	}
	*dst = diff
}

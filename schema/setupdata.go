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

// SetupData is the first frame a TS client sends after connecting: it
// names the content the client believes it is watching and which
// timeline it wants reported against that content.
type SetupData struct {
	ContentIDStem    string
	TimelineSelector string
	Private          Field[[]string]
}

// Clone returns a deep copy.
func (s SetupData) Clone() SetupData {
	out := s
	if v, ok := s.Private.Value(); ok {
		cp := make([]string, len(v))
		copy(cp, v)
		out.Private = Of(cp)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (s SetupData) MarshalJSON() ([]byte, error) {
	w := &objectWriter{}
	writeField(w, "contentIdStem", Of(s.ContentIDStem))
	writeField(w, "timelineSelector", Of(s.TimelineSelector))
	writeField(w, "private", s.Private)
	return w.build()
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SetupData) UnmarshalJSON(b []byte) error {
	raw, err := decodeRawFields(b)
	if err != nil {
		return err
	}
	stem, err := fieldFromRaw[string](raw, "contentIdStem")
	if err != nil {
		return err
	}
	s.ContentIDStem = stem.Get()
	selector, err := fieldFromRaw[string](raw, "timelineSelector")
	if err != nil {
		return err
	}
	s.TimelineSelector = selector.Get()
	if s.Private, err = fieldFromRaw[[]string](raw, "private"); err != nil {
		return err
	}
	return nil
}

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
	"encoding/json"
	"reflect"
)

type fieldState int

const (
	fieldOmit fieldState = iota
	fieldNull
	fieldValue
)

// Field is an optional wire field with three states: omitted from the
// serialised object entirely, present as JSON null, or present with a
// value. The zero value is Omit.
type Field[T any] struct {
	state fieldState
	value T
}

// Omit returns a Field that is left out of serialisation entirely.
func Omit[T any]() Field[T] { return Field[T]{state: fieldOmit} }

// Null returns a Field serialised as JSON null.
func Null[T any]() Field[T] { return Field[T]{state: fieldNull} }

// Of returns a Field carrying v.
func Of[T any](v T) Field[T] { return Field[T]{state: fieldValue, value: v} }

// IsOmit reports whether the field is left out of serialisation.
func (f Field[T]) IsOmit() bool { return f.state == fieldOmit }

// IsNull reports whether the field serialises as JSON null.
func (f Field[T]) IsNull() bool { return f.state == fieldNull }

// IsValue reports whether the field carries a value.
func (f Field[T]) IsValue() bool { return f.state == fieldValue }

// Value returns the field's value and whether one is present.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == fieldValue
}

// Get returns the field's value, or the zero value of T if none is
// present (Omit or Null).
func (f Field[T]) Get() T { return f.value }

// Equal reports whether two fields have the same state and, if both
// carry a value, deeply equal values.
func (f Field[T]) Equal(other Field[T]) bool {
	if f.state != other.state {
		return false
	}
	if f.state != fieldValue {
		return true
	}
	return reflect.DeepEqual(f.value, other.value)
}

// marshalJSON renders the field's JSON representation for the present
// (null or value) cases. Callers check IsOmit first: there is no way
// to represent "drop this key" from inside a single field's own
// encoding, so every message type composes its MarshalJSON by hand
// (see cii.go, timestamp.go) rather than relying on struct tags.
func (f Field[T]) marshalJSON() ([]byte, error) {
	if f.state == fieldNull {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// rawFields is the result of decoding a message's top-level JSON
// object into raw per-key slices, the starting point every message
// type's UnmarshalJSON uses to reconstruct its Fields.
type rawFields map[string]json.RawMessage

func decodeRawFields(b []byte) (rawFields, error) {
	var raw rawFields
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// fieldFromRaw reconstructs a Field[T] for key from a decoded raw
// object: absent key -> Omit, JSON null -> Null, otherwise -> Of(v).
func fieldFromRaw[T any](raw rawFields, key string) (Field[T], error) {
	r, ok := raw[key]
	if !ok {
		return Field[T]{state: fieldOmit}, nil
	}
	if string(r) == "null" {
		return Field[T]{state: fieldNull}, nil
	}
	var v T
	if err := json.Unmarshal(r, &v); err != nil {
		return Field[T]{}, err
	}
	return Field[T]{state: fieldValue, value: v}, nil
}

// objectWriter builds a JSON object one key at a time, skipping
// omitted fields, so that "omit" and "null" remain distinguishable on
// the wire.
type objectWriter struct {
	keys []string
	vals [][]byte
	err  error
}

func writeField[T any](w *objectWriter, key string, f Field[T]) {
	if w.err != nil || f.IsOmit() {
		return
	}
	b, err := f.marshalJSON()
	if err != nil {
		w.err = err
		return
	}
	w.keys = append(w.keys, key)
	w.vals = append(w.vals, b)
}

func (w *objectWriter) build() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	var buf []byte
	buf = append(buf, '{')
	for i, k := range w.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, w.vals[i]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

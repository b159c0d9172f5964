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

package protocol

import "strings"

// uriBoundaryChars separates URI components for CIMatchesStem: a stem
// only matches if it ends exactly at one of these, or consumes the
// whole contentId. ";" is included for parameter-style suffixes such
// as "dvb://233a.1004.1044;abc".
const uriBoundaryChars = "/.?#:;"

// CIMatchesStem reports whether stem identifies contentId: either
// stem equals contentId exactly, or stem is a prefix of contentId and
// the next character in contentId is a URI-component boundary
// (slash, dot, or other separator). This stops "dvb://A1" from
// matching a client that asked for "dvb://A" alone.
func CIMatchesStem(contentID, stem string) bool {
	if stem == "" {
		return false
	}
	if contentID == stem {
		return true
	}
	if !strings.HasPrefix(contentID, stem) {
		return false
	}
	next := contentID[len(stem)]
	return strings.ContainsRune(uriBoundaryChars, rune(next))
}

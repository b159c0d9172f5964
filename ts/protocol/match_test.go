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

import "testing"

func TestCIMatchesStemExactMatch(t *testing.T) {
	if !CIMatchesStem("dvb://A", "dvb://A") {
		t.Fatal("expected exact match to match")
	}
}

func TestCIMatchesStemBoundaryPrefix(t *testing.T) {
	if !CIMatchesStem("dvb://A/scene1", "dvb://A") {
		t.Fatal("expected boundary-aligned prefix to match")
	}
}

func TestCIMatchesStemRejectsNonBoundaryPrefix(t *testing.T) {
	if CIMatchesStem("dvb://A1", "dvb://A") {
		t.Fatal("expected non-boundary prefix to be rejected")
	}
}

func TestCIMatchesStemRejectsUnrelated(t *testing.T) {
	if CIMatchesStem("dvb://B", "dvb://A") {
		t.Fatal("expected unrelated content id to be rejected")
	}
}

func TestCIMatchesStemRejectsEmptyStem(t *testing.T) {
	if CIMatchesStem("dvb://A", "") {
		t.Fatal("expected empty stem to be rejected")
	}
}

func TestCIMatchesStemSemicolonBoundary(t *testing.T) {
	if !CIMatchesStem("dvb://233a.1004.1044;abc", "dvb://233a.1004.1044") {
		t.Fatal("expected semicolon-separated suffix to match its stem")
	}
}

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

// Package server tracks a single content-identity record and pushes it
// to every connected companion over transport.Conn. Mutations happen
// through Set or a batched Transaction; either way, observers see at
// most one broadcast per commit, and that broadcast carries only the
// fields that actually changed. A newly accepted connection always
// gets the full non-omitted state first, so it never has to infer
// anything from a diff it didn't see the baseline for.
package server

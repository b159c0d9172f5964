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
Package monotime provides a guaranteed-monotonic, high-precision wall
time source in integer nanoseconds.

On Linux it reads CLOCK_MONOTONIC directly through the clock_gettime
syscall. Anywhere else it falls back to the standard library's
monotonic reading, passed through a max-latch so that a reading is
never allowed to go backwards even if the underlying source briefly
does.

The clock graph (package clockgraph) is built on top of this package:
every SystemClock ticks from a single process-wide monotonic reading.
*/
package monotime

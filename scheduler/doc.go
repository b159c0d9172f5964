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
Package scheduler implements the clock-driven task scheduler: a
priority queue of tasks keyed by root-clock wall time, served by a
single background worker goroutine that wakes up exactly when the
next task is due, or sooner if a clock mutation or a new task makes an
earlier wakeup necessary.

A Task scheduled against a clock binds itself as a clockgraph.Observer
of that clock for as long as it is pending: any mutation of the clock
(or an ancestor) marks the task DEPRECATED so the worker recomputes its
wake time from the clock's current state instead of firing at a
stale one. If a task's clock.CalcWhen returns NaN (blocked by a
zero-speed ancestor, see clockgraph's NaN propagation), the task is
parked — removed from the heap, still bound as an observer — until a
later mutation produces a finite wake time.

Default() returns a lazily-started, process-wide Scheduler, matching
the source library's convention; tests that need independent
schedulers should call NewScheduler directly instead.
*/
package scheduler

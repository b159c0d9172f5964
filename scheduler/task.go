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

package scheduler

import "github.com/bbc-rd/csssync/clockgraph"

// State describes where a Task sits in its life cycle.
type State int

const (
	// Pending: in the heap (or parked), not yet due.
	Pending State = iota
	// Deprecated: the target clock moved since the wake time was
	// computed; the worker will recompute it before acting further.
	Deprecated
	// Fired: the callback has run.
	Fired
	// Cancelled: the callback will never run.
	Cancelled
)

// Task is a handle to one scheduled callback. The zero value is not
// usable; obtain a Task from Scheduler.RunAt or Scheduler.ScheduleEvent.
type Task struct {
	id       uint64
	seq      uint64
	sched    *Scheduler
	clock    clockgraph.Clock
	tick     float64
	callback func()

	// Fields below are only ever read or written while s.mu is held.
	state     State
	inHeap    bool
	heapIndex int
	whenNanos float64
}

// OnClockChange implements clockgraph.Observer: any mutation of the
// target clock (or one of its ancestors) deprecates the task, forcing
// the worker to recompute its wake time from the clock's current
// state rather than firing at a stale one.
func (t *Task) OnClockChange(clockgraph.Clock) {
	t.sched.onTaskClockChange(t)
}

// State reports the task's current life-cycle state.
func (t *Task) State() State {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	return t.state
}

// Cancel marks the task cancelled. A cancelled task's callback never
// runs; the worker silently drops it the next time it is popped (or,
// if already parked off the heap, the next time a clock mutation would
// otherwise have reinstated it).
func (t *Task) Cancel() {
	s := t.sched
	s.mu.Lock()
	live := t.state != Fired && t.state != Cancelled
	t.state = Cancelled
	s.mu.Unlock()
	if live {
		t.clock.Unbind(t)
	}
}

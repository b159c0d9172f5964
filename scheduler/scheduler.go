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

import (
	"container/heap"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/monotime"
)

// Event is fired by ScheduleEvent instead of a plain callback; it lets
// callers reuse one notification object across several scheduling
// calls (e.g. a TS source's "next meaningful change" wakeup).
type Event interface {
	Fire()
}

// EventFunc adapts a plain function to Event.
type EventFunc func()

// Fire implements Event.
func (f EventFunc) Fire() { f() }

// Scheduler runs one background worker goroutine that fires tasks at
// the wall-clock instant their target clock reaches a given tick
// value. A task is re-evaluated, not just re-sorted, whenever its
// clock (or an ancestor) mutates: see Task.OnClockChange.
type Scheduler struct {
	mu      sync.Mutex
	heap    taskHeap
	nextID  uint64
	wake    chan struct{}
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler creates a Scheduler. Call Start before scheduling
// anything against it.
func NewScheduler() *Scheduler {
	return &Scheduler{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the worker goroutine. Safe to call at most once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	go s.run()
}

// Stop halts the worker goroutine. Pending tasks are left exactly as
// they were; a later Start would need a fresh Scheduler.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// RunAt schedules callback to run, on the worker goroutine, when clock
// reaches tick. It returns immediately with a handle that can be used
// to Cancel the task before it fires.
func (s *Scheduler) RunAt(clock clockgraph.Clock, tick float64, callback func()) *Task {
	s.mu.Lock()
	s.nextID++
	t := &Task{
		id:       s.nextID,
		seq:      s.nextID,
		sched:    s,
		clock:    clock,
		tick:     tick,
		callback: callback,
		state:    Pending,
	}
	s.mu.Unlock()

	clock.Bind(t)

	when := clock.CalcWhen(tick)
	s.mu.Lock()
	if math.IsNaN(when) {
		// Parked: no heap entry yet. The clock stays bound; the next
		// mutation that yields a finite CalcWhen will push this task
		// via onTaskClockChange.
		t.whenNanos = math.NaN()
	} else {
		t.whenNanos = when
		heap.Push(&s.heap, t)
		t.inHeap = true
	}
	s.mu.Unlock()
	s.signal()
	return t
}

// ScheduleEvent is RunAt with an Event in place of a bare callback.
func (s *Scheduler) ScheduleEvent(clock clockgraph.Clock, tick float64, event Event) *Task {
	return s.RunAt(clock, tick, event.Fire)
}

// SleepUntil blocks the calling goroutine until clock reaches tick.
func (s *Scheduler) SleepUntil(clock clockgraph.Clock, tick float64) {
	done := make(chan struct{})
	s.RunAt(clock, tick, func() { close(done) })
	<-done
}

// SleepFor blocks the calling goroutine until clock has advanced by
// ticks ticks from its current reading.
func (s *Scheduler) SleepFor(clock clockgraph.Clock, ticks float64) {
	s.SleepUntil(clock, clock.Ticks()+ticks)
}

// onTaskClockChange is Task.OnClockChange's implementation, kept here
// so it can reach the scheduler's lock and heap directly.
func (s *Scheduler) onTaskClockChange(t *Task) {
	s.mu.Lock()
	if t.state == Fired || t.state == Cancelled {
		s.mu.Unlock()
		return
	}
	t.state = Deprecated
	if !t.inHeap {
		when := t.clock.CalcWhen(t.tick)
		if !math.IsNaN(when) {
			t.whenNanos = when
			heap.Push(&s.heap, t)
			t.inHeap = true
		}
	}
	s.mu.Unlock()
	s.signal()
}

// run is the single background worker: pop the earliest-due task,
// fire or reschedule it, repeat; sleep until the heap's head is due or
// until signalled that something changed.
func (s *Scheduler) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		if len(s.heap) == 0 {
			s.mu.Unlock()
			select {
			case <-s.stop:
				return
			case <-s.wake:
			}
			continue
		}
		head := s.heap[0]
		now := float64(monotime.NowNanos())
		if head.whenNanos > now {
			wait := time.Duration(head.whenNanos - now)
			s.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-s.stop:
				timer.Stop()
				return
			case <-timer.C:
			case <-s.wake:
				timer.Stop()
			}
			continue
		}
		task := heap.Pop(&s.heap).(*Task)
		task.inHeap = false
		s.mu.Unlock()
		s.settle(task)
	}
}

// settle handles one popped task: drop it if cancelled, recompute and
// requeue it if deprecated, or fire its callback.
func (s *Scheduler) settle(task *Task) {
	s.mu.Lock()
	state := task.state
	s.mu.Unlock()

	if state == Cancelled {
		return
	}

	if state == Deprecated {
		when := task.clock.CalcWhen(task.tick)
		s.mu.Lock()
		if task.state == Cancelled {
			s.mu.Unlock()
			return
		}
		task.state = Pending
		if math.IsNaN(when) {
			// Parked again; OnClockChange will reinstate it.
			s.mu.Unlock()
			return
		}
		task.whenNanos = when
		heap.Push(&s.heap, task)
		task.inHeap = true
		s.mu.Unlock()
		return
	}

	task.clock.Unbind(task)
	s.mu.Lock()
	task.state = Fired
	s.mu.Unlock()
	s.fire(task)
}

// fire invokes the task's callback, logging and continuing if it
// panics: one misbehaving callback must never take the worker down.
func (s *Scheduler) fire(task *Task) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("task", task.id).Errorf("scheduler: task callback panicked: %v", r)
		}
	}()
	task.callback()
}

var (
	defaultScheduler     *Scheduler
	defaultSchedulerOnce sync.Once
)

// Default returns the lazily-started, process-wide Scheduler.
func Default() *Scheduler {
	defaultSchedulerOnce.Do(func() {
		defaultScheduler = NewScheduler()
		defaultScheduler.Start()
	})
	return defaultScheduler
}

// RunAt schedules callback against the default Scheduler.
func RunAt(clock clockgraph.Clock, tick float64, callback func()) *Task {
	return Default().RunAt(clock, tick, callback)
}

// ScheduleEvent schedules event against the default Scheduler.
func ScheduleEvent(clock clockgraph.Clock, tick float64, event Event) *Task {
	return Default().ScheduleEvent(clock, tick, event)
}

// SleepUntil blocks on the default Scheduler.
func SleepUntil(clock clockgraph.Clock, tick float64) {
	Default().SleepUntil(clock, tick)
}

// SleepFor blocks on the default Scheduler.
func SleepFor(clock clockgraph.Clock, ticks float64) {
	Default().SleepFor(clock, ticks)
}

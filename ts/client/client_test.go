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

package client

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/schema"
	"github.com/bbc-rd/csssync/scheduler"
)

type fakeConn struct {
	mu      sync.Mutex
	written []string
	reads   chan string
	closed  bool
}

func newFakeConn() *fakeConn { return &fakeConn{reads: make(chan string, 4)} }

func (f *fakeConn) ReadText() (string, error) {
	s, ok := <-f.reads
	if !ok {
		return "", errors.New("closed")
	}
	return s, nil
}

func (f *fakeConn) WriteText(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, msg)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.reads)
	}
	return nil
}

func (f *fakeConn) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

func TestRunSendsSetupDataFirst(t *testing.T) {
	conn := newFakeConn()
	sys := clockgraph.NewSystemClock(1e9, 20)
	target := clockgraph.NewTunableClock(sys, 90000, clockgraph.Correlation{})
	c := New(conn, schema.SetupData{ContentIDStem: "dvb://A", TimelineSelector: "urn:dvb:css:timeline:pts"}, target)

	go c.Run()

	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	var setup schema.SetupData
	require.NoError(t, json.Unmarshal([]byte(conn.snapshot()[0]), &setup))
	require.Equal(t, "dvb://A", setup.ContentIDStem)

	c.Stop()
}

func TestApplyMessageTunesTargetOnAvailableControlTimestamp(t *testing.T) {
	conn := newFakeConn()
	sys := clockgraph.NewSystemClock(1e9, 20)
	target := clockgraph.NewTunableClock(sys, 90000, clockgraph.Correlation{})
	c := New(conn, schema.SetupData{}, target)
	target.SetAvailability(false)

	go c.Run()
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	ct := schema.ControlTimestamp{
		ContentTime:             schema.Of(schema.TickValue(9000)),
		WallClockTime:           schema.Of(schema.WallClockTime(1_000_000_000)),
		TimelineSpeedMultiplier: schema.Of(1.0),
	}
	b, err := json.Marshal(ct)
	require.NoError(t, err)
	conn.reads <- string(b)

	require.Eventually(t, target.IsAvailable, time.Second, time.Millisecond)
	require.Equal(t, 9000.0, target.Correlation().ChildTicks)

	c.Stop()
}

func TestApplyMessageMarksUnavailableOnNullContentTime(t *testing.T) {
	conn := newFakeConn()
	sys := clockgraph.NewSystemClock(1e9, 20)
	target := clockgraph.NewTunableClock(sys, 90000, clockgraph.Correlation{})

	c := New(conn, schema.SetupData{}, target)
	go c.Run()
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	ct := schema.ControlTimestamp{
		ContentTime:             schema.Null[schema.TickValue](),
		WallClockTime:           schema.Null[schema.WallClockTime](),
		TimelineSpeedMultiplier: schema.Null[float64](),
	}
	b, err := json.Marshal(ct)
	require.NoError(t, err)
	conn.reads <- string(b)

	require.Eventually(t, func() bool { return !target.IsAvailable() }, time.Second, time.Millisecond)

	c.Stop()
}

func TestStartAptEptLptEmissionSendsPeriodicReports(t *testing.T) {
	conn := newFakeConn()
	sys := clockgraph.NewSystemClock(1e9, 20)
	target := clockgraph.NewTunableClock(sys, 90000, clockgraph.Correlation{})
	c := New(conn, schema.SetupData{}, target)

	go c.Run()
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	sched := scheduler.NewScheduler()
	sched.Start()
	defer sched.Stop()

	source := func() schema.AptEptLpt {
		return schema.AptEptLpt{Actual: schema.Timestamp{ContentTime: schema.Of(schema.TickValue(1))}}
	}
	c.StartAptEptLptEmission(sched, sys, float64(10*time.Millisecond), source)

	require.Eventually(t, func() bool { return len(conn.snapshot()) >= 2 }, 2*time.Second, time.Millisecond)

	var reported schema.AptEptLpt
	require.NoError(t, json.Unmarshal([]byte(conn.snapshot()[1]), &reported))
	require.Equal(t, schema.TickValue(1), reported.Actual.ContentTime.Get())

	c.Stop()
}

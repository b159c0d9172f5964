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

package server

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/schema"
	"github.com/bbc-rd/csssync/ts/protocol"
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

func TestHandleConnPushesInitialControlTimestampAfterSetup(t *testing.T) {
	s := New(Config{UpdateIntervalSecs: 1})
	s.SetContentID("dvb://A")

	sys := clockgraph.NewSystemClock(1e9, 20)
	pts := clockgraph.NewCorrelatedClock(sys, 90000, clockgraph.Correlation{ParentTicks: 0, ChildTicks: 1000})
	s.AddSource(protocol.NewSimpleClockTimelineSource("urn:dvb:css:timeline:pts", pts, sys))

	conn := newFakeConn()
	go s.handleConn(conn)

	setup, err := json.Marshal(schema.SetupData{ContentIDStem: "dvb://A", TimelineSelector: "urn:dvb:css:timeline:pts"})
	require.NoError(t, err)
	conn.reads <- string(setup)

	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	var ct schema.ControlTimestamp
	require.NoError(t, json.Unmarshal([]byte(conn.snapshot()[0]), &ct))
	require.True(t, ct.ContentTime.IsValue())
	require.Equal(t, 1.0, ct.TimelineSpeedMultiplier.Get())

	conn.Close()
}

func TestHandleConnPushesUnavailableWhenStemMismatches(t *testing.T) {
	s := New(Config{UpdateIntervalSecs: 1})
	s.SetContentID("dvb://A")

	sys := clockgraph.NewSystemClock(1e9, 20)
	pts := clockgraph.NewCorrelatedClock(sys, 90000, clockgraph.Correlation{})
	s.AddSource(protocol.NewSimpleClockTimelineSource("urn:dvb:css:timeline:pts", pts, sys))

	conn := newFakeConn()
	go s.handleConn(conn)

	setup, err := json.Marshal(schema.SetupData{ContentIDStem: "dvb://B", TimelineSelector: "urn:dvb:css:timeline:pts"})
	require.NoError(t, err)
	conn.reads <- string(setup)

	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	var ct schema.ControlTimestamp
	require.NoError(t, json.Unmarshal([]byte(conn.snapshot()[0]), &ct))
	require.True(t, ct.ContentTime.IsNull())
	require.True(t, ct.TimelineSpeedMultiplier.IsNull())

	conn.Close()
}

func TestTickRepushesOnlyWhenChanged(t *testing.T) {
	s := New(Config{UpdateIntervalSecs: 1})
	s.SetContentID("dvb://A")

	sys := clockgraph.NewSystemClock(1e9, 20)
	pts := clockgraph.NewCorrelatedClock(sys, 90000, clockgraph.Correlation{ParentTicks: 0, ChildTicks: 1000})
	src := protocol.NewSimpleClockTimelineSource("urn:dvb:css:timeline:pts", pts, sys)
	s.AddSource(src)

	conn := newFakeConn()
	go s.handleConn(conn)

	setup, err := json.Marshal(schema.SetupData{ContentIDStem: "dvb://A", TimelineSelector: "urn:dvb:css:timeline:pts"})
	require.NoError(t, err)
	conn.reads <- string(setup)
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	s.tick()
	time.Sleep(10 * time.Millisecond)
	require.Len(t, conn.snapshot(), 1)

	pts.SetAvailability(false)
	s.tick()
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 2 }, time.Second, time.Millisecond)

	conn.Close()
}

func TestMalformedSetupClosesConnection(t *testing.T) {
	s := New(Config{UpdateIntervalSecs: 1})
	conn := newFakeConn()
	done := make(chan struct{})
	go func() { s.handleConn(conn); close(done) }()

	conn.reads <- "not json"
	<-done

	require.Equal(t, int64(0), s.LiveConnections())
}

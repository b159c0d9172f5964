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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	reads  chan string
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan string, 4)}
}

func (f *fakeConn) ReadText() (string, error) {
	s, ok := <-f.reads
	if !ok {
		return "", errors.New("closed")
	}
	return s, nil
}

func (f *fakeConn) WriteText(string) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.reads)
	}
	return nil
}

func TestClientAppliesFullStateThenDiff(t *testing.T) {
	conn := newFakeConn()
	c := New(conn)

	var mu sync.Mutex
	var notifications [][]string
	c.Subscribe(func(changed []string) {
		mu.Lock()
		defer mu.Unlock()
		notifications = append(notifications, changed)
	})

	go c.Run()

	conn.reads <- `{"contentId":"dvb://A","presentationStatus":["okay"]}`
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notifications) == 1
	}, time.Second, time.Millisecond)

	conn.reads <- `{"presentationStatus":["transitioning"]}`
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notifications) == 2
	}, time.Second, time.Millisecond)

	state := c.State()
	require.Equal(t, "dvb://A", state.ContentID.Get())
	require.Equal(t, []string{"transitioning"}, state.PresentationStatus.Get())

	mu.Lock()
	require.ElementsMatch(t, []string{"contentId", "presentationStatus"}, notifications[0])
	require.Equal(t, []string{"presentationStatus"}, notifications[1])
	mu.Unlock()

	c.Stop()
}

func TestClientIgnoresMessageWithNoChanges(t *testing.T) {
	conn := newFakeConn()
	c := New(conn)

	var mu sync.Mutex
	count := 0
	c.Subscribe(func([]string) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	go c.Run()

	conn.reads <- `{"contentId":"dvb://A"}`
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, time.Millisecond)

	conn.reads <- `{"contentId":"dvb://A"}`
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	require.Equal(t, 1, count)
	mu.Unlock()

	c.Stop()
}

func TestProtocolVersionCompatible(t *testing.T) {
	require.True(t, protocolVersionCompatible("1.1"))
	require.True(t, protocolVersionCompatible("2.1"))
	require.False(t, protocolVersionCompatible("1.0"))
	// free-form/unparsable versions are never treated as incompatible
	require.True(t, protocolVersionCompatible("not-a-version"))
}

func TestClientRunSkipsMalformedMessageContinuesOnNext(t *testing.T) {
	conn := newFakeConn()
	c := New(conn)

	var mu sync.Mutex
	count := 0
	c.Subscribe(func([]string) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	go c.Run()

	conn.reads <- `not json`
	conn.reads <- `{"contentId":"dvb://A"}`

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, time.Millisecond)

	c.Stop()
}

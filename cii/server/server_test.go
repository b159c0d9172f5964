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

	"github.com/bbc-rd/csssync/schema"
)

type fakeConn struct {
	mu      sync.Mutex
	written []string
	reads   chan string
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan string)}
}

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

func TestHandlerSendsFullStateOnConnect(t *testing.T) {
	s := New(Config{})
	s.Set(func(c *schema.CII) { c.ContentID = schema.Of("dvb://A") })

	conn := newFakeConn()
	done := make(chan struct{})
	go func() { s.handleConn(conn); close(done) }()

	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	var got schema.CII
	require.NoError(t, json.Unmarshal([]byte(conn.snapshot()[0]), &got))
	require.Equal(t, "dvb://A", got.ContentID.Get())

	conn.Close()
	<-done
}

func TestSetBroadcastsOnlyChangedFields(t *testing.T) {
	s := New(Config{})
	s.Set(func(c *schema.CII) { c.ContentID = schema.Of("dvb://A") })

	conn := newFakeConn()
	go s.handleConn(conn)
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	s.Set(func(c *schema.CII) { c.PresentationStatus = schema.Of([]string{"okay"}) })

	require.Eventually(t, func() bool { return len(conn.snapshot()) == 2 }, time.Second, time.Millisecond)

	var diff schema.CII
	require.NoError(t, json.Unmarshal([]byte(conn.snapshot()[1]), &diff))
	require.True(t, diff.ContentID.IsOmit())
	require.Equal(t, []string{"okay"}, diff.PresentationStatus.Get())

	conn.Close()
}

func TestTransactionBatchesIntoSingleBroadcast(t *testing.T) {
	s := New(Config{})
	conn := newFakeConn()
	go s.handleConn(conn)
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	s.Transaction(func(c *schema.CII) {
		c.ContentID = schema.Of("dvb://B")
		c.ContentIDStatus = schema.Of("final")
	})

	require.Eventually(t, func() bool { return len(conn.snapshot()) == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Len(t, conn.snapshot(), 2)

	var diff schema.CII
	require.NoError(t, json.Unmarshal([]byte(conn.snapshot()[1]), &diff))
	require.Equal(t, "dvb://B", diff.ContentID.Get())
	require.Equal(t, "final", diff.ContentIDStatus.Get())

	conn.Close()
}

func TestNoOpMutationDoesNotBroadcast(t *testing.T) {
	s := New(Config{})
	s.Set(func(c *schema.CII) { c.ContentID = schema.Of("dvb://A") })

	conn := newFakeConn()
	go s.handleConn(conn)
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 1 }, time.Second, time.Millisecond)

	s.Set(func(c *schema.CII) { c.ContentID = schema.Of("dvb://A") })

	time.Sleep(20 * time.Millisecond)
	require.Len(t, conn.snapshot(), 1)

	conn.Close()
}

func TestCloseIsIdempotentAndDecrementsLiveOnce(t *testing.T) {
	s := New(Config{})
	conn := newFakeConn()
	done := make(chan struct{})
	go func() { s.handleConn(conn); close(done) }()

	require.Eventually(t, func() bool { return s.LiveConnections() == 1 }, time.Second, time.Millisecond)

	s.unregister(0)
	s.unregister(0)
	<-done

	require.Equal(t, int64(0), s.LiveConnections())
}

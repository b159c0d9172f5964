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
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bbc-rd/csssync/schema"
	"github.com/bbc-rd/csssync/transport"
)

// connection is one registered companion. close is guarded by once so
// repeated close calls close the underlying conn only once; the live
// count is decremented in unregister, only by the call that removes
// the connection from the registry.
type connection struct {
	id   uint64
	conn transport.Conn
	once sync.Once
}

func (c *connection) close() {
	c.once.Do(func() {
		if err := c.conn.Close(); err != nil {
			log.Debugf("cii/server: close connection %d: %v", c.id, err)
		}
	})
}

// Server holds the current CII record and broadcasts diffs to every
// connected companion on commit.
type Server struct {
	mu     sync.Mutex
	state  schema.CII
	conns  map[uint64]*connection
	nextID uint64
	live   int64
}

// New creates a Server whose initial CII state has protocolVersion set
// from cfg and every other field omitted.
func New(cfg Config) *Server {
	s := &Server{conns: map[uint64]*connection{}}
	if cfg.ProtocolVersion != "" {
		s.state.ProtocolVersion = schema.Of(cfg.ProtocolVersion)
	}
	return s
}

// LiveConnections returns the number of currently registered
// connections.
func (s *Server) LiveConnections() int64 {
	return atomic.LoadInt64(&s.live)
}

// Handler returns a transport.Handler suitable for transport.NewServer:
// it registers the connection, sends the current full state, then
// blocks reading (and discarding) frames until the connection closes,
// per spec.md's "server ignores client frames".
func (s *Server) Handler() transport.Handler {
	return s.handleConn
}

func (s *Server) handleConn(conn transport.Conn) {
	c := &connection{conn: conn}
	s.mu.Lock()
	c.id = s.nextID
	s.nextID++
	s.conns[c.id] = c
	snapshot := s.state.Clone()
	s.mu.Unlock()
	atomic.AddInt64(&s.live, 1)

	if err := sendState(conn, snapshot); err != nil {
		log.Debugf("cii/server: initial send to connection %d failed: %v", c.id, err)
		s.unregister(c.id)
		return
	}

	for {
		if _, err := conn.ReadText(); err != nil {
			s.unregister(c.id)
			return
		}
	}
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	c, ok := s.conns[id]
	if ok {
		delete(s.conns, id)
	}
	s.mu.Unlock()
	if ok {
		c.close()
		atomic.AddInt64(&s.live, -1)
	}
}

// Set applies a single mutation and, if it actually changed the
// state, broadcasts the diff to every connected companion.
func (s *Server) Set(mutate func(*schema.CII)) {
	s.Transaction(mutate)
}

// Transaction applies mutate to the current state as one batch: any
// number of field changes inside mutate produce at most one broadcast,
// carrying only the fields that differ from the state before the
// transaction began.
func (s *Server) Transaction(mutate func(*schema.CII)) {
	s.mu.Lock()
	before := s.state.Clone()
	working := s.state
	mutate(&working)
	s.state = working
	conns := s.connectionSnapshotLocked()
	s.mu.Unlock()

	diff := schema.DiffCII(before, working)
	if isEmptyDiff(diff) {
		return
	}
	broadcast(conns, diff)
}

func (s *Server) connectionSnapshotLocked() []*connection {
	out := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// State returns a deep copy of the current CII record.
func (s *Server) State() schema.CII {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func isEmptyDiff(diff schema.CII) bool {
	return diff.ProtocolVersion.IsOmit() &&
		diff.ContentID.IsOmit() &&
		diff.ContentIDStatus.IsOmit() &&
		diff.PresentationStatus.IsOmit() &&
		diff.MRSURL.IsOmit() &&
		diff.TSURL.IsOmit() &&
		diff.WCURL.IsOmit() &&
		diff.TEURL.IsOmit() &&
		diff.Timelines.IsOmit() &&
		diff.Private.IsOmit()
}

func sendState(conn transport.Conn, state schema.CII) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return conn.WriteText(string(b))
}

// broadcast writes to a snapshot of the connection list concurrently,
// never holding s.mu during I/O, so one slow companion cannot stall
// Set/Transaction calls from other goroutines, or delay delivery to
// every other companion.
func broadcast(conns []*connection, diff schema.CII) {
	b, err := json.Marshal(diff)
	if err != nil {
		log.Errorf("cii/server: marshal diff: %v", err)
		return
	}
	msg := string(b)
	var g errgroup.Group
	for _, c := range conns {
		c := c
		g.Go(func() error {
			if err := c.conn.WriteText(msg); err != nil {
				log.Debugf("cii/server: broadcast to connection %d failed: %v", c.id, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

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
	"context"
	"encoding/json"
	"math"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bbc-rd/csssync/schema"
	"github.com/bbc-rd/csssync/transport"
	"github.com/bbc-rd/csssync/ts/protocol"
)

// connState is one registered companion's setup and last-emitted
// ControlTimestamp.
type connState struct {
	id   uint64
	conn transport.Conn
	once sync.Once

	mu         sync.Mutex
	setup      schema.SetupData
	haveSetup  bool
	lastCT     schema.ControlTimestamp
	haveLastCT bool
}

func (c *connState) close() {
	c.once.Do(func() {
		if err := c.conn.Close(); err != nil {
			log.Debugf("ts/server: close connection %d: %v", c.id, err)
		}
	})
}

// Server tracks the content currently playing, the TimelineSources
// that can report on it, and every connected companion.
type Server struct {
	cfg Config

	mu        sync.Mutex
	contentID string
	sources   []protocol.TimelineSource
	conns     map[uint64]*connState
	nextID    uint64
	live      int64

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a Server with no content set and no sources registered.
func New(cfg Config) *Server {
	return &Server{
		cfg:   cfg,
		conns: map[uint64]*connState{},
	}
}

// SetContentID changes the content identity every connection's
// availability is evaluated against.
func (s *Server) SetContentID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentID = id
}

// AddSource registers a TimelineSource the server can poll.
func (s *Server) AddSource(src protocol.TimelineSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, src)
}

// LiveConnections returns the number of currently registered
// connections.
func (s *Server) LiveConnections() int64 {
	return atomic.LoadInt64(&s.live)
}

// Handler returns a transport.Handler for transport.NewServer.
func (s *Server) Handler() transport.Handler {
	return s.handleConn
}

// Start begins the periodic availability/reading re-evaluation loop.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = group
	group.Go(func() error {
		s.updateLoop(ctx)
		return nil
	})
}

// Stop halts the update loop and waits for it to exit.
func (s *Server) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	_ = s.group.Wait()
}

func (s *Server) handleConn(conn transport.Conn) {
	cs := &connState{conn: conn}
	s.mu.Lock()
	cs.id = s.nextID
	s.nextID++
	s.conns[cs.id] = cs
	s.mu.Unlock()
	atomic.AddInt64(&s.live, 1)

	text, err := conn.ReadText()
	if err != nil {
		s.unregister(cs.id)
		return
	}
	var setup schema.SetupData
	if err := json.Unmarshal([]byte(text), &setup); err != nil {
		log.Warningf("ts/server: malformed SetupData on connection %d: %v", cs.id, err)
		s.unregister(cs.id)
		return
	}

	cs.mu.Lock()
	cs.setup = setup
	cs.haveSetup = true
	cs.mu.Unlock()

	s.pushIfChanged(cs)

	for {
		if _, err := conn.ReadText(); err != nil {
			s.unregister(cs.id)
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

func (s *Server) updateLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.updateInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Server) tick() {
	s.mu.Lock()
	conns := make([]*connState, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.pushIfChanged(c)
	}
}

func (s *Server) pushIfChanged(c *connState) {
	c.mu.Lock()
	setup := c.setup
	haveSetup := c.haveSetup
	if !haveSetup {
		c.mu.Unlock()
		return
	}
	state, available := s.evaluate(setup)
	newCT := buildControlTimestamp(state, available)
	changed := !c.haveLastCT || c.lastCT.Changed(newCT)
	if changed {
		c.lastCT = newCT
		c.haveLastCT = true
	}
	c.mu.Unlock()

	if !changed {
		return
	}
	b, err := json.Marshal(newCT)
	if err != nil {
		log.Errorf("ts/server: marshal ControlTimestamp: %v", err)
		return
	}
	if err := c.conn.WriteText(string(b)); err != nil {
		log.Debugf("ts/server: push to connection %d failed: %v", c.id, err)
	}
}

// evaluate implements the availability rule: the connection's
// contentIdStem must identify the server's current content, and some
// registered source must both recognise the requested selector and
// currently have an available reading for it.
func (s *Server) evaluate(setup schema.SetupData) (protocol.TimelineState, bool) {
	s.mu.Lock()
	contentID := s.contentID
	sources := append([]protocol.TimelineSource(nil), s.sources...)
	s.mu.Unlock()

	if !protocol.CIMatchesStem(contentID, setup.ContentIDStem) {
		return protocol.TimelineState{}, false
	}
	for _, src := range sources {
		if !src.RecognisesTimelineSelector(setup.TimelineSelector) {
			continue
		}
		return src.GetTimelineState(setup.TimelineSelector)
	}
	return protocol.TimelineState{}, false
}

func buildControlTimestamp(state protocol.TimelineState, available bool) schema.ControlTimestamp {
	if !available {
		return schema.ControlTimestamp{
			ContentTime:             schema.Null[schema.TickValue](),
			WallClockTime:           schema.Null[schema.WallClockTime](),
			TimelineSpeedMultiplier: schema.Null[float64](),
		}
	}
	return schema.ControlTimestamp{
		ContentTime:             schema.Of(schema.TickValue(int64(math.Round(state.ContentTicks)))),
		WallClockTime:           schema.Of(schema.WallClockTime(state.WallClockNanos)),
		TimelineSpeedMultiplier: schema.Of(state.Speed),
	}
}

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

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bbc-rd/csssync/monotime"
	"github.com/bbc-rd/csssync/wc/protocol"
)

// Replier is the "send datagram" collaborator a caller's listener
// loop supplies per inbound request: Reply sends b back to whichever
// address the request arrived from.
type Replier interface {
	Reply(b []byte) error
}

// ReplierFunc adapts a plain function to Replier.
type ReplierFunc func([]byte) error

// Reply implements Replier.
func (f ReplierFunc) Reply(b []byte) error { return f(b) }

type inboundRequest struct {
	raw      []byte
	received int64
	replier  Replier
}

// Server answers WC request datagrams with a fixed pool of worker
// goroutines reading off one shared queue, matching
// facebook-time/responder/server.Server's task-channel-plus-worker-pool
// shape.
type Server struct {
	cfg              Config
	precisionSeconds float64
	nowNanos         func() int64
	tasks            chan inboundRequest
	cancel           context.CancelFunc
	group            *errgroup.Group
	ctx              context.Context
}

// New creates a Server. precisionSeconds should be a recent
// monotime.MeasurePrecision sample of the clock the caller is
// stamping receipt/transmit times with.
func New(cfg Config, precisionSeconds float64) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Server{
		cfg:              cfg,
		precisionSeconds: precisionSeconds,
		nowNanos:         monotime.NowNanos,
		tasks:            make(chan inboundRequest, cfg.Workers),
	}
}

// Start launches the worker pool under an errgroup.Group so Stop can
// wait for every worker to actually drain, not just signal them. It
// does not block.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	s.ctx = ctx
	s.cancel = cancel
	s.group = group
	for i := 0; i < s.cfg.Workers; i++ {
		group.Go(func() error {
			s.worker(ctx)
			return nil
		})
	}
}

// Stop signals every worker to exit once its current task, if any, is
// finished, and blocks until they have. Outstanding queued tasks are
// dropped.
func (s *Server) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	_ = s.group.Wait()
}

// HandleDatagram enqueues one inbound datagram, stamped with its
// receipt time (t2), for a worker to answer. received should be
// stamped by the caller as close to socket receipt as the platform
// allows (spec.md §4.G: "as soon after kernel receipt as possible").
func (s *Server) HandleDatagram(raw []byte, received int64, replier Replier) {
	select {
	case s.tasks <- inboundRequest{raw: raw, received: received, replier: replier}:
	case <-s.ctx.Done():
	}
}

func (s *Server) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.tasks:
			s.serve(req)
		}
	}
}

func (s *Server) serve(req inboundRequest) {
	msg, err := protocol.Decode(req.raw)
	if err != nil {
		log.Infof("wc server: discarding malformed request: %v", err)
		return
	}
	if msg.Type != protocol.TypeRequest {
		log.Infof("wc server: discarding non-request message type %d", msg.Type)
		return
	}

	if s.cfg.SupportsFollowup {
		s.replyWithFollowup(req, msg)
		return
	}
	s.replyImmediate(req, msg)
}

// replyImmediate answers a type-0 request with a single type-1
// response, stamping t3 as close to transmission (encode time) as
// this two-step-free path allows.
func (s *Server) replyImmediate(req inboundRequest, request protocol.Message) {
	reply := protocol.Message{
		Type:            protocol.TypeResponse,
		Precision:       protocol.PrecisionFromSeconds(s.precisionSeconds),
		MaxFreqErrorPPM: s.cfg.MaxFreqErrorPPM,
		Originate:       request.Originate,
		Receive:         req.received,
		Transmit:        s.nowNanos(),
	}
	s.send(req.replier, reply)
}

// replyWithFollowup answers with a provisional type-2 response
// immediately, then a type-3 follow-up carrying the authoritative
// transmit timestamp measured after the type-2 send, mirroring the
// two-step PTP sync/follow-up split facebook-time's sptp client
// consumes.
func (s *Server) replyWithFollowup(req inboundRequest, request protocol.Message) {
	provisional := protocol.Message{
		Type:            protocol.TypeResponsePendingFollowup,
		Precision:       protocol.PrecisionFromSeconds(s.precisionSeconds),
		MaxFreqErrorPPM: s.cfg.MaxFreqErrorPPM,
		Originate:       request.Originate,
		Receive:         req.received,
	}
	s.send(req.replier, provisional)

	followup := protocol.Message{
		Type:            protocol.TypeFollowup,
		Precision:       protocol.PrecisionFromSeconds(s.precisionSeconds),
		MaxFreqErrorPPM: s.cfg.MaxFreqErrorPPM,
		Originate:       request.Originate,
		Receive:         req.received,
		Transmit:        s.nowNanos(),
	}
	s.send(req.replier, followup)
}

func (s *Server) send(replier Replier, msg protocol.Message) {
	encoded, err := protocol.Encode(msg)
	if err != nil {
		log.Errorf("wc server: encode reply: %v", err)
		return
	}
	if err := replier.Reply(encoded[:]); err != nil {
		log.Warningf("wc server: reply: %v", err)
	}
}

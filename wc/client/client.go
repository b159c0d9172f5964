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
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/monotime"
	"github.com/bbc-rd/csssync/wc/protocol"
)

// Transport is the "send datagram" collaborator spec.md leaves
// external: the Client never opens a socket. A caller wires a
// Transport to whatever UDP (or other datagram) connection it already
// manages.
type Transport interface {
	Send(b []byte) error
}

// TransportFunc adapts a plain function to Transport.
type TransportFunc func([]byte) error

// Send implements Transport.
func (f TransportFunc) Send(b []byte) error { return f(b) }

// Client runs the WC request loop against a single target clock: the
// parent of the user-facing wall clock (spec.md §4.F). It owns no
// socket; HandleDatagram is the "receive callback" seam a caller's
// read loop feeds every inbound datagram into.
type Client struct {
	cfg        Config
	target     *clockgraph.TunableClock
	transport  Transport
	algorithm  Algorithm
	dispatcher *protocol.Dispatcher
	nowNanos   func() int64

	precisionSeconds float64

	mu            sync.Mutex
	waiting       chan protocol.Candidate
	waitOriginate int64

	stop chan struct{}
	done chan struct{}
}

// New creates a Client that will drive target towards the remote
// clock addressed by transport, using algorithm to turn candidates
// into Correlation updates.
func New(target *clockgraph.TunableClock, transport Transport, algorithm Algorithm, cfg Config) *Client {
	return &Client{
		cfg:              cfg,
		target:           target,
		transport:        transport,
		algorithm:        algorithm,
		dispatcher:       protocol.NewDispatcher(),
		nowNanos:         monotime.NowNanos,
		precisionSeconds: monotime.MeasurePrecision(monotime.NowNanos, 8),
		stop:             make(chan struct{}),
	}
}

// localMaxFreqErrorPPM reads the configured override, falling back to
// the target clock's system-clock ancestor, as spec.md §4.F names for
// LowestDispersionAlgorithm and reuses here for both algorithms.
func (c *Client) localMaxFreqErrorPPM() float64 {
	if c.cfg.LocalMaxFreqErrorPPMOverride != nil {
		return *c.cfg.LocalMaxFreqErrorPPMOverride
	}
	if sc, ok := c.target.Root().(*clockgraph.SystemClock); ok {
		return sc.MaxFreqErrorPPM()
	}
	return 0
}

func (c *Client) localInfo() localInfo {
	return localInfo{
		precisionSeconds: c.precisionSeconds,
		maxFreqErrorPPM:  c.localMaxFreqErrorPPM(),
		parentTickRate:   c.target.Parent().TickRate(),
		childTickRate:    c.target.TickRate(),
	}
}

// Run executes the request loop until Stop is called. It blocks, so
// callers normally invoke it in its own goroutine (spec.md §5: "WC
// client request loop runs on its own thread").
func (c *Client) Run() {
	c.done = make(chan struct{})
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		c.attempt()
		select {
		case <-c.stop:
			return
		case <-time.After(c.algorithm.CurrentInterval()):
		}
	}
}

// Stop halts the request loop; an in-flight attempt is abandoned, and
// any response that later arrives for it is discarded by HandleDatagram.
func (c *Client) Stop() {
	close(c.stop)
	if c.done != nil {
		<-c.done
	}
}

func (c *Client) attempt() {
	originate := c.nowNanos()
	msg := protocol.Message{
		Type:            protocol.TypeRequest,
		Precision:       protocol.PrecisionFromSeconds(c.precisionSeconds),
		MaxFreqErrorPPM: c.localMaxFreqErrorPPM(),
		Originate:       originate,
	}
	encoded, err := protocol.Encode(msg)
	if err != nil {
		log.Errorf("wc client: encode request: %v", err)
		return
	}

	waiting := make(chan protocol.Candidate, 1)
	c.mu.Lock()
	c.waiting = waiting
	c.waitOriginate = originate
	c.mu.Unlock()

	if err := c.transport.Send(encoded[:]); err != nil {
		log.Warningf("wc client: send request: %v", err)
		return
	}

	timeout := secondsToDuration(c.cfg.TimeoutSecs)
	select {
	case cand := <-waiting:
		c.onCandidate(cand)
	case <-time.After(timeout):
		log.Debugf("wc client: request timed out after %s", timeout)
	case <-c.stop:
	}
}

// HandleDatagram decodes one inbound datagram, stamped with its
// arrival time in nanoseconds, and feeds it through the Dispatcher. A
// completed candidate matching the most recent request unblocks
// attempt(); any other completed candidate (e.g. a stray late
// follow-up) is still handed to the algorithm, since it remains
// informative even though no attempt is waiting on it.
func (c *Client) HandleDatagram(b []byte, arrival int64) {
	msg, err := protocol.Decode(b)
	if err != nil {
		log.Warningf("wc client: decode inbound message: %v", err)
		return
	}
	cand, ready, err := c.dispatcher.Observe(msg, arrival)
	if err != nil {
		log.Debugf("wc client: %v", err)
		return
	}
	if !ready {
		return
	}

	c.mu.Lock()
	waiting, waitOriginate := c.waiting, c.waitOriginate
	c.mu.Unlock()
	if waiting != nil && cand.T1 == waitOriginate {
		select {
		case waiting <- cand:
		default:
		}
		return
	}
	c.onCandidate(cand)
}

func (c *Client) onCandidate(cand protocol.Candidate) {
	corr, ok := c.algorithm.OnCandidate(cand, c.localInfo())
	if !ok {
		return
	}
	c.target.Tune(corr, 1)
}

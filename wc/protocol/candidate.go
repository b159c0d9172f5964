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

package protocol

import (
	"errors"
	"sync"
)

// Candidate is one completed request/response round trip, all fields
// in nanoseconds on the client's local timeline.
type Candidate struct {
	T1, T2, T3, T4 int64
	// Offset is the estimated difference between the server's clock
	// and the client's: ((t3+t2)-(t4+t1))/2.
	Offset float64
	// RTT is the estimated round-trip time: (t4-t1)-(t3-t2).
	RTT float64
	// RemotePrecisionSeconds and RemoteMaxFreqErrorPPM carry the
	// server's advertised precision and maximum frequency error from
	// the response (or, for a type-2/type-3 pair, the authoritative
	// follow-up), needed by a wc/client Algorithm to build a
	// Correlation's initial error and growth rate. Zero unless set by
	// Dispatcher.Observe.
	RemotePrecisionSeconds float64
	RemoteMaxFreqErrorPPM  float64
}

// NewCandidate builds a Candidate from a timestamp quadruple.
func NewCandidate(t1, t2, t3, t4 int64) Candidate {
	return Candidate{
		T1: t1, T2: t2, T3: t3, T4: t4,
		Offset: float64((t3+t2)-(t4+t1)) / 2,
		RTT:    float64((t4 - t1) - (t3 - t2)),
	}
}

// ErrUnmatchedFollowup is returned by Dispatcher.Observe when a
// type-3 follow-up arrives with no matching pending type-2 response.
var ErrUnmatchedFollowup = errors.New("protocol: follow-up with no matching pending response")

type pendingKey struct {
	originate, receive int64
}

type pendingEntry struct {
	msg     Message
	arrival int64
}

// Dispatcher turns the stream of inbound WC response messages a
// client observes into completed Candidates, pairing each type-2
// response with its authoritative type-3 follow-up by matching
// originate+receive (mirroring the sync/follow-up pairing in
// facebook-time's PTP two-step measurement pipeline).
type Dispatcher struct {
	mu      sync.Mutex
	pending map[pendingKey]pendingEntry
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{pending: map[pendingKey]pendingEntry{}}
}

// Observe feeds one inbound message, stamped with its arrival time
// (t4, nanoseconds). It returns a completed Candidate and ready=true
// as soon as one is available: immediately for a type-1 response, or
// once a type-2's matching type-3 follow-up arrives.
func (d *Dispatcher) Observe(msg Message, arrival int64) (cand Candidate, ready bool, err error) {
	switch msg.Type {
	case TypeResponse:
		cand := NewCandidate(msg.Originate, msg.Receive, msg.Transmit, arrival)
		cand.RemotePrecisionSeconds = SecondsFromPrecision(msg.Precision)
		cand.RemoteMaxFreqErrorPPM = msg.MaxFreqErrorPPM
		return cand, true, nil

	case TypeResponsePendingFollowup:
		d.mu.Lock()
		d.pending[pendingKey{msg.Originate, msg.Receive}] = pendingEntry{msg: msg, arrival: arrival}
		d.mu.Unlock()
		return Candidate{}, false, nil

	case TypeFollowup:
		key := pendingKey{msg.Originate, msg.Receive}
		d.mu.Lock()
		entry, ok := d.pending[key]
		if ok {
			delete(d.pending, key)
		}
		d.mu.Unlock()
		if !ok {
			return Candidate{}, false, ErrUnmatchedFollowup
		}
		cand := NewCandidate(entry.msg.Originate, entry.msg.Receive, msg.Transmit, entry.arrival)
		cand.RemotePrecisionSeconds = SecondsFromPrecision(msg.Precision)
		cand.RemoteMaxFreqErrorPPM = msg.MaxFreqErrorPPM
		return cand, true, nil

	default:
		return Candidate{}, false, errors.New("protocol: unexpected message type for a client to observe")
	}
}

// Pending reports how many type-2 responses are awaiting a follow-up.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Forget discards a pending type-2 entry that has timed out without a
// follow-up, so it does not leak forever.
func (d *Dispatcher) Forget(originate, receive int64) {
	d.mu.Lock()
	delete(d.pending, pendingKey{originate, receive})
	d.mu.Unlock()
}

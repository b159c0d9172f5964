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
	"sync"

	"github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/bbc-rd/csssync/schema"
	"github.com/bbc-rd/csssync/transport"
)

// MinSupportedProtocolVersion is the oldest CII protocolVersion this
// client understands. A server advertising anything older is still
// applied (the wire format hasn't actually changed across these
// versions), but logged, since it signals the server predates a
// feature this client may assume is present.
const MinSupportedProtocolVersion = "1.1"

// protocolVersionCompatible reports whether serverVersion parses as
// at least MinSupportedProtocolVersion. An unparsable serverVersion is
// treated as compatible: CII's protocolVersion is free-form per
// spec.md, so version.NewVersion failing just means this client can't
// reason about ordering, not that the server is too old.
func protocolVersionCompatible(serverVersion string) bool {
	min, err := version.NewVersion(MinSupportedProtocolVersion)
	if err != nil {
		return true
	}
	got, err := version.NewVersion(serverVersion)
	if err != nil {
		return true
	}
	return !got.LessThan(min)
}

// Observer is notified once per inbound message with the names of the
// fields that message changed.
type Observer func(changed []string)

// Client holds the latest cumulative CII state received over a single
// transport.Conn.
type Client struct {
	conn transport.Conn

	mu        sync.Mutex
	state     schema.CII
	observers []Observer

	stop chan struct{}
	done chan struct{}
}

// New wraps an already-connected transport.Conn.
func New(conn transport.Conn) *Client {
	return &Client{conn: conn, stop: make(chan struct{}), done: make(chan struct{})}
}

// Subscribe registers an Observer called after every applied message.
func (c *Client) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// State returns a deep copy of the current cumulative CII state.
func (c *Client) State() schema.CII {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Run reads messages until the connection closes or Stop is called.
// It blocks, so call it from its own goroutine.
func (c *Client) Run() {
	defer close(c.done)
	for {
		text, err := c.conn.ReadText()
		if err != nil {
			select {
			case <-c.stop:
			default:
				log.Debugf("cii/client: read failed: %v", err)
			}
			return
		}
		c.applyMessage(text)
	}
}

// Stop closes the underlying connection, unblocking Run.
func (c *Client) Stop() {
	close(c.stop)
	if err := c.conn.Close(); err != nil {
		log.Debugf("cii/client: close: %v", err)
	}
	<-c.done
}

func (c *Client) applyMessage(text string) {
	var incoming schema.CII
	if err := json.Unmarshal([]byte(text), &incoming); err != nil {
		log.Warningf("cii/client: malformed message: %v", err)
		return
	}

	c.mu.Lock()
	before := c.state
	c.state = schema.ApplyDiff(before, incoming)
	after := c.state.Clone()
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	changed := changedFields(before, after)
	if len(changed) == 0 {
		return
	}
	if v, ok := after.ProtocolVersion.Value(); ok && !protocolVersionCompatible(v) {
		log.Warningf("cii/client: server protocolVersion %q is older than %q", v, MinSupportedProtocolVersion)
	}
	for _, o := range observers {
		o(changed)
	}
}

// changedFields names the CII fields that differ between before and
// after, in wire-field order.
func changedFields(before, after schema.CII) []string {
	var changed []string
	add := func(name string, equal bool) {
		if !equal {
			changed = append(changed, name)
		}
	}
	add("protocolVersion", before.ProtocolVersion.Equal(after.ProtocolVersion))
	add("contentId", before.ContentID.Equal(after.ContentID))
	add("contentIdStatus", before.ContentIDStatus.Equal(after.ContentIDStatus))
	add("presentationStatus", before.PresentationStatus.Equal(after.PresentationStatus))
	add("mrsUrl", before.MRSURL.Equal(after.MRSURL))
	add("tsUrl", before.TSURL.Equal(after.TSURL))
	add("wcUrl", before.WCURL.Equal(after.WCURL))
	add("teUrl", before.TEURL.Equal(after.TEURL))
	add("timelines", before.Timelines.Equal(after.Timelines))
	add("private", before.Private.Equal(after.Private))
	return changed
}

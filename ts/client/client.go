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

	log "github.com/sirupsen/logrus"

	"github.com/bbc-rd/csssync/clockgraph"
	"github.com/bbc-rd/csssync/schema"
	"github.com/bbc-rd/csssync/scheduler"
	"github.com/bbc-rd/csssync/transport"
)

// AptEptLptSource produces the companion's current actual/earliest/
// latest timeline report when asked.
type AptEptLptSource func() schema.AptEptLpt

// Client sends a TS server its SetupData once connected, then tunes
// target from every ControlTimestamp the server pushes back.
type Client struct {
	conn   transport.Conn
	setup  schema.SetupData
	target *clockgraph.TunableClock

	sched      *scheduler.Scheduler
	wallClock  clockgraph.Clock
	reportTask *scheduler.Task

	stop chan struct{}
	done chan struct{}
}

// New wraps an already-connected transport.Conn. target is tuned from
// every ControlTimestamp received; its parent clock supplies the tick
// rate used to convert a ControlTimestamp's wallClockTime (nanoseconds)
// into parent ticks for the installed Correlation.
func New(conn transport.Conn, setup schema.SetupData, target *clockgraph.TunableClock) *Client {
	return &Client{
		conn:   conn,
		setup:  setup,
		target: target,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run sends SetupData, then reads ControlTimestamp messages until the
// connection closes or Stop is called. Blocks; call from its own
// goroutine.
func (c *Client) Run() error {
	defer close(c.done)
	b, err := json.Marshal(c.setup)
	if err != nil {
		return err
	}
	if err := c.conn.WriteText(string(b)); err != nil {
		return err
	}
	for {
		text, err := c.conn.ReadText()
		if err != nil {
			select {
			case <-c.stop:
				return nil
			default:
				return err
			}
		}
		c.applyMessage(text)
	}
}

// Stop closes the underlying connection and, if AptEptLpt emission was
// started, cancels it.
func (c *Client) Stop() {
	close(c.stop)
	if c.reportTask != nil {
		c.reportTask.Cancel()
	}
	if err := c.conn.Close(); err != nil {
		log.Debugf("ts/client: close: %v", err)
	}
	<-c.done
}

func (c *Client) applyMessage(text string) {
	var ct schema.ControlTimestamp
	if err := json.Unmarshal([]byte(text), &ct); err != nil {
		log.Warningf("ts/client: malformed ControlTimestamp: %v", err)
		return
	}

	contentTicks, hasContent := ct.ContentTime.Value()
	speed, hasSpeed := ct.TimelineSpeedMultiplier.Value()
	if !hasContent || !hasSpeed {
		c.target.SetAvailability(false)
		return
	}
	wallClockNanos, hasWall := ct.WallClockTime.Value()
	if !hasWall {
		log.Warningf("ts/client: ControlTimestamp has contentTime/speed but no wallClockTime")
		return
	}

	parent := c.target.Parent()
	parentTicks := float64(wallClockNanos) * parent.TickRate() / 1e9
	c.target.Tune(clockgraph.Correlation{
		ParentTicks: parentTicks,
		ChildTicks:  float64(contentTicks),
	}, speed)
	c.target.SetAvailability(true)
}

// StartAptEptLptEmission schedules periodic AptEptLpt reports every
// intervalTicks ticks of wallClock (the client's own wall clock, not a
// bare timer, so reporting cadence is derived from the same clock
// graph everything else in the repo runs on), sourced from source.
func (c *Client) StartAptEptLptEmission(sched *scheduler.Scheduler, wallClock clockgraph.Clock, intervalTicks float64, source AptEptLptSource) {
	c.sched = sched
	c.wallClock = wallClock

	var tick func()
	tick = func() {
		msg := source()
		b, err := json.Marshal(msg)
		if err != nil {
			log.Errorf("ts/client: marshal AptEptLpt: %v", err)
		} else if err := c.conn.WriteText(string(b)); err != nil {
			log.Debugf("ts/client: send AptEptLpt: %v", err)
		}
		c.reportTask = sched.RunAt(wallClock, wallClock.Ticks()+intervalTicks, tick)
	}
	c.reportTask = sched.RunAt(wallClock, wallClock.Ticks()+intervalTicks, tick)
}

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

package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Counters is a set of named int64 counters, safe for concurrent use
// from any number of goroutines. Keys are created lazily on first use.
type Counters struct {
	mu       sync.Mutex
	counters map[string]*int64
}

// NewCounters creates an empty Counters.
func NewCounters() *Counters {
	return &Counters{counters: map[string]*int64{}}
}

// Inc adds 1 to the named counter.
func (c *Counters) Inc(key string) {
	c.Add(key, 1)
}

// Add adds delta to the named counter, creating it at 0 first if this
// is its first use.
func (c *Counters) Add(key string, delta int64) {
	atomic.AddInt64(c.slot(key), delta)
}

// Set overwrites the named counter with val, creating it first if
// this is its first use. Used for gauge-like values (current
// process RSS, goroutine count) where Add's accumulation would be
// meaningless.
func (c *Counters) Set(key string, val int64) {
	atomic.StoreInt64(c.slot(key), val)
}

func (c *Counters) slot(key string) *int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.counters[key]
	if !ok {
		p = new(int64)
		c.counters[key] = p
	}
	return p
}

// Snapshot returns every counter's current value.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	keys := make([]*int64, 0, len(c.counters))
	names := make([]string, 0, len(c.counters))
	for k, p := range c.counters {
		names = append(names, k)
		keys = append(keys, p)
	}
	c.mu.Unlock()

	out := make(map[string]int64, len(names))
	for i, name := range names {
		out[name] = atomic.LoadInt64(keys[i])
	}
	return out
}

// ServeHTTP implements http.Handler, rendering the current snapshot as
// a JSON object.
func (c *Counters) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(c.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		log.Errorf("metrics: failed to write response: %v", err)
	}
}

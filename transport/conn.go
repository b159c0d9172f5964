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

package transport

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is a full-duplex text-message channel: the only shape CII and
// TS need from their underlying transport.
type Conn interface {
	// ReadText blocks for the next complete text message. Binary
	// frames are skipped; a closed connection returns an error.
	ReadText() (string, error)
	// WriteText sends msg as a single text frame. Safe for concurrent
	// use with other WriteText calls.
	WriteText(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// wsConn adapts a *websocket.Conn to Conn. gorilla/websocket forbids
// concurrent writers, so writeMu serialises WriteText calls; reads
// are assumed single-reader, matching websocket.Conn's own contract.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewConn wraps an already-upgraded websocket connection as a Conn.
func NewConn(conn *websocket.Conn) Conn {
	return &wsConn{conn: conn}
}

// ReadText implements Conn.
func (w *wsConn) ReadText() (string, error) {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return string(data), nil
	}
}

// WriteText implements Conn.
func (w *wsConn) WriteText(msg string) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Close implements Conn.
func (w *wsConn) Close() error {
	return w.conn.Close()
}

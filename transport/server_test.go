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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestServerEchoesTextMessages(t *testing.T) {
	srv := NewServer(func(conn Conn) {
		for {
			msg, err := conn.ReadText()
			if err != nil {
				return
			}
			if err := conn.WriteText(strings.ToUpper(msg)); err != nil {
				return
			}
		}
	})

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("hello")))

	client.SetReadDeadline(time.Now().Add(time.Second))
	msgType, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	require.Equal(t, "HELLO", string(data))
}

func TestServerIgnoresBinaryFrames(t *testing.T) {
	received := make(chan string, 1)
	srv := NewServer(func(conn Conn) {
		msg, err := conn.ReadText()
		if err != nil {
			return
		}
		received <- msg
	})

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("text-after-binary")))

	select {
	case msg := <-received:
		require.Equal(t, "text-after-binary", msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for text message")
	}
}

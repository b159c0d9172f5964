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
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"
)

// Handler is called once per accepted connection, in its own
// goroutine, mirroring the goroutine-per-connection shape
// facebook-time's responder/server.Server uses per listener.
type Handler func(conn Conn)

// Server upgrades incoming HTTP requests to websocket connections and
// dispatches each to a Handler.
type Server struct {
	upgrader websocket.Upgrader
	handler  Handler
}

// NewServer creates a Server that calls handler for every accepted
// connection. It accepts upgrade requests from any origin: CII/TS
// companion apps are not same-origin web pages, so the usual
// same-origin websocket check does not apply here.
func NewServer(handler Handler) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		handler: handler,
	}
}

// ServeHTTP implements http.Handler: plug a Server directly into an
// http.ServeMux at the CII/TS endpoint path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("transport: upgrade failed: %v", err)
		return
	}
	go s.handler(NewConn(conn))
}

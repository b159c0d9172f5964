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

// Package transport is the full-duplex text-message channel spec.md
// treats as an external collaborator, shared by the CII push protocol
// and the TS push-and-report protocol. It wraps
// github.com/gorilla/websocket behind a narrow Conn interface so
// cii/server, cii/client, ts/server and ts/client depend only on
// "read a text message" / "write a text message" / "close", never on
// websocket types directly.
package transport

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

// Package server answers WC request datagrams. Like wc/client, it
// never opens a socket itself: a caller's listener loop feeds each
// inbound datagram to HandleDatagram along with the time it was
// received and a Replier to send the answer back to, and a fixed pool
// of worker goroutines (mirroring facebook-time's
// responder/server.Server worker-pool shape) stamps timestamps and
// replies.
package server

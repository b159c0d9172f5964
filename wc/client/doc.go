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

// Package client drives a local clock towards a remote WC server's
// clock. It owns the request loop and the candidate-to-correlation
// pipeline; it never opens a socket itself, instead sending encoded
// requests through a Transport seam and receiving decoded responses
// through HandleDatagram, so the caller supplies the actual datagram
// I/O.
//
// An Algorithm turns the stream of candidates a Dispatcher produces
// into Correlation updates for the target clock. Two are provided:
// LowestDispersionAlgorithm, which keeps whichever candidate within
// its bounded window of recent candidates has the smallest estimated
// dispersion,
// and FilterPredictAlgorithm, a composable pipeline of Filter values
// followed by a Predictor.
package client

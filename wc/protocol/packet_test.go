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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// S1: request at t1 = 116_012_000_000 ns (116s, 12ms), encoded with
// bytes 0-1 zero, bytes [8:12] big-endian 116, [12:16] big-endian
// 12_000_000, every other timestamp field zero.
func TestScenarioS1Encode(t *testing.T) {
	msg := Message{Type: TypeRequest, Originate: 116_012_000_000}
	b, err := Encode(msg)
	require.NoError(t, err)
	require.Equal(t, byte(0x00), b[0])
	require.Equal(t, byte(0x00), b[1])
	require.Equal(t, uint32(116), binary.BigEndian.Uint32(b[8:12]))
	require.Equal(t, uint32(12_000_000), binary.BigEndian.Uint32(b[12:16]))
	for _, span := range [][2]int{{16, 20}, {20, 24}, {24, 28}, {28, 32}} {
		require.Equal(t, uint32(0), binary.BigEndian.Uint32(b[span[0]:span[1]]), "span %v", span)
	}
}

// S1 continued: server stamps t2/t3 and replies type-1; the client's
// candidate at t4 reproduces the scenario's offset and rtt.
func TestScenarioS1CandidateArithmetic(t *testing.T) {
	const (
		t1 = 116_012_000_000
		t2 = 116_012_500_000
		t3 = 116_013_000_000
		t4 = 116_020_000_000
	)
	cand := NewCandidate(t1, t2, t3, t4)
	require.InDelta(t, -3_250_000.0, cand.Offset, 1e-9)
	require.InDelta(t, 7_500_000.0, cand.RTT, 1e-9)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := Message{
		Type:            TypeResponse,
		Precision:       -20,
		MaxFreqErrorPPM: 15.5,
		Originate:       116_012_000_000,
		Receive:         116_012_500_000,
		Transmit:        116_013_000_000,
	}
	b, err := Encode(msg)
	require.NoError(t, err)
	got, err := Decode(b[:])
	require.NoError(t, err)
	require.Equal(t, msg.Type, got.Type)
	require.Equal(t, msg.Precision, got.Precision)
	require.InDelta(t, msg.MaxFreqErrorPPM, got.MaxFreqErrorPPM, 1.0/256)
	require.Equal(t, msg.Originate, got.Originate)
	require.Equal(t, msg.Receive, got.Receive)
	require.Equal(t, msg.Transmit, got.Transmit)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode(make([]byte, 31))
	require.Error(t, err)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	b := [PacketSizeBytes]byte{}
	b[0] = 7
	_, err := Decode(b[:])
	require.Error(t, err)
}

func TestEncodeRejectsUnknownType(t *testing.T) {
	_, err := Encode(Message{Type: 9})
	require.Error(t, err)
}

func TestPrecisionSecondsRoundTrip(t *testing.T) {
	p := PrecisionFromSeconds(1.0 / 1024)
	require.Equal(t, int8(-10), p)
	require.InDelta(t, 1.0/1024, SecondsFromPrecision(p), 1e-12)
}

func TestNegativeMaxFreqErrorEncodesAsZero(t *testing.T) {
	msg := Message{Type: TypeRequest, MaxFreqErrorPPM: -5}
	b, err := Encode(msg)
	require.NoError(t, err)
	got, err := Decode(b[:])
	require.NoError(t, err)
	require.Equal(t, 0.0, got.MaxFreqErrorPPM)
}

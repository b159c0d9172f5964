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
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// PacketSizeBytes is the fixed size of a WC datagram.
const PacketSizeBytes = 32

// Message types, wire byte 0.
const (
	TypeRequest                 = uint8(0)
	TypeResponse                = uint8(1)
	TypeResponsePendingFollowup = uint8(2)
	TypeFollowup                = uint8(3)
)

// wireMessage is the exact on-the-wire layout; binary.Write/Read walk
// its fields in declaration order, matching facebook-time's NTP
// Packet encoding technique.
type wireMessage struct {
	MessageType    uint8
	Precision      int8
	Reserved       uint16
	MaxFreqError   uint32
	OriginateSec   uint32
	OriginateNanos uint32
	ReceiveSec     uint32
	ReceiveNanos   uint32
	TransmitSec    uint32
	TransmitNanos  uint32
}

// Message is the decoded, nanosecond-denominated form of a WC packet.
type Message struct {
	Type uint8
	// Precision is the sender's clock precision, expressed as
	// seconds = 2^Precision.
	Precision int8
	// MaxFreqErrorPPM is the sender's maximum frequency error, in
	// parts per million.
	MaxFreqErrorPPM float64
	// Originate, Receive and Transmit are nanosecond offsets from an
	// arbitrary but consistent monotonic origin (t1, t2, t3 in NTP
	// terms).
	Originate int64
	Receive   int64
	Transmit  int64
}

// Encode packs m into a 32-byte big-endian WC datagram.
func Encode(m Message) ([PacketSizeBytes]byte, error) {
	var out [PacketSizeBytes]byte
	if !validType(m.Type) {
		return out, fmt.Errorf("protocol: unknown message type %d", m.Type)
	}
	oSec, oNanos := splitNanos(m.Originate)
	rSec, rNanos := splitNanos(m.Receive)
	tSec, tNanos := splitNanos(m.Transmit)
	w := wireMessage{
		MessageType:    m.Type,
		Precision:      m.Precision,
		MaxFreqError:   ppmToWire(m.MaxFreqErrorPPM),
		OriginateSec:   oSec,
		OriginateNanos: oNanos,
		ReceiveSec:     rSec,
		ReceiveNanos:   rNanos,
		TransmitSec:    tSec,
		TransmitNanos:  tNanos,
	}
	buf := bytes.NewBuffer(out[:0])
	if err := binary.Write(buf, binary.BigEndian, w); err != nil {
		return out, err
	}
	copy(out[:], buf.Bytes())
	return out, nil
}

// Decode unpacks a 32-byte WC datagram. It rejects short/long buffers
// and unknown message types.
func Decode(b []byte) (Message, error) {
	if len(b) != PacketSizeBytes {
		return Message{}, fmt.Errorf("protocol: WC message must be %d bytes, got %d", PacketSizeBytes, len(b))
	}
	var w wireMessage
	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &w); err != nil {
		return Message{}, err
	}
	if !validType(w.MessageType) {
		return Message{}, fmt.Errorf("protocol: unknown message type %d", w.MessageType)
	}
	return Message{
		Type:            w.MessageType,
		Precision:       w.Precision,
		MaxFreqErrorPPM: wireToPPM(w.MaxFreqError),
		Originate:       joinNanos(w.OriginateSec, w.OriginateNanos),
		Receive:         joinNanos(w.ReceiveSec, w.ReceiveNanos),
		Transmit:        joinNanos(w.TransmitSec, w.TransmitNanos),
	}, nil
}

func validType(t uint8) bool {
	return t == TypeRequest || t == TypeResponse || t == TypeResponsePendingFollowup || t == TypeFollowup
}

// splitNanos reconstructs the seconds/nanoseconds pair the wire format
// wants from a single nanosecond count.
func splitNanos(nanos int64) (sec uint32, frac uint32) {
	return uint32(nanos / 1e9), uint32(nanos % 1e9)
}

// joinNanos is splitNanos's inverse: seconds*1e9 + nanoseconds.
func joinNanos(sec, frac uint32) int64 {
	return int64(sec)*1_000_000_000 + int64(frac)
}

// ppmToWire converts parts-per-million to the wire's fixed-point units
// of 1/256 ppm.
func ppmToWire(ppm float64) uint32 {
	if ppm < 0 {
		ppm = 0
	}
	return uint32(math.Round(ppm * 256))
}

// wireToPPM is ppmToWire's inverse.
func wireToPPM(v uint32) float64 {
	return float64(v) / 256
}

// PrecisionFromSeconds finds the largest power of two not greater
// than seconds, expressed as its exponent (facebook-time's NTP
// Packet.Precision uses the same signed power-of-two convention).
func PrecisionFromSeconds(seconds float64) int8 {
	if seconds <= 0 {
		return math.MinInt8
	}
	return int8(math.Floor(math.Log2(seconds)))
}

// SecondsFromPrecision is PrecisionFromSeconds's inverse.
func SecondsFromPrecision(p int8) float64 {
	return math.Exp2(float64(p))
}

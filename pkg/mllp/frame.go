// Package mllp implements the Minimal Lower Layer Protocol framing used to
// carry HL7 v2.x messages over TCP: 0x0B <payload> 0x1C 0x0D.
package mllp

import (
	"bufio"
	"io"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

const (
	startByte = 0x0B
	endByte1  = 0x1C
	endByte2  = 0x0D
)

// DefaultMaxPayloadSize bounds a single frame's payload; exceeding it closes the
// session with a framing error. Overridable per Server/Client.
const DefaultMaxPayloadSize = 10 << 20 // 10 MiB

// Deframer extracts complete MLLP payloads from a byte stream. It is not
// safe for concurrent use; each connection owns one Deframer, since a
// single session processes frames sequentially.
type Deframer struct {
	r             *bufio.Reader
	maxPayload    int
	discardedJunk int // bytes discarded before the first 0x0B was seen
}

// NewDeframer wraps r, bounding payloads to maxPayload bytes (0 uses
// DefaultMaxPayloadSize).
func NewDeframer(r io.Reader, maxPayload int) *Deframer {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadSize
	}
	return &Deframer{r: bufio.NewReader(r), maxPayload: maxPayload}
}

// Next reads and returns the next complete frame's payload. It returns
// io.EOF when the underlying stream ends before the next frame's 0x0B
// (bytes discarded ahead of it do not start a frame), and a
// *bridgeerr.Error with KindFraming on any malformed frame, including one
// cut off by the end of the stream:
//   - bytes before the first 0x0B on a fresh read are discarded and
//     counted as a protocol error
//   - a second 0x0B before the 0x1C 0x0D terminator abandons the frame
//   - exceeding maxPayload closes the session with an error
func (d *Deframer) Next() ([]byte, error) {
	const op = "mllp.Deframer.Next"

	start, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	junk := 0
	for start != startByte {
		junk++
		start, err = d.r.ReadByte()
		if err != nil {
			return nil, err
		}
	}
	d.discardedJunk += junk

	var payload []byte
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = bridgeerr.New(bridgeerr.KindFraming, op, io.ErrUnexpectedEOF).
					WithContext("reason", "truncated-frame")
			}
			return nil, err
		}
		if b == startByte {
			return nil, bridgeerr.New(bridgeerr.KindFraming, op, nil).
				WithContext("reason", "embedded-start-byte").
				WithContext("payload_so_far", len(payload))
		}
		if b == endByte1 {
			b2, err := d.r.ReadByte()
			if err != nil {
				if err == io.EOF {
					err = bridgeerr.New(bridgeerr.KindFraming, op, io.ErrUnexpectedEOF).
						WithContext("reason", "truncated-frame")
				}
				return nil, err
			}
			if b2 != endByte2 {
				return nil, bridgeerr.New(bridgeerr.KindFraming, op, nil).
					WithContext("reason", "bad-terminator").
					WithContext("detail", "0x1C not followed by 0x0D")
			}
			return payload, nil
		}
		if len(payload) >= d.maxPayload {
			return nil, bridgeerr.New(bridgeerr.KindFraming, op, nil).
				WithContext("reason", "oversize-payload").
				WithContext("max_payload", d.maxPayload)
		}
		payload = append(payload, b)
	}
}

// DiscardedJunk returns the total count of bytes discarded before the
// first 0x0B of each frame seen so far, for protocol-error accounting.
func (d *Deframer) DiscardedJunk() int { return d.discardedJunk }

// Frame wraps payload in the MLLP envelope.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	out = append(out, startByte)
	out = append(out, payload...)
	out = append(out, endByte1, endByte2)
	return out
}

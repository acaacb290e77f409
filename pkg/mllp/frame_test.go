package mllp

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

func TestDeframer_SingleFrame(t *testing.T) {
	stream := Frame([]byte("MSH|^~\\&|HIS"))
	d := NewDeframer(bytes.NewReader(stream), 0)

	payload, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if string(payload) != "MSH|^~\\&|HIS" {
		t.Fatalf("payload = %q", payload)
	}

	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after single frame, got %v", err)
	}
}

func TestDeframer_MultipleFrames(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(Frame([]byte("one")))
	stream.Write(Frame([]byte("two")))
	stream.Write(Frame([]byte("three")))

	d := NewDeframer(&stream, 0)
	var got []string
	for {
		payload, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		got = append(got, string(payload))
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDeframer_LeadingJunkDiscarded(t *testing.T) {
	stream := append([]byte{0xFF, 0xFE}, Frame([]byte("payload"))...)
	d := NewDeframer(bytes.NewReader(stream), 0)

	payload, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if string(payload) != "payload" {
		t.Fatalf("payload = %q", payload)
	}
	if d.DiscardedJunk() != 2 {
		t.Fatalf("DiscardedJunk() = %d, want 2", d.DiscardedJunk())
	}
}

func TestDeframer_EmbeddedStartByteIsFramingError(t *testing.T) {
	raw := []byte{startByte, 'a', 'b', startByte, 'c', endByte1, endByte2}
	d := NewDeframer(bytes.NewReader(raw), 0)

	_, err := d.Next()
	var be *bridgeerr.Error
	if !errors.As(err, &be) || be.Kind != bridgeerr.KindFraming {
		t.Fatalf("expected KindFraming error, got %v", err)
	}
}

func TestDeframer_BadTerminatorIsFramingError(t *testing.T) {
	raw := []byte{startByte, 'a', 'b', endByte1, 'X'}
	d := NewDeframer(bytes.NewReader(raw), 0)

	_, err := d.Next()
	var be *bridgeerr.Error
	if !errors.As(err, &be) || be.Kind != bridgeerr.KindFraming {
		t.Fatalf("expected KindFraming error, got %v", err)
	}
}

func TestDeframer_OversizePayloadIsFramingError(t *testing.T) {
	raw := append([]byte{startByte}, bytes.Repeat([]byte{'a'}, 10)...)
	raw = append(raw, endByte1, endByte2)

	d := NewDeframer(bytes.NewReader(raw), 5)
	_, err := d.Next()
	var be *bridgeerr.Error
	if !errors.As(err, &be) || be.Kind != bridgeerr.KindFraming {
		t.Fatalf("expected KindFraming error, got %v", err)
	}
}

// TestDeframer_TerminatorStraddlingReads ensures the deframer still
// reconstructs a frame when the underlying reader only yields a few bytes
// per Read call, simulating a terminator split across TCP reads.
func TestDeframer_TerminatorStraddlingReads(t *testing.T) {
	stream := Frame([]byte("hello world"))
	d := NewDeframer(&slowReader{data: stream, chunk: 1}, 0)

	payload, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if string(payload) != "hello world" {
		t.Fatalf("payload = %q", payload)
	}
}

type slowReader struct {
	data  []byte
	chunk int
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.data) {
		n = len(r.data)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

package mllp

import (
	"context"
	"net"
	"time"
)

// Session describes one accepted MLLP connection: its identifier and peer
// metadata, handed to the registered Handler alongside each payload.
type Session struct {
	ID         string
	RemoteAddr string
	conn       net.Conn
}

// Handler processes one inbound HL7 payload and returns the response
// payload to frame back (typically an ACK/NAK built by pkg/hl7), or an
// error. A nil response with a nil error means "no response for this
// payload" (unusual but legal for fire-and-forget peers).
type Handler interface {
	Handle(ctx context.Context, sess *Session, payload []byte) ([]byte, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, sess *Session, payload []byte) ([]byte, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, sess *Session, payload []byte) ([]byte, error) {
	return f(ctx, sess, payload)
}

func (s *Session) setDeadline(d time.Duration) {
	if d <= 0 {
		return
	}
	_ = s.conn.SetDeadline(time.Now().Add(d))
}

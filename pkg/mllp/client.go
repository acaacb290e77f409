package mllp

import (
	"context"
	"net"
	"time"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

// ClientConfig configures a single outbound MLLP connection attempt.
type ClientConfig struct {
	Address        string
	Transport      Transport
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxPayloadSize int
}

const (
	defaultConnectTimeout = 5 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultReadTimeout    = 10 * time.Second
)

// Client connects to a destination, sends one framed payload, and reads
// exactly one response frame or times out. Each Send call opens and
// closes its own connection; pkg/sender is responsible for any
// connection reuse policy above this layer.
type Client struct {
	cfg ClientConfig
}

// NewClient fills zero-valued fields of cfg with the package defaults and
// returns a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Transport == nil {
		cfg.Transport = PlainTransport{}
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = DefaultMaxPayloadSize
	}
	return &Client{cfg: cfg}
}

// Send frames and writes payload, then waits for and returns the peer's
// response payload.
func (c *Client) Send(ctx context.Context, payload []byte) ([]byte, error) {
	const op = "mllp.Client.Send"

	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, err := c.cfg.Transport.Dial(connectCtx, c.cfg.Address)
	if err != nil {
		return nil, bridgeerr.New(bridgeerr.KindTransport, op, err).WithContext("address", c.cfg.Address)
	}
	defer conn.Close()

	return c.sendOn(conn, payload)
}

func (c *Client) sendOn(conn net.Conn, payload []byte) ([]byte, error) {
	const op = "mllp.Client.Send"

	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if _, err := conn.Write(Frame(payload)); err != nil {
		return nil, bridgeerr.New(bridgeerr.KindTransport, op, err).WithContext("phase", "write")
	}

	if c.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
	deframer := NewDeframer(conn, c.cfg.MaxPayloadSize)
	resp, err := deframer.Next()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, bridgeerr.New(bridgeerr.KindTimeout, op, err).WithContext("phase", "read")
		}
		return nil, bridgeerr.New(bridgeerr.KindTransport, op, err).WithContext("phase", "read")
	}
	return resp, nil
}

package mllp

import (
	"context"
	"crypto/tls"
	"net"
)

// Transport abstracts how a connection is dialed or listened on, so the
// core only uses a typed transport abstraction that may be plain or
// secured, and never imports certificate-loading machinery directly.
// Callers construct a Transport from their own TLS config and
// hand it to Client/Server.
type Transport interface {
	Dial(ctx context.Context, address string) (net.Conn, error)
	Listen(address string) (net.Listener, error)
}

// PlainTransport dials/listens with unencrypted TCP.
type PlainTransport struct {
	Dialer net.Dialer
}

// Dial implements Transport.
func (t PlainTransport) Dial(ctx context.Context, address string) (net.Conn, error) {
	return t.Dialer.DialContext(ctx, "tcp", address)
}

// Listen implements Transport.
func (t PlainTransport) Listen(address string) (net.Listener, error) {
	return net.Listen("tcp", address)
}

// TLSTransport dials/listens with TLS, using a caller-supplied *tls.Config
// (certificate loading is out of scope here).
type TLSTransport struct {
	Config *tls.Config
	Dialer net.Dialer
}

// Dial implements Transport.
func (t TLSTransport) Dial(ctx context.Context, address string) (net.Conn, error) {
	d := tls.Dialer{NetDialer: &t.Dialer, Config: t.Config}
	return d.DialContext(ctx, "tcp", address)
}

// Listen implements Transport.
func (t TLSTransport) Listen(address string) (net.Listener, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return tls.NewListener(l, t.Config), nil
}

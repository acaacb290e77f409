package mllp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/jupiter/pkg/bridgeerr"
)

// ServerConfig controls listener behavior. Zero values fall back to the
// package defaults.
type ServerConfig struct {
	Address         string
	Transport       Transport
	Handler         Handler
	IdleTimeout     time.Duration // per-session read deadline between frames
	MaxPayloadSize  int
	ShutdownGrace   time.Duration // how long Shutdown waits for sessions to drain
	ActiveSessions  func(delta int)
	FramingErrorLog func(sess *Session, err error)
}

const (
	defaultIdleTimeout   = 60 * time.Second
	defaultShutdownGrace = 10 * time.Second
)

// Server accepts MLLP connections and dispatches framed payloads to a
// Handler. The accept loop runs on its own goroutine, each accepted
// connection gets its own worker goroutine, and Shutdown stops accepting
// and waits a bounded grace period for in-flight sessions to finish; it
// does not close their connections.
type Server struct {
	cfg ServerConfig

	mu        sync.RWMutex
	isRunning bool
	listener  net.Listener

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewServer validates cfg and returns a Server ready to Serve.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Transport == nil {
		cfg.Transport = PlainTransport{}
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("mllp.NewServer: Handler must not be nil")
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = DefaultMaxPayloadSize
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = defaultShutdownGrace
	}
	return &Server{cfg: cfg, shutdownCh: make(chan struct{})}, nil
}

// Serve listens and runs the accept loop until ctx is canceled or Shutdown
// is called. After a Shutdown (including one triggered by ctx) it waits
// for accepted sessions to finish and returns nil; it returns a non-nil
// error if it is already serving, the listen fails, or Accept fails for
// any other reason.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("mllp.Server: already serving")
	}
	listener, err := s.cfg.Transport.Listen(s.cfg.Address)
	if err != nil {
		s.mu.Unlock()
		return bridgeerr.New(bridgeerr.KindFatalInit, "mllp.Server.Serve", err)
	}
	s.listener = listener
	s.isRunning = true
	s.mu.Unlock()

	slog.Info("mllp server listening", "address", s.cfg.Address)

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Shutdown(context.Background())
		case <-s.shutdownCh:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownCh:
				s.wg.Wait()
				return nil
			default:
				return bridgeerr.New(bridgeerr.KindTransport, "mllp.Server.Serve", err)
			}
		}
		s.wg.Add(1)
		if s.cfg.ActiveSessions != nil {
			s.cfg.ActiveSessions(1)
		}
		go s.handleConn(conn)
	}
}

// Shutdown stops accepting new connections and waits up to ShutdownGrace
// for in-flight sessions to finish, then returns regardless.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
		s.mu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.isRunning = false
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(s.cfg.ShutdownGrace):
		return fmt.Errorf("mllp.Server.Shutdown: grace period elapsed with sessions still active")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		_ = conn.Close()
		if s.cfg.ActiveSessions != nil {
			s.cfg.ActiveSessions(-1)
		}
	}()

	sess := &Session{ID: uuid.NewString(), RemoteAddr: conn.RemoteAddr().String(), conn: conn}
	deframer := NewDeframer(conn, s.cfg.MaxPayloadSize)

	for {
		select {
		case <-s.shutdownCh:
			return
		default:
		}

		sess.setDeadline(s.cfg.IdleTimeout)
		payload, err := deframer.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var be *bridgeerr.Error
			if errors.As(err, &be) {
				if s.cfg.FramingErrorLog != nil {
					s.cfg.FramingErrorLog(sess, be)
				} else {
					slog.Warn("mllp framing error", "session", sess.ID, "peer", sess.RemoteAddr, "error", be)
				}
			}
			return
		}

		resp, err := s.cfg.Handler.Handle(context.Background(), sess, payload)
		if err != nil {
			slog.Error("mllp handler error", "session", sess.ID, "error", err)
			continue
		}
		if resp == nil {
			continue
		}
		if _, err := conn.Write(Frame(resp)); err != nil {
			slog.Warn("mllp write error", "session", sess.ID, "error", err)
			return
		}
	}
}

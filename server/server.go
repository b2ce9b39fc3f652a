// Package server implements the heapd network service.
//
// A Server accepts one connection at a time and runs its session to
// completion before accepting the next one; further clients wait in the
// listen backlog. Each session reads '\n'-terminated request lines, hands
// them to a Dispatcher and writes exactly one reply per line. The registry is
// shared by all sessions and outlives them.
package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pior/heapd/internal/listener"
	"github.com/pior/heapd/registry"
	"github.com/pior/heapd/wire"
)

// ErrServerClosed is returned by Serve and ListenAndServe after Close or
// context cancellation.
var ErrServerClosed = errors.New("heapd: server closed")

const maxAcceptDelay = time.Second

// Server serves the allocation protocol.
type Server struct {
	cfg        Config
	log        *slog.Logger
	reg        *registry.Registry
	dispatcher *Dispatcher

	mu       sync.Mutex
	listener net.Listener
	active   net.Conn
	closed   bool
}

// New creates a server with a fresh registry.
func New(cfg Config) *Server {
	cfg = cfg.withDefaults()
	reg := registry.New(cfg.Registry)
	return &Server{
		cfg: cfg,
		log: cfg.Logger,
		reg: reg,
		dispatcher: NewDispatcher(reg, DispatchOptions{
			Base64Policy:  cfg.Base64Policy,
			StrictNumbers: cfg.StrictNumbers,
		}),
	}
}

// Registry returns the registry shared by all sessions.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

// Stats returns a snapshot of the session and command counters.
func (s *Server) Stats() Stats {
	return s.dispatcher.stats.snapshot()
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := listener.Listen(s.cfg.Addr, s.cfg.Backlog)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l and serves them one after the other until
// ctx is done or Close is called. l is closed on return.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()
	defer l.Close()

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	s.log.Info("listening", "addr", l.Addr().String(), "backlog", s.cfg.Backlog)

	var delay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.log.Warn("accept failed", "err", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.ServeConn(conn)
	}
}

// ServeConn runs one session on conn and closes it. It returns when the
// client sends EXIT, disconnects, or a read or write fails.
func (s *Server) ServeConn(conn net.Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.active = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active = nil
		s.mu.Unlock()
		conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	s.log.Info("client connected", "remote", remote)

	s.dispatcher.stats.recordSessionStart()
	err := s.session(conn)
	s.dispatcher.stats.recordSessionEnd()

	if err != nil && !s.isClosed() {
		s.log.Warn("session failed", "remote", remote, "err", err)
	}
	s.log.Info("client disconnected", "remote", remote)
}

func (s *Server) session(rw io.ReadWriter) error {
	r := bufio.NewReader(rw)
	w := bufio.NewWriter(rw)

	for {
		line, err := wire.ReadLine(r, s.cfg.MaxLineLength)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		resp, exit := s.dispatcher.Dispatch(line)
		if err := wire.WriteResponse(w, resp); err != nil {
			return err
		}
		if exit {
			return nil
		}
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the listener and ends the active session, if any.
// The registry keeps its allocations.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	if s.active != nil {
		s.active.Close()
	}
	return err
}

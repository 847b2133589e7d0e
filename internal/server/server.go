// Package server is a minimal HTTP/1.1 server whose connections are handled
// as jobs on a threadpool.Pool, one job per connection.
package server

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ygrebnov/threadpool"
)

// Options configures a Server. Zero values select defaults.
type Options struct {
	// SleepDelay is how long GET /sleep waits before answering.
	SleepDelay time.Duration

	// ReadTimeout bounds reading the request from a connection. 0 disables it.
	ReadTimeout time.Duration

	// MaxConnections makes Serve return after that many accepted connections.
	// 0 means unlimited.
	MaxConnections int

	// Gatherer backs GET /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Logger receives connection messages. Default: the global grip journaler.
	Logger grip.Journaler
}

// Server accepts connections and submits each one to a pool.
type Server struct {
	pool     *threadpool.Pool
	router   http.Handler
	log      grip.Journaler
	timeout  time.Duration
	maxConns int
	accepted atomic.Int64
}

// New builds a Server on top of pool. The server does not own the pool until
// Shutdown is called.
func New(pool *threadpool.Pool, opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = logging.MakeGrip(grip.GetSender())
	}
	return &Server{
		pool:     pool,
		router:   NewRouter(opts.SleepDelay, opts.Gatherer),
		log:      opts.Logger,
		timeout:  opts.ReadTimeout,
		maxConns: opts.MaxConnections,
	}
}

// Accepted returns the number of connections accepted so far.
func (s *Server) Accepted() int64 { return s.accepted.Load() }

// Serve accepts connections on ln until ctx is done, the connection limit is
// reached or the pool stops accepting jobs. It closes ln before returning.
// A nil error means Serve stopped on request.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()

	s.log.Info(message.Fields{
		"message":         "listening",
		"addr":            ln.Addr().String(),
		"max_connections": s.maxConns,
		"workers":         s.pool.Size(),
	})

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "accepting connection")
		}

		n := s.accepted.Add(1)
		if err := s.pool.Submit(func() { s.handleConn(conn) }); err != nil {
			_ = conn.Close()
			return errors.Wrapf(err, "submitting connection %d", n)
		}

		if s.maxConns > 0 && n >= int64(s.maxConns) {
			s.log.Info(message.Fields{
				"message":  "connection limit reached; no longer accepting",
				"accepted": n,
			})
			return nil
		}
	}
}

// Shutdown drains the pool: connections already accepted are still served.
func (s *Server) Shutdown() error {
	return errors.Wrap(s.pool.Close(), "shutting down pool")
}

// handleConn serves a single request and closes conn. It runs on a pool worker.
func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if s.timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.timeout))
	}

	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		s.log.Debug(message.WrapError(err, message.Fields{
			"message": "reading request",
			"remote":  conn.RemoteAddr().String(),
		}))
		s.write(conn, badRequest(), nil)
		return
	}

	rw := newResponseBuffer()
	s.router.ServeHTTP(rw, req)
	s.write(conn, rw, req)

	s.log.Debug(message.Fields{
		"message": "served request",
		"method":  req.Method,
		"path":    req.URL.Path,
		"status":  rw.status(),
	})
}

func (s *Server) write(conn net.Conn, rw *responseBuffer, req *http.Request) {
	if err := rw.response(req).Write(conn); err != nil {
		s.log.Debug(message.WrapError(err, message.Fields{
			"message": "writing response",
			"remote":  conn.RemoteAddr().String(),
		}))
	}
}

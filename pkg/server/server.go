// Package server owns the listening endpoint and the accept loop of a host.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

var (
	// ErrServerStopped is returned by Start once a server stopped or failed to bind.
	// A server is never restarted.
	ErrServerStopped  = errors.New("server stopped")
	ErrAlreadyStarted = errors.New("server already started")
)

// State is the lifecycle position of a Server.
type State int32

const (
	Created State = iota
	Listening
	FailedToStart
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Listening:
		return "listening"
	case FailedToStart:
		return "failed-to-start"
	case Stopped:
		return "stopped"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

const (
	MinPort = 1
	MaxPort = 65534
)

// ValidPort reports whether p may be used as a listening port.
func ValidPort(p int) bool { return p >= MinPort && p <= MaxPort }

type Config struct {
	Addr string
	// MaxWorkers bounds concurrently served connections. Zero is unbounded.
	MaxWorkers int
	// ShutdownGrace is how long Shutdown waits for in-flight requests. Zero closes
	// every connection at once.
	ShutdownGrace time.Duration
	// ReadHeaderTimeout limits how long a client may take to send headers. Zero
	// disables it.
	ReadHeaderTimeout time.Duration
}

// Server serves one immutable handler. Each accepted connection runs on its own
// goroutine; the accept loop re-arms before the connection is handled and keeps
// going whatever the outcome of a request.
type Server struct {
	cfg Config
	log *zap.Logger
	srv *http.Server

	base   context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	ln    net.Listener

	done     chan struct{}
	doneOnce sync.Once
}

func New(cfg Config, h http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		log:    log,
		base:   base,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.srv = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	return s
}

// Start binds the configured address and begins accepting in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Listening:
		return ErrAlreadyStarted
	case FailedToStart, Stopped:
		return ErrServerStopped
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		s.state = FailedToStart
		s.cancel()
		s.closeDone()
		s.log.Error("server failed to start", zap.String("addr", s.cfg.Addr), zap.Error(err))
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	if s.cfg.MaxWorkers > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxWorkers)
	}
	s.ln = ln
	s.state = Listening

	s.log.Info("server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("url", baseURL(ln.Addr())),
		zap.Int("maxWorkers", s.cfg.MaxWorkers),
	)
	go s.serve(ln)
	return nil
}

func (s *Server) serve(ln net.Listener) {
	defer s.closeDone()
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("accept loop stopped", zap.Error(err))
	}
}

// Shutdown stops accepting and cancels the context of every in-flight request.
// With a grace period it then waits for those requests, up to the grace or ctx,
// before closing what is left. Calling it again is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	prev := s.state
	if prev != Stopped {
		s.state = Stopped
	}
	s.mu.Unlock()

	switch prev {
	case Stopped:
		s.log.Info("server already stopped")
		return nil
	case Created, FailedToStart:
		s.log.Info("server was never started")
		s.cancel()
		s.closeDone()
		return nil
	}

	s.log.Info("server stopping", zap.Duration("grace", s.cfg.ShutdownGrace))
	s.cancel()

	if s.cfg.ShutdownGrace <= 0 {
		return s.srv.Close()
	}
	gctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(gctx); err != nil {
		s.log.Warn("grace period ended with requests in flight", zap.Error(err))
		return s.srv.Close()
	}
	return nil
}

func (s *Server) closeDone() { s.doneOnce.Do(func() { close(s.done) }) }

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the accept loop has exited, or at once for a server that
// never listened and was shut down.
func (s *Server) Done() <-chan struct{} { return s.done }

// Addr is the bound address while listening, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.cfg.Addr
}

// BaseURL is http://localhost:<port>/ for the bound port.
func (s *Server) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return baseURL(s.ln.Addr())
	}
	_, port, _ := net.SplitHostPort(s.cfg.Addr)
	return "http://localhost:" + port + "/"
}

func baseURL(a net.Addr) string {
	if tcp, ok := a.(*net.TCPAddr); ok {
		return "http://localhost:" + strconv.Itoa(tcp.Port) + "/"
	}
	_, port, _ := net.SplitHostPort(a.String())
	return "http://localhost:" + port + "/"
}

// JoinAddr formats host and port as a listen address.
func JoinAddr(host string, port int) string { return net.JoinHostPort(host, strconv.Itoa(port)) }

package ovium

import (
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jhunt/go-log"
)

// pollInterval bounds how often the accept loop wakes up to check for
// a shutdown signal when no connection is pending.
const pollInterval = 500 * time.Millisecond

// A Server binds one Unix socket and fans accepted connections out to
// Handlers, all inside a single outer scope (the sync.WaitGroup in
// Serve) that will not return until every in-flight handler has
// finished. Config is shared read-only by every Handler it spawns.
// Executor, when set, is threaded through to every Handler, letting
// tests stub out the SSH dial.
type Server struct {
	SocketPath string
	Config     *ServerConfig
	Executor   Executor

	listener *net.UnixListener
}

// Listen binds the Unix socket. Any stale socket file left behind by
// an unclean previous exit is removed first.
func (s *Server) Listen() error {
	if err := os.Remove(s.SocketPath); err != nil && !os.IsNotExist(err) {
		return &Error{Kind: ErrBind, Err: err}
	}

	addr, err := net.ResolveUnixAddr("unix", s.SocketPath)
	if err != nil {
		return &Error{Kind: ErrBind, Err: err}
	}

	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		return &Error{Kind: ErrBind, Err: err}
	}

	s.listener = l
	return nil
}

// Serve runs the accept loop until it receives SIGINT or SIGTERM, or
// until Accept fails for any reason other than its own poll deadline.
// On the way out, it waits for every handler it has spawned to finish
// (the outer scope's join) and removes the socket file, regardless of
// which path got it there.
func (s *Server) Serve() error {
	defer os.Remove(s.SocketPath)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	var serveErr error
	for {
		select {
		case sig := <-shutdown:
			log.Infof("[ovium] received %s; draining in-flight requests and shutting down", sig)
			return serveErr

		default:
		}

		s.listener.SetDeadline(time.Now().Add(pollInterval))
		conn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			serveErr = &Error{Kind: ErrIo, Err: err}
			return serveErr
		}

		inflight.Add(1)
		go func(c net.Conn) {
			defer inflight.Done()
			h := &Handler{Config: s.Config, Executor: s.Executor}
			if err := h.Handle(c); err != nil {
				log.Errorf("[ovium] %s", (&Error{Kind: ErrHandle, Err: err}).Error())
			}
		}(conn)
	}
}

// ListenAndServe is Listen followed by Serve, for callers that don't
// need to observe the bound listener in between.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

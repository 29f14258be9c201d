// Package metrics holds the collectors and the HTTP endpoint that serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultPath = "/metrics"

// Server serves the registered collectors at path and answers /healthz.
type Server struct {
	addr string
	path string

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	release  func() bool
}

// NewServer creates a metrics server. An empty path means DefaultPath.
func NewServer(addr, path string) *Server {
	if path == "" {
		path = DefaultPath
	}
	return &Server{addr: addr, path: path}
}

// Handler routes the scrape path and the health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// Listen binds the TCP socket so a busy port fails before anything is served.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address; the configured one until Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Start binds if needed and serves in the background. Cancelling ctx shuts
// the server down as Stop would.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.http != nil {
		s.mu.Unlock()
		return errors.New("metrics server already started")
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	s.http = srv
	ln := s.listener
	s.release = context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	s.mu.Unlock()

	slog.Info("serving metrics", "addr", ln.Addr().String(), "path", s.path)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down, or just releases the socket if it never served.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, ln, release := s.http, s.listener, s.release
	s.http, s.listener, s.release = nil, nil, nil
	s.mu.Unlock()

	if release != nil && !release() {
		// ctx was cancelled and the shutdown already ran.
		return nil
	}
	if srv == nil {
		if ln != nil {
			return ln.Close()
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	slog.Info("metrics server stopped")
	return nil
}

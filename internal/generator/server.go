package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

const DefaultPeriod = 30 * time.Second

// Config configures the generator server.
type Config struct {
	Listen string
	Period time.Duration
}

// Server accepts stream clients. Each client gets a periodic frame with ids
// cycling 1, 2, 3 and an immediate burst of all three whenever it sends the
// trigger bytes.
type Server struct {
	cfg      Config
	listener net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewServer creates a generator server.
func NewServer(cfg Config) *Server {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	return &Server{
		cfg:   cfg,
		conns: make(map[net.Conn]struct{}),
	}
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address; valid after Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Listen
	}
	return s.listener.Addr().String()
}

// Serve accepts clients until ctx is cancelled. It binds first if Listen
// was not called.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	slog.Info("generator listening", "address", s.Addr(), "period", s.cfg.Period)

	go s.acceptLoop(ctx)

	<-ctx.Done()
	slog.Info("generator stopping", "reason", ctx.Err())
	s.Stop()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("failed to accept connection", "error", err)
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	slog.Info("client connected", "remote", remote)

	var writeMu sync.Mutex
	write := func(b []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err := conn.Write(b)
		return err
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.periodic(connCtx, remote, write)

	buf := make([]byte, 1024)
	var pending []byte
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				pos := bytes.Index(pending, Trigger)
				if pos < 0 {
					break
				}
				pending = pending[pos+len(Trigger):]
				if err := write(Burst()); err != nil {
					slog.Warn("burst write failed", "remote", remote, "error", err)
					return
				}
				slog.Debug("trigger received, burst sent", "remote", remote)
			}
			// Keep only a possible trigger prefix.
			if keep := len(Trigger) - 1; len(pending) > keep {
				pending = pending[len(pending)-keep:]
			}
		}
		if err != nil {
			slog.Info("client disconnected", "remote", remote, "error", err)
			return
		}
	}
}

func (s *Server) periodic(ctx context.Context, remote string, write func([]byte) error) {
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()
	n := 1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := write(messageFrame(n)); err != nil {
				slog.Warn("periodic write failed", "remote", remote, "error", err)
				return
			}
			n = n%len(Messages) + 1
		}
	}
}

// Stop closes the listener and every client connection.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("generator stopped")
}

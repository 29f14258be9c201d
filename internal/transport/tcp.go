package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/metrics"
)

const (
	DefaultDialTimeout      = 5 * time.Second
	DefaultReconnectBackoff = 2 * time.Second
	DefaultSendQueue        = 1024
)

// TCPConfig configures a TCPClient.
type TCPConfig struct {
	Address          string
	DialTimeout      time.Duration
	Reconnect        bool
	ReconnectBackoff time.Duration
	ReadBuffer       int
	SendQueue        int
}

// TCPClient connects to a stream peer, reads fixed-size chunks from it and
// writes queued payloads back. With Reconnect set it redials after the
// backoff whenever the connection fails.
type TCPClient struct {
	cfg       TCPConfig
	sendq     chan []byte
	connected atomic.Bool
}

// NewTCPClient creates a client; zero fields take their defaults.
func NewTCPClient(cfg TCPConfig) *TCPClient {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = DefaultReconnectBackoff
	}
	if cfg.ReadBuffer <= 0 {
		cfg.ReadBuffer = DefaultReadBuffer
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = DefaultSendQueue
	}
	return &TCPClient{
		cfg:   cfg,
		sendq: make(chan []byte, cfg.SendQueue),
	}
}

func (c *TCPClient) Name() string {
	return "tcp"
}

// Address returns the configured peer address.
func (c *TCPClient) Address() string {
	return c.cfg.Address
}

// Connected reports whether a connection is currently established.
func (c *TCPClient) Connected() bool {
	return c.connected.Load()
}

// Send queues payload for writing. It fails fast with core.ErrNotConnected
// when there is no connection and blocks while the send queue is full.
func (c *TCPClient) Send(ctx context.Context, payload []byte) error {
	if !c.Connected() {
		return core.ErrNotConnected
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	select {
	case c.sendq <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run dials the peer and streams chunks into out until ctx is cancelled.
// Without Reconnect the first connection failure is returned.
func (c *TCPClient) Run(ctx context.Context, out chan<- []byte) error {
	first := true
	for {
		if !first {
			metrics.SourceReconnectsTotal.WithLabelValues(c.Name()).Inc()
		}
		first = false

		err := c.session(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !c.cfg.Reconnect {
			return err
		}
		slog.Warn("connection lost, reconnecting",
			"address", c.cfg.Address, "backoff", c.cfg.ReconnectBackoff, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectBackoff):
		}
	}
}

// session runs one connection until it fails or ctx is cancelled.
func (c *TCPClient) session(ctx context.Context, out chan<- []byte) error {
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.Address, err)
	}
	slog.Info("connected", "address", c.cfg.Address, "local", conn.LocalAddr().String())

	c.connected.Store(true)

	sessCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(sessCtx, conn)
	}()
	// Unblock the read when the caller cancels.
	stop := context.AfterFunc(sessCtx, func() { conn.Close() })

	err = c.readLoop(sessCtx, conn, out)

	c.connected.Store(false)
	cancel()
	stop()
	conn.Close()
	wg.Wait()

	slog.Info("disconnected", "address", c.cfg.Address)
	return err
}

func (c *TCPClient) readLoop(ctx context.Context, conn net.Conn, out chan<- []byte) error {
	buf := make([]byte, c.cfg.ReadBuffer)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			metrics.SourceBytesTotal.WithLabelValues(c.Name()).Add(float64(n))
			metrics.SourceChunksTotal.WithLabelValues(c.Name()).Inc()
			if err := emit(ctx, out, chunk); err != nil {
				return err
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("peer closed connection: %w", err)
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}

func (c *TCPClient) writeLoop(ctx context.Context, conn net.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-c.sendq:
			if _, err := conn.Write(payload); err != nil {
				slog.Error("write failed", "address", c.cfg.Address, "error", err)
				conn.Close()
				return
			}
			metrics.SentBytesTotal.Add(float64(len(payload)))
			slog.Debug("payload sent", "len", len(payload))
		}
	}
}

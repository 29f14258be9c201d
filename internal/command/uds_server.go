package command

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/metrics"
)

// SocketAlive reports whether something accepts connections on socketPath.
func SocketAlive(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// maxMessageSize bounds one JSON-RPC line in either direction.
const maxMessageSize = 16 << 20

// UDSServer serves JSON-RPC 2.0 over a Unix domain socket, one request (or
// batch) per line.
type UDSServer struct {
	socketPath string
	handler    *CommandHandler
	listener   net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewUDSServer creates a new UDS server.
func NewUDSServer(socketPath string, handler *CommandHandler) *UDSServer {
	return &UDSServer{
		socketPath: socketPath,
		handler:    handler,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Listen binds the socket so bind errors surface before serving starts.
func (s *UDSServer) Listen() error {
	if s.listener != nil {
		return nil
	}
	if SocketAlive(s.socketPath) {
		return fmt.Errorf("%w: %s is answering", core.ErrDaemonRunning, s.socketPath)
	}
	// Nobody answers, so any socket file is left over from a crash.
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}
	s.listener = ln
	return nil
}

// Start binds if needed and serves until ctx is cancelled.
func (s *UDSServer) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	slog.Info("uds server started", "socket", s.socketPath)

	go s.acceptLoop(ctx)

	<-ctx.Done()
	slog.Info("uds server stopping", "reason", ctx.Err())
	return s.Stop()
}

func (s *UDSServer) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isStopped() {
				return
			}
			slog.Error("failed to accept connection", "error", err)
			time.Sleep(50 * time.Millisecond)
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

		go s.serveConn(ctx, conn)
	}
}

func (s *UDSServer) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// serveConn answers requests until the peer hangs up. Notifications (no id)
// are executed without a reply.
func (s *UDSServer) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		reply, ok := s.process(ctx, line)
		if !ok {
			continue
		}
		w.Write(reply)
		w.WriteByte('\n')
		if err := w.Flush(); err != nil {
			slog.Error("failed to send response", "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !s.isStopped() {
		slog.Error("connection error", "error", err)
	}
}

// process handles one line, a single request or a batch array. The bool is
// false when nothing must be written back.
func (s *UDSServer) process(ctx context.Context, line []byte) ([]byte, bool) {
	if line[0] != '[' {
		resp, reply := s.dispatch(ctx, line)
		if !reply {
			return nil, false
		}
		return mustMarshal(resp), true
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(line, &batch); err != nil {
		return mustMarshal(parseError(err)), true
	}
	if len(batch) == 0 {
		return mustMarshal(JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &ErrorInfo{Code: ErrCodeInvalidRequest, Message: "invalid request: empty batch"},
		}), true
	}

	out := make([]JSONRPCResponse, 0, len(batch))
	for _, raw := range batch {
		if resp, reply := s.dispatch(ctx, raw); reply {
			out = append(out, resp)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return mustMarshal(out), true
}

func (s *UDSServer) dispatch(ctx context.Context, raw []byte) (JSONRPCResponse, bool) {
	var req JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("failed to parse request", "error", err)
		return parseError(err), true
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &ErrorInfo{Code: ErrCodeInvalidRequest, Message: "invalid request: jsonrpc must be \"2.0\" and method set"},
		}, true
	}

	started := time.Now()
	resp := s.handler.Handle(ctx, Command{
		Method: req.Method,
		Params: req.Params,
		ID:     idText(req.ID),
	})
	elapsed := time.Since(started)

	outcome := "ok"
	if resp.Error != nil {
		outcome = strconv.Itoa(resp.Error.Code)
	}
	metrics.ControlRequestsTotal.WithLabelValues(req.Method, outcome).Inc()
	metrics.ControlRequestDuration.WithLabelValues(req.Method).Observe(elapsed.Seconds())
	slog.Debug("control request", "method", req.Method, "outcome", outcome, "elapsed", elapsed)

	if req.ID == nil {
		return JSONRPCResponse{}, false
	}
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  resp.Result,
		Error:   resp.Error,
	}, true
}

func parseError(err error) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		Error:   &ErrorInfo{Code: ErrCodeParseError, Message: fmt.Sprintf("parse error: %v", err)},
	}
}

func idText(id interface{}) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%v", id)
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &ErrorInfo{Code: ErrCodeInternalError, Message: fmt.Sprintf("encode response: %v", err)},
		})
	}
	return data
}

// Stop closes the listener and every open connection, then removes the socket.
func (s *UDSServer) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	owned := s.listener != nil
	if owned {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	// A server that never bound must not unlink another process's socket.
	if !owned {
		return nil
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove socket: %w", err)
	}

	slog.Info("uds server stopped")
	return nil
}

// JSONRPCRequest represents a JSON-RPC 2.0 request. A nil ID marks a notification.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

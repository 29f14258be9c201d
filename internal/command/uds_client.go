package command

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/monitor"
	"firestige.xyz/bytescope/internal/rules"
)

// UDSClient is a JSON-RPC client over Unix Domain Socket.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
}

// NewUDSClient creates a new UDS client.
func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &UDSClient{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// Call sends a command and waits for response.
func (c *UDSClient) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w: %s", core.ErrDaemonNotRunning, c.socketPath)
		}
		return nil, fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsJSON = data
	}

	reqID := fmt.Sprintf("req-%d", time.Now().UnixNano())
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsJSON,
		ID:      reqID,
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return nil, fmt.Errorf("connection closed without response")
	}

	var jsonrpcResp JSONRPCResponse
	if err := json.Unmarshal(scanner.Bytes(), &jsonrpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	respIDStr := fmt.Sprintf("%v", jsonrpcResp.ID)
	if respIDStr != reqID {
		return nil, fmt.Errorf("response ID mismatch: expected %v, got %v", reqID, respIDStr)
	}

	return &Response{
		ID:     respIDStr,
		Result: jsonrpcResp.Result,
		Error:  jsonrpcResp.Error,
	}, nil
}

// call runs method and decodes the result into out (which may be nil).
// A JSON-RPC error comes back as *ErrorInfo.
func (c *UDSClient) call(ctx context.Context, method string, params, out interface{}) error {
	resp, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func (c *UDSClient) Status(ctx context.Context) (StatusResult, error) {
	var st StatusResult
	err := c.call(ctx, MethodStatus, nil, &st)
	return st, err
}

func (c *UDSClient) Messages(ctx context.Context, limit int) ([]monitor.Report, error) {
	var res MessagesListResult
	err := c.call(ctx, MethodMessagesList, MessagesListParams{Limit: limit}, &res)
	return res.Messages, err
}

func (c *UDSClient) Clear(ctx context.Context) error {
	return c.call(ctx, MethodMessagesClear, nil, nil)
}

func (c *UDSClient) Framing(ctx context.Context) (FramingResult, error) {
	var res FramingResult
	err := c.call(ctx, MethodFramingGet, nil, &res)
	return res, err
}

func (c *UDSClient) SetFraming(ctx context.Context, params FramingParams) (FramingResult, error) {
	var res FramingResult
	err := c.call(ctx, MethodFramingSet, params, &res)
	return res, err
}

func (c *UDSClient) Send(ctx context.Context, hexText string) error {
	return c.call(ctx, MethodSend, SendParams{Hex: hexText}, nil)
}

func (c *UDSClient) AddWatch(ctx context.Context, spec rules.WatchSpec) (int, error) {
	return c.indexCall(ctx, MethodWatchAdd, spec)
}

func (c *UDSClient) UpdateWatch(ctx context.Context, index int, spec rules.WatchSpec) error {
	_, err := c.indexCall(ctx, MethodWatchUpdate, RuleUpdateParams[rules.WatchSpec]{Index: index, Rule: spec})
	return err
}

func (c *UDSClient) ListWatches(ctx context.Context) ([]rules.WatchSpec, error) {
	var res RuleList[rules.WatchSpec]
	err := c.call(ctx, MethodWatchList, nil, &res)
	return res.Rules, err
}

func (c *UDSClient) AddLabel(ctx context.Context, spec rules.LabelSpec) (int, error) {
	return c.indexCall(ctx, MethodLabelAdd, spec)
}

func (c *UDSClient) UpdateLabel(ctx context.Context, index int, spec rules.LabelSpec) error {
	_, err := c.indexCall(ctx, MethodLabelUpdate, RuleUpdateParams[rules.LabelSpec]{Index: index, Rule: spec})
	return err
}

func (c *UDSClient) ListLabels(ctx context.Context) ([]rules.LabelSpec, error) {
	var res RuleList[rules.LabelSpec]
	err := c.call(ctx, MethodLabelList, nil, &res)
	return res.Rules, err
}

func (c *UDSClient) AddSuspect(ctx context.Context, spec rules.SuspectSpec) (int, error) {
	return c.indexCall(ctx, MethodSuspectAdd, spec)
}

func (c *UDSClient) UpdateSuspect(ctx context.Context, index int, spec rules.SuspectSpec) error {
	_, err := c.indexCall(ctx, MethodSuspectUpdate, RuleUpdateParams[rules.SuspectSpec]{Index: index, Rule: spec})
	return err
}

func (c *UDSClient) ListSuspects(ctx context.Context) ([]rules.SuspectSpec, error) {
	var res RuleList[rules.SuspectSpec]
	err := c.call(ctx, MethodSuspectList, nil, &res)
	return res.Rules, err
}

// DeleteRule removes the rule of kind at index.
func (c *UDSClient) DeleteRule(ctx context.Context, kind rules.Kind, index int) error {
	_, err := c.indexCall(ctx, string(kind)+"_delete", RuleIndexParams{Index: index})
	return err
}

func (c *UDSClient) Shutdown(ctx context.Context) error {
	return c.call(ctx, MethodDaemonShutdown, nil, nil)
}

// Ping checks that the daemon answers.
func (c *UDSClient) Ping(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}

func (c *UDSClient) indexCall(ctx context.Context, method string, params interface{}) (int, error) {
	var res RuleIndexParams
	if err := c.call(ctx, method, params, &res); err != nil {
		return 0, err
	}
	return res.Index, nil
}

// Package command implements the daemon's control plane.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/monitor"
	"firestige.xyz/bytescope/internal/rules"
	"firestige.xyz/bytescope/internal/transport"
)

// Version is reported by the status command.
const Version = "0.1.0"

// Method names.
const (
	MethodStatus         = "status"
	MethodMessagesList   = "messages_list"
	MethodMessagesClear  = "messages_clear"
	MethodFramingGet     = "framing_get"
	MethodFramingSet     = "framing_set"
	MethodSend           = "send"
	MethodWatchAdd       = "watch_add"
	MethodWatchUpdate    = "watch_update"
	MethodWatchDelete    = "watch_delete"
	MethodWatchList      = "watch_list"
	MethodLabelAdd       = "label_add"
	MethodLabelUpdate    = "label_update"
	MethodLabelDelete    = "label_delete"
	MethodLabelList      = "label_list"
	MethodSuspectAdd     = "suspect_add"
	MethodSuspectUpdate  = "suspect_update"
	MethodSuspectDelete  = "suspect_delete"
	MethodSuspectList    = "suspect_list"
	MethodDaemonShutdown = "daemon_shutdown"
)

// Engine is the monitor surface the control plane drives.
type Engine interface {
	Status() monitor.Status
	Reports(limit int) []monitor.Report
	Clear()
	SetDelimiters(start, end string) error
	Delimiters() (start, end string)
}

// CommandHandler handles control plane commands.
type CommandHandler struct {
	engine       Engine
	rules        *rules.Store
	sender       transport.Sender // nil for sources that cannot write
	source       string
	shutdownFunc func() // Called by daemon_shutdown to trigger graceful stop
	startTime    int64  // Unix timestamp of daemon start for uptime calc
}

// NewCommandHandler creates a new command handler. sender may be nil.
func NewCommandHandler(engine Engine, store *rules.Store, source string, sender transport.Sender) *CommandHandler {
	return &CommandHandler{
		engine:    engine,
		rules:     store,
		sender:    sender,
		source:    source,
		startTime: time.Now().Unix(),
	}
}

// SetShutdownFunc sets the callback invoked by the daemon_shutdown command.
func (h *CommandHandler) SetShutdownFunc(fn func()) {
	h.shutdownFunc = fn
}

// Command represents a control plane command.
type Command struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     string          `json:"id"`
}

// Response represents a command response.
type Response struct {
	ID     string      `json:"id"`               // matches request ID
	Result interface{} `json:"result,omitempty"` // success result
	Error  *ErrorInfo  `json:"error,omitempty"`  // error info if failed
}

// Decode re-decodes the loosely typed result into v.
func (r Response) Decode(v any) error {
	if r.Error != nil {
		return r.Error
	}
	data, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("re-encode result: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorInfo represents an error in the response.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal error
)

// Handle processes a command and returns a response.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Response {
	slog.Debug("handling command", "method", cmd.Method, "id", cmd.ID)

	switch cmd.Method {
	case MethodStatus:
		return h.handleStatus(cmd)
	case MethodMessagesList:
		return h.handleMessagesList(cmd)
	case MethodMessagesClear:
		h.engine.Clear()
		slog.Info("messages cleared")
		return result(cmd, map[string]interface{}{"status": "cleared"})
	case MethodFramingGet:
		return h.handleFramingGet(cmd)
	case MethodFramingSet:
		return h.handleFramingSet(cmd)
	case MethodSend:
		return h.handleSend(ctx, cmd)

	case MethodWatchAdd:
		return handleAdd[rules.WatchSpec](cmd, rules.KindWatch, h.rules.AddWatch)
	case MethodWatchUpdate:
		return handleUpdate[rules.WatchSpec](cmd, rules.KindWatch, h.rules.UpdateWatch)
	case MethodWatchDelete:
		return handleDelete(cmd, rules.KindWatch, h.rules.DeleteWatch)
	case MethodWatchList:
		return result(cmd, RuleList[rules.WatchSpec]{Rules: mapSpecs(h.rules.Snapshot().Watches, rules.WatchSpecOf)})

	case MethodLabelAdd:
		return handleAdd[rules.LabelSpec](cmd, rules.KindLabel, h.rules.AddLabel)
	case MethodLabelUpdate:
		return handleUpdate[rules.LabelSpec](cmd, rules.KindLabel, h.rules.UpdateLabel)
	case MethodLabelDelete:
		return handleDelete(cmd, rules.KindLabel, h.rules.DeleteLabel)
	case MethodLabelList:
		return result(cmd, RuleList[rules.LabelSpec]{Rules: mapSpecs(h.rules.Snapshot().Labels, rules.LabelSpecOf)})

	case MethodSuspectAdd:
		return handleAdd[rules.SuspectSpec](cmd, rules.KindSuspect, h.rules.AddSuspect)
	case MethodSuspectUpdate:
		return handleUpdate[rules.SuspectSpec](cmd, rules.KindSuspect, h.rules.UpdateSuspect)
	case MethodSuspectDelete:
		return handleDelete(cmd, rules.KindSuspect, h.rules.DeleteSuspect)
	case MethodSuspectList:
		return result(cmd, RuleList[rules.SuspectSpec]{Rules: mapSpecs(h.rules.Snapshot().Suspects, rules.SuspectSpecOf)})

	case MethodDaemonShutdown:
		return h.handleDaemonShutdown(cmd)
	default:
		return errorResponse(cmd, ErrCodeMethodNotFound, fmt.Sprintf("method %q not found", cmd.Method))
	}
}

func result(cmd Command, v interface{}) Response {
	return Response{ID: cmd.ID, Result: v}
}

func errorResponse(cmd Command, code int, msg string) Response {
	return Response{ID: cmd.ID, Error: &ErrorInfo{Code: code, Message: msg}}
}

// failure maps operation errors onto JSON-RPC codes: anything the operator
// typed wrong is InvalidParams, the rest is InternalError.
func failure(cmd Command, op string, err error) Response {
	code := ErrCodeInternalError
	switch {
	case errors.Is(err, core.ErrInvalidHexToken),
		errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidRule),
		errors.Is(err, core.ErrRuleNotFound):
		code = ErrCodeInvalidParams
	}
	return errorResponse(cmd, code, fmt.Sprintf("%s: %v", op, err))
}

func decodeParams(cmd Command, v interface{}) *Response {
	if len(cmd.Params) == 0 {
		resp := errorResponse(cmd, ErrCodeInvalidParams, "params required")
		return &resp
	}
	if err := json.Unmarshal(cmd.Params, v); err != nil {
		resp := errorResponse(cmd, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
		return &resp
	}
	return nil
}

// StatusResult is the result of the status command.
type StatusResult struct {
	Version   string `json:"version"`
	UptimeSec int64  `json:"uptime_sec"`
	Source    string `json:"source"`
	Connected bool   `json:"connected"`
	monitor.Status
}

func (h *CommandHandler) handleStatus(cmd Command) Response {
	st := StatusResult{
		Version:   Version,
		UptimeSec: time.Now().Unix() - h.startTime,
		Source:    h.source,
		Status:    h.engine.Status(),
	}
	if h.sender != nil {
		st.Connected = h.sender.Connected()
	}
	return result(cmd, st)
}

// MessagesListParams represents parameters for messages_list.
type MessagesListParams struct {
	Limit int `json:"limit,omitempty"` // newest N, 0 for all
}

// MessagesListResult is the result of messages_list.
type MessagesListResult struct {
	Messages []monitor.Report `json:"messages"`
	Count    int              `json:"count"`
}

func (h *CommandHandler) handleMessagesList(cmd Command) Response {
	var params MessagesListParams
	if len(cmd.Params) > 0 {
		if resp := decodeParams(cmd, &params); resp != nil {
			return *resp
		}
	}
	if params.Limit < 0 {
		return errorResponse(cmd, ErrCodeInvalidParams, "limit must not be negative")
	}
	reports := h.engine.Reports(params.Limit)
	return result(cmd, MessagesListResult{Messages: reports, Count: len(reports)})
}

// FramingParams carries delimiter hex text. Nil fields keep their value.
type FramingParams struct {
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
}

// FramingResult is the current delimiter pair.
type FramingResult struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (h *CommandHandler) handleFramingGet(cmd Command) Response {
	start, end := h.engine.Delimiters()
	return result(cmd, FramingResult{Start: start, End: end})
}

func (h *CommandHandler) handleFramingSet(cmd Command) Response {
	var params FramingParams
	if resp := decodeParams(cmd, &params); resp != nil {
		return *resp
	}
	start, end := h.engine.Delimiters()
	if params.Start != nil {
		start = *params.Start
	}
	if params.End != nil {
		end = *params.End
	}
	if err := h.engine.SetDelimiters(start, end); err != nil {
		return failure(cmd, "set delimiters", err)
	}
	return result(cmd, FramingResult{Start: start, End: end})
}

// SendParams carries an outgoing payload as hex text.
type SendParams struct {
	Hex string `json:"hex"`
}

func (h *CommandHandler) handleSend(ctx context.Context, cmd Command) Response {
	var params SendParams
	if resp := decodeParams(cmd, &params); resp != nil {
		return *resp
	}
	payload, err := core.DecodeHex(params.Hex)
	if err != nil {
		return failure(cmd, "decode payload", err)
	}
	if len(payload) == 0 {
		return errorResponse(cmd, ErrCodeInvalidParams, "payload is empty")
	}
	if h.sender == nil {
		return errorResponse(cmd, ErrCodeInternalError, fmt.Sprintf("source %q does not accept payloads", h.source))
	}
	if err := h.sender.Send(ctx, payload); err != nil {
		return failure(cmd, "send", err)
	}
	slog.Info("payload queued", "len", len(payload))
	return result(cmd, map[string]interface{}{"status": "queued", "bytes": len(payload)})
}

// RuleUpdateParams replaces the rule at Index.
type RuleUpdateParams[S any] struct {
	Index int `json:"index"`
	Rule  S   `json:"rule"`
}

// RuleIndexParams addresses one rule.
type RuleIndexParams struct {
	Index int `json:"index"`
}

// RuleList is the result of the *_list commands, in declaration order.
type RuleList[S any] struct {
	Rules []S `json:"rules"`
}

type builder[R any] interface {
	Build() (R, error)
}

func handleAdd[S builder[R], R any](cmd Command, kind rules.Kind, add func(R) (int, error)) Response {
	var spec S
	if resp := decodeParams(cmd, &spec); resp != nil {
		return *resp
	}
	rule, err := spec.Build()
	if err != nil {
		return failure(cmd, fmt.Sprintf("add %s", kind), err)
	}
	idx, err := add(rule)
	if err != nil {
		return failure(cmd, fmt.Sprintf("add %s", kind), err)
	}
	slog.Info("rule added", "kind", kind, "index", idx)
	return result(cmd, RuleIndexParams{Index: idx})
}

func handleUpdate[S builder[R], R any](cmd Command, kind rules.Kind, update func(int, R) error) Response {
	var params RuleUpdateParams[S]
	if resp := decodeParams(cmd, &params); resp != nil {
		return *resp
	}
	rule, err := params.Rule.Build()
	if err != nil {
		return failure(cmd, fmt.Sprintf("update %s", kind), err)
	}
	if err := update(params.Index, rule); err != nil {
		return failure(cmd, fmt.Sprintf("update %s", kind), err)
	}
	slog.Info("rule updated", "kind", kind, "index", params.Index)
	return result(cmd, RuleIndexParams{Index: params.Index})
}

func handleDelete(cmd Command, kind rules.Kind, del func(int) error) Response {
	var params RuleIndexParams
	if resp := decodeParams(cmd, &params); resp != nil {
		return *resp
	}
	if err := del(params.Index); err != nil {
		return failure(cmd, fmt.Sprintf("delete %s", kind), err)
	}
	slog.Info("rule deleted", "kind", kind, "index", params.Index)
	return result(cmd, RuleIndexParams{Index: params.Index})
}

func mapSpecs[R, S any](in []R, f func(R) S) []S {
	out := make([]S, 0, len(in))
	for _, r := range in {
		out = append(out, f(r))
	}
	return out
}

// handleDaemonShutdown triggers graceful daemon shutdown via the registered callback.
func (h *CommandHandler) handleDaemonShutdown(cmd Command) Response {
	if h.shutdownFunc == nil {
		return errorResponse(cmd, ErrCodeInternalError, "shutdown handler not registered")
	}

	slog.Info("daemon_shutdown command received, initiating graceful shutdown")
	go h.shutdownFunc() // Non-blocking: let the response be sent first

	return result(cmd, map[string]interface{}{"status": "shutting_down"})
}

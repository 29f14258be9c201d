package cmd

import (
	"context"
	"time"

	"firestige.xyz/bytescope/internal/command"
	"firestige.xyz/bytescope/internal/monitor"
	"firestige.xyz/bytescope/internal/rules"
)

const clientTimeout = 10 * time.Second

// Controller is the daemon control surface the commands use.
type Controller interface {
	Status(ctx context.Context) (command.StatusResult, error)
	Messages(ctx context.Context, limit int) ([]monitor.Report, error)
	Clear(ctx context.Context) error
	Framing(ctx context.Context) (command.FramingResult, error)
	SetFraming(ctx context.Context, params command.FramingParams) (command.FramingResult, error)
	Send(ctx context.Context, hexText string) error

	AddWatch(ctx context.Context, spec rules.WatchSpec) (int, error)
	UpdateWatch(ctx context.Context, index int, spec rules.WatchSpec) error
	ListWatches(ctx context.Context) ([]rules.WatchSpec, error)
	AddLabel(ctx context.Context, spec rules.LabelSpec) (int, error)
	UpdateLabel(ctx context.Context, index int, spec rules.LabelSpec) error
	ListLabels(ctx context.Context) ([]rules.LabelSpec, error)
	AddSuspect(ctx context.Context, spec rules.SuspectSpec) (int, error)
	UpdateSuspect(ctx context.Context, index int, spec rules.SuspectSpec) error
	ListSuspects(ctx context.Context) ([]rules.SuspectSpec, error)
	DeleteRule(ctx context.Context, kind rules.Kind, index int) error

	Shutdown(ctx context.Context) error
}

// newController builds the client for the resolved socket. Tests swap it for a mock.
var newController = func() Controller {
	return command.NewUDSClient(controlSocket(), clientTimeout)
}

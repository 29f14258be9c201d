package cmd

import (
	"context"

	"github.com/stretchr/testify/mock"

	"firestige.xyz/bytescope/internal/command"
	"firestige.xyz/bytescope/internal/monitor"
	"firestige.xyz/bytescope/internal/rules"
)

// MockController implements Controller
type MockController struct {
	mock.Mock
}

func (m *MockController) Status(ctx context.Context) (command.StatusResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(command.StatusResult), args.Error(1)
}

func (m *MockController) Messages(ctx context.Context, limit int) ([]monitor.Report, error) {
	args := m.Called(ctx, limit)
	reports, _ := args.Get(0).([]monitor.Report)
	return reports, args.Error(1)
}

func (m *MockController) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockController) Framing(ctx context.Context) (command.FramingResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(command.FramingResult), args.Error(1)
}

func (m *MockController) SetFraming(ctx context.Context, params command.FramingParams) (command.FramingResult, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(command.FramingResult), args.Error(1)
}

func (m *MockController) Send(ctx context.Context, hexText string) error {
	return m.Called(ctx, hexText).Error(0)
}

func (m *MockController) AddWatch(ctx context.Context, spec rules.WatchSpec) (int, error) {
	args := m.Called(ctx, spec)
	return args.Int(0), args.Error(1)
}

func (m *MockController) UpdateWatch(ctx context.Context, index int, spec rules.WatchSpec) error {
	return m.Called(ctx, index, spec).Error(0)
}

func (m *MockController) ListWatches(ctx context.Context) ([]rules.WatchSpec, error) {
	args := m.Called(ctx)
	specs, _ := args.Get(0).([]rules.WatchSpec)
	return specs, args.Error(1)
}

func (m *MockController) AddLabel(ctx context.Context, spec rules.LabelSpec) (int, error) {
	args := m.Called(ctx, spec)
	return args.Int(0), args.Error(1)
}

func (m *MockController) UpdateLabel(ctx context.Context, index int, spec rules.LabelSpec) error {
	return m.Called(ctx, index, spec).Error(0)
}

func (m *MockController) ListLabels(ctx context.Context) ([]rules.LabelSpec, error) {
	args := m.Called(ctx)
	specs, _ := args.Get(0).([]rules.LabelSpec)
	return specs, args.Error(1)
}

func (m *MockController) AddSuspect(ctx context.Context, spec rules.SuspectSpec) (int, error) {
	args := m.Called(ctx, spec)
	return args.Int(0), args.Error(1)
}

func (m *MockController) UpdateSuspect(ctx context.Context, index int, spec rules.SuspectSpec) error {
	return m.Called(ctx, index, spec).Error(0)
}

func (m *MockController) ListSuspects(ctx context.Context) ([]rules.SuspectSpec, error) {
	args := m.Called(ctx)
	specs, _ := args.Get(0).([]rules.SuspectSpec)
	return specs, args.Error(1)
}

func (m *MockController) DeleteRule(ctx context.Context, kind rules.Kind, index int) error {
	return m.Called(ctx, kind, index).Error(0)
}

func (m *MockController) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// useMock routes newController to m for the duration of the test.
func useMock(t interface{ Cleanup(func()) }, m *MockController) {
	prev := newController
	newController = func() Controller { return m }
	t.Cleanup(func() { newController = prev })
}

// Package sink publishes message reports outside the daemon.
package sink

import (
	"context"
	"log/slog"

	"firestige.xyz/bytescope/internal/monitor"
)

// LogSink writes one structured record per message and one per warning.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log sink; a nil logger means slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Publish(ctx context.Context, reports []monitor.Report) error {
	for _, r := range reports {
		s.logger.InfoContext(ctx, "message",
			"seq", r.Seq,
			"title", r.Title,
			"len", r.Length,
			"hex", r.Hex,
			"warnings", len(r.Warnings),
		)
		for _, w := range r.Warnings {
			s.logger.Log(ctx, warningLevel(w.Severity.String()), w.String(),
				"seq", r.Seq,
				"rule", w.Rule,
			)
		}
	}
	return nil
}

func warningLevel(severity string) slog.Level {
	switch severity {
	case "critical":
		return slog.LevelError
	case "warning":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Package log initialises the process-wide slog logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/bytescope/internal/config"
)

var (
	mu       sync.Mutex
	rotating *lumberjack.Logger
)

// Init initializes the global logger based on configuration.
// stdout is always an output; a rotating file is added when enabled.
func Init(cfg config.LogConfig) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	writers := []io.Writer{os.Stdout}

	var file *lumberjack.Logger
	if cfg.Outputs.File.Enabled {
		file, err = createFileWriter(cfg.Outputs.File)
		if err != nil {
			return fmt.Errorf("failed to create file output: %w", err)
		}
		writers = append(writers, file)
	}

	handler, err := newHandler(io.MultiWriter(writers...), cfg.Format, level)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return err
	}

	mu.Lock()
	prev := rotating
	rotating = file
	mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// Close releases the log file, if any. Records logged afterwards still reach
// stdout and reopen the file on demand.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotating == nil {
		return nil
	}
	err := rotating.Close()
	rotating = nil
	return err
}

func newHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text", "":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s (must be json or text)", format)
	}
}

// parseLevel converts string level to slog.Level.
func parseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level: %s", levelStr)
	}
}

// createFileWriter creates a lumberjack file writer for log rotation.
func createFileWriter(fc config.FileOutputConfig) (*lumberjack.Logger, error) {
	if fc.Path == "" {
		return nil, fmt.Errorf("file output requires 'path' field")
	}
	return &lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    fc.Rotation.MaxSizeMB,
		MaxBackups: fc.Rotation.MaxBackups,
		MaxAge:     fc.Rotation.MaxAgeDays,
		Compress:   fc.Rotation.Compress,
	}, nil
}

// Package logger provides the process-wide structured logger for ipoetl.
// Context-aware calls carry the run id and pipeline stage attached with
// WithRun and WithStage.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex
)

func init() {
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Options configures the logger.
type Options struct {
	Debug  bool         // Enable debug level logging
	Quiet  bool         // Only show errors
	JSON   bool         // Output as JSON
	Output io.Writer    // Output destination (default: stderr)
	Logger *slog.Logger // Custom logger (overrides all other options)
}

// Init replaces the process logger.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if opts.Logger != nil {
		defaultLogger = opts.Logger
		return
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	if opts.Quiet {
		level = slog.LevelError
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}
	defaultLogger = slog.New(handler)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

type ctxKey int

const (
	runKey ctxKey = iota
	stageKey
)

// NewRunID returns a fresh identifier for one pipeline invocation.
func NewRunID() string {
	return uuid.NewString()
}

// WithRun tags ctx with a run id.
func WithRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runKey, runID)
}

// RunID returns the run id carried by ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runKey).(string)
	return id
}

// WithStage tags ctx with the pipeline stage being executed.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// FromContext returns the process logger with the run and stage attributes
// carried by ctx.
func FromContext(ctx context.Context) *slog.Logger {
	l := current()
	if id := RunID(ctx); id != "" {
		l = l.With("run_id", id)
	}
	if stage, ok := ctx.Value(stageKey).(string); ok && stage != "" {
		l = l.With("stage", stage)
	}
	return l
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs an info message.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs a warning message.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs an error message.
func Error(msg string, args ...any) { current().Error(msg, args...) }

// DebugContext logs a debug message with the attributes carried by ctx.
func DebugContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).DebugContext(ctx, msg, args...)
}

// InfoContext logs an info message with the attributes carried by ctx.
func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).InfoContext(ctx, msg, args...)
}

// WarnContext logs a warning with the attributes carried by ctx.
func WarnContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).WarnContext(ctx, msg, args...)
}

// ErrorContext logs an error message with the attributes carried by ctx.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).ErrorContext(ctx, msg, args...)
}

package statemachine

import (
	"context"
	"log/slog"
	"time"

	"github.com/amp-labs/actionstate/logger"
)

// Logger provides logging hooks for transition runs. The context passed to
// each hook carries the machine and run identifiers (see logger.With).
type Logger interface {
	StateEntered(ctx context.Context, state, previous string, kind string)
	StateExited(ctx context.Context, state string, duration time.Duration, err error)
	RunCompleted(ctx context.Context, final string, duration time.Duration, err error)
}

// DefaultLogger implements Logger using the process logger.
type DefaultLogger struct {
	level slog.Level
}

// NewDefaultLogger creates a logger that records state changes at level.
// Failures are always logged at error level.
func NewDefaultLogger(level slog.Level) *DefaultLogger {
	return &DefaultLogger{level: level}
}

func (l *DefaultLogger) StateEntered(ctx context.Context, state, previous string, kind string) {
	logger.Get(ctx).Log(ctx, l.level, "State entered",
		"state", state,
		"previous", previous,
		"kind", kind,
	)
}

func (l *DefaultLogger) StateExited(ctx context.Context, state string, duration time.Duration, err error) {
	fields := []any{
		"state", state,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		logger.Get(ctx).ErrorContext(ctx, "State exited with error", append(fields, "error", err)...)
	} else {
		logger.Get(ctx).Log(ctx, l.level, "State exited", fields...)
	}
}

func (l *DefaultLogger) RunCompleted(ctx context.Context, final string, duration time.Duration, err error) {
	if err != nil {
		logger.Get(ctx).ErrorContext(ctx, "Transition run failed",
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)

		return
	}

	logger.Get(ctx).Log(ctx, l.level, "Transition run completed",
		"final_state", final,
		"duration_ms", duration.Milliseconds(),
	)
}

// nopLogger is installed when transition logging is off.
type nopLogger struct{}

func (nopLogger) StateEntered(context.Context, string, string, string) {}
func (nopLogger) StateExited(context.Context, string, time.Duration, error) {}
func (nopLogger) RunCompleted(context.Context, string, time.Duration, error) {}

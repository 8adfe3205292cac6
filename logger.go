package actionbox

import "context"

// Logger captures engine logs; implementors can wrap slog/zap/etc.
type Logger interface {
	Info(ctx context.Context, format string, v ...any)
	Warn(ctx context.Context, format string, v ...any)
	Error(ctx context.Context, format string, v ...any)
}

// noopLogger discards all engine logs.
type noopLogger struct{}

// Info implements Logger.
func (noopLogger) Info(context.Context, string, ...any) {}

// Warn implements Logger.
func (noopLogger) Warn(context.Context, string, ...any) {}

// Error implements Logger.
func (noopLogger) Error(context.Context, string, ...any) {}

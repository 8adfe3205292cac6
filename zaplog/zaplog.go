// Package zaplog adapts a zap logger to the actionbox Logger interface.
package zaplog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Logger wraps *zap.Logger as an actionbox.Logger.
type Logger struct {
	l *zap.SugaredLogger
}

// New creates an adapter around the given zap logger.
func New(l *zap.Logger) Logger {
	return Logger{l: l.Sugar()}
}

// Info implements actionbox.Logger.
func (z Logger) Info(_ context.Context, format string, v ...any) {
	z.l.Info(fmt.Sprintf(format, v...))
}

// Warn implements actionbox.Logger.
func (z Logger) Warn(_ context.Context, format string, v ...any) {
	z.l.Warn(fmt.Sprintf(format, v...))
}

// Error implements actionbox.Logger.
func (z Logger) Error(_ context.Context, format string, v ...any) {
	z.l.Error(fmt.Sprintf(format, v...))
}

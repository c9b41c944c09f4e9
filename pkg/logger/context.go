package logger

import "context"

type contextKey string

const LoggerCtxKey contextKey = "logger"

// ContextWithLogger attaches l to ctx.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, l)
}

// FromContext returns the logger stored in ctx, falling back to the default logger.
func FromContext(ctx context.Context) Logger {
	if ctx == nil {
		return defaultLogger
	}
	if l, ok := ctx.Value(LoggerCtxKey).(Logger); ok && l != nil {
		return l
	}
	return defaultLogger
}

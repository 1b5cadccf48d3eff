package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request- or event-scoped logger stored in ctx,
// or fallback when there is none. A nil fallback yields a no-op logger.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// With returns a context whose logger carries fields on top of the scoped
// logger already in ctx (or fallback).
func With(ctx context.Context, fallback *zap.Logger, fields ...zap.Field) context.Context {
	return ContextWithLogger(ctx, FromContext(ctx, fallback).With(fields...))
}

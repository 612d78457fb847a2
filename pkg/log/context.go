package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx retrieves the logger from the context, falling back to the global logger.
func Ctx(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

// Enrich derives a child of the context logger with extra fields and stores
// it back in a new context.
func Enrich(ctx context.Context, fields func(zerolog.Context) zerolog.Context) context.Context {
	l := Ctx(ctx)
	return WithLogger(ctx, fields(l.With()).Logger())
}

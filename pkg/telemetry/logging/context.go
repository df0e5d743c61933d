package logging

import (
	"context"
	"log/slog"
)

// Context keys for request-scoped log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// DialectKey is the context key for the downstream API dialect
	// ("openai" or "anthropic").
	DialectKey contextKey = "dialect"

	// ModelKey is the context key for model names.
	ModelKey contextKey = "model"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithDialect adds the downstream API dialect to the context.
func WithDialect(ctx context.Context, dialect string) context.Context {
	return context.WithValue(ctx, DialectKey, dialect)
}

// GetDialect retrieves the downstream API dialect from the context.
func GetDialect(ctx context.Context) string {
	if dialect, ok := ctx.Value(DialectKey).(string); ok {
		return dialect
	}
	return ""
}

// WithModel adds a model name to the context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// GetModel retrieves the model name from the context.
func GetModel(ctx context.Context) string {
	if model, ok := ctx.Value(ModelKey).(string); ok {
		return model
	}
	return ""
}

// contextAttrs extracts request-scoped fields from the context.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if dialect := GetDialect(ctx); dialect != "" {
		attrs = append(attrs, slog.String("dialect", dialect))
	}
	if model := GetModel(ctx); model != "" {
		attrs = append(attrs, slog.String("model", model))
	}

	return attrs
}

// ContextHandler appends request-scoped context fields to every record
// logged through a context-aware call (InfoContext and friends). Records
// logged without a meaningful context pass through unchanged.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps inner with context field injection.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

// Enabled reports whether the inner handler handles records at the level.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle appends context fields to the record and forwards it.
func (h *ContextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		rec = rec.Clone()
		rec.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, rec)
}

// WithAttrs returns a handler whose inner handler has the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a handler whose inner handler has the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

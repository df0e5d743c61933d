package logging

import (
	"context"
	"log/slog"
	"strings"
)

// sensitiveKeys are substrings that mark an attribute key as carrying a
// credential. The upstream session token is the main concern; the rest
// guard against accidental leaks through generic field names.
var sensitiveKeys = []string{
	"token",
	"secret",
	"password",
	"api_key",
	"apikey",
	"authorization",
}

// isSensitiveKey checks whether a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// MaskToken masks a credential, keeping only a short prefix so log lines
// from different tokens remain distinguishable.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return "***"
	}
	return token[:4] + "***"
}

// RedactingHandler masks the values of sensitive attributes before they
// reach the output handler. Matching is by key name, so credentials
// logged under honest names never appear in clear text.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps inner with sensitive-attribute masking.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

// Enabled reports whether the inner handler handles records at the level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle rewrites sensitive attributes and forwards the record.
func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	dirty := false
	rec.Attrs(func(a slog.Attr) bool {
		if needsRedaction(a) {
			dirty = true
			return false
		}
		return true
	})
	if !dirty {
		return h.inner.Handle(ctx, rec)
	}

	clean := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs masks the given attributes eagerly and forwards them.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(masked)}
}

// WithGroup returns a handler whose inner handler has the given group.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

// needsRedaction reports whether the attribute or any nested group member
// carries a sensitive key.
func needsRedaction(a slog.Attr) bool {
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			if needsRedaction(ga) {
				return true
			}
		}
		return false
	}
	return isSensitiveKey(a.Key)
}

// redactAttr masks the attribute value if its key is sensitive,
// descending into groups.
func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		masked := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			masked[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskToken(a.Value.String()))
	}
	return a
}

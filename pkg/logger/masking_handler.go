package logger

import (
	"context"
	"log/slog"
	"strings"
)

const maskedValue = "***"

// sensitiveSuffixes match attribute keys case-insensitively by suffix, so
// bot_token and redis_password are masked along with token and password.
var sensitiveSuffixes = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"authorization",
	"dsn",
}

// MaskingHandler redacts sensitive attributes, including ones nested in
// groups, and stamps each record with the correlation id from its context.
type MaskingHandler struct {
	next slog.Handler
}

func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MaskingHandler{next: h.next.WithAttrs(maskAttrs(attrs))}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)

	stamped := false
	record.Attrs(func(a slog.Attr) bool {
		stamped = stamped || a.Key == correlationIDAttr
		out.AddAttrs(mask(a))
		return true
	})

	if id := CorrelationIDFromContext(ctx); id != "" && !stamped {
		out.AddAttrs(slog.String(correlationIDAttr, id))
	}

	return h.next.Handle(ctx, out)
}

func maskAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = mask(a)
	}
	return out
}

func mask(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskAttrs(a.Value.Group())...)}
	}
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, maskedValue)
	}
	return a
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

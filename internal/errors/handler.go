package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/strike-bot/pkg/logger"
	"github.com/Proton-105/strike-bot/pkg/metrics"
)

// Handler logs transport-level failures, counts them and forwards the
// severe ones to Sentry. Domain rejections never reach it.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle records err and returns the text to show the user and whether a
// retry may succeed.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	appErr := classify(err)

	attrs := []any{
		slog.String("code", appErr.Code),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
		slog.Any("error", err),
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}

	switch appErr.Severity {
	case SeverityLow:
		h.log.InfoContext(ctx, "request failed", attrs...)
	case SeverityMedium:
		h.log.WarnContext(ctx, "request failed", attrs...)
	default:
		h.log.ErrorContext(ctx, "request failed", attrs...)
	}
	metrics.RecordError(appErr.Code, string(appErr.Severity))

	if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
		h.capture(ctx, appErr, err)
	}

	msg := appErr.UserMessage
	if msg == "" {
		msg = defaultUserMessage
	}
	return msg, appErr.Retryable
}

// classify returns err's AppError, or a high-severity unknown one.
func classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	if errors.Is(err, context.Canceled) {
		return &AppError{Code: codeUnknown, Message: "request cancelled", Severity: SeverityLow, cause: err}
	}

	return &AppError{Code: codeUnknown, Message: "unexpected error", Severity: SeverityHigh, cause: err}
}

func (h *Handler) capture(ctx context.Context, appErr *AppError, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		hub.CaptureException(err)
	})
}

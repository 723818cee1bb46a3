package bot

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/bot/handlers"
	errors "github.com/Proton-105/strike-bot/internal/errors"
	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/state"
	"github.com/Proton-105/strike-bot/pkg/logger"
)

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, tr i18n.Translator) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}
	if tr == nil {
		tr = i18n.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					if errHandler != nil {
						appErr := errors.NewStateError(fmt.Sprintf("panic recovered: %v", r))
						appErr.Severity = errors.SeverityCritical
						errHandler.Handle(handlers.RequestContext(c), appErr)
					}

					if c != nil {
						if sendErr := c.Send(tr.T("errors.generic")); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
// A held session lock is expected under bursts and is answered with a short busy notice.
func ErrorHandlingMiddleware(errHandler *errors.Handler, tr i18n.Translator, log *slog.Logger) handlers.Middleware {
	if tr == nil {
		tr = i18n.Default()
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			ctx := handlers.RequestContext(c)
			userMsg := tr.T("errors.generic")

			switch {
			case stdErrors.Is(err, state.ErrStateLocked):
				log.WarnContext(ctx, "session busy", slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)))
				userMsg = tr.T("errors.busy")
			case errHandler != nil:
				if msg, _ := errHandler.Handle(ctx, err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				if c.Callback() != nil {
					_ = c.Respond()
				}
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware tags the update with a correlation id and logs it.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			ctx := logger.WithCorrelationID(handlers.RequestContext(c), "")
			handlers.WithRequestContext(c, ctx)

			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			action := handlers.ActionLabel(c)
			reqLog := log.With(
				slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
				slog.Int64("user_id", userID),
				slog.String("action", action),
			)

			reqLog.DebugContext(ctx, "handling update")
			err := next(c)
			reqLog.InfoContext(ctx, "handled update",
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}


package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/bot/handlers"
	"github.com/Proton-105/strike-bot/internal/idempotency"
)

// Idempotency ensures handlers execute at most once per Telegram update key.
// Redelivered updates are dropped silently.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := extractIdempotencyKey(c)
			if key == "" {
				return next(c)
			}

			ctx := handlers.RequestContext(c)

			result, err := manager.Execute(ctx, key, ttl, func(context.Context) (interface{}, error) {
				return nil, next(c)
			})
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					log.DebugContext(ctx, "duplicate update in progress", slog.String("key", key))
					return nil
				}

				log.ErrorContext(ctx, "idempotent handler failed", slog.String("key", key), slog.Any("error", err))
				return err
			}

			if result != nil && result.FromCache {
				log.DebugContext(ctx, "duplicate update skipped", slog.String("key", key))
			}

			return nil
		}
	}
}

// DefaultIdempotencyTTL covers Telegram's redelivery window.
const DefaultIdempotencyTTL = 24 * time.Hour

// extractIdempotencyKey identifies a Telegram delivery: the callback query
// id, or chat and message id for messages.
func extractIdempotencyKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if cb.ID == "" {
			return ""
		}
		return idempotency.GenerateKey("cb", cb.ID)
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		chatID := int64(0)
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return idempotency.GenerateKey("msg", chatID, msg.ID)
	}

	return ""
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/strike-bot/internal/errors"
	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces the global and per-user limits on every
// update and exposes per-action checks to the handlers.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	tr      i18n.Translator
	log     *slog.Logger
	now     func() time.Time
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, tr i18n.Translator, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}
	if tr == nil {
		tr = i18n.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		tr:      tr,
		log:     log,
		now:     time.Now,
	}
}

// Handle returns a telebot middleware that enforces per-user rate limits.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		userID := sender.ID
		if m.rules.IsWhitelisted(userID) {
			return next(c)
		}

		ctx := context.Background()

		if limit, window, err := m.rules.GetGlobalLimit(); err == nil && limit > 0 {
			if retry, limited := m.check(ctx, "global", limit, window); limited {
				m.log.Warn("global rate limit exceeded", slog.Int64("user_id", userID))
				return m.reject(c, retry)
			}
		}

		limit, window, err := m.rules.GetPerUserLimit()
		if err != nil {
			m.log.Error("failed to load per-user rate limit", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		if retry, limited := m.check(ctx, fmt.Sprintf("user:%d", userID), limit, window); limited {
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID))
			return m.reject(c, retry)
		}

		return next(c)
	}
}

// Allow checks an action limit (describe, search, confirm) for one user.
// A denial is returned as a rate-limit AppError carrying the retry delay.
func (m *RateLimitMiddleware) Allow(ctx context.Context, userID int64, action string) error {
	if m == nil || m.limiter == nil || m.rules == nil || m.rules.IsWhitelisted(userID) {
		return nil
	}

	limit, window, err := m.rules.GetActionLimit(action)
	if err != nil {
		m.log.WarnContext(ctx, "no rate limit for action", slog.String("action", action), slog.Any("error", err))
		return nil
	}

	if retry, limited := m.check(ctx, fmt.Sprintf("user:%d:%s", userID, action), limit, window); limited {
		return apperrors.NewRateLimitError(retry)
	}

	return nil
}

// check fails open on limiter errors other than a denial.
func (m *RateLimitMiddleware) check(ctx context.Context, key string, limit int, window time.Duration) (int, bool) {
	result, err := m.limiter.Check(ctx, key, limit, window)
	if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
		m.log.WarnContext(ctx, "rate limiter error", slog.String("key", key), slog.Any("error", err))
		return 0, false
	}

	if result == nil || result.Allowed {
		return 0, false
	}

	return result.RetryAfter(m.now()), true
}

func (m *RateLimitMiddleware) reject(c telebot.Context, retryAfter int) error {
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: m.tr.Tf("errors.rate_limited", retryAfter)})
	}
	return c.Send(m.tr.Tf("errors.rate_limited", retryAfter))
}

package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Proton-105/strike-bot/internal/errors"
	"github.com/Proton-105/strike-bot/pkg/metrics"
)

const DefaultTimeout = 8 * time.Second

// Guarded bounds every call of an inner resolver with a timeout and a
// circuit breaker. All failures surface as ErrUnavailable.
type Guarded struct {
	inner   Resolver
	breaker *apperrors.CircuitBreaker
	timeout time.Duration
	log     *slog.Logger
}

var _ Resolver = (*Guarded)(nil)

func NewGuarded(inner Resolver, timeout time.Duration, breaker *apperrors.CircuitBreaker, log *slog.Logger) *Guarded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if breaker == nil {
		breaker = apperrors.NewCircuitBreaker()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Guarded{
		inner:   inner,
		breaker: breaker,
		timeout: timeout,
		log:     log.With(slog.String("component", "resolver")),
	}
}

func (g *Guarded) ResolveBet(ctx context.Context, text string) (*BetResolution, error) {
	return guard(ctx, g, "resolve_bet", func(ctx context.Context) (*BetResolution, error) {
		res, err := g.inner.ResolveBet(ctx, text)
		if err == nil && res == nil {
			res = &BetResolution{}
		}
		return res, err
	})
}

func (g *Guarded) ResolvePlayer(ctx context.Context, text string) (string, error) {
	return guard(ctx, g, "resolve_player", func(ctx context.Context) (string, error) {
		return g.inner.ResolvePlayer(ctx, text)
	})
}

func (g *Guarded) ResolveTeam(ctx context.Context, text string) (*TeamRoster, error) {
	return guard(ctx, g, "resolve_team", func(ctx context.Context) (*TeamRoster, error) {
		return g.inner.ResolveTeam(ctx, text)
	})
}

func (g *Guarded) ClassifyIsSearch(ctx context.Context, text string) (bool, error) {
	return guard(ctx, g, "classify", func(ctx context.Context) (bool, error) {
		return g.inner.ClassifyIsSearch(ctx, text)
	})
}

func guard[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	var result T
	err := g.breaker.Call(func() error {
		v, err := fn(callCtx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrCircuitOpen), errors.Is(err, apperrors.ErrHalfOpenTooManyRequests):
		status = "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	default:
		status = "error"
	}
	metrics.RecordResolverCall(op, status, time.Since(start))

	if err != nil {
		g.log.WarnContext(ctx, "resolver call failed",
			slog.String("operation", op),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, apperrors.NewExternalAPIError("resolver."+op, err))
	}

	return result, nil
}

package state

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Evictor is the part of the store the cleaner needs.
type Evictor interface {
	GetAllStates(ctx context.Context) ([]*UserState, error)
	EvictIdle(ctx context.Context, userID int64, cutoff time.Time) (bool, error)
}

// Cleaner evicts sessions idle for longer than ttl.
type Cleaner struct {
	store    Evictor
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(store Evictor, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		store:    store,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on every tick until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.store == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil && ctx.Err() == nil {
				c.log.Error("state sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Sweep evicts every idle session once and returns how many were removed.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	states, err := c.store.GetAllStates(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := c.now().Add(-c.ttl)
	evicted := 0

	for _, st := range states {
		if ctx.Err() != nil {
			return evicted, ctx.Err()
		}
		if !st.UpdatedAt.Before(cutoff) {
			continue
		}

		ok, err := c.store.EvictIdle(ctx, st.UserID, cutoff)
		if err != nil {
			if !errors.Is(err, ErrStateLocked) {
				c.log.Error("state cleaner failed to clear state", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			}
			continue
		}
		if ok {
			evicted++
			c.log.Info("idle session evicted", slog.Int64("user_id", st.UserID))
		}
	}

	return evicted, nil
}

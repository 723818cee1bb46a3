package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Sweeper evicts idle sessions.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type EvictHandler struct {
	sweeper Sweeper
	log     *slog.Logger
}

func NewEvictHandler(sweeper Sweeper, log *slog.Logger) *EvictHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EvictHandler{sweeper: sweeper, log: log}
}

func (h *EvictHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	evicted, err := h.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "session eviction finished", slog.String("task_type", t.Type()), slog.Int("evicted", evicted))
	return nil
}

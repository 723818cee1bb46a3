package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/strike-bot/internal/betting"
)

// QueueSubmitter hands submissions to the worker instead of sending them inline.
type QueueSubmitter struct {
	manager Manager
	log     *slog.Logger
	now     func() time.Time
}

func NewQueueSubmitter(manager Manager, log *slog.Logger) *QueueSubmitter {
	if log == nil {
		log = slog.Default()
	}
	return &QueueSubmitter{manager: manager, log: log, now: time.Now}
}

func (q *QueueSubmitter) Submit(ctx context.Context, sub *betting.Submission) error {
	task, err := NewSubmissionTask(sub, q.now())
	if err != nil {
		return fmt.Errorf("build submission task: %w", err)
	}

	info, err := q.manager.Enqueue(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue submission: %w", err)
	}

	q.log.InfoContext(ctx, "submission queued",
		slog.Int64("user_id", sub.UserID),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)

	return nil
}

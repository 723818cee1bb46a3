package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// ErrAlreadyQueued is returned when an identical unique task is pending.
var ErrAlreadyQueued = errors.New("task already queued")

// Manager enqueues tasks for the worker.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type manager struct {
	client enqueuer
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	return newManager(asynq.NewClient(redisOpt), log)
}

func newManager(client enqueuer, log *slog.Logger) *manager {
	if log == nil {
		log = slog.Default()
	}
	return &manager{client: client, log: log.With(slog.String("component", "jobs"))}
}

func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := m.client.EnqueueContext(ctx, task, opts...)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask), errors.Is(err, asynq.ErrTaskIDConflict):
		m.log.DebugContext(ctx, "task already queued", slog.String("task_type", task.Type()))
		return nil, fmt.Errorf("%s: %w", task.Type(), ErrAlreadyQueued)
	case err != nil:
		m.log.ErrorContext(ctx, "failed to enqueue task", slog.String("task_type", task.Type()), slog.Any("error", err))
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	m.log.DebugContext(ctx, "task enqueued",
		slog.String("task_type", task.Type()),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)
	return info, nil
}

func (m *manager) Close() error {
	return m.client.Close()
}

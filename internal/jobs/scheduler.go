package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	evictSpec      string
	log            *slog.Logger
}

// NewScheduler registers periodic tasks. evictSpec is a cron spec or an
// "@every <duration>" expression; empty disables eviction scheduling.
func NewScheduler(redisOpt asynq.RedisConnOpt, evictSpec string, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		evictSpec:      evictSpec,
		log:            log.With(slog.String("component", "scheduler")),
	}
}

// NextRun parses spec with the same grammar the scheduler accepts and
// returns the first activation after from.
func NextRun(spec string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return schedule.Next(from), nil
}

func (s *scheduler) RegisterTasks() error {
	if s.evictSpec == "" {
		return nil
	}

	next, err := NextRun(s.evictSpec, time.Now())
	if err != nil {
		return err
	}

	if _, err := s.asynqScheduler.Register(s.evictSpec, NewSessionEvictTask()); err != nil {
		return fmt.Errorf("register %s: %w", TaskTypeSessionEvict, err)
	}

	s.log.Info("registered session eviction",
		slog.String("spec", s.evictSpec),
		slog.Time("next_run", next),
	)
	return nil
}

func (s *scheduler) Run() {
	s.log.Info("starting")

	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.ErrorContext(context.Background(), "run failed", slog.Any("error", err))
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.Info("shutting down")
	s.asynqScheduler.Shutdown()
}

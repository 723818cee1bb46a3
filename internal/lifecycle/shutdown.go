package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Stage orders shutdown: every hook of a stage finishes before the next
// stage starts. Hooks inside a stage run in parallel.
type Stage int

const (
	// StageIngress stops accepting updates: the Telegram poller and the ops server.
	StageIngress Stage = iota
	// StageWorkers drains background processing such as the job worker.
	StageWorkers
	// StageResources closes shared connections.
	StageResources
)

func (s Stage) String() string {
	switch s {
	case StageIngress:
		return "ingress"
	case StageWorkers:
		return "workers"
	case StageResources:
		return "resources"
	default:
		return fmt.Sprintf("stage-%d", int(s))
	}
}

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Stage Stage
	Fn    func(ctx context.Context) error
}

// Shutdown coordinates graceful shutdown hooks.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named hook to a stage.
func (s *Shutdown) Register(stage Stage, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Stage: stage, Fn: fn})
}

// Execute runs the hooks stage by stage and joins their errors. Later
// stages still run when an earlier hook fails.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].Stage < hooks[j].Stage })

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var errs []error
	for i := 0; i < len(hooks); {
		j := i
		for j < len(hooks) && hooks[j].Stage == hooks[i].Stage {
			j++
		}
		errs = append(errs, s.runStage(ctx, hooks[i].Stage, hooks[i:j])...)
		i = j
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}

func (s *Shutdown) runStage(ctx context.Context, stage Stage, hooks []Hook) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, h := range hooks {
		h := h
		wg.Add(1)
		go func() {
			defer wg.Done()

			started := time.Now()
			if err := h.Fn(ctx); err != nil {
				s.log.Error("shutdown hook failed",
					slog.String("stage", stage.String()),
					slog.String("hook", h.Name),
					slog.Any("error", err),
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				mu.Unlock()
				return
			}

			s.log.Info("shutdown hook completed",
				slog.String("stage", stage.String()),
				slog.String("hook", h.Name),
				slog.Duration("elapsed", time.Since(started)),
			)
		}()
	}

	wg.Wait()
	return errs
}

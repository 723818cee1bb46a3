package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Proton-105/strike-bot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes answers liveness from the process state and readiness from the
// registered component checks.
type Probes struct {
	checker  *health.Checker
	log      *slog.Logger
	draining atomic.Bool
}

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Liveness reports success while the process runs.
func (p *Probes) Liveness(context.Context) error {
	return nil
}

// Readiness fails during shutdown or when any component check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return fmt.Errorf("shutting down")
	}
	if p.checker == nil {
		return nil
	}

	results, healthy := p.checker.Check(ctx)
	if healthy {
		return nil
	}

	failed := make([]string, 0, len(results))
	for name, status := range results {
		if status != health.StatusOK {
			failed = append(failed, name+": "+status)
		}
	}
	sort.Strings(failed)
	p.log.DebugContext(ctx, "readiness probe failed", slog.Any("failed", failed))

	return fmt.Errorf("not ready: %s", strings.Join(failed, "; "))
}

// Drain makes readiness fail so traffic stops before hooks run.
func (p *Probes) Drain() {
	p.draining.Store(true)
}

// Package health runs component checks for the readiness probe.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StatusOK is reported for a passing check.
const StatusOK = "OK"

const defaultCheckTimeout = 3 * time.Second

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Checker runs registered checks concurrently, each bounded by a timeout.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Checkable
}

func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}

	return &Checker{
		log:     log,
		timeout: defaultCheckTimeout,
		checks:  make(map[string]Checkable),
	}
}

// WithTimeout overrides the per-check timeout.
func (c *Checker) WithTimeout(d time.Duration) *Checker {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// AddCheck registers check under name, replacing an earlier one.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}

	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Check runs every check and maps its name to StatusOK or the failure.
// healthy is false when any check failed.
func (c *Checker) Check(ctx context.Context) (map[string]string, bool) {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]string, len(checks))
		healthy = true
	)

	for name, check := range checks {
		name, check := name, check
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := c.run(ctx, check)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[name] = err.Error()
				healthy = false
				c.log.WarnContext(ctx, "health check failed", slog.String("component", name), slog.Any("error", err))
				return
			}
			results[name] = StatusOK
		}()
	}

	wg.Wait()
	return results, healthy
}

func (c *Checker) run(ctx context.Context, check Checkable) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("check panicked: %v", r)
			}
		}()
		done <- check.HealthCheck(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("check timed out: %w", ctx.Err())
	}
}

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/testutil"
)

func TestShutdown_RunsStagesInOrder(t *testing.T) {
	s := NewShutdown(testutil.Logger())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return err
		}
	}

	s.Register(StageResources, "redis", record("redis", errors.New("close failed")))
	s.Register(StageIngress, "telegram", record("telegram", nil))
	s.Register(StageWorkers, "jobs", record("jobs", nil))
	s.Register(StageIngress, "nil", nil)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: close failed")
	assert.Equal(t, []string{"telegram", "jobs", "redis"}, order)
}

func TestShutdown_FailureDoesNotSkipLaterStages(t *testing.T) {
	s := NewShutdown(testutil.Logger())
	closed := false

	s.Register(StageIngress, "telegram", func(context.Context) error { return errors.New("stuck") })
	s.Register(StageResources, "postgres", func(context.Context) error { closed = true; return nil })

	assert.Error(t, s.Execute(context.Background()))
	assert.True(t, closed)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "ingress", StageIngress.String())
	assert.Equal(t, "stage-9", Stage(9).String())
}

func TestProbes_WithoutChecker(t *testing.T) {
	p := NewProbes(nil, nil)
	ctx := context.Background()

	assert.NoError(t, p.Liveness(ctx))
	assert.NoError(t, p.Readiness(ctx))

	p.Drain()
	assert.Error(t, p.Readiness(ctx))
	assert.NoError(t, p.Liveness(ctx))
}

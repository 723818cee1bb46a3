// Package idempotency runs an operation at most once per key and replays
// the stored result for repeats.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

var ErrRequestInProgress = errors.New("request with this key is already in progress")

const (
	defaultLockTTL      = 5 * time.Minute
	defaultPollInterval = 100 * time.Millisecond
)

type Operation func(ctx context.Context) (interface{}, error)

type Result struct {
	Response  interface{}
	FromCache bool
}

type Manager interface {
	Execute(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fn Operation,
	) (*Result, error)
}

type manager struct {
	store        Store
	log          *slog.Logger
	lockTTL      time.Duration
	pollInterval time.Duration
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:        store,
		log:          log.With(slog.String("component", "idempotency")),
		lockTTL:      defaultLockTTL,
		pollInterval: defaultPollInterval,
	}
}

// Execute runs fn unless a completed record exists for key. A failed fn
// leaves no record, so the next attempt runs again.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		res, err := m.replay(ctx, key)
		if res != nil || err != nil {
			return res, err
		}

		locked, err := m.store.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return nil, err
		}

		if locked {
			// A holder may have finished between the read and the lock.
			res, err := m.replay(ctx, key)
			if res != nil || err != nil {
				m.release(ctx, key)
				return res, err
			}
			return m.run(ctx, key, ttl, fn)
		}

		// The lock holder has not written a record yet.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// replay returns the stored response for a completed key, or nil when there
// is nothing to replay yet.
func (m *manager) replay(ctx context.Context, key string) (*Result, error) {
	record, err := m.store.Get(ctx, key)
	if err != nil || record == nil {
		return nil, err
	}

	switch record.Status {
	case StatusProcessing:
		return nil, ErrRequestInProgress
	case StatusCompleted:
		var response interface{}
		if len(record.Response) > 0 {
			if err := json.Unmarshal(record.Response, &response); err != nil {
				return nil, err
			}
		}
		return &Result{Response: response, FromCache: true}, nil
	}
	return nil, nil
}

func (m *manager) release(ctx context.Context, key string) {
	if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
		m.log.WarnContext(ctx, "failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
	}
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	defer m.release(ctx, key)

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	responseBytes, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{
		Status:   StatusCompleted,
		Response: responseBytes,
	}, ttl); err != nil {
		return nil, err
	}

	return &Result{
		Response:  result,
		FromCache: false,
	}, nil
}

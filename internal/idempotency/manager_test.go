package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_RunsOnceAndReplays(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"redis": func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisStore(client, testLogger())
		},
	}

	for name, newStore := range stores {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			m := NewManager(newStore(t), testLogger())
			ctx := context.Background()
			calls := 0
			op := func(context.Context) (interface{}, error) {
				calls++
				return "done", nil
			}

			first, err := m.Execute(ctx, "k1", time.Hour, op)
			require.NoError(t, err)
			assert.False(t, first.FromCache)

			second, err := m.Execute(ctx, "k1", time.Hour, op)
			require.NoError(t, err)
			assert.True(t, second.FromCache)
			assert.Equal(t, "done", second.Response)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestManager_ReplaysWhenLockIsFree(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, testLogger())
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k5", &Record{Status: StatusCompleted, Response: []byte(`"cached"`)}, time.Hour))

	res, err := NewManager(store, testLogger()).Execute(ctx, "k5", time.Hour, func(context.Context) (interface{}, error) {
		t.Fatal("operation must not run for a completed key")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, "cached", res.Response)

	locked, err := store.Lock(ctx, "k5", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}

// lateRecordStore reports no record on the first read, as if the previous
// holder finished between the read and the lock.
type lateRecordStore struct {
	*MemoryStore
	reads int
}

func (s *lateRecordStore) Get(ctx context.Context, key string) (*Record, error) {
	s.reads++
	if s.reads == 1 {
		return nil, nil
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestManager_RechecksAfterLock(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "k6", &Record{Status: StatusCompleted, Response: []byte(`1`)}, time.Hour))
	store := &lateRecordStore{MemoryStore: mem}

	calls := 0
	res, err := NewManager(store, testLogger()).Execute(ctx, "k6", time.Hour, func(context.Context) (interface{}, error) {
		calls++
		return 2, nil
	})
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, float64(1), res.Response)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 2, store.reads)

	// The lock taken for the re-check is released.
	locked, err := mem.Lock(ctx, "k6", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestManager_FailureLeavesNoRecord(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, testLogger())
	ctx := context.Background()

	_, err := m.Execute(ctx, "k2", time.Hour, func(context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	rec, err := store.Get(ctx, "k2")
	require.NoError(t, err)
	assert.Nil(t, rec)

	res, err := m.Execute(ctx, "k2", time.Hour, func(context.Context) (interface{}, error) { return 1, nil })
	require.NoError(t, err)
	assert.False(t, res.FromCache)
}

func TestManager_InProgress(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	locked, err := store.Lock(ctx, "k3", time.Minute)
	require.NoError(t, err)
	require.True(t, locked)
	require.NoError(t, store.Set(ctx, "k3", &Record{Status: StatusProcessing}, time.Minute))

	_, err = NewManager(store, testLogger()).Execute(ctx, "k3", time.Hour, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestManager_WaitsForLockHolderUntilContextDone(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, err := store.Lock(ctx, "k4", time.Minute)
	require.NoError(t, err)

	_, err = NewManager(store, testLogger()).Execute(ctx, "k4", time.Hour, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", &Record{Status: StatusCompleted}, time.Minute))
	require.NoError(t, store.Set(ctx, "b", &Record{Status: StatusCompleted}, time.Hour))

	now = now.Add(2 * time.Minute)
	rec, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, rec)

	cleaner := NewCleaner(nil, store, testLogger(), time.Minute, 0)
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, cleaner.Sweep(ctx))
}

func TestCleaner_RemovesKeysWithoutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, keyPrefix+"orphan", "1", 0).Err())
	require.NoError(t, NewRedisStore(client, testLogger()).Set(ctx, "kept", &Record{Status: StatusCompleted}, time.Hour))
	require.NoError(t, client.Set(ctx, "other:key", "1", 0).Err())

	removed := NewCleaner(client, nil, testLogger(), time.Minute, 25*time.Hour).Sweep(ctx)
	assert.Equal(t, 1, removed)
	assert.False(t, mr.Exists(keyPrefix+"orphan"))
	assert.True(t, mr.Exists(keyPrefix+"kept"))
	assert.True(t, mr.Exists("other:key"))
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("cb", "123")
	assert.Equal(t, a, GenerateKey("cb", "123"))
	assert.NotEqual(t, a, GenerateKey("cb", "124"))
	assert.Len(t, a, len("cb:")+32)
}

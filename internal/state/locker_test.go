package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/testutil"
)

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	locker := NewRedisLocker(client, testutil.Logger(), time.Second, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, 5)
	require.NoError(t, err)
	assert.True(t, mr.Exists("strike:lock:5"))

	// Simulate expiry and takeover by another holder.
	mr.Del("strike:lock:5")
	require.NoError(t, mr.Set("strike:lock:5", "someone-else"))

	unlock()
	got, err := mr.Get("strike:lock:5")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_RetriesUntilReleased(t *testing.T) {
	_, client := testutil.NewRedis(t)
	locker := NewRedisLocker(client, testutil.Logger(), time.Second, time.Second)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, 9)
	require.NoError(t, err)

	go func() {
		time.Sleep(60 * time.Millisecond)
		unlock()
	}()

	unlock2, err := locker.Lock(ctx, 9)
	require.NoError(t, err)
	unlock2()
}

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker(50 * time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, 1)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, 1)
	assert.ErrorIs(t, err, ErrStateLocked)

	other, err := locker.Lock(ctx, 2)
	require.NoError(t, err)
	other()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = locker.Lock(cancelled, 1)
	assert.ErrorIs(t, err, context.Canceled)

	unlock()
	again, err := locker.Lock(ctx, 1)
	require.NoError(t, err)
	again()

	assert.Empty(t, locker.slots)
}

func TestRedisLocker_RenewsWhileHeld(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	locker := NewRedisLocker(client, testutil.Logger(), 150*time.Millisecond, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, 7)
	require.NoError(t, err)

	mr.FastForward(120 * time.Millisecond)
	require.True(t, mr.Exists("strike:lock:7"))
	assert.Eventually(t, func() bool {
		return mr.TTL("strike:lock:7") > 100*time.Millisecond
	}, time.Second, 10*time.Millisecond)

	mr.FastForward(120 * time.Millisecond)
	assert.True(t, mr.Exists("strike:lock:7"))

	_, err = locker.Lock(ctx, 7)
	assert.ErrorIs(t, err, ErrStateLocked)

	unlock()
	unlock()
	assert.False(t, mr.Exists("strike:lock:7"))
}

package state

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPattern     = "strike:lock:%d"
	lockRetryInterval  = 25 * time.Millisecond
	defaultLockTTL     = 10 * time.Second
	defaultLockWaitFor = 3 * time.Second
)

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry forward while the lock still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker serializes work per user. Lock blocks until the lock is held, wait
// elapses (ErrStateLocked) or ctx ends.
type Locker interface {
	Lock(ctx context.Context, userID int64) (unlock func(), err error)
}

// RedisLocker uses SET NX with a per-holder token so it works across replicas.
// A held lock is renewed every third of its TTL until it is released.
type RedisLocker struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client *redis.Client, log *slog.Logger, ttl, wait time.Duration) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWaitFor
	}

	return &RedisLocker{client: client, log: log, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	key := fmt.Sprintf(lockKeyPattern, userID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			l.log.Error("failed to acquire user state lock", "user_id", userID, "error", err)
			return nil, err
		}
		if acquired {
			break
		}

		if time.Now().After(deadline) {
			l.log.Warn("user state lock already held", "user_id", userID)
			return nil, ErrStateLocked
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(key, token, userID, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// Release with a fresh context so a cancelled request still frees the lock.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Error("failed to release user state lock", "user_id", userID, "error", err)
			}
		})
	}, nil
}

func (l *RedisLocker) renew(key, token string, userID int64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.ttl / 3
	if interval <= 0 {
		interval = l.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ttl := strconv.FormatInt(l.ttl.Milliseconds(), 10)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		kept, err := extendScript.Run(ctx, l.client, []string{key}, token, ttl).Int64()
		cancel()
		if err != nil {
			l.log.Warn("failed to renew user state lock", "user_id", userID, "error", err)
			continue
		}
		if kept == 0 {
			l.log.Error("user state lock lost before release", "user_id", userID)
			return
		}
	}
}

// MemoryLocker is an in-process keyed mutex.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[int64]*lockSlot
	wait  time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	if wait <= 0 {
		wait = defaultLockWaitFor
	}
	return &MemoryLocker{slots: make(map[int64]*lockSlot), wait: wait}
}

func (l *MemoryLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[userID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[userID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			l.release(userID, slot)
		}, nil
	case <-timer.C:
		l.release(userID, slot)
		return nil, ErrStateLocked
	case <-ctx.Done():
		l.release(userID, slot)
		return nil, ctx.Err()
	}
}

func (l *MemoryLocker) release(userID int64, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, userID)
	}
}

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "strike:ratelimit:"

// slidingWindow trims entries older than the window, records the attempt
// and returns the attempt count with the oldest score, all in one round trip.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[2])
redis.call('ZADD', key, ARGV[1], ARGV[4])
local count  = redis.call('ZCARD', key)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
redis.call('PEXPIRE', key, ARGV[3])
return {count, tonumber(oldest[2])}
`)

// RedisLimiter is a sliding window limiter shared by every bot instance.
// Rejected attempts are recorded too, so a user who keeps hammering stays limited.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLimiter{client: client, log: log, now: time.Now}
}

func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("redis client is not configured for rate limiting")
	}

	now := l.now()
	if limit <= 0 {
		return &Result{Allowed: false, ResetAt: now.Add(window)}, nil
	}

	nowMs := now.UnixMilli()
	reply, err := slidingWindow.Run(ctx, l.client,
		[]string{redisKeyPrefix + key},
		strconv.FormatInt(nowMs, 10),
		"("+strconv.FormatInt(nowMs-window.Milliseconds(), 10),
		strconv.FormatInt(2*window.Milliseconds(), 10),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		l.log.ErrorContext(ctx, "rate limit script failed", slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(reply) != 2 {
		return nil, fmt.Errorf("rate limit %s: unexpected reply %v", key, reply)
	}

	count, oldest := reply[0], reply[1]
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetAt:   time.UnixMilli(oldest).Add(window),
	}, nil
}

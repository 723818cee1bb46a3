package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner removes idempotency keys that lost their expiry, and purges
// expired entries from a memory store.
type Cleaner struct {
	client   *redis.Client
	memory   *MemoryStore
	log      *slog.Logger
	interval time.Duration
	maxTTL   time.Duration
}

// NewCleaner sweeps Redis when client is set and the memory store when memory is set.
func NewCleaner(client *redis.Client, memory *MemoryStore, log *slog.Logger, interval, maxTTL time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client:   client,
		memory:   memory,
		log:      log,
		interval: interval,
		maxTTL:   maxTTL,
	}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.interval <= 0 || (c.client == nil && c.memory == nil) {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass and returns how many entries were removed.
func (c *Cleaner) Sweep(ctx context.Context) int {
	removed := 0
	if c.memory != nil {
		removed += c.memory.Purge()
	}
	if c.client != nil {
		removed += c.sweepRedis(ctx)
	}
	if removed > 0 {
		c.log.Debug("idempotency entries cleaned", slog.Int("removed", removed))
	}
	return removed
}

func (c *Cleaner) sweepRedis(ctx context.Context) int {
	var (
		cursor  uint64
		err     error
		removed int
	)

	for {
		var keys []string
		keys, cursor, err = c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			c.log.Error("idempotency cleaner scan failed", slog.Any("error", err))
			return removed
		}

		for _, key := range keys {
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				c.log.Warn("failed to get key ttl", slog.String("key", key), slog.Any("error", err))
				continue
			}

			if ttl < 0 || (c.maxTTL > 0 && ttl > c.maxTTL) {
				if err := c.client.Del(ctx, key).Err(); err != nil {
					c.log.Warn("failed to delete stale idempotency key", slog.String("key", key), slog.Any("error", err))
					continue
				}
				removed++
			}
		}

		if cursor == 0 {
			break
		}
	}

	return removed
}

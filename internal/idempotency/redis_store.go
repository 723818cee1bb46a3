package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

const keyPrefix = "strike:idem:"

// Record is the stored outcome of an operation. Response holds the
// JSON-encoded result.
type Record struct {
	Status   string
	Response []byte
}

// Store persists records and the short-lived locks guarding them.
type Store interface {
	Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string) error
}

// storedRecord is the Redis value: one JSON document per key.
type storedRecord struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

// RedisStore shares idempotency state between bot instances.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{client: client, log: log.With(slog.String("store", "redis"))}
}

func (s *RedisStore) Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(key), time.Now().UnixMilli(), lockTTL).Result()
	if err != nil {
		return false, s.fail("lock", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("get", key, err)
	}

	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, s.fail("decode", key, err)
	}

	return &Record{Status: stored.Status, Response: stored.Response}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}

	stored := storedRecord{Status: record.Status}
	if len(record.Response) > 0 {
		stored.Response = json.RawMessage(record.Response)
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return s.fail("encode", key, err)
	}

	if err := s.client.Set(ctx, recordKey(key), payload, ttl).Err(); err != nil {
		return s.fail("set", key, err)
	}
	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockKey(key)).Err(); err != nil {
		return s.fail("unlock", key, err)
	}
	return nil
}

func (s *RedisStore) fail(op, key string, err error) error {
	s.log.Error("idempotency store operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.Any("error", err),
	)
	return fmt.Errorf("idempotency %s %s: %w", op, key, err)
}

func recordKey(key string) string {
	return keyPrefix + key
}

func lockKey(key string) string {
	return keyPrefix + key + ":lock"
}

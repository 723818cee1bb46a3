package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "strike:session:"
	scanBatchCount   = 100
)

// RedisStorage keeps one JSON document per user under strike:session:<id>.
// Every write refreshes the key's expiry, so idle sessions age out on their own.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage returns a Redis-backed Storage. A zero ttl keeps keys
// until they are cleared.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log.With(slog.String("storage", "redis")),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	raw, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", userID, err)
	}

	st, err := decodeState(raw)
	if err != nil {
		return nil, fmt.Errorf("decode session %d: %w", userID, err)
	}
	return st, nil
}

func (s *RedisStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	state.UpdatedAt = s.now()

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", userID, err)
	}

	if err := s.client.Set(ctx, sessionKey(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear session %d: %w", userID, err)
	}
	return nil
}

// GetAllStates walks the session keys with SCAN and loads each batch with a
// single MGET. Keys that vanish between the two calls are skipped, as are
// documents that no longer decode.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		cursor uint64
		states []*UserState
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", scanBatchCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan sessions: %w", err)
		}

		if len(keys) > 0 {
			values, err := s.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("load sessions: %w", err)
			}

			for i, v := range values {
				raw, ok := v.(string)
				if !ok {
					continue
				}
				st, err := decodeState([]byte(raw))
				if err != nil {
					s.log.WarnContext(ctx, "skipping undecodable session", slog.String("key", keys[i]), slog.Any("error", err))
					continue
				}
				states = append(states, st)
			}
		}

		cursor = next
		if cursor == 0 {
			return states, nil
		}
	}
}

func decodeState(raw []byte) (*UserState, error) {
	var st UserState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

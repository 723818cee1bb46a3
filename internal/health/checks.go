package health

import (
	"context"
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/dataset"
)

// DBChecker verifies connectivity to a PostgreSQL database.
type DBChecker struct {
	db *sql.DB
}

func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}
	return c.db.PingContext(ctx)
}

// Pinger abstracts the subset of redis.Client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker issues PING against Redis.
type RedisChecker struct {
	pinger Pinger
}

func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// TelegramChecker passes once the bot has fetched its own profile.
type TelegramChecker struct {
	bot *telebot.Bot
}

func NewTelegramChecker(bot *telebot.Bot) *TelegramChecker {
	return &TelegramChecker{bot: bot}
}

func (c *TelegramChecker) HealthCheck(context.Context) error {
	if c == nil || c.bot == nil || c.bot.Me == nil {
		return errors.New("telegram bot is not initialized")
	}
	return nil
}

// DatasetChecker fails while no betting events are loaded.
type DatasetChecker struct {
	ds *dataset.Dataset
}

func NewDatasetChecker(ds *dataset.Dataset) *DatasetChecker {
	return &DatasetChecker{ds: ds}
}

func (c *DatasetChecker) HealthCheck(context.Context) error {
	if c == nil || c.ds == nil || c.ds.Len() == 0 {
		return errors.New("betting dataset is empty")
	}
	return nil
}

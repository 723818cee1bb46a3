package config

import (
	"time"

	"github.com/Proton-105/strike-bot/pkg/redis"
)

// Config holds runtime configuration for the strike bot.
type Config struct {
	AppEnv     string           `mapstructure:"app_env"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Bot        BotConfig        `mapstructure:"bot"`
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Betting    BettingConfig    `mapstructure:"betting"`
	Session    SessionConfig    `mapstructure:"session"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
}

// LoggerConfig configures slog output and file rotation.
type LoggerConfig struct {
	Level  string     `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string     `mapstructure:"format" validate:"oneof=json text"`
	File   FileConfig `mapstructure:"file"`
}

// FileConfig enables rotated log files through lumberjack.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path" validate:"required_if=Enabled true"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

// SentryConfig toggles error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
	Environment string  `mapstructure:"environment"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token      string        `mapstructure:"token" validate:"required"`
	Mode       string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout    time.Duration `mapstructure:"timeout"`
	WebhookURL string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	Listen     string        `mapstructure:"listen"`
}

// ServerConfig configures the operations HTTP server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig wraps the client settings with an enable switch.
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	DSN            string        `mapstructure:"dsn" validate:"required_if=Enabled true"`
	MaxOpenConns   int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLife    time.Duration `mapstructure:"conn_max_life"`
	MigrationsDir  string        `mapstructure:"migrations_dir"`
	RunMigrations  bool          `mapstructure:"run_migrations"`
	RecordPayloads bool          `mapstructure:"record_payloads"`
}

// DatasetConfig selects where betting events are loaded from.
type DatasetConfig struct {
	Source string `mapstructure:"source" validate:"oneof=csv postgres"`
	Path   string `mapstructure:"path" validate:"required_if=Source csv"`
}

// ResolverConfig configures natural-language resolution.
type ResolverConfig struct {
	Provider  string        `mapstructure:"provider" validate:"oneof=openai local"`
	APIKey    string        `mapstructure:"api_key" validate:"required_if=Provider openai"`
	BaseURL   string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RPS       float64       `mapstructure:"rps" validate:"min=0"`
	Burst     int           `mapstructure:"burst" validate:"min=0"`
	MaxTokens int           `mapstructure:"max_tokens" validate:"min=0"`
}

// BettingConfig holds per-flow behaviour of the bet assembly machine.
type BettingConfig struct {
	GuidedRequiresAmount bool     `mapstructure:"guided_requires_amount"`
	QuickRequiresAmount  bool     `mapstructure:"quick_requires_amount"`
	AmountPresets        []string `mapstructure:"amount_presets"`
}

// SessionConfig controls the per-user session store.
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	LockWait        time.Duration `mapstructure:"lock_wait"`
}

// SettlementConfig configures where finalized submissions go.
type SettlementConfig struct {
	Mode    string        `mapstructure:"mode" validate:"oneof=http log"`
	URL     string        `mapstructure:"url" validate:"required_if=Mode http"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Async   bool          `mapstructure:"async"`
}

// JobsConfig configures the asynq worker and scheduler.
type JobsConfig struct {
	Concurrency   int    `mapstructure:"concurrency" validate:"min=0"`
	EvictSchedule string `mapstructure:"evict_schedule"`
}

// RateLimitRule describes a limit within a window.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"min=0"`
	Window string `mapstructure:"window"`
}

// RateLimitCommands holds per-action limits.
type RateLimitCommands struct {
	Describe RateLimitRule `mapstructure:"describe"`
	Search   RateLimitRule `mapstructure:"search"`
	Confirm  RateLimitRule `mapstructure:"confirm"`
}

// RateLimitConfig configures update throttling.
type RateLimitConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	Global    RateLimitRule     `mapstructure:"global"`
	PerUser   RateLimitRule     `mapstructure:"per_user"`
	Commands  RateLimitCommands `mapstructure:"commands"`
	Whitelist []int64           `mapstructure:"whitelist"`
}

// IsProduction reports whether the bot runs in production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

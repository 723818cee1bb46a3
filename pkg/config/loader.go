// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// missing env files are fine outside local development
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	return LoadFile(fmt.Sprintf("./configs/%s.yaml", env), env)
}

// LoadFile reads the given config file with environment overrides applied.
func LoadFile(path, env string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	if err := Validate(cfg); err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Validate checks struct tags on the config.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Watch re-decodes the config whenever the file changes and hands valid results to onChange.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			log.Warn("config reload failed", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		cfg.AppEnv = v.GetString("app_env")

		if err := Validate(cfg); err != nil {
			log.Warn("reloaded config is invalid", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file.max_size_mb", 50)
	v.SetDefault("logger.file.max_backups", 5)
	v.SetDefault("logger.file.max_age_days", 14)

	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.listen", ":8443")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_life", 30*time.Minute)

	v.SetDefault("dataset.source", "csv")
	v.SetDefault("dataset.path", "data/betting_events.csv")

	v.SetDefault("resolver.provider", "local")
	v.SetDefault("resolver.base_url", "https://api.openai.com")
	v.SetDefault("resolver.model", "gpt-4o")
	v.SetDefault("resolver.timeout", 8*time.Second)
	v.SetDefault("resolver.rps", 2)
	v.SetDefault("resolver.burst", 4)
	v.SetDefault("resolver.max_tokens", 800)

	v.SetDefault("betting.guided_requires_amount", true)
	v.SetDefault("betting.quick_requires_amount", false)
	v.SetDefault("betting.amount_presets", []string{"10", "20", "50", "100"})

	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.cleanup_interval", 5*time.Minute)
	v.SetDefault("session.lock_ttl", 10*time.Second)
	v.SetDefault("session.lock_wait", 3*time.Second)

	v.SetDefault("settlement.mode", "log")
	v.SetDefault("settlement.timeout", 10*time.Second)

	v.SetDefault("jobs.concurrency", 5)
	v.SetDefault("jobs.evict_schedule", "@every 5m")

	v.SetDefault("ratelimit.per_user.limit", 30)
	v.SetDefault("ratelimit.per_user.window", "1m")
	v.SetDefault("ratelimit.global.limit", 600)
	v.SetDefault("ratelimit.global.window", "1m")
	v.SetDefault("ratelimit.commands.describe.limit", 10)
	v.SetDefault("ratelimit.commands.describe.window", "1m")
	v.SetDefault("ratelimit.commands.search.limit", 10)
	v.SetDefault("ratelimit.commands.search.window", "1m")
	v.SetDefault("ratelimit.commands.confirm.limit", 5)
	v.SetDefault("ratelimit.commands.confirm.window", "1m")
}

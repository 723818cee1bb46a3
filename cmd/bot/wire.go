package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/internal/bot"
	"github.com/Proton-105/strike-bot/internal/bot/handlers"
	"github.com/Proton-105/strike-bot/internal/database"
	"github.com/Proton-105/strike-bot/internal/dataset"
	apperrors "github.com/Proton-105/strike-bot/internal/errors"
	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/idempotency"
	"github.com/Proton-105/strike-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/strike-bot/internal/jobs/handlers"
	"github.com/Proton-105/strike-bot/internal/lifecycle"
	"github.com/Proton-105/strike-bot/internal/middleware"
	"github.com/Proton-105/strike-bot/internal/ratelimit"
	"github.com/Proton-105/strike-bot/internal/repository"
	"github.com/Proton-105/strike-bot/internal/resolver"
	"github.com/Proton-105/strike-bot/internal/search"
	"github.com/Proton-105/strike-bot/internal/settlement"
	"github.com/Proton-105/strike-bot/internal/state"
	"github.com/Proton-105/strike-bot/migrations"
	"github.com/Proton-105/strike-bot/pkg/config"
	"github.com/Proton-105/strike-bot/pkg/metrics"
	pkgredis "github.com/Proton-105/strike-bot/pkg/redis"
)

// app holds the wired components shared by the bot, the workers and the probes.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	redis   *pkgredis.Client
	db      *sql.DB
	dataset *dataset.Dataset
	botDeps bot.Deps

	background []func(context.Context)
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger, shutdown *lifecycle.Shutdown) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if cfg.Redis.Enabled {
		client, err := pkgredis.New(ctx, cfg.Redis.Config)
		if err != nil {
			return nil, err
		}
		a.redis = client
		shutdown.Register(lifecycle.StageResources, "redis", closer(client.Close))
	}

	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		shutdown.Register(lifecycle.StageResources, "postgres", closer(db.Close))

		if cfg.Database.RunMigrations {
			if err := database.NewMigrator(db, log).ApplyFS(ctx, migrations.FS, "."); err != nil {
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
	}

	ds, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	a.dataset = ds
	log.Info("betting dataset loaded", slog.Int("events", ds.Len()), slog.Int("players", len(ds.PlayerNames())))

	betting.RegisterTransitionRecorder(metrics.RecordStateTransition)

	tr := i18n.Default()
	res := a.newResolver(ds)

	presets, err := parsePresets(cfg.Betting.AmountPresets)
	if err != nil {
		return nil, err
	}
	engine := betting.NewEngine(ds, res, tr, log, betting.WithAmountPresets(presets))

	store := a.newStateStore()
	cleaner := state.NewCleaner(store, log, cfg.Session.TTL, cfg.Session.CleanupInterval)
	collector := metrics.NewStateCollector(store, 10*time.Second)
	a.background = append(a.background, collector.Run)

	submitter, err := a.newSubmitter(cleaner, shutdown)
	if err != nil {
		return nil, err
	}
	if a.redis == nil {
		a.background = append(a.background, cleaner.Run)
	}

	rateLimit := a.newRateLimit(tr)
	idem := a.newIdempotency()

	a.botDeps = bot.Deps{
		Service: handlers.NewService(handlers.Deps{
			Store:      store,
			Engine:     engine,
			Search:     search.NewService(ds, res, log),
			Submitter:  submitter,
			Resolver:   res,
			Translator: tr,
			Limiter:    rateLimit,
			Flows: &handlers.Flows{
				Quick:  betting.Flow{RequireExplicitAmount: cfg.Betting.QuickRequiresAmount},
				Guided: betting.Flow{RequireExplicitAmount: cfg.Betting.GuidedRequiresAmount},
			},
			Log: log,
		}),
		Store:       store,
		Translator:  tr,
		Idempotency: idem,
		RateLimit:   rateLimit,
		Errors:      apperrors.NewHandler(log, cfg.Sentry.Enabled),
	}

	return a, nil
}

// startBackground launches the periodic loops; they stop with ctx.
func (a *app) startBackground(ctx context.Context) {
	for _, run := range a.background {
		go run(ctx)
	}
}

func closer(fn func() error) func(context.Context) error {
	return func(context.Context) error { return fn() }
}

func (a *app) loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	if a.cfg.Dataset.Source == "postgres" {
		if a.db == nil {
			return nil, fmt.Errorf("dataset source postgres requires database.enabled")
		}
		events, err := repository.NewEventRepository(a.db, a.log).List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load betting events: %w", err)
		}
		return dataset.New(events), nil
	}

	ds, err := dataset.LoadFile(a.cfg.Dataset.Path)
	if err != nil {
		return nil, fmt.Errorf("load betting events: %w", err)
	}

	if a.db != nil {
		if err := repository.NewEventRepository(a.db, a.log).ReplaceAll(ctx, ds.Events()); err != nil {
			a.log.Warn("failed to mirror dataset into postgres", slog.Any("error", err))
		}
	}

	return ds, nil
}

func (a *app) newResolver(ds *dataset.Dataset) resolver.Resolver {
	var inner resolver.Resolver = resolver.NewLocal(ds)
	if a.cfg.Resolver.Provider == "openai" {
		inner = resolver.NewOpenAI(resolver.OpenAIConfig{
			APIKey:    a.cfg.Resolver.APIKey,
			BaseURL:   a.cfg.Resolver.BaseURL,
			Model:     a.cfg.Resolver.Model,
			MaxTokens: a.cfg.Resolver.MaxTokens,
			RPS:       a.cfg.Resolver.RPS,
			Burst:     a.cfg.Resolver.Burst,
		}, ds, a.log)
	}

	return resolver.NewGuarded(inner, a.cfg.Resolver.Timeout, apperrors.NewCircuitBreaker(), a.log)
}

func (a *app) newStateStore() *state.SessionStore {
	if a.redis == nil {
		return state.NewStore(state.NewMemoryStorage(), state.NewMemoryLocker(a.cfg.Session.LockWait), a.log)
	}

	raw := a.redis.Raw()
	return state.NewStore(
		state.NewRedisStorage(raw, a.log, a.cfg.Session.TTL),
		state.NewRedisLocker(raw, a.log, a.cfg.Session.LockTTL, a.cfg.Session.LockWait),
		a.log,
	)
}

// newSubmitter picks the delivery path. With async enabled the bot only
// enqueues and the worker delivers through the direct submitter.
func (a *app) newSubmitter(sweeper jobhandlers.Sweeper, shutdown *lifecycle.Shutdown) (settlement.Submitter, error) {
	var direct settlement.Submitter
	switch a.cfg.Settlement.Mode {
	case "http":
		direct = settlement.NewHTTPClient(settlement.HTTPConfig{
			URL:     a.cfg.Settlement.URL,
			APIKey:  a.cfg.Settlement.APIKey,
			Timeout: a.cfg.Settlement.Timeout,
		}, a.log)
	default:
		direct = settlement.NewLogSubmitter(a.log)
	}

	if a.db != nil && a.cfg.Database.RecordPayloads {
		direct = settlement.NewTracked(direct, repository.NewSubmissionRepository(a.db, a.log), settlement.StatusSent, a.log)
	}

	if a.redis == nil {
		if a.cfg.Settlement.Async {
			a.log.Warn("settlement.async needs redis, delivering synchronously")
		}
		return direct, nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}

	worker := jobs.NewWorker(redisOpt, jobs.Queues, a.cfg.Jobs.Concurrency, a.log)
	worker.RegisterHandler(jobs.TaskTypeSubmissionSend, jobhandlers.NewSubmissionHandler(direct, a.log))
	worker.RegisterHandler(jobs.TaskTypeSessionEvict, jobhandlers.NewEvictHandler(sweeper, a.log))

	scheduler := jobs.NewScheduler(redisOpt, a.cfg.Jobs.EvictSchedule, a.log)
	if err := scheduler.RegisterTasks(); err != nil {
		return nil, fmt.Errorf("register scheduled tasks: %w", err)
	}

	a.background = append(a.background, func(context.Context) {
		if err := worker.Run(); err != nil {
			a.log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}, func(context.Context) { scheduler.Run() })

	shutdown.Register(lifecycle.StageWorkers, "jobs-worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})
	shutdown.Register(lifecycle.StageWorkers, "jobs-scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})

	if !a.cfg.Settlement.Async {
		return direct, nil
	}

	manager := jobs.NewManager(redisOpt, a.log)
	shutdown.Register(lifecycle.StageResources, "jobs-client", closer(manager.Close))

	return jobs.NewQueueSubmitter(manager, a.log), nil
}

func (a *app) newRateLimit(tr i18n.Translator) *middleware.RateLimitMiddleware {
	if !a.cfg.RateLimit.Enabled {
		return nil
	}

	memory := ratelimit.NewMemoryLimiter(a.log)
	a.background = append(a.background, ratelimit.NewCleaner(memory, a.log, time.Minute, 10*time.Minute).Run)

	var limiter ratelimit.Limiter = memory
	if a.redis != nil {
		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(a.redis.Raw(), a.log), memory, a.log)
	}

	return middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(a.cfg.RateLimit), tr, a.log)
}

func (a *app) newIdempotency() idempotency.Manager {
	if a.redis == nil {
		store := idempotency.NewMemoryStore()
		a.background = append(a.background, idempotency.NewCleaner(nil, store, a.log, 10*time.Minute, 0).Run)
		return idempotency.NewManager(store, a.log)
	}

	raw := a.redis.Raw()
	a.background = append(a.background,
		idempotency.NewCleaner(raw, nil, a.log, time.Hour, middleware.DefaultIdempotencyTTL+time.Hour).Run)
	return idempotency.NewManager(idempotency.NewRedisStore(raw, a.log), a.log)
}

func parsePresets(values []string) ([]decimal.Decimal, error) {
	presets := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			return nil, fmt.Errorf("invalid betting.amount_presets value %q", v)
		}
		presets = append(presets, d)
	}
	return presets, nil
}
